package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"library-service/internal/database"
	"library-service/internal/models"
	"library-service/internal/repositories"
)

var testToday = models.NewDate(2026, time.October, 16)

func fixedClock() time.Time {
	return time.Date(2026, time.October, 16, 14, 30, 0, 0, time.UTC)
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(_ context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *fakeNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type memoryCovers struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemoryCovers() *memoryCovers {
	return &memoryCovers{files: make(map[string][]byte)}
}

func (c *memoryCovers) Save(_ context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[key] = data
	return nil
}

func (c *memoryCovers) Remove(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.files, key)
	return nil
}

func (c *memoryCovers) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.files[key]
	return ok
}

type testEnv struct {
	db         *gorm.DB
	books      repositories.BookRepository
	borrowings repositories.BorrowingRepository
	notifier   *fakeNotifier
	covers     *memoryCovers
	catalog    CatalogService
	borrowing  BorrowingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := database.NewTestDB(t)
	env := &testEnv{
		db:         db,
		books:      repositories.NewBookRepository(db),
		borrowings: repositories.NewBorrowingRepository(db),
		notifier:   &fakeNotifier{},
		covers:     newMemoryCovers(),
	}
	env.catalog = NewCatalogService(db, env.books, env.covers, 1<<20, WithClock(fixedClock), WithPageSize(2))
	env.borrowing = NewBorrowingService(db, env.books, env.borrowings, env.notifier, WithClock(fixedClock), WithPageSize(2))
	return env
}

func (e *testEnv) user(t *testing.T, email string, staff bool) *models.User {
	t.Helper()
	u := &models.User{ID: uuid.New(), Email: email, IsStaff: staff}
	require.NoError(t, repositories.NewUserRepository(e.db).Upsert(nil, u))
	return u
}

func (e *testEnv) book(t *testing.T, title string, inventory int) *models.Book {
	t.Helper()
	b, err := e.catalog.CreateBook(context.Background(), BookInput{
		Title:     title,
		Author:    "Author",
		Inventory: inventory,
		DailyFee:  decimal.RequireFromString("0.50"),
	})
	require.NoError(t, err)
	return b
}

func (e *testEnv) inventory(t *testing.T, id uuid.UUID) int {
	t.Helper()
	b, err := e.books.GetByID(nil, id)
	require.NoError(t, err)
	return b.Inventory
}

func (e *testEnv) countBorrowings(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.Borrowing{}).Count(&n).Error)
	return n
}
