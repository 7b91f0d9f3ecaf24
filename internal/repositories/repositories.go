package repositories

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"library-service/internal/models"
)

// ErrNoRowsAffected is returned by conditional updates whose guard did not match.
var ErrNoRowsAffected = errors.New("no rows affected")

// Page selects a 1-based page of a list.
type Page struct {
	Number int
	Size   int
}

func (p Page) offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	if p.Size <= 0 {
		return db
	}
	return db.Offset(p.offset()).Limit(p.Size)
}

// BorrowingFilter narrows a borrowing listing. Nil fields are not filtered on.
type BorrowingFilter struct {
	UserID   *uuid.UUID
	IsActive *bool
}

// BookPatch carries the columns of a partial book update. Nil fields are left unchanged.
type BookPatch struct {
	Title     *string
	Author    *string
	Cover     *models.CoverType
	Inventory *int
	DailyFee  *decimal.Decimal
}

type UserRepository interface {
	GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error)
	Upsert(db *gorm.DB, user *models.User) error
}

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	List(db *gorm.DB, page Page) ([]models.Book, int64, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	Update(db *gorm.DB, id uuid.UUID, patch BookPatch) error
	UpdateImage(db *gorm.DB, id uuid.UUID, image string) error
	Delete(db *gorm.DB, id uuid.UUID) error
	AdjustInventory(db *gorm.DB, bookID uuid.UUID, delta int) error
}

type BorrowingRepository interface {
	Create(db *gorm.DB, borrowing *models.Borrowing) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Borrowing, error)
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Borrowing, error)
	ExistsActive(db *gorm.DB, userID, bookID uuid.UUID) (bool, error)
	MarkReturned(db *gorm.DB, id uuid.UUID, returnedOn models.Date) error
	List(db *gorm.DB, filter BorrowingFilter, page Page) ([]models.Borrowing, int64, error)
	ListOverdue(db *gorm.DB, today models.Date) ([]models.Borrowing, error)
}

type ScheduledJobRepository interface {
	Ensure(db *gorm.DB, name, schedule string) error
	List(db *gorm.DB) ([]models.ScheduledJob, error)
	GetByName(db *gorm.DB, name string) (*models.ScheduledJob, error)
	ClaimRun(db *gorm.DB, name string, day models.Date) (bool, error)
}

// IsUniqueViolation reports whether err is a unique-constraint violation on any
// supported dialect. PostgreSQL reports SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// concrete implementations

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Upsert inserts the user or refreshes email and staff flag from the identity provider.
func (r *userRepository) Upsert(db *gorm.DB, user *models.User) error {
	if db == nil {
		db = r.db
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "is_staff"}),
	}).Create(user).Error
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Create(book).Error
}

func (r *bookRepository) List(db *gorm.DB, page Page) ([]models.Book, int64, error) {
	if db == nil {
		db = r.db
	}
	var total int64
	if err := db.Model(&models.Book{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var books []models.Book
	if err := page.apply(db.Order("title ASC, id ASC")).Find(&books).Error; err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (r *bookRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) Update(db *gorm.DB, id uuid.UUID, patch BookPatch) error {
	if db == nil {
		db = r.db
	}
	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Author != nil {
		updates["author"] = *patch.Author
	}
	if patch.Cover != nil {
		updates["cover"] = *patch.Cover
	}
	if patch.Inventory != nil {
		updates["inventory"] = *patch.Inventory
	}
	if patch.DailyFee != nil {
		updates["daily_fee"] = *patch.DailyFee
	}
	if len(updates) == 0 {
		return nil
	}
	return db.Model(&models.Book{}).Where("id = ?", id).Updates(updates).Error
}

func (r *bookRepository) UpdateImage(db *gorm.DB, id uuid.UUID, image string) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Book{}).
		Where("id = ?", id).
		UpdateColumn("image", image).
		Error
}

func (r *bookRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	res := db.Delete(&models.Book{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AdjustInventory adds delta to the book's inventory. A decrement only applies while
// enough copies remain, otherwise ErrNoRowsAffected is returned and nothing changes.
func (r *bookRepository) AdjustInventory(db *gorm.DB, bookID uuid.UUID, delta int) error {
	if db == nil {
		db = r.db
	}
	q := db.Model(&models.Book{}).Where("id = ?", bookID)
	if delta < 0 {
		q = q.Where("inventory >= ?", -delta)
	}
	res := q.UpdateColumn("inventory", gorm.Expr("inventory + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

type borrowingRepository struct {
	db *gorm.DB
}

func NewBorrowingRepository(db *gorm.DB) BorrowingRepository {
	return &borrowingRepository{db: db}
}

func (r *borrowingRepository) Create(db *gorm.DB, borrowing *models.Borrowing) error {
	if db == nil {
		db = r.db
	}
	return db.Omit(clause.Associations).Create(borrowing).Error
}

func (r *borrowingRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Borrowing, error) {
	if db == nil {
		db = r.db
	}
	var borrowing models.Borrowing
	err := db.
		Preload("Book").
		Preload("User").
		First(&borrowing, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &borrowing, nil
}

func (r *borrowingRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Borrowing, error) {
	if db == nil {
		db = r.db
	}
	var borrowing models.Borrowing
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&borrowing, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &borrowing, nil
}

func (r *borrowingRepository) ExistsActive(db *gorm.DB, userID, bookID uuid.UUID) (bool, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Borrowing{}).
		Where("user_id = ? AND book_id = ? AND is_active = ?", userID, bookID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkReturned closes an active borrowing. ErrNoRowsAffected means it was already closed.
func (r *borrowingRepository) MarkReturned(db *gorm.DB, id uuid.UUID, returnedOn models.Date) error {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Borrowing{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"actual_return_date": returnedOn,
			"is_active":          false,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (r *borrowingRepository) List(db *gorm.DB, filter BorrowingFilter, page Page) ([]models.Borrowing, int64, error) {
	if db == nil {
		db = r.db
	}
	q := db.Model(&models.Borrowing{})
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var borrowings []models.Borrowing
	err := page.apply(q.
		Preload("Book").
		Preload("User").
		Order("is_active DESC, expected_return_date ASC, id ASC")).
		Find(&borrowings).Error
	if err != nil {
		return nil, 0, err
	}
	return borrowings, total, nil
}

func (r *borrowingRepository) ListOverdue(db *gorm.DB, today models.Date) ([]models.Borrowing, error) {
	if db == nil {
		db = r.db
	}
	var borrowings []models.Borrowing
	err := db.
		Preload("Book").
		Preload("User").
		Where("is_active = ? AND expected_return_date < ?", true, today).
		Order("expected_return_date ASC, id ASC").
		Find(&borrowings).Error
	if err != nil {
		return nil, err
	}
	return borrowings, nil
}

type scheduledJobRepository struct {
	db *gorm.DB
}

func NewScheduledJobRepository(db *gorm.DB) ScheduledJobRepository {
	return &scheduledJobRepository{db: db}
}

// Ensure registers the job under name exactly once, refreshing its schedule if it changed.
func (r *scheduledJobRepository) Ensure(db *gorm.DB, name, schedule string) error {
	if db == nil {
		db = r.db
	}
	job := &models.ScheduledJob{Name: name, Schedule: schedule}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"schedule", "updated_at"}),
	}).Create(job).Error
}

func (r *scheduledJobRepository) List(db *gorm.DB) ([]models.ScheduledJob, error) {
	if db == nil {
		db = r.db
	}
	var jobs []models.ScheduledJob
	if err := db.Order("name ASC").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *scheduledJobRepository) GetByName(db *gorm.DB, name string) (*models.ScheduledJob, error) {
	if db == nil {
		db = r.db
	}
	var job models.ScheduledJob
	if err := db.First(&job, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ClaimRun records day as the job's last run if it has not run on or after day yet.
// It returns false when another run already claimed the day.
func (r *scheduledJobRepository) ClaimRun(db *gorm.DB, name string, day models.Date) (bool, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.ScheduledJob{}).
		Where("name = ? AND (last_run_on IS NULL OR last_run_on < ?)", name, day).
		Updates(map[string]interface{}{
			"last_run_on": day,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
