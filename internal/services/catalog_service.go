package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"library-service/internal/imaging"
	"library-service/internal/logger"
	"library-service/internal/models"
	"library-service/internal/repositories"
	"library-service/internal/storage"
)

const maxTextLength = 255

var maxDailyFee = decimal.NewFromInt(10000)

// ─── Service Interface ────────────────────────────────────────────────────────

// BookInput is the payload of a new book. An empty Cover defaults to HARD.
type BookInput struct {
	Title     string
	Author    string
	Cover     models.CoverType
	Inventory int
	DailyFee  decimal.Decimal
}

// BookUpdate changes the non-nil fields of a book.
type BookUpdate struct {
	Title     *string
	Author    *string
	Cover     *models.CoverType
	Inventory *int
	DailyFee  *decimal.Decimal
}

type BookPage struct {
	Items    []models.Book
	Total    int64
	Page     int
	PageSize int
}

// CoverStore persists processed cover images under a key.
type CoverStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Remove(ctx context.Context, key string) error
}

// CatalogService manages book records. Inventory changes made here are administrative;
// borrow and return adjust it through BorrowingService.
type CatalogService interface {
	CreateBook(ctx context.Context, in BookInput) (*models.Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error)
	ListBooks(ctx context.Context, page int) (*BookPage, error)
	UpdateBook(ctx context.Context, id uuid.UUID, upd BookUpdate) (*models.Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error
	SetCoverImage(ctx context.Context, id uuid.UUID, r io.Reader) (*models.Book, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type catalogService struct {
	db             *gorm.DB
	bookRepo       repositories.BookRepository
	covers         CoverStore
	maxUploadBytes int64
	opts           options
	log            *slog.Logger
}

// NewCatalogService wires up all dependencies and returns a CatalogService.
// maxUploadBytes <= 0 disables the cover size limit.
func NewCatalogService(
	db *gorm.DB,
	bookRepo repositories.BookRepository,
	covers CoverStore,
	maxUploadBytes int64,
	opts ...Option,
) CatalogService {
	return &catalogService{
		db:             db,
		bookRepo:       bookRepo,
		covers:         covers,
		maxUploadBytes: maxUploadBytes,
		opts:           buildOptions(opts),
		log:            logger.WithService("catalog"),
	}
}

func (s *catalogService) CreateBook(ctx context.Context, in BookInput) (*models.Book, error) {
	if in.Cover == "" {
		in.Cover = models.CoverTypeHard
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)

	if err := validateText("title", in.Title); err != nil {
		return nil, err
	}
	if err := validateText("author", in.Author); err != nil {
		return nil, err
	}
	if err := validateCover(in.Cover); err != nil {
		return nil, err
	}
	if err := validateInventory(in.Inventory); err != nil {
		return nil, err
	}
	if err := validateDailyFee(in.DailyFee); err != nil {
		return nil, err
	}

	book := &models.Book{
		Title:     in.Title,
		Author:    in.Author,
		Cover:     in.Cover,
		Inventory: in.Inventory,
		DailyFee:  in.DailyFee,
	}
	if err := s.bookRepo.Create(s.db.WithContext(ctx), book); err != nil {
		return nil, fmt.Errorf("creating book: %w", err)
	}

	s.log.InfoContext(ctx, "book created", "book_id", book.ID, "title", book.Title, "inventory", book.Inventory)
	return book, nil
}

func (s *catalogService) GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

func (s *catalogService) ListBooks(ctx context.Context, page int) (*BookPage, error) {
	page = normalizePage(page)
	items, total, err := s.bookRepo.List(
		s.db.WithContext(ctx),
		repositories.Page{Number: page, Size: s.opts.pageSize},
	)
	if err != nil {
		return nil, err
	}
	return &BookPage{Items: items, Total: total, Page: page, PageSize: s.opts.pageSize}, nil
}

func (s *catalogService) UpdateBook(ctx context.Context, id uuid.UUID, upd BookUpdate) (*models.Book, error) {
	patch := repositories.BookPatch{
		Cover:     upd.Cover,
		Inventory: upd.Inventory,
		DailyFee:  upd.DailyFee,
	}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if err := validateText("title", title); err != nil {
			return nil, err
		}
		patch.Title = &title
	}
	if upd.Author != nil {
		author := strings.TrimSpace(*upd.Author)
		if err := validateText("author", author); err != nil {
			return nil, err
		}
		patch.Author = &author
	}
	if upd.Cover != nil {
		if err := validateCover(*upd.Cover); err != nil {
			return nil, err
		}
	}
	if upd.Inventory != nil {
		if err := validateInventory(*upd.Inventory); err != nil {
			return nil, err
		}
	}
	if upd.DailyFee != nil {
		if err := validateDailyFee(*upd.DailyFee); err != nil {
			return nil, err
		}
	}

	var updated *models.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.bookRepo.GetByIDForUpdate(tx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		if err := s.bookRepo.Update(tx, id, patch); err != nil {
			return fmt.Errorf("updating book: %w", err)
		}
		book, err := s.bookRepo.GetByID(tx, id)
		if err != nil {
			return err
		}
		updated = book
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "book updated", "book_id", id)
	return updated, nil
}

// DeleteBook removes the book together with its borrowings and its cover file.
func (s *catalogService) DeleteBook(ctx context.Context, id uuid.UUID) error {
	book, err := s.GetBook(ctx, id)
	if err != nil {
		return err
	}
	if err := s.bookRepo.Delete(s.db.WithContext(ctx), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookNotFound
		}
		return fmt.Errorf("deleting book: %w", err)
	}

	if book.Image != "" {
		if err := s.covers.Remove(ctx, book.Image); err != nil {
			s.log.WarnContext(ctx, "failed to remove cover file", "book_id", id, "key", book.Image, "error", err)
		}
	}
	s.log.InfoContext(ctx, "book deleted", "book_id", id)
	return nil
}

// SetCoverImage replaces the book's cover. The previous file is removed best-effort.
func (s *catalogService) SetCoverImage(ctx context.Context, id uuid.UUID, r io.Reader) (*models.Book, error) {
	book, err := s.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}

	cover, err := imaging.Process(r, s.maxUploadBytes)
	if err != nil {
		s.log.WarnContext(ctx, "cover rejected", "book_id", id, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrBadImagePayload, err)
	}

	key := storage.CoverKey(book.Title)
	if err := s.covers.Save(ctx, key, cover.Data); err != nil {
		return nil, fmt.Errorf("storing cover: %w", err)
	}

	if err := s.bookRepo.UpdateImage(s.db.WithContext(ctx), id, key); err != nil {
		_ = s.covers.Remove(ctx, key)
		return nil, fmt.Errorf("updating book image: %w", err)
	}

	if book.Image != "" && book.Image != key {
		if err := s.covers.Remove(ctx, book.Image); err != nil {
			s.log.WarnContext(ctx, "failed to remove previous cover", "book_id", id, "key", book.Image, "error", err)
		}
	}

	s.log.InfoContext(ctx, "cover stored", "book_id", id, "key", key, "width", cover.Width, "height", cover.Height)
	book.Image = key
	return book, nil
}

// ─── Validation ───────────────────────────────────────────────────────────────

func validateText(field, value string) error {
	if value == "" {
		return invalid(field, "this field may not be blank")
	}
	if utf8.RuneCountInString(value) > maxTextLength {
		return invalid(field, "ensure this field has no more than %d characters", maxTextLength)
	}
	return nil
}

func validateCover(c models.CoverType) error {
	if !c.Valid() {
		return invalid("cover", "%q is not a valid choice", string(c))
	}
	return nil
}

func validateInventory(n int) error {
	if n < 0 {
		return invalid("inventory", "ensure this value is greater than or equal to 0")
	}
	return nil
}

func validateDailyFee(fee decimal.Decimal) error {
	if fee.IsNegative() {
		return invalid("daily_fee", "ensure this value is greater than or equal to 0")
	}
	if !fee.Equal(fee.Round(2)) {
		return invalid("daily_fee", "ensure that there are no more than 2 decimal places")
	}
	if fee.GreaterThanOrEqual(maxDailyFee) {
		return invalid("daily_fee", "ensure that there are no more than 6 digits in total")
	}
	return nil
}
