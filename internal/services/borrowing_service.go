package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"library-service/internal/logger"
	"library-service/internal/models"
	"library-service/internal/notification"
	"library-service/internal/repositories"
)

// ─── Service Interface ────────────────────────────────────────────────────────

// BorrowRequest is the payload of a new borrowing.
type BorrowRequest struct {
	BookID             uuid.UUID
	ExpectedReturnDate models.Date
}

// BorrowingQuery narrows a borrowing listing. UserID is honoured for staff only.
type BorrowingQuery struct {
	UserID   *uuid.UUID
	IsActive *bool
	Page     int
}

type BorrowingPage struct {
	Items    []models.Borrowing
	Total    int64
	Page     int
	PageSize int
}

// BorrowingService owns the borrowing lifecycle: inventory moves together with the
// borrowing record, inside one transaction, in both directions.
type BorrowingService interface {
	Borrow(ctx context.Context, user *models.User, req BorrowRequest) (*models.Borrowing, error)
	Return(ctx context.Context, user *models.User, borrowingID uuid.UUID) (*models.Borrowing, error)

	GetBorrowing(ctx context.Context, requester *models.User, borrowingID uuid.UUID) (*models.Borrowing, error)
	ListBorrowings(ctx context.Context, requester *models.User, q BorrowingQuery) (*BorrowingPage, error)
	ListOverdue(ctx context.Context, today models.Date) ([]models.Borrowing, error)

	Today() models.Date
}

// ─── Implementation ───────────────────────────────────────────────────────────

type borrowingService struct {
	db            *gorm.DB
	bookRepo      repositories.BookRepository
	borrowingRepo repositories.BorrowingRepository
	notifier      Notifier
	opts          options
	log           *slog.Logger
}

// NewBorrowingService wires up all dependencies and returns a BorrowingService.
func NewBorrowingService(
	db *gorm.DB,
	bookRepo repositories.BookRepository,
	borrowingRepo repositories.BorrowingRepository,
	notifier Notifier,
	opts ...Option,
) BorrowingService {
	return &borrowingService{
		db:            db,
		bookRepo:      bookRepo,
		borrowingRepo: borrowingRepo,
		notifier:      notifier,
		opts:          buildOptions(opts),
		log:           logger.WithService("borrowing"),
	}
}

func (s *borrowingService) Today() models.Date {
	return models.DateOf(s.opts.now())
}

// ─── Borrow ───────────────────────────────────────────────────────────────────

// Borrow implements the transactional borrow flow.
//
// Checks run in order: copies left, return date after today, no active borrowing of the
// same book by the same user. The inventory decrement is the only place a borrow mutates
// the catalog; it and the new record commit together or not at all. The notification is
// queued after commit.
func (s *borrowingService) Borrow(ctx context.Context, user *models.User, req BorrowRequest) (*models.Borrowing, error) {
	today := s.Today()
	var created *models.Borrowing

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Lock the book row so concurrent borrows of the last copy serialize.
		book, err := s.bookRepo.GetByIDForUpdate(tx, req.BookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		if book.Inventory <= 0 {
			return ErrBookUnavailable
		}

		// 2. Expected return date must be tomorrow or later.
		if !req.ExpectedReturnDate.After(today) {
			return ErrInvalidReturnDate
		}

		// 3. One active borrowing per (user, book).
		exists, err := s.borrowingRepo.ExistsActive(tx, user.ID, book.ID)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateActiveBorrow
		}

		// 4. Take a copy.
		if err := s.bookRepo.AdjustInventory(tx, book.ID, -1); err != nil {
			if errors.Is(err, repositories.ErrNoRowsAffected) {
				return ErrBookUnavailable
			}
			return fmt.Errorf("decrementing inventory: %w", err)
		}

		// 5. Record the borrowing.
		borrowing := &models.Borrowing{
			BorrowDate:         today,
			ExpectedReturnDate: req.ExpectedReturnDate,
			BookID:             book.ID,
			UserID:             user.ID,
			IsActive:           true,
		}
		if err := s.borrowingRepo.Create(tx, borrowing); err != nil {
			if repositories.IsUniqueViolation(err) {
				return ErrDuplicateActiveBorrow
			}
			return fmt.Errorf("creating borrowing: %w", err)
		}

		book.Inventory--
		borrowing.Book = *book
		borrowing.User = *user
		created = borrowing
		return nil
	})
	if err != nil {
		s.log.WarnContext(ctx, "borrow rejected",
			"user_id", user.ID, "book_id", req.BookID, "error", err)
		return nil, err
	}

	s.log.InfoContext(ctx, "borrowing created",
		"borrowing_id", created.ID, "user_id", user.ID, "book_id", created.BookID,
		"expected_return_date", created.ExpectedReturnDate.String(), "inventory_left", created.Book.Inventory)

	s.notifier.Notify(ctx, notification.BorrowedMessage(user.Email, created.Book.Title))
	return created, nil
}

// ─── Return ───────────────────────────────────────────────────────────────────

// Return closes the requester's borrowing and puts the copy back, atomically.
// Borrowings owned by someone else are reported as not found.
func (s *borrowingService) Return(ctx context.Context, user *models.User, borrowingID uuid.UUID) (*models.Borrowing, error) {
	today := s.Today()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		borrowing, err := s.borrowingRepo.GetByIDForUpdate(tx, borrowingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBorrowingNotFound
			}
			return err
		}
		if borrowing.UserID != user.ID {
			return ErrBorrowingNotFound
		}
		if !borrowing.IsActive {
			return ErrAlreadyReturned
		}

		if err := s.borrowingRepo.MarkReturned(tx, borrowing.ID, today); err != nil {
			if errors.Is(err, repositories.ErrNoRowsAffected) {
				return ErrAlreadyReturned
			}
			return fmt.Errorf("marking borrowing returned: %w", err)
		}
		if err := s.bookRepo.AdjustInventory(tx, borrowing.BookID, 1); err != nil {
			return fmt.Errorf("incrementing inventory: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.WarnContext(ctx, "return rejected",
			"user_id", user.ID, "borrowing_id", borrowingID, "error", err)
		return nil, err
	}

	s.log.InfoContext(ctx, "borrowing returned", "borrowing_id", borrowingID, "user_id", user.ID)

	returned, err := s.borrowingRepo.GetByID(s.db.WithContext(ctx), borrowingID)
	if err != nil {
		return nil, err
	}
	return returned, nil
}

// ─── Queries ──────────────────────────────────────────────────────────────────

func (s *borrowingService) GetBorrowing(ctx context.Context, requester *models.User, borrowingID uuid.UUID) (*models.Borrowing, error) {
	borrowing, err := s.borrowingRepo.GetByID(s.db.WithContext(ctx), borrowingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBorrowingNotFound
		}
		return nil, err
	}
	if !requester.IsStaff && borrowing.UserID != requester.ID {
		return nil, ErrBorrowingNotFound
	}
	return borrowing, nil
}

// ListBorrowings lists the requester's own borrowings, or anyone's for staff.
func (s *borrowingService) ListBorrowings(ctx context.Context, requester *models.User, q BorrowingQuery) (*BorrowingPage, error) {
	filter := repositories.BorrowingFilter{IsActive: q.IsActive}
	if requester.IsStaff {
		filter.UserID = q.UserID
	} else {
		own := requester.ID
		filter.UserID = &own
	}

	page := normalizePage(q.Page)
	items, total, err := s.borrowingRepo.List(
		s.db.WithContext(ctx),
		filter,
		repositories.Page{Number: page, Size: s.opts.pageSize},
	)
	if err != nil {
		return nil, err
	}
	return &BorrowingPage{Items: items, Total: total, Page: page, PageSize: s.opts.pageSize}, nil
}

// ListOverdue returns active borrowings whose expected return date is before today.
func (s *borrowingService) ListOverdue(ctx context.Context, today models.Date) ([]models.Borrowing, error) {
	return s.borrowingRepo.ListOverdue(s.db.WithContext(ctx), today)
}
