package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CoverType string

const (
	CoverTypeHard CoverType = "HARD"
	CoverTypeSoft CoverType = "SOFT"
)

// Valid reports whether c is one of the known cover types.
func (c CoverType) Valid() bool {
	return c == CoverTypeHard || c == CoverTypeSoft
}

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"size:255;not null;index" json:"email"`
	IsStaff   bool      `gorm:"not null" json:"is_staff"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

type Book struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string          `gorm:"size:255;not null;index" json:"title"`
	Author    string          `gorm:"size:255;not null" json:"author"`
	Cover     CoverType       `gorm:"size:4;not null" json:"cover"`
	Inventory int             `gorm:"not null;check:inventory >= 0" json:"inventory"`
	DailyFee  decimal.Decimal `gorm:"type:numeric(6,2);not null" json:"daily_fee"`
	Image     string          `gorm:"size:512;not null" json:"image"`
}

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Borrowing links a user to a borrowed book. At most one active borrowing may exist per
// (user, book); the partial unique index enforces it at the storage level.
type Borrowing struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BorrowDate         Date      `gorm:"type:date;not null" json:"borrow_date"`
	ExpectedReturnDate Date      `gorm:"type:date;not null;index" json:"expected_return_date"`
	ActualReturnDate   *Date     `gorm:"type:date" json:"actual_return_date"`
	BookID             uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_borrowings_active_user_book,where:is_active = true" json:"book_id"`
	Book               Book      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID             uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_borrowings_active_user_book,where:is_active = true" json:"user_id"`
	User               User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	IsActive           bool      `gorm:"not null;index" json:"is_active"`
}

func (b *Borrowing) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// ScheduledJob is the persistent registration of a recurring job, keyed by name.
type ScheduledJob struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null;uniqueIndex" json:"name"`
	Schedule  string    `gorm:"size:128;not null" json:"schedule"`
	LastRunOn *Date     `gorm:"type:date" json:"last_run_on"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (j *ScheduledJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
