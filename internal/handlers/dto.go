package handlers

import (
	"github.com/google/uuid"

	"library-service/internal/models"
	"library-service/internal/storage"
)

type pageResponse struct {
	Count   int64 `json:"count"`
	Page    int   `json:"page"`
	Results any   `json:"results"`
}

type bookResponse struct {
	ID        uuid.UUID        `json:"id"`
	Title     string           `json:"title"`
	Author    string           `json:"author"`
	Cover     models.CoverType `json:"cover"`
	Inventory int              `json:"inventory"`
	DailyFee  string           `json:"daily_fee"`
	Image     *string          `json:"image"`
}

func newBookResponse(b *models.Book, media *storage.Media) bookResponse {
	resp := bookResponse{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		Cover:     b.Cover,
		Inventory: b.Inventory,
		DailyFee:  b.DailyFee.StringFixed(2),
	}
	if b.Image != "" {
		url := b.Image
		if media != nil {
			url = media.URL(b.Image)
		}
		resp.Image = &url
	}
	return resp
}

type userResponse struct {
	ID      uuid.UUID `json:"id"`
	Email   string    `json:"email"`
	IsStaff bool      `json:"is_staff"`
}

// borrowingCreatedResponse echoes the accepted borrowing.
type borrowingCreatedResponse struct {
	ID                 uuid.UUID   `json:"id"`
	BorrowDate         models.Date `json:"borrow_date"`
	ExpectedReturnDate models.Date `json:"expected_return_date"`
	Book               uuid.UUID   `json:"book"`
}

// borrowingListItem flattens the book to its title and the user to an email.
type borrowingListItem struct {
	ID                 uuid.UUID    `json:"id"`
	BorrowDate         models.Date  `json:"borrow_date"`
	ExpectedReturnDate models.Date  `json:"expected_return_date"`
	ActualReturnDate   *models.Date `json:"actual_return_date"`
	Book               string       `json:"book"`
	User               string       `json:"user"`
	IsActive           bool         `json:"is_active"`
}

type borrowingDetail struct {
	ID                 uuid.UUID    `json:"id"`
	BorrowDate         models.Date  `json:"borrow_date"`
	ExpectedReturnDate models.Date  `json:"expected_return_date"`
	ActualReturnDate   *models.Date `json:"actual_return_date"`
	Book               bookResponse `json:"book"`
	User               userResponse `json:"user"`
	IsActive           bool         `json:"is_active"`
}

func newBorrowingListItem(b *models.Borrowing) borrowingListItem {
	return borrowingListItem{
		ID:                 b.ID,
		BorrowDate:         b.BorrowDate,
		ExpectedReturnDate: b.ExpectedReturnDate,
		ActualReturnDate:   b.ActualReturnDate,
		Book:               b.Book.Title,
		User:               b.User.Email,
		IsActive:           b.IsActive,
	}
}

func newBorrowingDetail(b *models.Borrowing, media *storage.Media) borrowingDetail {
	return borrowingDetail{
		ID:                 b.ID,
		BorrowDate:         b.BorrowDate,
		ExpectedReturnDate: b.ExpectedReturnDate,
		ActualReturnDate:   b.ActualReturnDate,
		Book:               newBookResponse(&b.Book, media),
		User:               userResponse{ID: b.User.ID, Email: b.User.Email, IsStaff: b.User.IsStaff},
		IsActive:           b.IsActive,
	}
}
