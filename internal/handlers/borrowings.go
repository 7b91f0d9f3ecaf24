package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"library-service/internal/models"
	"library-service/internal/services"
)

type createBorrowingRequest struct {
	Book               string       `json:"book" binding:"required,uuid"`
	ExpectedReturnDate *models.Date `json:"expected_return_date" binding:"required"`
}

func (h *LibraryHandler) listBorrowings(c *gin.Context) {
	page, ok := pageParam(c)
	if !ok {
		return
	}
	q := services.BorrowingQuery{Page: page}

	if raw := c.Query("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		q.UserID = &userID
	}
	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid is_active, expected true or false"})
			return
		}
		q.IsActive = &active
	}

	result, err := h.borrowing.ListBorrowings(c.Request.Context(), currentUser(c), q)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]borrowingListItem, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, newBorrowingListItem(&result.Items[i]))
	}
	c.JSON(http.StatusOK, pageResponse{Count: result.Total, Page: result.Page, Results: items})
}

func (h *LibraryHandler) createBorrowing(c *gin.Context) {
	var req createBorrowingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}
	bookID, err := uuid.Parse(req.Book)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "book: must be a valid UUID"})
		return
	}

	borrowing, err := h.borrowing.Borrow(c.Request.Context(), currentUser(c), services.BorrowRequest{
		BookID:             bookID,
		ExpectedReturnDate: *req.ExpectedReturnDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, borrowingCreatedResponse{
		ID:                 borrowing.ID,
		BorrowDate:         borrowing.BorrowDate,
		ExpectedReturnDate: borrowing.ExpectedReturnDate,
		Book:               borrowing.BookID,
	})
}

func (h *LibraryHandler) getBorrowing(c *gin.Context) {
	borrowingID, ok := idParam(c, "invalid borrowing id")
	if !ok {
		return
	}

	borrowing, err := h.borrowing.GetBorrowing(c.Request.Context(), currentUser(c), borrowingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBorrowingDetail(borrowing, h.media))
}

func (h *LibraryHandler) returnBorrowing(c *gin.Context) {
	borrowingID, ok := idParam(c, "invalid borrowing id")
	if !ok {
		return
	}

	borrowing, err := h.borrowing.Return(c.Request.Context(), currentUser(c), borrowingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   "You have successfully returned the book.",
		"borrowing": newBorrowingDetail(borrowing, h.media),
	})
}
