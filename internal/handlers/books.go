package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"library-service/internal/models"
	"library-service/internal/services"
)

type createBookRequest struct {
	Title     string           `json:"title" binding:"required,max=255"`
	Author    string           `json:"author" binding:"required,max=255"`
	Cover     string           `json:"cover" binding:"omitempty,cover_type"`
	Inventory *int             `json:"inventory" binding:"required,min=0"`
	DailyFee  *decimal.Decimal `json:"daily_fee" binding:"required"`
}

// patchBookRequest is the partial form; PUT reuses createBookRequest.
type patchBookRequest struct {
	Title     *string          `json:"title" binding:"omitempty,max=255"`
	Author    *string          `json:"author" binding:"omitempty,max=255"`
	Cover     *string          `json:"cover" binding:"omitempty,cover_type"`
	Inventory *int             `json:"inventory" binding:"omitempty,min=0"`
	DailyFee  *decimal.Decimal `json:"daily_fee"`
}

func (h *LibraryHandler) listBooks(c *gin.Context) {
	page, ok := pageParam(c)
	if !ok {
		return
	}

	result, err := h.catalog.ListBooks(c.Request.Context(), page)
	if err != nil {
		respondError(c, err)
		return
	}

	books := make([]bookResponse, 0, len(result.Items))
	for i := range result.Items {
		books = append(books, newBookResponse(&result.Items[i], h.media))
	}
	c.JSON(http.StatusOK, pageResponse{Count: result.Total, Page: result.Page, Results: books})
}

func (h *LibraryHandler) createBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	book, err := h.catalog.CreateBook(c.Request.Context(), services.BookInput{
		Title:     req.Title,
		Author:    req.Author,
		Cover:     models.CoverType(req.Cover),
		Inventory: *req.Inventory,
		DailyFee:  *req.DailyFee,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newBookResponse(book, h.media))
}

func (h *LibraryHandler) getBook(c *gin.Context) {
	bookID, ok := idParam(c, "invalid book id")
	if !ok {
		return
	}

	book, err := h.catalog.GetBook(c.Request.Context(), bookID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookResponse(book, h.media))
}

func (h *LibraryHandler) replaceBook(c *gin.Context) {
	bookID, ok := idParam(c, "invalid book id")
	if !ok {
		return
	}

	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}
	cover := models.CoverTypeHard
	if req.Cover != "" {
		cover = models.CoverType(req.Cover)
	}

	h.updateBook(c, bookID, services.BookUpdate{
		Title:     &req.Title,
		Author:    &req.Author,
		Cover:     &cover,
		Inventory: req.Inventory,
		DailyFee:  req.DailyFee,
	})
}

func (h *LibraryHandler) patchBook(c *gin.Context) {
	bookID, ok := idParam(c, "invalid book id")
	if !ok {
		return
	}

	var req patchBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}
	upd := services.BookUpdate{
		Title:     req.Title,
		Author:    req.Author,
		Inventory: req.Inventory,
		DailyFee:  req.DailyFee,
	}
	if req.Cover != nil {
		cover := models.CoverType(*req.Cover)
		upd.Cover = &cover
	}

	h.updateBook(c, bookID, upd)
}

func (h *LibraryHandler) updateBook(c *gin.Context, bookID uuid.UUID, upd services.BookUpdate) {
	book, err := h.catalog.UpdateBook(c.Request.Context(), bookID, upd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookResponse(book, h.media))
}

func (h *LibraryHandler) deleteBook(c *gin.Context) {
	bookID, ok := idParam(c, "invalid book id")
	if !ok {
		return
	}

	if err := h.catalog.DeleteBook(c.Request.Context(), bookID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LibraryHandler) uploadBookImage(c *gin.Context) {
	bookID, ok := idParam(c, "invalid book id")
	if !ok {
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		respondError(c, services.ErrBadImagePayload)
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, services.ErrBadImagePayload)
		return
	}
	defer f.Close()

	book, err := h.catalog.SetCoverImage(c.Request.Context(), bookID, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": book.ID, "image": newBookResponse(book, h.media).Image})
}

// ─── Parameters ───────────────────────────────────────────────────────────────

func idParam(c *gin.Context, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": message})
		return uuid.Nil, false
	}
	return id, true
}

func pageParam(c *gin.Context) (int, bool) {
	raw := c.Query("page")
	if raw == "" {
		return 1, true
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return 0, false
	}
	return page, true
}
