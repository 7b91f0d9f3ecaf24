package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"library-service/internal/policy"
	"library-service/internal/repositories"
	"library-service/internal/services"
	"library-service/internal/storage"
)

// Deps are the collaborators of the HTTP layer.
type Deps struct {
	Catalog   services.CatalogService
	Borrowing services.BorrowingService
	Users     repositories.UserRepository
	Media     *storage.Media
	JWTSecret string
	// Ping reports database health; nil skips the check.
	Ping func(ctx context.Context) error
}

type LibraryHandler struct {
	catalog   services.CatalogService
	borrowing services.BorrowingService
	media     *storage.Media
	ping      func(ctx context.Context) error
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	registerValidations()

	h := &LibraryHandler{
		catalog:   d.Catalog,
		borrowing: d.Borrowing,
		media:     d.Media,
		ping:      d.Ping,
	}

	r.Use(RequestID(), AccessLog(), Authenticate(d.JWTSecret, d.Users))

	r.GET("/health", h.health)

	// Catalog: reads are public, mutations are staff only
	books := r.Group("/books")
	books.GET("", Authorize(policy.Books, policy.ActionList), h.listBooks)
	books.POST("", Authorize(policy.Books, policy.ActionCreate), h.createBook)
	books.GET("/:id", Authorize(policy.Books, policy.ActionRetrieve), h.getBook)
	books.PUT("/:id", Authorize(policy.Books, policy.ActionUpdate), h.replaceBook)
	books.PATCH("/:id", Authorize(policy.Books, policy.ActionUpdate), h.patchBook)
	books.DELETE("/:id", Authorize(policy.Books, policy.ActionDelete), h.deleteBook)
	books.POST("/:id/image", Authorize(policy.Books, policy.ActionUploadImage), h.uploadBookImage)

	// Borrowings: authenticated users, scoped to their own records unless staff
	borrowings := r.Group("/borrowings")
	borrowings.GET("", Authorize(policy.Borrowings, policy.ActionList), h.listBorrowings)
	borrowings.POST("", Authorize(policy.Borrowings, policy.ActionCreate), h.createBorrowing)
	borrowings.GET("/:id", Authorize(policy.Borrowings, policy.ActionRetrieve), h.getBorrowing)
	borrowings.PATCH("/:id/return", Authorize(policy.Borrowings, policy.ActionReturn), h.returnBorrowing)
	borrowings.PUT("/:id", Authorize(policy.Borrowings, policy.ActionUpdate))
	borrowings.PATCH("/:id", Authorize(policy.Borrowings, policy.ActionUpdate))
	borrowings.DELETE("/:id", Authorize(policy.Borrowings, policy.ActionDelete))

	if d.Media != nil {
		r.Static(d.Media.URLPrefix(), d.Media.Root())
	}
}

func (h *LibraryHandler) health(c *gin.Context) {
	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
