package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"library-service/internal/auth"
	"library-service/internal/logger"
	"library-service/internal/models"
	"library-service/internal/policy"
	"library-service/internal/repositories"
)

const (
	requestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
	requesterKey = "requester"
	userKey      = "user"
)

// RequestID tags every request with an id, reusing a well-formed incoming one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// AccessLog logs HTTP requests with method, path, status and duration.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(requestIDKey),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request.Context(), "request", args...)
			return
		}
		logger.InfoContext(c.Request.Context(), "request", args...)
	}
}

// Authenticate resolves the optional bearer token. Requests without an Authorization
// header continue anonymously; a malformed or invalid token is rejected with 401.
// A valid token provisions or refreshes the user record from its claims.
func Authenticate(secret string, users repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Set(requesterKey, policy.Anonymous)
			c.Next()
			return
		}

		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			abortJSON(c, http.StatusUnauthorized, "missing or invalid authorization header")
			return
		}
		claims, err := auth.ValidateToken(secret, tokenStr)
		if err != nil {
			logger.WarnContext(c.Request.Context(), "rejected token", "error", err, "request_id", c.GetString(requestIDKey))
			abortJSON(c, http.StatusUnauthorized, "invalid token")
			return
		}
		userID, _ := claims.UserID()

		user := &models.User{ID: userID, Email: claims.Email, IsStaff: claims.IsStaff}
		if err := users.Upsert(nil, user); err != nil {
			logger.ErrorContext(c.Request.Context(), "failed to provision user", "user_id", userID, "error", err)
			abortJSON(c, http.StatusInternalServerError, "internal server error")
			return
		}

		c.Set(userKey, user)
		c.Set(requesterKey, policy.Requester{UserID: userID, Authenticated: true, IsStaff: claims.IsStaff})
		c.Next()
	}
}

// Authorize enforces the access policy for action on resource.
func Authorize(resource policy.Resource, action policy.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch policy.Decide(requesterFrom(c), action, resource) {
		case policy.Allow:
			c.Next()
		case policy.DenyUnauthenticated:
			abortJSON(c, http.StatusUnauthorized, "authentication credentials were not provided")
		case policy.DenyMethod:
			abortJSON(c, http.StatusMethodNotAllowed, fmt.Sprintf("method %q not allowed", c.Request.Method))
		default:
			abortJSON(c, http.StatusForbidden, policy.ErrPermissionDenied.Error())
		}
	}
}

func requesterFrom(c *gin.Context) policy.Requester {
	if v, ok := c.Get(requesterKey); ok {
		if r, ok := v.(policy.Requester); ok {
			return r
		}
	}
	return policy.Anonymous
}

// currentUser returns the authenticated user. Routes behind Authorize that require
// authentication always have one.
func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

func abortJSON(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
