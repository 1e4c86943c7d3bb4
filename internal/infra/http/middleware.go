package http

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Spok95/tienda-pos/internal/apperr"
	"github.com/Spok95/tienda-pos/internal/auth"
	"github.com/Spok95/tienda-pos/internal/domain/staff"
	"github.com/Spok95/tienda-pos/internal/infra/metrics"
)

const (
	HeaderRequestID = "X-Request-ID"
	ctxKeyRequestID = "request_id"
)

// RequestID reuses the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func Logger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		log.Info("http request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString(ctxKeyRequestID),
			"client_ip", c.ClientIP(),
		)
	}
}

func Recovery(log *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		log.Error("panic recovered", "panic", rec, "path", c.Request.URL.Path)
		respondError(c, log, apperr.Internal(errors.New("panic")))
	})
}

func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// Auth resolves the bearer token into an auth.Identity on the request context.
// With verify set, staff tokens must still belong to an active staff member of the same store.
func Auth(secret []byte, members StaffReader, verify bool, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			respondError(c, log, apperr.Unauthenticated(""))
			return
		}

		id, err := auth.Parse(secret, strings.TrimSpace(raw))
		if err != nil {
			respondError(c, log, err)
			return
		}

		if verify && id.IsStaff() && members != nil {
			m, err := members.GetByID(c.Request.Context(), id.StaffID)
			switch {
			case errors.Is(err, staff.ErrNotFound):
				respondError(c, log, apperr.Unauthenticated("staff member no longer exists"))
				return
			case err != nil:
				respondError(c, log, apperr.Internal(err))
				return
			case !m.Active || m.StoreID != id.StoreID:
				respondError(c, log, apperr.Unauthenticated("staff member is not active in this store"))
				return
			}
		}

		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}
