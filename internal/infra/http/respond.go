package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/tienda-pos/internal/apperr"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
	Timestamp string            `json:"timestamp"`
	Path      string            `json:"path"`
}

func respondError(c *gin.Context, log *slog.Logger, err error) {
	appErr := apperr.FromError(err)
	reqID := c.GetString(ctxKeyRequestID)

	level := slog.LevelWarn
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	attrs := []any{
		"code", appErr.Code,
		"status", appErr.HTTPStatus,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", reqID,
	}
	if appErr.Err != nil {
		attrs = append(attrs, "err", appErr.Err)
	}
	log.Log(c.Request.Context(), level, appErr.Message, attrs...)

	c.AbortWithStatusJSON(appErr.HTTPStatus, ErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: reqID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
	})
}

func notFoundRoute(path string) *apperr.AppError {
	return apperr.New(apperr.CodeNotFound, "route "+path+" not found", http.StatusNotFound)
}

func int64Param(c *gin.Context, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		return 0, apperr.ValidationFields("invalid path parameter", map[string]string{name: "positive integer"})
	}
	return v, nil
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperr.ValidationFields("invalid query parameter", map[string]string{name: "non-negative integer"})
	}
	return v, nil
}

// bindJSON decodes the request body. Field validation happens in the engine.
func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return apperr.Validation("malformed JSON body").Wrap(err)
	}
	return nil
}
