package http

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/tienda-pos/internal/apperr"
	"github.com/Spok95/tienda-pos/internal/auth"
	"github.com/Spok95/tienda-pos/internal/events"
)

func parseTypes(raw string) ([]events.Type, error) {
	if raw == "" {
		return nil, nil
	}
	var out []events.Type
	for _, part := range strings.Split(raw, ",") {
		t := events.Type(strings.TrimSpace(part))
		if !t.Valid() {
			return nil, apperr.ValidationFields("invalid event type", map[string]string{"types": string(t)})
		}
		out = append(out, t)
	}
	return out, nil
}

// stream serves the store's live events as Server-Sent Events until the client goes away.
func (h *handlers) stream(c *gin.Context) {
	storeID, err := int64Param(c, "storeId")
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	if _, err := auth.RequireStore(c.Request.Context(), storeID); err != nil {
		respondError(c, h.Log, err)
		return
	}
	types, err := parseTypes(c.Query("types"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}

	sub := h.Hub.Subscribe(storeID, types...)
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.Heartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.SSEvent(string(e.Type), e)
			return true
		case <-heartbeat.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			return true
		}
	})
}
