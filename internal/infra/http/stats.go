package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/tienda-pos/internal/auth"
)

func (h *handlers) statistics(c *gin.Context) {
	storeID, err := int64Param(c, "storeId")
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	if _, err := auth.RequireStore(c.Request.Context(), storeID); err != nil {
		respondError(c, h.Log, err)
		return
	}
	snap, err := h.Stats.Compute(c.Request.Context(), storeID)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *handlers) topProducts(c *gin.Context) {
	storeID, err := int64Param(c, "storeId")
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	if _, err := auth.RequireStore(c.Request.Context(), storeID); err != nil {
		respondError(c, h.Log, err)
		return
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	top, err := h.Stats.TopProducts(c.Request.Context(), storeID, limit)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, top)
}
