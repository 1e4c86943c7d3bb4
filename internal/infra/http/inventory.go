package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/tienda-pos/internal/auth"
	"github.com/Spok95/tienda-pos/internal/engine"
)

func (h *handlers) movements(c *gin.Context) {
	productID, err := int64Param(c, "productId")
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	if _, err := auth.RequireStaff(c.Request.Context()); err != nil {
		respondError(c, h.Log, err)
		return
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	list, err := h.Sales.History(c.Request.Context(), productID, limit)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handlers) adjustStock(c *gin.Context) {
	storeID, err := int64Param(c, "storeId")
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	productID, err := int64Param(c, "productId")
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	id, err := auth.RequireStore(c.Request.Context(), storeID)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	var in engine.AdjustInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.Log, err)
		return
	}

	mv, err := h.Sales.Adjust(c.Request.Context(), storeID, productID, id.StaffID, in)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	h.Log.Info("stock adjusted",
		"store_id", storeID, "product_id", productID, "kind", mv.Kind, "delta", mv.Delta, "staff_id", id.StaffID)
	c.JSON(http.StatusCreated, mv)
}
