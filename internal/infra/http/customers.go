package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/tienda-pos/internal/apperr"
	"github.com/Spok95/tienda-pos/internal/auth"
	"github.com/Spok95/tienda-pos/internal/domain/customers"
	"github.com/Spok95/tienda-pos/internal/domain/payments"
	"github.com/Spok95/tienda-pos/internal/engine"
)

func (h *handlers) createCustomer(c *gin.Context) {
	storeID, err := int64Param(c, "storeId")
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	if _, err := auth.RequireStore(c.Request.Context(), storeID); err != nil {
		respondError(c, h.Log, err)
		return
	}
	var in customers.NewCustomer
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.Log, err)
		return
	}
	if err := engine.Struct(in); err != nil {
		respondError(c, h.Log, err)
		return
	}

	cust, err := h.Customers.Create(c.Request.Context(), storeID, in)
	if err != nil {
		respondError(c, h.Log, apperr.Internal(err))
		return
	}
	c.JSON(http.StatusCreated, cust)
}

// getCustomer is limited to staff of the customer's own store.
func (h *handlers) getCustomer(c *gin.Context) {
	customerID, err := int64Param(c, "customerId")
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	id, err := auth.RequireStaff(c.Request.Context())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	sum, err := h.Customers.Summary(c.Request.Context(), customerID)
	if errors.Is(err, customers.ErrNotFound) {
		respondError(c, h.Log, apperr.NotFound("customer", customerID))
		return
	}
	if err != nil {
		respondError(c, h.Log, apperr.Internal(err))
		return
	}
	if sum.StoreID != id.StoreID {
		respondError(c, h.Log, apperr.Forbidden(""))
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *handlers) listPaymentMethods(c *gin.Context) {
	if _, err := auth.RequireStaff(c.Request.Context()); err != nil {
		respondError(c, h.Log, err)
		return
	}
	list, err := h.Payments.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, h.Log, apperr.Internal(err))
		return
	}
	if list == nil {
		list = []payments.Method{}
	}
	c.JSON(http.StatusOK, list)
}
