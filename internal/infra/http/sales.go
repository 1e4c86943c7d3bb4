package http

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/tienda-pos/internal/apperr"
	"github.com/Spok95/tienda-pos/internal/auth"
	"github.com/Spok95/tienda-pos/internal/domain/sales"
	"github.com/Spok95/tienda-pos/internal/engine"
	"github.com/Spok95/tienda-pos/internal/infra/export"
)

const dateLayout = "2006-01-02"

// parseBound accepts RFC 3339 or a bare date in loc. A bare "to" date includes that whole day.
func parseBound(raw string, loc *time.Location, upper bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return nil, err
	}
	if upper {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}

func (h *handlers) salesFilter(c *gin.Context, storeID int64) (sales.Filter, error) {
	f := sales.Filter{
		StoreID: storeID,
		Status:  sales.Status(c.Query("status")),
		Channel: sales.Channel(c.Query("channel")),
	}
	fields := map[string]string{}

	var err error
	if f.From, err = parseBound(c.Query("from"), h.Location, false); err != nil {
		fields["from"] = "RFC3339 or YYYY-MM-DD"
	}
	if f.To, err = parseBound(c.Query("to"), h.Location, true); err != nil {
		fields["to"] = "RFC3339 or YYYY-MM-DD"
	}
	if raw := c.Query("customer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			fields["customer_id"] = "positive integer"
		} else {
			f.CustomerID = &id
		}
	}
	if f.Limit, err = intQuery(c, "limit"); err != nil {
		fields["limit"] = "non-negative integer"
	}
	if len(fields) > 0 {
		return f, apperr.ValidationFields("invalid filter", fields)
	}
	return f, nil
}

func (h *handlers) listSales(c *gin.Context) {
	storeID, err := int64Param(c, "storeId")
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	if _, err := auth.RequireStore(c.Request.Context(), storeID); err != nil {
		respondError(c, h.Log, err)
		return
	}
	f, err := h.salesFilter(c, storeID)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	list, err := h.Sales.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handlers) exportSales(c *gin.Context) {
	storeID, err := int64Param(c, "storeId")
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	if _, err := auth.RequireStore(c.Request.Context(), storeID); err != nil {
		respondError(c, h.Log, err)
		return
	}
	f, err := h.salesFilter(c, storeID)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	list, err := h.Sales.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}

	buf := &bytes.Buffer{}
	if err := export.WriteSales(buf, list, h.Location); err != nil {
		respondError(c, h.Log, apperr.Internal(err))
		return
	}
	name := export.FileName(storeID, time.Now().In(h.Location))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *handlers) createSale(c *gin.Context) {
	storeID, err := int64Param(c, "storeId")
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	id, err := auth.RequireStore(c.Request.Context(), storeID)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	var in engine.CreateSaleInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.Log, err)
		return
	}

	sale, err := h.Sales.Create(c.Request.Context(), storeID, id.StaffID, in)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	h.Log.Info("sale created",
		"store_id", storeID, "sale_id", sale.ID, "folio", sale.Folio, "total", sale.Total.String())
	c.JSON(http.StatusCreated, sale)
}

func (h *handlers) getSale(c *gin.Context) {
	saleID, err := int64Param(c, "saleId")
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	if _, err := auth.RequireStaff(c.Request.Context()); err != nil {
		respondError(c, h.Log, err)
		return
	}
	sale, err := h.Sales.Get(c.Request.Context(), saleID)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (h *handlers) completeSale(c *gin.Context) {
	saleID, err := int64Param(c, "saleId")
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	if _, err := auth.RequireStaff(c.Request.Context()); err != nil {
		respondError(c, h.Log, err)
		return
	}
	sale, err := h.Sales.Complete(c.Request.Context(), saleID)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (h *handlers) cancelSale(c *gin.Context) {
	saleID, err := int64Param(c, "saleId")
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	id, err := auth.RequireStaff(c.Request.Context())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	sale, err := h.Sales.Cancel(c.Request.Context(), saleID, id.StaffID)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	h.Log.Info("sale cancelled", "store_id", sale.StoreID, "sale_id", sale.ID, "staff_id", id.StaffID)
	c.JSON(http.StatusOK, sale)
}
