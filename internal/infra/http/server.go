package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Spok95/tienda-pos/internal/domain/customers"
	"github.com/Spok95/tienda-pos/internal/domain/inventory"
	"github.com/Spok95/tienda-pos/internal/domain/payments"
	"github.com/Spok95/tienda-pos/internal/domain/sales"
	"github.com/Spok95/tienda-pos/internal/domain/staff"
	domainstats "github.com/Spok95/tienda-pos/internal/domain/stats"
	"github.com/Spok95/tienda-pos/internal/engine"
	"github.com/Spok95/tienda-pos/internal/events"
	"github.com/Spok95/tienda-pos/internal/infra/metrics"
)

type SaleService interface {
	Create(ctx context.Context, storeID, requestedBy int64, in engine.CreateSaleInput) (*sales.Sale, error)
	Complete(ctx context.Context, saleID int64) (*sales.Sale, error)
	Cancel(ctx context.Context, saleID, requestedBy int64) (*sales.Sale, error)
	Get(ctx context.Context, saleID int64) (*sales.Sale, error)
	List(ctx context.Context, f sales.Filter) ([]sales.Sale, error)
	Adjust(ctx context.Context, storeID, productID, requestedBy int64, in engine.AdjustInput) (*inventory.Movement, error)
	History(ctx context.Context, productID int64, limit int) ([]inventory.Movement, error)
}

type StatisticsService interface {
	Compute(ctx context.Context, storeID int64) (domainstats.Snapshot, error)
	TopProducts(ctx context.Context, storeID int64, limit int) ([]domainstats.TopProduct, error)
}

type CustomerStore interface {
	Create(ctx context.Context, storeID int64, in customers.NewCustomer) (*customers.Customer, error)
	Summary(ctx context.Context, id int64) (*customers.Summary, error)
}

type PaymentMethodLister interface {
	ListActive(ctx context.Context) ([]payments.Method, error)
}

type StaffReader interface {
	GetByID(ctx context.Context, id int64) (*staff.Member, error)
}

type Deps struct {
	Sales     SaleService
	Stats     StatisticsService
	Hub       *events.Hub
	Customers CustomerStore
	Payments  PaymentMethodLister
	Staff     StaffReader
	Metrics   *metrics.Metrics
	Log       *slog.Logger

	JWTSecret   []byte
	VerifyStaff bool
	CORSOrigins []string
	Location    *time.Location
	// Heartbeat is the SSE keep-alive interval.
	Heartbeat time.Duration
}

type handlers struct {
	Deps
}

func NewRouter(d Deps) *gin.Engine {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Heartbeat <= 0 {
		d.Heartbeat = 25 * time.Second
	}

	r := gin.New()
	r.Use(RequestID(), Recovery(d.Log), Logger(d.Log))
	if d.Metrics != nil {
		r.Use(Metrics(d.Metrics))
	}
	if len(d.CORSOrigins) > 0 {
		cfg := cors.DefaultConfig()
		if len(d.CORSOrigins) == 1 && d.CORSOrigins[0] == "*" {
			cfg.AllowAllOrigins = true
		} else {
			cfg.AllowOrigins = d.CORSOrigins
		}
		cfg.AddAllowHeaders("Authorization", HeaderRequestID)
		cfg.AddExposeHeaders(HeaderRequestID)
		r.Use(cors.New(cfg))
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	r.NoRoute(func(c *gin.Context) {
		respondError(c, d.Log, notFoundRoute(c.Request.URL.Path))
	})

	h := &handlers{Deps: d}
	api := r.Group("/api/v1", Auth(d.JWTSecret, d.Staff, d.VerifyStaff, d.Log))

	api.GET("/payment-methods", h.listPaymentMethods)

	api.GET("/stores/:storeId/sales", h.listSales)
	api.POST("/stores/:storeId/sales", h.createSale)
	api.GET("/stores/:storeId/sales/export.xlsx", h.exportSales)
	api.GET("/sales/:saleId", h.getSale)
	api.POST("/sales/:saleId/complete", h.completeSale)
	api.POST("/sales/:saleId/cancel", h.cancelSale)

	api.GET("/stores/:storeId/statistics", h.statistics)
	api.GET("/stores/:storeId/statistics/top-products", h.topProducts)
	api.GET("/stores/:storeId/events", h.stream)

	api.GET("/products/:productId/movements", h.movements)
	api.POST("/stores/:storeId/products/:productId/adjustments", h.adjustStock)

	api.POST("/stores/:storeId/customers", h.createCustomer)
	api.GET("/customers/:customerId", h.getCustomer)

	return r
}

type Server struct {
	srv *http.Server
}

func New(addr string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
