package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/Spok95/tienda-pos/internal/auth"
	"github.com/Spok95/tienda-pos/internal/config"
	"github.com/Spok95/tienda-pos/internal/domain/customers"
	"github.com/Spok95/tienda-pos/internal/domain/inventory"
	"github.com/Spok95/tienda-pos/internal/domain/payments"
	"github.com/Spok95/tienda-pos/internal/domain/products"
	"github.com/Spok95/tienda-pos/internal/domain/sales"
	"github.com/Spok95/tienda-pos/internal/domain/staff"
	domainstats "github.com/Spok95/tienda-pos/internal/domain/stats"
	"github.com/Spok95/tienda-pos/internal/domain/stores"
	"github.com/Spok95/tienda-pos/internal/engine"
	"github.com/Spok95/tienda-pos/internal/events"
	"github.com/Spok95/tienda-pos/internal/infra/db"
	httpx "github.com/Spok95/tienda-pos/internal/infra/http"
	"github.com/Spok95/tienda-pos/internal/infra/kafka"
	"github.com/Spok95/tienda-pos/internal/infra/logger"
	"github.com/Spok95/tienda-pos/internal/infra/memstore"
	"github.com/Spok95/tienda-pos/internal/infra/metrics"
	"github.com/Spok95/tienda-pos/internal/infra/telegram"
	"github.com/Spok95/tienda-pos/internal/stats"
)

// storage is everything the engine and the HTTP layer read and write.
type storage struct {
	sales     engine.SaleStore
	stores    engine.StoreReader
	products  engine.ProductReader
	customers interface {
		engine.CustomerReader
		httpx.CustomerStore
	}
	payments interface {
		engine.PaymentMethodReader
		httpx.PaymentMethodLister
	}
	movements engine.MovementReader
	staff     httpx.StaffReader
	stats     stats.Source
	close     func()
}

func openStorage(ctx context.Context, cfg config.Config, log *slog.Logger) (*storage, error) {
	if cfg.Storage.Driver == config.DriverMemory {
		mem := memstore.New()
		demo := memstore.SeedDemo(mem)
		tok, err := auth.Sign([]byte(cfg.Auth.JWTSecret), auth.Identity{
			Kind: auth.KindStaff, StaffID: demo.Cashier.ID, StoreID: demo.Store.ID,
		}, 24*time.Hour)
		if err != nil {
			return nil, err
		}
		log.Info("memory storage seeded", "store_id", demo.Store.ID, "staff_id", demo.Cashier.ID, "token", tok)
		return &storage{
			sales: mem.Sales(), stores: mem.Stores(), products: mem.Products(),
			customers: mem.Customers(), payments: mem.Payments(), movements: mem.Movements(),
			staff: mem.Staff(), stats: mem.Stats(), close: func() {},
		}, nil
	}

	if cfg.Postgres.Migrate {
		if err := db.Migrate(cfg.Postgres.DSN); err != nil {
			return nil, err
		}
		log.Info("migrations applied")
	}
	pool, err := db.Connect(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		return nil, err
	}
	log.Info("db connected")
	return &storage{
		sales:     sales.NewRepo(pool),
		stores:    stores.NewRepo(pool),
		products:  products.NewRepo(pool),
		customers: customers.NewRepo(pool),
		payments:  payments.NewRepo(pool),
		movements: inventory.NewRepo(pool),
		staff:     staff.NewRepo(pool),
		stats:     domainstats.NewRepo(pool),
		close:     pool.Close,
	}, nil
}

func addSinks(hub *events.Hub, cfg config.Config, log *slog.Logger) (func(), error) {
	closers := []func(){}
	if cfg.Kafka.Enabled {
		sink := kafka.NewSink(kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		hub.AddSink(sink)
		closers = append(closers, func() { _ = sink.Close() })
		log.Info("kafka sink enabled", "topic", cfg.Kafka.Topic)
	}
	if cfg.Telegram.Token != "" {
		api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return nil, err
		}
		hub.AddSink(telegram.NewNotifier(api, cfg.Telegram.AdminChatID))
		log.Info("telegram alerts enabled", "bot", api.Self.UserName)
	}
	return func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	var m *metrics.Metrics
	hubOpts := events.Options{
		SubscriberBuffer: cfg.Events.SubscriberBuffer,
		SinkQueue:        cfg.Events.SinkQueue,
		SinkTimeout:      cfg.Events.SinkTimeout,
	}
	var rec engine.Recorder
	if cfg.Metrics.Enabled {
		m = metrics.New()
		hubOpts.Recorder = m
		rec = m
	}

	hub := events.NewHub(log, hubOpts)
	closeSinks, err := addSinks(hub, cfg, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	agg := stats.New(st.stats, cfg.Location())
	eng := engine.New(engine.Deps{
		Sales:     st.sales,
		Stores:    st.stores,
		Products:  st.products,
		Customers: st.customers,
		Payments:  st.payments,
		Movements: st.movements,
		Stats:     agg,
		Publisher: hub,
		Recorder:  rec,
		Log:       log,
	}, engine.Policy{
		FolioPrefix:           cfg.Sales.FolioPrefix,
		StrictFolio:           cfg.Sales.StrictFolio,
		ForbidCancelCompleted: cfg.Sales.ForbidCancelCompleted,
	})

	router := httpx.NewRouter(httpx.Deps{
		Sales:       eng,
		Stats:       agg,
		Hub:         hub,
		Customers:   st.customers,
		Payments:    st.payments,
		Staff:       st.staff,
		Metrics:     m,
		Log:         log,
		JWTSecret:   []byte(cfg.Auth.JWTSecret),
		VerifyStaff: cfg.Auth.VerifyStaff,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Location:    cfg.Location(),
	})
	srv := httpx.New(cfg.HTTP.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error {
		log.Info("HTTP server started", "addr", cfg.HTTP.Addr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("graceful shutdown complete")
	return err
}

func main() {
	path := flag.String("config", "config/example.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.App.Env, cfg.App.Name)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}
