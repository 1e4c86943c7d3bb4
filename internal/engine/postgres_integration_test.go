//go:build integration

package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Spok95/tienda-pos/internal/apperr"
	"github.com/Spok95/tienda-pos/internal/domain/customers"
	"github.com/Spok95/tienda-pos/internal/domain/inventory"
	"github.com/Spok95/tienda-pos/internal/domain/payments"
	"github.com/Spok95/tienda-pos/internal/domain/products"
	"github.com/Spok95/tienda-pos/internal/domain/sales"
	domainstats "github.com/Spok95/tienda-pos/internal/domain/stats"
	"github.com/Spok95/tienda-pos/internal/domain/stores"
	"github.com/Spok95/tienda-pos/internal/events"
	"github.com/Spok95/tienda-pos/internal/infra/db"
	"github.com/Spok95/tienda-pos/internal/infra/logger"
	"github.com/Spok95/tienda-pos/internal/stats"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "pos",
				"POSTGRES_PASSWORD": "pos",
				"POSTGRES_DB":       "pos",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://pos:pos@%s:%s/pos?sslmode=disable", host, port.Port())
}

type pgFixture struct {
	pool    *pgxpool.Pool
	eng     *Engine
	storeID int64
	staffID int64
	cashID  int64
}

func newPgFixture(t *testing.T, policy Policy) *pgFixture {
	t.Helper()
	dsn := startPostgres(t)
	require.NoError(t, db.Migrate(dsn))

	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn, 16)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	f := &pgFixture{pool: pool}
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO stores (account_id, name) VALUES (1, 'Centro') RETURNING id`).Scan(&f.storeID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO staff (store_id, name, email) VALUES ($1, 'Ana', 'ana@example.com') RETURNING id`,
		f.storeID).Scan(&f.staffID))
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT id FROM payment_methods WHERE code = 'cash'`).Scan(&f.cashID))

	f.eng = New(Deps{
		Sales:     sales.NewRepo(pool),
		Stores:    stores.NewRepo(pool),
		Products:  products.NewRepo(pool),
		Customers: customers.NewRepo(pool),
		Payments:  payments.NewRepo(pool),
		Movements: inventory.NewRepo(pool),
		Stats:     stats.New(domainstats.NewRepo(pool), time.UTC),
		Publisher: events.NewHub(logger.Discard(), events.Options{}),
		Log:       logger.Discard(),
	}, policy)
	return f
}

func (f *pgFixture) product(t *testing.T, stock, min int) int64 {
	t.Helper()
	var id int64
	require.NoError(t, f.pool.QueryRow(context.Background(),
		`INSERT INTO products (store_id, name, sku, price, stock, stock_min) VALUES ($1, 'Café', 'CAF', 10, $2, $3) RETURNING id`,
		f.storeID, stock, min).Scan(&id))
	return id
}

func (f *pgFixture) stock(t *testing.T, id int64) int {
	t.Helper()
	var s int
	require.NoError(t, f.pool.QueryRow(context.Background(), `SELECT stock FROM products WHERE id = $1`, id).Scan(&s))
	return s
}

func pgSale(paymentID, productID int64, qty int) CreateSaleInput {
	return CreateSaleInput{
		PaymentMethodID: paymentID,
		Lines:           []LineInput{{ProductID: productID, Quantity: qty, UnitPrice: decimal.NewFromInt(10)}},
	}
}

func TestPostgresCreateCompleteCancel(t *testing.T) {
	f := newPgFixture(t, Policy{})
	ctx := context.Background()
	pid := f.product(t, 10, 2)

	s, err := f.eng.Create(ctx, f.storeID, f.staffID, pgSale(f.cashID, pid, 3))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("V-%d-1", f.storeID), s.Folio)
	assert.True(t, s.Total.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, "Ana", s.StaffName)
	require.Len(t, s.Lines, 1)
	assert.Equal(t, 7, f.stock(t, pid))

	done, err := f.eng.Complete(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, sales.StatusCompleted, done.Status)

	cancelled, err := f.eng.Cancel(ctx, s.ID, f.staffID)
	require.NoError(t, err)
	assert.Equal(t, sales.StatusCancelled, cancelled.Status)
	assert.Equal(t, 10, f.stock(t, pid))

	hist, err := f.eng.History(ctx, pid, 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, inventory.KindEntry, hist[0].Kind)
	assert.Equal(t, inventory.KindSale, hist[1].Kind)
	assert.Equal(t, 7, hist[0].StockBefore)
	assert.Equal(t, 10, hist[0].StockAfter)
}

func TestPostgresInsufficientStockRollsBack(t *testing.T) {
	f := newPgFixture(t, Policy{})
	ctx := context.Background()
	pid := f.product(t, 2, 0)

	_, err := f.eng.Create(ctx, f.storeID, f.staffID, pgSale(f.cashID, pid, 3))
	assert.Equal(t, apperr.CodeInsufficientStock, apperr.CodeOf(err))
	assert.Equal(t, 2, f.stock(t, pid))

	var n int
	require.NoError(t, f.pool.QueryRow(ctx, `SELECT count(*) FROM sales`).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, f.pool.QueryRow(ctx, `SELECT count(*) FROM inventory_movements`).Scan(&n))
	assert.Zero(t, n)
}

func TestPostgresConcurrentCreatesNeverOversell(t *testing.T) {
	f := newPgFixture(t, Policy{StrictFolio: true})
	ctx := context.Background()
	pid := f.product(t, 5, 0)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
		folios   = map[string]struct{}{}
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := f.eng.Create(ctx, f.storeID, f.staffID, pgSale(f.cashID, pid, 1))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.Equal(t, apperr.CodeInsufficientStock, apperr.CodeOf(err))
				fail++
				return
			}
			ok++
			folios[s.Folio] = struct{}{}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, 3, fail)
	assert.Len(t, folios, 5)
	assert.Equal(t, 0, f.stock(t, pid))
}

func TestPostgresStatistics(t *testing.T) {
	f := newPgFixture(t, Policy{})
	ctx := context.Background()
	pid := f.product(t, 10, 8)

	s, err := f.eng.Create(ctx, f.storeID, f.staffID, pgSale(f.cashID, pid, 4))
	require.NoError(t, err)
	_, err = f.eng.Complete(ctx, s.ID)
	require.NoError(t, err)

	snap, err := f.eng.Stats.Compute(ctx, f.storeID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.TodayCount)
	assert.True(t, snap.TodayRevenue.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, int64(1), snap.LowStockProducts)
}

func TestPostgresOpposingCartsDoNotDeadlock(t *testing.T) {
	f := newPgFixture(t, Policy{})
	ctx := context.Background()
	a := f.product(t, 100, 0)
	b := f.product(t, 100, 0)

	const rounds = 20
	errs := make(chan error, 2*rounds)
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		for _, cart := range [][2]int64{{a, b}, {b, a}} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.eng.Create(ctx, f.storeID, f.staffID, CreateSaleInput{
					PaymentMethodID: f.cashID,
					Lines: []LineInput{
						{ProductID: cart[0], Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
						{ProductID: cart[1], Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
					},
				})
				errs <- err
			}()
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 100-2*rounds, f.stock(t, a))
	assert.Equal(t, 100-2*rounds, f.stock(t, b))
}

func TestPostgresCancelRacingCreateDoesNotDeadlock(t *testing.T) {
	f := newPgFixture(t, Policy{})
	ctx := context.Background()
	a := f.product(t, 100, 0)
	b := f.product(t, 100, 0)

	var toCancel []int64
	for i := 0; i < 10; i++ {
		s, err := f.eng.Create(ctx, f.storeID, f.staffID, CreateSaleInput{
			PaymentMethodID: f.cashID,
			Lines: []LineInput{
				{ProductID: b, Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
				{ProductID: a, Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
			},
		})
		require.NoError(t, err)
		toCancel = append(toCancel, s.ID)
	}

	errs := make(chan error, 20)
	var wg sync.WaitGroup
	for _, id := range toCancel {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.eng.Cancel(ctx, id, f.staffID)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := f.eng.Create(ctx, f.storeID, f.staffID, CreateSaleInput{
				PaymentMethodID: f.cashID,
				Lines: []LineInput{
					{ProductID: a, Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
					{ProductID: b, Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
				},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 90, f.stock(t, a))
	assert.Equal(t, 90, f.stock(t, b))
}

// countGate holds every transaction right after it counted the store's sales
// until all of them have counted.
type countGate struct {
	*sales.Repo
	gate *sync.WaitGroup
}

func (g countGate) InTx(ctx context.Context, fn func(ctx context.Context, tx sales.Tx) error) error {
	return g.Repo.InTx(ctx, func(ctx context.Context, tx sales.Tx) error {
		return fn(ctx, gatedTx{Tx: tx, gate: g.gate})
	})
}

type gatedTx struct {
	sales.Tx
	gate *sync.WaitGroup
}

func (t gatedTx) CountSales(ctx context.Context, storeID int64) (int64, error) {
	n, err := t.Tx.CountSales(ctx, storeID)
	t.gate.Done()
	t.gate.Wait()
	return n, err
}

// With the default folio policy two creates that count before either commits
// share a folio; strict_folio is the setting that rules this out.
func TestPostgresLiteralFolioCanRepeatUnderConcurrency(t *testing.T) {
	f := newPgFixture(t, Policy{StrictFolio: false})
	ctx := context.Background()
	a := f.product(t, 10, 0)
	b := f.product(t, 10, 0)

	gate := &sync.WaitGroup{}
	gate.Add(2)
	f.eng.Sales = countGate{Repo: sales.NewRepo(f.pool), gate: gate}

	folios := make(chan string, 2)
	var wg sync.WaitGroup
	for _, pid := range []int64{a, b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := f.eng.Create(ctx, f.storeID, f.staffID, pgSale(f.cashID, pid, 1))
			if assert.NoError(t, err) {
				folios <- s.Folio
			}
		}()
	}
	wg.Wait()
	close(folios)

	want := fmt.Sprintf("V-%d-1", f.storeID)
	for folio := range folios {
		assert.Equal(t, want, folio)
	}

	var n int
	require.NoError(t, f.pool.QueryRow(ctx, `SELECT count(DISTINCT folio) FROM sales`).Scan(&n))
	assert.Equal(t, 1, n)
}
