package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/tienda-pos/internal/domain/sales"
)

func TestWriteSales(t *testing.T) {
	at := time.Date(2026, 5, 4, 18, 30, 0, 0, time.UTC)
	list := []sales.Sale{
		{
			Folio:             "V-1-1",
			CreatedAt:         at,
			Status:            sales.StatusCompleted,
			Channel:           sales.ChannelInStore,
			CustomerName:      "Luis",
			PaymentMethodName: "Efectivo",
			StaffName:         "Ana",
			Subtotal:          decimal.RequireFromString("25"),
			Discount:          decimal.Zero,
			Tax:               decimal.RequireFromString("4"),
			Tip:               decimal.Zero,
			Total:             decimal.RequireFromString("29.5"),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSales(&buf, list, time.UTC))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Sales")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "folio", rows[0][0])
	assert.Equal(t, "total", rows[0][11])
	assert.Equal(t, "V-1-1", rows[1][0])
	assert.Equal(t, "2026-05-04 18:30:00", rows[1][1])
	assert.Equal(t, "completed", rows[1][2])
	assert.Equal(t, "Luis", rows[1][4])
	assert.Equal(t, "29.5", rows[1][11])
}

func TestWriteSalesEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSales(&buf, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	rows, err := f.GetRows("Sales")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "sales_3_20260504_183000.xlsx", FileName(3, time.Date(2026, 5, 4, 18, 30, 0, 0, time.UTC)))
}
