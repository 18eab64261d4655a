package fill

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawFill() Raw {
	return Raw{
		"id":               "20240102093000000::a1",
		"activity_type":    "FILL",
		"symbol":           "AAPL",
		"side":             "buy",
		"qty":              "10",
		"price":            "181.25",
		"transaction_time": "2024-01-02T14:30:00.123Z",
		"order_id":         "ord-1",
	}
}

func TestFromRaw(t *testing.T) {
	t.Parallel()

	f, err := FromRaw(rawFill())
	require.NoError(t, err)

	assert.Equal(t, "AAPL", f.Symbol)
	assert.Equal(t, Buy, f.Side)
	assert.Equal(t, 10.0, f.Qty)
	assert.Equal(t, 181.25, f.Price)
	assert.Equal(t, "ord-1", f.ID)
	assert.Equal(t, "20240102093000000::a1", f.Ref)
	assert.True(t, f.Time.Equal(time.Date(2024, 1, 2, 14, 30, 0, 123_000_000, time.UTC)))
}

func TestFromRawNumericTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		qty  any
		want float64
	}{
		{"string", "2.5", 2.5},
		{"float64", 2.5, 2.5},
		{"int", 3, 3},
		{"json_number", json.Number("0.125"), 0.125},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rawFill()
			r["qty"] = tt.qty
			f, err := FromRaw(r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Qty)
		})
	}
}

func TestFromRawSellShort(t *testing.T) {
	t.Parallel()

	r := rawFill()
	r["side"] = "SELL_SHORT"
	f, err := FromRaw(r)
	require.NoError(t, err)
	assert.Equal(t, Sell, f.Side)
}

func TestFromRawRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(Raw)
		errMsg string
	}{
		{"missing symbol", func(r Raw) { delete(r, "symbol") }, "missing symbol"},
		{"blank symbol", func(r Raw) { r["symbol"] = "  " }, "missing symbol"},
		{"missing side", func(r Raw) { delete(r, "side") }, "missing side"},
		{"bad side", func(r Raw) { r["side"] = "hold" }, "unknown side"},
		{"missing qty", func(r Raw) { delete(r, "qty") }, "missing qty"},
		{"zero qty", func(r Raw) { r["qty"] = "0" }, "quantity must be positive"},
		{"negative qty", func(r Raw) { r["qty"] = -1.0 }, "quantity must be positive"},
		{"nan qty", func(r Raw) { r["qty"] = math.NaN() }, "quantity must be positive"},
		{"missing price", func(r Raw) { delete(r, "price") }, "missing price"},
		{"garbage price", func(r Raw) { r["price"] = "abc" }, "price"},
		{"zero price", func(r Raw) { r["price"] = "0" }, "price must be positive"},
		{"missing time", func(r Raw) { delete(r, "transaction_time") }, "missing transaction_time"},
		{"bad time", func(r Raw) { r["transaction_time"] = "yesterday" }, "transaction_time"},
		{"missing fill id", func(r Raw) { delete(r, "order_id"); delete(r, "id") }, "missing order_id"},
		{"not a fill", func(r Raw) { r["activity_type"] = "DIV" }, "not a fill"},
		{"wrong type", func(r Raw) { r["symbol"] = 42 }, "want string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rawFill()
			tt.mutate(r)
			_, err := FromRaw(r)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestFromRawAliases(t *testing.T) {
	t.Parallel()

	r := Raw{
		"symbol":    "BTCUSD",
		"side":      "sell",
		"quantity":  0.015,
		"price":     64000.0,
		"timestamp": "2024-03-01T00:00:00Z",
		"fill_id":   "f-9",
	}
	f, err := FromRaw(r)
	require.NoError(t, err)
	assert.Equal(t, 0.015, f.Qty)
	assert.Equal(t, "f-9", f.ID)
	assert.Equal(t, "f-9", f.Ref, "without an activity id the fill id is the ref")

	delete(r, "fill_id")
	r["id"] = "act-7"
	f, err = FromRaw(r)
	require.NoError(t, err)
	assert.Equal(t, "act-7", f.ID)
	assert.Equal(t, "act-7", f.Ref)
}

func TestNormalizeCountsEachBadRecordOnce(t *testing.T) {
	t.Parallel()

	bad := rawFill()
	delete(bad, "price")
	second := rawFill()
	second["order_id"] = "ord-2"

	fills, errs := Normalize([]Raw{rawFill(), bad, second, nil})
	require.Len(t, fills, 2)
	require.Len(t, errs, 2)

	assert.Equal(t, "ord-1", fills[0].ID)
	assert.Equal(t, "ord-2", fills[1].ID)

	var me *MalformedError
	require.ErrorAs(t, errs[0], &me)
	assert.Equal(t, 1, me.Index)
	assert.Equal(t, "20240102093000000::a1", me.Ref)
	assert.Contains(t, errs[0].Error(), "missing price")

	require.ErrorAs(t, errs[1], &me)
	assert.Equal(t, 3, me.Index)
}

func TestNormalizeEmpty(t *testing.T) {
	t.Parallel()

	fills, errs := Normalize(nil)
	assert.Empty(t, fills)
	assert.Empty(t, errs)
}
