package pnl

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/pnl/fill"
)

func book3() []fill.Fill {
	return []fill.Fill{
		buy("AAPL", 10, 100, 1, "a1"),
		sell("TSLA", 10, 50, 1, "t1"),
		buy("AAPL", 5, 110, 2, "a2"),
		buy("TSLA", 4, 40, 2, "t2"),
		sell("AAPL", 12, 120, 3, "a3"),
		buy("TSLA", 6, 45, 3, "t3"),
		buy("NVDA", 2, 900, 4, "n1"),
		sell("NVDA", 1, 880, 5, "n2"),
	}
}

func TestReconcileGroupsAndMergesInSymbolOrder(t *testing.T) {
	t.Parallel()

	res := Reconcile(book3())
	require.Empty(t, res.Errors)
	require.Len(t, res.Trades, 5)

	var syms []string
	for _, tr := range res.Trades {
		syms = append(syms, tr.Symbol)
	}
	assert.Equal(t, []string{"AAPL", "AAPL", "NVDA", "TSLA", "TSLA"}, syms)

	require.Len(t, res.OpenLots, 2)
	assert.Equal(t, "AAPL", res.OpenLots[0].Symbol)
	assert.Equal(t, "NVDA", res.OpenLots[1].Symbol)
}

func TestReconcileSortsOutOfOrderFills(t *testing.T) {
	t.Parallel()

	res := Reconcile([]fill.Fill{
		sell("AAPL", 10, 120, 3, "s1"),
		buy("AAPL", 10, 100, 1, "b1"),
	})
	require.Len(t, res.Trades, 1)
	assert.Equal(t, Long, res.Trades[0].Type)
	assert.InDelta(t, 200.0, res.Trades[0].PnL, 1e-9)
}

func TestReconcileEqualTimestampsKeepFeedOrder(t *testing.T) {
	t.Parallel()

	res := Reconcile([]fill.Fill{
		buy("AAPL", 1, 100, 1, "first"),
		buy("AAPL", 1, 200, 1, "second"),
		sell("AAPL", 1, 150, 2, "s1"),
	})
	require.Len(t, res.Trades, 1)
	assert.Equal(t, "first", res.Trades[0].EntryFillID)
	assert.InDelta(t, 50.0, res.Trades[0].PnL, 1e-9)
}

func TestReconcileDeterministic(t *testing.T) {
	t.Parallel()

	want := Reconcile(book3(), WithWorkers(1))

	// Shuffling whole symbols around keeps per-symbol order intact.
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		groups := GroupBySymbol(book3())
		syms := Symbols(groups)
		rng.Shuffle(len(syms), func(a, b int) { syms[a], syms[b] = syms[b], syms[a] })

		var shuffled []fill.Fill
		for _, s := range syms {
			shuffled = append(shuffled, groups[s]...)
		}
		got := Reconcile(shuffled, WithWorkers(4))
		assert.Equal(t, want, got)
	}
}

func TestReconcileZeroSumConservation(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 50; run++ {
		var fills []fill.Fill
		var net, cash float64
		for i := 0; i < 30; i++ {
			qty := float64(rng.Intn(20) + 1)
			price := 50 + rng.Float64()*100
			if rng.Intn(2) == 0 {
				fills = append(fills, buy("X", qty, price, i, "f"))
				net += qty
				cash -= qty * price
			} else {
				fills = append(fills, sell("X", qty, price, i, "f"))
				net -= qty
				cash += qty * price
			}
		}
		// flatten
		if net > 0 {
			fills = append(fills, sell("X", net, 100, 31, "flat"))
			cash += net * 100
		} else if net < 0 {
			fills = append(fills, buy("X", -net, 100, 31, "flat"))
			cash -= -net * 100
		}

		res := Reconcile(fills)
		require.Empty(t, res.Errors)
		assert.Empty(t, res.OpenLots)

		var total float64
		for _, tr := range res.Trades {
			total += tr.PnL
		}
		assert.InDelta(t, cash, total, 1e-6)
	}
}

func TestReconcileMalformedRecordExcluded(t *testing.T) {
	t.Parallel()

	raws := []fill.Raw{
		{"symbol": "AAPL", "side": "buy", "qty": "10", "price": "100", "transaction_time": "2024-05-01T13:31:00Z", "order_id": "b1"},
		{"symbol": "AAPL", "side": "buy", "qty": "10", "transaction_time": "2024-05-01T13:32:00Z", "order_id": "no-price"},
		{"symbol": "AAPL", "side": "sell", "qty": "10", "price": "110", "transaction_time": "2024-05-01T13:33:00Z", "order_id": "s1"},
	}
	fills, errs := fill.Normalize(raws)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "missing price")

	res := Reconcile(fills)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, "b1", res.Trades[0].EntryFillID)
	assert.InDelta(t, 100.0, res.Trades[0].PnL, 1e-9)
}

func TestReconcileNilInput(t *testing.T) {
	t.Parallel()

	res := Reconcile(nil)
	assert.NotNil(t, res.Trades)
	assert.Empty(t, res.Trades)
	assert.Empty(t, res.OpenLots)
	assert.Empty(t, res.Errors)
}

func TestReconcileReportsAnomalies(t *testing.T) {
	t.Parallel()

	res := Reconcile([]fill.Fill{
		buy("AAPL", 1, 100, 1, "b1"),
		buy("AAPL", 1, 0, 2, "zero-price"),
	})
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "zero-price")
	require.Len(t, res.OpenLots, 1)
}

func TestGroupBySymbolDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := []fill.Fill{
		sell("AAPL", 1, 1, 3, "c"),
		buy("AAPL", 1, 1, 1, "a"),
	}
	groups := GroupBySymbol(in)
	assert.Equal(t, "c", in[0].ID)
	assert.Equal(t, "a", groups["AAPL"][0].ID)
}
