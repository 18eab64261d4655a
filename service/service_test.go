package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rustyeddy/pnl/broker"
	"github.com/rustyeddy/pnl/fill"
	"github.com/rustyeddy/pnl/journal"
	"github.com/rustyeddy/pnl/pnl"
)

var (
	t0    = time.Date(2024, 6, 3, 13, 30, 0, 0, time.UTC)
	creds = broker.Credentials{Profile: "paper", KeyID: "k", SecretKey: "s", Paper: true}
)

func raw(symbol, side string, qty, price string, min int, orderID string) fill.Raw {
	return fill.Raw{
		"activity_type":    "FILL",
		"id":               "act-" + orderID,
		"symbol":           symbol,
		"side":             side,
		"qty":              qty,
		"price":            price,
		"transaction_time": t0.Add(time.Duration(min) * time.Minute).Format(time.RFC3339Nano),
		"order_id":         orderID,
	}
}

type fakeSource struct {
	result broker.FetchResult
	calls  int
	start  time.Time
	end    time.Time
}

func (f *fakeSource) FetchFills(_ context.Context, c broker.Credentials, start, end time.Time) broker.FetchResult {
	f.calls++
	f.start, f.end = start, end
	return f.result
}

type fakePositions struct {
	snap broker.PositionSnapshot
	err  error
}

func (f *fakePositions) Positions(context.Context, broker.Credentials) (broker.PositionSnapshot, error) {
	return f.snap, f.err
}

type memJournal struct {
	trades []journal.TradeRecord
	runs   []journal.SyncRun
	err    error
}

func (m *memJournal) RecordTrade(r journal.TradeRecord) error {
	if m.err != nil {
		return m.err
	}
	m.trades = append(m.trades, r)
	return nil
}

func (m *memJournal) RecordRun(r journal.SyncRun) error {
	m.runs = append(m.runs, r)
	return nil
}

func (m *memJournal) Close() error { return nil }

func sampleRecords() []fill.Raw {
	return []fill.Raw{
		raw("AAPL", "buy", "10", "100", 0, "o1"),
		raw("AAPL", "sell", "4", "110", 5, "o2"),
		{"activity_type": "FILL", "id": "act-bad", "symbol": "AAPL", "side": "buy"},
		raw("MSFT", "sell_short", "2", "300", 1, "o3"),
		raw("MSFT", "buy", "2", "310", 9, "o4"),
	}
}

func TestSyncReconcilesAndPersists(t *testing.T) {
	t.Parallel()

	src := &fakeSource{result: broker.FetchResult{
		Records: sampleRecords(),
		Errors:  []string{"page 3 failed after 3 attempt(s): EOF"},
		Pages:   3,
	}}
	mem := &memJournal{}
	core, logs := observer.New(zapcore.InfoLevel)
	s := New(src, zap.New(core), WithJournal(mem), WithTopN(3))

	start, end := t0.Add(-24*time.Hour), t0.Add(24*time.Hour)
	rep, err := s.Sync(context.Background(), creds, start, end)
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.True(t, src.start.Equal(start))
	assert.True(t, src.end.Equal(end))

	require.Len(t, rep.Result.Trades, 2)
	assert.Equal(t, "AAPL", rep.Result.Trades[0].Symbol)
	assert.InDelta(t, 40.0, rep.Result.Trades[0].PnL, 1e-9)
	assert.Equal(t, pnl.Short, rep.Result.Trades[1].Type)
	assert.InDelta(t, -20.0, rep.Result.Trades[1].PnL, 1e-9)
	assert.InDelta(t, 20.0, rep.Summary.TotalPnL, 1e-9)

	require.Len(t, rep.Result.OpenLots, 1)
	assert.InDelta(t, 6.0, rep.Result.OpenLots[0].Qty, 1e-9)

	require.Len(t, rep.Errors, 2)
	assert.Contains(t, rep.Errors[0], "page 3 failed")
	assert.Contains(t, rep.Errors[1], "malformed fill #2 (act-bad)")

	assert.Len(t, rep.Run.RunID, 26)
	assert.Equal(t, "paper", rep.Run.Strategy)
	assert.Equal(t, 5, rep.Run.Records)
	assert.Equal(t, 4, rep.Run.Fills)
	assert.Equal(t, 2, rep.Run.Trades)
	assert.Equal(t, 1, rep.Run.OpenLots)

	require.Len(t, mem.trades, 2)
	for _, r := range mem.trades {
		assert.Equal(t, "paper", r.Strategy)
		assert.Equal(t, rep.Run.RunID, r.RunID)
	}
	require.Len(t, mem.runs, 1)
	assert.Equal(t, rep.Run.RunID, mem.runs[0].RunID)

	assert.Equal(t, 2, logs.FilterMessage("reconcile error").Len())
	done := logs.FilterMessage("reconcile complete").All()
	require.Len(t, done, 1)
	assert.EqualValues(t, 2, done[0].ContextMap()["trades"])
}

func TestSyncIncompleteCredentials(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	s := New(src, nil)

	_, err := s.Sync(context.Background(), broker.Credentials{Profile: "live"}, t0, t0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"live"`)
	assert.Zero(t, src.calls)
}

func TestSyncPersistFailureKeepsReport(t *testing.T) {
	t.Parallel()

	src := &fakeSource{result: broker.FetchResult{Records: sampleRecords()}}
	mem := &memJournal{err: errors.New("disk full")}
	s := New(src, nil, WithJournal(mem))

	rep, err := s.Sync(context.Background(), creds, t0, t0.Add(time.Hour))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, rep.Result.Trades, 2)
	assert.Empty(t, mem.runs)
}

func TestSyncSQLiteResyncIsIdempotent(t *testing.T) {
	t.Parallel()

	j, err := journal.NewSQLite(filepath.Join(t.TempDir(), "pnl.sqlite"))
	require.NoError(t, err)
	defer j.Close()

	src := &fakeSource{result: broker.FetchResult{Records: sampleRecords()}}
	s := New(src, nil, WithJournal(j))

	for i := 0; i < 2; i++ {
		_, err := s.Sync(context.Background(), creds, t0.Add(-time.Hour), t0.Add(time.Hour))
		require.NoError(t, err)
	}

	trades, err := j.ListTrades(journal.TradeFilter{Strategy: "paper"})
	require.NoError(t, err)
	assert.Len(t, trades, 2)

	runs, err := j.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.NotEqual(t, runs[0].RunID, runs[1].RunID)

	sum, curve := s.Summarize(trades)
	assert.InDelta(t, 20.0, sum.TotalPnL, 1e-9)
	require.Len(t, curve, 1)
	assert.Equal(t, "2024-06-03", curve[0].Date)
}

func TestSyncSQLiteKeepsPartialFillsOfOneOrder(t *testing.T) {
	t.Parallel()

	j, err := journal.NewSQLite(filepath.Join(t.TempDir(), "pnl.sqlite"))
	require.NoError(t, err)
	defer j.Close()

	// one buy order filled in two slices at the same instant
	first := raw("AAPL", "buy", "5", "100", 1, "o1")
	first["id"] = "act-o1-1"
	second := raw("AAPL", "buy", "5", "101", 1, "o1")
	second["id"] = "act-o1-2"
	exit := raw("AAPL", "sell", "10", "110", 2, "o2")

	src := &fakeSource{result: broker.FetchResult{Records: []fill.Raw{first, second, exit}}}
	s := New(src, nil, WithJournal(j))

	var rep Report
	for i := 0; i < 2; i++ {
		rep, err = s.Sync(context.Background(), creds, t0, t0.Add(time.Hour))
		require.NoError(t, err)
	}
	require.Len(t, rep.Result.Trades, 2)
	assert.InDelta(t, 95.0, rep.Summary.TotalPnL, 1e-9)

	stored, err := j.ListTrades(journal.TradeFilter{Strategy: "paper", Symbol: "AAPL"})
	require.NoError(t, err)
	require.Len(t, stored, 2)

	sum, _ := s.Summarize(stored)
	assert.InDelta(t, rep.Summary.TotalPnL, sum.TotalPnL, 1e-9)

	refs := []string{stored[0].EntryRef, stored[1].EntryRef}
	assert.ElementsMatch(t, []string{"act-o1-1", "act-o1-2"}, refs)
	for _, r := range stored {
		assert.Equal(t, "o1", r.EntryFillID)
		assert.Equal(t, "act-o2", r.ExitRef)
	}
}

func TestReconcileOffline(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	s := New(src, nil, WithEngine(pnl.WithWorkers(1)))

	rep := s.Reconcile("offline", sampleRecords())
	assert.Zero(t, src.calls)
	assert.Len(t, rep.Result.Trades, 2)
	assert.Empty(t, rep.Run.RunID)
	assert.Equal(t, "offline", rep.Run.Strategy)
	require.Len(t, rep.Errors, 1)

	org := rep.Org()
	assert.Equal(t, rep.Summary, org.Summary)
}

func TestReconcileEmpty(t *testing.T) {
	t.Parallel()

	rep := New(&fakeSource{}, nil).Reconcile("p", nil)
	assert.Empty(t, rep.Result.Trades)
	assert.Empty(t, rep.Errors)
	assert.Zero(t, rep.Summary.TotalPnL)
}

func TestPositionsComparesOpenLots(t *testing.T) {
	t.Parallel()

	src := &fakeSource{result: broker.FetchResult{Records: sampleRecords()}}
	pos := &fakePositions{snap: broker.PositionSnapshot{
		Positions: []broker.Position{
			{Symbol: "AAPL", Side: "long", Qty: 6},
			{Symbol: "TSLA", Side: "short", Qty: 3},
		},
		Errors: []string{"skipping position NVDA: bad qty"},
	}}
	core, logs := observer.New(zapcore.WarnLevel)
	s := New(src, zap.New(core), WithPositions(pos))
	s.now = func() time.Time { return t0.Add(time.Hour) }

	rep, err := s.Positions(context.Background(), creds, t0.Add(-time.Hour))
	require.NoError(t, err)

	assert.True(t, src.end.Equal(t0.Add(time.Hour)))
	require.Len(t, rep.Discrepancies, 1)
	assert.Equal(t, "TSLA", rep.Discrepancies[0].Symbol)
	assert.InDelta(t, -3.0, rep.Discrepancies[0].Reported, 1e-9)
	assert.Len(t, rep.OpenLots, 1)
	assert.Contains(t, rep.Errors, "skipping position NVDA: bad qty")
	assert.Equal(t, 1, logs.FilterMessage("position mismatch").Len())
}

func TestPositionsErrors(t *testing.T) {
	t.Parallel()

	_, err := New(&fakeSource{}, nil).Positions(context.Background(), creds, t0)
	assert.Error(t, err)

	s := New(&fakeSource{}, nil, WithPositions(&fakePositions{err: errors.New("http 500")}))
	_, err = s.Positions(context.Background(), creds, t0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positions: http 500")
}
