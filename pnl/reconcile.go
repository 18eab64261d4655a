package pnl

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/pnl/fill"
)

// Options tunes a reconciliation run.
type Options struct {
	Epsilon float64
	Workers int
}

// DefaultOptions returns the default options.
func DefaultOptions() *Options {
	return &Options{
		Epsilon: DefaultEpsilon,
		Workers: runtime.GOMAXPROCS(0),
	}
}

type Option func(*Options)

func WithEpsilon(eps float64) Option {
	return func(o *Options) { o.Epsilon = eps }
}

// WithWorkers caps how many symbols are replayed at once.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// Result is everything one reconciliation produced. Errors is never a
// reason to discard Trades: whatever could be matched is returned.
type Result struct {
	Trades   []RealizedTrade
	OpenLots []OpenLot
	Errors   []string
}

// Reconcile groups fills by symbol, replays each symbol through its own
// FIFO book and merges the results in symbol order. Symbols are replayed
// concurrently; the output does not depend on scheduling.
func Reconcile(fills []fill.Fill, opts ...Option) Result {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.Workers < 1 {
		o.Workers = 1
	}

	groups := GroupBySymbol(fills)
	symbols := Symbols(groups)
	results := make([]SymbolResult, len(symbols))

	var g errgroup.Group
	g.SetLimit(o.Workers)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			results[i] = ReplaySymbol(sym, groups[sym], o.Epsilon)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Trades: []RealizedTrade{}, OpenLots: []OpenLot{}, Errors: []string{}}
	for _, r := range results {
		res.Trades = append(res.Trades, r.Trades...)
		res.OpenLots = append(res.OpenLots, r.OpenLots...)
		for _, err := range r.Errors {
			res.Errors = append(res.Errors, err.Error())
		}
	}
	return res
}
