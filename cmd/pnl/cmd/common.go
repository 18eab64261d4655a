package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/pnl/broker/alpaca"
	"github.com/rustyeddy/pnl/journal"
	"github.com/rustyeddy/pnl/pnl"
	"github.com/rustyeddy/pnl/service"
)

const dayLayout = "2006-01-02"

// openJournal opens the configured journal for writing.
func openJournal() (journal.Journal, error) {
	if cfg.Journal.Type == "csv" {
		return journal.NewCSV(cfg.Journal.TradesFile)
	}
	return journal.NewSQLite(cfg.Journal.DBPath)
}

// openStore opens the sqlite journal for queries.
func openStore() (*journal.SQLite, error) {
	if cfg.Journal.DBPath == "" {
		return nil, fmt.Errorf("queries need journal.db_path (journal type is %s)", cfg.Journal.Type)
	}
	return journal.NewSQLite(cfg.Journal.DBPath)
}

func newClient() (*alpaca.Client, error) {
	opts, err := cfg.AlpacaOptions()
	if err != nil {
		return nil, err
	}
	c := alpaca.NewClient(opts, zlog)
	if cfg.Broker.BaseURL != "" {
		c = c.WithBaseURL(cfg.Broker.BaseURL)
	}
	return c, nil
}

func serviceOptions() []service.Option {
	opts := []service.Option{service.WithTopN(cfg.Report.TopN)}
	if cfg.Report.Workers > 0 {
		opts = append(opts, service.WithEngine(pnl.WithWorkers(cfg.Report.Workers)))
	}
	return opts
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation(dayLayout, day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}

// window resolves --since/--until/--days into [start, end). until is an
// inclusive day; without it the window ends now.
func window(loc *time.Location, now time.Time, since, until string, days int) (time.Time, time.Time, error) {
	end := now
	if until != "" {
		_, e, err := dayBounds(loc, until)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--until: %w", err)
		}
		end = e
	}

	start := end.AddDate(0, 0, -days)
	if since != "" {
		s, _, err := dayBounds(loc, since)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--since: %w", err)
		}
		start = s
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("empty window %s .. %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return start, end, nil
}

type jsonTrade struct {
	Symbol      string    `json:"symbol"`
	Type        string    `json:"type"`
	EntryTime   time.Time `json:"entry_time"`
	ExitTime    time.Time `json:"exit_time"`
	Qty         float64   `json:"qty"`
	EntryPrice  float64   `json:"entry_price"`
	ExitPrice   float64   `json:"exit_price"`
	PnL         float64   `json:"pnl"`
	EntryFillID string    `json:"entry_fill_id"`
	ExitFillID  string    `json:"exit_fill_id"`
	EntryRef    string    `json:"entry_ref,omitempty"`
	ExitRef     string    `json:"exit_ref,omitempty"`
}

type jsonLot struct {
	Symbol string    `json:"symbol"`
	Side   string    `json:"side"`
	Qty    float64   `json:"qty"`
	Price  float64   `json:"price"`
	Time   time.Time `json:"time"`
	FillID string    `json:"fill_id"`
	Ref    string    `json:"ref,omitempty"`
}

type jsonSymbol struct {
	Symbol string  `json:"symbol"`
	PnL    float64 `json:"pnl"`
	Trades int     `json:"trades"`
}

type jsonSummary struct {
	TotalPnL         float64      `json:"total_pnl"`
	Trades           int          `json:"trades"`
	Wins             int          `json:"wins"`
	Losses           int          `json:"losses"`
	ProfitFactor     float64      `json:"profit_factor"`
	WinRate          float64      `json:"win_rate"`
	TopWinners       []jsonTrade  `json:"top_winners"`
	TopLosers        []jsonTrade  `json:"top_losers"`
	TopSymbolWinners []jsonSymbol `json:"top_symbol_winners"`
	TopSymbolLosers  []jsonSymbol `json:"top_symbol_losers"`
}

type jsonReport struct {
	RunID    string      `json:"run_id,omitempty"`
	Trades   []jsonTrade `json:"trades"`
	OpenLots []jsonLot   `json:"open_lots"`
	Summary  jsonSummary `json:"summary"`
	Errors   []string    `json:"errors"`
}

func toJSONTrades(ts []pnl.RealizedTrade) []jsonTrade {
	out := make([]jsonTrade, 0, len(ts))
	for _, t := range ts {
		out = append(out, jsonTrade{
			Symbol:      t.Symbol,
			Type:        string(t.Type),
			EntryTime:   t.EntryTime,
			ExitTime:    t.ExitTime,
			Qty:         t.Qty,
			EntryPrice:  t.EntryPrice,
			ExitPrice:   t.ExitPrice,
			PnL:         t.PnL,
			EntryFillID: t.EntryFillID,
			ExitFillID:  t.ExitFillID,
			EntryRef:    t.EntryRef,
			ExitRef:     t.ExitRef,
		})
	}
	return out
}

func toJSONSymbols(ps []pnl.SymbolPnL) []jsonSymbol {
	out := make([]jsonSymbol, 0, len(ps))
	for _, p := range ps {
		out = append(out, jsonSymbol{Symbol: p.Symbol, PnL: p.PnL, Trades: p.Trades})
	}
	return out
}

func toJSONReport(rep service.Report) jsonReport {
	lots := make([]jsonLot, 0, len(rep.Result.OpenLots))
	for _, l := range rep.Result.OpenLots {
		lots = append(lots, jsonLot{
			Symbol: l.Symbol,
			Side:   string(l.Side),
			Qty:    l.Qty,
			Price:  l.Price,
			Time:   l.Time,
			FillID: l.FillID,
			Ref:    l.Ref,
		})
	}
	s := rep.Summary
	errs := rep.Errors
	if errs == nil {
		errs = []string{}
	}
	return jsonReport{
		RunID:    rep.Run.RunID,
		Trades:   toJSONTrades(rep.Result.Trades),
		OpenLots: lots,
		Summary: jsonSummary{
			TotalPnL:         s.TotalPnL,
			Trades:           s.Trades,
			Wins:             s.Wins,
			Losses:           s.Losses,
			ProfitFactor:     s.ProfitFactor,
			WinRate:          s.WinRate,
			TopWinners:       toJSONTrades(s.TopWinners),
			TopLosers:        toJSONTrades(s.TopLosers),
			TopSymbolWinners: toJSONSymbols(s.TopSymbolWinners),
			TopSymbolLosers:  toJSONSymbols(s.TopSymbolLosers),
		},
		Errors: errs,
	}
}

// writeReport prints rep as org or json to w and the warning block to
// errw. Errors never suppress results.
func writeReport(w, errw io.Writer, format string, rep service.Report) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(toJSONReport(rep)); err != nil {
			return err
		}
	case "org", "":
		if err := journal.WriteReportOrg(w, rep.Org()); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q (org or json)", format)
	}
	printWarnings(errw, rep.Errors)
	return nil
}

func printWarnings(w io.Writer, errs []string) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintf(w, "\n⚠ %d problem(s) found; results above include everything that could be matched:\n", len(errs))
	for _, e := range errs {
		fmt.Fprintf(w, "  - %s\n", e)
	}
}
