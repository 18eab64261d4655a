// Package service runs a sync: fetch fills from the broker, rebuild realized
// trades, store them and summarize.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/pnl/broker"
	"github.com/rustyeddy/pnl/fill"
	"github.com/rustyeddy/pnl/journal"
	"github.com/rustyeddy/pnl/pkg/id"
	"github.com/rustyeddy/pnl/pnl"
)

type Service struct {
	source    broker.ActivitySource
	positions broker.PositionSource
	journal   journal.Journal
	log       *zap.Logger

	topN   int
	engine []pnl.Option
	ids    *id.Generator
	now    func() time.Time
}

type Option func(*Service)

// WithPositions enables Positions.
func WithPositions(p broker.PositionSource) Option {
	return func(s *Service) { s.positions = p }
}

// WithJournal stores every synced trade and run.
func WithJournal(j journal.Journal) Option {
	return func(s *Service) { s.journal = j }
}

func WithTopN(n int) Option {
	return func(s *Service) { s.topN = n }
}

// WithEngine passes options through to pnl.Reconcile.
func WithEngine(opts ...pnl.Option) Option {
	return func(s *Service) { s.engine = append(s.engine, opts...) }
}

func New(source broker.ActivitySource, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		source: source,
		log:    log,
		topN:   pnl.DefaultTopN,
		ids:    id.NewGenerator(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Report is the outcome of one sync or offline reconcile. Errors holds
// retrieval, normalization and engine problems in that order; none of them
// invalidates the trades that were matched.
type Report struct {
	Run     journal.SyncRun
	Result  pnl.Result
	Summary pnl.Summary
	Curve   []pnl.DailyPnL
	Errors  []string
}

// Org returns the view rendered by journal.WriteReportOrg.
func (r Report) Org() journal.Report {
	return journal.Report{Run: r.Run, Summary: r.Summary, Curve: r.Curve}
}

// Sync fetches fills for [start, end) and reconciles them. The returned
// error covers credentials and persistence only; data problems are in
// Report.Errors.
func (s *Service) Sync(ctx context.Context, creds broker.Credentials, start, end time.Time) (Report, error) {
	if err := creds.Validate(); err != nil {
		return Report{}, err
	}

	runID, err := s.ids.New()
	if err != nil {
		return Report{}, fmt.Errorf("new run id: %w", err)
	}

	s.log.Info("sync started",
		zap.String("run_id", runID),
		zap.String("profile", creds.Profile),
		zap.Time("start", start),
		zap.Time("end", end),
	)

	fr := s.source.FetchFills(ctx, creds, start, end)
	rep := s.reconcile(fr.Records, fr.Errors)
	rep.Run.RunID = runID
	rep.Run.Strategy = creds.Profile
	rep.Run.Start = start.UTC()
	rep.Run.End = end.UTC()

	if err := s.persist(rep); err != nil {
		s.log.Error("persist failed", zap.String("run_id", runID), zap.Error(err))
		return rep, fmt.Errorf("persist run %s: %w", runID, err)
	}

	s.logReport(rep)
	return rep, nil
}

// Reconcile runs already-retrieved records through the engine without
// touching the broker or the journal.
func (s *Service) Reconcile(profile string, raws []fill.Raw) Report {
	rep := s.reconcile(raws, nil)
	rep.Run.Strategy = profile
	s.logReport(rep)
	return rep
}

// Summarize rebuilds a report view from stored trades.
func (s *Service) Summarize(recs []journal.TradeRecord) (pnl.Summary, []pnl.DailyPnL) {
	trades := journal.Trades(recs)
	return pnl.Summarize(trades, s.topN), pnl.DailyCurve(trades)
}

func (s *Service) reconcile(raws []fill.Raw, fetchErrs []string) Report {
	fills, bad := fill.Normalize(raws)
	res := pnl.Reconcile(fills, s.engine...)

	errs := make([]string, 0, len(fetchErrs)+len(bad)+len(res.Errors))
	errs = append(errs, fetchErrs...)
	for _, err := range bad {
		errs = append(errs, err.Error())
	}
	errs = append(errs, res.Errors...)

	summary := pnl.Summarize(res.Trades, s.topN)
	return Report{
		Run: journal.SyncRun{
			Created:  s.now().UTC(),
			Records:  len(raws),
			Fills:    len(fills),
			Trades:   len(res.Trades),
			OpenLots: len(res.OpenLots),
			TotalPnL: summary.TotalPnL,
			Errors:   errs,
		},
		Result:  res,
		Summary: summary,
		Curve:   pnl.DailyCurve(res.Trades),
		Errors:  errs,
	}
}

type batchRecorder interface {
	RecordTrades([]journal.TradeRecord) error
}

func (s *Service) persist(rep Report) error {
	if s.journal == nil {
		return nil
	}

	recs := make([]journal.TradeRecord, 0, len(rep.Result.Trades))
	for _, t := range rep.Result.Trades {
		recs = append(recs, journal.FromTrade(rep.Run.Strategy, rep.Run.RunID, t))
	}

	if b, ok := s.journal.(batchRecorder); ok {
		if err := b.RecordTrades(recs); err != nil {
			return fmt.Errorf("record trades: %w", err)
		}
	} else {
		for _, r := range recs {
			if err := s.journal.RecordTrade(r); err != nil {
				return fmt.Errorf("record trade: %w", err)
			}
		}
	}

	if rr, ok := s.journal.(journal.RunRecorder); ok {
		if err := rr.RecordRun(rep.Run); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}
	return nil
}

func (s *Service) logReport(rep Report) {
	for _, e := range rep.Errors {
		s.log.Warn("reconcile error", zap.String("run_id", rep.Run.RunID), zap.String("error", e))
	}
	s.log.Info("reconcile complete",
		zap.String("run_id", rep.Run.RunID),
		zap.String("profile", rep.Run.Strategy),
		zap.Int("records", rep.Run.Records),
		zap.Int("fills", rep.Run.Fills),
		zap.Int("trades", rep.Run.Trades),
		zap.Int("open_lots", rep.Run.OpenLots),
		zap.Float64("total_pnl", rep.Summary.TotalPnL),
		zap.Int("errors", len(rep.Errors)),
	)
}

// PositionReport compares the open lots rebuilt from fills with what the
// broker says is open.
type PositionReport struct {
	Snapshot      broker.PositionSnapshot
	OpenLots      []pnl.OpenLot
	Discrepancies []pnl.Discrepancy
	Errors        []string
}

// Positions fetches fills since start and the current positions
// concurrently, then compares them.
func (s *Service) Positions(ctx context.Context, creds broker.Credentials, start time.Time) (PositionReport, error) {
	if s.positions == nil {
		return PositionReport{}, fmt.Errorf("no position source configured")
	}
	if err := creds.Validate(); err != nil {
		return PositionReport{}, err
	}

	var (
		fr   broker.FetchResult
		snap broker.PositionSnapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fr = s.source.FetchFills(gctx, creds, start, s.now())
		return nil
	})
	g.Go(func() error {
		var err error
		snap, err = s.positions.Positions(gctx, creds)
		if err != nil {
			return fmt.Errorf("positions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return PositionReport{}, err
	}

	rep := s.reconcile(fr.Records, fr.Errors)

	reported := make([]pnl.NetPosition, 0, len(snap.Positions))
	for _, p := range snap.Positions {
		reported = append(reported, pnl.NetPosition{Symbol: p.Symbol, Qty: p.SignedQty()})
	}

	o := pnl.DefaultOptions()
	for _, opt := range s.engine {
		opt(o)
	}

	out := PositionReport{
		Snapshot:      snap,
		OpenLots:      rep.Result.OpenLots,
		Discrepancies: pnl.CompareOpenLots(rep.Result.OpenLots, reported, o.Epsilon),
		Errors:        append(rep.Errors, snap.Errors...),
	}
	for _, d := range out.Discrepancies {
		s.log.Warn("position mismatch",
			zap.String("symbol", d.Symbol),
			zap.Float64("from_lots", d.FromLots),
			zap.Float64("reported", d.Reported),
		)
	}
	return out, nil
}
