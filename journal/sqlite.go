package journal

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/pnl/pkg/id"
)

type SQLite struct {
	db *sql.DB
}

var (
	_ Journal     = (*SQLite)(nil)
	_ RunRecorder = (*SQLite)(nil)
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

const upsertTrade = `
	INSERT INTO realized_trades
	(trade_id, strategy, symbol, type, qty, entry_price, exit_price, entry_time, exit_time,
	 pnl, entry_fill_id, exit_fill_id, entry_ref, exit_ref, run_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (strategy, symbol, entry_ref, exit_ref) DO UPDATE SET
		type = excluded.type,
		qty = excluded.qty,
		entry_price = excluded.entry_price,
		exit_price = excluded.exit_price,
		entry_time = excluded.entry_time,
		exit_time = excluded.exit_time,
		entry_fill_id = excluded.entry_fill_id,
		exit_fill_id = excluded.exit_fill_id,
		pnl = excluded.pnl,
		run_id = excluded.run_id`

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// RecordTrade upserts a trade. A trade already stored for the same
// profile, symbol, entry ref and exit ref is updated in place and keeps its
// id. Refs fall back to fill ids, so a trade without refs is keyed on those.
func (j *SQLite) RecordTrade(t TradeRecord) error {
	return recordTrade(j.db, t)
}

// RecordTrades upserts a batch in one transaction.
func (j *SQLite) RecordTrades(recs []TradeRecord) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	for _, r := range recs {
		if err := recordTrade(tx, r); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func recordTrade(x execer, t TradeRecord) error {
	if t.TradeID == "" {
		t.TradeID = id.New()
	}
	if t.EntryRef == "" {
		t.EntryRef = t.EntryFillID
	}
	if t.ExitRef == "" {
		t.ExitRef = t.ExitFillID
	}
	_, err := x.Exec(upsertTrade,
		t.TradeID, t.Strategy, t.Symbol, t.Type, t.Qty, t.EntryPrice, t.ExitPrice,
		t.EntryTime.UTC(), t.ExitTime.UTC(), t.PnL,
		t.EntryFillID, t.ExitFillID, t.EntryRef, t.ExitRef, t.RunID,
	)
	return err
}

func (j *SQLite) RecordRun(r SyncRun) error {
	_, err := j.db.Exec(`
		INSERT INTO sync_runs
		(run_id, strategy, created, start_time, end_time, records, fills, trades, open_lots, total_pnl, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Strategy, r.Created.UTC(), r.Start.UTC(), r.End.UTC(),
		r.Records, r.Fills, r.Trades, r.OpenLots, r.TotalPnL, strings.Join(r.Errors, "\n"),
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
