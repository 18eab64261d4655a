package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const tradeColumns = `trade_id, strategy, symbol, type, qty, entry_price, exit_price, entry_time, exit_time,
	pnl, entry_fill_id, exit_fill_id, entry_ref, exit_ref, run_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var rec TradeRecord
	err := s.Scan(
		&rec.TradeID,
		&rec.Strategy,
		&rec.Symbol,
		&rec.Type,
		&rec.Qty,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.EntryTime,
		&rec.ExitTime,
		&rec.PnL,
		&rec.EntryFillID,
		&rec.ExitFillID,
		&rec.EntryRef,
		&rec.ExitRef,
		&rec.RunID,
	)
	rec.EntryTime = rec.EntryTime.UTC()
	rec.ExitTime = rec.ExitTime.UTC()
	return rec, err
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+` FROM realized_trades WHERE trade_id = ?`, tradeID)

	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesClosedBetween returns trades whose exit_time is within [start, end).
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	return j.ListTrades(TradeFilter{Start: start, End: end})
}

// TradeFilter narrows ListTrades. Zero fields match everything.
type TradeFilter struct {
	Strategy string
	Symbol   string
	Start    time.Time // inclusive, on exit time
	End      time.Time // exclusive, on exit time
}

// ListTrades returns matching trades ordered by exit time.
func (j *SQLite) ListTrades(f TradeFilter) ([]TradeRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.Strategy != "" {
		where = append(where, "strategy = ?")
		args = append(args, f.Strategy)
	}
	if f.Symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, f.Symbol)
	}
	if !f.Start.IsZero() {
		where = append(where, "exit_time >= ?")
		args = append(args, f.Start.UTC())
	}
	if !f.End.IsZero() {
		where = append(where, "exit_time < ?")
		args = append(args, f.End.UTC())
	}

	q := `SELECT ` + tradeColumns + ` FROM realized_trades`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY exit_time ASC, symbol ASC, entry_time ASC"

	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRuns returns the most recent sync runs first. limit <= 0 returns all.
func (j *SQLite) ListRuns(limit int) ([]SyncRun, error) {
	q := `SELECT run_id, strategy, created, start_time, end_time, records, fills, trades, open_lots, total_pnl, errors
		FROM sync_runs ORDER BY created DESC, run_id DESC`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SyncRun
	for rows.Next() {
		var (
			r    SyncRun
			errs string
		)
		if err := rows.Scan(
			&r.RunID,
			&r.Strategy,
			&r.Created,
			&r.Start,
			&r.End,
			&r.Records,
			&r.Fills,
			&r.Trades,
			&r.OpenLots,
			&r.TotalPnL,
			&errs,
		); err != nil {
			return nil, err
		}
		r.Created = r.Created.UTC()
		r.Start = r.Start.UTC()
		r.End = r.End.UTC()
		if errs != "" {
			r.Errors = strings.Split(errs, "\n")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
