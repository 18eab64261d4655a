// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS realized_trades (
	trade_id TEXT NOT NULL UNIQUE,
	strategy TEXT NOT NULL,
	symbol TEXT NOT NULL,
	type TEXT NOT NULL,
	qty REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	entry_time DATETIME NOT NULL,
	exit_time DATETIME NOT NULL,
	pnl REAL NOT NULL,
	entry_fill_id TEXT NOT NULL,
	exit_fill_id TEXT NOT NULL,
	entry_ref TEXT NOT NULL,
	exit_ref TEXT NOT NULL,
	run_id TEXT NOT NULL,
	PRIMARY KEY (strategy, symbol, entry_ref, exit_ref)
);

CREATE INDEX IF NOT EXISTS idx_realized_trades_exit_time ON realized_trades(exit_time);

CREATE TABLE IF NOT EXISTS sync_runs (
	run_id TEXT PRIMARY KEY,
	strategy TEXT NOT NULL,
	created DATETIME NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	records INTEGER NOT NULL,
	fills INTEGER NOT NULL,
	trades INTEGER NOT NULL,
	open_lots INTEGER NOT NULL,
	total_pnl REAL NOT NULL,
	errors TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_created ON sync_runs(created);
`
