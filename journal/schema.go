// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS history (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	time DATETIME NOT NULL,
	order_id TEXT NOT NULL,
	ref_order_id TEXT NOT NULL,
	position_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	order_type TEXT NOT NULL,
	quantity REAL NOT NULL,
	executed_quantity REAL NOT NULL,
	leverage REAL NOT NULL,
	close_only INTEGER NOT NULL,
	exec_price REAL NOT NULL,
	balance REAL NOT NULL,
	margin_balance REAL NOT NULL,
	price_delta_pips REAL NOT NULL,
	gain_loss_rate REAL NOT NULL,
	gain_loss REAL NOT NULL,
	gain_loss_account REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_time ON history(time);
CREATE INDEX IF NOT EXISTS idx_history_position ON history(position_id);

CREATE TABLE IF NOT EXISTS market (
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	bid REAL NOT NULL,
	ask REAL NOT NULL,
	base_exchange_rate REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_market_time ON market(symbol, time);
`
