package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity REAL NOT NULL,
	price REAL NOT NULL,
	reason TEXT NOT NULL,
	time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
CREATE INDEX IF NOT EXISTS idx_trades_time ON trades(time);
`
