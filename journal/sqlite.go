package journal

import (
	"database/sql"

	"github.com/foliobot/foliobot/broker"
	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, symbol, side, quantity, price, reason, time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Symbol, string(t.Side), t.Quantity, t.Price, t.Reason, t.Time,
	)
	return err
}

// ListTrades returns all recorded trades ordered by trade ID, which is
// time-sortable (ULID).
func (j *SQLite) ListTrades() ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, symbol, side, quantity, price, reason, time
		FROM trades ORDER BY trade_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		var side string
		if err := rows.Scan(&t.TradeID, &t.Symbol, &side, &t.Quantity, &t.Price, &t.Reason, &t.Time); err != nil {
			return nil, err
		}
		t.Side = broker.Side(side)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
