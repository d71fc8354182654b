package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSV struct {
	w *csv.Writer
	f *os.File
}

func NewCSV(path string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"trade_id", "symbol", "side", "quantity", "price", "reason", "time"}); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return &CSV{w: w, f: f}, nil
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	j.w.Write([]string{
		t.TradeID,
		t.Symbol,
		string(t.Side),
		f(t.Quantity),
		f(t.Price),
		t.Reason,
		t.Time.Format(time.RFC3339),
	})
	j.w.Flush()
	return j.w.Error()
}

func (j *CSV) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		j.f.Close()
		return err
	}
	return j.f.Close()
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
