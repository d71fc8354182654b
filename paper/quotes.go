package paper

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"github.com/foliobot/foliobot/broker"
)

// SimQuoter produces deterministic prices derived from the symbol name,
// so paper runs are reproducible without market data access.
type SimQuoter struct{}

func (SimQuoter) GetQuote(_ context.Context, symbol string) (broker.Quote, error) {
	h := fnv.New64a()
	h.Write([]byte(strings.ToUpper(symbol)))
	base := 100 + float64(h.Sum64()%5000)/10.0

	return broker.Quote{
		Symbol: strings.ToUpper(symbol),
		Price:  math.Round(base*100) / 100,
		Time:   time.Now(),
	}, nil
}
