// Package pricing resolves USD prices for crypto assets. Sources are plain
// values built by the caller and passed to whatever needs them; there is no
// package-level client or cache.
package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownSymbol is returned when a symbol has no provider coin id.
	ErrUnknownSymbol = errors.New("no coin id mapped for symbol")
	// ErrPriceUnavailable is returned when the provider has no USD price.
	ErrPriceUnavailable = errors.New("price unavailable")
)

// Source looks up USD prices.
type Source interface {
	// CurrentPrice returns the latest USD price for symbol.
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	// HistoricalPrice returns the USD price for symbol on the UTC calendar
	// day containing date.
	HistoricalPrice(ctx context.Context, symbol string, date time.Time) (decimal.Decimal, error)
}

// PriceAt returns the historical price for the day of a unix timestamp.
func PriceAt(ctx context.Context, src Source, symbol string, unix int64) (decimal.Decimal, error) {
	return src.HistoricalPrice(ctx, symbol, time.Unix(unix, 0).UTC())
}
