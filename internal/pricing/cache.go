package pricing

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// DefaultCurrentPriceTTL is how long a current price is reused.
const DefaultCurrentPriceTTL = 5 * time.Minute

// CachedSource memoizes another Source. Current prices expire after the
// configured TTL; historical prices are kept for the life of the cache.
// Failed lookups are never cached.
type CachedSource struct {
	source Source
	cache  *cache.Cache
}

// NewCachedSource wraps src with a cache whose current prices live for ttl.
func NewCachedSource(src Source, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultCurrentPriceTTL
	}
	return &CachedSource{
		source: src,
		cache:  cache.New(ttl, 2*ttl),
	}
}

// CurrentPrice implements Source.
func (s *CachedSource) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	key := "current:" + strings.ToUpper(symbol)
	if v, ok := s.cache.Get(key); ok {
		return v.(decimal.Decimal), nil
	}

	price, err := s.source.CurrentPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	s.cache.Set(key, price, cache.DefaultExpiration)
	return price, nil
}

// HistoricalPrice implements Source.
func (s *CachedSource) HistoricalPrice(ctx context.Context, symbol string, date time.Time) (decimal.Decimal, error) {
	key := "historical:" + strings.ToUpper(symbol) + ":" + date.UTC().Format(time.DateOnly)
	if v, ok := s.cache.Get(key); ok {
		return v.(decimal.Decimal), nil
	}

	price, err := s.source.HistoricalPrice(ctx, symbol, date)
	if err != nil {
		return decimal.Zero, err
	}
	s.cache.Set(key, price, cache.NoExpiration)
	return price, nil
}

// Flush drops every cached price.
func (s *CachedSource) Flush() {
	s.cache.Flush()
}
