// Package report renders tax lot results into the documents users download:
// a tax summary CSV, IRS Form 8949 rows (CSV or PDF) and a Schedule D
// summary (plain text or CSV).
package report

import (
	"errors"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"walletlens/internal/taxlot"
)

// MinTaxYear is the earliest tax year reports are produced for.
const MinTaxYear = 2020

// ErrNoRealizedGains is returned when a disposal report would have no rows.
var ErrNoRealizedGains = errors.New("no realized gains in scope")

// Meta identifies what a document is about. It is printed in headers only.
type Meta struct {
	Address     string
	Chain       string
	Symbol      string
	TaxYear     int
	GeneratedAt time.Time
}

// HoldingFilter restricts Form 8949 rows by holding period.
type HoldingFilter string

const (
	FilterAll       HoldingFilter = "all"
	FilterShortTerm HoldingFilter = "short-term"
	FilterLongTerm  HoldingFilter = "long-term"
)

// Valid reports whether f is a known filter.
func (f HoldingFilter) Valid() bool {
	switch f {
	case FilterAll, FilterShortTerm, FilterLongTerm:
		return true
	}
	return false
}

func (f HoldingFilter) keep(p taxlot.HoldingPeriod) bool {
	switch f {
	case FilterShortTerm:
		return p == taxlot.ShortTerm
	case FilterLongTerm:
		return p == taxlot.LongTerm
	default:
		return true
	}
}

// SupportedTaxYears lists MinTaxYear through the year of now, newest first.
func SupportedTaxYears(now time.Time) []int {
	current := now.UTC().Year()
	if current < MinTaxYear {
		return []int{}
	}
	years := make([]int, 0, current-MinTaxYear+1)
	for y := current; y >= MinTaxYear; y-- {
		years = append(years, y)
	}
	return years
}

// ValidTaxYear reports whether year is one of SupportedTaxYears(now).
func ValidTaxYear(year int, now time.Time) bool {
	return year >= MinTaxYear && year <= now.UTC().Year()
}

// FilterByTaxYear keeps the gains disposed of during year (UTC). A zero year
// keeps everything. Gains without a disposal date have no tax year and are
// only kept when year is zero.
func FilterByTaxYear(gains []taxlot.RealizedGain, year int) []taxlot.RealizedGain {
	if year == 0 {
		return gains
	}
	return lo.Filter(gains, func(g taxlot.RealizedGain, _ int) bool {
		return g.DisposedAt != nil && g.DisposedAt.UTC().Year() == year
	})
}

// ForTaxYear returns a copy of result limited to the disposals of year, with
// the realized totals and sell count of its summary recomputed from them.
// Open lots and unrealized figures describe the position today and are kept.
// A zero year returns result unchanged.
func ForTaxYear(result *taxlot.Result, year int) *taxlot.Result {
	if year == 0 || result == nil {
		return result
	}
	scoped := *result
	scoped.RealizedGains = FilterByTaxYear(result.RealizedGains, year)

	sells := len(lo.Uniq(lo.Map(scoped.RealizedGains, func(g taxlot.RealizedGain, _ int) string {
		return g.SellHash
	})))
	scoped.Summary = taxlot.Summarize(scoped.RealizedGains, result.UnrealizedGains, result.Summary.BuyCount, sells)
	return &scoped
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func isoDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}
