// Package taxlot implements FIFO tax lot accounting for a single asset held
// at a single address: it matches disposals against acquisitions, values the
// lots still open at the current price, and rolls the results into a summary.
//
// Every function in this package is a pure computation over its arguments.
// Nothing is cached between calls, so concurrent use needs no coordination.
package taxlot

import (
	"time"

	"github.com/shopspring/decimal"
)

// Method is the only cost-basis method the engine implements.
const Method = "FIFO"

// Direction tells whether a transaction moved the asset into or out of the address.
type Direction string

const (
	// DirectionReceived is an acquisition ("buy" for cost-basis purposes).
	DirectionReceived Direction = "received"
	// DirectionSent is a disposal ("sell").
	DirectionSent Direction = "sent"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionReceived || d == DirectionSent
}

// HoldingPeriod classifies a realized gain for tax-rate purposes.
type HoldingPeriod string

const (
	ShortTerm HoldingPeriod = "short-term"
	LongTerm  HoldingPeriod = "long-term"
)

// Transaction is one observed movement of the asset.
type Transaction struct {
	Hash         string          `json:"hash"`
	Direction    Direction       `json:"direction"`
	Amount       decimal.Decimal `json:"amount"`
	Timestamp    *time.Time      `json:"timestamp,omitempty"`
	UnitPriceUSD decimal.Decimal `json:"unit_price_usd"`
}

// TaxLot is a quantity acquired at one time and price, consumed in parts by
// later disposals.
type TaxLot struct {
	SourceHash      string          `json:"source_hash"`
	AcquiredAt      *time.Time      `json:"acquired_at"`
	UnitCostUSD     decimal.Decimal `json:"unit_cost_usd"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
}

// RealizedGain is the result of matching one disposal, or a portion of it,
// against one lot.
type RealizedGain struct {
	SellHash      string          `json:"sell_hash"`
	BuyHash       string          `json:"buy_hash"`
	MatchedAmount decimal.Decimal `json:"matched_amount"`
	BuyUnitPrice  decimal.Decimal `json:"buy_unit_price"`
	SellUnitPrice decimal.Decimal `json:"sell_unit_price"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	Proceeds      decimal.Decimal `json:"proceeds"`
	GainLoss      decimal.Decimal `json:"gain_loss"`
	AcquiredAt    *time.Time      `json:"acquired_at"`
	DisposedAt    *time.Time      `json:"disposed_at"`
	HoldingPeriod HoldingPeriod   `json:"holding_period"`
}

// UnrealizedGain values a still-open lot at the current price.
type UnrealizedGain struct {
	SourceHash          string          `json:"source_hash"`
	AcquiredAt          *time.Time      `json:"acquired_at"`
	RemainingAmount     decimal.Decimal `json:"remaining_amount"`
	UnitCostUSD         decimal.Decimal `json:"unit_cost_usd"`
	CurrentUnitPriceUSD decimal.Decimal `json:"current_unit_price_usd"`
	CostBasis           decimal.Decimal `json:"cost_basis"`
	CurrentValue        decimal.Decimal `json:"current_value"`
	UnrealizedGain      decimal.Decimal `json:"unrealized_gain"`
	GainPercentage      decimal.Decimal `json:"gain_percentage"`
}

// UnrealizedTotal holds the per-lot unrealized gains and their totals.
type UnrealizedTotal struct {
	Lots                []UnrealizedGain `json:"lots"`
	TotalCostBasis      decimal.Decimal  `json:"total_cost_basis"`
	TotalCurrentValue   decimal.Decimal  `json:"total_current_value"`
	TotalGain           decimal.Decimal  `json:"total_gain"`
	TotalGainPercentage decimal.Decimal  `json:"total_gain_percentage"`
}

// Summary rolls up realized and unrealized results for one computation.
type Summary struct {
	TotalRealizedGain   decimal.Decimal `json:"total_realized_gain"`
	TotalUnrealizedGain decimal.Decimal `json:"total_unrealized_gain"`
	TotalGain           decimal.Decimal `json:"total_gain"`
	ShortTermGains      decimal.Decimal `json:"short_term_gains"`
	LongTermGains       decimal.Decimal `json:"long_term_gains"`
	TotalTransactions   int             `json:"total_transactions"`
	BuyCount            int             `json:"buy_count"`
	SellCount           int             `json:"sell_count"`
}

// WarningCode identifies a degraded-but-successful computation.
type WarningCode string

const (
	// WarningUnmatchedDisposal means a disposal could not be fully matched
	// because the lot queue ran dry; the remainder was left out of the gains.
	WarningUnmatchedDisposal WarningCode = "unmatched_disposal"
	// WarningBalanceMismatch means the caller's current balance differs from
	// the total remaining in open lots.
	WarningBalanceMismatch WarningCode = "balance_mismatch"
	// WarningCurrentPriceFallback means a transaction was priced at the
	// current price because no point-in-time price was available.
	WarningCurrentPriceFallback WarningCode = "current_price_fallback"
)

// Warning describes a numerically approximate part of a result.
type Warning struct {
	Code    WarningCode     `json:"code"`
	Hash    string          `json:"hash,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
	Message string          `json:"message"`
}

// Result is the full output of Calculate.
type Result struct {
	Method          string          `json:"method"`
	RealizedGains   []RealizedGain  `json:"realized_gains"`
	UnrealizedGains UnrealizedTotal `json:"unrealized_gains"`
	RemainingLots   []TaxLot        `json:"remaining_lots"`
	Summary         Summary         `json:"summary"`
	Warnings        []Warning       `json:"warnings,omitempty"`
}

// Input is everything Calculate needs for one asset at one address.
type Input struct {
	Transactions        []Transaction
	CurrentBalance      decimal.Decimal
	CurrentUnitPriceUSD decimal.Decimal
}

// Empty returns a result with no gains, no lots and zero totals.
func Empty() *Result {
	return &Result{
		Method:        Method,
		RealizedGains: []RealizedGain{},
		UnrealizedGains: UnrealizedTotal{
			Lots: []UnrealizedGain{},
		},
		RemainingLots: []TaxLot{},
	}
}
