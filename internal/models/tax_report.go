package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"walletlens/internal/taxlot"
)

// TaxReport is a stored FIFO calculation for one asset at one address.
// The summary is kept in columns for listing; the full result is kept as JSON.
type TaxReport struct {
	Base
	UserID  string `gorm:"type:varchar(128);not null;index" json:"user_id"`
	Address string `gorm:"not null;index" json:"address"`
	Chain   string `gorm:"not null" json:"chain"`
	Symbol  string `gorm:"not null" json:"symbol"`
	Method  string `gorm:"not null;default:FIFO" json:"method"`

	CurrentBalance      decimal.Decimal `gorm:"type:numeric;not null" json:"current_balance"`
	CurrentPriceUSD     decimal.Decimal `gorm:"type:numeric;not null" json:"current_price_usd"`
	TotalRealizedGain   decimal.Decimal `gorm:"type:numeric;not null" json:"total_realized_gain"`
	TotalUnrealizedGain decimal.Decimal `gorm:"type:numeric;not null" json:"total_unrealized_gain"`
	TotalGain           decimal.Decimal `gorm:"type:numeric;not null" json:"total_gain"`
	ShortTermGains      decimal.Decimal `gorm:"type:numeric;not null" json:"short_term_gains"`
	LongTermGains       decimal.Decimal `gorm:"type:numeric;not null" json:"long_term_gains"`
	TransactionCount    int             `gorm:"not null" json:"transaction_count"`
	WarningCount        int             `gorm:"not null" json:"warning_count"`

	Result string `gorm:"type:jsonb;not null" json:"-"`
}

// SetResult copies the summary of r into the report columns and stores r as JSON.
func (t *TaxReport) SetResult(r *taxlot.Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode tax result: %w", err)
	}
	s := r.Summary
	t.Method = r.Method
	t.TotalRealizedGain = s.TotalRealizedGain
	t.TotalUnrealizedGain = s.TotalUnrealizedGain
	t.TotalGain = s.TotalGain
	t.ShortTermGains = s.ShortTermGains
	t.LongTermGains = s.LongTermGains
	t.TransactionCount = s.TotalTransactions
	t.WarningCount = len(r.Warnings)
	t.Result = string(data)
	return nil
}

// DecodeResult returns the stored calculation result.
func (t *TaxReport) DecodeResult() (*taxlot.Result, error) {
	if strings.TrimSpace(t.Result) == "" {
		return taxlot.Empty(), nil
	}
	var r taxlot.Result
	if err := json.Unmarshal([]byte(t.Result), &r); err != nil {
		return nil, fmt.Errorf("decode tax result: %w", err)
	}
	return &r, nil
}
