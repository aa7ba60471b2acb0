package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"walletlens/internal/taxlot"
)

// WriteTaxSummaryCSV writes the full result of a calculation: a header block,
// the summary totals, then one table each for realized gains, open lots and
// warnings. Sections are separated by a blank record.
func WriteTaxSummaryCSV(w io.Writer, meta Meta, result *taxlot.Result) error {
	if result == nil {
		result = taxlot.Empty()
	}
	s := result.Summary

	records := [][]string{
		{"Tax Summary"},
		{"Method", result.Method},
		{"Address", meta.Address},
		{"Chain", meta.Chain},
		{"Asset", strings.ToUpper(meta.Symbol)},
	}
	if meta.TaxYear != 0 {
		records = append(records, []string{"Tax Year", fmt.Sprint(meta.TaxYear)})
	}
	records = append(records,
		[]string{"Generated At", meta.GeneratedAt.UTC().Format(time.RFC3339)},
		[]string{},
		[]string{"Summary"},
		[]string{"Total Realized Gain", money(s.TotalRealizedGain)},
		[]string{"Total Unrealized Gain", money(s.TotalUnrealizedGain)},
		[]string{"Total Gain", money(s.TotalGain)},
		[]string{"Short-Term Gains", money(s.ShortTermGains)},
		[]string{"Long-Term Gains", money(s.LongTermGains)},
		[]string{"Total Transactions", fmt.Sprint(s.TotalTransactions)},
		[]string{"Buy Count", fmt.Sprint(s.BuyCount)},
		[]string{"Sell Count", fmt.Sprint(s.SellCount)},
		[]string{},
		[]string{"Realized Gains"},
		[]string{"Sell Hash", "Buy Hash", "Amount", "Date Acquired", "Date Disposed", "Cost Basis", "Proceeds", "Gain/Loss", "Holding Period"},
	)

	for _, g := range result.RealizedGains {
		records = append(records, []string{
			g.SellHash,
			g.BuyHash,
			g.MatchedAmount.String(),
			isoDate(g.AcquiredAt),
			isoDate(g.DisposedAt),
			money(g.CostBasis),
			money(g.Proceeds),
			money(g.GainLoss),
			string(g.HoldingPeriod),
		})
	}

	u := result.UnrealizedGains
	records = append(records,
		[]string{},
		[]string{"Unrealized Gains"},
		[]string{"Source Hash", "Date Acquired", "Remaining Amount", "Unit Cost", "Current Price", "Cost Basis", "Current Value", "Unrealized Gain", "Gain %"},
	)
	for _, l := range u.Lots {
		records = append(records, []string{
			l.SourceHash,
			isoDate(l.AcquiredAt),
			l.RemainingAmount.String(),
			money(l.UnitCostUSD),
			money(l.CurrentUnitPriceUSD),
			money(l.CostBasis),
			money(l.CurrentValue),
			money(l.UnrealizedGain),
			money(l.GainPercentage),
		})
	}
	records = append(records, []string{"Total", "", "", "", "", money(u.TotalCostBasis), money(u.TotalCurrentValue), money(u.TotalGain), money(u.TotalGainPercentage)})

	if len(result.Warnings) > 0 {
		records = append(records, []string{}, []string{"Warnings"}, []string{"Code", "Hash", "Amount", "Message"})
		for _, warn := range result.Warnings {
			records = append(records, []string{string(warn.Code), warn.Hash, warn.Amount.String(), warn.Message})
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write tax summary csv: %w", err)
	}
	return nil
}
