package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"walletlens/internal/taxlot"
)

// ScheduleDTotals are the column totals of one Schedule D part.
type ScheduleDTotals struct {
	Count     int             `json:"count"`
	Proceeds  decimal.Decimal `json:"proceeds"`
	CostBasis decimal.Decimal `json:"cost_basis"`
	GainLoss  decimal.Decimal `json:"gain_loss"`
}

// ScheduleDSummary is the Schedule D roll-up of one tax year.
type ScheduleDSummary struct {
	TaxYear   int             `json:"tax_year"`
	ShortTerm ScheduleDTotals `json:"short_term"`
	LongTerm  ScheduleDTotals `json:"long_term"`
	NetGain   decimal.Decimal `json:"net_gain"`
}

// ScheduleD totals the gains disposed of in year by holding period.
func ScheduleD(gains []taxlot.RealizedGain, year int) (ScheduleDSummary, error) {
	inYear := FilterByTaxYear(gains, year)
	if len(inYear) == 0 {
		return ScheduleDSummary{}, ErrNoRealizedGains
	}

	totals := lo.Reduce(inYear, func(acc map[taxlot.HoldingPeriod]ScheduleDTotals, g taxlot.RealizedGain, _ int) map[taxlot.HoldingPeriod]ScheduleDTotals {
		t := acc[g.HoldingPeriod]
		t.Count++
		t.Proceeds = t.Proceeds.Add(g.Proceeds)
		t.CostBasis = t.CostBasis.Add(g.CostBasis)
		t.GainLoss = t.GainLoss.Add(g.GainLoss)
		acc[g.HoldingPeriod] = t
		return acc
	}, map[taxlot.HoldingPeriod]ScheduleDTotals{})

	s := ScheduleDSummary{
		TaxYear:   year,
		ShortTerm: totals[taxlot.ShortTerm],
		LongTerm:  totals[taxlot.LongTerm],
	}
	s.NetGain = s.ShortTerm.GainLoss.Add(s.LongTerm.GainLoss)
	return s, nil
}

// WriteScheduleDText renders s as a plain-text worksheet.
func WriteScheduleDText(w io.Writer, meta Meta, s ScheduleDSummary) error {
	var b strings.Builder
	fmt.Fprintln(&b, "SCHEDULE D (Form 1040) - Capital Gains and Losses")
	fmt.Fprintf(&b, "Tax Year: %d\n", s.TaxYear)
	if meta.Address != "" {
		fmt.Fprintf(&b, "Address: %s\n", meta.Address)
	}
	if meta.Chain != "" {
		fmt.Fprintf(&b, "Chain: %s\n", meta.Chain)
	}
	fmt.Fprintf(&b, "Asset: %s\n", strings.ToUpper(meta.Symbol))
	fmt.Fprintf(&b, "Method: %s\n", taxlot.Method)
	fmt.Fprintf(&b, "Generated: %s\n\n", meta.GeneratedAt.UTC().Format(time.RFC3339))

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "\tTransactions\tProceeds\tCost basis\tGain or (loss)\t")
	fmt.Fprintf(tw, "Part I - Short-Term (line 1b)\t%d\t%s\t%s\t%s\t\n",
		s.ShortTerm.Count, money(s.ShortTerm.Proceeds), money(s.ShortTerm.CostBasis), money(s.ShortTerm.GainLoss))
	fmt.Fprintf(tw, "Part II - Long-Term (line 8b)\t%d\t%s\t%s\t%s\t\n",
		s.LongTerm.Count, money(s.LongTerm.Proceeds), money(s.LongTerm.CostBasis), money(s.LongTerm.GainLoss))
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(&b, "\nLine 7  Net short-term capital gain or (loss): %s\n", money(s.ShortTerm.GainLoss))
	fmt.Fprintf(&b, "Line 15 Net long-term capital gain or (loss):  %s\n", money(s.LongTerm.GainLoss))
	fmt.Fprintf(&b, "Line 16 Net capital gain or (loss):            %s\n", money(s.NetGain))

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteScheduleDCSV renders s as CSV, one record per line of the form.
func WriteScheduleDCSV(w io.Writer, meta Meta, s ScheduleDSummary) error {
	records := [][]string{
		{"Schedule D", fmt.Sprint(s.TaxYear)},
		{"Asset", strings.ToUpper(meta.Symbol)},
		{"Method", taxlot.Method},
		{"Part", "Line", "Transactions", "Proceeds", "Cost Basis", "Gain/Loss"},
		{"I", "1b", fmt.Sprint(s.ShortTerm.Count), money(s.ShortTerm.Proceeds), money(s.ShortTerm.CostBasis), money(s.ShortTerm.GainLoss)},
		{"II", "8b", fmt.Sprint(s.LongTerm.Count), money(s.LongTerm.Proceeds), money(s.LongTerm.CostBasis), money(s.LongTerm.GainLoss)},
		{"III", "16", "", "", "", money(s.NetGain)},
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write schedule d csv: %w", err)
	}
	return nil
}
