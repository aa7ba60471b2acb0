package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"walletlens/internal/taxlot"
)

// dateVarious is what Form 8949 expects when a date is not known.
const dateVarious = "VARIOUS"

// Form8949Row is one line of Form 8949 Part I (short-term) or Part II (long-term).
type Form8949Row struct {
	Description    string               `json:"description"`
	DateAcquired   string               `json:"date_acquired"`
	DateSold       string               `json:"date_sold"`
	Proceeds       decimal.Decimal      `json:"proceeds"`
	CostBasis      decimal.Decimal      `json:"cost_basis"`
	AdjustmentCode string               `json:"adjustment_code"`
	GainLoss       decimal.Decimal      `json:"gain_loss"`
	HoldingPeriod  taxlot.HoldingPeriod `json:"holding_period"`
}

// Form8949Rows turns realized gains into Form 8949 rows, keeping input order.
func Form8949Rows(gains []taxlot.RealizedGain, symbol string, filter HoldingFilter) []Form8949Row {
	kept := lo.Filter(gains, func(g taxlot.RealizedGain, _ int) bool {
		return filter.keep(g.HoldingPeriod)
	})
	return lo.Map(kept, func(g taxlot.RealizedGain, _ int) Form8949Row {
		return Form8949Row{
			Description:   strings.TrimSpace(g.MatchedAmount.String() + " " + strings.ToUpper(symbol)),
			DateAcquired:  formDate(g.AcquiredAt),
			DateSold:      formDate(g.DisposedAt),
			Proceeds:      g.Proceeds,
			CostBasis:     g.CostBasis,
			GainLoss:      g.GainLoss,
			HoldingPeriod: g.HoldingPeriod,
		}
	})
}

func formDate(t *time.Time) string {
	if t == nil {
		return dateVarious
	}
	return t.UTC().Format("01/02/2006")
}

type partTotals struct {
	Proceeds  decimal.Decimal
	CostBasis decimal.Decimal
	GainLoss  decimal.Decimal
}

func totalRows(rows []Form8949Row) partTotals {
	return lo.Reduce(rows, func(acc partTotals, r Form8949Row, _ int) partTotals {
		return partTotals{
			Proceeds:  acc.Proceeds.Add(r.Proceeds),
			CostBasis: acc.CostBasis.Add(r.CostBasis),
			GainLoss:  acc.GainLoss.Add(r.GainLoss),
		}
	}, partTotals{})
}

func splitParts(rows []Form8949Row) (short, long []Form8949Row) {
	short = lo.Filter(rows, func(r Form8949Row, _ int) bool { return r.HoldingPeriod == taxlot.ShortTerm })
	long = lo.Filter(rows, func(r Form8949Row, _ int) bool { return r.HoldingPeriod != taxlot.ShortTerm })
	return short, long
}

var form8949Header = []string{
	"Part",
	"(a) Description of property",
	"(b) Date acquired",
	"(c) Date sold or disposed of",
	"(d) Proceeds",
	"(e) Cost or other basis",
	"(f) Code(s)",
	"(g) Adjustment",
	"(h) Gain or (loss)",
}

// WriteForm8949CSV writes rows as CSV, short-term rows (Part I) first.
func WriteForm8949CSV(w io.Writer, rows []Form8949Row) error {
	if len(rows) == 0 {
		return ErrNoRealizedGains
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(form8949Header); err != nil {
		return err
	}

	short, long := splitParts(rows)
	for _, part := range []struct {
		name string
		rows []Form8949Row
	}{{"I", short}, {"II", long}} {
		for _, r := range part.rows {
			record := []string{
				part.name,
				r.Description,
				r.DateAcquired,
				r.DateSold,
				money(r.Proceeds),
				money(r.CostBasis),
				r.AdjustmentCode,
				"",
				money(r.GainLoss),
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteForm8949PDF renders rows as a landscape PDF with one table per part.
func WriteForm8949PDF(w io.Writer, meta Meta, rows []Form8949Row) error {
	if len(rows) == 0 {
		return ErrNoRealizedGains
	}

	pdf := gofpdf.New("L", "mm", "Letter", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(false, 12)
	pdf.AddPage()

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 9, "Form 8949 - Sales and Other Dispositions of Capital Assets")
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(80, 80, 80)
	year := "All years"
	if meta.TaxYear != 0 {
		year = fmt.Sprintf("%d", meta.TaxYear)
	}
	pdf.Cell(0, 5, fmt.Sprintf("Tax year: %s   Asset: %s   Method: %s", year, strings.ToUpper(meta.Symbol), taxlot.Method))
	pdf.Ln(5)
	if meta.Address != "" {
		pdf.Cell(0, 5, "Address: "+meta.Address)
		pdf.Ln(5)
	}
	pdf.Ln(3)

	short, long := splitParts(rows)
	if len(short) > 0 {
		writeForm8949Part(pdf, partTitle(taxlot.ShortTerm), short)
	}
	if len(long) > 0 {
		writeForm8949Part(pdf, partTitle(taxlot.LongTerm), long)
	}

	pdf.SetY(-16)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 8, "Generated "+meta.GeneratedAt.UTC().Format(time.RFC3339), "", 0, "C", false, 0, "")

	return pdf.Output(w)
}

// partTitle captions a PDF part with the same cutoff ClassifyHoldingPeriod
// applies: 365 days or more is long-term.
func partTitle(p taxlot.HoldingPeriod) string {
	if p == taxlot.LongTerm {
		return "Part II - Long-Term (held 365 days or more)"
	}
	return "Part I - Short-Term (held less than 365 days)"
}

var form8949ColW = []float64{70, 28, 28, 34, 34, 18, 42}

func writeForm8949Header(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(245, 245, 245)
	pdf.SetTextColor(20, 20, 20)
	labels := []string{"(a) Description", "(b) Acquired", "(c) Sold", "(d) Proceeds", "(e) Cost basis", "(f) Code", "(h) Gain or (loss)"}
	for i, label := range labels {
		ln := 0
		if i == len(labels)-1 {
			ln = 1
		}
		pdf.CellFormat(form8949ColW[i], 7, label, "1", ln, "C", true, 0, "")
	}
	pdf.SetFont("Helvetica", "", 8)
}

func writeForm8949Part(pdf *gofpdf.Fpdf, title string, rows []Form8949Row) {
	_, pageH := pdf.GetPageSize()

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(20, 20, 20)
	pdf.Cell(0, 7, title)
	pdf.Ln(7)
	writeForm8949Header(pdf)

	for _, r := range rows {
		if pdf.GetY() > pageH-28 {
			pdf.AddPage()
			writeForm8949Header(pdf)
		}
		pdf.CellFormat(form8949ColW[0], 6, r.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(form8949ColW[1], 6, r.DateAcquired, "1", 0, "C", false, 0, "")
		pdf.CellFormat(form8949ColW[2], 6, r.DateSold, "1", 0, "C", false, 0, "")
		pdf.CellFormat(form8949ColW[3], 6, money(r.Proceeds), "1", 0, "R", false, 0, "")
		pdf.CellFormat(form8949ColW[4], 6, money(r.CostBasis), "1", 0, "R", false, 0, "")
		pdf.CellFormat(form8949ColW[5], 6, r.AdjustmentCode, "1", 0, "C", false, 0, "")
		pdf.CellFormat(form8949ColW[6], 6, money(r.GainLoss), "1", 1, "R", false, 0, "")
	}

	t := totalRows(rows)
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(form8949ColW[0]+form8949ColW[1]+form8949ColW[2], 6, "Totals", "1", 0, "R", true, 0, "")
	pdf.CellFormat(form8949ColW[3], 6, money(t.Proceeds), "1", 0, "R", true, 0, "")
	pdf.CellFormat(form8949ColW[4], 6, money(t.CostBasis), "1", 0, "R", true, 0, "")
	pdf.CellFormat(form8949ColW[5], 6, "", "1", 0, "C", true, 0, "")
	pdf.CellFormat(form8949ColW[6], 6, money(t.GainLoss), "1", 1, "R", true, 0, "")
	pdf.Ln(5)
}
