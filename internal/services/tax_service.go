package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "walletlens/internal/errors"
	"walletlens/internal/logger"
	"walletlens/internal/models"
	"walletlens/internal/pagination"
	"walletlens/internal/pricing"
	"walletlens/internal/report"
	"walletlens/internal/taxlot"
)

// maxPriceLookups bounds concurrent historical price requests per calculation.
const maxPriceLookups = 4

// Export formats.
const (
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
	FormatText = "text"
)

// taxService prices transactions, runs the FIFO engine, stores the result and
// renders stored results into documents.
type taxService struct {
	db     *gorm.DB
	prices pricing.Source
	now    func() time.Time
}

// NewTaxService creates a new TaxServicer.
func NewTaxService(db *gorm.DB, prices pricing.Source) TaxServicer {
	return &taxService{db: db, prices: prices, now: time.Now}
}

// Calculate prices and runs a calculation without storing it.
func (s *taxService) Calculate(ctx context.Context, req CalculateTaxRequest) (*taxlot.Result, error) {
	result, _, err := s.calculate(ctx, req)
	return result, err
}

func (s *taxService) calculate(ctx context.Context, req CalculateTaxRequest) (*taxlot.Result, decimal.Decimal, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, decimal.Zero, apperrors.WithMessage(apperrors.ErrInvalidInput, "symbol is required")
	}

	txs, missing := engineTransactions(sortTransactions(req.Transactions))

	// Reject malformed input before spending any price lookups on it.
	given := decimal.Zero
	if req.CurrentPriceUSD != nil {
		given = *req.CurrentPriceUSD
	}
	if err := taxlot.Validate(taxlot.Input{
		Transactions:        txs,
		CurrentBalance:      req.CurrentBalance,
		CurrentUnitPriceUSD: given,
	}); err != nil {
		return nil, decimal.Zero, engineError(err)
	}

	current, err := s.currentPrice(ctx, symbol, req.CurrentPriceUSD)
	if err != nil {
		return nil, decimal.Zero, err
	}

	warnings, err := s.priceTransactions(ctx, symbol, txs, missing, current)
	if err != nil {
		return nil, decimal.Zero, err
	}

	result, err := taxlot.Calculate(taxlot.Input{
		Transactions:        txs,
		CurrentBalance:      req.CurrentBalance,
		CurrentUnitPriceUSD: current,
	})
	if err != nil {
		return nil, decimal.Zero, engineError(err)
	}

	result.Warnings = append(warnings, result.Warnings...)
	return result, current, nil
}

// CalculateTax runs a calculation and stores it for userID.
func (s *taxService) CalculateTax(ctx context.Context, userID string, req CalculateTaxRequest) (*TaxCalculation, error) {
	if strings.TrimSpace(req.Address) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "address is required")
	}

	result, current, err := s.calculate(ctx, req)
	if err != nil {
		return nil, err
	}

	taxReport := &models.TaxReport{
		UserID:          userID,
		Address:         strings.TrimSpace(req.Address),
		Chain:           strings.ToLower(strings.TrimSpace(req.Chain)),
		Symbol:          strings.ToUpper(strings.TrimSpace(req.Symbol)),
		CurrentBalance:  req.CurrentBalance,
		CurrentPriceUSD: current,
	}
	if err := taxReport.SetResult(result); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.db.WithContext(ctx).Create(taxReport).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &TaxCalculation{Report: taxReport, Result: result}, nil
}

// GetReport retrieves a stored calculation by ID for a specific user.
func (s *taxService) GetReport(userID, reportID string) (*TaxCalculation, error) {
	var taxReport models.TaxReport
	if err := s.db.Where("id = ? AND user_id = ?", reportID, userID).First(&taxReport).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTaxReportNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result, err := taxReport.DecodeResult()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &TaxCalculation{Report: &taxReport, Result: result}, nil
}

// ListReports retrieves a paginated list of stored calculations, newest first.
func (s *taxService) ListReports(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.TaxReport], error) {
	page.Defaults()

	var totalItems int64
	if err := s.db.Model(&models.TaxReport{}).Where("user_id = ?", userID).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var reports []models.TaxReport
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&reports).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(reports, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// ExportSummaryCSV renders a stored calculation as the tax summary CSV.
// A non-zero tax year limits the realized gains and their totals to that year.
func (s *taxService) ExportSummaryCSV(userID, reportID string, opts ExportOptions) (*Export, error) {
	calc, meta, err := s.loadForExport(userID, reportID, opts.TaxYear)
	if err != nil {
		return nil, err
	}

	result := report.ForTaxYear(calc.Result, opts.TaxYear)

	var buf bytes.Buffer
	if err := report.WriteTaxSummaryCSV(&buf, meta, result); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &Export{
		Filename:    exportFilename("tax-summary", meta, FormatCSV),
		ContentType: "text/csv",
		Body:        buf.Bytes(),
	}, nil
}

// ExportForm8949 renders the realized gains of a stored calculation as
// Form 8949 in CSV or PDF.
func (s *taxService) ExportForm8949(userID, reportID string, opts ExportOptions) (*Export, error) {
	format := opts.Format
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatPDF {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "format must be csv or pdf")
	}
	filter := opts.Filter
	if filter == "" {
		filter = report.FilterAll
	}
	if !filter.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "filter must be all, short-term or long-term")
	}

	calc, meta, err := s.loadForExport(userID, reportID, opts.TaxYear)
	if err != nil {
		return nil, err
	}

	rows := report.Form8949Rows(report.FilterByTaxYear(calc.Result.RealizedGains, opts.TaxYear), meta.Symbol, filter)

	var buf bytes.Buffer
	export := &Export{Filename: exportFilename("form-8949", meta, format)}
	if format == FormatPDF {
		err = report.WriteForm8949PDF(&buf, meta, rows)
		export.ContentType = "application/pdf"
	} else {
		err = report.WriteForm8949CSV(&buf, rows)
		export.ContentType = "text/csv"
	}
	if err != nil {
		return nil, exportError(err)
	}
	export.Body = buf.Bytes()
	return export, nil
}

// ExportScheduleD renders the Schedule D totals of a stored calculation for
// one tax year as text or CSV.
func (s *taxService) ExportScheduleD(userID, reportID string, opts ExportOptions) (*Export, error) {
	format := opts.Format
	if format == "" {
		format = FormatText
	}
	if format != FormatText && format != FormatCSV {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "format must be text or csv")
	}
	if opts.TaxYear == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidTaxYear, "tax_year is required")
	}

	calc, meta, err := s.loadForExport(userID, reportID, opts.TaxYear)
	if err != nil {
		return nil, err
	}

	sched, err := report.ScheduleD(calc.Result.RealizedGains, opts.TaxYear)
	if err != nil {
		return nil, exportError(err)
	}

	var buf bytes.Buffer
	export := &Export{}
	if format == FormatCSV {
		err = report.WriteScheduleDCSV(&buf, meta, sched)
		export.ContentType = "text/csv"
		export.Filename = exportFilename("schedule-d", meta, FormatCSV)
	} else {
		err = report.WriteScheduleDText(&buf, meta, sched)
		export.ContentType = "text/plain"
		export.Filename = exportFilename("schedule-d", meta, "txt")
	}
	if err != nil {
		return nil, exportError(err)
	}
	export.Body = buf.Bytes()
	return export, nil
}

func (s *taxService) loadForExport(userID, reportID string, taxYear int) (*TaxCalculation, report.Meta, error) {
	if taxYear != 0 && !report.ValidTaxYear(taxYear, s.now()) {
		return nil, report.Meta{}, apperrors.WithMessage(apperrors.ErrInvalidTaxYear,
			fmt.Sprintf("tax_year must be between %d and %d", report.MinTaxYear, s.now().UTC().Year()))
	}

	calc, err := s.GetReport(userID, reportID)
	if err != nil {
		return nil, report.Meta{}, err
	}

	meta := report.Meta{
		Address:     calc.Report.Address,
		Chain:       calc.Report.Chain,
		Symbol:      calc.Report.Symbol,
		TaxYear:     taxYear,
		GeneratedAt: s.now(),
	}
	return calc, meta, nil
}

func exportError(err error) error {
	if errors.Is(err, report.ErrNoRealizedGains) {
		return apperrors.ErrNoRealizedGains
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

func exportFilename(kind string, meta report.Meta, ext string) string {
	addr := meta.Address
	if len(addr) > 10 {
		addr = addr[:10]
	}
	name := kind + "-" + strings.ToLower(meta.Symbol)
	if addr != "" {
		name += "-" + strings.ToLower(addr)
	}
	if meta.TaxYear != 0 {
		name += fmt.Sprintf("-%d", meta.TaxYear)
	}
	return name + "." + ext
}

// sortTransactions returns txs ordered oldest first. Transactions without a
// timestamp go last and keep their relative order.
func sortTransactions(txs []TransactionInput) []TransactionInput {
	sorted := make([]TransactionInput, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Timestamp, sorted[j].Timestamp
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return sorted
}

func (s *taxService) currentPrice(ctx context.Context, symbol string, given *decimal.Decimal) (decimal.Decimal, error) {
	if given != nil {
		if given.IsNegative() {
			return decimal.Zero, apperrors.WithMessage(apperrors.ErrInvalidInput, "current_price_usd must not be negative")
		}
		return *given, nil
	}
	if s.prices == nil {
		return decimal.Zero, apperrors.WithMessage(apperrors.ErrPriceUnavailable, "current_price_usd is required")
	}

	price, err := s.prices.CurrentPrice(ctx, symbol)
	if err != nil {
		if errors.Is(err, pricing.ErrUnknownSymbol) {
			return decimal.Zero, apperrors.Wrap(
				apperrors.WithMessage(apperrors.ErrPriceUnavailable, fmt.Sprintf("no price feed for %s; provide current_price_usd", symbol)), err)
		}
		return decimal.Zero, priceError(err)
	}
	return price, nil
}

// priceError maps a failed price lookup. A lookup cut short by the request
// deadline or by the client going away is a timeout, not a missing price.
func priceError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.Wrap(apperrors.ErrRequestTimeout, err)
	}
	return apperrors.Wrap(apperrors.ErrPriceUnavailable, err)
}

func engineError(err error) error {
	var inputErr *taxlot.InputError
	if errors.As(err, &inputErr) {
		return apperrors.WithMessage(apperrors.ErrInvalidTransaction, inputErr.Error())
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

// engineTransactions converts txs for the engine. missing marks the
// transactions whose unit price still has to be looked up.
func engineTransactions(txs []TransactionInput) ([]taxlot.Transaction, []bool) {
	out := make([]taxlot.Transaction, len(txs))
	missing := make([]bool, len(txs))
	for i, tx := range txs {
		out[i] = taxlot.Transaction{
			Hash:      tx.Hash,
			Direction: tx.Direction,
			Amount:    tx.Amount,
			Timestamp: tx.Timestamp,
		}
		if tx.UnitPriceUSD != nil {
			out[i].UnitPriceUSD = *tx.UnitPriceUSD
		} else {
			missing[i] = true
		}
	}
	return out, missing
}

// priceTransactions fills in the missing unit prices of txs with the
// historical price of the transaction's day, or the current price when that
// is unavailable.
func (s *taxService) priceTransactions(ctx context.Context, symbol string, txs []taxlot.Transaction, missing []bool, current decimal.Decimal) ([]taxlot.Warning, error) {
	fallback := make([]bool, len(txs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPriceLookups)
	for i := range txs {
		if !missing[i] || txs[i].Amount.IsZero() {
			continue
		}
		if txs[i].Timestamp == nil || s.prices == nil {
			txs[i].UnitPriceUSD = current
			fallback[i] = true
			continue
		}
		g.Go(func() error {
			price, err := s.prices.HistoricalPrice(gctx, symbol, *txs[i].Timestamp)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logger.Get().Warnw("historical price unavailable, using current price",
					"symbol", symbol,
					"hash", txs[i].Hash,
					"error", err,
				)
				txs[i].UnitPriceUSD = current
				fallback[i] = true
				return nil
			}
			txs[i].UnitPriceUSD = price
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, priceError(err)
	}

	var warnings []taxlot.Warning
	for i := range txs {
		if !fallback[i] {
			continue
		}
		warnings = append(warnings, taxlot.Warning{
			Code:    taxlot.WarningCurrentPriceFallback,
			Hash:    txs[i].Hash,
			Amount:  current,
			Message: fmt.Sprintf("no historical %s price for this transaction; valued at the current price", symbol),
		})
	}
	return warnings, nil
}
