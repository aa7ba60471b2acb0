package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "walletlens/internal/errors"
	"walletlens/internal/pagination"
	"walletlens/internal/report"
	"walletlens/internal/services"
	"walletlens/internal/taxlot"
)

const defaultChain = "ethereum"

// TaxHandler handles FIFO calculations and tax document exports.
type TaxHandler struct {
	taxService   services.TaxServicer
	auditService services.AuditServicer
	now          func() time.Time
}

// NewTaxHandler creates a new TaxHandler.
func NewTaxHandler(taxService services.TaxServicer, auditService services.AuditServicer) *TaxHandler {
	return &TaxHandler{taxService: taxService, auditService: auditService, now: time.Now}
}

// TransactionRequest is one on-chain transfer of the asset.
// Timestamp is in unix seconds; UnitPriceUSD is looked up when omitted.
// Amount has no default: a missing or null amount is rejected.
type TransactionRequest struct {
	Hash         string           `json:"hash" binding:"required,max=128"`
	Direction    string           `json:"direction" binding:"required,direction"`
	Amount       *decimal.Decimal `json:"amount" binding:"required" swaggertype:"string"`
	Timestamp    *int64           `json:"timestamp" binding:"omitempty,min=0"`
	UnitPriceUSD *decimal.Decimal `json:"unit_price_usd" swaggertype:"string"`
}

// CalculateTaxRequest represents the request payload for a FIFO calculation.
type CalculateTaxRequest struct {
	Address         string               `json:"address" binding:"required,max=128"`
	Chain           string               `json:"chain" binding:"omitempty,chain"`
	Symbol          string               `json:"symbol" binding:"required,max=20"`
	Transactions    []TransactionRequest `json:"transactions" binding:"dive"`
	CurrentBalance  *decimal.Decimal     `json:"current_balance" binding:"required" swaggertype:"string"`
	CurrentPriceUSD *decimal.Decimal     `json:"current_price_usd" swaggertype:"string"`
}

// PipelineCalculateRequest is the stateless calculation payload used by
// internal pipelines. Address is optional because nothing is stored.
type PipelineCalculateRequest struct {
	Symbol          string               `json:"symbol" binding:"required,max=20"`
	Transactions    []TransactionRequest `json:"transactions" binding:"dive"`
	CurrentBalance  *decimal.Decimal     `json:"current_balance" binding:"required" swaggertype:"string"`
	CurrentPriceUSD *decimal.Decimal     `json:"current_price_usd" swaggertype:"string"`
}

// ExportSummaryRequest selects a stored report for the Tax Summary CSV.
type ExportSummaryRequest struct {
	ReportID string `json:"report_id" binding:"required,uuid"`
	TaxYear  int    `json:"tax_year" binding:"omitempty,min=2020"`
}

// ExportForm8949Request selects a stored report and the Form 8949 rows to render.
type ExportForm8949Request struct {
	ReportID string `json:"report_id" binding:"required,uuid"`
	TaxYear  int    `json:"tax_year" binding:"omitempty,min=2020"`
	Filter   string `json:"filter" binding:"omitempty,holding_filter"`
	Format   string `json:"format" binding:"omitempty,form8949_format"`
}

// ExportScheduleDRequest selects a stored report and the year to total.
type ExportScheduleDRequest struct {
	ReportID string `json:"report_id" binding:"required,uuid"`
	TaxYear  int    `json:"tax_year" binding:"required,min=2020"`
	Format   string `json:"format" binding:"omitempty,schedule_d_format"`
}

// SupportedYearsResponse lists the tax years documents can be generated for.
type SupportedYearsResponse struct {
	Years []int `json:"years"`
}

func toTransactionInputs(reqs []TransactionRequest) []services.TransactionInput {
	txs := make([]services.TransactionInput, 0, len(reqs))
	for _, r := range reqs {
		tx := services.TransactionInput{
			Hash:         r.Hash,
			Direction:    taxlot.Direction(r.Direction),
			Amount:       *r.Amount,
			UnitPriceUSD: r.UnitPriceUSD,
		}
		if r.Timestamp != nil {
			ts := time.Unix(*r.Timestamp, 0).UTC()
			tx.Timestamp = &ts
		}
		txs = append(txs, tx)
	}
	return txs
}

// CalculateTax runs a FIFO calculation and stores it as a report.
// @Summary     Calculate FIFO gains
// @Description Match disposals against acquisitions first-in first-out and store the result
// @Tags        tax
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CalculateTaxRequest true "Transactions for one asset"
// @Success     201 {object} services.TaxCalculation "Calculation stored"
// @Failure     400 {object} ErrorResponse "Invalid input or transaction"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Premium tier required"
// @Failure     502 {object} ErrorResponse "Price unavailable"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /tax/calculate [post]
func (h *TaxHandler) CalculateTax(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CalculateTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	chain := req.Chain
	if chain == "" {
		chain = defaultChain
	}

	calc, err := h.taxService.CalculateTax(c.Request.Context(), userID, services.CalculateTaxRequest{
		Address:         req.Address,
		Chain:           chain,
		Symbol:          req.Symbol,
		Transactions:    toTransactionInputs(req.Transactions),
		CurrentBalance:  *req.CurrentBalance,
		CurrentPriceUSD: req.CurrentPriceUSD,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditTaxCalculate, services.AuditResourceTaxReport, calc.Report.ID, c.ClientIP(),
		map[string]interface{}{
			"address":      calc.Report.Address,
			"chain":        calc.Report.Chain,
			"symbol":       calc.Report.Symbol,
			"transactions": len(req.Transactions),
		})

	c.JSON(http.StatusCreated, calc)
}

// PipelineCalculate runs a FIFO calculation without storing it.
// @Summary     Calculate FIFO gains (pipeline)
// @Description Stateless calculation for internal pipelines authenticated by API key
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       X-API-Key header string true "Pipeline API key"
// @Param       request body PipelineCalculateRequest true "Transactions for one asset"
// @Success     200 {object} map[string]taxlot.Result "Calculation result"
// @Failure     400 {object} ErrorResponse "Invalid input or transaction"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     502 {object} ErrorResponse "Price unavailable"
// @Router      /pipeline/tax/calculate [post]
func (h *TaxHandler) PipelineCalculate(c *gin.Context) {
	var req PipelineCalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.taxService.Calculate(c.Request.Context(), services.CalculateTaxRequest{
		Symbol:          req.Symbol,
		Transactions:    toTransactionInputs(req.Transactions),
		CurrentBalance:  *req.CurrentBalance,
		CurrentPriceUSD: req.CurrentPriceUSD,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// ListReports handles listing stored reports.
// @Summary     List tax reports
// @Description Get a paginated list of stored calculations, newest first
// @Tags        tax
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.TaxReport] "Paginated reports"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /tax/reports [get]
func (h *TaxHandler) ListReports(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.taxService.ListReports(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetReport handles fetching one stored report with its full result.
// @Summary     Get a tax report
// @Tags        tax
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Report ID"
// @Success     200 {object} services.TaxCalculation "Report"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Report not found"
// @Router      /tax/reports/{id} [get]
func (h *TaxHandler) GetReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	reportID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	calc, err := h.taxService.GetReport(userID, reportID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, calc)
}

// ExportSummary renders a stored report as the Tax Summary CSV.
// @Summary     Export Tax Summary CSV
// @Tags        tax
// @Accept      json
// @Produce     text/csv
// @Security    BearerAuth
// @Param       request body ExportSummaryRequest true "Report selection"
// @Success     200 {file} file "Tax Summary CSV"
// @Failure     400 {object} ErrorResponse "Invalid input or tax year"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Premium tier required"
// @Failure     404 {object} ErrorResponse "Report not found"
// @Router      /tax/export-summary [post]
func (h *TaxHandler) ExportSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ExportSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	opts := services.ExportOptions{TaxYear: req.TaxYear, Format: services.FormatCSV}
	export, err := h.taxService.ExportSummaryCSV(userID, req.ReportID, opts)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.sendExport(c, userID, services.AuditTaxExportSummary, req.ReportID, opts, export)
}

// ExportForm8949 renders a stored report as IRS Form 8949 rows.
// @Summary     Export Form 8949
// @Description CSV or PDF; filter selects short-term, long-term or all rows
// @Tags        tax
// @Accept      json
// @Produce     text/csv,application/pdf
// @Security    BearerAuth
// @Param       request body ExportForm8949Request true "Report selection"
// @Success     200 {file} file "Form 8949"
// @Failure     400 {object} ErrorResponse "Invalid input, tax year, or no realized gains"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Premium tier required"
// @Failure     404 {object} ErrorResponse "Report not found"
// @Router      /tax/export-form-8949 [post]
func (h *TaxHandler) ExportForm8949(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ExportForm8949Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	opts := services.ExportOptions{
		TaxYear: req.TaxYear,
		Filter:  report.HoldingFilter(req.Filter),
		Format:  req.Format,
	}
	export, err := h.taxService.ExportForm8949(userID, req.ReportID, opts)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.sendExport(c, userID, services.AuditTaxExportForm8949, req.ReportID, opts, export)
}

// ExportScheduleD renders Schedule D totals for one tax year.
// @Summary     Export Schedule D
// @Tags        tax
// @Accept      json
// @Produce     text/plain,text/csv
// @Security    BearerAuth
// @Param       request body ExportScheduleDRequest true "Report selection"
// @Success     200 {file} file "Schedule D"
// @Failure     400 {object} ErrorResponse "Invalid input, tax year, or no realized gains"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Premium tier required"
// @Failure     404 {object} ErrorResponse "Report not found"
// @Router      /tax/export-schedule-d [post]
func (h *TaxHandler) ExportScheduleD(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ExportScheduleDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	opts := services.ExportOptions{TaxYear: req.TaxYear, Format: req.Format}
	export, err := h.taxService.ExportScheduleD(userID, req.ReportID, opts)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.sendExport(c, userID, services.AuditTaxExportScheduleD, req.ReportID, opts, export)
}

// SupportedYears lists the tax years accepted by the export endpoints.
// @Summary     Supported tax years
// @Tags        tax
// @Produce     json
// @Success     200 {object} SupportedYearsResponse "Years, newest first"
// @Router      /tax/supported-years [get]
func (h *TaxHandler) SupportedYears(c *gin.Context) {
	c.JSON(http.StatusOK, SupportedYearsResponse{Years: report.SupportedTaxYears(h.now())})
}

func (h *TaxHandler) sendExport(c *gin.Context, userID, action, reportID string, opts services.ExportOptions, export *services.Export) {
	changes := map[string]interface{}{"filename": export.Filename}
	if opts.TaxYear != 0 {
		changes["tax_year"] = opts.TaxYear
	}
	if opts.Filter != "" {
		changes["filter"] = string(opts.Filter)
	}
	h.auditService.Log(userID, action, services.AuditResourceTaxReport, reportID, c.ClientIP(), changes)

	c.Header("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(export.Filename, `"`, "")+`"`)
	c.Data(http.StatusOK, export.ContentType, export.Body)
}
