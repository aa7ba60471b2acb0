package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"walletlens/internal/models"
	"walletlens/internal/pagination"
	"walletlens/internal/report"
	"walletlens/internal/taxlot"
)

// TransactionInput is one transaction as submitted for a calculation.
// A nil UnitPriceUSD is resolved from the price source.
type TransactionInput struct {
	Hash         string
	Direction    taxlot.Direction
	Amount       decimal.Decimal
	Timestamp    *time.Time
	UnitPriceUSD *decimal.Decimal
}

// CalculateTaxRequest is the input of a FIFO calculation for one asset.
// A nil CurrentPriceUSD is resolved from the price source.
type CalculateTaxRequest struct {
	Address         string
	Chain           string
	Symbol          string
	Transactions    []TransactionInput
	CurrentBalance  decimal.Decimal
	CurrentPriceUSD *decimal.Decimal
}

// TaxCalculation is a persisted calculation and its full result.
type TaxCalculation struct {
	Report *models.TaxReport `json:"report"`
	Result *taxlot.Result    `json:"result"`
}

// ExportOptions selects what goes into an exported document.
// TaxYear zero means every year.
type ExportOptions struct {
	TaxYear int
	Filter  report.HoldingFilter
	Format  string
}

// Export is a rendered document ready to be sent to the client.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

// TaxServicer defines the contract for tax calculation and reporting.
type TaxServicer interface {
	Calculate(ctx context.Context, req CalculateTaxRequest) (*taxlot.Result, error)
	CalculateTax(ctx context.Context, userID string, req CalculateTaxRequest) (*TaxCalculation, error)
	GetReport(userID, reportID string) (*TaxCalculation, error)
	ListReports(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.TaxReport], error)
	ExportSummaryCSV(userID, reportID string, opts ExportOptions) (*Export, error)
	ExportForm8949(userID, reportID string, opts ExportOptions) (*Export, error)
	ExportScheduleD(userID, reportID string, opts ExportOptions) (*Export, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
