package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"walletlens/internal/models"
	"walletlens/internal/taxlot"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// NewUserID returns a unique external user id.
func NewUserID() string {
	return fmt.Sprintf("user-%d", nextID())
}

// NewAddress returns a unique wallet address.
func NewAddress() string {
	return fmt.Sprintf("0x%040x", nextID())
}

// Day returns midnight UTC of the given date.
func Day(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

// Buy builds an acquisition.
func Buy(hash, amount, price string, at *time.Time) taxlot.Transaction {
	return taxlot.Transaction{
		Hash:         hash,
		Direction:    taxlot.DirectionReceived,
		Amount:       decimal.RequireFromString(amount),
		Timestamp:    at,
		UnitPriceUSD: decimal.RequireFromString(price),
	}
}

// Sell builds a disposal.
func Sell(hash, amount, price string, at *time.Time) taxlot.Transaction {
	tx := Buy(hash, amount, price, at)
	tx.Direction = taxlot.DirectionSent
	return tx
}

// SampleResult is a 2023-2024 ETH history with one short-term and one
// long-term disposal and one open lot:
//
//	b1 2 @ 1000 (2023-01-10)   b2 1 @ 2000 (2024-01-05)
//	s1 1 @ 1500 (2023-06-01)   s2 1.5 @ 3000 (2024-03-01)
//
// current price 2500, balance 0.5.
func SampleResult(t *testing.T) *taxlot.Result {
	t.Helper()

	result, err := taxlot.Calculate(taxlot.Input{
		Transactions: []taxlot.Transaction{
			Buy("b1", "2", "1000", Day(2023, 1, 10)),
			Sell("s1", "1", "1500", Day(2023, 6, 1)),
			Buy("b2", "1", "2000", Day(2024, 1, 5)),
			Sell("s2", "1.5", "3000", Day(2024, 3, 1)),
		},
		CurrentBalance:      decimal.RequireFromString("0.5"),
		CurrentUnitPriceUSD: decimal.RequireFromString("2500"),
	})
	if err != nil {
		t.Fatalf("failed to calculate sample result: %v", err)
	}
	return result
}

// CreateTestTaxReport stores SampleResult for userID.
func CreateTestTaxReport(t *testing.T, db *gorm.DB, userID string) *models.TaxReport {
	t.Helper()
	return CreateTestTaxReportWithResult(t, db, userID, SampleResult(t))
}

// CreateTestTaxReportWithResult stores result for userID under a fresh address.
func CreateTestTaxReportWithResult(t *testing.T, db *gorm.DB, userID string, result *taxlot.Result) *models.TaxReport {
	t.Helper()

	taxReport := &models.TaxReport{
		UserID:          userID,
		Address:         NewAddress(),
		Chain:           "ethereum",
		Symbol:          "ETH",
		CurrentBalance:  taxlot.OpenAmount(result.RemainingLots),
		CurrentPriceUSD: decimal.RequireFromString("2500"),
	}
	if err := taxReport.SetResult(result); err != nil {
		t.Fatalf("failed to encode tax result: %v", err)
	}
	if err := db.Create(taxReport).Error; err != nil {
		t.Fatalf("failed to create test tax report: %v", err)
	}
	return taxReport
}
