package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "walletlens/internal/errors"
	"walletlens/internal/models"
	"walletlens/internal/pagination"
	"walletlens/internal/services"
	"walletlens/internal/taxlot"
	"walletlens/internal/validator"
)

// --- mock services ---

type mockTaxService struct {
	calculateFn       func(ctx context.Context, req services.CalculateTaxRequest) (*taxlot.Result, error)
	calculateTaxFn    func(ctx context.Context, userID string, req services.CalculateTaxRequest) (*services.TaxCalculation, error)
	getReportFn       func(userID, reportID string) (*services.TaxCalculation, error)
	listReportsFn     func(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.TaxReport], error)
	exportSummaryFn   func(userID, reportID string, opts services.ExportOptions) (*services.Export, error)
	exportForm8949Fn  func(userID, reportID string, opts services.ExportOptions) (*services.Export, error)
	exportScheduleDFn func(userID, reportID string, opts services.ExportOptions) (*services.Export, error)
}

func (m *mockTaxService) Calculate(ctx context.Context, req services.CalculateTaxRequest) (*taxlot.Result, error) {
	if m.calculateFn != nil {
		return m.calculateFn(ctx, req)
	}
	return taxlot.Empty(), nil
}

func (m *mockTaxService) CalculateTax(ctx context.Context, userID string, req services.CalculateTaxRequest) (*services.TaxCalculation, error) {
	if m.calculateTaxFn != nil {
		return m.calculateTaxFn(ctx, userID, req)
	}
	return &services.TaxCalculation{Report: &models.TaxReport{Base: models.Base{ID: testReportID}}, Result: taxlot.Empty()}, nil
}

func (m *mockTaxService) GetReport(userID, reportID string) (*services.TaxCalculation, error) {
	if m.getReportFn != nil {
		return m.getReportFn(userID, reportID)
	}
	return &services.TaxCalculation{Report: &models.TaxReport{}, Result: taxlot.Empty()}, nil
}

func (m *mockTaxService) ListReports(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.TaxReport], error) {
	if m.listReportsFn != nil {
		return m.listReportsFn(userID, page)
	}
	resp := pagination.NewPageResponse([]models.TaxReport{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTaxService) ExportSummaryCSV(userID, reportID string, opts services.ExportOptions) (*services.Export, error) {
	if m.exportSummaryFn != nil {
		return m.exportSummaryFn(userID, reportID, opts)
	}
	return &services.Export{Filename: "tax-summary-eth.csv", ContentType: "text/csv", Body: []byte("Tax Summary\n")}, nil
}

func (m *mockTaxService) ExportForm8949(userID, reportID string, opts services.ExportOptions) (*services.Export, error) {
	if m.exportForm8949Fn != nil {
		return m.exportForm8949Fn(userID, reportID, opts)
	}
	return &services.Export{Filename: "form-8949-eth.csv", ContentType: "text/csv", Body: []byte("Part\n")}, nil
}

func (m *mockTaxService) ExportScheduleD(userID, reportID string, opts services.ExportOptions) (*services.Export, error) {
	if m.exportScheduleDFn != nil {
		return m.exportScheduleDFn(userID, reportID, opts)
	}
	return &services.Export{Filename: "schedule-d-eth-2024.txt", ContentType: "text/plain", Body: []byte("SCHEDULE D\n")}, nil
}

var _ services.TaxServicer = (*mockTaxService)(nil)

type auditEntry struct {
	userID, action, resourceType, resourceID string
	changes                                  map[string]interface{}
}

type mockAuditService struct {
	entries []auditEntry
}

func (m *mockAuditService) Log(userID, action, resourceType, resourceID, _ string, changes map[string]interface{}) {
	m.entries = append(m.entries, auditEntry{userID, action, resourceType, resourceID, changes})
}

// --- test helpers ---

const (
	testUserID   = "user-1"
	testReportID = "0190a5b2-7c3d-7e4f-8a1b-2c3d4e5f6a7b"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func injectUserID(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

func setupTaxRouter(handler *TaxHandler) *gin.Engine {
	r := gin.New()
	r.GET("/tax/supported-years", handler.SupportedYears)
	r.POST("/pipeline/tax/calculate", handler.PipelineCalculate)
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/tax/calculate", handler.CalculateTax)
	auth.GET("/tax/reports", handler.ListReports)
	auth.GET("/tax/reports/:id", handler.GetReport)
	auth.POST("/tax/export-summary", handler.ExportSummary)
	auth.POST("/tax/export-form-8949", handler.ExportForm8949)
	auth.POST("/tax/export-schedule-d", handler.ExportScheduleD)
	return r
}

const calculateBody = `{
	"address": "0xAbC0000000000000000000000000000000000001",
	"symbol": "eth",
	"current_balance": "0.5",
	"current_price_usd": "2500",
	"transactions": [
		{"hash": "b1", "direction": "received", "amount": "2", "timestamp": 1673308800, "unit_price_usd": "1000"},
		{"hash": "s1", "direction": "sent", "amount": 1.5, "timestamp": 1709251200}
	]
}`

// --- tests ---

func TestTaxHandler_CalculateTax(t *testing.T) {
	t.Run("returns 201 and maps the request", func(t *testing.T) {
		var got services.CalculateTaxRequest
		var gotUser string
		svc := &mockTaxService{
			calculateTaxFn: func(_ context.Context, userID string, req services.CalculateTaxRequest) (*services.TaxCalculation, error) {
				gotUser, got = userID, req
				return &services.TaxCalculation{
					Report: &models.TaxReport{Base: models.Base{ID: testReportID}, Address: "0xabc", Chain: req.Chain, Symbol: "ETH"},
					Result: taxlot.Empty(),
				}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupTaxRouter(NewTaxHandler(svc, audit))

		rec := doRequest(r, "POST", "/tax/calculate", calculateBody)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotUser != testUserID {
			t.Errorf("expected user %s, got %s", testUserID, gotUser)
		}
		if got.Chain != "ethereum" {
			t.Errorf("expected default chain ethereum, got %q", got.Chain)
		}
		if len(got.Transactions) != 2 {
			t.Fatalf("expected 2 transactions, got %d", len(got.Transactions))
		}
		first := got.Transactions[0]
		if first.Direction != taxlot.DirectionReceived || first.Amount.String() != "2" {
			t.Errorf("unexpected first transaction: %+v", first)
		}
		if first.Timestamp == nil || !first.Timestamp.Equal(time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected timestamp 2023-01-10, got %v", first.Timestamp)
		}
		if first.UnitPriceUSD == nil || first.UnitPriceUSD.String() != "1000" {
			t.Errorf("expected unit price 1000, got %v", first.UnitPriceUSD)
		}
		second := got.Transactions[1]
		if second.UnitPriceUSD != nil {
			t.Errorf("expected missing unit price to stay nil, got %v", second.UnitPriceUSD)
		}
		if second.Amount.String() != "1.5" {
			t.Errorf("expected numeric amount 1.5, got %s", second.Amount)
		}
		if got.CurrentPriceUSD == nil || got.CurrentPriceUSD.String() != "2500" {
			t.Errorf("expected current price 2500, got %v", got.CurrentPriceUSD)
		}

		result := parseJSON(t, rec)
		report := result["report"].(map[string]interface{})
		if report["id"] != testReportID {
			t.Errorf("expected report id %s, got %v", testReportID, report["id"])
		}
		res := result["result"].(map[string]interface{})
		if res["method"] != "FIFO" {
			t.Errorf("expected method FIFO, got %v", res["method"])
		}

		if len(audit.entries) != 1 {
			t.Fatalf("expected 1 audit entry, got %d", len(audit.entries))
		}
		entry := audit.entries[0]
		if entry.action != services.AuditTaxCalculate || entry.resourceID != testReportID {
			t.Errorf("unexpected audit entry: %+v", entry)
		}
	})

	t.Run("returns 400 on unknown direction", func(t *testing.T) {
		r := setupTaxRouter(NewTaxHandler(&mockTaxService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/tax/calculate",
			`{"address":"0xabc","symbol":"ETH","transactions":[{"hash":"b1","direction":"buy","amount":"1"}]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on missing hash", func(t *testing.T) {
		r := setupTaxRouter(NewTaxHandler(&mockTaxService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/tax/calculate",
			`{"address":"0xabc","symbol":"ETH","transactions":[{"direction":"sent","amount":"1"}]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on unsupported chain", func(t *testing.T) {
		r := setupTaxRouter(NewTaxHandler(&mockTaxService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/tax/calculate", `{"address":"0xabc","chain":"dogechain","symbol":"ETH"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on malformed amount", func(t *testing.T) {
		r := setupTaxRouter(NewTaxHandler(&mockTaxService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/tax/calculate",
			`{"address":"0xabc","symbol":"ETH","transactions":[{"hash":"b1","direction":"received","amount":"lots"}]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on missing amount or balance", func(t *testing.T) {
		bodies := map[string]string{
			"missing amount": `{"address":"0xabc","symbol":"ETH","current_balance":"0",
				"transactions":[{"hash":"b1","direction":"received","unit_price_usd":"2000"}]}`,
			"null amount": `{"address":"0xabc","symbol":"ETH","current_balance":"0",
				"transactions":[{"hash":"b1","direction":"received","amount":null}]}`,
			"missing current_balance": `{"address":"0xabc","symbol":"ETH",
				"transactions":[{"hash":"b1","direction":"received","amount":"1"}]}`,
			"null current_balance": `{"address":"0xabc","symbol":"ETH","current_balance":null,"transactions":[]}`,
		}
		for name, body := range bodies {
			t.Run(name, func(t *testing.T) {
				svc := &mockTaxService{
					calculateTaxFn: func(_ context.Context, _ string, _ services.CalculateTaxRequest) (*services.TaxCalculation, error) {
						t.Error("service must not be called")
						return nil, apperrors.ErrInternalServer
					},
				}
				r := setupTaxRouter(NewTaxHandler(svc, &mockAuditService{}))

				rec := doRequest(r, "POST", "/tax/calculate", body)

				if rec.Code != http.StatusBadRequest {
					t.Fatalf("expected 400, got %d", rec.Code)
				}
				assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
			})
		}
	})

	t.Run("returns service error code", func(t *testing.T) {
		svc := &mockTaxService{
			calculateTaxFn: func(_ context.Context, _ string, _ services.CalculateTaxRequest) (*services.TaxCalculation, error) {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidTransaction, "transaction 0 (b1): amount must not be negative")
			},
		}
		audit := &mockAuditService{}
		r := setupTaxRouter(NewTaxHandler(svc, audit))

		rec := doRequest(r, "POST", "/tax/calculate", calculateBody)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_TRANSACTION")
		if len(audit.entries) != 0 {
			t.Errorf("expected no audit entry on failure, got %d", len(audit.entries))
		}
	})

	t.Run("returns 502 when price is unavailable", func(t *testing.T) {
		svc := &mockTaxService{
			calculateTaxFn: func(_ context.Context, _ string, _ services.CalculateTaxRequest) (*services.TaxCalculation, error) {
				return nil, apperrors.ErrPriceUnavailable
			},
		}
		r := setupTaxRouter(NewTaxHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/tax/calculate", calculateBody)

		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "PRICE_UNAVAILABLE")
	})

	t.Run("returns 401 without auth", func(t *testing.T) {
		handler := NewTaxHandler(&mockTaxService{}, &mockAuditService{})
		r := gin.New()
		r.POST("/tax/calculate", handler.CalculateTax)

		rec := doRequest(r, "POST", "/tax/calculate", calculateBody)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestTaxHandler_PipelineCalculate(t *testing.T) {
	t.Run("returns 200 with result", func(t *testing.T) {
		var got services.CalculateTaxRequest
		svc := &mockTaxService{
			calculateFn: func(_ context.Context, req services.CalculateTaxRequest) (*taxlot.Result, error) {
				got = req
				return taxlot.Empty(), nil
			},
		}
		r := setupTaxRouter(NewTaxHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/pipeline/tax/calculate",
			`{"symbol":"ETH","current_balance":"0","transactions":[{"hash":"b1","direction":"received","amount":"1","unit_price_usd":"100"}]}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Symbol != "ETH" || len(got.Transactions) != 1 {
			t.Errorf("unexpected request: %+v", got)
		}
		if got.Transactions[0].Timestamp != nil {
			t.Errorf("expected nil timestamp, got %v", got.Transactions[0].Timestamp)
		}
		result := parseJSON(t, rec)
		if _, ok := result["result"].(map[string]interface{}); !ok {
			t.Errorf("expected result object, got %v", result)
		}
	})

	t.Run("returns 400 on missing amount", func(t *testing.T) {
		svc := &mockTaxService{
			calculateFn: func(_ context.Context, _ services.CalculateTaxRequest) (*taxlot.Result, error) {
				t.Error("service must not be called")
				return nil, apperrors.ErrInternalServer
			},
		}
		r := setupTaxRouter(NewTaxHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/pipeline/tax/calculate",
			`{"symbol":"ETH","current_balance":"0","transactions":[{"hash":"b1","direction":"received","unit_price_usd":"2000"}]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 without symbol", func(t *testing.T) {
		r := setupTaxRouter(NewTaxHandler(&mockTaxService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/pipeline/tax/calculate", `{"transactions":[]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTaxHandler_ListReports(t *testing.T) {
	t.Run("returns 200 with paginated reports", func(t *testing.T) {
		svc := &mockTaxService{
			listReportsFn: func(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.TaxReport], error) {
				if page.Page != 2 {
					t.Errorf("expected page 2, got %d", page.Page)
				}
				resp := pagination.NewPageResponse([]models.TaxReport{{Symbol: "ETH"}}, 2, 20, 21)
				return &resp, nil
			},
		}
		r := setupTaxRouter(NewTaxHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/tax/reports?page=2", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["total_items"].(float64) != 21 {
			t.Errorf("expected 21 total items, got %v", result["total_items"])
		}
	})

	t.Run("returns 400 on invalid page size", func(t *testing.T) {
		r := setupTaxRouter(NewTaxHandler(&mockTaxService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/tax/reports?page_size=500", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTaxHandler_GetReport(t *testing.T) {
	t.Run("returns 200", func(t *testing.T) {
		svc := &mockTaxService{
			getReportFn: func(_, reportID string) (*services.TaxCalculation, error) {
				return &services.TaxCalculation{Report: &models.TaxReport{Base: models.Base{ID: reportID}}, Result: taxlot.Empty()}, nil
			},
		}
		r := setupTaxRouter(NewTaxHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/tax/reports/"+testReportID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		report := parseJSON(t, rec)["report"].(map[string]interface{})
		if report["id"] != testReportID {
			t.Errorf("expected id %s, got %v", testReportID, report["id"])
		}
	})

	t.Run("returns 400 on invalid id", func(t *testing.T) {
		r := setupTaxRouter(NewTaxHandler(&mockTaxService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/tax/reports/abc", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		svc := &mockTaxService{
			getReportFn: func(_, _ string) (*services.TaxCalculation, error) {
				return nil, apperrors.ErrTaxReportNotFound
			},
		}
		r := setupTaxRouter(NewTaxHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/tax/reports/"+testReportID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TAX_REPORT_NOT_FOUND")
	})
}

func TestTaxHandler_Exports(t *testing.T) {
	t.Run("summary returns attachment and audits", func(t *testing.T) {
		var gotOpts services.ExportOptions
		svc := &mockTaxService{
			exportSummaryFn: func(_, _ string, opts services.ExportOptions) (*services.Export, error) {
				gotOpts = opts
				return &services.Export{Filename: "tax-summary-eth-2024.csv", ContentType: "text/csv", Body: []byte("Tax Summary\n")}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupTaxRouter(NewTaxHandler(svc, audit))

		rec := doRequest(r, "POST", "/tax/export-summary", `{"report_id":"`+testReportID+`","tax_year":2024}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotOpts.TaxYear != 2024 {
			t.Errorf("expected tax year 2024, got %d", gotOpts.TaxYear)
		}
		if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="tax-summary-eth-2024.csv"` {
			t.Errorf("unexpected Content-Disposition %q", cd)
		}
		if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
			t.Errorf("expected text/csv, got %q", rec.Header().Get("Content-Type"))
		}
		if rec.Body.String() != "Tax Summary\n" {
			t.Errorf("unexpected body %q", rec.Body.String())
		}
		if len(audit.entries) != 1 || audit.entries[0].action != services.AuditTaxExportSummary {
			t.Errorf("expected summary export audit entry, got %+v", audit.entries)
		}
		if audit.entries[0].changes["tax_year"] != 2024 {
			t.Errorf("expected tax_year in audit changes, got %v", audit.entries[0].changes)
		}
	})

	t.Run("summary rejects year before 2020", func(t *testing.T) {
		r := setupTaxRouter(NewTaxHandler(&mockTaxService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/tax/export-summary", `{"report_id":"`+testReportID+`","tax_year":2019}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("form 8949 passes filter and format", func(t *testing.T) {
		var gotOpts services.ExportOptions
		svc := &mockTaxService{
			exportForm8949Fn: func(_, _ string, opts services.ExportOptions) (*services.Export, error) {
				gotOpts = opts
				return &services.Export{Filename: "form-8949-eth.pdf", ContentType: "application/pdf", Body: []byte("%PDF-1.3")}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupTaxRouter(NewTaxHandler(svc, audit))

		rec := doRequest(r, "POST", "/tax/export-form-8949",
			`{"report_id":"`+testReportID+`","filter":"short-term","format":"pdf"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotOpts.Filter != "short-term" || gotOpts.Format != "pdf" {
			t.Errorf("unexpected options %+v", gotOpts)
		}
		if rec.Header().Get("Content-Type") != "application/pdf" {
			t.Errorf("expected application/pdf, got %q", rec.Header().Get("Content-Type"))
		}
		if len(audit.entries) != 1 || audit.entries[0].action != services.AuditTaxExportForm8949 {
			t.Errorf("expected form 8949 audit entry, got %+v", audit.entries)
		}
	})

	t.Run("form 8949 rejects unknown filter", func(t *testing.T) {
		r := setupTaxRouter(NewTaxHandler(&mockTaxService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/tax/export-form-8949", `{"report_id":"`+testReportID+`","filter":"mid-term"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("form 8949 with no gains returns NO_REALIZED_GAINS", func(t *testing.T) {
		svc := &mockTaxService{
			exportForm8949Fn: func(_, _ string, _ services.ExportOptions) (*services.Export, error) {
				return nil, apperrors.ErrNoRealizedGains
			},
		}
		audit := &mockAuditService{}
		r := setupTaxRouter(NewTaxHandler(svc, audit))

		rec := doRequest(r, "POST", "/tax/export-form-8949", `{"report_id":"`+testReportID+`"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "NO_REALIZED_GAINS")
		if len(audit.entries) != 0 {
			t.Errorf("expected no audit entry, got %d", len(audit.entries))
		}
	})

	t.Run("schedule d requires tax year", func(t *testing.T) {
		r := setupTaxRouter(NewTaxHandler(&mockTaxService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/tax/export-schedule-d", `{"report_id":"`+testReportID+`"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("schedule d rejects pdf", func(t *testing.T) {
		r := setupTaxRouter(NewTaxHandler(&mockTaxService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/tax/export-schedule-d",
			`{"report_id":"`+testReportID+`","tax_year":2024,"format":"pdf"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("schedule d returns text", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupTaxRouter(NewTaxHandler(&mockTaxService{}, audit))

		rec := doRequest(r, "POST", "/tax/export-schedule-d", `{"report_id":"`+testReportID+`","tax_year":2024}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.HasPrefix(rec.Body.String(), "SCHEDULE D") {
			t.Errorf("unexpected body %q", rec.Body.String())
		}
		if len(audit.entries) != 1 || audit.entries[0].action != services.AuditTaxExportScheduleD {
			t.Errorf("expected schedule d audit entry, got %+v", audit.entries)
		}
	})

	t.Run("rejects missing report id", func(t *testing.T) {
		r := setupTaxRouter(NewTaxHandler(&mockTaxService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/tax/export-summary", `{}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})
}

func TestTaxHandler_SupportedYears(t *testing.T) {
	handler := NewTaxHandler(&mockTaxService{}, &mockAuditService{})
	handler.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	r := setupTaxRouter(handler)

	rec := doRequest(r, "GET", "/tax/supported-years", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp SupportedYearsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	want := []int{2024, 2023, 2022, 2021, 2020}
	if len(resp.Years) != len(want) {
		t.Fatalf("expected %v, got %v", want, resp.Years)
	}
	for i := range want {
		if resp.Years[i] != want[i] {
			t.Errorf("expected %v, got %v", want, resp.Years)
			break
		}
	}
}
