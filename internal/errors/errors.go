// Package errors provides custom error types for the walletlens API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized    = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidToken    = &AppError{Code: "INVALID_TOKEN", Message: "Invalid or expired token", StatusCode: http.StatusUnauthorized}
	ErrForbidden       = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrUpgradeRequired = &AppError{Code: "UPGRADE_REQUIRED", Message: "This feature requires a premium subscription", StatusCode: http.StatusForbidden}
)

// Pipeline errors.
var (
	ErrInvalidAPIKey         = &AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
	ErrPipelineNotConfigured = &AppError{Code: "PIPELINE_NOT_CONFIGURED", Message: "Pipeline endpoints are not configured", StatusCode: http.StatusServiceUnavailable}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
	ErrRequestTimeout = &AppError{Code: "REQUEST_TIMEOUT", Message: "The request took too long to complete", StatusCode: http.StatusGatewayTimeout}
)

// Tax errors.
var (
	ErrInvalidTransaction = &AppError{Code: "INVALID_TRANSACTION", Message: "Transaction history is malformed", StatusCode: http.StatusBadRequest}
	ErrNoRealizedGains    = &AppError{Code: "NO_REALIZED_GAINS", Message: "No realized gains to report", StatusCode: http.StatusBadRequest}
	ErrInvalidTaxYear     = &AppError{Code: "INVALID_TAX_YEAR", Message: "Tax year is not supported", StatusCode: http.StatusBadRequest}
	ErrTaxReportNotFound  = &AppError{Code: "TAX_REPORT_NOT_FOUND", Message: "Tax report not found", StatusCode: http.StatusNotFound}
)

// Pricing errors.
var (
	ErrPriceUnavailable = &AppError{Code: "PRICE_UNAVAILABLE", Message: "Price data is unavailable for this asset", StatusCode: http.StatusBadGateway}
)
