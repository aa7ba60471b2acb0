// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// supportedChains lists the networks a wallet address may belong to.
var supportedChains = map[string]bool{
	"ethereum": true,
	"arbitrum": true,
	"polygon":  true,
	"bsc":      true,
	"bitcoin":  true,
	"solana":   true,
}

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("direction", validateDirection)
		_ = v.RegisterValidation("chain", validateChain)
		_ = v.RegisterValidation("holding_filter", validateHoldingFilter)
		_ = v.RegisterValidation("form8949_format", validateForm8949Format)
		_ = v.RegisterValidation("schedule_d_format", validateScheduleDFormat)
	}
}

// SupportedChain reports whether chain (case-insensitive) is accepted.
func SupportedChain(chain string) bool {
	return supportedChains[strings.ToLower(chain)]
}

func validateDirection(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "received", "sent":
		return true
	}
	return false
}

func validateChain(fl validator.FieldLevel) bool {
	return SupportedChain(fl.Field().String())
}

func validateHoldingFilter(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "all", "short-term", "long-term":
		return true
	}
	return false
}

func validateForm8949Format(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "csv", "pdf":
		return true
	}
	return false
}

func validateScheduleDFormat(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "text", "csv":
		return true
	}
	return false
}
