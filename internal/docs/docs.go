// Package docs registers the OpenAPI description served at /swagger.
// Regenerate with: swag init -g cmd/api/main.go -o internal/docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/tax/supported-years": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tax"],
                "summary": "Supported tax years",
                "responses": {
                    "200": {"description": "Years, newest first", "schema": {"$ref": "#/definitions/handlers.SupportedYearsResponse"}}
                }
            }
        },
        "/tax/calculate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tax"],
                "summary": "Calculate FIFO gains",
                "parameters": [
                    {"description": "Transactions for one asset", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CalculateTaxRequest"}}
                ],
                "responses": {
                    "201": {"description": "Calculation stored"},
                    "400": {"description": "Invalid input or transaction", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Premium tier required", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "502": {"description": "Price unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/tax/reports": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["tax"],
                "summary": "List tax reports",
                "parameters": [
                    {"type": "integer", "description": "Page number (default 1)", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Items per page (default 20, max 100)", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Paginated reports"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/tax/reports/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["tax"],
                "summary": "Get a tax report",
                "parameters": [
                    {"type": "string", "description": "Report ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Report"},
                    "404": {"description": "Report not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/tax/export-summary": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["text/csv"],
                "tags": ["tax"],
                "summary": "Export Tax Summary CSV",
                "parameters": [
                    {"description": "Report selection", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ExportSummaryRequest"}}
                ],
                "responses": {
                    "200": {"description": "Tax Summary CSV", "schema": {"type": "file"}},
                    "400": {"description": "Invalid input or tax year", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/tax/export-form-8949": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["text/csv", "application/pdf"],
                "tags": ["tax"],
                "summary": "Export Form 8949",
                "parameters": [
                    {"description": "Report selection", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ExportForm8949Request"}}
                ],
                "responses": {
                    "200": {"description": "Form 8949", "schema": {"type": "file"}},
                    "400": {"description": "Invalid input, tax year, or no realized gains", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/tax/export-schedule-d": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["text/plain", "text/csv"],
                "tags": ["tax"],
                "summary": "Export Schedule D",
                "parameters": [
                    {"description": "Report selection", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ExportScheduleDRequest"}}
                ],
                "responses": {
                    "200": {"description": "Schedule D", "schema": {"type": "file"}},
                    "400": {"description": "Invalid input, tax year, or no realized gains", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/pipeline/tax/calculate": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["pipeline"],
                "summary": "Calculate FIFO gains (pipeline)",
                "parameters": [
                    {"type": "string", "description": "Pipeline API key", "name": "X-API-Key", "in": "header", "required": true},
                    {"description": "Transactions for one asset", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.PipelineCalculateRequest"}}
                ],
                "responses": {
                    "200": {"description": "Calculation result"},
                    "401": {"description": "Invalid API key", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorDetail": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"$ref": "#/definitions/handlers.ErrorDetail"}}
        },
        "handlers.TransactionRequest": {
            "type": "object",
            "required": ["amount", "direction", "hash"],
            "properties": {
                "hash": {"type": "string"},
                "direction": {"type": "string", "enum": ["received", "sent"]},
                "amount": {"type": "string"},
                "timestamp": {"type": "integer"},
                "unit_price_usd": {"type": "string"}
            }
        },
        "handlers.CalculateTaxRequest": {
            "type": "object",
            "required": ["address", "current_balance", "symbol"],
            "properties": {
                "address": {"type": "string"},
                "chain": {"type": "string"},
                "symbol": {"type": "string"},
                "transactions": {"type": "array", "items": {"$ref": "#/definitions/handlers.TransactionRequest"}},
                "current_balance": {"type": "string"},
                "current_price_usd": {"type": "string"}
            }
        },
        "handlers.PipelineCalculateRequest": {
            "type": "object",
            "required": ["current_balance", "symbol"],
            "properties": {
                "symbol": {"type": "string"},
                "transactions": {"type": "array", "items": {"$ref": "#/definitions/handlers.TransactionRequest"}},
                "current_balance": {"type": "string"},
                "current_price_usd": {"type": "string"}
            }
        },
        "handlers.ExportSummaryRequest": {
            "type": "object",
            "required": ["report_id"],
            "properties": {"report_id": {"type": "string"}, "tax_year": {"type": "integer"}}
        },
        "handlers.ExportForm8949Request": {
            "type": "object",
            "required": ["report_id"],
            "properties": {
                "report_id": {"type": "string"},
                "tax_year": {"type": "integer"},
                "filter": {"type": "string", "enum": ["all", "short-term", "long-term"]},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            }
        },
        "handlers.ExportScheduleDRequest": {
            "type": "object",
            "required": ["report_id", "tax_year"],
            "properties": {
                "report_id": {"type": "string"},
                "tax_year": {"type": "integer"},
                "format": {"type": "string", "enum": ["text", "csv"]}
            }
        },
        "handlers.SupportedYearsResponse": {
            "type": "object",
            "properties": {"years": {"type": "array", "items": {"type": "integer"}}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "walletlens API",
	Description:      "FIFO cost-basis and capital gains reporting for on-chain wallets.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
