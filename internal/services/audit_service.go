package services

import (
	"encoding/json"

	"walletlens/internal/logger"
	"walletlens/internal/models"

	"gorm.io/gorm"
)

// Audit actions.
const (
	AuditTaxCalculate       = "TAX_CALCULATE"
	AuditTaxExportSummary   = "TAX_EXPORT_SUMMARY"
	AuditTaxExportForm8949  = "TAX_EXPORT_FORM_8949"
	AuditTaxExportScheduleD = "TAX_EXPORT_SCHEDULE_D"
	AuditResourceTaxReport  = "tax_report"
)

// auditService handles audit log recording.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Errors are logged but never propagate
// to avoid disrupting the main operation.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	var changesJSON string
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Errorw("failed to marshal audit log changes", "error", err, "action", action)
			changesJSON = "{}"
		} else {
			changesJSON = string(data)
		}
	}

	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      changesJSON,
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}
