package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"homeledger/internal/logger"
	"homeledger/internal/models"
)

type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit entry. Failures are logged and swallowed so an
// audit write never fails the operation it describes.
func (s *auditService) Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{}) {
	entry := models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
	}
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Warnw("failed to marshal audit changes", "action", action, "error", err)
		} else {
			entry.Changes = string(data)
		}
	}
	if err := s.db.Create(&entry).Error; err != nil {
		logger.Get().Errorw("failed to write audit log",
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
			"error", err,
		)
	}
}
