package service

import (
	"context"
	"encoding/json"
	"fmt"

	"freightops/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// writeAudit appends an audit entry inside the caller's transaction. Every
// mutating service path goes through this so that a failed audit write rolls
// the mutation back with it.
func writeAudit(tx *gorm.DB, userID *uuid.UUID, action, entityType, entityID string, details map[string]interface{}) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	entry := model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    string(payload),
	}
	return tx.Create(&entry).Error
}

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Action     string `json:"action"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditFilter struct {
	EntityType string
	EntityID   string
	Action     string
	Page       int
	Limit      int
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, filter AuditFilter) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditService instance
func NewAuditService(db *gorm.DB) AuditService {
	return &auditService{db: db}
}

// GetAuditLogs retrieves paginated records with users pre-loaded
func (s *auditService) GetAuditLogs(ctx context.Context, filter AuditFilter) ([]AuditLogResponse, int64, error) {
	applyFilter := func(q *gorm.DB) *gorm.DB {
		if filter.EntityType != "" {
			q = q.Where("entity_type = ?", filter.EntityType)
		}
		if filter.EntityID != "" {
			q = q.Where("entity_id = ?", filter.EntityID)
		}
		if filter.Action != "" {
			q = q.Where("action = ?", filter.Action)
		}
		return q
	}

	var total int64
	if err := applyFilter(s.db.WithContext(ctx).Model(&model.AuditLog{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	offset := (filter.Page - 1) * filter.Limit

	var logs []model.AuditLog
	if err := applyFilter(s.db.WithContext(ctx)).Preload("User").Order("created_at desc").Offset(offset).Limit(filter.Limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		userID := ""
		if l.User != nil {
			username = l.User.Username
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Username:   username,
			Action:     l.Action,
			EntityType: l.EntityType,
			EntityID:   l.EntityID,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}
