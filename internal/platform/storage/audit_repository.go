package storage

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"voiceprint-server-go/internal/domain/audit"
)

// auditRepository 审计日志仓库实现
type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.Repository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	var details datatypes.JSON
	if len(entry.Details) > 0 {
		raw, err := json.Marshal(entry.Details)
		if err != nil {
			return err
		}
		details = datatypes.JSON(raw)
	}
	return r.db.WithContext(ctx).Create(&AuditLogModel{
		ID:         entry.ID,
		UserID:     entry.UserID,
		Action:     entry.Action,
		Success:    entry.Success,
		Confidence: entry.Confidence,
		Details:    details,
		Timestamp:  entry.Timestamp.UTC(),
	}).Error
}

func (r *auditRepository) ListByUser(ctx context.Context, userID string, actions []string) ([]*audit.Entry, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if len(actions) > 0 {
		query = query.Where("action IN ?", actions)
	}

	var models []AuditLogModel
	if err := query.Order("timestamp DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]*audit.Entry, 0, len(models))
	for _, m := range models {
		entry := &audit.Entry{
			ID:         m.ID,
			UserID:     m.UserID,
			Action:     m.Action,
			Success:    m.Success,
			Confidence: m.Confidence,
			Timestamp:  m.Timestamp.UTC(),
		}
		if len(m.Details) > 0 {
			var details map[string]interface{}
			if err := json.Unmarshal(m.Details, &details); err == nil {
				entry.Details = details
			}
		}
		out = append(out, entry)
	}
	return out, nil
}
