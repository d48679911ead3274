package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"voiceprint-server-go/internal/domain/voice/aggregate"
	"voiceprint-server-go/internal/platform/storage"
)

type sqliteStore struct {
	db *gorm.DB
}

// NewSQLite builds a SQLite-backed template store.
func NewSQLite(db *gorm.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Get(ctx context.Context, userID string) (*aggregate.BiometricRecord, error) {
	var model storage.BiometricModel
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error
	if errorsIsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fromModel(&model), nil
}

func (s *sqliteStore) Save(ctx context.Context, rec *aggregate.BiometricRecord) error {
	if rec == nil || rec.UserID == "" {
		return fmt.Errorf("user id required")
	}
	next := rec.Version + 1

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rec.Version == 0 {
			model := toModel(rec)
			model.Version = next
			err := tx.Create(model).Error
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrVersionConflict
			}
			return err
		}

		res := tx.Model(&storage.BiometricModel{}).
			Where("user_id = ? AND version = ?", rec.UserID, rec.Version).
			Updates(map[string]interface{}{
				"tenant_id":         rec.TenantID,
				"voice_template":    rec.VoiceTemplate,
				"is_voice_enrolled": rec.IsVoiceEnrolled,
				"voice_enrolled_at": utcTime(rec.EnrolledAt),
				"updated_at":        rec.UpdatedAt.UTC(),
				"version":           next,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}
		return nil
	})
	if err != nil {
		return err
	}
	rec.Version = next
	return nil
}

func (s *sqliteStore) ListEnrolled(ctx context.Context, scope aggregate.Scope) ([]*aggregate.BiometricRecord, error) {
	query := s.db.WithContext(ctx).
		Where("is_voice_enrolled = ? AND voice_template IS NOT NULL AND voice_enrolled_at IS NOT NULL", true)
	if scope.TenantID != "" {
		query = query.Where("tenant_id = ?", scope.TenantID)
	}
	if len(scope.UserIDs) > 0 {
		query = query.Where("user_id IN ?", scope.UserIDs)
	}

	var models []storage.BiometricModel
	if err := query.Order("user_id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*aggregate.BiometricRecord, 0, len(models))
	for i := range models {
		if rec := fromModel(&models[i]); rec.Enrolled() {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *sqliteStore) Stats(ctx context.Context) (map[string]any, error) {
	var total, enrolled int64
	if err := s.db.WithContext(ctx).Model(&storage.BiometricModel{}).Count(&total).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&storage.BiometricModel{}).
		Where("is_voice_enrolled = ?", true).Count(&enrolled).Error; err != nil {
		return nil, err
	}
	return map[string]any{
		"type":     DriverSQLite,
		"total":    total,
		"enrolled": enrolled,
	}, nil
}

func (s *sqliteStore) Close(context.Context) error {
	return nil
}

func toModel(rec *aggregate.BiometricRecord) *storage.BiometricModel {
	return &storage.BiometricModel{
		UserID:          rec.UserID,
		TenantID:        rec.TenantID,
		VoiceTemplate:   rec.VoiceTemplate,
		IsVoiceEnrolled: rec.IsVoiceEnrolled,
		VoiceEnrolledAt: utcTime(rec.EnrolledAt),
		Version:         rec.Version,
		CreatedAt:       rec.CreatedAt.UTC(),
		UpdatedAt:       rec.UpdatedAt.UTC(),
	}
}

func fromModel(m *storage.BiometricModel) *aggregate.BiometricRecord {
	rec := &aggregate.BiometricRecord{
		UserID:          m.UserID,
		TenantID:        m.TenantID,
		IsVoiceEnrolled: m.IsVoiceEnrolled,
		EnrolledAt:      utcTime(m.VoiceEnrolledAt),
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
		Version:         m.Version,
	}
	if len(m.VoiceTemplate) > 0 {
		rec.VoiceTemplate = m.VoiceTemplate
	}
	return rec
}

func utcTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func errorsIsNotFound(err error) bool {
	return err != nil && errors.Is(err, gorm.ErrRecordNotFound)
}
