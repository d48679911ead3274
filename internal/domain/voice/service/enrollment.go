package service

import (
	"context"

	"voiceprint-server-go/internal/domain/eventbus"
	"voiceprint-server-go/internal/domain/voice/aggregate"
	"voiceprint-server-go/internal/domain/voice/store"
	"voiceprint-server-go/internal/platform/errors"
)

// EnrollmentManager 管理用户声纹模板的录入、更新与删除
type EnrollmentManager struct {
	base
}

// NewEnrollmentManager 创建录入服务
func NewEnrollmentManager(st store.Store, opts ...Option) *EnrollmentManager {
	return &EnrollmentManager{base: newBase(st, opts)}
}

type enrollOptions struct {
	tenantID string
	set      bool
}

// EnrollOption customises a single enrollment.
type EnrollOption func(*enrollOptions)

// WithTenant scopes the record to a tenant.
func WithTenant(tenantID string) EnrollOption {
	return func(o *enrollOptions) {
		o.tenantID = tenantID
		o.set = true
	}
}

// Enroll extracts a template and stores it, creating the record on first use.
// Re-enrolling replaces the template and restarts the enrollment date.
func (m *EnrollmentManager) Enroll(ctx context.Context, userID string, audio []byte, opts ...EnrollOption) (*aggregate.EnrollmentInfo, error) {
	const op = "voice.enroll"

	if err := requireUser(op, userID); err != nil {
		return nil, err
	}
	var o enrollOptions
	for _, opt := range opts {
		opt(&o)
	}

	m.logger.InfoTag("Voice", "starting voice enrollment for user %s", userID)
	tpl, err := extract(op, audio, m.settings.MinAudioBytes)
	if err != nil {
		m.logger.WarnTag("Voice", "enrollment rejected for user %s: %v", userID, err)
		return nil, err
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	rec, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, storageErr(op, err)
	}
	now := m.clock()
	if rec == nil {
		if rec, err = aggregate.NewBiometricRecord(userID, o.tenantID, now); err != nil {
			return nil, err
		}
	} else if o.set {
		rec.TenantID = o.tenantID
	}
	if err := rec.Enroll(tpl, now); err != nil {
		return nil, errors.Wrap(errors.KindDomain, op, "failed to enroll voice template", err)
	}
	if err := m.store.Save(ctx, rec); err != nil {
		return nil, storageErr(op, err)
	}

	m.logger.InfoTag("Voice", "voice enrollment completed for user %s (template %d bytes)", userID, len(tpl))
	m.bus.Publish(eventbus.EventVoiceEnrolled, eventbus.EnrollmentEvent{
		UserID:       userID,
		TenantID:     rec.TenantID,
		TemplateSize: len(tpl),
		At:           now,
	})

	return &aggregate.EnrollmentInfo{
		UserID:       rec.UserID,
		TenantID:     rec.TenantID,
		EnrolledAt:   rec.EnrolledAt,
		IsActive:     true,
		TemplateSize: len(tpl),
		Message:      "voice enrollment completed successfully",
	}, nil
}

// Update replaces the template of an enrolled user and keeps the enrollment date.
func (m *EnrollmentManager) Update(ctx context.Context, userID string, audio []byte) error {
	const op = "voice.update"

	if err := requireUser(op, userID); err != nil {
		return err
	}
	tpl, err := extract(op, audio, m.settings.MinAudioBytes)
	if err != nil {
		return err
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	rec, err := m.store.Get(ctx, userID)
	if err != nil {
		return storageErr(op, err)
	}
	if rec == nil {
		return errors.Wrap(errors.KindNotFound, op, "no biometric record found for user", aggregate.ErrNoRecord)
	}
	// 已删除的记录没有录入时间，更新会破坏录入不变量
	if !rec.Enrolled() {
		return errors.Wrap(errors.KindNotFound, op, "user is not enrolled for voice recognition", aggregate.ErrNotEnrolled)
	}

	now := m.clock()
	if err := rec.ReplaceTemplate(tpl, now); err != nil {
		return errors.Wrap(errors.KindDomain, op, "failed to replace voice template", err)
	}
	if err := m.store.Save(ctx, rec); err != nil {
		return storageErr(op, err)
	}

	m.logger.InfoTag("Voice", "voice template updated for user %s", userID)
	m.bus.Publish(eventbus.EventVoiceUpdated, eventbus.EnrollmentEvent{
		UserID:       userID,
		TenantID:     rec.TenantID,
		TemplateSize: len(tpl),
		At:           now,
	})
	return nil
}

// Delete clears the template; the record itself is kept.
func (m *EnrollmentManager) Delete(ctx context.Context, userID string) error {
	const op = "voice.delete"

	if err := requireUser(op, userID); err != nil {
		return err
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	rec, err := m.store.Get(ctx, userID)
	if err != nil {
		return storageErr(op, err)
	}
	if rec == nil {
		return errors.Wrap(errors.KindNotFound, op, "no biometric record found for user", aggregate.ErrNoRecord)
	}

	now := m.clock()
	rec.Clear(now)
	if err := m.store.Save(ctx, rec); err != nil {
		return storageErr(op, err)
	}

	m.logger.InfoTag("Voice", "voice template deleted for user %s", userID)
	m.bus.Publish(eventbus.EventVoiceDeleted, eventbus.EnrollmentEvent{
		UserID:   userID,
		TenantID: rec.TenantID,
		At:       now,
	})
	return nil
}

// Info 返回已录入用户的模板概要
func (m *EnrollmentManager) Info(ctx context.Context, userID string) (*aggregate.TemplateInfo, error) {
	const op = "voice.info"

	if err := requireUser(op, userID); err != nil {
		return nil, err
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	rec, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, storageErr(op, err)
	}
	if !rec.Enrolled() {
		return nil, errors.Wrap(errors.KindNotFound, op, "user is not enrolled for voice recognition", aggregate.ErrNotEnrolled)
	}

	return &aggregate.TemplateInfo{
		UserID:       rec.UserID,
		IsEnrolled:   true,
		EnrolledAt:   rec.EnrolledAt,
		TemplateSize: len(rec.VoiceTemplate),
		LastUpdated:  rec.UpdatedAt,
	}, nil
}

// List 返回范围内所有已录入用户
func (m *EnrollmentManager) List(ctx context.Context, scope aggregate.Scope) ([]*aggregate.EnrollmentInfo, error) {
	const op = "voice.list"

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	recs, err := m.store.ListEnrolled(ctx, scope)
	if err != nil {
		return nil, storageErr(op, err)
	}

	out := make([]*aggregate.EnrollmentInfo, 0, len(recs))
	for _, rec := range recs {
		out = append(out, &aggregate.EnrollmentInfo{
			UserID:       rec.UserID,
			TenantID:     rec.TenantID,
			EnrolledAt:   rec.EnrolledAt,
			IsActive:     rec.IsVoiceEnrolled,
			TemplateSize: len(rec.VoiceTemplate),
		})
	}
	return out, nil
}
