package aggregate

import (
	"time"

	"voiceprint-server-go/internal/platform/errors"
)

// MaxTemplateBytes 声纹模板最大字节数
const MaxTemplateBytes = 2048

// BiometricRecord 用户声纹记录，按用户惰性创建，删除时只清空模板
type BiometricRecord struct {
	UserID          string     `json:"userId"`
	TenantID        string     `json:"tenantId"`
	VoiceTemplate   []byte     `json:"-"`
	IsVoiceEnrolled bool       `json:"isVoiceEnrolled"`
	EnrolledAt      *time.Time `json:"enrolledAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	Version         int64      `json:"version"` // 乐观锁版本，0 表示尚未持久化
}

// NewBiometricRecord 创建空记录
func NewBiometricRecord(userID, tenantID string, now time.Time) (*BiometricRecord, error) {
	if userID == "" {
		return nil, errors.New(errors.KindValidation, "biometric.new", "user ID cannot be empty")
	}
	return &BiometricRecord{
		UserID:    userID,
		TenantID:  tenantID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// HasTemplate 是否存在模板
func (r *BiometricRecord) HasTemplate() bool {
	return r != nil && len(r.VoiceTemplate) > 0
}

// Enrolled reports whether the record satisfies the enrolled invariant.
func (r *BiometricRecord) Enrolled() bool {
	return r != nil && r.IsVoiceEnrolled && r.HasTemplate() && r.EnrolledAt != nil
}

// Enroll 写入模板并标记为已录入
func (r *BiometricRecord) Enroll(template []byte, now time.Time) error {
	if err := checkTemplate("biometric.enroll", template); err != nil {
		return err
	}
	r.VoiceTemplate = cloneBytes(template)
	r.IsVoiceEnrolled = true
	enrolledAt := now
	r.EnrolledAt = &enrolledAt
	r.UpdatedAt = now
	return nil
}

// ReplaceTemplate 更新模板，保留录入时间
func (r *BiometricRecord) ReplaceTemplate(template []byte, now time.Time) error {
	if err := checkTemplate("biometric.replace", template); err != nil {
		return err
	}
	r.VoiceTemplate = cloneBytes(template)
	r.UpdatedAt = now
	return nil
}

// Clear 删除模板
func (r *BiometricRecord) Clear(now time.Time) {
	r.VoiceTemplate = nil
	r.IsVoiceEnrolled = false
	r.EnrolledAt = nil
	r.UpdatedAt = now
}

// Clone returns a deep copy so stores never share template buffers with callers.
func (r *BiometricRecord) Clone() *BiometricRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.VoiceTemplate = cloneBytes(r.VoiceTemplate)
	if r.EnrolledAt != nil {
		t := *r.EnrolledAt
		c.EnrolledAt = &t
	}
	return &c
}

func checkTemplate(op string, template []byte) error {
	if len(template) == 0 {
		return errors.New(errors.KindExtraction, op, "voice template is empty")
	}
	if len(template) > MaxTemplateBytes {
		return errors.New(errors.KindDomain, op, "voice template exceeds 2048 bytes")
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
