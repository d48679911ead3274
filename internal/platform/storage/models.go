package storage

import (
	"time"

	"gorm.io/datatypes"
)

// BiometricModel 声纹记录表
type BiometricModel struct {
	ID              uint       `gorm:"primaryKey"`
	UserID          string     `gorm:"type:varchar(128);uniqueIndex;not null"`
	TenantID        string     `gorm:"type:varchar(128);index"`
	VoiceTemplate   []byte     `gorm:"type:blob"`
	IsVoiceEnrolled bool       `gorm:"not null;default:false"`
	VoiceEnrolledAt *time.Time `gorm:"column:voice_enrolled_at"`
	Version         int64      `gorm:"not null;default:0"`
	CreatedAt       time.Time  `gorm:"autoCreateTime:false"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime:false"`
}

func (BiometricModel) TableName() string {
	return "biometrics"
}

// AttendanceRecordModel 考勤记录表
type AttendanceRecordModel struct {
	ID             string     `gorm:"type:varchar(36);primaryKey"`
	UserID         string     `gorm:"type:varchar(128);index;not null"`
	CheckInTime    time.Time  `gorm:"index;not null"`
	CheckInMethod  string     `gorm:"type:varchar(64)"`
	CheckOutTime   *time.Time `gorm:"column:check_out_time"`
	CheckOutMethod string     `gorm:"type:varchar(64)"`
	CreatedAt      time.Time  `gorm:"autoCreateTime:false"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime:false"`
}

func (AttendanceRecordModel) TableName() string {
	return "attendance_records"
}

// AuditLogModel 声纹审计日志表
type AuditLogModel struct {
	ID         string         `gorm:"type:varchar(36);primaryKey"`
	UserID     string         `gorm:"type:varchar(128);index;not null"`
	Action     string         `gorm:"type:varchar(64);index;not null"`
	Success    bool           `gorm:"not null"`
	Confidence float64        `gorm:"not null;default:0"`
	Details    datatypes.JSON `gorm:"type:json"`
	Timestamp  time.Time      `gorm:"index;not null"`
}

func (AuditLogModel) TableName() string {
	return "voice_audit_logs"
}
