package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"voiceprint-server-go/internal/domain/attendance"
)

// attendanceRepository 考勤记录仓库实现
type attendanceRepository struct {
	db *gorm.DB
}

func NewAttendanceRepository(db *gorm.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) Append(ctx context.Context, rec *attendance.Record) error {
	return r.db.WithContext(ctx).Create(toAttendanceModel(rec)).Error
}

func (r *attendanceRepository) LatestOpen(ctx context.Context, userID string, from, to time.Time) (*attendance.Record, error) {
	var model AttendanceRecordModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND check_out_time IS NULL AND check_in_time >= ? AND check_in_time < ?", userID, from, to).
		Order("check_in_time DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fromAttendanceModel(&model), nil
}

func (r *attendanceRepository) Update(ctx context.Context, rec *attendance.Record) error {
	return r.db.WithContext(ctx).Save(toAttendanceModel(rec)).Error
}

func (r *attendanceRepository) ListByUser(ctx context.Context, userID string, since time.Time) ([]*attendance.Record, error) {
	var models []AttendanceRecordModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND check_in_time >= ?", userID, since).
		Order("check_in_time DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*attendance.Record, len(models))
	for i := range models {
		out[i] = fromAttendanceModel(&models[i])
	}
	return out, nil
}

func toAttendanceModel(rec *attendance.Record) *AttendanceRecordModel {
	return &AttendanceRecordModel{
		ID:             rec.ID,
		UserID:         rec.UserID,
		CheckInTime:    rec.CheckInTime.UTC(),
		CheckInMethod:  rec.CheckInMethod,
		CheckOutTime:   utcPtr(rec.CheckOutTime),
		CheckOutMethod: rec.CheckOutMethod,
		CreatedAt:      rec.CreatedAt.UTC(),
		UpdatedAt:      rec.UpdatedAt.UTC(),
	}
}

func fromAttendanceModel(m *AttendanceRecordModel) *attendance.Record {
	return &attendance.Record{
		ID:             m.ID,
		UserID:         m.UserID,
		CheckInTime:    m.CheckInTime.UTC(),
		CheckInMethod:  m.CheckInMethod,
		CheckOutTime:   utcPtr(m.CheckOutTime),
		CheckOutMethod: m.CheckOutMethod,
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
