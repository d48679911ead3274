package attendance

import (
	"errors"
	"time"
)

// MethodVoiceCommand marks records created through voice commands.
const MethodVoiceCommand = "Voice Command"

var (
	ErrNoOpenCheckIn    = errors.New("no active check-in found for today")
	ErrAlreadyCheckedIn = errors.New("already checked in today")
)

// Record 考勤记录
type Record struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	CheckInTime    time.Time  `json:"checkInTime"`
	CheckInMethod  string     `json:"checkInMethod"`
	CheckOutTime   *time.Time `json:"checkOutTime,omitempty"`
	CheckOutMethod string     `json:"checkOutMethod,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Open reports whether the record still waits for a check-out.
func (r *Record) Open() bool {
	return r.CheckOutTime == nil
}

// Day returns the UTC calendar day containing t as [start, end).
func Day(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
