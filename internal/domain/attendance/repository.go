package attendance

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository 考勤记录仓库
type Repository interface {
	// Append 追加一条签到记录
	Append(ctx context.Context, rec *Record) error

	// LatestOpen 返回 [from, to) 内最近一条未签退记录，不存在时返回 nil, nil
	LatestOpen(ctx context.Context, userID string, from, to time.Time) (*Record, error)

	// Update 更新记录
	Update(ctx context.Context, rec *Record) error

	// ListByUser 按签到时间倒序列出 since 之后的记录
	ListByUser(ctx context.Context, userID string, since time.Time) ([]*Record, error)
}

type memoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryRepository builds an in-process repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{records: make(map[string]*Record)}
}

func (r *memoryRepository) Append(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *rec
	r.records[rec.ID] = &c
	return nil
}

func (r *memoryRepository) LatestOpen(_ context.Context, userID string, from, to time.Time) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *Record
	for _, rec := range r.records {
		if rec.UserID != userID || !rec.Open() || rec.CheckInTime.Before(from) || !rec.CheckInTime.Before(to) {
			continue
		}
		if latest == nil || rec.CheckInTime.After(latest.CheckInTime) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, nil
	}
	c := *latest
	return &c, nil
}

func (r *memoryRepository) Update(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *rec
	r.records[rec.ID] = &c
	return nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string, since time.Time) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Record, 0)
	for _, rec := range r.records {
		if rec.UserID == userID && !rec.CheckInTime.Before(since) {
			c := *rec
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckInTime.After(out[j].CheckInTime) })
	return out, nil
}
