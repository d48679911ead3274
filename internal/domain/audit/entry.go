package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Audit actions
const (
	ActionEnroll       = "voice.enroll"
	ActionUpdate       = "voice.update"
	ActionDelete       = "voice.delete"
	ActionVerify       = "voice.verify"
	ActionAuthenticate = "voice.authenticate"
	ActionPassphrase   = "voice.passphrase"
	ActionCommand      = "voice.command"
)

// VerificationActions are the actions counted by Metrics.
var VerificationActions = []string{ActionVerify, ActionAuthenticate, ActionPassphrase}

// Entry 审计日志条目
type Entry struct {
	ID         string                 `json:"id"`
	UserID     string                 `json:"userId"`
	Action     string                 `json:"action"`
	Success    bool                   `json:"success"`
	Confidence float64                `json:"confidence"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Repository 审计日志仓库
type Repository interface {
	// Append 写入一条审计日志
	Append(ctx context.Context, entry *Entry) error

	// ListByUser 按时间倒序返回用户的日志; actions 为空表示全部
	ListByUser(ctx context.Context, userID string, actions []string) ([]*Entry, error)
}

type memoryRepository struct {
	mu      sync.RWMutex
	entries []*Entry
}

// NewMemoryRepository builds an in-process audit log.
func NewMemoryRepository() Repository {
	return &memoryRepository{}
}

func (r *memoryRepository) Append(_ context.Context, entry *Entry) error {
	c := *entry
	r.mu.Lock()
	r.entries = append(r.entries, &c)
	r.mu.Unlock()
	return nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string, actions []string) ([]*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, 0)
	for _, e := range r.entries {
		if e.UserID != userID || !matchesAction(e.Action, actions) {
			continue
		}
		c := *e
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func matchesAction(action string, actions []string) bool {
	if len(actions) == 0 {
		return true
	}
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}
