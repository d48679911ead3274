package attendance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"voiceprint-server-go/internal/domain/command"
	"voiceprint-server-go/internal/platform/errors"
	"voiceprint-server-go/internal/platform/logging"
)

// Executor applies recognized voice commands to attendance state. Only
// CheckIn and CheckOut mutate anything; the rest are acknowledged and logged.
type Executor struct {
	repo   Repository
	logger *logging.Logger
	now    func() time.Time
	locks  sync.Map // userID -> *sync.Mutex
}

func NewExecutor(repo Repository, logger *logging.Logger) *Executor {
	return &Executor{repo: repo, logger: logger, now: time.Now}
}

// WithClock overrides the time source.
func (e *Executor) WithClock(now func() time.Time) *Executor {
	e.now = now
	return e
}

func (e *Executor) Execute(ctx context.Context, userID string, cmd command.VoiceCommand) (string, error) {
	switch cmd {
	case command.CheckIn:
		return e.checkIn(ctx, userID)
	case command.CheckOut:
		return e.checkOut(ctx, userID)
	case command.GetStatus:
		return e.status(ctx, userID)
	case command.StartBreak, command.EndBreak, command.RequestLeave, command.ViewSchedule:
		e.logger.InfoTag("Command", "user %s requested %s", userID, cmd)
		return fmt.Sprintf("%s acknowledged", cmd), nil
	default:
		return "", errors.New(errors.KindValidation, "attendance.execute", fmt.Sprintf("unsupported command %s", cmd))
	}
}

func (e *Executor) lock(userID string) func() {
	m, _ := e.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (e *Executor) checkIn(ctx context.Context, userID string) (string, error) {
	const op = "attendance.check_in"
	defer e.lock(userID)()

	now := e.now().UTC()
	from, to := Day(now)
	open, err := e.repo.LatestOpen(ctx, userID, from, to)
	if err != nil {
		return "", errors.Wrap(errors.KindStorage, op, "failed to load attendance", err)
	}
	if open != nil {
		return "", errors.Wrap(errors.KindConflict, op, "already checked in today", ErrAlreadyCheckedIn)
	}

	rec := &Record{
		ID:            uuid.NewString(),
		UserID:        userID,
		CheckInTime:   now,
		CheckInMethod: MethodVoiceCommand,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.repo.Append(ctx, rec); err != nil {
		return "", errors.Wrap(errors.KindStorage, op, "failed to record check-in", err)
	}

	e.logger.InfoTag("Command", "user %s checked in at %s", userID, now.Format(time.RFC3339))
	return fmt.Sprintf("checked in at %s", now.Format("15:04")), nil
}

func (e *Executor) checkOut(ctx context.Context, userID string) (string, error) {
	const op = "attendance.check_out"
	defer e.lock(userID)()

	now := e.now().UTC()
	from, to := Day(now)
	open, err := e.repo.LatestOpen(ctx, userID, from, to)
	if err != nil {
		return "", errors.Wrap(errors.KindStorage, op, "failed to load attendance", err)
	}
	if open == nil {
		return "", errors.Wrap(errors.KindNotFound, op, "no active check-in found for today", ErrNoOpenCheckIn)
	}

	open.CheckOutTime = &now
	open.CheckOutMethod = MethodVoiceCommand
	open.UpdatedAt = now
	if err := e.repo.Update(ctx, open); err != nil {
		return "", errors.Wrap(errors.KindStorage, op, "failed to record check-out", err)
	}

	e.logger.InfoTag("Command", "user %s checked out at %s", userID, now.Format(time.RFC3339))
	return fmt.Sprintf("checked out at %s", now.Format("15:04")), nil
}

// status 汇报当天(UTC)最近一条考勤记录
func (e *Executor) status(ctx context.Context, userID string) (string, error) {
	const op = "attendance.status"

	from, _ := Day(e.now())
	records, err := e.repo.ListByUser(ctx, userID, from)
	if err != nil {
		return "", errors.Wrap(errors.KindStorage, op, "failed to load attendance", err)
	}
	if len(records) == 0 {
		return "not checked in today", nil
	}
	latest := records[0]
	if latest.Open() {
		return fmt.Sprintf("checked in since %s", latest.CheckInTime.UTC().Format("15:04")), nil
	}
	return fmt.Sprintf("checked out at %s", latest.CheckOutTime.UTC().Format("15:04")), nil
}
