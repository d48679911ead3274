package service

import (
	"context"
	"fmt"
	"time"

	"voiceprint-server-go/internal/domain/eventbus"
	"voiceprint-server-go/internal/domain/voice/aggregate"
	"voiceprint-server-go/internal/domain/voice/feature"
	"voiceprint-server-go/internal/domain/voice/store"
	"voiceprint-server-go/internal/platform/errors"
	"voiceprint-server-go/internal/platform/logging"
)

// 默认参数
const (
	DefaultMatchThreshold  = 0.75
	DefaultMinAudioBytes   = feature.FrameSize
	DefaultIdentifyWorkers = 8
)

// Settings 声纹服务参数
type Settings struct {
	MatchThreshold   float64
	MinAudioBytes    int
	IdentifyWorkers  int
	OperationTimeout time.Duration
}

// DefaultSettings returns the stock thresholds.
func DefaultSettings() Settings {
	return Settings{
		MatchThreshold:  DefaultMatchThreshold,
		MinAudioBytes:   DefaultMinAudioBytes,
		IdentifyWorkers: DefaultIdentifyWorkers,
	}
}

// Option configures the voice services.
type Option func(*base)

// WithSettings overrides the defaults. Zero fields keep the default, so a
// match threshold of exactly 0 cannot be expressed here. MinAudioBytes is
// floored at one frame, anything shorter cannot yield a template.
func WithSettings(s Settings) Option {
	return func(b *base) {
		if s.MatchThreshold > 0 {
			b.settings.MatchThreshold = s.MatchThreshold
		}
		if s.MinAudioBytes > 0 {
			b.settings.MinAudioBytes = max(s.MinAudioBytes, feature.FrameSize)
		}
		if s.IdentifyWorkers > 0 {
			b.settings.IdentifyWorkers = s.IdentifyWorkers
		}
		if s.OperationTimeout > 0 {
			b.settings.OperationTimeout = s.OperationTimeout
		}
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(b *base) { b.logger = logger }
}

func WithEventBus(bus *eventbus.Bus) Option {
	return func(b *base) { b.bus = bus }
}

func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// base 三个服务共享的依赖
type base struct {
	store    store.Store
	settings Settings
	logger   *logging.Logger
	bus      *eventbus.Bus
	now      func() time.Time
}

func newBase(st store.Store, opts []Option) base {
	b := base{
		store:    st,
		settings: DefaultSettings(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) clock() time.Time {
	return b.now().UTC()
}

// withTimeout applies the configured operation timeout, if any.
func (b *base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.settings.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.settings.OperationTimeout)
}

// extract validates the sample and derives its template. minBytes of 0
// skips the length check (verification only requires one frame).
func extract(op string, audio []byte, minBytes int) ([]byte, error) {
	if len(audio) == 0 {
		return nil, errors.Wrap(errors.KindValidation, op, "audio data is required", aggregate.ErrEmptyAudio)
	}
	if minBytes > 0 && len(audio) < minBytes {
		return nil, errors.Wrap(errors.KindValidation, op,
			fmt.Sprintf("audio sample must be at least %d bytes", minBytes), aggregate.ErrTooShort)
	}
	tpl, err := feature.Extract(audio)
	if err != nil || len(tpl) == 0 {
		return nil, errors.Wrap(errors.KindExtraction, op,
			"could not extract voice template from audio data",
			fmt.Errorf("%w: %v", aggregate.ErrExtractionFailed, err))
	}
	return tpl, nil
}

func requireUser(op, userID string) error {
	if userID == "" {
		return errors.New(errors.KindValidation, op, "user ID is required")
	}
	return nil
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrVersionConflict) {
		return errors.Wrap(errors.KindConflict, op, "voice template was modified concurrently, retry the request", err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Wrap(errors.KindDependency, op, "voice operation timed out", err)
	}
	return errors.Wrap(errors.KindStorage, op, "template store failure", err)
}
