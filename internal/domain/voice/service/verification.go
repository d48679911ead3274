package service

import (
	"context"

	"voiceprint-server-go/internal/domain/eventbus"
	"voiceprint-server-go/internal/domain/voice/aggregate"
	"voiceprint-server-go/internal/domain/voice/feature"
	"voiceprint-server-go/internal/domain/voice/store"
	"voiceprint-server-go/internal/platform/errors"
)

// VerificationEngine 1:1 声纹比对
type VerificationEngine struct {
	base
}

// NewVerificationEngine 创建比对服务
func NewVerificationEngine(st store.Store, opts ...Option) *VerificationEngine {
	return &VerificationEngine{base: newBase(st, opts)}
}

// Threshold returns the configured match threshold.
func (e *VerificationEngine) Threshold() float64 {
	return e.settings.MatchThreshold
}

// Verify scores audio against the user's stored template. A non-match is
// reported in the result, not as an error.
func (e *VerificationEngine) Verify(ctx context.Context, userID string, audio []byte) (*aggregate.MatchResult, error) {
	return e.verify(ctx, userID, audio, eventbus.SourceVerify)
}

// VerifyFor is Verify with the audit source recorded on the event.
func (e *VerificationEngine) VerifyFor(ctx context.Context, userID string, audio []byte, source string) (*aggregate.MatchResult, error) {
	return e.verify(ctx, userID, audio, source)
}

func (e *VerificationEngine) verify(ctx context.Context, userID string, audio []byte, source string) (*aggregate.MatchResult, error) {
	const op = "voice.verify"

	if err := requireUser(op, userID); err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, errors.Wrap(errors.KindValidation, op, "audio data is required", aggregate.ErrEmptyAudio)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	rec, err := e.store.Get(ctx, userID)
	if err != nil {
		return nil, storageErr(op, err)
	}
	if !rec.Enrolled() {
		return nil, errors.Wrap(errors.KindNotFound, op, "no voice template found for user", aggregate.ErrNoTemplate)
	}

	live, err := extract(op, audio, 0)
	if err != nil {
		return nil, err
	}

	confidence := feature.Score(live, rec.VoiceTemplate)
	result := aggregate.NewMatchResult(userID, confidence, e.settings.MatchThreshold, e.clock())

	e.logger.InfoTag("Voice", "verification for user %s: match=%t confidence=%.3f", userID, result.IsMatch, confidence)
	e.bus.Publish(eventbus.EventVoiceVerification, eventbus.VerificationEvent{
		UserID:     userID,
		Source:     source,
		Matched:    result.IsMatch,
		Confidence: confidence,
		Threshold:  result.Threshold,
		At:         result.Timestamp,
	})
	return result, nil
}
