package service

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"voiceprint-server-go/internal/domain/voice/aggregate"
	"voiceprint-server-go/internal/domain/voice/feature"
	"voiceprint-server-go/internal/domain/voice/store"
	"voiceprint-server-go/internal/platform/errors"
	"voiceprint-server-go/internal/platform/observability"
)

// IdentificationEngine 1:N 声纹识别
type IdentificationEngine struct {
	base
}

// NewIdentificationEngine 创建识别服务
func NewIdentificationEngine(st store.Store, opts ...Option) *IdentificationEngine {
	return &IdentificationEngine{base: newBase(st, opts)}
}

// Identify returns the best candidate at or above the threshold, or nil.
func (e *IdentificationEngine) Identify(ctx context.Context, scope aggregate.Scope, audio []byte) (*aggregate.Candidate, error) {
	res, err := e.Search(ctx, scope, audio)
	if err != nil {
		return nil, err
	}
	if !res.Matched() {
		return nil, nil
	}
	return res.Best, nil
}

// Search scores every enrolled record in scope and reports the best one,
// matched or not. Ties go to the lexicographically lowest user ID.
func (e *IdentificationEngine) Search(ctx context.Context, scope aggregate.Scope, audio []byte) (res *aggregate.SearchResult, err error) {
	const op = "voice.identify"

	ctx, end := observability.StartSpan(ctx, "voice", "identify")
	defer func() { end(err) }()

	if len(audio) == 0 {
		return nil, errors.Wrap(errors.KindValidation, op, "audio data is required", aggregate.ErrEmptyAudio)
	}
	live, err := extract(op, audio, 0)
	if err != nil {
		return nil, err
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	recs, err := e.store.ListEnrolled(ctx, scope)
	if err != nil {
		return nil, storageErr(op, err)
	}
	res = &aggregate.SearchResult{Candidates: len(recs), Threshold: e.settings.MatchThreshold}
	if len(recs) == 0 {
		return res, nil
	}

	scores := make([]float64, len(recs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.settings.IdentifyWorkers, 1))
	for i, rec := range recs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scores[i] = feature.Score(live, rec.VoiceTemplate)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(errors.KindDependency, op, "voice identification timed out", err)
	}

	best := -1
	for i, rec := range recs {
		if best < 0 || scores[i] > scores[best] ||
			(scores[i] == scores[best] && rec.UserID < recs[best].UserID) {
			best = i
		}
	}
	res.Best = &aggregate.Candidate{UserID: recs[best].UserID, Confidence: scores[best]}

	observability.RecordMetric(ctx, "voice.identify.candidates", float64(len(recs)), map[string]string{
		"tenant":  scope.TenantID,
		"matched": strconv.FormatBool(res.Matched()),
	})
	e.logger.DebugTag("Identify", "scope %q: %d candidates, best %s (%.3f)", scope.TenantID, len(recs), res.Best.UserID, res.Best.Confidence)
	return res, nil
}
