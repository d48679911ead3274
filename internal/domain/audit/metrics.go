package audit

import (
	"context"

	"voiceprint-server-go/internal/domain/voice/aggregate"
	"voiceprint-server-go/internal/platform/errors"
)

// Metrics summarizes a user's verification history from the audit log.
func Metrics(ctx context.Context, repo Repository, userID string) (*aggregate.VoiceMetrics, error) {
	entries, err := repo.ListByUser(ctx, userID, VerificationActions)
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "audit.metrics", "failed to read audit log", err)
	}

	m := &aggregate.VoiceMetrics{UserID: userID}
	var confidenceSum float64
	for _, e := range entries {
		m.TotalVerifications++
		if e.Success {
			m.SuccessfulVerifications++
		}
		confidenceSum += e.Confidence
		if m.LastVerification == nil || e.Timestamp.After(*m.LastVerification) {
			ts := e.Timestamp
			m.LastVerification = &ts
		}
	}
	if m.TotalVerifications > 0 {
		m.AverageConfidence = confidenceSum / float64(m.TotalVerifications)
		m.SuccessRate = float64(m.SuccessfulVerifications) / float64(m.TotalVerifications)
	}
	return m, nil
}
