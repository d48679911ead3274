package authn

import (
	"context"
	"strings"
	"time"

	"voiceprint-server-go/internal/domain/eventbus"
	"voiceprint-server-go/internal/domain/voice/aggregate"
	"voiceprint-server-go/internal/domain/voice/service"
	"voiceprint-server-go/internal/domain/voice/store"
	"voiceprint-server-go/internal/platform/errors"
	"voiceprint-server-go/internal/platform/logging"
)

// DefaultRecentWindow 安全等级中"近期更新"的时间窗口
const DefaultRecentWindow = 30 * 24 * time.Hour

const maxSecurityLevel = 5

// DefaultPassphrases is the allow-list of spoken passphrases.
var DefaultPassphrases = []string{
	"my voice is my password",
	"secure access granted",
	"voice authentication",
}

// Orchestrator 声纹登录：识别 + 可选口令 + 签发令牌
type Orchestrator struct {
	identify     *service.IdentificationEngine
	verify       *service.VerificationEngine
	store        store.Store
	tokens       TokenIssuer
	passphrases  map[string]struct{}
	recentWindow time.Duration
	logger       *logging.Logger
	bus          *eventbus.Bus
	now          func() time.Time
}

type Option func(*Orchestrator)

// WithPassphrases replaces the allow-list. Phrases are compared case-insensitively.
func WithPassphrases(phrases []string) Option {
	return func(o *Orchestrator) {
		if len(phrases) == 0 {
			return
		}
		o.passphrases = normalizeAll(phrases)
	}
}

func WithRecentWindow(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.recentWindow = d
		}
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithEventBus(bus *eventbus.Bus) Option {
	return func(o *Orchestrator) { o.bus = bus }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator wires the orchestrator to the voice engines and token issuer.
func NewOrchestrator(
	identify *service.IdentificationEngine,
	verify *service.VerificationEngine,
	st store.Store,
	tokens TokenIssuer,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		identify:     identify,
		verify:       verify,
		store:        st,
		tokens:       tokens,
		passphrases:  normalizeAll(DefaultPassphrases),
		recentWindow: DefaultRecentWindow,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Authenticate identifies the speaker within scope and issues a token.
// A non-empty passphrase adds the allow-list check and a fresh 1:1
// verification against the identified user.
func (o *Orchestrator) Authenticate(ctx context.Context, scope aggregate.Scope, audio []byte, passphrase *string) (*aggregate.AuthenticationResult, error) {
	const op = "voice.authenticate"

	res, err := o.authenticate(ctx, scope, audio, passphrase)
	if err != nil {
		o.logger.WarnTag("Auth", "voice authentication failed for tenant %q: %v", scope.TenantID, err)
		o.bus.Publish(eventbus.EventVoiceAuthentication, eventbus.AuthenticationEvent{
			UserID:   failedUser(err),
			TenantID: scope.TenantID,
			Reason:   errors.MessageOf(err, "internal error"),
			At:       o.now().UTC(),
		})
		return nil, errors.Wrap(errors.KindDomain, op, "voice authentication failed", err)
	}

	o.logger.InfoTag("Auth", "user %s authenticated by voice (confidence %.3f)", res.UserID, res.Confidence)
	o.bus.Publish(eventbus.EventVoiceAuthentication, eventbus.AuthenticationEvent{
		UserID:        res.UserID,
		TenantID:      scope.TenantID,
		Authenticated: true,
		Confidence:    res.Confidence,
		At:            res.AuthenticatedAt,
	})
	return res, nil
}

// userError carries the identified user on failures after identification.
type userError struct {
	userID string
	err    error
}

func (e *userError) Error() string { return e.err.Error() }
func (e *userError) Unwrap() error { return e.err }

func failedUser(err error) string {
	var ue *userError
	if errors.As(err, &ue) {
		return ue.userID
	}
	return ""
}

func (o *Orchestrator) authenticate(ctx context.Context, scope aggregate.Scope, audio []byte, passphrase *string) (*aggregate.AuthenticationResult, error) {
	const op = "voice.authenticate"

	if len(audio) == 0 {
		return nil, errors.Wrap(errors.KindValidation, op, "audio data is required", aggregate.ErrEmptyAudio)
	}

	search, err := o.identify.Search(ctx, scope, audio)
	if err != nil {
		return nil, err
	}
	if search.Candidates == 0 {
		return nil, errors.Wrap(errors.KindNotFound, op, "no users enrolled for voice authentication", aggregate.ErrNoEnrolledUsers)
	}
	if !search.Matched() {
		return nil, errors.Wrap(errors.KindThreshold, op, "voice authentication failed, no matching user found", aggregate.ErrNoMatch)
	}
	best := search.Best

	if passphrase != nil && strings.TrimSpace(*passphrase) != "" {
		if !o.allowed(*passphrase) {
			return nil, &userError{best.UserID, errors.Wrap(errors.KindValidation, op, "invalid passphrase", aggregate.ErrPassphraseRejected)}
		}
		match, err := o.verify.VerifyFor(ctx, best.UserID, audio, eventbus.SourceAuthenticate)
		if err != nil {
			return nil, &userError{best.UserID, err}
		}
		if !match.IsMatch {
			return nil, &userError{best.UserID, errors.Wrap(errors.KindThreshold, op, "voice characteristics do not match", aggregate.ErrVoiceMismatch)}
		}
	}

	token, ttl, err := o.tokens.Issue(ctx, best.UserID)
	if err != nil {
		return nil, &userError{best.UserID, errors.Wrap(errors.KindDependency, op, "failed to issue access token", err)}
	}

	return &aggregate.AuthenticationResult{
		UserID:          best.UserID,
		Authenticated:   true,
		Confidence:      best.Confidence,
		Token:           token,
		AuthenticatedAt: o.now().UTC(),
		ExpiresIn:       int64(ttl / time.Second),
	}, nil
}

// ValidatePassphrase checks the phrase against the allow-list and the
// audio against the user's template.
func (o *Orchestrator) ValidatePassphrase(ctx context.Context, userID string, audio []byte, phrase string) (bool, error) {
	const op = "voice.passphrase"

	if userID == "" {
		return false, errors.New(errors.KindValidation, op, "user ID is required")
	}
	if !o.allowed(phrase) {
		o.logger.InfoTag("Auth", "passphrase rejected for user %s", userID)
		return false, errors.Wrap(errors.KindValidation, op, "invalid passphrase", aggregate.ErrPassphraseRejected)
	}

	match, err := o.verify.VerifyFor(ctx, userID, audio, eventbus.SourcePassphrase)
	if err != nil {
		return false, err
	}
	if !match.IsMatch {
		return false, errors.Wrap(errors.KindThreshold, op, "voice characteristics do not match", aggregate.ErrVoiceMismatch)
	}
	return true, nil
}

// SecurityStatus reports the voice security level. A missing record is level 0.
func (o *Orchestrator) SecurityStatus(ctx context.Context, userID string) (*aggregate.SecurityStatus, error) {
	const op = "voice.security"

	if userID == "" {
		return nil, errors.New(errors.KindValidation, op, "user ID is required")
	}
	rec, err := o.store.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, "template store failure", err)
	}

	status := &aggregate.SecurityStatus{
		UserID:               userID,
		VoiceSecurityEnabled: rec != nil && rec.IsVoiceEnrolled,
		HasPassphrase:        rec.HasTemplate(),
		SecurityLevel:        o.securityLevel(rec),
	}
	if rec != nil {
		updated := rec.UpdatedAt
		status.LastUpdate = &updated
	}
	return status, nil
}

func (o *Orchestrator) securityLevel(rec *aggregate.BiometricRecord) int {
	if rec == nil || !rec.IsVoiceEnrolled {
		return 0
	}
	level := 1
	if rec.HasTemplate() {
		level++
	}
	if rec.UpdatedAt.After(o.now().Add(-o.recentWindow)) {
		level++
	}
	return min(level, maxSecurityLevel)
}

func (o *Orchestrator) allowed(phrase string) bool {
	_, ok := o.passphrases[normalize(phrase)]
	return ok
}

func normalize(phrase string) string {
	return strings.ToLower(strings.TrimSpace(phrase))
}

func normalizeAll(phrases []string) map[string]struct{} {
	out := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		out[normalize(p)] = struct{}{}
	}
	return out
}
