package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"voiceprint-server-go/internal/domain/eventbus"
	"voiceprint-server-go/internal/platform/logging"
)

// Recorder turns bus events into audit entries.
type Recorder struct {
	repo   Repository
	logger *logging.Logger
}

func NewRecorder(repo Repository, logger *logging.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Attach subscribes the recorder to every voice topic.
func (r *Recorder) Attach(bus *eventbus.Bus) error {
	subs := []struct {
		topic string
		fn    interface{}
	}{
		{eventbus.EventVoiceEnrolled, func(e eventbus.EnrollmentEvent) { r.onEnrollment(ActionEnroll, e) }},
		{eventbus.EventVoiceUpdated, func(e eventbus.EnrollmentEvent) { r.onEnrollment(ActionUpdate, e) }},
		{eventbus.EventVoiceDeleted, func(e eventbus.EnrollmentEvent) { r.onEnrollment(ActionDelete, e) }},
		{eventbus.EventVoiceVerification, r.onVerification},
		{eventbus.EventVoiceAuthentication, r.onAuthentication},
		{eventbus.EventCommandProcessed, r.onCommand},
	}
	for _, s := range subs {
		if err := bus.Subscribe(s.topic, s.fn); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) onEnrollment(action string, e eventbus.EnrollmentEvent) {
	r.write(&Entry{
		UserID:    e.UserID,
		Action:    action,
		Success:   true,
		Details:   map[string]interface{}{"tenant_id": e.TenantID, "template_size": e.TemplateSize},
		Timestamp: e.At,
	})
}

func (r *Recorder) onVerification(e eventbus.VerificationEvent) {
	action := ActionVerify
	if e.Source == eventbus.SourcePassphrase {
		action = ActionPassphrase
	}
	r.write(&Entry{
		UserID:     e.UserID,
		Action:     action,
		Success:    e.Matched,
		Confidence: e.Confidence,
		Details:    map[string]interface{}{"source": e.Source, "threshold": e.Threshold},
		Timestamp:  e.At,
	})
}

func (r *Recorder) onAuthentication(e eventbus.AuthenticationEvent) {
	// failed attempts without an identified user have nobody to attribute to
	if e.UserID == "" {
		r.logger.InfoTag("Audit", "anonymous authentication failure in tenant %q: %s", e.TenantID, e.Reason)
		return
	}
	r.write(&Entry{
		UserID:     e.UserID,
		Action:     ActionAuthenticate,
		Success:    e.Authenticated,
		Confidence: e.Confidence,
		Details:    map[string]interface{}{"tenant_id": e.TenantID, "reason": e.Reason},
		Timestamp:  e.At,
	})
}

func (r *Recorder) onCommand(e eventbus.CommandEvent) {
	r.write(&Entry{
		UserID:     e.UserID,
		Action:     ActionCommand,
		Success:    e.Executed,
		Confidence: e.Confidence,
		Details: map[string]interface{}{
			"command":       e.Command,
			"transcription": e.Transcription,
			"message":       e.Message,
		},
		Timestamp: e.At,
	})
}

func (r *Recorder) write(entry *Entry) {
	entry.ID = uuid.NewString()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if err := r.repo.Append(context.Background(), entry); err != nil {
		r.logger.ErrorTag("Audit", "failed to write %s entry for %s: %v", entry.Action, entry.UserID, err)
	}
}
