package eventbus

import (
	"testing"
	"time"
)

func TestPublishDeliversSynchronously(t *testing.T) {
	bus := New()
	var got VerificationEvent
	if err := bus.Subscribe(EventVoiceVerification, func(evt VerificationEvent) { got = evt }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	bus.Publish(EventVoiceVerification, VerificationEvent{UserID: "u-1", Matched: true, Confidence: 0.9, At: time.Now()})

	if got.UserID != "u-1" || !got.Matched {
		t.Fatalf("handler did not receive event: %+v", got)
	}
}

func TestPublishFansOutToEverySubscriber(t *testing.T) {
	bus := New()
	var calls int
	for i := 0; i < 3; i++ {
		if err := bus.Subscribe(EventCommandProcessed, func(CommandEvent) { calls++ }); err != nil {
			t.Fatalf("Subscribe() error = %v", err)
		}
	}
	bus.Publish(EventCommandProcessed, CommandEvent{UserID: "u"})
	bus.Publish(EventVoiceDeleted, EnrollmentEvent{UserID: "u"})

	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestNilBusPublishIsNoop(t *testing.T) {
	var bus *Bus
	bus.Publish(EventVoiceDeleted, EnrollmentEvent{})
}
