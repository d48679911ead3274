package command

import (
	"context"
	"time"

	"voiceprint-server-go/internal/domain/eventbus"
	"voiceprint-server-go/internal/domain/voice/aggregate"
	"voiceprint-server-go/internal/platform/errors"
	"voiceprint-server-go/internal/platform/logging"
)

// DefaultExecutionThreshold is the minimum confidence for dispatch.
const DefaultExecutionThreshold = 0.7

const (
	msgExecuted = "command executed successfully"
	msgLowConf  = "command confidence too low for execution"
)

// Transcriber turns command audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// TranscriberFunc adapts a plain function to Transcriber.
type TranscriberFunc func(ctx context.Context, audio []byte) (string, error)

func (f TranscriberFunc) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return f(ctx, audio)
}

// ActionExecutor performs the side effect of a recognized command and
// returns a short human-readable result.
type ActionExecutor interface {
	Execute(ctx context.Context, userID string, cmd VoiceCommand) (string, error)
}

// Outcome 指令处理结果; Executed 为 true 时 Confidence 必然不低于阈值
type Outcome struct {
	UserID        string       `json:"userId"`
	Transcription string       `json:"transcription"`
	Command       VoiceCommand `json:"recognizedCommand"`
	Confidence    float64      `json:"confidence"`
	Executed      bool         `json:"isExecuted"`
	ResultMessage string       `json:"executionResult"`
	ProcessedAt   time.Time    `json:"processedAt"`
}

// Processor transcribes audio, recognizes the command and dispatches it.
type Processor struct {
	transcriber Transcriber
	executor    ActionExecutor
	threshold   float64
	logger      *logging.Logger
	bus         *eventbus.Bus
	now         func() time.Time
}

type Option func(*Processor)

// WithThreshold raises the execution gate. Values below
// DefaultExecutionThreshold are floored to it.
func WithThreshold(threshold float64) Option {
	return func(p *Processor) { p.threshold = max(threshold, DefaultExecutionThreshold) }
}

func WithLogger(logger *logging.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

func WithEventBus(bus *eventbus.Bus) Option {
	return func(p *Processor) { p.bus = bus }
}

func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

func NewProcessor(transcriber Transcriber, executor ActionExecutor, opts ...Option) *Processor {
	p := &Processor{
		transcriber: transcriber,
		executor:    executor,
		threshold:   DefaultExecutionThreshold,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one voice command. Low confidence and failed dispatch are
// reported in the outcome; only bad input and transcriber failures are errors.
func (p *Processor) Process(ctx context.Context, userID string, audio []byte) (*Outcome, error) {
	const op = "command.process"

	if userID == "" {
		return nil, errors.New(errors.KindValidation, op, "user ID is required")
	}
	if len(audio) == 0 {
		return nil, errors.Wrap(errors.KindValidation, op, "audio data is required", aggregate.ErrEmptyAudio)
	}

	text, err := p.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return nil, errors.Wrap(errors.KindDependency, op, "transcription failed", err)
	}

	cmd, confidence := Recognize(text)
	outcome := &Outcome{
		UserID:        userID,
		Transcription: text,
		Command:       cmd,
		Confidence:    confidence,
		ProcessedAt:   p.now().UTC(),
	}

	if confidence < p.threshold {
		outcome.ResultMessage = msgLowConf
		p.logger.InfoTag("Command", "user %s: %q below threshold (%.2f < %.2f)", userID, text, confidence, p.threshold)
		p.publish(outcome)
		return outcome, nil
	}

	msg, err := p.executor.Execute(ctx, userID, cmd)
	if err != nil {
		outcome.ResultMessage = errors.MessageOf(err, err.Error())
		p.logger.WarnTag("Command", "user %s: %s failed: %v", userID, cmd, err)
	} else {
		outcome.Executed = true
		outcome.ResultMessage = msg
		if msg == "" {
			outcome.ResultMessage = msgExecuted
		}
		p.logger.InfoTag("Command", "user %s: %s executed (confidence %.2f)", userID, cmd, confidence)
	}

	p.publish(outcome)
	return outcome, nil
}

func (p *Processor) publish(o *Outcome) {
	p.bus.Publish(eventbus.EventCommandProcessed, eventbus.CommandEvent{
		UserID:        o.UserID,
		Transcription: o.Transcription,
		Command:       o.Command.String(),
		Confidence:    o.Confidence,
		Executed:      o.Executed,
		Message:       o.ResultMessage,
		At:            o.ProcessedAt,
	})
}
