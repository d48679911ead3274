package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"voiceprint-server-go/internal/platform/logging"
)

// Whisper 通过 OpenAI 兼容接口转写指令音频
type Whisper struct {
	client   *openai.Client
	model    string
	language string
	logger   *logging.Logger
}

// NewWhisper creates an OpenAI transcription client.
func NewWhisper(cfg Config, logger *logging.Logger) (*Whisper, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing OpenAI API key")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}

	return &Whisper{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    model,
		language: cfg.Language,
		logger:   logger,
	}, nil
}

func (w *Whisper) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("no audio to transcribe")
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: "command.wav",
		Reader:   bytes.NewReader(audio),
		Language: w.language,
	})
	if err != nil {
		w.logger.ErrorTag("Command", "whisper transcription failed: %v", err)
		return "", fmt.Errorf("whisper transcription: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	w.logger.DebugTag("Command", "whisper transcribed %d bytes: %q", len(audio), text)
	return text, nil
}
