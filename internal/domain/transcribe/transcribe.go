// Package transcribe provides the speech-to-text backends used by the
// voice command processor.
package transcribe

import (
	"fmt"

	"voiceprint-server-go/internal/domain/command"
	"voiceprint-server-go/internal/platform/logging"
)

// 支持的转写后端
const (
	TypeStatic = "static"
	TypeOpenAI = "openai"
)

// Config 转写配置
type Config struct {
	Type       string
	Model      string
	BaseURL    string
	APIKey     string
	Language   string
	StaticText string
}

// New builds the transcriber selected by cfg.Type.
func New(cfg Config, logger *logging.Logger) (command.Transcriber, error) {
	switch cfg.Type {
	case "", TypeStatic:
		return NewStatic(cfg.StaticText), nil
	case TypeOpenAI:
		return NewWhisper(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported transcriber type: %s", cfg.Type)
	}
}
