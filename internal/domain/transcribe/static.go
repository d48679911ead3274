package transcribe

import (
	"context"
	"errors"

	"voiceprint-server-go/internal/domain/command"
)

// Static 离线转写：固定文本，或按音频长度从指令短语中确定性地挑选一条
type Static struct {
	text    string
	phrases []string
}

// NewStatic returns a transcriber that always yields text. With an empty
// text it simulates recognition by picking a trigger phrase from the audio length.
func NewStatic(text string) *Static {
	s := &Static{text: text}
	for _, info := range command.SupportedCommands() {
		s.phrases = append(s.phrases, info.Examples...)
	}
	return s
}

func (s *Static) Transcribe(_ context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("no audio to transcribe")
	}
	if s.text != "" {
		return s.text, nil
	}
	return s.phrases[len(audio)%len(s.phrases)], nil
}
