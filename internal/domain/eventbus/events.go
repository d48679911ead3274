package eventbus

import "time"

// 事件类型定义
const (
	EventVoiceEnrolled       = "voice:enrolled"
	EventVoiceUpdated        = "voice:updated"
	EventVoiceDeleted        = "voice:deleted"
	EventVoiceVerification   = "voice:verification"
	EventVoiceAuthentication = "voice:authentication"
	EventCommandProcessed    = "command:processed"
)

// Verification sources
const (
	SourceVerify       = "verify"
	SourceAuthenticate = "authenticate"
	SourcePassphrase   = "passphrase"
)

// EnrollmentEvent 模板录入/更新/删除
type EnrollmentEvent struct {
	UserID       string    `json:"user_id"`
	TenantID     string    `json:"tenant_id,omitempty"`
	TemplateSize int       `json:"template_size"`
	At           time.Time `json:"at"`
}

// VerificationEvent 一次 1:1 比对
type VerificationEvent struct {
	UserID     string    `json:"user_id"`
	Source     string    `json:"source"`
	Matched    bool      `json:"matched"`
	Confidence float64   `json:"confidence"`
	Threshold  float64   `json:"threshold"`
	At         time.Time `json:"at"`
}

// AuthenticationEvent 声纹登录结果
type AuthenticationEvent struct {
	UserID        string    `json:"user_id,omitempty"`
	TenantID      string    `json:"tenant_id,omitempty"`
	Authenticated bool      `json:"authenticated"`
	Confidence    float64   `json:"confidence"`
	Reason        string    `json:"reason,omitempty"`
	At            time.Time `json:"at"`
}

// CommandEvent 语音指令处理结果
type CommandEvent struct {
	UserID        string    `json:"user_id"`
	Transcription string    `json:"transcription"`
	Command       string    `json:"command"`
	Confidence    float64   `json:"confidence"`
	Executed      bool      `json:"executed"`
	Message       string    `json:"message"`
	At            time.Time `json:"at"`
}
