package voice_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voiceprint-server-go/internal/domain/attendance"
	"voiceprint-server-go/internal/domain/audit"
	"voiceprint-server-go/internal/domain/command"
	"voiceprint-server-go/internal/domain/eventbus"
	"voiceprint-server-go/internal/domain/transcribe"
	"voiceprint-server-go/internal/domain/voice/authn"
	"voiceprint-server-go/internal/domain/voice/feature"
	"voiceprint-server-go/internal/domain/voice/service"
	"voiceprint-server-go/internal/domain/voice/store"
	testhelpers "voiceprint-server-go/internal/platform/testing"
	httptransport "voiceprint-server-go/internal/transport/http"
	"voiceprint-server-go/internal/transport/http/voice"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Code    int             `json:"code"`
}

type server struct {
	engine http.Handler
	tokens *authn.JWTIssuer
}

func newServer(t *testing.T, withAuth bool) *server {
	t.Helper()
	cfg := testhelpers.SetupTestConfig(t)
	logger := testhelpers.SetupTestLogger(t)

	bus := eventbus.New()
	auditRepo := audit.NewMemoryRepository()
	require.NoError(t, audit.NewRecorder(auditRepo, logger).Attach(bus))

	st := store.NewMemory()
	opts := []service.Option{service.WithLogger(logger), service.WithEventBus(bus)}
	enroll := service.NewEnrollmentManager(st, opts...)
	verify := service.NewVerificationEngine(st, opts...)
	identify := service.NewIdentificationEngine(st, opts...)

	tokens := authn.NewJWTIssuer(cfg.Server.Auth.JWTSecret)
	orch := authn.NewOrchestrator(identify, verify, st, tokens, authn.WithLogger(logger), authn.WithEventBus(bus))
	processor := command.NewProcessor(
		transcribe.NewStatic("check in"),
		attendance.NewExecutor(attendance.NewMemoryRepository(), logger),
		command.WithLogger(logger),
		command.WithEventBus(bus),
	)

	routerOpts := httptransport.Options{Config: cfg, Logger: logger}
	if withAuth {
		routerOpts.AuthMiddleware = httptransport.BearerAuth(tokens, logger)
	}
	router, err := httptransport.Build(routerOpts)
	require.NoError(t, err)

	h, err := voice.NewHandler(voice.Deps{
		Enrollment:   enroll,
		Verification: verify,
		Auth:         orch,
		Commands:     processor,
		Audit:        auditRepo,
		Templates:    st,
		Logger:       logger,
	})
	require.NoError(t, err)
	h.RegisterRoutes(router)

	return &server{engine: router.Engine, tokens: tokens}
}

func multipartBody(t *testing.T, fields map[string]string, audio []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if audio != nil {
		fw, err := w.CreateFormFile("audio", "sample.raw")
		require.NoError(t, err)
		_, err = fw.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (s *server) do(t *testing.T, method, path string, fields map[string]string, audio []byte, token string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if fields != nil || audio != nil {
		body, ct := multipartBody(t, fields, audio)
		req = httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", ct)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func sample(pitch float64, seed int64) []byte {
	return testhelpers.SynthVoice(4*feature.FrameSize, pitch, seed)
}

func TestEnrollVerifyFlow(t *testing.T) {
	s := newServer(t, false)
	a1 := sample(4, 1)

	code, env := s.do(t, http.MethodPost, "/api/voice/enroll", map[string]string{"user_id": "u1", "tenant_id": "acme"}, a1, "")
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.True(t, env.Success)

	code, env = s.do(t, http.MethodPost, "/api/voice/verify", map[string]string{"user_id": "u1"}, a1, "")
	require.Equal(t, http.StatusOK, code)
	var match struct {
		IsMatch    bool    `json:"isMatch"`
		Confidence float64 `json:"confidence"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &match))
	assert.True(t, match.IsMatch)
	assert.Equal(t, 1.0, match.Confidence)

	code, env = s.do(t, http.MethodGet, "/api/voice/template/u1", nil, nil, "")
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, "/api/voice/enrollments/acme", nil, nil, "")
	assert.Equal(t, http.StatusOK, code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)

	code, env = s.do(t, http.MethodGet, "/api/voice/metrics/u1", nil, nil, "")
	require.Equal(t, http.StatusOK, code)
	var metrics struct {
		TotalVerifications int     `json:"totalVerifications"`
		AverageConfidence  float64 `json:"averageConfidence"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &metrics))
	assert.Equal(t, 1, metrics.TotalVerifications)
	assert.Equal(t, 1.0, metrics.AverageConfidence)

	code, _ = s.do(t, http.MethodPut, "/api/voice/template/u1", map[string]string{}, sample(8, 2), "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodDelete, "/api/voice/template/u1", nil, nil, "")
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, "/api/voice/template/u1", nil, nil, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "user is not enrolled for voice recognition", env.Message)
}

func TestErrorStatusMapping(t *testing.T) {
	s := newServer(t, false)

	tests := []struct {
		name   string
		path   string
		fields map[string]string
		audio  []byte
		status int
	}{
		{"missing audio", "/api/voice/enroll", map[string]string{"user_id": "u1"}, nil, http.StatusBadRequest},
		{"too short", "/api/voice/enroll", map[string]string{"user_id": "u1"}, sample(4, 1)[:500], http.StatusBadRequest},
		{"silence", "/api/voice/enroll", map[string]string{"user_id": "u1"}, testhelpers.Constant(2048, 128), http.StatusUnprocessableEntity},
		{"not enrolled", "/api/voice/verify", map[string]string{"user_id": "ghost"}, sample(4, 1), http.StatusNotFound},
		{"no users", "/api/voice/authenticate", map[string]string{"tenant_id": "acme"}, sample(4, 1), http.StatusNotFound},
		{"empty quality", "/api/voice/quality", map[string]string{}, nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := s.do(t, http.MethodPost, tt.path, tt.fields, tt.audio, "")
			assert.Equal(t, tt.status, code, env.Message)
			assert.False(t, env.Success)
			assert.NotEqual(t, "internal error", env.Message)
		})
	}
}

func TestAuthenticateAndSecuredRoutes(t *testing.T) {
	s := newServer(t, true)
	a1 := sample(4, 1)

	// 录入前需要令牌
	code, _ := s.do(t, http.MethodPost, "/api/voice/enroll", map[string]string{"user_id": "u1"}, a1, "")
	require.Equal(t, http.StatusUnauthorized, code)

	admin, _, err := s.tokens.Issue(t.Context(), "admin")
	require.NoError(t, err)
	code, _ = s.do(t, http.MethodPost, "/api/voice/enroll", map[string]string{"user_id": "u1", "tenant_id": "acme"}, a1, admin)
	require.Equal(t, http.StatusOK, code)

	code, env := s.do(t, http.MethodPost, "/api/voice/authenticate", map[string]string{"tenant_id": "acme", "passphrase": "wrong phrase"}, a1, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid passphrase", env.Message)

	code, env = s.do(t, http.MethodPost, "/api/voice/authenticate", map[string]string{"tenant_id": "acme", "passphrase": "voice authentication"}, a1, "")
	require.Equal(t, http.StatusOK, code, env.Message)
	var res struct {
		UserID string `json:"userId"`
		Token  string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "u1", res.UserID)
	require.NotEmpty(t, res.Token)

	code, env = s.do(t, http.MethodGet, "/api/voice/security/u1", nil, nil, res.Token)
	require.Equal(t, http.StatusOK, code)
	var status struct {
		SecurityLevel int `json:"securityLevel"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, 3, status.SecurityLevel)

	// 令牌中的用户用于指令
	code, env = s.do(t, http.MethodPost, "/api/voice/command", map[string]string{}, a1, res.Token)
	require.Equal(t, http.StatusOK, code)
	var outcome struct {
		UserID   string `json:"userId"`
		Command  string `json:"recognizedCommand"`
		Executed bool   `json:"isExecuted"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &outcome))
	assert.Equal(t, "u1", outcome.UserID)
	assert.Equal(t, "CheckIn", outcome.Command)
	assert.True(t, outcome.Executed)

	code, env = s.do(t, http.MethodPost, "/api/voice/command", map[string]string{}, a1, res.Token)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &outcome))
	assert.False(t, outcome.Executed, "second check-in on the same day is rejected")

	code, _ = s.do(t, http.MethodGet, "/api/voice/commands/supported", nil, nil, "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/api/voice/security/u1", nil, nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAuthenticateRawBodyReadsQueryPassphrase(t *testing.T) {
	s := newServer(t, false)
	a1 := sample(4, 1)
	code, _ := s.do(t, http.MethodPost, "/api/voice/enroll", map[string]string{"user_id": "u1", "tenant_id": "acme"}, a1, "")
	require.Equal(t, http.StatusOK, code)

	raw := func(query string) (int, envelope) {
		req := httptest.NewRequest(http.MethodPost, "/api/voice/authenticate?"+query, bytes.NewReader(a1))
		req.Header.Set("Content-Type", "application/octet-stream")
		rec := httptest.NewRecorder()
		s.engine.ServeHTTP(rec, req)
		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
		return rec.Code, env
	}

	code, env := raw("tenant_id=acme&passphrase=wrong+phrase")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid passphrase", env.Message)

	code, env = raw("tenant_id=acme&passphrase=voice+authentication")
	assert.Equal(t, http.StatusOK, code, env.Message)

	code, env = raw("tenant_id=acme")
	assert.Equal(t, http.StatusOK, code, env.Message)
}

func TestRawAudioBody(t *testing.T) {
	s := newServer(t, false)
	req := httptest.NewRequest(http.MethodPost, "/api/voice/quality", bytes.NewReader(sample(4, 1)))
	req.Header.Set("Content-Type", "application/octet-stream")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var report struct {
		OverallScore float64 `json:"overallScore"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Greater(t, report.OverallScore, 0.0)
	assert.NotEmpty(t, rec.Header().Get(httptransport.RequestIDHeader))
}

func TestStatsReportsStoreAndOperations(t *testing.T) {
	s := newServer(t, false)
	code, _ := s.do(t, http.MethodPost, "/api/voice/enroll", map[string]string{"user_id": "u1"}, sample(4, 1), "")
	require.Equal(t, http.StatusOK, code)

	code, env := s.do(t, http.MethodGet, "/api/voice/stats", nil, nil, "")
	require.Equal(t, http.StatusOK, code, env.Message)

	var stats struct {
		Store      map[string]any `json:"store"`
		Operations map[string]struct {
			Count int64 `json:"count"`
		} `json:"operations"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, store.DriverMemory, stats.Store["type"])
	assert.EqualValues(t, 1, stats.Store["enrolled"])
	assert.GreaterOrEqual(t, stats.Operations["http./api/voice/enroll"].Count, int64(1))
}
