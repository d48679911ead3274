package transcribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voiceprint-server-go/internal/domain/command"
)

func TestStaticTranscriber(t *testing.T) {
	ctx := context.Background()

	fixed := NewStatic("clock in")
	text, err := fixed.Transcribe(ctx, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "clock in", text)

	_, err = fixed.Transcribe(ctx, nil)
	assert.Error(t, err)

	sim := NewStatic("")
	first, err := sim.Transcribe(ctx, make([]byte, 2048))
	require.NoError(t, err)
	again, err := sim.Transcribe(ctx, make([]byte, 2048))
	require.NoError(t, err)
	assert.Equal(t, first, again, "simulation must be deterministic")

	cmd, conf := command.Recognize(first)
	assert.Equal(t, 1.0, conf, "simulated text %q (%s) should be a trigger phrase", first, cmd)
}

func TestWhisperTranscriber(t *testing.T) {
	var gotModel, gotFile, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer test-key") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		gotModel = r.FormValue("model")
		gotLang = r.FormValue("language")
		if _, hdr, err := r.FormFile("file"); err == nil {
			gotFile = hdr.Filename
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "  Check In \n"})
	}))
	defer srv.Close()

	tr, err := New(Config{
		Type:     TypeOpenAI,
		APIKey:   "test-key",
		BaseURL:  srv.URL + "/v1",
		Language: "en",
	}, nil)
	require.NoError(t, err)

	text, err := tr.Transcribe(context.Background(), []byte("RIFF....WAVE"))
	require.NoError(t, err)
	assert.Equal(t, "Check In", text)
	assert.Equal(t, "whisper-1", gotModel)
	assert.Equal(t, "en", gotLang)
	assert.Equal(t, "command.wav", gotFile)
}

func TestWhisperErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	tr, err := NewWhisper(Config{APIKey: "k", BaseURL: srv.URL + "/v1"}, nil)
	require.NoError(t, err)
	_, err = tr.Transcribe(context.Background(), []byte{1})
	assert.Error(t, err)

	_, err = NewWhisper(Config{}, nil)
	assert.Error(t, err)

	_, err = New(Config{Type: "vosk"}, nil)
	assert.Error(t, err)
}
