package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestSpanStatistics(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	_, end := StartSpan(context.Background(), "voice", "identify")
	end(nil)
	_, end = StartSpan(context.Background(), "voice", "identify")
	end(errors.New("boom"))

	snap := Snapshot("voice.")
	got, ok := snap["voice.identify"]
	if !ok {
		t.Fatalf("missing span stats: %+v", snap)
	}
	if got.Count != 2 || got.Errors != 1 {
		t.Fatalf("unexpected stats: %+v", got)
	}
	if len(Snapshot("http.")) != 0 {
		t.Fatal("prefix filter should exclude voice spans")
	}
}

func TestSetupControlsLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.Background()

	shutdown, err := Setup(ctx, Config{Enabled: true}, logger)
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	if !Enabled() {
		t.Fatal("expected observability enabled")
	}

	RecordMetric(ctx, "voice.candidates", 3, map[string]string{"tenant": "acme"})
	if !strings.Contains(buf.String(), "voice.candidates") || !strings.Contains(buf.String(), "tenant=acme") {
		t.Fatalf("metric not logged: %s", buf.String())
	}

	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
	if Enabled() {
		t.Fatal("expected observability disabled after shutdown")
	}

	buf.Reset()
	RecordMetric(ctx, "voice.candidates", 1, nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output after shutdown, got %s", buf.String())
	}
}
