package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	platformerrors "voiceprint-server-go/internal/platform/errors"
	platformlogging "voiceprint-server-go/internal/platform/logging"
)

var dbSeq atomic.Int64

func writeTestConfig(t *testing.T, driver string) string {
	t.Helper()

	dir := t.TempDir()
	content := fmt.Sprintf(`server:
  ip: 127.0.0.1
  port: 18080
  auth:
    enabled: true
    jwt_secret: smoke-secret
    token_ttl: 1h
log:
  log_level: INFO
  log_dir: %s
  log_file: smoke.log
database:
  dsn: "file:boot-%d?mode=memory&cache=shared"
store:
  driver: %s
transcriber:
  type: static
  static_text: check in
`, filepath.Join(dir, "logs"), dbSeq.Add(1), driver)

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestInitGraphOrder(t *testing.T) {
	steps := InitGraph()
	want := []string{
		"config:load",
		"logging:init-provider",
		"observability:setup-hooks",
		"storage:init-database",
		"store:init-templates",
		"events:init-bus",
		"voice:init-services",
	}
	if len(steps) != len(want) {
		t.Fatalf("unexpected step count: got %d want %d", len(steps), len(want))
	}
	for i, step := range steps {
		if step.ID != want[i] {
			t.Fatalf("step %d mismatch: got %s want %s", i, step.ID, want[i])
		}
	}
}

func TestExecuteInitGraph(t *testing.T) {
	for _, driver := range []string{"memory", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			state := &appState{configPath: writeTestConfig(t, driver)}
			t.Cleanup(state.close)

			if err := executeInitSteps(context.Background(), InitGraph(), state); err != nil {
				t.Fatalf("executeInitSteps failed: %v", err)
			}
			if state.config == nil || state.logger == nil {
				t.Fatal("config or logger missing after init")
			}
			if state.observabilityShutdown == nil {
				t.Fatal("observability shutdown hook not set")
			}
			if state.templates == nil || state.router == nil {
				t.Fatal("voice services not wired")
			}

			stats, err := state.templates.Stats(context.Background())
			if err != nil {
				t.Fatalf("stats: %v", err)
			}
			if stats["type"] != driver {
				t.Fatalf("unexpected store type %v", stats["type"])
			}

			rec := httptest.NewRecorder()
			state.router.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("healthz returned %d", rec.Code)
			}

			// auth is enabled in the smoke config
			rec = httptest.NewRecorder()
			state.router.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/voice/template/u1", nil))
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("secured route returned %d without token", rec.Code)
			}

			rec = httptest.NewRecorder()
			state.router.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/voice/commands/supported", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("public route returned %d", rec.Code)
			}

			rec = httptest.NewRecorder()
			state.router.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
			if rec.Code != http.StatusNotFound {
				t.Fatalf("unknown route returned %d", rec.Code)
			}
		})
	}
}

func TestExecuteInitStepsChecksDependencies(t *testing.T) {
	steps := []initStep{
		{ID: "b", DependsOn: []string{"a"}, Execute: func(context.Context, *appState) error { return nil }},
	}
	err := executeInitSteps(context.Background(), steps, &appState{})
	if !platformerrors.IsKind(err, platformerrors.KindBootstrap) {
		t.Fatalf("expected bootstrap error, got %v", err)
	}
	if !strings.Contains(err.Error(), "dependency a not satisfied") {
		t.Fatalf("unexpected error: %v", err)
	}

	steps = []initStep{{ID: "a"}}
	if err := executeInitSteps(context.Background(), steps, &appState{}); err == nil {
		t.Fatal("expected missing execute error")
	}

	if err := executeInitSteps(context.Background(), nil, nil); err == nil {
		t.Fatal("expected nil state error")
	}
}

func TestExecuteInitStepsUsesStepKind(t *testing.T) {
	state := &appState{configPath: filepath.Join(t.TempDir(), "missing.yaml")}
	err := executeInitSteps(context.Background(), InitGraph(), state)
	if !platformerrors.IsKind(err, platformerrors.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
	if state.logger != nil {
		t.Fatal("logger should not be initialised after config failure")
	}
}

func TestLogBootstrapGraphOutput(t *testing.T) {
	tmp := t.TempDir()
	logger, err := platformlogging.New(platformlogging.Config{
		Level:    "info",
		Dir:      tmp,
		Filename: "graph.log",
	})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logBootstrapGraph(logger, InitGraph())
	logger.Close()

	data, err := os.ReadFile(filepath.Join(tmp, "graph.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "初始化依赖关系概览") {
		t.Fatalf("graph header missing in log output: %s", content)
	}
	for _, step := range InitGraph() {
		if !strings.Contains(content, step.ID) {
			t.Fatalf("expected graph output to contain %q, got: %s", step.ID, content)
		}
	}
}
