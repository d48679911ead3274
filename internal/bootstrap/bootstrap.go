package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"voiceprint-server-go/internal/domain/attendance"
	"voiceprint-server-go/internal/domain/audit"
	"voiceprint-server-go/internal/domain/command"
	"voiceprint-server-go/internal/domain/eventbus"
	"voiceprint-server-go/internal/domain/transcribe"
	"voiceprint-server-go/internal/domain/voice/authn"
	"voiceprint-server-go/internal/domain/voice/service"
	"voiceprint-server-go/internal/domain/voice/store"
	platformconfig "voiceprint-server-go/internal/platform/config"
	platformerrors "voiceprint-server-go/internal/platform/errors"
	platformlogging "voiceprint-server-go/internal/platform/logging"
	platformobservability "voiceprint-server-go/internal/platform/observability"
	platformstorage "voiceprint-server-go/internal/platform/storage"
	httptransport "voiceprint-server-go/internal/transport/http"
	httpvoice "voiceprint-server-go/internal/transport/http/voice"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	configPath            string
	config                *platformconfig.Config
	logger                *platformlogging.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	db                    *gorm.DB
	templates             store.Store
	bus                   *eventbus.Bus
	auditRepo             audit.Repository
	tokens                *authn.JWTIssuer
	router                *httptransport.Router
}

// Run 启动整个服务生命周期，负责加载配置、初始化依赖和优雅关停。
func Run(ctx context.Context, configPath string) error {
	state := &appState{configPath: configPath}
	defer state.close()

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}
	logger := state.logger
	logBootstrapGraph(logger, steps)

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(signalCtx)
	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	return waitForShutdown(groupCtx, cancel, logger, group, state.config.Server.ShutdownTimeout)
}

// close releases everything the init steps acquired, in reverse order.
func (s *appState) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.templates != nil {
		if err := s.templates.Close(ctx); err != nil {
			s.logger.WarnTag("Store", "template store did not close cleanly: %v", err)
		}
	}
	if s.db != nil {
		if err := platformstorage.Close(s.db); err != nil {
			s.logger.WarnTag("Store", "database did not close cleanly: %v", err)
		}
	}
	if s.observabilityShutdown != nil {
		if err := s.observabilityShutdown(ctx); err != nil {
			s.logger.WarnTag("Bootstrap", "observability did not shut down cleanly: %v", err)
		}
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}

func logBootstrapGraph(logger *platformlogging.Logger, steps []initStep) {
	logger.InfoTag("Bootstrap", "初始化依赖关系概览")
	for _, step := range steps {
		if len(step.DependsOn) == 0 {
			logger.InfoTag("Bootstrap", "%s: %s", step.ID, step.Title)
			continue
		}
		logger.InfoTag("Bootstrap", "%s: %s (after %v)", step.ID, step.Title, step.DependsOn)
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:init-database",
			Title:     "Open database and run migrations",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "store:init-templates",
			Title:     "Initialise voice template store",
			DependsOn: []string{"storage:init-database"},
			Kind:      platformerrors.KindStorage,
			Execute:   initTemplateStoreStep,
		},
		{
			ID:        "events:init-bus",
			Title:     "Initialise event bus and audit recorder",
			DependsOn: []string{"storage:init-database"},
			Execute:   initEventBusStep,
		},
		{
			ID:        "voice:init-services",
			Title:     "Initialise voice services and HTTP routes",
			DependsOn: []string{"store:init-templates", "events:init-bus", "observability:setup-hooks"},
			Execute:   initVoiceServicesStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	res, err := platformconfig.NewLoader().WithPath(state.configPath).Load()
	if err != nil {
		return err
	}
	state.config = res.Config
	state.configPath = res.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}
	state.logger = logger

	source := state.configPath
	if source == "" {
		source = "defaults"
	}
	logger.InfoTag("Bootstrap", "logging ready [%s] config=%s", state.config.Log.Level, source)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	shutdown, err := platformobservability.Setup(ctx, platformobservability.Config{
		Enabled: state.config.Observability.Enabled,
	}, state.logger.Slog())
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

func initDatabaseStep(_ context.Context, state *appState) error {
	db, err := platformstorage.Open(state.config.Database.DSN)
	if err != nil {
		return err
	}
	state.db = db
	state.logger.InfoTag("Store", "database ready at %s", state.config.Database.DSN)
	return nil
}

func initTemplateStoreStep(_ context.Context, state *appState) error {
	cfg := state.config.Store
	templates, err := store.New(store.Config{
		Driver: cfg.Driver,
		Redis: &store.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		},
	}, store.Dependencies{SQLiteDB: state.db})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "store:init-templates", "failed to create template store", err)
	}
	state.templates = templates
	state.logger.InfoTag("Store", "voice template store driver=%s", cfg.Driver)
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	state.bus = eventbus.New()
	state.auditRepo = platformstorage.NewAuditRepository(state.db)
	return audit.NewRecorder(state.auditRepo, state.logger).Attach(state.bus)
}

func initVoiceServicesStep(_ context.Context, state *appState) error {
	cfg := state.config
	logger := state.logger

	opts := []service.Option{
		service.WithSettings(service.Settings{
			MatchThreshold:   cfg.Voice.MatchThreshold,
			MinAudioBytes:    cfg.Voice.MinAudioBytes,
			IdentifyWorkers:  cfg.Voice.IdentifyWorkers,
			OperationTimeout: cfg.Voice.OperationTimeout,
		}),
		service.WithLogger(logger),
		service.WithEventBus(state.bus),
	}
	enrollment := service.NewEnrollmentManager(state.templates, opts...)
	verification := service.NewVerificationEngine(state.templates, opts...)
	identification := service.NewIdentificationEngine(state.templates, opts...)

	state.tokens = authn.NewJWTIssuer(cfg.Server.Auth.JWTSecret).WithTTL(cfg.Server.Auth.TokenTTL)
	orchestrator := authn.NewOrchestrator(identification, verification, state.templates, state.tokens,
		authn.WithPassphrases(cfg.Voice.Passphrases),
		authn.WithRecentWindow(cfg.Voice.SecurityRecentWindow),
		authn.WithLogger(logger),
		authn.WithEventBus(state.bus),
	)

	transcriber, err := transcribe.New(transcribe.Config{
		Type:       cfg.Transcriber.Type,
		Model:      cfg.Transcriber.Model,
		BaseURL:    cfg.Transcriber.BaseURL,
		APIKey:     cfg.Transcriber.APIKey,
		Language:   cfg.Transcriber.Language,
		StaticText: cfg.Transcriber.StaticText,
	}, logger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "voice:init-services", "failed to create transcriber", err)
	}
	executor := attendance.NewExecutor(platformstorage.NewAttendanceRepository(state.db), logger)
	processor := command.NewProcessor(transcriber, executor,
		command.WithThreshold(cfg.Command.ExecutionThreshold),
		command.WithLogger(logger),
		command.WithEventBus(state.bus),
	)

	routerOpts := httptransport.Options{Config: cfg, Logger: logger}
	if cfg.Server.Auth.Enabled {
		routerOpts.AuthMiddleware = httptransport.BearerAuth(state.tokens, logger)
	}
	router, err := httptransport.Build(routerOpts)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindTransport, "voice:init-services", "failed to build router", err)
	}

	handler, err := httpvoice.NewHandler(httpvoice.Deps{
		Enrollment:     enrollment,
		Verification:   verification,
		Auth:           orchestrator,
		Commands:       processor,
		Audit:          state.auditRepo,
		Templates:      state.templates,
		Logger:         logger,
		MaxUploadBytes: cfg.Voice.MaxUploadBytes,
	})
	if err != nil {
		return err
	}
	handler.RegisterRoutes(router)

	router.Engine.NoRoute(func(c *gin.Context) {
		httptransport.RespondError(c, http.StatusNotFound, "api not found", gin.H{})
	})
	state.router = router
	return nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	cfg := state.config
	logger := state.logger
	if state.router == nil {
		return nil, platformerrors.New(platformerrors.KindBootstrap, "http:start", "router not initialised")
	}

	addr := net.JoinHostPort(cfg.Server.IP, strconv.Itoa(cfg.Server.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           state.router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "voiceprint server listening on http://%s/api/voice", addr)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "HTTP server shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "HTTP server stopped gracefully")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "HTTP server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
	timeout time.Duration,
) error {
	<-ctx.Done()
	logger.InfoTag("Bootstrap", "shutting down: %v", context.Cause(ctx))

	cancel()

	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("Bootstrap", "error during shutdown: %v", err)
			return err
		}
		logger.InfoTag("Bootstrap", "all services stopped")
	case <-time.After(timeout):
		logger.ErrorTag("Bootstrap", "shutdown timed out after %s", timeout)
		return errors.New("shutdown timed out")
	}
	return nil
}
