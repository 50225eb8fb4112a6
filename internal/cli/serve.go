package cli

import (
	"context"
	"fmt"
	"time"

	"formpilot/internal/ai"
	"formpilot/internal/auth"
	"formpilot/internal/config"
	"formpilot/internal/errors"
	"formpilot/internal/mail"
	"formpilot/internal/observability"
	"formpilot/internal/questions"
	"formpilot/internal/server"
	"formpilot/internal/storage"
	"formpilot/internal/store"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for the browser extension",
	Long: `Start an HTTP server that answers application form questions.

Core endpoints:
- POST /api/process-questions: Answer a batch of form questions
- POST /api/generate-cover-letter: Write a cover letter
- POST /api/radio/answer, /api/checkbox/answer: Pick options from raw HTML
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info

Email verification, resume storage and application tracking routes are
enabled when a database (and for resumes, a storage bucket) is configured.

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server
- Use --cert-file and --key-file for TLS certificates`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
}

// applyServeFlags copies explicitly set flags over the loaded config.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	overrides := map[string]*string{
		"port":      &cfg.Server.Port,
		"host":      &cfg.Server.Host,
		"tls-mode":  &cfg.Server.TLS.Mode,
		"cert-file": &cfg.Server.TLS.CertFile,
		"key-file":  &cfg.Server.TLS.KeyFile,
	}
	for flag, target := range overrides {
		if cmd.Flags().Changed(flag) {
			*target, _ = cmd.Flags().GetString(flag)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := configOf(cmd)
	logger := loggerOf(cmd)

	applyServeFlags(cmd, cfg)
	// Validate TLS configuration after applying overrides
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer shutdownWithTimeout(logger, "observability", om.Shutdown)

	deps, cleanup, err := buildDependencies(ctx, cfg, om, logger)
	defer cleanup()
	if err != nil {
		return err
	}

	return server.NewServer(cfg, Version, deps, om, logger).Start(ctx)
}

// buildDependencies creates every service the server routes to. cleanup
// is always safe to call.
func buildDependencies(ctx context.Context, cfg *config.Config, om *observability.ObservabilityManager, logger *errors.Logger) (server.Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	var deps server.Dependencies

	p, err := loadProfile(cfg, logger)
	if err != nil {
		return deps, cleanup, err
	}
	deps.Profile = p

	services := make([]*ai.Service, 0, 3)
	for _, build := range []func(*config.Config, *errors.Logger) (*ai.Service, error){
		newAnswerService, newCoverLetterService, newChoiceService,
	} {
		svc, err := build(cfg, logger)
		if err != nil {
			return deps, cleanup, fmt.Errorf("failed to create AI service: %w", err)
		}
		closers = append(closers, func() {
			if err := svc.Close(); err != nil {
				logger.LogError(err, "Failed to close AI service", "operation", svc.Operation())
			}
		})
		services = append(services, svc)
		deps.Models = append(deps.Models, svc)
	}
	deps.CoverLetters = services[1]
	deps.Choices = services[2]

	var db *store.Store
	if cfg.Database.URL != "" {
		db, err = store.New(ctx, cfg.Database)
		if err != nil {
			return deps, cleanup, fmt.Errorf("failed to connect to database: %w", err)
		}
		closers = append(closers, db.Close)
		if cfg.Database.AutoMigrate {
			if err := db.EnsureSchema(ctx); err != nil {
				return deps, cleanup, fmt.Errorf("failed to create database schema: %w", err)
			}
		}
		deps.DB = db
		deps.Applications = db
	} else {
		logger.Warn("No database configured; answers are not recorded and auth, resume and application routes are disabled")
	}

	var recorder *questions.Recorder
	if db != nil && cfg.Questions.RequestProfile == config.RequestProfileEnvelope {
		recorder = questions.NewRecorder(db, logger)
	}
	deps.Questions = newPipeline(cfg, "", pipelineDeps{
		profile:  p,
		answers:  services[0],
		recorder: recorder,
		metrics:  om.GetMetrics(),
	}, logger)

	if db == nil {
		return deps, cleanup, nil
	}

	mailer, err := mail.New(cfg.Mail, logger)
	if err != nil {
		return deps, cleanup, fmt.Errorf("failed to configure mail: %w", err)
	}
	deps.Auth = auth.NewService(cfg.Auth, cfg.App.BaseURL, db, mailer, logger)

	if cfg.Storage.Bucket != "" {
		objects, err := storage.NewGCSStore(ctx, cfg.Storage)
		if err != nil {
			return deps, cleanup, fmt.Errorf("failed to create storage client: %w", err)
		}
		closers = append(closers, func() {
			if err := objects.Close(); err != nil {
				logger.LogError(err, "Failed to close storage client")
			}
		})
		deps.Resumes = storage.NewResumeService(cfg.Storage, objects, db, logger)
	} else {
		logger.Warn("No storage bucket configured; resume routes are disabled")
	}

	return deps, cleanup, nil
}

func shutdownWithTimeout(logger *errors.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.LogError(err, "Failed to shutdown "+name)
	}
}
