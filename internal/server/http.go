package server

import (
	"context"
	"time"

	"formpilot/internal/ai"
	"formpilot/internal/auth"
	"formpilot/internal/config"
	"formpilot/internal/errors"
	"formpilot/internal/observability"
	"formpilot/internal/profile"
	"formpilot/internal/storage"
	"formpilot/internal/types"
)

// QuestionProcessor answers a raw process-questions body.
type QuestionProcessor interface {
	Process(ctx context.Context, body []byte) (*types.BatchResult, error)
}

// CoverLetterWriter generates cover letters.
type CoverLetterWriter interface {
	GenerateCoverLetter(ctx context.Context, p *profile.UserProfile, job types.JobDetails, userInput string) (*types.CoverLetterResponse, *types.TokenUsage, error)
}

// ChoiceSelector answers radio and checkbox groups.
type ChoiceSelector interface {
	SelectChoices(ctx context.Context, p *profile.UserProfile, mode types.ChoiceMode, req types.ChoiceRequest) (*types.ChoiceAnswer, *types.TokenUsage, error)
}

// Authenticator runs the email verification flow.
type Authenticator interface {
	RequestVerification(ctx context.Context, email string) (*auth.EmailResult, error)
	Verify(ctx context.Context, token string) (*auth.VerifyResult, error)
	Authenticate(token string) (*auth.Claims, error)
	IsVerified(ctx context.Context, token string) (bool, error)
}

// ResumeManager issues resume URLs.
type ResumeManager interface {
	CreateUploadURL(ctx context.Context, userID int64, fileName, contentType string) (*storage.UploadTicket, error)
	SignedReadURL(ctx context.Context, userID int64, fileID string) (string, error)
	List(ctx context.Context, userID int64) ([]types.Resume, error)
	Delete(ctx context.Context, userID int64, fileID string) error
}

// ApplicationStore persists tracked applications.
type ApplicationStore interface {
	CreateApplication(ctx context.Context, a types.Application) (*types.Application, error)
	UpdateApplicationStatus(ctx context.Context, id, userID int64, status types.ApplicationStatus) (*types.Application, error)
}

// ModelChecker reports model availability for /health.
type ModelChecker interface {
	Operation() string
	GetModelInfo(ctx context.Context) *ai.ModelInfo
	CircuitBreakerStats() map[string]any
}

// Pinger checks database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the services behind the routes. Nil services leave their
// routes unregistered.
type Dependencies struct {
	Questions    QuestionProcessor
	CoverLetters CoverLetterWriter
	Choices      ChoiceSelector
	Profile      *profile.UserProfile
	Auth         Authenticator
	Resumes      ResumeManager
	Applications ApplicationStore
	Models       []ModelChecker
	DB           Pinger
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string             `json:"error"`
	Message string             `json:"message,omitempty"`
	Code    string             `json:"code,omitempty"`
	Details []errors.Violation `json:"details,omitempty"`
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	TLSConfig config.TLSConfig

	// API Authentication
	APIKeys map[string]bool

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	AllowedOrigins map[string]bool

	Logger *errors.Logger

	deps Dependencies
	om   *observability.ObservabilityManager
}

// NewServer creates a new Server from the application configuration.
func NewServer(appCfg *config.Config, version string, deps Dependencies, om *observability.ObservabilityManager, logger *errors.Logger) *Server {
	cfg := appCfg.Server

	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}
	origins := make(map[string]bool)
	for _, o := range cfg.CORS.AllowedOrigins {
		if o != "" {
			origins[o] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit, logger)
	}

	return &Server{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Version:         version,
		AppConfig:       appCfg,
		TLSConfig:       cfg.TLS,
		APIKeys:         apiKeyMap,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		MaxRequestSize:  appCfg.App.MaxRequestSize,
		RateLimit:       &cfg.RateLimit,
		RateLimiter:     rateLimiter,
		AllowedOrigins:  origins,
		Logger:          logger,
		deps:            deps,
		om:              om,
	}
}
