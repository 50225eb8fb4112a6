package ai

import (
	"fmt"

	"formpilot/internal/config"
	"formpilot/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// Breaker fails calls fast while an upstream is unhealthy. A nil Breaker
// passes every call straight through.
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// AICircuitBreaker guards content generation calls for one operation.
type AICircuitBreaker = Breaker[*genai.GenerateContentResponse]

// ModelCircuitBreaker guards model metadata lookups.
type ModelCircuitBreaker = Breaker[*genai.Model]

// tripFunc decides whether the breaker opens for the current counts.
type tripFunc func(counts gobreaker.Counts) bool

func newBreaker[T any](name, operationType string, cfg *config.OperationAIConfig, trip tripFunc, logger *errors.Logger) *Breaker[T] {
	if !cfg.CircuitBreaker.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.CircuitBreaker.MaxRequests,
		Interval:    cfg.CircuitBreaker.Interval,
		Timeout:     cfg.CircuitBreaker.Timeout,
		ReadyToTrip: trip,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.Info("Circuit breaker state changed",
				"name", name,
				"operation_type", operationType,
				"from", from.String(),
				"to", to.String())
		},
	}

	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// NewAICircuitBreaker creates the generation breaker for an operation, or nil
// when disabled.
func NewAICircuitBreaker(operationType string, cfg *config.OperationAIConfig, logger *errors.Logger) *AICircuitBreaker {
	cb := cfg.CircuitBreaker
	trip := func(counts gobreaker.Counts) bool {
		if counts.Requests == 0 {
			return false
		}
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= cb.MinRequests && failureRatio >= cb.FailureThreshold
	}
	return newBreaker[*genai.GenerateContentResponse](fmt.Sprintf("AI-%s", operationType), operationType, cfg, trip, logger)
}

// NewModelCircuitBreaker creates the model lookup breaker for an operation.
// Model lookups only feed health checks, so it trips later.
func NewModelCircuitBreaker(operationType string, cfg *config.OperationAIConfig, logger *errors.Logger) *ModelCircuitBreaker {
	trip := func(counts gobreaker.Counts) bool {
		if counts.Requests == 0 {
			return false
		}
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 5 && failureRatio >= 0.8
	}
	return newBreaker[*genai.Model](fmt.Sprintf("AI-Model-%s", operationType), operationType, cfg, trip, logger)
}

// Execute runs fn under the breaker.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// ExecuteModel runs a model lookup under the breaker.
func (b *Breaker[T]) ExecuteModel(fn func() (T, error)) (T, error) {
	return b.Execute(fn)
}

// GetStats returns circuit breaker statistics
func (b *Breaker[T]) GetStats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{"enabled": false}
	}

	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// GetModelStats is GetStats for the model breaker.
func (b *Breaker[T]) GetModelStats() map[string]any {
	return b.GetStats()
}

// IsHealthy reports whether the breaker is closed. A disabled breaker is
// always healthy.
func (b *Breaker[T]) IsHealthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}

// IsModelHealthy is IsHealthy for the model breaker.
func (b *Breaker[T]) IsModelHealthy() bool {
	return b.IsHealthy()
}
