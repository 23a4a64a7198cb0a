package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Config holds the orchestrator's acceptance policy.
type Config struct {
	// AcceptConfidence is the threshold at which a provider's result is
	// accepted without consulting lower-priority providers.
	AcceptConfidence float64
	// ProviderTimeout bounds each single provider attempt.
	ProviderTimeout time.Duration
}

// Orchestrator walks an ordered provider list and returns the first
// acceptable result. Provider-level failures (timeouts, bad responses, rate
// limits) are recovered locally by advancing to the next provider; only when
// every provider fails or returns empty output does extraction fail.
type Orchestrator struct {
	cfg       Config
	providers []Provider
	logger    *slog.Logger
}

func NewOrchestrator(cfg Config, providers []Provider, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AcceptConfidence <= 0 {
		cfg.AcceptConfidence = 0.7
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 60 * time.Second
	}
	return &Orchestrator{cfg: cfg, providers: providers, logger: logger}
}

// Extract tries each provider in priority order. A result is accepted when
// its confidence meets the threshold; low-confidence but non-empty output is
// remembered and used as a last resort, so extraction never fails while any
// provider produced text.
func (o *Orchestrator) Extract(ctx context.Context, data []byte, mimeType string) (Result, error) {
	if len(o.providers) == 0 {
		return Result{}, &FailedError{Reasons: []string{"no providers configured"}}
	}

	var reasons []string
	var best *Result
	for i, p := range o.providers {
		attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.ProviderTimeout)
		start := time.Now()
		res, err := p.Attempt(attemptCtx, data, mimeType)
		cancel()

		if err != nil {
			o.logger.Warn("extraction.provider.failed",
				"provider", p.Name(), "err", err,
				"elapsed_ms", time.Since(start).Milliseconds())
			reasons = append(reasons, fmt.Sprintf("%s: %v", p.Name(), err))
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			continue
		}
		if res.Empty() {
			o.logger.Warn("extraction.provider.empty", "provider", p.Name())
			reasons = append(reasons, fmt.Sprintf("%s: empty output", p.Name()))
			continue
		}
		res.Method = p.Name()
		res.Duration = time.Since(start)
		if res.Normalized == "" {
			res.Normalized = Normalize(res.Text)
		}

		if res.Confidence >= o.cfg.AcceptConfidence {
			o.logger.Info("extraction.accepted",
				"provider", p.Name(),
				"confidence", res.Confidence,
				"text_len", len(res.Text))
			return res, nil
		}

		// Last-resort acceptance: the final provider's output is taken
		// even below the threshold. Better a weak result than none.
		if i == len(o.providers)-1 {
			o.logger.Warn("extraction.accepted_last_resort",
				"provider", p.Name(),
				"confidence", res.Confidence)
			return res, nil
		}

		o.logger.Warn("extraction.provider.low_confidence",
			"provider", p.Name(),
			"confidence", res.Confidence,
			"threshold", o.cfg.AcceptConfidence)
		reasons = append(reasons, fmt.Sprintf("%s: confidence %.2f below threshold", p.Name(), res.Confidence))
		if best == nil || res.Confidence > best.Confidence {
			r := res
			best = &r
		}
	}

	// The last provider failed or returned nothing, but an earlier one
	// produced text below the threshold. Still better than failing.
	if best != nil {
		o.logger.Warn("extraction.accepted_best_effort",
			"provider", best.Method,
			"confidence", best.Confidence)
		return *best, nil
	}
	return Result{}, &FailedError{Reasons: reasons}
}
