package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/propos4l/proposal-engine/internal/models"
	"github.com/propos4l/proposal-engine/pkg/logger"
)

// ErrGenerationFailed indicates every generation attempt was exhausted.
var ErrGenerationFailed = errors.New("proposal generation failed")

// ErrEmptyRequirements indicates the caller supplied nothing to generate from.
var ErrEmptyRequirements = errors.New("proposal requirements are empty")

// TextGenerator produces free text for a prompt. Implementations wrap an
// external model endpoint; the orchestrator owns retries and timeouts so
// implementations stay thin.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ReferenceBlock is one retrieved span of an existing proposal, supplied to
// ground the generated text in prior work.
type ReferenceBlock struct {
	Label    models.SectionLabel
	Content  string
	Distance float64
}

// Orchestrator drives a TextGenerator through prompt assembly, bounded
// retries and response parsing.
type Orchestrator struct {
	gen      TextGenerator
	log      logger.Logger
	timeout  time.Duration
	attempts int
	backoff  time.Duration
	sleep    func(context.Context, time.Duration) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout bounds each individual generation attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithAttempts sets the number of generation attempts before giving up.
func WithAttempts(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.attempts = n
		}
	}
}

func NewOrchestrator(gen TextGenerator, log logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gen:      gen,
		log:      log,
		timeout:  90 * time.Second,
		attempts: 3,
		backoff:  time.Second,
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate assembles a prompt from params and reference material, runs the
// generator with retries, and parses the response into an ordered proposal.
// The backoff between attempts doubles each time.
func (o *Orchestrator) Generate(ctx context.Context, params models.ProposalParams, refs []ReferenceBlock) (*models.StructuredProposal, error) {
	if params.Requirements == "" {
		return nil, ErrEmptyRequirements
	}

	prompt := BuildPrompt(params, refs)

	var lastErr error
	delay := o.backoff
	for attempt := 1; attempt <= o.attempts; attempt++ {
		raw, err := o.attempt(ctx, prompt)
		if err == nil {
			proposal, perr := ParseProposal(raw, params)
			if perr == nil {
				return proposal, nil
			}
			err = perr
		}
		lastErr = err
		o.log.Warn("generation attempt failed",
			logger.Int("attempt", attempt),
			logger.Error(err),
		)

		if attempt == o.attempts {
			break
		}
		if err := o.sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay *= 2
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrGenerationFailed, o.attempts, lastErr)
}

func (o *Orchestrator) attempt(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.gen.Generate(ctx, prompt)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
