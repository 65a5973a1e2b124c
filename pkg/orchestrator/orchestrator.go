package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/forgeo/forgeoagent/internal/observability"
	"github.com/forgeo/forgeoagent/pkg/keypool"
	"github.com/forgeo/forgeoagent/pkg/provider"
	"github.com/forgeo/forgeoagent/pkg/transcript"
)

// DefaultMaxRetries bounds the retry loop when the caller does not set one.
const DefaultMaxRetries = 3

// CallRequest describes one logical call. Prior context inclusion is the
// caller's policy: whatever is in Request.Prior is sent as-is.
type CallRequest struct {
	ConversationID string
	Request        provider.Request
	MaxRetries     int
}

// Result is the outcome of a successful logical call.
type Result struct {
	Text     string
	Parsed   map[string]interface{}
	Usage    *provider.TokenUsage
	Attempts int
}

// Orchestrator drives a bounded retry loop over pool-issued keys and
// commits successful exchanges to the transcript exactly once.
type Orchestrator struct {
	pool        *keypool.Pool
	adapter     provider.Adapter
	transcripts *transcript.Store
	logger      zerolog.Logger
}

// Config holds orchestrator dependencies.
type Config struct {
	Pool        *keypool.Pool
	Adapter     provider.Adapter
	Transcripts *transcript.Store
	Logger      zerolog.Logger
}

// New creates an orchestrator. All dependencies are required.
func New(cfg Config) (*Orchestrator, error) {
	observability.EnsureRegistered()

	if cfg.Pool == nil {
		return nil, fmt.Errorf("key pool is required")
	}
	if cfg.Adapter == nil {
		return nil, fmt.Errorf("provider adapter is required")
	}
	if cfg.Transcripts == nil {
		return nil, fmt.Errorf("transcript store is required")
	}

	return &Orchestrator{
		pool:        cfg.Pool,
		adapter:     cfg.Adapter,
		transcripts: cfg.Transcripts,
		logger:      cfg.Logger,
	}, nil
}

// outcome tags one attempt so the loop consumes plain values instead of
// driving control flow through error types.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeTransient
	outcomePermanent
)

// attemptResult is the classified result of a single provider invocation.
type attemptResult struct {
	outcome  outcome
	response *provider.Response
	err      error
	reason   string
}

// Execute performs one logical call. Transient provider failures rotate
// the key and consume an attempt; unusable content aborts without
// penalizing the key; pool exhaustion aborts immediately.
func (o *Orchestrator) Execute(ctx context.Context, call CallRequest) (*Result, error) {
	maxRetries := call.MaxRetries
	if maxRetries < 1 {
		maxRetries = DefaultMaxRetries
	}

	// Short id correlating every attempt of this logical call in the log.
	callID, err := gonanoid.New(10)
	if err != nil {
		return nil, fmt.Errorf("failed to generate call id: %w", err)
	}

	logger := o.logger.With().
		Str("callId", callID).
		Str("conversationId", call.ConversationID).
		Str("provider", o.adapter.Name()).
		Logger()

	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		key, err := o.pool.CurrentKey()
		if err != nil {
			if errors.Is(err, keypool.ErrExhausted) {
				return nil, o.exhausted(logger, lastErr)
			}
			return nil, err
		}

		start := time.Now()
		response, sendErr := o.adapter.Send(ctx, call.Request, key)
		res := classifyAttempt(response, sendErr)
		observability.RecordCallAttempt(o.adapter.Name(), res.outcomeLabel(), time.Since(start))

		switch res.outcome {
		case outcomeSuccess:
			o.pool.MarkSucceeded(key)
			if err := o.commit(ctx, call, res.response); err != nil {
				return nil, err
			}
			logger.Info().
				Int("attempt", attempt).
				Str("key", keypool.MaskKey(key)).
				Msg("Call succeeded")
			return &Result{
				Text:     res.response.Text,
				Parsed:   res.response.Parsed,
				Usage:    res.response.Usage,
				Attempts: attempt,
			}, nil

		case outcomeTransient:
			lastErr = res.err
			o.pool.MarkFailed(key, res.reason)
			if o.pool.ActiveKeys() == 0 {
				return nil, o.exhausted(logger, lastErr)
			}
			logger.Warn().
				Int("attempt", attempt).
				Int("maxRetries", maxRetries).
				Str("key", keypool.MaskKey(key)).
				Err(res.err).
				Msg("Retrying with a different API key")
			continue

		case outcomePermanent:
			if callErr, ok := provider.AsCallError(res.err); ok {
				if callErr.Kind == provider.KindMalformed || callErr.Kind == provider.KindEmpty {
					return nil, &MalformedResponseError{Err: res.err}
				}
			}
			return nil, res.err
		}
	}

	observability.RecordRetriesExhausted(o.adapter.Name())
	return nil, &RetriesExhaustedError{Attempts: maxRetries, LastErr: lastErr}
}

// classifyAttempt turns a provider invocation into an outcome tag.
// Classified errors carry their own kind; anything unclassified goes
// through the keyword fallback and is only retried when it looks like a
// credential problem.
func classifyAttempt(response *provider.Response, err error) attemptResult {
	if err == nil {
		return attemptResult{outcome: outcomeSuccess, response: response}
	}

	if callErr, ok := provider.AsCallError(err); ok {
		switch {
		case callErr.Kind.Transient():
			return attemptResult{outcome: outcomeTransient, err: err, reason: callErr.Error()}
		case callErr.Kind == provider.KindMalformed, callErr.Kind == provider.KindEmpty:
			return attemptResult{outcome: outcomePermanent, err: err}
		}
	}

	if provider.FallbackKind(err).Transient() {
		return attemptResult{outcome: outcomeTransient, err: err, reason: err.Error()}
	}

	return attemptResult{outcome: outcomePermanent, err: err}
}

func (r attemptResult) outcomeLabel() string {
	switch r.outcome {
	case outcomeSuccess:
		return "success"
	case outcomeTransient:
		return "transient"
	default:
		return "permanent"
	}
}

// commit appends exactly one user turn and one model turn. Called only on
// success; failed attempts never touch the transcript.
func (o *Orchestrator) commit(ctx context.Context, call CallRequest, response *provider.Response) error {
	if err := o.transcripts.AppendTurn(ctx, call.ConversationID, transcript.RoleUser, call.Request.Prompt); err != nil {
		return fmt.Errorf("failed to persist user turn: %w", err)
	}
	if err := o.transcripts.AppendTurn(ctx, call.ConversationID, transcript.RoleModel, response.Text); err != nil {
		return fmt.Errorf("failed to persist model turn: %w", err)
	}
	return nil
}

func (o *Orchestrator) exhausted(logger zerolog.Logger, lastErr error) error {
	status := o.pool.Status()
	logger.Error().
		Int("totalKeys", status.TotalKeys).
		Err(lastErr).
		Msg("All API keys exhausted")
	return &CredentialsExhaustedError{TotalKeys: status.TotalKeys, LastErr: lastErr}
}
