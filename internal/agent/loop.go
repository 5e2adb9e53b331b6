package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/usfca-its/commencement-agent/internal/request"
)

const (
	// retryBase is the backoff unit for rate-limited calls: the Nth retry
	// waits N*retryBase (15s, then 30s).
	retryBase  = 15 * time.Second
	maxRetries = 2
)

// Session is one student conversation. It owns the in-memory message history
// (the authoritative transcript during the session) and mirrors it onto the
// stored record after each completed turn.
//
// A Session is not safe for concurrent use; each chat surface owns one.
type Session struct {
	provider      Provider
	model         string
	registry      *Registry
	store         *request.Store
	username      string
	system        string
	maxToolRounds int
	logger        *slog.Logger

	history []Message
	sleep   func(time.Duration)
}

type SessionOptions struct {
	Provider      Provider
	Model         string
	Registry      *Registry
	Store         *request.Store
	Username      string
	MaxToolRounds int
	Logger        *slog.Logger
}

func NewSession(opts SessionOptions) (*Session, error) {
	if opts.Provider == nil {
		return nil, errors.New("missing provider")
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, errors.New("missing model")
	}
	if opts.Registry == nil {
		return nil, errors.New("missing tool registry")
	}
	username := strings.TrimSpace(opts.Username)
	if username == "" {
		return nil, errors.New("missing username")
	}
	rounds := opts.MaxToolRounds
	if rounds <= 0 {
		rounds = 10
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		provider:      opts.Provider,
		model:         strings.TrimSpace(opts.Model),
		registry:      opts.Registry,
		store:         opts.Store,
		username:      username,
		system:        BuildSystemPrompt(username),
		maxToolRounds: rounds,
		logger:        logger,
		sleep:         time.Sleep,
	}, nil
}

// Start runs the opening turn: the synthetic SSO sign-in message that prompts
// the assistant to greet the student and begin the workflow.
func (s *Session) Start(ctx context.Context) (string, error) {
	return s.Turn(ctx, InitialTurn(s.username))
}

// History returns a copy of the cross-turn transcript.
func (s *Session) History() []Message {
	if s == nil {
		return nil
	}
	return append([]Message(nil), s.history...)
}

// SeedHistory restores a prior transcript, e.g. when a student returns to a
// stored request. Only text content is kept.
func (s *Session) SeedHistory(msgs []request.TranscriptMessage) {
	if s == nil {
		return
	}
	s.history = s.history[:0]
	for _, m := range msgs {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		text := strings.TrimSpace(m.Content)
		if text == "" || (role != "user" && role != "assistant") {
			continue
		}
		s.history = append(s.history, Message{Role: role, Text: text})
	}
}

// Turn runs one full user turn: it sends the composed history to the model,
// executes any requested tools in order, feeds the results back, and repeats
// until the model answers with plain text. Tool exchanges stay local to the
// turn; only the user input and the final assistant text enter the history.
func (s *Session) Turn(ctx context.Context, userText string) (string, error) {
	if s == nil {
		return "", errors.New("nil session")
	}
	userText = strings.TrimSpace(ExpandShortcut(userText))
	if userText == "" {
		return "", errors.New("empty user input")
	}

	msgs := append(s.History(), Message{Role: "user", Text: userText})
	rounds := 0
	for {
		result, err := s.complete(ctx, msgs)
		if err != nil {
			return "", err
		}
		if len(result.ToolCalls) == 0 {
			text := strings.TrimSpace(result.Text)
			s.history = append(s.history,
				Message{Role: "user", Text: userText},
				Message{Role: "assistant", Text: text},
			)
			s.syncTranscript(ctx)
			return text, nil
		}

		rounds++
		if rounds > s.maxToolRounds {
			return "", fmt.Errorf("%w: model requested more than %d tool rounds in one turn", ErrToolRoundsExceeded, s.maxToolRounds)
		}
		s.logger.DebugContext(ctx, "dispatching tool calls", "round", rounds, "calls", len(result.ToolCalls))
		results := s.registry.Dispatch(ctx, result.ToolCalls)
		msgs = append(msgs,
			Message{Role: "assistant", Text: result.Text, ToolCalls: result.ToolCalls},
			Message{Role: "tool", Results: results},
		)
	}
}

// complete invokes the provider, retrying rate-limited calls twice (15s then
// 30s backoff). Exhausted retries surface as a TransientBackendError with a
// student-facing message; any other provider failure propagates as-is.
func (s *Session) complete(ctx context.Context, msgs []Message) (TurnResult, error) {
	req := TurnRequest{
		Model:    s.model,
		System:   s.system,
		Messages: msgs,
		Tools:    s.registry.Snapshot(),
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			s.sleep(time.Duration(attempt) * retryBase)
		}
		result, err := s.provider.Complete(ctx, req)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return TurnResult{}, err
		}
		lastErr = err
		s.logger.WarnContext(ctx, "model backend rate limited", "attempt", attempt+1)
	}
	return TurnResult{}, &TransientBackendError{
		UserMessage: "The assistant is experiencing high demand right now. Please wait a moment and try again; your conversation has been kept.",
		Err:         lastErr,
	}
}

// syncTranscript mirrors the text-only history onto the student's stored
// request. Before a request exists there is nothing to mirror.
func (s *Session) syncTranscript(ctx context.Context) {
	if s.store == nil {
		return
	}
	rec, err := s.store.GetByUsername(ctx, s.username)
	if err != nil {
		if !errors.Is(err, request.ErrNotFound) {
			s.logger.WarnContext(ctx, "transcript sync skipped", "error", err)
		}
		return
	}
	transcript := make([]request.TranscriptMessage, 0, len(s.history))
	for _, m := range s.history {
		transcript = append(transcript, request.TranscriptMessage{Role: m.Role, Content: m.Text})
	}
	if err := s.store.SaveTranscript(ctx, rec.ID, transcript); err != nil {
		s.logger.WarnContext(ctx, "transcript sync failed", "request_id", rec.ID, "error", err)
	}
}
