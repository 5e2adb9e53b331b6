// Package review implements the registrar-side actions on commencement
// exception requests: working the queue, recording decisions, and moving
// fulfillment along.
package review

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/usfca-its/commencement-agent/internal/document"
	"github.com/usfca-its/commencement-agent/internal/request"
)

// DefaultReviewer is recorded when staff open a request without giving a
// name.
const DefaultReviewer = "Registrar Staff"

// Queue is the review worklist: pending requests first, then decided ones.
type Queue struct {
	Pending []request.Record
	Decided []request.Record
}

// Metrics are the queue counters shown on the review dashboard.
type Metrics struct {
	Pending  int
	Decided  int
	Approved int
	Denied   int
}

type Service struct {
	store     *request.Store
	outputDir string
	logger    *slog.Logger
}

func NewService(store *request.Store, outputDir string, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("missing request store")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, outputDir: strings.TrimSpace(outputDir), logger: logger}, nil
}

// Load returns the full review queue. Pending requests come back oldest
// first so staff work them in submission order.
func (s *Service) Load(ctx context.Context) (*Queue, error) {
	if s == nil {
		return nil, errors.New("nil review service")
	}
	all, err := s.store.List(ctx, "")
	if err != nil {
		return nil, err
	}
	q := &Queue{}
	for _, rec := range all {
		if rec.Status.Active() {
			q.Pending = append(q.Pending, rec)
		} else {
			q.Decided = append(q.Decided, rec)
		}
	}
	return q, nil
}

// Stats computes the queue counters.
func (q *Queue) Stats() Metrics {
	m := Metrics{}
	if q == nil {
		return m
	}
	m.Pending = len(q.Pending)
	m.Decided = len(q.Decided)
	for _, rec := range q.Decided {
		switch rec.Status {
		case request.StatusApproved:
			m.Approved++
		case request.StatusDenied:
			m.Denied++
		}
	}
	return m
}

// All returns the queue as one slice, pending first, matching the numbering
// the review CLI shows.
func (q *Queue) All() []request.Record {
	if q == nil {
		return nil
	}
	out := make([]request.Record, 0, len(q.Pending)+len(q.Decided))
	out = append(out, q.Pending...)
	out = append(out, q.Decided...)
	return out
}

// Open fetches a request for review, moving freshly submitted ones to
// UNDER_REVIEW. Decided requests come back unchanged for viewing.
func (s *Service) Open(ctx context.Context, id string, reviewer string) (*request.Record, error) {
	if s == nil {
		return nil, errors.New("nil review service")
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != request.StatusSubmitted {
		return rec, nil
	}
	reviewer = strings.TrimSpace(reviewer)
	if reviewer == "" {
		reviewer = DefaultReviewer
	}
	rec, err = s.store.BeginReview(ctx, id, reviewer)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "request opened for review", "request_id", id, "reviewer", reviewer)
	return rec, nil
}

// Decide records the registrar's decision. Reviewer and rationale are
// required; decided requests reject a second decision.
func (s *Service) Decide(ctx context.Context, id string, approve bool, reviewer string, rationale string) (*request.Record, error) {
	if s == nil {
		return nil, errors.New("nil review service")
	}
	reviewer = strings.TrimSpace(reviewer)
	if reviewer == "" {
		reviewer = DefaultReviewer
	}
	rec, err := s.store.Decide(ctx, id, approve, reviewer, rationale)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "decision recorded",
		"request_id", id, "status", rec.Status, "reviewer", reviewer)
	return rec, nil
}

// AdvanceFulfillment moves the cap-and-gown order to its next stage.
func (s *Service) AdvanceFulfillment(ctx context.Context, id string, actor string) (*request.Record, error) {
	if s == nil {
		return nil, errors.New("nil review service")
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = DefaultReviewer
	}
	rec, err := s.store.AdvanceFulfillment(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "fulfillment advanced",
		"request_id", id, "fulfillment_status", rec.Fulfillment)
	return rec, nil
}

// GenerateDocument writes the official record document and stores its path.
func (s *Service) GenerateDocument(ctx context.Context, id string, actor string) (string, error) {
	if s == nil {
		return "", errors.New("nil review service")
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	path, err := document.Write(rec, s.outputDir)
	if err != nil {
		return "", err
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = DefaultReviewer
	}
	if _, err := s.store.SetDocumentPath(ctx, id, path, actor); err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "record document generated", "request_id", id, "path", path)
	return path, nil
}
