package request

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func draftFor(username string) Record {
	return Record{
		Username:          username,
		StudentName:       "Steven Bosso",
		Email:             username + "@dons.usfca.edu",
		StudentID:         "20481234",
		SchoolCollege:     "College of Arts and Sciences",
		Program:           "Computer Science",
		Phone:             "4155551234",
		OriginalSemester:  "Fall 2025",
		RequestedSemester: "Spring 2026",
		Circumstances:     "Medical leave during final semester.",
	}
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "requests.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_CreateAssignsIDAndSubmissionAudit(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	rec, err := s.Create(ctx, draftFor("sjbosso"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ID == "" {
		t.Fatalf("request id not assigned")
	}
	if rec.Status != StatusSubmitted {
		t.Fatalf("Status=%q, want SUBMITTED", rec.Status)
	}
	if rec.SubmittedAtUnixMs <= 0 {
		t.Fatalf("SubmittedAtUnixMs=%d, want > 0", rec.SubmittedAtUnixMs)
	}

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Audit) != 1 {
		t.Fatalf("audit entries=%d, want 1", len(got.Audit))
	}
	if got.Audit[0].Action != "Request submitted by student" {
		t.Fatalf("audit action=%q", got.Audit[0].Action)
	}
	if got.Audit[0].Actor != "sjbosso" {
		t.Fatalf("audit actor=%q, want sjbosso", got.Audit[0].Actor)
	}
}

func TestStore_CreateRejectsMissingFields(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	draft := draftFor("sjbosso")
	draft.Phone = "   "
	if _, err := s.Create(context.Background(), draft); !errors.Is(err, ErrMissingField) {
		t.Fatalf("Create with blank phone: err=%v, want ErrMissingField", err)
	}
}

func TestStore_CreateRejectsSecondActiveRequest(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	first, err := s.Create(ctx, draftFor("sjbosso"))
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := s.Create(ctx, draftFor("sjbosso")); !errors.Is(err, ErrActiveRequestExists) {
		t.Fatalf("second Create: err=%v, want ErrActiveRequestExists", err)
	}

	// A decided request no longer blocks a new submission.
	if _, err := s.BeginReview(ctx, first.ID, "registrar"); err != nil {
		t.Fatalf("BeginReview: %v", err)
	}
	if _, err := s.Decide(ctx, first.ID, false, "R. Alvarez", "Deadline passed."); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if _, err := s.Create(ctx, draftFor("sjbosso")); err != nil {
		t.Fatalf("Create after denial: %v", err)
	}
}

func TestStore_GetByUsernamePrefersActive(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	old, err := s.Create(ctx, draftFor("jdoe"))
	if err != nil {
		t.Fatalf("Create old: %v", err)
	}
	if _, err := s.BeginReview(ctx, old.ID, "registrar"); err != nil {
		t.Fatalf("BeginReview: %v", err)
	}
	if _, err := s.Decide(ctx, old.ID, false, "R. Alvarez", "Incomplete documentation."); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	cur, err := s.Create(ctx, draftFor("jdoe"))
	if err != nil {
		t.Fatalf("Create current: %v", err)
	}

	got, err := s.GetByUsername(ctx, "jdoe")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got.ID != cur.ID {
		t.Fatalf("GetByUsername returned %s, want active %s", got.ID, cur.ID)
	}

	if _, err := s.GetByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByUsername nobody: err=%v, want ErrNotFound", err)
	}
}

func TestStore_ListFiltersByStatus(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	a, err := s.Create(ctx, draftFor("sjbosso"))
	if err != nil {
		t.Fatalf("Create a: %v", err)
	}
	if _, err := s.Create(ctx, draftFor("jdoe")); err != nil {
		t.Fatalf("Create b: %v", err)
	}
	if _, err := s.BeginReview(ctx, a.ID, "registrar"); err != nil {
		t.Fatalf("BeginReview: %v", err)
	}

	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List all=%d, want 2", len(all))
	}

	submitted, err := s.List(ctx, StatusSubmitted)
	if err != nil {
		t.Fatalf("List submitted: %v", err)
	}
	if len(submitted) != 1 || submitted[0].Username != "jdoe" {
		t.Fatalf("List submitted=%+v, want one jdoe record", submitted)
	}

	empty, err := s.List(ctx, StatusApproved)
	if err != nil {
		t.Fatalf("List approved: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("List approved=%d, want 0", len(empty))
	}
}

func TestStore_DecideWritesFieldsOnce(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	rec, err := s.Create(ctx, draftFor("sjbosso"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.BeginReview(ctx, rec.ID, "registrar"); err != nil {
		t.Fatalf("BeginReview: %v", err)
	}

	decided, err := s.Decide(ctx, rec.ID, true, "R. Alvarez", "Documented medical leave.")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decided.Status != StatusApproved {
		t.Fatalf("Status=%q, want APPROVED", decided.Status)
	}
	if decided.Rationale != "Documented medical leave." || decided.Reviewer != "R. Alvarez" {
		t.Fatalf("decision fields=%q/%q", decided.Reviewer, decided.Rationale)
	}
	if decided.DecidedAtUnixMs <= 0 {
		t.Fatalf("DecidedAtUnixMs=%d, want > 0", decided.DecidedAtUnixMs)
	}

	if _, err := s.Decide(ctx, rec.ID, false, "Someone Else", "Changed my mind."); !errors.Is(err, ErrGuardViolation) {
		t.Fatalf("second Decide: err=%v, want ErrGuardViolation", err)
	}

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusApproved || got.Rationale != "Documented medical leave." {
		t.Fatalf("decision overwritten: status=%q rationale=%q", got.Status, got.Rationale)
	}
}

func TestStore_DecideRequiresRationale(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	rec, err := s.Create(ctx, draftFor("sjbosso"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Decide(ctx, rec.ID, true, "R. Alvarez", "   "); !errors.Is(err, ErrMissingField) {
		t.Fatalf("Decide without rationale: err=%v, want ErrMissingField", err)
	}
}

func TestStore_FulfillmentRequiresApproval(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	rec, err := s.Create(ctx, draftFor("sjbosso"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	f := Fulfillment{
		GownSize: "L", CapSize: "M",
		Street: "2130 Fulton St", City: "San Francisco", State: "CA", Zip: "94117",
	}

	// SUBMITTED and UNDER_REVIEW both reject fulfillment.
	if _, err := s.PutFulfillment(ctx, rec.ID, f, "sjbosso"); !errors.Is(err, ErrGuardViolation) {
		t.Fatalf("PutFulfillment while SUBMITTED: err=%v, want ErrGuardViolation", err)
	}
	if _, err := s.BeginReview(ctx, rec.ID, "registrar"); err != nil {
		t.Fatalf("BeginReview: %v", err)
	}
	if _, err := s.PutFulfillment(ctx, rec.ID, f, "sjbosso"); !errors.Is(err, ErrGuardViolation) {
		t.Fatalf("PutFulfillment while UNDER_REVIEW: err=%v, want ErrGuardViolation", err)
	}

	if _, err := s.Decide(ctx, rec.ID, true, "R. Alvarez", "Documented medical leave."); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	got, err := s.PutFulfillment(ctx, rec.ID, f, "sjbosso")
	if err != nil {
		t.Fatalf("PutFulfillment after approval: %v", err)
	}
	if got.Fulfillment != FulfillmentPending {
		t.Fatalf("Fulfillment=%q, want PENDING", got.Fulfillment)
	}
	if got.GownSize != "L" || got.CapSize != "M" {
		t.Fatalf("sizes=%q/%q, want L/M", got.GownSize, got.CapSize)
	}

	// Denied requests reject fulfillment too.
	other, err := s.Create(ctx, draftFor("jdoe"))
	if err != nil {
		t.Fatalf("Create jdoe: %v", err)
	}
	if _, err := s.Decide(ctx, other.ID, false, "R. Alvarez", "Deadline passed."); err != nil {
		t.Fatalf("Decide jdoe: %v", err)
	}
	if _, err := s.PutFulfillment(ctx, other.ID, f, "jdoe"); !errors.Is(err, ErrGuardViolation) {
		t.Fatalf("PutFulfillment while DENIED: err=%v, want ErrGuardViolation", err)
	}
}

func TestStore_FulfillmentValidatesSizes(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	rec, err := s.Create(ctx, draftFor("sjbosso"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Decide(ctx, rec.ID, true, "R. Alvarez", "Approved."); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	f := Fulfillment{
		GownSize: "HUGE", CapSize: "M",
		Street: "2130 Fulton St", City: "San Francisco", State: "CA", Zip: "94117",
	}
	if _, err := s.PutFulfillment(ctx, rec.ID, f, "sjbosso"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("PutFulfillment bad gown size: err=%v, want ErrInvalidValue", err)
	}
}

func TestStore_AdvanceFulfillmentProgression(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	rec, err := s.Create(ctx, draftFor("sjbosso"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.AdvanceFulfillment(ctx, rec.ID, "fulfillment"); !errors.Is(err, ErrGuardViolation) {
		t.Fatalf("AdvanceFulfillment before submission: err=%v, want ErrGuardViolation", err)
	}

	if _, err := s.Decide(ctx, rec.ID, true, "R. Alvarez", "Approved."); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if _, err := s.PutFulfillment(ctx, rec.ID, Fulfillment{
		GownSize: "L", CapSize: "M",
		Street: "2130 Fulton St", City: "San Francisco", State: "CA", Zip: "94117",
	}, "sjbosso"); err != nil {
		t.Fatalf("PutFulfillment: %v", err)
	}

	got, err := s.AdvanceFulfillment(ctx, rec.ID, "fulfillment")
	if err != nil {
		t.Fatalf("AdvanceFulfillment to PROCESSING: %v", err)
	}
	if got.Fulfillment != FulfillmentProcessing {
		t.Fatalf("Fulfillment=%q, want PROCESSING", got.Fulfillment)
	}
	got, err = s.AdvanceFulfillment(ctx, rec.ID, "fulfillment")
	if err != nil {
		t.Fatalf("AdvanceFulfillment to SHIPPED: %v", err)
	}
	if got.Fulfillment != FulfillmentShipped {
		t.Fatalf("Fulfillment=%q, want SHIPPED", got.Fulfillment)
	}
	if _, err := s.AdvanceFulfillment(ctx, rec.ID, "fulfillment"); !errors.Is(err, ErrGuardViolation) {
		t.Fatalf("AdvanceFulfillment past SHIPPED: err=%v, want ErrGuardViolation", err)
	}
}

func TestStore_AuditTrailIsAppendOnlyAndOrdered(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	rec, err := s.Create(ctx, draftFor("sjbosso"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.BeginReview(ctx, rec.ID, "registrar"); err != nil {
		t.Fatalf("BeginReview: %v", err)
	}
	if _, err := s.Decide(ctx, rec.ID, true, "R. Alvarez", "Approved."); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := []string{
		"Request submitted by student",
		"Status changed: SUBMITTED -> UNDER_REVIEW",
		"Status changed: UNDER_REVIEW -> APPROVED",
	}
	if len(got.Audit) != len(want) {
		t.Fatalf("audit entries=%d, want %d", len(got.Audit), len(want))
	}
	for i, action := range want {
		if got.Audit[i].Action != action {
			t.Fatalf("audit[%d]=%q, want %q", i, got.Audit[i].Action, action)
		}
		if got.Audit[i].AtUnixMs <= 0 {
			t.Fatalf("audit[%d] missing timestamp", i)
		}
		if i > 0 && got.Audit[i].AtUnixMs < got.Audit[i-1].AtUnixMs {
			t.Fatalf("audit timestamps regress at %d", i)
		}
	}

	// Reopening the store preserves the full ordered trail.
	path := filepath.Join(t.TempDir(), "reload.sqlite")
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("Open reload store: %v", err)
	}
	rec2, err := s2.Create(ctx, draftFor("jdoe"))
	if err != nil {
		t.Fatalf("Create in reload store: %v", err)
	}
	if err := s2.AppendAudit(ctx, rec2.ID, "Reminder email sent", "system"); err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}
	if err := s2.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	s3, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s3.Close() }()
	got2, err := s3.Get(ctx, rec2.ID)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if len(got2.Audit) != 2 {
		t.Fatalf("audit entries after reopen=%d, want 2", len(got2.Audit))
	}
	if got2.Audit[1].Action != "Reminder email sent" {
		t.Fatalf("audit[1]=%q after reopen", got2.Audit[1].Action)
	}
}

func TestStore_SaveTranscriptOverwrites(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	rec, err := s.Create(ctx, draftFor("sjbosso"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	first := []TranscriptMessage{
		{Role: "user", Content: "I need to walk early."},
		{Role: "assistant", Content: "I can help with that."},
	}
	if err := s.SaveTranscript(ctx, rec.ID, first); err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}
	second := append(first,
		TranscriptMessage{Role: "user", Content: "What is the status of my request?"},
		TranscriptMessage{Role: "assistant", Content: "Your request is SUBMITTED."},
	)
	if err := s.SaveTranscript(ctx, rec.ID, second); err != nil {
		t.Fatalf("SaveTranscript second: %v", err)
	}

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Transcript) != 4 {
		t.Fatalf("transcript len=%d, want 4", len(got.Transcript))
	}
	if got.Transcript[3].Content != "Your request is SUBMITTED." {
		t.Fatalf("transcript[3]=%q", got.Transcript[3].Content)
	}

	if err := s.SaveTranscript(ctx, "missing-id", first); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SaveTranscript missing id: err=%v, want ErrNotFound", err)
	}
}
