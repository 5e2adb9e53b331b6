package request

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the workflow status of a commencement exception request.
//
// DRAFT is a conversational shape only: the agent collects fields in memory
// and nothing is persisted until submission. Every persisted record starts at
// SUBMITTED.
type Status string

const (
	StatusDraft       Status = "DRAFT"
	StatusSubmitted   Status = "SUBMITTED"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusApproved    Status = "APPROVED"
	StatusDenied      Status = "DENIED"
)

// Terminal reports whether the status accepts no further status transitions.
// Terminal records remain accretive: fulfillment and document references can
// still be added to an APPROVED record.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusDenied
}

// Active reports whether a record is in flight (submitted but not decided).
func (s Status) Active() bool {
	return s == StatusSubmitted || s == StatusUnderReview
}

func NormalizeStatus(raw string) (Status, bool) {
	v := Status(strings.ToUpper(strings.TrimSpace(raw)))
	switch v {
	case StatusDraft, StatusSubmitted, StatusUnderReview, StatusApproved, StatusDenied:
		return v, true
	default:
		return "", false
	}
}

// FulfillmentStatus tracks cap-and-gown fulfillment for approved requests.
// It is unset until the student submits fulfillment information.
type FulfillmentStatus string

const (
	FulfillmentNone       FulfillmentStatus = ""
	FulfillmentPending    FulfillmentStatus = "PENDING"
	FulfillmentProcessing FulfillmentStatus = "PROCESSING"
	FulfillmentShipped    FulfillmentStatus = "SHIPPED"
)

var (
	// ErrNotFound is returned when no record exists for the given id or username.
	ErrNotFound = errors.New("no request found")

	// ErrActiveRequestExists is returned by Create when the student already has
	// an in-flight (non-terminal) request.
	ErrActiveRequestExists = errors.New("an active request already exists for this student")

	// ErrMissingField marks a required field that is absent or empty.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidValue marks a field value outside its allowed set.
	ErrInvalidValue = errors.New("invalid field value")

	// ErrGuardViolation marks an operation that is not legal for the record's
	// current status (e.g. fulfillment against a non-approved request, or a
	// second decision on a decided request).
	ErrGuardViolation = errors.New("operation not allowed in current status")
)

// GownSizes and CapSizes are the closed value sets accepted for fulfillment.
var (
	GownSizes = []string{"XS", "S", "M", "L", "XL", "XXL", "XXXL"}
	CapSizes  = []string{"S", "M", "L", "XL"}
)

func ValidGownSize(v string) bool { return inSet(v, GownSizes) }
func ValidCapSize(v string) bool  { return inSet(v, CapSizes) }

func inSet(v string, set []string) bool {
	v = strings.ToUpper(strings.TrimSpace(v))
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

// AuditEntry is one append-only audit trail item. Entries are never rewritten
// or removed once appended.
type AuditEntry struct {
	AtUnixMs int64  `json:"at_unix_ms"`
	Action   string `json:"action"`
	Actor    string `json:"actor"`
}

func (e AuditEntry) Time() time.Time {
	return time.UnixMilli(e.AtUnixMs).UTC()
}

// TranscriptMessage is one (role, content) pair of the student conversation.
// The transcript mirrors the agent's own running history and is rewritten
// wholesale after each completed turn; it is not independently authoritative.
type TranscriptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Fulfillment is the student-provided cap-and-gown fulfillment submission.
type Fulfillment struct {
	GownSize string `json:"gown_size"`
	CapSize  string `json:"cap_size"`
	Street   string `json:"mailing_street"`
	City     string `json:"mailing_city"`
	State    string `json:"mailing_state"`
	Zip      string `json:"mailing_zip"`
}

func (f *Fulfillment) Normalize() {
	if f == nil {
		return
	}
	f.GownSize = strings.ToUpper(strings.TrimSpace(f.GownSize))
	f.CapSize = strings.ToUpper(strings.TrimSpace(f.CapSize))
	f.Street = strings.TrimSpace(f.Street)
	f.City = strings.TrimSpace(f.City)
	f.State = strings.ToUpper(strings.TrimSpace(f.State))
	f.Zip = strings.TrimSpace(f.Zip)
}

func (f *Fulfillment) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: fulfillment", ErrMissingField)
	}
	if !ValidGownSize(f.GownSize) {
		return fmt.Errorf("%w: gown_size %q (allowed: %s)", ErrInvalidValue, f.GownSize, strings.Join(GownSizes, ", "))
	}
	if !ValidCapSize(f.CapSize) {
		return fmt.Errorf("%w: cap_size %q (allowed: %s)", ErrInvalidValue, f.CapSize, strings.Join(CapSizes, ", "))
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"mailing_street", f.Street},
		{"mailing_city", f.City},
		{"mailing_state", f.State},
		{"mailing_zip", f.Zip},
	} {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, field.name)
		}
	}
	return nil
}

// Record is a commencement exception request.
type Record struct {
	ID       string `json:"request_id"`
	Username string `json:"username"`

	// Pre-filled from SSO + Banner. Read-only once submitted.
	StudentName   string `json:"student_name"`
	Email         string `json:"email"`
	StudentID     string `json:"student_id"`
	SchoolCollege string `json:"school_college"`
	Program       string `json:"program"`

	// Collected conversationally by the agent.
	Phone             string `json:"phone"`
	OriginalSemester  string `json:"original_semester"`
	RequestedSemester string `json:"requested_semester"`
	Circumstances     string `json:"circumstances"`

	Status            Status `json:"status"`
	SubmittedAtUnixMs int64  `json:"submitted_at_unix_ms"`

	// Registrar decision. Set exactly once, on the transition into
	// APPROVED or DENIED; never overwritten.
	DecidedAtUnixMs int64  `json:"decided_at_unix_ms,omitempty"`
	Reviewer        string `json:"reviewer,omitempty"`
	Rationale       string `json:"rationale,omitempty"`

	// Post-approval fulfillment.
	GownSize      string            `json:"gown_size,omitempty"`
	CapSize       string            `json:"cap_size,omitempty"`
	MailingStreet string            `json:"mailing_street,omitempty"`
	MailingCity   string            `json:"mailing_city,omitempty"`
	MailingState  string            `json:"mailing_state,omitempty"`
	MailingZip    string            `json:"mailing_zip,omitempty"`
	Fulfillment   FulfillmentStatus `json:"fulfillment_status,omitempty"`

	// DocumentPath is the stored reference of the generated record document.
	DocumentPath string `json:"document_path,omitempty"`

	CreatedAtUnixMs int64 `json:"created_at_unix_ms"`
	UpdatedAtUnixMs int64 `json:"updated_at_unix_ms"`

	Transcript []TranscriptMessage `json:"transcript,omitempty"`
	Audit      []AuditEntry        `json:"audit_log,omitempty"`
}

// requiredForSubmit lists every field that must be present before a draft can
// be persisted, in the order errors should surface.
func (r *Record) requiredForSubmit() []struct{ name, value string } {
	return []struct{ name, value string }{
		{"username", r.Username},
		{"student_name", r.StudentName},
		{"email", r.Email},
		{"student_id", r.StudentID},
		{"school_college", r.SchoolCollege},
		{"program", r.Program},
		{"phone", r.Phone},
		{"original_semester", r.OriginalSemester},
		{"requested_semester", r.RequestedSemester},
		{"circumstances", r.Circumstances},
	}
}

func (r *Record) Normalize() {
	if r == nil {
		return
	}
	r.ID = strings.TrimSpace(r.ID)
	r.Username = strings.TrimSpace(r.Username)
	r.StudentName = strings.TrimSpace(r.StudentName)
	r.Email = strings.TrimSpace(r.Email)
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.SchoolCollege = strings.TrimSpace(r.SchoolCollege)
	r.Program = strings.TrimSpace(r.Program)
	r.Phone = strings.TrimSpace(r.Phone)
	r.OriginalSemester = strings.TrimSpace(r.OriginalSemester)
	r.RequestedSemester = strings.TrimSpace(r.RequestedSemester)
	r.Circumstances = strings.TrimSpace(r.Circumstances)
	r.Reviewer = strings.TrimSpace(r.Reviewer)
	r.Rationale = strings.TrimSpace(r.Rationale)
}

// ValidateForSubmit checks that every required field is present.
func (r *Record) ValidateForSubmit() error {
	if r == nil {
		return fmt.Errorf("%w: record", ErrMissingField)
	}
	for _, field := range r.requiredForSubmit() {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, field.name)
		}
	}
	return nil
}

// Decided reports whether the registrar decision fields have been written.
func (r *Record) Decided() bool {
	return r != nil && r.Status.Terminal()
}

// NeedsFulfillment reports whether the student still owes cap-and-gown info.
func (r *Record) NeedsFulfillment() bool {
	return r != nil && r.Status == StatusApproved && strings.TrimSpace(r.GownSize) == ""
}
