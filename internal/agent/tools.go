package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/usfca-its/commencement-agent/internal/banner"
	"github.com/usfca-its/commencement-agent/internal/document"
	"github.com/usfca-its/commencement-agent/internal/request"
)

// Toolkit wires the commencement workflow tools against the record store and
// the Banner directory, scoped to one authenticated student.
//
// Requester identity always comes from the SSO session, never from tool
// arguments: the model cannot act on another student's behalf.
type Toolkit struct {
	Username  string
	Directory banner.Directory
	Store     *request.Store
	OutputDir string
	Logger    *slog.Logger
}

// RegisterAll registers the five workflow tools on the registry.
func (t *Toolkit) RegisterAll(reg *Registry) error {
	if t == nil {
		return errors.New("nil toolkit")
	}
	if strings.TrimSpace(t.Username) == "" {
		return errors.New("toolkit missing username")
	}
	if t.Directory == nil || t.Store == nil {
		return errors.New("toolkit missing directory or store")
	}
	for _, item := range []struct {
		def     ToolDef
		handler HandlerFunc
	}{
		{lookupProfileDef, t.lookupProfile},
		{submitRequestDef, t.submitRequest},
		{checkStatusDef, t.checkStatus},
		{submitFulfillmentDef, t.submitFulfillment},
		{generateRecordDocumentDef, t.generateRecordDocument},
	} {
		if err := reg.Register(item.def, item.handler); err != nil {
			return err
		}
	}
	return nil
}

var lookupProfileDef = ToolDef{
	Name: "lookup_profile",
	Description: "Look up the authenticated student's Banner profile: name, email, " +
		"student ID, school/college, and degree program. Call this first to greet " +
		"the student and pre-fill their request.",
	InputSchema: json.RawMessage(`{"type":"object","properties":{},"required":[]}`),
}

var submitRequestDef = ToolDef{
	Name: "submit_request",
	Description: "Submit the commencement exception request once every field has been " +
		"collected and the student has confirmed. Creates the official record in SUBMITTED status.",
	InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "phone": {"type": "string", "description": "The student's contact phone number."},
    "original_semester": {"type": "string", "description": "The semester of the student's original commencement ceremony (e.g., 'Fall 2025')."},
    "requested_semester": {"type": "string", "description": "The semester the student is requesting to participate in (e.g., 'Spring 2026')."},
    "circumstances": {"type": "string", "description": "The student's description of their extenuating circumstances."}
  },
  "required": ["phone", "original_semester", "requested_semester", "circumstances"]
}`),
	Mutating: true,
}

var checkStatusDef = ToolDef{
	Name: "check_status",
	Description: "Check the current status of the student's exception request, including " +
		"the registrar decision and fulfillment progress when present.",
	InputSchema: json.RawMessage(`{"type":"object","properties":{},"required":[]}`),
}

var submitFulfillmentDef = ToolDef{
	Name: "submit_fulfillment",
	Description: "Submit cap and gown fulfillment information for an APPROVED request: " +
		"gown size, cap size, and the mailing address for delivery.",
	InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "gown_size": {"type": "string", "description": "The student's gown size.", "enum": ["XS", "S", "M", "L", "XL", "XXL", "XXXL"]},
    "cap_size": {"type": "string", "description": "The student's cap size.", "enum": ["S", "M", "L", "XL"]},
    "mailing_street": {"type": "string", "description": "Street address for delivery."},
    "mailing_city": {"type": "string", "description": "City for delivery."},
    "mailing_state": {"type": "string", "description": "State for delivery (2-letter abbreviation)."},
    "mailing_zip": {"type": "string", "description": "ZIP code for delivery."}
  },
  "required": ["gown_size", "cap_size", "mailing_street", "mailing_city", "mailing_state", "mailing_zip"]
}`),
	Mutating: true,
}

var generateRecordDocumentDef = ToolDef{
	Name: "generate_record_document",
	Description: "Generate the official record document for the student's request and " +
		"store its location on the record.",
	InputSchema: json.RawMessage(`{"type":"object","properties":{},"required":[]}`),
	Mutating:    true,
}

func (t *Toolkit) lookupProfile(ctx context.Context, call ToolCall) (ToolResult, error) {
	profile, err := t.Directory.Lookup(t.Username)
	if err != nil {
		if errors.Is(err, banner.ErrNotFound) {
			return ToolResult{Status: ResultError, Summary: "profile.not_found",
				Details: fmt.Sprintf("no student record found for %s", t.Username)}, nil
		}
		return ToolResult{Status: ResultError, Summary: "profile.lookup_failed", Details: err.Error()}, nil
	}
	t.log().InfoContext(ctx, "profile looked up", "username", t.Username)
	return ToolResult{Status: ResultSuccess, Summary: "profile.found", Data: profile}, nil
}

func (t *Toolkit) submitRequest(ctx context.Context, call ToolCall) (ToolResult, error) {
	profile, err := t.Directory.Lookup(t.Username)
	if err != nil {
		return ToolResult{Status: ResultError, Summary: "profile.not_found",
			Details: fmt.Sprintf("cannot submit: no student record found for %s", t.Username)}, nil
	}

	draft := request.Record{
		Username:          t.Username,
		StudentName:       profile.Name,
		Email:             profile.Email,
		StudentID:         profile.StudentID,
		SchoolCollege:     profile.SchoolCollege,
		Program:           profile.Program,
		Phone:             stringArg(call.Args, "phone"),
		OriginalSemester:  stringArg(call.Args, "original_semester"),
		RequestedSemester: stringArg(call.Args, "requested_semester"),
		Circumstances:     stringArg(call.Args, "circumstances"),
	}

	rec, err := t.Store.Create(ctx, draft)
	if err != nil {
		switch {
		case errors.Is(err, request.ErrActiveRequestExists):
			return ToolResult{Status: ResultError, Summary: "request.already_active",
				Details: "an exception request is already in progress for this student"}, nil
		case errors.Is(err, request.ErrMissingField):
			return ToolResult{Status: ResultError, Summary: "request.validation_error", Details: err.Error()}, nil
		default:
			return ToolResult{}, err
		}
	}
	t.log().InfoContext(ctx, "request submitted", "username", t.Username, "request_id", rec.ID)
	return ToolResult{Status: ResultSuccess, Summary: "request.submitted", Data: map[string]any{
		"request_id":   rec.ID,
		"status":       rec.Status,
		"submitted_at": rfc3339(rec.SubmittedAtUnixMs),
	}}, nil
}

func (t *Toolkit) checkStatus(ctx context.Context, call ToolCall) (ToolResult, error) {
	rec, err := t.Store.GetByUsername(ctx, t.Username)
	if err != nil {
		if errors.Is(err, request.ErrNotFound) {
			return ToolResult{Status: ResultError, Summary: "request.not_found",
				Details: "no exception request found for this student"}, nil
		}
		return ToolResult{}, err
	}

	data := map[string]any{
		"request_id":   rec.ID,
		"status":       rec.Status,
		"submitted_at": rfc3339(rec.SubmittedAtUnixMs),
	}
	if rec.Decided() {
		data["reviewer"] = rec.Reviewer
		data["rationale"] = rec.Rationale
		data["decided_at"] = rfc3339(rec.DecidedAtUnixMs)
	}
	if rec.Fulfillment != request.FulfillmentNone {
		data["fulfillment_status"] = rec.Fulfillment
	}
	if rec.NeedsFulfillment() {
		data["needs_fulfillment"] = true
	}
	return ToolResult{Status: ResultSuccess, Summary: "request.status", Data: data}, nil
}

func (t *Toolkit) submitFulfillment(ctx context.Context, call ToolCall) (ToolResult, error) {
	rec, err := t.Store.GetByUsername(ctx, t.Username)
	if err != nil {
		if errors.Is(err, request.ErrNotFound) {
			return ToolResult{Status: ResultError, Summary: "request.not_found",
				Details: "no exception request found for this student"}, nil
		}
		return ToolResult{}, err
	}

	f := request.Fulfillment{
		GownSize: stringArg(call.Args, "gown_size"),
		CapSize:  stringArg(call.Args, "cap_size"),
		Street:   stringArg(call.Args, "mailing_street"),
		City:     stringArg(call.Args, "mailing_city"),
		State:    stringArg(call.Args, "mailing_state"),
		Zip:      stringArg(call.Args, "mailing_zip"),
	}
	updated, err := t.Store.PutFulfillment(ctx, rec.ID, f, t.Username)
	if err != nil {
		switch {
		case errors.Is(err, request.ErrGuardViolation):
			return ToolResult{Status: ResultError, Summary: "request.guard_violation", Details: err.Error()}, nil
		case errors.Is(err, request.ErrInvalidValue), errors.Is(err, request.ErrMissingField):
			return ToolResult{Status: ResultError, Summary: "request.validation_error", Details: err.Error()}, nil
		default:
			return ToolResult{}, err
		}
	}
	t.log().InfoContext(ctx, "fulfillment submitted", "username", t.Username, "request_id", updated.ID)
	return ToolResult{Status: ResultSuccess, Summary: "fulfillment.recorded", Data: map[string]any{
		"request_id":         updated.ID,
		"fulfillment_status": updated.Fulfillment,
		"gown_size":          updated.GownSize,
		"cap_size":           updated.CapSize,
	}}, nil
}

func (t *Toolkit) generateRecordDocument(ctx context.Context, call ToolCall) (ToolResult, error) {
	rec, err := t.Store.GetByUsername(ctx, t.Username)
	if err != nil {
		if errors.Is(err, request.ErrNotFound) {
			return ToolResult{Status: ResultError, Summary: "request.not_found",
				Details: "no exception request found for this student"}, nil
		}
		return ToolResult{}, err
	}

	path, err := document.Write(rec, t.OutputDir)
	if err != nil {
		return ToolResult{Status: ResultError, Summary: "document.render_failed", Details: err.Error()}, nil
	}
	if _, err := t.Store.SetDocumentPath(ctx, rec.ID, path, t.Username); err != nil {
		return ToolResult{}, err
	}
	t.log().InfoContext(ctx, "record document generated", "username", t.Username, "request_id", rec.ID, "path", path)
	return ToolResult{Status: ResultSuccess, Summary: "document.generated", Data: map[string]any{
		"request_id":    rec.ID,
		"document_path": path,
	}}, nil
}

func (t *Toolkit) log() *slog.Logger {
	if t != nil && t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func rfc3339(unixMs int64) string {
	if unixMs <= 0 {
		return ""
	}
	return time.UnixMilli(unixMs).UTC().Format(time.RFC3339)
}
