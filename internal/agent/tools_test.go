package agent

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/usfca-its/commencement-agent/internal/banner"
	"github.com/usfca-its/commencement-agent/internal/request"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newToolkit(t *testing.T, username string) (*Toolkit, *Registry, *request.Store) {
	t.Helper()
	store, err := request.Open(filepath.Join(t.TempDir(), "requests.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	tk := &Toolkit{
		Username:  username,
		Directory: banner.NewFixtureDirectory(),
		Store:     store,
		OutputDir: t.TempDir(),
		Logger:    testLogger(),
	}
	reg := NewRegistry()
	if err := tk.RegisterAll(reg); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	return tk, reg, store
}

func dispatchOne(t *testing.T, reg *Registry, name string, args map[string]any) ToolResult {
	t.Helper()
	results := reg.Dispatch(context.Background(), []ToolCall{{ID: "call_" + name, Name: name, Args: args}})
	if len(results) != 1 {
		t.Fatalf("results=%d, want 1", len(results))
	}
	return results[0]
}

func submitArgs() map[string]any {
	return map[string]any{
		"phone":              "4155551234",
		"original_semester":  "Fall 2025",
		"requested_semester": "Spring 2026",
		"circumstances":      "Medical leave during final semester.",
	}
}

func fulfillmentArgs() map[string]any {
	return map[string]any{
		"gown_size":      "L",
		"cap_size":       "M",
		"mailing_street": "2130 Fulton St",
		"mailing_city":   "San Francisco",
		"mailing_state":  "CA",
		"mailing_zip":    "94117",
	}
}

func TestToolkit_RegisterAllExposesFiveTools(t *testing.T) {
	t.Parallel()

	_, reg, _ := newToolkit(t, "sjbosso")
	defs := reg.Snapshot()
	if len(defs) != 5 {
		t.Fatalf("tools=%d, want 5", len(defs))
	}
	want := []string{"check_status", "generate_record_document", "lookup_profile", "submit_fulfillment", "submit_request"}
	for i, name := range want {
		if defs[i].Name != name {
			t.Fatalf("defs[%d].Name=%q, want %q", i, defs[i].Name, name)
		}
	}
}

func TestToolkit_LookupProfile(t *testing.T) {
	t.Parallel()

	_, reg, _ := newToolkit(t, "sjbosso")
	res := dispatchOne(t, reg, "lookup_profile", nil)
	if res.Status != ResultSuccess {
		t.Fatalf("Status=%q (%s), want success", res.Status, res.Details)
	}
	profile, ok := res.Data.(*banner.Profile)
	if !ok {
		t.Fatalf("Data type=%T, want *banner.Profile", res.Data)
	}
	if profile.Name != "Steven Bosso" || profile.StudentID != "20481234" {
		t.Fatalf("profile=%+v, want Steven Bosso/20481234", profile)
	}
}

func TestToolkit_LookupProfileUnknownStudent(t *testing.T) {
	t.Parallel()

	_, reg, _ := newToolkit(t, "ghost")
	res := dispatchOne(t, reg, "lookup_profile", nil)
	if res.Status != ResultError || res.Summary != "profile.not_found" {
		t.Fatalf("result=%+v, want profile.not_found", res)
	}
}

func TestToolkit_SubmitRequestCreatesRecord(t *testing.T) {
	t.Parallel()

	_, reg, store := newToolkit(t, "sjbosso")
	res := dispatchOne(t, reg, "submit_request", submitArgs())
	if res.Status != ResultSuccess {
		t.Fatalf("Status=%q (%s), want success", res.Status, res.Details)
	}
	data, ok := res.Data.(map[string]any)
	if !ok || data["request_id"] == "" {
		t.Fatalf("Data=%+v, want request_id", res.Data)
	}

	rec, err := store.GetByUsername(context.Background(), "sjbosso")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if rec.Status != request.StatusSubmitted {
		t.Fatalf("Status=%q, want SUBMITTED", rec.Status)
	}
	if rec.StudentName != "Steven Bosso" || rec.Email != "sjbosso@dons.usfca.edu" {
		t.Fatalf("identity fields=%q/%q, want Banner profile data", rec.StudentName, rec.Email)
	}
}

func TestToolkit_SubmitRequestRejectsSecondActive(t *testing.T) {
	t.Parallel()

	_, reg, _ := newToolkit(t, "sjbosso")
	if res := dispatchOne(t, reg, "submit_request", submitArgs()); res.Status != ResultSuccess {
		t.Fatalf("first submit: %+v", res)
	}
	res := dispatchOne(t, reg, "submit_request", submitArgs())
	if res.Status != ResultError || res.Summary != "request.already_active" {
		t.Fatalf("result=%+v, want request.already_active", res)
	}
}

func TestToolkit_SubmitRequestMissingFields(t *testing.T) {
	t.Parallel()

	_, reg, _ := newToolkit(t, "sjbosso")
	args := submitArgs()
	delete(args, "circumstances")
	res := dispatchOne(t, reg, "submit_request", args)
	if res.Status != ResultError || res.Summary != "tool.argument_error" {
		t.Fatalf("result=%+v, want tool.argument_error for missing circumstances", res)
	}
}

func TestToolkit_CheckStatusLifecycle(t *testing.T) {
	t.Parallel()

	_, reg, store := newToolkit(t, "sjbosso")
	ctx := context.Background()

	res := dispatchOne(t, reg, "check_status", nil)
	if res.Status != ResultError || res.Summary != "request.not_found" {
		t.Fatalf("pre-submit result=%+v, want request.not_found", res)
	}

	if res := dispatchOne(t, reg, "submit_request", submitArgs()); res.Status != ResultSuccess {
		t.Fatalf("submit: %+v", res)
	}
	rec, err := store.GetByUsername(ctx, "sjbosso")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}

	res = dispatchOne(t, reg, "check_status", nil)
	data := res.Data.(map[string]any)
	if data["status"] != request.StatusSubmitted {
		t.Fatalf("status=%v, want SUBMITTED", data["status"])
	}
	if _, ok := data["needs_fulfillment"]; ok {
		t.Fatalf("needs_fulfillment present before approval")
	}

	if _, err := store.Decide(ctx, rec.ID, true, "registrar", "Documented medical leave."); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	res = dispatchOne(t, reg, "check_status", nil)
	data = res.Data.(map[string]any)
	if data["status"] != request.StatusApproved {
		t.Fatalf("status=%v, want APPROVED", data["status"])
	}
	if data["reviewer"] != "registrar" || data["rationale"] != "Documented medical leave." {
		t.Fatalf("decision fields=%v/%v, want registrar decision", data["reviewer"], data["rationale"])
	}
	if data["needs_fulfillment"] != true {
		t.Fatalf("needs_fulfillment=%v, want true after approval", data["needs_fulfillment"])
	}
}

func TestToolkit_SubmitFulfillmentRequiresApproval(t *testing.T) {
	t.Parallel()

	_, reg, store := newToolkit(t, "sjbosso")
	ctx := context.Background()

	if res := dispatchOne(t, reg, "submit_request", submitArgs()); res.Status != ResultSuccess {
		t.Fatalf("submit: %+v", res)
	}

	res := dispatchOne(t, reg, "submit_fulfillment", fulfillmentArgs())
	if res.Status != ResultError || res.Summary != "request.guard_violation" {
		t.Fatalf("result=%+v, want request.guard_violation before approval", res)
	}

	rec, err := store.GetByUsername(ctx, "sjbosso")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if _, err := store.Decide(ctx, rec.ID, true, "registrar", "Approved."); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	res = dispatchOne(t, reg, "submit_fulfillment", fulfillmentArgs())
	if res.Status != ResultSuccess {
		t.Fatalf("Status=%q (%s), want success after approval", res.Status, res.Details)
	}
	data := res.Data.(map[string]any)
	if data["fulfillment_status"] != request.FulfillmentPending {
		t.Fatalf("fulfillment_status=%v, want PENDING", data["fulfillment_status"])
	}
}

func TestToolkit_SubmitFulfillmentRejectsBadSize(t *testing.T) {
	t.Parallel()

	_, reg, _ := newToolkit(t, "sjbosso")
	args := fulfillmentArgs()
	args["gown_size"] = "HUGE"
	res := dispatchOne(t, reg, "submit_fulfillment", args)
	if res.Status != ResultError || res.Summary != "tool.argument_error" {
		t.Fatalf("result=%+v, want tool.argument_error for gown size", res)
	}
}

func TestToolkit_GenerateRecordDocument(t *testing.T) {
	t.Parallel()

	tk, reg, store := newToolkit(t, "sjbosso")
	ctx := context.Background()

	if res := dispatchOne(t, reg, "submit_request", submitArgs()); res.Status != ResultSuccess {
		t.Fatalf("submit: %+v", res)
	}

	res := dispatchOne(t, reg, "generate_record_document", nil)
	if res.Status != ResultSuccess {
		t.Fatalf("Status=%q (%s), want success", res.Status, res.Details)
	}
	data := res.Data.(map[string]any)
	path, _ := data["document_path"].(string)
	if path == "" || filepath.Dir(path) != tk.OutputDir {
		t.Fatalf("document_path=%q, want file under %s", path, tk.OutputDir)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(body), "Commencement Exception Request") {
		t.Fatalf("document missing header:\n%s", body)
	}

	rec, err := store.GetByUsername(ctx, "sjbosso")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if rec.DocumentPath != path {
		t.Fatalf("DocumentPath=%q, want %q", rec.DocumentPath, path)
	}
}
