package request

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store is the local SQLite-backed persistence layer for exception requests.
//
// Notes:
// - Status transitions are applied inside transactions so concurrent writers
//   (student chat session, registrar review session) cannot interleave a
//   read-modify-write. The last committed transition wins; guards re-check
//   the current status inside the transaction.
// - WAL is enabled to support concurrent reads while writing.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" {
		return nil, errors.New("missing db path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create persists a draft as a new SUBMITTED request. It assigns the request
// id, stamps submission time, and appends the submission audit entry in the
// same transaction. A student may have at most one active request; a second
// submission while one is in flight fails with ErrActiveRequestExists.
func (s *Store) Create(ctx context.Context, rec Record) (*Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rec.Normalize()
	if err := rec.ValidateForSubmit(); err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	rec.ID = uuid.NewString()
	rec.Status = StatusSubmitted
	rec.SubmittedAtUnixMs = now
	rec.CreatedAtUnixMs = now
	rec.UpdatedAtUnixMs = now

	transcriptJSON, err := encodeTranscript(rec.Transcript)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var active int
	if err := tx.QueryRowContext(ctx, `
SELECT COUNT(1)
FROM requests
WHERE username = ? AND status IN ('SUBMITTED', 'UNDER_REVIEW')
`, rec.Username).Scan(&active); err != nil {
		return nil, err
	}
	if active > 0 {
		return nil, ErrActiveRequestExists
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO requests(
  request_id, username,
  student_name, email, student_id, school_college, program,
  phone, original_semester, requested_semester, circumstances,
  status, submitted_at_unix_ms,
  decided_at_unix_ms, reviewer, rationale,
  gown_size, cap_size,
  mailing_street, mailing_city, mailing_state, mailing_zip,
  fulfillment_status, document_path,
  transcript_json, created_at_unix_ms, updated_at_unix_ms
) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, '', '', '', '', '', '', '', '', '', '', ?, ?, ?)
`,
		rec.ID,
		rec.Username,
		rec.StudentName,
		rec.Email,
		rec.StudentID,
		rec.SchoolCollege,
		rec.Program,
		rec.Phone,
		rec.OriginalSemester,
		rec.RequestedSemester,
		rec.Circumstances,
		string(rec.Status),
		rec.SubmittedAtUnixMs,
		transcriptJSON,
		rec.CreatedAtUnixMs,
		rec.UpdatedAtUnixMs,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrActiveRequestExists
		}
		return nil, err
	}

	entry := AuditEntry{AtUnixMs: now, Action: auditSubmitted, Actor: rec.Username}
	if err := insertAudit(ctx, tx, rec.ID, entry); err != nil {
		return nil, err
	}
	rec.Audit = []AuditEntry{entry}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Get returns the request with the given id, including its audit trail.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: request_id", ErrMissingField)
	}
	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectRecord+`WHERE request_id = ?`, id))
	if err != nil {
		return nil, err
	}
	rec.Audit, err = s.loadAudit(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetByUsername returns the student's active request if one exists, otherwise
// the most recently created one. ErrNotFound when the student has none.
func (s *Store) GetByUsername(ctx context.Context, username string) (*Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username", ErrMissingField)
	}
	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectRecord+`
WHERE username = ?
ORDER BY (status IN ('SUBMITTED', 'UNDER_REVIEW')) DESC, created_at_unix_ms DESC
LIMIT 1
`, username))
	if err != nil {
		return nil, err
	}
	rec.Audit, err = s.loadAudit(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns requests ordered by submission time ascending. An empty status
// filter returns everything; an empty result is not an error.
func (s *Store) List(ctx context.Context, status Status) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	q := selectRecord
	args := []any{}
	if status != "" {
		q += `WHERE status = ?
`
		args = append(args, string(status))
	}
	q += `ORDER BY created_at_unix_ms ASC, request_id ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0, 16)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// AppendAudit appends one entry to the request's audit trail. Entries are
// append-only; nothing ever rewrites or removes them.
func (s *Store) AppendAudit(ctx context.Context, id string, action string, actor string) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	action = strings.TrimSpace(action)
	actor = strings.TrimSpace(actor)
	if id == "" || action == "" {
		return errors.New("invalid audit entry")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := requireRequest(ctx, tx, id); err != nil {
		return err
	}
	if err := insertAudit(ctx, tx, id, AuditEntry{AtUnixMs: time.Now().UnixMilli(), Action: action, Actor: actor}); err != nil {
		return err
	}
	return tx.Commit()
}

// BeginReview moves a SUBMITTED request to UNDER_REVIEW on behalf of the
// reviewer opening it.
func (s *Store) BeginReview(ctx context.Context, id string, reviewer string) (*Record, error) {
	return s.transition(ctx, id, StatusUnderReview, reviewer, func(rec *Record, now int64) {})
}

// Decide records the registrar decision. The reviewer, rationale, and
// decision time are written exactly once, on this transition; a decided
// request cannot be decided again.
func (s *Store) Decide(ctx context.Context, id string, approve bool, reviewer string, rationale string) (*Record, error) {
	reviewer = strings.TrimSpace(reviewer)
	rationale = strings.TrimSpace(rationale)
	if reviewer == "" {
		return nil, fmt.Errorf("%w: reviewer", ErrMissingField)
	}
	if rationale == "" {
		return nil, fmt.Errorf("%w: rationale", ErrMissingField)
	}
	to := StatusDenied
	if approve {
		to = StatusApproved
	}
	return s.transition(ctx, id, to, reviewer, func(rec *Record, now int64) {
		rec.DecidedAtUnixMs = now
		rec.Reviewer = reviewer
		rec.Rationale = rationale
	})
}

// transition applies one status move under the transition table, mutates the
// record through apply, and appends the status-change audit entry, all in one
// transaction.
func (s *Store) transition(ctx context.Context, id string, to Status, actor string, apply func(rec *Record, now int64)) (*Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	actor = strings.TrimSpace(actor)
	if id == "" {
		return nil, fmt.Errorf("%w: request_id", ErrMissingField)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := scanRecord(tx.QueryRowContext(ctx, selectRecord+`WHERE request_id = ?`, id))
	if err != nil {
		return nil, err
	}
	from := rec.Status
	if err := checkTransition(from, to); err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	rec.Status = to
	rec.UpdatedAtUnixMs = now
	apply(rec, now)

	if _, err := tx.ExecContext(ctx, `
UPDATE requests
SET status = ?,
    decided_at_unix_ms = ?,
    reviewer = ?,
    rationale = ?,
    updated_at_unix_ms = ?
WHERE request_id = ?
`, string(rec.Status), rec.DecidedAtUnixMs, rec.Reviewer, rec.Rationale, rec.UpdatedAtUnixMs, rec.ID); err != nil {
		return nil, err
	}

	entry := AuditEntry{AtUnixMs: now, Action: auditStatusChanged(from, to), Actor: actor}
	if err := insertAudit(ctx, tx, rec.ID, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	rec.Audit, err = s.loadAudit(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// PutFulfillment records the student's cap-and-gown submission against an
// APPROVED request and starts fulfillment at PENDING.
func (s *Store) PutFulfillment(ctx context.Context, id string, f Fulfillment, actor string) (*Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	actor = strings.TrimSpace(actor)
	if id == "" {
		return nil, fmt.Errorf("%w: request_id", ErrMissingField)
	}
	f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := scanRecord(tx.QueryRowContext(ctx, selectRecord+`WHERE request_id = ?`, id))
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusApproved {
		return nil, fmt.Errorf("%w: fulfillment requires an APPROVED request, current status is %s", ErrGuardViolation, rec.Status)
	}

	now := time.Now().UnixMilli()
	rec.GownSize = f.GownSize
	rec.CapSize = f.CapSize
	rec.MailingStreet = f.Street
	rec.MailingCity = f.City
	rec.MailingState = f.State
	rec.MailingZip = f.Zip
	rec.Fulfillment = FulfillmentPending
	rec.UpdatedAtUnixMs = now

	if _, err := tx.ExecContext(ctx, `
UPDATE requests
SET gown_size = ?, cap_size = ?,
    mailing_street = ?, mailing_city = ?, mailing_state = ?, mailing_zip = ?,
    fulfillment_status = ?, updated_at_unix_ms = ?
WHERE request_id = ?
`, rec.GownSize, rec.CapSize, rec.MailingStreet, rec.MailingCity, rec.MailingState, rec.MailingZip, string(rec.Fulfillment), now, rec.ID); err != nil {
		return nil, err
	}

	if err := insertAudit(ctx, tx, rec.ID, AuditEntry{AtUnixMs: now, Action: auditFulfillmentEntered, Actor: actor}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	rec.Audit, err = s.loadAudit(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// AdvanceFulfillment moves fulfillment one stage forward
// (PENDING -> PROCESSING -> SHIPPED).
func (s *Store) AdvanceFulfillment(ctx context.Context, id string, actor string) (*Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	actor = strings.TrimSpace(actor)
	if id == "" {
		return nil, fmt.Errorf("%w: request_id", ErrMissingField)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := scanRecord(tx.QueryRowContext(ctx, selectRecord+`WHERE request_id = ?`, id))
	if err != nil {
		return nil, err
	}
	next, ok := NextFulfillment(rec.Fulfillment)
	if !ok {
		return nil, fmt.Errorf("%w: fulfillment cannot advance from %q", ErrGuardViolation, rec.Fulfillment)
	}

	now := time.Now().UnixMilli()
	from := rec.Fulfillment
	rec.Fulfillment = next
	rec.UpdatedAtUnixMs = now

	if _, err := tx.ExecContext(ctx, `
UPDATE requests
SET fulfillment_status = ?, updated_at_unix_ms = ?
WHERE request_id = ?
`, string(rec.Fulfillment), now, rec.ID); err != nil {
		return nil, err
	}
	if err := insertAudit(ctx, tx, rec.ID, AuditEntry{AtUnixMs: now, Action: auditFulfillmentChanged(from, next), Actor: actor}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	rec.Audit, err = s.loadAudit(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SetDocumentPath records where the generated record document was written.
func (s *Store) SetDocumentPath(ctx context.Context, id string, path string, actor string) (*Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	path = strings.TrimSpace(path)
	actor = strings.TrimSpace(actor)
	if id == "" {
		return nil, fmt.Errorf("%w: request_id", ErrMissingField)
	}
	if path == "" {
		return nil, fmt.Errorf("%w: document_path", ErrMissingField)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := scanRecord(tx.QueryRowContext(ctx, selectRecord+`WHERE request_id = ?`, id))
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	rec.DocumentPath = path
	rec.UpdatedAtUnixMs = now

	if _, err := tx.ExecContext(ctx, `
UPDATE requests
SET document_path = ?, updated_at_unix_ms = ?
WHERE request_id = ?
`, path, now, rec.ID); err != nil {
		return nil, err
	}
	if err := insertAudit(ctx, tx, rec.ID, AuditEntry{AtUnixMs: now, Action: auditDocumentGenerated, Actor: actor}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	rec.Audit, err = s.loadAudit(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SaveTranscript overwrites the stored conversation transcript. The agent's
// in-memory history is authoritative during a session; the stored copy is a
// mirror written after each completed turn.
func (s *Store) SaveTranscript(ctx context.Context, id string, msgs []TranscriptMessage) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: request_id", ErrMissingField)
	}

	raw, err := encodeTranscript(msgs)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE requests
SET transcript_json = ?, updated_at_unix_ms = ?
WHERE request_id = ?
`, raw, time.Now().UnixMilli(), id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const selectRecord = `
SELECT
  request_id, username,
  student_name, email, student_id, school_college, program,
  phone, original_semester, requested_semester, circumstances,
  status, submitted_at_unix_ms,
  decided_at_unix_ms, reviewer, rationale,
  gown_size, cap_size,
  mailing_street, mailing_city, mailing_state, mailing_zip,
  fulfillment_status, document_path,
  transcript_json, created_at_unix_ms, updated_at_unix_ms
FROM requests
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var status, fulfillment, transcriptJSON string
	if err := row.Scan(
		&rec.ID,
		&rec.Username,
		&rec.StudentName,
		&rec.Email,
		&rec.StudentID,
		&rec.SchoolCollege,
		&rec.Program,
		&rec.Phone,
		&rec.OriginalSemester,
		&rec.RequestedSemester,
		&rec.Circumstances,
		&status,
		&rec.SubmittedAtUnixMs,
		&rec.DecidedAtUnixMs,
		&rec.Reviewer,
		&rec.Rationale,
		&rec.GownSize,
		&rec.CapSize,
		&rec.MailingStreet,
		&rec.MailingCity,
		&rec.MailingState,
		&rec.MailingZip,
		&fulfillment,
		&rec.DocumentPath,
		&transcriptJSON,
		&rec.CreatedAtUnixMs,
		&rec.UpdatedAtUnixMs,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec.Status = Status(status)
	rec.Fulfillment = FulfillmentStatus(fulfillment)
	if strings.TrimSpace(transcriptJSON) != "" {
		if err := json.Unmarshal([]byte(transcriptJSON), &rec.Transcript); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
	}
	return &rec, nil
}

func (s *Store) loadAudit(ctx context.Context, id string) ([]AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT at_unix_ms, action, actor
FROM request_audit
WHERE request_id = ?
ORDER BY id ASC
`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]AuditEntry, 0, 8)
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.AtUnixMs, &e.Action, &e.Actor); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertAudit(ctx context.Context, q execQuerier, id string, e AuditEntry) error {
	_, err := q.ExecContext(ctx, `
INSERT INTO request_audit(request_id, at_unix_ms, action, actor)
VALUES(?, ?, ?, ?)
`, id, e.AtUnixMs, e.Action, e.Actor)
	return err
}

func requireRequest(ctx context.Context, q execQuerier, id string) error {
	var one int
	if err := q.QueryRowContext(ctx, `SELECT 1 FROM requests WHERE request_id = ?`, id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func encodeTranscript(msgs []TranscriptMessage) (string, error) {
	if len(msgs) == 0 {
		return "", nil
	}
	b, err := json.Marshal(msgs)
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}
	return string(b), nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func initSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("nil db")
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=3000;`); err != nil {
		return fmt.Errorf("pragma busy_timeout: %w", err)
	}
	return migrateSchema(db)
}

func migrateSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("nil db")
	}
	const targetVersion = 1

	var v int
	if err := db.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return fmt.Errorf("pragma user_version: %w", err)
	}
	if v >= targetVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS requests (
  request_id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  student_name TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  student_id TEXT NOT NULL DEFAULT '',
  school_college TEXT NOT NULL DEFAULT '',
  program TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  original_semester TEXT NOT NULL DEFAULT '',
  requested_semester TEXT NOT NULL DEFAULT '',
  circumstances TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  submitted_at_unix_ms INTEGER NOT NULL,
  decided_at_unix_ms INTEGER NOT NULL DEFAULT 0,
  reviewer TEXT NOT NULL DEFAULT '',
  rationale TEXT NOT NULL DEFAULT '',
  gown_size TEXT NOT NULL DEFAULT '',
  cap_size TEXT NOT NULL DEFAULT '',
  mailing_street TEXT NOT NULL DEFAULT '',
  mailing_city TEXT NOT NULL DEFAULT '',
  mailing_state TEXT NOT NULL DEFAULT '',
  mailing_zip TEXT NOT NULL DEFAULT '',
  fulfillment_status TEXT NOT NULL DEFAULT '',
  document_path TEXT NOT NULL DEFAULT '',
  transcript_json TEXT NOT NULL DEFAULT '',
  created_at_unix_ms INTEGER NOT NULL,
  updated_at_unix_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_requests_username_created ON requests(username, created_at_unix_ms DESC);
CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);
CREATE UNIQUE INDEX IF NOT EXISTS idx_requests_one_active
  ON requests(username) WHERE status IN ('SUBMITTED', 'UNDER_REVIEW');

CREATE TABLE IF NOT EXISTS request_audit (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  request_id TEXT NOT NULL,
  at_unix_ms INTEGER NOT NULL,
  action TEXT NOT NULL,
  actor TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_request_audit_request ON request_audit(request_id, id ASC);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version=%d;`, targetVersion)); err != nil {
		return err
	}
	return tx.Commit()
}
