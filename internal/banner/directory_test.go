package banner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFixtureDirectory_Lookup(t *testing.T) {
	t.Parallel()

	d := NewFixtureDirectory()

	p, err := d.Lookup("sjbosso")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.Name != "Steven Bosso" || p.Program != "Computer Science" {
		t.Fatalf("profile=%+v", p)
	}

	// Usernames are matched case-insensitively with surrounding space ignored.
	if _, err := d.Lookup("  SJBosso "); err != nil {
		t.Fatalf("Lookup normalized: %v", err)
	}

	if _, err := d.Lookup("ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup ghost: err=%v, want ErrNotFound", err)
	}
	if _, err := d.Lookup(""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup empty: err=%v, want ErrNotFound", err)
	}
}

func TestLoadDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "roster.yaml")
	roster := `students:
  - username: AMartin
    name: Ana Martin
    email: amartin@dons.usfca.edu
    student_id: "20489911"
    school_college: School of Nursing and Health Professions
    program: Nursing
`
	if err := os.WriteFile(path, []byte(roster), 0o600); err != nil {
		t.Fatalf("write roster: %v", err)
	}

	d, err := LoadDirectory(path)
	if err != nil {
		t.Fatalf("LoadDirectory: %v", err)
	}
	p, err := d.Lookup("amartin")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.Name != "Ana Martin" || p.StudentID != "20489911" {
		t.Fatalf("profile=%+v", p)
	}
}

func TestLoadDirectory_RejectsBadRosters(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("students: []\n"), 0o600); err != nil {
		t.Fatalf("write empty roster: %v", err)
	}
	if _, err := LoadDirectory(empty); err == nil {
		t.Fatalf("expected error for empty roster")
	}

	missing := filepath.Join(dir, "missing.yaml")
	if err := os.WriteFile(missing, []byte("students:\n  - username: x\n"), 0o600); err != nil {
		t.Fatalf("write incomplete roster: %v", err)
	}
	if _, err := LoadDirectory(missing); err == nil {
		t.Fatalf("expected error for incomplete profile")
	}

	dup := filepath.Join(dir, "dup.yaml")
	entry := "  - username: sjbosso\n    name: Steven Bosso\n    email: s@x\n    student_id: \"1\"\n    school_college: CAS\n    program: CS\n"
	if err := os.WriteFile(dup, []byte("students:\n"+entry+entry), 0o600); err != nil {
		t.Fatalf("write dup roster: %v", err)
	}
	if _, err := LoadDirectory(dup); err == nil {
		t.Fatalf("expected error for duplicate usernames")
	}
}
