// Package banner resolves student records from the institution's Banner
// system. The production build talks to Banner over its API gateway; this
// build ships a fixture-backed directory loaded from a YAML roster so the
// agent can run against a known set of students.
package banner

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no student record exists for a username.
var ErrNotFound = errors.New("no student record found")

// Profile is the slice of a Banner student record the commencement workflow
// needs.
type Profile struct {
	Username      string `yaml:"username" json:"username"`
	Name          string `yaml:"name" json:"name"`
	Email         string `yaml:"email" json:"email"`
	StudentID     string `yaml:"student_id" json:"student_id"`
	SchoolCollege string `yaml:"school_college" json:"school_college"`
	Program       string `yaml:"program" json:"program"`
}

func (p *Profile) normalize() {
	if p == nil {
		return
	}
	p.Username = strings.ToLower(strings.TrimSpace(p.Username))
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.StudentID = strings.TrimSpace(p.StudentID)
	p.SchoolCollege = strings.TrimSpace(p.SchoolCollege)
	p.Program = strings.TrimSpace(p.Program)
}

func (p *Profile) validate() error {
	if p == nil || p.Username == "" {
		return errors.New("profile missing username")
	}
	if p.Name == "" || p.Email == "" || p.StudentID == "" {
		return fmt.Errorf("profile %s missing identity fields", p.Username)
	}
	return nil
}

// Directory looks up student records by SSO username.
type Directory interface {
	Lookup(username string) (*Profile, error)
}

// FixtureDirectory is an in-memory Directory keyed by lowercase username.
type FixtureDirectory struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewFixtureDirectory returns a directory seeded with the default roster.
func NewFixtureDirectory() *FixtureDirectory {
	d := &FixtureDirectory{profiles: make(map[string]Profile)}
	for _, p := range defaultRoster {
		d.profiles[p.Username] = p
	}
	return d
}

// defaultRoster mirrors the records provisioned in the Banner test instance.
var defaultRoster = []Profile{
	{
		Username:      "sjbosso",
		Name:          "Steven Bosso",
		Email:         "sjbosso@dons.usfca.edu",
		StudentID:     "20481234",
		SchoolCollege: "College of Arts and Sciences",
		Program:       "Computer Science",
	},
	{
		Username:      "jdoe",
		Name:          "Jane Doe",
		Email:         "jdoe@dons.usfca.edu",
		StudentID:     "20487654",
		SchoolCollege: "School of Management",
		Program:       "Business Administration",
	},
}

// LoadDirectory reads a YAML roster and returns a directory over it.
//
// Format:
//
//	students:
//	  - username: sjbosso
//	    name: Steven Bosso
//	    ...
func LoadDirectory(path string) (*FixtureDirectory, error) {
	raw, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return nil, err
	}
	var file struct {
		Students []Profile `yaml:"students"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	if len(file.Students) == 0 {
		return nil, errors.New("roster has no students")
	}

	d := &FixtureDirectory{profiles: make(map[string]Profile, len(file.Students))}
	for i := range file.Students {
		p := file.Students[i]
		p.normalize()
		if err := p.validate(); err != nil {
			return nil, err
		}
		if _, dup := d.profiles[p.Username]; dup {
			return nil, fmt.Errorf("duplicate roster entry for %s", p.Username)
		}
		d.profiles[p.Username] = p
	}
	return d, nil
}

func (d *FixtureDirectory) Lookup(username string) (*Profile, error) {
	if d == nil {
		return nil, ErrNotFound
	}
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, ErrNotFound
	}

	d.mu.RLock()
	p, ok := d.profiles[username]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, username)
	}
	out := p
	return &out, nil
}

// Usernames returns the roster usernames in sorted order.
func (d *FixtureDirectory) Usernames() []string {
	if d == nil {
		return nil
	}
	d.mu.RLock()
	out := make([]string, 0, len(d.profiles))
	for u := range d.profiles {
		out = append(out, u)
	}
	d.mu.RUnlock()
	sort.Strings(out)
	return out
}
