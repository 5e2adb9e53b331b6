// Package document renders the official record of a commencement exception
// request: student information, request details, the registrar decision,
// fulfillment, the audit trail, and the conversation transcript.
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/usfca-its/commencement-agent/internal/request"
)

const (
	lineWidth    = 78
	maxTurnRunes = 2000
)

// Render formats the record document as text.
func Render(rec *request.Record) (string, error) {
	if rec == nil {
		return "", errors.New("nil record")
	}

	var b strings.Builder
	rule := strings.Repeat("=", lineWidth)
	thin := strings.Repeat("-", lineWidth)

	b.WriteString(rule + "\n")
	b.WriteString(center("UNIVERSITY OF SAN FRANCISCO") + "\n")
	b.WriteString(center("Office of the Registrar") + "\n")
	b.WriteString(center("Commencement Exception Request") + "\n")
	b.WriteString(center("Request ID: "+rec.ID) + "\n")
	b.WriteString(rule + "\n")

	section(&b, thin, "Student Information")
	field(&b, "Student Name", rec.StudentName)
	field(&b, "USF Username", rec.Username)
	field(&b, "USF Email", rec.Email)
	field(&b, "Student ID", rec.StudentID)
	field(&b, "School/College", rec.SchoolCollege)
	field(&b, "Degree Program", rec.Program)
	field(&b, "Phone Number", rec.Phone)

	section(&b, thin, "Exception Request Details")
	field(&b, "Original Ceremony", rec.OriginalSemester)
	field(&b, "Requested Ceremony", rec.RequestedSemester)
	multiline(&b, "Extenuating Circumstances", rec.Circumstances)
	field(&b, "Submitted", stamp(rec.SubmittedAtUnixMs))

	section(&b, thin, "Registrar Decision")
	field(&b, "Decision", string(rec.Status))
	field(&b, "Reviewer", orElse(rec.Reviewer, "Pending"))
	multiline(&b, "Rationale", orElse(rec.Rationale, "Pending review"))
	field(&b, "Decision Date", orElse(stamp(rec.DecidedAtUnixMs), "Pending"))

	if rec.Status == request.StatusApproved {
		section(&b, thin, "Cap and Gown Fulfillment")
		if strings.TrimSpace(rec.GownSize) != "" {
			field(&b, "Gown Size", rec.GownSize)
			field(&b, "Cap Size", rec.CapSize)
			field(&b, "Mailing Address", fmt.Sprintf("%s, %s, %s %s",
				rec.MailingStreet, rec.MailingCity, rec.MailingState, rec.MailingZip))
			field(&b, "Fulfillment Status", orElse(string(rec.Fulfillment), "N/A"))
		} else {
			b.WriteString("    Awaiting student fulfillment information.\n")
		}
	}

	section(&b, thin, "Audit Trail")
	if len(rec.Audit) == 0 {
		b.WriteString("    No audit events recorded.\n")
	} else {
		for _, e := range rec.Audit {
			fmt.Fprintf(&b, "    %s  %-45s %s\n", stamp(e.AtUnixMs), e.Action, e.Actor)
		}
	}

	if len(rec.Transcript) > 0 {
		section(&b, thin, "Conversation Transcript")
		for _, m := range rec.Transcript {
			content := strings.TrimSpace(m.Content)
			if content == "" {
				continue
			}
			fmt.Fprintf(&b, "[%s]\n%s\n\n", strings.ToUpper(m.Role), truncateRunes(content, maxTurnRunes))
		}
	}

	b.WriteString(thin + "\n")
	b.WriteString("CONFIDENTIAL - This document contains protected student education records (FERPA)\n")
	fmt.Fprintf(&b, "Generated %s\n", time.Now().UTC().Format("January 02, 2006 at 3:04 PM UTC"))
	return b.String(), nil
}

// Write renders the record and writes it under outputDir. The filename embeds
// the student id and a request id prefix so regenerations overwrite the same
// file.
func Write(rec *request.Record, outputDir string) (string, error) {
	text, err := Render(rec)
	if err != nil {
		return "", err
	}
	outputDir = strings.TrimSpace(outputDir)
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0o700); err != nil {
		return "", err
	}
	shortID := rec.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	name := fmt.Sprintf("commencement_exception_%s_%s.txt", rec.StudentID, shortID)
	path := filepath.Join(outputDir, name)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0o600); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return path, nil
}

func section(b *strings.Builder, thin string, title string) {
	b.WriteString("\n" + title + "\n" + thin + "\n")
}

func field(b *strings.Builder, label string, value string) {
	fmt.Fprintf(b, "%24s:  %s\n", label, orElse(value, "N/A"))
}

func multiline(b *strings.Builder, label string, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		field(b, label, "N/A")
		return
	}
	fmt.Fprintf(b, "%24s:\n", label)
	for _, line := range wrap(value, lineWidth-8) {
		b.WriteString("        " + line + "\n")
	}
}

func center(s string) string {
	if len(s) >= lineWidth {
		return s
	}
	pad := (lineWidth - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}

func orElse(v string, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func stamp(unixMs int64) string {
	if unixMs <= 0 {
		return ""
	}
	return time.UnixMilli(unixMs).UTC().Format("2006-01-02 15:04:05")
}

func wrap(s string, width int) []string {
	if width <= 0 {
		return []string{s}
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	lines := make([]string, 0, 4)
	cur := words[0]
	for _, w := range words[1:] {
		if len(cur)+1+len(w) > width {
			lines = append(lines, cur)
			cur = w
			continue
		}
		cur += " " + w
	}
	return append(lines, cur)
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n >= max {
			return strings.TrimSpace(s[:i])
		}
		n++
	}
	return s
}
