package review

import (
	"fmt"
	"strings"
	"time"

	"github.com/usfca-its/commencement-agent/internal/request"
)

const ruleWidth = 65

// SummaryLine renders one queue entry for the worklist view.
func SummaryLine(rec *request.Record, index int) string {
	if rec == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "  [%d] %s (%s) - %s, %s\n",
		index, rec.StudentName, rec.StudentID, rec.Program, rec.SchoolCollege)
	fmt.Fprintf(&b, "      Status: %s  |  Submitted: %s", rec.Status, stamp(rec.SubmittedAtUnixMs))
	return b.String()
}

// Detail renders the full review view of one request.
func Detail(rec *request.Record) string {
	if rec == nil {
		return ""
	}
	rule := strings.Repeat("-", ruleWidth)
	var b strings.Builder
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "  REQUEST DETAIL - %s\n", rec.ID)
	b.WriteString(rule + "\n\n")

	field(&b, "Student Name", rec.StudentName)
	field(&b, "Student ID", rec.StudentID)
	field(&b, "USF Email", rec.Email)
	field(&b, "USF Username", rec.Username)
	field(&b, "School/College", rec.SchoolCollege)
	field(&b, "Program", rec.Program)
	field(&b, "Phone", rec.Phone)
	b.WriteString("\n")
	field(&b, "Original Ceremony", rec.OriginalSemester)
	field(&b, "Requested Ceremony", rec.RequestedSemester)
	b.WriteString("\n")
	b.WriteString("  Extenuating Circumstances:\n")
	for _, line := range wrap(rec.Circumstances, ruleWidth-6) {
		b.WriteString("    " + line + "\n")
	}
	b.WriteString("\n")
	field(&b, "Status", string(rec.Status))
	field(&b, "Submitted", stamp(rec.SubmittedAtUnixMs))

	if rec.Decided() {
		b.WriteString("\n")
		field(&b, "Decision", string(rec.Status))
		field(&b, "Reviewer", rec.Reviewer)
		field(&b, "Rationale", rec.Rationale)
		field(&b, "Decided", stamp(rec.DecidedAtUnixMs))
	}
	if rec.GownSize != "" {
		b.WriteString("\n")
		field(&b, "Gown Size", rec.GownSize)
		field(&b, "Cap Size", rec.CapSize)
		field(&b, "Mailing Address", rec.MailingStreet)
		field(&b, "", fmt.Sprintf("%s, %s %s", rec.MailingCity, rec.MailingState, rec.MailingZip))
		field(&b, "Fulfillment Status", string(rec.Fulfillment))
	}
	b.WriteString("\n" + rule)
	return b.String()
}

func field(b *strings.Builder, label string, value string) {
	if strings.TrimSpace(value) == "" {
		value = "N/A"
	}
	if label != "" {
		label += ":"
	}
	fmt.Fprintf(b, "  %-23s %s\n", label, value)
}

func stamp(unixMs int64) string {
	if unixMs <= 0 {
		return "N/A"
	}
	return time.UnixMilli(unixMs).UTC().Format("2006-01-02 15:04:05")
}

func wrap(s string, width int) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{"N/A"}
	}
	words := strings.Fields(s)
	lines := make([]string, 0, 4)
	line := ""
	for _, word := range words {
		if line == "" {
			line = word
			continue
		}
		if len(line)+1+len(word) > width {
			lines = append(lines, line)
			line = word
			continue
		}
		line += " " + word
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}
