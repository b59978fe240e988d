// Package reporting renders grading reports as plain text, tables, JSON,
// JUnit XML and Markdown.
package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/spboyer/bagcheck/internal/checkpoint"
	"github.com/spboyer/bagcheck/internal/evaluate"
)

// Format selects a report renderer.
type Format string

const (
	FormatText     Format = "text"
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatJUnit    Format = "junit"
	FormatMarkdown Format = "markdown"
)

// Formats lists every supported format.
var Formats = []Format{FormatText, FormatTable, FormatJSON, FormatJUnit, FormatMarkdown}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Formats, f) {
		return f, nil
	}
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return "", fmt.Errorf("unknown format %q (want one of %s)", s, strings.Join(names, ", "))
}

// Write renders report to w in the given format.
func Write(w io.Writer, format Format, report *evaluate.Report) error {
	switch format {
	case "", FormatText:
		return report.List.Render(w)
	case FormatTable:
		return WriteTable(w, report)
	case FormatJSON:
		return WriteJSON(w, report)
	case FormatJUnit:
		return WriteJUnit(w, report)
	case FormatMarkdown:
		return WriteMarkdown(w, report)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// WriteFile writes report in format to the file at path, creating missing
// parent directories.
func WriteFile(path string, format Format, report *evaluate.Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Write(f, format, report); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return f.Close()
}

// JSONReport is the JSON document written for a report.
type JSONReport struct {
	RunID       string                   `json:"run_id"`
	Root        string                   `json:"root"`
	StartedAt   time.Time                `json:"started_at"`
	FinishedAt  time.Time                `json:"finished_at"`
	Halted      bool                     `json:"halted"`
	HaltReason  string                   `json:"halt_reason,omitempty"`
	TotalScore  float64                  `json:"total_score"`
	TotalMax    float64                  `json:"total_max"`
	Checkpoints []*checkpoint.CheckPoint `json:"checkpoints"`
}

// WriteJSON writes report as indented JSON.
func WriteJSON(w io.Writer, report *evaluate.Report) error {
	doc := JSONReport{
		RunID:       report.RunID,
		Root:        report.Root,
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
		Halted:      report.Halted,
		HaltReason:  report.HaltReason,
		TotalScore:  report.List.TotalScore(),
		TotalMax:    report.List.TotalMax(),
		Checkpoints: report.List.Entries(),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

const (
	colID     = 26
	colScore  = 7
	maxName   = 60
	minName   = 20
	tableGaps = 3 * 2
)

// WriteTable renders report as an aligned terminal table.
func WriteTable(w io.Writer, report *evaluate.Report) error {
	entries := report.List.Entries()

	nameWidth := minName
	for _, cp := range entries {
		nameWidth = max(nameWidth, runewidth.StringWidth(cp.Name()))
	}
	nameWidth = min(nameWidth, maxName)
	totalWidth := colID + colScore + nameWidth + colScore + tableGaps

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", strings.Repeat("═", totalWidth))
	fmt.Fprintf(&b, " SCORE SUMMARY\n")
	fmt.Fprintf(&b, "%s\n\n", strings.Repeat("═", totalWidth))
	fmt.Fprintf(&b, "%s  %s  %s  %s\n",
		padRight("Checkpoint", colID),
		padRight("Score", colScore),
		padRight("Description", nameWidth),
		"Result")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("─", totalWidth))

	for _, cp := range entries {
		fmt.Fprintf(&b, "%s  %s  %s  %s\n",
			padRight(cp.ID(), colID),
			padRight(shownScore(cp)+"/"+checkpoint.FormatScore(cp.Max()), colScore),
			padRight(truncateName(cp.Name(), nameWidth), nameWidth),
			InterpretCheckPoint(cp))
	}

	fmt.Fprintf(&b, "%s\n", strings.Repeat("─", totalWidth))
	fmt.Fprintf(&b, "%s  %s\n",
		padRight("Total", colID),
		checkpoint.FormatScore(report.List.TotalScore())+"/"+checkpoint.FormatScore(report.List.TotalMax()))
	if report.Halted {
		fmt.Fprintf(&b, "\nHalted: %s\n", report.HaltReason)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteMarkdown renders report as a Markdown table suitable for PR comments.
func WriteMarkdown(w io.Writer, report *evaluate.Report) error {
	var b strings.Builder
	score, total := report.List.TotalScore(), report.List.TotalMax()

	b.WriteString("## Score Summary\n\n")
	fmt.Fprintf(&b, "**Total:** %s/%s (%s)\n\n", checkpoint.FormatScore(score), checkpoint.FormatScore(total), InterpretScore(score, total))
	if report.Halted {
		fmt.Fprintf(&b, "> **Halted:** %s\n\n", escapeMarkdown(report.HaltReason))
	}
	b.WriteString("| Checkpoint | Score | Description | Result |\n")
	b.WriteString("|---|---:|---|---|\n")
	for _, cp := range report.List.Entries() {
		fmt.Fprintf(&b, "| `%s` | %s/%s | %s | %s |\n",
			cp.ID(), shownScore(cp), checkpoint.FormatScore(cp.Max()),
			escapeMarkdown(cp.Name()), InterpretCheckPoint(cp))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func shownScore(cp *checkpoint.CheckPoint) string {
	switch cp.Status() {
	case checkpoint.StatusUngraded:
		return checkpoint.CodeNotTested
	case checkpoint.StatusSpecial:
		return cp.Code()
	default:
		return checkpoint.FormatScore(cp.Score())
	}
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

// truncateName shortens a name to maxLen runes, replacing the last rune with "…" if needed.
func truncateName(name string, maxLen int) string {
	runes := []rune(name)
	if len(runes) <= maxLen {
		return name
	}
	return string(runes[:maxLen-1]) + "…"
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
