package reporting

import (
	"fmt"
	"strings"

	"github.com/spboyer/bagcheck/internal/checkpoint"
	"github.com/spboyer/bagcheck/internal/evaluate"
)

// InterpretScore returns a plain-language label for a score out of max.
func InterpretScore(score, max float64) string {
	if max <= 0 {
		return "No points available"
	}
	pct := score / max * 100
	switch {
	case pct > 90:
		return "Excellent (>90%)"
	case pct >= 70:
		return "Good (70-90%)"
	case pct >= 50:
		return "Needs Work (50-70%)"
	default:
		return "Poor (<50%)"
	}
}

// InterpretCheckPoint explains a single checkpoint outcome.
func InterpretCheckPoint(cp *checkpoint.CheckPoint) string {
	switch cp.Status() {
	case checkpoint.StatusUngraded:
		return "not tested"
	case checkpoint.StatusSpecial:
		if cp.Code() == checkpoint.CodeException {
			return "an exception occurred"
		}
		return "flagged " + cp.Code()
	}
	switch {
	case cp.Score() >= cp.Max():
		return "full marks"
	case cp.Score() <= cp.Min():
		return "no marks"
	default:
		return "partial marks"
	}
}

// Tally counts checkpoints per outcome.
type Tally struct {
	Full, Partial, Zero, Flagged, Ungraded int
}

// Count tallies the checkpoints of list.
func Count(list *checkpoint.CheckList) Tally {
	var t Tally
	for _, cp := range list.Entries() {
		switch cp.Status() {
		case checkpoint.StatusUngraded:
			t.Ungraded++
		case checkpoint.StatusSpecial:
			t.Flagged++
		default:
			switch {
			case cp.Score() >= cp.Max():
				t.Full++
			case cp.Score() <= cp.Min():
				t.Zero++
			default:
				t.Partial++
			}
		}
	}
	return t
}

// FormatSummaryReport produces a plain-language summary of a report.
func FormatSummaryReport(report *evaluate.Report) string {
	var b strings.Builder

	score, max := report.List.TotalScore(), report.List.TotalMax()
	t := Count(report.List)

	b.WriteString("=== Interpretation ===\n\n")
	fmt.Fprintf(&b, "Overall Score: %s/%s, %s\n", checkpoint.FormatScore(score), checkpoint.FormatScore(max), InterpretScore(score, max))
	fmt.Fprintf(&b, "Checkpoints:   %d full, %d partial, %d zero, %d flagged, %d not tested\n",
		t.Full, t.Partial, t.Zero, t.Flagged, t.Ungraded)
	if report.Halted {
		fmt.Fprintf(&b, "Halted:        %s\n", report.HaltReason)
	}

	return b.String()
}
