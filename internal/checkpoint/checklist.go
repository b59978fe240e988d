package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrDuplicateID is returned when a CheckPoint ID is registered twice.
var ErrDuplicateID = errors.New("duplicate checkpoint id")

const (
	reportHeader = "= Score Summary ="
	reportFooter = "END"
)

// CheckList is an append-only, ordered collection of CheckPoints. Registration
// order is report order.
type CheckList struct {
	entries []*CheckPoint
	byID    map[string]*CheckPoint
}

// NewCheckList returns an empty CheckList.
func NewCheckList() *CheckList {
	return &CheckList{byID: map[string]*CheckPoint{}}
}

// Register appends cp and returns it, so the caller can keep grading the same
// instance.
func (cl *CheckList) Register(cp *CheckPoint) (*CheckPoint, error) {
	if _, exists := cl.byID[cp.id]; exists {
		return nil, fmt.Errorf("registering %q: %w", cp.id, ErrDuplicateID)
	}
	cl.entries = append(cl.entries, cp)
	cl.byID[cp.id] = cp
	return cp, nil
}

// Add creates a CheckPoint and registers it.
func (cl *CheckList) Add(id, name string, max float64, opts ...Option) (*CheckPoint, error) {
	cp, err := New(id, name, max, opts...)
	if err != nil {
		return nil, err
	}
	return cl.Register(cp)
}

// Get returns the registered CheckPoint with the given ID.
func (cl *CheckList) Get(id string) (*CheckPoint, bool) {
	cp, ok := cl.byID[id]
	return cp, ok
}

// Entries returns the checkpoints in registration order. The slice is a copy;
// the checkpoints are not.
func (cl *CheckList) Entries() []*CheckPoint {
	out := make([]*CheckPoint, len(cl.entries))
	copy(out, cl.entries)
	return out
}

func (cl *CheckList) Len() int { return len(cl.entries) }

// TotalScore sums the current score of every entry, including ungraded and
// special ones.
func (cl *CheckList) TotalScore() float64 {
	total := 0.0
	for _, cp := range cl.entries {
		total += cp.score
	}
	return total
}

// TotalMax sums the maximum score of every entry.
func (cl *CheckList) TotalMax() float64 {
	total := 0.0
	for _, cp := range cl.entries {
		total += cp.max
	}
	return total
}

// Render writes the plain-text report: header, one line per checkpoint and the
// total line.
func (cl *CheckList) Render(w io.Writer) error {
	_, err := io.WriteString(w, cl.String())
	return err
}

func (cl *CheckList) String() string {
	var b strings.Builder
	b.WriteString(reportHeader + "\n")
	for _, cp := range cl.entries {
		b.WriteString(cp.String() + "\n")
	}
	fmt.Fprintf(&b, "Total: %s/%s\n", FormatScore(cl.TotalScore()), FormatScore(cl.TotalMax()))
	b.WriteString("\n" + reportFooter + "\n")
	return b.String()
}
