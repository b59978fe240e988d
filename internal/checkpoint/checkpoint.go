// Package checkpoint models a single graded unit (CheckPoint) and the ordered
// collection of them that forms a score report (CheckList).
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

var (
	// ErrInvalidBounds is returned when a CheckPoint is created with max < min.
	ErrInvalidBounds = errors.New("invalid score bounds")
	// ErrOutOfBounds is returned when a score outside [min, max] is assigned.
	ErrOutOfBounds = errors.New("score out of bounds")
)

// Status is the grading state of a CheckPoint.
type Status int

const (
	// StatusUngraded is the initial state. It renders as [CodeNotTested].
	StatusUngraded Status = iota
	// StatusGraded means the score is authoritative.
	StatusGraded
	// StatusSpecial means grading could not be completed normally. The score
	// is stale and the CheckPoint renders its code instead.
	StatusSpecial
)

const (
	// CodeNotTested is the marker rendered for ungraded checkpoints.
	CodeNotTested = "N"
	// CodeException is the code set by [CheckPoint.FlagException].
	CodeException = "E"
)

func (s Status) String() string {
	switch s {
	case StatusUngraded:
		return "ungraded"
	case StatusGraded:
		return "graded"
	case StatusSpecial:
		return "special"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// CheckPoint is one gradable unit with a bounded score.
type CheckPoint struct {
	id     string
	name   string
	score  float64
	max    float64
	min    float64
	status Status
	code   string
}

// Option configures a CheckPoint at construction.
type Option func(*CheckPoint)

// WithMin sets the inclusive lower bound. The default is 0.
func WithMin(min float64) Option {
	return func(cp *CheckPoint) { cp.min = min }
}

// New creates an ungraded CheckPoint with a score of 0.
func New(id, name string, max float64, opts ...Option) (*CheckPoint, error) {
	cp := &CheckPoint{id: id, name: name, max: max}
	for _, opt := range opts {
		opt(cp)
	}
	if !(cp.min <= cp.max) {
		return nil, fmt.Errorf("checkpoint %q: bounds [%s, %s]: %w", id, FormatScore(cp.min), FormatScore(cp.max), ErrInvalidBounds)
	}
	return cp, nil
}

func (cp *CheckPoint) ID() string     { return cp.id }
func (cp *CheckPoint) Name() string   { return cp.name }
func (cp *CheckPoint) Score() float64 { return cp.score }
func (cp *CheckPoint) Max() float64   { return cp.max }
func (cp *CheckPoint) Min() float64   { return cp.min }
func (cp *CheckPoint) Status() Status { return cp.status }

// Code returns the special code, or "" unless the status is [StatusSpecial].
func (cp *CheckPoint) Code() string {
	if cp.status != StatusSpecial {
		return ""
	}
	return cp.code
}

type gradeOptions struct {
	keepFlag bool
}

// GradeOption modifies a grade operation.
type GradeOption func(*gradeOptions)

// KeepFlag records the score without leaving the current status. It's used when
// a number must be kept for bookkeeping but the checkpoint should still render
// as exceptional (or not tested).
func KeepFlag() GradeOption {
	return func(o *gradeOptions) { o.keepFlag = true }
}

// GradeFull awards full credit.
func (cp *CheckPoint) GradeFull(opts ...GradeOption) {
	cp.apply(cp.max, opts)
}

// Grade sets the score. Scores outside [Min, Max] fail with [ErrOutOfBounds]
// and leave the checkpoint unchanged.
func (cp *CheckPoint) Grade(score float64, opts ...GradeOption) error {
	if math.IsNaN(score) || score > cp.max || score < cp.min {
		return fmt.Errorf("checkpoint %q: score %s not in [%s, %s]: %w",
			cp.id, FormatScore(score), FormatScore(cp.min), FormatScore(cp.max), ErrOutOfBounds)
	}
	cp.apply(score, opts)
	return nil
}

func (cp *CheckPoint) apply(score float64, opts []GradeOption) {
	var o gradeOptions
	for _, opt := range opts {
		opt(&o)
	}
	cp.score = score
	if !o.keepFlag {
		cp.status = StatusGraded
		cp.code = ""
	}
}

// Flag marks the checkpoint special without touching the score.
func (cp *CheckPoint) Flag(code string) {
	cp.status = StatusSpecial
	cp.code = code
}

// FlagException is shorthand for Flag([CodeException]).
func (cp *CheckPoint) FlagException() {
	cp.Flag(CodeException)
}

// String renders "{score}/{max}: {name}", substituting the special code or the
// not-tested marker for the score when the checkpoint isn't graded.
func (cp *CheckPoint) String() string {
	var shown string
	switch cp.status {
	case StatusUngraded:
		shown = CodeNotTested
	case StatusSpecial:
		shown = cp.code
	default:
		shown = FormatScore(cp.score)
	}
	return fmt.Sprintf("%s/%s: %s", shown, FormatScore(cp.max), cp.name)
}

type checkPointJSON struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Max    float64 `json:"max"`
	Min    float64 `json:"min"`
	Status string  `json:"status"`
	Code   string  `json:"code,omitempty"`
}

func (cp *CheckPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(checkPointJSON{
		ID:     cp.id,
		Name:   cp.name,
		Score:  cp.score,
		Max:    cp.max,
		Min:    cp.min,
		Status: cp.status.String(),
		Code:   cp.Code(),
	})
}

// FormatScore renders a score with the shortest exact decimal representation.
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
