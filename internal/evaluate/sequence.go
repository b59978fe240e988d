// Package evaluate runs the ordered grading steps against a submission and
// collects their checkpoints into a report.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/spboyer/bagcheck/internal/checkpoint"
	"github.com/spboyer/bagcheck/internal/gitrepo"
	"github.com/spboyer/bagcheck/internal/identity"
	"github.com/spboyer/bagcheck/internal/lint"
	"github.com/spboyer/bagcheck/internal/projectconfig"
	"github.com/spboyer/bagcheck/internal/subject"
	"github.com/spboyer/bagcheck/internal/utils"
)

//go:generate go tool mockgen -source=sequence.go -destination=mocks_test.go -package=evaluate

// Inspector answers questions about the submission's git repository.
type Inspector interface {
	IsValidRepository(ctx context.Context, dir string) (bool, error)
	ListBranches(ctx context.Context, patterns ...string) ([]string, error)
	Checkout(ctx context.Context, branch string) error
	CommitLog(ctx context.Context) ([]gitrepo.Commit, error)
}

// IdentityReader reads the lines of the identity file.
type IdentityReader interface {
	ReadLines(path string) ([]string, error)
}

// Scorer rates the code quality of a file on a 0 to 10 scale.
type Scorer interface {
	Score(ctx context.Context, target string) (float64, error)
}

// SubjectLoader loads the container implementation found at path.
type SubjectLoader func(path string) (subject.Factory, error)

// Signal tells the driver loop whether to run the next step.
type Signal int

const (
	Continue Signal = iota
	Halt
)

// Step is one stage of the sequence. A returned error is a bug in the grading
// rules, not in the submission, and aborts the run.
type Step struct {
	Name string
	Run  func(ctx context.Context, st *State) (Signal, error)
}

// State is carried from step to step during one run.
type State struct {
	List *checkpoint.CheckList

	Identity       *identity.Identity
	IdentityFailed bool

	Factory            subject.Factory
	SubjectUnavailable bool
	// AddPassed gates every behavioural check after adding and counting.
	AddPassed bool

	PrimaryBranch string
	HaltReason    string

	hints io.Writer
}

// Hint writes a student-facing line next to the report.
func (st *State) Hint(format string, args ...any) {
	fmt.Fprintf(st.hints, format+"\n", args...)
}

func (st *State) halt(format string, args ...any) Signal {
	st.HaltReason = fmt.Sprintf(format, args...)
	st.Hint("ERROR: %s", st.HaltReason)
	return Halt
}

func (st *State) add(id, name string, max float64) (*checkpoint.CheckPoint, error) {
	cp, err := st.List.Add(id, name, max)
	if err != nil {
		return nil, fmt.Errorf("registering %s: %w", id, err)
	}
	return cp, nil
}

// Report is the outcome of one run.
type Report struct {
	RunID      string
	Root       string
	StartedAt  time.Time
	FinishedAt time.Time
	List       *checkpoint.CheckList
	Halted     bool
	HaltReason string
}

// Sequence grades one submission.
type Sequence struct {
	root     string
	cfg      *projectconfig.ProjectConfig
	hints    io.Writer
	progress func(step string)
	steps    []Step
	checks   *identity.Validator

	inspector   Inspector
	identity    IdentityReader
	scorer      Scorer
	loadSubject SubjectLoader
}

// Option configures a Sequence.
type Option func(*Sequence)

// WithInspector replaces the git CLI inspector.
func WithInspector(in Inspector) Option {
	return func(s *Sequence) {
		s.inspector = in
	}
}

// WithIdentityReader replaces the identity file reader.
func WithIdentityReader(r IdentityReader) Option {
	return func(s *Sequence) {
		s.identity = r
	}
}

// WithScorer replaces the scorer configured under lint.
func WithScorer(sc Scorer) Option {
	return func(s *Sequence) {
		s.scorer = sc
	}
}

// WithSubjectLoader replaces interpretation of the submitted source file, for
// example with a compiled reference implementation.
func WithSubjectLoader(l SubjectLoader) Option {
	return func(s *Sequence) {
		s.loadSubject = l
	}
}

// WithHints sets where student-facing hints are written. Hints are discarded
// by default.
func WithHints(w io.Writer) Option {
	return func(s *Sequence) {
		s.hints = w
	}
}

// WithProgress registers a callback invoked with each step's name before the
// step runs.
func WithProgress(fn func(step string)) Option {
	return func(s *Sequence) {
		s.progress = fn
	}
}

// WithSteps replaces the default steps.
func WithSteps(steps ...Step) Option {
	return func(s *Sequence) {
		s.steps = steps
	}
}

// New builds a Sequence grading the submission at root. A nil cfg means
// defaults.
func New(root string, cfg *projectconfig.ProjectConfig, opts ...Option) (*Sequence, error) {
	if cfg == nil {
		cfg = projectconfig.New()
	}
	s := &Sequence{
		root:   root,
		cfg:    cfg,
		hints:  io.Discard,
		checks: identity.NewValidator(),
	}
	for _, o := range opts {
		o(s)
	}

	if s.inspector == nil {
		s.inspector = gitrepo.New(root)
	}
	if s.identity == nil {
		s.identity = identity.Reader{}
	}
	if s.scorer == nil {
		sc, err := lint.Create(lint.Kind(cfg.Lint.Kind), cfg.Lint.Params)
		if err != nil {
			return nil, fmt.Errorf("creating %s scorer: %w", cfg.Lint.Kind, err)
		}
		s.scorer = sc
	}
	if s.loadSubject == nil {
		srcOpts := subject.SourceOptions{
			TypeName:    cfg.Subject.Type,
			Constructor: cfg.Subject.Constructor,
			CallTimeout: time.Duration(cfg.Subject.CallTimeout) * time.Second,
		}
		s.loadSubject = func(path string) (subject.Factory, error) {
			return subject.LoadSource(path, srcOpts)
		}
	}
	if s.steps == nil {
		s.steps = s.DefaultSteps()
	}
	return s, nil
}

// DefaultSteps returns the grading steps in report order.
func (s *Sequence) DefaultSteps() []Step {
	return []Step{
		{Name: "repository", Run: s.checkRepository},
		{Name: "branch", Run: s.checkBranch},
		{Name: "files", Run: s.checkFiles},
		{Name: "identity", Run: s.checkIdentity},
		{Name: "structure", Run: s.checkStructure},
		{Name: "add and count", Run: s.checkAddCount},
		{Name: "remove and weight", Run: s.checkRemoveWeight},
		{Name: "items", Run: s.checkItems},
		{Name: "dump", Run: s.checkDump},
		{Name: "lint", Run: s.checkLint},
		{Name: "history", Run: s.checkHistory},
	}
}

// Run executes the steps in order. The report is returned even when a step
// halts the run or fails; in the latter case it holds what was graded so far.
func (s *Sequence) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		Root:      s.root,
		StartedAt: time.Now(),
		List:      checkpoint.NewCheckList(),
	}
	st := &State{List: report.List, hints: s.hints}

	slog.Debug("Starting evaluation", "run", report.RunID, "root", s.root)

	var runErr error
	for _, step := range s.steps {
		slog.Debug("Running step", "step", step.Name)
		if s.progress != nil {
			s.progress(step.Name)
		}
		sig, err := step.Run(ctx, st)
		if err != nil {
			runErr = fmt.Errorf("step %q: %w", step.Name, err)
			break
		}
		if sig == Halt {
			report.Halted = true
			report.HaltReason = st.HaltReason
			slog.Debug("Evaluation halted", "step", step.Name, "reason", st.HaltReason)
			break
		}
	}

	report.FinishedAt = time.Now()
	for _, cp := range report.List.Entries() {
		utils.CheckPointToSlog(cp)
	}
	return report, runErr
}

// IsBoundaryViolation reports whether err comes from grading outside a
// checkpoint's bounds or a duplicate registration.
func IsBoundaryViolation(err error) bool {
	return errors.Is(err, checkpoint.ErrOutOfBounds) ||
		errors.Is(err, checkpoint.ErrInvalidBounds) ||
		errors.Is(err, checkpoint.ErrDuplicateID)
}
