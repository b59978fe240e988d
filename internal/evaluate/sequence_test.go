package evaluate

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/spboyer/bagcheck/internal/bag"
	"github.com/spboyer/bagcheck/internal/checkpoint"
	"github.com/spboyer/bagcheck/internal/failures"
	"github.com/spboyer/bagcheck/internal/gitrepo"
	"github.com/spboyer/bagcheck/internal/projectconfig"
	"github.com/spboyer/bagcheck/internal/subject"
)

var janeLines = []string{"Jane Doe", "jane@x.com", "6512345678"}

var janeLog = []gitrepo.Commit{
	{Hash: "a1", AuthorName: "Jane Doe", AuthorEmail: "jane@x.com", Subject: "Add bag"},
	{Hash: "b2", AuthorName: "JANE DOE", AuthorEmail: "Jane@X.com", Subject: "Implement weight"},
}

// harness wires mocked collaborators into a Sequence over a temp submission.
type harness struct {
	root      string
	cfg       *projectconfig.ProjectConfig
	inspector *MockInspector
	reader    *MockIdentityReader
	scorer    *MockScorer
	factory   subject.Factory
	loadErr   error
	hints     bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	root := t.TempDir()
	for _, name := range []string{"README.md", "bag.go"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x\n"), 0o644))
	}
	ref, err := subject.Reflect(bag.NewBag)
	require.NoError(t, err)

	return &harness{
		root:      root,
		cfg:       projectconfig.New(),
		inspector: NewMockInspector(ctrl),
		reader:    NewMockIdentityReader(ctrl),
		scorer:    NewMockScorer(ctrl),
		factory:   ref,
	}
}

func (h *harness) expectRepo() {
	h.inspector.EXPECT().IsValidRepository(gomock.Any(), h.root).Return(true, nil)
	h.inspector.EXPECT().ListBranches(gomock.Any(), "master", "main").Return([]string{"main"}, nil)
	h.inspector.EXPECT().Checkout(gomock.Any(), "main").Return(nil)
}

func (h *harness) expectIdentity(lines []string, err error) {
	h.reader.EXPECT().ReadLines(filepath.Join(h.root, "README.md")).Return(lines, err)
}

func (h *harness) expectScore(score float64, err error) {
	h.scorer.EXPECT().Score(gomock.Any(), filepath.Join(h.root, "bag.go")).Return(score, err)
}

func (h *harness) sequence(t *testing.T, opts ...Option) *Sequence {
	t.Helper()
	base := []Option{
		WithInspector(h.inspector),
		WithIdentityReader(h.reader),
		WithScorer(h.scorer),
		WithHints(&h.hints),
		WithSubjectLoader(func(path string) (subject.Factory, error) {
			if h.loadErr != nil {
				return nil, h.loadErr
			}
			return h.factory, nil
		}),
	}
	s, err := New(h.root, h.cfg, append(base, opts...)...)
	require.NoError(t, err)
	return s
}

func (h *harness) run(t *testing.T) *Report {
	t.Helper()
	report, err := h.sequence(t).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	return report
}

func requireCP(t *testing.T, r *Report, id string) *checkpoint.CheckPoint {
	t.Helper()
	cp, ok := r.List.Get(id)
	require.True(t, ok, "checkpoint %s not registered", id)
	return cp
}

func assertScore(t *testing.T, r *Report, id string, want float64) {
	t.Helper()
	cp := requireCP(t, r, id)
	assert.Equal(t, checkpoint.StatusGraded, cp.Status(), id)
	assert.Equal(t, want, cp.Score(), id)
}

func assertFlagged(t *testing.T, r *Report, ids ...string) {
	t.Helper()
	for _, id := range ids {
		cp := requireCP(t, r, id)
		assert.Equal(t, checkpoint.StatusSpecial, cp.Status(), id)
		assert.Equal(t, checkpoint.CodeException, cp.Code(), id)
	}
}

func assertUngraded(t *testing.T, r *Report, ids ...string) {
	t.Helper()
	for _, id := range ids {
		assert.Equal(t, checkpoint.StatusUngraded, requireCP(t, r, id).Status(), id)
	}
}

func TestRun_FullMarks(t *testing.T) {
	h := newHarness(t)
	h.expectRepo()
	h.expectIdentity(janeLines, nil)
	h.expectScore(8.7, nil)
	h.inspector.EXPECT().CommitLog(gomock.Any()).Return(janeLog, nil)

	r := h.run(t)

	require.False(t, r.Halted)
	require.NotEmpty(t, r.RunID)
	require.Equal(t, 18, r.List.Len())
	for _, cp := range r.List.Entries() {
		assert.Equal(t, checkpoint.StatusGraded, cp.Status(), cp.ID())
	}
	assertScore(t, r, IDLint, 8)
	assertScore(t, r, IDCommits, 10)
	assertScore(t, r, IDMessages, 6)
	assert.Equal(t, 99.0, r.List.TotalScore())
	assert.Equal(t, 100.0, r.List.TotalMax())

	ids := make([]string, 0, r.List.Len())
	for _, cp := range r.List.Entries() {
		ids = append(ids, cp.ID())
	}
	assert.Equal(t, []string{
		IDValidRepo, IDBranchName, IDFilenames,
		IDFullName, IDEmail, IDStudentID,
		IDMethods, IDFields, IDInit,
		IDAdd, IDCount, IDRemove, IDWeight, IDItems, IDDump, IDLint,
		IDCommits, IDMessages,
	}, ids)

	assert.Contains(t, h.hints.String(), "a1#Jane Doe#jane@x.com#Add bag")
	assert.Contains(t, r.List.String(), "Total: 99/100")
}

func TestRun_RepositoryHalts(t *testing.T) {
	t.Run("not a repository", func(t *testing.T) {
		h := newHarness(t)
		h.inspector.EXPECT().IsValidRepository(gomock.Any(), h.root).Return(false, nil)

		r := h.run(t)

		require.True(t, r.Halted)
		require.Contains(t, r.HaltReason, "not a git repository")
		require.Equal(t, 1, r.List.Len())
		assertFlagged(t, r, IDValidRepo)
		require.Contains(t, r.List.String(), "E/5: The submission is a valid git repository")
		require.Contains(t, r.List.String(), "Total: 0/5")
	})

	t.Run("inspection fails", func(t *testing.T) {
		h := newHarness(t)
		h.inspector.EXPECT().IsValidRepository(gomock.Any(), h.root).
			Return(false, failures.New("git rev-parse", failures.KindCommand, errBroken))

		r := h.run(t)

		require.True(t, r.Halted)
		assertFlagged(t, r, IDValidRepo)
	})
}

func TestRun_BranchHalts(t *testing.T) {
	tests := []struct {
		name     string
		branches []string
		listErr  error
		checkout bool
		coErr    error
		wantHint string
	}{
		{name: "both present", branches: []string{"master", "main"}, wantHint: "only one of the branches"},
		{name: "neither present", branches: nil, wantHint: "none of the branches"},
		{name: "listing fails", listErr: errBroken, wantHint: "listing branches"},
		{
			name:     "checkout fails",
			branches: []string{"master"},
			checkout: true,
			coErr:    failures.New("git checkout", failures.KindCheckout, errBroken),
			wantHint: "please check your master branch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.inspector.EXPECT().IsValidRepository(gomock.Any(), h.root).Return(true, nil)
			h.inspector.EXPECT().ListBranches(gomock.Any(), "master", "main").Return(tt.branches, tt.listErr)
			if tt.checkout {
				h.inspector.EXPECT().Checkout(gomock.Any(), "master").Return(tt.coErr)
			}

			r := h.run(t)

			require.True(t, r.Halted)
			require.Equal(t, 2, r.List.Len(), "remaining checks are never registered")
			assertScore(t, r, IDValidRepo, 5)
			assertFlagged(t, r, IDBranchName)
			require.Contains(t, h.hints.String(), tt.wantHint)
		})
	}
}

func TestRun_MissingFilesDegrade(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.Remove(filepath.Join(h.root, "bag.go")))
	h.expectRepo()
	h.expectIdentity(janeLines, nil)
	h.expectScore(9, nil)
	h.inspector.EXPECT().CommitLog(gomock.Any()).Return(janeLog, nil)

	r := h.run(t)

	require.False(t, r.Halted)
	assertScore(t, r, IDFilenames, 0)
	assertScore(t, r, IDAdd, 5)
	require.Contains(t, h.hints.String(), "'bag.go'")
}

func TestRun_IdentityFileMissing(t *testing.T) {
	h := newHarness(t)
	h.expectRepo()
	h.expectIdentity(nil, failures.New("reading README.md", failures.KindNotFound, os.ErrNotExist))
	h.expectScore(9, nil)
	// CommitLog must not be called.

	r := h.run(t)

	require.False(t, r.Halted)
	assertFlagged(t, r, IDFullName, IDEmail, IDStudentID)
	assertUngraded(t, r, IDCommits, IDMessages)
	assertScore(t, r, IDDump, 5)
	assertScore(t, r, IDLint, 9)
	require.Contains(t, h.hints.String(), "We didn't find README.md")
	require.Contains(t, r.List.String(), "N/10: Repo contains commits made by you")
}

func TestRun_IdentityFileMalformed(t *testing.T) {
	h := newHarness(t)
	h.expectRepo()
	h.expectIdentity([]string{"Jane Doe", "jane@x.com"}, nil)
	h.expectScore(9, nil)

	r := h.run(t)

	assertFlagged(t, r, IDFullName, IDEmail, IDStudentID)
	assertUngraded(t, r, IDCommits, IDMessages)
}

func TestRun_IdentityReaderPanics(t *testing.T) {
	h := newHarness(t)
	h.expectRepo()
	h.reader.EXPECT().ReadLines(gomock.Any()).DoAndReturn(func(string) ([]string, error) {
		panic("reader exploded")
	})
	h.expectScore(9, nil)

	r := h.run(t)

	assertFlagged(t, r, IDFullName, IDEmail, IDStudentID)
	assertUngraded(t, r, IDCommits, IDMessages)
}

func TestRun_IdentityFieldsGradedIndependently(t *testing.T) {
	h := newHarness(t)
	h.expectRepo()
	h.expectIdentity([]string{"J4ne", "jane@x.com", "12345"}, nil)
	h.expectScore(9, nil)
	h.inspector.EXPECT().CommitLog(gomock.Any()).Return(nil, nil)

	r := h.run(t)

	assertScore(t, r, IDFullName, 0)
	assertScore(t, r, IDEmail, 5)
	assertScore(t, r, IDStudentID, 0)
	assertScore(t, r, IDCommits, 0)
	assertScore(t, r, IDMessages, 0)
}

func TestRun_SubjectUnavailable(t *testing.T) {
	h := newHarness(t)
	h.loadErr = failures.New("parsing bag.go", failures.KindMalformed, errBroken)
	h.expectRepo()
	h.expectIdentity(janeLines, nil)
	h.expectScore(3.2, nil)
	h.inspector.EXPECT().CommitLog(gomock.Any()).Return(janeLog, nil)

	r := h.run(t)

	require.False(t, r.Halted)
	assertFlagged(t, r, IDMethods, IDFields, IDInit,
		IDAdd, IDCount, IDRemove, IDWeight, IDItems, IDDump)
	assertScore(t, r, IDLint, 3)
	assertScore(t, r, IDCommits, 10)
}

func TestRun_StructureMismatch(t *testing.T) {
	h := newHarness(t)
	f := newFakeFactory(fakeContainer{})
	f.methods = []string{"Add", "Weight"}
	f.fields = []string{"items"}
	h.factory = f
	h.expectRepo()
	h.expectIdentity(janeLines, nil)
	h.expectScore(9, nil)
	h.inspector.EXPECT().CommitLog(gomock.Any()).Return(janeLog, nil)

	r := h.run(t)

	assertScore(t, r, IDMethods, 0)
	assertScore(t, r, IDFields, 0)
	assertScore(t, r, IDInit, 5)
	require.Contains(t, h.hints.String(), "missing methods: Remove, Items, Dump")
}

func TestRun_ConstructorFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	f := newFakeFactory(fakeContainer{})
	f.newErr = failures.New("NewBag", failures.KindPanic, errBroken)
	h.factory = f
	h.expectRepo()
	h.expectIdentity(janeLines, nil)
	h.expectScore(9, nil)
	h.inspector.EXPECT().CommitLog(gomock.Any()).Return(janeLog, nil)

	r := h.run(t)

	require.False(t, r.Halted)
	assertScore(t, r, IDMethods, 5)
	assertFlagged(t, r, IDInit, IDAdd)
	assertUngraded(t, r, IDCount, IDRemove, IDWeight, IDItems, IDDump)
	assertScore(t, r, IDCommits, 10)
}

func TestRun_HangingSubjectIsFlagged(t *testing.T) {
	h := newHarness(t)
	src := `package main

import "time"

type Bag struct{ tare float64 }

func NewBag(tare float64) *Bag { return &Bag{tare: tare} }

func (b *Bag) Add(name string, weight float64) { time.Sleep(time.Minute) }

func (b *Bag) Count() int { return 0 }
`
	path := filepath.Join(h.root, "bag.go")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	f, err := subject.LoadSource(path, subject.SourceOptions{CallTimeout: 100 * time.Millisecond})
	require.NoError(t, err)
	h.factory = f
	h.expectRepo()
	h.expectIdentity(janeLines, nil)
	h.expectScore(9, nil)
	h.inspector.EXPECT().CommitLog(gomock.Any()).Return(janeLog, nil)

	start := time.Now()
	r := h.run(t)

	require.Less(t, time.Since(start), 10*time.Second)
	require.False(t, r.Halted)
	assertScore(t, r, IDInit, 5)
	assertFlagged(t, r, IDAdd)
	assertUngraded(t, r, IDCount, IDRemove, IDWeight, IDItems, IDDump)
	assertScore(t, r, IDCommits, 10)
	require.Contains(t, h.hints.String(), "no result after")
}

func TestRun_Behaviour(t *testing.T) {
	tests := []struct {
		name    string
		defects fakeContainer
		want    map[string]float64
		flagged []string
		skipped []string
		hint    string
	}{
		{
			name:    "correct",
			defects: fakeContainer{},
			want:    map[string]float64{IDAdd: 5, IDCount: 5, IDRemove: 5, IDWeight: 5, IDItems: 5, IDDump: 5},
		},
		{
			name:    "tare omitted",
			defects: fakeContainer{ignoreTare: true},
			want:    map[string]float64{IDWeight: 2, IDRemove: 5},
			hint:    "tare weight",
		},
		{
			name:    "item weights omitted",
			defects: fakeContainer{ignoreWeights: true},
			want:    map[string]float64{IDWeight: 2},
			hint:    "item weight",
		},
		{
			name:    "duplicates counted",
			defects: fakeContainer{countDuplicates: true},
			want:    map[string]float64{IDAdd: 2, IDCount: 5, IDWeight: 5, IDRemove: 0, IDItems: 5, IDDump: 0},
		},
		{
			name:    "add fails",
			defects: fakeContainer{failAdd: true},
			flagged: []string{IDAdd},
			skipped: []string{IDCount, IDRemove, IDWeight, IDItems, IDDump},
		},
		{
			name:    "count fails",
			defects: fakeContainer{failCount: true},
			flagged: []string{IDCount},
			skipped: []string{IDAdd, IDRemove, IDWeight, IDItems, IDDump},
		},
		{
			name:    "weight fails",
			defects: fakeContainer{failWeight: true},
			flagged: []string{IDWeight},
			want:    map[string]float64{IDRemove: 5},
		},
		{
			name:    "remove fails",
			defects: fakeContainer{failRemove: true},
			flagged: []string{IDRemove},
			want:    map[string]float64{IDWeight: 5},
		},
		{
			name:    "remove keeps items",
			defects: fakeContainer{keepOnRemove: true},
			want:    map[string]float64{IDRemove: 0},
		},
		{
			name:    "items wrong",
			defects: fakeContainer{extraItem: true},
			want:    map[string]float64{IDItems: 0},
		},
		{
			name:    "items fails",
			defects: fakeContainer{failItems: true},
			flagged: []string{IDItems},
		},
		{
			name:    "dump keeps items",
			defects: fakeContainer{keepOnDump: true},
			want:    map[string]float64{IDDump: 0},
		},
		{
			name:    "dump fails",
			defects: fakeContainer{failDump: true},
			flagged: []string{IDDump},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.factory = newFakeFactory(tt.defects)
			h.expectRepo()
			h.expectIdentity(janeLines, nil)
			h.expectScore(9, nil)
			h.inspector.EXPECT().CommitLog(gomock.Any()).Return(janeLog, nil)

			r := h.run(t)

			require.False(t, r.Halted)
			for id, want := range tt.want {
				assertScore(t, r, id, want)
			}
			assertFlagged(t, r, tt.flagged...)
			assertUngraded(t, r, tt.skipped...)
			if tt.hint != "" {
				require.Contains(t, h.hints.String(), tt.hint)
			}
		})
	}
}

func TestRun_Lint(t *testing.T) {
	tests := []struct {
		name    string
		score   float64
		err     error
		want    float64
		flagged bool
	}{
		{name: "floored", score: 7.99, want: 7},
		{name: "clamped to max", score: 10, want: 9},
		{name: "negative", score: -3.5, want: 0, flagged: true},
		{name: "not a number", score: math.NaN(), want: 0, flagged: true},
		{name: "scorer fails", err: failures.New("score", failures.KindCommand, errBroken), want: 0, flagged: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.expectRepo()
			h.expectIdentity(janeLines, nil)
			h.expectScore(tt.score, tt.err)
			h.inspector.EXPECT().CommitLog(gomock.Any()).Return(janeLog, nil)

			r := h.run(t)

			cp := requireCP(t, r, IDLint)
			require.Equal(t, 9.0, cp.Max())
			require.Equal(t, tt.want, cp.Score())
			if tt.flagged {
				require.Equal(t, checkpoint.StatusSpecial, cp.Status())
			} else {
				require.Equal(t, checkpoint.StatusGraded, cp.Status())
			}
			// Lint never stops the run.
			assertScore(t, r, IDCommits, 10)
		})
	}
}

func TestRun_History(t *testing.T) {
	tests := []struct {
		name         string
		log          []gitrepo.Commit
		logErr       error
		wantCommits  float64
		wantMessages float64
	}{
		{name: "two matching commits", log: janeLog, wantCommits: 10, wantMessages: 6},
		{
			name: "capped at two",
			log: append(append([]gitrepo.Commit{}, janeLog...),
				gitrepo.Commit{Hash: "c3", AuthorName: "Jane Doe", AuthorEmail: "jane@x.com", Subject: "Third commit"}),
			wantCommits:  10,
			wantMessages: 6,
		},
		{
			name: "short subjects and strangers",
			log: []gitrepo.Commit{
				{Hash: "a", AuthorName: "Jane Doe", AuthorEmail: "jane@x.com", Subject: "wip"},
				{Hash: "b", AuthorName: "Jane Doe", AuthorEmail: "jane@x.com", Subject: "fixes"},
				{Hash: "c", AuthorName: "John Roe", AuthorEmail: "jane@x.com", Subject: "Implement bag"},
				{Hash: "d", AuthorName: "Jane Doe", AuthorEmail: "john@x.com", Subject: "Implement bag"},
			},
			wantCommits:  10,
			wantMessages: 3,
		},
		{name: "empty log", log: nil, wantCommits: 0, wantMessages: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.expectRepo()
			h.expectIdentity(janeLines, nil)
			h.expectScore(9, nil)
			h.inspector.EXPECT().CommitLog(gomock.Any()).Return(tt.log, tt.logErr)

			r := h.run(t)

			assertScore(t, r, IDCommits, tt.wantCommits)
			assertScore(t, r, IDMessages, tt.wantMessages)
		})
	}

	t.Run("log fails", func(t *testing.T) {
		h := newHarness(t)
		h.expectRepo()
		h.expectIdentity(janeLines, nil)
		h.expectScore(9, nil)
		h.inspector.EXPECT().CommitLog(gomock.Any()).Return(nil, failures.New("git log", failures.KindCommand, errBroken))

		r := h.run(t)

		assertFlagged(t, r, IDCommits, IDMessages)
		require.False(t, r.Halted)
	})
}

func TestRun_ConfiguredHistoryLimit(t *testing.T) {
	h := newHarness(t)
	h.cfg.History.MaxCounted = 3
	h.expectRepo()
	h.expectIdentity(janeLines, nil)
	h.expectScore(9, nil)
	h.inspector.EXPECT().CommitLog(gomock.Any()).Return(janeLog, nil)

	r := h.run(t)

	cp := requireCP(t, r, IDCommits)
	require.Equal(t, 15.0, cp.Max())
	require.Equal(t, 10.0, cp.Score())
}

func TestRun_BoundaryViolationAbortsLoudly(t *testing.T) {
	h := newHarness(t)
	bad := Step{Name: "bad", Run: func(_ context.Context, st *State) (Signal, error) {
		cp, err := st.add("99_bad", "bad rule", 5)
		if err != nil {
			return Halt, err
		}
		return Continue, cp.Grade(6)
	}}
	never := Step{Name: "never", Run: func(context.Context, *State) (Signal, error) {
		t.Fatal("steps after a failure must not run")
		return Continue, nil
	}}

	r, err := h.sequence(t, WithSteps(bad, never)).Run(context.Background())

	require.Error(t, err)
	require.True(t, IsBoundaryViolation(err))
	require.ErrorIs(t, err, checkpoint.ErrOutOfBounds)
	require.NotNil(t, r)
	require.Equal(t, 1, r.List.Len())
}

func TestRun_DuplicateRegistrationIsBoundaryViolation(t *testing.T) {
	h := newHarness(t)
	step := Step{Name: "twice", Run: func(_ context.Context, st *State) (Signal, error) {
		if _, err := st.add("x", "x", 1); err != nil {
			return Halt, err
		}
		_, err := st.add("x", "x", 1)
		return Halt, err
	}}

	_, err := h.sequence(t, WithSteps(step)).Run(context.Background())
	require.True(t, IsBoundaryViolation(err))
	require.False(t, IsBoundaryViolation(errors.New("other")))
}

func TestRun_ReportsProgress(t *testing.T) {
	h := newHarness(t)
	h.inspector.EXPECT().IsValidRepository(gomock.Any(), h.root).Return(false, nil)

	var seen []string
	s := h.sequence(t, WithProgress(func(step string) {
		seen = append(seen, step)
	}))
	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.Halted)
	assert.Equal(t, []string{"repository"}, seen)
}

func TestNew_Defaults(t *testing.T) {
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	require.Len(t, s.steps, 11)
	require.IsType(t, &gitrepo.Inspector{}, s.inspector)
}

func TestNew_InvalidScorer(t *testing.T) {
	cfg := projectconfig.New()
	cfg.Lint.Kind = "magic"
	_, err := New(t.TempDir(), cfg)
	require.Error(t, err)
}

func TestCountCommits(t *testing.T) {
	log := []gitrepo.Commit{
		{AuthorName: "Jane Doe", AuthorEmail: "jane@x.com", Subject: "ลองดู"},
		{AuthorName: "jane doe", AuthorEmail: "JANE@X.COM", Subject: "abcd"},
		{AuthorName: "Jane", AuthorEmail: "jane@x.com", Subject: "Implement"},
	}
	authored, described := CountCommits(log, "Jane Doe", "jane@x.com", 5)
	require.Equal(t, 2, authored)
	require.Equal(t, 1, described, "subject length counts characters, not bytes")
}
