package lint

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spboyer/bagcheck/internal/failures"
)

// defaultProgramTimeoutSeconds is the default timeout for program scorers when none is specified.
const defaultProgramTimeoutSeconds = 30

// scorePattern finds a "rated at 8.50/10"-style score, or a bare number on the
// last line of output.
var scorePattern = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*/\s*10\b`)

// ProgramScorerArgs holds the arguments for creating a program scorer.
type ProgramScorerArgs struct {
	// Command is the program to execute. The target file is appended to Args.
	Command string `mapstructure:"command"`
	// Args are the arguments to pass to the program.
	Args []string `mapstructure:"args"`
	// Timeout is the maximum execution time in seconds. Defaults to 30 if not set.
	Timeout int `mapstructure:"timeout"`
	// AllowFailure accepts a non-zero exit code as long as a score was printed.
	// Linters commonly exit non-zero when they report anything.
	AllowFailure bool `mapstructure:"allow_failure"`
}

// programScorer runs an external linter and reads the score from its stdout.
type programScorer struct {
	command      string
	args         []string
	timeout      time.Duration
	allowFailure bool
}

// NewProgramScorer creates a [programScorer] that runs an external command to rate the target.
func NewProgramScorer(args ProgramScorerArgs) (*programScorer, error) {
	if args.Command == "" {
		return nil, fmt.Errorf("program scorer must have a 'command'")
	}

	timeout := args.Timeout
	if timeout <= 0 {
		timeout = defaultProgramTimeoutSeconds
	}

	return &programScorer{
		command:      args.Command,
		args:         args.Args,
		timeout:      time.Duration(timeout) * time.Second,
		allowFailure: args.AllowFailure,
	}, nil
}

func (ps *programScorer) Kind() Kind { return KindProgram }

func (ps *programScorer) Score(ctx context.Context, target string) (float64, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, ps.timeout)
	defer cancel()

	args := append(append([]string{}, ps.args...), target)
	cmd := exec.CommandContext(timeoutCtx, ps.command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	score, parseErr := ParseScore(stdout.String())

	if runErr != nil && (!ps.allowFailure || parseErr != nil) {
		err := fmt.Errorf("program exited with error: %w", runErr)
		if errOutput := strings.TrimSpace(stderr.String()); errOutput != "" {
			err = fmt.Errorf("%w; stderr: %s", err, errOutput)
		}
		return 0, failures.New(ps.command, failures.KindCommand, err)
	}
	if parseErr != nil {
		return 0, failures.New(ps.command, failures.KindMalformed, parseErr)
	}
	return score, nil
}

// ParseScore extracts the score from linter output. The first "x/10" wins, so
// a trailing "previous run" figure is ignored; otherwise the last non-empty
// line must be a number.
func ParseScore(output string) (float64, error) {
	if m := scorePattern.FindStringSubmatch(output); m != nil {
		return strconv.ParseFloat(m[1], 64)
	}
	lines := strings.Split(strings.TrimSpace(output), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return 0, fmt.Errorf("no score in output")
	}
	v, err := strconv.ParseFloat(last, 64)
	if err != nil {
		return 0, fmt.Errorf("no score in output: %q", last)
	}
	return v, nil
}
