package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/spboyer/bagcheck/internal/bag"
	"github.com/spboyer/bagcheck/internal/evaluate"
	"github.com/spboyer/bagcheck/internal/projectconfig"
	"github.com/spboyer/bagcheck/internal/reporting"
	"github.com/spboyer/bagcheck/internal/spinner"
	"github.com/spboyer/bagcheck/internal/subject"
)

const (
	subjectSource    = "source"
	subjectReference = "reference"
)

type gradeOptions struct {
	format     string
	outputPath string
	subject    string
	configPath string
	noHints    bool
	interpret  bool
	progress   bool
}

func newGradeCommand() *cobra.Command {
	var opts gradeOptions

	cmd := &cobra.Command{
		Use:   "grade [directory]",
		Short: "Grade a submission",
		Long: `Grade the submission in the given directory (default: current directory).

The directory must be the root of the submission's git repository. Settings
come from --config, or from a .bagcheck.yaml found by walking up from the
current directory. A .bagcheck.yaml inside the submission is ignored. Hints
for the student are printed to stderr.

Exit codes: 0 when grading completes, 1 when a load-bearing check halts
grading (the partial report is still printed), 2 on any other error.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return gradeCommandE(cmd, args, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Report format: text, table, json, junit or markdown (default from config)")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Write the report to this file instead of stdout")
	cmd.Flags().StringVar(&opts.subject, "subject", subjectSource, "Container to grade: source (interpret the submitted file) or reference (built-in bag)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to a .bagcheck.yaml file")
	cmd.Flags().BoolVar(&opts.noHints, "no-hints", false, "Don't print hints for the student")
	cmd.Flags().BoolVar(&opts.interpret, "interpret", false, "Print a plain-language summary after the report")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "Show the running step on stderr when it is a terminal")

	return cmd
}

func gradeCommandE(cmd *cobra.Command, args []string, opts *gradeOptions) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}

	cfg, err := loadConfig(root, opts.configPath)
	if err != nil {
		return err
	}

	formatName := cfg.Report.Format
	if opts.format != "" {
		formatName = opts.format
	}
	format, err := reporting.ParseFormat(formatName)
	if err != nil {
		return err
	}

	var hints io.Writer = cmd.ErrOrStderr()
	if opts.noHints || (cfg.Report.Hints != nil && !*cfg.Report.Hints) {
		hints = io.Discard
	}

	// Hints are held back while the spinner owns the terminal line.
	var held bytes.Buffer
	var spin *spinner.Spinner
	if opts.progress && isTerminal(cmd.ErrOrStderr()) {
		spin = spinner.Start(cmd.ErrOrStderr(), "grading "+root)
		if hints != io.Discard {
			hints = &held
		}
	}
	stopSpinner := func() {
		if spin == nil {
			return
		}
		spin.Stop()
		spin = nil
		cmd.ErrOrStderr().Write(held.Bytes()) //nolint:errcheck
	}
	defer stopSpinner()

	seqOpts := []evaluate.Option{evaluate.WithHints(hints)}
	if spin != nil {
		seqOpts = append(seqOpts, evaluate.WithProgress(spin.Step))
	}
	switch opts.subject {
	case subjectSource:
	case subjectReference:
		seqOpts = append(seqOpts, evaluate.WithSubjectLoader(func(string) (subject.Factory, error) {
			return subject.Reflect(bag.NewBag)
		}))
	default:
		return fmt.Errorf("unknown subject %q (want %s or %s)", opts.subject, subjectSource, subjectReference)
	}

	seq, err := evaluate.New(root, cfg, seqOpts...)
	if err != nil {
		return err
	}

	report, runErr := seq.Run(cmd.Context())
	stopSpinner()
	if report != nil {
		if err := writeReport(cmd, opts, format, report); err != nil {
			return errors.Join(runErr, err)
		}
	}
	if runErr != nil {
		if evaluate.IsBoundaryViolation(runErr) {
			return fmt.Errorf("grading rule error: %w", runErr)
		}
		return runErr
	}

	if opts.interpret {
		fmt.Fprint(cmd.OutOrStdout(), "\n"+reporting.FormatSummaryReport(report)) //nolint:errcheck
	}
	if report.Halted {
		return &HaltedError{Reason: report.HaltReason}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// loadConfig reads --config, or finds .bagcheck.yaml from the working
// directory. A discovered file inside the submission is never used.
func loadConfig(root, configPath string) (*projectconfig.ProjectConfig, error) {
	if configPath != "" {
		return projectconfig.LoadFile(configPath)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	return projectconfig.LoadOutside(wd, root)
}

func writeReport(cmd *cobra.Command, opts *gradeOptions, format reporting.Format, report *evaluate.Report) error {
	if opts.outputPath == "" {
		return reporting.Write(cmd.OutOrStdout(), format, report)
	}

	if err := reporting.WriteFile(opts.outputPath, format, report); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", opts.outputPath) //nolint:errcheck
	return nil
}
