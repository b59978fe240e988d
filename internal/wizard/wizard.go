// Package wizard collects a .bagcheck.yaml configuration interactively.
package wizard

import (
	"bytes"
	"fmt"
	"go/token"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/spboyer/bagcheck/internal/projectconfig"
	"github.com/spboyer/bagcheck/internal/utils"
)

const configHeader = `# bagcheck configuration.
# Every field is optional; omitted fields use the built-in defaults.
`

// RunConfigWizard runs an interactive huh form to collect grading settings.
// The form is pre-populated from defaults, which is not modified.
func RunConfigWizard(in io.Reader, out io.Writer, defaults *projectconfig.ProjectConfig) (*projectconfig.ProjectConfig, error) {
	if defaults == nil {
		defaults = projectconfig.New()
	}
	var (
		identityFile = defaults.Paths.Identity
		subjectFile  = defaults.Paths.Subject
		branchesRaw  = strings.Join(defaults.Repository.Branches, ", ")
		typeName     = defaults.Subject.Type
		constructor  = defaults.Subject.Constructor
		lintKind     = defaults.Lint.Kind
		lintMaxRaw   = strconv.Itoa(defaults.Lint.MaxScore)
		format       = defaults.Report.Format
		hints        = defaults.Report.Hints == nil || *defaults.Report.Hints
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Identity file").
				Description("Three lines: full name, email address, student ID").
				Value(&identityFile).
				Validate(required("identity file")),
			huh.NewInput().
				Title("Submission file").
				Description("The Go file holding the container implementation").
				Value(&subjectFile).
				Validate(required("submission file")),
			huh.NewInput().
				Title("Primary branches").
				Description("Comma-separated; exactly one must exist").
				Value(&branchesRaw).
				Validate(ValidateBranches),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Container type").
				Value(&typeName).
				Validate(ValidateIdentifier),
			huh.NewInput().
				Title("Constructor").
				Description("A func(tare float64) returning the container").
				Value(&constructor).
				Validate(ValidateIdentifier),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Code convention scorer").
				Options(
					huh.NewOption("builtin", "builtin"),
					huh.NewOption("program", "program"),
				).
				Value(&lintKind),
			huh.NewInput().
				Title("Convention points").
				Description("Maximum points, 1 to 10").
				Value(&lintMaxRaw).
				Validate(ValidateLintMax),
			huh.NewSelect[string]().
				Title("Report format").
				Options(
					huh.NewOption("text", "text"),
					huh.NewOption("table", "table"),
					huh.NewOption("json", "json"),
					huh.NewOption("junit", "junit"),
					huh.NewOption("markdown", "markdown"),
				).
				Value(&format),
			huh.NewConfirm().
				Title("Print hints for students?").
				Value(&hints),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	lintMax, _ := strconv.Atoi(strings.TrimSpace(lintMaxRaw)) // validated above
	cfg := *defaults
	cfg.Paths.Identity = strings.TrimSpace(identityFile)
	cfg.Paths.Subject = strings.TrimSpace(subjectFile)
	cfg.Paths.Required = []string{cfg.Paths.Identity, cfg.Paths.Subject}
	cfg.Repository.Branches = splitAndTrim(branchesRaw)
	cfg.Subject.Type = strings.TrimSpace(typeName)
	cfg.Subject.Constructor = strings.TrimSpace(constructor)
	cfg.Lint.Kind = lintKind
	cfg.Lint.MaxScore = lintMax
	cfg.Report.Format = format
	cfg.Report.Hints = utils.Ptr(hints)
	return &cfg, nil
}

// GenerateConfigYAML renders cfg as a .bagcheck.yaml document.
func GenerateConfigYAML(cfg *projectconfig.ProjectConfig) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(configHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return buf.Bytes(), nil
}

// ValidateIdentifier accepts exported or unexported Go identifiers.
func ValidateIdentifier(s string) error {
	s = strings.TrimSpace(s)
	if !token.IsIdentifier(s) {
		return fmt.Errorf("%q is not a Go identifier", s)
	}
	return nil
}

// ValidateBranches requires at least one branch name without spaces.
func ValidateBranches(s string) error {
	branches := splitAndTrim(s)
	if len(branches) == 0 {
		return fmt.Errorf("at least one branch is required")
	}
	for _, b := range branches {
		if strings.ContainsAny(b, " \t") {
			return fmt.Errorf("branch %q contains whitespace", b)
		}
	}
	return nil
}

// ValidateLintMax requires an integer from 1 to 10.
func ValidateLintMax(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 10 {
		return fmt.Errorf("points must be a whole number from 1 to 10")
	}
	return nil
}

func required(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
