// Package projectconfig provides the ProjectConfig struct and loader for
// .bagcheck.yaml configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spboyer/bagcheck/internal/utils"
	"github.com/spboyer/bagcheck/internal/validation"
)

// FileName is the configuration file looked up from the grader's working
// directory.
const FileName = ".bagcheck.yaml"

// Default values for project configuration. These are the single source of
// truth — New() references them and no other code should duplicate them.
const (
	DefaultIdentityFile = "README.md"
	DefaultSubjectFile  = "bag.go"

	DefaultTypeName    = "Bag"
	DefaultConstructor = "NewBag"
	// DefaultCallTimeout is in seconds.
	DefaultCallTimeout = 10

	DefaultLintKind     = "builtin"
	DefaultLintMaxScore = 9

	DefaultMinSubjectLength = 5
	DefaultMaxCounted       = 2

	DefaultFormat = "text"
)

// DefaultBranches are the accepted primary branch names. Exactly one of them
// must exist.
var DefaultBranches = []string{"master", "main"}

// DefaultMethods are the methods the container type must declare.
var DefaultMethods = []string{"Add", "Remove", "Weight", "Items", "Dump"}

// DefaultFields are the struct fields the container type must declare,
// compared case-insensitively.
var DefaultFields = []string{"tare"}

// PathsConfig holds file names relative to the submission root.
type PathsConfig struct {
	Identity string   `yaml:"identity,omitempty"`
	Subject  string   `yaml:"subject,omitempty"`
	Required []string `yaml:"required,omitempty"`
}

// RepositoryConfig holds git expectations.
type RepositoryConfig struct {
	Branches []string `yaml:"branches,omitempty"`
}

// SubjectConfig names the declarations the submitted container provides.
type SubjectConfig struct {
	Type        string   `yaml:"type,omitempty"`
	Constructor string   `yaml:"constructor,omitempty"`
	Methods     []string `yaml:"methods,omitempty"`
	Fields      []string `yaml:"fields,omitempty"`
	// CallTimeout bounds each call into the submitted code, in seconds.
	CallTimeout int `yaml:"call_timeout,omitempty"`
}

// LintConfig selects the static analysis scorer.
type LintConfig struct {
	Kind     string         `yaml:"kind,omitempty"`
	MaxScore int            `yaml:"max_score,omitempty"`
	Params   map[string]any `yaml:"params,omitempty"`
}

// HistoryConfig holds commit log rules.
type HistoryConfig struct {
	MinSubjectLength int `yaml:"min_subject_length,omitempty"`
	MaxCounted       int `yaml:"max_counted,omitempty"`
}

// ReportConfig holds output settings.
type ReportConfig struct {
	Format string `yaml:"format,omitempty"`
	Hints  *bool  `yaml:"hints,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .bagcheck.yaml.
type ProjectConfig struct {
	Paths      PathsConfig      `yaml:"paths,omitempty"`
	Repository RepositoryConfig `yaml:"repository,omitempty"`
	Subject    SubjectConfig    `yaml:"subject,omitempty"`
	Lint       LintConfig       `yaml:"lint,omitempty"`
	History    HistoryConfig    `yaml:"history,omitempty"`
	Report     ReportConfig     `yaml:"report,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Paths: PathsConfig{
			Identity: DefaultIdentityFile,
			Subject:  DefaultSubjectFile,
			Required: []string{DefaultIdentityFile, DefaultSubjectFile},
		},
		Repository: RepositoryConfig{
			Branches: append([]string(nil), DefaultBranches...),
		},
		Subject: SubjectConfig{
			Type:        DefaultTypeName,
			Constructor: DefaultConstructor,
			Methods:     append([]string(nil), DefaultMethods...),
			Fields:      append([]string(nil), DefaultFields...),
			CallTimeout: DefaultCallTimeout,
		},
		Lint: LintConfig{
			Kind:     DefaultLintKind,
			MaxScore: DefaultLintMaxScore,
		},
		History: HistoryConfig{
			MinSubjectLength: DefaultMinSubjectLength,
			MaxCounted:       DefaultMaxCounted,
		},
		Report: ReportConfig{
			Format: DefaultFormat,
			Hints:  utils.Ptr(true),
		},
	}
}

// Load finds .bagcheck.yaml by walking up from startDir (max 10 levels),
// validates and unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	return LoadOutside(startDir, "")
}

// LoadOutside is Load for grading: config files at or below exclude are
// skipped, so a submission can't carry its own grading rules. The walk
// continues above them. An empty exclude skips nothing.
func LoadOutside(startDir, exclude string) (*ProjectConfig, error) {
	skip := func(string) bool { return false }
	if exclude != "" {
		root, err := canonical(exclude)
		if err != nil {
			return nil, fmt.Errorf("resolving path %q: %w", exclude, err)
		}
		skip = func(path string) bool {
			if !within(path, root) {
				return false
			}
			slog.Warn("Ignoring config file inside the submission", "path", path)
			return true
		}
	}

	data, err := findConfigFile(startDir, skip)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil // no file found → return defaults
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}
	return Parse(data)
}

// LoadFile reads the config at an explicit path.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates data against the config schema and merges it onto the
// defaults.
func Parse(data []byte) (*ProjectConfig, error) {
	if errs := validation.ValidateConfigBytes(data); len(errs) > 0 {
		return nil, fmt.Errorf("invalid %s:\n  %s", FileName, strings.Join(errs, "\n  "))
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}

	cfg := New()
	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// findConfigFile walks up from dir looking for .bagcheck.yaml (max 10 levels),
// passing over files for which skip returns true.
// Returns os.ErrNotExist if no config file is found. Propagates real I/O
// errors (e.g. permission denied) instead of silently swallowing them.
func findConfigFile(dir string, skip func(path string) bool) ([]byte, error) {
	// Canonical so filepath.Dir(".") walks correctly and skip sees real paths.
	absDir, err := canonical(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil && !skip(p) {
			return data, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// canonical returns the absolute, symlink-free form of path. A path that
// doesn't exist is only made absolute.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return abs, nil
		}
		return "", err
	}
	return resolved, nil
}

// within reports whether path is root or lies below it.
func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	// Paths
	if src.Paths.Identity != "" {
		dst.Paths.Identity = src.Paths.Identity
	}
	if src.Paths.Subject != "" {
		dst.Paths.Subject = src.Paths.Subject
	}
	if src.Paths.Required != nil {
		dst.Paths.Required = src.Paths.Required
	} else if src.Paths.Identity != "" || src.Paths.Subject != "" {
		dst.Paths.Required = []string{dst.Paths.Identity, dst.Paths.Subject}
	}

	// Repository
	if len(src.Repository.Branches) > 0 {
		dst.Repository.Branches = src.Repository.Branches
	}

	// Subject
	if src.Subject.Type != "" {
		dst.Subject.Type = src.Subject.Type
	}
	if src.Subject.Constructor != "" {
		dst.Subject.Constructor = src.Subject.Constructor
	}
	if src.Subject.Methods != nil {
		dst.Subject.Methods = src.Subject.Methods
	}
	if src.Subject.Fields != nil {
		dst.Subject.Fields = src.Subject.Fields
	}
	if src.Subject.CallTimeout != 0 {
		dst.Subject.CallTimeout = src.Subject.CallTimeout
	}

	// Lint
	if src.Lint.Kind != "" {
		dst.Lint.Kind = src.Lint.Kind
	}
	if src.Lint.MaxScore != 0 {
		dst.Lint.MaxScore = src.Lint.MaxScore
	}
	if src.Lint.Params != nil {
		dst.Lint.Params = src.Lint.Params
	}

	// History
	if src.History.MinSubjectLength != 0 {
		dst.History.MinSubjectLength = src.History.MinSubjectLength
	}
	if src.History.MaxCounted != 0 {
		dst.History.MaxCounted = src.History.MaxCounted
	}

	// Report
	if src.Report.Format != "" {
		dst.Report.Format = src.Report.Format
	}
	if src.Report.Hints != nil {
		dst.Report.Hints = src.Report.Hints
	}
}
