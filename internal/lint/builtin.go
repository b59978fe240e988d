package lint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"github.com/spboyer/bagcheck/internal/failures"
)

const defaultMaxLineLength = 100

// BuiltinScorerArgs holds the arguments for creating a builtin scorer.
type BuiltinScorerArgs struct {
	// MaxLineLength is the longest line accepted without a message. Defaults to 100.
	MaxLineLength int
}

// builtinScorer rates Go source the way pylint rates Python: every message
// costs points relative to the number of statements, and a file that doesn't
// parse scores 0.
//
//	score = 10 - 10 * (5*errors + conventions) / statements
type builtinScorer struct {
	maxLineLength int
}

// Message is one finding of the builtin scorer.
type Message struct {
	Line  int
	Error bool
	Text  string
}

func NewBuiltinScorer(args BuiltinScorerArgs) *builtinScorer {
	if args.MaxLineLength <= 0 {
		args.MaxLineLength = defaultMaxLineLength
	}
	return &builtinScorer{maxLineLength: args.MaxLineLength}
}

func (s *builtinScorer) Kind() Kind { return KindBuiltin }

func (s *builtinScorer) Score(ctx context.Context, target string) (float64, error) {
	src, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, failures.New("scoring "+target, failures.KindNotFound, err)
		}
		return 0, failures.New("scoring "+target, failures.KindUnknown, err)
	}
	score, msgs := s.Analyze(target, src)
	for _, m := range msgs {
		slog.Debug("Lint message", "file", target, "line", m.Line, "error", m.Error, "text", m.Text)
	}
	return score, nil
}

// Analyze scores src and returns the messages behind the score.
func (s *builtinScorer) Analyze(filename string, src []byte) (float64, []Message) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return 0, []Message{{Error: true, Text: err.Error()}}
	}

	var msgs []Message
	msgs = append(msgs, s.checkFormat(src)...)
	msgs = append(msgs, s.checkLines(src)...)
	msgs = append(msgs, checkDocs(fset, file)...)
	msgs = append(msgs, checkNames(fset, file)...)
	msgs = append(msgs, checkIgnoredPanics(fset, file)...)

	statements := countStatements(file)
	if statements == 0 {
		statements = 1
	}
	weighted := 0
	for _, m := range msgs {
		if m.Error {
			weighted += 5
		} else {
			weighted++
		}
	}
	return MaxScore - MaxScore*float64(weighted)/float64(statements), msgs
}

// checkFormat reports one message per line that gofmt would change.
func (s *builtinScorer) checkFormat(src []byte) []Message {
	formatted, err := format.Source(src)
	if err != nil || bytes.Equal(formatted, src) {
		return nil
	}
	got := strings.Split(string(src), "\n")
	want := strings.Split(string(formatted), "\n")
	var msgs []Message
	for i := 0; i < len(got) && i < len(want); i++ {
		if got[i] != want[i] {
			msgs = append(msgs, Message{Line: i + 1, Text: "not gofmt-ed"})
		}
	}
	if len(msgs) == 0 {
		msgs = append(msgs, Message{Line: min(len(got), len(want)), Text: "not gofmt-ed"})
	}
	return msgs
}

func (s *builtinScorer) checkLines(src []byte) []Message {
	var msgs []Message
	for i, line := range strings.Split(string(src), "\n") {
		if n := len([]rune(strings.ReplaceAll(line, "\t", "    "))); n > s.maxLineLength {
			msgs = append(msgs, Message{Line: i + 1, Text: fmt.Sprintf("line too long (%d/%d)", n, s.maxLineLength)})
		}
		if strings.TrimRight(line, " \t") != line {
			msgs = append(msgs, Message{Line: i + 1, Text: "trailing whitespace"})
		}
	}
	return msgs
}

// checkDocs reports exported top-level declarations without a doc comment.
func checkDocs(fset *token.FileSet, file *ast.File) []Message {
	var msgs []Message
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Name.IsExported() && d.Doc == nil {
				msgs = append(msgs, Message{Line: fset.Position(d.Pos()).Line, Text: fmt.Sprintf("exported %s should have a comment", d.Name.Name)})
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if ok && ts.Name.IsExported() && d.Doc == nil && ts.Doc == nil {
					msgs = append(msgs, Message{Line: fset.Position(ts.Pos()).Line, Text: fmt.Sprintf("exported type %s should have a comment", ts.Name.Name)})
				}
			}
		}
	}
	return msgs
}

// checkNames reports identifiers with underscores.
func checkNames(fset *token.FileSet, file *ast.File) []Message {
	var msgs []Message
	seen := map[token.Pos]bool{}
	ast.Inspect(file, func(n ast.Node) bool {
		var idents []*ast.Ident
		switch d := n.(type) {
		case *ast.FuncDecl:
			idents = append(idents, d.Name)
		case *ast.ValueSpec:
			idents = append(idents, d.Names...)
		case *ast.TypeSpec:
			idents = append(idents, d.Name)
		case *ast.AssignStmt:
			if d.Tok == token.DEFINE {
				for _, lhs := range d.Lhs {
					if id, ok := lhs.(*ast.Ident); ok {
						idents = append(idents, id)
					}
				}
			}
		}
		for _, id := range idents {
			if seen[id.Pos()] || id.Name == "_" || !hasUnderscore(id.Name) {
				continue
			}
			seen[id.Pos()] = true
			msgs = append(msgs, Message{Line: fset.Position(id.Pos()).Line, Text: fmt.Sprintf("don't use underscores in Go names; %s", id.Name)})
		}
		return true
	})
	return msgs
}

func hasUnderscore(name string) bool {
	trimmed := strings.TrimFunc(name, func(r rune) bool { return r == '_' })
	return strings.ContainsRune(trimmed, '_') && !isAllCaps(trimmed)
}

func isAllCaps(name string) bool {
	for _, r := range name {
		if unicode.IsLower(r) {
			return false
		}
	}
	return true
}

// checkIgnoredPanics reports empty recover() calls, which swallow failures.
func checkIgnoredPanics(fset *token.FileSet, file *ast.File) []Message {
	var msgs []Message
	ast.Inspect(file, func(n ast.Node) bool {
		stmt, ok := n.(*ast.ExprStmt)
		if !ok {
			return true
		}
		call, ok := stmt.X.(*ast.CallExpr)
		if !ok {
			return true
		}
		if id, ok := call.Fun.(*ast.Ident); ok && id.Name == "recover" {
			msgs = append(msgs, Message{Line: fset.Position(call.Pos()).Line, Error: true, Text: "result of recover() is ignored"})
		}
		return true
	})
	return msgs
}

func countStatements(file *ast.File) int {
	count := 0
	ast.Inspect(file, func(n ast.Node) bool {
		switch n.(type) {
		case *ast.BlockStmt:
			// blocks are containers, not statements
		case ast.Stmt:
			count++
		case *ast.FuncDecl, *ast.GenDecl:
			count++
		}
		return true
	})
	return count
}
