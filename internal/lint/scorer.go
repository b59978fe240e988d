// Package lint scores the code quality of a submitted file on a 0 to 10 scale.
package lint

import (
	"context"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// MaxScore is the top of the scale every scorer reports on.
const MaxScore = 10.0

type Kind string

const (
	// KindBuiltin analyzes Go source in process.
	KindBuiltin Kind = "builtin"
	// KindProgram runs an external command that prints the score.
	KindProgram Kind = "program"
)

// Scorer rates a file. Scores may fall outside [0, MaxScore] when the tool
// does; callers clamp.
type Scorer interface {
	Kind() Kind
	Score(ctx context.Context, target string) (float64, error)
}

// Create builds a scorer from its configured kind and parameters.
func Create(kind Kind, params map[string]any) (Scorer, error) {
	switch kind {
	case "", KindBuiltin:
		var v struct {
			MaxLineLength int `mapstructure:"max_line_length"`
		}
		if err := mapstructure.Decode(params, &v); err != nil {
			return nil, err
		}
		return NewBuiltinScorer(BuiltinScorerArgs{MaxLineLength: v.MaxLineLength}), nil
	case KindProgram:
		var v ProgramScorerArgs
		if err := mapstructure.Decode(params, &v); err != nil {
			return nil, err
		}
		return NewProgramScorer(v)
	default:
		return nil, fmt.Errorf("'%s' is not a valid scorer kind", kind)
	}
}
