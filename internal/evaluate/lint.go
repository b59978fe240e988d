package evaluate

import (
	"context"
	"math"

	"github.com/spboyer/bagcheck/internal/checkpoint"
	"github.com/spboyer/bagcheck/internal/failures"
	"github.com/spboyer/bagcheck/internal/utils"
)

// checkLint always runs and never halts. The score is floored and clamped to
// the checkpoint's maximum.
func (s *Sequence) checkLint(ctx context.Context, st *State) (Signal, error) {
	top := float64(s.cfg.Lint.MaxScore)
	cp, err := st.add(IDLint, "No code convention violations", top)
	if err != nil {
		return Halt, err
	}

	st.Hint("The following is a report from the code convention checker ...")
	var score float64
	err = failures.Capture("scoring", func() error {
		var err error
		score, err = s.scorer.Score(ctx, utils.ResolvePath(s.cfg.Paths.Subject, s.root))
		return err
	})
	if err != nil {
		cp.FlagException()
		st.Hint("ERROR: the code convention checker failed: %v", err)
		st.Hint("The report ends here.")
		return Continue, nil
	}
	st.Hint("Your code has been rated at %s/10", checkpoint.FormatScore(score))
	st.Hint("The report ends here.")

	if math.IsNaN(score) || score < 0 {
		// Keep the bookkeeping score but render the checkpoint as exceptional.
		cp.FlagException()
		return Continue, cp.Grade(0, checkpoint.KeepFlag())
	}
	return Continue, cp.Grade(min(math.Floor(score), top))
}
