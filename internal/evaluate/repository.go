package evaluate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spboyer/bagcheck/internal/failures"
	"github.com/spboyer/bagcheck/internal/utils"
)

// checkRepository is load-bearing: nothing else can be graded without a
// repository.
func (s *Sequence) checkRepository(ctx context.Context, st *State) (Signal, error) {
	cp, err := st.add(IDValidRepo, "The submission is a valid git repository", pointsDefault)
	if err != nil {
		return Halt, err
	}

	ok, err := s.inspector.IsValidRepository(ctx, s.root)
	if err != nil {
		cp.FlagException()
		return st.halt("inspecting repository %s: %v", s.root, err), nil
	}
	if !ok {
		cp.FlagException()
		return st.halt("%s is not a git repository (it must be the top level of one)", s.root), nil
	}
	cp.GradeFull()
	return Continue, nil
}

// checkBranch requires exactly one of the accepted primary branches and checks
// it out for the remaining steps.
func (s *Sequence) checkBranch(ctx context.Context, st *State) (Signal, error) {
	accepted := s.cfg.Repository.Branches
	cp, err := st.add(IDBranchName,
		fmt.Sprintf("Git repo has exactly one primary branch (%s)", strings.Join(accepted, ", ")),
		pointsDefault)
	if err != nil {
		return Halt, err
	}

	branches, err := s.inspector.ListBranches(ctx, accepted...)
	if err != nil {
		cp.FlagException()
		return st.halt("listing branches: %v", err), nil
	}

	var present []string
	for _, b := range accepted {
		if slices.Contains(branches, b) && !slices.Contains(present, b) {
			present = append(present, b)
		}
	}
	if len(present) != 1 {
		cp.FlagException()
		if len(present) == 0 {
			return st.halt("none of the branches %s exist", strings.Join(accepted, ", ")), nil
		}
		return st.halt("you may have only one of the branches %s, found %s",
			strings.Join(accepted, ", "), strings.Join(present, ", ")), nil
	}

	cp.GradeFull()
	primary := present[0]
	if err := s.inspector.Checkout(ctx, primary); err != nil {
		cp.FlagException()
		return st.halt("git checkout failed, please check your %s branch: %v", primary, err), nil
	}
	st.PrimaryBranch = primary
	return Continue, nil
}

// checkFiles degrades gracefully: missing files cost this checkpoint only.
func (s *Sequence) checkFiles(_ context.Context, st *State) (Signal, error) {
	required := s.cfg.Paths.Required
	cp, err := st.add(IDFilenames,
		fmt.Sprintf("The repository contains %s", quoteList(required)),
		pointsDefault)
	if err != nil {
		return Halt, err
	}

	var missing []string
	for i, path := range utils.ResolvePaths(required, s.root) {
		_, err := os.Stat(path)
		switch {
		case err == nil:
		case errors.Is(err, os.ErrNotExist):
			missing = append(missing, required[i])
		default:
			cp.FlagException()
			st.Hint("ERROR: checking %s: %v", required[i], failures.New("stat", failures.KindUnknown, err))
			return Continue, nil
		}
	}

	if len(missing) > 0 {
		st.Hint("Missing required files: %s", quoteList(missing))
		return Continue, cp.Grade(0)
	}
	cp.GradeFull()
	return Continue, nil
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return strings.Join(quoted, " and ")
}
