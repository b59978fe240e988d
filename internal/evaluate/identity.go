package evaluate

import (
	"context"

	"github.com/spboyer/bagcheck/internal/checkpoint"
	"github.com/spboyer/bagcheck/internal/failures"
	"github.com/spboyer/bagcheck/internal/identity"
	"github.com/spboyer/bagcheck/internal/utils"
)

// checkIdentity grades each line of the identity file on its own. A file that
// can't be read flags all three and disables the history checks.
func (s *Sequence) checkIdentity(_ context.Context, st *State) (Signal, error) {
	file := s.cfg.Paths.Identity
	specs := []struct {
		id    string
		name  string
		field identity.Field
	}{
		{IDFullName, "The file " + file + " contains the full name on the 1st line", identity.FieldName},
		{IDEmail, "The file " + file + " contains the email address on the 2nd line", identity.FieldEmail},
		{IDStudentID, "The file " + file + " contains the student ID on the 3rd line", identity.FieldID},
	}
	cps := make([]*checkpoint.CheckPoint, len(specs))
	for i, sp := range specs {
		cp, err := st.add(sp.id, sp.name, pointsDefault)
		if err != nil {
			return Halt, err
		}
		cps[i] = cp
	}

	id, err := s.readIdentity(utils.ResolvePath(file, s.root))
	if err != nil {
		for _, cp := range cps {
			cp.FlagException()
		}
		st.IdentityFailed = true
		switch failures.Classify(err) {
		case failures.KindNotFound:
			st.Hint("ERROR: We didn't find %s.", file)
		case failures.KindMalformed:
			st.Hint("ERROR: %s must have exactly %d lines: %v", file, identity.LineCount, err)
		default:
			st.Hint("ERROR: Something went wrong during %s inspection: %v", file, err)
		}
		return Continue, nil
	}
	st.Identity = id

	verdicts := s.checks.Check(id)
	for i, sp := range specs {
		if verdicts[sp.field] {
			cps[i].GradeFull()
			continue
		}
		st.Hint("HINT : line %d of %s doesn't look like a valid %s", i+1, file, fieldLabel(sp.field))
		if err := cps[i].Grade(0); err != nil {
			return Halt, err
		}
	}
	return Continue, nil
}

func (s *Sequence) readIdentity(path string) (id *identity.Identity, err error) {
	err = failures.Capture("reading identity", func() error {
		lines, err := s.identity.ReadLines(path)
		if err != nil {
			return err
		}
		id, err = identity.FromLines(lines)
		return err
	})
	return id, err
}

func fieldLabel(f identity.Field) string {
	switch f {
	case identity.FieldName:
		return "full name"
	case identity.FieldEmail:
		return "email address"
	default:
		return "10 digit student ID"
	}
}
