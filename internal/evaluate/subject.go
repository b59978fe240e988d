package evaluate

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spboyer/bagcheck/internal/checkpoint"
	"github.com/spboyer/bagcheck/internal/failures"
	"github.com/spboyer/bagcheck/internal/subject"
	"github.com/spboyer/bagcheck/internal/utils"
)

// checkStructure loads the submission and compares its declarations with the
// required methods and fields.
func (s *Sequence) checkStructure(_ context.Context, st *State) (Signal, error) {
	typ := s.cfg.Subject.Type
	methods, err := st.add(IDMethods, "The "+typ+" type has all the required methods", pointsDefault)
	if err != nil {
		return Halt, err
	}
	fields, err := st.add(IDFields, "The "+typ+" type has all the required fields", pointsDefault)
	if err != nil {
		return Halt, err
	}
	ctor, err := st.add(IDInit, "The "+s.cfg.Subject.Constructor+" constructor is implemented correctly", pointsDefault)
	if err != nil {
		return Halt, err
	}

	path := utils.ResolvePath(s.cfg.Paths.Subject, s.root)
	var f subject.Factory
	err = failures.Capture("loading subject", func() error {
		var err error
		f, err = s.loadSubject(path)
		return err
	})
	if err != nil {
		methods.FlagException()
		fields.FlagException()
		ctor.FlagException()
		st.SubjectUnavailable = true
		st.Hint("ERROR: Couldn't load %s: %v", s.cfg.Paths.Subject, err)
		st.Hint("       None of the %s behaviour can be tested.", typ)
		return Continue, nil
	}
	st.Factory = f

	if err := gradeDeclared(st, methods, "methods", f.Methods, s.cfg.Subject.Methods, false); err != nil {
		return Halt, err
	}
	if err := gradeDeclared(st, fields, "fields", f.Fields, s.cfg.Subject.Fields, true); err != nil {
		return Halt, err
	}

	if _, err := f.New(0); err != nil {
		ctor.FlagException()
		st.Hint("ERROR: %s failed: %v", s.cfg.Subject.Constructor, err)
		return Continue, nil
	}
	ctor.GradeFull()
	return Continue, nil
}

func gradeDeclared(st *State, cp *checkpoint.CheckPoint, what string, list func() ([]string, error), required []string, fold bool) error {
	found, err := list()
	if err != nil {
		cp.FlagException()
		st.Hint("ERROR: listing %s: %v", what, err)
		return nil
	}
	var missing []string
	for _, r := range required {
		if !slices.ContainsFunc(found, func(f string) bool {
			return f == r || (fold && strings.EqualFold(f, r))
		}) {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		st.Hint("HINT : missing %s: %s", what, strings.Join(missing, ", "))
		return cp.Grade(0)
	}
	cp.GradeFull()
	return nil
}

// checkAddCount grades adding through bulk and duplicate inserts. It sets
// AddPassed when every duplicate insert succeeded.
func (s *Sequence) checkAddCount(_ context.Context, st *State) (Signal, error) {
	add, err := st.add(IDAdd, "The Add method is implemented correctly", pointsDefault)
	if err != nil {
		return Halt, err
	}
	count, err := st.add(IDCount, "The Count method is implemented correctly", pointsDefault)
	if err != nil {
		return Halt, err
	}
	if st.SubjectUnavailable {
		add.FlagException()
		count.FlagException()
		return Continue, nil
	}

	c, err := st.Factory.New(0)
	if err != nil {
		add.FlagException()
		st.Hint("ERROR: Couldn't construct an empty container: %v", err)
		return Continue, nil
	}
	for i := range bulkAddCount {
		if err := c.Add(fmt.Sprintf("stick%d", i), float64(i)); err != nil {
			add.FlagException()
			st.Hint("ERROR: Add failed: %v", err)
			st.Hint("       Please know that the Count method now cannot be tested.")
			return Continue, nil
		}
	}
	n, err := c.Count()
	if err != nil {
		count.FlagException()
		st.Hint("ERROR: Count failed: %v", err)
		st.Hint("       Neither Add nor Count can be scored. Please recheck.")
		return Continue, nil
	}
	if n == bulkAddCount {
		if err := add.Grade(pointsPartial); err != nil {
			return Halt, err
		}
		count.GradeFull()
	} else {
		st.Hint("HINT : Count returned %d after adding %d distinct items.", n, bulkAddCount)
		if err := count.Grade(0); err != nil {
			return Halt, err
		}
	}

	c, err = st.Factory.New(0)
	if err != nil {
		add.FlagException()
		st.Hint("ERROR: Couldn't construct an empty container: %v", err)
		return Continue, nil
	}
	for range duplicateAdds {
		if err := c.Add(duplicateName, duplicateGrams); err != nil {
			add.FlagException()
			st.Hint("ERROR: Add failed: %v", err)
			st.Hint("HINT : This happened while trying to add multiples of the same item.")
			return Continue, nil
		}
	}
	st.AddPassed = true

	n, err = c.Count()
	switch {
	case err != nil:
		add.FlagException()
		st.Hint("ERROR: Count failed after duplicate adds: %v", err)
	case n == 1:
		add.GradeFull()
	default:
		st.Hint("HINT : Adding %q %d times should leave one item, Count returned %d.", duplicateName, duplicateAdds, n)
		if add.Status() == checkpoint.StatusUngraded {
			return Continue, add.Grade(0)
		}
	}
	return Continue, nil
}

// weightCandidates are the observed totals a weighing of 1000 items of 1 on a
// tare of 20 can produce, with the hint for each partial implementation.
var weightCandidates = []struct {
	total  float64
	points float64
	hint   string
}{
	{weighTare + weighCount*weighItem, pointsDefault, ""},
	{weighCount * weighItem, pointsPartial, "HINT : Did you implement the tare weight correctly?"},
	{weighTare, pointsPartial, "HINT : Did you implement the item weight correctly?"},
}

// checkRemoveWeight weighs a loaded container, then removes every item.
func (s *Sequence) checkRemoveWeight(_ context.Context, st *State) (Signal, error) {
	remove, err := st.add(IDRemove, "The Remove method is implemented correctly", pointsDefault)
	if err != nil {
		return Halt, err
	}
	weight, err := st.add(IDWeight, "The Weight method is implemented correctly", pointsDefault)
	if err != nil {
		return Halt, err
	}
	if st.SubjectUnavailable {
		remove.FlagException()
		weight.FlagException()
		return Continue, nil
	}
	if !st.AddPassed {
		return Continue, nil
	}

	c, err := st.Factory.New(weighTare)
	if err != nil {
		remove.FlagException()
		weight.FlagException()
		st.Hint("ERROR: Couldn't construct a container with tare %v: %v", weighTare, err)
		return Continue, nil
	}
	for i := range weighCount {
		if err := c.Add(fmt.Sprint(i), weighItem); err != nil {
			remove.FlagException()
			weight.FlagException()
			st.Hint("ERROR: Add failed while loading %d items: %v", weighCount, err)
			return Continue, nil
		}
	}

	total, err := c.Weight()
	if err != nil {
		weight.FlagException()
		st.Hint("HINT : Your code died somewhere around the Weight test: %v", err)
	} else if err := gradeWeight(st, weight, total); err != nil {
		return Halt, err
	}

	for i := range weighCount {
		if _, err := c.Remove(fmt.Sprint(i)); err != nil {
			remove.FlagException()
			st.Hint("HINT : Did you get your reference right when removing items? %v", err)
			return Continue, nil
		}
	}
	n, err := c.Count()
	if err != nil {
		remove.FlagException()
		st.Hint("ERROR: Count failed after removing every item: %v", err)
		return Continue, nil
	}
	if n != 0 {
		st.Hint("HINT : %d items remain after removing every item.", n)
		return Continue, remove.Grade(0)
	}
	remove.GradeFull()
	return Continue, nil
}

func gradeWeight(st *State, cp *checkpoint.CheckPoint, total float64) error {
	for _, c := range weightCandidates {
		if total != c.total {
			continue
		}
		if c.hint != "" {
			st.Hint("%s", c.hint)
		}
		return cp.Grade(c.points)
	}
	st.Hint("HINT : Weight returned %s, expected %s.",
		checkpoint.FormatScore(total), checkpoint.FormatScore(weightCandidates[0].total))
	return cp.Grade(0)
}

// checkItems lists a small container.
func (s *Sequence) checkItems(_ context.Context, st *State) (Signal, error) {
	cp, err := st.add(IDItems, "The Items method is implemented correctly", pointsDefault)
	if err != nil {
		return Halt, err
	}
	if st.SubjectUnavailable {
		cp.FlagException()
		return Continue, nil
	}
	if !st.AddPassed {
		return Continue, nil
	}

	want := []string{"cheese", "egg", "potion"}
	got, err := func() ([]string, error) {
		c, err := st.Factory.New(0)
		if err != nil {
			return nil, err
		}
		for _, it := range []subject.Item{{Name: "potion", Weight: 3}, {Name: "egg", Weight: 0.2}, {Name: "cheese", Weight: 15}} {
			if err := c.Add(it.Name, it.Weight); err != nil {
				return nil, err
			}
		}
		return c.Items()
	}()
	if err != nil {
		cp.FlagException()
		st.Hint("ERROR: Your code died somewhere around the Items test: %v", err)
		return Continue, nil
	}

	got = slices.Clone(got)
	slices.Sort(got)
	if !slices.Equal(got, want) {
		st.Hint("HINT : Items returned %v, expected %v in any order.", got, want)
		return Continue, cp.Grade(0)
	}
	cp.GradeFull()
	return Continue, nil
}

// checkDump empties a large container.
func (s *Sequence) checkDump(_ context.Context, st *State) (Signal, error) {
	cp, err := st.add(IDDump, "The Dump method is implemented correctly", pointsDefault)
	if err != nil {
		return Halt, err
	}
	if st.SubjectUnavailable {
		cp.FlagException()
		return Continue, nil
	}
	if !st.AddPassed {
		return Continue, nil
	}

	n, err := func() (int, error) {
		c, err := st.Factory.New(0)
		if err != nil {
			return 0, err
		}
		for i := range dumpCount {
			if err := c.Add(fmt.Sprint(i), 1); err != nil {
				return 0, err
			}
		}
		if _, err := c.Dump(); err != nil {
			return 0, err
		}
		return c.Count()
	}()
	if err != nil {
		cp.FlagException()
		st.Hint("ERROR: Your code died somewhere around the Dump test: %v", err)
		return Continue, nil
	}
	if n != 0 {
		st.Hint("HINT : %d items remain after Dump.", n)
		return Continue, cp.Grade(0)
	}
	cp.GradeFull()
	return Continue, nil
}
