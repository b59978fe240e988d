package evaluate

import (
	"errors"
	"slices"

	"github.com/spboyer/bagcheck/internal/subject"
)

var errBroken = errors.New("broken")

// fakeFactory builds fakeContainers with the given defects.
type fakeFactory struct {
	methods []string
	fields  []string
	newErr  error
	defects fakeContainer
}

func newFakeFactory(defects fakeContainer) *fakeFactory {
	return &fakeFactory{
		methods: []string{"Add", "Remove", "Weight", "Items", "Dump", "Count"},
		fields:  []string{"Tare", "contents"},
		defects: defects,
	}
}

func (f *fakeFactory) Methods() ([]string, error) { return f.methods, nil }
func (f *fakeFactory) Fields() ([]string, error)  { return f.fields, nil }

func (f *fakeFactory) New(tare float64) (subject.Container, error) {
	if f.newErr != nil {
		return nil, f.newErr
	}
	c := f.defects
	c.tare = tare
	c.weights = map[string]float64{}
	c.order = nil
	return &c, nil
}

// fakeContainer is a bag whose flags switch on typical student mistakes.
type fakeContainer struct {
	tare    float64
	weights map[string]float64
	order   []string
	adds    int

	ignoreTare      bool
	ignoreWeights   bool
	countDuplicates bool
	keepOnDump      bool
	keepOnRemove    bool
	extraItem       bool

	failAdd    bool
	failCount  bool
	failWeight bool
	failRemove bool
	failItems  bool
	failDump   bool
}

func (c *fakeContainer) Add(name string, weight float64) error {
	if c.failAdd {
		return errBroken
	}
	c.adds++
	if _, ok := c.weights[name]; !ok {
		c.order = append(c.order, name)
		c.weights[name] = weight
	}
	return nil
}

func (c *fakeContainer) Remove(name string) (subject.Item, error) {
	if c.failRemove {
		return subject.Item{}, errBroken
	}
	w := c.weights[name]
	if !c.keepOnRemove {
		delete(c.weights, name)
		c.order = slices.DeleteFunc(c.order, func(n string) bool { return n == name })
	}
	return subject.Item{Name: name, Weight: w}, nil
}

func (c *fakeContainer) Weight() (float64, error) {
	if c.failWeight {
		return 0, errBroken
	}
	total := 0.0
	if !c.ignoreTare {
		total += c.tare
	}
	if !c.ignoreWeights {
		for _, w := range c.weights {
			total += w
		}
	}
	return total, nil
}

func (c *fakeContainer) Items() ([]string, error) {
	if c.failItems {
		return nil, errBroken
	}
	names := slices.Clone(c.order)
	if c.extraItem {
		names = append(names, "lint")
	}
	return names, nil
}

func (c *fakeContainer) Dump() ([]subject.Item, error) {
	if c.failDump {
		return nil, errBroken
	}
	items := make([]subject.Item, 0, len(c.order))
	for _, n := range c.order {
		items = append(items, subject.Item{Name: n, Weight: c.weights[n]})
	}
	if !c.keepOnDump {
		c.weights = map[string]float64{}
		c.order = nil
	}
	return items, nil
}

func (c *fakeContainer) Count() (int, error) {
	if c.failCount {
		return 0, errBroken
	}
	if c.countDuplicates {
		return c.adds, nil
	}
	return len(c.order), nil
}
