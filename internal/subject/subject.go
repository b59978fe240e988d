// Package subject adapts a submitted container implementation (the "bag") to
// the operations the evaluation sequence observes. Every call is guarded:
// panics raised by the submission come back as [failures.KindPanic] errors.
package subject

// Item is one named, weighted entry of a container.
type Item struct {
	Name   string
	Weight float64
}

// Container is the behaviour graded on a submission.
type Container interface {
	Add(name string, weight float64) error
	Remove(name string) (Item, error)
	Weight() (float64, error)
	Items() ([]string, error)
	// Dump empties the container and returns what it held.
	Dump() ([]Item, error)
	Count() (int, error)
}

// Factory builds containers and describes the type behind them.
type Factory interface {
	// Methods lists the method names declared on the container type.
	Methods() ([]string, error)
	// Fields lists the struct field names declared on the container type.
	Fields() ([]string, error)
	// New constructs an empty container with the given tare weight.
	New(tare float64) (Container, error)
}
