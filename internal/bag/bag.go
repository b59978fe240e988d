// Package bag is the reference Bag of Holding: a container of uniquely named,
// weighted items with a tare weight. Instructors grade it to check the
// harness itself.
package bag

import "fmt"

// Item is one entry in a Bag.
type Item struct {
	Name   string
	Weight float64
}

// Bag holds items by name. Adding a name that's already present does nothing.
type Bag struct {
	tare  float64
	order []string
	items map[string]float64
}

// NewBag returns an empty Bag whose own weight is tare.
func NewBag(tare float64) *Bag {
	return &Bag{tare: tare, items: map[string]float64{}}
}

// Add puts an item in the bag unless one with the same (case-sensitive) name
// is already there.
func (b *Bag) Add(name string, weight float64) {
	if _, ok := b.items[name]; ok {
		return
	}
	b.items[name] = weight
	b.order = append(b.order, name)
}

// AddMany adds every item in order.
func (b *Bag) AddMany(items []Item) {
	for _, it := range items {
		b.Add(it.Name, it.Weight)
	}
}

// Remove takes the named item out and returns it. It panics if the item isn't
// in the bag.
func (b *Bag) Remove(name string) (string, float64) {
	w, ok := b.items[name]
	if !ok {
		panic(fmt.Sprintf("bag: no item named %q", name))
	}
	delete(b.items, name)
	for i, n := range b.order {
		if n == name {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return name, w
}

// RemoveMany removes each named item and returns them in the same order.
func (b *Bag) RemoveMany(names []string) []Item {
	out := make([]Item, 0, len(names))
	for _, n := range names {
		name, w := b.Remove(n)
		out = append(out, Item{Name: name, Weight: w})
	}
	return out
}

// Weight is the gross weight: the tare plus every item.
func (b *Bag) Weight() float64 {
	total := b.tare
	for _, n := range b.order {
		total += b.items[n]
	}
	return total
}

// Items returns the item names in insertion order.
func (b *Bag) Items() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Dump empties the bag and returns everything it held.
func (b *Bag) Dump() []Item {
	out := make([]Item, 0, len(b.order))
	for _, n := range b.order {
		out = append(out, Item{Name: n, Weight: b.items[n]})
	}
	b.order = nil
	b.items = map[string]float64{}
	return out
}

func (b *Bag) Count() int {
	return len(b.order)
}
