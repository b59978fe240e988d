package main

type Bag struct {
	BagWeight int
	count     int
}

func NewBag(tare float64) *Bag {
	return &Bag{BagWeight: int(tare)}
}

func (b *Bag) Add(name string, weight float64) {
	b.count++
}

func (b *Bag) Count() int {
	return b.count
}

func (b *Bag) Weight() float64 {
	panic("not implemented")
}
