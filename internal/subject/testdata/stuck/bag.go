package main

import "time"

type Bag struct {
	tare  float64
	count int
}

func NewBag(tare float64) *Bag {
	return &Bag{tare: tare}
}

func (b *Bag) Add(name string, weight float64) {
	if name == "stuck" {
		time.Sleep(time.Minute)
	}
	b.count++
}

func (b *Bag) Count() int {
	return b.count
}
