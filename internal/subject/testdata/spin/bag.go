package main

import "time"

var ready = wait()

func wait() bool {
	time.Sleep(time.Minute)
	return true
}

type Bag struct{}

func NewBag(tare float64) *Bag {
	return &Bag{}
}
