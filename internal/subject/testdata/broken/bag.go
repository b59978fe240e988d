package main

type Bag struct {

func NewBag(tare float64) *Bag {
