package subject

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/spboyer/bagcheck/internal/failures"
)

// reflectFactory drives a compiled Go type through reflection. The constructor
// must have the shape func(float64) T.
type reflectFactory struct {
	ctor reflect.Value
	typ  reflect.Type
}

// Reflect returns a Factory for a compiled container type, such as the
// reference bag. ctor must be a func(float64) T; T's methods are looked up by
// name when called.
func Reflect(ctor any) (Factory, error) {
	v := reflect.ValueOf(ctor)
	t := v.Type()
	if t.Kind() != reflect.Func || t.NumIn() != 1 || t.In(0).Kind() != reflect.Float64 || t.NumOut() != 1 {
		return nil, fmt.Errorf("constructor must be func(float64) T, got %s", t)
	}
	return &reflectFactory{ctor: v, typ: t.Out(0)}, nil
}

func (f *reflectFactory) Methods() ([]string, error) {
	names := make([]string, 0, f.typ.NumMethod())
	for i := 0; i < f.typ.NumMethod(); i++ {
		names = append(names, f.typ.Method(i).Name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *reflectFactory) Fields() ([]string, error) {
	t := f.typ
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, nil
	}
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		names = append(names, t.Field(i).Name)
	}
	return names, nil
}

func (f *reflectFactory) New(tare float64) (Container, error) {
	var out []reflect.Value
	err := failures.Capture("New", func() error {
		out = f.ctor.Call([]reflect.Value{reflect.ValueOf(tare).Convert(f.ctor.Type().In(0))})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reflectContainer{v: out[0]}, nil
}

type reflectContainer struct {
	v reflect.Value
}

// call invokes the named method. A missing method or wrong arity is
// [failures.KindMalformed].
func (c *reflectContainer) call(name string, want int, args ...any) ([]reflect.Value, error) {
	m := c.v.MethodByName(name)
	if !m.IsValid() {
		return nil, failures.New(name, failures.KindMalformed, fmt.Errorf("method %s not found", name))
	}
	mt := m.Type()
	if mt.NumIn() != len(args) {
		return nil, failures.New(name, failures.KindMalformed, fmt.Errorf("%s takes %d arguments, expected %d", name, mt.NumIn(), len(args)))
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		av := reflect.ValueOf(a)
		if !av.Type().ConvertibleTo(mt.In(i)) {
			return nil, failures.New(name, failures.KindMalformed, fmt.Errorf("%s argument %d is %s", name, i, mt.In(i)))
		}
		in[i] = av.Convert(mt.In(i))
	}
	var out []reflect.Value
	err := failures.Capture(name, func() error {
		out = m.Call(in)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) < want {
		return nil, failures.New(name, failures.KindMalformed, fmt.Errorf("%s returns %d values, expected %d", name, len(out), want))
	}
	return out, nil
}

func (c *reflectContainer) Add(name string, weight float64) error {
	_, err := c.call("Add", 0, name, weight)
	return err
}

func (c *reflectContainer) Remove(name string) (Item, error) {
	out, err := c.call("Remove", 2, name)
	if err != nil {
		return Item{}, err
	}
	return itemFromPair(out[0], out[1])
}

func (c *reflectContainer) Weight() (float64, error) {
	out, err := c.call("Weight", 1)
	if err != nil {
		return 0, err
	}
	return toFloat(out[0])
}

func (c *reflectContainer) Items() ([]string, error) {
	out, err := c.call("Items", 1)
	if err != nil {
		return nil, err
	}
	return toStrings(out[0])
}

func (c *reflectContainer) Dump() ([]Item, error) {
	out, err := c.call("Dump", 1)
	if err != nil {
		return nil, err
	}
	return toItems(out[0])
}

func (c *reflectContainer) Count() (int, error) {
	out, err := c.call("Count", 1)
	if err != nil {
		return 0, err
	}
	n, err := toFloat(out[0])
	return int(n), err
}
