package subject

import (
	"fmt"
	"reflect"

	"github.com/spboyer/bagcheck/internal/failures"
)

func malformed(format string, args ...any) error {
	return failures.New("converting result", failures.KindMalformed, fmt.Errorf(format, args...))
}

func toFloat(v reflect.Value) (float64, error) {
	for v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), nil
	default:
		return 0, malformed("expected a number, got %s", v.Kind())
	}
}

func toString(v reflect.Value) (string, error) {
	for v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	if v.Kind() != reflect.String {
		return "", malformed("expected a string, got %s", v.Kind())
	}
	return v.String(), nil
}

func toStrings(v reflect.Value) ([]string, error) {
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, malformed("expected a list of names, got %s", v.Kind())
	}
	out := make([]string, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		s, err := toString(v.Index(i))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func itemFromPair(name, weight reflect.Value) (Item, error) {
	n, err := toString(name)
	if err != nil {
		return Item{}, err
	}
	w, err := toFloat(weight)
	if err != nil {
		return Item{}, err
	}
	return Item{Name: n, Weight: w}, nil
}

// toItems accepts a slice of structs (or pointers to structs) with Name and
// Weight fields.
func toItems(v reflect.Value) ([]Item, error) {
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, malformed("expected a list of items, got %s", v.Kind())
	}
	out := make([]Item, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		e := v.Index(i)
		for (e.Kind() == reflect.Pointer || e.Kind() == reflect.Interface) && !e.IsNil() {
			e = e.Elem()
		}
		if e.Kind() != reflect.Struct {
			return nil, malformed("item %d is %s, expected a struct with Name and Weight", i, e.Kind())
		}
		name, weight := e.FieldByName("Name"), e.FieldByName("Weight")
		if !name.IsValid() || !weight.IsValid() {
			return nil, malformed("item %d has no Name or Weight field", i)
		}
		item, err := itemFromPair(name, weight)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
