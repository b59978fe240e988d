package subject

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"go/types"
	"log/slog"
	"os"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/spboyer/bagcheck/internal/failures"
)

const (
	DefaultTypeName    = "Bag"
	DefaultConstructor = "NewBag"
	// DefaultCallTimeout bounds loading the file and each call into it.
	DefaultCallTimeout = 10 * time.Second
)

// SourceOptions names the declarations a submitted source file must provide.
type SourceOptions struct {
	// TypeName is the container type. Defaults to [DefaultTypeName].
	TypeName string
	// Constructor is a func(float64) returning the container. Defaults to
	// [DefaultConstructor].
	Constructor string
	// CallTimeout bounds each call into the submission. Defaults to
	// [DefaultCallTimeout].
	CallTimeout time.Duration
}

func (o SourceOptions) withDefaults() SourceOptions {
	if o.TypeName == "" {
		o.TypeName = DefaultTypeName
	}
	if o.Constructor == "" {
		o.Constructor = DefaultConstructor
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	return o
}

// sourceFactory interprets a submitted Go file with yaegi. Method and field
// discovery comes from the file's AST; calls go through small adapter
// functions evaluated next to the submission, one per operation, so a missing
// or mistyped method only breaks that operation.
type sourceFactory struct {
	path     string
	opts     SourceOptions
	pkg      string
	typeExpr string
	methods  []string
	fields   []string

	interp   *interp.Interpreter
	adapters map[string]reflect.Value
	// adapterErrs holds compile errors of adapters that couldn't be built.
	adapterErrs map[string]error
	// stuck names the call that ran past CallTimeout. Its goroutine may still
	// be running inside the interpreter, so no further calls are made.
	stuck string
}

// LoadSource parses and interprets the Go file at path. A missing file is
// [failures.KindNotFound]; a file that doesn't parse or interpret is
// [failures.KindMalformed].
func LoadSource(path string, opts SourceOptions) (Factory, error) {
	opts = opts.withDefaults()

	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, failures.New("loading "+path, failures.KindNotFound, err)
		}
		return nil, failures.New("loading "+path, failures.KindUnknown, err)
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return nil, failures.New("parsing "+path, failures.KindMalformed, err)
	}

	f := &sourceFactory{
		path:        path,
		opts:        opts,
		pkg:         file.Name.Name,
		typeExpr:    constructorResult(file, opts),
		methods:     declaredMethods(file, opts.TypeName),
		fields:      declaredFields(file, opts.TypeName),
		adapters:    map[string]reflect.Value{},
		adapterErrs: map[string]error{},
	}

	// a main func would run on evaluation
	dropMain(file)
	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return nil, failures.New("printing "+path, failures.KindMalformed, err)
	}

	f.interp = interp.New(interp.Options{})
	if err := f.interp.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("loading interpreter symbols: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), opts.CallTimeout)
	defer cancel()
	err = failures.Capture("interpreting "+path, func() error {
		_, evalErr := f.interp.EvalWithContext(ctx, buf.String())
		return evalErr
	})
	if err != nil {
		if failures.Is(err, failures.KindPanic) {
			return nil, err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, failures.New("interpreting "+path, failures.KindTimeout,
				fmt.Errorf("no result after %s", opts.CallTimeout))
		}
		return nil, failures.New("interpreting "+path, failures.KindMalformed, err)
	}

	f.buildAdapters()
	return f, nil
}

func (f *sourceFactory) Methods() ([]string, error) { return f.methods, nil }
func (f *sourceFactory) Fields() ([]string, error)  { return f.fields, nil }

func (f *sourceFactory) New(tare float64) (Container, error) {
	out, err := f.invoke("New", tare)
	if err != nil {
		return nil, err
	}
	return &sourceContainer{f: f, handle: out[0]}, nil
}

// adapterSources are evaluated inside the submission's package. %[1]s is the
// container type expression returned by the constructor, %[2]s the constructor.
var adapterSources = map[string]string{
	"New":    `func BagcheckNew(tare float64) interface{} { return %[2]s(tare) }`,
	"Add":    `func BagcheckAdd(b interface{}, name string, weight float64) { b.(%[1]s).Add(name, weight) }`,
	"Remove": `func BagcheckRemove(b interface{}, name string) (string, float64) { n, w := b.(%[1]s).Remove(name); return n, float64(w) }`,
	"Weight": `func BagcheckWeight(b interface{}) float64 { return float64(b.(%[1]s).Weight()) }`,
	"Items":  `func BagcheckItems(b interface{}) []string { return b.(%[1]s).Items() }`,
	"Count":  `func BagcheckCount(b interface{}) int { return int(b.(%[1]s).Count()) }`,
	"Dump": `func BagcheckDump(b interface{}) ([]string, []float64) {
	var names []string
	var weights []float64
	for _, it := range b.(%[1]s).Dump() {
		names = append(names, it.Name)
		weights = append(weights, float64(it.Weight))
	}
	return names, weights
}`,
}

func (f *sourceFactory) buildAdapters() {
	names := make([]string, 0, len(adapterSources))
	for name := range adapterSources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		src := fmt.Sprintf("package %s\n\n%s\n", f.pkg, fmt.Sprintf(adapterSources[name], f.typeExpr, f.opts.Constructor))
		fn, err := f.evalAdapter("Bagcheck"+name, src)
		if err != nil {
			slog.Debug("Adapter unavailable", "op", name, "path", f.path, "error", err)
			f.adapterErrs[name] = err
			continue
		}
		f.adapters[name] = fn
	}
}

func (f *sourceFactory) evalAdapter(symbol, src string) (fn reflect.Value, err error) {
	err = failures.Capture("evaluating adapter", func() error {
		if _, err := f.interp.Eval(src); err != nil {
			return err
		}
		v, err := f.interp.Eval(symbol)
		if err != nil {
			v, err = f.interp.Eval(f.pkg + "." + symbol)
		}
		if err != nil {
			return err
		}
		if v.Kind() != reflect.Func {
			return fmt.Errorf("%s is %s, not a func", symbol, v.Kind())
		}
		fn = v
		return nil
	})
	return fn, err
}

// invoke calls the adapter for op with a recovered panic boundary and a
// deadline. A call that misses the deadline is abandoned and every later call
// fails with [failures.KindTimeout].
func (f *sourceFactory) invoke(op string, args ...any) ([]reflect.Value, error) {
	name := f.opts.TypeName + "." + op
	if f.stuck != "" {
		return nil, failures.New(name, failures.KindTimeout,
			fmt.Errorf("%s never returned", f.stuck))
	}
	fn, ok := f.adapters[op]
	if !ok {
		return nil, failures.New(name, failures.KindMalformed,
			fmt.Errorf("%s is missing or has an unexpected signature: %v", name, f.adapterErrs[op]))
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		if rv, ok := a.(reflect.Value); ok {
			in[i] = rv
			continue
		}
		in[i] = reflect.ValueOf(a)
	}

	type result struct {
		out []reflect.Value
		err error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		r.err = failures.Capture(name, func() error {
			r.out = fn.Call(in)
			return nil
		})
		done <- r
	}()

	timer := time.NewTimer(f.opts.CallTimeout)
	defer timer.Stop()
	select {
	case r := <-done:
		return r.out, r.err
	case <-timer.C:
		f.stuck = name
		slog.Debug("Submission call timed out", "call", name, "timeout", f.opts.CallTimeout)
		return nil, failures.New(name, failures.KindTimeout,
			fmt.Errorf("no result after %s", f.opts.CallTimeout))
	}
}

type sourceContainer struct {
	f      *sourceFactory
	handle reflect.Value
}

func (c *sourceContainer) Add(name string, weight float64) error {
	_, err := c.f.invoke("Add", c.handle, name, weight)
	return err
}

func (c *sourceContainer) Remove(name string) (Item, error) {
	out, err := c.f.invoke("Remove", c.handle, name)
	if err != nil {
		return Item{}, err
	}
	return itemFromPair(out[0], out[1])
}

func (c *sourceContainer) Weight() (float64, error) {
	out, err := c.f.invoke("Weight", c.handle)
	if err != nil {
		return 0, err
	}
	return toFloat(out[0])
}

func (c *sourceContainer) Items() ([]string, error) {
	out, err := c.f.invoke("Items", c.handle)
	if err != nil {
		return nil, err
	}
	return toStrings(out[0])
}

func (c *sourceContainer) Dump() ([]Item, error) {
	out, err := c.f.invoke("Dump", c.handle)
	if err != nil {
		return nil, err
	}
	names, err := toStrings(out[0])
	if err != nil {
		return nil, err
	}
	weights := out[1]
	if weights.Len() != len(names) {
		return nil, malformed("dump returned %d names and %d weights", len(names), weights.Len())
	}
	items := make([]Item, len(names))
	for i, n := range names {
		w, err := toFloat(weights.Index(i))
		if err != nil {
			return nil, err
		}
		items[i] = Item{Name: n, Weight: w}
	}
	return items, nil
}

func (c *sourceContainer) Count() (int, error) {
	out, err := c.f.invoke("Count", c.handle)
	if err != nil {
		return 0, err
	}
	n, err := toFloat(out[0])
	return int(n), err
}

// declaredMethods returns the names of methods whose receiver is typeName or
// *typeName.
func declaredMethods(file *ast.File, typeName string) []string {
	var names []string
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv == nil || len(fn.Recv.List) == 0 {
			continue
		}
		if receiverName(fn.Recv.List[0].Type) == typeName {
			names = append(names, fn.Name.Name)
		}
	}
	sort.Strings(names)
	return names
}

func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return receiverName(t.X)
	default:
		return ""
	}
}

// declaredFields returns the field names of struct type typeName. Embedded
// fields are reported by their type name.
func declaredFields(file *ast.File, typeName string) []string {
	var names []string
	ast.Inspect(file, func(n ast.Node) bool {
		ts, ok := n.(*ast.TypeSpec)
		if !ok || ts.Name.Name != typeName {
			return true
		}
		st, ok := ts.Type.(*ast.StructType)
		if !ok {
			return false
		}
		for _, field := range st.Fields.List {
			if len(field.Names) == 0 {
				names = append(names, strings.TrimPrefix(receiverName(field.Type), "*"))
				continue
			}
			for _, n := range field.Names {
				names = append(names, n.Name)
			}
		}
		return false
	})
	return names
}

// constructorResult returns the type expression the constructor returns,
// falling back to a pointer to the container type.
func constructorResult(file *ast.File, opts SourceOptions) string {
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil || fn.Name.Name != opts.Constructor {
			continue
		}
		if fn.Type.Results != nil && len(fn.Type.Results.List) > 0 {
			return types.ExprString(fn.Type.Results.List[0].Type)
		}
	}
	return "*" + opts.TypeName
}

func dropMain(file *ast.File) {
	if file.Name.Name != "main" {
		return
	}
	decls := file.Decls[:0]
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok && fn.Recv == nil && fn.Name.Name == "main" {
			continue
		}
		decls = append(decls, decl)
	}
	file.Decls = decls
}
