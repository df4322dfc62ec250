package closure

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Accessor reads and writes the driver-side storage behind one closure
// variable. Set is only called by the sync applier with the value reported by
// the remote side; a JSON null arrives as ldvalue.Null().
type Accessor interface {
	Get() any
	Set(v ldvalue.Value) error
}

// Vars maps names to pointers or Accessors for [Scope.Bind].
type Vars map[string]any

// Evaluator produces the current value of a declared name.
type Evaluator func(name string) any

// Writer stores a value reported by the remote side under name.
type Writer func(name string, v ldvalue.Value) error

type funcAccessor struct {
	name  string
	eval  Evaluator
	write Writer
}

func (a funcAccessor) Get() any { return a.eval(a.name) }

func (a funcAccessor) Set(v ldvalue.Value) error {
	if a.write == nil {
		return nil
	}
	return a.write(a.name, v)
}

type refAccessor struct {
	ptr reflect.Value
}

// Ref binds a closure variable to the Go variable p points at. Remote values
// are decoded into T through encoding/json; null resets the variable to the
// zero value of T.
func Ref[T any](p *T) Accessor {
	return refAccessor{ptr: reflect.ValueOf(p)}
}

func (r refAccessor) Get() any {
	return r.ptr.Elem().Interface()
}

func (r refAccessor) Set(v ldvalue.Value) error {
	elem := r.ptr.Elem()
	if v.IsNull() {
		elem.Set(reflect.Zero(elem.Type()))
		return nil
	}
	fresh := reflect.New(elem.Type())
	if err := json.Unmarshal([]byte(v.JSONString()), fresh.Interface()); err != nil {
		return fmt.Errorf("decode into %s: %w", elem.Type(), err)
	}
	elem.Set(fresh.Elem())
	return nil
}

// Cell is a self-contained closure variable holding a JSON value.
type Cell struct {
	mu    sync.RWMutex
	value ldvalue.Value
}

// NewCell returns a Cell initialised from v. Values that cannot be encoded as
// JSON start out as null.
func NewCell(v any) *Cell {
	return &Cell{value: toValue(v)}
}

func (c *Cell) Get() any {
	return c.Value()
}

func (c *Cell) Set(v ldvalue.Value) error {
	c.mu.Lock()
	c.value = v
	c.mu.Unlock()
	return nil
}

// Value returns the current value.
func (c *Cell) Value() ldvalue.Value {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Store replaces the current value from test code between round trips.
func (c *Cell) Store(v any) {
	c.Set(toValue(v))
}

func toValue(v any) ldvalue.Value {
	if lv, ok := v.(ldvalue.Value); ok {
		return lv
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ldvalue.Null()
	}
	var out ldvalue.Value
	if err := json.Unmarshal(data, &out); err != nil {
		return ldvalue.Null()
	}
	return out
}

// IsFunction reports whether v is a Go function value.
func IsFunction(v any) bool {
	if v == nil {
		return false
	}
	return reflect.ValueOf(v).Kind() == reflect.Func
}

func accessorFor(name string, v any) (Accessor, error) {
	if acc, ok := v.(Accessor); ok {
		if IsFunction(acc.Get()) {
			return nil, &InvalidVariableError{Name: name, Reason: ReasonFunction}
		}
		return acc, nil
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, &InvalidVariableError{Name: name, Reason: "binding must be a non-nil pointer or an Accessor"}
	}
	if IsFunction(rv.Elem().Interface()) {
		return nil, &InvalidVariableError{Name: name, Reason: ReasonFunction}
	}
	return refAccessor{ptr: rv}, nil
}
