package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/caffeineduck/goremote/closure"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// ErrEmptySource is returned when a Func has no source text.
var ErrEmptySource = errors.New("payload: empty function source")

const maxDepth = 64

var jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()

// Option configures Marshal.
type Option func(*Payload)

// WithMode sets the round trip mode. The default is ModeExecute.
func WithMode(m Mode) Option {
	return func(p *Payload) {
		p.Mode = m
	}
}

// WithTarget names the evaluation surface the payload is meant for.
func WithTarget(target string) Option {
	return func(p *Payload) {
		p.Target = target
	}
}

// Marshal packages fn with a snapshot of the effective bindings of scope.
// Every value must be representable as JSON; a function value fails with a
// *closure.InvalidVariableError before anything is sent.
func Marshal(fn Func, scope *closure.Scope, opts ...Option) (Payload, error) {
	if strings.TrimSpace(string(fn)) == "" {
		return Payload{}, ErrEmptySource
	}

	p := Payload{
		Mode:     ModeExecute,
		Source:   string(fn),
		Bindings: make(map[string]ldvalue.Value),
	}
	for _, opt := range opts {
		opt(&p)
	}

	if scope == nil {
		return p, nil
	}
	for name, raw := range scope.Snapshot() {
		v, err := Encode(name, raw)
		if err != nil {
			return Payload{}, err
		}
		p.Bindings[name] = v
	}
	return p, nil
}

// Encode validates raw and converts it to a JSON value.
func Encode(name string, raw any) (ldvalue.Value, error) {
	if v, ok := raw.(ldvalue.Value); ok {
		return v, nil
	}
	if err := validate(name, reflect.ValueOf(raw), 0); err != nil {
		return ldvalue.Null(), err
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return ldvalue.Null(), &closure.InvalidVariableError{Name: name, Reason: err.Error()}
	}
	var v ldvalue.Value
	if err := json.Unmarshal(data, &v); err != nil {
		return ldvalue.Null(), &closure.InvalidVariableError{Name: name, Reason: err.Error()}
	}
	return v, nil
}

func validate(name string, v reflect.Value, depth int) error {
	if !v.IsValid() {
		return nil
	}
	if depth > maxDepth {
		return &closure.InvalidVariableError{Name: name, Reason: "value is nested too deeply"}
	}
	if v.Type().Implements(jsonMarshalerType) {
		return nil
	}

	switch v.Kind() {
	case reflect.Func:
		return &closure.InvalidVariableError{Name: name, Reason: closure.ReasonFunction}
	case reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return &closure.InvalidVariableError{
			Name:   name,
			Reason: fmt.Sprintf("cannot use a %s as a closure variable", v.Kind()),
		}
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return validate(name, v.Elem(), depth+1)
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := validate(name, v.Index(i), depth+1); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := validate(name, iter.Value(), depth+1); err != nil {
				return err
			}
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			if err := validate(name, v.Field(i), depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
