package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/caffeineduck/goremote/closure"
	"github.com/caffeineduck/goremote/payload"
	"github.com/dop251/goja"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// frame is the remote half of one round trip. It is only touched on the loop
// goroutine, except for done.
type frame struct {
	mode    payload.Mode
	names   []string
	read    goja.Callable
	settled bool
	outcome payload.Outcome
	done    chan payload.Outcome
}

func newFrame(mode payload.Mode) *frame {
	return &frame{mode: mode, done: make(chan payload.Outcome, 1)}
}

func (e *Engine) start(f *frame, p payload.Payload) {
	fn, err := e.prepare(f, p)
	if err != nil {
		e.settleThrown(f, describe(err))
		return
	}

	if p.Mode == payload.ModePromise {
		resolve := e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			e.settleValue(f, call.Argument(0))
			return goja.Undefined()
		})
		reject := e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			e.settleThrown(f, safeString(call.Argument(0)))
			return goja.Undefined()
		})
		if _, err := e.loop.call(f, fn, resolve, reject); err != nil {
			e.settleThrown(f, describe(err))
		}
		return
	}

	v, err := e.loop.call(f, fn)
	if err != nil {
		e.settleThrown(f, describe(err))
		return
	}
	e.settleValue(f, v)
}

// prepare declares the bindings in a fresh function scope and evaluates the
// payload source inside it.
func (e *Engine) prepare(f *frame, p payload.Payload) (goja.Callable, error) {
	names := make([]string, 0, len(p.Bindings))
	for name := range p.Bindings {
		if !closure.ValidName(name) {
			return nil, fmt.Errorf("invalid closure variable name %q", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	bindings, err := json.Marshal(p.Bindings)
	if err != nil {
		return nil, fmt.Errorf("encode bindings: %w", err)
	}

	factory, err := e.vm.RunScript("payload.js", frameSource(names, p.Source))
	if err != nil {
		return nil, err
	}
	build, ok := goja.AssertFunction(factory)
	if !ok {
		return nil, errors.New("payload factory is not a function")
	}
	parts, err := build(goja.Undefined(), e.vm.ToValue(string(bindings)))
	if err != nil {
		return nil, err
	}
	obj := parts.ToObject(e.vm)

	read, ok := goja.AssertFunction(obj.Get("1"))
	if !ok {
		return nil, errors.New("payload reader is not a function")
	}
	f.names = names
	f.read = read

	fn, ok := goja.AssertFunction(obj.Get("0"))
	if !ok {
		return nil, errors.New("TypeError: payload source is not a function")
	}
	return fn, nil
}

func frameSource(names []string, source string) string {
	source = strings.TrimRight(strings.TrimSpace(source), ";")

	var b strings.Builder
	b.WriteString("(function (__goremote_json) {\n")
	b.WriteString("var __goremote_bindings = JSON.parse(__goremote_json);\n")
	for _, name := range names {
		fmt.Fprintf(&b, "var %s = __goremote_bindings[%q];\n", name, name)
	}
	b.WriteString("return [(\n")
	b.WriteString(source)
	b.WriteString("\n), function () { return {")
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "[%q]: %s", name, name)
	}
	b.WriteString("}; }];\n})")
	return b.String()
}

func (e *Engine) settleValue(f *frame, v goja.Value) {
	if f.settled {
		e.cfg.logger.Printf("[%s] late resolve ignored", e.Name())
		return
	}
	f.settled = true
	value, err := e.encode(v)
	if err != nil {
		f.outcome = payload.Thrown("cannot encode result: "+describe(err), nil)
	} else {
		f.outcome = payload.Returned(value, nil)
	}
	e.loop.post(func() { e.flush(f) })
}

func (e *Engine) settleThrown(f *frame, description string) {
	if f.settled {
		e.cfg.logger.Printf("[%s] late rejection ignored: %s", e.Name(), description)
		return
	}
	f.settled = true
	f.outcome = payload.Thrown(description, nil)
	e.loop.post(func() { e.flush(f) })
}

// flush runs after the settling job finished, so mutations made right after
// resolve or reject in the same tick are part of the snapshot.
func (e *Engine) flush(f *frame) {
	out := f.outcome
	out.Bindings = e.readBindings(f)
	f.done <- out
}

func (e *Engine) readBindings(f *frame) map[string]ldvalue.Value {
	if f.read == nil {
		return nil
	}
	current, err := f.read(goja.Undefined())
	if err != nil {
		e.cfg.logger.Printf("[%s] read closure variables: %s", e.Name(), describe(err))
		return nil
	}
	obj := current.ToObject(e.vm)
	bindings := make(map[string]ldvalue.Value, len(f.names))
	for _, name := range f.names {
		v, err := e.encode(obj.Get(name))
		if err != nil {
			e.cfg.logger.Printf("[%s] closure variable %q not synchronized: %s", e.Name(), name, describe(err))
			continue
		}
		bindings[name] = v
	}
	return bindings
}

func (e *Engine) encode(v goja.Value) (ldvalue.Value, error) {
	if v == nil {
		v = goja.Undefined()
	}
	encoded, err := e.encodeFn(goja.Undefined(), v)
	if err != nil {
		return ldvalue.Null(), err
	}
	var out ldvalue.Value
	if goja.IsUndefined(encoded) {
		return out, nil
	}
	if err := json.Unmarshal([]byte(encoded.String()), &out); err != nil {
		return ldvalue.Null(), err
	}
	return out, nil
}

// callbackFailed handles an exception thrown by a timer callback. It rejects
// the round trip that scheduled the callback if that is still pending.
func (e *Engine) callbackFailed(owner *frame, err error) {
	if owner != nil && !owner.settled {
		e.settleThrown(owner, describe(err))
		return
	}
	e.cfg.logger.Printf("[%s] uncaught error in callback: %s", e.Name(), describe(err))
}

func describe(err error) string {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		if v := exc.Value(); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
			return safeString(v)
		}
	}
	return err.Error()
}

func safeString(v goja.Value) (s string) {
	if v == nil {
		return "undefined"
	}
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("%v", v.Export())
		}
	}()
	return v.String()
}
