package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caffeineduck/goremote/hostfunc"
	"github.com/dop251/goja"
)

const encodeScript = `(function () {
  function replacer(key, value) {
    if (value === undefined || typeof value === "function" || typeof value === "symbol") {
      return null;
    }
    return value;
  }
  return function (value) {
    return JSON.stringify(value, replacer);
  };
})()`

var consoleLevels = []string{"log", "info", "warn", "error", "debug"}

func (e *Engine) installGlobals() error {
	vm := e.vm

	timers := map[string]func(goja.FunctionCall) goja.Value{
		"setTimeout":    e.loop.setTimeout,
		"setInterval":   e.loop.setInterval,
		"clearTimeout":  e.loop.clearTimer,
		"clearInterval": e.loop.clearTimer,
	}
	for name, fn := range timers {
		if err := vm.Set(name, fn); err != nil {
			return err
		}
	}

	console := vm.NewObject()
	for _, level := range consoleLevels {
		level := level
		err := console.Set(level, func(call goja.FunctionCall) goja.Value {
			parts := make([]string, 0, len(call.Arguments))
			for _, arg := range call.Arguments {
				parts = append(parts, safeString(arg))
			}
			e.cfg.logger.Printf("[%s] console.%s: %s", e.Name(), level, strings.Join(parts, " "))
			return goja.Undefined()
		})
		if err != nil {
			return err
		}
	}
	if err := vm.Set("console", console); err != nil {
		return err
	}

	registry := hostfunc.NewRegistry()
	registry.Register("time_now", func(ctx context.Context, args map[string]any) (any, error) {
		return float64(time.Now().UnixNano()) / 1e9, nil
	})
	if e.cfg.registry != nil {
		for name, fn := range e.cfg.registry.All() {
			registry.Register(name, fn)
		}
	}
	for name, fn := range registry.All() {
		if err := vm.Set(name, e.hostFunc(name, fn)); err != nil {
			return err
		}
	}

	encoder, err := vm.RunScript("encode.js", encodeScript)
	if err != nil {
		return err
	}
	fn, ok := goja.AssertFunction(encoder)
	if !ok {
		return errors.New("encoder is not a function")
	}
	e.encodeFn = fn
	return nil
}

// hostFunc exposes fn to scripts. Scripts pass a single options object; a Go
// error is thrown as a JavaScript exception.
func (e *Engine) hostFunc(name string, fn hostfunc.Func) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		args := map[string]any{}
		if exported, ok := call.Argument(0).Export().(map[string]interface{}); ok {
			args = exported
		}
		result, err := fn(e.ctx, args)
		if err != nil {
			panic(e.vm.NewGoError(fmt.Errorf("%s: %w", name, err)))
		}
		return e.vm.ToValue(result)
	}
}
