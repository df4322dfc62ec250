package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/caffeineduck/goremote/payload"
	"github.com/dop251/goja"
)

// ErrClosed is returned by Submit once the engine has been closed.
var ErrClosed = errors.New("engine closed")

// Engine is one evaluation surface: a JavaScript runtime with its own global
// environment and event loop.
type Engine struct {
	surface Surface
	cfg     config

	vm       *goja.Runtime
	loop     *loop
	encodeFn goja.Callable

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New starts an engine for surface.
func New(surface Surface, opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		surface: surface,
		cfg:     cfg,
		vm:      vm,
		loop:    newLoop(vm, cfg.queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	e.loop.onError = e.callbackFailed

	if err := e.installGlobals(); err != nil {
		cancel()
		return nil, fmt.Errorf("install globals: %w", err)
	}
	if prelude := surface.Prelude(); prelude != "" {
		if _, err := vm.RunScript(surface.Name()+"-prelude.js", prelude); err != nil {
			cancel()
			return nil, fmt.Errorf("run %s prelude: %w", surface.Name(), err)
		}
	}

	go e.loop.run()
	return e, nil
}

// Name returns the surface name.
func (e *Engine) Name() string {
	return e.surface.Name()
}

// Submit evaluates p and waits for its outcome. Cancelling ctx only stops
// the wait; the evaluation itself keeps running.
func (e *Engine) Submit(ctx context.Context, p payload.Payload) (payload.Outcome, error) {
	switch p.Mode {
	case "", payload.ModeExecute, payload.ModePromise:
	default:
		return payload.Outcome{}, fmt.Errorf("unknown mode %q", p.Mode)
	}

	f := newFrame(p.Mode)
	if err := e.loop.enqueue(ctx, func() { e.start(f, p) }); err != nil {
		return payload.Outcome{}, err
	}

	select {
	case out := <-f.done:
		return out, nil
	case <-ctx.Done():
		return payload.Outcome{}, ctx.Err()
	case <-e.loop.done:
		select {
		case out := <-f.done:
			return out, nil
		default:
			return payload.Outcome{}, ErrClosed
		}
	}
}

// Close interrupts any running script and stops the event loop. Pending
// promise round trips never settle.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.vm.Interrupt(ErrClosed)
		e.cancel()
		e.loop.shutdown()
	})
	return nil
}
