package engine

import (
	"context"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// loop owns the goja runtime. Every access to the runtime happens on the
// goroutine running run; other goroutines hand work over through jobs.
type loop struct {
	vm *goja.Runtime

	jobs chan func()
	stop chan struct{}
	done chan struct{}
	once sync.Once

	// loop goroutine only
	tasks   []func()
	timers  map[int64]*timer
	nextID  int64
	current *frame

	onError func(owner *frame, err error)
}

type timer struct {
	id       int64
	fn       goja.Callable
	args     []goja.Value
	delay    time.Duration
	repeat   bool
	owner    *frame
	deadline *time.Timer
}

func newLoop(vm *goja.Runtime, queueSize int) *loop {
	return &loop{
		vm:     vm,
		jobs:   make(chan func(), queueSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		timers: make(map[int64]*timer),
	}
}

func (l *loop) run() {
	defer close(l.done)
	for {
		select {
		case job := <-l.jobs:
			job()
			l.drain()
		case <-l.stop:
			for id, t := range l.timers {
				t.deadline.Stop()
				delete(l.timers, id)
			}
			return
		}
	}
}

// enqueue hands a job to the loop. It must not be called from the loop
// goroutine; use post there. It fails with ErrClosed once the loop stops and
// with ctx.Err() when ctx is done while the queue is full.
func (l *loop) enqueue(ctx context.Context, job func()) error {
	select {
	case <-l.stop:
		return ErrClosed
	default:
	}
	select {
	case l.jobs <- job:
		return nil
	case <-l.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post schedules fn to run once the current job and everything it triggered
// synchronously has finished.
func (l *loop) post(fn func()) {
	l.tasks = append(l.tasks, fn)
}

func (l *loop) drain() {
	for len(l.tasks) > 0 {
		task := l.tasks[0]
		l.tasks = l.tasks[1:]
		task()
	}
}

func (l *loop) shutdown() {
	l.once.Do(func() {
		close(l.stop)
	})
	<-l.done
}

// call invokes fn on behalf of owner. Timers scheduled during the call
// inherit the owner.
func (l *loop) call(owner *frame, fn goja.Callable, args ...goja.Value) (goja.Value, error) {
	prev := l.current
	l.current = owner
	defer func() { l.current = prev }()
	return fn(goja.Undefined(), args...)
}

func (l *loop) setTimeout(call goja.FunctionCall) goja.Value {
	return l.schedule(call, false)
}

func (l *loop) setInterval(call goja.FunctionCall) goja.Value {
	return l.schedule(call, true)
}

func (l *loop) clearTimer(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()
	if t, ok := l.timers[id]; ok {
		t.deadline.Stop()
		delete(l.timers, id)
	}
	return goja.Undefined()
}

func (l *loop) schedule(call goja.FunctionCall, repeat bool) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(l.vm.NewTypeError("callback must be a function"))
	}
	ms := call.Argument(1).ToInteger()
	if ms < 0 {
		ms = 0
	}
	if repeat && ms < 1 {
		ms = 1
	}
	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = append(args, call.Arguments[2:]...)
	}

	l.nextID++
	t := &timer{
		id:     l.nextID,
		fn:     fn,
		args:   args,
		delay:  time.Duration(ms) * time.Millisecond,
		repeat: repeat,
		owner:  l.current,
	}
	l.timers[t.id] = t
	l.arm(t)
	return l.vm.ToValue(t.id)
}

func (l *loop) arm(t *timer) {
	t.deadline = time.AfterFunc(t.delay, func() {
		l.enqueue(context.Background(), func() { l.fire(t) })
	})
}

func (l *loop) fire(t *timer) {
	if _, ok := l.timers[t.id]; !ok {
		return
	}
	if !t.repeat {
		delete(l.timers, t.id)
	}
	if _, err := l.call(t.owner, t.fn, t.args...); err != nil && l.onError != nil {
		l.onError(t.owner, err)
	}
	if t.repeat {
		if _, ok := l.timers[t.id]; ok {
			l.arm(t)
		}
	}
}
