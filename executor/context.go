package executor

import (
	"context"
	"time"

	"github.com/caffeineduck/goremote/closure"
	"github.com/caffeineduck/goremote/payload"
	"github.com/pkg/errors"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Submitter completes one round trip: evaluate the payload remotely and report
// the outcome with the post-evaluation bindings. engine.Host, transport.Conn,
// transport.Process and transport.HTTPClient all implement it.
type Submitter interface {
	Submit(ctx context.Context, p payload.Payload) (payload.Outcome, error)
}

// Context evaluates functions on one remote surface, sharing the variables of
// a closure scope with them. Round trips issued through one Context are not
// ordered against each other; callers wait for one to finish before starting
// the next when order matters.
type Context struct {
	remote Submitter
	scope  *closure.Scope
	cfg    config
}

// NewServer returns a context addressing the application server surface. A nil
// scope starts a fresh root.
func NewServer(remote Submitter, scope *closure.Scope, opts ...Option) *Context {
	if scope == nil {
		scope = closure.NewRoot()
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Context{remote: remote, scope: scope, cfg: cfg}
}

// NewBrowser returns a context addressing the browser surface behind server.
// It reuses the server's Submitter and scope, so a variable changed through
// either context is seen by the next round trip of the other.
func NewBrowser(server *Context, opts ...Option) *Context {
	cfg := server.cfg
	cfg.target = "browser"
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Context{remote: server.remote, scope: server.scope, cfg: cfg}
}

// WithScope returns a copy of c bound to scope, typically a Child of c's
// scope holding variables for a narrower group of tests.
func (c *Context) WithScope(scope *closure.Scope) *Context {
	cp := *c
	cp.scope = scope
	return &cp
}

// Scope returns the scope whose variables this context shares.
func (c *Context) Scope() *closure.Scope {
	return c.scope
}

// Target returns the name of the surface payloads are addressed to.
func (c *Context) Target() string {
	return c.cfg.target
}

// Execute calls fn once on the remote surface and returns its result. A throw
// is returned as *RemoteThrowError. Either way the closure variables hold the
// remote values afterwards.
func (c *Context) Execute(ctx context.Context, fn payload.Func) (ldvalue.Value, error) {
	return c.roundTrip(ctx, fn, payload.ModeExecute)
}

// Promise calls fn(resolve, reject) on the remote surface and waits until one
// of them is called or fn throws. Only the first settlement counts. There is
// no timeout besides ctx.
func (c *Context) Promise(ctx context.Context, fn payload.Func) (ldvalue.Value, error) {
	return c.roundTrip(ctx, fn, payload.ModePromise)
}

// Wait polls fn until it returns a truthy value. A throwing poll ends the
// wait with *RemoteThrowError; running out of time ends it with
// *TimeoutError carrying description. The variables are synchronized after
// every poll. A poll still running at the deadline is allowed to finish.
func (c *Context) Wait(ctx context.Context, timeout time.Duration, description string, fn payload.Func) error {
	start := time.Now()
	polls := 0
	for {
		polls++
		v, err := c.Execute(ctx, fn)
		if err != nil {
			return err
		}
		if Truthy(v) {
			return nil
		}

		elapsed := time.Since(start)
		if elapsed >= timeout {
			return &TimeoutError{Target: c.cfg.target, Description: description, Timeout: timeout, Polls: polls}
		}

		delay := min(c.cfg.pollInterval, timeout-elapsed)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (c *Context) roundTrip(ctx context.Context, fn payload.Func, mode payload.Mode) (ldvalue.Value, error) {
	p, err := payload.Marshal(fn, c.scope, payload.WithMode(mode), payload.WithTarget(c.cfg.target))
	if err != nil {
		return ldvalue.Null(), err
	}

	out, err := c.remote.Submit(ctx, p)
	if err != nil {
		return ldvalue.Null(), errors.Wrapf(err, "%s %s", c.cfg.target, mode)
	}

	syncErr := c.scope.ApplyRemote(out.Bindings)
	v, err := c.normalize(out)
	if err != nil {
		if syncErr != nil {
			c.cfg.logger.Printf("%s: %v", c.cfg.target, syncErr)
		}
		return v, err
	}
	if syncErr != nil {
		return v, errors.Wrapf(syncErr, "%s %s", c.cfg.target, mode)
	}
	return v, nil
}
