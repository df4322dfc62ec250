package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/caffeineduck/goremote/payload"
	"github.com/pkg/errors"
)

var (
	ErrClosed       = errors.New("transport closed")
	ErrReadyTimeout = errors.New("agent did not become ready")
)

// RemoteError is an agent's refusal to run a payload, as opposed to a payload
// that ran and threw.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "agent: " + e.Message
}

// Conn is the driver side of the stream protocol. It multiplexes concurrent
// round trips over one reader/writer pair.
type Conn struct {
	cfg    config
	out    *lineWriter
	closer io.Closer

	mu      sync.Mutex
	pending map[string]chan message
	nextID  uint64
	err     error

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	doneOnce  sync.Once
}

// NewConn starts reading agent messages from r. If w is an io.Closer, Close
// closes it, which tells a Serve loop on the other end to stop.
func NewConn(r io.Reader, w io.Writer, opts ...Option) *Conn {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Conn{
		cfg:     cfg,
		out:     &lineWriter{w: w},
		pending: make(map[string]chan message),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	if closer, ok := w.(io.Closer); ok {
		c.closer = closer
	}
	go c.readLoop(r)
	return c
}

// WaitReady blocks until the agent has announced itself.
func (c *Conn) WaitReady(ctx context.Context) error {
	timer := time.NewTimer(c.cfg.readyTimeout)
	defer timer.Stop()

	select {
	case <-c.ready:
		return nil
	case <-c.done:
		return c.closedErr()
	case <-timer.C:
		return errors.Wrapf(ErrReadyTimeout, "after %v", c.cfg.readyTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit sends p to the agent and waits for its outcome.
func (c *Conn) Submit(ctx context.Context, p payload.Payload) (payload.Outcome, error) {
	if err := c.WaitReady(ctx); err != nil {
		return payload.Outcome{}, err
	}

	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return payload.Outcome{}, c.closedErr()
	}
	c.nextID++
	id := strconv.FormatUint(c.nextID, 10)
	reply := make(chan message, 1)
	c.pending[id] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.out.write(message{Type: typeSubmit, ID: id, Payload: &p}); err != nil {
		return payload.Outcome{}, errors.Wrap(err, "send payload")
	}

	select {
	case m := <-reply:
		if m.Type == typeError {
			return payload.Outcome{}, &RemoteError{Message: m.Error}
		}
		if m.Outcome == nil {
			return payload.Outcome{}, errors.Errorf("outcome %s carries no result", id)
		}
		return *m.Outcome, nil
	case <-c.done:
		return payload.Outcome{}, c.closedErr()
	case <-ctx.Done():
		return payload.Outcome{}, ctx.Err()
	}
}

// Close stops the connection. Round trips still waiting fail with ErrClosed.
func (c *Conn) Close() error {
	c.fail(ErrClosed)
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// Done is closed once the connection stopped.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err reports why the connection stopped, or nil while it is open.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Conn) closedErr() error {
	if err := c.Err(); err != nil {
		return err
	}
	return ErrClosed
}

func (c *Conn) fail(err error) {
	c.doneOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *Conn) readLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), c.cfg.maxMessageSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var m message
		if err := json.Unmarshal(line, &m); err != nil {
			c.cfg.logger.Printf("transport: ignoring malformed message: %v", err)
			continue
		}

		switch m.Type {
		case typeReady:
			c.readyOnce.Do(func() { close(c.ready) })
		case typeOutcome, typeError:
			c.mu.Lock()
			reply, ok := c.pending[m.ID]
			c.mu.Unlock()
			if !ok {
				c.cfg.logger.Printf("transport: reply for unknown round trip %q", m.ID)
				continue
			}
			select {
			case reply <- m:
			default:
				c.cfg.logger.Printf("transport: duplicate reply for round trip %q", m.ID)
			}
		default:
			c.cfg.logger.Printf("transport: unexpected message type %q", m.Type)
		}
	}

	if err := scanner.Err(); err != nil {
		c.fail(errors.Wrap(err, "read from agent"))
		return
	}
	c.fail(errors.Wrap(ErrClosed, "agent closed the stream"))
}
