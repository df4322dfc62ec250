package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Serve runs the agent side of the stream protocol: it announces ready on w,
// then hands every payload read from r to s. Round trips run concurrently and
// are answered in completion order. Once r is exhausted, round trips in flight
// get the drain timeout to finish; the rest are abandoned with an error reply.
func Serve(ctx context.Context, s Submitter, r io.Reader, w io.Writer, opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	out := &lineWriter{w: w}
	if err := out.write(message{Type: typeReady}); err != nil {
		return errors.Wrap(err, "announce ready")
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), cfg.maxMessageSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var m message
		if err := json.Unmarshal(line, &m); err != nil {
			cfg.logger.Printf("transport: ignoring malformed message: %v", err)
			continue
		}
		if m.Type != typeSubmit {
			cfg.logger.Printf("transport: unexpected message type %q", m.Type)
			continue
		}
		if m.Payload == nil {
			reply(cfg, out, message{Type: typeError, ID: m.ID, Error: "submit carries no payload"})
			continue
		}

		wg.Add(1)
		go func(m message) {
			defer wg.Done()
			outcome, err := s.Submit(ctx, *m.Payload)
			if err != nil {
				reply(cfg, out, message{Type: typeError, ID: m.ID, Error: err.Error()})
				return
			}
			reply(cfg, out, message{Type: typeOutcome, ID: m.ID, Outcome: &outcome})
		}(m)
	}

	drain(&wg, cfg.drainTimeout)
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read from driver")
	}
	return nil
}

// drain waits for wg, at most d.
func drain(wg *sync.WaitGroup, d time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
	}
}

func reply(cfg config, out *lineWriter, m message) {
	if err := out.write(m); err != nil {
		cfg.logger.Printf("transport: write %s %s: %v", m.Type, m.ID, err)
	}
}
