package transport

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/caffeineduck/goremote/payload"
)

const (
	typeReady   = "ready"
	typeSubmit  = "submit"
	typeOutcome = "outcome"
	typeError   = "error"
)

// Submitter is anything that completes round trips: an engine.Host on the
// agent side, a Conn or HTTPClient on the driver side.
type Submitter interface {
	Submit(ctx context.Context, p payload.Payload) (payload.Outcome, error)
}

type message struct {
	Type    string           `json:"type"`
	ID      string           `json:"id,omitempty"`
	Payload *payload.Payload `json:"payload,omitempty"`
	Outcome *payload.Outcome `json:"outcome,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// lineWriter writes one message per line. Writes from concurrent round trips
// never interleave.
type lineWriter struct {
	w  io.Writer
	mu sync.Mutex
}

func (lw *lineWriter) write(m message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, err = lw.w.Write(data)
	return err
}
