package transport

import (
	"time"

	"github.com/caffeineduck/goremote/logging"
)

// Option configures a Conn, Serve, Spawn or SubmitHandler.
type Option func(*config)

type config struct {
	logger         logging.Logger
	readyTimeout   time.Duration
	maxMessageSize int
	drainTimeout   time.Duration
}

func defaultConfig() config {
	return config{
		logger:         logging.NullLogger(),
		readyTimeout:   30 * time.Second,
		maxMessageSize: 16 * 1024 * 1024,
		drainTimeout:   5 * time.Second,
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithReadyTimeout bounds how long a Conn waits for the agent to announce
// itself.
func WithReadyTimeout(d time.Duration) Option {
	return func(c *config) {
		c.readyTimeout = d
	}
}

// WithMaxMessageSize sets the longest protocol line accepted.
func WithMaxMessageSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxMessageSize = n
		}
	}
}

// WithDrainTimeout sets how long Serve lets round trips in flight finish after
// the driver's stream ends. Round trips still running then are abandoned.
func WithDrainTimeout(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.drainTimeout = d
		}
	}
}
