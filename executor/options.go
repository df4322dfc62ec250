package executor

import (
	"time"

	"github.com/caffeineduck/goremote/logging"
)

// DefaultPollInterval is the pause between two Wait polls.
const DefaultPollInterval = 50 * time.Millisecond

// Option configures an execution context.
type Option func(*config)

type config struct {
	target       string
	pollInterval time.Duration
	logger       logging.Logger
}

func defaultConfig() config {
	return config{
		target:       "server",
		pollInterval: DefaultPollInterval,
		logger:       logging.NullLogger(),
	}
}

// WithTarget names the evaluation surface payloads are addressed to.
func WithTarget(target string) Option {
	return func(c *config) {
		if target != "" {
			c.target = target
		}
	}
}

// WithPollInterval sets the pause between Wait polls. The pause is cut short
// so that the last poll happens no later than the timeout.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithLogger receives round trip failures that are not returned to the
// caller, such as a variable that could not be written back after a throw.
func WithLogger(l logging.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
