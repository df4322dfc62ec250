package engine

import (
	"github.com/caffeineduck/goremote/hostfunc"
	"github.com/caffeineduck/goremote/logging"
)

// Option configures an Engine or a Host.
type Option func(*config)

type config struct {
	registry     *hostfunc.Registry
	logger       logging.Logger
	queueSize    int
	allowedHosts []string
}

func defaultConfig() config {
	return config{
		logger:    logging.NullLogger(),
		queueSize: 64,
	}
}

// WithHostFuncs installs every function of registry as a global in the
// engine. A Host shares the registry between its engines.
func WithHostFuncs(registry *hostfunc.Registry) Option {
	return func(c *config) {
		c.registry = registry
	}
}

// WithLogger receives console output and late callback errors.
func WithLogger(l logging.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithQueueSize sets how many jobs may wait for the event loop before
// submitters block.
func WithQueueSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithAllowedHosts registers http_request in the default host registry,
// limited to hosts and their subdomains. It has no effect together with
// WithHostFuncs.
func WithAllowedHosts(hosts ...string) Option {
	return func(c *config) {
		c.allowedHosts = append(c.allowedHosts, hosts...)
	}
}
