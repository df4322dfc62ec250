package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/caffeineduck/goremote/hostfunc"
	"github.com/caffeineduck/goremote/payload"
	"github.com/caffeineduck/goremote/surface/browser"
	"github.com/caffeineduck/goremote/surface/server"
)

// DefaultTarget receives payloads that name no target.
const DefaultTarget = "server"

// Host groups the engines of one application under test and routes payloads
// to them by target name.
type Host struct {
	engines map[string]*Engine
}

// NewHost starts a server engine and a browser engine sharing one host
// function registry. Without WithHostFuncs the registry carries an in-memory
// key-value store, plus http_request when WithAllowedHosts is given.
func NewHost(opts ...Option) (*Host, error) {
	return NewHostWith([]Surface{server.New(), browser.New()}, opts...)
}

// NewHostWith starts one engine per surface.
func NewHostWith(surfaces []Surface, opts ...Option) (*Host, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.registry == nil {
		cfg.registry = hostfunc.NewRegistry()
		hostfunc.NewKVStore().Register(cfg.registry)
		if len(cfg.allowedHosts) > 0 {
			hostfunc.NewFetcher(hostfunc.FetchConfig{AllowedHosts: cfg.allowedHosts}).Register(cfg.registry)
		}
	}
	engineOpts := append(append([]Option(nil), opts...), WithHostFuncs(cfg.registry))

	h := &Host{engines: make(map[string]*Engine, len(surfaces))}
	for _, s := range surfaces {
		if _, dup := h.engines[s.Name()]; dup {
			h.Close()
			return nil, fmt.Errorf("duplicate surface %q", s.Name())
		}
		e, err := New(s, engineOpts...)
		if err != nil {
			h.Close()
			return nil, fmt.Errorf("start %s engine: %w", s.Name(), err)
		}
		h.engines[s.Name()] = e
	}
	return h, nil
}

// Engine returns the engine serving target.
func (h *Host) Engine(target string) (*Engine, bool) {
	if target == "" {
		target = DefaultTarget
	}
	e, ok := h.engines[target]
	return e, ok
}

// Targets lists the surface names, sorted.
func (h *Host) Targets() []string {
	names := make([]string, 0, len(h.engines))
	for name := range h.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Submit routes p to the engine named by p.Target.
func (h *Host) Submit(ctx context.Context, p payload.Payload) (payload.Outcome, error) {
	e, ok := h.Engine(p.Target)
	if !ok {
		return payload.Outcome{}, fmt.Errorf("unknown target %q", p.Target)
	}
	return e.Submit(ctx, p)
}

func (h *Host) Close() error {
	for _, e := range h.engines {
		e.Close()
	}
	return nil
}
