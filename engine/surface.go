package engine

// Surface defines the flavour of an evaluation surface. Implementations live
// in the surface/server and surface/browser packages.
type Surface interface {
	// Name identifies the surface ("server", "browser"). Payloads are routed
	// by this name.
	Name() string

	// Prelude returns a script evaluated once when the engine starts, before
	// any payload. It installs the surface's environment globals.
	Prelude() string
}
