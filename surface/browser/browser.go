// Package browser provides the page evaluation surface.
package browser

import (
	_ "embed"
)

//go:embed prelude.js
var prelude string

// Browser implements the engine.Surface interface for page scripts.
type Browser struct{}

// New returns a browser surface.
func New() *Browser {
	return &Browser{}
}

// Name returns "browser".
func (b *Browser) Name() string {
	return "browser"
}

// Prelude returns the script that installs window, document, location,
// navigator and localStorage.
func (b *Browser) Prelude() string {
	return prelude
}
