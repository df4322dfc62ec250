// Package server provides the application-server evaluation surface.
package server

import (
	_ "embed"
)

//go:embed prelude.js
var prelude string

// Server implements the engine.Surface interface for server-side scripts.
type Server struct{}

// New returns a server surface.
func New() *Server {
	return &Server{}
}

// Name returns "server".
func (s *Server) Name() string {
	return "server"
}

// Prelude returns the script that installs process-like globals.
func (s *Server) Prelude() string {
	return prelude
}
