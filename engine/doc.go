// Package engine implements the remote side of a round trip: JavaScript
// evaluation surfaces built on goja.
//
// # Overview
//
// An [Engine] owns one goja runtime and a single-goroutine event loop. Each
// submitted payload is evaluated in a fresh function scope that declares the
// payload's closure variables; when the round trip settles, the engine
// reports the outcome together with the current values of those variables.
//
//	e, _ := engine.New(server.New())
//	defer e.Close()
//
//	out, _ := e.Submit(ctx, p)
//
// # Modes
//
// In execute mode the function is called once and its return value (or
// thrown error) settles the round trip. In promise mode the function receives
// resolve and reject; the first of resolve, reject, a synchronous throw, or a
// throw from a timer callback it scheduled settles the round trip, and later
// signals are ignored.
//
// Variables are read at a flush point that runs after the settling job has
// finished, so code that mutates a variable right after calling resolve is
// still observed.
//
// # Environment
//
// Every engine provides setTimeout, setInterval, clearTimeout,
// clearInterval, console (routed to the configured logger) and the functions
// of its host function registry. The [Surface] adds its own globals.
//
// A [Host] bundles a server and a browser engine and routes payloads by
// target.
package engine
