// Package goremote runs JavaScript functions on remote surfaces of an
// application under test and keeps the caller's closure variables in sync
// with whatever the function did to them.
//
// # Overview
//
// A test binds Go variables into a closure scope, sends a function to the
// server or browser surface, and reads the mutated variables back once the
// call settles. Variables are synced even when the function throws or a wait
// times out.
//
// # Basic Usage
//
//	host, _ := engine.NewHost()
//	defer host.Close()
//
//	count := 1
//	scope := closure.NewRoot()
//	scope.Bind(closure.Vars{"count": closure.Ref(&count)})
//
//	server := executor.NewServer(host, scope)
//	v, _ := server.Execute(ctx, `function () { count++; return count * 2; }`)
//	// v == 4, count == 2
//
//	browser := executor.NewBrowser(server)
//	browser.Wait(ctx, time.Second, "until the page settles",
//	    `function () { return document.readyState === "complete"; }`)
//
// # Remote Agents
//
// The surfaces may live in another process. transport.Spawn talks to an agent
// over stdin/stdout and transport.HTTPClient talks to one over HTTP; both
// satisfy executor.Submitter.
//
// See the [closure], [payload], [executor], [engine] and [transport] packages
// for details.
package goremote
