// Package executor runs functions on a remote JavaScript surface while sharing
// Go variables with them by value.
//
// # Overview
//
// A [Context] pairs a [Submitter] (the remote surface) with a closure scope.
// Every round trip ships the function source and a snapshot of the scope's
// variables. When the round trip settles, the values the remote side left in
// those variables are written back into the Go variables, whether the
// function returned, threw, or timed out.
//
// # Basic Usage
//
//	host, err := engine.NewHost()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer host.Close()
//
//	scope := closure.NewRoot()
//	a, b := 1.0, "x"
//	scope.Bind(closure.Vars{"a": &a, "b": &b})
//
//	server := executor.NewServer(host, scope)
//	v, err := server.Execute(ctx, `function () { a = a * 2; return b; }`)
//	// v is "x", a is now 2
//
// # Invocation Modes
//
// Execute completes when the function returns. Promise passes resolve and
// reject and completes on the first of them; mutations made in the same tick
// right after resolve are still synchronized. Wait polls a predicate until it
// is truthy, it throws, or the timeout passes:
//
//	err := server.Wait(ctx, time.Second, "until c is negative",
//	    `function () { return (c -= 1) < 0; }`)
//
// # Browser Contexts
//
// [NewBrowser] wraps a server context. Its round trips go to the browser
// surface but use the same scope, so both contexts see each other's
// mutations.
//
// # Errors
//
// A function value bound as a closure variable fails with
// *closure.InvalidVariableError before anything is sent. A remote exception
// is returned as *RemoteThrowError and an expired Wait as *TimeoutError.
package executor
