// Package closure holds the driver-side closure variables shared with remote
// evaluation surfaces.
//
// # Scopes
//
// Variables live in a tree of scopes. A test suite creates a root scope once
// and nested groupings create children. A child sees every ancestor binding
// and may shadow it:
//
//	root := closure.NewRoot()
//	a, zero := 0.5, 0
//	root.Bind(closure.Vars{"a": &a, "zero": &zero})
//
//	nested := root.Child()
//	nested.Bind(closure.Vars{"a2": closure.NewCell(1)})
//
// # Synchronization
//
// After every round trip the remote side reports the values of the names it
// was sent. [Scope.ApplyRemote] writes them back through each binding's
// [Accessor], in the scope that owns the name. Names the remote never reported
// keep their local value.
//
// Values must be representable as JSON. Functions are rejected with an
// [InvalidVariableError] at declaration and again when a payload is built.
package closure
