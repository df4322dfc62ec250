// Package payload defines the unit shipped to a remote evaluation surface and
// the outcome it reports back.
package payload

import (
	"encoding/json"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Mode selects how the remote side decides that a round trip is complete.
type Mode string

const (
	// ModeExecute completes when the function returns or throws.
	ModeExecute Mode = "execute"
	// ModePromise completes when the function calls resolve or reject, or
	// throws before doing so.
	ModePromise Mode = "promise"
)

// Func is the JavaScript source of a function expression, for example
// "function () { return a + b; }". Its parameters are reserved for resolve
// and reject in promise mode.
type Func string

// Expr turns a statement or expression into a Func whose result is the
// completion value of src. src is evaluated with direct eval so it sees and
// may assign the closure variables.
func Expr(src string) Func {
	quoted, _ := json.Marshal(src)
	return Func("function () { return eval(" + string(quoted) + "); }")
}

// Payload is one round trip request: the function source and a snapshot of
// the closure variables at send time. Marshal builds it; nothing modifies it
// afterwards.
type Payload struct {
	Target   string                   `json:"target,omitempty"`
	Mode     Mode                     `json:"mode"`
	Source   string                   `json:"source"`
	Bindings map[string]ldvalue.Value `json:"bindings"`
}

// Names returns the bound variable names in no particular order.
func (p Payload) Names() []string {
	names := make([]string, 0, len(p.Bindings))
	for name := range p.Bindings {
		names = append(names, name)
	}
	return names
}

// Kind tags an Outcome.
type Kind string

const (
	KindValue  Kind = "value"
	KindThrown Kind = "thrown"
)

// Outcome is what the remote side reports for a settled round trip. Bindings
// holds the values of the names that were sent, as they stood when the
// outcome was produced.
type Outcome struct {
	Kind     Kind                     `json:"kind"`
	Value    ldvalue.Value            `json:"value"`
	Error    string                   `json:"error,omitempty"`
	Bindings map[string]ldvalue.Value `json:"bindings,omitempty"`
}

// Returned builds a value outcome.
func Returned(v ldvalue.Value, bindings map[string]ldvalue.Value) Outcome {
	return Outcome{Kind: KindValue, Value: v, Bindings: bindings}
}

// Thrown builds a thrown-error outcome.
func Thrown(description string, bindings map[string]ldvalue.Value) Outcome {
	return Outcome{Kind: KindThrown, Error: description, Bindings: bindings}
}
