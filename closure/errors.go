package closure

import "fmt"

// ReasonFunction is the reason reported when a closure variable holds a function.
const ReasonFunction = "cannot use a function as a closure variable"

// InvalidVariableError reports a closure variable that cannot cross the
// execution boundary. It is raised locally; no round trip is attempted.
type InvalidVariableError struct {
	Name   string
	Reason string
}

func (e *InvalidVariableError) Error() string {
	return fmt.Sprintf("closure variable %q: %s", e.Name, e.Reason)
}
