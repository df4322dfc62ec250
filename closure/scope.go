package closure

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Scope is one node of the closure variable tree. The parent link never
// changes; the bindings of each node are mutated in place by declarations and
// by the sync applier.
type Scope struct {
	parent *Scope

	mu       sync.RWMutex
	bindings map[string]Accessor
}

// NewRoot creates the root scope of a suite.
func NewRoot() *Scope {
	return &Scope{bindings: make(map[string]Accessor)}
}

// Child creates a nested scope that inherits every binding of s.
func (s *Scope) Child() *Scope {
	return &Scope{parent: s, bindings: make(map[string]Accessor)}
}

// Parent returns the enclosing scope, or nil for a root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Declare binds each name to the value produced by eval. Values reported by
// the remote side are handed to write. Nothing is bound if any name is
// invalid or currently holds a function.
func (s *Scope) Declare(names []string, eval Evaluator, write Writer) error {
	if eval == nil {
		return errors.New("closure: nil evaluator")
	}
	accessors := make(map[string]Accessor, len(names))
	for _, name := range names {
		if err := checkName(name); err != nil {
			return err
		}
		if IsFunction(eval(name)) {
			return &InvalidVariableError{Name: name, Reason: ReasonFunction}
		}
		accessors[name] = funcAccessor{name: name, eval: eval, write: write}
	}
	s.install(accessors)
	return nil
}

// Bind declares variables from pointers or Accessors.
func (s *Scope) Bind(vars Vars) error {
	accessors := make(map[string]Accessor, len(vars))
	for name, v := range vars {
		if err := checkName(name); err != nil {
			return err
		}
		acc, err := accessorFor(name, v)
		if err != nil {
			return err
		}
		accessors[name] = acc
	}
	s.install(accessors)
	return nil
}

func (s *Scope) install(accessors map[string]Accessor) {
	s.mu.Lock()
	for name, acc := range accessors {
		s.bindings[name] = acc
	}
	s.mu.Unlock()
}

// Lookup finds the binding for name, walking up from s. The returned scope
// is the one that owns the binding.
func (s *Scope) Lookup(name string) (Accessor, *Scope, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		acc, ok := cur.bindings[name]
		cur.mu.RUnlock()
		if ok {
			return acc, cur, true
		}
	}
	return nil, nil, false
}

// Names returns the effective variable names, sorted.
func (s *Scope) Names() []string {
	seen := make(map[string]bool)
	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		for name := range cur.bindings {
			seen[name] = true
		}
		cur.mu.RUnlock()
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns the effective bindings with their current values. A
// child binding overrides an ancestor binding of the same name.
func (s *Scope) Snapshot() map[string]any {
	var chain []*Scope
	for cur := s; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	effective := make(map[string]Accessor)
	for i := len(chain) - 1; i >= 0; i-- {
		cur := chain[i]
		cur.mu.RLock()
		for name, acc := range cur.bindings {
			effective[name] = acc
		}
		cur.mu.RUnlock()
	}
	snap := make(map[string]any, len(effective))
	for name, acc := range effective {
		snap[name] = acc.Get()
	}
	return snap
}

// ApplyRemote writes the values reported by a round trip back into the
// scopes that own them. Names missing from deltas are left alone and names
// with no local binding are ignored. Every name is attempted even when an
// earlier write fails; the failures are returned together.
func (s *Scope) ApplyRemote(deltas map[string]ldvalue.Value) error {
	names := make([]string, 0, len(deltas))
	for name := range deltas {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		acc, _, ok := s.Lookup(name)
		if !ok {
			continue
		}
		if err := acc.Set(deltas[name]); err != nil {
			errs = append(errs, fmt.Errorf("sync %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Clear drops the bindings owned by s. Ancestors are untouched.
func (s *Scope) Clear() {
	s.mu.Lock()
	s.bindings = make(map[string]Accessor)
	s.mu.Unlock()
}
