// Package scope provides an explicit stack of active scope objects,
// supporting nested enter/exit per scope kind and resolution of the
// current or default instance of a kind.
//
// A Stack belongs to a single goroutine or task. It must never be shared
// across concurrent tasks; cross-talk between unrelated pricing scopes is
// exactly what the per-task stack exists to prevent.
package scope

import (
	"sync"

	"goquant/internal/errors"
)

// Kind identifies a scope type, e.g. "pricing".
type Kind string

// Scoped is an object that can be entered on a Stack.
type Scoped interface {
	// ScopeKind returns the kind the object stacks under.
	ScopeKind() Kind

	// OnEnter is invoked after the object becomes current.
	OnEnter()

	// OnExit is invoked while the object is still current, so it can
	// flush state that depends on seeing itself as the active scope.
	OnExit() error
}

// Stack tracks the active scope objects per kind. The mutex only guards
// the stack's own bookkeeping; the stack is still single-task by design.
type Stack struct {
	mu       sync.Mutex
	active   map[Kind][]Scoped
	entered  map[Scoped]struct{}
	defaults map[Kind]Scoped
	factory  map[Kind]func() Scoped
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{
		active:   make(map[Kind][]Scoped),
		entered:  make(map[Scoped]struct{}),
		defaults: make(map[Kind]Scoped),
		factory:  make(map[Kind]func() Scoped),
	}
}

// RegisterDefault registers a lazily-invoked factory for the default
// instance of a kind. The factory runs at most once; the result is
// memoized for the stack's lifetime.
func (s *Stack) RegisterDefault(k Kind, fn func() Scoped) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factory[k] = fn
}

// Enter pushes sc as the current instance of its kind and invokes its
// OnEnter hook.
func (s *Stack) Enter(sc Scoped) {
	k := sc.ScopeKind()
	s.mu.Lock()
	s.active[k] = append(s.active[k], sc)
	s.entered[sc] = struct{}{}
	s.mu.Unlock()
	sc.OnEnter()
}

// Exit invokes sc's OnExit hook while it is still current, then restores
// the previously current instance and clears the entered mark. The
// restore runs even when OnExit errors.
func (s *Stack) Exit(sc Scoped) error {
	defer func() {
		k := sc.ScopeKind()
		s.mu.Lock()
		stack := s.active[k]
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i] == sc {
				s.active[k] = append(stack[:i], stack[i+1:]...)
				break
			}
		}
		delete(s.entered, sc)
		s.mu.Unlock()
	}()
	return sc.OnExit()
}

// Current returns the innermost entered instance of the kind. When none
// is entered, the memoized default is returned if the kind registered a
// factory; otherwise ErrNoCurrentContext.
func (s *Stack) Current(k Kind) (Scoped, error) {
	s.mu.Lock()
	if stack := s.active[k]; len(stack) > 0 {
		sc := stack[len(stack)-1]
		s.mu.Unlock()
		return sc, nil
	}
	if def, ok := s.defaults[k]; ok {
		s.mu.Unlock()
		return def, nil
	}
	fn, ok := s.factory[k]
	s.mu.Unlock()
	if !ok {
		return nil, errors.Wrapf(errors.ErrNoCurrentContext, "kind %q", k)
	}

	// Construct outside the lock: factories may touch the stack.
	def := fn()
	s.mu.Lock()
	if prior, ok := s.defaults[k]; ok {
		def = prior
	} else {
		s.defaults[k] = def
	}
	s.mu.Unlock()
	return def, nil
}

// IsEntered reports whether sc is currently entered on the stack.
func (s *Stack) IsEntered(sc Scoped) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entered[sc]
	return ok
}

// Depth returns the number of entered instances of the kind.
func (s *Stack) Depth(k Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active[k])
}
