package errors

import "sync"

// Stack accumulates definition errors for one deployment. Push never fails;
// failure is reported when the stack is inspected. A Stack is never cleared:
// a new deployment gets a new Stack.
type Stack struct {
	mu         sync.Mutex
	errs       []error
	checkpoint int
}

// NewStack creates an empty error stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push records err as raised during phase. nil errors are ignored.
func (s *Stack) Push(phase string, err error) {
	if err == nil {
		return
	}
	if _, ok := err.(*DefinitionError); !ok {
		err = &DefinitionError{Phase: phase, Err: err}
	}
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
}

// Len returns the number of accumulated errors.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs)
}

// Errors returns a copy of the accumulated errors in push order.
func (s *Stack) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]error, len(s.errs))
	copy(out, s.errs)
	return out
}

// Checkpoint returns how many errors were pushed since the previous checkpoint.
func (s *Stack) Checkpoint() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.errs) - s.checkpoint
	s.checkpoint = len(s.errs)
	return n
}

// Inspect returns nil when the stack is empty, otherwise an aggregate
// DeploymentError listing every accumulated cause.
func (s *Stack) Inspect(message string) error {
	errs := s.Errors()
	if len(errs) == 0 {
		return nil
	}
	return Aggregate(message, errs)
}
