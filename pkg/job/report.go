package job

import "strings"

// ErrorReporterStackSize bounds how many recent job failures an
// ErrorReporter keeps, the same bound the teacher's own status reporter used for its
// controller reconcile errors.
const ErrorReporterStackSize = 5

// ErrorReporter accumulates the most recent job failures of a run, so a
// caller can print a short "last N failures" summary without keeping the
// full unbounded history.
type ErrorReporter interface {
	Push(error) error
	Top() error
	Size() int
	IsEmpty() bool
}

type reporter struct {
	*errorStack
}

// NewErrorReporter returns an empty ErrorReporter.
func NewErrorReporter() ErrorReporter {
	return &reporter{errorStack: &errorStack{}}
}

func (r *reporter) Push(err error) error {
	r.errorStack.Push(err)
	return err
}

// errorStack is a ring-buffer-style bounded stack of the last
// ErrorReporterStackSize errors pushed to it.
type errorStack struct {
	errors []error
}

func (s *errorStack) Push(err error) {
	if len(s.errors) == ErrorReporterStackSize {
		copy(s.errors, s.errors[1:])
		s.errors[len(s.errors)-1] = err
		return
	}
	s.errors = append(s.errors, err)
}

func (s *errorStack) Top() error {
	if s.IsEmpty() {
		return nil
	}
	return s.errors[len(s.errors)-1]
}

func (s *errorStack) Size() int { return len(s.errors) }

func (s *errorStack) IsEmpty() bool { return len(s.errors) == 0 }

func (s *errorStack) String() string {
	errs := make([]string, 0, len(s.errors))
	for _, err := range s.errors {
		errs = append(errs, err.Error())
	}
	return strings.Join(errs, ", ")
}
