// Package rollback records the undo action of each committed step of a
// multi-step operation so that a late failure can revert exactly the steps
// that already happened.
package rollback

import (
	"errors"
	"fmt"
)

type step struct {
	name string
	undo func() error
}

type Stack struct {
	steps []step
}

// Push records the undo action for a step that just committed.
func (s *Stack) Push(name string, undo func() error) {
	s.steps = append(s.steps, step{name, undo})
}

// Len is the number of committed steps.
func (s *Stack) Len() int { return len(s.steps) }

// Unwind runs every recorded undo action, most recent first, and empties the
// stack. An undo that fails does not stop the ones before it from running.
func (s *Stack) Unwind() error {
	var errs []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		if err := s.steps[i].undo(); err != nil {
			errs = append(errs, fmt.Errorf("undoing %s: %w", s.steps[i].name, err))
		}
	}
	s.steps = nil
	return errors.Join(errs...)
}

// Abort unwinds the stack and returns `err` joined with any undo failures.
func (s *Stack) Abort(err error) error {
	if undoErr := s.Unwind(); undoErr != nil {
		return errors.Join(err, undoErr)
	}
	return err
}

// Commit forgets every recorded step.
func (s *Stack) Commit() { s.steps = nil }
