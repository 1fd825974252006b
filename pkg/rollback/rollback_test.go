package rollback

import (
	"errors"
	"strings"
	"testing"
)

func TestStack_UnwindReverseOrder(t *testing.T) {
	var undone []string
	var s Stack
	for _, name := range []string{"a", "b", "c"} {
		name := name
		s.Push(name, func() error {
			undone = append(undone, name)
			return nil
		})
	}

	if err := s.Unwind(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if found := strings.Join(undone, ""); found != "cba" {
		t.Fatalf("wanted `cba`; found `%s`", found)
	}
	if s.Len() != 0 {
		t.Fatalf("wanted empty stack; found `%d` steps", s.Len())
	}
}

func TestStack_AbortKeepsOriginalError(t *testing.T) {
	original := errors.New("original")
	undoErr := errors.New("undo failed")
	ran := false

	var s Stack
	s.Push("first", func() error { ran = true; return nil })
	s.Push("second", func() error { return undoErr })

	err := s.Abort(original)
	if !errors.Is(err, original) {
		t.Fatalf("wanted `%v` in `%v`", original, err)
	}
	if !errors.Is(err, undoErr) {
		t.Fatalf("wanted `%v` in `%v`", undoErr, err)
	}
	if !ran {
		t.Fatal("wanted earlier undo to run after a later one failed")
	}
}

func TestStack_Commit(t *testing.T) {
	var s Stack
	s.Push("step", func() error { t.Fatal("undo ran after commit"); return nil })
	s.Commit()
	if err := s.Abort(errors.New("late")); err == nil {
		t.Fatal("wanted the abort error")
	}
}
