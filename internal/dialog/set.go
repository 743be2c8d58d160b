// internal/dialog/set.go
package dialog

import (
	"fmt"

	"bookings-bot/internal/common/errors"
	"bookings-bot/internal/turn"
)

// Observer receives engine events worth counting.
type Observer interface {
	RecordPromptRetry(promptID string)
}

// Set is the registry of every dialog a stack may reference.
type Set struct {
	dialogs  map[string]Dialog
	observer Observer
}

func NewSet() *Set {
	return &Set{dialogs: make(map[string]Dialog)}
}

// Add registers dialogs. Registering the same instance twice is allowed; two different
// dialogs under one id is an error.
func (s *Set) Add(dialogs ...Dialog) error {
	for _, d := range dialogs {
		if existing, ok := s.dialogs[d.ID()]; ok {
			if existing == d {
				continue
			}
			return errors.NewDuplicateDialogError(d.ID())
		}
		s.dialogs[d.ID()] = d
	}
	return nil
}

func (s *Set) Find(id string) Dialog {
	return s.dialogs[id]
}

// Require fails when any id is not registered.
func (s *Set) Require(ids ...string) error {
	for _, id := range ids {
		if _, ok := s.dialogs[id]; !ok {
			return fmt.Errorf("required dialog missing: %w", errors.NewDialogNotFoundError(id))
		}
	}
	return nil
}

func (s *Set) SetObserver(o Observer) {
	s.observer = o
}

// CreateContext binds the set to a turn and the conversation's stack.
func (s *Set) CreateContext(tc *turn.Context, stack *Stack) *Context {
	if stack == nil {
		stack = &Stack{}
	}
	return &Context{Turn: tc, dialogs: s, stack: stack}
}

func (s *Set) recordRetry(promptID string) {
	if s.observer != nil {
		s.observer.RecordPromptRetry(promptID)
	}
}
