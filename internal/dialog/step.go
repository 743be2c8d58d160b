// internal/dialog/step.go
package dialog

import (
	"context"
	"fmt"

	"bookings-bot/internal/common/errors"
	"bookings-bot/internal/common/validation"
)

// Step is one ask/consume stage of a waterfall. Before issues the step's prompt (or
// advances without one); After consumes the prompt's result. Dialog is the prompt (or
// child dialog) bound to ID.
type Step[V any] interface {
	ID() string
	Before(ctx context.Context, sc *StepContext[V]) (TurnResult, error)
	After(ctx context.Context, sc *StepContext[V]) (TurnResult, error)
	Dialog() Dialog
}

// ==========================
// Step Variants
// ==========================

// ChoiceStep binds a choice prompt to StepID. Validate, when set, receives the values
// captured when the prompt was issued.
type ChoiceStep[V any] struct {
	StepID   string
	Validate func(ctx context.Context, values *V, choice FoundChoice) (bool, error)
}

func (s *ChoiceStep[V]) ID() string { return s.StepID }

func (s *ChoiceStep[V]) Dialog() Dialog {
	return NewChoicePrompt(s.StepID, func(ctx context.Context, pc *PromptValidatorContext[FoundChoice]) (bool, error) {
		if s.Validate == nil {
			return true, nil
		}
		values := new(V)
		if err := pc.Validations(values); err != nil {
			return false, err
		}
		return s.Validate(ctx, values, pc.Recognized.Value)
	})
}

// TextStep binds a text prompt to StepID. Replies must not be blank; Validate adds a
// format check.
type TextStep[V any] struct {
	StepID   string
	Validate func(ctx context.Context, text string) (bool, error)
}

func (s *TextStep[V]) ID() string { return s.StepID }

func (s *TextStep[V]) Dialog() Dialog {
	return NewTextPrompt(s.StepID, func(ctx context.Context, pc *PromptValidatorContext[string]) (bool, error) {
		if !validation.NotBlank(pc.Recognized.Value) {
			return false, nil
		}
		if s.Validate == nil {
			return true, nil
		}
		return s.Validate(ctx, pc.Recognized.Value)
	})
}

// ConfirmStep binds a yes/no prompt to StepID. Every recognized answer is accepted.
type ConfirmStep[V any] struct {
	StepID string
}

func (s *ConfirmStep[V]) ID() string { return s.StepID }

func (s *ConfirmStep[V]) Dialog() Dialog {
	return NewConfirmPrompt(s.StepID, nil)
}

// DialogStep delegates to a whole child dialog; the child's id is the step id.
type DialogStep[V any] struct {
	Target Dialog
}

func (s *DialogStep[V]) ID() string { return s.Target.ID() }

func (s *DialogStep[V]) Dialog() Dialog { return s.Target }

// ==========================
// Result helpers
// ==========================

// ChoiceResult extracts the FoundChoice a choice prompt ended with.
func ChoiceResult(result interface{}) (FoundChoice, error) {
	c, ok := result.(FoundChoice)
	if !ok {
		return FoundChoice{}, errors.NewStateNotFoundError("foundChoice")
	}
	return c, nil
}

// TextResult extracts the string a text prompt ended with.
func TextResult(result interface{}) (string, error) {
	s, ok := result.(string)
	if !ok {
		return "", errors.NewStateNotFoundError("text")
	}
	return s, nil
}

// ConfirmResult extracts the bool a confirm prompt ended with.
func ConfirmResult(result interface{}) (bool, error) {
	b, ok := result.(bool)
	if !ok {
		return false, errors.NewStateNotFoundError("confirmed")
	}
	return b, nil
}

// Pick resolves a choice index against the list that was displayed.
func Pick[E any](items []E, choice FoundChoice, name string) (E, error) {
	var zero E
	if items == nil {
		return zero, errors.NewStateNotFoundError(name)
	}
	if choice.Index < 0 || choice.Index >= len(items) {
		return zero, fmt.Errorf("choice index %d out of range for %s (%d items)", choice.Index, name, len(items))
	}
	return items[choice.Index], nil
}
