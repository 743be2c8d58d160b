// internal/dialog/context.go
package dialog

import (
	"context"

	"bookings-bot/internal/common/errors"
	"bookings-bot/internal/turn"
)

// Dialog is anything that can live on the stack.
type Dialog interface {
	ID() string
	// Begin runs when the dialog is pushed. Its frame is the active frame.
	Begin(ctx context.Context, dc *Context, options interface{}) (TurnResult, error)
	// Continue runs when a new turn arrives while the dialog is active.
	Continue(ctx context.Context, dc *Context) (TurnResult, error)
	// Resume runs when a child dialog ended and this dialog is active again.
	Resume(ctx context.Context, dc *Context, result interface{}) (TurnResult, error)
}

// Context binds a dialog set and a conversation's stack to the current turn.
type Context struct {
	Turn *turn.Context

	dialogs *Set
	stack   *Stack
}

func (dc *Context) Stack() *Stack { return dc.stack }

// ActiveDialog returns the top frame or nil.
func (dc *Context) ActiveDialog() *Frame { return dc.stack.top() }

func (dc *Context) find(id string) (Dialog, error) {
	d := dc.dialogs.Find(id)
	if d == nil {
		return nil, errors.NewDialogNotFoundError(id)
	}
	return d, nil
}

// Begin pushes a new frame for dialogID and starts it.
func (dc *Context) Begin(ctx context.Context, dialogID string, options interface{}) (TurnResult, error) {
	d, err := dc.find(dialogID)
	if err != nil {
		return TurnResult{}, err
	}
	dc.stack.push(&Frame{ID: dialogID})
	return d.Begin(ctx, dc, options)
}

// Prompt begins a prompt dialog.
func (dc *Context) Prompt(ctx context.Context, promptID string, options PromptOptions) (TurnResult, error) {
	return dc.Begin(ctx, promptID, options)
}

// Continue routes the current turn to the active dialog.
func (dc *Context) Continue(ctx context.Context) (TurnResult, error) {
	f := dc.ActiveDialog()
	if f == nil {
		return TurnResult{Status: StatusEmpty}, nil
	}
	d, err := dc.find(f.ID)
	if err != nil {
		return TurnResult{}, err
	}
	return d.Continue(ctx, dc)
}

// End ends the active dialog and resumes its parent with result.
func (dc *Context) End(ctx context.Context, result interface{}) (TurnResult, error) {
	return dc.EndFrame(ctx, dc.ActiveDialog(), result)
}

// EndFrame removes f and every frame above it, then resumes the frame below with
// result. Ending a frame that is no longer on the stack reports completion without
// touching the stack.
func (dc *Context) EndFrame(ctx context.Context, f *Frame, result interface{}) (TurnResult, error) {
	if f == nil {
		return TurnResult{Status: StatusComplete, Result: result}, nil
	}
	idx := dc.stack.indexOf(f)
	if idx < 0 {
		return TurnResult{Status: StatusComplete, Result: result}, nil
	}
	dc.stack.Frames = dc.stack.Frames[:idx]

	parent := dc.ActiveDialog()
	if parent == nil {
		return TurnResult{Status: StatusComplete, Result: result}, nil
	}
	d, err := dc.find(parent.ID)
	if err != nil {
		return TurnResult{}, err
	}
	return d.Resume(ctx, dc, result)
}

// CancelAll discards every frame.
func (dc *Context) CancelAll(_ context.Context) (TurnResult, error) {
	if dc.stack.Len() == 0 {
		return TurnResult{Status: StatusEmpty}, nil
	}
	dc.stack.clear()
	return TurnResult{Status: StatusCancelled}, nil
}
