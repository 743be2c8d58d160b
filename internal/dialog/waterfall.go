// internal/dialog/waterfall.go
package dialog

import (
	"context"
	"encoding/json"
	"fmt"

	"bookings-bot/internal/turn"

	"github.com/google/uuid"
)

// Handler is one entry of a waterfall. It must return the result of exactly one of
// Prompt, Next, Begin or End on its StepContext, or an error.
type Handler[V any] func(ctx context.Context, sc *StepContext[V]) (TurnResult, error)

// Waterfall runs its handlers in order. V is the run-scoped value record shared by the
// handlers of one run; it is persisted inside the waterfall's frame and discarded when
// the run ends.
type Waterfall[V any] struct {
	id       string
	handlers []Handler[V]
}

func NewWaterfall[V any](id string, handlers ...Handler[V]) *Waterfall[V] {
	return &Waterfall[V]{id: id, handlers: handlers}
}

type waterfallState[V any] struct {
	Index      int    `json:"index"`
	InstanceID string `json:"instanceId"`
	Values     V      `json:"values"`
}

func (w *Waterfall[V]) ID() string { return w.id }

func (w *Waterfall[V]) Len() int { return len(w.handlers) }

func (w *Waterfall[V]) Begin(ctx context.Context, dc *Context, options interface{}) (TurnResult, error) {
	f := dc.ActiveDialog()
	st := &waterfallState[V]{Index: -1, InstanceID: uuid.NewString()}
	f.live = st
	return w.run(ctx, dc, f, st, 0, nil, options)
}

// Continue handles a turn that arrived while no prompt was outstanding: the message
// text becomes the next handler's result.
func (w *Waterfall[V]) Continue(ctx context.Context, dc *Context) (TurnResult, error) {
	f := dc.ActiveDialog()
	st, err := frameState[waterfallState[V]](f)
	if err != nil {
		return TurnResult{}, err
	}
	if !dc.Turn.Activity.IsMessage() {
		return waiting(), nil
	}
	return w.run(ctx, dc, f, st, st.Index+1, dc.Turn.Activity.Text, nil)
}

func (w *Waterfall[V]) Resume(ctx context.Context, dc *Context, result interface{}) (TurnResult, error) {
	f := dc.ActiveDialog()
	st, err := frameState[waterfallState[V]](f)
	if err != nil {
		return TurnResult{}, err
	}
	return w.run(ctx, dc, f, st, st.Index+1, result, nil)
}

func (w *Waterfall[V]) run(ctx context.Context, dc *Context, f *Frame, st *waterfallState[V], index int, result, options interface{}) (TurnResult, error) {
	if index >= len(w.handlers) {
		return dc.EndFrame(ctx, f, result)
	}
	st.Index = index
	sc := &StepContext[V]{
		Values:     &st.Values,
		Result:     result,
		Options:    options,
		Index:      index,
		InstanceID: st.InstanceID,
		dc:         dc,
		waterfall:  w,
		frame:      f,
		state:      st,
	}
	return w.handlers[index](ctx, sc)
}

// StepContext is what a waterfall handler sees.
type StepContext[V any] struct {
	// Values is the run-scoped record. Changes are persisted with the frame.
	Values *V
	// Result is the value the previous handler advanced with, or the recognized value
	// of the prompt it issued.
	Result interface{}
	// Options is what the waterfall was begun with; only set for the first handler.
	Options    interface{}
	Index      int
	InstanceID string

	dc        *Context
	waterfall *Waterfall[V]
	frame     *Frame
	state     *waterfallState[V]
}

func (sc *StepContext[V]) Turn() *turn.Context { return sc.dc.Turn }

func (sc *StepContext[V]) DialogContext() *Context { return sc.dc }

// DialogID is the id of the waterfall running this handler.
func (sc *StepContext[V]) DialogID() string { return sc.waterfall.id }

// Next runs the following handler synchronously with result.
func (sc *StepContext[V]) Next(ctx context.Context, result interface{}) (TurnResult, error) {
	return sc.waterfall.run(ctx, sc.dc, sc.frame, sc.state, sc.Index+1, result, nil)
}

// End ends this waterfall, and anything it started, resuming the parent with result.
func (sc *StepContext[V]) End(ctx context.Context, result interface{}) (TurnResult, error) {
	return sc.dc.EndFrame(ctx, sc.frame, result)
}

// Prompt issues a prompt. The current Values are captured into the prompt so its
// validator can consult them on later turns.
func (sc *StepContext[V]) Prompt(ctx context.Context, promptID string, options PromptOptions) (TurnResult, error) {
	snapshot, err := json.Marshal(sc.Values)
	if err != nil {
		return TurnResult{}, fmt.Errorf("capture values for prompt %s: %w", promptID, err)
	}
	options.Validations = snapshot
	return sc.dc.Prompt(ctx, promptID, options)
}

// Begin starts a child dialog; its result arrives at the next handler.
func (sc *StepContext[V]) Begin(ctx context.Context, dialogID string, options interface{}) (TurnResult, error) {
	return sc.dc.Begin(ctx, dialogID, options)
}

// CancelAll discards the whole stack.
func (sc *StepContext[V]) CancelAll(ctx context.Context) (TurnResult, error) {
	return sc.dc.CancelAll(ctx)
}
