// internal/dialog/collection.go
package dialog

import (
	"context"
	"fmt"

	"bookings-bot/internal/common/errors"
	"bookings-bot/internal/common/logger"
)

// FaultHandler reports a fault to the user exactly once.
type FaultHandler interface {
	HandleFault(ctx context.Context, replier errors.Replier, source string, err error, fields map[string]interface{}) *errors.StandardError
}

// Collection is an ordered list of steps. It flattens them into the interleaved
// [Before, After, Before, After, ...] handler list of a waterfall and wraps each
// handler in a fault boundary: any error or panic is reported to the user and ends the
// whole waterfall.
type Collection[V any] struct {
	steps  []Step[V]
	faults FaultHandler
	logger logger.Logger
}

func NewCollection[V any](faults FaultHandler, log logger.Logger, steps ...Step[V]) *Collection[V] {
	return &Collection[V]{steps: steps, faults: faults, logger: log}
}

func (c *Collection[V]) Steps() []Step[V] { return c.steps }

// Handlers returns the waterfall handlers, two per step.
func (c *Collection[V]) Handlers() []Handler[V] {
	handlers := make([]Handler[V], 0, len(c.steps)*2)
	for _, s := range c.steps {
		handlers = append(handlers,
			c.guard(s.ID(), "before", s.Before),
			c.guard(s.ID(), "after", s.After),
		)
	}
	return handlers
}

// Dialogs returns the distinct prompts and child dialogs the steps depend on.
func (c *Collection[V]) Dialogs() []Dialog {
	seen := make(map[string]bool, len(c.steps))
	dialogs := make([]Dialog, 0, len(c.steps))
	for _, s := range c.steps {
		if seen[s.ID()] {
			continue
		}
		seen[s.ID()] = true
		dialogs = append(dialogs, s.Dialog())
	}
	return dialogs
}

// IDs lists the step ids in order.
func (c *Collection[V]) IDs() []string {
	ids := make([]string, len(c.steps))
	for i, s := range c.steps {
		ids[i] = s.ID()
	}
	return ids
}

// Waterfall builds the waterfall dialog for this collection.
func (c *Collection[V]) Waterfall(id string) *Waterfall[V] {
	return NewWaterfall(id, c.Handlers()...)
}

// Register adds the waterfall and every dialog the steps need to set, then checks
// that each step id resolves.
func (c *Collection[V]) Register(set *Set, waterfallID string) (*Waterfall[V], error) {
	w := c.Waterfall(waterfallID)
	if err := set.Add(w); err != nil {
		return nil, err
	}
	if err := set.Add(c.Dialogs()...); err != nil {
		return nil, err
	}
	if err := set.Require(c.IDs()...); err != nil {
		return nil, err
	}
	return w, nil
}

func (c *Collection[V]) guard(stepID, phase string, h Handler[V]) Handler[V] {
	return func(ctx context.Context, sc *StepContext[V]) (result TurnResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				result, err = c.fault(ctx, sc, stepID, phase, fmt.Errorf("panic in step %s: %v", stepID, r))
			}
		}()

		result, err = h(ctx, sc)
		if err != nil {
			return c.fault(ctx, sc, stepID, phase, err)
		}
		return result, nil
	}
}

func (c *Collection[V]) fault(ctx context.Context, sc *StepContext[V], stepID, phase string, err error) (TurnResult, error) {
	fields := map[string]interface{}{
		"stepId":     stepID,
		"phase":      phase,
		"dialogId":   sc.DialogID(),
		"instanceId": sc.InstanceID,
	}
	if a := sc.Turn().Activity; a != nil {
		fields["conversationId"] = a.Conversation.ID
	}
	if c.faults != nil {
		c.faults.HandleFault(ctx, sc.Turn(), stepID, err, fields)
	} else if c.logger != nil {
		c.logger.Error("step faulted", fields)
	}
	return sc.End(ctx, nil)
}
