// internal/turn/context.go
package turn

import (
	"context"
	"sync"
)

// Sender delivers outbound activities to the channel. Adapters that answer inline can
// use a Buffer instead.
type Sender interface {
	Send(ctx context.Context, activities ...Activity) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, activities ...Activity) error

func (f SenderFunc) Send(ctx context.Context, activities ...Activity) error {
	return f(ctx, activities...)
}

// Context is the per-turn handle: the inbound activity, the outbound channel and a
// scratch area for state loaded during the turn.
type Context struct {
	Activity *Activity

	sender Sender
	mu     sync.Mutex
	sent   []Activity
	cache  map[string]interface{}
}

func NewContext(activity *Activity, sender Sender) *Context {
	return &Context{
		Activity: activity,
		sender:   sender,
		cache:    make(map[string]interface{}),
	}
}

// SendActivity addresses out as a reply to the inbound activity and delivers it.
func (c *Context) SendActivity(ctx context.Context, out Activity) error {
	addressed := reply(c.Activity, out)
	if c.sender != nil {
		if err := c.sender.Send(ctx, addressed); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.sent = append(c.sent, addressed)
	c.mu.Unlock()
	return nil
}

// SendText sends a plain text message.
func (c *Context) SendText(ctx context.Context, text string) error {
	return c.SendActivity(ctx, NewMessage(text))
}

// Sent returns every activity delivered during this turn, in order.
func (c *Context) Sent() []Activity {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Activity, len(c.sent))
	copy(out, c.sent)
	return out
}

// Get returns a value cached for this turn.
func (c *Context) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.cache[key]
	return v, ok
}

// Set caches a value for the remainder of this turn.
func (c *Context) Set(key string, value interface{}) {
	c.mu.Lock()
	c.cache[key] = value
	c.mu.Unlock()
}

// Buffer collects outbound activities in memory.
type Buffer struct {
	mu         sync.Mutex
	activities []Activity
}

func (b *Buffer) Send(_ context.Context, activities ...Activity) error {
	b.mu.Lock()
	b.activities = append(b.activities, activities...)
	b.mu.Unlock()
	return nil
}

// Activities returns everything buffered so far.
func (b *Buffer) Activities() []Activity {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Activity, len(b.activities))
	copy(out, b.activities)
	return out
}

// Handler processes one turn. The bot implements it; channel adapters call it.
type Handler interface {
	OnTurn(ctx context.Context, tc *Context) error
}
