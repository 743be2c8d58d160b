// internal/state/botstate.go
package state

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"bookings-bot/internal/common/errors"
	"bookings-bot/internal/turn"
)

type Scope string

const (
	ConversationScope Scope = "conversations"
	UserScope         Scope = "users"
)

// BotState is one persisted document per conversation or per user. The document is
// read once per turn, mutated in memory through properties and written back by
// SaveChanges only when it changed.
type BotState struct {
	storage Storage
	scope   Scope
}

func NewConversationState(storage Storage) *BotState {
	return &BotState{storage: storage, scope: ConversationScope}
}

func NewUserState(storage Storage) *BotState {
	return &BotState{storage: storage, scope: UserScope}
}

type cachedDocument struct {
	key  string
	raw  []byte
	doc  map[string]json.RawMessage
	live map[string]interface{}
}

func (b *BotState) cacheKey() string {
	return "state/" + string(b.scope)
}

// StorageKey derives the document key for the activity.
func (b *BotState) StorageKey(a *turn.Activity) (string, error) {
	if a == nil || a.ChannelID == "" {
		return "", errors.NewInvalidActivityError("activity has no channel id")
	}
	switch b.scope {
	case ConversationScope:
		if a.Conversation.ID == "" {
			return "", errors.NewInvalidActivityError("activity has no conversation id")
		}
		return fmt.Sprintf("%s/conversations/%s", a.ChannelID, a.Conversation.ID), nil
	case UserScope:
		if a.From.ID == "" {
			return "", errors.NewInvalidActivityError("activity has no sender id")
		}
		return fmt.Sprintf("%s/users/%s", a.ChannelID, a.From.ID), nil
	default:
		return "", fmt.Errorf("unknown state scope %q", b.scope)
	}
}

// Load reads the document into the turn. Repeated calls within a turn are no-ops.
func (b *BotState) Load(ctx context.Context, tc *turn.Context) error {
	_, err := b.load(ctx, tc)
	return err
}

func (b *BotState) load(ctx context.Context, tc *turn.Context) (*cachedDocument, error) {
	if v, ok := tc.Get(b.cacheKey()); ok {
		return v.(*cachedDocument), nil
	}

	key, err := b.StorageKey(tc.Activity)
	if err != nil {
		return nil, err
	}
	items, err := b.storage.Read(ctx, key)
	if err != nil {
		return nil, errors.NewStateStorageFailedError("read", err)
	}

	cached := &cachedDocument{
		key:  key,
		doc:  make(map[string]json.RawMessage),
		live: make(map[string]interface{}),
	}
	if raw, ok := items[key]; ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &cached.doc); err != nil {
			return nil, errors.NewStateStorageFailedError("decode", err)
		}
		cached.raw = raw
	}
	tc.Set(b.cacheKey(), cached)
	return cached, nil
}

// SaveChanges writes the document when any property differs from what was loaded.
func (b *BotState) SaveChanges(ctx context.Context, tc *turn.Context) error {
	v, ok := tc.Get(b.cacheKey())
	if !ok {
		return nil
	}
	cached := v.(*cachedDocument)

	for name, value := range cached.live {
		encoded, err := json.Marshal(value)
		if err != nil {
			return errors.NewStateStorageFailedError("encode", err)
		}
		cached.doc[name] = encoded
	}

	raw, err := json.Marshal(cached.doc)
	if err != nil {
		return errors.NewStateStorageFailedError("encode", err)
	}
	if cached.raw == nil && len(cached.doc) == 0 {
		return nil
	}
	if bytes.Equal(raw, cached.raw) {
		return nil
	}

	if err := b.storage.Write(ctx, map[string][]byte{cached.key: raw}); err != nil {
		return errors.NewStateStorageFailedError("write", err)
	}
	cached.raw = raw
	return nil
}

// Clear empties the document for this turn; SaveChanges persists the empty document.
func (b *BotState) Clear(ctx context.Context, tc *turn.Context) error {
	cached, err := b.load(ctx, tc)
	if err != nil {
		return err
	}
	cached.doc = make(map[string]json.RawMessage)
	cached.live = make(map[string]interface{})
	return nil
}

// Delete removes the document from storage immediately.
func (b *BotState) Delete(ctx context.Context, tc *turn.Context) error {
	cached, err := b.load(ctx, tc)
	if err != nil {
		return err
	}
	if err := b.storage.Delete(ctx, cached.key); err != nil {
		return errors.NewStateStorageFailedError("delete", err)
	}
	cached.raw = nil
	cached.doc = make(map[string]json.RawMessage)
	cached.live = make(map[string]interface{})
	return nil
}

// Property is a typed accessor for one named entry of a BotState document.
type Property[T any] struct {
	state *BotState
	name  string
}

func NewProperty[T any](state *BotState, name string) *Property[T] {
	return &Property[T]{state: state, name: name}
}

func (p *Property[T]) Name() string { return p.name }

// Get returns the live value for this turn. When nothing is stored yet, def supplies
// the initial value (a zero T when def is nil). Mutations through the returned pointer
// are persisted by SaveChanges.
func (p *Property[T]) Get(ctx context.Context, tc *turn.Context, def func() *T) (*T, error) {
	cached, err := p.state.load(ctx, tc)
	if err != nil {
		return nil, err
	}
	if v, ok := cached.live[p.name]; ok {
		return v.(*T), nil
	}

	var value *T
	if raw, ok := cached.doc[p.name]; ok {
		value = new(T)
		if err := json.Unmarshal(raw, value); err != nil {
			return nil, errors.NewStateStorageFailedError("decode "+p.name, err)
		}
	} else if def != nil {
		value = def()
	} else {
		value = new(T)
	}
	cached.live[p.name] = value
	return value, nil
}

// Set replaces the value for this turn.
func (p *Property[T]) Set(ctx context.Context, tc *turn.Context, value *T) error {
	cached, err := p.state.load(ctx, tc)
	if err != nil {
		return err
	}
	cached.live[p.name] = value
	return nil
}

// Delete drops the entry from the document.
func (p *Property[T]) Delete(ctx context.Context, tc *turn.Context) error {
	cached, err := p.state.load(ctx, tc)
	if err != nil {
		return err
	}
	delete(cached.live, p.name)
	delete(cached.doc, p.name)
	return nil
}
