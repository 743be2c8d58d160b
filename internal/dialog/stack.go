// Package dialog implements a durable waterfall dialog engine: a stack of dialog frames
// persisted per conversation, prompts with recognizers and validators, and waterfalls
// of typed step handlers.
package dialog

import (
	"encoding/json"
	"fmt"
)

type Status int

const (
	// StatusEmpty means no dialog was active.
	StatusEmpty Status = iota
	// StatusWaiting means a dialog is suspended until the next inbound turn.
	StatusWaiting
	// StatusComplete means the last dialog on the stack ended.
	StatusComplete
	// StatusCancelled means the stack was cleared by a cancellation.
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusWaiting:
		return "waiting"
	case StatusComplete:
		return "complete"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// TurnResult is what every dialog operation returns.
type TurnResult struct {
	Status Status
	Result interface{}
}

func waiting() TurnResult { return TurnResult{Status: StatusWaiting} }

// Frame is one entry of the dialog stack. State holds the dialog's persisted state;
// during a turn the decoded form is kept in live and re-encoded on marshal.
type Frame struct {
	ID    string          `json:"id"`
	State json.RawMessage `json:"state,omitempty"`

	live interface{}
}

type frameJSON struct {
	ID    string          `json:"id"`
	State json.RawMessage `json:"state,omitempty"`
}

func (f *Frame) MarshalJSON() ([]byte, error) {
	out := frameJSON{ID: f.ID, State: f.State}
	if f.live != nil {
		encoded, err := json.Marshal(f.live)
		if err != nil {
			return nil, fmt.Errorf("encode state of dialog %s: %w", f.ID, err)
		}
		out.State = encoded
	}
	return json.Marshal(out)
}

// frameState returns the frame's decoded state, decoding State on first access.
func frameState[S any](f *Frame) (*S, error) {
	if f.live != nil {
		s, ok := f.live.(*S)
		if !ok {
			return nil, fmt.Errorf("dialog %s holds state of type %T", f.ID, f.live)
		}
		return s, nil
	}
	s := new(S)
	if len(f.State) > 0 {
		if err := json.Unmarshal(f.State, s); err != nil {
			return nil, fmt.Errorf("decode state of dialog %s: %w", f.ID, err)
		}
	}
	f.live = s
	return s, nil
}

// Stack is the persisted dialog cursor of a conversation. The last frame is active.
type Stack struct {
	Frames []*Frame `json:"frames"`
}

func (s *Stack) Len() int { return len(s.Frames) }

// IDs lists the dialog ids from bottom to top.
func (s *Stack) IDs() []string {
	ids := make([]string, len(s.Frames))
	for i, f := range s.Frames {
		ids[i] = f.ID
	}
	return ids
}

func (s *Stack) top() *Frame {
	if len(s.Frames) == 0 {
		return nil
	}
	return s.Frames[len(s.Frames)-1]
}

func (s *Stack) push(f *Frame) {
	s.Frames = append(s.Frames, f)
}

func (s *Stack) indexOf(f *Frame) int {
	for i := len(s.Frames) - 1; i >= 0; i-- {
		if s.Frames[i] == f {
			return i
		}
	}
	return -1
}

func (s *Stack) clear() {
	s.Frames = nil
}
