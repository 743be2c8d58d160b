// internal/dialog/prompt.go
package dialog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"bookings-bot/internal/common/errors"
	"bookings-bot/internal/turn"
)

// PromptOptions is persisted with the prompt frame so the prompt can recognize and
// re-ask on later turns.
type PromptOptions struct {
	Prompt      string   `json:"prompt"`
	RetryPrompt string   `json:"retryPrompt,omitempty"`
	Choices     []string `json:"choices,omitempty"`
	// Validations is a snapshot of the issuing waterfall's values.
	Validations json.RawMessage `json:"validations,omitempty"`
}

type Recognized[T any] struct {
	Succeeded bool
	Value     T
}

type PromptValidatorContext[T any] struct {
	Turn         *turn.Context
	Recognized   Recognized[T]
	Options      PromptOptions
	AttemptCount int
}

// Validations decodes the values captured when the prompt was issued into dst.
func (pc *PromptValidatorContext[T]) Validations(dst interface{}) error {
	if len(pc.Options.Validations) == 0 {
		return errors.NewStateNotFoundError("validations")
	}
	if err := json.Unmarshal(pc.Options.Validations, dst); err != nil {
		return fmt.Errorf("decode validations: %w", err)
	}
	return nil
}

// PromptValidator decides whether a recognized reply is acceptable. Returning false
// re-asks; returning an error faults the turn.
type PromptValidator[T any] func(ctx context.Context, pc *PromptValidatorContext[T]) (bool, error)

type Recognizer[T any] func(activity *turn.Activity, options PromptOptions) Recognized[T]

// Prompt is a dialog that asks once, then recognizes and validates every following
// message until one is accepted.
type Prompt[T any] struct {
	id        string
	recognize Recognizer[T]
	validate  PromptValidator[T]
	choices   []string
}

type promptState struct {
	Options PromptOptions `json:"options"`
	Attempt int           `json:"attempt"`
}

func NewPrompt[T any](id string, recognize Recognizer[T], validate PromptValidator[T]) *Prompt[T] {
	return &Prompt[T]{id: id, recognize: recognize, validate: validate}
}

func (p *Prompt[T]) ID() string { return p.id }

func (p *Prompt[T]) Begin(ctx context.Context, dc *Context, options interface{}) (TurnResult, error) {
	var opts PromptOptions
	switch o := options.(type) {
	case PromptOptions:
		opts = o
	case *PromptOptions:
		if o != nil {
			opts = *o
		}
	default:
		return TurnResult{}, fmt.Errorf("prompt %s requires PromptOptions, got %T", p.id, options)
	}
	if len(opts.Choices) == 0 && len(p.choices) > 0 {
		opts.Choices = append([]string(nil), p.choices...)
	}

	f := dc.ActiveDialog()
	f.live = &promptState{Options: opts}

	if err := dc.Turn.SendActivity(ctx, renderPrompt(opts.Prompt, opts.Choices)); err != nil {
		return TurnResult{}, err
	}
	return waiting(), nil
}

func (p *Prompt[T]) Continue(ctx context.Context, dc *Context) (TurnResult, error) {
	f := dc.ActiveDialog()
	st, err := frameState[promptState](f)
	if err != nil {
		return TurnResult{}, err
	}
	if !dc.Turn.Activity.IsMessage() {
		return waiting(), nil
	}

	st.Attempt++
	recognized := p.recognize(dc.Turn.Activity, st.Options)

	valid := recognized.Succeeded
	if valid && p.validate != nil {
		valid, err = p.validate(ctx, &PromptValidatorContext[T]{
			Turn:         dc.Turn,
			Recognized:   recognized,
			Options:      st.Options,
			AttemptCount: st.Attempt,
		})
		if err != nil {
			return TurnResult{}, err
		}
	}

	if !valid {
		dc.dialogs.recordRetry(p.id)
		text := st.Options.RetryPrompt
		if text == "" {
			text = st.Options.Prompt
		}
		if err := dc.Turn.SendActivity(ctx, renderPrompt(text, st.Options.Choices)); err != nil {
			return TurnResult{}, err
		}
		return waiting(), nil
	}
	return dc.End(ctx, recognized.Value)
}

// Resume re-asks; prompts never start children, so this only happens after a
// stack was edited externally.
func (p *Prompt[T]) Resume(ctx context.Context, dc *Context, _ interface{}) (TurnResult, error) {
	f := dc.ActiveDialog()
	st, err := frameState[promptState](f)
	if err != nil {
		return TurnResult{}, err
	}
	if err := dc.Turn.SendActivity(ctx, renderPrompt(st.Options.Prompt, st.Options.Choices)); err != nil {
		return TurnResult{}, err
	}
	return waiting(), nil
}

// renderPrompt lists choices as a numbered list and mirrors them as suggested actions.
func renderPrompt(text string, choices []string) turn.Activity {
	if len(choices) == 0 {
		return turn.NewMessage(text)
	}
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n")
	for i, c := range choices {
		b.WriteString("\n   ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(c)
	}
	a := turn.NewMessage(b.String())
	a.SuggestedActions = append([]string(nil), choices...)
	return a
}

// ==========================
// Choice
// ==========================

// FoundChoice is the recognized reply of a choice prompt.
type FoundChoice struct {
	Index int
	Value string
}

// RecognizeChoice matches the reply against the offered choices: a case-insensitive
// exact title match first, then a 1-based ordinal.
func RecognizeChoice(activity *turn.Activity, options PromptOptions) Recognized[FoundChoice] {
	text := strings.TrimSpace(activity.Text)
	if text == "" {
		return Recognized[FoundChoice]{}
	}
	for i, c := range options.Choices {
		if strings.EqualFold(text, strings.TrimSpace(c)) {
			return Recognized[FoundChoice]{Succeeded: true, Value: FoundChoice{Index: i, Value: c}}
		}
	}
	if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(options.Choices) {
		return Recognized[FoundChoice]{Succeeded: true, Value: FoundChoice{Index: n - 1, Value: options.Choices[n-1]}}
	}
	return Recognized[FoundChoice]{}
}

func NewChoicePrompt(id string, validate PromptValidator[FoundChoice]) *Prompt[FoundChoice] {
	return NewPrompt(id, RecognizeChoice, validate)
}

// ==========================
// Text
// ==========================

// RecognizeText accepts any message and yields its trimmed text.
func RecognizeText(activity *turn.Activity, _ PromptOptions) Recognized[string] {
	return Recognized[string]{Succeeded: true, Value: strings.TrimSpace(activity.Text)}
}

func NewTextPrompt(id string, validate PromptValidator[string]) *Prompt[string] {
	return NewPrompt(id, RecognizeText, validate)
}

// ==========================
// Confirm
// ==========================

var (
	confirmYes = map[string]bool{"yes": true, "y": true, "yeah": true, "yep": true, "sure": true, "ok": true, "okay": true, "true": true}
	confirmNo  = map[string]bool{"no": true, "n": true, "nope": true, "false": true}
)

// RecognizeConfirm understands a small yes/no grammar plus the two offered choices,
// by title or by ordinal.
func RecognizeConfirm(activity *turn.Activity, options PromptOptions) Recognized[bool] {
	text := strings.ToLower(strings.TrimSpace(activity.Text))
	if len(options.Choices) == 2 {
		if found := RecognizeChoice(activity, options); found.Succeeded {
			return Recognized[bool]{Succeeded: true, Value: found.Value.Index == 0}
		}
	}
	switch {
	case confirmYes[text]:
		return Recognized[bool]{Succeeded: true, Value: true}
	case confirmNo[text]:
		return Recognized[bool]{Succeeded: true, Value: false}
	}
	return Recognized[bool]{}
}

// NewConfirmPrompt offers Yes and No unless the options carry their own two choices.
func NewConfirmPrompt(id string, validate PromptValidator[bool]) *Prompt[bool] {
	p := NewPrompt(id, RecognizeConfirm, validate)
	p.choices = []string{"Yes", "No"}
	return p
}
