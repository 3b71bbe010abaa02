package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Reply is one outbound message: text plus an optional keyboard grid.
type Reply struct {
	Text     string
	Keyboard [][]string
}

// OutcomeKind classifies the result of processing one step input.
type OutcomeKind int

const (
	// OutcomeReprompt means validation failed: same state, prompt re-shown
	// with the reason prefixed, fields unchanged.
	OutcomeReprompt OutcomeKind = iota
	// OutcomeAdvance means the input was accepted: fields updated, state
	// transitioned, next prompt (or the rendered artifact) emitted.
	OutcomeAdvance
	// OutcomeEscalate means an unexpected failure: session cleared, a
	// generic failure message emitted, conversation back at the menu.
	OutcomeEscalate
)

// Outcome is the result of one Processor.Process invocation.
type Outcome struct {
	Kind    OutcomeKind
	Replies []Reply
}

// Processor executes one workflow step for a raw input: validate,
// normalize, persist, compute the next state and emit the next prompt or
// the rendered artifact. It is generic over all workflows; concrete
// behavior lives entirely in the StepSpec graphs.
type Processor struct {
	store    *Store
	registry *Registry
	proto    Protocol
	log      *slog.Logger
}

// NewProcessor creates a step processor over the given store and registry.
func NewProcessor(store *Store, registry *Registry, proto Protocol, log *slog.Logger) *Processor {
	return &Processor{store: store, registry: registry, proto: proto, log: log}
}

// Process runs the step the user's session is in against rawInput.
func (p *Processor) Process(ctx context.Context, userID string, state StateID, rawInput string) Outcome {
	wf, ok := p.registry.Owner(state)
	if !ok {
		p.log.Error("session in unknown state", "user", userID, "state", state)
		return p.escalate(userID, "")
	}

	if state == wf.repeatState() {
		return p.processRepeatChoice(userID, wf, rawInput)
	}

	step, ok := wf.Steps[state]
	if !ok {
		p.log.Error("state not in workflow steps", "user", userID, "state", state, "workflow", wf.Name)
		return p.escalate(userID, wf.Name)
	}

	input := strings.TrimSpace(rawInput)
	if input == "" {
		ValidationRejectsTotal.WithLabelValues(wf.Name).Inc()
		return reprompt(p.proto.EmptyInput, step)
	}

	fields := p.store.Get(userID).Fields

	var update Fields
	if step.Optional && input == p.proto.SkipToken {
		update = Fields{step.Field: ""}
	} else {
		if step.Validate != nil {
			if err := step.Validate(input, fields); err != nil {
				ValidationRejectsTotal.WithLabelValues(wf.Name).Inc()
				return reprompt(reasonOf(err), step)
			}
		}
		var err error
		update, err = p.accept(ctx, step, input, fields)
		if err != nil {
			var vErr *ValidationError
			if errors.As(err, &vErr) {
				ValidationRejectsTotal.WithLabelValues(wf.Name).Inc()
				return reprompt(vErr.Reason, step)
			}
			var aErr *AssistError
			if errors.As(err, &aErr) {
				AssistErrorsTotal.Inc()
				p.log.Warn("assistant call failed", "user", userID, "workflow", wf.Name, "error", err)
				return reprompt(p.proto.AssistDown, step)
			}
			p.log.Error("step accept failed", "user", userID, "state", state, "workflow", wf.Name, "error", err)
			return p.escalate(userID, wf.Name)
		}
	}

	p.store.UpdateFields(userID, update)
	fields.Merge(update)

	next := step.Next(fields)
	if next == StateDone {
		return p.finish(userID, wf, fields)
	}

	nextStep, ok := wf.Steps[next]
	if !ok {
		p.log.Error("step transition to unknown state", "workflow", wf.Name, "from", state, "to", next)
		return p.escalate(userID, wf.Name)
	}
	p.store.SetState(userID, next)
	return Outcome{
		Kind:    OutcomeAdvance,
		Replies: []Reply{{Text: nextStep.Prompt, Keyboard: nextStep.Keyboard}},
	}
}

func (p *Processor) accept(ctx context.Context, step StepSpec, input string, fields Fields) (Fields, error) {
	if step.Accept == nil {
		return Fields{step.Field: input}, nil
	}
	return step.Accept(ctx, input, fields.Clone())
}

// finish renders the artifact and moves the session into the repeat-choice
// state, so the user is never left parked in a terminal state.
func (p *Processor) finish(userID string, wf *Workflow, fields Fields) Outcome {
	artifact, err := wf.Render(fields)
	if err != nil {
		RenderErrorsTotal.WithLabelValues(wf.Name).Inc()
		p.log.Error("artifact render failed", "user", userID, "workflow", wf.Name, "error", err)
		return p.escalate(userID, wf.Name)
	}
	WorkflowsCompletedTotal.WithLabelValues(wf.Name).Inc()
	p.store.SetState(userID, wf.repeatState())

	prompt := wf.RepeatPrompt
	if prompt == "" {
		prompt = p.proto.RepeatPrompt
	}
	return Outcome{
		Kind: OutcomeAdvance,
		Replies: []Reply{
			{Text: artifact},
			{Text: prompt, Keyboard: p.repeatKeyboard()},
		},
	}
}

func (p *Processor) processRepeatChoice(userID string, wf *Workflow, rawInput string) Outcome {
	switch strings.TrimSpace(rawInput) {
	case p.proto.RepeatToken:
		p.store.Clear(userID)
		p.store.SetState(userID, wf.Entry)
		WorkflowsStartedTotal.WithLabelValues(wf.Name).Inc()
		entry := wf.Steps[wf.Entry]
		return Outcome{
			Kind:    OutcomeAdvance,
			Replies: []Reply{{Text: entry.Prompt, Keyboard: entry.Keyboard}},
		}
	case p.proto.BackToken:
		p.store.Clear(userID)
		return Outcome{
			Kind:    OutcomeAdvance,
			Replies: []Reply{{Text: p.proto.Menu, Keyboard: p.proto.MenuKeyboard}},
		}
	default:
		return Outcome{
			Kind:    OutcomeReprompt,
			Replies: []Reply{{Text: p.proto.UseButtons, Keyboard: p.repeatKeyboard()}},
		}
	}
}

func (p *Processor) repeatKeyboard() [][]string {
	return [][]string{{p.proto.RepeatToken}, {p.proto.BackToken}}
}

func (p *Processor) escalate(userID, workflow string) Outcome {
	p.store.Clear(userID)
	EscalationsTotal.WithLabelValues(workflow).Inc()
	return Outcome{
		Kind:    OutcomeEscalate,
		Replies: []Reply{{Text: p.proto.Failure, Keyboard: p.proto.MenuKeyboard}},
	}
}

func reprompt(reason string, step StepSpec) Outcome {
	return Outcome{
		Kind:    OutcomeReprompt,
		Replies: []Reply{{Text: reason + "\n\n" + step.Prompt, Keyboard: step.Keyboard}},
	}
}

func reasonOf(err error) string {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Reason
	}
	return err.Error()
}
