package engine

import (
	"context"
	"fmt"
	"strings"
)

// StateDone is the terminal marker a StepSpec.Next may return. Reaching it
// renders the workflow's artifact instead of another prompt.
const StateDone StateID = "done"

// repeatSuffix names the synthetic per-workflow state entered after an
// artifact is rendered, where the user picks "create another" or "back to
// menu".
const repeatSuffix = ".repeat"

// StepSpec describes one prompt-and-validate state of a workflow.
type StepSpec struct {
	// Prompt is shown when entering this state. Keyboard is an ordered
	// grid of button-label rows sent along with it.
	Prompt   string
	Keyboard [][]string

	// Field is the fields key this step stores into. Optional steps accept
	// the skip token, which stores "" without calling Accept.
	Field    string
	Optional bool

	// Validate rejects raw input with a user-facing reason. Nil means any
	// non-empty input is accepted.
	Validate func(input string, f Fields) error

	// Accept normalizes validated input into a field update. Nil stores
	// the raw input under Field. Accept may perform externally-awaited
	// work (an HTTP probe, an assistant call) bound to ctx.
	Accept func(ctx context.Context, input string, f Fields) (Fields, error)

	// Next computes the following state from the accumulated fields. It
	// must return a state of the same workflow or StateDone.
	Next func(f Fields) StateID
}

// Workflow is one complete multi-step data-collection task, declared as a
// directed graph of steps. Definitions are built once at startup and never
// mutated.
type Workflow struct {
	Name    string
	Command string // slash command, e.g. "/docs"
	Button  string // main-menu button label
	Entry   StateID
	Steps   map[StateID]StepSpec

	// Render turns the accumulated fields into the final artifact text.
	Render func(f Fields) (string, error)

	// RepeatPrompt is shown with the create-another choice after the
	// artifact. Empty uses the registry default.
	RepeatPrompt string
}

func (w *Workflow) repeatState() StateID {
	return StateID(w.Name + repeatSuffix)
}

// To returns a Next func that always transitions to the given state.
func To(id StateID) func(Fields) StateID {
	return func(Fields) StateID { return id }
}

// Done is a Next func that always terminates the workflow.
func Done(Fields) StateID { return StateDone }

// Registry holds every workflow, indexed by name, slash command, menu
// button and state. Read-only after Validate.
type Registry struct {
	workflows []*Workflow
	byName    map[string]*Workflow
	byCommand map[string]*Workflow
	byButton  map[string]*Workflow // lowercased button label
	byState   map[StateID]*Workflow
}

// NewRegistry indexes the given workflows. Call Validate before use;
// a failed validation is a programming error and fatal at startup.
func NewRegistry(workflows []*Workflow) *Registry {
	r := &Registry{
		workflows: workflows,
		byName:    make(map[string]*Workflow),
		byCommand: make(map[string]*Workflow),
		byButton:  make(map[string]*Workflow),
		byState:   make(map[StateID]*Workflow),
	}
	for _, w := range workflows {
		r.byName[w.Name] = w
		r.byCommand[w.Command] = w
		r.byButton[strings.ToLower(w.Button)] = w
		for id := range w.Steps {
			r.byState[id] = w
		}
		r.byState[w.repeatState()] = w
	}
	return r
}

// Validate checks registry consistency: unique names, commands and button
// labels, entry states present, and every Next target reachable from the
// entry resolving to a known state or StateDone.
func (r *Registry) Validate() error {
	if len(r.workflows) == 0 {
		return fmt.Errorf("no workflows registered")
	}
	if len(r.byName) != len(r.workflows) {
		return fmt.Errorf("duplicate workflow name")
	}
	if len(r.byCommand) != len(r.workflows) {
		return fmt.Errorf("duplicate workflow command")
	}
	if len(r.byButton) != len(r.workflows) {
		return fmt.Errorf("duplicate workflow button label")
	}
	for _, w := range r.workflows {
		if w.Name == "" || w.Command == "" || w.Button == "" {
			return fmt.Errorf("workflow %q: name, command and button are required", w.Name)
		}
		if !strings.HasPrefix(w.Command, "/") {
			return fmt.Errorf("workflow %q: command %q must start with '/'", w.Name, w.Command)
		}
		if w.Render == nil {
			return fmt.Errorf("workflow %q: missing Render", w.Name)
		}
		if _, ok := w.Steps[w.Entry]; !ok {
			return fmt.Errorf("workflow %q: entry state %q not in steps", w.Name, w.Entry)
		}
		for id, step := range w.Steps {
			if step.Prompt == "" {
				return fmt.Errorf("workflow %q: state %q has no prompt", w.Name, id)
			}
			if step.Next == nil {
				return fmt.Errorf("workflow %q: state %q has no Next", w.Name, id)
			}
			if owner, ok := r.byState[id]; !ok || owner != w {
				return fmt.Errorf("workflow %q: state %q registered to another workflow", w.Name, id)
			}
		}
	}
	return nil
}

// Lookup returns the workflow with the given name.
func (r *Registry) Lookup(name string) (*Workflow, bool) {
	w, ok := r.byName[name]
	return w, ok
}

// ByCommand returns the workflow registered for the given slash command.
func (r *Registry) ByCommand(cmd string) (*Workflow, bool) {
	w, ok := r.byCommand[cmd]
	return w, ok
}

// ByButton returns the workflow whose menu button matches label,
// case-insensitively.
func (r *Registry) ByButton(label string) (*Workflow, bool) {
	w, ok := r.byButton[strings.ToLower(strings.TrimSpace(label))]
	return w, ok
}

// Owner returns the workflow owning the given state.
func (r *Registry) Owner(state StateID) (*Workflow, bool) {
	w, ok := r.byState[state]
	return w, ok
}

// Workflows returns the registered workflows in registration order.
func (r *Registry) Workflows() []*Workflow {
	return r.workflows
}
