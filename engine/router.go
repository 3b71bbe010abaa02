package engine

import (
	"context"
	"log/slog"
	"strings"
)

// Global slash commands honored regardless of session state.
const (
	CommandStart  = "/start"
	CommandHelp   = "/help"
	CommandCancel = "/cancel"
)

// Protocol holds the text-protocol constants layered on top of free-form
// chat text: menu texts, keyboards and the universal control tokens. The
// workflow set supplies these; the engine itself is language-agnostic.
type Protocol struct {
	Welcome      string
	Menu         string
	Help         string
	MenuKeyboard [][]string

	// BackToken is the literal back-to-menu phrase, matched case-sensitively
	// inside a workflow and case-insensitively from the idle menu.
	BackToken   string
	SkipToken   string
	RepeatToken string
	InfoButton  string

	Cancelled    string
	Failure      string
	UseButtons   string
	EmptyInput   string
	AssistDown   string
	RepeatPrompt string
}

// Router maps inbound text to a global command, a menu button that starts
// a workflow, or the current state's step. All session mutation flows
// through here and the Processor.
type Router struct {
	store     *Store
	registry  *Registry
	processor *Processor
	proto     Protocol
	log       *slog.Logger
}

// NewRouter wires the dispatch layer over the store, registry and processor.
func NewRouter(store *Store, registry *Registry, processor *Processor, proto Protocol, log *slog.Logger) *Router {
	return &Router{
		store:     store,
		registry:  registry,
		processor: processor,
		proto:     proto,
		log:       log,
	}
}

// Dispatch handles one inbound message for one user and returns the
// outbound replies. The caller serializes Dispatch invocations per user.
func (r *Router) Dispatch(ctx context.Context, userID, text string) []Reply {
	text = strings.TrimSpace(text)

	// Priority 1: global slash commands, regardless of session state.
	if text == CommandStart {
		r.store.Clear(userID)
		return []Reply{{Text: r.proto.Welcome, Keyboard: r.proto.MenuKeyboard}}
	}
	if wf, ok := r.registry.ByCommand(text); ok {
		return r.start(userID, wf)
	}

	sess := r.store.Get(userID)

	// Priority 2: an active workflow owns the input, behind the interrupt
	// gate. The gate runs before any step logic for every state, so no
	// workflow can trap the user.
	if sess.State != StateIdle {
		if replies, intercepted := r.gate(userID, text); intercepted {
			return replies
		}
		outcome := r.processor.Process(ctx, userID, sess.State, text)
		return outcome.Replies
	}

	// Idle /help and /cancel are plain commands, not interrupts.
	switch text {
	case CommandHelp:
		return []Reply{{Text: r.proto.Help, Keyboard: r.proto.MenuKeyboard}}
	case CommandCancel:
		return []Reply{{Text: r.proto.Cancelled, Keyboard: r.proto.MenuKeyboard}}
	}

	// Priority 3: idle menu buttons, matched case-insensitively.
	switch strings.ToLower(text) {
	case strings.ToLower(r.proto.BackToken):
		return []Reply{{Text: r.proto.Menu, Keyboard: r.proto.MenuKeyboard}}
	case strings.ToLower(r.proto.InfoButton):
		return []Reply{{Text: r.proto.Help, Keyboard: r.proto.MenuKeyboard}}
	}
	if wf, ok := r.registry.ByButton(text); ok {
		return r.start(userID, wf)
	}

	// Priority 4: unrecognized text while idle re-shows the menu.
	return []Reply{{Text: r.proto.Menu, Keyboard: r.proto.MenuKeyboard}}
}

// gate recognizes the universal control tokens ahead of step processing.
// Both tokens clear the session entirely, however much was collected.
func (r *Router) gate(userID, text string) ([]Reply, bool) {
	switch text {
	case CommandHelp:
		InterruptsTotal.WithLabelValues("help").Inc()
		r.store.Clear(userID)
		return []Reply{{Text: r.proto.Help, Keyboard: r.proto.MenuKeyboard}}, true
	case CommandCancel:
		InterruptsTotal.WithLabelValues("cancel").Inc()
		r.store.Clear(userID)
		return []Reply{{Text: r.proto.Cancelled, Keyboard: r.proto.MenuKeyboard}}, true
	case r.proto.BackToken:
		InterruptsTotal.WithLabelValues("back").Inc()
		r.store.Clear(userID)
		return []Reply{{Text: r.proto.Menu, Keyboard: r.proto.MenuKeyboard}}, true
	}
	return nil, false
}

// start clears any previous session and enters the workflow's entry state.
func (r *Router) start(userID string, wf *Workflow) []Reply {
	r.store.Clear(userID)
	r.store.SetState(userID, wf.Entry)
	WorkflowsStartedTotal.WithLabelValues(wf.Name).Inc()
	r.log.Debug("workflow started", "user", userID, "workflow", wf.Name)
	entry := wf.Steps[wf.Entry]
	return []Reply{{Text: entry.Prompt, Keyboard: entry.Keyboard}}
}
