// Package workflows declares the QA assistant's workflow set: each
// workflow is a step-graph literal over the generic engine, plus the menu
// texts and protocol constants shared with the dispatch layer.
package workflows

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/qatools/qabot/assist"
	"github.com/qatools/qabot/engine"
)

// StateID aliases the engine's state identifier for the graph literals in
// this package.
type StateID = engine.StateID

// Deps are the external collaborators some workflows need. Assist may be
// nil, in which case AI drafting reports itself unavailable.
type Deps struct {
	Assist     assist.Generator
	Clock      clockwork.Clock
	HTTPClient *http.Client
}

// All returns every workflow in menu order.
func All(deps Deps) []*engine.Workflow {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	httpClient := probeClient(deps.HTTPClient)
	return []*engine.Workflow{
		FileGen(),
		Pairwise(),
		APICheck(httpClient),
		DataCheck(),
		Docs(deps.Assist),
		TestData(),
		Timestamp(clock),
		SQLGen(),
	}
}

// probeClient returns the supplied client, or a timeout-bounded one.
// A hung endpoint must not hold the user's turn open.
func probeClient(c *http.Client) *http.Client {
	if c == nil {
		return &http.Client{Timeout: apiProbeTimeout}
	}
	return c
}

var leadingEnumeration = regexp.MustCompile(`^\s*\d+\s*[.)]?\s*`)

// splitItems splits author-provided list input on semicolons, or newlines
// when no semicolon is present, and strips leading enumeration ("1.", "2)")
// from each item. Empty items are dropped.
func splitItems(text string) []string {
	var parts []string
	if strings.Contains(text, ";") {
		parts = strings.Split(text, ";")
	} else {
		parts = strings.Split(text, "\n")
	}
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		p = leadingEnumeration.ReplaceAllString(strings.TrimSpace(p), "")
		p = strings.TrimSpace(p)
		if p != "" {
			items = append(items, p)
		}
	}
	return items
}

// oneOf returns a validator accepting exactly the given options.
func oneOf(reason string, options ...string) func(string, engine.Fields) error {
	return func(input string, _ engine.Fields) error {
		for _, o := range options {
			if input == o {
				return nil
			}
		}
		return engine.Invalid("%s", reason)
	}
}
