// Package provider implements the model provider clients and their
// registry.
package provider

import "context"

// Request carries the rendered prompts for one provider call. Model, when
// set, overrides the client's configured model for this call.
type Request struct {
	System string
	User   string
	Model  string
}

// Client issues one translation request against a provider, bound to one
// model. The same call serves single-task and combined batch prompts; the
// caller decides what the prompt asks for.
type Client interface {
	Name() string
	Model() string
	Translate(ctx context.Context, req Request) (string, error)
}
