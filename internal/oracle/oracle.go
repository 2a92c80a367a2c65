// Package oracle wraps the hosted language models agents ask for forecasts.
package oracle

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a response carries no choice at all.
// Blank text is not an error.
var ErrEmptyResponse = errors.New("oracle: empty response")

// Request is one forecast call.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Oracle turns a prompt into free-form text. Calls block until the model
// answers or ctx ends.
type Oracle interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Func adapts a function to Oracle.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Complete(ctx context.Context, req Request) (string, error) { return f(ctx, req) }
