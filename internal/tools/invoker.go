package tools

import (
	"context"
	"fmt"
)

// Transport is a connected tool endpoint that can be re-established after a
// transport failure.
type Transport interface {
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
	Reconnect(ctx context.Context) error
}

// Invoker wraps a single tool call with one-shot reconnect-and-retry
// semantics. A bounded two-attempt loop replaces retry-by-recursion: on a
// recognized transport failure it re-establishes the connection and retries
// the original call exactly once. A second failure, a non-transport error, or
// any error during recovery is terminal.
type Invoker struct {
	transport Transport
}

func NewInvoker(transport Transport) *Invoker {
	return &Invoker{transport: transport}
}

const maxAttempts = 2

func (i *Invoker) Invoke(ctx context.Context, tool string, args map[string]any) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := i.transport.CallTool(ctx, tool, args)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !IsTransportError(err) || attempt == maxAttempts {
			return "", err
		}
		if rerr := i.transport.Reconnect(ctx); rerr != nil {
			return "", fmt.Errorf("reconnect after transport failure: %w", rerr)
		}
	}
	return "", lastErr
}
