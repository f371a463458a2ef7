// Package llm wraps the external text-completion collaborator.
package llm

import (
	"context"
	"errors"
)

// ErrCompletionUnavailable indicates the completion service could not be
// reached or refused the request. Callers surface this as a degraded
// "service unavailable" condition rather than answering silently.
var ErrCompletionUnavailable = errors.New("completion service unavailable")

// Completer produces a text completion for a system/user prompt pair.
// Implementations must honor context cancellation; callers rely on a
// cancelled call returning an error so no partial assistant message is
// persisted.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error)
}
