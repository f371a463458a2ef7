// Package mock provides a scriptable Completer for tests.
package mock

import (
	"context"

	"github.com/bell/support-rag/internal/llm"
)

// Completer returns canned responses and records received prompts.
type Completer struct {
	// Response is returned when Responses is empty.
	Response string

	// Responses, when non-empty, are returned in order; the last entry
	// repeats once exhausted.
	Responses []string

	// Err, when set, is returned from every call.
	Err error

	// SystemPrompts and UserPrompts record each call's inputs.
	SystemPrompts []string
	UserPrompts   []string

	calls int
}

var _ llm.Completer = (*Completer)(nil)

// Complete returns the scripted response, honoring context cancellation.
func (c *Completer) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.SystemPrompts = append(c.SystemPrompts, systemPrompt)
	c.UserPrompts = append(c.UserPrompts, userPrompt)
	if c.Err != nil {
		return "", c.Err
	}

	if len(c.Responses) > 0 {
		i := c.calls
		if i >= len(c.Responses) {
			i = len(c.Responses) - 1
		}
		c.calls++
		return c.Responses[i], nil
	}
	c.calls++
	return c.Response, nil
}
