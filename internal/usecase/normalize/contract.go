package normalize

import "context"

// Completer sends a single prompt to a generative AI service and returns its text reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
