package schema

import "context"

// ModelClient sends an ordered chat to a language model and returns the
// text of its reply. Non-success responses fail with an *UpstreamError.
type ModelClient interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}
