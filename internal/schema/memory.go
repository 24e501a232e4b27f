package schema

import "context"

// ConversationStore owns one conversation history and its limits.
//
// Every mutation applies the truncation and context-size policies, so after
// any call len(Messages(ctx, 0)) <= Limits().MaxContextMessages. A leading
// system message is pinned: only Clear removes it.
type ConversationStore interface {
	// AddMessage truncates content and appends it. Errors are storage failures.
	AddMessage(ctx context.Context, role Role, content string, meta *Metadata) error

	// Messages returns a chronological snapshot. limit > 0 keeps only the
	// most recent limit messages.
	Messages(ctx context.Context, limit int) ([]Message, error)

	// Clear empties the history and re-adds the configured system prompt.
	Clear(ctx context.Context) error

	// Summary reports message count, elapsed time since creation or the last
	// Clear, distinct files read and the most recent action.
	Summary(ctx context.Context) (Summary, error)

	// SetLimits updates either limit; zero leaves a limit unchanged.
	// A new maxMessages is applied immediately.
	SetLimits(ctx context.Context, maxMessages, maxTokensPerMessage int) error

	Limits() Limits
}
