// Package memory implements the conversation stores: an in-process history,
// a durable history read back from a session.Store, a hybrid of the two that
// spills evicted messages to storage, and a stateless store.
//
// Every store applies the same two policies on write: Truncate on content
// and Trim on the history as a whole.
package memory

import (
	"time"

	"github.com/crystaldolphin/friday/internal/schema"
)

// TruncationMarker is appended to content cut by Truncate.
const TruncationMarker = "...[truncated]"

// charsPerToken converts a token budget into a character budget.
const charsPerToken = 4

// Truncate limits content to maxTokens*4 characters. Longer content is cut
// to exactly that many runes and suffixed with TruncationMarker.
// maxTokens <= 0 disables truncation.
func Truncate(content string, maxTokens int) string {
	if maxTokens <= 0 {
		return content
	}
	budget := maxTokens * charsPerToken
	if len(content) <= budget {
		return content
	}
	runes := []rune(content)
	if len(runes) <= budget {
		return content
	}
	return string(runes[:budget]) + TruncationMarker
}

// Trim enforces the context-size bound. When history is longer than
// maxMessages, a leading system message is kept and the most recent
// messages fill the remaining slots. evicted holds the dropped messages in
// chronological order. maxMessages <= 0 disables trimming.
func Trim(history []schema.Message, maxMessages int) (kept, evicted []schema.Message) {
	if maxMessages <= 0 || len(history) <= maxMessages {
		return history, nil
	}

	if history[0].Role == schema.RoleSystem {
		rest := history[1:]
		keepN := maxMessages - 1
		cut := len(rest) - keepN
		kept = make([]schema.Message, 0, maxMessages)
		kept = append(kept, history[0])
		kept = append(kept, rest[cut:]...)
		evicted = append([]schema.Message(nil), rest[:cut]...)
		return kept, evicted
	}

	cut := len(history) - maxMessages
	kept = append([]schema.Message(nil), history[cut:]...)
	evicted = append([]schema.Message(nil), history[:cut]...)
	return kept, evicted
}

// summarize computes a Summary over msgs with the duration measured from
// start.
func summarize(msgs []schema.Message, start time.Time) schema.Summary {
	files := make(map[string]struct{})
	for _, m := range msgs {
		if m.Metadata == nil || m.Metadata.Action != schema.ActionReadFile || m.Metadata.File == "" {
			continue
		}
		files[m.Metadata.File] = struct{}{}
	}

	last := schema.NoAction
	if n := len(msgs); n > 0 {
		if a := msgs[n-1].Action(); a != "" {
			last = a
		}
	}

	return schema.Summary{
		TotalMessages:       len(msgs),
		SessionDuration:     time.Since(start),
		UniqueFilesAccessed: len(files),
		LastAction:          last,
	}
}

// tail returns the last limit messages of msgs as a fresh slice.
// limit <= 0 returns a copy of everything.
func tail(msgs []schema.Message, limit int) []schema.Message {
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]schema.Message, len(msgs))
	copy(out, msgs)
	return out
}

// applyLimits merges a SetLimits request into cur; zero fields are kept.
func applyLimits(cur schema.Limits, maxMessages, maxTokens int) schema.Limits {
	if maxMessages > 0 {
		cur.MaxContextMessages = maxMessages
	}
	if maxTokens > 0 {
		cur.MaxTokensPerMessage = maxTokens
	}
	return cur
}
