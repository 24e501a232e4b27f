package memory

import (
	"context"
	"sync"
	"time"

	"github.com/crystaldolphin/friday/internal/schema"
)

// Transient keeps the history in process. Evicted messages are discarded.
type Transient struct {
	mu           sync.Mutex
	history      []schema.Message
	limits       schema.Limits
	systemPrompt string
	start        time.Time
}

var _ schema.ConversationStore = (*Transient)(nil)

// NewTransient returns a store seeded with systemPrompt, if non-empty.
func NewTransient(limits schema.Limits, systemPrompt string) *Transient {
	t := &Transient{limits: limits, systemPrompt: systemPrompt}
	t.reset()
	return t
}

// reset empties the history and re-seeds it. Caller holds t.mu or has
// exclusive access.
func (t *Transient) reset() {
	t.history = nil
	t.start = time.Now()
	if t.systemPrompt != "" {
		t.appendLocked(schema.RoleSystem, t.systemPrompt, nil)
	}
}

func (t *Transient) appendLocked(role schema.Role, content string, meta *schema.Metadata) {
	content = Truncate(content, t.limits.MaxTokensPerMessage)
	t.history = append(t.history, schema.NewMessage(role, content, meta))
	t.history, _ = Trim(t.history, t.limits.MaxContextMessages)
}

func (t *Transient) AddMessage(_ context.Context, role schema.Role, content string, meta *schema.Metadata) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.appendLocked(role, content, meta)
	return nil
}

func (t *Transient) Messages(_ context.Context, limit int) ([]schema.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return tail(t.history, limit), nil
}

func (t *Transient) Clear(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reset()
	return nil
}

func (t *Transient) Summary(_ context.Context) (schema.Summary, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return summarize(t.history, t.start), nil
}

func (t *Transient) SetLimits(_ context.Context, maxMessages, maxTokens int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.limits = applyLimits(t.limits, maxMessages, maxTokens)
	if maxMessages > 0 {
		t.history, _ = Trim(t.history, t.limits.MaxContextMessages)
	}
	return nil
}

func (t *Transient) Limits() schema.Limits {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limits
}
