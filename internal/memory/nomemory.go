package memory

import (
	"context"
	"sync"

	"github.com/crystaldolphin/friday/internal/schema"
)

// NoMemory stores nothing. Every turn is handled without history.
type NoMemory struct {
	mu     sync.Mutex
	limits schema.Limits
}

var _ schema.ConversationStore = (*NoMemory)(nil)

func NewNoMemory(limits schema.Limits) *NoMemory {
	return &NoMemory{limits: limits}
}

func (n *NoMemory) AddMessage(context.Context, schema.Role, string, *schema.Metadata) error {
	return nil
}

func (n *NoMemory) Messages(context.Context, int) ([]schema.Message, error) {
	return []schema.Message{}, nil
}

func (n *NoMemory) Clear(context.Context) error { return nil }

func (n *NoMemory) Summary(context.Context) (schema.Summary, error) {
	return schema.Summary{LastAction: schema.NoAction}, nil
}

func (n *NoMemory) SetLimits(_ context.Context, maxMessages, maxTokens int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.limits = applyLimits(n.limits, maxMessages, maxTokens)
	return nil
}

func (n *NoMemory) Limits() schema.Limits {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.limits
}
