package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/crystaldolphin/friday/internal/schema"
	"github.com/crystaldolphin/friday/internal/session"
)

// Hybrid keeps a bounded history in process, like Transient, and writes
// messages evicted by the context-size policy to a session.Store before
// dropping them. Messages reports only the live cache; FullHistory adds the
// flushed part back.
type Hybrid struct {
	mu           sync.Mutex
	store        session.Store
	session      schema.Session
	cache        []schema.Message
	limits       schema.Limits
	systemPrompt string
	start        time.Time
	logger       *slog.Logger
}

var _ schema.ConversationStore = (*Hybrid)(nil)

// NewHybrid attaches to sessionID, or creates a session for userID when
// sessionID is zero. The live cache always starts empty.
func NewHybrid(ctx context.Context, store session.Store, sessionID int64, userID string, limits schema.Limits, systemPrompt string, logger *slog.Logger) (*Hybrid, error) {
	sess, err := openSession(ctx, store, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Hybrid{
		store:        store,
		session:      sess,
		limits:       limits,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
	h.reset()
	return h, nil
}

// SessionID returns the id of the session evicted messages are written to.
func (h *Hybrid) SessionID() int64 { return h.session.ID }

func (h *Hybrid) reset() {
	h.cache = nil
	h.start = time.Now()
	if h.systemPrompt != "" {
		h.cache = append(h.cache, schema.NewMessage(schema.RoleSystem, Truncate(h.systemPrompt, h.limits.MaxTokensPerMessage), nil))
	}
}

// commit trims candidate to maxMessages and flushes whatever falls out.
// The cache is replaced only if the flush succeeds. Caller holds h.mu.
func (h *Hybrid) commit(ctx context.Context, candidate []schema.Message, maxMessages int) error {
	kept, evicted := Trim(candidate, maxMessages)
	if len(evicted) > 0 {
		if err := h.store.AppendMessages(ctx, h.session.ID, evicted...); err != nil {
			return fmt.Errorf("memory: flush %d evicted messages: %w", len(evicted), err)
		}
		h.logger.Debug("hybrid memory flushed", "session_id", h.session.ID, "count", len(evicted))
	}
	h.cache = kept
	return nil
}

func (h *Hybrid) AddMessage(ctx context.Context, role schema.Role, content string, meta *schema.Metadata) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg := schema.NewMessage(role, Truncate(content, h.limits.MaxTokensPerMessage), meta)
	candidate := make([]schema.Message, 0, len(h.cache)+1)
	candidate = append(candidate, h.cache...)
	candidate = append(candidate, msg)
	return h.commit(ctx, candidate, h.limits.MaxContextMessages)
}

func (h *Hybrid) Messages(_ context.Context, limit int) ([]schema.Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return tail(h.cache, limit), nil
}

// FullHistory returns the leading system message, every message flushed to
// storage for this session, then the rest of the live cache.
func (h *Hybrid) FullHistory(ctx context.Context) ([]schema.Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	flushed, err := h.store.LoadMessages(ctx, h.session.ID, session.Query{})
	if err != nil {
		return nil, fmt.Errorf("memory: full history: %w", err)
	}

	live := h.cache
	out := make([]schema.Message, 0, len(flushed)+len(live))
	if len(live) > 0 && live[0].Role == schema.RoleSystem {
		out = append(out, live[0])
		live = live[1:]
	}
	for _, m := range flushed {
		out = append(out, m.Message)
	}
	return append(out, live...), nil
}

// Clear writes the live messages (all but a leading system message) to
// storage, then resets the cache to the system prompt.
func (h *Hybrid) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	pending := h.cache
	if len(pending) > 0 && pending[0].Role == schema.RoleSystem {
		pending = pending[1:]
	}
	if len(pending) > 0 {
		if err := h.store.AppendMessages(ctx, h.session.ID, pending...); err != nil {
			return fmt.Errorf("memory: clear: %w", err)
		}
	}
	h.reset()
	return nil
}

func (h *Hybrid) Summary(_ context.Context) (schema.Summary, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return summarize(h.cache, h.start), nil
}

// SetLimits flushes anything a smaller maxMessages evicts. If that flush
// fails the previous limits stay in force.
func (h *Hybrid) SetLimits(ctx context.Context, maxMessages, maxTokens int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := applyLimits(h.limits, maxMessages, maxTokens)
	if maxMessages > 0 {
		if err := h.commit(ctx, h.cache, next.MaxContextMessages); err != nil {
			return err
		}
	}
	h.limits = next
	return nil
}

func (h *Hybrid) Limits() schema.Limits {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.limits
}
