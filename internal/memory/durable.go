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

// Durable writes every message to a session.Store and reads the history
// back from it. The context-size policy is applied as a read window, so
// rows are never deleted.
//
// The configured system prompt is not stored; it is placed at the head of
// every read unless the session's first stored message is itself a system
// message.
type Durable struct {
	mu           sync.Mutex
	store        session.Store
	session      schema.Session
	limits       schema.Limits
	systemPrompt string
	watermark    int64 // rows with id <= watermark were cleared
	start        time.Time
	logger       *slog.Logger
}

var _ schema.ConversationStore = (*Durable)(nil)

// NewDurable attaches to sessionID, or creates a session for userID when
// sessionID is zero. An unknown sessionID fails with session.ErrSessionNotFound.
func NewDurable(ctx context.Context, store session.Store, sessionID int64, userID string, limits schema.Limits, systemPrompt string, logger *slog.Logger) (*Durable, error) {
	sess, err := openSession(ctx, store, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Debug("durable memory attached", "session_id", sess.ID)
	return &Durable{
		store:        store,
		session:      sess,
		limits:       limits,
		systemPrompt: systemPrompt,
		start:        time.Now(),
		logger:       logger,
	}, nil
}

func openSession(ctx context.Context, store session.Store, sessionID int64, userID string) (schema.Session, error) {
	if sessionID == 0 {
		sess, err := store.CreateSession(ctx, userID)
		if err != nil {
			return schema.Session{}, fmt.Errorf("memory: %w", err)
		}
		return sess, nil
	}
	sess, err := store.GetSession(ctx, sessionID)
	if err != nil {
		return schema.Session{}, fmt.Errorf("memory: %w", err)
	}
	return sess, nil
}

// SessionID returns the id of the session this store writes to.
func (d *Durable) SessionID() int64 { return d.session.ID }

func (d *Durable) AddMessage(ctx context.Context, role schema.Role, content string, meta *schema.Metadata) error {
	d.mu.Lock()
	maxTokens := d.limits.MaxTokensPerMessage
	d.mu.Unlock()

	msg := schema.NewMessage(role, Truncate(content, maxTokens), meta)
	if err := d.store.AppendMessages(ctx, d.session.ID, msg); err != nil {
		return fmt.Errorf("memory: add message: %w", err)
	}
	return nil
}

func (d *Durable) Messages(ctx context.Context, limit int) ([]schema.Message, error) {
	d.mu.Lock()
	watermark, limits, start := d.watermark, d.limits, d.start
	d.mu.Unlock()

	history, err := d.window(ctx, watermark, limits, start)
	if err != nil {
		return nil, err
	}
	return tail(history, limit), nil
}

// window reads the pinned head and the most recent rows after watermark,
// then applies the context-size policy.
func (d *Durable) window(ctx context.Context, watermark int64, limits schema.Limits, start time.Time) ([]schema.Message, error) {
	maxMessages := limits.MaxContextMessages
	head, err := d.store.LoadMessages(ctx, d.session.ID, session.Query{AfterID: watermark, Limit: 1, Oldest: true})
	if err != nil {
		return nil, fmt.Errorf("memory: read history: %w", err)
	}
	recent, err := d.store.LoadMessages(ctx, d.session.ID, session.Query{AfterID: watermark, Limit: maxMessages})
	if err != nil {
		return nil, fmt.Errorf("memory: read history: %w", err)
	}

	history := make([]schema.Message, 0, len(recent)+1)
	var pinnedID int64 = -1
	switch {
	case len(head) == 1 && head[0].Role == schema.RoleSystem:
		history = append(history, head[0].Message)
		pinnedID = head[0].ID
	case d.systemPrompt != "":
		history = append(history, schema.Message{
			Role:      schema.RoleSystem,
			Content:   Truncate(d.systemPrompt, limits.MaxTokensPerMessage),
			Timestamp: start,
		})
	}
	for _, m := range recent {
		if m.ID == pinnedID {
			continue
		}
		history = append(history, m.Message)
	}

	kept, _ := Trim(history, maxMessages)
	return kept, nil
}

// Clear hides everything written so far from later reads and restarts the
// session clock. Stored rows are kept; reattaching to the session in a new
// process shows them again.
func (d *Durable) Clear(ctx context.Context) error {
	d.mu.Lock()
	watermark := d.watermark
	d.mu.Unlock()

	latest, err := d.store.LoadMessages(ctx, d.session.ID, session.Query{AfterID: watermark, Limit: 1})
	if err != nil {
		return fmt.Errorf("memory: clear: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(latest) == 1 && latest[0].ID > d.watermark {
		d.watermark = latest[0].ID
	}
	d.start = time.Now()
	d.logger.Debug("durable memory cleared", "session_id", d.session.ID, "watermark", d.watermark)
	return nil
}

func (d *Durable) Summary(ctx context.Context) (schema.Summary, error) {
	d.mu.Lock()
	watermark, limits, start := d.watermark, d.limits, d.start
	d.mu.Unlock()

	history, err := d.window(ctx, watermark, limits, start)
	if err != nil {
		return schema.Summary{}, err
	}
	return summarize(history, start), nil
}

// SetLimits takes effect on the next read; nothing stored changes.
func (d *Durable) SetLimits(_ context.Context, maxMessages, maxTokens int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.limits = applyLimits(d.limits, maxMessages, maxTokens)
	return nil
}

func (d *Durable) Limits() schema.Limits {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.limits
}
