package memory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/crystaldolphin/friday/internal/schema"
	"github.com/crystaldolphin/friday/internal/session"
)

// Backend names accepted by New.
const (
	BackendTransient = "transient"
	BackendDurable   = "durable"
	BackendHybrid    = "hybrid"
	BackendNone      = "none"
)

// Backends lists every backend name, in the order the CLI reports them.
var Backends = []string{BackendTransient, BackendDurable, BackendHybrid, BackendNone}

// NeedsPersistence reports whether backend requires a session.Store.
func NeedsPersistence(backend string) bool {
	return backend == BackendDurable || backend == BackendHybrid
}

// Options selects and configures a conversation store.
type Options struct {
	Backend      string
	Limits       schema.Limits
	SystemPrompt string

	// SessionID attaches durable and hybrid stores to an existing session;
	// zero creates a new one owned by UserID.
	SessionID int64
	UserID    string

	// Persistence is required by the durable and hybrid backends.
	Persistence session.Store

	Logger *slog.Logger
}

// SessionScoped is implemented by stores that write to a persisted session.
type SessionScoped interface {
	SessionID() int64
}

// New builds the store named by opts.Backend. An empty backend means
// transient. A limit that is not positive takes its default.
func New(ctx context.Context, opts Options) (schema.ConversationStore, error) {
	opts.Limits = applyLimits(schema.DefaultLimits(), opts.Limits.MaxContextMessages, opts.Limits.MaxTokensPerMessage)

	switch opts.Backend {
	case "", BackendTransient:
		return NewTransient(opts.Limits, opts.SystemPrompt), nil
	case BackendNone:
		return NewNoMemory(opts.Limits), nil
	case BackendDurable, BackendHybrid:
		if opts.Persistence == nil {
			return nil, fmt.Errorf("memory: backend %q requires persistence", opts.Backend)
		}
		if opts.Backend == BackendDurable {
			d, err := NewDurable(ctx, opts.Persistence, opts.SessionID, opts.UserID, opts.Limits, opts.SystemPrompt, opts.Logger)
			if err != nil {
				return nil, err
			}
			return d, nil
		}
		h, err := NewHybrid(ctx, opts.Persistence, opts.SessionID, opts.UserID, opts.Limits, opts.SystemPrompt, opts.Logger)
		if err != nil {
			return nil, err
		}
		return h, nil
	default:
		return nil, fmt.Errorf("memory: unknown backend %q", opts.Backend)
	}
}
