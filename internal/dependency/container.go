// Package dependency wires friday's services using go.uber.org/dig.
package dependency

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/dig"

	"github.com/crystaldolphin/friday/internal/agent"
	"github.com/crystaldolphin/friday/internal/config"
	"github.com/crystaldolphin/friday/internal/memory"
	"github.com/crystaldolphin/friday/internal/providers"
	"github.com/crystaldolphin/friday/internal/schema"
	"github.com/crystaldolphin/friday/internal/session"
)

// Container holds the resolved service singletons for one conversation.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	client      schema.ModelClient
	persistence session.Store
	store       schema.ConversationStore
	router      *agent.Router
}

func (c *Container) Client() schema.ModelClient      { return c.client }
func (c *Container) Store() schema.ConversationStore { return c.store }
func (c *Container) Router() *agent.Router           { return c.router }
func (c *Container) Persistence() session.Store      { return c.persistence }

// SessionID reports the persisted session the store writes to, or 0 for
// stores that keep nothing on disk.
func (c *Container) SessionID() int64 {
	if s, ok := c.store.(memory.SessionScoped); ok {
		return s.SessionID()
	}
	return 0
}

// Close releases the persistence connection, if any.
func (c *Container) Close() error {
	if c.persistence == nil {
		return nil
	}
	return c.persistence.Close()
}

// Options adjust what New builds.
type Options struct {
	// Backend overrides cfg.Memory.Backend when set.
	Backend string
	// SessionID reattaches to a persisted session; zero starts a new one.
	SessionID int64
	// Client replaces the configured model client.
	Client schema.ModelClient
	// Persistence replaces the configured session store. The container
	// does not close a store it did not open.
	Persistence session.Store
}

// Persistence wraps the optional session store so dig can carry a nil one.
type Persistence struct {
	Store session.Store
	owned bool
}

// New builds and wires all services from cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Container, error) {
	backend := opts.Backend
	if backend == "" {
		backend = cfg.Memory.Backend
	}

	d := dig.New()
	var opened session.Store

	if err := d.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := d.Provide(func() (schema.ModelClient, error) {
		if opts.Client != nil {
			return opts.Client, nil
		}
		return newModelClient(ctx, cfg)
	}); err != nil {
		return nil, err
	}
	if err := d.Provide(func() (Persistence, error) {
		if !memory.NeedsPersistence(backend) {
			return Persistence{}, nil
		}
		if opts.Persistence != nil {
			return Persistence{Store: opts.Persistence}, nil
		}
		s, err := OpenPersistence(ctx, cfg)
		if err != nil {
			return Persistence{}, err
		}
		opened = s
		return Persistence{Store: s, owned: true}, nil
	}); err != nil {
		return nil, err
	}
	if err := d.Provide(func(cfg *config.Config, p Persistence) (schema.ConversationStore, error) {
		return newConversationStore(ctx, cfg, backend, opts.SessionID, p)
	}); err != nil {
		return nil, err
	}
	if err := d.Provide(newResolver); err != nil {
		return nil, err
	}
	if err := d.Provide(newAnalyzer); err != nil {
		return nil, err
	}
	if err := d.Provide(newRouter); err != nil {
		return nil, err
	}

	var result *Container
	err := d.Invoke(func(
		client schema.ModelClient,
		p Persistence,
		store schema.ConversationStore,
		router *agent.Router,
	) {
		result = &Container{
			client: client,
			store:  store,
			router: router,
		}
		if p.owned {
			result.persistence = p.Store
		}
	})
	if err != nil {
		if opened != nil {
			opened.Close()
		}
		return nil, dig.RootCause(err)
	}
	return result, nil
}

// OpenPersistence opens the session store named by cfg.Storage.Driver.
func OpenPersistence(ctx context.Context, cfg *config.Config) (session.Store, error) {
	logger := slog.Default().With("component", "session")
	switch cfg.Storage.Driver {
	case config.DriverMongo:
		return session.OpenMongo(ctx, session.MongoConfig{
			URI:      cfg.Storage.MongoURI,
			Database: cfg.Storage.MongoDatabase,
			Logger:   logger,
		})
	case "", config.DriverSQLite:
		return session.OpenSQLite(session.SQLiteConfig{
			Path:     cfg.StoragePath(),
			PoolSize: cfg.Storage.PoolSize,
			Logger:   logger,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func newModelClient(ctx context.Context, cfg *config.Config) (schema.ModelClient, error) {
	params, spec, err := cfg.MatchProvider()
	if err != nil {
		return nil, err
	}
	if spec.NeedsAPIKey && params.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %s; set provider.apiKey in %s or %s",
			spec.Name, config.ConfigPath(), spec.EnvKey)
	}
	slog.Debug("Model client", "provider", spec.Name, "model", params.Model, "endpoint", params.BaseEndpoint)
	return providers.New(ctx, params)
}

func newConversationStore(ctx context.Context, cfg *config.Config, backend string, sessionID int64, p Persistence) (schema.ConversationStore, error) {
	prompt := cfg.Memory.SystemPrompt
	if prompt == "" {
		prompt = agent.DecisionPrompt
	}
	return memory.New(ctx, memory.Options{
		Backend:      backend,
		Limits:       cfg.Memory.Limits(),
		SystemPrompt: prompt,
		SessionID:    sessionID,
		UserID:       cfg.Memory.UserID,
		Persistence:  p.Store,
		Logger:       slog.Default().With("component", "memory"),
	})
}

func newResolver(cfg *config.Config) agent.FileResolver {
	return agent.WalkResolver{Root: cfg.AnalysisRoot()}
}

func newAnalyzer(cfg *config.Config, client schema.ModelClient) agent.FileAnalyzer {
	return agent.ModelAnalyzer{Client: client, MaxChars: cfg.Analysis.MaxFileChars}
}

func newRouter(
	store schema.ConversationStore,
	client schema.ModelClient,
	resolver agent.FileResolver,
	analyzer agent.FileAnalyzer,
) *agent.Router {
	return agent.NewRouter(store, client, resolver, analyzer)
}
