// Package agent routes each user turn: it asks the model for a decision,
// then either answers directly or analyzes a file, recording every step in
// the conversation store.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/crystaldolphin/friday/internal/schema"
	"github.com/crystaldolphin/friday/internal/shared/llmutils"
)

// Router dispatches user input. A single Router serves one conversation and
// handles turns sequentially.
//
// Policy failures (unparseable decision, missing file, unknown action) are
// answered and recorded; storage and model failures are returned.
type Router struct {
	store    schema.ConversationStore
	client   schema.ModelClient
	resolver FileResolver
	analyzer FileAnalyzer
	extract  func(string) *schema.Decision

	decisionPrompt string
	contextPrompt  string
}

// Option configures a Router.
type Option func(*Router)

// WithExtractor replaces the decision parser.
func WithExtractor(fn func(string) *schema.Decision) Option {
	return func(r *Router) { r.extract = fn }
}

// WithPrompts overrides the decision and answer system prompts. Empty
// values keep the defaults.
func WithPrompts(decision, answer string) Option {
	return func(r *Router) {
		if decision != "" {
			r.decisionPrompt = decision
		}
		if answer != "" {
			r.contextPrompt = answer
		}
	}
}

func NewRouter(store schema.ConversationStore, client schema.ModelClient, resolver FileResolver, analyzer FileAnalyzer, opts ...Option) *Router {
	r := &Router{
		store:          store,
		client:         client,
		resolver:       resolver,
		analyzer:       analyzer,
		extract:        llmutils.ExtractDecision,
		decisionPrompt: DecisionPrompt,
		contextPrompt:  ContextPrompt,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleInput runs one turn and returns the reply shown to the user.
func (r *Router) HandleInput(ctx context.Context, input string) (string, error) {
	if err := r.store.AddMessage(ctx, schema.RoleUser, input, nil); err != nil {
		return "", fmt.Errorf("record input: %w", err)
	}

	history, err := r.store.Messages(ctx, 0)
	if err != nil {
		return "", fmt.Errorf("read history: %w", err)
	}

	raw, err := r.client.Complete(ctx, r.decisionRequest(history, input))
	if err != nil {
		return "", fmt.Errorf("decide: %w", err)
	}

	decision := r.extract(raw)
	if decision == nil {
		slog.Warn("Unparseable decision", "raw", llmutils.Truncate(raw, 200))
		return r.reply(ctx, ParseFailureMessage, &schema.Metadata{Error: ErrCodeParseFailure})
	}
	slog.Debug("Decision", "action", decision.Action, "file", decision.File)

	switch decision.Action {
	case schema.ActionReadFile:
		return r.readFile(ctx, decision, input)
	case schema.ActionGenerate:
		return r.generate(ctx, history, llmutils.StringOrDefault(decision.Question, input))
	default:
		return r.reply(ctx, "Unknown action: "+decision.Action, &schema.Metadata{
			Action: decision.Action,
			Error:  ErrCodeUnknownAction,
		})
	}
}

// decisionRequest puts the decision instruction first, merged with any
// system prompt the store carries, followed by the conversation. Stores that
// keep nothing still get the current input as the final user turn.
func (r *Router) decisionRequest(history []schema.Message, input string) []schema.ChatMessage {
	system := r.decisionPrompt
	if len(history) > 0 && history[0].Role == schema.RoleSystem {
		if extra := strings.TrimSpace(history[0].Content); extra != "" && extra != strings.TrimSpace(system) {
			system += "\n\n" + extra
		}
		history = history[1:]
	}
	out := make([]schema.ChatMessage, 0, len(history)+2)
	out = append(out, schema.NewSystemMessage(system))
	out = append(out, schema.ToChat(history)...)
	if n := len(history); n == 0 || history[n-1].Role != schema.RoleUser {
		out = append(out, schema.NewUserMessage(input))
	}
	return out
}

func (r *Router) readFile(ctx context.Context, d *schema.Decision, input string) (string, error) {
	name := d.File
	if name == "" {
		return r.reply(ctx, MissingFileMessage, &schema.Metadata{
			Action: schema.ActionReadFile,
			Error:  ErrCodeMissingFile,
		})
	}

	matches, err := r.resolver.Find(ctx, name)
	if err != nil {
		return "", fmt.Errorf("find %s: %w", name, err)
	}
	if len(matches) == 0 {
		return r.reply(ctx, "Could not find "+name, &schema.Metadata{
			Action: schema.ActionReadFile,
			File:   name,
			Found:  schema.Found(false),
		})
	}
	if len(matches) > 1 {
		slog.Warn("Ambiguous file name, using first match", "file", name, "matches", len(matches), "chosen", matches[0])
	}

	answer, err := r.analyzer.Analyze(ctx, matches[0], llmutils.StringOrDefault(d.Question, input))
	var readErr *ReadError
	if errors.As(err, &readErr) {
		return r.reply(ctx, fmt.Sprintf("Could not read %s: %v", name, readErr.Err), &schema.Metadata{
			Action: schema.ActionReadFile,
			File:   name,
			Found:  schema.Found(true),
			Error:  ErrCodeReadFailure,
		})
	}
	if err != nil {
		return "", fmt.Errorf("analyze %s: %w", name, err)
	}

	return r.reply(ctx, answer, &schema.Metadata{
		Action: schema.ActionReadFile,
		File:   name,
		Found:  schema.Found(true),
	})
}

// generate answers in natural language. The request carries the prior
// conversation without system messages and without the copy of the current
// turn, which is replaced by question.
func (r *Router) generate(ctx context.Context, history []schema.Message, question string) (string, error) {
	prior := make([]schema.Message, 0, len(history))
	for _, m := range history {
		if m.Role != schema.RoleSystem {
			prior = append(prior, m)
		}
	}
	if n := len(prior); n > 0 && prior[n-1].Role == schema.RoleUser {
		prior = prior[:n-1]
	}

	req := make([]schema.ChatMessage, 0, len(prior)+2)
	req = append(req, schema.NewSystemMessage(r.contextPrompt))
	req = append(req, schema.ToChat(prior)...)
	req = append(req, schema.NewUserMessage(question))

	answer, err := r.client.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return r.reply(ctx, answer, &schema.Metadata{Action: schema.ActionGenerate})
}

// reply records text as the assistant's answer and returns it.
func (r *Router) reply(ctx context.Context, text string, meta *schema.Metadata) (string, error) {
	if err := r.store.AddMessage(ctx, schema.RoleAssistant, text, meta); err != nil {
		return "", fmt.Errorf("record reply: %w", err)
	}
	return text, nil
}

// Summary reports the state of the conversation.
func (r *Router) Summary(ctx context.Context) (schema.Summary, error) {
	return r.store.Summary(ctx)
}

// Clear starts the conversation over.
func (r *Router) Clear(ctx context.Context) error {
	return r.store.Clear(ctx)
}

// ContextMessages returns the most recent limit messages of the
// conversation (all when limit <= 0).
func (r *Router) ContextMessages(ctx context.Context, limit int) ([]schema.Message, error) {
	return r.store.Messages(ctx, limit)
}

// Store exposes the underlying conversation store.
func (r *Router) Store() schema.ConversationStore { return r.store }
