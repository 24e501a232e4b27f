package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/crystaldolphin/friday/internal/memory"
	"github.com/crystaldolphin/friday/internal/schema"
)

// scriptedClient returns replies in order and records every request.
type scriptedClient struct {
	replies  []string
	errs     []error
	requests [][]schema.ChatMessage
}

func (c *scriptedClient) Complete(_ context.Context, msgs []schema.ChatMessage) (string, error) {
	i := len(c.requests)
	c.requests = append(c.requests, msgs)
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i >= len(c.replies) {
		return "", errors.New("no scripted reply")
	}
	return c.replies[i], nil
}

type staticResolver struct {
	matches map[string][]string
	err     error
}

func (r staticResolver) Find(_ context.Context, name string) ([]string, error) {
	return r.matches[name], r.err
}

type recordingAnalyzer struct {
	answer string
	err    error
	paths  []string
}

func (a *recordingAnalyzer) Analyze(_ context.Context, path, _ string) (string, error) {
	a.paths = append(a.paths, path)
	return a.answer, a.err
}

type brokenStore struct {
	*memory.Transient
	err error
}

func (s brokenStore) AddMessage(context.Context, schema.Role, string, *schema.Metadata) error {
	return s.err
}

func newTestRouter(client *scriptedClient, resolver FileResolver, analyzer FileAnalyzer) (*Router, *memory.Transient) {
	store := memory.NewTransient(schema.DefaultLimits(), DecisionPrompt)
	return NewRouter(store, client, resolver, analyzer), store
}

func lastMessage(t *testing.T, store schema.ConversationStore) schema.Message {
	t.Helper()
	msgs, err := store.Messages(context.Background(), 0)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) == 0 {
		t.Fatal("store is empty")
	}
	return msgs[len(msgs)-1]
}

func count(t *testing.T, store schema.ConversationStore) int {
	t.Helper()
	msgs, err := store.Messages(context.Background(), 0)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	return len(msgs)
}

func TestHandleInput_Generate(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"action": "generate_action", "question": "What is Python?"}`,
		"Python is a programming language.",
	}}
	r, store := newTestRouter(client, staticResolver{}, &recordingAnalyzer{})

	got, err := r.HandleInput(context.Background(), "What is Python?")
	if err != nil {
		t.Fatalf("HandleInput: %v", err)
	}
	if got != "Python is a programming language." {
		t.Errorf("reply = %q", got)
	}
	if n := count(t, store); n != 3 {
		t.Errorf("store size = %d, want 3", n)
	}
	last := lastMessage(t, store)
	if last.Role != schema.RoleAssistant || last.Action() != schema.ActionGenerate {
		t.Errorf("last = %+v", last)
	}

	if len(client.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(client.requests))
	}
	decide := client.requests[0]
	if decide[0].Role != schema.RoleSystem || !strings.Contains(decide[0].Content, "read_file") {
		t.Errorf("decision request must start with the decision prompt, got %+v", decide[0])
	}
	if tail := decide[len(decide)-1]; tail.Content != "What is Python?" {
		t.Errorf("decision request tail = %+v", tail)
	}

	answer := client.requests[1]
	if answer[0].Content != ContextPrompt {
		t.Errorf("answer request system = %q", answer[0].Content)
	}
	users := 0
	for _, m := range answer {
		if m.Role == schema.RoleUser {
			users++
		}
	}
	if users != 1 {
		t.Errorf("answer request carries %d user turns, want 1", users)
	}
}

func TestHandleInput_GenerateCarriesHistory(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"action":"generate_action","question":"first"}`, "one",
		`{"action":"generate_action","question":"second"}`, "two",
	}}
	r, _ := newTestRouter(client, staticResolver{}, &recordingAnalyzer{})
	ctx := context.Background()

	if _, err := r.HandleInput(ctx, "first"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.HandleInput(ctx, "second"); err != nil {
		t.Fatal(err)
	}

	answer := client.requests[3]
	var contents []string
	for _, m := range answer[1:] {
		contents = append(contents, m.Content)
	}
	if got := strings.Join(contents, "|"); got != "first|one|second" {
		t.Errorf("answer request = %q", got)
	}
}

func TestHandleInput_FileNotFound(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"action": "read_file", "file": "missing.xyz", "question": "what is this?"}`,
	}}
	analyzer := &recordingAnalyzer{}
	r, store := newTestRouter(client, staticResolver{}, analyzer)

	got, err := r.HandleInput(context.Background(), "read missing.xyz")
	if err != nil {
		t.Fatalf("HandleInput: %v", err)
	}
	if got != "Could not find missing.xyz" {
		t.Errorf("reply = %q", got)
	}
	last := lastMessage(t, store)
	if last.Metadata == nil || last.Metadata.Found == nil || *last.Metadata.Found {
		t.Fatalf("metadata = %+v, want found=false", last.Metadata)
	}
	if last.Metadata.File != "missing.xyz" || last.Metadata.Action != schema.ActionReadFile {
		t.Errorf("metadata = %+v", last.Metadata)
	}
	if len(analyzer.paths) != 0 {
		t.Errorf("analyzer called for missing file")
	}
}

func TestHandleInput_ReadFile(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"action":"read_file","file":"main.go","question":"explain"}`,
	}}
	analyzer := &recordingAnalyzer{answer: "It starts the server."}
	resolver := staticResolver{matches: map[string][]string{
		"main.go": {"a/main.go", "b/main.go"},
	}}
	r, store := newTestRouter(client, resolver, analyzer)

	got, err := r.HandleInput(context.Background(), "explain main.go")
	if err != nil {
		t.Fatalf("HandleInput: %v", err)
	}
	if got != "It starts the server." {
		t.Errorf("reply = %q", got)
	}
	if len(analyzer.paths) != 1 || analyzer.paths[0] != "a/main.go" {
		t.Errorf("analyzed %v, want first match", analyzer.paths)
	}
	last := lastMessage(t, store)
	if last.Metadata == nil || last.Metadata.Found == nil || !*last.Metadata.Found {
		t.Errorf("metadata = %+v, want found=true", last.Metadata)
	}
}

func TestHandleInput_ReadErrorIsAnswered(t *testing.T) {
	client := &scriptedClient{replies: []string{`{"action":"read_file","file":"blob.bin"}`}}
	analyzer := &recordingAnalyzer{err: &ReadError{Path: "blob.bin", Err: errors.New("binary file")}}
	resolver := staticResolver{matches: map[string][]string{"blob.bin": {"blob.bin"}}}
	r, store := newTestRouter(client, resolver, analyzer)

	got, err := r.HandleInput(context.Background(), "read blob.bin")
	if err != nil {
		t.Fatalf("HandleInput: %v", err)
	}
	if !strings.HasPrefix(got, "Could not read blob.bin") {
		t.Errorf("reply = %q", got)
	}
	if e := lastMessage(t, store).Metadata.Error; e != ErrCodeReadFailure {
		t.Errorf("error code = %q", e)
	}
}

func TestHandleInput_MissingFileName(t *testing.T) {
	client := &scriptedClient{replies: []string{`{"action":"read_file","question":"which?"}`}}
	r, store := newTestRouter(client, staticResolver{}, &recordingAnalyzer{})

	got, err := r.HandleInput(context.Background(), "read the file")
	if err != nil {
		t.Fatalf("HandleInput: %v", err)
	}
	if got != MissingFileMessage {
		t.Errorf("reply = %q", got)
	}
	if e := lastMessage(t, store).Metadata.Error; e != ErrCodeMissingFile {
		t.Errorf("error code = %q", e)
	}
}

func TestHandleInput_ParseFailure(t *testing.T) {
	client := &scriptedClient{replies: []string{"I think you want to read a file, maybe?"}}
	r, store := newTestRouter(client, staticResolver{}, &recordingAnalyzer{})
	before := count(t, store)

	got, err := r.HandleInput(context.Background(), "hmm")
	if err != nil {
		t.Fatalf("HandleInput: %v", err)
	}
	if got != ParseFailureMessage {
		t.Errorf("reply = %q", got)
	}
	if after := count(t, store); after != before+2 {
		t.Errorf("store grew by %d, want 2", after-before)
	}
	if e := lastMessage(t, store).Metadata.Error; e != ErrCodeParseFailure {
		t.Errorf("error code = %q", e)
	}
}

func TestHandleInput_UnknownAction(t *testing.T) {
	client := &scriptedClient{replies: []string{`{"action":"delete_file","file":"x"}`}}
	r, store := newTestRouter(client, staticResolver{}, &recordingAnalyzer{})

	got, err := r.HandleInput(context.Background(), "delete x")
	if err != nil {
		t.Fatalf("HandleInput: %v", err)
	}
	if got != "Unknown action: delete_file" {
		t.Errorf("reply = %q", got)
	}
	meta := lastMessage(t, store).Metadata
	if meta.Action != "delete_file" || meta.Error != ErrCodeUnknownAction {
		t.Errorf("metadata = %+v", meta)
	}
}

func TestHandleInput_UpstreamFailurePropagates(t *testing.T) {
	upstream := &schema.UpstreamError{Provider: "ollama", StatusCode: 500, Body: "boom"}
	client := &scriptedClient{errs: []error{upstream}}
	r, store := newTestRouter(client, staticResolver{}, &recordingAnalyzer{})
	before := count(t, store)

	_, err := r.HandleInput(context.Background(), "hello")
	if !errors.Is(err, schema.ErrUpstream) {
		t.Fatalf("err = %v, want upstream failure", err)
	}
	if after := count(t, store); after != before+1 {
		t.Errorf("store grew by %d, want only the user turn", after-before)
	}
	if last := lastMessage(t, store); last.Role != schema.RoleUser {
		t.Errorf("last role = %s", last.Role)
	}
}

func TestHandleInput_AnswerFailurePropagates(t *testing.T) {
	client := &scriptedClient{
		replies: []string{`{"action":"generate_action","question":"q"}`},
		errs:    []error{nil, errors.Join(schema.ErrTimeout, &schema.UpstreamError{Provider: "ollama", Err: context.DeadlineExceeded})},
	}
	r, _ := newTestRouter(client, staticResolver{}, &recordingAnalyzer{})

	_, err := r.HandleInput(context.Background(), "q")
	if !errors.Is(err, schema.ErrTimeout) || !errors.Is(err, schema.ErrUpstream) {
		t.Fatalf("err = %v, want upstream timeout", err)
	}
}

func TestHandleInput_StorageFailurePropagates(t *testing.T) {
	fail := schema.NewStorageError("append messages", errors.New("disk full"))
	store := brokenStore{Transient: memory.NewTransient(schema.DefaultLimits(), ""), err: fail}
	client := &scriptedClient{}
	r := NewRouter(store, client, staticResolver{}, &recordingAnalyzer{})

	_, err := r.HandleInput(context.Background(), "hello")
	if !errors.Is(err, schema.ErrStorage) {
		t.Fatalf("err = %v, want storage failure", err)
	}
	if len(client.requests) != 0 {
		t.Errorf("model called after storage failure")
	}
}

func TestHandleInput_ResolverFailurePropagates(t *testing.T) {
	client := &scriptedClient{replies: []string{`{"action":"read_file","file":"a.txt"}`}}
	r, _ := newTestRouter(client, staticResolver{err: context.Canceled}, &recordingAnalyzer{})

	if _, err := r.HandleInput(context.Background(), "read a.txt"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestHandleInput_StatelessStoreStillSendsInput(t *testing.T) {
	client := &scriptedClient{replies: []string{`{"action":"generate_action","question":"hi"}`, "hello"}}
	r := NewRouter(memory.NewNoMemory(schema.DefaultLimits()), client, staticResolver{}, &recordingAnalyzer{})

	if _, err := r.HandleInput(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}
	decide := client.requests[0]
	if len(decide) != 2 || decide[1].Content != "hi" {
		t.Errorf("decision request = %+v", decide)
	}
}

func TestWithPrompts(t *testing.T) {
	client := &scriptedClient{replies: []string{`{"action":"generate_action","question":"q"}`, "a"}}
	store := memory.NewTransient(schema.DefaultLimits(), "")
	r := NewRouter(store, client, staticResolver{}, &recordingAnalyzer{}, WithPrompts("DECIDE", "ANSWER"))

	if _, err := r.HandleInput(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	if got := client.requests[0][0].Content; got != "DECIDE" {
		t.Errorf("decision prompt = %q", got)
	}
	if got := client.requests[1][0].Content; got != "ANSWER" {
		t.Errorf("answer prompt = %q", got)
	}
}
