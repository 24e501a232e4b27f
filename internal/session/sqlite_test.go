package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/crystaldolphin/friday/internal/schema"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(SQLiteConfig{Path: filepath.Join(t.TempDir(), "db", "friday.db")})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func msg(role schema.Role, content string) schema.Message {
	return schema.NewMessage(role, content, nil)
}

func TestSQLite_CreateAndGetSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "alice")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.ID <= 0 {
		t.Fatalf("session id = %d, want positive", sess.ID)
	}

	got, err := s.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.UserID != "alice" {
		t.Errorf("UserID = %q, want alice", got.UserID)
	}
	if d := got.CreatedAt.Sub(sess.CreatedAt); d > time.Millisecond || d < -time.Millisecond {
		t.Errorf("CreatedAt drifted by %v", d)
	}

	anon, err := s.CreateSession(ctx, "")
	if err != nil {
		t.Fatalf("CreateSession anonymous: %v", err)
	}
	if anon.ID <= sess.ID {
		t.Errorf("ids not increasing: %d then %d", sess.ID, anon.ID)
	}
	got, err = s.GetSession(ctx, anon.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.UserID != "" {
		t.Errorf("UserID = %q, want empty", got.UserID)
	}
}

func TestSQLite_GetSessionNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetSession(context.Background(), 999)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
	if errors.Is(err, schema.ErrStorage) {
		t.Error("not-found should not be reported as a storage failure")
	}
}

func TestSQLite_AppendAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sess, _ := s.CreateSession(ctx, "")

	read := schema.NewMessage(schema.RoleAssistant, "analysis", &schema.Metadata{
		Action: schema.ActionReadFile, File: "main.go", Found: schema.Found(true),
	})
	if err := s.AppendMessages(ctx, sess.ID, msg(schema.RoleUser, "explain main.go"), read); err != nil {
		t.Fatalf("AppendMessages: %v", err)
	}

	got, err := s.LoadMessages(ctx, sess.ID, Query{})
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d messages, want 2", len(got))
	}
	if got[0].Role != schema.RoleUser || got[0].Content != "explain main.go" {
		t.Errorf("first message = %+v", got[0].Message)
	}
	if got[0].Metadata != nil {
		t.Errorf("empty metadata should load as nil, got %+v", got[0].Metadata)
	}
	meta := got[1].Metadata
	if meta == nil || meta.Action != schema.ActionReadFile || meta.File != "main.go" || meta.Found == nil || !*meta.Found {
		t.Errorf("metadata round trip = %+v", meta)
	}
	if got[1].ID <= got[0].ID {
		t.Errorf("ids not increasing: %d, %d", got[0].ID, got[1].ID)
	}
}

func TestSQLite_LoadWindowing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sess, _ := s.CreateSession(ctx, "")

	for i := range 10 {
		if err := s.AppendMessages(ctx, sess.ID, msg(schema.RoleUser, fmt.Sprintf("m%d", i))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	recent, err := s.LoadMessages(ctx, sess.ID, Query{Limit: 3})
	if err != nil {
		t.Fatalf("LoadMessages recent: %v", err)
	}
	if len(recent) != 3 || recent[0].Content != "m7" || recent[2].Content != "m9" {
		t.Fatalf("recent = %v", contents(recent))
	}

	oldest, err := s.LoadMessages(ctx, sess.ID, Query{Limit: 2, Oldest: true})
	if err != nil {
		t.Fatalf("LoadMessages oldest: %v", err)
	}
	if len(oldest) != 2 || oldest[0].Content != "m0" || oldest[1].Content != "m1" {
		t.Fatalf("oldest = %v", contents(oldest))
	}

	after, err := s.LoadMessages(ctx, sess.ID, Query{AfterID: recent[0].ID})
	if err != nil {
		t.Fatalf("LoadMessages after: %v", err)
	}
	if len(after) != 2 || after[0].Content != "m8" {
		t.Fatalf("after watermark = %v", contents(after))
	}
}

func TestSQLite_SessionsAreIsolated(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a, _ := s.CreateSession(ctx, "a")
	b, _ := s.CreateSession(ctx, "b")

	if err := s.AppendMessages(ctx, a.ID, msg(schema.RoleUser, "for a")); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadMessages(ctx, b.ID, Query{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("session b sees %v", contents(got))
	}
}

func TestSQLite_AppendToUnknownSessionFails(t *testing.T) {
	s := openTestStore(t)
	err := s.AppendMessages(context.Background(), 42, msg(schema.RoleUser, "orphan"))
	if !errors.Is(err, schema.ErrStorage) {
		t.Fatalf("err = %v, want storage failure", err)
	}
}

func TestSQLite_ListSessions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a, _ := s.CreateSession(ctx, "a")
	_, _ = s.CreateSession(ctx, "")

	if err := s.AppendMessages(ctx, a.ID, msg(schema.RoleUser, "1"), msg(schema.RoleAssistant, "2")); err != nil {
		t.Fatal(err)
	}

	infos, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d sessions, want 2", len(infos))
	}
	if infos[0].MessageCount != 2 || infos[0].LastActivity.IsZero() {
		t.Errorf("first session info = %+v", infos[0])
	}
	if infos[1].MessageCount != 0 || !infos[1].LastActivity.IsZero() {
		t.Errorf("empty session info = %+v", infos[1])
	}
}

func TestSQLite_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "friday.db")
	ctx := context.Background()

	s1, err := OpenSQLite(SQLiteConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	sess, _ := s1.CreateSession(ctx, "")
	if err := s1.AppendMessages(ctx, sess.ID, msg(schema.RoleUser, "persist me")); err != nil {
		t.Fatal(err)
	}
	s1.Close()

	s2, err := OpenSQLite(SQLiteConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	got, err := s2.LoadMessages(ctx, sess.ID, Query{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "persist me" {
		t.Fatalf("after reopen = %v", contents(got))
	}
}

func contents(msgs []StoredMessage) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}
