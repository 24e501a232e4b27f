package memory

import (
	"context"
	"testing"

	"github.com/crystaldolphin/friday/internal/schema"
)

func TestNew_SelectsBackend(t *testing.T) {
	ctx := context.Background()
	store, _ := openSQLite(t)

	tests := []struct {
		backend string
		want    string
	}{
		{"", "*memory.Transient"},
		{BackendTransient, "*memory.Transient"},
		{BackendNone, "*memory.NoMemory"},
		{BackendDurable, "*memory.Durable"},
		{BackendHybrid, "*memory.Hybrid"},
	}
	for _, tt := range tests {
		m, err := New(ctx, Options{Backend: tt.backend, Persistence: store})
		if err != nil {
			t.Fatalf("New(%q): %v", tt.backend, err)
		}
		var got string
		switch m.(type) {
		case *Transient:
			got = "*memory.Transient"
		case *NoMemory:
			got = "*memory.NoMemory"
		case *Durable:
			got = "*memory.Durable"
		case *Hybrid:
			got = "*memory.Hybrid"
		}
		if got != tt.want {
			t.Errorf("New(%q) = %s, want %s", tt.backend, got, tt.want)
		}
		if m.Limits() != schema.DefaultLimits() {
			t.Errorf("New(%q) limits = %+v, want defaults", tt.backend, m.Limits())
		}
	}
}

func TestNew_FillsMissingLimits(t *testing.T) {
	m, err := New(context.Background(), Options{Limits: schema.Limits{MaxContextMessages: 7}})
	if err != nil {
		t.Fatal(err)
	}
	want := schema.Limits{MaxContextMessages: 7, MaxTokensPerMessage: schema.DefaultLimits().MaxTokensPerMessage}
	if got := m.Limits(); got != want {
		t.Errorf("limits = %+v, want %+v", got, want)
	}
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, Options{Backend: "redis"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := New(ctx, Options{Backend: BackendDurable}); err == nil {
		t.Error("expected error for durable backend without persistence")
	}
}

func TestNeedsPersistence(t *testing.T) {
	for _, b := range Backends {
		want := b == BackendDurable || b == BackendHybrid
		if NeedsPersistence(b) != want {
			t.Errorf("NeedsPersistence(%q) = %v", b, !want)
		}
	}
}
