package session

import (
	"testing"

	"github.com/go-vtest/vtestd/internal/renderer"
)

func TestContextInitSetsCapsetOnce(t *testing.T) {
	m, ctx := newTestManager(t)

	if err := m.ContextInit(ctx, 2); err != nil {
		t.Fatalf("ContextInit: %v", err)
	}
	if !ctx.HasCapset() || ctx.CapsetID != 2 {
		t.Fatalf("capset not set: HasCapset=%v CapsetID=%d", ctx.HasCapset(), ctx.CapsetID)
	}

	if err := m.ContextInit(ctx, 2); err != nil {
		t.Fatalf("repeat ContextInit with same id: %v", err)
	}

	if err := m.ContextInit(ctx, 3); err == nil {
		t.Fatal("ContextInit with a different capset id succeeded")
	}
}

func TestEnsureInitializedIsIdempotent(t *testing.T) {
	m, ctx := newTestManager(t)

	if err := m.EnsureInitialized(ctx); err != nil {
		t.Fatalf("EnsureInitialized: %v", err)
	}
	if !ctx.Initialized() {
		t.Fatal("context not marked initialized")
	}
	if err := m.EnsureInitialized(ctx); err != nil {
		t.Fatalf("second EnsureInitialized: %v", err)
	}
}

func TestEnsureInitializedUsesCapsetFlagsWhenSet(t *testing.T) {
	m, ctx := newTestManager(t)
	if err := m.ContextInit(ctx, 1); err != nil {
		t.Fatalf("ContextInit: %v", err)
	}
	if err := m.EnsureInitialized(ctx); err != nil {
		t.Fatalf("EnsureInitialized: %v", err)
	}
}

func TestDestroyContextClearsCurrent(t *testing.T) {
	m, ctx := newTestManager(t)
	if m.Current() != ctx {
		t.Fatal("new context not set as current")
	}
	if err := m.DestroyContext(ctx); err != nil {
		t.Fatalf("DestroyContext: %v", err)
	}
	if m.Current() != nil {
		t.Fatal("current context not cleared on destroy")
	}
}

func TestManagerDefaultsMaxLength(t *testing.T) {
	m := NewManager(ManagerConfig{Renderer: renderer.NewStubRenderer()})
	if m.MaxLength() == 0 {
		t.Fatal("MaxLength defaulted to zero")
	}
}
