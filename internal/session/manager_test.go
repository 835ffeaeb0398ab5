package session

import (
	"testing"
	"time"

	"github.com/go-vtest/vtestd/internal/renderer"
)

func newTestManager(t *testing.T) (*Manager, *Context) {
	t.Helper()
	m := NewManager(ManagerConfig{Renderer: renderer.NewStubRenderer()})
	ctx := m.CreateContext("test")
	return m, ctx
}

func TestCreateReadWriteSync(t *testing.T) {
	m, ctx := newTestManager(t)

	s := m.CreateSync(ctx, 5)
	if s.RefCount() != 1 {
		t.Fatalf("RefCount = %d, want 1", s.RefCount())
	}

	v, err := m.ReadSync(ctx, s.ID)
	if err != nil || v != 5 {
		t.Fatalf("ReadSync = (%d, %v), want (5, nil)", v, err)
	}

	if err := m.WriteSync(ctx, s.ID, 10); err != nil {
		t.Fatalf("WriteSync: %v", err)
	}
	v, _ = m.ReadSync(ctx, s.ID)
	if v != 10 {
		t.Fatalf("after write, ReadSync = %d, want 10", v)
	}
}

func TestWriteSyncRejectsDecrease(t *testing.T) {
	m, ctx := newTestManager(t)
	s := m.CreateSync(ctx, 10)

	if err := m.WriteSync(ctx, s.ID, 3); err != nil {
		t.Fatalf("WriteSync: %v", err)
	}
	v, _ := m.ReadSync(ctx, s.ID)
	if v != 10 {
		t.Fatalf("decrease was applied: value = %d, want 10", v)
	}

	if err := m.WriteSync(ctx, s.ID, 10); err != nil {
		t.Fatalf("WriteSync equal: %v", err)
	}
	v, _ = m.ReadSync(ctx, s.ID)
	if v != 10 {
		t.Fatalf("equal write changed value: %d, want 10", v)
	}
}

func TestUnrefSyncFreesAndReuses(t *testing.T) {
	m, ctx := newTestManager(t)
	s := m.CreateSync(ctx, 0)
	id := s.ID

	if err := m.UnrefSync(ctx, id); err != nil {
		t.Fatalf("UnrefSync: %v", err)
	}
	if _, err := m.ReadSync(ctx, id); err == nil {
		t.Fatal("ReadSync succeeded after unref")
	}

	s2 := m.CreateSync(ctx, 0)
	if s2.ID != id {
		t.Fatalf("free-listed id not reused: got %d, want %d", s2.ID, id)
	}
}

func TestRegisterWaitAllResolvesOnLastThreshold(t *testing.T) {
	m, ctx := newTestManager(t)
	s1 := m.CreateSync(ctx, 0)
	s2 := m.CreateSync(ctx, 0)

	notifier, err := m.RegisterWait(ctx, 0, 5000, []WaitRequest{
		{SyncID: s1.ID, Threshold: 1},
		{SyncID: s2.ID, Threshold: 1},
	})
	if err != nil {
		t.Fatalf("RegisterWait: %v", err)
	}
	defer notifier.Close()

	if err := m.WriteSync(ctx, s1.ID, 1); err != nil {
		t.Fatalf("WriteSync s1: %v", err)
	}
	// Only one of two thresholds crossed: must not be resolved yet.
	if len(ctx.SyncWaits) != 1 {
		t.Fatalf("wait resolved early: SyncWaits len = %d, want 1", len(ctx.SyncWaits))
	}

	if err := m.WriteSync(ctx, s2.ID, 1); err != nil {
		t.Fatalf("WriteSync s2: %v", err)
	}
	if len(ctx.SyncWaits) != 0 {
		t.Fatalf("wait not resolved after all thresholds crossed: len = %d", len(ctx.SyncWaits))
	}
}

func TestRegisterWaitAnyResolvesOnFirstThreshold(t *testing.T) {
	m, ctx := newTestManager(t)
	s1 := m.CreateSync(ctx, 0)
	s2 := m.CreateSync(ctx, 0)

	notifier, err := m.RegisterWait(ctx, WaitFlagAny, 5000, []WaitRequest{
		{SyncID: s1.ID, Threshold: 1},
		{SyncID: s2.ID, Threshold: 1},
	})
	if err != nil {
		t.Fatalf("RegisterWait: %v", err)
	}
	defer notifier.Close()

	if err := m.WriteSync(ctx, s1.ID, 1); err != nil {
		t.Fatalf("WriteSync s1: %v", err)
	}
	if len(ctx.SyncWaits) != 0 {
		t.Fatalf("ANY wait not resolved after first threshold crossed: len = %d", len(ctx.SyncWaits))
	}
}

func TestRegisterWaitPreSignaled(t *testing.T) {
	m, ctx := newTestManager(t)
	s := m.CreateSync(ctx, 10)

	notifier, err := m.RegisterWait(ctx, 0, 5000, []WaitRequest{{SyncID: s.ID, Threshold: 5}})
	if err != nil {
		t.Fatalf("RegisterWait: %v", err)
	}
	defer notifier.Close()

	if len(ctx.SyncWaits) != 0 {
		t.Fatal("pre-signaled wait was queued instead of resolving immediately")
	}
}

func TestRegisterWaitUnknownSyncRollsBack(t *testing.T) {
	m, ctx := newTestManager(t)
	s := m.CreateSync(ctx, 0)

	_, err := m.RegisterWait(ctx, 0, 5000, []WaitRequest{
		{SyncID: s.ID, Threshold: 1},
		{SyncID: 9999, Threshold: 1},
	})
	if err == nil {
		t.Fatal("RegisterWait with unknown sync id succeeded")
	}
	if s.RefCount() != 1 {
		t.Fatalf("reference not rolled back: RefCount = %d, want 1", s.RefCount())
	}
}

func TestSubmitBatchQueuedSignalsOnFenceComplete(t *testing.T) {
	m, ctx := newTestManager(t)
	if err := m.EnsureInitialized(ctx); err != nil {
		t.Fatalf("EnsureInitialized: %v", err)
	}
	s := m.CreateSync(ctx, 0)

	err := m.SubmitBatch(ctx, 3, true, []uint32{1, 2, 3}, []uint32{s.ID}, []uint64{7})
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}

	// StubRenderer fires ContextCreateFence synchronously, so the value
	// should already be signaled.
	v, _ := m.ReadSync(ctx, s.ID)
	if v != 7 {
		t.Fatalf("queued submit did not signal on fence completion: value = %d, want 7", v)
	}
}

func TestSubmitBatchImmediateSignalsWithoutQueueFlag(t *testing.T) {
	m, ctx := newTestManager(t)
	if err := m.EnsureInitialized(ctx); err != nil {
		t.Fatalf("EnsureInitialized: %v", err)
	}
	s := m.CreateSync(ctx, 0)

	err := m.SubmitBatch(ctx, 0, false, []uint32{1}, []uint32{s.ID}, []uint64{3})
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	v, _ := m.ReadSync(ctx, s.ID)
	if v != 3 {
		t.Fatalf("immediate submit did not signal: value = %d, want 3", v)
	}
}

func TestDestroyContextDrainsQueuesAndWaits(t *testing.T) {
	m, ctx := newTestManager(t)
	if err := m.EnsureInitialized(ctx); err != nil {
		t.Fatalf("EnsureInitialized: %v", err)
	}
	s := m.CreateSync(ctx, 0)
	notifier, err := m.RegisterWait(ctx, 0, 60000, []WaitRequest{{SyncID: s.ID, Threshold: 1}})
	if err != nil {
		t.Fatalf("RegisterWait: %v", err)
	}
	_ = notifier

	if err := m.DestroyContext(ctx); err != nil {
		t.Fatalf("DestroyContext: %v", err)
	}
	if len(ctx.SyncWaits) != 0 {
		t.Fatal("waits not drained on destroy")
	}
}

func TestSweepExpiredWaits(t *testing.T) {
	m, ctx := newTestManager(t)
	s := m.CreateSync(ctx, 0)

	notifier, err := m.RegisterWait(ctx, 0, 1, []WaitRequest{{SyncID: s.ID, Threshold: 1}})
	if err != nil {
		t.Fatalf("RegisterWait: %v", err)
	}
	_ = notifier

	time.Sleep(5 * time.Millisecond)
	m.sweepExpiredWaits()

	if len(ctx.SyncWaits) != 0 {
		t.Fatal("expired wait survived sweep")
	}
}
