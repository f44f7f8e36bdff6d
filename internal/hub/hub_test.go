package hub

import (
	"context"
	"testing"
	"time"

	"github.com/auctionhq/auction-backend/internal/engine"
	"github.com/auctionhq/auction-backend/internal/model"
)

// helper: receive one event with a timeout so tests never hang
func recvEvent(t *testing.T, ch <-chan engine.Event, within time.Duration) engine.Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		if !ok {
			t.Fatalf("outbox closed unexpectedly")
		}
		return evt
	case <-time.After(within):
		t.Fatalf("timed out waiting for event")
		return nil // unreachable
	}
}

func recvNoEvent(t *testing.T, ch <-chan engine.Event, within time.Duration) {
	t.Helper()
	select {
	case evt, ok := <-ch:
		if !ok {
			// closed is fine; nothing further can arrive
			return
		}
		t.Fatalf("expected no event within %v, got %+v", within, evt)
	case <-time.After(within):
	}
}

func recvView(t *testing.T, h *Hub, ownerID string, within time.Duration) ChannelView {
	t.Helper()
	reply := make(chan ChannelView, 1)
	h.Inbox() <- GetChannelView{OwnerID: ownerID, Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for channel view")
		return ChannelView{} // unreachable
	}
}

func TestHub_PublishReachesEveryTenantConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, nil)

	out1 := make(chan engine.Event, 4)
	out2 := make(chan engine.Event, 4)
	if err := h.Join("owner-a", "c1", out1); err != nil {
		t.Fatalf("join c1: %v", err)
	}
	if err := h.Join("owner-a", "c2", out2); err != nil {
		t.Fatalf("join c2: %v", err)
	}

	evt := engine.PlayerMarkedUnsold{Player: model.Player{ID: "p1", OwnerID: "owner-a"}}
	if err := h.Publish("owner-a", evt); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, out := range []chan engine.Event{out1, out2} {
		got := recvEvent(t, out, 200*time.Millisecond)
		if got.Kind() != engine.EvtPlayerMarkedUnsold {
			t.Fatalf("want PlayerMarkedUnsold, got %s", got.Kind())
		}
	}
}

func TestHub_TenantIsolation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, nil)

	outA := make(chan engine.Event, 4)
	outB := make(chan engine.Event, 4)
	if err := h.Join("owner-a", "a1", outA); err != nil {
		t.Fatalf("join a1: %v", err)
	}
	if err := h.Join("owner-b", "b1", outB); err != nil {
		t.Fatalf("join b1: %v", err)
	}

	if err := h.Publish("owner-a", engine.DataReset{OwnerID: "owner-a"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	_ = recvEvent(t, outA, 200*time.Millisecond)
	recvNoEvent(t, outB, 200*time.Millisecond)
}

func TestHub_NoTenantNoMembership(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, nil)

	out := make(chan engine.Event, 1)
	if err := h.Join("", "c1", out); err == nil {
		t.Fatalf("expected join without tenant to fail")
	}
}

func TestHub_SlowConnectionDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, nil)

	out := make(chan engine.Event, 1)
	if err := h.Join("owner-a", "c1", out); err != nil {
		t.Fatalf("join: %v", err)
	}

	// Fill the outbox, then keep publishing without draining.
	for i := 0; i < 3; i++ {
		if err := h.Publish("owner-a", engine.DataReset{OwnerID: "owner-a"}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for {
		view := recvView(t, h, "owner-a", 200*time.Millisecond)
		if view.NumSubscribers == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected slow connection to be dropped; NumSubscribers=%d", view.NumSubscribers)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_LeaveStopsDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, nil)

	out := make(chan engine.Event, 4)
	if err := h.Join("owner-a", "c1", out); err != nil {
		t.Fatalf("join: %v", err)
	}
	h.Leave("owner-a", "c1")

	// Leave closes the outbox once processed; wait for that before publishing.
	deadline := time.Now().Add(time.Second)
	for recvView(t, h, "owner-a", 200*time.Millisecond).NumSubscribers != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("leave not processed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := h.Publish("owner-a", engine.DataReset{OwnerID: "owner-a"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	recvNoEvent(t, out, 100*time.Millisecond)
}

func TestHub_ShutdownClosesOutboxes(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, nil)

	out := make(chan engine.Event, 1)
	if err := h.Join("owner-a", "c1", out); err != nil {
		t.Fatalf("join: %v", err)
	}

	h.Inbox() <- ShutdownHub{}

	select {
	case _, ok := <-out:
		if ok {
			t.Fatalf("expected closed outbox, got event")
		}
	case <-time.After(time.Second):
		t.Fatalf("outbox not closed on shutdown")
	}
}
