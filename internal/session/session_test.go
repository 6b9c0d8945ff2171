package session

import (
	"context"
	"testing"
	"time"

	"parlor/internal/chat"
	"parlor/internal/core"
)

type blackjackState struct {
	Bet int64
}

func TestStartRejectsSecondSessionForSameUser(t *testing.T) {
	reg := NewRegistry[blackjackState]()

	if _, err := reg.Start("alice", "chan-1", &blackjackState{Bet: 10}); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	_, err := reg.Start("alice", "chan-1", &blackjackState{Bet: 20})
	if err == nil {
		t.Fatal("expected second Start for the same user to fail")
	}
	if core.KindOf(err) != core.KindAlreadyInGame {
		t.Fatalf("expected KindAlreadyInGame, got %v", core.KindOf(err))
	}
}

func TestEndClearsActiveFlag(t *testing.T) {
	reg := NewRegistry[blackjackState]()
	if _, err := reg.Start("alice", "chan-1", &blackjackState{Bet: 10}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, ok := reg.End("alice"); !ok {
		t.Fatal("expected End to find the session")
	}
	if reg.IsActive("alice") {
		t.Fatal("expected alice to no longer be active after End")
	}

	if _, err := reg.Start("alice", "chan-1", &blackjackState{Bet: 10}); err != nil {
		t.Fatalf("expected re-Start to succeed after End: %v", err)
	}
}

func TestRouteDeliversToOwningSession(t *testing.T) {
	reg := NewRegistry[blackjackState]()
	e, err := reg.Start("alice", "chan-1", &blackjackState{Bet: 10})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if !reg.Route("alice", chat.InboundEvent{UserID: "alice", Text: "h"}) {
		t.Fatal("expected Route to succeed for a session owner")
	}

	ev, err := e.Wait(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if ev.Text != "h" {
		t.Fatalf("expected routed text 'h', got %q", ev.Text)
	}
}

func TestRouteFailsWithoutSession(t *testing.T) {
	reg := NewRegistry[blackjackState]()
	if reg.Route("bob", chat.InboundEvent{UserID: "bob", Text: "h"}) {
		t.Fatal("expected Route to fail for a user with no session")
	}
}

func TestWaitTimesOut(t *testing.T) {
	reg := NewRegistry[blackjackState]()
	e, err := reg.Start("alice", "chan-1", &blackjackState{Bet: 10})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err = e.Wait(context.Background(), 10*time.Millisecond)
	if err != ErrTimeout {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestActiveUserIDsSnapshotsLiveSessions(t *testing.T) {
	reg := NewRegistry[blackjackState]()
	if _, err := reg.Start("alice", "chan-1", &blackjackState{Bet: 10}); err != nil {
		t.Fatalf("Start alice: %v", err)
	}
	if _, err := reg.Start("bob", "chan-1", &blackjackState{Bet: 20}); err != nil {
		t.Fatalf("Start bob: %v", err)
	}

	ids := reg.ActiveUserIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 active sessions, got %d", len(ids))
	}
}
