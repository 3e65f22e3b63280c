package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMemoryStore_CreateSessionExclusive(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()

	first := &Session{ID: "s1", MachineID: "w1", Status: StatusPending}
	if err := ms.CreateSession(ctx, first); err != nil {
		t.Fatalf("first CreateSession: %v", err)
	}

	second := &Session{ID: "s2", MachineID: "w1", Status: StatusPending}
	if err := ms.CreateSession(ctx, second); !errors.Is(err, ErrMachineHeld) {
		t.Fatalf("second CreateSession = %v, want ErrMachineHeld", err)
	}

	if _, err := ms.GetSession(ctx, "s2"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("rejected session was stored anyway")
	}
}

func TestMemoryStore_ReleaseThenReserve(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()

	if err := ms.CreateSession(ctx, &Session{ID: "s1", MachineID: "w1", Status: StatusPending}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// Release guarded by holder: a stranger's id must not free the machine.
	if err := ms.ReleaseMachine(ctx, "w1", "someone-else"); err != nil {
		t.Fatalf("ReleaseMachine: %v", err)
	}
	if err := ms.CreateSession(ctx, &Session{ID: "s2", MachineID: "w1", Status: StatusPending}); !errors.Is(err, ErrMachineHeld) {
		t.Fatal("release with wrong session id freed the machine")
	}

	if err := ms.ReleaseMachine(ctx, "w1", "s1"); err != nil {
		t.Fatalf("ReleaseMachine: %v", err)
	}
	if err := ms.CreateSession(ctx, &Session{ID: "s2", MachineID: "w1", Status: StatusPending}); err != nil {
		t.Fatalf("CreateSession after release: %v", err)
	}
}

func TestMemoryStore_ConcurrentReserveSingleWinner(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()

	const n = 32
	var wg sync.WaitGroup
	wins := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := &Session{ID: string(rune('a' + i)), MachineID: "w1", Status: StatusPending}
			if err := ms.CreateSession(ctx, s); err == nil {
				wins <- s.ID
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []string
	for id := range wins {
		winners = append(winners, id)
	}
	if len(winners) != 1 {
		t.Fatalf("got %d winners %v, want exactly 1", len(winners), winners)
	}
}

func TestMemoryStore_TransitionCAS(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()

	if err := ms.CreateSession(ctx, &Session{ID: "s1", MachineID: "w1", Status: StatusPending}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, err := ms.Transition(ctx, "s1", StatusPending, func(s *Session) {
		s.Status = StatusActive
	})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if got.Status != StatusActive {
		t.Errorf("Status = %s, want active", got.Status)
	}

	if _, err := ms.Transition(ctx, "s1", StatusPending, func(s *Session) {
		s.Status = StatusCancelled
	}); !errors.Is(err, ErrStaleStatus) {
		t.Errorf("stale Transition = %v, want ErrStaleStatus", err)
	}

	if _, err := ms.Transition(ctx, "nope", StatusPending, func(*Session) {}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("unknown id Transition = %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryStore_ListActiveBefore(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	now := time.Now().UTC()

	overdueStart := now.Add(-time.Hour)
	runningStart := now.Add(-5 * time.Minute)
	sessions := []*Session{
		{ID: "overdue", MachineID: "w1", Status: StatusActive, Minutes: 30, StartTime: &overdueStart},
		{ID: "running", MachineID: "w2", Status: StatusActive, Minutes: 30, StartTime: &runningStart},
		{ID: "pending", MachineID: "w3", Status: StatusPending, Minutes: 30},
	}
	for _, s := range sessions {
		if err := ms.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession(%s): %v", s.ID, err)
		}
	}

	due, err := ms.ListActiveBefore(ctx, now)
	if err != nil {
		t.Fatalf("ListActiveBefore: %v", err)
	}
	if len(due) != 1 || due[0].ID != "overdue" {
		t.Fatalf("due = %v, want exactly [overdue]", ids(due))
	}
}

func TestMemoryStore_GetMachineClones(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()

	m := &Machine{ID: "w1", RatePerMinute: decimal.RequireFromString("0.25"), Enabled: true}
	if err := ms.PutMachine(ctx, m); err != nil {
		t.Fatalf("PutMachine: %v", err)
	}

	got, err := ms.GetMachine(ctx, "w1")
	if err != nil {
		t.Fatalf("GetMachine: %v", err)
	}
	got.Enabled = false

	again, _ := ms.GetMachine(ctx, "w1")
	if !again.Enabled {
		t.Error("mutating a returned machine changed the stored one")
	}
}

func ids(sessions []*Session) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.ID
	}
	return out
}
