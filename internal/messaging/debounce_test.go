package messaging

import (
	"sync"
	"testing"
	"time"
)

type captured struct {
	userID   string
	combined string
}

func collectTurns() (*Debouncer, func() []captured) {
	var mu sync.Mutex
	var turns []captured
	d := NewDebouncer(20*time.Millisecond, func(userID, combined string) {
		mu.Lock()
		turns = append(turns, captured{userID, combined})
		mu.Unlock()
	})
	snapshot := func() []captured {
		mu.Lock()
		defer mu.Unlock()
		out := make([]captured, len(turns))
		copy(out, turns)
		return out
	}
	return d, snapshot
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	d, snapshot := collectTurns()

	d.Add("+5491100000001", "hay un poste caido")
	d.Add("+5491100000001", "en Av. Mitre 1200")
	d.Add("+5491100000001", "es urgente")

	time.Sleep(60 * time.Millisecond)

	turns := snapshot()
	if len(turns) != 1 {
		t.Fatalf("expected 1 coalesced turn, got %d", len(turns))
	}
	want := "hay un poste caido\nen Av. Mitre 1200\nes urgente"
	if turns[0].combined != want {
		t.Errorf("expected order-preserving newline join, got %q", turns[0].combined)
	}
}

func TestDebouncerSeparatesUsers(t *testing.T) {
	d, snapshot := collectTurns()

	d.Add("+5491100000001", "hola")
	d.Add("+5491100000002", "buenas")

	time.Sleep(60 * time.Millisecond)

	turns := snapshot()
	if len(turns) != 2 {
		t.Fatalf("expected 2 separate turns, got %d", len(turns))
	}
}

func TestDebouncerSeparatesQuietPeriods(t *testing.T) {
	d, snapshot := collectTurns()

	d.Add("+5491100000001", "primera")
	time.Sleep(60 * time.Millisecond)
	d.Add("+5491100000001", "segunda")
	time.Sleep(60 * time.Millisecond)

	turns := snapshot()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns across quiet periods, got %d", len(turns))
	}
	if turns[0].combined != "primera" || turns[1].combined != "segunda" {
		t.Errorf("unexpected turn contents: %v", turns)
	}
}

func TestDebouncerStopFlushesPending(t *testing.T) {
	d, snapshot := collectTurns()

	d.Add("+5491100000001", "mensaje pendiente")
	d.Stop()

	turns := snapshot()
	if len(turns) != 1 || turns[0].combined != "mensaje pendiente" {
		t.Fatalf("expected pending batch flushed on stop, got %v", turns)
	}
}

func TestCanonicalizePhone(t *testing.T) {
	canonical, err := canonicalizePhone("whatsapp:+54 9 381 000-0001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canonical != "5493810000001" {
		t.Errorf("expected digits only, got %q", canonical)
	}

	if _, err := canonicalizePhone(""); err == nil {
		t.Error("expected error for empty recipient")
	}
	if _, err := canonicalizePhone("abc"); err == nil {
		t.Error("expected error for recipient with no digits")
	}
	if _, err := canonicalizePhone("123"); err == nil {
		t.Error("expected error for too-short number")
	}
}
