package session

import (
	"context"
	"testing"
	"time"

	"github.com/Luks-code/luna-sub000/internal/models"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	blob := models.NewSessionBlob()
	blob.State.Mode = models.ModeComplaint
	blob.State.ComplaintInProgress = true
	blob.AppendMessage("user", "hay un poste caido", 0)

	if err := store.Put(ctx, "+5491100000001", blob); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	loaded, err := store.Get(ctx, "+5491100000001")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected session, got nil")
	}
	if loaded.State.Mode != models.ModeComplaint {
		t.Errorf("expected mode %q, got %q", models.ModeComplaint, loaded.State.Mode)
	}
	if len(loaded.MessageHistory) != 1 {
		t.Errorf("expected 1 history entry, got %d", len(loaded.MessageHistory))
	}
}

func TestMemoryStoreMissingIsNilNil(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	blob, err := store.Get(context.Background(), "+5491100000404")
	if err != nil {
		t.Fatalf("expected no error for missing session, got %v", err)
	}
	if blob != nil {
		t.Fatal("expected nil blob for missing session")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10 * time.Millisecond)

	if err := store.Put(ctx, "+5491100000002", models.NewSessionBlob()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	time.Sleep(25 * time.Millisecond)

	blob, err := store.Get(ctx, "+5491100000002")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if blob != nil {
		t.Fatal("expected expired session to read as absent")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	if err := store.Put(ctx, "+5491100000003", models.NewSessionBlob()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete(ctx, "+5491100000003"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	blob, _ := store.Get(ctx, "+5491100000003")
	if blob != nil {
		t.Fatal("expected deleted session to read as absent")
	}
}

func TestDecodeLegacyBareStatePayload(t *testing.T) {
	// Older deployments stored the conversation state without the history
	// wrapper. Those payloads must load as state with empty history.
	legacy := []byte(`{"mode":"COMPLAINT","complaintInProgress":true,"complaint":{"type":"alumbrado","citizen":{}},"currentStep":"COLLECTING_DESCRIPTION","confirmation":"NOT_AWAITING","interruptedFlow":false,"modeChangeNotified":false,"lastInteraction":0}`)

	store := NewMemoryStore(time.Minute)
	store.PutRaw("+5491100000004", legacy)

	blob, err := store.Get(context.Background(), "+5491100000004")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if blob == nil {
		t.Fatal("expected migrated session, got nil")
	}
	if blob.State.Mode != models.ModeComplaint {
		t.Errorf("expected migrated mode %q, got %q", models.ModeComplaint, blob.State.Mode)
	}
	if !blob.State.ComplaintInProgress {
		t.Error("expected migrated complaintInProgress=true")
	}
	if blob.State.Complaint.Type != "alumbrado" {
		t.Errorf("expected migrated complaint type, got %q", blob.State.Complaint.Type)
	}
	if blob.MessageHistory == nil || len(blob.MessageHistory) != 0 {
		t.Errorf("expected empty non-nil history, got %v", blob.MessageHistory)
	}
}

func TestDecodeCorruptPayloadStartsFresh(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	store.PutRaw("+5491100000005", []byte(`{"unrelated":"shape"}`))

	blob, err := store.Get(context.Background(), "+5491100000005")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if blob == nil {
		t.Fatal("expected fresh session, got nil")
	}
	if blob.State.Mode != models.ModeDefault {
		t.Errorf("expected fresh default mode, got %q", blob.State.Mode)
	}
}
