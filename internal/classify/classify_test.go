package classify

import (
	"context"
	"fmt"
	"testing"

	"github.com/Luks-code/luna-sub000/internal/genai"
)

func TestDetectMultipleComplaints(t *testing.T) {
	multi := []string{
		"Primero, el poste de la esquina no tiene luz. Segundo, hay basura acumulada en la vereda.",
		"Tengo varios problemas para reportar en mi cuadra",
		"Hay un bache en Salta 300 y también un poste caído en la misma cuadra",
		"Por un lado la cloaca desborda, por otro lado los ruidos molestos del local",
		"Además del reclamo por el semáforo quiero avisar otra cosa",
		"Hay escombros en la vereda y una pérdida de agua en la esquina",
	}
	for _, msg := range multi {
		if !DetectMultipleComplaints(msg) {
			t.Errorf("expected multi-complaint detection for %q", msg)
		}
	}

	single := []string{
		"Hay un poste de luz caído en Av. Mitre 1200",
		"La luminaria de mi cuadra está rota",
		"¿Cuál es el horario de atención?",
		"hola",
	}
	for _, msg := range single {
		if DetectMultipleComplaints(msg) {
			t.Errorf("unexpected multi-complaint detection for %q", msg)
		}
	}
}

func TestIsGreeting(t *testing.T) {
	for _, msg := range []string{"hola", "Hola!", "  BUENAS TARDES ", "buen día"} {
		if !IsGreeting(msg) {
			t.Errorf("expected greeting for %q", msg)
		}
	}
	for _, msg := range []string{"hola, hay un poste caido", "¿cuál es el horario?"} {
		if IsGreeting(msg) {
			t.Errorf("unexpected greeting for %q", msg)
		}
	}
}

func TestHasComplaintKeywords(t *testing.T) {
	if !HasComplaintKeywords("El semáforo de Salta y Córdoba no funciona") {
		t.Error("expected complaint keywords in traffic light report")
	}
	if HasComplaintKeywords("¿Dónde queda el centro de atención al vecino?") {
		t.Error("unexpected complaint keywords in plain info query")
	}
}

func TestIsCancellationKeywordFastPath(t *testing.T) {
	client := genai.NewMockClient()
	c := NewClassifier(client, 0)

	if !c.IsCancellation(context.Background(), "mejor no, dejalo") {
		t.Error("expected keyword cancellation")
	}
	if len(client.Calls) != 0 {
		t.Errorf("keyword path must not call the model, got %d calls", len(client.Calls))
	}
}

func TestAdjudicatorVerdictParsing(t *testing.T) {
	tests := []struct {
		reply    string
		expected bool
	}{
		{`{"match": true, "confidence": 0.9}`, true},
		{`{"match": true, "confidence": 0.2}`, false},
		{`{"match": false, "confidence": 0.95}`, false},
		{`not json at all`, false},
		{`{"match": "yes"}`, false},
	}
	for i, tt := range tests {
		client := genai.NewMockClient(tt.reply)
		c := NewClassifier(client, 0)
		// A message with no cancellation keywords forces the adjudicator.
		got := c.IsCancellation(context.Background(), fmt.Sprintf("me parece que esto no va mas %d", i))
		if got != tt.expected {
			t.Errorf("reply %q: got %v, want %v", tt.reply, got, tt.expected)
		}
	}
}

func TestAdjudicatorFailureIsFalse(t *testing.T) {
	client := genai.NewMockClient()
	client.Err = fmt.Errorf("model unavailable")
	c := NewClassifier(client, 0)

	if c.IsCancellation(context.Background(), "esto ya me parece demasiado") {
		t.Error("classifier failure must resolve to false")
	}
}

func TestVerdictsAreMemoized(t *testing.T) {
	client := genai.NewMockClient(`{"match": true, "confidence": 0.9}`)
	c := NewClassifier(client, 0)
	msg := "creo que esto ya no tiene sentido seguirlo"

	first := c.IsCancellation(context.Background(), msg)
	second := c.IsCancellation(context.Background(), msg)
	if !first || !second {
		t.Fatal("expected both calls to return true")
	}
	if len(client.Calls) != 1 {
		t.Errorf("expected 1 model call with a cache hit, got %d", len(client.Calls))
	}
}

func TestCacheBoundsAndEviction(t *testing.T) {
	cache := NewCache(3)
	cache.Put("a", true)
	cache.Put("b", false)
	cache.Put("c", true)

	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok := cache.Get("a"); !ok {
		t.Fatal("expected hit for a")
	}
	cache.Put("d", true)

	if cache.Len() != 3 {
		t.Errorf("expected capacity 3 respected, got %d", cache.Len())
	}
	if _, ok := cache.Get("b"); ok {
		t.Error("expected least recently used entry evicted")
	}
	if _, ok := cache.Get("a"); !ok {
		t.Error("expected recently used entry kept")
	}
	if _, ok := cache.Get("d"); !ok {
		t.Error("expected new entry present")
	}
}

func TestCacheKeysDoNotCollideAcrossClassifiers(t *testing.T) {
	// The cancellation verdict for a text must not answer the info-query
	// question for the same text.
	cancelClient := genai.NewMockClient(`{"match": true, "confidence": 0.9}`, `{"match": false, "confidence": 0.9}`)
	c := NewClassifier(cancelClient, 0)
	msg := "¿me pueden arreglar el bache de mi cuadra?"

	_ = c.IsCancellation(context.Background(), msg)
	_ = c.IsInfoQuery(context.Background(), msg)

	if len(cancelClient.Calls) != 2 {
		t.Errorf("expected 2 model calls for distinct classifier keys, got %d", len(cancelClient.Calls))
	}
}
