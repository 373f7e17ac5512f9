package complaint

import (
	"context"
	"strings"
	"testing"

	"github.com/Luks-code/luna-sub000/internal/genai"
	"github.com/Luks-code/luna-sub000/internal/models"
)

func fullRecord() models.ComplaintData {
	return models.ComplaintData{
		Type:        "alumbrado",
		Description: "poste sin luz hace una semana",
		Location:    "Av. Mitre 1200",
		Citizen: models.CitizenData{
			Name:       "Ana Paz",
			DocumentID: "30111222",
			Address:    "Laprida 120",
		},
	}
}

func TestMergeNeverErases(t *testing.T) {
	data := fullRecord()
	Merge(&data, models.ComplaintData{Location: "  ", Citizen: models.CitizenData{Name: ""}})

	if data.Location != "Av. Mitre 1200" {
		t.Errorf("empty partial field erased location: %q", data.Location)
	}
	if data.Citizen.Name != "Ana Paz" {
		t.Errorf("empty partial field erased name: %q", data.Citizen.Name)
	}
}

func TestMergeOverwritesPresentFields(t *testing.T) {
	data := fullRecord()
	Merge(&data, models.ComplaintData{Description: "ahora tampoco anda el de la esquina"})

	if data.Description != "ahora tampoco anda el de la esquina" {
		t.Errorf("present partial field not applied: %q", data.Description)
	}
	if data.Type != "alumbrado" {
		t.Errorf("untouched field changed: %q", data.Type)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	data := models.ComplaintData{}
	partial := fullRecord()
	Merge(&data, partial)
	once := data
	Merge(&data, partial)

	if data != once {
		t.Error("merging the same partial twice changed the record")
	}
}

func TestPendingFieldsOrder(t *testing.T) {
	data := models.ComplaintData{}
	pending := PendingFields(&data)

	expected := []string{FieldType, FieldDescription, FieldLocation, FieldName, FieldDocumentID, FieldAddress}
	if len(pending) != len(expected) {
		t.Fatalf("expected %d pending fields, got %d", len(expected), len(pending))
	}
	for i, f := range expected {
		if pending[i] != f {
			t.Errorf("pending[%d] = %q, want %q", i, pending[i], f)
		}
	}
}

func TestCompletenessIgnoresFillOrder(t *testing.T) {
	// Fields arriving in any order must converge to the same completeness.
	partials := []models.ComplaintData{
		{Citizen: models.CitizenData{Address: "Laprida 120"}},
		{Description: "poste sin luz"},
		{Citizen: models.CitizenData{Name: "Ana Paz", DocumentID: "30111222"}},
		{Location: "Av. Mitre 1200"},
		{Type: "alumbrado"},
	}

	data := models.ComplaintData{}
	for i, p := range partials {
		if IsComplete(&data) {
			t.Fatalf("record complete too early, after %d partials", i)
		}
		Merge(&data, p)
	}
	if !IsComplete(&data) {
		t.Fatalf("record not complete after all partials: pending %v", PendingFields(&data))
	}
}

func TestWhitespaceOnlyFieldIsPending(t *testing.T) {
	data := fullRecord()
	data.Location = "   "
	if IsComplete(&data) {
		t.Error("whitespace-only field must not count as filled")
	}
	pending := PendingFields(&data)
	if len(pending) != 1 || pending[0] != FieldLocation {
		t.Errorf("expected only location pending, got %v", pending)
	}
}

func TestNextPromptFollowsOrder(t *testing.T) {
	data := models.ComplaintData{Type: "baches"}
	prompt := NextPrompt(&data)
	if prompt != fieldPrompts[FieldDescription] {
		t.Errorf("expected description prompt, got %q", prompt)
	}

	full := fullRecord()
	if NextPrompt(&full) != "" {
		t.Error("expected empty prompt for complete record")
	}
}

func TestRenderSummaryIncludesEveryField(t *testing.T) {
	data := fullRecord()
	summary := RenderSummary(&data)

	for _, want := range []string{"alumbrado", "poste sin luz", "Av. Mitre 1200", "Ana Paz", "30111222", "Laprida 120", "CONFIRMAR", "CANCELAR"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestExtractorParsesModelJSON(t *testing.T) {
	client := genai.NewMockClient(`{"type":"baches","description":"pozo enorme","location":"Muñecas 800"}`)
	extractor := NewExtractor(client)

	partial := extractor.Extract(context.Background(), "hay un pozo enorme en Muñecas 800")
	if partial.Type != "baches" || partial.Location != "Muñecas 800" {
		t.Errorf("unexpected extraction: %+v", partial)
	}
}

func TestExtractorMalformedJSONYieldsEmptyPartial(t *testing.T) {
	client := genai.NewMockClient("no soy json")
	extractor := NewExtractor(client)

	partial := extractor.Extract(context.Background(), "hay un pozo")
	if partial != (models.ComplaintData{}) {
		t.Errorf("expected empty partial on malformed reply, got %+v", partial)
	}
}
