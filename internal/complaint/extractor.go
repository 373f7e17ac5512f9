package complaint

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/Luks-code/luna-sub000/internal/genai"
	"github.com/Luks-code/luna-sub000/internal/models"
)

const extractionSystemPrompt = `Sos un extractor de datos para reclamos municipales. Del mensaje del usuario extraé únicamente los campos que estén presentes de forma explícita.
Respondé solo con JSON válido con esta forma (omití los campos ausentes o dejalos vacíos):
{"type": "", "description": "", "location": "", "name": "", "documentId": "", "address": ""}
No inventes datos. "type" es la categoría del problema (alumbrado, baches, basura, agua, cloacas, tránsito, arbolado). Si el mensaje describe un problema, usá el texto del usuario como "description".`

// extractionResult is the JSON shape the extraction model returns.
type extractionResult struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Name        string `json:"name"`
	DocumentID  string `json:"documentId"`
	Address     string `json:"address"`
}

// Extractor pulls complaint fields out of free-form messages with the
// completion model.
type Extractor struct {
	client genai.ClientInterface
}

// NewExtractor creates an extractor backed by the given completion client.
func NewExtractor(client genai.ClientInterface) *Extractor {
	return &Extractor{client: client}
}

// Extract returns the fields found in the message as a partial record.
// Extraction failure returns an empty partial, never an error: the
// conversation loop re-prompts rather than crashing on a bad model reply.
func (e *Extractor) Extract(ctx context.Context, message string) models.ComplaintData {
	raw, err := e.client.GenerateJSON(ctx, extractionSystemPrompt, message)
	if err != nil {
		slog.Warn("Extractor.Extract: model call failed", "error", err)
		return models.ComplaintData{}
	}

	var result extractionResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		slog.Warn("Extractor.Extract: malformed extraction", "error", err)
		return models.ComplaintData{}
	}

	partial := models.ComplaintData{
		Type:        strings.TrimSpace(result.Type),
		Description: strings.TrimSpace(result.Description),
		Location:    strings.TrimSpace(result.Location),
		Citizen: models.CitizenData{
			Name:       strings.TrimSpace(result.Name),
			DocumentID: strings.TrimSpace(result.DocumentID),
			Address:    strings.TrimSpace(result.Address),
		},
	}
	slog.Debug("Extractor.Extract: extracted fields",
		"hasType", partial.Type != "",
		"hasDescription", partial.Description != "",
		"hasLocation", partial.Location != "")
	return partial
}
