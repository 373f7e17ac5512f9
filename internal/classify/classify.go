package classify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/Luks-code/luna-sub000/internal/genai"
)

const cancellationSystemPrompt = `Sos un clasificador binario. Determiná si el mensaje del usuario expresa la intención de cancelar o abandonar un reclamo municipal en curso.
Respondé únicamente con JSON válido con esta forma exacta: {"match": true|false, "confidence": 0.0-1.0}.
Un pedido de cancelar otra cosa (un turno, un servicio) NO es cancelación del reclamo.`

const infoQuerySystemPrompt = `Sos un clasificador binario. Determiná si el mensaje del usuario es una consulta informativa sobre la municipalidad (horarios, trámites, requisitos, direcciones, teléfonos).
Respondé únicamente con JSON válido con esta forma exacta: {"match": true|false, "confidence": 0.0-1.0}.
Describir un problema o desperfecto para reclamar NO es una consulta informativa.`

// verdict is the JSON shape the adjudicator model must return.
type verdict struct {
	Match      bool    `json:"match"`
	Confidence float64 `json:"confidence"`
}

// Classifier answers the two binary questions the conversation loop
// needs: "is this a cancellation?" and "is this an informational query?".
// Cheap keyword tables decide the obvious cases; ambiguous messages go
// to the model, and verdicts are memoized in a bounded LRU.
type Classifier struct {
	client genai.ClientInterface
	cache  *Cache
}

// NewClassifier creates a classifier backed by the given completion client.
func NewClassifier(client genai.ClientInterface, cacheSize int) *Classifier {
	return &Classifier{client: client, cache: NewCache(cacheSize)}
}

// normalize lowercases, trims, and collapses internal whitespace so cache
// keys and keyword matches are stable across formatting differences.
func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// IsGreeting reports whether the message is a bare conversation opener.
func IsGreeting(text string) bool {
	norm := strings.Trim(normalize(text), "!.,")
	for _, g := range Greetings {
		if norm == strings.Trim(g, "!") {
			return true
		}
	}
	return false
}

// HasComplaintKeywords reports whether the message contains any complaint
// vocabulary.
func HasComplaintKeywords(text string) bool {
	norm := normalize(text)
	for _, kw := range ComplaintKeywords {
		if strings.Contains(norm, kw) {
			return true
		}
	}
	return false
}

// DetectMultipleComplaints reports whether the message describes more than
// one simultaneous complaint. Pattern-only; never calls the model.
func DetectMultipleComplaints(text string) bool {
	norm := normalize(text)
	for _, re := range multiComplaintPatterns {
		if re.MatchString(text) || re.MatchString(norm) {
			return true
		}
	}
	categories := 0
	for _, keywords := range problemCategoryKeywords {
		for _, kw := range keywords {
			if strings.Contains(norm, kw) {
				categories++
				break
			}
		}
	}
	return categories >= 2
}

// IsCancellation reports whether the message expresses the intent to
// abandon the complaint in progress.
func (c *Classifier) IsCancellation(ctx context.Context, text string) bool {
	norm := normalize(text)
	if norm == "" {
		return false
	}
	for _, phrase := range cancellationPhrases {
		if strings.Contains(norm, phrase) {
			return true
		}
	}
	return c.adjudicate(ctx, "cancel_"+norm, cancellationSystemPrompt, text)
}

// IsInfoQuery reports whether the message is an informational question
// rather than complaint material.
func (c *Classifier) IsInfoQuery(ctx context.Context, text string) bool {
	norm := normalize(text)
	if norm == "" {
		return false
	}
	hasMarker := false
	for _, marker := range infoQueryMarkers {
		if strings.Contains(norm, marker) {
			hasMarker = true
			break
		}
	}
	if !hasMarker {
		return false
	}
	// A question that is itself complaint vocabulary ("¿me arreglan el
	// bache?") still belongs to the complaint path.
	if HasComplaintKeywords(text) {
		return c.adjudicate(ctx, "info_"+norm, infoQuerySystemPrompt, text)
	}
	return true
}

// adjudicate asks the model for a binary verdict, memoizing the answer.
// Any transport or parse failure resolves to false: the conversation loop
// treats classifier failure as "no signal", never as a crash.
func (c *Classifier) adjudicate(ctx context.Context, cacheKey, system, text string) bool {
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached
	}

	raw, err := c.client.GenerateJSON(ctx, system, text)
	if err != nil {
		slog.Warn("Classifier.adjudicate: model call failed", "error", err, "key", cacheKey[:min(len(cacheKey), 24)])
		return false
	}
	var v verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		slog.Warn("Classifier.adjudicate: malformed verdict", "error", err)
		return false
	}

	result := v.Match && v.Confidence >= 0.5
	c.cache.Put(cacheKey, result)
	slog.Debug("Classifier.adjudicate: verdict", "match", v.Match, "confidence", v.Confidence)
	return result
}
