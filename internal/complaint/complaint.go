// Package complaint implements complaint field assembly: merging partial
// extractions into the in-progress record, tracking which fields remain,
// and rendering summaries for the confirmation step.
package complaint

import (
	"fmt"
	"strings"

	"github.com/Luks-code/luna-sub000/internal/models"
)

// Field names in collection order. The order is fixed so prompts walk the
// citizen through the record deterministically.
const (
	FieldType        = "type"
	FieldDescription = "description"
	FieldLocation    = "location"
	FieldName        = "name"
	FieldDocumentID  = "documentId"
	FieldAddress     = "address"
)

// FieldOrder lists every complaint field in collection order.
var FieldOrder = []string{
	FieldType,
	FieldDescription,
	FieldLocation,
	FieldName,
	FieldDocumentID,
	FieldAddress,
}

// fieldPrompts maps each pending field to the question that collects it.
var fieldPrompts = map[string]string{
	FieldType:        "¿Sobre qué tipo de problema querés hacer el reclamo? (alumbrado, baches, basura, agua, etc.)",
	FieldDescription: "Contame un poco más: ¿qué es exactamente lo que pasa?",
	FieldLocation:    "¿En qué lugar está el problema? (calle y altura, o una referencia)",
	FieldName:        "Para registrar el reclamo necesito tu nombre completo.",
	FieldDocumentID:  "¿Cuál es tu número de documento?",
	FieldAddress:     "Por último, ¿cuál es tu domicilio?",
}

// fieldLabels maps field names to the labels used in summaries.
var fieldLabels = map[string]string{
	FieldType:        "Tipo",
	FieldDescription: "Descripción",
	FieldLocation:    "Ubicación",
	FieldName:        "Nombre",
	FieldDocumentID:  "Documento",
	FieldAddress:     "Domicilio",
}

// get returns the current value of a field on the in-progress record.
func get(data *models.ComplaintData, field string) string {
	if data == nil {
		return ""
	}
	switch field {
	case FieldType:
		return data.Type
	case FieldDescription:
		return data.Description
	case FieldLocation:
		return data.Location
	case FieldName:
		return data.Citizen.Name
	case FieldDocumentID:
		return data.Citizen.DocumentID
	case FieldAddress:
		return data.Citizen.Address
	}
	return ""
}

// Merge applies a partial extraction onto the in-progress record. Fields
// present and non-empty in the partial overwrite; absent fields never
// erase what was already collected.
func Merge(data *models.ComplaintData, partial models.ComplaintData) {
	if v := strings.TrimSpace(partial.Type); v != "" {
		data.Type = v
	}
	if v := strings.TrimSpace(partial.Description); v != "" {
		data.Description = v
	}
	if v := strings.TrimSpace(partial.Location); v != "" {
		data.Location = v
	}
	if v := strings.TrimSpace(partial.Citizen.Name); v != "" {
		data.Citizen.Name = v
	}
	if v := strings.TrimSpace(partial.Citizen.DocumentID); v != "" {
		data.Citizen.DocumentID = v
	}
	if v := strings.TrimSpace(partial.Citizen.Address); v != "" {
		data.Citizen.Address = v
	}
}

// PendingFields returns the fields still missing, in collection order.
func PendingFields(data *models.ComplaintData) []string {
	var pending []string
	for _, f := range FieldOrder {
		if strings.TrimSpace(get(data, f)) == "" {
			pending = append(pending, f)
		}
	}
	return pending
}

// IsComplete reports whether every field has a non-empty value.
func IsComplete(data *models.ComplaintData) bool {
	return len(PendingFields(data)) == 0
}

// NextPrompt returns the question for the first missing field, or an
// empty string when the record is complete.
func NextPrompt(data *models.ComplaintData) string {
	pending := PendingFields(data)
	if len(pending) == 0 {
		return ""
	}
	return fieldPrompts[pending[0]]
}

// RenderSummary renders the completed record for the confirmation step.
func RenderSummary(data *models.ComplaintData) string {
	var b strings.Builder
	b.WriteString("Este es el resumen de tu reclamo:\n\n")
	for _, f := range FieldOrder {
		fmt.Fprintf(&b, "• %s: %s\n", fieldLabels[f], get(data, f))
	}
	b.WriteString("\n¿Confirmás el reclamo? Respondé CONFIRMAR para registrarlo o CANCELAR para descartarlo.")
	return b.String()
}

// RenderChecklist renders collection progress for the /estado command.
func RenderChecklist(data *models.ComplaintData) string {
	var b strings.Builder
	b.WriteString("Estado de tu reclamo en curso:\n\n")
	for _, f := range FieldOrder {
		value := strings.TrimSpace(get(data, f))
		if value == "" {
			fmt.Fprintf(&b, "✗ %s: pendiente\n", fieldLabels[f])
		} else {
			fmt.Fprintf(&b, "✓ %s: %s\n", fieldLabels[f], value)
		}
	}
	return b.String()
}
