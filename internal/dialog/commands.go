package dialog

import (
	"context"
	"fmt"
	"strings"

	"github.com/Luks-code/luna-sub000/internal/complaint"
	"github.com/Luks-code/luna-sub000/internal/models"
)

// commandAliases maps every accepted command spelling to its canonical
// Spanish form. Commands are matched case-insensitively on the first
// whitespace-separated token.
var commandAliases = map[string]string{
	"/ayuda":        "/ayuda",
	"/help":         "/ayuda",
	"/estado":       "/estado",
	"/status":       "/estado",
	"/cancelar":     "/cancelar",
	"/cancel":       "/cancelar",
	"/reiniciar":    "/reiniciar",
	"/reset":        "/reiniciar",
	"/confirmar":    "/confirmar",
	"/confirm":      "/confirmar",
	"/misreclamos":  "/misreclamos",
	"/mycomplaints": "/misreclamos",
	"/reclamo":      "/reclamo",
	"/complaint":    "/reclamo",
}

// isCommand reports whether the message is a slash command.
func isCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

// handleCommand dispatches a slash command. It returns the replies and
// whether the session was deleted (reset commands drop the blob entirely).
func (o *Orchestrator) handleCommand(ctx context.Context, userID, text string, blob *models.SessionBlob) ([]string, bool) {
	fields := strings.Fields(strings.TrimSpace(text))
	canonical, known := commandAliases[strings.ToLower(fields[0])]
	if !known {
		return []string{replyUnknownCommand}, false
	}

	switch canonical {
	case "/ayuda":
		return []string{replyHelp}, false

	case "/estado":
		if !blob.State.ComplaintInProgress {
			return []string{replyNoComplaintInProgress}, false
		}
		return []string{complaint.RenderChecklist(&blob.State.Complaint)}, false

	case "/cancelar":
		if !blob.State.ComplaintInProgress && !blob.State.AwaitingConfirmation() {
			return []string{replyNoComplaintToCancel}, false
		}
		resetComplaint(&blob.State)
		return []string{replyComplaintCancelled}, false

	case "/reiniciar":
		return []string{replySessionReset}, true

	case "/confirmar":
		// Confirmation only takes effect while the gate is armed; a stray
		// /confirmar never persists anything.
		if !blob.State.AwaitingConfirmation() {
			return []string{replyNothingToConfirm}, false
		}
		replies, deleted := o.persistConfirmed(ctx, userID, blob)
		return replies, deleted

	case "/misreclamos":
		return []string{o.listComplaints(userID)}, false

	case "/reclamo":
		if len(fields) < 2 {
			return []string{replyComplaintUsage}, false
		}
		return []string{o.complaintDetail(fields[1], userID)}, false
	}
	return []string{replyUnknownCommand}, false
}

// listComplaints renders the caller's registered complaints, newest first.
func (o *Orchestrator) listComplaints(userID string) string {
	complaints, err := o.store.FindComplaintsByPhone(userID)
	if err != nil {
		return replyApologyFallback
	}
	if len(complaints) == 0 {
		return replyNoComplaints
	}
	var b strings.Builder
	b.WriteString("Tus reclamos registrados:\n\n")
	for _, c := range complaints {
		fmt.Fprintf(&b, "• %s [%s] %s - %s (%s)\n",
			c.ID, c.Status, c.Type, c.Location, c.CreatedAt.Format("02/01/2006"))
	}
	return b.String()
}

// complaintDetail renders one complaint if and only if it belongs to the
// caller's phone. A missing id and someone else's id produce the same
// answer, so ids cannot be probed.
func (o *Orchestrator) complaintDetail(id, userID string) string {
	record, err := o.store.FindComplaintByID(id, userID)
	if err != nil {
		return replyApologyFallback
	}
	if record == nil {
		return replyComplaintNotFound
	}
	return fmt.Sprintf("Reclamo %s\nEstado: %s\nTipo: %s\nDescripción: %s\nUbicación: %s\nRegistrado: %s",
		record.ID, record.Status, record.Type, record.Description, record.Location,
		record.CreatedAt.Format("02/01/2006 15:04"))
}
