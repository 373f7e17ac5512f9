// Package models defines conversation state structures for Luna sessions.
package models

import (
	"strings"
	"time"
)

// Mode is the orchestrator's current conversational posture.
type Mode string

const (
	ModeDefault   Mode = "DEFAULT"
	ModeComplaint Mode = "COMPLAINT"
	ModeInfo      Mode = "INFO"
)

// Step tracks progress through complaint field collection.
type Step string

const (
	StepInit                  Step = "INIT"
	StepCollectingType        Step = "COLLECTING_TYPE"
	StepCollectingDescription Step = "COLLECTING_DESCRIPTION"
	StepCollectingCitizenData Step = "COLLECTING_CITIZEN_DATA"
	StepAwaitingConfirmation  Step = "AWAITING_CONFIRMATION"
	StepComplete              Step = "COMPLETE"
)

// Intent classifies what a user message is trying to do.
type Intent string

const (
	IntentGreeting  Intent = "GREETING"
	IntentComplaint Intent = "COMPLAINT"
	IntentInquiry   Intent = "INQUIRY"
	IntentOther     Intent = "OTHER"
)

// ConfirmationState is the single tri-state replacement for the pair of
// awaiting/requested booleans: either no confirmation is pending or the
// session is blocked waiting for a literal confirm/cancel reply.
type ConfirmationState string

const (
	ConfirmationNone     ConfirmationState = "NOT_AWAITING"
	ConfirmationAwaiting ConfirmationState = "AWAITING_CONFIRMATION"
)

// CitizenData holds the reporter identity fields collected during a
// complaint conversation. All fields are optional until filled.
type CitizenData struct {
	Name       string `json:"name,omitempty"`
	DocumentID string `json:"documentId,omitempty"`
	Address    string `json:"address,omitempty"`
}

// ComplaintData is the partial complaint record assembled over a
// conversation. It is only complete when type, description, location and
// the three citizen fields are all non-empty after trimming.
type ComplaintData struct {
	Type        string      `json:"type,omitempty"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	Citizen     CitizenData `json:"citizen"`
}

// ResumeContext records how to resume a complaint flow that was interrupted
// by an informational detour.
type ResumeContext struct {
	OriginalIntent  Intent `json:"originalIntent,omitempty"`
	PendingQuestion string `json:"pendingQuestion,omitempty"`
	ResumePoint     Step   `json:"resumePoint,omitempty"`
}

// ConversationState is the per-user session state. It is one complete
// declared structure: every field exists from session creation with its
// zero-value default, so no reader needs existence checks.
type ConversationState struct {
	Mode Mode `json:"mode"`
	// ReturnMode is the depth-1 mode stack: the mode to restore after a
	// transient detour, empty when no detour is active.
	ReturnMode          Mode              `json:"returnMode,omitempty"`
	ComplaintInProgress bool              `json:"complaintInProgress"`
	Complaint           ComplaintData     `json:"complaint"`
	CurrentStep         Step              `json:"currentStep"`
	Confirmation        ConfirmationState `json:"confirmation"`
	ConfirmedData       *ComplaintData    `json:"confirmedData,omitempty"`
	CurrentIntent       Intent            `json:"currentIntent,omitempty"`
	PreviousIntent      Intent            `json:"previousIntent,omitempty"`
	PendingFields       []string          `json:"pendingFields,omitempty"`
	Topics              []string          `json:"topics,omitempty"`
	InterruptedFlow     bool              `json:"interruptedFlow"`
	Resume              *ResumeContext    `json:"resume,omitempty"`
	ModeChangeNotified  bool              `json:"modeChangeNotified"`
	LastInteraction     int64             `json:"lastInteraction"`
}

// NewConversationState returns the initial state for a fresh session.
func NewConversationState() ConversationState {
	return ConversationState{
		Mode:         ModeDefault,
		CurrentStep:  StepInit,
		Confirmation: ConfirmationNone,
	}
}

// AwaitingConfirmation reports whether the session is blocked waiting for a
// confirm/cancel reply.
func (s *ConversationState) AwaitingConfirmation() bool {
	return s.Confirmation == ConfirmationAwaiting
}

// ConfirmationRequested reports whether a confirmation prompt has been
// issued. It is by construction always equal to AwaitingConfirmation: both
// legacy flags read the same underlying state.
func (s *ConversationState) ConfirmationRequested() bool {
	return s.Confirmation == ConfirmationAwaiting
}

// AddTopic records a free-text topic token if not already present.
// Topics are diagnostic only.
func (s *ConversationState) AddTopic(topic string) {
	topic = strings.TrimSpace(strings.ToLower(topic))
	if topic == "" {
		return
	}
	for _, t := range s.Topics {
		if t == topic {
			return
		}
	}
	s.Topics = append(s.Topics, topic)
}

// Touch updates the last interaction timestamp to now (epoch millis).
func (s *ConversationState) Touch() {
	s.LastInteraction = time.Now().UnixMilli()
}

// ConversationMessage represents a single message in the session history.
type ConversationMessage struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionBlob is the wire shape persisted in the session store: state plus
// bounded message history.
type SessionBlob struct {
	State          ConversationState     `json:"state"`
	MessageHistory []ConversationMessage `json:"messageHistory"`
}

// NewSessionBlob returns a fresh session with initial state and no history.
func NewSessionBlob() *SessionBlob {
	return &SessionBlob{
		State:          NewConversationState(),
		MessageHistory: []ConversationMessage{},
	}
}

// AppendMessage appends a message to the history, dropping oldest entries
// beyond the limit. A non-positive limit keeps the history unbounded.
func (b *SessionBlob) AppendMessage(role, content string, limit int) {
	b.MessageHistory = append(b.MessageHistory, ConversationMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	if limit > 0 && len(b.MessageHistory) > limit {
		b.MessageHistory = b.MessageHistory[len(b.MessageHistory)-limit:]
	}
}

// LastUserMessage returns the most recent prior user message content, or ""
// when the history holds none. The current turn's message is excluded when
// skipCurrent is true and the last entry is a user message.
func (b *SessionBlob) LastUserMessage(skipCurrent bool) string {
	skipped := !skipCurrent
	for i := len(b.MessageHistory) - 1; i >= 0; i-- {
		if b.MessageHistory[i].Role != "user" {
			continue
		}
		if !skipped {
			skipped = true
			continue
		}
		return b.MessageHistory[i].Content
	}
	return ""
}
