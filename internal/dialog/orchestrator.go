package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Luks-code/luna-sub000/internal/classify"
	"github.com/Luks-code/luna-sub000/internal/complaint"
	"github.com/Luks-code/luna-sub000/internal/genai"
	"github.com/Luks-code/luna-sub000/internal/models"
	"github.com/Luks-code/luna-sub000/internal/retrieval"
	"github.com/Luks-code/luna-sub000/internal/session"
	"github.com/Luks-code/luna-sub000/internal/store"
)

// DefaultHistoryLimit bounds the per-session message history.
const DefaultHistoryLimit = 20

// Opts holds configuration options for the orchestrator.
type Opts struct {
	HistoryLimit int
	TopK         int
	CacheSize    int
	Reranker     *retrieval.Reranker
}

// Option defines a configuration option for the orchestrator.
type Option func(*Opts)

// WithHistoryLimit sets the bounded message history length.
func WithHistoryLimit(limit int) Option {
	return func(o *Opts) { o.HistoryLimit = limit }
}

// WithTopK sets the retrieval passage count.
func WithTopK(topK int) Option {
	return func(o *Opts) { o.TopK = topK }
}

// WithCacheSize sets the classifier verdict cache capacity.
func WithCacheSize(size int) Option {
	return func(o *Opts) { o.CacheSize = size }
}

// WithReranker sets the retrieval reranker.
func WithReranker(r *retrieval.Reranker) Option {
	return func(o *Opts) { o.Reranker = r }
}

// userLocks serializes turns per user so concurrent deliveries from the
// same phone never interleave a session read-modify-write.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *userLocks) get(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	if _, ok := l.locks[userID]; !ok {
		l.locks[userID] = &sync.Mutex{}
	}
	return l.locks[userID]
}

// Orchestrator drives a conversation turn: it loads the session, arbitrates
// between complaint collection, informational answers and commands, and
// persists the updated session.
type Orchestrator struct {
	sessions     session.Store
	store        store.Store
	genai        genai.ClientInterface
	searcher     retrieval.Searcher
	reranker     *retrieval.Reranker
	classifier   *classify.Classifier
	extractor    *complaint.Extractor
	historyLimit int
	topK         int
	locks        userLocks
}

// NewOrchestrator creates the conversation orchestrator.
func NewOrchestrator(sessions session.Store, st store.Store, client genai.ClientInterface, searcher retrieval.Searcher, opts ...Option) *Orchestrator {
	cfg := Opts{HistoryLimit: DefaultHistoryLimit, TopK: DefaultTopK}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("dialog.NewOrchestrator: creating orchestrator", "historyLimit", cfg.HistoryLimit, "topK", cfg.TopK)
	return &Orchestrator{
		sessions:     sessions,
		store:        st,
		genai:        client,
		searcher:     searcher,
		reranker:     cfg.Reranker,
		classifier:   classify.NewClassifier(client, cfg.CacheSize),
		extractor:    complaint.NewExtractor(client),
		historyLimit: cfg.HistoryLimit,
		topK:         cfg.TopK,
	}
}

// HandleMessage processes one inbound message and returns the ordered
// replies to send. Turns for the same user are serialized.
func (o *Orchestrator) HandleMessage(ctx context.Context, userID, text string) ([]string, error) {
	mu := o.locks.get(userID)
	mu.Lock()
	defer mu.Unlock()

	blob, err := o.sessions.Get(ctx, userID)
	if err != nil {
		slog.Warn("Orchestrator.HandleMessage: session load failed, starting fresh", "error", err, "userID", userID)
		blob = nil
	}
	if blob == nil {
		blob = models.NewSessionBlob()
	}
	blob.AppendMessage("user", text, o.historyLimit)

	replies, sessionDeleted := o.handleTurn(ctx, userID, text, blob)

	if sessionDeleted {
		if err := o.sessions.Delete(ctx, userID); err != nil {
			slog.Error("Orchestrator.HandleMessage: session delete failed", "error", err, "userID", userID)
		}
		return replies, nil
	}

	updateProgress(&blob.State)
	for _, r := range replies {
		blob.AppendMessage("assistant", r, o.historyLimit)
	}
	blob.State.Touch()
	if err := o.sessions.Put(ctx, userID, blob); err != nil {
		slog.Error("Orchestrator.HandleMessage: session save failed", "error", err, "userID", userID)
	}
	return replies, nil
}

// handleTurn arbitrates one turn. Precedence: the confirmation gate blocks
// everything except its own vocabulary, then cancellation intent, then
// commands, then the current mode.
func (o *Orchestrator) handleTurn(ctx context.Context, userID, text string, blob *models.SessionBlob) ([]string, bool) {
	if blob.State.AwaitingConfirmation() {
		return o.handleConfirmationReply(ctx, userID, text, blob)
	}
	if blob.State.ComplaintInProgress && o.classifier.IsCancellation(ctx, text) {
		resetComplaint(&blob.State)
		return []string{replyComplaintCancelled, replySessionReset}, false
	}
	if isCommand(text) {
		return o.handleCommand(ctx, userID, text, blob)
	}

	switch blob.State.Mode {
	case models.ModeComplaint:
		return o.handleComplaintMode(ctx, text, blob), false
	case models.ModeInfo:
		return o.handleInfoMode(ctx, text, blob), false
	default:
		return o.handleDefaultMode(ctx, text, blob), false
	}
}

// handleConfirmationReply runs the confirmation gate. Only the literal
// confirm and cancel vocabulary moves the session forward; anything else,
// commands included, re-prompts without touching the assembled record.
func (o *Orchestrator) handleConfirmationReply(ctx context.Context, userID, text string, blob *models.SessionBlob) ([]string, bool) {
	norm := strings.ToLower(strings.TrimSpace(text))
	switch norm {
	case "confirmar", "confirm", "/confirmar", "/confirm":
		return o.persistConfirmed(ctx, userID, blob)
	case "cancelar", "cancel", "/cancelar", "/cancel":
		resetComplaint(&blob.State)
		return []string{replyComplaintCancelled}, false
	}
	return []string{replyConfirmReprompt}, false
}

// persistConfirmed writes the confirmed complaint to durable storage.
// Success ends the session; failure keeps the gate armed so the citizen
// can retry without losing the assembled record.
func (o *Orchestrator) persistConfirmed(ctx context.Context, userID string, blob *models.SessionBlob) ([]string, bool) {
	data := blob.State.ConfirmedData
	if data == nil {
		data = &blob.State.Complaint
	}

	// The gate only arms on a complete record, but a session written by an
	// older version may confirm with holes in it.
	if strings.TrimSpace(data.Type) == "" || strings.TrimSpace(data.Description) == "" || strings.TrimSpace(data.Location) == "" {
		slog.Warn("Orchestrator.persistConfirmed: confirmed record missing complaint fields", "userID", userID)
		return []string{replyMissingComplaintData}, false
	}
	if strings.TrimSpace(data.Citizen.Name) == "" || strings.TrimSpace(data.Citizen.DocumentID) == "" || strings.TrimSpace(data.Citizen.Address) == "" {
		slog.Warn("Orchestrator.persistConfirmed: confirmed record missing citizen fields", "userID", userID)
		return []string{replyMissingCitizenData}, false
	}

	citizen, err := o.store.FindOrCreateCitizen(models.Citizen{
		Name:       data.Citizen.Name,
		DocumentID: data.Citizen.DocumentID,
		Phone:      userID,
		Address:    data.Citizen.Address,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateCitizen) {
			slog.Warn("Orchestrator.persistConfirmed: duplicate citizen identity", "userID", userID)
			return []string{replyDuplicateCitizen}, false
		}
		slog.Error("Orchestrator.persistConfirmed: citizen persistence failed", "error", err, "userID", userID)
		return []string{replyPersistenceFailure}, false
	}

	record, err := o.store.CreateComplaint(models.Complaint{
		Type:        data.Type,
		Description: data.Description,
		Location:    data.Location,
		CitizenID:   citizen.ID,
	})
	if err != nil {
		slog.Error("Orchestrator.persistConfirmed: complaint persistence failed", "error", err, "userID", userID)
		return []string{replyPersistenceFailure}, false
	}

	slog.Info("Orchestrator.persistConfirmed: complaint registered", "complaintID", record.ID, "citizenID", citizen.ID)
	confirmation := fmt.Sprintf("¡Listo! Tu reclamo quedó registrado con el número %s. Podés consultarlo cuando quieras con /reclamo %s.\n\nLa conversación se reinicia: si necesitás algo más, escribime.", record.ID, record.ID)
	return []string{confirmation}, true
}

// handleComplaintMode collects complaint fields, allowing an informational
// detour that answers and then returns to the pending question.
func (o *Orchestrator) handleComplaintMode(ctx context.Context, text string, blob *models.SessionBlob) []string {
	st := &blob.State

	if o.classifier.IsInfoQuery(ctx, text) {
		pending := complaint.NextPrompt(&st.Complaint)
		st.ReturnMode = models.ModeComplaint
		st.Mode = models.ModeInfo
		st.InterruptedFlow = true
		st.Resume = &models.ResumeContext{
			OriginalIntent:  models.IntentComplaint,
			PendingQuestion: pending,
			ResumePoint:     st.CurrentStep,
		}

		answer := o.generateWithRAG(ctx, blob, text)

		st.Mode = st.ReturnMode
		st.ReturnMode = ""
		st.InterruptedFlow = false
		st.Resume = nil
		st.ModeChangeNotified = true

		// Long answers skip the reminder so the message stays readable.
		if pending != "" && len(answer) < resumeReminderMaxAnswerLen {
			answer = answer + "\n\n" + replyResumeReminder + pending
		}
		return []string{answer}
	}

	partial := o.extractor.Extract(ctx, text)
	complaint.Merge(&st.Complaint, partial)
	if t := strings.TrimSpace(st.Complaint.Type); t != "" {
		st.AddTopic(t)
	}

	if complaint.IsComplete(&st.Complaint) {
		st.Confirmation = models.ConfirmationAwaiting
		st.CurrentStep = models.StepAwaitingConfirmation
		confirmed := st.Complaint
		st.ConfirmedData = &confirmed
		return []string{complaint.RenderSummary(&st.Complaint)}
	}
	return []string{complaint.NextPrompt(&st.Complaint)}
}

// handleInfoMode answers informational queries, switching to complaint
// collection when the citizen starts describing a problem instead.
func (o *Orchestrator) handleInfoMode(ctx context.Context, text string, blob *models.SessionBlob) []string {
	if classify.HasComplaintKeywords(text) && !o.classifier.IsInfoQuery(ctx, text) {
		return o.startComplaint(ctx, text, blob)
	}
	return []string{o.generateWithRAG(ctx, blob, text)}
}

// handleDefaultMode routes a message with no prior conversational posture.
func (o *Orchestrator) handleDefaultMode(ctx context.Context, text string, blob *models.SessionBlob) []string {
	st := &blob.State

	if !st.ComplaintInProgress && classify.DetectMultipleComplaints(text) {
		return []string{replyMultipleComplaints}
	}
	if classify.HasComplaintKeywords(text) {
		return o.startComplaint(ctx, text, blob)
	}
	if classify.IsGreeting(text) {
		st.CurrentIntent = models.IntentGreeting
		return []string{replyGreeting}
	}
	if ShouldUseRAG(text) {
		st.Mode = models.ModeInfo
		st.PreviousIntent = st.CurrentIntent
		st.CurrentIntent = models.IntentInquiry
		return []string{o.generateWithRAG(ctx, blob, text)}
	}
	st.PreviousIntent = st.CurrentIntent
	st.CurrentIntent = models.IntentOther
	return []string{o.generate(ctx, personaSystemPrompt, blob, text)}
}

// startComplaint transitions into complaint collection, seeding the record
// from whatever the opening message already contains.
func (o *Orchestrator) startComplaint(ctx context.Context, text string, blob *models.SessionBlob) []string {
	st := &blob.State
	st.Mode = models.ModeComplaint
	st.ComplaintInProgress = true
	st.PreviousIntent = st.CurrentIntent
	st.CurrentIntent = models.IntentComplaint
	st.CurrentStep = models.StepCollectingType

	partial := o.extractor.Extract(ctx, text)
	if partial.Description == "" {
		partial.Description = strings.TrimSpace(text)
	}
	complaint.Merge(&st.Complaint, partial)
	if t := strings.TrimSpace(st.Complaint.Type); t != "" {
		st.AddTopic(t)
	}

	if complaint.IsComplete(&st.Complaint) {
		st.Confirmation = models.ConfirmationAwaiting
		st.CurrentStep = models.StepAwaitingConfirmation
		confirmed := st.Complaint
		st.ConfirmedData = &confirmed
		return []string{complaint.RenderSummary(&st.Complaint)}
	}
	return []string{replyComplaintIntro + " " + complaint.NextPrompt(&st.Complaint)}
}

// resetComplaint discards the in-progress record and returns the session
// to the default posture. The message history is kept.
func resetComplaint(st *models.ConversationState) {
	st.Mode = models.ModeDefault
	st.ReturnMode = ""
	st.ComplaintInProgress = false
	st.Complaint = models.ComplaintData{}
	st.CurrentStep = models.StepInit
	st.Confirmation = models.ConfirmationNone
	st.ConfirmedData = nil
	st.PendingFields = nil
	st.InterruptedFlow = false
	st.Resume = nil
	st.ModeChangeNotified = false
}

// updateProgress recomputes the derived collection-progress fields after a
// turn so persisted state never disagrees with the record.
func updateProgress(st *models.ConversationState) {
	if !st.ComplaintInProgress {
		st.PendingFields = nil
		return
	}
	st.PendingFields = complaint.PendingFields(&st.Complaint)
	if st.AwaitingConfirmation() {
		st.CurrentStep = models.StepAwaitingConfirmation
		return
	}
	if len(st.PendingFields) == 0 {
		st.CurrentStep = models.StepComplete
		return
	}
	switch st.PendingFields[0] {
	case complaint.FieldType:
		st.CurrentStep = models.StepCollectingType
	case complaint.FieldDescription, complaint.FieldLocation:
		st.CurrentStep = models.StepCollectingDescription
	default:
		st.CurrentStep = models.StepCollectingCitizenData
	}
}
