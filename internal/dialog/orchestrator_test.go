package dialog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Luks-code/luna-sub000/internal/genai"
	"github.com/Luks-code/luna-sub000/internal/models"
	"github.com/Luks-code/luna-sub000/internal/retrieval"
	"github.com/Luks-code/luna-sub000/internal/session"
	"github.com/Luks-code/luna-sub000/internal/store"
)

const testPhone = "+5493810000001"

// noMatch is the adjudicator verdict for "not a cancellation / not an
// info query".
const noMatch = `{"match": false, "confidence": 0.9}`

type fixture struct {
	orch     *Orchestrator
	sessions *session.MemoryStore
	store    *store.InMemoryStore
	client   *genai.MockClient
}

func newFixture(t *testing.T, replies ...string) *fixture {
	t.Helper()
	sessions := session.NewMemoryStore(time.Minute)
	st := store.NewInMemoryStore()
	client := genai.NewMockClient(replies...)
	searcher := retrieval.NewMemorySearcher(retrieval.Passage{
		Text:   "El horario de atención de la municipalidad es de 8 a 14, de lunes a viernes.",
		Source: "atencion-al-vecino.md",
	})
	orch := NewOrchestrator(sessions, st, client, searcher)
	return &fixture{orch: orch, sessions: sessions, store: st, client: client}
}

func (f *fixture) state(t *testing.T) *models.ConversationState {
	t.Helper()
	blob, err := f.sessions.Get(context.Background(), testPhone)
	if err != nil {
		t.Fatalf("session load failed: %v", err)
	}
	if blob == nil {
		t.Fatal("expected session to exist")
	}
	return &blob.State
}

func send(t *testing.T, f *fixture, text string) []string {
	t.Helper()
	replies, err := f.orch.HandleMessage(context.Background(), testPhone, text)
	if err != nil {
		t.Fatalf("HandleMessage(%q) failed: %v", text, err)
	}
	if len(replies) == 0 {
		t.Fatalf("HandleMessage(%q) returned no replies", text)
	}
	return replies
}

func TestComplaintHappyPath(t *testing.T) {
	f := newFixture(t,
		// opening message: field extraction
		`{"type":"alumbrado","description":"poste de luz caído","location":"Av. Mitre 1200"}`,
		// "Ana Paz": cancellation verdict, then extraction
		noMatch,
		`{"name":"Ana Paz"}`,
		// "30111222": cancellation verdict, then extraction
		noMatch,
		`{"documentId":"30111222"}`,
		// "Laprida 120": cancellation verdict, then extraction
		noMatch,
		`{"address":"Laprida 120"}`,
	)

	replies := send(t, f, "Hay un poste de luz caído en Av. Mitre 1200")
	if !strings.Contains(replies[0], "nombre") {
		t.Errorf("expected name prompt after seeded opening, got %q", replies[0])
	}
	if st := f.state(t); st.Mode != models.ModeComplaint || !st.ComplaintInProgress {
		t.Fatalf("expected complaint mode in progress, got %+v", st)
	}

	send(t, f, "Ana Paz")
	send(t, f, "30111222")
	replies = send(t, f, "Laprida 120")

	if !strings.Contains(replies[0], "CONFIRMAR") {
		t.Fatalf("expected confirmation summary, got %q", replies[0])
	}
	st := f.state(t)
	if !st.AwaitingConfirmation() {
		t.Fatal("expected confirmation gate armed")
	}
	if st.CurrentStep != models.StepAwaitingConfirmation {
		t.Errorf("expected step %q, got %q", models.StepAwaitingConfirmation, st.CurrentStep)
	}

	replies = send(t, f, "CONFIRMAR")
	if !strings.Contains(replies[0], "registrado") {
		t.Errorf("expected registration confirmation, got %q", replies[0])
	}

	complaints, err := f.store.FindComplaintsByPhone(testPhone)
	if err != nil {
		t.Fatalf("store query failed: %v", err)
	}
	if len(complaints) != 1 {
		t.Fatalf("expected exactly 1 persisted complaint, got %d", len(complaints))
	}
	if complaints[0].Type != "alumbrado" || complaints[0].Location != "Av. Mitre 1200" {
		t.Errorf("persisted record mismatch: %+v", complaints[0])
	}
	if !strings.Contains(replies[0], complaints[0].ID) {
		t.Errorf("confirmation reply must carry the record id %q: %q", complaints[0].ID, replies[0])
	}

	// Session resets after persistence.
	blob, _ := f.sessions.Get(context.Background(), testPhone)
	if blob != nil {
		t.Error("expected session deleted after successful registration")
	}
}

func TestConfirmationGateBlocksOtherInput(t *testing.T) {
	f := newFixture(t,
		`{"type":"baches","description":"pozo enorme","location":"Muñecas 800","name":"Ana Paz","documentId":"30111222","address":"Laprida 120"}`,
	)

	replies := send(t, f, "Hay un bache enorme en Muñecas 800")
	if !strings.Contains(replies[0], "CONFIRMAR") {
		t.Fatalf("expected gate armed from fully seeded message, got %q", replies[0])
	}

	before := f.state(t).Complaint
	replies = send(t, f, "gracias!")
	if replies[0] != replyConfirmReprompt {
		t.Errorf("expected confirm re-prompt, got %q", replies[0])
	}
	st := f.state(t)
	if !st.AwaitingConfirmation() {
		t.Error("gate must stay armed after unrelated input")
	}
	if st.Complaint != before {
		t.Error("assembled record must not change while gated")
	}

	if complaints, _ := f.store.FindComplaintsByPhone(testPhone); len(complaints) != 0 {
		t.Errorf("nothing may persist before CONFIRMAR, got %d records", len(complaints))
	}
}

func TestConfirmationGateIgnoresCommands(t *testing.T) {
	f := newFixture(t,
		`{"type":"baches","description":"pozo enorme","location":"Muñecas 800","name":"Ana Paz","documentId":"30111222","address":"Laprida 120"}`,
	)
	send(t, f, "Hay un bache enorme en Muñecas 800")
	before := f.state(t).Complaint

	for _, cmd := range []string{"/reiniciar", "/misreclamos", "/estado", "/ayuda"} {
		replies := send(t, f, cmd)
		if replies[0] != replyConfirmReprompt {
			t.Errorf("%s while gated must re-prompt, got %q", cmd, replies[0])
		}
	}

	st := f.state(t)
	if !st.AwaitingConfirmation() {
		t.Error("gate must stay armed across command attempts")
	}
	if st.Complaint != before {
		t.Error("assembled record must survive command attempts while gated")
	}
	blob, _ := f.sessions.Get(context.Background(), testPhone)
	if blob == nil {
		t.Fatal("session must survive /reiniciar while gated")
	}
}

func TestCancelDuringConfirmationGate(t *testing.T) {
	f := newFixture(t,
		`{"type":"baches","description":"pozo enorme","location":"Muñecas 800","name":"Ana Paz","documentId":"30111222","address":"Laprida 120"}`,
	)
	send(t, f, "Hay un bache enorme en Muñecas 800")

	replies := send(t, f, "CANCELAR")
	if replies[0] != replyComplaintCancelled {
		t.Errorf("expected cancellation reply, got %q", replies[0])
	}
	st := f.state(t)
	if st.ComplaintInProgress || st.AwaitingConfirmation() {
		t.Error("expected complaint discarded and gate disarmed")
	}
	if st.Mode != models.ModeDefault {
		t.Errorf("expected default mode after cancel, got %q", st.Mode)
	}
	if complaints, _ := f.store.FindComplaintsByPhone(testPhone); len(complaints) != 0 {
		t.Error("cancelled complaint must not persist")
	}
}

func TestDuplicateCitizenKeepsGateArmed(t *testing.T) {
	f := newFixture(t,
		`{"type":"baches","description":"pozo","location":"Muñecas 800","name":"Ana Paz","documentId":"30111222","address":"Laprida 120"}`,
	)
	// Same phone already registered under a different document id.
	if _, err := f.store.FindOrCreateCitizen(models.Citizen{DocumentID: "20999888", Phone: testPhone}); err != nil {
		t.Fatalf("seed citizen failed: %v", err)
	}

	send(t, f, "Hay un bache en Muñecas 800")
	replies := send(t, f, "CONFIRMAR")

	if replies[0] != replyDuplicateCitizen {
		t.Errorf("expected duplicate-citizen reply, got %q", replies[0])
	}
	if !f.state(t).AwaitingConfirmation() {
		t.Error("gate must stay armed so the citizen can fix the document and retry")
	}
	if complaints, _ := f.store.FindComplaintsByPhone(testPhone); len(complaints) != 0 {
		t.Error("no complaint may persist on identity conflict")
	}
}

func TestMultipleComplaintsRefusedBeforeStart(t *testing.T) {
	f := newFixture(t)

	replies := send(t, f, "Primero, el poste de la esquina no tiene luz. Segundo, hay basura acumulada.")
	if replies[0] != replyMultipleComplaints {
		t.Errorf("expected multi-complaint refusal, got %q", replies[0])
	}
	st := f.state(t)
	if st.ComplaintInProgress {
		t.Error("a multi-complaint message must not start a complaint")
	}
	if len(f.client.Calls) != 0 {
		t.Errorf("refusal must not call the model, got %d calls", len(f.client.Calls))
	}
}

func TestInfoDetourDuringComplaint(t *testing.T) {
	f := newFixture(t,
		`{"type":"alumbrado","description":"poste caído","location":"Av. Mitre 1200"}`,
		// detour turn: cancellation verdict, then the RAG answer
		noMatch,
		"El horario de atención es de 8 a 14, de lunes a viernes.",
	)

	send(t, f, "Hay un poste caído en Av. Mitre 1200")

	replies := send(t, f, "¿cuál es el horario de atención?")
	if len(replies) != 1 {
		t.Fatalf("expected a single combined reply, got %d replies: %v", len(replies), replies)
	}
	if !strings.Contains(replies[0], "8 a 14") {
		t.Errorf("expected informational answer, got %q", replies[0])
	}
	if !strings.Contains(replies[0], "nombre") {
		t.Errorf("expected reminder of the pending question appended, got %q", replies[0])
	}

	st := f.state(t)
	if st.Mode != models.ModeComplaint {
		t.Errorf("expected return to complaint mode, got %q", st.Mode)
	}
	if !st.ComplaintInProgress {
		t.Error("detour must not discard the complaint in progress")
	}
	if st.Complaint.Location != "Av. Mitre 1200" {
		t.Error("detour must not erase collected fields")
	}
}

func TestInfoDetourSkipsReminderOnLongAnswer(t *testing.T) {
	longAnswer := strings.Repeat("El horario de atención es de 8 a 14, de lunes a viernes. ", 8) + "Fin."
	f := newFixture(t,
		`{"type":"alumbrado","description":"poste caído","location":"Av. Mitre 1200"}`,
		noMatch,
		longAnswer,
	)
	send(t, f, "Hay un poste caído en Av. Mitre 1200")

	replies := send(t, f, "¿cuál es el horario de atención?")
	if len(replies) != 1 {
		t.Fatalf("expected a single reply, got %d", len(replies))
	}
	if strings.Contains(replies[0], replyResumeReminder) {
		t.Errorf("long answer must not carry the resume reminder, got %q", replies[0])
	}
	if f.state(t).Mode != models.ModeComplaint {
		t.Error("mode must still return to complaint collection")
	}
}

func TestCancellationIntentResetsComplaint(t *testing.T) {
	f := newFixture(t,
		`{"type":"alumbrado","description":"poste caído","location":"Av. Mitre 1200"}`,
	)
	send(t, f, "Hay un poste caído en Av. Mitre 1200")

	replies := send(t, f, "mejor dejalo, ya no quiero seguir")
	if len(replies) != 2 {
		t.Fatalf("expected cancellation plus reset notices, got %v", replies)
	}
	if replies[0] != replyComplaintCancelled || replies[1] != replySessionReset {
		t.Errorf("unexpected notices: %v", replies)
	}
	if f.state(t).ComplaintInProgress {
		t.Error("expected complaint discarded")
	}
}

func TestCancellationIntentPrecedesCommandDispatch(t *testing.T) {
	f := newFixture(t,
		`{"type":"alumbrado","description":"poste caído","location":"Av. Mitre 1200"}`,
	)
	send(t, f, "Hay un poste caído en Av. Mitre 1200")

	// "/cancelar" carries cancellation intent, so with a complaint in
	// progress it resolves as intent, not as a dispatcher command.
	replies := send(t, f, "/cancelar")
	if len(replies) != 2 || replies[0] != replyComplaintCancelled {
		t.Fatalf("expected intent-path cancellation notices, got %v", replies)
	}
	if f.state(t).ComplaintInProgress {
		t.Error("expected complaint discarded")
	}
}

func TestGreetingFastPath(t *testing.T) {
	f := newFixture(t)

	replies := send(t, f, "hola")
	if replies[0] != replyGreeting {
		t.Errorf("expected canned greeting, got %q", replies[0])
	}
	if len(f.client.Calls) != 0 {
		t.Errorf("greeting must not call the model, got %d calls", len(f.client.Calls))
	}
}

func TestTruncatedAnswerRetriesOnce(t *testing.T) {
	f := newFixture(t,
		"El horario de atención es...",
		"El horario de atención es de 8 a 14, de lunes a viernes, en Laprida 450.",
	)

	replies := send(t, f, "¿cuál es el horario de atención?")
	if !strings.Contains(replies[0], "8 a 14") {
		t.Errorf("expected the longer retried answer, got %q", replies[0])
	}
	if len(f.client.Calls) != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", len(f.client.Calls))
	}
	if f.client.Calls[1] == f.client.Calls[0] {
		t.Error("retry prompt must differ from the first prompt")
	}
	if !strings.Contains(f.client.Calls[1], "completa") {
		t.Errorf("retry prompt must ask for the complete answer, got %q", f.client.Calls[1])
	}
}

func TestPromptHistoryExcludesCurrentTurn(t *testing.T) {
	f := newFixture(t,
		"El horario de atención es de 8 a 14.",
		"Los sábados no hay atención al público.",
	)

	first := "¿cuál es el horario de atención?"
	send(t, f, first)
	followUp := "y los sábados?"
	send(t, f, followUp)

	if len(f.client.Histories) != 2 {
		t.Fatalf("expected 2 completion calls, got %d", len(f.client.Histories))
	}
	if len(f.client.Histories[0]) != 0 {
		t.Errorf("first turn must see empty prior history, got %d entries", len(f.client.Histories[0]))
	}
	second := f.client.Histories[1]
	if len(second) == 0 || second[len(second)-1].Role != "assistant" {
		t.Fatalf("follow-up history must end with the assistant turn, got %v", second)
	}
	for _, m := range second {
		if m.Content == followUp {
			t.Error("current user message must not appear in the prior history")
		}
	}
	if second[0].Content != first {
		t.Errorf("follow-up history must start with the first user turn, got %q", second[0].Content)
	}
}

func TestHelpCommand(t *testing.T) {
	f := newFixture(t)
	replies := send(t, f, "/ayuda")
	if !strings.Contains(replies[0], "/misreclamos") {
		t.Errorf("expected command listing, got %q", replies[0])
	}
}

func TestStatusCommandShowsChecklist(t *testing.T) {
	f := newFixture(t,
		`{"type":"alumbrado","description":"poste caído","location":"Av. Mitre 1200"}`,
	)
	send(t, f, "Hay un poste caído en Av. Mitre 1200")

	replies := send(t, f, "/estado")
	if !strings.Contains(replies[0], "pendiente") {
		t.Errorf("expected pending fields in checklist, got %q", replies[0])
	}
	if !strings.Contains(replies[0], "alumbrado") {
		t.Errorf("expected collected type in checklist, got %q", replies[0])
	}
}

func TestStatusCommandWithoutComplaint(t *testing.T) {
	f := newFixture(t)
	replies := send(t, f, "/estado")
	if replies[0] != replyNoComplaintInProgress {
		t.Errorf("expected no-complaint reply, got %q", replies[0])
	}
}

func TestComplaintDetailOwnershipViaCommand(t *testing.T) {
	f := newFixture(t)
	owner, _ := f.store.FindOrCreateCitizen(models.Citizen{Name: "Otra Persona", Phone: "+5493810099999"})
	record, _ := f.store.CreateComplaint(models.Complaint{Type: "cloacas", CitizenID: owner.ID})

	// testPhone does not own the record: same answer as a missing id.
	replies := send(t, f, "/reclamo "+record.ID)
	if replies[0] != replyComplaintNotFound {
		t.Errorf("expected not-found reply for foreign complaint, got %q", replies[0])
	}
	replies = send(t, f, "/reclamo no-such-id")
	if replies[0] != replyComplaintNotFound {
		t.Errorf("expected identical reply for missing id, got %q", replies[0])
	}
}

func TestMyComplaintsCommand(t *testing.T) {
	f := newFixture(t)
	owner, _ := f.store.FindOrCreateCitizen(models.Citizen{Name: "Ana Paz", Phone: testPhone})
	record, _ := f.store.CreateComplaint(models.Complaint{Type: "basura", Location: "Salta 300", CitizenID: owner.ID})

	replies := send(t, f, "/misreclamos")
	if !strings.Contains(replies[0], record.ID) {
		t.Errorf("expected own complaint listed, got %q", replies[0])
	}
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t)
	replies := send(t, f, "/loquesea")
	if replies[0] != replyUnknownCommand {
		t.Errorf("expected unknown-command reply, got %q", replies[0])
	}
}

func TestStrayConfirmCommandDoesNotPersist(t *testing.T) {
	f := newFixture(t)
	replies := send(t, f, "/confirmar")
	if replies[0] != replyNothingToConfirm {
		t.Errorf("expected nothing-to-confirm reply, got %q", replies[0])
	}
	if complaints, _ := f.store.FindComplaintsByPhone(testPhone); len(complaints) != 0 {
		t.Error("stray confirm must not persist anything")
	}
}

func TestConfirmWithIncompleteRecordKeepsGate(t *testing.T) {
	// A session written by an older version can arm the gate over a record
	// with holes; confirming it must name what is missing, not persist.
	tests := []struct {
		name     string
		data     models.ComplaintData
		expected string
	}{
		{
			name:     "missing citizen fields",
			data:     models.ComplaintData{Type: "baches", Description: "pozo", Location: "Muñecas 800"},
			expected: replyMissingCitizenData,
		},
		{
			name: "missing complaint fields",
			data: models.ComplaintData{
				Citizen: models.CitizenData{Name: "Ana Paz", DocumentID: "30111222", Address: "Laprida 120"},
			},
			expected: replyMissingComplaintData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			blob := models.NewSessionBlob()
			blob.State.Mode = models.ModeComplaint
			blob.State.ComplaintInProgress = true
			blob.State.Confirmation = models.ConfirmationAwaiting
			blob.State.Complaint = tt.data
			if err := f.sessions.Put(context.Background(), testPhone, blob); err != nil {
				t.Fatalf("seed session failed: %v", err)
			}

			replies := send(t, f, "confirmar")
			if replies[0] != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, replies[0])
			}
			if !f.state(t).AwaitingConfirmation() {
				t.Error("gate must stay armed on an incomplete record")
			}
			if complaints, _ := f.store.FindComplaintsByPhone(testPhone); len(complaints) != 0 {
				t.Error("incomplete record must not persist")
			}
		})
	}
}

func TestResetCommandDropsSession(t *testing.T) {
	f := newFixture(t,
		`{"type":"alumbrado","description":"poste caído","location":"Av. Mitre 1200"}`,
	)
	send(t, f, "Hay un poste caído en Av. Mitre 1200")

	replies := send(t, f, "/reiniciar")
	if replies[0] != replySessionReset {
		t.Errorf("expected reset reply, got %q", replies[0])
	}
	blob, _ := f.sessions.Get(context.Background(), testPhone)
	if blob != nil {
		t.Error("expected session dropped after /reiniciar")
	}
}

func TestShouldUseRAG(t *testing.T) {
	positive := []string{
		"¿Cuál es el horario de la municipalidad?",
		"donde queda la oficina de rentas",
		"requisitos para habilitar un comercio",
		// Plain statements default to retrieval too.
		"necesito renovar mi licencia de conducir",
		"quiero pagar la tasa municipal",
	}
	for _, msg := range positive {
		if !ShouldUseRAG(msg) {
			t.Errorf("expected retrieval for %q", msg)
		}
	}
	negative := []string{"hola", "buenas tardes", ""}
	for _, msg := range negative {
		if ShouldUseRAG(msg) {
			t.Errorf("unexpected retrieval for %q", msg)
		}
	}
}

func TestLooksTruncated(t *testing.T) {
	truncated := []string{
		"Los requisitos son...",
		"Podés acercarte a Laprida 450, etc.",
		"Atienden lunes, miércoles, entre otros",
		"Los horarios son:",
	}
	for _, s := range truncated {
		if !looksTruncated(s) {
			t.Errorf("expected truncation detected for %q", s)
		}
	}
	complete := []string{
		"El horario de atención es de 8 a 14.",
		"¿Querés que te pase la dirección?",
	}
	for _, s := range complete {
		if looksTruncated(s) {
			t.Errorf("unexpected truncation for %q", s)
		}
	}
}
