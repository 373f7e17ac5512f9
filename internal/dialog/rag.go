package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Luks-code/luna-sub000/internal/classify"
	"github.com/Luks-code/luna-sub000/internal/models"
)

// continuationThreshold is the message length under which a query is
// treated as a follow-up and enriched with the previous user message.
const continuationThreshold = 30

// DefaultTopK is the passage count requested from the searcher.
const DefaultTopK = 4

// resumeReminderMaxAnswerLen is the answer length above which the
// post-detour complaint reminder is dropped.
const resumeReminderMaxAnswerLen = 280

// ShouldUseRAG reports whether a message warrants a retrieval pass before
// generation. Retrieval is the default: only empty messages and exact-match
// greetings skip it, trusting generation to ignore irrelevant passages.
func ShouldUseRAG(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return !classify.IsGreeting(text)
}

// retrievalQuery builds the search query for a message. Short messages
// are usually follow-ups ("y los sábados?"), so the previous user message
// is prepended for context.
func retrievalQuery(blob *models.SessionBlob, text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) >= continuationThreshold {
		return trimmed
	}
	prev := blob.LastUserMessage(true)
	if prev == "" {
		return trimmed
	}
	return prev + " " + trimmed
}

// generateWithRAG answers an informational query grounded on retrieved
// passages. Retrieval failure or an empty result degrades to a plain
// generation rather than failing the turn.
func (o *Orchestrator) generateWithRAG(ctx context.Context, blob *models.SessionBlob, text string) string {
	query := retrievalQuery(blob, text)
	passages, err := o.searcher.Search(ctx, query, o.topK)
	if err != nil {
		slog.Warn("Orchestrator.generateWithRAG: retrieval failed, answering without documents", "error", err)
		passages = nil
	}
	passages = o.reranker.Rerank(passages)

	if len(passages) == 0 {
		return o.generate(ctx, personaSystemPrompt, blob, text)
	}

	var b strings.Builder
	b.WriteString(ragSystemPrompt)
	b.WriteString("\n\nDocumentos:\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, p.Source, p.Text)
	}
	return o.generate(ctx, b.String(), blob, text)
}

// generate runs a completion with history and applies the truncation
// retry: a reply that looks cut off gets one re-invocation with an explicit
// complete-the-answer instruction, keeping the longer of the two answers.
// Failures return the apology fallback.
func (o *Orchestrator) generate(ctx context.Context, system string, blob *models.SessionBlob, text string) string {
	history := priorHistory(blob, text)
	answer, err := o.genai.GenerateWithHistory(ctx, system, history, text)
	if err != nil {
		slog.Error("Orchestrator.generate: completion failed", "error", err)
		return replyApologyFallback
	}
	if looksTruncated(answer) {
		slog.Debug("Orchestrator.generate: reply looks truncated, retrying once")
		retry, err := o.genai.GenerateWithHistory(ctx, system, history, text+"\n\n"+truncationRetryInstruction)
		if err == nil && len(retry) > len(answer) {
			answer = retry
		}
	}
	return answer
}

// priorHistory returns the session history excluding the current turn's
// user message, which the completion layer appends itself.
func priorHistory(blob *models.SessionBlob, text string) []models.ConversationMessage {
	h := blob.MessageHistory
	if n := len(h); n > 0 && h[n-1].Role == "user" && h[n-1].Content == text {
		return h[:n-1]
	}
	return h
}

// looksTruncated reports whether a reply appears to be cut off: trailing
// ellipsis, a dangling "etc.", or a promise of details that never arrive.
func looksTruncated(answer string) bool {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return false
	}
	for _, suffix := range []string{"...", "…", "etc.", "etc", "entre otros", "entre otras", ":", ","} {
		if strings.HasSuffix(trimmed, suffix) {
			return true
		}
	}
	lower := strings.ToLower(trimmed)
	for _, promise := range []string{"a continuación", "los siguientes requisitos", "las siguientes opciones"} {
		if strings.Contains(lower, promise) && !strings.Contains(trimmed, "\n") {
			return true
		}
	}
	return false
}
