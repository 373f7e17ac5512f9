package messaging

import (
	"context"
	"log/slog"
	"time"
)

// MessageHandler processes one conversational turn and returns the ordered
// replies to send back.
type MessageHandler interface {
	HandleMessage(ctx context.Context, userID, text string) ([]string, error)
}

// Router drains a transport's inbound responses, debounces rapid bursts,
// hands each combined turn to the handler, and sends the replies back
// through the same transport.
type Router struct {
	service   Service
	handler   MessageHandler
	debouncer *Debouncer
}

// NewRouter creates a router over the given transport and handler. A
// non-positive debounce window falls back to DefaultDebounceWindow.
func NewRouter(service Service, handler MessageHandler, debounceWindow time.Duration) *Router {
	r := &Router{service: service, handler: handler}
	r.debouncer = NewDebouncer(debounceWindow, r.handleTurn)
	return r
}

// Run consumes inbound responses until the context ends or the transport's
// response channel closes. Receipts are drained and logged.
func (r *Router) Run(ctx context.Context) {
	slog.Info("Router.Run: starting inbound message loop")
	go r.drainReceipts(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Router.Run: context cancelled, flushing pending turns")
			r.debouncer.Stop()
			return
		case resp, ok := <-r.service.Responses():
			if !ok {
				slog.Info("Router.Run: responses channel closed")
				r.debouncer.Stop()
				return
			}
			canonical, err := r.service.ValidateAndCanonicalizeRecipient(resp.From)
			if err != nil {
				slog.Warn("Router.Run: dropping message with invalid sender", "error", err, "from", resp.From)
				continue
			}
			r.debouncer.Add(canonical, resp.Body)
		}
	}
}

// handleTurn runs one combined turn through the handler and sends replies
// in order. Send failures are logged per reply; later replies still go out.
func (r *Router) handleTurn(userID, combined string) {
	ctx := context.Background()
	replies, err := r.handler.HandleMessage(ctx, userID, combined)
	if err != nil {
		slog.Error("Router.handleTurn: handler failed", "error", err, "userID", userID)
		return
	}
	for _, reply := range replies {
		if err := r.service.SendMessage(ctx, userID, reply); err != nil {
			slog.Error("Router.handleTurn: send failed", "error", err, "userID", userID)
		}
	}
}

// drainReceipts consumes receipt events so transports never block on a
// full receipts channel.
func (r *Router) drainReceipts(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case receipt, ok := <-r.service.Receipts():
			if !ok {
				return
			}
			slog.Debug("Router.drainReceipts: receipt", "to", receipt.To, "status", receipt.Status)
		}
	}
}
