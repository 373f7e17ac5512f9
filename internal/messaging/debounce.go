package messaging

import (
	"strings"
	"sync"
	"time"
)

// DefaultDebounceWindow is the quiet period waited before a user's rapid
// message burst is delivered as one combined turn.
const DefaultDebounceWindow = 2 * time.Second

// Debouncer coalesces rapid consecutive messages from the same user into
// a single newline-joined message, preserving arrival order. Each new
// message restarts the quiet-period timer for that user.
type Debouncer struct {
	window time.Duration
	handle func(userID, combined string)

	mu      sync.Mutex
	pending map[string]*pendingBatch
}

type pendingBatch struct {
	texts []string
	timer *time.Timer
}

// NewDebouncer creates a debouncer that calls handle with the combined
// message once a user has been quiet for the given window. A non-positive
// window falls back to DefaultDebounceWindow.
func NewDebouncer(window time.Duration, handle func(userID, combined string)) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{
		window:  window,
		handle:  handle,
		pending: make(map[string]*pendingBatch),
	}
}

// Add queues a message for the user and restarts their quiet-period timer.
func (d *Debouncer) Add(userID, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if batch, ok := d.pending[userID]; ok {
		batch.texts = append(batch.texts, text)
		batch.timer.Reset(d.window)
		return
	}
	batch := &pendingBatch{texts: []string{text}}
	batch.timer = time.AfterFunc(d.window, func() { d.flush(userID) })
	d.pending[userID] = batch
}

// flush delivers the user's queued messages as one combined turn.
func (d *Debouncer) flush(userID string) {
	d.mu.Lock()
	batch, ok := d.pending[userID]
	if !ok {
		d.mu.Unlock()
		return
	}
	delete(d.pending, userID)
	d.mu.Unlock()

	d.handle(userID, strings.Join(batch.texts, "\n"))
}

// Stop cancels all timers and delivers every pending batch immediately.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	users := make([]string, 0, len(d.pending))
	for userID, batch := range d.pending {
		batch.timer.Stop()
		users = append(users, userID)
	}
	d.mu.Unlock()

	for _, userID := range users {
		d.flush(userID)
	}
}
