package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qatools/qabot/engine"
)

const handledMessagesMaxAge = 1 * time.Hour

// TurnRouter is the engine entry point a dispatcher drives. One call per
// inbound message, returning the ordered replies for that turn.
type TurnRouter interface {
	Dispatch(ctx context.Context, userID, text string) []engine.Reply
}

// Sender posts a single reply to a channel.
type Sender interface {
	SendReply(ctx context.Context, channelID string, reply engine.Reply) error
}

// Dispatcher serializes turns per user and forwards them to the engine.
// Slack delivers events concurrently and redelivers on slow acks, so the
// dispatcher owns both ordering and dedup before the engine sees anything.
type Dispatcher struct {
	sender Sender
	router TurnRouter
	log    *slog.Logger

	// Messages already handled, keyed by channel:timestamp, to drop redeliveries.
	handledMessages   map[string]time.Time
	handledMessagesMu sync.RWMutex

	// Per-user locks so a user's turns run strictly in order.
	userLocks   map[string]*userLockEntry
	userLocksMu sync.Mutex
}

type userLockEntry struct {
	mu       sync.Mutex
	lastUsed time.Time
}

// NewDispatcher creates a new turn dispatcher.
func NewDispatcher(sender Sender, router TurnRouter, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:          sender,
		router:          router,
		log:             log,
		handledMessages: make(map[string]time.Time),
		userLocks:       make(map[string]*userLockEntry),
	}
}

// getUserLock returns the mutex for a given user, creating one if it doesn't exist
func (d *Dispatcher) getUserLock(userID string) *sync.Mutex {
	d.userLocksMu.Lock()
	defer d.userLocksMu.Unlock()

	if entry, exists := d.userLocks[userID]; exists {
		entry.lastUsed = time.Now()
		return &entry.mu
	}

	entry := &userLockEntry{
		lastUsed: time.Now(),
	}
	d.userLocks[userID] = entry
	return &entry.mu
}

// StartCleanup starts a background goroutine to clean up old dedup entries and locks
func (d *Dispatcher) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.cleanup()
			}
		}
	}()
}

func (d *Dispatcher) cleanup() {
	now := time.Now()

	d.handledMessagesMu.Lock()
	for msgKey, timestamp := range d.handledMessages {
		if now.Sub(timestamp) > handledMessagesMaxAge {
			delete(d.handledMessages, msgKey)
		}
	}
	d.handledMessagesMu.Unlock()

	// Delete stale user locks only when not currently held.
	d.userLocksMu.Lock()
	for userID, entry := range d.userLocks {
		if now.Sub(entry.lastUsed) > handledMessagesMaxAge {
			if entry.mu.TryLock() {
				entry.mu.Unlock()
				delete(d.userLocks, userID)
			}
		}
	}
	d.userLocksMu.Unlock()
}

// HasHandled checks if a message was already dispatched
func (d *Dispatcher) HasHandled(messageKey string) bool {
	d.handledMessagesMu.RLock()
	_, handled := d.handledMessages[messageKey]
	d.handledMessagesMu.RUnlock()
	return handled
}

// MarkHandled marks a message as dispatched
func (d *Dispatcher) MarkHandled(messageKey string) {
	d.handledMessagesMu.Lock()
	d.handledMessages[messageKey] = time.Now()
	d.handledMessagesMu.Unlock()
}

// MessageKey builds the dedup key for an inbound message.
func MessageKey(channelID, timestamp string) string {
	return fmt.Sprintf("%s:%s", channelID, timestamp)
}

// DispatchMessage runs one user turn: dedup, lock, route, post replies.
func (d *Dispatcher) DispatchMessage(ctx context.Context, channelID, userID, text, messageKey string) {
	if d.HasHandled(messageKey) {
		EventsDuplicateTotal.Inc()
		d.log.Debug("skipping already handled message", "message_key", messageKey)
		return
	}

	turnID := uuid.New().String()
	startTime := time.Now()

	userLock := d.getUserLock(userID)
	userLock.Lock()
	defer userLock.Unlock()

	// Re-check under the lock: a redelivery may have raced us here.
	if d.HasHandled(messageKey) {
		EventsDuplicateTotal.Inc()
		return
	}
	d.MarkHandled(messageKey)

	d.log.Info("dispatching turn",
		"channel", channelID,
		"user", userID,
		"text", text,
		"message_key", messageKey,
		"turn_id", turnID,
	)

	defer func() {
		TurnDuration.Observe(time.Since(startTime).Seconds())
	}()

	replies := d.router.Dispatch(ctx, userID, text)

	for _, reply := range replies {
		if err := d.sender.SendReply(ctx, channelID, reply); err != nil {
			MessagesPostedTotal.WithLabelValues("error").Inc()
			d.log.Error("failed to post reply", "error", err, "channel", channelID, "turn_id", turnID)
			return
		}
		MessagesPostedTotal.WithLabelValues("success").Inc()
	}

	MessagesProcessedTotal.WithLabelValues("message").Inc()
	d.log.Debug("turn complete", "turn_id", turnID, "replies", len(replies), "duration", time.Since(startTime))
}
