package bot

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// EventHandler receives Slack events in socket or HTTP mode and hands each
// user message to the dispatcher. Button clicks and slash commands are
// normalized to plain text before dispatch, so the engine sees one input
// shape regardless of how the user typed it.
type EventHandler struct {
	client      *Client
	dispatcher  *Dispatcher
	log         *slog.Logger
	botUserID   string
	shutdownCtx context.Context

	draining atomic.Bool
	inflight sync.WaitGroup

	// Event envelope IDs we've already seen, to drop Slack redeliveries early.
	seenEvents   map[string]time.Time
	seenEventsMu sync.Mutex
}

// NewEventHandler creates a new event handler
func NewEventHandler(
	client *Client,
	dispatcher *Dispatcher,
	log *slog.Logger,
	botUserID string,
	shutdownCtx context.Context,
) *EventHandler {
	return &EventHandler{
		client:      client,
		dispatcher:  dispatcher,
		log:         log,
		botUserID:   botUserID,
		shutdownCtx: shutdownCtx,
		seenEvents:  make(map[string]time.Time),
	}
}

// StartCleanup starts a background goroutine to clean up old seen-event entries
func (h *EventHandler) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.cleanupSeenEvents()
			}
		}
	}()
}

func (h *EventHandler) cleanupSeenEvents() {
	now := time.Now()
	h.seenEventsMu.Lock()
	for id, ts := range h.seenEvents {
		if now.Sub(ts) > handledMessagesMaxAge {
			delete(h.seenEvents, id)
		}
	}
	h.seenEventsMu.Unlock()
}

// markSeen records an event ID and reports whether it was new.
func (h *EventHandler) markSeen(eventID string) bool {
	if eventID == "" {
		return true
	}
	h.seenEventsMu.Lock()
	defer h.seenEventsMu.Unlock()
	if _, ok := h.seenEvents[eventID]; ok {
		return false
	}
	h.seenEvents[eventID] = time.Now()
	return true
}

// StopAcceptingNew stops accepting new events and returns a function that
// blocks until in-flight turns have finished.
func (h *EventHandler) StopAcceptingNew() func() {
	h.draining.Store(true)
	return h.inflight.Wait
}

// dispatch runs one turn on a new goroutine tracked by the in-flight group.
func (h *EventHandler) dispatch(channelID, userID, text, messageKey string) {
	if h.draining.Load() {
		MessagesIgnoredTotal.WithLabelValues("draining").Inc()
		return
	}
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		h.dispatcher.DispatchMessage(h.shutdownCtx, channelID, userID, text, messageKey)
	}()
}

// HandleSocketMode processes events from a Socket Mode connection until ctx is done.
func (h *EventHandler) HandleSocketMode(ctx context.Context, client *socketmode.Client) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-client.Events:
			if !ok {
				return nil
			}
			switch evt.Type {
			case socketmode.EventTypeConnecting:
				h.log.Info("connecting to slack via socket mode")
			case socketmode.EventTypeConnectionError:
				h.log.Warn("socket mode connection error", "error", evt.Data)
			case socketmode.EventTypeConnected:
				h.log.Info("connected to slack via socket mode")
			case socketmode.EventTypeEventsAPI:
				eventsAPIEvent, castOK := evt.Data.(slackevents.EventsAPIEvent)
				if !castOK {
					continue
				}
				client.Ack(*evt.Request)
				h.handleEventsAPI(eventsAPIEvent, eventsAPIEvent.InnerEvent.Type)
			case socketmode.EventTypeSlashCommand:
				cmd, castOK := evt.Data.(slack.SlashCommand)
				if !castOK {
					continue
				}
				client.Ack(*evt.Request)
				h.handleSlashCommand(cmd)
			case socketmode.EventTypeInteractive:
				callback, castOK := evt.Data.(slack.InteractionCallback)
				if !castOK {
					continue
				}
				client.Ack(*evt.Request)
				h.handleInteraction(callback)
			}
		}
	}
}

// handleEventsAPI routes an Events API callback to the dispatcher.
func (h *EventHandler) handleEventsAPI(event slackevents.EventsAPIEvent, innerType string) {
	EventsReceivedTotal.WithLabelValues(string(event.Type), innerType).Inc()

	if event.Type != slackevents.CallbackEvent {
		return
	}

	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		h.handleMessageEvent(ev)
	case *slackevents.AppMentionEvent:
		text := h.client.RemoveBotMention(ev.Text)
		h.dispatch(ev.Channel, ev.User, text, MessageKey(ev.Channel, ev.TimeStamp))
	}
}

// handleMessageEvent dispatches direct messages. The bot is a DM assistant,
// so channel chatter without a mention is ignored.
func (h *EventHandler) handleMessageEvent(ev *slackevents.MessageEvent) {
	// Ignore our own messages and other bots
	if ev.BotID != "" || ev.User == "" || ev.User == h.botUserID {
		MessagesIgnoredTotal.WithLabelValues("bot_message").Inc()
		return
	}
	// Ignore edits, deletions and other subtypes
	if ev.SubType != "" {
		MessagesIgnoredTotal.WithLabelValues("subtype").Inc()
		return
	}

	isDM := ev.ChannelType == "im"
	text := ev.Text
	if !isDM {
		if !h.client.IsBotMentioned(text) {
			MessagesIgnoredTotal.WithLabelValues("channel_no_mention").Inc()
			return
		}
		text = h.client.RemoveBotMention(text)
	}

	h.dispatch(ev.Channel, ev.User, text, MessageKey(ev.Channel, ev.TimeStamp))
}

// handleSlashCommand forwards a slash command as plain text input.
func (h *EventHandler) handleSlashCommand(cmd slack.SlashCommand) {
	EventsReceivedTotal.WithLabelValues("slash_command", cmd.Command).Inc()

	text := cmd.Command
	if cmd.Text != "" {
		text += " " + cmd.Text
	}
	h.dispatch(cmd.ChannelID, cmd.UserID, text, MessageKey(cmd.ChannelID, cmd.TriggerID))
}

// handleInteraction turns a keyboard button click into the button's label.
func (h *EventHandler) handleInteraction(callback slack.InteractionCallback) {
	EventsReceivedTotal.WithLabelValues("interactive", string(callback.Type)).Inc()

	if callback.Type != slack.InteractionTypeBlockActions {
		return
	}

	for _, action := range callback.ActionCallback.BlockActions {
		if action.Value == "" {
			continue
		}
		key := MessageKey(callback.Channel.ID, callback.ActionTs)
		h.dispatch(callback.Channel.ID, callback.User.ID, action.Value, key)
		// One button per click; ignore any extra actions in the payload.
		return
	}
}

// HandleHTTP processes an Events API request in HTTP mode.
func (h *EventHandler) HandleHTTP(w http.ResponseWriter, r *http.Request, signingSecret string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if !VerifySlackSignature(r, body, signingSecret) {
		h.log.Warn("invalid slack signature", "path", r.URL.Path)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		http.Error(w, "failed to parse event", http.StatusBadRequest)
		return
	}

	if event.Type == slackevents.URLVerification {
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			http.Error(w, "failed to parse challenge", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		if _, err := w.Write([]byte(challenge.Challenge)); err != nil {
			h.log.Error("failed to write challenge response", "error", err)
		}
		return
	}

	if cb, ok := event.Data.(*slackevents.EventsAPICallbackEvent); ok {
		if !h.markSeen(cb.EventID) {
			EventsDuplicateTotal.Inc()
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	// Ack immediately; Slack redelivers on slow responses.
	w.WriteHeader(http.StatusOK)
	h.handleEventsAPI(event, event.InnerEvent.Type)
}

// HandleInteractionHTTP processes a block actions request in HTTP mode.
// Slack posts the payload as a form field.
func (h *EventHandler) HandleInteractionHTTP(w http.ResponseWriter, r *http.Request, signingSecret string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if !VerifySlackSignature(r, body, signingSecret) {
		h.log.Warn("invalid slack signature", "path", r.URL.Path)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	var callback slack.InteractionCallback
	if err := json.Unmarshal([]byte(values.Get("payload")), &callback); err != nil {
		http.Error(w, "failed to parse payload", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	h.handleInteraction(callback)
}

// HandleSlashCommandHTTP processes a slash command request in HTTP mode.
func (h *EventHandler) HandleSlashCommandHTTP(w http.ResponseWriter, r *http.Request, signingSecret string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if !VerifySlackSignature(r, body, signingSecret) {
		h.log.Warn("invalid slack signature", "path", r.URL.Path)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	cmd := slack.SlashCommand{
		Command:   values.Get("command"),
		Text:      values.Get("text"),
		ChannelID: values.Get("channel_id"),
		UserID:    values.Get("user_id"),
		TriggerID: values.Get("trigger_id"),
	}

	w.WriteHeader(http.StatusOK)
	h.handleSlashCommand(cmd)
}
