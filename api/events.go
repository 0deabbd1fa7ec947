package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	log15 "github.com/inconshreveable/log15/v3"

	"pulsecheck/checkin"
)

// CheckInService is the slice of the session engine the transport handlers
// need.
type CheckInService interface {
	Launch(ctx context.Context, slackUserID, workspaceID string) (checkin.LaunchResult, error)
	HandleRating(ctx context.Context, slackUserID string, value int) error
	HandleText(ctx context.Context, slackUserID, text string) error
}

// EventsHandler terminates Slack's event and interactivity callbacks and
// feeds them into the session engine.
type EventsHandler struct {
	engine CheckInService
	log    log15.Logger
}

func NewEventsHandler(engine CheckInService, logger log15.Logger) *EventsHandler {
	return &EventsHandler{engine: engine, log: logger}
}

// HandleEvents answers the url_verification challenge and routes direct
// messages to the engine. Non-im traffic and bot echoes are acknowledged
// and dropped.
func (h *EventsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "unable to read request body", http.StatusBadRequest)
		return
	}

	var verification urlVerification
	if err := json.Unmarshal(body, &verification); err == nil && verification.Type == "url_verification" {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(verification.Challenge))
		return
	}

	var event slackEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "invalid slack event format", http.StatusBadRequest)
		return
	}

	e := event.Event
	if e.Type != "message" || e.ChannelType != "im" || e.BotID != "" || e.Text == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.engine.HandleText(r.Context(), e.User, e.Text); err != nil {
		h.log.Error("failed to handle message", "slack_user_id", e.User, "err", err)
	}
	w.WriteHeader(http.StatusOK)
}

// HandleInteractions decodes block_actions payloads and routes rating button
// presses to the engine.
func (h *EventsHandler) HandleInteractions(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "unable to parse form", http.StatusBadRequest)
		return
	}

	var payload interactionPayload
	if err := json.Unmarshal([]byte(r.FormValue("payload")), &payload); err != nil {
		http.Error(w, "invalid interaction payload", http.StatusBadRequest)
		return
	}
	if payload.Type != "block_actions" {
		w.WriteHeader(http.StatusOK)
		return
	}

	for _, action := range payload.Actions {
		if !strings.HasPrefix(action.ActionID, "rating_") {
			continue
		}
		value, err := strconv.Atoi(action.Value)
		if err != nil {
			h.log.Error("non-numeric rating value", "value", action.Value)
			continue
		}
		if err := h.engine.HandleRating(r.Context(), payload.User.ID, value); err != nil {
			h.log.Error("failed to handle rating", "slack_user_id", payload.User.ID, "err", err)
		}
	}
	w.WriteHeader(http.StatusOK)
}
