package handler

import (
	"net/http"
	"strings"

	"ride-coordinator/internal/domain/chat"
)

type messageRequest struct {
	Body string `json:"body"`
}

func (handler *CoordinatorHTTPHandler) handleConversations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := handler.withReqID(r)
	defer cancel()

	_, c, ok := handler.session(ctx, w, r)
	if !ok {
		return
	}
	conversations, err := c.Conversations(ctx)
	if err != nil {
		handler.opError(ctx, w, err)
		return
	}
	if conversations == nil {
		conversations = []chat.Conversation{}
	}
	handler.jsonResponse(ctx, w, http.StatusOK, map[string]any{"conversations": conversations})
}

func (handler *CoordinatorHTTPHandler) handleMessages(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := handler.withReqID(r)
	defer cancel()

	_, c, ok := handler.session(ctx, w, r)
	if !ok {
		return
	}
	messages, err := c.Messages(ctx, strings.TrimSpace(r.PathValue("conversation_id")))
	if err != nil {
		handler.opError(ctx, w, err)
		return
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	handler.jsonResponse(ctx, w, http.StatusOK, map[string]any{"messages": messages})
}

func (handler *CoordinatorHTTPHandler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := handler.withReqID(r)
	defer cancel()

	_, c, ok := handler.session(ctx, w, r)
	if !ok {
		return
	}
	var req messageRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}

	sent, err := c.SendMessage(ctx, strings.TrimSpace(r.PathValue("conversation_id")), req.Body)
	if err != nil {
		handler.opError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusCreated, sent)
}

func (handler *CoordinatorHTTPHandler) handleNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := handler.withReqID(r)
	defer cancel()

	_, c, ok := handler.session(ctx, w, r)
	if !ok {
		return
	}
	notifications, err := c.Notifications(ctx)
	if err != nil {
		handler.opError(ctx, w, err)
		return
	}
	if notifications == nil {
		notifications = []chat.Notification{}
	}
	handler.jsonResponse(ctx, w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (handler *CoordinatorHTTPHandler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := handler.withReqID(r)
	defer cancel()

	_, c, ok := handler.session(ctx, w, r)
	if !ok {
		return
	}
	if err := c.MarkNotificationRead(ctx, strings.TrimSpace(r.PathValue("notification_id"))); err != nil {
		handler.opError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
