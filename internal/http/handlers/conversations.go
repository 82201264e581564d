package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jawab-ai/jawab-platform/internal/conversation"
	"github.com/jawab-ai/jawab-platform/internal/tenancy"
	"github.com/jawab-ai/jawab-platform/pkg/logging"
)

type whatsAppSender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

type metaDMSender interface {
	SendDirectMessage(ctx context.Context, recipientID, text, platform string) (string, error)
}

// ConversationsHandler serves the dashboard's conversation views and the
// human takeover flow. A takeover message is delivered on the customer's
// channel and recorded in the transcript with the conversation flipped to
// human handling.
type ConversationsHandler struct {
	conversations *conversation.Store
	tenants       *tenancy.Store
	whatsapp      whatsAppSender
	meta          metaDMSender
	logger        *logging.Logger
	now           func() time.Time
}

// ConversationsConfig wires the handler's collaborators. WhatsApp and Meta
// senders may be nil when that channel is not configured; takeover on that
// channel then fails with 503.
type ConversationsConfig struct {
	Conversations *conversation.Store
	Tenants       *tenancy.Store
	WhatsApp      whatsAppSender
	Meta          metaDMSender
	Logger        *logging.Logger
	Now           func() time.Time
}

// NewConversationsHandler creates the conversations handler.
func NewConversationsHandler(cfg ConversationsConfig) *ConversationsHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ConversationsHandler{
		conversations: cfg.Conversations,
		tenants:       cfg.Tenants,
		whatsapp:      cfg.WhatsApp,
		meta:          cfg.Meta,
		logger:        cfg.Logger,
		now:           cfg.Now,
	}
}

// List returns a tenant's conversations, most recent first.
// GET /api/tenants/{tenantID}/conversations?limit=N
func (h *ConversationsHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	conversations, err := h.conversations.List(r.Context(), tenantID, limit)
	if err != nil {
		h.logger.Error("failed to list conversations", "error", err, "tenant_id", tenantID)
		writeError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

// Get returns one conversation with its transcript window.
// GET /api/tenants/{tenantID}/conversations/{conversationID}
func (h *ConversationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	conversationID := chi.URLParam(r, "conversationID")

	conv, err := h.conversations.Get(r.Context(), tenantID, conversationID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	if conv == nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// UpdateStatus transitions a conversation's status.
// PATCH /api/tenants/{tenantID}/conversations/{conversationID}/status
func (h *ConversationsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	conversationID := chi.URLParam(r, "conversationID")

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	switch req.Status {
	case conversation.StatusActive, conversation.StatusResolved, conversation.StatusEscalated:
	default:
		writeError(w, http.StatusBadRequest, "unknown status "+req.Status)
		return
	}

	if err := h.conversations.UpdateStatus(r.Context(), tenantID, conversationID, req.Status); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

// SendRequest is the takeover message payload.
type SendRequest struct {
	Message   string `json:"message"`
	AgentName string `json:"agent_name,omitempty"`
}

// Send delivers a human agent's message on the conversation's channel and
// marks the conversation human-handled.
// POST /api/tenants/{tenantID}/conversations/{conversationID}/send
func (h *ConversationsHandler) Send(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	conversationID := chi.URLParam(r, "conversationID")

	var req SendRequest
	if err := decodeJSON(r, &req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx := r.Context()
	conv, err := h.conversations.Get(ctx, tenantID, conversationID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	if conv == nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	if err := h.deliver(ctx, conv, req.Message); err != nil {
		h.logger.Error("takeover delivery failed",
			"error", err,
			"conversation_id", conversationID,
			"channel", conv.Channel,
		)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if err := h.conversations.MarkHumanHandled(ctx, tenantID, conversationID, conversation.Message{
		Role:      conversation.RoleModel,
		Content:   req.Message,
		Timestamp: h.now().UTC(),
	}); err != nil {
		h.logger.Error("failed to record takeover message", "error", err, "conversation_id", conversationID)
	}

	h.logger.Info("human takeover message sent",
		"conversation_id", conversationID,
		"channel", conv.Channel,
		"agent", req.AgentName,
	)
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *ConversationsHandler) deliver(ctx context.Context, conv *conversation.Conversation, message string) error {
	switch conv.Channel {
	case conversation.ChannelWhatsApp:
		if h.whatsapp == nil {
			return fmt.Errorf("whatsapp sending is not configured")
		}
		_, err := h.whatsapp.Send(ctx, conv.CustomerID, message)
		return err
	case conversation.ChannelMessenger, conversation.ChannelInstagramDM:
		if h.meta == nil {
			return fmt.Errorf("meta sending is not configured")
		}
		_, err := h.meta.SendDirectMessage(ctx, conv.CustomerID, message, conv.Channel)
		return err
	case conversation.ChannelInstagramComment, conversation.ChannelFacebookComment:
		// The comment thread is gone by takeover time; route the human reply
		// to the commenter's DMs instead.
		if h.meta == nil {
			return fmt.Errorf("meta sending is not configured")
		}
		platform := conversation.ChannelMessenger
		if conv.Channel == conversation.ChannelInstagramComment {
			platform = conversation.ChannelInstagramDM
		}
		_, err := h.meta.SendDirectMessage(ctx, conv.CustomerID, message, platform)
		return err
	default:
		return fmt.Errorf("takeover is not supported on channel %q", conv.Channel)
	}
}
