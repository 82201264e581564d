package meta

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/jawab-ai/jawab-platform/internal/conversation"
	"github.com/jawab-ai/jawab-platform/internal/observability/metrics"
	"github.com/jawab-ai/jawab-platform/internal/tenancy"
	"github.com/jawab-ai/jawab-platform/pkg/logging"
)

type graphSender interface {
	SendDirectMessage(ctx context.Context, recipientID, text, platform string) (string, error)
	ReplyToComment(ctx context.Context, commentID, text string) (string, error)
	SendTypingIndicator(ctx context.Context, recipientID, action string) error
}

// WebhookHandler drives the Meta flow for DMs and public comments. Comments
// are answered with a public reply under the comment; DMs get a typing
// indicator around generation and a direct send.
type WebhookHandler struct {
	resolver      *tenancy.Resolver
	conversations *conversation.Store
	generator     *conversation.Generator
	client        graphSender
	logger        *logging.Logger
	metrics       *metrics.ChannelMetrics
	verifyToken   string
	appSecret     string
	now           func() time.Time
}

// WebhookConfig wires the handler's collaborators.
type WebhookConfig struct {
	Resolver      *tenancy.Resolver
	Conversations *conversation.Store
	Generator     *conversation.Generator
	Client        graphSender
	Logger        *logging.Logger
	Metrics       *metrics.ChannelMetrics
	VerifyToken   string
	AppSecret     string
	Now           func() time.Time
}

func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.VerifyToken == "" {
		cfg.VerifyToken = "jawab_verify_token"
	}
	return &WebhookHandler{
		resolver:      cfg.Resolver,
		conversations: cfg.Conversations,
		generator:     cfg.Generator,
		client:        cfg.Client,
		logger:        cfg.Logger.WithChannel("meta"),
		metrics:       cfg.Metrics,
		verifyToken:   cfg.VerifyToken,
		appSecret:     cfg.AppSecret,
		now:           cfg.Now,
	}
}

// HandleVerify answers Meta's GET subscription handshake by echoing the
// challenge when the verify token matches.
func (h *WebhookHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	h.logger.Warn("webhook verification failed", "mode", q.Get("hub.mode"))
	http.Error(w, "verification failed", http.StatusForbidden)
}

// HandleEvents processes a POST batch of webhook events. Individual message
// failures are logged and skipped; the webhook itself always acknowledges
// with 200 so Meta does not retry-storm.
func (h *WebhookHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		h.metrics.ObserveWebhookLatency("meta", time.Since(start).Seconds())
	}()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if h.appSecret != "" {
		if !ValidateSignature(h.appSecret, r.Header.Get("X-Hub-Signature-256"), body) {
			h.logger.Warn("invalid webhook signature")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	for _, entry := range payload.Entry {
		pageID := entry.ID
		messages := ParsePayload(WebhookPayload{Object: payload.Object, Entry: []WebhookEntry{entry}})
		for _, msg := range messages {
			if err := h.processMessage(ctx, pageID, msg); err != nil {
				h.logger.Error("failed to process message",
					"error", err,
					"platform", msg.Platform,
					"sender_id", msg.SenderID,
				)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *WebhookHandler) processMessage(ctx context.Context, pageID string, msg ParsedMessage) error {
	h.metrics.ObserveInbound(msg.Platform, "ok")

	tenant, fellBack, err := h.resolver.ResolveMeta(ctx, pageID)
	if err != nil {
		return err
	}
	if tenant == nil {
		h.logger.Warn("no tenant for page, skipping message", "page_id", pageID)
		return nil
	}
	if fellBack {
		h.metrics.ObserveTenantFallback(msg.Platform)
	}
	ctx = tenancy.WithTenantID(ctx, tenant.ID)

	if !msg.IsPublic {
		if err := h.client.SendTypingIndicator(ctx, msg.SenderID, "typing_on"); err != nil {
			h.logger.Warn("typing indicator failed", "error", err)
		}
	}

	intent := h.generator.ClassifyIntent(ctx, msg.Text)

	conv, err := h.conversations.GetOrCreate(ctx, tenant.ID, msg.SenderID, msg.Platform, msg.SenderName)
	if err != nil {
		return err
	}

	prompt := conversation.BuildSystemPrompt(tenant, msg.Platform, h.now())

	genStart := time.Now()
	reply := h.generator.Generate(ctx, prompt, conv.Messages, msg.Text)
	h.metrics.ObserveGenerateLatency(msg.Platform, time.Since(genStart).Seconds())

	now := h.now().UTC()
	if err := h.conversations.Append(ctx, tenant.ID, conv.ID, []conversation.Message{
		{Role: conversation.RoleUser, Content: msg.Text, Timestamp: now},
		{Role: conversation.RoleModel, Content: reply, Timestamp: now},
	}, intent.Intent); err != nil {
		h.logger.Error("failed to persist exchange", "error", err, "conversation_id", conv.ID)
	}

	if msg.IsPublic && msg.CommentID != "" {
		if _, err := h.client.ReplyToComment(ctx, msg.CommentID, reply); err != nil {
			h.metrics.ObserveOutbound(msg.Platform, "error")
			return err
		}
	} else {
		if _, err := h.client.SendDirectMessage(ctx, msg.SenderID, reply, msg.Platform); err != nil {
			h.metrics.ObserveOutbound(msg.Platform, "error")
			return err
		}
		if err := h.client.SendTypingIndicator(ctx, msg.SenderID, "typing_off"); err != nil {
			h.logger.Warn("typing indicator failed", "error", err)
		}
	}
	h.metrics.ObserveOutbound(msg.Platform, "sent")
	return nil
}
