package whatsapp

import (
	"net/http"
	"time"

	"github.com/jawab-ai/jawab-platform/internal/conversation"
	"github.com/jawab-ai/jawab-platform/internal/observability/metrics"
	"github.com/jawab-ai/jawab-platform/internal/tenancy"
	"github.com/jawab-ai/jawab-platform/pkg/logging"
)

const (
	notConfiguredReply = "I'm sorry, we're not set up yet. Please try again later."
	errorReply         = "I'm sorry, I'm having a moment. Please try again! 🙏"
)

// IncomingMessage is a normalized inbound Twilio WhatsApp payload.
type IncomingMessage struct {
	From        string
	To          string
	Body        string
	MessageSID  string
	ProfileName string
}

// WebhookHandler drives the WhatsApp flow: resolve tenant, continue the
// conversation, generate, persist, reply inline as TwiML.
type WebhookHandler struct {
	resolver      *tenancy.Resolver
	conversations *conversation.Store
	generator     *conversation.Generator
	logger        *logging.Logger
	metrics       *metrics.ChannelMetrics
	authToken     string
	validateSig   bool
	publicBaseURL string
	now           func() time.Time
}

// WebhookConfig wires the handler's collaborators.
type WebhookConfig struct {
	Resolver      *tenancy.Resolver
	Conversations *conversation.Store
	Generator     *conversation.Generator
	Logger        *logging.Logger
	Metrics       *metrics.ChannelMetrics
	AuthToken     string
	ValidateSig   bool
	PublicBaseURL string
	Now           func() time.Time
}

func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &WebhookHandler{
		resolver:      cfg.Resolver,
		conversations: cfg.Conversations,
		generator:     cfg.Generator,
		logger:        cfg.Logger.WithChannel(conversation.ChannelWhatsApp),
		metrics:       cfg.Metrics,
		authToken:     cfg.AuthToken,
		validateSig:   cfg.ValidateSig,
		publicBaseURL: cfg.PublicBaseURL,
		now:           cfg.Now,
	}
}

// Handle processes an inbound Twilio WhatsApp webhook. Every outcome past
// signature validation answers 200 with TwiML so the gateway never
// retry-storms.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		h.metrics.ObserveWebhookLatency(conversation.ChannelWhatsApp, time.Since(start).Seconds())
	}()

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}

	if h.validateSig {
		signature := r.Header.Get("X-Twilio-Signature")
		requestURL := h.publicBaseURL + r.URL.RequestURI()
		if !ValidateSignature(h.authToken, signature, requestURL, r.PostForm) {
			h.logger.Warn("invalid twilio signature", "url", requestURL)
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	incoming := IncomingMessage{
		From:        r.PostFormValue("From"),
		To:          r.PostFormValue("To"),
		Body:        r.PostFormValue("Body"),
		MessageSID:  r.PostFormValue("MessageSid"),
		ProfileName: r.PostFormValue("ProfileName"),
	}
	if incoming.From == "" || incoming.Body == "" {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}

	h.logger.Info("inbound message",
		"from", incoming.From,
		"message_sid", incoming.MessageSID,
	)

	reply := h.process(r, incoming)

	h.metrics.ObserveInbound(conversation.ChannelWhatsApp, "ok")
	writeTwiML(w, MessageTwiML(reply))
}

// process runs resolve, converse, generate, persist. It always returns reply
// text; internal failures degrade to safe replies rather than propagating.
func (h *WebhookHandler) process(r *http.Request, incoming IncomingMessage) string {
	ctx := r.Context()

	tenant, fellBack, err := h.resolver.ResolveWhatsApp(ctx, incoming.To)
	if err != nil {
		h.logger.Error("tenant resolution failed", "error", err)
		return errorReply
	}
	if tenant == nil {
		h.logger.Warn("no tenants configured, sending static reply")
		return notConfiguredReply
	}
	if fellBack {
		h.metrics.ObserveTenantFallback(conversation.ChannelWhatsApp)
	}
	ctx = tenancy.WithTenantID(ctx, tenant.ID)

	intent := h.generator.ClassifyIntent(ctx, incoming.Body)
	h.logger.Info("intent detected",
		"tenant_id", tenant.ID,
		"intent", intent.Intent,
		"confidence", intent.Confidence,
	)

	customerID := tenancy.NormalizeWhatsApp(incoming.From)
	conv, err := h.conversations.GetOrCreate(ctx, tenant.ID, customerID, conversation.ChannelWhatsApp, incoming.ProfileName)
	if err != nil {
		h.logger.Error("conversation lookup failed", "error", err, "tenant_id", tenant.ID)
		return errorReply
	}

	prompt := conversation.BuildSystemPrompt(tenant, conversation.ChannelWhatsApp, h.now())

	genStart := time.Now()
	reply := h.generator.Generate(ctx, prompt, conv.Messages, incoming.Body)
	h.metrics.ObserveGenerateLatency(conversation.ChannelWhatsApp, time.Since(genStart).Seconds())

	// persistence failures are swallowed: the reply is already committed to
	// the channel once we return it
	now := h.now().UTC()
	err = h.conversations.Append(ctx, tenant.ID, conv.ID, []conversation.Message{
		{Role: conversation.RoleUser, Content: incoming.Body, Timestamp: now},
		{Role: conversation.RoleModel, Content: reply, Timestamp: now},
	}, intent.Intent)
	if err != nil {
		h.logger.Error("failed to persist exchange", "error", err, "conversation_id", conv.ID)
	}

	return reply
}

func writeTwiML(w http.ResponseWriter, twiml string) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(twiml))
}
