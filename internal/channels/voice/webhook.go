package voice

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jawab-ai/jawab-platform/internal/conversation"
	"github.com/jawab-ai/jawab-platform/internal/observability/metrics"
	"github.com/jawab-ai/jawab-platform/internal/tenancy"
	"github.com/jawab-ai/jawab-platform/pkg/logging"
)

const (
	notConfiguredSay = "Sorry, this number is not configured. Goodbye."
	errorSayArabic   = "عذراً، حصل خطأ. خليني أحولك لأحد من الفريق."
)

type tenantStore interface {
	Get(ctx context.Context, id string) (*tenancy.Tenant, error)
}

// WebhookHandler drives the voice call state machine: a first invocation
// without speech greets the caller, later invocations carry speech or DTMF
// digits, and an exit phrase hangs up.
type WebhookHandler struct {
	resolver      *tenancy.Resolver
	tenants       tenantStore
	conversations *conversation.Store
	sessions      *conversation.VoiceSessionStore
	generator     *conversation.Generator
	logger        *logging.Logger
	metrics       *metrics.ChannelMetrics
	actionPath    string
	gatherTimeout int
	defaultLang   string
	now           func() time.Time
}

// WebhookConfig wires the handler's collaborators.
type WebhookConfig struct {
	Resolver      *tenancy.Resolver
	Tenants       tenantStore
	Conversations *conversation.Store
	Sessions      *conversation.VoiceSessionStore
	Generator     *conversation.Generator
	Logger        *logging.Logger
	Metrics       *metrics.ChannelMetrics
	ActionPath    string // webhook path Twilio posts subsequent turns to
	GatherTimeout int
	DefaultLang   string
	Now           func() time.Time
}

func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ActionPath == "" {
		cfg.ActionPath = "/webhooks/voice"
	}
	if cfg.DefaultLang == "" {
		cfg.DefaultLang = "ar"
	}
	return &WebhookHandler{
		resolver:      cfg.Resolver,
		tenants:       cfg.Tenants,
		conversations: cfg.Conversations,
		sessions:      cfg.Sessions,
		generator:     cfg.Generator,
		logger:        cfg.Logger.WithChannel(conversation.ChannelVoice),
		metrics:       cfg.Metrics,
		actionPath:    cfg.ActionPath,
		gatherTimeout: cfg.GatherTimeout,
		defaultLang:   cfg.DefaultLang,
		now:           cfg.Now,
	}
}

// Handle processes one Twilio voice webhook invocation. Always answers 200
// with TwiML; failures degrade to an apology plus hangup.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		h.metrics.ObserveWebhookLatency(conversation.ChannelVoice, time.Since(start).Seconds())
	}()

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}

	callSID := r.PostFormValue("CallSid")
	from := r.PostFormValue("From")
	to := r.PostFormValue("To")
	callStatus := r.PostFormValue("CallStatus")
	speech := r.PostFormValue("SpeechResult")
	digits := r.PostFormValue("Digits")

	h.logger.Info("inbound call event",
		"call_sid", callSID,
		"from", from,
		"status", callStatus,
	)
	h.metrics.ObserveInbound(conversation.ChannelVoice, "ok")

	ctx := r.Context()

	// terminal status callbacks evict the session
	switch callStatus {
	case "completed", "failed", "busy", "no-answer", "canceled":
		if err := h.sessions.Delete(ctx, callSID); err != nil {
			h.logger.Warn("failed to evict call session", "error", err, "call_sid", callSID)
		}
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Response></Response>`))
		return
	}

	var twiml string
	if speech == "" && digits == "" {
		twiml = h.handleNewCall(ctx, callSID, from, to)
	} else {
		userInput := speech
		if userInput == "" {
			userInput = "Pressed " + digits
		}
		twiml = h.handleTurn(ctx, callSID, from, to, userInput)
	}

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(twiml))
}

// handleNewCall greets the caller and initializes both the durable
// conversation and the per-call session.
func (h *WebhookHandler) handleNewCall(ctx context.Context, callSID, from, to string) string {
	tenant, fellBack, err := h.resolver.ResolveVoice(ctx, to)
	if err != nil {
		h.logger.Error("tenant resolution failed", "error", err, "call_sid", callSID)
		return HangupTwiML(errorSayArabic, "ar")
	}
	if tenant == nil {
		h.logger.Warn("no tenants configured, rejecting call", "call_sid", callSID)
		return HangupTwiML(notConfiguredSay, "en")
	}
	if fellBack {
		h.metrics.ObserveTenantFallback(conversation.ChannelVoice)
	}
	ctx = tenancy.WithTenantID(ctx, tenant.ID)

	session := &conversation.VoiceSession{
		CallID:       callSID,
		TenantID:     tenant.ID,
		CallerPhone:  from,
		DialedNumber: to,
		Language:     h.defaultLang,
		StartedAt:    h.now().UTC(),
	}

	conv, err := h.conversations.GetOrCreate(ctx, tenant.ID, from, conversation.ChannelVoice, "")
	if err != nil {
		h.logger.Error("conversation creation failed", "error", err, "call_sid", callSID)
	} else {
		session.ConversationID = conv.ID
	}

	if err := h.sessions.Save(ctx, session); err != nil {
		h.logger.Error("failed to save call session", "error", err, "call_sid", callSID)
	}

	greeting := h.greeting(tenant)
	return GatherTwiML(greeting, h.defaultLang, h.actionPath, h.gatherTimeout)
}

func (h *WebhookHandler) greeting(tenant *tenancy.Tenant) string {
	if h.defaultLang == "en" {
		return fmt.Sprintf("Hello! Welcome to %s. How can I help you today?", tenant.Name)
	}
	return fmt.Sprintf("مرحباً! أهلاً بك في %s. كيف أقدر أساعدك اليوم؟", tenant.Name)
}

// handleTurn runs one speech exchange: recover session if lost, generate a
// reply, persist, then either keep gathering or hang up.
func (h *WebhookHandler) handleTurn(ctx context.Context, callSID, from, to, userInput string) string {
	session, err := h.sessions.Get(ctx, callSID)
	if err != nil {
		h.logger.Error("session lookup failed", "error", err, "call_sid", callSID)
	}
	if session == nil {
		// state was lost (restart or expiry): re-resolve from the dialed
		// number instead of failing the call
		session = h.recoverSession(ctx, callSID, from, to)
	}

	tenant := h.tenantFor(ctx, session)
	if tenant == nil {
		h.logger.Error("no tenant available for call", "call_sid", callSID)
		return HangupTwiML("Sorry, an error occurred. Goodbye.", "en")
	}

	prompt := conversation.BuildSystemPrompt(tenant, conversation.ChannelVoice, h.now())

	genStart := time.Now()
	reply := h.generator.Generate(ctx, prompt, session.Turns, userInput)
	h.metrics.ObserveGenerateLatency(conversation.ChannelVoice, time.Since(genStart).Seconds())

	cleaned := CleanForSpeech(reply)
	if cleaned == "" {
		cleaned = reply
	}

	now := h.now().UTC()
	turns := []conversation.Message{
		{Role: conversation.RoleUser, Content: userInput, Timestamp: now},
		{Role: conversation.RoleModel, Content: cleaned, Timestamp: now},
	}
	session.Turns = append(session.Turns, turns...)
	session.TurnCount++

	language := DetectLanguage(cleaned)
	session.Language = language

	endCall := ShouldEndCall(cleaned, userInput)

	if session.ConversationID != "" {
		if err := h.conversations.Append(ctx, session.TenantID, session.ConversationID, turns, ""); err != nil {
			h.logger.Error("failed to persist call turns", "error", err, "call_sid", callSID)
		}
	}

	if endCall {
		if err := h.sessions.Delete(ctx, callSID); err != nil {
			h.logger.Warn("failed to evict call session", "error", err, "call_sid", callSID)
		}
		return HangupTwiML(cleaned, language)
	}

	if err := h.sessions.Save(ctx, session); err != nil {
		h.logger.Error("failed to save call session", "error", err, "call_sid", callSID)
	}
	return GatherTwiML(cleaned, language, h.actionPath, h.gatherTimeout)
}

func (h *WebhookHandler) recoverSession(ctx context.Context, callSID, from, to string) *conversation.VoiceSession {
	session := &conversation.VoiceSession{
		CallID:       callSID,
		CallerPhone:  from,
		DialedNumber: to,
		Language:     h.defaultLang,
		StartedAt:    h.now().UTC(),
	}
	tenant, _, err := h.resolver.ResolveVoice(ctx, to)
	if err != nil || tenant == nil {
		h.logger.Warn("session recovery could not resolve tenant", "call_sid", callSID, "error", err)
		return session
	}
	session.TenantID = tenant.ID
	if conv, err := h.conversations.GetOrCreate(ctx, tenant.ID, from, conversation.ChannelVoice, ""); err == nil {
		session.ConversationID = conv.ID
	}
	return session
}

func (h *WebhookHandler) tenantFor(ctx context.Context, session *conversation.VoiceSession) *tenancy.Tenant {
	if session.TenantID != "" {
		tenant, err := h.tenants.Get(ctx, session.TenantID)
		if err != nil {
			h.logger.Error("tenant load failed", "error", err, "tenant_id", session.TenantID)
		}
		if tenant != nil {
			return tenant
		}
	}
	// last resort: first tenant
	tenant, _, err := h.resolver.ResolveVoice(ctx, session.DialedNumber)
	if err != nil {
		return nil
	}
	if tenant != nil {
		session.TenantID = tenant.ID
	}
	return tenant
}
