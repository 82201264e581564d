package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jawab-ai/jawab-platform/internal/channels/meta"
	"github.com/jawab-ai/jawab-platform/internal/channels/voice"
	"github.com/jawab-ai/jawab-platform/internal/channels/whatsapp"
	"github.com/jawab-ai/jawab-platform/internal/http/handlers"
	httpmiddleware "github.com/jawab-ai/jawab-platform/internal/http/middleware"
	"github.com/jawab-ai/jawab-platform/pkg/logging"
)

// Config holds router configuration. Channel webhooks and admin handlers are
// optional; nil handlers simply leave their routes unregistered.
type Config struct {
	Logger *logging.Logger

	WhatsAppWebhook *whatsapp.WebhookHandler
	VoiceWebhook    *voice.WebhookHandler
	MetaWebhook     *meta.WebhookHandler

	Tenants       *handlers.TenantsHandler
	Conversations *handlers.ConversationsHandler
	Bookings      *handlers.BookingsHandler
	TTS           *handlers.TTSHandler

	AdminAuthSecret    string
	CORSAllowedOrigins []string
	MetricsHandler     http.Handler

	// Webhook endpoints take provider retries; the limit protects the LLM
	// budget, not the HTTP server.
	WebhookRateLimit float64
	WebhookBurst     int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Public webhook endpoints.
	r.Group(func(public chi.Router) {
		if cfg.WebhookRateLimit > 0 {
			public.Use(httpmiddleware.RateLimit(cfg.WebhookRateLimit, cfg.WebhookBurst))
		}
		if cfg.WhatsAppWebhook != nil {
			public.Post("/webhooks/whatsapp", cfg.WhatsAppWebhook.Handle)
		}
		if cfg.VoiceWebhook != nil {
			public.Post("/webhooks/voice", cfg.VoiceWebhook.Handle)
		}
		if cfg.MetaWebhook != nil {
			public.Get("/webhooks/meta", cfg.MetaWebhook.HandleVerify)
			public.Post("/webhooks/meta", cfg.MetaWebhook.HandleEvents)
		}
	})

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Dashboard API, JWT-protected when a secret is configured.
	r.Route("/api", func(api chi.Router) {
		if cfg.AdminAuthSecret != "" {
			api.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		}

		if cfg.Tenants != nil {
			api.Get("/tenants", cfg.Tenants.List)
			api.Post("/tenants", cfg.Tenants.Create)
			api.Route("/tenants/{tenantID}", func(tenant chi.Router) {
				tenant.Get("/", cfg.Tenants.Get)
				tenant.Put("/", cfg.Tenants.Update)

				if cfg.Conversations != nil {
					tenant.Get("/conversations", cfg.Conversations.List)
					tenant.Route("/conversations/{conversationID}", func(conv chi.Router) {
						conv.Get("/", cfg.Conversations.Get)
						conv.Patch("/status", cfg.Conversations.UpdateStatus)
						conv.Post("/send", cfg.Conversations.Send)
					})
				}
				if cfg.Bookings != nil {
					tenant.Get("/calendar/slots", cfg.Bookings.Slots)
					tenant.Post("/calendar/book", cfg.Bookings.Book)
					tenant.Delete("/bookings/{bookingID}", cfg.Bookings.Cancel)
				}
			})
		}

		if cfg.TTS != nil {
			api.Post("/tts", cfg.TTS.Synthesize)
		}
	})

	return r
}
