package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/jawab-ai/jawab-platform/internal/api/router"
	"github.com/jawab-ai/jawab-platform/internal/booking"
	"github.com/jawab-ai/jawab-platform/internal/channels/meta"
	"github.com/jawab-ai/jawab-platform/internal/channels/voice"
	"github.com/jawab-ai/jawab-platform/internal/channels/whatsapp"
	appconfig "github.com/jawab-ai/jawab-platform/internal/config"
	"github.com/jawab-ai/jawab-platform/internal/conversation"
	"github.com/jawab-ai/jawab-platform/internal/http/handlers"
	"github.com/jawab-ai/jawab-platform/internal/observability/metrics"
	"github.com/jawab-ai/jawab-platform/internal/tenancy"
	"github.com/jawab-ai/jawab-platform/pkg/logging"
)

// App holds the fully wired application.
type App struct {
	Router router.Config
	DB     *sql.DB
	Redis  *redis.Client
}

// Build wires stores, clients, channel webhooks, and admin handlers from
// config. Channels whose credentials are missing are left nil; the router
// skips their routes.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	redisClient := BuildRedisClient(ctx, cfg, logger, true)

	registry := prometheus.NewRegistry()
	channelMetrics := metrics.NewChannelMetrics(registry)

	tenantStore := tenancy.NewStore(db)
	conversationStore := conversation.NewStore(db)
	resolver := tenancy.NewResolver(tenantStore, cfg.TenantFallbackToFirst, logger)

	llm, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: failed to build gemini client: %w", err)
	}
	generator := conversation.NewGenerator(llm, logger)

	app := &App{
		DB:    db,
		Redis: redisClient,
		Router: router.Config{
			Logger:             logger,
			AdminAuthSecret:    cfg.AdminJWTSecret,
			CORSAllowedOrigins: splitOrigins(cfg.CORSAllowedOrigins),
			MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			WebhookRateLimit:   10,
			WebhookBurst:       30,
		},
	}

	if cfg.TwilioAuthToken != "" {
		app.Router.WhatsAppWebhook = whatsapp.NewWebhookHandler(whatsapp.WebhookConfig{
			Resolver:      resolver,
			Conversations: conversationStore,
			Generator:     generator,
			Logger:        logger,
			Metrics:       channelMetrics,
			AuthToken:     cfg.TwilioAuthToken,
			ValidateSig:   cfg.TwilioValidateSig,
			PublicBaseURL: cfg.PublicBaseURL,
		})
	}

	if redisClient != nil {
		app.Router.VoiceWebhook = voice.NewWebhookHandler(voice.WebhookConfig{
			Resolver:      resolver,
			Tenants:       tenantStore,
			Conversations: conversationStore,
			Sessions:      conversation.NewVoiceSessionStore(redisClient, cfg.VoiceSessionTTL),
			Generator:     generator,
			Logger:        logger,
			Metrics:       channelMetrics,
			GatherTimeout: cfg.VoiceGatherTimeout,
			DefaultLang:   cfg.VoiceDefaultLang,
		})
	} else {
		logger.Warn("voice channel disabled: redis unavailable")
	}

	var metaClient *meta.Client
	if cfg.MetaPageAccessToken != "" {
		metaClient, err = meta.NewClient(meta.ClientConfig{
			AccessToken: cfg.MetaPageAccessToken,
			BaseURL:     cfg.MetaGraphBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: failed to build meta client: %w", err)
		}
		app.Router.MetaWebhook = meta.NewWebhookHandler(meta.WebhookConfig{
			Resolver:      resolver,
			Conversations: conversationStore,
			Generator:     generator,
			Client:        metaClient,
			Logger:        logger,
			Metrics:       channelMetrics,
			VerifyToken:   cfg.MetaVerifyToken,
			AppSecret:     cfg.MetaAppSecret,
		})
	}

	app.Router.Tenants = handlers.NewTenantsHandler(tenantStore, logger)

	conversationsCfg := handlers.ConversationsConfig{
		Conversations: conversationStore,
		Tenants:       tenantStore,
		Logger:        logger,
	}
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioWhatsAppFrom != "" {
		sender, err := whatsapp.NewSender(whatsapp.SenderConfig{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			FromNumber: cfg.TwilioWhatsAppFrom,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: failed to build whatsapp sender: %w", err)
		}
		conversationsCfg.WhatsApp = sender
	}
	if metaClient != nil {
		conversationsCfg.Meta = metaClient
	}
	app.Router.Conversations = handlers.NewConversationsHandler(conversationsCfg)

	bookingCfg := booking.ServiceConfig{
		Store:  booking.NewStore(db),
		Logger: logger,
	}
	if cfg.GoogleCalendarClientID != "" && cfg.GoogleCalendarClientSecret != "" {
		calendar, err := booking.NewGoogleCalendar(booking.GoogleCalendarConfig{
			ClientID:     cfg.GoogleCalendarClientID,
			ClientSecret: cfg.GoogleCalendarClientSecret,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: failed to build calendar client: %w", err)
		}
		bookingCfg.Calendar = calendar
	}
	app.Router.Bookings = handlers.NewBookingsHandler(booking.NewService(bookingCfg), tenantStore, logger)

	if cfg.ElevenLabsAPIKey != "" {
		synth, err := buildTTS(cfg)
		if err != nil {
			return nil, err
		}
		app.Router.TTS = handlers.NewTTSHandler(synth, logger)
	}

	return app, nil
}

// Close releases the app's connections.
func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func splitOrigins(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
