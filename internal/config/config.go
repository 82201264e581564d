package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Twilio (WhatsApp + voice webhooks and outbound sends)
	TwilioAccountSID    string
	TwilioAuthToken     string
	TwilioWhatsAppFrom  string
	TwilioValidateSig   bool
	VoiceGatherTimeout  int
	VoiceSessionTTL     time.Duration
	VoiceDefaultLang    string

	// Meta Graph API (Messenger / Instagram DMs and comments)
	MetaAppSecret       string
	MetaVerifyToken     string
	MetaPageAccessToken string
	MetaGraphBaseURL    string

	// Gemini
	GeminiAPIKey  string
	GeminiModelID string

	// ElevenLabs TTS
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string

	// Google Calendar (booking availability)
	GoogleCalendarClientID     string
	GoogleCalendarClientSecret string

	// Tenant resolution policy: route unmapped numbers to the first tenant
	// instead of replying "not configured".
	TenantFallbackToFirst bool

	AdminJWTSecret     string
	CORSAllowedOrigins string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		TwilioAccountSID:   getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:    getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioWhatsAppFrom: getEnv("TWILIO_WHATSAPP_NUMBER", ""),
		TwilioValidateSig:  getEnvAsBool("TWILIO_VALIDATE_SIGNATURE", true),
		VoiceGatherTimeout: getEnvAsInt("VOICE_GATHER_TIMEOUT_SECONDS", 5),
		VoiceSessionTTL:    getEnvAsDuration("VOICE_SESSION_TTL", 30*time.Minute),
		VoiceDefaultLang:   getEnv("VOICE_DEFAULT_LANGUAGE", "ar"),

		MetaAppSecret:       getEnv("META_APP_SECRET", ""),
		MetaVerifyToken:     getEnv("META_VERIFY_TOKEN", "jawab_verify_token"),
		MetaPageAccessToken: getEnv("META_PAGE_ACCESS_TOKEN", ""),
		MetaGraphBaseURL:    getEnv("META_GRAPH_BASE_URL", "https://graph.facebook.com/v18.0"),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModelID: getEnv("GEMINI_MODEL_ID", "gemini-2.0-flash"),

		ElevenLabsAPIKey:  getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID: getEnv("ELEVENLABS_VOICE_ID", ""),

		GoogleCalendarClientID:     getEnv("GOOGLE_CALENDAR_CLIENT_ID", ""),
		GoogleCalendarClientSecret: getEnv("GOOGLE_CALENDAR_CLIENT_SECRET", ""),

		TenantFallbackToFirst: getEnvAsBool("TENANT_FALLBACK_TO_FIRST", true),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
