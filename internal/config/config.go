package config

import (
	"os"
	"strconv"
)

// Config holds the bridge configuration, loaded once from the environment at
// process start.
type Config struct {
	Port string

	// CRM configuration
	CRMBaseURL string
	CRMToken   string

	// Default pipeline/stage labels applied to deals created by tool calls
	DealPipeline  string
	DealStage     string
	ContactOwner  string
	SchedulingURL string

	// Calling platform configuration
	VapiBaseURL     string
	VapiAPIKey      string
	VapiAssistantID string

	// Webhook authentication. When Secret is empty, signature verification is
	// skipped with a warning. StrictSignature controls whether a mismatch is
	// rejected (401) or only logged.
	WebhookSecret   string
	StrictSignature bool

	// Voice defaults, overridable per request
	VoiceName       string
	VoiceStability  string
	VoiceSimilarity string
	VoiceStyle      string

	// Assistant behavior overlay applied at boot (and via the admin endpoint)
	OverlayEnabled        bool
	OverlayBargeInWords   int
	OverlayVADAggressive  string
	OverlayTranscriber    string
	OverlayTranscriberMdl string
	OverlayLatencyMode    string

	// Optional Redis backing for the lead-status store
	RedisHost     string
	RedisPort     string
	RedisPassword string
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	return &Config{
		Port: getEnvOrDefault("PORT", "8080"),

		CRMBaseURL: getEnvOrDefault("CRM_BASE_URL", "https://api.hubapi.com"),
		CRMToken:   getEnvOrDefault("CRM_ACCESS_TOKEN", ""),

		DealPipeline:  getEnvOrDefault("CRM_DEAL_PIPELINE", "default"),
		DealStage:     getEnvOrDefault("CRM_DEAL_STAGE", "appointmentscheduled"),
		ContactOwner:  getEnvOrDefault("CRM_CONTACT_OWNER", ""),
		SchedulingURL: getEnvOrDefault("SCHEDULING_URL", ""),

		VapiBaseURL:     getEnvOrDefault("VAPI_BASE_URL", "https://api.vapi.ai"),
		VapiAPIKey:      getEnvOrDefault("VAPI_API_KEY", ""),
		VapiAssistantID: getEnvOrDefault("VAPI_ASSISTANT_ID", ""),

		WebhookSecret:   getEnvOrDefault("WEBHOOK_SECRET", ""),
		StrictSignature: getEnvAsBoolOrDefault("WEBHOOK_STRICT_SIGNATURE", false),

		VoiceName:       getEnvOrDefault("VOICE_NAME", ""),
		VoiceStability:  getEnvOrDefault("VOICE_STABILITY", ""),
		VoiceSimilarity: getEnvOrDefault("VOICE_SIMILARITY", ""),
		VoiceStyle:      getEnvOrDefault("VOICE_STYLE", ""),

		OverlayEnabled:        getEnvAsBoolOrDefault("ASSISTANT_OVERLAY_ENABLED", false),
		OverlayBargeInWords:   getEnvAsIntOrDefault("ASSISTANT_BARGE_IN_WORDS", 2),
		OverlayVADAggressive:  getEnvOrDefault("ASSISTANT_VAD_LEVEL", "medium"),
		OverlayTranscriber:    getEnvOrDefault("ASSISTANT_TRANSCRIBER", "deepgram"),
		OverlayTranscriberMdl: getEnvOrDefault("ASSISTANT_TRANSCRIBER_MODEL", "nova-2"),
		OverlayLatencyMode:    getEnvOrDefault("ASSISTANT_LATENCY_MODE", "balanced"),

		RedisHost:     getEnvOrDefault("REDIS_HOST", ""),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),
	}
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBoolOrDefault gets environment variable as bool or returns default
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
