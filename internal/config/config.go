package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppName  string
	AppEnv   string
	LogLevel string

	APIHost string
	APIPort string

	CORSOrigins string

	RedisURL        string
	RedisTTLSeconds int
	ChatMaxTurns    int

	QdrantURL        string
	QdrantCollection string

	EmbeddingBaseURL string
	EmbeddingAPIKey  string
	EmbeddingModel   string
	EmbeddingDim     int

	LLMBaseURL         string
	LLMAPIKey          string
	LLMModel           string
	LLMTimeoutSeconds  int
	LLMMaxOutputTokens int

	RetrieverTopK            int
	RetrieverMinScore        float64
	RetrieverCacheTTLSeconds int

	RateLimitRPM int

	DocsPath        string
	WatchDocs       bool
	IntentModelPath string
}

// Load reads configuration from the environment, with a .env file as an
// optional source. It returns a value instead of populating a package-level
// global so that dependencies are wired explicitly at startup.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	return Config{
		AppName:  getEnv("APP_NAME", "kb-assistant"),
		AppEnv:   getEnv("APP_ENV", "local"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),

		APIHost: getEnv("API_HOST", "0.0.0.0"),
		APIPort: getEnv("API_PORT", "8000"),

		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),

		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisTTLSeconds: getEnvAsInt("REDIS_TTL_SECONDS", 1209600),
		ChatMaxTurns:    getEnvAsInt("CHAT_MAX_TURNS", 14),

		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "kb"),

		EmbeddingBaseURL: getEnv("EMBEDDING_BASE_URL", "http://localhost:11434/v1"),
		EmbeddingAPIKey:  getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "all-minilm"),
		EmbeddingDim:     getEnvAsInt("EMBEDDING_DIM", 384),

		LLMBaseURL:         getEnv("LLM_BASE_URL", ""),
		LLMAPIKey:          getEnv("LLM_API_KEY", ""),
		LLMModel:           getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeoutSeconds:  getEnvAsInt("LLM_TIMEOUT_SECONDS", 18),
		LLMMaxOutputTokens: getEnvAsInt("LLM_MAX_OUTPUT_TOKENS", 320),

		RetrieverTopK:            getEnvAsInt("RETRIEVER_TOP_K", 6),
		RetrieverMinScore:        getEnvAsFloat("RETRIEVER_MIN_SCORE", 0.28),
		RetrieverCacheTTLSeconds: getEnvAsInt("RETRIEVER_CACHE_TTL_SECONDS", 21600),

		RateLimitRPM: getEnvAsInt("RATE_LIMIT_RPM", 120),

		DocsPath:        getEnv("DOCS_PATH", "data/docs"),
		WatchDocs:       getEnvAsBool("WATCH_DOCS", false),
		IntentModelPath: getEnv("INTENT_MODEL_PATH", "reports/intent_model.json"),
	}
}

// CORSList splits the comma-separated CORS_ORIGINS value.
func (c Config) CORSList() []string {
	raw := strings.TrimSpace(c.CORSOrigins)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
