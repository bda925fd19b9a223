package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        string
	DatabaseURL string

	// Default completion settings; individual requests may override the
	// model, API key and base URL.
	Model      string
	LLMApiKey  string
	LLMBaseURL string

	// Research bound defaults. Per-request values are clamped regardless.
	MaxIterations      int
	MaxSources         int
	MaxQueriesPerIter  int
	MaxResultsPerQuery int
	MinIterations      int

	// Archive settings. Archiving only activates when a database is
	// configured.
	GoogleApiKey   string
	EmbeddingModel string
	CollectionName string
	ChunkSize      int
	ChunkOverlap   int
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8081"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		Model:      getEnv("RESEARCH_MODEL", "gpt-4o-mini"),
		LLMApiKey:  getEnv("OPENAI_API_KEY", ""),
		LLMBaseURL: getEnv("OPENAI_BASE_URL", ""),

		MaxIterations:      getEnvAsInt("RESEARCH_MAX_ITERATIONS", 3),
		MaxSources:         getEnvAsInt("RESEARCH_MAX_SOURCES", 20),
		MaxQueriesPerIter:  getEnvAsInt("RESEARCH_MAX_QUERIES_PER_ITERATION", 3),
		MaxResultsPerQuery: getEnvAsInt("RESEARCH_MAX_RESULTS_PER_QUERY", 8),
		MinIterations:      getEnvAsInt("RESEARCH_MIN_ITERATIONS", 3),

		GoogleApiKey:   getEnv("GOOGLE_API_KEY", ""),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		CollectionName: getEnv("COLLECTION_NAME", "research_sources"),
		ChunkSize:      getEnvAsInt("CHUNK_SIZE", 1000),
		ChunkOverlap:   getEnvAsInt("CHUNK_OVERLAP", 200),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
