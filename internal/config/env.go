package config

import "os"

// applyEnvOverrides maps MCQ_* environment variables onto the config.
// Environment always wins over the file so credentials never need to be
// written to disk.
func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("MCQ_DATA_DIR", &cfg.Paths.DataDir)
	setString("MCQ_OUTPUT_DIR", &cfg.Paths.OutputDir)
	setString("MCQ_DATABASE_PATH", &cfg.Paths.DatabasePath)

	setString("MCQ_API_BASE_URL", &cfg.LLM.BaseURL)
	setString("MCQ_SMALL_API_KEY", &cfg.LLM.Small.APIKey)
	setString("MCQ_SMALL_TOKEN_ID", &cfg.LLM.Small.TokenID)
	setString("MCQ_SMALL_TOKEN_KEY", &cfg.LLM.Small.TokenKey)
	setString("MCQ_LARGE_API_KEY", &cfg.LLM.Large.APIKey)
	setString("MCQ_LARGE_TOKEN_ID", &cfg.LLM.Large.TokenID)
	setString("MCQ_LARGE_TOKEN_KEY", &cfg.LLM.Large.TokenKey)

	setString("MCQ_EMBEDDING_PROVIDER", &cfg.Embedding.Provider)
	setString("MCQ_EMBEDDING_ENDPOINT", &cfg.Embedding.VNPTEndpoint)
	setString("MCQ_EMBEDDING_API_KEY", &cfg.Embedding.VNPT.APIKey)
	setString("MCQ_EMBEDDING_TOKEN_ID", &cfg.Embedding.VNPT.TokenID)
	setString("MCQ_EMBEDDING_TOKEN_KEY", &cfg.Embedding.VNPT.TokenKey)
	setString("MCQ_GENAI_API_KEY", &cfg.Embedding.GenAIAPIKey)

	if v := os.Getenv("MCQ_RATE_LIMIT_POLICY"); v != "" {
		cfg.Driver.RateLimitPolicy = RateLimitPolicy(v)
	}
}
