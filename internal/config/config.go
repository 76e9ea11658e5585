// Package config holds all mcqagent configuration. Configuration is read
// from an optional YAML file, then overridden by MCQ_* environment
// variables for credentials and paths.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all mcqagent configuration.
type Config struct {
	Paths     PathsConfig     `yaml:"paths"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Solver    SolverConfig    `yaml:"solver"`
	Driver    DriverConfig    `yaml:"driver"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// PathsConfig configures filesystem locations.
type PathsConfig struct {
	DataDir   string `yaml:"data_dir"`
	OutputDir string `yaml:"output_dir"`
	// DatabasePath is the SQLite vector store location.
	DatabasePath string `yaml:"database_path"`
}

// Credentials identifies one model role against the generation service.
type Credentials struct {
	APIKey   string `yaml:"api_key"`
	TokenID  string `yaml:"token_id"`
	TokenKey string `yaml:"token_key"`
}

// LLMConfig configures the text-generation capability.
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`

	// Per-role credentials: the small model classifies, the large model
	// generates code and answers.
	Small Credentials `yaml:"small"`
	Large Credentials `yaml:"large"`

	SmallModel string `yaml:"small_model"`
	LargeModel string `yaml:"large_model"`

	Timeout string `yaml:"timeout"`
}

// EmbeddingConfig configures the embedding engine.
type EmbeddingConfig struct {
	// Provider: "vnpt" or "genai"
	Provider string `yaml:"provider"`

	// VNPT configuration
	VNPTEndpoint string      `yaml:"vnpt_endpoint"`
	VNPTModel    string      `yaml:"vnpt_model"`
	VNPT         Credentials `yaml:"vnpt"`

	// GenAI configuration
	GenAIAPIKey string `yaml:"genai_api_key"`
	GenAIModel  string `yaml:"genai_model"`

	Dimensions int `yaml:"dimensions"`
}

// RetrievalConfig configures the retrieval-fusion strategy.
type RetrievalConfig struct {
	TopKPerQuery   int     `yaml:"top_k_per_query"`
	FinalTopK      int     `yaml:"final_top_k"`
	ScoreThreshold float64 `yaml:"score_threshold"`
	// RRFConstant is the smoothing constant k in 1/(k+rank+1).
	RRFConstant int `yaml:"rrf_constant"`
	// ContextBudget caps assembled context length in characters.
	ContextBudget int `yaml:"context_budget"`
	// DedupPrefixLen is the content prefix length used for the dedup
	// fingerprint.
	DedupPrefixLen int `yaml:"dedup_prefix_len"`
}

// SolverConfig configures the per-category strategies.
type SolverConfig struct {
	// MathRetries is the number of repair attempts after the first failed
	// execution (total executions = MathRetries + 1).
	MathRetries int `yaml:"math_retries"`
	// SandboxTimeout bounds one snippet execution.
	SandboxTimeout string `yaml:"sandbox_timeout"`

	MathDefaultLetter    string `yaml:"math_default_letter"`
	RAGDefaultLetter     string `yaml:"rag_default_letter"`
	ReadingDefaultLetter string `yaml:"reading_default_letter"`
	ToxicDefaultLetter   string `yaml:"toxic_default_letter"`
}

// RateLimitPolicy selects driver behavior when the generation service
// reports quota exhaustion.
type RateLimitPolicy string

const (
	// PolicyManual halts the batch and writes an emergency output;
	// resume requires re-invocation.
	PolicyManual RateLimitPolicy = "manual"
	// PolicyAuto sleeps until the next quota-reset boundary and retries
	// the same item.
	PolicyAuto RateLimitPolicy = "auto"
)

// DriverConfig configures the execution driver.
type DriverConfig struct {
	RateLimitPolicy RateLimitPolicy `yaml:"rate_limit_policy"`
	// ResumeBuffer is added past the top of the next clock hour before
	// retrying under the auto policy.
	ResumeBuffer string `yaml:"resume_buffer"`
	// StopFile is the sentinel whose presence requests a graceful stop.
	StopFile string `yaml:"stop_file"`
	// FallbackLetter is recorded for items that fail all recovery.
	FallbackLetter string `yaml:"fallback_letter"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns the canonical defaults.
func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			DataDir:      "./data",
			OutputDir:    "./output",
			DatabasePath: "./data/vector_store.db",
		},
		LLM: LLMConfig{
			BaseURL:    "https://api.idg.vnpt.vn/data-service/v1/chat/completions",
			SmallModel: "vnptai_hackathon_small",
			LargeModel: "vnptai_hackathon_large",
			Timeout:    "60s",
		},
		Embedding: EmbeddingConfig{
			Provider:     "vnpt",
			VNPTEndpoint: "https://api.idg.vnpt.vn/data-service/vnptai-hackathon-embedding",
			VNPTModel:    "vnptai_hackathon_embedding",
			GenAIModel:   "gemini-embedding-001",
			Dimensions:   1024,
		},
		Retrieval: RetrievalConfig{
			TopKPerQuery:   10,
			FinalTopK:      5,
			ScoreThreshold: 0.3,
			RRFConstant:    60,
			ContextBudget:  6000,
			DedupPrefixLen: 200,
		},
		Solver: SolverConfig{
			MathRetries:          2,
			SandboxTimeout:       "10s",
			MathDefaultLetter:    "B",
			RAGDefaultLetter:     "A",
			ReadingDefaultLetter: "A",
			ToxicDefaultLetter:   "A",
		},
		Driver: DriverConfig{
			RateLimitPolicy: PolicyManual,
			ResumeBuffer:    "2m",
			StopFile:        "STOP_AUTO",
			FallbackLetter:  "C",
		},
		Logging: LoggingConfig{Debug: false},
	}
}

// Load reads the config file at path (if it exists), applies environment
// overrides, and validates the result. An empty path loads defaults plus
// environment overrides only.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks invariants the rest of the system relies on.
func (c Config) Validate() error {
	if c.Retrieval.RRFConstant <= 0 {
		return fmt.Errorf("retrieval.rrf_constant must be positive, got %d", c.Retrieval.RRFConstant)
	}
	if c.Retrieval.TopKPerQuery <= 0 || c.Retrieval.FinalTopK <= 0 {
		return fmt.Errorf("retrieval top-k values must be positive")
	}
	if c.Solver.MathRetries < 0 {
		return fmt.Errorf("solver.math_retries must not be negative")
	}
	switch c.Driver.RateLimitPolicy {
	case PolicyManual, PolicyAuto:
	default:
		return fmt.Errorf("driver.rate_limit_policy must be %q or %q, got %q",
			PolicyManual, PolicyAuto, c.Driver.RateLimitPolicy)
	}
	if _, err := c.LLMTimeout(); err != nil {
		return err
	}
	if _, err := c.SandboxTimeout(); err != nil {
		return err
	}
	if _, err := c.ResumeBuffer(); err != nil {
		return err
	}
	return nil
}

// LLMTimeout parses the LLM request timeout.
func (c Config) LLMTimeout() (time.Duration, error) {
	return parseDuration("llm.timeout", c.LLM.Timeout, 60*time.Second)
}

// SandboxTimeout parses the sandbox execution timeout.
func (c Config) SandboxTimeout() (time.Duration, error) {
	return parseDuration("solver.sandbox_timeout", c.Solver.SandboxTimeout, 10*time.Second)
}

// ResumeBuffer parses the auto-policy safety buffer.
func (c Config) ResumeBuffer() (time.Duration, error) {
	return parseDuration("driver.resume_buffer", c.Driver.ResumeBuffer, 2*time.Minute)
}

func parseDuration(name, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	return d, nil
}
