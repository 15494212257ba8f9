package config

// Config holds fieldsift configuration.
// Loaded from config.yaml with FIELDSIFT_ environment overrides.
type Config struct {
	Server     ServerCfg     `mapstructure:"server" yaml:"server"`
	LLM        LLMCfg        `mapstructure:"llm" yaml:"llm"`
	Extraction ExtractionCfg `mapstructure:"extraction" yaml:"extraction"`
}

// ServerCfg configures the HTTP listener.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"` // Bind address (default: 127.0.0.1)
	Port string `mapstructure:"port" yaml:"port"` // Listen port (default: 8080)
}

// LLMCfg configures the completion backend.
type LLMCfg struct {
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url"`               // Completion API base URL
	Model          string  `mapstructure:"model" yaml:"model"`                     // Model name
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`                 // API key (supports ${ENV_VAR} syntax)
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`         // Sampling temperature
	ContextWindow  int     `mapstructure:"context_window" yaml:"context_window"`   // Model context window in tokens
	MaxAttempts    int     `mapstructure:"max_attempts" yaml:"max_attempts"`       // Retry attempts per completion
	RetryDelaySecs int     `mapstructure:"retry_delay_secs" yaml:"retry_delay_secs"` // Base backoff delay in seconds
	TimeoutSecs    int     `mapstructure:"timeout_secs" yaml:"timeout_secs"`       // Per-request HTTP timeout in seconds
}

// ExtractionCfg configures document processing.
type ExtractionCfg struct {
	TokenBudget int    `mapstructure:"token_budget" yaml:"token_budget"` // Input-token budget for document text
	SchemaPath  string `mapstructure:"schema_path" yaml:"schema_path"`   // Optional custom field schema YAML (empty = built-in)
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: "8080",
		},
		LLM: LLMCfg{
			BaseURL:        "https://api.together.xyz",
			Model:          "deepseek-ai/DeepSeek-R1-Distill-Llama-70B-free",
			APIKey:         "${TOGETHER_API_KEY}",
			Temperature:    0.2,
			ContextWindow:  8192,
			MaxAttempts:    3,
			RetryDelaySecs: 2,
			TimeoutSecs:    60,
		},
		Extraction: ExtractionCfg{
			TokenBudget: 6000,
		},
	}
}
