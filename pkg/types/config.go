// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-radar/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// AIProvider identifies the generative AI service.
type AIProvider string

const (
	ProviderGemini AIProvider = "gemini"
	ProviderOpenAI AIProvider = "openai"
)

// AIConfig holds settings for the generative AI calls.
type AIConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Provider selects the AI service (default gemini).
	Provider AIProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the AI model identifier (e.g. "gemini-2.5-flash"). Empty
	// selects the provider default.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint (proxies, tests).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxRetries is the retry budget for analysis and trend calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RetryDelay is the first backoff wait; each retry doubles it (default 2s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay"`
}

// AnalysisSettings holds analysis defaults and normalizer policy.
type AnalysisSettings struct {
	AnalysisConfig `yaml:",inline" mapstructure:",squash"`

	// ValidatePaperIDs drops topic paper ids that do not match a paper sent
	// with the request (default true).
	ValidatePaperIDs bool `json:"validate_paper_ids" yaml:"validate_paper_ids" mapstructure:"validate_paper_ids"`
}

// TranslationConfig holds settings for hover translation.
type TranslationConfig struct {
	// TargetLanguage is the language translations are produced in (default "Chinese").
	TargetLanguage string `json:"target_language" yaml:"target_language" mapstructure:"target_language"`

	// RetryDelay is the wait before the single translation retry (default 1s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay"`
}

// SearchConfig holds settings for the PubMed search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the E-utilities endpoint.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIKey is an optional NCBI key; it raises the request rate limit.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// PageSize is the default number of ids per search page (default 20).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// BatchSize is the number of ids per efetch request (default 200).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// BatchPause is the wait between consecutive efetch batches (default 350ms).
	BatchPause time.Duration `json:"batch_pause" yaml:"batch_pause" mapstructure:"batch_pause"`

	// RateLimit is the maximum requests per second (default 3, 10 with an API key).
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`
}

// HistoryConfig holds settings for the local history store.
type HistoryConfig struct {
	// Dir is the directory containing history.db.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// MaxEntries is the number of newest entries kept (default 20).
	MaxEntries int `json:"max_entries" yaml:"max_entries" mapstructure:"max_entries"`
}

// ServerConfig holds settings for the HTTP proxy.
type ServerConfig struct {
	// Address is the listen address (default ":8080").
	Address string `json:"address" yaml:"address" mapstructure:"address"`

	// ReadTimeout bounds reading a request including its body.
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`

	// WriteTimeout bounds writing a response. Analysis calls can be slow,
	// so keep this generous.
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`

	// MaxBodyBytes caps request bodies (default 16 MiB).
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is the minimum level (trace, debug, info, warn, error).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is json or console.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all stage configurations.
type Config struct {
	AI          AIConfig          `json:"ai" yaml:"ai" mapstructure:"ai"`
	Analysis    AnalysisSettings  `json:"analysis" yaml:"analysis" mapstructure:"analysis"`
	Translation TranslationConfig `json:"translation" yaml:"translation" mapstructure:"translation"`
	Search      SearchConfig      `json:"search" yaml:"search" mapstructure:"search"`
	History     HistoryConfig     `json:"history" yaml:"history" mapstructure:"history"`
	Server      ServerConfig      `json:"server" yaml:"server" mapstructure:"server"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// DefaultConfig returns the configuration used when no file, environment
// variable, or flag overrides a value.
func DefaultConfig() Config {
	return Config{
		AI: AIConfig{
			HTTPConfig: HTTPConfig{Timeout: 5 * time.Minute, UserAgent: "research-radar"},
			Provider:   ProviderGemini,
			MaxRetries: 3,
			RetryDelay: 2 * time.Second,
		},
		Analysis: AnalysisSettings{
			AnalysisConfig:   DefaultAnalysisConfig(),
			ValidatePaperIDs: true,
		},
		Translation: TranslationConfig{
			TargetLanguage: "Chinese",
			RetryDelay:     time.Second,
		},
		Search: SearchConfig{
			HTTPConfig: HTTPConfig{Timeout: 30 * time.Second, UserAgent: "research-radar"},
			BaseURL:    "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
			PageSize:   20,
			BatchSize:  200,
			BatchPause: 350 * time.Millisecond,
			RateLimit:  3,
		},
		History: HistoryConfig{
			Dir:        ".research-radar",
			MaxEntries: 20,
		},
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Minute,
			MaxBodyBytes: 16 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
