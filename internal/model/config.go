package model

import "time"

// Config is the full process configuration. Values come from defaults,
// the config file, DEEDSCAN_* environment variables, and CLI flags, in
// ascending priority.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Site        SiteConfig        `yaml:"site"`
	LLM         LLMConfig         `yaml:"llm"`
	Capture     CaptureConfig     `yaml:"capture"`
	Cache       CacheConfig       `yaml:"cache"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Database    DatabaseConfig    `yaml:"database"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Output      OutputConfig      `yaml:"output"`
}

// HTTPConfig controls the assessor-side HTTP client.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy"`
	InsecureTLS  bool          `yaml:"insecure_tls"`
}

// SiteConfig points at the county's assessment search endpoint. The
// records-side gateway lives under CaptureConfig because it shares the
// capture session lifecycle.
type SiteConfig struct {
	AssessorSearchURL string `yaml:"assessor_search_url"`
}

// LLMConfig configures the extraction/OCR/summarization provider.
type LLMConfig struct {
	Provider    string `yaml:"provider"` // "openai" or "" (disabled)
	Model       string `yaml:"model"`
	VisionModel string `yaml:"vision_model"`
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"` // OpenAI-compatible endpoints
	Timeout     int    `yaml:"timeout"`  // seconds
	MaxTokens   int    `yaml:"max_tokens"`
}

// CaptureConfig controls the document capture session. The inter-document
// delay bounds are deliberate backpressure against anti-automation
// defenses, not a correctness requirement.
type CaptureConfig struct {
	GatewayURL        string        `yaml:"gateway_url"` // capture gateway; empty disables capture
	SessionTimeout    time.Duration `yaml:"session_timeout"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	PageSettleDelay   time.Duration `yaml:"page_settle_delay"`
	InterDocDelayMin  time.Duration `yaml:"inter_doc_delay_min"`
	InterDocDelayMax  time.Duration `yaml:"inter_doc_delay_max"`
	SearchWindowYears int           `yaml:"search_window_years"`
}

// CacheConfig controls the assessment page cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Dir       string        `yaml:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl"`
}

// RateLimitConfig bounds request rate per domain on the assessor side.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// DatabaseConfig points at the persistence gateway. An empty URL selects
// the in-memory store and JSON output.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// ConcurrencyConfig bounds batch parallelism. Each worker owns at most
// one capture session; documents within a property are never concurrent.
type ConcurrencyConfig struct {
	Workers int `yaml:"workers"`
}

// OutputConfig controls CLI output.
type OutputConfig struct {
	Verbose bool   `yaml:"verbose"`
	Dir     string `yaml:"dir"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "deedscan/0.3 (+https://github.com/avasquez/deedscan)",
			MaxBodyBytes: 2_000_000,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			VisionModel: "gpt-4o",
			Timeout:     60,
			MaxTokens:   2000,
		},
		Capture: CaptureConfig{
			SessionTimeout:    90 * time.Second,
			NavigationTimeout: 30 * time.Second,
			PageSettleDelay:   750 * time.Millisecond,
			InterDocDelayMin:  2 * time.Second,
			InterDocDelayMax:  6 * time.Second,
			SearchWindowYears: 40,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".deedscan-cache",
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 1.0,
			Burst:             2,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 2,
		},
		Output: OutputConfig{
			Dir: "./deedscan-out",
		},
	}
}
