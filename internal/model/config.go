package model

import "time"

// Config is the complete runtime configuration.
type Config struct {
	Oracle    OracleConfig    `yaml:"oracle"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry"`
	Cache     CacheConfig     `yaml:"cache"`
	Consensus ConsensusConfig `yaml:"consensus"`
	Appeal    AppealConfig    `yaml:"appeal"`
	Paths     PathsConfig     `yaml:"paths"`
	Output    OutputConfig    `yaml:"output"`
}

// OracleConfig configures the reasoning oracle provider.
type OracleConfig struct {
	Provider    string        `yaml:"provider"` // openai, anthropic, ollama
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key,omitempty"`
	BaseURL     string        `yaml:"base_url,omitempty"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`

	// Proxy settings; empty values fall back to the standard
	// HTTP_PROXY/HTTPS_PROXY environment handling.
	HTTPProxy  string `yaml:"http_proxy,omitempty"`
	HTTPSProxy string `yaml:"https_proxy,omitempty"`
}

// RateLimitConfig throttles oracle calls to a calls-per-minute budget.
type RateLimitConfig struct {
	CallsPerMinute int `yaml:"calls_per_minute"`
	Burst          int `yaml:"burst"`
}

// RetryConfig bounds retries on transient oracle failures.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	// RateLimitBackoff replaces the default backoff when the oracle
	// signals a rate limit; it must be larger than InitialBackoff.
	RateLimitBackoff time.Duration `yaml:"rate_limit_backoff"`
}

// CacheConfig configures the prompt-response cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Dir       string        `yaml:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl"`
}

// ConsensusConfig configures borderline-score escalation.
type ConsensusConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Judges     int     `yaml:"judges"`      // extra independent calls on escalation
	BandLow    float64 `yaml:"band_low"`    // inclusive
	BandHigh   float64 `yaml:"band_high"`   // inclusive
	MinValid   int     `yaml:"min_valid"`   // below this, fall back to single judge
	StrongRate float64 `yaml:"strong_rate"` // agreement rate for strong consensus
}

// AppealConfig configures the deep re-evidence loop.
type AppealConfig struct {
	Enabled   bool `yaml:"enabled"`
	ChunkSize int  `yaml:"chunk_size"` // max document characters per oracle call
}

// PathsConfig locates the on-disk inputs and outputs.
type PathsConfig struct {
	Ledger   string `yaml:"ledger"`
	Taxonomy string `yaml:"taxonomy"`
	Corpus   string `yaml:"corpus"`
}

// OutputConfig controls CLI output.
type OutputConfig struct {
	Verbose bool   `yaml:"verbose"`
	Stats   string `yaml:"stats,omitempty"` // optional run-stats JSON path
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Oracle: OracleConfig{
			Provider:    "openai",
			Timeout:     60 * time.Second,
			MaxTokens:   2000,
			Temperature: 0.2,
		},
		RateLimit: RateLimitConfig{
			CallsPerMinute: 30,
			Burst:          5,
		},
		Retry: RetryConfig{
			MaxAttempts:      3,
			InitialBackoff:   2 * time.Second,
			RateLimitBackoff: 15 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "", // resolved to ~/.adjudex/cache at startup
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Consensus: ConsensusConfig{
			Enabled:    true,
			Judges:     3,
			BandLow:    2.5,
			BandHigh:   3.5,
			MinValid:   2,
			StrongRate: 0.67,
		},
		Appeal: AppealConfig{
			Enabled:   true,
			ChunkSize: 24000,
		},
		Paths: PathsConfig{
			Ledger:   "ledger.json",
			Taxonomy: "taxonomy.json",
			Corpus:   "corpus",
		},
	}
}
