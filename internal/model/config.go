package model

import "time"

// Config is the complete legislens configuration
type Config struct {
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	OnDevice     OnDeviceConfig    `yaml:"on_device" mapstructure:"on_device"`
	Cloud        LLMConfig         `yaml:"cloud" mapstructure:"cloud"`
	News         NewsConfig        `yaml:"news" mapstructure:"news"`
	Congress     CongressConfig    `yaml:"congress" mapstructure:"congress"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Server       ServerConfig      `yaml:"server" mapstructure:"server"`
	Analysis     AnalysisConfig    `yaml:"analysis" mapstructure:"analysis"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
}

// HTTPConfig applies to every outbound HTTP client
type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent  string        `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy  string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// OnDeviceConfig configures the local model runtime
type OnDeviceConfig struct {
	Enabled        bool              `yaml:"enabled" mapstructure:"enabled"`
	BaseURL        string            `yaml:"base_url" mapstructure:"base_url"`
	Models         map[string]string `yaml:"models" mapstructure:"models"` // capability -> local model
	SessionTimeout time.Duration     `yaml:"session_timeout" mapstructure:"session_timeout"`
	Temperature    float64           `yaml:"temperature" mapstructure:"temperature"`
}

// LLMConfig configures a cloud text-generation provider
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // gemini, openai, anthropic, ollama, ""
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"-" mapstructure:"api_key"` // Never written to disk
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
}

// NewsConfig holds news source credentials and limits
type NewsConfig struct {
	GuardianAPIKey string `yaml:"-" mapstructure:"guardian_api_key"`
	NewsAPIKey     string `yaml:"-" mapstructure:"newsapi_key"`
	SerpAPIKey     string `yaml:"-" mapstructure:"serpapi_key"`
	PageSize       int    `yaml:"page_size" mapstructure:"page_size"`
	MaxArticles    int    `yaml:"max_articles" mapstructure:"max_articles"`
	TimelineWeeks  int    `yaml:"timeline_weeks" mapstructure:"timeline_weeks"`
}

// CongressConfig configures the Congress.gov API client
type CongressConfig struct {
	APIKey       string `yaml:"-" mapstructure:"api_key"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	RespectRobot bool   `yaml:"respect_robots" mapstructure:"respect_robots"`
	MaxTextBytes int64  `yaml:"max_text_bytes" mapstructure:"max_text_bytes"`
}

// CacheConfig selects and configures the analysis cache backend
type CacheConfig struct {
	Backend     string        `yaml:"backend" mapstructure:"backend"` // none, memory, disk, layered, minio, postgres, mysql
	TTL         time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Dir         string        `yaml:"dir" mapstructure:"dir"`
	DatabaseURL string        `yaml:"-" mapstructure:"database_url"`
	MySQLDSN    string        `yaml:"-" mapstructure:"mysql_dsn"`
	Migrate     bool          `yaml:"migrate" mapstructure:"migrate"`
	Minio       MinioConfig   `yaml:"minio" mapstructure:"minio"`
}

// MinioConfig configures the object-store cache backend
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"-" mapstructure:"access_key"`
	SecretKey string `yaml:"-" mapstructure:"secret_key"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Region    string `yaml:"region" mapstructure:"region"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr"`
	CORSOrigins  []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// AnalysisConfig tunes the adapters
type AnalysisConfig struct {
	DefaultLevel  string `yaml:"default_level" mapstructure:"default_level"`
	MaxProvisions int    `yaml:"max_provisions" mapstructure:"max_provisions"`
	MaxTextChars  int    `yaml:"max_text_chars" mapstructure:"max_text_chars"` // Text budget per prompt
}

// ConcurrencyConfig bounds batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitConfig is the per-host limit for outbound API calls
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// OutputConfig controls CLI rendering
type OutputConfig struct {
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: "Legislens/0.1 (+https://github.com/ppiankov/legislens)",
		},
		OnDevice: OnDeviceConfig{
			Enabled: true,
			BaseURL: "http://localhost:11434",
			Models: map[string]string{
				"summarizer":  "llama3.2:3b",
				"prompt":      "llama3.2:3b",
				"writer":      "llama3.2:3b",
				"rewriter":    "llama3.2:3b",
				"proofreader": "llama3.2:3b",
			},
			SessionTimeout: 30 * time.Second,
			Temperature:    0.3,
		},
		Cloud: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-2.0-flash",
			Timeout:     60,
			MaxTokens:   2048,
			Temperature: 0.3,
		},
		News: NewsConfig{
			PageSize:      20,
			MaxArticles:   50,
			TimelineWeeks: 10,
		},
		Congress: CongressConfig{
			BaseURL:      "https://api.congress.gov/v3",
			RespectRobot: true,
			MaxTextBytes: 5_000_000,
		},
		Cache: CacheConfig{
			Backend: "layered",
			TTL:     7 * 24 * time.Hour,
			Dir:     ".legislens-cache",
			Migrate: true,
			Minio: MinioConfig{
				Bucket: "legislens-analyses",
				Region: "us-east-1",
			},
		},
		Server: ServerConfig{
			Addr:         ":8080",
			CORSOrigins:  []string{"http://localhost:3000"},
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 3 * time.Minute,
		},
		Analysis: AnalysisConfig{
			DefaultLevel:  string(LevelStandard),
			MaxProvisions: 8,
			MaxTextChars:  12000,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Output: OutputConfig{
			Dir: "./legislens-reports",
		},
	}
}
