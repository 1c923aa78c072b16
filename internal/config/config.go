package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	PollTimeout int    `yaml:"poll_timeout_secs"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type EmbeddingConfig struct {
	BaseURL       string  `yaml:"base_url"`
	APIKey        string  `yaml:"api_key"`
	Model         string  `yaml:"model"`
	Dimensions    int     `yaml:"dimensions"`
	TimeoutSecs   int     `yaml:"timeout_secs"`
	RatePerSec    float64 `yaml:"rate_per_sec"`
	CacheCapacity int     `yaml:"cache_capacity"`
	SweepMins     int     `yaml:"sweep_interval_mins"`
	EvictFraction float64 `yaml:"evict_fraction"`
	BatchSize     int     `yaml:"batch_size"`
}

type ChatConfig struct {
	BaseURL       string  `yaml:"base_url"`
	APIKey        string  `yaml:"api_key"`
	Model         string  `yaml:"model"`
	Temperature   float64 `yaml:"temperature"`
	TimeoutSecs   int     `yaml:"timeout_secs"`
	HistoryWindow int     `yaml:"history_window"`
}

type SearchConfig struct {
	Endpoint     string  `yaml:"endpoint"`
	APIKey       string  `yaml:"api_key"`
	Index        string  `yaml:"index"`
	TimeoutSecs  int     `yaml:"timeout_secs"`
	DefaultScore float64 `yaml:"default_score"`
}

type RAGConfig struct {
	ChunkSize       int     `yaml:"chunk_size"`
	ChunkOverlap    int     `yaml:"chunk_overlap"`
	MinChunkSize    int     `yaml:"min_chunk_size"`
	TopK            int     `yaml:"top_k"`
	SimilarityFloor float64 `yaml:"similarity_floor"`
	RemoteBonus     float64 `yaml:"remote_bonus"`
}

type StorageConfig struct {
	DocumentsDir string `yaml:"documents_dir"`
}

type RetryConfig struct {
	Attempts     int `yaml:"attempts"`
	BaseDelayMs  int `yaml:"base_delay_ms"`
	MaxDelaySecs int `yaml:"max_delay_secs"`
}

type HealthConfig struct {
	CheckIntervalMins     int `yaml:"check_interval_mins"`
	StabilizationDelaySec int `yaml:"stabilization_delay_secs"`
}

type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	HTTP      HTTPConfig      `yaml:"http"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chat      ChatConfig      `yaml:"chat"`
	Search    SearchConfig    `yaml:"search"`
	RAG       RAGConfig       `yaml:"rag"`
	Storage   StorageConfig   `yaml:"storage"`
	Retry     RetryConfig     `yaml:"retry"`
	Health    HealthConfig    `yaml:"health"`
}

// Load reads the YAML config at path, expands ${ENV} references in string
// values, applies defaults and validates required settings.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Telegram.PollTimeout == 0 {
		c.Telegram.PollTimeout = 30
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.TimeoutSecs == 0 {
		c.Embedding.TimeoutSecs = 30
	}
	if c.Embedding.RatePerSec == 0 {
		c.Embedding.RatePerSec = 10
	}
	if c.Embedding.CacheCapacity == 0 {
		c.Embedding.CacheCapacity = 1000
	}
	if c.Embedding.SweepMins == 0 {
		c.Embedding.SweepMins = 5
	}
	if c.Embedding.EvictFraction == 0 {
		c.Embedding.EvictFraction = 0.2
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = 5
	}
	if c.Chat.BaseURL == "" {
		c.Chat.BaseURL = "https://api.openai.com/v1"
	}
	if c.Chat.Model == "" {
		c.Chat.Model = "gpt-4o-mini"
	}
	if c.Chat.Temperature == 0 {
		c.Chat.Temperature = 0.3
	}
	if c.Chat.TimeoutSecs == 0 {
		c.Chat.TimeoutSecs = 30
	}
	if c.Chat.HistoryWindow == 0 {
		c.Chat.HistoryWindow = 4
	}
	if c.Search.Index == "" {
		c.Search.Index = "knowledge"
	}
	if c.Search.TimeoutSecs == 0 {
		c.Search.TimeoutSecs = 30
	}
	if c.Search.DefaultScore == 0 {
		c.Search.DefaultScore = 0.5
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = 1000
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = 200
	}
	if c.RAG.MinChunkSize == 0 {
		c.RAG.MinChunkSize = 50
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = 4
	}
	if c.RAG.SimilarityFloor == 0 {
		c.RAG.SimilarityFloor = 0.1
	}
	if c.RAG.RemoteBonus == 0 {
		c.RAG.RemoteBonus = 0.01
	}
	if c.Storage.DocumentsDir == "" {
		c.Storage.DocumentsDir = "./data/documents"
	}
	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = 3
	}
	if c.Retry.BaseDelayMs == 0 {
		c.Retry.BaseDelayMs = 500
	}
	if c.Retry.MaxDelaySecs == 0 {
		c.Retry.MaxDelaySecs = 10
	}
	if c.Health.CheckIntervalMins == 0 {
		c.Health.CheckIntervalMins = 2
	}
	if c.Health.StabilizationDelaySec == 0 {
		c.Health.StabilizationDelaySec = 5
	}
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("config: telegram.bot_token is required")
	}
	if c.Embedding.APIKey == "" {
		return fmt.Errorf("config: embedding.api_key is required")
	}
	if c.Chat.APIKey == "" {
		return fmt.Errorf("config: chat.api_key is required")
	}
	if c.Search.Endpoint == "" || c.Search.APIKey == "" {
		return fmt.Errorf("config: search.endpoint and search.api_key are required")
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("config: rag.chunk_overlap must be smaller than rag.chunk_size")
	}
	return nil
}

func (c *EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

func (c *EmbeddingConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepMins) * time.Minute
}

func (c *ChatConfig) Timeout() time.Duration   { return time.Duration(c.TimeoutSecs) * time.Second }
func (c *SearchConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSecs) * time.Second }

func (c *RetryConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMs) * time.Millisecond
}

func (c *RetryConfig) MaxDelay() time.Duration { return time.Duration(c.MaxDelaySecs) * time.Second }

func (c *HealthConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMins) * time.Minute
}

func (c *HealthConfig) StabilizationDelay() time.Duration {
	return time.Duration(c.StabilizationDelaySec) * time.Second
}
