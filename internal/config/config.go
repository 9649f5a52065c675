// Package config loads and holds the application configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Conf is the process-wide configuration populated by Init.
var Conf Config

// Config mirrors the layout of configs/config.yaml.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Log           LogConfig           `mapstructure:"log"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	Chunking      ChunkingConfig      `mapstructure:"chunking"`
	Retrieval     RetrievalConfig     `mapstructure:"retrieval"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Seed          SeedConfig          `mapstructure:"seed"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// AuthConfig holds the shared secret expected in the service key header.
type AuthConfig struct {
	ServiceKey string `mapstructure:"service_key"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// DatabaseConfig groups the relational store and Redis settings.
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig holds the document and chunk store connection.
type MySQLConfig struct {
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// RedisConfig holds the Redis connection used for the embedding cache and retry counters.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// EmbeddingConfig configures the OpenAI-compatible embedding service.
type EmbeddingConfig struct {
	APIKey          string `mapstructure:"api_key"`
	BaseURL         string `mapstructure:"base_url"`
	Model           string `mapstructure:"model"`
	Dimensions      int    `mapstructure:"dimensions"`
	CacheTTLMinutes int    `mapstructure:"cache_ttl_minutes"`
}

// ChunkingConfig configures the text chunker.
type ChunkingConfig struct {
	MaxSize int `mapstructure:"max_size"`
}

// RetrievalConfig configures candidate selection and result sizing.
type RetrievalConfig struct {
	// Backend is "scan" (filtered scan plus in-memory rerank) or "elasticsearch".
	Backend      string `mapstructure:"backend"`
	CandidateCap int    `mapstructure:"candidate_cap"`
	DefaultLimit int    `mapstructure:"default_limit"`
}

// ElasticsearchConfig holds the chunk index connection.
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig holds the object store used to archive ingested source text.
type MinIOConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// KafkaConfig holds the asynchronous ingestion queue settings.
type KafkaConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Brokers     string `mapstructure:"brokers"`
	Topic       string `mapstructure:"topic"`
	GroupID     string `mapstructure:"group_id"`
	MaxAttempts int    `mapstructure:"max_attempts"`
}

// SeedConfig points at a directory of files imported on startup.
type SeedConfig struct {
	Dir string `mapstructure:"dir"`
}

// Init reads the YAML file at configPath into Conf and panics on failure.
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}

// Load reads the YAML file at configPath, applies defaults and
// environment overrides (e.g. AUTH_SERVICE_KEY for auth.service_key).
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("auth.service_key", "")
	v.SetDefault("database.mysql.dsn", "")
	v.SetDefault("database.redis.addr", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "https://api.openai.com/v1")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 1536)
	v.SetDefault("chunking.max_size", 1000)
	v.SetDefault("retrieval.backend", "scan")
	v.SetDefault("retrieval.candidate_cap", 200)
	v.SetDefault("retrieval.default_limit", 8)
	v.SetDefault("elasticsearch.index_name", "lawton_chunks")
	v.SetDefault("minio.bucket_name", "lawton-sources")
	v.SetDefault("kafka.topic", "lawton-ingest")
	v.SetDefault("kafka.group_id", "lawton-engine-consumer")
	v.SetDefault("kafka.max_attempts", 3)
}
