package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"dataagentjp.io/querycore/internal/domain"
)

type Config struct {
	Env            string
	Port           string
	Debug          bool
	NodeID         int64
	Datasource     domain.Dialect
	SystemID       string
	MetadataPath   string
	DefaultTimeout int // seconds
	MaxResults     int

	OTel       OTelConfig
	Oracle     OracleConfig
	DuckDB     DuckDBConfig
	Qdrant     QdrantConfig
	ArangoDB   ArangoDBConfig
	LLM        LLMConfig
	Redis      RedisConfig
	MasterData MasterDataConfig
	Parser     ParserConfig
	Executor   ExecutorConfig
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type OracleConfig struct {
	Host        string
	Port        int
	ServiceName string
	Username    string
	Password    string
}

// DuckDBConfig carries the S3 session settings applied to every fresh
// connection plus local resource bounds. URLStyle is always "path" for
// MinIO-compatible endpoints.
type DuckDBConfig struct {
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool
	URLStyle    string
	MemoryLimit string
	Threads     int
	TempDir     string
}

type QdrantConfig struct {
	Host             string
	Port             int
	APIKey           string
	CollectionPrefix string
}

type ArangoDBConfig struct {
	URL              string
	Username         string
	Password         string
	Database         string
	CollectionPrefix string
}

type LLMConfig struct {
	Provider    string // "ollama" or "openai"
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	NumPredict  int
	Timeout     time.Duration
}

type RedisConfig struct {
	URL string
}

type MasterDataConfig struct {
	DatabaseURL string
}

type ParserConfig struct {
	RuleThreshold  float64
	ConfidenceGate float64
	CacheTTL       time.Duration
	CacheSize      int
	IntentAliases  map[string]string
}

type ExecutorConfig struct {
	ResultCacheSize     int
	ResultCacheTTL      time.Duration
	ResultCacheMaxRows  int
	ResultCacheDisabled bool
}

// Load reads configuration from environment variables. In development a local
// .env file is loaded first so the server and console share one setup.
func Load() (Config, error) {
	if getEnv("DATA_AGENT_JP_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	datasource, err := domain.ParseDialect(getEnv("DATA_AGENT_JP_DATASOURCE", "DUCKDB"))
	if err != nil {
		return Config{}, fmt.Errorf("DATA_AGENT_JP_DATASOURCE: %w", err)
	}

	cfg := Config{
		Env:            getEnv("DATA_AGENT_JP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		Debug:          getEnvBool("DATA_AGENT_JP_DEBUG", false),
		NodeID:         int64(getEnvInt("DATA_AGENT_JP_NODE_ID", 1)),
		Datasource:     datasource,
		SystemID:       getEnv("DATA_AGENT_JP_SYSTEM_ID", "erp_jp"),
		MetadataPath:   getEnv("DATA_AGENT_JP_METADATA_PATH", "./metadata"),
		DefaultTimeout: getEnvInt("DATA_AGENT_JP_DEFAULT_TIMEOUT", 30),
		MaxResults:     getEnvInt("DATA_AGENT_JP_MAX_RESULTS", 1000),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "querycore"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Oracle: OracleConfig{
			Host:        getEnv("DATA_AGENT_JP_ORACLE_HOST", ""),
			Port:        getEnvInt("DATA_AGENT_JP_ORACLE_PORT", 1521),
			ServiceName: getEnv("DATA_AGENT_JP_ORACLE_SERVICE", ""),
			Username:    getEnv("DATA_AGENT_JP_ORACLE_USER", ""),
			Password:    getEnv("DATA_AGENT_JP_ORACLE_PASSWORD", ""),
		},
		DuckDB: DuckDBConfig{
			S3Endpoint:  getEnv("DATA_AGENT_JP_S3_ENDPOINT", ""),
			S3AccessKey: getEnv("DATA_AGENT_JP_S3_ACCESS_KEY", ""),
			S3SecretKey: getEnv("DATA_AGENT_JP_S3_SECRET_KEY", ""),
			S3Bucket:    getEnv("DATA_AGENT_JP_S3_BUCKET", "erp-datalake"),
			S3Region:    getEnv("DATA_AGENT_JP_S3_REGION", "ap-northeast-1"),
			S3UseSSL:    getEnvBool("DATA_AGENT_JP_S3_USE_SSL", false),
			URLStyle:    "path",
			MemoryLimit: getEnv("DATA_AGENT_JP_DUCKDB_MEMORY_LIMIT", "4GB"),
			Threads:     getEnvInt("DATA_AGENT_JP_DUCKDB_THREADS", 4),
			TempDir:     getEnv("DATA_AGENT_JP_DUCKDB_TEMP_DIR", "/tmp/querycore-duckdb"),
		},
		Qdrant: QdrantConfig{
			Host:             getEnv("DATA_AGENT_JP_QDRANT_HOST", ""),
			Port:             getEnvInt("DATA_AGENT_JP_QDRANT_PORT", 6333),
			APIKey:           getEnv("DATA_AGENT_JP_QDRANT_API_KEY", ""),
			CollectionPrefix: getEnv("DATA_AGENT_JP_QDRANT_COLLECTION_PREFIX", "dataagent_"),
		},
		ArangoDB: ArangoDBConfig{
			URL:              getEnv("DATA_AGENT_JP_ARANGO_URL", ""),
			Username:         getEnv("DATA_AGENT_JP_ARANGO_USERNAME", ""),
			Password:         getEnv("DATA_AGENT_JP_ARANGO_PASSWORD", ""),
			Database:         getEnv("DATA_AGENT_JP_ARANGO_DATABASE", ""),
			CollectionPrefix: getEnv("DATA_AGENT_JP_ARANGO_COLLECTION_PREFIX", "dataagent_"),
		},
		LLM: LLMConfig{
			Provider:    getEnv("DATA_AGENT_JP_LLM_PROVIDER", "ollama"),
			BaseURL:     getEnv("DATA_AGENT_JP_LLM_BASE_URL", "http://localhost:11434"),
			APIKey:      getEnv("DATA_AGENT_JP_LLM_API_KEY", ""),
			Model:       getEnv("DATA_AGENT_JP_LLM_MODEL", "qwen2.5:7b"),
			Temperature: getEnvFloat("DATA_AGENT_JP_LLM_TEMPERATURE", 0.03),
			NumPredict:  getEnvInt("DATA_AGENT_JP_LLM_NUM_PREDICT", 256),
			Timeout:     time.Duration(getEnvInt("DATA_AGENT_JP_LLM_TIMEOUT", 30)) * time.Second,
		},
		Redis: RedisConfig{
			URL: getEnv("DATA_AGENT_JP_REDIS_URL", ""),
		},
		MasterData: MasterDataConfig{
			DatabaseURL: getEnv("DATA_AGENT_JP_MASTERDATA_DATABASE_URL", ""),
		},
		Parser: ParserConfig{
			RuleThreshold:  getEnvFloat("DATA_AGENT_JP_PARSER_RULE_THRESHOLD", 0.5),
			ConfidenceGate: getEnvFloat("DATA_AGENT_JP_PARSER_CONFIDENCE_GATE", 0.3),
			CacheTTL:       time.Duration(getEnvInt("DATA_AGENT_JP_PARSER_CACHE_TTL", 7200)) * time.Second,
			CacheSize:      getEnvInt("DATA_AGENT_JP_PARSER_CACHE_SIZE", 1000),
			IntentAliases:  parseAliases(getEnv("DATA_AGENT_JP_INTENT_ALIASES", "")),
		},
		Executor: ExecutorConfig{
			ResultCacheSize:     getEnvInt("DATA_AGENT_JP_RESULT_CACHE_SIZE", 50),
			ResultCacheTTL:      time.Duration(getEnvInt("DATA_AGENT_JP_RESULT_CACHE_TTL", 600)) * time.Second,
			ResultCacheMaxRows:  getEnvInt("DATA_AGENT_JP_RESULT_CACHE_MAX_ROWS", 5000),
			ResultCacheDisabled: getEnvBool("DATA_AGENT_JP_RESULT_CACHE_DISABLED", false),
		},
	}

	if cfg.Datasource == domain.DialectOracle && !cfg.Oracle.Enabled() {
		return Config{}, fmt.Errorf("DATA_AGENT_JP_ORACLE_HOST, DATA_AGENT_JP_ORACLE_SERVICE and DATA_AGENT_JP_ORACLE_USER are required when DATA_AGENT_JP_DATASOURCE=ORACLE")
	}
	if cfg.DefaultTimeout <= 0 {
		return Config{}, fmt.Errorf("DATA_AGENT_JP_DEFAULT_TIMEOUT must be positive")
	}
	if cfg.MaxResults <= 0 {
		return Config{}, fmt.Errorf("DATA_AGENT_JP_MAX_RESULTS must be positive")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c OracleConfig) Enabled() bool {
	return c.Host != "" && c.ServiceName != "" && c.Username != ""
}

func (c QdrantConfig) Enabled() bool {
	return c.Host != ""
}

func (c ArangoDBConfig) Enabled() bool {
	return c.URL != "" && c.Username != "" && c.Database != ""
}

func (c LLMConfig) Enabled() bool {
	switch c.Provider {
	case "ollama":
		return c.BaseURL != ""
	case "openai":
		return c.APIKey != ""
	default:
		return false
	}
}

func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

func (c MasterDataConfig) Enabled() bool {
	return c.DatabaseURL != ""
}

// parseAliases reads "ALIAS=TARGET,ALIAS2=TARGET2" pairs.
func parseAliases(s string) map[string]string {
	aliases := make(map[string]string)
	if s == "" {
		return aliases
	}
	for _, pair := range strings.Split(s, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 2 {
			aliases[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
		}
	}
	return aliases
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
