// Package config holds the recommender service configuration.
package config

import (
	"time"

	platformconfig "github.com/jonesrussell/north-cloud/recommender/internal/platform/config"
)

// Default configuration values.
const (
	defaultServiceName         = "recommender"
	defaultServiceVersion      = "1.0.0"
	defaultServicePort         = 8080
	defaultDBHost              = "localhost"
	defaultDBPort              = "5432"
	defaultDBUser              = "postgres"
	defaultDBName              = "recommender"
	defaultDBSSLMode           = "disable"
	defaultESURL               = "http://localhost:9200"
	defaultESIndex             = "content_items"
	defaultESTimeoutSec        = 30
	defaultRedisAddress        = "localhost:6379"
	defaultLogLevel            = "info"
	defaultLogFormat           = "json"
	defaultEmbeddingModel      = "text-embedding-3-small"
	defaultEmbeddingDim        = 1536
	defaultEmbeddingTimeoutSec = 30
	defaultReducedDim          = 128
	defaultMinSample           = 32
	defaultPageLimit           = 20
	defaultRebuildIntervalMin  = 60
	defaultRecomputeIntervalM  = 10
	defaultWarmIntervalMin     = 15
	defaultPruneIntervalHours  = 24
	defaultRecomputeBatchSize  = 200
	defaultRecomputeWorkers    = 10
	defaultProviderRPS         = 5
)

// Config holds all configuration for the recommender service.
type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	Database      DatabaseConfig      `yaml:"database"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Redis         RedisConfig         `yaml:"redis"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Recommend     RecommendConfig     `yaml:"recommend"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"RECOMMENDER_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"        yaml:"debug"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host     string `env:"POSTGRES_HOST"     yaml:"host"`
	Port     string `env:"POSTGRES_PORT"     yaml:"port"`
	User     string `env:"POSTGRES_USER"     yaml:"user"`
	Password string `env:"POSTGRES_PASSWORD" yaml:"password"`
	Database string `env:"POSTGRES_DB"       yaml:"database"`
	SSLMode  string `env:"POSTGRES_SSLMODE"  yaml:"sslmode"`
}

// ElasticsearchConfig holds Elasticsearch configuration.
type ElasticsearchConfig struct {
	URL      string        `env:"ELASTICSEARCH_URL" yaml:"url"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Index    string        `yaml:"index"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Address  string `env:"REDIS_ADDRESS"  yaml:"address"`
	Password string `env:"REDIS_PASSWORD" yaml:"password"`
	Database int    `yaml:"database"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Endpoint    string        `env:"EMBEDDING_ENDPOINT" yaml:"endpoint"`
	APIKey      string        `env:"EMBEDDING_API_KEY"  yaml:"api_key"`
	Model       string        `yaml:"model"`
	ExpectedDim int           `yaml:"expected_dim"`
	Timeout     time.Duration `yaml:"timeout"`
}

// RecommendConfig holds pipeline tuning and job schedules.
type RecommendConfig struct {
	ReducedDim         int           `yaml:"reduced_dim"`
	MinTrainingSample  int           `yaml:"min_training_sample"`
	PageLimit          int           `yaml:"page_limit"`
	RebuildInterval    time.Duration `yaml:"rebuild_interval"`
	RecomputeInterval  time.Duration `yaml:"recompute_interval"`
	WarmInterval       time.Duration `yaml:"warm_interval"`
	PruneInterval      time.Duration `yaml:"prune_interval"`
	RecomputeBatchSize int           `yaml:"recompute_batch_size"`
	RecomputeWorkers   int           `env:"RECOMMENDER_CONCURRENCY" yaml:"recompute_workers"`
	ProviderRPS        int           `yaml:"provider_rps"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from the specified path.
func Load(path string) (*Config, error) {
	return platformconfig.LoadWithDefaults[Config](path, setDefaults)
}

// Defaults returns a config populated with default values only, for running
// without a config file.
func Defaults() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	setElasticsearchDefaults(&cfg.Elasticsearch)
	setRedisDefaults(&cfg.Redis)
	setEmbeddingDefaults(&cfg.Embedding)
	setRecommendDefaults(&cfg.Recommend)
	setLoggingDefaults(&cfg.Logging)
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
	if s.Port == 0 {
		s.Port = defaultServicePort
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Host == "" {
		d.Host = defaultDBHost
	}
	if d.Port == "" {
		d.Port = defaultDBPort
	}
	if d.User == "" {
		d.User = defaultDBUser
	}
	if d.Database == "" {
		d.Database = defaultDBName
	}
	if d.SSLMode == "" {
		d.SSLMode = defaultDBSSLMode
	}
}

func setElasticsearchDefaults(e *ElasticsearchConfig) {
	if e.URL == "" {
		e.URL = defaultESURL
	}
	if e.Index == "" {
		e.Index = defaultESIndex
	}
	if e.Timeout == 0 {
		e.Timeout = defaultESTimeoutSec * time.Second
	}
}

func setRedisDefaults(r *RedisConfig) {
	if r.Address == "" {
		r.Address = defaultRedisAddress
	}
}

func setEmbeddingDefaults(e *EmbeddingConfig) {
	if e.Model == "" {
		e.Model = defaultEmbeddingModel
	}
	if e.ExpectedDim == 0 {
		e.ExpectedDim = defaultEmbeddingDim
	}
	if e.Timeout == 0 {
		e.Timeout = defaultEmbeddingTimeoutSec * time.Second
	}
}

func setRecommendDefaults(r *RecommendConfig) {
	if r.ReducedDim == 0 {
		r.ReducedDim = defaultReducedDim
	}
	if r.MinTrainingSample == 0 {
		r.MinTrainingSample = defaultMinSample
	}
	if r.PageLimit == 0 {
		r.PageLimit = defaultPageLimit
	}
	if r.RebuildInterval == 0 {
		r.RebuildInterval = defaultRebuildIntervalMin * time.Minute
	}
	if r.RecomputeInterval == 0 {
		r.RecomputeInterval = defaultRecomputeIntervalM * time.Minute
	}
	if r.WarmInterval == 0 {
		r.WarmInterval = defaultWarmIntervalMin * time.Minute
	}
	if r.PruneInterval == 0 {
		r.PruneInterval = defaultPruneIntervalHours * time.Hour
	}
	if r.RecomputeBatchSize == 0 {
		r.RecomputeBatchSize = defaultRecomputeBatchSize
	}
	if r.RecomputeWorkers == 0 {
		r.RecomputeWorkers = defaultRecomputeWorkers
	}
	if r.ProviderRPS == 0 {
		r.ProviderRPS = defaultProviderRPS
	}
}

func setLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}
	if l.Format == "" {
		l.Format = defaultLogFormat
	}
}
