package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Hermes     HermesConfig     `yaml:"hermes"`
	Redis      RedisConfig      `yaml:"redis"`
	Matching   MatchingConfig   `yaml:"matching"`
	DataAccess DataAccessConfig `yaml:"data_access"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
	RateLimit   int    `yaml:"rate_limit_per_minute"`
}

type DatabaseConfig struct {
	URL     string `yaml:"url"`
	Migrate bool   `yaml:"migrate"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig enables the roster snapshot cache when Addr is set and
// RosterTTLMs is positive.
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db"`
	RosterTTLMs int    `yaml:"roster_ttl_ms"`
}

type MatchingConfig struct {
	MaxDistanceKm          float64                  `yaml:"max_distance_km"`
	DefaultRadiusKm        float64                  `yaml:"default_radius_km"`
	ImmediateMaxETAMinutes float64                  `yaml:"immediate_max_eta_minutes"`
	LateGraceMinutes       float64                  `yaml:"late_grace_minutes"`
	LatePenaltyPerMinute   float64                  `yaml:"late_penalty_per_minute"`
	FairnessThresholdHours float64                  `yaml:"fairness_threshold_hours"`
	PriorMean              float64                  `yaml:"prior_mean"`
	PriorWeight            float64                  `yaml:"prior_weight"`
	MinCancelProb          float64                  `yaml:"min_cancel_prob"`
	Speeds                 map[string]float64       `yaml:"speeds_kmh"`
	DefaultTransport       string                   `yaml:"default_transport"`
	Licences               map[string]string        `yaml:"licences"`
	Profiles               map[string]WeightProfile `yaml:"profiles"`
	DefaultUrgency         string                   `yaml:"default_urgency"`
	MaxBackups             int                      `yaml:"max_backups"`
	MaxReasons             int                      `yaml:"max_reasons"`
	AllowWorkerReuse       bool                     `yaml:"allow_worker_reuse"`
}

type WeightProfile struct {
	Lambda float64 `yaml:"lambda"`
	Gamma  float64 `yaml:"gamma"`
	Rho    float64 `yaml:"rho"`
	Mu     float64 `yaml:"mu"`
	Nu     float64 `yaml:"nu"`
}

type DataAccessConfig struct {
	RosterTimeoutMs  int `yaml:"roster_timeout_ms"`
	PersistTimeoutMs int `yaml:"persist_timeout_ms"`
	MaxRetries       int `yaml:"max_retries"`
	InitialBackoffMs int `yaml:"initial_backoff_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) RosterTimeout() time.Duration {
	return time.Duration(c.DataAccess.RosterTimeoutMs) * time.Millisecond
}

func (c *Config) PersistTimeout() time.Duration {
	return time.Duration(c.DataAccess.PersistTimeoutMs) * time.Millisecond
}

func (c *Config) InitialBackoff() time.Duration {
	return time.Duration(c.DataAccess.InitialBackoffMs) * time.Millisecond
}

func (c *Config) RosterTTL() time.Duration {
	return time.Duration(c.Redis.RosterTTLMs) * time.Millisecond
}

func (c *Config) RosterCacheEnabled() bool {
	return c.Redis.Addr != "" && c.Redis.RosterTTLMs > 0
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
			RateLimit:   120,
		},
		Hermes: HermesConfig{
			URL: "nats://localhost:4222",
		},
		Matching: defaultMatching(),
		DataAccess: DataAccessConfig{
			RosterTimeoutMs:  5000,
			PersistTimeoutMs: 5000,
			MaxRetries:       2,
			InitialBackoffMs: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate covers the settings the model cannot check itself. Cost-model
// consistency is checked by scoring.Params.
func (c *Config) Validate() error {
	if c.Matching.MaxBackups < 0 || c.Matching.MaxReasons < 0 {
		return fmt.Errorf("max_backups and max_reasons must be non-negative")
	}
	if c.DataAccess.RosterTimeoutMs <= 0 || c.DataAccess.PersistTimeoutMs <= 0 {
		return fmt.Errorf("data access timeouts must be positive")
	}
	if c.DataAccess.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative, got %d", c.DataAccess.MaxRetries)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CREWMATCH_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("CREWMATCH_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("CREWMATCH_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("CREWMATCH_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("CREWMATCH_DATABASE_MIGRATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Database.Migrate = b
		}
	}
	if v := os.Getenv("CREWMATCH_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("CREWMATCH_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CREWMATCH_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CREWMATCH_ROSTER_TTL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.RosterTTLMs = n
		}
	}
	if v := os.Getenv("CREWMATCH_ALLOW_WORKER_REUSE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Matching.AllowWorkerReuse = b
		}
	}
	if v := os.Getenv("CREWMATCH_MAX_DISTANCE_KM"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Matching.MaxDistanceKm = f
		}
	}
	if v := os.Getenv("CREWMATCH_ROSTER_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DataAccess.RosterTimeoutMs = n
		}
	}
	if v := os.Getenv("CREWMATCH_PERSIST_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DataAccess.PersistTimeoutMs = n
		}
	}
	if v := os.Getenv("CREWMATCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CREWMATCH_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
