package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultJWTSecret is the development signing key used when none is configured
const DefaultJWTSecret = "narsus-dev-secret-change-me"

// DefaultCompletionMessage is the overall feedback used when no overall rule matches
const DefaultCompletionMessage = "Thank you for completing the survey. Your results are summarized above."

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Log       LogConfig       `mapstructure:"log"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// Expiry is the lifetime of issued tokens
func (c JWTConfig) Expiry() time.Duration {
	return time.Duration(c.ExpireHours) * time.Hour
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	LoginPerMinute int `mapstructure:"login_per_minute"`
}

type CacheConfig struct {
	SurveyTTLSeconds int `mapstructure:"survey_ttl_seconds"`
	ResultTTLSeconds int `mapstructure:"result_ttl_seconds"`
}

// SurveyTTL is how long a survey-for-taking payload stays cached
func (c CacheConfig) SurveyTTL() time.Duration {
	return time.Duration(c.SurveyTTLSeconds) * time.Second
}

// ResultTTL is how long a submitted result stays cached
func (c CacheConfig) ResultTTL() time.Duration {
	return time.Duration(c.ResultTTLSeconds) * time.Second
}

type LogConfig struct {
	File string `mapstructure:"file"`
}

type ScoringConfig struct {
	CompletionMessage string `mapstructure:"completion_message"`
}

// IsDebug reports whether the server runs in debug mode
func (c *Config) IsDebug() bool { return c.Server.Mode == "debug" }

// UsesDefaultSecret reports whether tokens are signed with the development key
func (c *Config) UsesDefaultSecret() bool { return c.JWT.Secret == DefaultJWTSecret }

// Load reads config.yaml from path (and ./config) when present, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Redis.Addr = strings.TrimPrefix(cfg.Redis.Addr, "redis://")
	cfg.CORS.AllowedOrigins = splitOrigins(cfg.CORS.AllowedOrigins)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "narsus")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", DefaultJWTSecret)
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("rate_limit.login_per_minute", 20)
	v.SetDefault("cache.survey_ttl_seconds", 300)
	v.SetDefault("cache.result_ttl_seconds", 3600)
	v.SetDefault("scoring.completion_message", DefaultCompletionMessage)
}

func bindEnv(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// Storage
	v.BindEnv("mongo.uri", "MONGO_URI")
	v.BindEnv("mongo.database", "DATABASE_NAME")
	v.BindEnv("redis.addr", "REDIS_URI")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// Auth
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("jwt.expire_hours", "JWT_EXPIRE_HOURS")
	v.BindEnv("cors.allowed_origins", "CORS_ALLOWED_ORIGINS")
	v.BindEnv("rate_limit.login_per_minute", "LOGIN_RATE_PER_MINUTE")

	v.BindEnv("log.file", "LOG_FILE")
}

// splitOrigins accepts either a YAML list or one comma separated env value
func splitOrigins(in []string) []string {
	var out []string
	for _, item := range in {
		for _, o := range strings.Split(item, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
