package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode           Mode          `mapstructure:"mode" validate:"oneof=offline online"`
	HTTPAddr       string        `mapstructure:"http_addr" validate:"required"`
	PublicURL      string        `mapstructure:"public_url" validate:"omitempty,url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`

	DB    DBConfig    `mapstructure:"db"`
	Auth  AuthConfig  `mapstructure:"auth"`
	CORS  CORSConfig  `mapstructure:"cors"`
	Redis RedisConfig `mapstructure:"redis"`
	AMQP  AMQPConfig  `mapstructure:"amqp"`
	Exam  ExamConfig  `mapstructure:"exam"`
}

type DBConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=sqlite postgres mysql memory"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

type AuthConfig struct {
	HMACSecret       string        `mapstructure:"hmac_secret" validate:"required,min=8"`
	TokenTTL         time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
	EnableLocalLogin bool          `mapstructure:"enable_local_login"`
	// AllowClaimRole trusts the token's role when the user is not in the
	// users table. Offline deployments only.
	AllowClaimRole bool `mapstructure:"allow_claim_role"`
}

type CORSConfig struct {
	OriginsOnline  []string `mapstructure:"origins_online"`
	OriginsOffline []string `mapstructure:"origins_offline"`
}

// Redis caching is enabled when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// Event publishing to RabbitMQ is enabled when URL is set.
type AMQPConfig struct {
	URL      string `mapstructure:"url" validate:"omitempty,url"`
	Exchange string `mapstructure:"exchange" validate:"required_with=URL"`
}

type ExamConfig struct {
	BothVisibilityPolicy string `mapstructure:"both_visibility_policy" validate:"oneof=enrollment_optional enrollment_required"`
}

// CORSOrigins returns the origins for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORS.OriginsOnline
	}
	return c.CORS.OriginsOffline
}

// envKeys maps config keys to the environment variables that override them.
var envKeys = map[string]string{
	"mode":                        "MODE",
	"http_addr":                   "HTTP_ADDR",
	"public_url":                  "PUBLIC_URL",
	"request_timeout":             "REQUEST_TIMEOUT",
	"db.driver":                   "DB_DRIVER",
	"db.dsn":                      "DB_DSN",
	"db.max_open_conns":           "DB_MAX_OPEN_CONNS",
	"db.max_idle_conns":           "DB_MAX_IDLE_CONNS",
	"db.conn_max_lifetime":        "DB_CONN_MAX_LIFETIME",
	"auth.hmac_secret":            "AUTH_HMAC_SECRET",
	"auth.token_ttl":              "AUTH_TOKEN_TTL",
	"auth.enable_local_login":     "ENABLE_LOCAL_AUTH",
	"auth.allow_claim_role":       "AUTH_ALLOW_CLAIM_ROLE",
	"cors.origins_online":         "CORS_ORIGINS_ONLINE",
	"cors.origins_offline":        "CORS_ORIGINS_OFFLINE",
	"redis.addr":                  "REDIS_ADDR",
	"redis.password":              "REDIS_PASSWORD",
	"redis.db":                    "REDIS_DB",
	"redis.ttl":                   "REDIS_TTL",
	"amqp.url":                    "AMQP_URL",
	"amqp.exchange":               "AMQP_EXCHANGE",
	"exam.both_visibility_policy": "EXAM_BOTH_VISIBILITY_POLICY",
}

type Loader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

// NewLoader reads configFile when given; otherwise it looks for
// examd.yaml in the working directory. A missing file is not an error.
func NewLoader(configFile string) (*Loader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("examd")
		v.AddConfigPath(".")
	}
	return &Loader{viper: v, validator: validate, translator: trans}, nil
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !isNotExist(err) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func (l *Loader) Load() (*Config, error) {
	v := l.viper

	v.SetDefault("mode", string(ModeOffline))
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("auth.hmac_secret", "supersecret-dev-key")
	v.SetDefault("auth.token_ttl", 8*time.Hour)
	v.SetDefault("auth.enable_local_login", true)
	v.SetDefault("cors.origins_online", []string{"https://lms.mindengage.ai"})
	v.SetDefault("cors.origins_offline", []string{"http://localhost:3000", "http://localhost:3010", "http://localhost:3020"})
	v.SetDefault("redis.ttl", 5*time.Minute)
	v.SetDefault("amqp.exchange", "studentexam.events")
	v.SetDefault("exam.both_visibility_policy", "enrollment_optional")

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s environment variable: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isNotExist(err) {
			return nil, fmt.Errorf("configuration file found but could not be read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := l.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		var msgs []string
		for _, e := range validationErrors {
			msgs = append(msgs, e.Translate(l.translator))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(msgs, ", "))
	}
	return &cfg, nil
}
