package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	commoncfg "github.com/mehedi-exx/Hr/common/config"
	"github.com/mehedi-exx/Hr/internal/domain"
)

// Config hr-bot process configuration.
// Precedence: defaults, then the optional YAML file, then environment variables.
type Config struct {
	Bot       BotConfig                `yaml:"bot"`
	HTTP      HTTPConfig               `yaml:"http"`
	DBEnabled bool                     `yaml:"db_enabled"`
	Database  commoncfg.DatabaseConfig `yaml:"database"`
	Redis     commoncfg.RedisConfig    `yaml:"redis"`
	Payment   PaymentConfig            `yaml:"payment"`
	MQTT      MQTTConfig               `yaml:"mqtt"`
	Events    EventsConfig             `yaml:"events"`
	Log       LogConfig                `yaml:"log"`
	Version   string                   `yaml:"version"`
}

type BotConfig struct {
	Token          string        `yaml:"token"`
	APIURL         string        `yaml:"api_url"`
	AdminIDs       []int64       `yaml:"admin_ids"`
	PollTimeout    time.Duration `yaml:"poll_timeout"`
	SessionBackend string        `yaml:"session_backend"` // redis | memory
	SessionTTL     time.Duration `yaml:"session_ttl"`
}

type HTTPConfig struct {
	Addr      string `yaml:"addr"`
	PublicURL string `yaml:"public_url"` // base of the webhook URL handed to the processor
}

type PaymentConfig struct {
	Gateway       string            `yaml:"gateway"` // mock | rest
	GatewayURL    string            `yaml:"gateway_url"`
	APIKey        string            `yaml:"api_key"`
	WebhookSecret string            `yaml:"webhook_secret"`
	Currency      string            `yaml:"currency"`
	Prices        map[string]string `yaml:"prices"` // plan tag -> amount, seeds the defaults
}

type MQTTConfig struct {
	commoncfg.MQTTConfig `yaml:",inline"`

	Enabled     bool   `yaml:"enabled"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type EventsConfig struct {
	Stream string `yaml:"stream"` // empty disables the Redis Streams notifier
	MaxLen int64  `yaml:"max_len"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default values used when neither the file nor the environment sets a key.
func Default() *Config {
	cfg := &Config{}
	cfg.Bot.APIURL = "https://api.telegram.org"
	cfg.Bot.PollTimeout = 30 * time.Second
	cfg.Bot.SessionBackend = "redis"
	cfg.Bot.SessionTTL = 30 * time.Minute
	cfg.HTTP.Addr = ":8080"

	cfg.DBEnabled = true
	cfg.Database = commoncfg.DatabaseConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "postgres",
		Password:        "postgres",
		Database:        "hrbot",
		SSLMode:         "disable",
		MaxConns:        20,
		MaxIdle:         5,
		ConnMaxLifetime: 30 * time.Minute,
	}
	cfg.Redis.Addr = "localhost:6379"

	cfg.Payment.Gateway = "mock"
	cfg.Payment.Currency = "USD"
	cfg.Payment.Prices = map[string]string{}

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "hr-bot"
	cfg.MQTT.QoS = 1
	cfg.MQTT.TopicPrefix = "hrbot/events"

	cfg.Events.MaxLen = 10000
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.Version = "1.0.0"
	return cfg
}

// LoadEnvFiles loads KEY=VALUE files that exist; variables already set in the process win.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to stat env file %s: %w", p, err)
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
	}
	return nil
}

// Load builds the configuration. path may be empty (no YAML overlay).
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Bot.Token = getEnv("BOT_TOKEN", c.Bot.Token)
	c.Bot.APIURL = getEnv("BOT_API_URL", c.Bot.APIURL)
	if raw := os.Getenv("ADMIN_IDS"); raw != "" {
		ids, err := parseIDs(raw)
		if err != nil {
			return fmt.Errorf("invalid ADMIN_IDS: %w", err)
		}
		c.Bot.AdminIDs = ids
	}
	// single-admin variable of older deployments
	if raw := os.Getenv("MAIN_ADMIN_TELEGRAM_ID"); raw != "" {
		ids, err := parseIDs(raw)
		if err != nil {
			return fmt.Errorf("invalid MAIN_ADMIN_TELEGRAM_ID: %w", err)
		}
		c.Bot.AdminIDs = mergeIDs(c.Bot.AdminIDs, ids)
	}
	c.Bot.PollTimeout = getEnvDuration("BOT_POLL_TIMEOUT", c.Bot.PollTimeout)
	c.Bot.SessionBackend = strings.ToLower(getEnv("SESSION_BACKEND", c.Bot.SessionBackend))
	c.Bot.SessionTTL = getEnvDuration("SESSION_TTL", c.Bot.SessionTTL)

	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.PublicURL = getEnv("HTTP_PUBLIC_URL", c.HTTP.PublicURL)

	c.DBEnabled = getEnvBool("DB_ENABLED", c.DBEnabled)
	c.Database.LoadFromEnv("DB")
	c.Redis.LoadFromEnv("REDIS")

	c.Payment.Gateway = strings.ToLower(getEnv("PAYMENT_GATEWAY", c.Payment.Gateway))
	c.Payment.GatewayURL = getEnv("PAYMENT_GATEWAY_URL", c.Payment.GatewayURL)
	c.Payment.APIKey = getEnv("PAYMENT_GATEWAY_API_KEY", c.Payment.APIKey)
	c.Payment.WebhookSecret = getEnv("PAYMENT_WEBHOOK_SECRET", c.Payment.WebhookSecret)
	c.Payment.Currency = getEnv("PAYMENT_CURRENCY", c.Payment.Currency)
	if c.Payment.Prices == nil {
		c.Payment.Prices = map[string]string{}
	}
	for env, plan := range map[string]string{"PRICE_1M": "1m", "PRICE_6M": "6m", "PRICE_LIFETIME": "lifetime"} {
		if v := os.Getenv(env); v != "" {
			c.Payment.Prices[plan] = v
		}
	}

	c.MQTT.Enabled = getEnvBool("MQTT_ENABLED", c.MQTT.Enabled)
	c.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", c.MQTT.TopicPrefix)
	c.MQTT.MQTTConfig.LoadFromEnv("MQTT")

	c.Events.Stream = getEnv("EVENTS_STREAM", c.Events.Stream)
	c.Events.MaxLen = int64(parseInt(getEnv("EVENTS_STREAM_MAXLEN", ""), int(c.Events.MaxLen)))

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Version = getEnv("BOT_VERSION", c.Version)
	return nil
}

// Validate rejects combinations the process cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Bot.Token == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	switch c.Bot.SessionBackend {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("SESSION_BACKEND must be redis or memory, got %q", c.Bot.SessionBackend))
	}
	if c.Bot.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	switch c.Payment.Gateway {
	case "mock":
	case "rest":
		if c.Payment.GatewayURL == "" {
			errs = append(errs, errors.New("PAYMENT_GATEWAY_URL is required for the rest gateway"))
		}
	default:
		errs = append(errs, fmt.Errorf("PAYMENT_GATEWAY must be mock or rest, got %q", c.Payment.Gateway))
	}
	for plan, v := range c.Payment.Prices {
		if _, err := domain.ParsePrice(v); err != nil {
			errs = append(errs, fmt.Errorf("price of plan %s: %q: %w", plan, v, err))
		}
	}
	return errors.Join(errs...)
}

// WebhookURL public URL of the payment callback endpoint, empty when unknown.
func (c *Config) WebhookURL() string {
	if c.HTTP.PublicURL == "" {
		return ""
	}
	return strings.TrimSuffix(c.HTTP.PublicURL, "/") + "/webhooks/payment"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// bare numbers are seconds
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a numeric id", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func mergeIDs(a, b []int64) []int64 {
	seen := make(map[int64]bool, len(a))
	for _, id := range a {
		seen[id] = true
	}
	for _, id := range b {
		if !seen[id] {
			a = append(a, id)
			seen[id] = true
		}
	}
	return a
}
