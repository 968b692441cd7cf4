package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"commerce-import-layer/internal/domain"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config is the importer's runtime configuration
type Config struct {
	Env     string        `yaml:"env" env:"APP_ENV" env-default:"development"`
	HTTP    HTTPConfig    `yaml:"http"`
	Log     LogConfig     `yaml:"log"`
	Mongo   MongoConfig   `yaml:"mongo"`
	Redis   RedisConfig   `yaml:"redis"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Import  ImportConfig  `yaml:"import"`
	Rates   RatesConfig   `yaml:"rates"`
	Shopify ShopifyConfig `yaml:"shopify"`
	AWS     AWSConfig     `yaml:"aws"`
	OAuth   OAuthConfig   `yaml:"oauth"`
}

type HTTPConfig struct {
	Port           string   `yaml:"port" env:"PORT" env-default:"8080"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type MongoConfig struct {
	URI      string `yaml:"uri" env:"MONGODB_URI" env-default:"mongodb://localhost:27017"`
	Database string `yaml:"database" env:"MONGODB_DATABASE" env-default:"commerce"`
}

// RedisConfig selects the shared counter store. An empty Addr keeps counters in process.
type RedisConfig struct {
	Addr      string `yaml:"addr" env:"REDIS_ADDR"`
	Password  string `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	KeyPrefix string `yaml:"key_prefix" env:"REDIS_KEY_PREFIX" env-default:"import:"`
}

// KafkaConfig selects the notification sink. Without brokers notifications are logged.
type KafkaConfig struct {
	Brokers           []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	NotificationTopic string   `yaml:"notification_topic" env:"KAFKA_NOTIFICATION_TOPIC" env-default:"notifications"`
}

type ImportConfig struct {
	Workers           int           `yaml:"workers" env:"IMPORT_WORKERS" env-default:"4"`
	HourlyInterval    time.Duration `yaml:"hourly_interval" env:"IMPORT_HOURLY_INTERVAL" env-default:"0s"` // 0 disables the in-process schedule
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"IMPORT_REQUESTS_PER_MINUTE" env-default:"20"`
	RetryAttempts     int           `yaml:"retry_attempts" env:"IMPORT_RETRY_ATTEMPTS" env-default:"3"`
	RetryInterval     time.Duration `yaml:"retry_interval" env:"IMPORT_RETRY_INTERVAL" env-default:"60s"`
}

type RatesConfig struct {
	URL      string `yaml:"url" env:"RATES_SERVICE_URL" env-default:"http://localhost:8090"`
	FaireURL string `yaml:"faire_url" env:"FAIRE_RATES_SERVICE_URL"` // Optional ECB-backed service used for Faire
}

type ShopifyConfig struct {
	APIKey     string `yaml:"api_key" env:"SHOPIFY_API_KEY"`
	APISecret  string `yaml:"api_secret" env:"SHOPIFY_API_SECRET"`
	APIVersion string `yaml:"api_version" env:"SHOPIFY_API_VERSION" env-default:"2024-07"`
}

type AWSConfig struct {
	AccessKeyID     string `yaml:"access_key_id" env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"AWS_SECRET_ACCESS_KEY"`
	Region          string `yaml:"region" env:"AWS_REGION" env-default:"us-east-1"`
	RoleARN         string `yaml:"role_arn" env:"AMAZON_SP_ROLE_ARN"`
}

// OAuthClient is one vendor's refresh-token grant configuration
type OAuthClient struct {
	ClientID     string `yaml:"client_id" env:"CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"CLIENT_SECRET"`
	TokenURL     string `yaml:"token_url" env:"TOKEN_URL"`
}

// Configured reports whether the client can refresh tokens
func (c OAuthClient) Configured() bool {
	return c.ClientID != "" && c.TokenURL != ""
}

type OAuthConfig struct {
	Etsy        OAuthClient `yaml:"etsy" env-prefix:"ETSY_"`
	PayPal      OAuthClient `yaml:"paypal" env-prefix:"PAYPAL_"`
	Square      OAuthClient `yaml:"square" env-prefix:"SQUARE_"`
	Squarespace OAuthClient `yaml:"squarespace" env-prefix:"SQUARESPACE_"`
	Wix         OAuthClient `yaml:"wix" env-prefix:"WIX_"`
	QuickBooks  OAuthClient `yaml:"quickbooks" env-prefix:"QUICKBOOKS_"`
}

// Clients returns the configured OAuth clients keyed by provider
func (c OAuthConfig) Clients() map[domain.Provider]OAuthClient {
	all := map[domain.Provider]OAuthClient{
		domain.ProviderEtsy:        c.Etsy,
		domain.ProviderPayPal:      c.PayPal,
		domain.ProviderSquare:      c.Square,
		domain.ProviderSquarespace: c.Squarespace,
		domain.ProviderWix:         c.Wix,
		domain.ProviderQuickBooks:  c.QuickBooks,
	}
	out := make(map[domain.Provider]OAuthClient, len(all))
	for p, client := range all {
		if client.Configured() {
			out[p] = client
		}
	}
	return out
}

// Load reads .env when present, then an optional YAML file named by CONFIG_PATH,
// then the environment. Environment values win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &cfg, nil
}

// Logger builds the root logger at the configured level
func (c *Config) Logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil || c.Log.Level == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}
