package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultEstimatorTimeout   = 20 * time.Second
	defaultAlertWindowHours   = 48
	defaultProductImageBucket = "product-images"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	SessionSecret       string
	DatabaseURL         string
	RedisURL            string
	SupabaseURL         string // storage sign URLs and public URLs
	SupabaseSecretKey   string // service_role key, not anon key
	ProductImageBucket  string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string

	// Expiry estimation. Empty endpoint disables it.
	EstimatorEndpoint string
	EstimatorAPIKey   string
	EstimatorTimeout  time.Duration

	ExpiryAlertWindowHours int
	CronSecret             string

	// Seller emails via Brevo. Empty key disables them.
	BrevoAPIKey string
	MailFrom    string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()
	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("EXPIRY_ALERT_WINDOW_HOURS", defaultAlertWindowHours)
	v.SetDefault("PRODUCT_IMAGE_BUCKET", defaultProductImageBucket)

	env := v.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := v.GetString("DATABASE_URL")
	if dbURL == "" {
		switch env {
		case "production":
			dbURL = v.GetString("DATABASE_URL_PROD")
		case "test":
			dbURL = v.GetString("DATABASE_URL_TEST")
		default:
			dbURL = v.GetString("DATABASE_URL_DEV")
		}
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	brevoKey := v.GetString("BREVO_API_KEY")
	if brevoKey == "" {
		brevoKey = v.GetString("SENDINBLUE_API_KEY")
	}

	window := v.GetInt("EXPIRY_ALERT_WINDOW_HOURS")
	if window <= 0 {
		window = defaultAlertWindowHours
	}

	return &Config{
		Env:                    env,
		Port:                   v.GetString("PORT"),
		LogLevel:               v.GetString("LOG_LEVEL"),
		SessionSecret:          v.GetString("SESSION_SECRET"),
		DatabaseURL:            dbURL,
		RedisURL:               v.GetString("REDIS_URL"),
		SupabaseURL:            v.GetString("SUPABASE_URL"),
		SupabaseSecretKey:      v.GetString("SUPABASE_SECRET_KEY"),
		ProductImageBucket:     v.GetString("PRODUCT_IMAGE_BUCKET"),
		FrontendURLEndsWith:    v.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:            v.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:      strings.EqualFold(v.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:         v.GetString("HEALTH_ADMIN_KEY"),
		EstimatorEndpoint:      strings.TrimSpace(v.GetString("AI_EXPIRY_ENDPOINT")),
		EstimatorAPIKey:        v.GetString("AI_EXPIRY_API_KEY"),
		EstimatorTimeout:       parseTimeout(v.GetString("AI_EXPIRY_TIMEOUT")),
		ExpiryAlertWindowHours: window,
		CronSecret:             v.GetString("CRON_SECRET"),
		BrevoAPIKey:            brevoKey,
		MailFrom:               v.GetString("MAIL_FROM"),
	}
}

// parseTimeout accepts a Go duration ("15s") or a plain number of seconds ("15").
func parseTimeout(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultEstimatorTimeout
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	if d, err := time.ParseDuration(s + "s"); err == nil && d > 0 {
		return d
	}
	return defaultEstimatorTimeout
}

// IsProduction reports whether cookies and CORS should be locked down.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
