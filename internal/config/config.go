package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	AuthMode    string `mapstructure:"AUTH_MODE"`
	StoreDriver string `mapstructure:"STORE_DRIVER"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	MongoURI      string `mapstructure:"MONGODB_URI"`
	MongoDatabase string `mapstructure:"MONGODB_DATABASE"`

	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL    string `mapstructure:"AUTH_JWKS_URL"`
	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`

	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
	AppURL         string   `mapstructure:"APP_URL"`

	MailTransport string `mapstructure:"MAIL_TRANSPORT"`
	SMTPHost      string `mapstructure:"SMTP_HOST"`
	SMTPPort      int    `mapstructure:"SMTP_PORT"`
	SMTPUser      string `mapstructure:"SMTP_USER"`
	SMTPPassword  string `mapstructure:"SMTP_PASSWORD"`
	FromEmail     string `mapstructure:"FROM_EMAIL"`
	MailQueueURL  string `mapstructure:"MAIL_QUEUE_URL"`
	AWSRegion     string `mapstructure:"AWS_REGION"`

	MissingAnswerPolicy   string   `mapstructure:"MISSING_ANSWER_POLICY"`
	SubmissionTransaction bool     `mapstructure:"SUBMISSION_TRANSACTION"`
	SuperAdminEmails      []string `mapstructure:"SUPER_ADMIN_EMAILS"`
}

var keys = []string{
	"PORT", "ENV", "AUTH_MODE", "STORE_DRIVER",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"MONGODB_URI", "MONGODB_DATABASE",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_JWKS_URL", "AUTH_SIGNING_KEY",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "APP_URL",
	"MAIL_TRANSPORT", "SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASSWORD",
	"FROM_EMAIL", "MAIL_QUEUE_URL", "AWS_REGION",
	"MISSING_ANSWER_POLICY", "SUBMISSION_TRANSACTION", "SUPER_ADMIN_EMAILS",
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("AUTH_MODE", "")
	v.SetDefault("STORE_DRIVER", "postgres")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("MONGODB_DATABASE", "mindful")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("APP_URL", "http://localhost:3000")
	v.SetDefault("MAIL_TRANSPORT", "log")
	v.SetDefault("MISSING_ANSWER_POLICY", "default_zero")
	v.SetDefault("SUBMISSION_TRANSACTION", false)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// A missing .env is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.SuperAdminEmails = splitList(cfg.SuperAdminEmails, v.GetString("SUPER_ADMIN_EMAILS"))

	if cfg.StoreDriver == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

// splitList accepts either a decoded list or a comma-separated string.
func splitList(decoded []string, raw string) []string {
	if raw == "" {
		raw = strings.Join(decoded, ",")
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns AUTH_MODE, or infers one:
//   - ENV=development: "development"
//   - AUTH_ISSUER set: "external"
//   - otherwise: "standalone"
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return "development"
	}
	if c.AuthIssuer != "" {
		return "external"
	}
	return "standalone"
}

// SigningKey decodes AUTH_SIGNING_KEY.
func (c *Config) SigningKey() ([]byte, error) {
	if c.AuthSigningKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.AuthSigningKey)
	if err != nil {
		return nil, fmt.Errorf("AUTH_SIGNING_KEY is not valid hex: %w", err)
	}
	if len(key) < 32 {
		return nil, fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is \"postgres\"")
		}
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required when STORE_DRIVER is \"mongo\"")
		}
		if c.SubmissionTransaction {
			return fmt.Errorf("SUBMISSION_TRANSACTION is only supported with STORE_DRIVER \"postgres\"")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be \"postgres\" or \"mongo\", got %q", c.StoreDriver)
	}

	switch mode := c.ResolvedAuthMode(); mode {
	case "development":
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE \"development\" is not allowed when ENV=production")
		}
	case "external":
		if c.AuthIssuer == "" && c.AuthJWKSURL == "" {
			return fmt.Errorf("AUTH_ISSUER or AUTH_JWKS_URL must be set when AUTH_MODE is \"external\"")
		}
	case "standalone":
		if c.AuthSigningKey == "" {
			return fmt.Errorf("AUTH_SIGNING_KEY is required when AUTH_MODE is \"standalone\"")
		}
		if _, err := c.SigningKey(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("AUTH_MODE must be \"development\", \"standalone\", or \"external\", got %q", mode)
	}

	switch c.MailTransport {
	case "log":
	case "smtp":
		if c.SMTPHost == "" || c.SMTPPort == 0 || c.SMTPUser == "" || c.SMTPPassword == "" || c.FromEmail == "" {
			return fmt.Errorf("SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASSWORD and FROM_EMAIL are required when MAIL_TRANSPORT is \"smtp\"")
		}
	case "sqs":
		if c.MailQueueURL == "" {
			return fmt.Errorf("MAIL_QUEUE_URL is required when MAIL_TRANSPORT is \"sqs\"")
		}
	default:
		return fmt.Errorf("MAIL_TRANSPORT must be \"log\", \"smtp\", or \"sqs\", got %q", c.MailTransport)
	}

	switch c.MissingAnswerPolicy {
	case "default_zero", "reject":
	default:
		return fmt.Errorf("MISSING_ANSWER_POLICY must be \"default_zero\" or \"reject\", got %q", c.MissingAnswerPolicy)
	}
	return nil
}
