package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-order-engine/internal/domain/order"
	"github.com/xenking/pos-order-engine/internal/storage"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (POS_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage      storage.Config
	TaxRate      string `default:"0.16" usage:"Tax rate applied to the subtotal" flag:"tax-rate"`
	Timezone     string `default:"Local" usage:"IANA time zone of the business day" flag:"timezone"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (POS_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Commit       CommitConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// CommitConfig controls order commits.
type CommitConfig struct {
	MaxAttempts int `default:"3" usage:"Commit attempts on order number collisions" flag:"commit-max-attempts"`
}

// RateLimitConfig controls the per-register sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"600" usage:"Max requests per window per register, 0 disables"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "POS",
		Files:     []string{"config.yaml", "/etc/pos/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL and PORT to the POS_-prefixed
// configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Storage.DatabaseURL == "" {
		c.Storage.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	if c.Storage.Driver == storage.DriverPostgres && c.Storage.DatabaseURL == "" {
		return errors.New("database URL is required: set POS_STORAGE_DATABASE_URL or DATABASE_URL")
	}
	if _, err := c.OrderConfig(); err != nil {
		return err
	}
	return nil
}

// OrderConfig resolves the pricing and numbering settings.
func (c *Config) OrderConfig() (order.Config, error) {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return order.Config{}, errors.Wrapf(err, "parse tax rate %q", c.TaxRate)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return order.Config{}, errors.Errorf("tax rate %s is outside [0, 1)", rate)
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return order.Config{}, errors.Wrapf(err, "load timezone %q", c.Timezone)
	}
	return order.Config{
		TaxRate:     rate,
		Location:    loc,
		MaxAttempts: c.Commit.MaxAttempts,
	}, nil
}
