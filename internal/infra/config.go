package infra

import (
	"fmt"
	"time"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL  string `env:"DATABASE_URL"`
	PGHost       string `env:"PGHOST" envDefault:"localhost"`
	PGPort       int    `env:"PGPORT" envDefault:"5435"`
	PGUser       string `env:"PGUSER" envDefault:"matchwager"`
	PGPassword   string `env:"PGPASSWORD" envDefault:"matchwager"`
	PGDatabase   string `env:"PGDATABASE" envDefault:"matchwager"`
	TxMaxRetries int    `env:"TX_MAX_RETRIES" envDefault:"5"`

	// Connection pool
	PGMaxConns        int32         `env:"PG_MAX_CONNS" envDefault:"20"`
	PGMinConns        int32         `env:"PG_MIN_CONNS" envDefault:"2"`
	PGMaxConnLifetime time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"30m"`
	PGMaxConnIdleTime time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"5m"`

	// Redis
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6380"`
	PauseKey string `env:"PAUSE_KEY" envDefault:"matchwager:paused"`

	// Principals
	OwnerAddress  string `env:"OWNER_ADDRESS"`
	OracleAddress string `env:"ORACLE_ADDRESS"`
	EngineAddress string `env:"ENGINE_ADDRESS"`

	// JWT
	JWTSecret string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTExpiry time.Duration `env:"JWT_EXPIRY" envDefault:"12h"`

	// Server
	APIPort            int           `env:"API_PORT" envDefault:"3100"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
	IdempotencyTTL     time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	// Asset registry circuit breaker
	RegistryFailThreshold int           `env:"REGISTRY_FAIL_THRESHOLD" envDefault:"5"`
	RegistryResetTimeout  time.Duration `env:"REGISTRY_RESET_TIMEOUT" envDefault:"30s"`

	// Kafka
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`

	// Outbox relay
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"500ms"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`

	// CORS
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	// a local .env fills in anything the environment leaves unset
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks that the principals are well formed and rejects insecure
// configuration that must not run in production.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass the secret checks (local dev only).
func (c *Config) Validate() error {
	owner, oracle, engine, err := c.Principals()
	if err != nil {
		return err
	}
	if owner == oracle {
		return fmt.Errorf("OWNER_ADDRESS and ORACLE_ADDRESS must differ")
	}
	if engine == owner || engine == oracle {
		return fmt.Errorf("ENGINE_ADDRESS must differ from the owner and oracle")
	}
	if c.TxMaxRetries < 1 {
		return fmt.Errorf("TX_MAX_RETRIES must be at least 1")
	}
	if err := c.validatePool(); err != nil {
		return err
	}
	if c.RegistryFailThreshold < 1 {
		return fmt.Errorf("REGISTRY_FAIL_THRESHOLD must be at least 1")
	}
	if c.OutboxBatchSize < 1 || c.OutboxPollInterval <= 0 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE and OUTBOX_POLL_INTERVAL must be positive")
	}

	if c.AllowInsecureDefaults {
		return nil
	}
	if c.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET is too short (%d chars); minimum 32 characters required", len(c.JWTSecret))
	}
	return nil
}

func (c *Config) validatePool() error {
	if c.PGMaxConns < 1 {
		return fmt.Errorf("PG_MAX_CONNS must be at least 1")
	}
	if c.PGMinConns < 0 || c.PGMinConns > c.PGMaxConns {
		return fmt.Errorf("PG_MIN_CONNS must be between 0 and PG_MAX_CONNS (%d)", c.PGMaxConns)
	}
	return nil
}

// Principals parses the owner, oracle and engine custody addresses.
func (c *Config) Principals() (owner, oracle, engine common.Address, err error) {
	fields := []struct {
		name string
		raw  string
		dst  *common.Address
	}{
		{"OWNER_ADDRESS", c.OwnerAddress, &owner},
		{"ORACLE_ADDRESS", c.OracleAddress, &oracle},
		{"ENGINE_ADDRESS", c.EngineAddress, &engine},
	}
	for _, f := range fields {
		addr, perr := domain.ParseAddress(f.raw)
		if perr != nil {
			return owner, oracle, engine, fmt.Errorf("%s: %w", f.name, perr)
		}
		if addr == domain.ZeroAddress {
			return owner, oracle, engine, fmt.Errorf("%s must not be the zero address", f.name)
		}
		*f.dst = addr
	}
	return owner, oracle, engine, nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}
