package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names accepted in STORAGE_CHAIN.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendSQL      = "sql"
	BackendFile     = "file"
	BackendMemory   = "memory"
)

const DefaultStorageChain = "mongo,postgres,sql,file,memory"

type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	LogFormat string

	StorageChain   []string
	MongoURI       string
	MongoDatabase  string
	PostgresURL    string
	SQLDriver      string
	SQLDSN         string
	DataFile       string
	StorageTimeout time.Duration
	ProbeInterval  time.Duration

	MenuFile          string
	UploadDir         string
	ProofCleanupDelay time.Duration
	HeartbeatInterval time.Duration

	AMQPURL      string
	AMQPExchange string

	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string
	JWTSecret         string
	JWTTTL            time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigin     string
}

// LoadDotEnv loads .env if present. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var missing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, p)
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	if len(missing) == len(paths) {
		return fmt.Errorf("no env file found: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:      GetEnv("PORT", "8080"),
		GinMode:   GetEnv("GIN_MODE", "debug"),
		LogLevel:  GetEnv("LOG_LEVEL", "info"),
		LogFormat: GetEnv("LOG_FORMAT", "text"),

		MongoURI:      GetEnv("MONGODB_URI", ""),
		MongoDatabase: GetEnv("MONGODB_DATABASE", "kiosk"),
		PostgresURL:   GetEnv("POSTGRES_URL", ""),
		SQLDriver:     strings.ToLower(GetEnv("SQL_DRIVER", "sqlite")),
		SQLDSN:        GetEnv("SQL_DSN", ""),
		DataFile:      GetEnv("DATA_FILE", "data/orders.json"),

		MenuFile:  GetEnv("MENU_FILE", "menu.yaml"),
		UploadDir: GetEnv("UPLOAD_DIR", "public/uploads/payment_proofs"),

		AMQPURL:      GetEnv("AMQP_URL", ""),
		AMQPExchange: GetEnv("AMQP_EXCHANGE", "kiosk_orders"),

		AdminUsername:     GetEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:     GetEnv("ADMIN_PASSWORD", ""),
		AdminPasswordHash: GetEnv("ADMIN_PASSWORD_HASH", ""),
		JWTSecret:         GetEnv("JWT_SECRET", ""),

		CORSOrigin: GetEnv("CORS_ORIGIN", "*"),
	}

	var err error
	if cfg.StorageChain, err = parseChain(GetEnv("STORAGE_CHAIN", DefaultStorageChain)); err != nil {
		return nil, err
	}
	if cfg.StorageTimeout, err = GetDuration("STORAGE_TIMEOUT", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.ProbeInterval, err = GetDuration("STORAGE_PROBE_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.ProofCleanupDelay, err = GetDuration("PROOF_CLEANUP_DELAY", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.HeartbeatInterval, err = GetDuration("HEARTBEAT_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.JWTTTL, err = GetDuration("JWT_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = GetFloat("RATE_LIMIT_RPS", 5); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = GetInt("RATE_LIMIT_BURST", 10); err != nil {
		return nil, err
	}

	if cfg.SQLDriver != "mysql" && cfg.SQLDriver != "sqlite" {
		return nil, fmt.Errorf("SQL_DRIVER must be mysql or sqlite, got %q", cfg.SQLDriver)
	}
	if cfg.AdminAuthEnabled() && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required when an admin password is set")
	}
	return cfg, nil
}

// AdminAuthEnabled reports whether admin routes require a token.
func (c *Config) AdminAuthEnabled() bool {
	return c.AdminPassword != "" || c.AdminPasswordHash != ""
}

// parseChain validates the backend list and makes sure memory is last.
func parseChain(raw string) ([]string, error) {
	seen := make(map[string]bool)
	var chain []string
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" || seen[name] {
			continue
		}
		switch name {
		case BackendMongo, BackendPostgres, BackendSQL, BackendFile:
			chain = append(chain, name)
		case BackendMemory:
		default:
			return nil, fmt.Errorf("STORAGE_CHAIN: unknown backend %q", name)
		}
		seen[name] = true
	}
	return append(chain, BackendMemory), nil
}

func GetEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func GetDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := GetEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func GetInt(key string, fallback int) (int, error) {
	v := GetEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func GetFloat(key string, fallback float64) (float64, error) {
	v := GetEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
