package cfg

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"ghostink/pkg/wipe"

	"github.com/pkg/errors"
)

// SecretPrefix marks a value that must be looked up in the secret store
// before use, e.g. GHOSTINK_DATABASE_URL=secret:database-url.
const SecretPrefix = "secret:"

type Secret struct {
	value []byte
}

func NewSecret(s string) Secret {
	return Secret{value: []byte(s)}
}
func (s Secret) Value() string {
	return string(s.value)
}
func (s Secret) Wipe() {
	wipe.Bytes(s.value)
}
func (s Secret) String() string {
	return "***REDACTED***"
}
func (s Secret) needsLookup() bool {
	return strings.HasPrefix(string(s.value), SecretPrefix)
}

type Cfg struct {
	Addr            string
	Environment     string
	LogLevel        string
	DatabaseURL     Secret
	RedisURL        Secret
	RedisTLS        bool
	RedisUsername   string
	RedisPassword   Secret
	RedisTimeout    time.Duration
	RedisCacheTTL   time.Duration
	LRUCacheSize    int
	DBMaxOpenConns  int
	DBMaxIdleConns  int
	DBQueryTimeout  time.Duration
	ContextTimeout  time.Duration
	CleanupInterval time.Duration
	WALInterval     time.Duration
	DefaultTTL      time.Duration
	AllowedOrigins  []string
	MetricsUser     string
	MetricsPass     Secret
	SecretsBackend  string
	SecretsPath     string
}

func Load() (*Cfg, error) {
	c := &Cfg{}
	c.Addr = getEnv("GHOSTINK_API_ADDR", ":3000")
	c.Environment = getEnv("ENVIRONMENT", "development")
	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.DatabaseURL = NewSecret(getEnv("GHOSTINK_DATABASE_URL", "ghostink.db"))
	c.RedisURL = NewSecret(getEnv("REDIS_URL", ""))
	c.RedisTLS = getEnv("REDIS_TLS", "false") == "true"
	c.RedisUsername = getEnv("REDIS_USERNAME", "")
	c.RedisPassword = NewSecret(getEnv("REDIS_PASSWORD", ""))
	var err error
	c.RedisTimeout, err = getDuration("REDIS_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	c.RedisCacheTTL, err = getDuration("REDIS_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	c.LRUCacheSize, err = getInt("LRU_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	c.DBMaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", 100)
	if err != nil {
		return nil, err
	}
	c.DBMaxIdleConns, err = getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, err
	}
	c.DBQueryTimeout, err = getDuration("DB_QUERY_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	c.ContextTimeout, err = getDuration("CONTEXT_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	c.CleanupInterval, err = getDuration("CLEANUP_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	c.WALInterval, err = getDuration("WAL_CHECKPOINT_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	c.DefaultTTL, err = getDuration("DEFAULT_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	c.AllowedOrigins = getSlice("ALLOWED_ORIGINS", []string{})
	c.MetricsUser = getEnv("METRICS_USER", "")
	c.MetricsPass = NewSecret(getEnv("METRICS_PASS", ""))
	c.SecretsBackend = getEnv("SECRETS_BACKEND", "env")
	c.SecretsPath = getEnv("SECRETS_PATH", "secret/data/ghostink")
	return c, nil
}
func Validate(c *Cfg) error {
	if c.Addr == "" {
		return errors.New("GHOSTINK_API_ADDR is required")
	}
	_, port, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return fmt.Errorf("GHOSTINK_API_ADDR must be host:port: %w", err)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return errors.New("GHOSTINK_API_ADDR port must be a number")
	}
	if c.DatabaseURL.Value() == "" {
		return errors.New("GHOSTINK_DATABASE_URL is required")
	}
	if redisURL := c.RedisURL.Value(); redisURL != "" && !c.RedisURL.needsLookup() {
		if !strings.HasPrefix(redisURL, "redis://") && !strings.HasPrefix(redisURL, "rediss://") {
			return errors.New("REDIS_URL must start with redis:// or rediss://")
		}
		if strings.HasPrefix(redisURL, "rediss://") && !c.RedisTLS {
			return errors.New("REDIS_URL uses rediss:// but REDIS_TLS=false")
		}
	}
	if c.LRUCacheSize <= 0 {
		return errors.New("LRU_CACHE_SIZE must be positive")
	}
	if c.DBMaxOpenConns <= 0 {
		return errors.New("DB_MAX_OPEN_CONNS must be positive")
	}
	if c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxOpenConns {
		return errors.New("DB_MAX_IDLE_CONNS must be between 0 and DB_MAX_OPEN_CONNS")
	}
	if c.DBQueryTimeout <= 0 {
		return errors.New("DB_QUERY_TIMEOUT must be positive")
	}
	if c.ContextTimeout <= 0 {
		return errors.New("CONTEXT_TIMEOUT must be positive")
	}
	if c.CleanupInterval < 0 {
		return errors.New("CLEANUP_INTERVAL cannot be negative")
	}
	if c.CleanupInterval > 0 && c.CleanupInterval < time.Second {
		return errors.New("CLEANUP_INTERVAL must be at least 1s or 0 to disable")
	}
	if c.DefaultTTL <= 0 {
		return errors.New("DEFAULT_TTL must be positive")
	}
	switch c.SecretsBackend {
	case "env", "vault", "aws":
	default:
		return fmt.Errorf("SECRETS_BACKEND must be env, vault or aws, got %q", c.SecretsBackend)
	}
	if c.Environment == "production" {
		if c.MetricsUser == "" || c.MetricsPass.Value() == "" {
			return errors.New("METRICS_USER and METRICS_PASS are required in production")
		}
	}
	return nil
}

// NeedsSecrets reports whether any value is a secret reference.
func (c *Cfg) NeedsSecrets() bool {
	for _, s := range c.secrets() {
		if s.needsLookup() {
			return true
		}
	}
	return false
}

type resolver interface {
	Resolve(ctx context.Context, value string) (string, error)
}

// ResolveSecrets replaces every secret reference with its looked up value.
func (c *Cfg) ResolveSecrets(ctx context.Context, r resolver) error {
	for name, s := range c.secrets() {
		if !s.needsLookup() {
			continue
		}
		v, err := r.Resolve(ctx, s.Value())
		if err != nil {
			return errors.Wrapf(err, "resolve %s", name)
		}
		s.Wipe()
		*s = NewSecret(v)
	}
	return nil
}

func (c *Cfg) secrets() map[string]*Secret {
	return map[string]*Secret{
		"GHOSTINK_DATABASE_URL": &c.DatabaseURL,
		"REDIS_URL":             &c.RedisURL,
		"REDIS_PASSWORD":        &c.RedisPassword,
		"METRICS_PASS":          &c.MetricsPass,
	}
}

func (c *Cfg) Wipe() {
	for _, s := range c.secrets() {
		s.Wipe()
	}
}
func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
func getInt(key string, fallback int) (int, error) {
	s := getEnv(key, "")
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return v, nil
}
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := getEnv(key, "")
	if s == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return v, nil
}
func getSlice(key string, fallback []string) []string {
	s := getEnv(key, "")
	if s == "" {
		return fallback
	}
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
