package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

const (
	defaultPort          = 8080
	defaultWazendBaseURL = "http://localhost:8081"
)

type Config struct {
	port                   int
	wazendBaseURL          string
	wazendAPIKey           string
	cloudSQLUnixSocketPath string
	dBPassword             string
	dBUsername             string
	sentryDSN              string
	redisAddr              string
	redisPassword          string
	profileFetchDelay      time.Duration
	profileCacheTTL        time.Duration
	corsOriginSuffixes     []string
	env                    environment
}

func (c *Config) Port() int {
	return c.port
}

func (c *Config) WazendBaseURL() string {
	return c.wazendBaseURL
}

func (c *Config) WazendAPIKey() string {
	return c.wazendAPIKey
}

func (c *Config) CloudSQLUnixSocketPath() string {
	return c.cloudSQLUnixSocketPath
}

func (c *Config) DBPassword() string {
	return c.dBPassword
}

func (c *Config) DBUsername() string {
	return c.dBUsername
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

func (c *Config) RedisAddr() string {
	return c.redisAddr
}

func (c *Config) RedisPassword() string {
	return c.redisPassword
}

// Debounce delay before a profile lookup is sent to Wazend
func (c *Config) ProfileFetchDelay() time.Duration {
	return c.profileFetchDelay
}

// Lifetime of a resolved profile lookup. 0 means resolved lookups live until invalidated
func (c *Config) ProfileCacheTTL() time.Duration {
	return c.profileCacheTTL
}

func (c *Config) CORSOriginSuffixes() []string {
	return c.corsOriginSuffixes
}

func (c *Config) EnvironmentName() string {
	return string(c.env)
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf(
		"Config{env: %s, port: %d, wazendBaseURL: %s, redis: %t, profileFetchDelay: %s, profileCacheTTL: %s, ...}",
		string(c.env),
		c.port,
		c.wazendBaseURL,
		c.redisAddr != "",
		c.profileFetchDelay,
		c.profileCacheTTL,
	)
}

func parseDuration(key string) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, nil
	}
	duration, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s (%s): %w", ErrInvalidValue, key, raw, err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("%w: %s (%s) must not be negative", ErrInvalidValue, key, raw)
	}
	return duration, nil
}

func parseList(raw string) []string {
	items := []string{}
	for item := range strings.SplitSeq(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}

	var env environment
	rawEnv, ok := os.LookupEnv("ELITESELLER_ENVIRONMENT")
	if !ok {
		return missingKey("ELITESELLER_ENVIRONMENT")
	}
	switch rawEnv {
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return Config{}, fmt.Errorf("%w: ELITESELLER_ENVIRONMENT (%s)", ErrInvalidValue, rawEnv)
	}
	if string(env) == "" {
		panic("logic error: env is empty")
	}

	port := defaultPort
	if rawPort := os.Getenv("PORT"); rawPort != "" {
		parsed, err := strconv.Atoi(rawPort)
		if err != nil || parsed <= 0 || parsed > 65535 {
			return Config{}, fmt.Errorf("%w: PORT (%s)", ErrInvalidValue, rawPort)
		}
		port = parsed
	}

	profileFetchDelay, err := parseDuration("PROFILE_FETCH_DELAY")
	if err != nil {
		return Config{}, err
	}
	profileCacheTTL, err := parseDuration("PROFILE_CACHE_TTL")
	if err != nil {
		return Config{}, err
	}

	wazendBaseURL := strings.TrimSuffix(os.Getenv("WAZEND_BASE_URL"), "/")
	wazendAPIKey := os.Getenv("WAZEND_API_KEY")
	cloudSQLUnixSocketPath := os.Getenv("CLOUDSQL_UNIX_SOCKET")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbUsername := os.Getenv("DB_USERNAME")
	sentryDSN := os.Getenv("SENTRY_DSN")
	redisAddr := os.Getenv("REDIS_ADDR")
	redisPassword := os.Getenv("REDIS_PASSWORD")
	corsOriginSuffixes := parseList(os.Getenv("CORS_ORIGIN_SUFFIXES"))

	if env == production || env == staging {
		if wazendBaseURL == "" {
			return missingKey("WAZEND_BASE_URL")
		}
		if cloudSQLUnixSocketPath == "" {
			return missingKey("CLOUDSQL_UNIX_SOCKET")
		}
		if dbUsername == "" {
			return missingKey("DB_USERNAME")
		}
		if dbPassword == "" {
			return missingKey("DB_PASSWORD")
		}
		if sentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}
	}

	if wazendBaseURL == "" {
		wazendBaseURL = defaultWazendBaseURL
	}

	return Config{
		port:                   port,
		wazendBaseURL:          wazendBaseURL,
		wazendAPIKey:           wazendAPIKey,
		cloudSQLUnixSocketPath: cloudSQLUnixSocketPath,
		dBPassword:             dbPassword,
		dBUsername:             dbUsername,
		sentryDSN:              sentryDSN,
		redisAddr:              redisAddr,
		redisPassword:          redisPassword,
		profileFetchDelay:      profileFetchDelay,
		profileCacheTTL:        profileCacheTTL,
		corsOriginSuffixes:     corsOriginSuffixes,
		env:                    env,
	}, nil
}
