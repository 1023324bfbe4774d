package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devTokenSecret = "dev-onboarding-secret-change-in-production"

// Config is the full runtime configuration, grouped by concern.
type Config struct {
	Environment string
	LogLevel    string
	LogFormat   string

	Server     Server
	Postgres   PostgresConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Geocoder   GeocoderConfig
	Onboarding OnboardingConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// PostgresConfig is empty-DSN-means-in-memory.
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig is empty-URL-means-in-memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables the Kafka OTP sender and audit publisher when Brokers
// is non-empty.
type KafkaConfig struct {
	Brokers     []string
	OTPTopic    string
	AuditTopic  string
	Partitions  int32
	Replication int16
}

// GeocoderConfig points at a Nominatim-compatible endpoint.
type GeocoderConfig struct {
	BaseURL        string
	UserAgent      string
	CountryCodes   string
	Timeout        time.Duration
	SuggestLimit   int
	CacheTTL       time.Duration
	BreakerFailure int
	BreakerCool    time.Duration
}

// OnboardingConfig holds the state machine's policy knobs.
type OnboardingConfig struct {
	OTPTTL            time.Duration
	OTPMaxAttempts    int
	OTPSendLimit      int
	OTPSendWindow     time.Duration
	MaxDistanceMeters float64
	CaptureMaxAge     time.Duration
	CaptureFutureSkew time.Duration
	BcryptCost        int
	TokenSecret       string
	TokenTTL          time.Duration
	StepTimeout       time.Duration
	VerifyTimeout     time.Duration
}

// Load reads an optional .env file and then the environment.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables with development defaults.
func FromEnv() Config {
	return Config{
		Environment: getEnv("STOOP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		Server: Server{
			Addr:            getEnv("STOOP_ADDR", ":8080"),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
			AllowedOrigins:  getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Postgres: PostgresConfig{
			DSN:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: getInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns: getInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:     getList("KAFKA_BROKERS", nil),
			OTPTopic:    getEnv("KAFKA_OTP_TOPIC", "stoop.onboarding.otp"),
			AuditTopic:  getEnv("KAFKA_AUDIT_TOPIC", "stoop.onboarding.audit"),
			Partitions:  int32(getInt("KAFKA_TOPIC_PARTITIONS", 3)),
			Replication: int16(getInt("KAFKA_TOPIC_REPLICATION", 1)),
		},
		Geocoder: GeocoderConfig{
			BaseURL:        getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
			UserAgent:      getEnv("GEOCODER_USER_AGENT", "stoop-onboarding/1.0"),
			CountryCodes:   os.Getenv("GEOCODER_COUNTRY_CODES"),
			Timeout:        getDuration("GEOCODER_TIMEOUT", 4*time.Second),
			SuggestLimit:   getInt("GEOCODER_SUGGEST_LIMIT", 5),
			CacheTTL:       getDuration("GEOCODER_CACHE_TTL", 10*time.Minute),
			BreakerFailure: getInt("GEOCODER_BREAKER_FAILURES", 5),
			BreakerCool:    getDuration("GEOCODER_BREAKER_COOLDOWN", 30*time.Second),
		},
		Onboarding: OnboardingConfig{
			OTPTTL:            getDuration("ONBOARDING_OTP_TTL", 15*time.Minute),
			OTPMaxAttempts:    getInt("ONBOARDING_OTP_MAX_ATTEMPTS", 5),
			OTPSendLimit:      getInt("ONBOARDING_OTP_SEND_LIMIT", 5),
			OTPSendWindow:     getDuration("ONBOARDING_OTP_SEND_WINDOW", time.Hour),
			MaxDistanceMeters: getFloat("ONBOARDING_MAX_DISTANCE_METERS", 250),
			CaptureMaxAge:     getDuration("ONBOARDING_CAPTURE_MAX_AGE", 10*time.Minute),
			CaptureFutureSkew: getDuration("ONBOARDING_CAPTURE_FUTURE_SKEW", time.Minute),
			BcryptCost:        getInt("ONBOARDING_BCRYPT_COST", 12),
			TokenSecret:       getEnv("ONBOARDING_TOKEN_SECRET", devTokenSecret),
			TokenTTL:          getDuration("ONBOARDING_TOKEN_TTL", 24*time.Hour),
			StepTimeout:       getDuration("ONBOARDING_STEP_TIMEOUT", 10*time.Second),
			VerifyTimeout:     getDuration("ONBOARDING_VERIFY_TIMEOUT", 5*time.Second),
		},
	}
}

// IsProduction reports whether unsafe defaults must be rejected.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate rejects configurations that cannot run or are unsafe in production.
func (c Config) Validate() error {
	var errs []error
	o := c.Onboarding
	if o.OTPTTL <= 0 {
		errs = append(errs, errors.New("ONBOARDING_OTP_TTL must be positive"))
	}
	if o.OTPMaxAttempts < 1 {
		errs = append(errs, errors.New("ONBOARDING_OTP_MAX_ATTEMPTS must be at least 1"))
	}
	if o.OTPSendLimit < 1 || o.OTPSendWindow <= 0 {
		errs = append(errs, errors.New("ONBOARDING_OTP_SEND_LIMIT and ONBOARDING_OTP_SEND_WINDOW must be positive"))
	}
	if o.MaxDistanceMeters <= 0 {
		errs = append(errs, errors.New("ONBOARDING_MAX_DISTANCE_METERS must be positive"))
	}
	if o.BcryptCost < 4 || o.BcryptCost > 31 {
		errs = append(errs, errors.New("ONBOARDING_BCRYPT_COST must be between 4 and 31"))
	}
	if o.TokenTTL <= 0 {
		errs = append(errs, errors.New("ONBOARDING_TOKEN_TTL must be positive"))
	}
	if c.Geocoder.BaseURL == "" {
		errs = append(errs, errors.New("GEOCODER_URL is required"))
	}
	if c.IsProduction() {
		if o.TokenSecret == devTokenSecret || len(o.TokenSecret) < 32 {
			errs = append(errs, errors.New("ONBOARDING_TOKEN_SECRET must be set to at least 32 bytes in production"))
		}
		if o.BcryptCost < 10 {
			errs = append(errs, errors.New("ONBOARDING_BCRYPT_COST must be at least 10 in production"))
		}
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("DATABASE_URL is required in production"))
		}
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return f
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return d
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
