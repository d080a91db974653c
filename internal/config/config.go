package config

import (
	"os"
	"strconv"
	"time"

	"dataspot/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	JWTSecret   string

	// Paystack
	PaystackSecretKey string
	PaystackBaseURL   string
	CallbackURL       string

	// Datamart reseller
	DatamartBaseURL string
	DatamartAPIKey  string

	// Deposit rules
	FeePercentage   float64 // fee charged on top of the deposit, e.g. 3
	AmountTolerance float64 // GHS tolerance when comparing amounts
	MinDeposit      float64
	MaxDeposit      float64

	// Stale processing locks older than this may be reclaimed
	ProcessingLockTTL time.Duration

	// Rate limiting
	APIRateLimit  int
	APIRateWindow time.Duration

	// Redis (rate limiter); empty addr disables it
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads configuration from the environment. Required variables cause
// the process to exit when missing.
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	paystackSecret := os.Getenv("PAYSTACK_SECRET_KEY")
	if paystackSecret == "" {
		logger.Fatal("PAYSTACK_SECRET_KEY is not set")
	}

	paystackBase := os.Getenv("PAYSTACK_BASE_URL")
	if paystackBase == "" {
		paystackBase = "https://api.paystack.co"
	}

	callbackURL := os.Getenv("PAYMENT_CALLBACK_URL")
	if callbackURL == "" {
		callbackURL = "https://www.dataspot.store/payment/callback"
	}

	datamartBase := os.Getenv("DATAMART_BASE_URL")
	if datamartBase == "" {
		datamartBase = "https://api.datamartgh.shop"
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	return &Config{
		AppPort:     port,
		DatabaseURL: dbURL,
		JWTSecret:   jwtSecret,

		PaystackSecretKey: paystackSecret,
		PaystackBaseURL:   paystackBase,
		CallbackURL:       callbackURL,

		DatamartBaseURL: datamartBase,
		DatamartAPIKey:  os.Getenv("DATAMART_API_KEY"),

		FeePercentage:   envFloat("DEPOSIT_FEE_PERCENTAGE", 3),
		AmountTolerance: envFloat("AMOUNT_TOLERANCE", 0.01),
		MinDeposit:      envFloat("MIN_DEPOSIT", 10),
		MaxDeposit:      envFloat("MAX_DEPOSIT", 100000),

		ProcessingLockTTL: envDuration("PROCESSING_LOCK_TTL_SECONDS", 10*time.Minute),

		APIRateLimit:  envInt("API_RATE_LIMIT", 60),
		APIRateWindow: envDuration("API_RATE_WINDOW_SECONDS", time.Minute),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
	}
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
