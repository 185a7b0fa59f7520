package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress    string
	DatabaseURI   string
	RedisAddress  string
	WebhookSecret string
	APIToken      string

	PaymentAPIAddress string
	PaymentAPIKey     string
	PaymentMerchantID string

	EnrichmentAddress string
	EnrichmentAPIKey  string

	GenerationAddress string
	GenerationAPIKey  string
	GenerationModel   string

	NotifierAddress string
	NotifierToken   string

	WorkerPoolSize   int
	RecoveryInterval time.Duration
	RecoveryBatch    int
	StuckThreshold   time.Duration
	PaymentTimeout   time.Duration

	CallTimeout    time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	NotifyAttempts int

	DedupCacheTTL   time.Duration
	ShutdownTimeout time.Duration
}

const (
	defaultRunAddress       = ":8080"
	defaultGenerationModel  = "deepseek-chat"
	defaultWorkerPoolSize   = 4
	defaultRecoveryInterval = 30 * time.Second
	defaultRecoveryBatch    = 32
	defaultStuckThreshold   = 2 * time.Minute
	defaultPaymentTimeout   = 30 * time.Minute
	defaultCallTimeout      = 60 * time.Second
	defaultRetryAttempts    = 3
	defaultRetryBaseDelay   = time.Second
	defaultNotifyAttempts   = 2
	defaultDedupCacheTTL    = 24 * time.Hour
	defaultShutdownTimeout  = 10 * time.Second
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:        getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:       getString(lookup, "DATABASE_URI", ""),
		RedisAddress:      getString(lookup, "REDIS_ADDRESS", ""),
		WebhookSecret:     getString(lookup, "WEBHOOK_SECRET", ""),
		APIToken:          getString(lookup, "API_TOKEN", ""),
		PaymentAPIAddress: getString(lookup, "PAYMENT_API_ADDRESS", ""),
		PaymentAPIKey:     getString(lookup, "PAYMENT_API_KEY", ""),
		PaymentMerchantID: getString(lookup, "PAYMENT_MERCHANT_ID", ""),
		EnrichmentAddress: getString(lookup, "ENRICHMENT_ADDRESS", ""),
		EnrichmentAPIKey:  getString(lookup, "ENRICHMENT_API_KEY", ""),
		GenerationAddress: getString(lookup, "GENERATION_ADDRESS", ""),
		GenerationAPIKey:  getString(lookup, "GENERATION_API_KEY", ""),
		GenerationModel:   getString(lookup, "GENERATION_MODEL", defaultGenerationModel),
		NotifierAddress:   getString(lookup, "NOTIFIER_ADDRESS", ""),
		NotifierToken:     getString(lookup, "NOTIFIER_TOKEN", ""),
		WorkerPoolSize:    getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		RecoveryInterval:  getDuration(lookup, "RECOVERY_INTERVAL", defaultRecoveryInterval),
		RecoveryBatch:     getInt(lookup, "RECOVERY_BATCH_SIZE", defaultRecoveryBatch),
		StuckThreshold:    getDuration(lookup, "STUCK_THRESHOLD", defaultStuckThreshold),
		PaymentTimeout:    getDuration(lookup, "PAYMENT_TIMEOUT", defaultPaymentTimeout),
		CallTimeout:       getDuration(lookup, "CALL_TIMEOUT", defaultCallTimeout),
		RetryAttempts:     getInt(lookup, "RETRY_ATTEMPTS", defaultRetryAttempts),
		RetryBaseDelay:    getDuration(lookup, "RETRY_BASE_DELAY", defaultRetryBaseDelay),
		NotifyAttempts:    getInt(lookup, "NOTIFY_ATTEMPTS", defaultNotifyAttempts),
		DedupCacheTTL:     getDuration(lookup, "DEDUP_CACHE_TTL", defaultDedupCacheTTL),
		ShutdownTimeout:   getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	fs := flag.NewFlagSet("apollo", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		recoveryIntervalStr = cfg.RecoveryInterval.String()
		callTimeoutStr      = cfg.CallTimeout.String()
		shutdownTimeoutStr  = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.RedisAddress, "redis", cfg.RedisAddress, "Redis address for the dedup fast path (optional)")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent fulfillment workers")
	fs.IntVar(&cfg.RetryAttempts, "retry-attempts", cfg.RetryAttempts, "Attempts per downstream call")
	fs.StringVar(&recoveryIntervalStr, "recovery-interval", recoveryIntervalStr, "Interval between recovery scans")
	fs.StringVar(&callTimeoutStr, "call-timeout", callTimeoutStr, "Timeout per downstream call attempt")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.IntVar(&cfg.RecoveryBatch, "recovery-batch", cfg.RecoveryBatch, "Maximum orders per recovery scan")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.RecoveryInterval, err = time.ParseDuration(recoveryIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid recovery interval: %w", err)
	}

	if cfg.CallTimeout, err = time.ParseDuration(callTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid call timeout: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if secretFile, ok := lookup("WEBHOOK_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read webhook secret file: %w", err)
		}
		cfg.WebhookSecret = string(content)
	}

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.RecoveryBatch <= 0 {
		cfg.RecoveryBatch = defaultRecoveryBatch
	}

	if cfg.RecoveryInterval <= 0 {
		cfg.RecoveryInterval = defaultRecoveryInterval
	}

	if cfg.StuckThreshold <= 0 {
		cfg.StuckThreshold = defaultStuckThreshold
	}

	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = defaultPaymentTimeout
	}

	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}

	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaultRetryAttempts
	}

	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = defaultRetryBaseDelay
	}

	if cfg.NotifyAttempts <= 0 {
		cfg.NotifyAttempts = defaultNotifyAttempts
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("webhook secret must be provided")
	}

	if cfg.PaymentAPIAddress == "" {
		return nil, fmt.Errorf("payment API address must be provided")
	}

	if cfg.EnrichmentAddress == "" {
		return nil, fmt.Errorf("enrichment API address must be provided")
	}

	if cfg.GenerationAddress == "" {
		return nil, fmt.Errorf("generation API address must be provided")
	}

	if cfg.NotifierAddress == "" {
		return nil, fmt.Errorf("notifier address must be provided")
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
