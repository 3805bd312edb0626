package logger

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// PerformanceConfig controls level filtering, sampling and log rate limiting
type PerformanceConfig struct {
	SamplingRate    float64       `json:"sampling_rate"`
	MinLogLevel     zapcore.Level `json:"min_log_level"`
	EnableSampling  bool          `json:"enable_sampling"`
	MaxLogPerSecond int           `json:"max_log_per_second"`
	EnableRateLimit bool          `json:"enable_rate_limit"`
}

// DefaultPerformanceConfig logs info and above without sampling
func DefaultPerformanceConfig() PerformanceConfig {
	return PerformanceConfig{
		SamplingRate:    1.0,
		MinLogLevel:     zapcore.InfoLevel,
		EnableSampling:  false,
		MaxLogPerSecond: 1000,
		EnableRateLimit: false,
	}
}

// ProductionConfig samples and rate limits below error level
func ProductionConfig() PerformanceConfig {
	return PerformanceConfig{
		SamplingRate:    0.1,
		MinLogLevel:     zapcore.InfoLevel,
		EnableSampling:  true,
		MaxLogPerSecond: 500,
		EnableRateLimit: true,
	}
}

// DevelopmentConfig logs everything from debug up
func DevelopmentConfig() PerformanceConfig {
	return PerformanceConfig{
		SamplingRate:    1.0,
		MinLogLevel:     zapcore.DebugLevel,
		EnableSampling:  false,
		MaxLogPerSecond: 10000,
		EnableRateLimit: false,
	}
}

// OptimizedLogger wraps a zap logger with level and rate checks done before
// any field is built.
type OptimizedLogger struct {
	config      PerformanceConfig
	logger      *zap.Logger
	rateLimiter *RateLimiter
}

// RateLimiter caps the number of entries per second
type RateLimiter struct {
	maxLogs   int
	current   int
	lastReset time.Time
	mu        sync.Mutex
}

func NewRateLimiter(maxLogs int) *RateLimiter {
	return &RateLimiter{
		maxLogs:   maxLogs,
		lastReset: time.Now(),
	}
}

func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastReset) >= time.Second {
		rl.current = 0
		rl.lastReset = now
	}

	if rl.current >= rl.maxLogs {
		return false
	}

	rl.current++
	return true
}

// NewOptimizedLogger builds a standalone stdout logger
func NewOptimizedLogger(config PerformanceConfig) (*OptimizedLogger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(config.MinLogLevel)
	zapConfig.OutputPaths = []string{"stdout"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	zapConfig.DisableStacktrace = true

	zapLogger, err := zapConfig.Build(zap.WithCaller(false))
	if err != nil {
		return nil, err
	}

	return newOptimizedLogger(config, zapLogger), nil
}

func newOptimizedLogger(config PerformanceConfig, zapLogger *zap.Logger) *OptimizedLogger {
	if config.EnableSampling {
		zapLogger = zapLogger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewSamplerWithOptions(
				core,
				time.Second,
				int(config.SamplingRate*100),
				0,
			)
		}))
	}

	return &OptimizedLogger{
		config:      config,
		logger:      zapLogger,
		rateLimiter: NewRateLimiter(config.MaxLogPerSecond),
	}
}

// ShouldLog menentukan apakah log harus ditulis
func (ol *OptimizedLogger) ShouldLog(level zapcore.Level) bool {
	if level < ol.config.MinLogLevel {
		return false
	}

	if ol.config.EnableRateLimit && level < zapcore.ErrorLevel && !ol.rateLimiter.Allow() {
		return false
	}

	return true
}

var (
	optimizedLogger *OptimizedLogger
	optimizedMu     sync.Mutex
)

// useLogger installs the process logger behind the context builder
func useLogger(config PerformanceConfig, zapLogger *zap.Logger) {
	optimizedMu.Lock()
	defer optimizedMu.Unlock()
	optimizedLogger = newOptimizedLogger(config, zapLogger)
}

// GetOptimizedLogger returns the installed logger, building a stdout one on
// first use when InitLogger has not run (tests, tools).
func GetOptimizedLogger() *OptimizedLogger {
	optimizedMu.Lock()
	defer optimizedMu.Unlock()

	if optimizedLogger == nil {
		config := DefaultPerformanceConfig()
		switch os.Getenv("APP_ENV") {
		case "production":
			config = ProductionConfig()
		case "development":
			config = DevelopmentConfig()
		}

		logger, err := NewOptimizedLogger(config)
		if err != nil {
			logger = newOptimizedLogger(config, zap.NewNop())
		}
		optimizedLogger = logger
	}
	return optimizedLogger
}
