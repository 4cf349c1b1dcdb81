package domain

import "time"

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Config defines the interface for configuration management
type Config interface {
	GetServerPort() string
	GetLogLevel() string
	GetStoreDriver() string
	GetDatabasePath() string
	GetSupabaseURL() string
	GetSupabaseKey() string
	GetAPIToken() string
	GetAllowedOrigins() []string
	GetContextChars() int
	GetSettleDelay() time.Duration
	GetStoreTimeout() time.Duration
}
