// Package logging provides structured logging channels for the conference service.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Channel represents a logical logging channel for different system components
type Channel string

const (
	// System channels
	ChannelSystem   Channel = "system"   // General system operations
	ChannelStartup  Channel = "startup"  // Application startup and initialization
	ChannelShutdown Channel = "shutdown" // Application shutdown and cleanup
	ChannelHTTP     Channel = "http"     // Request handling

	// Business logic channels
	ChannelEligibility Channel = "eligibility" // Popup eligibility decisions
	ChannelPopup       Channel = "popup"       // Popup lifecycle transitions
	ChannelAnalytics   Channel = "analytics"   // Analytics sink
	ChannelEmail       Channel = "email"       // Transactional email
	ChannelAuth        Channel = "auth"        // Admin authentication

	// Infrastructure channels
	ChannelDatabase  Channel = "database"    // Database operations and queries
	ChannelSlowQuery Channel = "slow-query"  // Slow database queries
	ChannelCache     Channel = "cache"       // Popup session store
	ChannelPerf      Channel = "performance" // Performance markers
)

var allChannels = []Channel{
	ChannelSystem, ChannelStartup, ChannelShutdown, ChannelHTTP,
	ChannelEligibility, ChannelPopup, ChannelAnalytics, ChannelEmail, ChannelAuth,
	ChannelDatabase, ChannelSlowQuery, ChannelCache, ChannelPerf,
}

// ChanneledLogger provides structured logging with multiple channels
type ChanneledLogger struct {
	channels map[Channel]*slog.Logger
	files    map[Channel]*os.File
	config   *LoggerConfig
	configMu sync.RWMutex
}

// LoggerConfig contains configuration options for the channeled logger
type LoggerConfig struct {
	OutputToFile    bool   `json:"outputToFile"`    // Whether to write logs to files
	OutputToConsole bool   `json:"outputToConsole"` // Whether to write logs to console
	LogDirectory    string `json:"logDirectory"`    // Directory for log files

	JSONFormat    bool `json:"jsonFormat"`    // Use JSON format for structured logging
	IncludeSource bool `json:"includeSource"` // Include source file and line in logs

	DefaultLevel  slog.Level             `json:"defaultLevel"`  // Default log level
	ChannelLevels map[Channel]slog.Level `json:"channelLevels"` // Per-channel log levels

	// Writer replaces console and file output when set. Tests use io.Discard.
	Writer io.Writer `json:"-"`
}

// DefaultLoggerConfig returns a sensible default configuration
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		OutputToFile:    true,
		OutputToConsole: true,
		LogDirectory:    "logs",
		JSONFormat:      true,
		IncludeSource:   false,
		DefaultLevel:    slog.LevelInfo,
		ChannelLevels:   make(map[Channel]slog.Level),
	}
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewChanneledLogger creates a new channeled logger with the given configuration
func NewChanneledLogger(config *LoggerConfig) (*ChanneledLogger, error) {
	if config == nil {
		config = DefaultLoggerConfig()
	}
	if config.ChannelLevels == nil {
		config.ChannelLevels = make(map[Channel]slog.Level)
	}

	logger := &ChanneledLogger{
		channels: make(map[Channel]*slog.Logger),
		files:    make(map[Channel]*os.File),
		config:   config,
	}

	if config.OutputToFile && config.Writer == nil {
		if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	for _, channel := range allChannels {
		channelLogger, err := logger.createChannelLogger(channel)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger for channel %s: %w", channel, err)
		}
		logger.channels[channel] = channelLogger
	}

	return logger, nil
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *ChanneledLogger {
	logger, err := NewChanneledLogger(&LoggerConfig{
		Writer:        io.Discard,
		DefaultLevel:  slog.LevelError + 4,
		ChannelLevels: make(map[Channel]slog.Level),
	})
	if err != nil {
		panic(err)
	}
	return logger
}

// createChannelLogger creates a slog.Logger for a specific channel
func (cl *ChanneledLogger) createChannelLogger(channel Channel) (*slog.Logger, error) {
	cl.configMu.Lock()
	defer cl.configMu.Unlock()

	level := cl.config.DefaultLevel
	if channelLevel, exists := cl.config.ChannelLevels[channel]; exists {
		level = channelLevel
	}

	var writers []io.Writer

	if cl.config.Writer != nil {
		writers = append(writers, cl.config.Writer)
	} else {
		if cl.config.OutputToConsole {
			writers = append(writers, os.Stdout)
		}

		if cl.config.OutputToFile {
			file, ok := cl.files[channel]
			if !ok {
				path := filepath.Join(cl.config.LogDirectory, fmt.Sprintf("%s.log", string(channel)))
				var err error
				file, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
				if err != nil {
					return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
				}
				cl.files[channel] = file
			}
			writers = append(writers, file)
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = os.Stdout
	case 1:
		writer = writers[0]
	default:
		writer = io.MultiWriter(writers...)
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cl.config.IncludeSource,
	}

	var handler slog.Handler
	if cl.config.JSONFormat {
		handler = slog.NewJSONHandler(writer, handlerOpts)
	} else {
		handler = slog.NewTextHandler(writer, handlerOpts)
	}

	return slog.New(handler).With(slog.String("channel", string(channel))), nil
}

func (cl *ChanneledLogger) get(channel Channel) *slog.Logger {
	cl.configMu.RLock()
	defer cl.configMu.RUnlock()
	return cl.channels[channel]
}

func (cl *ChanneledLogger) System() *slog.Logger      { return cl.get(ChannelSystem) }
func (cl *ChanneledLogger) Startup() *slog.Logger     { return cl.get(ChannelStartup) }
func (cl *ChanneledLogger) Shutdown() *slog.Logger    { return cl.get(ChannelShutdown) }
func (cl *ChanneledLogger) HTTP() *slog.Logger        { return cl.get(ChannelHTTP) }
func (cl *ChanneledLogger) Eligibility() *slog.Logger { return cl.get(ChannelEligibility) }
func (cl *ChanneledLogger) Popup() *slog.Logger       { return cl.get(ChannelPopup) }
func (cl *ChanneledLogger) Analytics() *slog.Logger   { return cl.get(ChannelAnalytics) }
func (cl *ChanneledLogger) Email() *slog.Logger       { return cl.get(ChannelEmail) }
func (cl *ChanneledLogger) Auth() *slog.Logger        { return cl.get(ChannelAuth) }
func (cl *ChanneledLogger) Database() *slog.Logger    { return cl.get(ChannelDatabase) }
func (cl *ChanneledLogger) SlowQuery() *slog.Logger   { return cl.get(ChannelSlowQuery) }
func (cl *ChanneledLogger) Cache() *slog.Logger       { return cl.get(ChannelCache) }
func (cl *ChanneledLogger) Perf() *slog.Logger        { return cl.get(ChannelPerf) }

// GetChannel returns a logger for a specific channel
func (cl *ChanneledLogger) GetChannel(channel Channel) *slog.Logger {
	if logger := cl.get(channel); logger != nil {
		return logger
	}
	return cl.System()
}

// WithSession returns a logger carrying a masked session id
func (cl *ChanneledLogger) WithSession(channel Channel, sessionID string) *slog.Logger {
	return cl.GetChannel(channel).With(slog.String("sessionId", MaskSessionID(sessionID)))
}

// WithContext returns a logger with context from the provided context.Context
func (cl *ChanneledLogger) WithContext(channel Channel, ctx context.Context) *slog.Logger {
	logger := cl.GetChannel(channel)

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		logger = logger.With(slog.String("requestId", requestID))
	}

	return logger
}

type contextKey string

// RequestIDKey is the context key holding the request id set by the HTTP middleware.
const RequestIDKey contextKey = "requestId"

// LogSlowQuery logs a slow database query
func (cl *ChanneledLogger) LogSlowQuery(query string, duration time.Duration) {
	cl.SlowQuery().Warn("Slow query detected",
		slog.String("query", sanitizeQuery(query)),
		slog.Duration("duration", duration),
	)
}

// LogError logs an error with appropriate context and channel
func (cl *ChanneledLogger) LogError(channel Channel, operation string, err error, metadata map[string]any) {
	logger := cl.GetChannel(channel).With(
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)

	for key, value := range metadata {
		logger = logger.With(slog.Any(key, value))
	}

	logger.Error("Operation failed")
}

// LogStartupPhase logs application startup phases
func (cl *ChanneledLogger) LogStartupPhase(phase string, duration time.Duration, success bool) {
	logger := cl.Startup().With(
		slog.String("phase", phase),
		slog.Duration("duration", duration),
		slog.Bool("success", success),
	)

	if success {
		logger.Info("Startup phase completed")
	} else {
		logger.Error("Startup phase failed")
	}
}

// sanitizeQuery flattens whitespace and truncates very long queries
func sanitizeQuery(query string) string {
	query = strings.Join(strings.Fields(query), " ")
	if len(query) > 500 {
		query = query[:500] + "..."
	}
	return query
}

// MaskSessionID partially masks session IDs for privacy
func MaskSessionID(sessionID string) string {
	if len(sessionID) <= 8 {
		return "********"
	}
	return sessionID[:4] + "****" + sessionID[len(sessionID)-4:]
}

// MaskEmail keeps the first character and the domain
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "****"
	}
	return email[:1] + "****" + email[at:]
}

// Close closes all file handles
func (cl *ChanneledLogger) Close() error {
	cl.System().Info("Channeled logger shutting down")

	cl.configMu.Lock()
	defer cl.configMu.Unlock()

	var firstErr error
	for channel, file := range cl.files {
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close log file for channel %s: %w", channel, err)
		}
		delete(cl.files, channel)
	}
	return firstErr
}

// SetChannelLevel dynamically sets the log level for a specific channel
func (cl *ChanneledLogger) SetChannelLevel(channel Channel, level slog.Level) error {
	cl.configMu.Lock()
	if _, exists := cl.channels[channel]; !exists {
		cl.configMu.Unlock()
		return fmt.Errorf("channel %s does not exist", channel)
	}
	cl.config.ChannelLevels[channel] = level
	cl.configMu.Unlock()

	newLogger, err := cl.createChannelLogger(channel)
	if err != nil {
		cl.System().Error("Failed to recreate logger for channel on level change", "channel", channel, "error", err)
		return fmt.Errorf("failed to recreate logger for channel %s: %w", channel, err)
	}

	cl.configMu.Lock()
	cl.channels[channel] = newLogger
	cl.configMu.Unlock()

	cl.System().Info("Channel log level updated dynamically",
		slog.String("channel", string(channel)),
		slog.String("level", level.String()),
	)

	return nil
}

// GetChannelLevels returns the current log levels for all channels.
func (cl *ChanneledLogger) GetChannelLevels() map[string]string {
	cl.configMu.RLock()
	defer cl.configMu.RUnlock()

	levels := make(map[string]string)
	for channel := range cl.channels {
		if level, ok := cl.config.ChannelLevels[channel]; ok {
			levels[string(channel)] = level.String()
		} else {
			levels[string(channel)] = cl.config.DefaultLevel.String()
		}
	}
	return levels
}
