package logger

import (
	"go.uber.org/zap"
)

// LoggerAdapter gives the service layer one handle for the console logger,
// the categorized event files and the install process log. Without a
// MultiLogger every category falls back to the console logger.
type LoggerAdapter struct {
	multiLogger  *MultiLogger
	singleLogger *zap.Logger
}

// NewLoggerAdapter creates an adapter writing events to both the console and category files
func NewLoggerAdapter(console *zap.Logger, multiLogger *MultiLogger) *LoggerAdapter {
	return &LoggerAdapter{
		multiLogger:  multiLogger,
		singleLogger: console,
	}
}

// NewSingleLoggerAdapter creates an adapter for a single logger
func NewSingleLoggerAdapter(logger *zap.Logger) *LoggerAdapter {
	return &LoggerAdapter{singleLogger: logger}
}

// General returns the console logger
func (la *LoggerAdapter) General() *zap.Logger {
	return la.singleLogger
}

// Queue returns the queue event logger
func (la *LoggerAdapter) Queue() *zap.Logger {
	if la.multiLogger != nil {
		return la.multiLogger.Queue()
	}
	return la.singleLogger
}

// Error returns the error event logger
func (la *LoggerAdapter) Error() *zap.Logger {
	if la.multiLogger != nil {
		return la.multiLogger.Error()
	}
	return la.singleLogger
}

// LogQueueEvent records a queue lifecycle event in the queue category
func (la *LoggerAdapter) LogQueueEvent(event string, fields ...zap.Field) {
	if la.multiLogger != nil {
		la.multiLogger.LogQueueEvent(event, fields...)
	}
}

// LogError logs an error to the console and the error category
func (la *LoggerAdapter) LogError(msg string, fields ...zap.Field) {
	la.singleLogger.Error(msg, fields...)
	if la.multiLogger != nil {
		la.multiLogger.LogAppError(msg, fields...)
	}
}

// OpenInstallLog opens the install process log, or returns nil when there are no log files.
// A nil *InstallLog accepts writes and discards them.
func (la *LoggerAdapter) OpenInstallLog(installID, framework string) *InstallLog {
	if la.multiLogger == nil {
		return nil
	}
	l, err := la.multiLogger.OpenInstallLog(installID, framework)
	if err != nil {
		la.singleLogger.Warn("Failed to open install log", zap.Error(err))
		return nil
	}
	return l
}

// Sync flushes all loggers
func (la *LoggerAdapter) Sync() error {
	if la.multiLogger != nil {
		la.multiLogger.Sync()
	}
	return la.singleLogger.Sync()
}
