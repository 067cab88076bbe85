package common

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

// Log file name under logs/ beside the executable.
const logFileName = "casestrainer.log"

var (
	globalLogger arbor.ILogger
	loggerMutex  sync.RWMutex
)

// GetLogger returns the process logger. Before InitLogger runs (tests, the
// MCP binary) it lazily builds a console-only logger so callers never get a
// nil instance.
func GetLogger() arbor.ILogger {
	loggerMutex.RLock()
	if globalLogger != nil {
		loggerMutex.RUnlock()
		return globalLogger
	}
	loggerMutex.RUnlock()

	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	// Double-check after acquiring write lock
	if globalLogger == nil {
		globalLogger = arbor.NewLogger().WithConsoleWriter(consoleWriter())
	}
	return globalLogger
}

// InitLogger builds the arbor logger from logging config and installs it as
// the process logger. Writers follow logging.output: "stdout"/"console" adds
// the console writer, "file" adds a rotating file writer in logs/ beside the
// executable. The task log consumer attaches its context channel to this
// logger later, during app wiring.
func InitLogger(config *Config) arbor.ILogger {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	logger := arbor.NewLogger()

	toFile, toConsole := outputTargets(config.Logging.Output)
	if toFile {
		if path, err := resolveLogFile(); err != nil {
			fmt.Printf("Warning: file logging disabled: %v\n", err)
		} else {
			logger = logger.WithFileWriter(fileWriter(path))
		}
	}
	if toConsole || !toFile {
		logger = logger.WithConsoleWriter(consoleWriter())
	}

	logger = logger.WithLevelFromString(config.Logging.Level)

	globalLogger = logger
	return logger
}

// GetLogFilePath returns the active log file path, empty when file logging
// is off.
func GetLogFilePath(logger arbor.ILogger) string {
	if logger != nil {
		if logFilePath := logger.GetLogFilePath(); logFilePath != "" {
			return logFilePath
		}
	}
	return ""
}

func outputTargets(outputs []string) (toFile, toConsole bool) {
	for _, output := range outputs {
		switch output {
		case "file":
			toFile = true
		case "stdout", "console":
			toConsole = true
		}
	}
	return toFile, toConsole
}

// resolveLogFile creates the logs directory next to the executable and
// returns the log file path inside it.
func resolveLogFile() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	logsDir := filepath.Join(filepath.Dir(execPath), "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create logs directory: %w", err)
	}
	return filepath.Join(logsDir, logFileName), nil
}

func consoleWriter() models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:             models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}
}

func fileWriter(path string) models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:             models.LogWriterTypeFile,
		FileName:         path,
		TimeFormat:       "15:04:05",
		MaxSize:          100 * 1024 * 1024, // 100 MB
		MaxBackups:       3,
		DisableTimestamp: false,
	}
}
