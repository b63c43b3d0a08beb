package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NeuralTrust/ThreatGuard/pkg/config"
	"github.com/sirupsen/logrus"
)

const defaultLogFile = "logs/threatguard.log"

// Closer flushes and releases the asynchronous writers behind a logger.
type Closer func()

// NewLogger builds the JSON logrus logger used across the service. Entries
// go to a buffered log file and, through an async hook, to stdout. The
// LOG_LEVEL environment variable wins over the configured level.
func NewLogger(cfg config.LogConfig) (*logrus.Logger, Closer, error) {
	logger := logrus.New()

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "time",
			logrus.FieldKeyMsg:  "msg",
		},
	})
	logger.SetLevel(resolveLevel(cfg.Level))

	logFile := cfg.File
	if logFile == "" {
		logFile = defaultLogFile
	}
	logFile = filepath.Clean(logFile)
	if strings.Contains(logFile, "..") {
		return nil, nil, fmt.Errorf("invalid log file path %q", cfg.File)
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0750); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	fileWriter, err := NewAsyncFileWriter(logFile, 32*1024)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize async log writer: %w", err)
	}
	logger.SetOutput(fileWriter)

	consoleHook := NewAsyncConsoleHook(1000)
	logger.AddHook(consoleHook)

	closer := func() {
		consoleHook.Close()
		fileWriter.Close()
	}
	return logger, closer, nil
}

func resolveLevel(configured string) logrus.Level {
	raw := os.Getenv("LOG_LEVEL")
	if raw == "" {
		raw = configured
	}
	level, err := logrus.ParseLevel(raw)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
