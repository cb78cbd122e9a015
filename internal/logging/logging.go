// Package logging configures the process-wide logrus logger. Output
// rotation goes through lumberjack so long capture sessions do not
// fill the disk.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration.
type Config struct {
	Level     string `yaml:"level"`     // debug | info | warn | error
	Format    string `yaml:"format"`    // text | json
	Output    string `yaml:"output"`    // stdout | file | both
	Directory string `yaml:"directory"` // log directory for file output

	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
}

// New creates a configured logger. Invalid levels fall back to info.
func New(cfg Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	switch cfg.Output {
	case "file":
		logger.SetOutput(fileWriter(cfg))
	case "both":
		logger.SetOutput(io.MultiWriter(os.Stdout, fileWriter(cfg)))
	default:
		logger.SetOutput(os.Stdout)
	}

	return logger
}

// Component returns an entry tagged with a component field. All
// packages log through entries produced here, so every line carries
// its origin.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("component", name)
}

func fileWriter(cfg Config) io.Writer {
	dir := cfg.Directory
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return os.Stdout
	}

	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}

	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, "backtest-lab.log"),
		MaxSize:    maxSize, // MB
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays, // days
		Compress:   cfg.Compress,
	}
}
