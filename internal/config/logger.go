package config

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the logger described by cfg. When cfg.File is set the
// output also goes to a rotated log file, which the returned Closer closes.
func NewLogger(cfg Logger) (*logrus.Logger, io.Closer, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	logger := logrus.New()
	logger.SetLevel(level)

	switch cfg.Format {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.File == "" {
		return logger, nopCloser{}, nil
	}

	rotated := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   true,
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, rotated))
	return logger, rotated, nil
}
