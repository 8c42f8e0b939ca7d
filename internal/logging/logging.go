// Package logging configures the shared structured logger.
package logging

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medrx-safety-engine/internal/config"
)

// New builds a logrus logger from logging configuration. Unknown
// levels fall back to info rather than failing startup.
func New(cfg config.LoggingConfig) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	default:
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}

	return log
}
