package config

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// ConfigureLogger applies LOG_LEVEL and LOG_FORMAT to the standard logrus logger.
func (c Config) ConfigureLogger() error {
	return configureLogger(log.StandardLogger(), c.LogLevel, c.LogFormat)
}

func configureLogger(logger *log.Logger, level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	logger.SetLevel(lvl)

	switch format {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("LOG_FORMAT: unknown format %q", format)
	}
	return nil
}
