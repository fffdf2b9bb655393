package util

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// SetLogLevel applies the LOG_LEVEL setting. Anything unrecognised keeps
// Lambdas at error level so CloudWatch volume stays low.
func SetLogLevel(logger *logrus.Logger, level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logger.SetLevel(logrus.WarnLevel)
	default:
		logger.SetLevel(logrus.ErrorLevel)
	}
}
