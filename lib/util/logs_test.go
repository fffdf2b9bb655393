package util

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetLogLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"error":   logrus.ErrorLevel,
		"info":    logrus.InfoLevel,
		"DEBUG":   logrus.DebugLevel,
		" warn ":  logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"other":   logrus.ErrorLevel,
		"":        logrus.ErrorLevel,
	}

	for input, expected := range cases {
		logger := logrus.New()
		SetLogLevel(logger, input)
		assert.Equal(t, expected, logger.GetLevel(), "LOG_LEVEL=%q", input)
	}
}
