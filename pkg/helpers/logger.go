package helpers

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger: text output at debug level in
// development, JSON at info level elsewhere. A non-empty level overrides the
// env default; an unknown level is reported and ignored.
func NewLogger(appName, env, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if env == "development" {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if level = strings.TrimSpace(level); level != "" {
		if lvl, err := logrus.ParseLevel(level); err == nil {
			logger.SetLevel(lvl)
		} else {
			logger.WithField("level", level).Warn("unknown LOG_LEVEL, keeping default")
		}
	}
	logger.WithFields(logrus.Fields{"app": appName, "env": env, "level": logger.GetLevel().String()}).Info("logger initialized")
	return logger
}

// LogError logs msg at error level with err attached.
func LogError(logger *logrus.Logger, msg string, err error, fields logrus.Fields) {
	logger.WithError(err).WithFields(fields).Error(msg)
}

func LogInfo(logger *logrus.Logger, msg string, fields logrus.Fields) {
	logger.WithFields(fields).Info(msg)
}
