package utils

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	InfoLogger  = newLogger(os.Stdout, logrus.InfoLevel)
	ErrorLogger = newLogger(os.Stderr, logrus.WarnLevel)
)

func newLogger(out *os.File, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(level)
	return l
}

// InitLogger reconfigures both loggers. format is "json" or "text".
func InitLogger(level, format string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logrus.InfoLevel
	}

	var formatter logrus.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	if strings.EqualFold(format, "json") {
		formatter = &logrus.JSONFormatter{}
	}

	InfoLogger.SetFormatter(formatter)
	InfoLogger.SetLevel(lvl)

	// Error logger keeps warnings and up regardless of the info level
	ErrorLogger.SetFormatter(formatter)
	if lvl < logrus.WarnLevel {
		ErrorLogger.SetLevel(lvl)
	} else {
		ErrorLogger.SetLevel(logrus.WarnLevel)
	}
}
