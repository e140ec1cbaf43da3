package shim

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a JSON logger for CloudWatch
func NewLogger(level logrus.Level) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(level)
	return log
}
