package shmcam

import (
	"os"

	"github.com/sirupsen/logrus"
)

var (
	debug = os.Getenv("DEBUG_SHMCAM") != ""

	log logrus.FieldLogger
)

// SetLogger sets global logger.
func SetLogger(logger logrus.FieldLogger) {
	log = logger
}

func init() {
	logger := logrus.New()
	if debug {
		logger.Level = logrus.DebugLevel
		logger.Debug("shmcam: debug level enabled")
	}
	log = logger.WithField("logger", "shmcam")
}
