// Package logging builds the logrus logger the rest of the tool shares.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/icarus-itcs/simyard/internal/config"
)

// New returns a logger configured from cfg, writing to out. The level was
// validated when the config was loaded.
func New(cfg config.Log, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
