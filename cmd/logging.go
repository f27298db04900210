package cmd

import (
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-payment-hub/config"
)

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})

	return nil
}
