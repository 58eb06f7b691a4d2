package config

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// LogValidationErrors logs every problem found by a configuration validator on its own line.
func LogValidationErrors(err error) {
	if err == nil {
		return
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		log.Errorf("ConfigError: %s", err)
		return
	}
	for _, err := range merr.Errors {
		log.Errorf("ConfigError: %s", err)
	}
}
