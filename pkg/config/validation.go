package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks cfg against its struct validation tags and a small
// set of cross-field rules the tags alone can't express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	if cfg.Dispatcher.DriverTimeout < 0 || cfg.Dispatcher.BrokerTimeout < 0 {
		return fmt.Errorf("dispatcher timeouts must not be negative")
	}

	return nil
}
