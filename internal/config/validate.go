package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ValidationError contains details about what failed validation.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config.%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// validateConfig checks all config values for validity.
// Returns nil if valid, or joined errors for all validation failures.
func validateConfig(cfg *Config) error {
	var errs []error

	// Certificate and Key come as a pair
	if (cfg.Certificate == "") != (cfg.Key == "") {
		errs = append(errs, &ValidationError{
			Field:   "certificate",
			Value:   fmt.Sprintf("certificate=%q key=%q", cfg.Certificate, cfg.Key),
			Message: "certificate and key must both be set or both be empty",
		})
	}

	// ManagerURL, when set, must be an absolute http(s) URL
	if cfg.ManagerURL != "" {
		if err := ValidateManagerURL(cfg.ManagerURL); err != nil {
			errs = append(errs, &ValidationError{
				Field:   "manager_url",
				Value:   cfg.ManagerURL,
				Message: err.Error(),
			})
		}
	}

	if d, err := time.ParseDuration(cfg.PollInterval); err != nil {
		errs = append(errs, &ValidationError{
			Field:   "poll_interval",
			Value:   cfg.PollInterval,
			Message: fmt.Sprintf("invalid duration: %v", err),
		})
	} else if d <= 0 {
		errs = append(errs, &ValidationError{
			Field:   "poll_interval",
			Value:   cfg.PollInterval,
			Message: "must be positive",
		})
	}

	if d, err := time.ParseDuration(cfg.Timeout); err != nil {
		errs = append(errs, &ValidationError{
			Field:   "timeout",
			Value:   cfg.Timeout,
			Message: fmt.Sprintf("invalid duration: %v", err),
		})
	} else if d <= 0 {
		errs = append(errs, &ValidationError{
			Field:   "timeout",
			Value:   cfg.Timeout,
			Message: "must be positive",
		})
	}

	// LogLevel must be one of: debug, info, warn, error (case-sensitive)
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, &ValidationError{
			Field:   "log_level",
			Value:   cfg.LogLevel,
			Message: "must be one of: debug, info, warn, error",
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ValidateManagerURL checks that raw is an absolute http or https URL.
func ValidateManagerURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	return nil
}
