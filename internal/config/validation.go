/*
Package config provides validation helpers for API registrations.

This file contains shared validation functions used by CLI commands
to detect and prevent configuration issues.
*/
package config

import (
	"fmt"
	"net/url"
	"regexp"
)

// apiIDPattern constrains API identifiers: they appear in fragment
// identities and file paths, so keep them to a safe character set.
var apiIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidAPIID reports whether id is an acceptable API identifier.
func ValidAPIID(id string) bool {
	return len(id) <= 64 && apiIDPattern.MatchString(id)
}

// ValidateAPI checks if an API registration is valid.
// Returns an error if validation fails.
func ValidateAPI(name string, api *APIConfig) error {
	if !ValidAPIID(name) {
		return fmt.Errorf("api '%s': invalid identifier (use lowercase letters, digits, '-', '_')", name)
	}

	if api.SpecURL == "" {
		return fmt.Errorf("api '%s': empty specUrl", name)
	}
	if err := validateURL(api.SpecURL); err != nil {
		return fmt.Errorf("api '%s': invalid specUrl: %w", name, err)
	}

	if api.BaseURL != "" {
		if err := validateURL(api.BaseURL); err != nil {
			return fmt.Errorf("api '%s': invalid baseUrl: %w", name, err)
		}
	}

	if api.RateLimit < 0 {
		return fmt.Errorf("api '%s': rateLimit must not be negative", name)
	}
	if api.RateWindowSeconds < 0 {
		return fmt.Errorf("api '%s': rateWindowSeconds must not be negative", name)
	}

	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
