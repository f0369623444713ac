package wizard

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateHost checks that the Cloud Director host is a bare hostname or
// host:port, without a scheme or path.
func ValidateHost(host string) error {
	if host == "" {
		return fmt.Errorf("Cloud Director host cannot be empty")
	}
	if strings.Contains(host, "://") {
		return fmt.Errorf("host must not include a scheme, use e.g. vcd.example.com")
	}
	if strings.Contains(host, "/") {
		return fmt.Errorf("host must not include a path")
	}
	if _, err := url.Parse("https://" + host); err != nil {
		return fmt.Errorf("invalid host: %w", err)
	}
	return nil
}

// ValidateRequired rejects empty values for a named field.
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	return nil
}
