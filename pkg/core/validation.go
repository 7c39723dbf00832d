package core

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// ValidationError reports an invalid argument or setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ValidateAddress validates a "host:port" listen address. Port 0 is allowed.
func ValidateAddress(address string) error {
	if address == "" {
		return &ValidationError{Field: "address", Message: "address cannot be empty"}
	}
	_, port, err := net.SplitHostPort(address)
	if err != nil {
		return &ValidationError{Field: "address", Message: err.Error()}
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return &ValidationError{Field: "address", Message: fmt.Sprintf("port %q out of range", port)}
	}
	return nil
}

// ValidateTimeout validates a timeout duration
func ValidateTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return &ValidationError{Field: "timeout", Message: "timeout must be positive"}
	}
	if timeout > 5*time.Minute {
		return &ValidationError{Field: "timeout", Message: "timeout too large (max 5 minutes)"}
	}
	return nil
}
