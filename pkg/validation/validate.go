package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyBody rejects submissions whose body is empty after trimming.
// It must surface before any store write.
var ErrEmptyBody = errors.New("body must not be empty")

// ErrBodyTooLong rejects submissions above the configured size limit.
var ErrBodyTooLong = errors.New("body too long")

// Rules holds the configurable submit checks.
type Rules struct {
	// MaxBodyLen rejects bodies longer than this many bytes; 0 disables.
	MaxBodyLen int
}

var rules Rules

// SetRules installs the global validation rules (built from config at
// startup).
func SetRules(r Rules) { rules = r }

// ValidateBody checks a submission body against the configured rules.
func ValidateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrEmptyBody
	}
	if rules.MaxBodyLen > 0 && len(body) > rules.MaxBodyLen {
		return fmt.Errorf("%w: exceeds %d bytes", ErrBodyTooLong, rules.MaxBodyLen)
	}
	return nil
}

// IsInvalid reports whether err is a submission validation failure (as
// opposed to a store or infrastructure error).
func IsInvalid(err error) bool {
	return errors.Is(err, ErrEmptyBody) || errors.Is(err, ErrBodyTooLong)
}
