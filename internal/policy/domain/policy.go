package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidPolicy is returned by Validate.
var ErrInvalidPolicy = errors.New("invalid policy")

// Policy is a stored Rego module. Enabled policies replace the built-in clock-in policy.
type Policy struct {
	ID        string
	Name      string
	Rules     string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks that name and rules are present.
func (p *Policy) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPolicy)
	}
	if strings.TrimSpace(p.Rules) == "" {
		return fmt.Errorf("%w: rules are required", ErrInvalidPolicy)
	}
	return nil
}
