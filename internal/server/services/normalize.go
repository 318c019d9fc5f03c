package services

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// NormalizeEmail trims and lower-cases an email so lookups and the uniqueness
// constraint agree on one spelling.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeUserName trims a username. Usernames stay case-sensitive.
func NormalizeUserName(name string) string {
	return strings.TrimSpace(name)
}

func requireNonEmpty(field, v string) error {
	if v == "" {
		return fmt.Errorf("%w: %s must not be empty", common.ErrorValidation, field)
	}
	return nil
}
