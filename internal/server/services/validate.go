package services

import (
	"fmt"
	"regexp"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{3,64}$`)

// ValidUsername reports whether s is 3 to 64 characters of [A-Za-z0-9._-].
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

func validateUsername(s string) error {
	if !ValidUsername(s) {
		return fmt.Errorf("%w: username must be 3-64 characters of letters, digits, '.', '_' or '-'", common.ErrValidation)
	}
	return nil
}
