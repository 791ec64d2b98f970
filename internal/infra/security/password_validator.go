package security

import (
	"fmt"
	"strings"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// MinPasswordLength is the structural floor shared by registration and the
// login shape check.
const (
	MinPasswordLength = 8
	maxPasswordLength = 128

	minZxcvbnScore = 2
)

// ValidatePassword checks structural rules and estimated strength of a
// candidate password. userInputs (email, name) lower the score of passwords
// derived from them.
func ValidatePassword(password string, userInputs ...string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("password must be at most %d characters long", maxPasswordLength)
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	var missing []string
	if !hasUpper {
		missing = append(missing, "an uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "a lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "a digit")
	}
	if len(missing) > 0 {
		return fmt.Errorf("password must contain %s", strings.Join(missing, ", "))
	}

	result := zxcvbn.PasswordStrength(password, userInputs)
	if result.Score < minZxcvbnScore {
		return fmt.Errorf("password is too predictable, choose a stronger one")
	}

	return nil
}
