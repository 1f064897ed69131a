package security

import (
	"fmt"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// PasswordValidationError represents a single password policy violation.
type PasswordValidationError struct {
	Code    string
	Message string
}

// Error implements error for PasswordValidationError.
func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordRule validates a password according to a specific policy rule.
// userInputs carries identity values (username, email) so strength scoring
// can penalize passwords derived from them.
type PasswordRule func(password string, userInputs []string) error

// PasswordValidator applies a sequence of password rules.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator constructs a validator with the provided rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordValidator{rules: copied}
}

// DefaultPasswordValidator accepts any password the boundary lets through.
// Non-emptiness is already enforced by the request handlers, so the default
// policy carries no rules; strength is reported via PasswordStrengthScore
// instead of being enforced.
func DefaultPasswordValidator() *PasswordValidator {
	return NewPasswordValidator()
}

// StrictPasswordValidator applies the opt-in complexity policy
// (auth.password_policy = "strict").
func StrictPasswordValidator() *PasswordValidator {
	return NewPasswordValidator(
		MinLengthRule(8),
		RequireLetterRule(),
		RequireDigitRule(),
		RequirePasswordStrengthRule(2),
	)
}

// With returns a copy of the validator extended with additional rules.
func (v *PasswordValidator) With(rules ...PasswordRule) *PasswordValidator {
	if v == nil {
		return NewPasswordValidator(rules...)
	}
	combined := make([]PasswordRule, 0, len(v.rules)+len(rules))
	combined = append(combined, v.rules...)
	combined = append(combined, rules...)
	return &PasswordValidator{rules: combined}
}

// Enforcing reports whether the validator carries any rule.
func (v *PasswordValidator) Enforcing() bool {
	return v != nil && len(v.rules) > 0
}

// Validate executes all rules and returns the first encountered violation.
func (v *PasswordValidator) Validate(password string, userInputs ...string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}
	for _, rule := range v.rules {
		if err := rule(password, userInputs); err != nil {
			return err
		}
	}
	return nil
}

// MinLengthRule ensures the password has at least min characters.
func MinLengthRule(min int) PasswordRule {
	return func(password string, _ []string) error {
		if len([]rune(password)) < min {
			return &PasswordValidationError{
				Code:    "min_length",
				Message: fmt.Sprintf("password must be at least %d characters long", min),
			}
		}
		return nil
	}
}

// RequireLetterRule ensures the password contains at least one unicode letter.
func RequireLetterRule() PasswordRule {
	return func(password string, _ []string) error {
		for _, r := range password {
			if unicode.IsLetter(r) {
				return nil
			}
		}
		return &PasswordValidationError{
			Code:    "letter",
			Message: "password must include at least one letter",
		}
	}
}

// RequireDigitRule ensures the password contains at least one digit.
func RequireDigitRule() PasswordRule {
	return func(password string, _ []string) error {
		for _, r := range password {
			if unicode.IsDigit(r) {
				return nil
			}
		}
		return &PasswordValidationError{
			Code:    "digit",
			Message: "password must include at least one digit",
		}
	}
}

// RequireDifferentFrom ensures the new password differs from the provided comparator.
func RequireDifferentFrom(comparator string) PasswordRule {
	return func(password string, _ []string) error {
		if password == comparator {
			return &PasswordValidationError{
				Code:    "different",
				Message: "new password must be different from current password",
			}
		}
		return nil
	}
}

// RequirePasswordStrengthRule enforces a minimum zxcvbn score to reject weak passwords.
func RequirePasswordStrengthRule(minScore int) PasswordRule {
	return func(password string, userInputs []string) error {
		if minScore <= 0 {
			return nil
		}
		if minScore > 4 {
			minScore = 4
		}

		if PasswordStrengthScore(password, userInputs...) >= minScore {
			return nil
		}

		return &PasswordValidationError{
			Code:    "weak_password",
			Message: "password is too weak; choose a more complex value",
		}
	}
}

// PasswordStrengthScore returns the zxcvbn score (0-4) for the password,
// penalizing values derived from the provided identity inputs.
func PasswordStrengthScore(password string, userInputs ...string) int {
	return zxcvbn.PasswordStrength(password, userInputs).Score
}
