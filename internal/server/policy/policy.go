// Package policy holds the credential validation rules applied to user input
// before it reaches the account service. The functions are pure: they look at
// their arguments and a Policy value, nothing else.
package policy

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Policy collects every threshold used by the validators, so a deployment can
// tune them from one configuration surface.
type Policy struct {
	UsernameMinLength int
	UsernameMaxLength int
	PasswordMinLength int
	PasswordMaxLength int
	MinUpper          int
	MinLower          int
	MinDigits         int
	MinSpecial        int
}

// Default returns the stock policy: usernames of 8 to 20 characters and
// passwords of 8 to 20 characters with at least two upper-case, two lower-case,
// two digit and two special characters.
func Default() Policy {
	return Policy{
		UsernameMinLength: 8,
		UsernameMaxLength: 20,
		PasswordMinLength: 8,
		PasswordMaxLength: 20,
		MinUpper:          2,
		MinLower:          2,
		MinDigits:         2,
		MinSpecial:        2,
	}
}

// ValidationError carries a message meant to be shown to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// noWhitespace rejects any Unicode white space, not just ASCII.
var noWhitespace = regexp.MustCompile(`^[^\s\v\x{85}\p{Z}]+$`)

// validate runs rules against value and reports the first failure as a
// *ValidationError for field.
func validate(field string, value string, rules ...validation.Rule) error {
	if err := validation.Validate(value, rules...); err != nil {
		return &ValidationError{Field: field, Message: err.Error()}
	}
	return nil
}

// minCount builds a rule that requires at least n runes of value to satisfy
// class. A zero n always passes.
func minCount(n int, class func(rune) bool, message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string)
		count := 0
		for _, r := range s {
			if class(r) {
				count++
			}
		}
		if count < n {
			return errors.New(message)
		}
		return nil
	})
}

func notBlank(message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return errors.New(message)
		}
		return nil
	})
}

func validUTF8(message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if !utf8.ValidString(s) {
			return errors.New(message)
		}
		return nil
	})
}

// Password characters fall into at most one class, checked in this order.
func isUpper(r rune) bool { return unicode.IsUpper(r) }
func isLower(r rune) bool { return !unicode.IsUpper(r) && unicode.IsLower(r) }
func isDigit(r rune) bool {
	return !unicode.IsUpper(r) && !unicode.IsLower(r) && unicode.IsDigit(r)
}
func isSpecial(r rune) bool {
	return !unicode.IsUpper(r) && !unicode.IsLower(r) && !unicode.IsDigit(r) &&
		(unicode.IsPunct(r) || unicode.IsSymbol(r))
}

// ValidateUsername checks that name is non-blank, has no whitespace and fits
// the configured length bounds. A zero bound is not enforced.
func ValidateUsername(p Policy, name string) error {
	return validate("username", name,
		validation.Required.Error("username is required"),
		notBlank("username is required"),
		validation.Match(noWhitespace).Error("username must not contain whitespace"),
		validation.RuneLength(p.UsernameMinLength, 0).
			Error(fmt.Sprintf("username must be at least %d characters long", p.UsernameMinLength)),
		validation.RuneLength(0, p.UsernameMaxLength).
			Error(fmt.Sprintf("username must be at most %d characters long", p.UsernameMaxLength)),
	)
}

// ValidatePassword checks length bounds and minimum character-class counts.
// Letters outside upper/lower case count toward neither class; punctuation and
// symbols count as special characters.
func ValidatePassword(p Policy, password string) error {
	return validate("password", password,
		validation.Required.Error("password is required"),
		validUTF8("password must be valid UTF-8"),
		validation.RuneLength(p.PasswordMinLength, 0).
			Error(fmt.Sprintf("password must be at least %d characters long", p.PasswordMinLength)),
		validation.RuneLength(0, p.PasswordMaxLength).
			Error(fmt.Sprintf("password must be at most %d characters long", p.PasswordMaxLength)),
		minCount(p.MinUpper, isUpper,
			fmt.Sprintf("password must contain at least %d upper-case letters", p.MinUpper)),
		minCount(p.MinLower, isLower,
			fmt.Sprintf("password must contain at least %d lower-case letters", p.MinLower)),
		minCount(p.MinDigits, isDigit,
			fmt.Sprintf("password must contain at least %d digits", p.MinDigits)),
		minCount(p.MinSpecial, isSpecial,
			fmt.Sprintf("password must contain at least %d special characters", p.MinSpecial)),
	)
}
