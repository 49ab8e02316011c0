package accounts

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/newsdesk-cms/newsdesk/src/email"
	"github.com/newsdesk-cms/newsdesk/src/oops"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 100
	MinUsernameLength = 3
	MaxUsernameLength = 50
)

// Letters include Latin-1 Supplement and Latin Extended-A so Vietnamese and
// most European names are allowed.
var reUsername = regexp.MustCompile(`^[a-zA-Z0-9_\s\x{00C0}-\x{017F}-]+$`)

func CleanUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < MinUsernameLength || n > MaxUsernameLength {
		return "", oops.InvalidInput("username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength).WithCode("invalid_username")
	}
	if !reUsername.MatchString(username) {
		return "", oops.InvalidInput("username may only contain letters, digits, spaces, underscores and dashes").WithCode("invalid_username")
	}
	return username, nil
}

func CleanEmail(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !email.IsEmail(address) {
		return "", oops.InvalidInput("invalid email address").WithCode("invalid_email")
	}
	return address, nil
}

func CheckPassword(password string) error {
	if n := utf8.RuneCountInString(password); n < MinPasswordLength || n > MaxPasswordLength {
		return oops.InvalidInput("password must be between %d and %d characters", MinPasswordLength, MaxPasswordLength).WithCode("invalid_password")
	}
	return nil
}
