// Package validator checks request input before it reaches the services.
package validator

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/dailydiary/internal/common"
	"github.com/dmitrijs2005/dailydiary/internal/server/models"
)

const (
	MaxUsernameLength = 50
	MaxTitleLength    = 255
)

// ValidationErrors maps a field name to a user-facing message.
type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func ValidateRegister(username, password string) ValidationErrors {
	errs := make(ValidationErrors)

	if blank(username) {
		errs.Add("username", "Username is required")
	} else if utf8.RuneCountInString(username) > MaxUsernameLength {
		errs.Add("username", "Username must be at most 50 characters")
	}

	if blank(password) {
		errs.Add("password", "Password is required")
	} else if utf8.RuneCountInString(password) > common.MaxPasswordLength {
		errs.Add("password", "Password must be at most 100 characters")
	}

	return errs
}

func ValidateLogin(username, password string) ValidationErrors {
	errs := make(ValidationErrors)

	if blank(username) {
		errs.Add("username", "Username is required")
	}
	if password == "" {
		errs.Add("password", "Password is required")
	}

	return errs
}

func ValidateResetPassword(username, currentPassword, newPassword, confirmPassword string) ValidationErrors {
	errs := make(ValidationErrors)

	if blank(username) {
		errs.Add("username", "Username is required")
	}
	if blank(currentPassword) {
		errs.Add("current_password", "Current password is required")
	}

	n := utf8.RuneCountInString(newPassword)
	if blank(newPassword) {
		errs.Add("new_password", "New password is required")
	} else if n < common.MinPasswordLength || n > common.MaxPasswordLength {
		errs.Add("new_password", "Password must be between 6 and 100 characters")
	}

	if blank(confirmPassword) {
		errs.Add("confirm_password", "Confirm password is required")
	}

	return errs
}

// ValidateDiary checks an entry form. entryDate may be empty.
func ValidateDiary(title, content, entryDate string) ValidationErrors {
	errs := make(ValidationErrors)

	if blank(title) {
		errs.Add("title", "Title is required")
	} else if utf8.RuneCountInString(title) > MaxTitleLength {
		errs.Add("title", "Title must be at most 255 characters")
	}

	if blank(content) {
		errs.Add("content", "Content is required")
	}

	if _, err := ParseEntryDate(entryDate); err != nil {
		errs.Add("entry_date", "Entry date must be in YYYY-MM-DD format")
	}

	return errs
}

// ParseEntryDate returns nil for an empty string.
func ParseEntryDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(models.DateLayout, s, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
