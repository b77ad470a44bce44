// Package validation provides custom validation rules for the application.
package validation

import (
	"strings"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	apperrors "github.com/herbaltrace/ledgersync/internal/errors"
)

// dateLayouts are the accepted calendar date formats, most specific last.
var dateLayouts = []string{"2006-01-02", time.RFC3339, time.RFC3339Nano}

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// UUID validates that a string is a canonical UUID.
var UUID = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := uuid.Parse(s)
		return err == nil && len(s) == 36
	},
	validation.NewError("validation_uuid", "must be a valid UUID"),
)

// Date validates that a string is a calendar date (YYYY-MM-DD) or an RFC3339 timestamp.
var Date = validation.NewStringRuleWithError(
	func(s string) bool {
		_, ok := ParseDate(s)
		return ok
	},
	validation.NewError("validation_date", "must be a date (YYYY-MM-DD) or RFC3339 timestamp"),
)

// ParseDate parses s with the layouts accepted by Date.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// UUIDList validates every element of a string slice with UUID and rejects duplicates.
var UUIDList = validation.By(func(value interface{}) error {
	ids, ok := value.([]string)
	if !ok {
		return validation.NewError("validation_uuid_list_type", "must be a list of strings")
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if err := UUID.Validate(id); err != nil {
			return err
		}
		if _, dup := seen[id]; dup {
			return validation.NewError("validation_uuid_list_duplicate", "must not contain duplicate ids")
		}
		seen[id] = struct{}{}
	}
	return nil
})
