package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoWhitespace(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{
			name:      "no whitespace",
			input:     "validstring",
			shouldErr: false,
		},
		{
			name:      "leading whitespace",
			input:     " validstring",
			shouldErr: true,
		},
		{
			name:      "trailing whitespace",
			input:     "validstring ",
			shouldErr: true,
		},
		{
			name:      "internal spaces allowed",
			input:     "valid string",
			shouldErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NoWhitespace.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNotBlank(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{
			name:      "valid string",
			input:     "validstring",
			shouldErr: false,
		},
		{
			name:      "only spaces",
			input:     "   ",
			shouldErr: true,
		},
		{
			name:      "mixed whitespace",
			input:     " \t\n ",
			shouldErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NotBlank.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUUID(t *testing.T) {
	assert.NoError(t, UUID.Validate("0190a8f2-6c1e-7b3a-9f00-3c2d1e0f4a5b"))
	assert.Error(t, UUID.Validate("not-a-uuid"))
	assert.Error(t, UUID.Validate("0190a8f26c1e7b3a9f003c2d1e0f4a5b"))
	// Empty values are left to Required.
	assert.NoError(t, UUID.Validate(""))
}

func TestDate(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{name: "calendar date", input: "2025-10-01", shouldErr: false},
		{name: "rfc3339", input: "2025-10-01T08:30:00Z", shouldErr: false},
		{name: "rfc3339 with offset", input: "2025-10-01T08:30:00+05:30", shouldErr: false},
		{name: "day first", input: "01/10/2025", shouldErr: true},
		{name: "invalid month", input: "2025-13-01", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Date.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUUIDList(t *testing.T) {
	a := "0190a8f2-6c1e-7b3a-9f00-3c2d1e0f4a5b"
	b := "0190a8f2-6c1e-7b3a-9f00-3c2d1e0f4a5c"

	assert.NoError(t, UUIDList.Validate([]string{a, b}))
	assert.Error(t, UUIDList.Validate([]string{a, a}))
	assert.Error(t, UUIDList.Validate([]string{a, "nope"}))
}

func TestWrapValidationError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error returns nil",
			err:      nil,
			expected: false,
		},
		{
			name:     "wraps validation error",
			err:      assert.AnError,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := WrapValidationError(tt.err)
			if tt.expected {
				assert.Error(t, result)
				assert.Contains(t, result.Error(), "invalid input")
			} else {
				assert.NoError(t, result)
			}
		})
	}
}
