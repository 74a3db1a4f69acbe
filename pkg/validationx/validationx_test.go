package validationx

import (
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
)

func TestNotBlank(t *testing.T) {
	t.Parallel()

	blank := "  \t "
	filled := "site-1"
	var nilPtr *string

	tests := []struct {
		name  string
		value any
		valid bool
	}{
		{"empty is left to Required", "", true},
		{"spaces only", "   ", false},
		{"tabs and newlines", "\t\n", false},
		{"regular value", "user-42", true},
		{"value with inner spaces", "Acme Corp", true},
		{"pointer to blank", &blank, false},
		{"pointer to value", &filled, true},
		{"nil pointer", nilPtr, true},
		{"not a string", 42, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := NotBlank.Validate(tt.value)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRequiredText(t *testing.T) {
	t.Parallel()

	type req struct {
		SiteID string
		UserID string
	}

	r := req{SiteID: "", UserID: "  "}
	err := validation.ValidateStruct(&r,
		validation.Field(&r.SiteID, RequiredText...),
		validation.Field(&r.UserID, RequiredText...),
	)

	AssertValidationErrors(t, err, validation.Errors{
		"SiteID": validation.ErrRequired,
		"UserID": ErrBlank,
	})
}
