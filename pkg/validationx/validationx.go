package validationx

import (
	"errors"
	"strings"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"gitlab.com/ucmsv2/authcode-service/pkg/i18nx"
)

var ErrBlank = validation.NewError(i18nx.ValidationNotBlank, "cannot be blank or whitespace")

var (
	// NotBlank rejects strings made only of whitespace. Empty values pass; pair it with validation.Required.
	NotBlank = NotBlankRule{}

	// RequiredText is the rule set for caller supplied opaque strings.
	RequiredText = []validation.Rule{
		validation.Required,
		NotBlank,
	}
)

type NotBlankRule struct{}

func (r NotBlankRule) Validate(value any) error {
	value, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}

	s, ok := value.(string)
	if !ok {
		return errors.New("value is not a string")
	}
	if s != "" && strings.TrimSpace(s) == "" {
		return ErrBlank
	}

	return nil
}

func AssertValidationErrors(t *testing.T, err error, expected error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %v, got nil", expected)
	}

	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected error to be of type validation.Errors, got %T: %v", err, err)
	}

	var expectedVerrs validation.Errors
	if !errors.As(expected, &expectedVerrs) {
		t.Fatalf("expected expected error to be of type validation.Errors, got %T: %v", expected, expected)
	}

	if len(verrs) != len(expectedVerrs) {
		t.Fatalf("expected number of validation errors to match, got %v and %v", verrs, expectedVerrs)
	}

	for field, expectedErr := range expectedVerrs {
		if actualErr, found := verrs[field]; !found {
			t.Errorf("field %s: expected error %v, got none", field, expectedErr)
		} else {
			AssertValidationError(t, actualErr, expectedErr)
		}
	}
}

func AssertValidationError(t *testing.T, err error, expected error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %v, got nil", expected)
	}

	var verr validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected error to be of type validation.Error, got %T: %v", err, err)
	}
	var expectedVerr validation.Error
	if !errors.As(expected, &expectedVerr) {
		t.Fatalf("expected expected error to be of type validation.Error, got %T: %v", expected, expected)
	}

	if verr.Code() != expectedVerr.Code() || verr.Message() != expectedVerr.Message() {
		t.Errorf("expected validation error to match, got %v and %v", verr, expectedVerr)
	}
}
