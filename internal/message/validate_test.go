package message

import (
	"errors"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      CreateInput
		wantErr bool
	}{
		{"plain text", CreateInput{Text: lo.ToPtr("hello")}, false},
		{"single char", CreateInput{Text: lo.ToPtr("x")}, false},
		{"whitespace is not empty", CreateInput{Text: lo.ToPtr(" ")}, false},
		{"missing", CreateInput{}, true},
		{"empty", CreateInput{Text: lo.ToPtr("")}, true},
		{"nul byte", CreateInput{Text: lo.ToPtr("a\x00b")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %+v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrValidation) {
				t.Errorf("Validate() error = %+v, want ErrValidation", err)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewViolation("text", "string", "text must be a string")

	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation failed: text must be a string", err.Error())
	assert.Equal(t, []Violation{{Field: "text", Constraint: "string", Message: "text must be a string"}}, err.Violations)
}

func TestValidateNul(t *testing.T) {
	err := Validate(CreateInput{Text: lo.ToPtr("a\x00b")})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 1)
	assert.Equal(t, "text", verr.Violations[0].Field)
	assert.Equal(t, "nonul", verr.Violations[0].Constraint)
	assert.Equal(t, "text must not contain NUL characters", verr.Violations[0].Message)
}
