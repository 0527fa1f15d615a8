package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailValidator(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"", ErrEmailEmpty},
		{"not-an-email", ErrEmailInvalid},
		{"Ann <ann@example.com>", ErrEmailInvalid},
		{"ann@example.com", nil},
	}

	for _, tc := range tests {
		err := EmailValidator(tc.in)
		if tc.want == nil {
			assert.NoError(t, err, tc.in)
			continue
		}
		assert.ErrorIs(t, err, tc.want, tc.in)
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ann@example.com", NormalizeEmail("  Ann@Example.COM "))
}

func TestPasswordValidator(t *testing.T) {
	assert.ErrorIs(t, PasswordValidator(""), ErrPasswordEmpty)
	assert.ErrorIs(t, PasswordValidator("short"), ErrPasswordTooShort)
	assert.ErrorIs(t, PasswordValidator("aaaaaaaaaa"), ErrPasswordWeak)
	assert.NoError(t, PasswordValidator("Tr0ub4dor&3-horse"))
}

type sample struct {
	Email     string  `validate:"required"`
	FirstName *string `validate:"omitempty,max=5"`
}

func TestStruct(t *testing.T) {
	err := Struct(sample{})
	require.Error(t, err)
	assert.Equal(t, "email is required", err.Error())

	long := "abcdefgh"
	err = Struct(sample{Email: "x", FirstName: &long})
	require.Error(t, err)
	assert.Equal(t, "firstName must be at most 5 characters long", err.Error())

	ok := "abc"
	assert.NoError(t, Struct(sample{Email: "x", FirstName: &ok}))
	assert.NoError(t, Struct(sample{Email: "x"}))
}
