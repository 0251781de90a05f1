package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buddybloom/buddybloom/pkg/validation"
)

type signupForm struct {
	Username string `json:"username" validate:"required,uname"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,pwd"`
}

func TestStructValid(t *testing.T) {
	err := validation.Struct(signupForm{
		Username: "alice42",
		Email:    "alice@example.com",
		Password: "longenough",
	})
	assert.NoError(t, err)
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := validation.Struct(signupForm{
		Username: "a!",
		Email:    "nope",
		Password: "short",
	})
	require.Error(t, err)

	details := validation.ToDetails(err)
	assert.Contains(t, details, "username")
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
	assert.Equal(t, "must be a valid email", details["email"])
}

func TestToDetailsNonValidationError(t *testing.T) {
	details := validation.ToDetails(assert.AnError)
	assert.Equal(t, map[string]string{"input": "invalid input"}, details)
}

func TestToDetailsNil(t *testing.T) {
	assert.Nil(t, validation.ToDetails(nil))
}
