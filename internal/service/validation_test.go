package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBDMobile(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"01712345678", true},
		{"+8801812345678", true},
		{"8801912345678", true},
		{"017812345", false},
		{"01212345678", false},
		{"+88017123456789", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBDMobile(tt.in))
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Nusrat Jahan", ""},
		{"initial with dot", "Md. Karim Uddin Jr.", ""},
		{"apostrophe inside", "O'Brien", ""},
		{"parenthesis suffix", "Karim (Dhaka)", ""},
		{"bangla", "নুসরাত জাহান", ""},
		{"starts with digit", "3M Bangladesh", ""},
		{"blank", "   ", "The :attribute field is required and cannot be empty or only spaces."},
		{"symbols", "Karim@Home", "The :attribute may only contain letters, numbers, spaces, dots, dashes, parentheses, apostrophes, and Bangla characters."},
		{"digits only", "12345", "The :attribute must contain at least one letter."},
		{"leading dash", "-Karim", "The :attribute must start with a letter or number."},
		{"trailing dash", "Karim-", "The :attribute must end with a letter, number, a dot (after letter or parenthesis), or valid parenthesis."},
		{"double dot", "Karim..", "The :attribute must end with a letter, number, a dot (after letter or parenthesis), or valid parenthesis."},
		{"empty parenthesis", "Karim ()", "The :attribute must end with a letter, number, a dot (after letter or parenthesis), or valid parenthesis."},
		{"double apostrophe", "O''Brien", "The :attribute must not contain consecutive apostrophes."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateName(tt.in))
		})
	}
}

func TestFieldKeyAndAttribute(t *testing.T) {
	tests := []struct {
		namespace string
		key       string
		attr      string
	}{
		{"FormRequest.elements[2].options", "elements.2.options", "options"},
		{"UserRequest.fullName", "fullName", "full name"},
		{"BulkIDsRequest.ids[0]", "ids.0", "ids"},
		{"ChangePasswordRequest.password_confirmation", "password_confirmation", "password confirmation"},
	}
	for _, tt := range tests {
		t.Run(tt.namespace, func(t *testing.T) {
			key := fieldKey(tt.namespace)
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.attr, attributeName(key))
		})
	}
}

func TestValidationError(t *testing.T) {
	v := NewValidationError()
	assert.Nil(t, v.OrNil())

	v.Add("name", "The name field is required.")
	other := fieldError("email", "The email must be a valid email address.")
	v.Merge(other)

	assert.True(t, v.Has("email"))
	assert.Error(t, v.OrNil())
	assert.Equal(t, "validation failed: email: The email must be a valid email address.; name: The name field is required.", v.Error())
}
