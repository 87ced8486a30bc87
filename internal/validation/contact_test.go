package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usergraph-portal/internal/validation"
	appErrors "usergraph-portal/pkg/errors"
)

func TestValidateContactPhone(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		wantErr string
	}{
		{name: "empty", phone: "", wantErr: "phone is required"},
		{name: "whitespace only", phone: "   ", wantErr: "phone is required"},
		{name: "zero digits", phone: "call me", wantErr: "phone is too short"},
		{name: "six digits", phone: "123456", wantErr: "phone is too short"},
		{name: "six digits with punctuation", phone: "(12) 34-56", wantErr: "phone is too short"},
		{name: "seven digits", phone: "1234567"},
		{name: "seven digits padded", phone: "  1234567  "},
		{name: "formatted international", phone: "+1 (555) 123-4567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := validation.ValidateContact(tt.phone, "")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, appErrors.IsValidation(err))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, input.Phone)
		})
	}
}

func TestValidateContactEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{name: "absent email never fails", email: ""},
		{name: "valid", email: "a@b.com"},
		{name: "valid with subdomain", email: "user@mail.example.org"},
		{name: "no at sign", email: "not-an-email", wantErr: true},
		{name: "no domain", email: "user@", wantErr: true},
		{name: "spaces inside", email: "us er@example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := validation.ValidateContact("+1 (555) 123-4567", tt.email)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, appErrors.IsValidation(err))
				assert.Contains(t, err.Error(), "invalid email")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.email, input.Email)
		})
	}
}

func TestValidateContactTrimsFields(t *testing.T) {
	input, err := validation.ValidateContact(" 555-123-4567 ", " a@b.com ")
	require.NoError(t, err)
	assert.Equal(t, "555-123-4567", input.Phone)
	assert.Equal(t, "a@b.com", input.Email)
}
