package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid", "a@x.io", false},
		{"Subdomain", "user@mail.example.com", false},
		{"Missing At", "ax.io", true},
		{"Missing Dot", "a@xio", true},
		{"Whitespace", "a b@x.io", true},
		{"Empty", "", true},
		{"Too Long", strings.Repeat("a", 250) + "@x.io", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.EqualError(t, err, MsgInvalidEmail)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"Valid", "secret1", ""},
		{"Exactly Min Length", "abcdef", ""},
		{"Too Short", "abcde", MsgPasswordTooWeak},
		{"Empty", "", MsgPasswordTooWeak},
		{"Too Long", strings.Repeat("a", 73), MsgPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "alice", false},
		{"With Dash And Underscore", "test_user-1", false},
		{"Too Short", "al", true},
		{"Too Long", strings.Repeat("a", 31), true},
		{"Illegal Chars", "user@123", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "hello-world", Slugify("Hello, World!"))
	assert.Equal(t, "go-1-22-release-notes", Slugify("  Go 1.22 -- Release Notes  "))
	assert.Equal(t, "", Slugify("!!!"))
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "a@x.io", NormalizeEmail("  A@X.io "))
}
