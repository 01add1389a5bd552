package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleGrihasta.Valid())
	assert.True(t, RoleAcharya.Valid())
	assert.False(t, Role("admin").Valid())
	assert.False(t, Role("").Valid())
}

func TestPendingAuthEmailHint(t *testing.T) {
	p := PendingAuth{Credential: Credential{Email: "a@x.com"}}
	assert.Equal(t, "a@x.com", p.EmailHint())
}

func TestProviderErrorUserMessage(t *testing.T) {
	cases := map[ProviderErrorKind]string{
		ProviderUserCancelled:      "Sign-in was cancelled.",
		ProviderConcurrentRequest:  "A sign-in is already in progress.",
		ProviderUnauthorizedOrigin: "Sign-in is not allowed from this site.",
	}
	for kind, want := range cases {
		err := NewProviderError(kind, nil)
		assert.Equal(t, want, err.UserMessage())
	}
}

func TestProviderErrorUnknownFallsBackToRaw(t *testing.T) {
	err := NewProviderError(ProviderUnknown, assert.AnError)
	assert.Equal(t, assert.AnError.Error(), err.UserMessage())

	err = NewProviderError(ProviderUnknown, nil)
	assert.Equal(t, "Sign-in failed. Please try again.", err.UserMessage())
}
