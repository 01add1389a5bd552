package oidc

import (
	"errors"
	"fmt"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	domainauth "github.com/savitara/savitara-api/internal/domain/auth"
)

// ClaimMapping holds JMESPath expressions selecting Credential fields
// from the ID token claims. Firebase-minted and plain Google tokens
// carry the same profile data under slightly different shapes, so the
// paths are deployment-configurable. Empty fields fall back to
// DefaultClaimMapping.
type ClaimMapping struct {
	Subject       string
	Email         string
	EmailVerified string
	Name          string
	Picture       string
}

// DefaultClaimMapping selects the standard OIDC claim names. Subject
// prefers Firebase's user_id when present.
func DefaultClaimMapping() ClaimMapping {
	return ClaimMapping{
		Subject:       "user_id || sub",
		Email:         "email",
		EmailVerified: "email_verified",
		Name:          "name",
		Picture:       "picture",
	}
}

type claimMapper struct {
	subject       jmespath.JMESPath
	email         jmespath.JMESPath
	emailVerified jmespath.JMESPath
	name          jmespath.JMESPath
	picture       jmespath.JMESPath
}

func newClaimMapper(m ClaimMapping) (*claimMapper, error) {
	def := DefaultClaimMapping()
	if m.Subject == "" {
		m.Subject = def.Subject
	}
	if m.Email == "" {
		m.Email = def.Email
	}
	if m.EmailVerified == "" {
		m.EmailVerified = def.EmailVerified
	}
	if m.Name == "" {
		m.Name = def.Name
	}
	if m.Picture == "" {
		m.Picture = def.Picture
	}

	var (
		cm  claimMapper
		err error
	)
	if cm.subject, err = jmespath.Compile(m.Subject); err != nil {
		return nil, fmt.Errorf("subject path %q: %w", m.Subject, err)
	}
	if cm.email, err = jmespath.Compile(m.Email); err != nil {
		return nil, fmt.Errorf("email path %q: %w", m.Email, err)
	}
	if cm.emailVerified, err = jmespath.Compile(m.EmailVerified); err != nil {
		return nil, fmt.Errorf("email_verified path %q: %w", m.EmailVerified, err)
	}
	if cm.name, err = jmespath.Compile(m.Name); err != nil {
		return nil, fmt.Errorf("name path %q: %w", m.Name, err)
	}
	if cm.picture, err = jmespath.Compile(m.Picture); err != nil {
		return nil, fmt.Errorf("picture path %q: %w", m.Picture, err)
	}
	return &cm, nil
}

// credential maps raw ID token claims into a domain Credential.
func (cm *claimMapper) credential(claims map[string]any, expiry time.Time) (domainauth.Credential, error) {
	cred := domainauth.Credential{
		Subject:       searchString(cm.subject, claims),
		Email:         searchString(cm.email, claims),
		EmailVerified: searchBool(cm.emailVerified, claims),
		Name:          searchString(cm.name, claims),
		Picture:       searchString(cm.picture, claims),
		ExpiresAt:     expiry,
	}

	if cred.Subject == "" {
		return domainauth.Credential{}, domainauth.NewProviderError(domainauth.ProviderUnknown,
			errors.New("id_token has no subject claim"))
	}
	return cred, nil
}

func searchString(jp jmespath.JMESPath, data map[string]any) string {
	v, err := jp.Search(data)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func searchBool(jp jmespath.JMESPath, data map[string]any) bool {
	v, err := jp.Search(data)
	if err != nil {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		// Some IdPs serialize the flag as a string.
		return b == "true"
	default:
		return false
	}
}
