package mailbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	// EnvToken is the environment variable holding the serialized token.
	EnvToken = "GMAIL_TOKEN"

	ScopeModify   = "https://www.googleapis.com/auth/gmail.modify"
	ScopeReadonly = "https://www.googleapis.com/auth/gmail.readonly"
	scopeFullMail = "https://mail.google.com/"
)

// ErrMissingCredentials means neither the environment variable nor the token
// file is present. Fatal at startup, never retried.
var ErrMissingCredentials = errors.New("mailbox: no credentials in " + EnvToken + " and no token file")

// StoredToken mirrors the authorized-user JSON written by the interactive
// grant (cmd/gentoken). Tokens are opaque here: no expiry is tracked, refresh
// is the oauth2 transport's job.
type StoredToken struct {
	AccessToken  string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
}

// CredentialSource is one place a serialized token can come from.
type CredentialSource interface {
	Name() string
	Load() ([]byte, error)
}

// EnvSource reads the token from an environment variable.
type EnvSource struct {
	Var string
}

func (s EnvSource) Name() string { return "env:" + s.Var }

func (s EnvSource) Load() ([]byte, error) {
	v := os.Getenv(s.Var)
	if v == "" {
		return nil, ErrMissingCredentials
	}
	return []byte(v), nil
}

// FileSource reads the token from a local file.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file:" + s.Path }

func (s FileSource) Load() ([]byte, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMissingCredentials
		}
		return nil, err
	}
	return b, nil
}

// SelectSource picks the first available credential source: environment
// first, token file second.
func SelectSource(tokenFile string) (CredentialSource, error) {
	env := EnvSource{Var: EnvToken}
	if _, err := env.Load(); err == nil {
		return env, nil
	}
	file := FileSource{Path: tokenFile}
	if _, err := file.Load(); err != nil {
		return nil, err
	}
	return file, nil
}

// ParseToken normalizes and decodes raw token JSON. Some grant flows write an
// "expiry" field this schema does not carry; it is stripped before decoding
// rather than failing the parse. The access token is then treated as already
// stale so the first use goes through the refresh flow.
func ParseToken(raw []byte) (StoredToken, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return StoredToken{}, fmt.Errorf("parse token: %w", err)
	}
	delete(fields, "expiry")

	clean, err := json.Marshal(fields)
	if err != nil {
		return StoredToken{}, fmt.Errorf("normalize token: %w", err)
	}
	var t StoredToken
	if err := json.Unmarshal(clean, &t); err != nil {
		return StoredToken{}, fmt.Errorf("parse token: %w", err)
	}
	if t.RefreshToken == "" && t.AccessToken == "" {
		return StoredToken{}, errors.New("parse token: no access or refresh token present")
	}
	return t, nil
}

// LoadToken loads and parses the token from src, then verifies its scopes
// cover every requested operation scope.
func LoadToken(src CredentialSource, required ...string) (StoredToken, error) {
	raw, err := src.Load()
	if err != nil {
		return StoredToken{}, err
	}
	t, err := ParseToken(raw)
	if err != nil {
		return StoredToken{}, fmt.Errorf("%s: %w", src.Name(), err)
	}
	for _, want := range required {
		if !t.HasScope(want) {
			return StoredToken{}, fmt.Errorf("%s: token scopes %v do not cover %s", src.Name(), t.Scopes, want)
		}
	}
	return t, nil
}

// HasScope reports whether the token's grant covers want. The modify scope
// subsumes readonly, and full mail access subsumes both.
func (t StoredToken) HasScope(want string) bool {
	for _, have := range t.Scopes {
		if have == want || have == scopeFullMail {
			return true
		}
		if have == ScopeModify && want == ScopeReadonly {
			return true
		}
	}
	return false
}

// TokenSource builds a refreshing oauth2 source. Because normalization strips
// expiry, the access token is marked stale up front; the transport refreshes
// it transparently before the first API call.
func (t StoredToken) TokenSource(ctx context.Context) oauth2.TokenSource {
	endpoint := google.Endpoint
	if t.TokenURI != "" {
		endpoint = oauth2.Endpoint{TokenURL: t.TokenURI}
	}
	cfg := &oauth2.Config{
		ClientID:     t.ClientID,
		ClientSecret: t.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       t.Scopes,
	}
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       time.Now().Add(-time.Minute),
	}
	return cfg.TokenSource(ctx, tok)
}

// Save persists the token in the same JSON layout the grant flow writes.
func (t StoredToken) Save(path string) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
