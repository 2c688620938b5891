// Package garmin is a read-only Garmin Connect client authenticated with the
// tokens saved by garth.
package garmin

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	oauth1File = "oauth1_token.json"
	oauth2File = "oauth2_token.json"

	// Token store values longer than this are an encoded token dump, not a path.
	encodedStoreMinLen = 512
)

// ErrTokenExpired is returned when the stored access token can no longer be used.
var ErrTokenExpired = errors.New("access token expired, authenticate again to refresh the token store")

// OAuth1Token is the long-lived token garth uses to mint OAuth2 tokens.
type OAuth1Token struct {
	Token       string `json:"oauth_token"`
	TokenSecret string `json:"oauth_token_secret"`
	MFAToken    string `json:"mfa_token,omitempty"`
	Domain      string `json:"domain,omitempty"`
}

// OAuth2Token is the bearer token used against connectapi.
type OAuth2Token struct {
	Scope                 string `json:"scope"`
	JTI                   string `json:"jti"`
	TokenType             string `json:"token_type"`
	AccessToken           string `json:"access_token"`
	RefreshToken          string `json:"refresh_token"`
	ExpiresIn             int64  `json:"expires_in"`
	ExpiresAt             int64  `json:"expires_at"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
	RefreshTokenExpiresAt int64  `json:"refresh_token_expires_at"`
}

// Expiry returns the access token expiry time.
func (t *OAuth2Token) Expiry() time.Time {
	return time.Unix(t.ExpiresAt, 0)
}

// IsValid checks if the token can still be used at now.
func (t *OAuth2Token) IsValid(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	// Tokens without an expiry are trusted until the API rejects them.
	if t.ExpiresAt == 0 {
		return true
	}
	// Keep a minute of headroom so a month of per-day calls does not straddle expiry
	return now.Add(time.Minute).Before(t.Expiry())
}

// setExpirations turns the relative lifetimes of a freshly issued token into
// absolute timestamps.
func (t *OAuth2Token) setExpirations(now time.Time) {
	if t.ExpiresIn > 0 {
		t.ExpiresAt = now.Unix() + t.ExpiresIn
	}
	if t.RefreshTokenExpiresIn > 0 {
		t.RefreshTokenExpiresAt = now.Unix() + t.RefreshTokenExpiresIn
	}
}

// Authorization returns the Authorization header value.
func (t *OAuth2Token) Authorization() string {
	tokenType := t.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return tokenType + " " + t.AccessToken
}

// TokenSet is the content of a token store.
type TokenSet struct {
	OAuth1 *OAuth1Token
	OAuth2 *OAuth2Token
	Source string
}

// Refreshable reports whether an OAuth1 token is available to mint a new
// access token.
func (s *TokenSet) Refreshable() bool {
	return s.OAuth1 != nil && s.OAuth1.Token != "" && s.OAuth1.TokenSecret != ""
}

// LoadTokens reads a token store. The store is either a directory holding
// oauth1_token.json and oauth2_token.json, or a base64 dump of both tokens as
// produced by garth's dumps().
func LoadTokens(store string) (*TokenSet, error) {
	store = strings.TrimSpace(store)
	if store == "" {
		return nil, fmt.Errorf("token store is empty")
	}

	if len(store) > encodedStoreMinLen {
		set, err := parseEncodedTokens(store)
		if err != nil {
			return nil, err
		}
		set.Source = "encoded token dump"
		return set, nil
	}

	set := &TokenSet{Source: store}

	data, err := os.ReadFile(filepath.Join(store, oauth2File))
	if err != nil {
		return nil, fmt.Errorf("failed to read token store: %w", err)
	}
	set.OAuth2 = &OAuth2Token{}
	if err := json.Unmarshal(data, set.OAuth2); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", oauth2File, err)
	}

	// The OAuth1 token is optional for read access.
	if data, err := os.ReadFile(filepath.Join(store, oauth1File)); err == nil {
		set.OAuth1 = &OAuth1Token{}
		if err := json.Unmarshal(data, set.OAuth1); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", oauth1File, err)
		}
	}

	if set.OAuth2.AccessToken == "" {
		return nil, fmt.Errorf("%s has no access token", oauth2File)
	}
	return set, nil
}

// parseEncodedTokens decodes a base64 JSON array of [oauth1, oauth2].
func parseEncodedTokens(encoded string) (*TokenSet, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode token dump: %w", err)
	}

	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil {
		return nil, fmt.Errorf("failed to parse token dump: %w", err)
	}
	if len(pair) != 2 {
		return nil, fmt.Errorf("token dump holds %d tokens, want 2", len(pair))
	}

	set := &TokenSet{OAuth1: &OAuth1Token{}, OAuth2: &OAuth2Token{}}
	if err := json.Unmarshal(pair[0], set.OAuth1); err != nil {
		return nil, fmt.Errorf("failed to parse oauth1 token: %w", err)
	}
	if err := json.Unmarshal(pair[1], set.OAuth2); err != nil {
		return nil, fmt.Errorf("failed to parse oauth2 token: %w", err)
	}
	if set.OAuth2.AccessToken == "" {
		return nil, fmt.Errorf("token dump has no access token")
	}
	return set, nil
}
