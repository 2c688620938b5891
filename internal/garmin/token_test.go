package garmin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOAuth2Token_IsValid(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		token *OAuth2Token
		want  bool
	}{
		{"Nil", nil, false},
		{"EmptyAccess", &OAuth2Token{}, false},
		{"NoExpiry", &OAuth2Token{AccessToken: "t"}, true},
		{"Expired", &OAuth2Token{AccessToken: "t", ExpiresAt: now.Add(-time.Minute).Unix()}, false},
		{"Valid", &OAuth2Token{AccessToken: "t", ExpiresAt: now.Add(time.Hour).Unix()}, true},
		{"BufferEdge", &OAuth2Token{AccessToken: "t", ExpiresAt: now.Add(30 * time.Second).Unix()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.IsValid(now); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOAuth2Token_Authorization(t *testing.T) {
	if got := (&OAuth2Token{AccessToken: "abc"}).Authorization(); got != "Bearer abc" {
		t.Errorf("Authorization() = %q", got)
	}
	if got := (&OAuth2Token{TokenType: "bearer", AccessToken: "abc"}).Authorization(); got != "bearer abc" {
		t.Errorf("Authorization() = %q", got)
	}
}

func TestLoadTokens_Directory(t *testing.T) {
	dir := t.TempDir()
	oauth2, _ := json.Marshal(OAuth2Token{AccessToken: "a2", ExpiresAt: 1714550400})
	oauth1, _ := json.Marshal(OAuth1Token{Token: "t1", TokenSecret: "s1", Domain: "garmin.com"})
	if err := os.WriteFile(filepath.Join(dir, oauth2File), oauth2, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, oauth1File), oauth1, 0o600); err != nil {
		t.Fatal(err)
	}

	set, err := LoadTokens(dir)
	if err != nil {
		t.Fatalf("LoadTokens() failed: %v", err)
	}
	if set.OAuth2.AccessToken != "a2" {
		t.Errorf("AccessToken = %q", set.OAuth2.AccessToken)
	}
	if set.OAuth1 == nil || set.OAuth1.Domain != "garmin.com" {
		t.Errorf("OAuth1 = %+v", set.OAuth1)
	}
	if set.Source != dir {
		t.Errorf("Source = %q, want %q", set.Source, dir)
	}
	if !set.OAuth2.Expiry().Equal(time.Unix(1714550400, 0)) {
		t.Errorf("Expiry() = %v", set.OAuth2.Expiry())
	}
}

func TestLoadTokens_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{"Empty", func(t *testing.T) string { return "  " }},
		{"MissingDir", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope") }},
		{"BadJSON", func(t *testing.T) string {
			dir := t.TempDir()
			_ = os.WriteFile(filepath.Join(dir, oauth2File), []byte("{"), 0o600)
			return dir
		}},
		{"NoAccessToken", func(t *testing.T) string {
			dir := t.TempDir()
			_ = os.WriteFile(filepath.Join(dir, oauth2File), []byte(`{"token_type":"Bearer"}`), 0o600)
			return dir
		}},
		{"BadDump", func(t *testing.T) string { return strings.Repeat("!", encodedStoreMinLen+1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadTokens(tt.setup(t)); err == nil {
				t.Error("LoadTokens() should fail")
			}
		})
	}
}

func TestLoadTokens_EncodedDump(t *testing.T) {
	oauth1 := OAuth1Token{Token: strings.Repeat("t", 200), TokenSecret: strings.Repeat("s", 200), Domain: "garmin.cn"}
	oauth2 := OAuth2Token{TokenType: "Bearer", AccessToken: "dumped-access", ExpiresAt: 1714550400}

	set, err := LoadTokens(encodeDump(t, oauth1, oauth2))
	if err != nil {
		t.Fatalf("LoadTokens() failed: %v", err)
	}
	if set.OAuth2.AccessToken != "dumped-access" {
		t.Errorf("AccessToken = %q", set.OAuth2.AccessToken)
	}
	if set.OAuth1.Domain != "garmin.cn" {
		t.Errorf("Domain = %q", set.OAuth1.Domain)
	}
	if set.Source != "encoded token dump" {
		t.Errorf("Source = %q", set.Source)
	}
}

func TestTokenSet_Refreshable(t *testing.T) {
	tests := []struct {
		name string
		set  TokenSet
		want bool
	}{
		{"NoOAuth1", TokenSet{}, false},
		{"MissingSecret", TokenSet{OAuth1: &OAuth1Token{Token: "t"}}, false},
		{"Complete", TokenSet{OAuth1: &OAuth1Token{Token: "t", TokenSecret: "s"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.Refreshable(); got != tt.want {
				t.Errorf("Refreshable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOAuth2Token_SetExpirations(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	tok := &OAuth2Token{AccessToken: "a", ExpiresIn: 3600, RefreshTokenExpiresIn: 7200}
	tok.setExpirations(now)

	if tok.ExpiresAt != now.Unix()+3600 {
		t.Errorf("ExpiresAt = %d", tok.ExpiresAt)
	}
	if tok.RefreshTokenExpiresAt != now.Unix()+7200 {
		t.Errorf("RefreshTokenExpiresAt = %d", tok.RefreshTokenExpiresAt)
	}
	if !tok.IsValid(now) {
		t.Error("freshly issued token should be valid")
	}
}
