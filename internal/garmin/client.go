package garmin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/j-veylop/garmindl/internal/logger"
)

const (
	// DefaultBaseURL is the Garmin Connect API host.
	DefaultBaseURL = "https://connectapi.garmin.com"

	// garth identifies itself as the mobile app; connectapi rejects unknown agents.
	userAgent = "GCM-iOS-5.7.2.1"

	socialProfilePath = "/userprofile-service/socialProfile"
	bodyBatteryPath   = "/wellness-service/wellness/bodyBattery/reports/daily"
	heartRatePath     = "/wellness-service/wellness/dailyHeartRate/"
)

// Options configures a session.
type Options struct {
	HTTPClient *http.Client
	Now        func() time.Time
	TokenStore string
	BaseURL    string
	Timeout    time.Duration

	// ConsumerURL overrides where the OAuth1 consumer for token refresh is read from.
	ConsumerURL string
}

// Client is an authenticated Garmin Connect session.
type Client struct {
	httpClient  *http.Client
	token       *OAuth2Token
	baseURL     string
	displayName string
}

// NewSession loads the token store and resolves the user's display name,
// which also proves the token is accepted. An expired access token is
// replaced in memory through the OAuth1 exchange when the store holds an
// OAuth1 token.
func NewSession(ctx context.Context, opts Options) (*Client, error) {
	tokens, err := LoadTokens(opts.TokenStore)
	if err != nil {
		return nil, err
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	c := &Client{
		httpClient: opts.HTTPClient,
		token:      tokens.OAuth2,
		baseURL:    resolveBaseURL(opts.BaseURL, tokens.OAuth1),
	}
	if c.httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}

	if !tokens.OAuth2.IsValid(now()) {
		if !tokens.Refreshable() {
			return nil, fmt.Errorf("%w (expired %s)", ErrTokenExpired, tokens.OAuth2.Expiry().Format(time.RFC3339))
		}
		fresh, err := c.exchange(ctx, tokens.OAuth1, opts.ConsumerURL, now())
		if err != nil {
			return nil, fmt.Errorf("%w: refresh failed: %w", ErrTokenExpired, err)
		}
		c.token = fresh
		logger.Info("access token refreshed", "expires", fresh.Expiry().Format(time.RFC3339))
	}

	var profile SocialProfile
	if err := c.getJSON(ctx, socialProfilePath, nil, &profile); err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile.DisplayName == "" {
		return nil, fmt.Errorf("profile has no display name")
	}
	c.displayName = profile.DisplayName

	logger.Debug("garmin session established", "display_name", c.displayName, "base_url", c.baseURL)
	return c, nil
}

// resolveBaseURL honours an explicit URL and otherwise follows the token's domain.
func resolveBaseURL(baseURL string, oauth1 *OAuth1Token) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL != "" && baseURL != DefaultBaseURL {
		return baseURL
	}
	if oauth1 != nil && oauth1.Domain != "" && oauth1.Domain != "garmin.com" {
		return "https://connectapi." + oauth1.Domain
	}
	return DefaultBaseURL
}

// DisplayName returns the profile name used to address per-user endpoints.
func (c *Client) DisplayName() string {
	return c.displayName
}

// GetBodyBattery returns the daily Body Battery reports from start to end inclusive.
func (c *Client) GetBodyBattery(ctx context.Context, start, end time.Time) ([]BodyBatteryDay, error) {
	q := url.Values{}
	q.Set("startDate", start.Format(time.DateOnly))
	q.Set("endDate", end.Format(time.DateOnly))

	var days []BodyBatteryDay
	if err := c.getJSON(ctx, bodyBatteryPath, q, &days); err != nil {
		return nil, fmt.Errorf("body battery %s..%s: %w", q.Get("startDate"), q.Get("endDate"), err)
	}
	return days, nil
}

// GetHeartRates returns the heart rate readings of a single day.
func (c *Client) GetHeartRates(ctx context.Context, day time.Time) (*HeartRateDay, error) {
	q := url.Values{}
	q.Set("date", day.Format(time.DateOnly))

	var hr HeartRateDay
	if err := c.getJSON(ctx, heartRatePath+url.PathEscape(c.displayName), q, &hr); err != nil {
		return nil, fmt.Errorf("heart rate %s: %w", q.Get("date"), err)
	}
	return &hr, nil
}

// getJSON performs an authenticated GET and decodes the body into out.
// A 204 response leaves out untouched.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.token.Authorization())
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("unauthorized: access token may be expired")
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
