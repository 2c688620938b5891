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

	"github.com/dghubble/oauth1"
)

const (
	// DefaultConsumerURL serves the OAuth1 consumer key pair of the mobile app.
	DefaultConsumerURL = "https://thegarth.s3.amazonaws.com/oauth_consumer.json"

	exchangePath      = "/oauth-service/oauth/exchange/user/2.0"
	exchangeUserAgent = "com.garmin.android.apps.connectmobile"
)

// Consumer is the OAuth1 consumer the exchange request is signed with.
type Consumer struct {
	Key    string `json:"consumer_key"`
	Secret string `json:"consumer_secret"`
}

// fetchConsumer downloads the consumer key pair.
func (c *Client) fetchConsumer(ctx context.Context, consumerURL string) (*Consumer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, consumerURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch oauth consumer: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch oauth consumer (status %d)", resp.StatusCode)
	}

	var consumer Consumer
	if err := json.NewDecoder(resp.Body).Decode(&consumer); err != nil {
		return nil, fmt.Errorf("failed to parse oauth consumer: %w", err)
	}
	if consumer.Key == "" || consumer.Secret == "" {
		return nil, fmt.Errorf("oauth consumer is incomplete")
	}
	return &consumer, nil
}

// exchange trades the long-lived OAuth1 token for a fresh OAuth2 token. The
// new token lives only in memory; the token store is never written.
func (c *Client) exchange(ctx context.Context, token *OAuth1Token, consumerURL string, now time.Time) (*OAuth2Token, error) {
	if consumerURL == "" {
		consumerURL = DefaultConsumerURL
	}
	consumer, err := c.fetchConsumer(ctx, consumerURL)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	if token.MFAToken != "" {
		form.Set("mfa_token", token.MFAToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+exchangePath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", exchangeUserAgent)

	// The signing client sends through the session's transport.
	signed := oauth1.NewConfig(consumer.Key, consumer.Secret).Client(
		context.WithValue(ctx, oauth1.HTTPClient, c.httpClient),
		oauth1.NewToken(token.Token, token.TokenSecret),
	)
	signed.Timeout = c.httpClient.Timeout

	resp, err := signed.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read exchange response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchange failed (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	var fresh OAuth2Token
	if err := json.Unmarshal(body, &fresh); err != nil {
		return nil, fmt.Errorf("failed to parse exchanged token: %w", err)
	}
	if fresh.AccessToken == "" {
		return nil, fmt.Errorf("exchanged token has no access token")
	}
	fresh.setExpirations(now)
	return &fresh, nil
}
