package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/oauth2"
)

const BaseURL = "https://www.strava.com/api/v3"

// maxErrorBody bounds how much of a failed response is kept for the error
const maxErrorBody = 4 << 10

// Client is a Strava API client. The caller supplies the access token per
// call so a single validated token can serve concurrent reads.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *RateLimiter
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBaseURL points the client at a different API root
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithRateLimiter replaces the default Strava rate limiter
func WithRateLimiter(r *RateLimiter) ClientOption {
	return func(c *Client) { c.rateLimiter = r }
}

// NewClient creates a new Strava API client
func NewClient(httpClient *http.Client, opts ...ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		httpClient:  httpClient,
		baseURL:     BaseURL,
		rateLimiter: NewRateLimiter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAthlete fetches the authenticated athlete
func (c *Client) GetAthlete(ctx context.Context, accessToken string) (*Athlete, error) {
	var athlete Athlete
	if err := c.getJSON(ctx, accessToken, "/athlete", nil, &athlete); err != nil {
		return nil, err
	}
	return &athlete, nil
}

// GetActivities fetches the first page of the athlete's activities,
// most recent first, up to perPage results
func (c *Client) GetActivities(ctx context.Context, accessToken string, perPage int) ([]Activity, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(perPage))

	var activities []Activity
	if err := c.getJSON(ctx, accessToken, "/athlete/activities", params, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// RateLimitStatus returns the current rate limit status
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) getJSON(ctx context.Context, accessToken, path string, params url.Values, out interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}).SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: requesting %s: %w", ErrProviderRead, path, err)
	}
	defer resp.Body.Close()

	// Update rate limiter from response headers
	c.rateLimiter.UpdateFromHeaders(resp.Header)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Path: path, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %w", ErrProviderRead, path, err)
	}
	return nil
}
