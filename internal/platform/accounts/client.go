package accounts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the platform's public API endpoint.
	DefaultBaseURL = "https://services.leadconnectorhq.com"
	// DefaultVersion is sent in the Version header.
	DefaultVersion = "2021-07-28"
)

// Authorizer supplies the bearer token used for account creation.
type Authorizer interface {
	Token(ctx context.Context) (string, error)
}

// Account is a created sub-account.
type Account struct {
	ID        string
	Name      string
	CompanyID string
}

// TokenRequest asks for a token scoped to one sub-account.
type TokenRequest struct {
	TenantID          string
	LocationID        string
	AgencyAccessToken string
}

// ScopedToken is an access token scoped to one sub-account.
type ScopedToken struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int
}

// Client talks to the platform over HTTP.
type Client struct {
	baseURL    string
	version    string
	auth       Authorizer
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithVersion overrides the API version header.
func WithVersion(v string) Option {
	return func(c *Client) {
		if v != "" {
			c.version = v
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit limits outgoing requests to rps per second. Zero disables it.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

// NewClient creates a new platform client authorized by auth.
func NewClient(auth Authorizer, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		version:    DefaultVersion,
		auth:       auth,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type locationRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CompanyID string `json:"companyId"`
}

type createResponse struct {
	locationRecord
	Location *locationRecord `json:"location"`
}

// Create creates a sub-account from payload. The payload must carry a name.
func (c *Client) Create(ctx context.Context, payload map[string]any) (*Account, error) {
	name, _ := payload["name"].(string)
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("create account: payload has no name")
	}

	token, err := c.auth.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("create account %q: %w", name, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/locations/", token, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp createResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("create account %q: %w", name, err)
	}

	rec := resp.locationRecord
	if resp.Location != nil {
		rec = *resp.Location
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("create account %q: %w: missing id", name, ErrInvalidResponse)
	}
	if rec.Name == "" {
		rec.Name = name
	}

	return &Account{ID: rec.ID, Name: rec.Name, CompanyID: rec.CompanyID}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// IssueScopedToken exchanges the agency token for a token scoped to one
// sub-account.
func (c *Client) IssueScopedToken(ctx context.Context, tr TokenRequest) (*ScopedToken, error) {
	if tr.TenantID == "" || tr.LocationID == "" || tr.AgencyAccessToken == "" {
		return nil, fmt.Errorf("issue scoped token: tenant id, location id and agency token are required")
	}

	form := url.Values{}
	form.Set("companyId", tr.TenantID)
	form.Set("locationId", tr.LocationID)

	req, err := c.newRequest(ctx, http.MethodPost, "/oauth/locationToken", tr.AgencyAccessToken, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp tokenResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("issue scoped token for %s: %w", tr.LocationID, err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("issue scoped token for %s: %w: missing access_token", tr.LocationID, ErrInvalidResponse)
	}

	return &ScopedToken{
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
		ExpiresIn:   resp.ExpiresIn,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Version", c.version)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(req.Method, req.URL.Path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v (status %d)", ErrInvalidResponse, err, resp.StatusCode)
	}

	return nil
}
