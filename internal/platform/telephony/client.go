package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the provider's REST endpoint.
	DefaultBaseURL = "https://api.twilio.com"
	// DefaultLookupLimit caps the page size of a lookup.
	DefaultLookupLimit = 20

	apiPrefix    = "/2010-04-01"
	statusClosed = "closed"
	statusActive = "active"
)

// FindOptions controls a lookup by name.
type FindOptions struct {
	// Exact requires the friendly name to equal the queried name.
	Exact bool
	// Limit is the page size requested from the provider.
	Limit int
}

// Account is a telephony subaccount.
type Account struct {
	ID     string
	Name   string
	Status string
}

// Closed reports whether the account is closed.
func (a *Account) Closed() bool {
	return a.Status == statusClosed
}

// Client talks to the provider over HTTP with basic auth.
type Client struct {
	baseURL    string
	accountSID string
	authToken  string
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

// NewClient creates a client authenticated as the parent account.
func NewClient(accountSID, authToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		accountSID: accountSID,
		authToken:  authToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type accountRecord struct {
	SID          string `json:"sid"`
	FriendlyName string `json:"friendly_name"`
	Status       string `json:"status"`
}

func (r accountRecord) toAccount() (*Account, error) {
	if r.SID == "" {
		return nil, fmt.Errorf("%w: account without sid", ErrInvalidResponse)
	}
	return &Account{ID: r.SID, Name: r.FriendlyName, Status: r.Status}, nil
}

type listResponse struct {
	Accounts []accountRecord `json:"accounts"`
}

// FindByName returns the subaccount with the given friendly name. Active
// accounts are preferred over suspended or closed ones. It returns
// ErrNotFound when nothing matches.
func (c *Client) FindByName(ctx context.Context, name string, opts FindOptions) (*Account, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLookupLimit
	}

	q := url.Values{}
	q.Set("FriendlyName", name)
	q.Set("PageSize", strconv.Itoa(limit))

	req, err := c.newRequest(ctx, http.MethodGet, apiPrefix+"/Accounts.json?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("find telephony account %q: %w", name, err)
	}

	var match *Account
	for _, rec := range resp.Accounts {
		if opts.Exact && rec.FriendlyName != name {
			continue
		}
		acct, err := rec.toAccount()
		if err != nil {
			return nil, fmt.Errorf("find telephony account %q: %w", name, err)
		}
		if acct.Status == statusActive {
			return acct, nil
		}
		if match == nil {
			match = acct
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return match, nil
}

// Close closes a subaccount. Closing is permanent on the provider side.
func (c *Client) Close(ctx context.Context, id string) (*Account, error) {
	if id == "" {
		return nil, errors.New("close telephony account: empty id")
	}

	form := url.Values{}
	form.Set("Status", statusClosed)

	req, err := c.newRequest(ctx, http.MethodPost, apiPrefix+"/Accounts/"+url.PathEscape(id)+".json", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var rec accountRecord
	if err := c.do(req, &rec); err != nil {
		return nil, fmt.Errorf("close telephony account %s: %w", id, err)
	}
	acct, err := rec.toAccount()
	if err != nil {
		return nil, fmt.Errorf("close telephony account %s: %w", id, err)
	}
	return acct, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
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
		apiErr := &APIError{Method: req.Method, Path: req.URL.Path, StatusCode: resp.StatusCode}
		var er errorResponse
		if json.Unmarshal(body, &er) == nil && er.Message != "" {
			apiErr.Code = er.Code
			apiErr.Message = er.Message
		} else {
			if len(body) > maxErrorBody {
				body = body[:maxErrorBody]
			}
			apiErr.Message = string(body)
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v (status %d)", ErrInvalidResponse, err, resp.StatusCode)
	}
	return nil
}
