// Package credentials holds the agency-level credential used to request
// scoped tokens for newly created accounts.
//
// The credential is an explicit value passed to the components that need
// it. Its access token comes from an [oauth2.TokenSource]: either a static
// token from configuration or a refresh-token flow that is retried on
// transient failures.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/oauth2"

	"github.com/imamik/geoprov/internal/config"
	"github.com/imamik/geoprov/internal/util/retry"
)

// ErrNoTokenSource is returned by Token when the credential has no source.
var ErrNoTokenSource = errors.New("agency credential has no token source")

// Agency is the agency-level credential: the tenant it acts for and the
// source of its access tokens.
type Agency struct {
	TenantID string
	source   oauth2.TokenSource
}

// New returns a credential backed by src.
func New(tenantID string, src oauth2.TokenSource) *Agency {
	return &Agency{TenantID: tenantID, source: src}
}

// NewStatic returns a credential with a fixed access token.
func NewStatic(tenantID, accessToken string) *Agency {
	if accessToken == "" {
		return &Agency{TenantID: tenantID}
	}
	return New(tenantID, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
}

// RefreshOptions tune the refresh-token flow.
type RefreshOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	// HTTPClient is used for token requests; nil uses http.DefaultClient.
	HTTPClient *http.Client
	Logger     logr.Logger
}

// NewRefreshing returns a credential that obtains access tokens by
// exchanging a refresh token. Refresh failures are retried with backoff,
// except for rejections from the token endpoint.
func NewRefreshing(ctx context.Context, tenantID string, oc config.OAuthConfig, opts RefreshOptions) *Agency {
	cfg := &oauth2.Config{
		ClientID:     oc.ClientID,
		ClientSecret: oc.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  oc.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}

	src := &retryingSource{
		ctx:      ctx,
		src:      cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: oc.RefreshToken}),
		attempts: opts.MaxAttempts,
		delay:    opts.InitialDelay,
		log:      opts.Logger,
	}
	return New(tenantID, src)
}

// FromConfig builds the credential described by the accounts configuration.
// Refresh-token credentials take precedence over a static agency token.
func FromConfig(ctx context.Context, ac config.AccountsConfig, timeouts *config.Timeouts, log logr.Logger) *Agency {
	if ac.OAuth.Enabled() {
		if timeouts == nil {
			timeouts = config.LoadTimeouts()
		}
		return NewRefreshing(ctx, ac.TenantID, ac.OAuth, RefreshOptions{
			MaxAttempts:  timeouts.RefreshMaxAttempts,
			InitialDelay: timeouts.RefreshInitialDelay,
			HTTPClient:   &http.Client{Timeout: timeouts.Request},
			Logger:       log,
		})
	}
	return NewStatic(ac.TenantID, ac.AgencyToken)
}

// Ready reports whether the credential can be used to request scoped
// tokens: it needs both a tenant id and a token source.
func (a *Agency) Ready() bool {
	return a != nil && a.TenantID != "" && a.source != nil
}

// Token returns a valid agency access token.
func (a *Agency) Token(ctx context.Context) (string, error) {
	if a == nil || a.source == nil {
		return "", ErrNoTokenSource
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tok, err := a.source.Token()
	if err != nil {
		return "", fmt.Errorf("failed to obtain agency token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("failed to obtain agency token: empty access token")
	}
	return tok.AccessToken, nil
}

type retryingSource struct {
	ctx      context.Context
	src      oauth2.TokenSource
	attempts int
	delay    time.Duration
	log      logr.Logger
}

func (r *retryingSource) Token() (*oauth2.Token, error) {
	var tok *oauth2.Token
	err := retry.Do(r.ctx, func(_ context.Context) error {
		t, err := r.src.Token()
		if err != nil {
			if rejected(err) {
				return retry.Fatal(err)
			}
			return err
		}
		tok = t
		return nil
	},
		retry.WithMaxRetries(r.attempts),
		retry.WithInitialDelay(r.delay),
		retry.WithOnRetry(func(attempt int, delay time.Duration, err error) {
			r.log.V(1).Info("retrying agency token refresh", "attempt", attempt, "delay", delay, "error", err.Error())
		}),
	)
	if err != nil {
		return nil, err
	}
	return tok, nil
}

// rejected reports whether the token endpoint refused the request outright.
func rejected(err error) bool {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.Response == nil {
		return false
	}
	code := re.Response.StatusCode
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}
