// Package activation talks to the remote license activation endpoint.
package activation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"winsbygroup.com/licenseagent/internal/licensekey"
	"winsbygroup.com/licenseagent/internal/version"
)

const (
	DefaultEndpoint = "https://app.cryptolens.io/api/key/Activate"
	DefaultTimeout  = 30 * time.Second

	// responses are a few KB; anything far larger is not an activation envelope
	maxResponseBytes = 1 << 20
)

type Client struct {
	endpoint string
	token    string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient returns a client for endpoint authenticating with token.
// A nil httpClient gets DefaultTimeout; a nil limiter never waits.
func NewClient(endpoint, token string, httpClient *http.Client, limiter *rate.Limiter) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return &Client{
		endpoint: endpoint,
		token:    token,
		http:     httpClient,
		limiter:  limiter,
	}
}

// Activate sends one activation request and decodes the reply. The call is
// not retried.
func (c *Client) Activate(ctx context.Context, params licensekey.ActivateParams) (*licensekey.LicenseKey, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, licensekey.TransportError("wait for rate limit", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(params.Encode(c.token)))
	if err != nil {
		return nil, licensekey.TransportError("create request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, licensekey.TransportError("send request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, licensekey.TransportError("read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// the service may still explain itself in an envelope
		k, perr := licensekey.ParseActivateResponse(body)
		if errors.Is(perr, licensekey.ErrAPI) {
			return nil, perr
		}
		if perr == nil {
			return k, nil
		}
		return nil, licensekey.TransportError(fmt.Sprintf("unexpected status %s", resp.Status), nil)
	}

	return licensekey.ParseActivateResponse(body)
}
