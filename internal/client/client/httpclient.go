package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/go-resty/resty/v2"
)

const userAgent = "gophauth-cli/1"

// HTTPClient talks to the REST API with resty. The session token is
// kept in memory and sent as a bearer header; the cookie jar is off so
// every request is explicit about which session it uses.
type HTTPClient struct {
	http *resty.Client

	mu    sync.RWMutex
	token string
}

// NewHTTPClient builds a client for serverURL, which must be an absolute
// http(s) URL without the /api suffix.
func NewHTTPClient(serverURL string, timeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server URL must have a host, got %q", serverURL)
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(serverURL, "/")+"/api").
		SetTimeout(timeout).
		SetCookieJar(nil).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)

	return &HTTPClient{http: rc}, nil
}

func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *HTTPClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *HTTPClient) request(ctx context.Context, result any) *resty.Request {
	req := c.http.R().SetContext(ctx).SetError(&APIError{})
	if result != nil {
		req.SetResult(result)
	}
	if token := c.Token(); token != "" {
		req.SetAuthToken(token)
	}
	return req
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, result any) (*resty.Response, error) {
	req := c.request(ctx, result)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return resp, apiError(resp)
	}
	return resp, nil
}

func apiError(resp *resty.Response) error {
	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{}
	}
	apiErr.Status = resp.StatusCode()
	return apiErr
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil, nil)
	return err
}

func (c *HTTPClient) RegisterInit(ctx context.Context, username string) (*RegisterChallenge, error) {
	var out RegisterChallenge
	if _, err := c.do(ctx, http.MethodPost, "/auth/register/init", map[string]string{"username": username}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) RegisterComplete(ctx context.Context, req RegisterCompletion) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/register/complete", req, nil)
	return err
}

func (c *HTTPClient) LoginInit(ctx context.Context, username string) (*LoginChallenge, error) {
	var out LoginChallenge
	if _, err := c.do(ctx, http.MethodPost, "/auth/login/init", map[string]string{"username": username}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoginComplete returns the session token from the Set-Cookie header and
// stores it for later calls.
func (c *HTTPClient) LoginComplete(ctx context.Context, req LoginCompletion) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/auth/login/complete", req, nil)
	if err != nil {
		return "", err
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == common.SessionCookieName && ck.Value != "" {
			c.SetToken(ck.Value)
			return ck.Value, nil
		}
	}
	return "", errors.New("login succeeded but no session cookie was returned")
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

func (c *HTTPClient) Me(ctx context.Context) (*Me, error) {
	var out Me
	if _, err := c.do(ctx, http.MethodGet, "/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Devices(ctx context.Context) ([]Device, error) {
	var out struct {
		Devices []Device `json:"devices"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/me/devices", nil, &out); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

func (c *HTTPClient) RevokeDevice(ctx context.Context, deviceID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/me/devices/"+url.PathEscape(deviceID), nil, nil)
	return err
}

func (c *HTTPClient) DeleteAccount(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodDelete, "/me", nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

func (c *HTTPClient) LinkInit(ctx context.Context) (*LinkInvite, error) {
	var out LinkInvite
	if _, err := c.do(ctx, http.MethodPost, "/link/init", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) LinkInfo(ctx context.Context, token string) (*LinkInfo, error) {
	var out LinkInfo
	if _, err := c.do(ctx, http.MethodGet, "/link/info/"+url.PathEscape(token), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) LinkComplete(ctx context.Context, req LinkCompletion) (string, error) {
	var out struct {
		DeviceID string `json:"deviceId"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/link/complete", req, &out); err != nil {
		return "", err
	}
	return out.DeviceID, nil
}

func (c *HTTPClient) LinkStatus(ctx context.Context, linkID string) (*LinkStatus, error) {
	var out LinkStatus
	if _, err := c.do(ctx, http.MethodGet, "/link/status/"+url.PathEscape(linkID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) LinkApprove(ctx context.Context, deviceID, linkID string) error {
	body := map[string]string{"deviceId": deviceID, "linkId": linkID}
	_, err := c.do(ctx, http.MethodPost, "/link/approve", body, nil)
	return err
}
