// Package rest talks to the backend's plain HTTP endpoints: login, token
// verification, version and health.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/swiftwave-org/swctl/pkg/log"
	"github.com/swiftwave-org/swctl/pkg/version"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 1 << 20

// MessageInvalidLoginResponse describes a successful login status whose body
// carries no usable token.
const MessageInvalidLoginResponse = "Invalid login response"

// ClientOptions holds configuration options for the REST client.
type ClientOptions struct {
	// BaseURL is the backend origin, e.g. https://dash.example.com
	BaseURL string

	Timeout time.Duration

	// Transport overrides http.DefaultTransport.
	Transport http.RoundTripper

	Logger log.Logger
}

// DefaultClientOptions returns the default client options.
func DefaultClientOptions() *ClientOptions {
	return &ClientOptions{
		BaseURL: "http://localhost:3333",
		Timeout: 30 * time.Second,
		Logger:  log.GetDefaultLogger().WithComponent("rest-client"),
	}
}

// Client is the REST client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     log.Logger
}

// NewClient creates a new REST client with the given options.
func NewClient(options *ClientOptions) (*Client, error) {
	if options == nil {
		options = DefaultClientOptions()
	}

	logger := options.Logger
	if logger == nil {
		logger = log.GetDefaultLogger().WithComponent("rest-client")
	}

	u, err := url.Parse(options.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", options.BaseURL)
	}

	transport := options.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	transport = Chain(UserAgent(version.UserAgent()), Logger(logger))(transport)

	return &Client{
		baseURL:    strings.TrimRight(options.BaseURL, "/"),
		httpClient: &http.Client{Transport: transport, Timeout: options.Timeout},
		logger:     logger,
	}, nil
}

// HTTPClient exposes the underlying client, mainly so tests can install a
// mock transport.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login posts form-encoded credentials to /auth/login and returns the
// issued token.
func (c *Client) Login(ctx context.Context, username, password, totp string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	form.Set("totp", totp)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body, err := c.send(req)
	if err != nil {
		return "", err
	}

	// The server answered, so a bad body is a response error rather than a
	// failed request.
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.Token == "" {
		return "", &ResponseError{StatusCode: status, Message: MessageInvalidLoginResponse}
	}
	return out.Token, nil
}

// VerifyAuth checks a token against /verify-auth. A nil error means the
// backend answered 200.
func (c *Client) VerifyAuth(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/verify-auth", nil)
	if err != nil {
		return fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: "verify-auth", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	// Only an exact 200 counts; a 204 from a proxy is not a verification.
	if resp.StatusCode != http.StatusOK {
		return &ResponseError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return nil
}

// Version returns the backend version string. bearer is the full
// Authorization header value.
func (c *Client) Version(ctx context.Context, bearer string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/version", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build version request: %w", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}

	body, err := c.do(req)
	if err != nil {
		return "", err
	}

	// The backend answers with a JSON string; tolerate plain text.
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s, nil
	}
	return strings.TrimSpace(string(body)), nil
}

// Healthcheck returns nil when the backend answers /healthcheck with 2xx.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthcheck", nil)
	if err != nil {
		return fmt.Errorf("failed to build healthcheck request: %w", err)
	}
	_, err = c.do(req)
	return err
}

// do sends req and returns the body of a 2xx response. Other statuses
// become *ResponseError, transport failures *NetworkError.
func (c *Client) do(req *http.Request) ([]byte, error) {
	_, body, err := c.send(req)
	return body, err
}

// send is do that also reports the 2xx status code.
func (c *Client) send(req *http.Request) (int, []byte, error) {
	op := strings.TrimPrefix(req.URL.Path, "/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, &NetworkError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, nil, newResponseError(resp.StatusCode, body)
	}
	return resp.StatusCode, body, nil
}

// ResponseError is a non-2xx answer from the backend.
type ResponseError struct {
	StatusCode   int
	Message      string
	TOTPRequired bool
}

func (e *ResponseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server responded with status %d", e.StatusCode)
	}
	return fmt.Sprintf("server responded with status %d: %s", e.StatusCode, e.Message)
}

func newResponseError(status int, body []byte) *ResponseError {
	rerr := &ResponseError{StatusCode: status}

	var payload struct {
		Message      string `json:"message"`
		TOTPRequired bool   `json:"totp_required"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		rerr.Message = payload.Message
		rerr.TOTPRequired = payload.TOTPRequired
	}
	return rerr
}

// NetworkError means no response was received.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: failed to send request: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err means the request never got a
// response.
func IsNetworkError(err error) bool {
	var nerr *NetworkError
	return errors.As(err, &nerr)
}

// AsResponseError extracts a *ResponseError from err.
func AsResponseError(err error) (*ResponseError, bool) {
	var rerr *ResponseError
	if errors.As(err, &rerr) {
		return rerr, true
	}
	return nil, false
}
