package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driven"
	"github.com/custodia-labs/portal-sync/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// maxBodySize caps how much of a response is read.
	maxBodySize = 4 << 20
)

// API paths.
const (
	pathLogin      = "/api/login"
	pathAttendance = "/api/attendance"
	pathExams      = "/api/exams"
	pathInternals  = "/api/internals"
	pathCGPA       = "/api/cgpa"
	pathUser       = "/api/user"
)

var gatewayLog = logger.For("portal")

// Verify interface compliance.
var _ driven.Gateway = (*Client)(nil)

// Client is an HTTP client for the student portal.
type Client struct {
	baseURL     string
	http        *http.Client
	rateLimiter *RateLimiter

	mu     sync.Mutex
	tokens map[string]string // user ID -> session token

	// logins collapses concurrent logins for the same user.
	logins singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimiter replaces the request limiter.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(c *Client) {
		if rl != nil {
			c.rateLimiter = rl
		}
	}
}

// NewClient creates a portal client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: DefaultTimeout},
		rateLimiter: NewRateLimiter(DefaultRate),
		tokens:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchAttendance returns the attendance report.
func (c *Client) FetchAttendance(ctx context.Context, creds domain.Credentials) ([]domain.Course, error) {
	body, err := c.get(ctx, creds, pathAttendance)
	if err != nil {
		return nil, err
	}
	return decodeAttendance(body)
}

// FetchExamSchedule returns upcoming exams.
func (c *Client) FetchExamSchedule(ctx context.Context, creds domain.Credentials) ([]domain.Exam, error) {
	body, err := c.get(ctx, creds, pathExams)
	if err != nil {
		return nil, err
	}
	return decodeExams(body)
}

// FetchInternals returns internal assessment marks.
func (c *Client) FetchInternals(ctx context.Context, creds domain.Credentials) ([]domain.InternalMark, error) {
	body, err := c.get(ctx, creds, pathInternals)
	if err != nil {
		return nil, err
	}
	return decodeInternals(body)
}

// FetchCGPA returns the cumulative grade summary.
func (c *Client) FetchCGPA(ctx context.Context, creds domain.Credentials) (*domain.CGPA, error) {
	body, err := c.get(ctx, creds, pathCGPA)
	if err != nil {
		return nil, err
	}
	return decodeCGPA(body)
}

// FetchGreeting returns the user-info greeting.
func (c *Client) FetchGreeting(ctx context.Context, creds domain.Credentials) (*domain.Greeting, error) {
	body, err := c.get(ctx, creds, pathUser)
	if err != nil {
		return nil, err
	}
	return decodeGreeting(body)
}

// Forget drops the cached session token for a user.
func (c *Client) Forget(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, userID)
}

// get performs an authenticated GET, logging in again once if the
// session token is rejected.
func (c *Client) get(ctx context.Context, creds domain.Credentials, path string) ([]byte, error) {
	token, err := c.session(ctx, creds, false)
	if err != nil {
		return nil, err
	}

	body, err := c.authorisedGet(ctx, token, path)
	var statusErr *domain.HTTPStatusError
	if !errors.As(err, &statusErr) || !statusErr.IsUnauthorised() {
		return body, err
	}

	gatewayLog.Debug("session rejected on %s, logging in again", path)
	token, err = c.session(ctx, creds, true)
	if err != nil {
		return nil, err
	}
	return c.authorisedGet(ctx, token, path)
}

// session returns a cached token for the user, or logs in. Concurrent callers
// share one login per user; fresh skips the cached token.
func (c *Client) session(ctx context.Context, creds domain.Credentials, fresh bool) (string, error) {
	if !fresh {
		if token, ok := c.cachedToken(creds.UserID); ok {
			return token, nil
		}
	}

	key := "login:" + creds.UserID
	if fresh {
		key = "relogin:" + creds.UserID
	}
	v, err, shared := c.logins.Do(key, func() (any, error) {
		if !fresh {
			// Another login may have finished since the check above
			if token, ok := c.cachedToken(creds.UserID); ok {
				return token, nil
			}
		}
		token, err := c.login(ctx, creds)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.tokens[creds.UserID] = token
		c.mu.Unlock()
		return token, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		gatewayLog.Debug("shared login for %s", creds.UserID)
	}
	return v.(string), nil
}

func (c *Client) cachedToken(userID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	token, ok := c.tokens[userID]
	return token, ok
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (c *Client) login(ctx context.Context, creds domain.Credentials) (string, error) {
	payload, err := json.Marshal(loginRequest{Username: creds.UserID, Password: creds.Secret})
	if err != nil {
		return "", fmt.Errorf("encode login: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathLogin, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(ctx, c.http, req, pathLogin)
	if err != nil {
		return "", err
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrDecodePayload, pathLogin, err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("%w: %s: empty token", domain.ErrDecodePayload, pathLogin)
	}

	gatewayLog.Debug("logged in as %s", creds.UserID)
	return resp.Token, nil
}

func (c *Client) authorisedGet(ctx context.Context, token, path string) ([]byte, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	hc := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.http), ts)
	hc.Timeout = c.http.Timeout

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(ctx, hc, req, path)
}

// do sends req through the limiter and maps failures to domain errors.
func (c *Client) do(ctx context.Context, hc *http.Client, req *http.Request, path string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrNetwork, path, err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrNetwork, path, err)
	}
	defer resp.Body.Close()

	c.rateLimiter.UpdateFromResponse(resp)

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &domain.HTTPStatusError{Code: resp.StatusCode, Endpoint: path}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %w", domain.ErrNetwork, path, err)
	}
	return body, nil
}
