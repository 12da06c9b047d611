// Package session implements the client-side session controller used by the
// dashboard: it owns authentication state, performs login/logout, keeps the
// access token fresh in the background and revalidates when the UI regains
// focus. It is the only layer that reacts to auth failures; every failure
// degrades to Anonymous rather than propagating.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"staffly.org/internal/auth"
	"staffly.org/internal/httpapi"
)

// State is the controller's lifecycle position.
type State int

const (
	StateUninitialized State = iota
	StateChecking
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	}
	return "unknown"
}

const (
	defaultTimeout         = 10 * time.Second
	defaultRefreshInterval = 10 * time.Minute
)

// Controller drives the session lifecycle against the auth endpoints.
// All state transitions happen under one mutex; network calls run outside
// it so a slow server cannot wedge readers.
type Controller struct {
	base   *url.URL
	client *http.Client

	refreshEvery time.Duration

	mu    sync.Mutex
	state State
	user  *auth.UserProfile

	stopOnce sync.Once
	stop     chan struct{}
}

// Option configures the controller.
type Option func(*Controller)

// WithHTTPClient replaces the underlying client. The caller is responsible
// for attaching a cookie jar; without one no session can be carried.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Controller) {
		if client != nil {
			c.client = client
		}
	}
}

// WithRefreshInterval overrides the silent refresh cadence.
func WithRefreshInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.refreshEvery = d
		}
	}
}

// New constructs a controller for the given API base URL.
func New(baseURL string, opts ...Option) (*Controller, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("session: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.New("session: base url must be absolute")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Controller{
		base:         base,
		client:       &http.Client{Jar: jar, Timeout: defaultTimeout},
		refreshEvery: defaultRefreshInterval,
		state:        StateUninitialized,
		stop:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// User returns the last known profile while authenticated.
func (c *Controller) User() (auth.UserProfile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAuthenticated || c.user == nil {
		return auth.UserProfile{}, false
	}
	return *c.user, true
}

// Start settles the initial state and launches the background refresh loop.
// When the session-hint cookie is absent no session can possibly exist, so
// the verification round trip is skipped entirely.
func (c *Controller) Start(ctx context.Context) error {
	c.setState(StateChecking, nil)

	if !c.hasSessionHint() {
		c.setState(StateAnonymous, nil)
	} else if user, err := c.verify(ctx); err == nil {
		c.setState(StateAuthenticated, user)
	} else {
		c.setState(StateAnonymous, nil)
	}

	go c.refreshLoop(ctx)
	return nil
}

// Close stops the background refresh loop. Safe to call more than once.
func (c *Controller) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Login performs the CSRF fetch + credential submission sequence. It returns
// false on any failure without distinguishing the reason.
func (c *Controller) Login(ctx context.Context, email, password string) bool {
	csrfToken, err := c.fetchCSRFToken(ctx)
	if err != nil {
		return false
	}

	body, err := json.Marshal(map[string]string{
		"email":     email,
		"password":  password,
		"csrfToken": csrfToken,
	})
	if err != nil {
		return false
	}
	resp, err := c.do(ctx, http.MethodPost, "/auth/login", body)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result struct {
		Success bool             `json:"success"`
		User    auth.UserProfile `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || !result.Success {
		return false
	}
	c.setState(StateAuthenticated, &result.User)
	return true
}

// Logout clears the server-side cookies and drops to Anonymous regardless of
// the network outcome: local state must never stay Authenticated because a
// logout call timed out. Idempotent; the refresh loop and a focus-triggered
// revalidation may both land here.
func (c *Controller) Logout(ctx context.Context) {
	if resp, err := c.do(ctx, http.MethodPost, "/auth/logout", nil); err == nil {
		resp.Body.Close()
	}
	c.setState(StateAnonymous, nil)
}

// Revalidate re-verifies the session. The UI calls this when a tab becomes
// visible again, which bounds how long a revoked account can keep using a
// live view.
func (c *Controller) Revalidate(ctx context.Context) bool {
	if c.State() != StateAuthenticated {
		return false
	}
	user, err := c.verify(ctx)
	if err != nil {
		c.Logout(ctx)
		return false
	}
	c.setState(StateAuthenticated, user)
	return true
}

func (c *Controller) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(c.refreshEvery)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.State() != StateAuthenticated {
				continue
			}
			if err := c.refresh(ctx); err != nil {
				c.Logout(ctx)
			}
		}
	}
}

func (c *Controller) fetchCSRFToken(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/auth/csrf", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("session: csrf fetch status %d", resp.StatusCode)
	}
	var result struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.CSRFToken == "" {
		return "", errors.New("session: empty csrf token")
	}
	return result.CSRFToken, nil
}

func (c *Controller) verify(ctx context.Context) (*auth.UserProfile, error) {
	resp, err := c.do(ctx, http.MethodGet, "/auth/verify", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("session: verify status %d", resp.StatusCode)
	}
	var result struct {
		IsValid bool              `json:"isValid"`
		User    *auth.UserProfile `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if !result.IsValid || result.User == nil {
		return nil, errors.New("session: verification rejected")
	}
	return result.User, nil
}

func (c *Controller) refresh(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/auth/refresh", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("session: refresh status %d", resp.StatusCode)
	}
	return nil
}

func (c *Controller) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return nil, err
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.client.Do(req)
}

func (c *Controller) hasSessionHint() bool {
	if c.client.Jar == nil {
		return false
	}
	for _, cookie := range c.client.Jar.Cookies(c.base) {
		if cookie.Name == httpapi.SessionHintCookieName && cookie.Value != "" {
			return true
		}
	}
	return false
}

func (c *Controller) setState(state State, user *auth.UserProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	c.user = user
}
