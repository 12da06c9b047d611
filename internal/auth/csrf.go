package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	defaultCSRFTTL  = time.Hour
	csrfNonceLength = 32

	// Issued-at may run slightly ahead of the verifying host's clock.
	csrfClockSkew = 5 * time.Second
)

// CSRF issues and verifies stateless anti-forgery tokens using the
// double-submit cookie pattern. A token is "{timestamp}.{nonce}.{signature}"
// where the signature is an HMAC-SHA256 over the first two segments.
// Validity is entirely self-contained: nothing is persisted, so a captured
// token stays usable until the freshness window closes. That trade-off is
// deliberate; replay inside the window is accepted.
type CSRF struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// CSRFOption configures CSRF behavior.
type CSRFOption func(*CSRF)

// WithCSRFTTL overrides the freshness window.
func WithCSRFTTL(ttl time.Duration) CSRFOption {
	return func(c *CSRF) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCSRFClock overrides the time source (useful for tests).
func WithCSRFClock(fn func() time.Time) CSRFOption {
	return func(c *CSRF) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCSRF constructs a CSRF token issuer/verifier. The secret is mandatory;
// there is no compiled-in fallback.
func NewCSRF(secret string, opts ...CSRFOption) (*CSRF, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: csrf secret is required")
	}
	c := &CSRF{
		secret: []byte(secret),
		ttl:    defaultCSRFTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the freshness window, used by the HTTP layer for cookie expiry.
func (c *CSRF) TTL() time.Duration {
	return c.ttl
}

// Issue produces a fresh token. Random generation failure is returned rather
// than papered over with a predictable value.
func (c *CSRF) Issue() (string, error) {
	nonce := make([]byte, csrfNonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("csrf nonce generation failed: %w", err)
	}
	payload := strconv.FormatInt(c.now().Unix(), 10) + "." + hex.EncodeToString(nonce)
	return payload + "." + c.sign(payload), nil
}

// Verify reports whether the token is authentic and within the freshness
// window. Any malformed input fails closed.
func (c *CSRF) Verify(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	ts, nonce, signature := parts[0], parts[1], parts[2]
	if ts == "" || nonce == "" || signature == "" {
		return false
	}
	expected := c.sign(ts + "." + nonce)
	if subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) != 1 {
		return false
	}
	issuedAt, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	now := c.now()
	issued := time.Unix(issuedAt, 0)
	if issued.After(now.Add(csrfClockSkew)) {
		return false
	}
	return now.Sub(issued) <= c.ttl
}

func (c *CSRF) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
