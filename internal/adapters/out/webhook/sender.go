// Package webhook posts callback bodies to tenant endpoints.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"fulfillment/internal/core/ports"

	"golang.org/x/time/rate"
)

// Request headers set on every callback. HeaderSignature is the hex HMAC-SHA256 of
// the body keyed by the tenant's callback API key.
const (
	HeaderSignature = "X-Callback-Signature"
	HeaderEvent     = "X-Callback-Event"
	HeaderAttempt   = "X-Callback-Attempt"
	HeaderID        = "X-Callback-Id"

	DefaultTimeout = 30 * time.Second

	maxErrorBody = 512
)

// Config tunes a Sender. RatePerSecond of zero disables throttling.
type Config struct {
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	UserAgent     string
}

// StatusError is returned for a response outside 2xx.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("callback endpoint answered %d", e.StatusCode)
	}
	return fmt.Sprintf("callback endpoint answered %d: %s", e.StatusCode, e.Body)
}

// Sender implements ports.CallbackSender over HTTP. Each tenant gets its own
// token bucket so one busy tenant cannot starve the others.
type Sender struct {
	client  *http.Client
	cfg     Config
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewSender fills in DefaultTimeout and a burst of one. A nil client gets one with
// the configured timeout.
func NewSender(client *http.Client, cfg Config) *Sender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Sender{
		client:  client,
		cfg:     cfg,
		buckets: map[string]*rate.Limiter{},
	}
}

// Send posts msg.Body as JSON after waiting for the tenant's rate limiter.
//
// Parameters:
//   - ctx: cancels the throttle wait and the request
//   - msg: rendered callback with its target and credentials
//
// Returns:
//   - the status code and latency of the response, when one arrived
//   - StatusError for a non-2xx answer, carrying at most 512 bytes of its body
//   - the transport error otherwise
//
// Example:
//
//	sender := NewSender(nil, Config{RatePerSecond: 5, Burst: 10})
//	result, err := sender.Send(ctx, msg)
//	var statusErr *StatusError
//	if errors.As(err, &statusErr) {
//	    log.Printf("endpoint answered %d", statusErr.StatusCode)
//	}
func (s *Sender) Send(ctx context.Context, msg ports.CallbackMessage) (ports.CallbackResult, error) {
	if err := s.wait(ctx, msg.TenantID); err != nil {
		return ports.CallbackResult{}, fmt.Errorf("callback throttled: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, msg.URL, bytes.NewReader(msg.Body))
	if err != nil {
		return ports.CallbackResult{}, fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, msg.EventType)
	req.Header.Set(HeaderAttempt, strconv.Itoa(msg.Attempt))
	if msg.CallbackID != "" {
		req.Header.Set(HeaderID, msg.CallbackID)
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}
	if msg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+msg.APIKey)
		req.Header.Set(HeaderSignature, Sign(msg.APIKey, msg.Body))
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return ports.CallbackResult{Latency: latency}, fmt.Errorf("post callback: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	result := ports.CallbackResult{StatusCode: resp.StatusCode, Latency: latency}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, &StatusError{StatusCode: resp.StatusCode, Body: errorBody(resp.Body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return result, nil
}

// errorBody keeps the head of a rejected response as valid UTF-8 text. A rune
// split by the read limit is dropped along with any invalid bytes or NULs.
func errorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	text := strings.ToValidUTF8(string(body), "")
	return strings.TrimSpace(strings.ReplaceAll(text, "\x00", ""))
}

func (s *Sender) wait(ctx context.Context, tenantID string) error {
	if s.cfg.RatePerSecond <= 0 {
		return nil
	}

	s.mu.Lock()
	bucket, ok := s.buckets[tenantID]
	if !ok {
		bucket = rate.NewLimiter(rate.Limit(s.cfg.RatePerSecond), s.cfg.Burst)
		s.buckets[tenantID] = bucket
	}
	s.mu.Unlock()

	return bucket.Wait(ctx)
}

// Sign returns the lowercase hex HMAC-SHA256 of body keyed with key.
func Sign(key string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature produced by Sign.
func Verify(key string, body []byte, signature string) bool {
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), provided)
}
