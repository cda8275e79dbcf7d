package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/creatorclub/backend/internal/config"
	"github.com/creatorclub/backend/pkg/logger"
)

// CheckoutRequest is what the provider needs to open a session.
type CheckoutRequest struct {
	CommunityID string `json:"communityId"`
	UserID      string `json:"userId"`
	SuccessURL  string `json:"successUrl"`
	CancelURL   string `json:"cancelUrl"`
	PriceCents  int64  `json:"priceCents"`
	Mode        string `json:"mode"` // payment, subscription
}

// CheckoutSessionResult is the provider's answer.
type CheckoutSessionResult struct {
	URL       string    `json:"url"`
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CheckoutProvider opens hosted checkout sessions.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, req *CheckoutRequest) (*CheckoutSessionResult, error)
}

// ErrCheckoutUnavailable is returned when no provider endpoint is configured.
var ErrCheckoutUnavailable = errors.New("checkout provider not configured")

// ProviderError is a non-2xx answer from the checkout function.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("checkout provider returned status %d: %s", e.StatusCode, e.Body)
}

// HTTPDoer is satisfied by *http.Client and *RetryClient.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryClient retries transient failures with exponential backoff and full jitter.
type RetryClient struct {
	client     HTTPDoer
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewRetryClient wraps client. maxRetries counts attempts after the first one.
func NewRetryClient(client HTTPDoer, maxRetries int) *RetryClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryClient{
		client:     client,
		maxRetries: maxRetries,
		baseDelay:  500 * time.Millisecond,
		maxDelay:   10 * time.Second,
	}
}

// Do retries on 429, 500, 502, 503, 504 and network errors, never on other
// client errors or context cancellation. The last retryable response is
// returned as-is so the caller can read its body.
func (rc *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= rc.maxRetries; attempt++ {
		if req.Context().Err() != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, req.Context().Err()
		}

		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("reset request body: %w", err)
				}
				req.Body = body
			}

			delay := rc.calculateDelay(attempt)
			logger.Warn().
				Int("attempt", attempt).
				Int("max_retries", rc.maxRetries).
				Str("host", req.URL.Host).
				Dur("delay", delay).
				Msg("[Checkout] retrying provider request")

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, req.Context().Err()
			}
		}

		resp, err := rc.client.Do(req)
		if err != nil {
			lastErr = err
			if req.Context().Err() != nil {
				return nil, err
			}
			continue
		}

		if !isRetryableStatus(resp.StatusCode) || attempt == rc.maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("provider returned retryable status %d", resp.StatusCode)
	}

	return nil, lastErr
}

func (rc *RetryClient) calculateDelay(attempt int) time.Duration {
	expDelay := float64(rc.baseDelay) * math.Pow(2, float64(attempt-1))
	if expDelay > float64(rc.maxDelay) {
		expDelay = float64(rc.maxDelay)
	}

	jittered := time.Duration(rand.Float64() * expDelay)
	if jittered < 50*time.Millisecond {
		jittered = 50 * time.Millisecond
	}
	return jittered
}

func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// HTTPCheckoutProvider calls the hosted create-checkout-session function.
type HTTPCheckoutProvider struct {
	endpoint string
	apiKey   string
	client   HTTPDoer
}

func NewHTTPCheckoutProvider(cfg *config.CheckoutConfig) *HTTPCheckoutProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPCheckoutProvider{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   NewRetryClient(&http.Client{Timeout: timeout}, cfg.MaxRetries),
	}
}

func (p *HTTPCheckoutProvider) CreateSession(ctx context.Context, in *CheckoutRequest) (*CheckoutSessionResult, error) {
	if p.endpoint == "" {
		return nil, ErrCheckoutUnavailable
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out CheckoutSessionResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode checkout response: %w", err)
	}
	if out.URL == "" {
		return nil, errors.New("checkout response has no url")
	}
	return &out, nil
}
