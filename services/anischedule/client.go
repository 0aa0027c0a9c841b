package anischedule

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

	"airingcal/models"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"
)

const weeklySchedulePath = "/anime/schedule/weekly"

// ErrMalformedPayload is returned when a 2xx response lacks a schedule.
var ErrMalformedPayload = errors.New("schedule payload missing \"schedule\" field")

// StatusError reports a non-2xx response from the schedule API.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("schedule api: %s", e.Status)
	}
	return fmt.Sprintf("schedule api: %s - %s", e.Status, e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Config configures a Client.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	RetryAttempts uint
	RetryDelay    time.Duration
	RateLimit     float64 // requests per second, 0 disables limiting
	RateBurst     int
}

// Client fetches weekly airing schedules from the anime schedule API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	attempts   uint
	delay      time.Duration
}

// NewClient creates a schedule API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	attempts := cfg.RetryAttempts
	if attempts == 0 {
		attempts = 3
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 250 * time.Millisecond
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		limiter:    limiter,
		attempts:   attempts,
		delay:      delay,
	}
}

// FetchWeek returns the schedule for the week offset weeks from the current
// one. Network errors, 429 and 5xx responses are retried; other failures are
// returned as-is.
func (c *Client) FetchWeek(ctx context.Context, offset int) (*models.WeeklySchedule, error) {
	return retry.DoWithData(
		func() (*models.WeeklySchedule, error) {
			return c.fetchOnce(ctx, offset)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
	)
}

func (c *Client) fetchOnce(ctx context.Context, offset int) (*models.WeeklySchedule, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	endpoint := c.baseURL + weeklySchedulePath + "?" + url.Values{
		"weeks_offset": {strconv.Itoa(offset)},
	}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("schedule api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	var payload models.WeeklySchedule
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if payload.Schedule == nil {
		return nil, ErrMalformedPayload
	}
	return &payload, nil
}

// isRetryable reports whether err is worth another attempt. Decode errors,
// malformed payloads and 4xx responses other than 429 are permanent.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	if errors.Is(err, ErrMalformedPayload) {
		return false
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return false
	}
	return true
}
