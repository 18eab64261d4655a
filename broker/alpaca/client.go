package alpaca

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/pnl/broker"
)

const (
	// PaperURL is the URL for Alpaca's paper trading environment
	PaperURL = "https://paper-api.alpaca.markets"
	// LiveURL is the URL for Alpaca's live trading environment
	LiveURL = "https://api.alpaca.markets"
)

// Options controls paging and retry behaviour.
type Options struct {
	PageSize   int
	MaxPages   int
	MaxRetries int
	RetryDelay time.Duration
	PageDelay  time.Duration
	Timeout    time.Duration
}

func DefaultOptions() Options {
	return Options{
		PageSize:   100,
		MaxPages:   100,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
		PageDelay:  200 * time.Millisecond,
		Timeout:    30 * time.Second,
	}
}

// Client talks to the Alpaca trading REST API.
type Client struct {
	baseURL    string // empty picks paper or live from the credentials
	httpClient *http.Client
	opts       Options
	log        *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

var (
	_ broker.ActivitySource = (*Client)(nil)
	_ broker.PositionSource = (*Client)(nil)
)

// NewClient creates a client. A nil logger discards logs.
func NewClient(opts Options, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.PageSize <= 0 {
		opts.PageSize = def.PageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = def.MaxPages
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = def.MaxRetries
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		opts:       opts,
		log:        log,
		sleep:      sleepCtx,
	}
}

// WithBaseURL pins the client to one endpoint regardless of credentials.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

func (c *Client) endpoint(creds broker.Credentials) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	if creds.Paper {
		return PaperURL
	}
	return LiveURL
}

// statusError is a non-2xx response.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("alpaca http %d: %s", e.Status, e.Body)
}

func (c *Client) get(ctx context.Context, creds broker.Credentials, path string, params url.Values, out any) error {
	u, err := url.Parse(c.endpoint(creds))
	if err != nil {
		return err
	}
	u.Path = path
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", creds.KeyID)
	req.Header.Set("APCA-API-SECRET-KEY", creds.SecretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return &statusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// retryable reports whether a failed request is worth another attempt:
// dropped connections, timeouts, rate limiting and gateway errors.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		switch se.Status {
		case http.StatusTooManyRequests, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "rate limit")
}

func statusOf(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
