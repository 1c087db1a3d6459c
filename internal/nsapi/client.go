// Package nsapi is a minimal NationStates API client covering the shards the
// refresh feeds and claim verification need.
package nsapi

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"citizenship/internal/nation"
	"citizenship/pkg/platform/circuit"
	"citizenship/pkg/platform/sentinel"
)

// Client talks to the NationStates API. Requests are paced by a token bucket
// and a breaker short-circuits calls after repeated transport failures.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	breaker   *circuit.Breaker
	logger    *slog.Logger

	mu           sync.Mutex
	blockedUntil time.Time
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit allows n requests per window.
func WithRateLimit(n int, per time.Duration) Option {
	return func(c *Client) {
		if n > 0 && per > 0 {
			c.limiter = rate.NewLimiter(rate.Every(per/time.Duration(n)), 1)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// New builds a client. The API rejects anonymous traffic, so userAgent is
// required.
func New(baseURL, userAgent string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(userAgent) == "" {
		return nil, fmt.Errorf("nation api user agent is required")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("nation api base url is required")
	}
	c := &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(30*time.Second/50), 1),
		breaker:   circuit.New("nsapi", circuit.WithFailureThreshold(5), circuit.WithCooldown(time.Minute)),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BlockedUntil is the end of the current Retry-After window, if any.
func (c *Client) BlockedUntil() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blockedUntil
}

// Healthy reports whether the breaker is closed.
func (c *Client) Healthy() bool { return !c.breaker.IsOpen() }

func (c *Client) get(ctx context.Context, query url.Values, out any) error {
	if until := c.BlockedUntil(); time.Now().Before(until) {
		return &RateLimitError{RetryAfter: time.Until(until)}
	}
	if !c.breaker.Allow() {
		return &TransportError{Err: errors.New("circuit open")}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.failure(ctx)
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.success(ctx)
		return sentinel.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		wait := retryAfter(resp.Header.Get("Retry-After"))
		c.mu.Lock()
		c.blockedUntil = time.Now().Add(wait)
		c.mu.Unlock()
		c.logger.WarnContext(ctx, "nation api rate limited", "retry_after", wait)
		return &RateLimitError{RetryAfter: wait}
	case resp.StatusCode >= 500:
		c.failure(ctx)
		_, _ = io.Copy(io.Discard, resp.Body)
		return &TransportError{Status: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("nation api: unexpected status %d", resp.StatusCode)
	}

	if err := xml.NewDecoder(resp.Body).Decode(out); err != nil {
		c.failure(ctx)
		return &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("decode xml: %w", err)}
	}
	c.success(ctx)
	return nil
}

func (c *Client) success(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "nation api circuit closed")
	}
}

func (c *Client) failure(ctx context.Context) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "nation api circuit opened")
	}
}

func retryAfter(h string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 30 * time.Second
}

// Nation is the subset of a nation's shards used for claim verification.
type Nation struct {
	Key      nation.Key
	Name     string
	Region   nation.Key
	WAMember bool
}

type nationXML struct {
	ID       string `xml:"id,attr"`
	Name     string `xml:"NAME"`
	Region   string `xml:"REGION"`
	UNStatus string `xml:"UNSTATUS"`
}

// Nation fetches name, region and WA status. Unknown nations return an
// error wrapping sentinel.ErrNotFound.
func (c *Client) Nation(ctx context.Context, key nation.Key) (*Nation, error) {
	var raw nationXML
	q := url.Values{"nation": {key.String()}, "q": {"name region wa"}}
	if err := c.get(ctx, q, &raw); err != nil {
		return nil, fmt.Errorf("nation %s: %w", key, err)
	}
	region, _ := nation.Normalize(raw.Region)
	return &Nation{
		Key:      key,
		Name:     raw.Name,
		Region:   region,
		WAMember: raw.UNStatus != "" && !strings.EqualFold(raw.UNStatus, "Non-member"),
	}, nil
}

// Officer is one regional officer entry.
type Officer struct {
	Nation    nation.Key
	Office    string
	Authority string
}

// Region is the subset of region shards used by the region feeds.
type Region struct {
	Nations           []nation.Key
	WANations         []nation.Key
	Delegate          nation.Key
	DelegateAuthority string
	Founder           nation.Key
	FounderAuthority  string
	Officers          []Officer
}

type regionXML struct {
	Nations      string `xml:"NATIONS"`
	UNNations    string `xml:"UNNATIONS"`
	Delegate     string `xml:"DELEGATE"`
	DelegateAuth string `xml:"DELEGATEAUTH"`
	Founder      string `xml:"FOUNDER"`
	FounderAuth  string `xml:"FOUNDERAUTH"`
	Officers     []struct {
		Nation    string `xml:"NATION"`
		Office    string `xml:"OFFICE"`
		Authority string `xml:"AUTHORITY"`
	} `xml:"OFFICERS>OFFICER"`
}

// Region fetches the requested shards of a region.
func (c *Client) Region(ctx context.Context, name nation.Key, shards ...string) (*Region, error) {
	var raw regionXML
	q := url.Values{"region": {name.String()}, "q": {strings.Join(shards, " ")}}
	if err := c.get(ctx, q, &raw); err != nil {
		return nil, fmt.Errorf("region %s: %w", name, err)
	}
	r := &Region{
		Nations:           nation.Scan(raw.Nations),
		WANations:         nation.Scan(raw.UNNations),
		Delegate:          optionalKey(raw.Delegate),
		DelegateAuthority: strings.TrimSpace(raw.DelegateAuth),
		Founder:           optionalKey(raw.Founder),
		FounderAuthority:  strings.TrimSpace(raw.FounderAuth),
	}
	for _, o := range raw.Officers {
		k, err := nation.Normalize(o.Nation)
		if err != nil {
			continue
		}
		r.Officers = append(r.Officers, Officer{Nation: k, Office: o.Office, Authority: strings.TrimSpace(o.Authority)})
	}
	return r, nil
}

// optionalKey treats "0" and blanks as absent.
func optionalKey(s string) nation.Key {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return ""
	}
	k, _ := nation.Normalize(s)
	return k
}

type worldXML struct {
	Nations string `xml:"NATIONS"`
}

// WorldNations lists every nation in the world.
func (c *Client) WorldNations(ctx context.Context) ([]nation.Key, error) {
	var raw worldXML
	if err := c.get(ctx, url.Values{"q": {"nations"}}, &raw); err != nil {
		return nil, fmt.Errorf("world nations: %w", err)
	}
	return nation.Scan(raw.Nations), nil
}
