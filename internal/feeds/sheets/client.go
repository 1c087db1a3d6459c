// Package sheets reads public Google Sheets through the v4 REST API with an
// API key.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"citizenship/pkg/platform/sentinel"
)

// APIError is the provider's {"error": {...}} envelope. It is always worth
// retrying: quota and backend errors clear on their own.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sheets api error %d %s: %s", e.Code, e.Status, e.Message)
}

// TransportError wraps network failures and unreadable answers.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "sheets transport: " + e.Err.Error() }

func (e *TransportError) Unwrap() []error { return []error{sentinel.ErrUnavailable, e.Err} }

// ValueRange is one block of cell values.
type ValueRange struct {
	Range          string     `json:"range"`
	MajorDimension string     `json:"majorDimension"`
	Values         [][]string `json:"values"`
}

// SheetTitle is the sheet-name part of Range with A1 quoting removed, so a
// quoted title with doubled apostrophes comes back as typed.
func (v ValueRange) SheetTitle() string {
	name, _, _ := strings.Cut(v.Range, "!")
	name = strings.Trim(name, "'")
	return strings.ReplaceAll(name, "''", "'")
}

// Sheet describes one tab of a workbook.
type Sheet struct {
	Properties struct {
		Title  string `json:"title"`
		Hidden bool   `json:"hidden"`
	} `json:"properties"`
}

// Spreadsheet is workbook metadata.
type Spreadsheet struct {
	Sheets []Sheet `json:"sheets"`
}

type envelope struct {
	Error *APIError `json:"error"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Values reads one range.
func (c *Client) Values(ctx context.Context, key, spreadsheetID, rng, majorDimension string) (*ValueRange, error) {
	var out ValueRange
	q := url.Values{"key": {key}, "majorDimension": {majorDimension}}
	path := "/" + url.PathEscape(spreadsheetID) + "/values/" + url.PathEscape(rng)
	if err := c.get(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Metadata reads the workbook's sheet list.
func (c *Client) Metadata(ctx context.Context, key, spreadsheetID string) (*Spreadsheet, error) {
	var out Spreadsheet
	q := url.Values{"key": {key}}
	if err := c.get(ctx, "/"+url.PathEscape(spreadsheetID), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BatchGet reads several ranges in one call. Results come back in request
// order.
func (c *Client) BatchGet(ctx context.Context, key, spreadsheetID string, ranges []string, majorDimension string) ([]ValueRange, error) {
	var out struct {
		ValueRanges []ValueRange `json:"valueRanges"`
	}
	q := url.Values{"key": {key}, "majorDimension": {majorDimension}, "ranges": ranges}
	if err := c.get(ctx, "/"+url.PathEscape(spreadsheetID)+"/values:batchGet", q, &out); err != nil {
		return nil, err
	}
	return out.ValueRanges, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return &TransportError{Err: fmt.Errorf("status %d: decode body: %w", resp.StatusCode, err)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil {
		return env.Error
	}
	if resp.StatusCode != http.StatusOK {
		return &TransportError{Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &TransportError{Err: fmt.Errorf("decode payload: %w", err)}
	}
	return nil
}
