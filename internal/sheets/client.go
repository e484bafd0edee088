// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package sheets

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dirsync/internal/config"
	"github.com/tomtom215/dirsync/internal/httpclient"
	"github.com/tomtom215/dirsync/internal/logging"
)

// APIError is a non-success response from the spreadsheet API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sheets API %s (status %d): %s", e.Code, e.Status, e.Message)
}

func newAPIError(resp *httpclient.Response) *APIError {
	var env struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: resp.StatusCode}
	if json.Unmarshal(resp.Body, &env) == nil && env.Error.Status != "" {
		apiErr.Code = env.Error.Status
		apiErr.Message = logging.Truncate(env.Error.Message, 300)
		return apiErr
	}
	apiErr.Code = http.StatusText(resp.StatusCode)
	apiErr.Message = logging.Truncate(string(resp.Body), 300)
	return apiErr
}

// Doer sends one logical API call. *httpclient.Client implements it.
type Doer interface {
	Do(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error)
}

// Client reads and writes spreadsheet value ranges.
type Client struct {
	http    Doer
	baseURL string
}

// New creates a Client authenticated with the configured service-account key
// or, when none is set, application default credentials.
func New(ctx context.Context, cfg config.SheetsConfig, httpCfg config.HTTPConfig) (*Client, error) {
	authed, err := authorizedClient(ctx, cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	return NewWithHTTPClient(cfg, httpCfg, authed), nil
}

// NewWithHTTPClient creates a Client over an already authorized transport.
func NewWithHTTPClient(cfg config.SheetsConfig, httpCfg config.HTTPConfig, hc *http.Client) *Client {
	doer := httpclient.New(httpclient.Config{
		Name:          "sheets",
		MaxRetries:    httpCfg.MaxRetries,
		BaseDelay:     httpCfg.RetryBaseDelay,
		Timeout:       httpCfg.Timeout,
		RatePerSecond: cfg.RatePerSecond,
		Burst:         1,
		Classify:      httpclient.ClassifySheets,
	}, httpclient.WithHTTPClient(hc))
	return NewWithDoer(cfg, doer)
}

// NewWithDoer creates a Client that sends requests through doer.
func NewWithDoer(cfg config.SheetsConfig, doer Doer) *Client {
	return &Client{http: doer, baseURL: strings.TrimRight(cfg.BaseURL, "/")}
}

// Rows is a two-dimensional block of cell values, row-major.
type Rows [][]string

type valueRange struct {
	Range          string  `json:"range,omitempty"`
	MajorDimension string  `json:"majorDimension,omitempty"`
	Values         [][]any `json:"values"`
}

func (c *Client) valuesURL(spreadsheetID, rng, suffix string, params url.Values) string {
	u := c.baseURL + "/spreadsheets/" + url.PathEscape(spreadsheetID) + "/values/" + url.PathEscape(rng) + suffix
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (c *Client) send(ctx context.Context, op, method, u string, body any) (*httpclient.Response, error) {
	req := &httpclient.Request{Method: method, URL: u}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("sheets %s: encode: %w", op, err)
		}
		req.Body = payload
		req.Header = http.Header{"Content-Type": {"application/json"}}
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("sheets %s: %w", op, err)
	}
	if httpclient.ClassifySheets(resp) != httpclient.Success {
		return nil, fmt.Errorf("sheets %s: %w", op, newAPIError(resp))
	}
	return resp, nil
}

// GetValues reads a range as formatted strings. Trailing empty rows and cells
// are omitted by the API.
func (c *Client) GetValues(ctx context.Context, spreadsheetID, rng string) (Rows, error) {
	resp, err := c.send(ctx, "get", http.MethodGet, c.valuesURL(spreadsheetID, rng, "", nil), nil)
	if err != nil {
		return nil, err
	}

	var vr valueRange
	if err := json.Unmarshal(resp.Body, &vr); err != nil {
		return nil, fmt.Errorf("sheets get: decode: %w", err)
	}
	rows := make(Rows, 0, len(vr.Values))
	for _, row := range vr.Values {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, cellString(cell))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// SetValues overwrites a range with rows, stored as entered.
func (c *Client) SetValues(ctx context.Context, spreadsheetID, rng string, rows Rows) error {
	params := url.Values{"valueInputOption": {"RAW"}}
	body := valueRange{Range: rng, MajorDimension: "ROWS", Values: toAny(rows)}
	_, err := c.send(ctx, "update", http.MethodPut, c.valuesURL(spreadsheetID, rng, "", params), body)
	return err
}

// Clear empties every cell of a range.
func (c *Client) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := c.send(ctx, "clear", http.MethodPost, c.valuesURL(spreadsheetID, rng, ":clear", nil), struct{}{})
	return err
}

// Append adds rows after the last row of the table found in rng.
func (c *Client) Append(ctx context.Context, spreadsheetID, rng string, rows Rows) error {
	params := url.Values{"valueInputOption": {"RAW"}, "insertDataOption": {"INSERT_ROWS"}}
	body := valueRange{MajorDimension: "ROWS", Values: toAny(rows)}
	_, err := c.send(ctx, "append", http.MethodPost, c.valuesURL(spreadsheetID, rng, ":append", params), body)
	return err
}

func toAny(rows Rows) [][]any {
	out := make([][]any, 0, len(rows))
	for _, row := range rows {
		cells := make([]any, 0, len(row))
		for _, cell := range row {
			cells = append(cells, cell)
		}
		out = append(out, cells)
	}
	return out
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// Equal reports whether two blocks hold the same values. Rows are compared
// with trailing empty cells ignored, matching how the API trims them.
func Equal(a, b Rows) bool {
	a, b = trimRows(a), trimRows(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ra, rb := trimCells(a[i]), trimCells(b[i])
		if len(ra) != len(rb) {
			return false
		}
		for j := range ra {
			if ra[j] != rb[j] {
				return false
			}
		}
	}
	return true
}

func trimCells(row []string) []string {
	n := len(row)
	for n > 0 && row[n-1] == "" {
		n--
	}
	return row[:n]
}

func trimRows(rows Rows) Rows {
	n := len(rows)
	for n > 0 && len(trimCells(rows[n-1])) == 0 {
		n--
	}
	return rows[:n]
}
