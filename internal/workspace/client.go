// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package workspace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dirsync/internal/config"
	"github.com/tomtom215/dirsync/internal/httpclient"
	"github.com/tomtom215/dirsync/internal/logging"
	"github.com/tomtom215/dirsync/internal/models"
)

// maxErrorMessage bounds the API message quoted in errors.
const maxErrorMessage = 300

// APIError is a non-success response from the workspace API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("workspace API status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("workspace API %s (status %d): %s", e.Code, e.Status, e.Message)
}

func newAPIError(resp *httpclient.Response) *APIError {
	var env struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	apiErr := &APIError{Status: resp.StatusCode}
	if json.Unmarshal(resp.Body, &env) == nil && env.Code != "" {
		apiErr.Code = env.Code
		apiErr.Message = logging.Truncate(env.Message, maxErrorMessage)
		return apiErr
	}
	apiErr.Message = logging.Truncate(string(resp.Body), maxErrorMessage)
	return apiErr
}

// Client talks to the workspace-database API.
type Client struct {
	http     Doer
	fetcher  *Fetcher
	baseURL  string
	token    string
	version  string
	pageSize int
}

// New creates a Client from configuration. The retrying HTTP client is
// built here with the workspace envelope classifier.
func New(cfg config.WorkspaceConfig, httpCfg config.HTTPConfig, opts ...httpclient.Option) *Client {
	hc := httpclient.New(httpclient.Config{
		Name:          "workspace",
		MaxRetries:    httpCfg.MaxRetries,
		BaseDelay:     httpCfg.RetryBaseDelay,
		Timeout:       httpCfg.Timeout,
		RatePerSecond: cfg.RatePerSecond,
		Burst:         1,
		Classify:      httpclient.ClassifyWorkspace,
	}, opts...)
	return NewWithDoer(cfg, hc)
}

// NewWithDoer creates a Client that sends requests through doer.
func NewWithDoer(cfg config.WorkspaceConfig, doer Doer) *Client {
	c := &Client{
		http:     doer,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.Token,
		version:  cfg.Version,
		pageSize: cfg.PageSize,
	}
	c.fetcher = NewFetcher(doer, WithRelationExpander(c.expandRelation))
	return c
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.token)
	h.Set("Notion-Version", c.version)
	h.Set("Content-Type", "application/json")
	return h
}

// QueryAll fetches every record of a database matching filter.
func (c *Client) QueryAll(ctx context.Context, databaseID string, filter, sorts json.RawMessage) Collection {
	return c.fetcher.FetchAll(ctx, Query{
		Endpoint: c.baseURL + "/databases/" + url.PathEscape(databaseID) + "/query",
		Header:   c.header(),
		PageSize: c.pageSize,
		Filter:   filter,
		Sorts:    sorts,
	})
}

// GetPage retrieves a single record.
func (c *Client) GetPage(ctx context.Context, pageID string) (models.Record, error) {
	resp, err := c.http.Do(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    c.baseURL + "/pages/" + url.PathEscape(pageID),
		Header: c.header(),
	})
	if err != nil {
		return models.Record{}, fmt.Errorf("get page %s: %w", pageID, err)
	}
	if httpclient.ClassifyWorkspace(resp) != httpclient.Success {
		return models.Record{}, fmt.Errorf("get page %s: %w", pageID, newAPIError(resp))
	}

	var obj pageObject
	if err := json.Unmarshal(resp.Body, &obj); err != nil {
		return models.Record{}, fmt.Errorf("get page %s: decode: %w", pageID, err)
	}
	rec, truncated := decodeRecord(&obj)
	for _, tr := range truncated {
		if err := c.expandRelation(ctx, &rec, tr.Name, tr.PropertyID); err != nil {
			rec.Properties[tr.Name] = models.Unknown{Type: TruncatedRelation}
		}
	}
	return rec, nil
}

// PatchPage updates the given properties of a record. The call succeeds only
// when the API confirms with a success envelope.
func (c *Client) PatchPage(ctx context.Context, pageID string, props models.Properties) error {
	encoded, err := encodeProperties(props)
	if err != nil {
		return fmt.Errorf("patch page %s: %w", pageID, err)
	}
	body, err := json.Marshal(map[string]any{"properties": encoded})
	if err != nil {
		return fmt.Errorf("patch page %s: encode: %w", pageID, err)
	}

	resp, err := c.http.Do(ctx, &httpclient.Request{
		Method: http.MethodPatch,
		URL:    c.baseURL + "/pages/" + url.PathEscape(pageID),
		Header: c.header(),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("patch page %s: %w", pageID, err)
	}
	if httpclient.ClassifyWorkspace(resp) != httpclient.Success {
		return fmt.Errorf("patch page %s: %w", pageID, newAPIError(resp))
	}
	return nil
}

// Patch implements the change-gated writer's Patcher.
func (c *Client) Patch(ctx context.Context, targetID string, fields models.Properties) error {
	return c.PatchPage(ctx, targetID, fields)
}

// Title returns the plain text of a record's title property. It implements
// the projection TitleResolver.
func (c *Client) Title(ctx context.Context, pageID string) (string, error) {
	rec, err := c.GetPage(ctx, pageID)
	if err != nil {
		return "", err
	}
	for _, v := range rec.Properties {
		if t, ok := v.(models.Title); ok {
			return t.Text, nil
		}
	}
	return "", nil
}

type propertyItemList struct {
	Results []struct {
		Type     string       `json:"type"`
		Relation relationItem `json:"relation"`
	} `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// expandRelation reads the full relation through the property item endpoint.
// Property IDs arrive already URL-encoded and are used as is.
func (c *Client) expandRelation(ctx context.Context, rec *models.Record, property, propertyID string) error {
	if propertyID == "" {
		return fmt.Errorf("relation %q has no property id", property)
	}

	var (
		refs     []models.RelationRef
		cursor   string
		consumed = make(map[string]bool)
	)
	for {
		u := c.baseURL + "/pages/" + url.PathEscape(rec.ID) + "/properties/" + propertyID
		q := url.Values{}
		q.Set("page_size", "100")
		if cursor != "" {
			q.Set("start_cursor", cursor)
		}

		resp, err := c.http.Do(ctx, &httpclient.Request{Method: http.MethodGet, URL: u + "?" + q.Encode(), Header: c.header()})
		if err != nil {
			return fmt.Errorf("relation %q: %w", property, err)
		}
		if httpclient.ClassifyWorkspace(resp) != httpclient.Success {
			return fmt.Errorf("relation %q: %w", property, newAPIError(resp))
		}

		var list propertyItemList
		if err := json.Unmarshal(resp.Body, &list); err != nil {
			return fmt.Errorf("relation %q: %w: %w", property, ErrMalformedPage, err)
		}
		for _, item := range list.Results {
			if item.Type == string(models.KindRelation) && item.Relation.ID != "" {
				refs = append(refs, models.RelationRef{ID: item.Relation.ID})
			}
		}

		if !list.HasMore {
			break
		}
		if list.NextCursor == nil || *list.NextCursor == "" || consumed[*list.NextCursor] {
			return fmt.Errorf("relation %q: %w: bad cursor", property, ErrMalformedPage)
		}
		cursor = *list.NextCursor
		consumed[cursor] = true
	}

	rec.Properties[property] = models.Relation{Refs: refs}
	return nil
}
