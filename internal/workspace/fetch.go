// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package workspace

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dirsync/internal/httpclient"
	"github.com/tomtom215/dirsync/internal/logging"
	"github.com/tomtom215/dirsync/internal/models"
)

var (
	// ErrIncomplete is wrapped by Collection.Err whenever pagination stopped
	// before the last page.
	ErrIncomplete = errors.New("collection incomplete")

	// ErrMalformedPage is wrapped by Collection.Err when a page could not be
	// interpreted: missing results, a missing cursor or a repeated cursor.
	ErrMalformedPage = errors.New("malformed page")
)

// Doer executes one API request. *httpclient.Client implements it.
type Doer interface {
	Do(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error)
}

// Query describes a paginated collection query.
type Query struct {
	// Endpoint is the full query URL, e.g. {base}/databases/{id}/query.
	Endpoint string
	Header   http.Header
	PageSize int

	// Filter and Sorts are passed through verbatim when non-empty.
	Filter json.RawMessage
	Sorts  json.RawMessage
}

// Collection is the result of FetchAll. A truncated fetch is still a valid
// result: Records holds everything read before the stop, Complete is false
// and Err explains why.
type Collection struct {
	Records  []models.Record
	Pages    int
	Complete bool
	Err      error
}

type queryBody struct {
	PageSize    int             `json:"page_size,omitempty"`
	StartCursor string          `json:"start_cursor,omitempty"`
	Filter      json.RawMessage `json:"filter,omitempty"`
	Sorts       json.RawMessage `json:"sorts,omitempty"`
}

type listEnvelope struct {
	Object     string             `json:"object"`
	Results    *[]json.RawMessage `json:"results"`
	HasMore    bool               `json:"has_more"`
	NextCursor *string            `json:"next_cursor"`
}

// TruncatedRelation is the Unknown type given to a relation that the API
// truncated and that could not be completed.
const TruncatedRelation = "relation_truncated"

// RelationExpander completes a relation whose page payload was truncated.
type RelationExpander func(ctx context.Context, rec *models.Record, property, propertyID string) error

// FetcherOption customizes a Fetcher.
type FetcherOption func(*Fetcher)

// WithRelationExpander installs the hook called for truncated relations.
func WithRelationExpander(fn RelationExpander) FetcherOption {
	return func(f *Fetcher) {
		f.expand = fn
	}
}

// Fetcher walks a cursor-paginated collection.
type Fetcher struct {
	doer   Doer
	expand RelationExpander
}

// NewFetcher creates a Fetcher that sends requests through doer.
func NewFetcher(doer Doer, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{doer: doer}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll reads every page of q in cursor order and concatenates the
// records. It makes exactly one call per page and never requests a page
// twice. Any failure stops the loop and is reported in Collection.Err.
func (f *Fetcher) FetchAll(ctx context.Context, q Query) Collection {
	log := logging.Ctx(ctx)
	var (
		coll     Collection
		cursor   string
		consumed = make(map[string]bool)
	)

	stop := func(err error) Collection {
		coll.Err = fmt.Errorf("%w after %d page(s): %w", ErrIncomplete, coll.Pages, err)
		log.Error().Err(err).
			Str("endpoint", q.Endpoint).
			Int("pages", coll.Pages).
			Int("records", len(coll.Records)).
			Msg("Pagination stopped early")
		return coll
	}

	for {
		body, err := json.Marshal(queryBody{
			PageSize:    q.PageSize,
			StartCursor: cursor,
			Filter:      q.Filter,
			Sorts:       q.Sorts,
		})
		if err != nil {
			return stop(fmt.Errorf("encode query: %w", err))
		}

		resp, err := f.doer.Do(ctx, &httpclient.Request{
			Method: http.MethodPost,
			URL:    q.Endpoint,
			Header: q.Header,
			Body:   body,
		})
		if err != nil {
			return stop(err)
		}
		if httpclient.ClassifyWorkspace(resp) != httpclient.Success {
			return stop(newAPIError(resp))
		}

		var env listEnvelope
		if err := json.Unmarshal(resp.Body, &env); err != nil {
			return stop(fmt.Errorf("%w: %w", ErrMalformedPage, err))
		}
		if env.Results == nil {
			return stop(fmt.Errorf("%w: response has no results", ErrMalformedPage))
		}

		page := models.Page{HasMore: env.HasMore}
		if env.NextCursor != nil {
			page.NextCursor = *env.NextCursor
		}
		page.Records = f.decodeResults(ctx, *env.Results)

		coll.Pages++
		coll.Records = append(coll.Records, page.Records...)
		log.Debug().Int("page", coll.Pages).Int("records", len(page.Records)).Bool("has_more", page.HasMore).Msg("Fetched page")

		if !page.HasMore {
			coll.Complete = true
			return coll
		}
		if err := page.Validate(); err != nil {
			return stop(fmt.Errorf("%w: %w", ErrMalformedPage, err))
		}
		if consumed[page.NextCursor] {
			return stop(fmt.Errorf("%w: cursor %q repeated", ErrMalformedPage, page.NextCursor))
		}
		consumed[page.NextCursor] = true
		cursor = page.NextCursor
	}
}

func (f *Fetcher) decodeResults(ctx context.Context, results []json.RawMessage) []models.Record {
	records := make([]models.Record, 0, len(results))
	for i, raw := range results {
		var obj pageObject
		if err := json.Unmarshal(raw, &obj); err != nil || obj.ID == "" {
			logging.Ctx(ctx).Warn().Int("index", i).Msg("Skipping undecodable result")
			continue
		}
		rec, truncated := decodeRecord(&obj)
		for _, tr := range truncated {
			err := errors.New("no relation expander")
			if f.expand != nil {
				err = f.expand(ctx, &rec, tr.Name, tr.PropertyID)
			}
			if err != nil {
				// A partial relation must never be written back.
				rec.Properties[tr.Name] = models.Unknown{Type: TruncatedRelation}
				logging.Ctx(ctx).Warn().Err(err).Str("record", rec.ID).Str("property", tr.Name).Msg("Relation truncated by the API")
			}
		}
		records = append(records, rec)
	}
	return records
}
