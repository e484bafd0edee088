// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package httpclient

import (
	"net/http"

	"github.com/goccy/go-json"
)

// Verdict is a classifier's decision about one response.
type Verdict int

const (
	// Success means the API reported success.
	Success Verdict = iota
	// Retry means the failure is transient and the request may be repeated.
	Retry
	// Fail means the failure is permanent; the response is returned as-is.
	Fail
)

// String returns the metric label for the verdict.
func (v Verdict) String() string {
	switch v {
	case Success:
		return "success"
	case Retry:
		return "retry"
	case Fail:
		return "fail"
	default:
		return "unknown"
	}
}

// Classifier inspects a response and decides whether it succeeded, should be
// retried or has failed permanently. It must not modify the response.
type Classifier func(*Response) Verdict

// ClassifyStatus decides by HTTP status alone: 2xx succeeds, 429 and 5xx are
// retried and everything else fails. Used when no envelope can be parsed.
func ClassifyStatus(resp *Response) Verdict {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Success
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return Retry
	default:
		return Fail
	}
}

var workspaceRetryCodes = map[string]bool{
	"rate_limited":          true,
	"internal_server_error": true,
	"service_unavailable":   true,
	"conflict_error":        true,
	"gateway_timeout":       true,
}

type workspaceEnvelope struct {
	Object string `json:"object"`
	Code   string `json:"code"`
}

// ClassifyWorkspace reads the workspace error envelope
// {"object":"error","code":"rate_limited",...}.
func ClassifyWorkspace(resp *Response) Verdict {
	var env workspaceEnvelope
	if len(resp.Body) == 0 || json.Unmarshal(resp.Body, &env) != nil {
		return ClassifyStatus(resp)
	}
	if env.Object != "error" {
		return ClassifyStatus(resp)
	}
	if workspaceRetryCodes[env.Code] {
		return Retry
	}
	return Fail
}

var chatRetryCodes = map[string]bool{
	"ratelimited":         true,
	"rate_limited":        true,
	"internal_error":      true,
	"fatal_error":         true,
	"service_unavailable": true,
	"request_timeout":     true,
}

type chatEnvelope struct {
	OK    *bool  `json:"ok"`
	Error string `json:"error"`
}

// ClassifyChat reads the chat envelope {"ok":false,"error":"ratelimited"}.
// The chat API answers most failures with HTTP 200, so ok is authoritative.
func ClassifyChat(resp *Response) Verdict {
	var env chatEnvelope
	if len(resp.Body) == 0 || json.Unmarshal(resp.Body, &env) != nil || env.OK == nil {
		return ClassifyStatus(resp)
	}
	if *env.OK {
		return Success
	}
	if chatRetryCodes[env.Error] {
		return Retry
	}
	return Fail
}

var sheetsRetryStatuses = map[string]bool{
	"RESOURCE_EXHAUSTED": true,
	"UNAVAILABLE":        true,
	"INTERNAL":           true,
	"DEADLINE_EXCEEDED":  true,
}

type sheetsEnvelope struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// ClassifySheets reads the Google error envelope
// {"error":{"code":429,"status":"RESOURCE_EXHAUSTED",...}}.
func ClassifySheets(resp *Response) Verdict {
	var env sheetsEnvelope
	if len(resp.Body) == 0 || json.Unmarshal(resp.Body, &env) != nil || env.Error == nil {
		return ClassifyStatus(resp)
	}
	if sheetsRetryStatuses[env.Error.Status] {
		return Retry
	}
	return Fail
}
