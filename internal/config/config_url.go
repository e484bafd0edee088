// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package config

import (
	"net/url"
)

// validateHTTPURL validates an API base URL. A path (such as /v1) is allowed;
// query parameters and fragments are not.
func validateHTTPURL(rawURL, fieldName string) error {
	if rawURL == "" {
		return invalidf("%s is required", fieldName)
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return invalidf("%s failed to parse URL: %v", fieldName, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return invalidf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return invalidf("%s host is required", fieldName)
	}

	if parsedURL.RawQuery != "" {
		return invalidf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}

	if parsedURL.Fragment != "" {
		return invalidf("%s should not contain a fragment", fieldName)
	}

	return nil
}
