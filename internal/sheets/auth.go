// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package sheets

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scope grants read and write access to spreadsheets.
const Scope = "https://www.googleapis.com/auth/spreadsheets"

// authorizedClient returns an HTTP client that attaches access tokens for the
// service account in credentialsFile, or for application default credentials
// when the path is empty.
func authorizedClient(ctx context.Context, credentialsFile string) (*http.Client, error) {
	if credentialsFile == "" {
		hc, err := google.DefaultClient(ctx, Scope)
		if err != nil {
			return nil, fmt.Errorf("sheets credentials: %w", err)
		}
		return hc, nil
	}

	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, Scope)
	if err != nil {
		return nil, fmt.Errorf("sheets credentials %s: %w", credentialsFile, err)
	}
	return oauth2.NewClient(ctx, creds.TokenSource), nil
}
