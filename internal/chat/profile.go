// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package chat

import (
	"context"
	"net/url"
)

// standardProfileFields are set at the top level of a profile. Any other
// field name is treated as a custom profile field id.
var standardProfileFields = map[string]bool{
	"real_name":    true,
	"display_name": true,
	"first_name":   true,
	"last_name":    true,
	"title":        true,
	"phone":        true,
	"pronouns":     true,
	"email":        true,
}

// Profile is a flat view of a user's profile: standard fields by name and
// custom fields by id.
type Profile map[string]string

type customField struct {
	Value string `json:"value"`
	Alt   string `json:"alt"`
}

type profileObject struct {
	RealName    string                 `json:"real_name"`
	DisplayName string                 `json:"display_name"`
	FirstName   string                 `json:"first_name"`
	LastName    string                 `json:"last_name"`
	Title       string                 `json:"title"`
	Phone       string                 `json:"phone"`
	Pronouns    string                 `json:"pronouns"`
	Email       string                 `json:"email"`
	Fields      map[string]customField `json:"fields"`
}

func (p *profileObject) flatten() Profile {
	out := Profile{
		"real_name":    p.RealName,
		"display_name": p.DisplayName,
		"first_name":   p.FirstName,
		"last_name":    p.LastName,
		"title":        p.Title,
		"phone":        p.Phone,
		"pronouns":     p.Pronouns,
		"email":        p.Email,
	}
	for id, f := range p.Fields {
		out[id] = f.Value
	}
	return out
}

// GetProfile reads a user's profile with the admin token.
func (c *Client) GetProfile(ctx context.Context, userID string) (Profile, error) {
	var out struct {
		Profile profileObject `json:"profile"`
	}
	if err := c.get(ctx, "users.profile.get", c.adminToken, url.Values{"user": {userID}}, &out); err != nil {
		return nil, err
	}
	return out.Profile.flatten(), nil
}

// SetProfile updates only the given fields of a user's profile.
func (c *Client) SetProfile(ctx context.Context, userID string, fields Profile) error {
	profile := make(map[string]any, len(fields))
	custom := make(map[string]customField)
	for name, value := range fields {
		if standardProfileFields[name] {
			profile[name] = value
			continue
		}
		custom[name] = customField{Value: value}
	}
	if len(custom) > 0 {
		profile["fields"] = custom
	}
	body := map[string]any{"user": userID, "profile": profile}
	return c.post(ctx, "users.profile.set", c.adminToken, body, nil)
}
