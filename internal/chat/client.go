// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dirsync/internal/config"
	"github.com/tomtom215/dirsync/internal/httpclient"
	"github.com/tomtom215/dirsync/internal/logging"
)

// ErrUserNotFound is returned by LookupUserByEmail when no account uses the address.
var ErrUserNotFound = errors.New("chat user not found")

// APIError is an ok=false response.
type APIError struct {
	Method string
	Code   string
	Status int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat %s failed: %s (status %d)", e.Method, e.Code, e.Status)
}

// Doer sends one logical API call. *httpclient.Client implements it.
type Doer interface {
	Do(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error)
}

// Client calls the team-chat Web API.
type Client struct {
	http       Doer
	baseURL    string
	adminToken string
	botToken   string
}

// New creates a Client with a retrying HTTP client named "chat".
func New(cfg config.ChatConfig, httpCfg config.HTTPConfig, opts ...httpclient.Option) *Client {
	hc := httpclient.New(httpclient.Config{
		Name:          "chat",
		MaxRetries:    httpCfg.MaxRetries,
		BaseDelay:     httpCfg.RetryBaseDelay,
		Timeout:       httpCfg.Timeout,
		RatePerSecond: cfg.RatePerSecond,
		Burst:         1,
		Classify:      httpclient.ClassifyChat,
	}, opts...)
	return NewWithDoer(cfg, hc)
}

// NewWithDoer creates a Client that sends requests through doer.
func NewWithDoer(cfg config.ChatConfig, doer Doer) *Client {
	return &Client{
		http:       doer,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		adminToken: cfg.AdminToken,
		botToken:   cfg.BotToken,
	}
}

type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// get calls a read method with query parameters.
func (c *Client) get(ctx context.Context, method, token string, params url.Values, out any) error {
	u := c.baseURL + "/" + method
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return c.call(ctx, method, &httpclient.Request{Method: http.MethodGet, URL: u}, token, out)
}

// post calls a write method with a JSON body.
func (c *Client) post(ctx context.Context, method, token string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("chat %s: encode: %w", method, err)
	}
	req := &httpclient.Request{Method: http.MethodPost, URL: c.baseURL + "/" + method, Body: payload}
	return c.call(ctx, method, req, token, out)
}

func (c *Client) call(ctx context.Context, method string, req *httpclient.Request, token string, out any) error {
	req.Header = http.Header{}
	req.Header.Set("Authorization", "Bearer "+token)
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("chat %s: %w", method, err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return fmt.Errorf("chat %s: status %d: undecodable body %q", method, resp.StatusCode, logging.Truncate(string(resp.Body), 200))
	}
	if !env.OK {
		return &APIError{Method: method, Code: env.Error, Status: resp.StatusCode}
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return fmt.Errorf("chat %s: decode: %w", method, err)
		}
	}
	return nil
}

// User is a chat account.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
	Profile struct {
		Email    string `json:"email"`
		RealName string `json:"real_name"`
	} `json:"profile"`
}

// LookupUserByEmail resolves an email address to a user. Unknown addresses
// return ErrUserNotFound.
func (c *Client) LookupUserByEmail(ctx context.Context, email string) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	err := c.get(ctx, "users.lookupByEmail", c.botToken, url.Values{"email": {email}}, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == "users_not_found" {
		return User{}, fmt.Errorf("%w: %s", ErrUserNotFound, logging.SanitizeEmail(email))
	}
	if err != nil {
		return User{}, err
	}
	return out.User, nil
}

// UserGroup is a mentionable group of users.
type UserGroup struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Handle string   `json:"handle"`
	Users  []string `json:"users"`
}

// ListUserGroups returns every user group of the team. With includeUsers the
// member ids are filled in.
func (c *Client) ListUserGroups(ctx context.Context, includeUsers bool) ([]UserGroup, error) {
	var out struct {
		Usergroups []UserGroup `json:"usergroups"`
	}
	params := url.Values{}
	if includeUsers {
		params.Set("include_users", "true")
	}
	if err := c.get(ctx, "usergroups.list", c.adminToken, params, &out); err != nil {
		return nil, err
	}
	return out.Usergroups, nil
}

// CreateUserGroup creates an empty group.
func (c *Client) CreateUserGroup(ctx context.Context, name, handle string) (UserGroup, error) {
	var out struct {
		Usergroup UserGroup `json:"usergroup"`
	}
	body := map[string]string{"name": name, "handle": handle}
	if err := c.post(ctx, "usergroups.create", c.adminToken, body, &out); err != nil {
		return UserGroup{}, err
	}
	return out.Usergroup, nil
}

// ListUserGroupMembers returns the user ids in a group.
func (c *Client) ListUserGroupMembers(ctx context.Context, groupID string) ([]string, error) {
	var out struct {
		Users []string `json:"users"`
	}
	if err := c.get(ctx, "usergroups.users.list", c.adminToken, url.Values{"usergroup": {groupID}}, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// UpdateUserGroupMembers replaces the membership of a group with userIDs.
func (c *Client) UpdateUserGroupMembers(ctx context.Context, groupID string, userIDs []string) error {
	body := map[string]string{"usergroup": groupID, "users": strings.Join(userIDs, ",")}
	return c.post(ctx, "usergroups.users.update", c.adminToken, body, nil)
}

// Message is a chat.postMessage payload. Text is the notification fallback
// when Blocks are present.
type Message struct {
	Channel string  `json:"channel"`
	Text    string  `json:"text"`
	Blocks  []Block `json:"blocks,omitempty"`
}

// PostMessage posts to a channel with the bot token and returns the message timestamp.
func (c *Client) PostMessage(ctx context.Context, msg Message) (string, error) {
	var out struct {
		TS string `json:"ts"`
	}
	if err := c.post(ctx, "chat.postMessage", c.botToken, msg, &out); err != nil {
		return "", err
	}
	return out.TS, nil
}
