// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/dirsync/internal/chat"
	"github.com/tomtom215/dirsync/internal/config"
	"github.com/tomtom215/dirsync/internal/logging"
	"github.com/tomtom215/dirsync/internal/notify"
	"github.com/tomtom215/dirsync/internal/sheets"
	dsync "github.com/tomtom215/dirsync/internal/sync"
	"github.com/tomtom215/dirsync/internal/workspace"
)

// clients holds the API clients that are configured. Missing ones are nil.
type clients struct {
	workspace *workspace.Client
	chat      *chat.Client
	sheets    *sheets.Client
}

func newClients(ctx context.Context, cfg *config.Config) (*clients, error) {
	c := &clients{}

	if cfg.Workspace.Token != "" {
		c.workspace = workspace.New(cfg.Workspace, cfg.HTTP)
		logging.Info().Str("base_url", cfg.Workspace.BaseURL).Msg("Workspace client configured")
	}

	if cfg.Chat.AdminToken != "" || cfg.Chat.BotToken != "" {
		c.chat = chat.New(cfg.Chat, cfg.HTTP)
		logging.Info().
			Bool("admin_token", cfg.Chat.AdminToken != "").
			Bool("bot_token", cfg.Chat.BotToken != "").
			Str("notify_channel", cfg.Chat.NotifyChannel).
			Msg("Chat client configured")
	}

	// Application default credentials may be present without any sheets
	// setting, so the client is only built when a job needs it.
	if cfg.NeedsKind(config.KindExport, config.KindImport) {
		sc, err := sheets.New(ctx, cfg.Sheets, cfg.HTTP)
		if err != nil {
			return nil, fmt.Errorf("sheets client: %w", err)
		}
		c.sheets = sc
		logging.Info().Bool("service_account", cfg.Sheets.CredentialsFile != "").Msg("Sheets client configured")
	}

	return c, nil
}

// deps returns engine dependencies without typed-nil interfaces.
func (c *clients) deps() dsync.Deps {
	var d dsync.Deps
	if c.workspace != nil {
		d.Workspace = c.workspace
	}
	if c.chat != nil {
		d.Chat = c.chat
	}
	if c.sheets != nil {
		d.Sheets = c.sheets
	}
	return d
}

// poster returns the notification poster, or nil without a chat client.
func (c *clients) poster() notify.Poster {
	if c.chat == nil {
		return nil
	}
	return c.chat
}
