// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package notify

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/dirsync/internal/events"
	"github.com/tomtom215/dirsync/internal/logging"
)

// Service forwards reports from the event bus to the Notifier.
type Service struct {
	notifier *Notifier
	msgs     <-chan *message.Message
}

// NewService subscribes to run reports right away so that reports published
// before Serve starts are not lost. The subscription ends when ctx is done
// or the bus is closed.
func NewService(ctx context.Context, bus *events.Bus, notifier *Notifier) (*Service, error) {
	msgs, err := bus.SubscribeReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe to run reports: %w", err)
	}
	return &Service{notifier: notifier, msgs: msgs}, nil
}

// Serve implements suture.Service.
func (s *Service) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-s.msgs:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logging.Info().Msg("Report subscription closed")
				return suture.ErrDoNotRestart
			}
			s.handle(ctx, msg)
		}
	}
}

func (s *Service) handle(ctx context.Context, msg *message.Message) {
	// Always acked; a nack would post the report again.
	defer msg.Ack()

	report, err := events.DecodeReport(msg)
	if err != nil {
		logging.Error().Err(err).Msg("Dropping undecodable run report")
		return
	}

	ctx = logging.ContextWithCorrelationID(ctx, report.RunID)
	if err := s.notifier.NotifyReport(ctx, report); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("job", report.Job).Msg("Run report notification failed")
	}
}

// String identifies the service in supervisor logs.
func (s *Service) String() string {
	return "report-notifier"
}
