// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

// Package events carries run reports from the sync engine to its consumers
// over an in-process watermill pub/sub.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/dirsync/internal/logging"
	"github.com/tomtom215/dirsync/internal/models"
)

// TopicRunReports receives one message per finished or skipped run.
const TopicRunReports = "dirsync.run_reports"

// ErrClosed is returned when publishing on a closed bus.
var ErrClosed = errors.New("event bus closed")

// Bus is the in-process report bus.
type Bus struct {
	pubsub *gochannel.GoChannel

	mu     sync.RWMutex
	closed bool
}

// NewBus creates a Bus. Messages published before anyone subscribes are dropped.
func NewBus() *Bus {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger),
	}
}

// PublishReport publishes a run report as JSON. The job name and status are
// also set as message metadata.
func (b *Bus) PublishReport(ctx context.Context, report models.RunReport) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("job", report.Job)
	msg.Metadata.Set("status", string(report.Status))
	if report.RunID != "" {
		msg.Metadata.Set("run_id", report.RunID)
	}
	msg.SetContext(ctx)

	if err := b.pubsub.Publish(TopicRunReports, msg); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	return nil
}

// SubscribeReports returns the report stream. The channel is closed when ctx
// is done or the bus is closed. Every message must be acked.
func (b *Bus) SubscribeReports(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, TopicRunReports)
}

// DecodeReport reads the report carried by msg.
func DecodeReport(msg *message.Message) (models.RunReport, error) {
	var report models.RunReport
	if err := json.Unmarshal(msg.Payload, &report); err != nil {
		return models.RunReport{}, fmt.Errorf("decode report %s: %w", msg.UUID, err)
	}
	return report, nil
}

// Close stops delivery and closes all subscriptions.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}
