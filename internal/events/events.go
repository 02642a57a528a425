// Package events publishes domain events as JSON on redis pub/sub channels.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"printfleet-system/internal/logging"
)

const channelPrefix = "fleet:events:"

const (
	TransferRecorded        = "transfer.recorded"
	PrinterAssigned         = "printer.assigned"
	PrinterStatusChanged    = "printer.status_changed"
	MaintenanceCreated      = "maintenance.created"
	MaintenanceStatusChange = "maintenance.status_changed"
	ServiceReportGenerated  = "maintenance.report_generated"
	RentalCreated           = "rental.created"
	ClientDeleted           = "client.deleted"
)

type Event struct {
	EventType string      `json:"event_type"`
	PrinterID int64       `json:"printer_id,omitempty"`
	EntityID  int64       `json:"entity_id"`
	Actor     string      `json:"actor,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

func Channel(eventType string) string {
	return channelPrefix + eventType
}

func AllChannel() string {
	return channelPrefix + "all"
}

type Publisher struct {
	redis *redis.Client
	log   *zap.Logger
}

func NewPublisher(redisClient *redis.Client, logger *zap.Logger) *Publisher {
	return &Publisher{redis: redisClient, log: logging.OrNop(logger)}
}

func (p *Publisher) publish(ctx context.Context, event Event) error {
	if p == nil || p.redis == nil {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.redis.Publish(ctx, Channel(event.EventType), eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if err := p.redis.Publish(ctx, AllChannel(), eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish to all channel: %w", err)
	}
	return nil
}

// Publish sends the event after the write it describes has committed. Failures are
// logged only; the write is not undone.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if err := p.publish(ctx, event); err != nil {
		p.log.Warn("Event publish failed", zap.String("event_type", event.EventType), zap.Error(err))
	}
}
