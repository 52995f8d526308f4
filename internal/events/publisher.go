// Package events publishes listing change notifications to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectListingCreated = "listings.created"
	SubjectListingDeleted = "listings.deleted"
)

// ListingCreated is the payload of SubjectListingCreated
type ListingCreated struct {
	ListingID   string    `json:"listing_id"`
	Title       string    `json:"title"`
	UserID      string    `json:"user_id"`
	PhotoCount  int       `json:"photo_count"`
	FailedFiles []string  `json:"failed_files,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ListingDeleted is the payload of SubjectListingDeleted
type ListingDeleted struct {
	ListingID     string    `json:"listing_id"`
	PhotoCount    int       `json:"photo_count"`
	OrphanedPaths []string  `json:"orphaned_paths,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type NATSPublisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewNATSPublisher(url string, log *zap.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("listing-portal"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: conn, logger: log}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", subject, err)
	}
	p.logger.Debug("Published event", zap.String("subject", subject))
	return nil
}

// Close flushes pending messages and closes the connection
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// Nop discards events; used when no broker is configured
type Nop struct{}

func (Nop) Publish(context.Context, string, interface{}) error { return nil }
