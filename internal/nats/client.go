package nats

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/oceandata/ctd-pipeline/internal/types"
)

const (
	SubjectCastConverted = "casts.converted"
	SubjectCastCorrected = "casts.corrected"
	SubjectCastBinned    = "casts.binned"
)

// Client represents a NATS client
type Client struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// New creates a new NATS client
func New(url string) (*Client, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	// Create stream if it doesn't exist
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     "CASTS",
		Subjects: []string{"casts.>"},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil && !strings.Contains(err.Error(), "stream name already in use") {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return &Client{
		conn: nc,
		js:   js,
	}, nil
}

// PublishCastEvent publishes a cast lifecycle event on the given subject
func (c *Client) PublishCastEvent(subject string, event *types.CastEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = c.js.Publish(subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// SubscribeCastEvents subscribes to cast lifecycle events on a subject
func (c *Client) SubscribeCastEvents(subject string, handler func(*types.CastEvent)) error {
	_, err := c.js.Subscribe(subject, func(msg *nats.Msg) {
		var event types.CastEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			fmt.Printf("Error unmarshaling event: %v\n", err)
			return
		}
		handler(&event)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	return nil
}

// Close closes the NATS connection
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
