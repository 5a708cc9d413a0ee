package publisher

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// PubSubProvider implements Provider for Google Cloud Pub/Sub.
type PubSubProvider struct {
	Client *pubsub.Client
	Topic  *pubsub.Topic
}

// NewPubSubProvider wraps an existing Pub/Sub client and gets a handle to the
// topic, verifying on startup that it exists and is publishable.
func NewPubSubProvider(ctx context.Context, client *pubsub.Client, topicID string) (*PubSubProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client is required")
	}
	if topicID == "" {
		return nil, fmt.Errorf("topic id is required")
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check pubsub topic %q: %w", topicID, err)
	}
	if !exists {
		return nil, fmt.Errorf("pubsub topic %q does not exist", topicID)
	}

	return &PubSubProvider{Client: client, Topic: topic}, nil
}

// Publish sends the payload to the topic and waits for the server ack, so a
// failed publish surfaces to the caller instead of being dropped.
func (p *PubSubProvider) Publish(ctx context.Context, data []byte) error {
	result := p.Topic.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Close stops the topic's background goroutines, flushing pending publishes.
func (p *PubSubProvider) Close() error {
	p.Topic.Stop()
	return nil
}
