package publish

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// PubSubPublisher mirrors each post onto a Pub/Sub topic instead of a chat
// channel. It serves deployments where delivery is handled by a separate
// consumer (moderation queue, multi-channel fan-out).
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

// NewPubSub connects to the project and verifies the topic exists.
func NewPubSub(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*PubSubPublisher, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("pubsub project and topic are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	ok, err := topic.Exists(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("check pubsub topic %q: %w", topicID, err)
	}
	if !ok {
		_ = client.Close()
		return nil, fmt.Errorf("pubsub topic %q does not exist", topicID)
	}
	return &PubSubPublisher{client: client, topic: topic, logger: logger}, nil
}

// Publish sends the post text as one message and waits for the server ack.
func (p *PubSubPublisher) Publish(ctx context.Context, text string) error {
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: []byte(text),
		Attributes: map[string]string{
			"content-type": "text/plain; charset=utf-8",
		},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish to pubsub: %w", err)
	}
	p.logger.Debug("published message to pubsub", zap.String("message_id", id))
	return nil
}

// Close flushes pending messages and releases the client.
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
