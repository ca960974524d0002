package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/samvad-hq/samvad-article-summarizer/internal/logger"
)

// gcpPubSubSender publishes events to a Google Cloud Pub/Sub topic.
type gcpPubSubSender struct {
	id     string
	client *pubsub.Client
	topic  *pubsub.Topic
	log    logger.Logger
}

func newGCPPubSubPublisher(ctx context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.GCPPubSub == nil {
		return nil, fmt.Errorf("publisher %q missing gcp_pubsub configuration", cfg.ID)
	}
	sender, err := newGCPPubSubSender(ctx, cfg.GCPPubSub, log)
	if err != nil {
		return nil, err
	}
	sender.id = cfg.ID
	return sender, nil
}

func newGCPPubSubSender(ctx context.Context, cfg *GCPPubSubConfig, log logger.Logger) (*gcpPubSubSender, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, pubsubOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &gcpPubSubSender{
		id:     cfg.Topic,
		client: client,
		topic:  client.Topic(cfg.Topic),
		log:    logger.Ensure(log),
	}, nil
}

func pubsubOptions(cfg *GCPPubSubConfig) []option.ClientOption {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts,
			option.WithEndpoint(cfg.Endpoint),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	} else if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	return opts
}

func (g *gcpPubSubSender) ID() string   { return g.id }
func (g *gcpPubSubSender) Type() string { return TypeGCPPubSub }

func (g *gcpPubSubSender) Publish(ctx context.Context, evt Event) error {
	return g.Send(ctx, evt)
}

// Send publishes evt and waits for the server acknowledgement.
func (g *gcpPubSubSender) Send(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	res := g.topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: evt.attributes(),
	})
	msgID, err := res.Get(ctx)
	if err != nil {
		g.log.ErrorObj("pubsub publisher send failed", "publisher_pubsub_error", map[string]any{
			"publisher_id": g.id,
			"error":        err.Error(),
		})
		return fmt.Errorf("publish to pubsub: %w", err)
	}
	g.log.DebugObj("pubsub publisher delivered event", "publisher_pubsub_delivery", map[string]any{
		"publisher_id": g.id,
		"message_id":   msgID,
	})
	return nil
}

// Close flushes pending messages and closes the client.
func (g *gcpPubSubSender) Close() error {
	g.topic.Stop()
	return g.client.Close()
}
