package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const EventTypeIssueRelayed = "issue_relayed"

// IssueRelayed announces a completed delivery to downstream consumers.
type IssueRelayed struct {
	DeliveryID        int64
	IssueID           string
	IssueIdentifier   string
	IssueURL          string
	AssigneeID        *string
	Attachments       []string // public URLs of linked attachments
	AttachmentsFailed int
}

type Publisher interface {
	Publish(ctx context.Context, msg IssueRelayed) error
	Close() error
}

type redisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *slog.Logger
}

// NewRedisPublisher appends notifications to a capped Redis stream. The stream
// is trimmed approximately to maxLen entries.
func NewRedisPublisher(client *redis.Client, stream string, maxLen int64, logger *slog.Logger) Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisPublisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
		logger: logger,
	}
}

func (p *redisPublisher) Publish(ctx context.Context, msg IssueRelayed) error {
	attachments, err := json.Marshal(msg.Attachments)
	if err != nil {
		return fmt.Errorf("marshal attachments: %w", err)
	}

	fields := map[string]any{
		"event_type":         EventTypeIssueRelayed,
		"delivery_id":        msg.DeliveryID,
		"issue_id":           msg.IssueID,
		"issue_identifier":   msg.IssueIdentifier,
		"issue_url":          msg.IssueURL,
		"attachments":        string(attachments),
		"attachments_failed": msg.AttachmentsFailed,
	}
	if msg.AssigneeID != nil && *msg.AssigneeID != "" {
		fields["assignee_id"] = *msg.AssigneeID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", EventTypeIssueRelayed, err)
	}

	p.logger.InfoContext(ctx, "published relay notification", "stream", p.stream, "issue_id", msg.IssueID, "delivery_id", msg.DeliveryID)
	return nil
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}

type noopPublisher struct{}

// NewNoopPublisher is used when no Redis URL is configured.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(ctx context.Context, msg IssueRelayed) error {
	return nil
}

func (noopPublisher) Close() error {
	return nil
}
