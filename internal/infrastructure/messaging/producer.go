package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"linkhub-api/internal/domain/entity"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	stream Stream
	maxLen int64
}

// NewProducer 创建消息生产者，stream 为空时使用 StreamPluginEvents
func NewProducer(client *redis.Client, stream Stream, maxLen int64) *Producer {
	if stream == "" {
		stream = StreamPluginEvents
	}
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
			attribute.String("tenant.id", msg.TenantID),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"tenant_id": msg.TenantID,
			"type":      msg.Type,
			"data":      string(data),
		},
	}).Result()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PluginEventMessage 插件事件消息载荷
type PluginEventMessage struct {
	EventID    string         `json:"event_id"`
	Plugin     string         `json:"plugin"`
	EventType  string         `json:"event_type"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// PublishPluginEvent 发布已提交的插件事件
func (p *Producer) PublishPluginEvent(ctx context.Context, event *entity.PluginEvent) (string, error) {
	msg, err := NewMessage(event.ID, TypePluginEventRecorded, event.TenantID, &PluginEventMessage{
		EventID:    event.ID,
		Plugin:     event.Plugin,
		EventType:  event.EventType,
		Payload:    event.Payload,
		OccurredAt: event.OccurredAt,
	})
	if err != nil {
		return "", err
	}
	msg.SetMetadata("plugin", event.Plugin)
	return p.Publish(ctx, p.stream, msg)
}
