package dto

import (
	"time"

	"linkhub-api/internal/application/service"
	"linkhub-api/internal/domain/entity"
)

// RecordPluginEventRequest 上报插件事件请求
type RecordPluginEventRequest struct {
	Plugin     string         `json:"plugin" binding:"required,max=64"`
	EventType  string         `json:"event_type" binding:"required,max=64"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt *time.Time     `json:"occurred_at,omitempty"`
}

// ToInput 转换为服务参数
func (r *RecordPluginEventRequest) ToInput() service.RecordPluginEventInput {
	in := service.RecordPluginEventInput{
		Plugin:    r.Plugin,
		EventType: r.EventType,
		Payload:   entity.JSONMap(r.Payload),
	}
	if r.OccurredAt != nil {
		in.OccurredAt = *r.OccurredAt
	}
	return in
}

// PluginEventResponse 插件事件响应
type PluginEventResponse struct {
	ID         string         `json:"id"`
	Plugin     string         `json:"plugin"`
	EventType  string         `json:"event_type"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt string         `json:"occurred_at"`
	CreatedAt  string         `json:"created_at"`
}

// ToPluginEventResponse 转换插件事件
func ToPluginEventResponse(e *entity.PluginEvent) *PluginEventResponse {
	if e == nil {
		return nil
	}
	return &PluginEventResponse{
		ID:         e.ID,
		Plugin:     e.Plugin,
		EventType:  e.EventType,
		Payload:    e.Payload,
		OccurredAt: e.OccurredAt.UTC().Format(time.RFC3339),
		CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ToPluginEventListResponse 转换插件事件列表
func ToPluginEventListResponse(items []*entity.PluginEvent) []*PluginEventResponse {
	out := make([]*PluginEventResponse, 0, len(items))
	for _, e := range items {
		out = append(out, ToPluginEventResponse(e))
	}
	return out
}
