package entity

import "time"

// PluginEvent 插件上报的事件
type PluginEvent struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Plugin     string    `json:"plugin"`
	EventType  string    `json:"event_type"`
	Payload    JSONMap   `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 指定表名
func (PluginEvent) TableName() string {
	return "plugin_events"
}

// NewPluginEvent 创建插件事件
func NewPluginEvent(plugin, eventType string, payload JSONMap) *PluginEvent {
	if payload == nil {
		payload = JSONMap{}
	}
	now := time.Now()
	return &PluginEvent{
		Plugin:     plugin,
		EventType:  eventType,
		Payload:    payload,
		OccurredAt: now,
		CreatedAt:  now,
	}
}
