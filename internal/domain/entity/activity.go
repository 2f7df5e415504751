package entity

import "time"

// Activity 租户内的操作审计记录
type Activity struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	ActorID    string    `json:"actor_id"`
	Action     string    `json:"action"`
	TargetType string    `json:"target_type,omitempty"`
	TargetID   string    `json:"target_id,omitempty"`
	Metadata   JSONMap   `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 指定表名
func (Activity) TableName() string {
	return "activities"
}

// NewActivity 创建新活动记录
func NewActivity(actorID, action string) *Activity {
	return &Activity{
		ActorID:   actorID,
		Action:    action,
		Metadata:  JSONMap{},
		CreatedAt: time.Now(),
	}
}

// SetTarget 设置操作目标
func (a *Activity) SetTarget(targetType, targetID string) {
	a.TargetType = targetType
	a.TargetID = targetID
}
