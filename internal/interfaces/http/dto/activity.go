package dto

import (
	"time"

	"linkhub-api/internal/application/service"
	"linkhub-api/internal/domain/entity"
)

// CreateActivityRequest 创建活动记录请求
type CreateActivityRequest struct {
	Action     string         `json:"action" binding:"required,max=128"`
	TargetType string         `json:"target_type,omitempty" binding:"max=64"`
	TargetID   string         `json:"target_id,omitempty" binding:"max=128"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ToInput 转换为服务参数，操作人取自认证信息
func (r *CreateActivityRequest) ToInput(actorID string) service.CreateActivityInput {
	return service.CreateActivityInput{
		ActorID:    actorID,
		Action:     r.Action,
		TargetType: r.TargetType,
		TargetID:   r.TargetID,
		Metadata:   entity.JSONMap(r.Metadata),
	}
}

// ActivityResponse 活动记录响应
type ActivityResponse struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type,omitempty"`
	TargetID   string         `json:"target_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  string         `json:"created_at"`
}

// ToActivityResponse 转换活动记录
func ToActivityResponse(a *entity.Activity) *ActivityResponse {
	if a == nil {
		return nil
	}
	return &ActivityResponse{
		ID:         a.ID,
		ActorID:    a.ActorID,
		Action:     a.Action,
		TargetType: a.TargetType,
		TargetID:   a.TargetID,
		Metadata:   a.Metadata,
		CreatedAt:  a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ToActivityListResponse 转换活动记录列表
func ToActivityListResponse(items []*entity.Activity) []*ActivityResponse {
	out := make([]*ActivityResponse, 0, len(items))
	for _, a := range items {
		out = append(out, ToActivityResponse(a))
	}
	return out
}
