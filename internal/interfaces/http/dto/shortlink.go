package dto

import (
	"time"

	"linkhub-api/internal/application/service"
	"linkhub-api/internal/domain/entity"
)

// CreateShortlinkRequest 创建短链接请求
type CreateShortlinkRequest struct {
	Slug      string     `json:"slug" binding:"required,max=64"`
	TargetURL string     `json:"target_url" binding:"required,url,max=2048"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ToInput 转换为服务参数
func (r *CreateShortlinkRequest) ToInput(createdBy string) service.CreateShortlinkInput {
	return service.CreateShortlinkInput{
		Slug:      r.Slug,
		TargetURL: r.TargetURL,
		CreatedBy: createdBy,
		ExpiresAt: r.ExpiresAt,
	}
}

// ShortlinkResponse 短链接响应
type ShortlinkResponse struct {
	ID         string  `json:"id"`
	Slug       string  `json:"slug"`
	TargetURL  string  `json:"target_url"`
	CreatedBy  string  `json:"created_by,omitempty"`
	ClickCount int64   `json:"click_count"`
	ExpiresAt  *string `json:"expires_at,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

// ToShortlinkResponse 转换短链接
func ToShortlinkResponse(s *entity.Shortlink) *ShortlinkResponse {
	if s == nil {
		return nil
	}
	resp := &ShortlinkResponse{
		ID:         s.ID,
		Slug:       s.Slug,
		TargetURL:  s.TargetURL,
		CreatedBy:  s.CreatedBy,
		ClickCount: s.ClickCount,
		CreatedAt:  s.CreatedAt.UTC().Format(time.RFC3339),
	}
	if s.ExpiresAt != nil {
		v := s.ExpiresAt.UTC().Format(time.RFC3339)
		resp.ExpiresAt = &v
	}
	return resp
}

// ToShortlinkListResponse 转换短链接列表
func ToShortlinkListResponse(items []*entity.Shortlink) []*ShortlinkResponse {
	out := make([]*ShortlinkResponse, 0, len(items))
	for _, s := range items {
		out = append(out, ToShortlinkResponse(s))
	}
	return out
}
