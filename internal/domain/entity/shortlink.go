package entity

import "time"

// Shortlink 短链接，slug 在租户内唯一
type Shortlink struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	Slug       string     `json:"slug"`
	TargetURL  string     `json:"target_url"`
	CreatedBy  string     `json:"created_by,omitempty"`
	ClickCount int64      `json:"click_count"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName 指定表名
func (Shortlink) TableName() string {
	return "shortlinks"
}

// NewShortlink 创建新短链接
func NewShortlink(slug, targetURL string) *Shortlink {
	return &Shortlink{
		Slug:      slug,
		TargetURL: targetURL,
		CreatedAt: time.Now(),
	}
}

// IsExpired 检查短链接是否过期
func (s *Shortlink) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}
