// Package service 提供租户数据的应用服务
//
// 每个操作对应一次租户事务：服务只接收已认证的租户 ID，
// 仓储调用全部发生在 TenantTransactor.WithTenant 的回调内。
package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrShortlinkExpired 短链接已过期
	ErrShortlinkExpired = errors.New("shortlink expired")
	// ErrInvalidInput 请求参数不完整
	ErrInvalidInput = errors.New("invalid input")
)

// InputError 缺少必填字段
type InputError struct {
	Fields []string
}

func (e *InputError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// Is 使 errors.Is(err, ErrInvalidInput) 成立
func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// required 校验必填字段，在打开租户事务之前调用
func required(fields map[string]string) error {
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &InputError{Fields: missing}
}
