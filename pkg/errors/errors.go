// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"linkhub-api/internal/domain/repository"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeUnauthorized       ErrorCode = "1002"
	CodeForbidden          ErrorCode = "1003"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 认证授权错误 (2xxx)
	CodeTokenExpired     ErrorCode = "2001"
	CodeTokenInvalid     ErrorCode = "2002"
	CodeTokenMissing     ErrorCode = "2003"
	CodePermissionDenied ErrorCode = "2004"
	CodeTenantInvalid    ErrorCode = "2005"

	// 资源错误 (3xxx)
	CodeActivityNotFound    ErrorCode = "3001"
	CodeShortlinkNotFound   ErrorCode = "3002"
	CodePluginEventNotFound ErrorCode = "3003"
	CodeShortlinkExpired    ErrorCode = "3004"

	// 租户隔离错误 (4xxx)
	CodeRowSecurityViolation ErrorCode = "4001"
	CodeTenantScopeMissing   ErrorCode = "4002"
	CodeIsolationFailure     ErrorCode = "4003"

	// 外部服务错误 (5xxx)
	CodeDatabaseError ErrorCode = "5001"
	CodeCacheError    ErrorCode = "5002"
	CodePoolExhausted ErrorCode = "5003"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 添加详细信息
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 添加底层错误
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// Retryable 调用方是否可以退避重试
func (e *AppError) Retryable() bool {
	return e.Code == CodePoolExhausted || e.Code == CodeServiceUnavailable
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeTenantInvalid:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeTokenExpired, CodeTokenInvalid, CodeTokenMissing:
		return http.StatusUnauthorized
	case CodeForbidden, CodePermissionDenied, CodeRowSecurityViolation:
		return http.StatusForbidden
	case CodeNotFound, CodeActivityNotFound, CodeShortlinkNotFound, CodePluginEventNotFound:
		return http.StatusNotFound
	case CodeShortlinkExpired:
		return http.StatusGone
	case CodeConflict:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable, CodePoolExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrUnauthorized       = New(CodeUnauthorized, "unauthorized")
	ErrForbidden          = New(CodeForbidden, "forbidden")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrConflict           = New(CodeConflict, "resource conflict")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrTokenExpired  = New(CodeTokenExpired, "token expired")
	ErrTokenInvalid  = New(CodeTokenInvalid, "token invalid")
	ErrTokenMissing  = New(CodeTokenMissing, "token missing")
	ErrTenantInvalid = New(CodeTenantInvalid, "invalid tenant")

	ErrActivityNotFound    = New(CodeActivityNotFound, "activity not found")
	ErrShortlinkNotFound   = New(CodeShortlinkNotFound, "shortlink not found")
	ErrPluginEventNotFound = New(CodePluginEventNotFound, "plugin event not found")
	ErrShortlinkExpired    = New(CodeShortlinkExpired, "shortlink expired")

	ErrRowSecurityViolation = New(CodeRowSecurityViolation, "row security policy violation")
	ErrTenantScopeMissing   = New(CodeTenantScopeMissing, "tenant scope missing")
	ErrIsolationFailure     = New(CodeIsolationFailure, "tenant isolation failure")

	ErrDatabase      = New(CodeDatabaseError, "database error")
	ErrPoolExhausted = New(CodePoolExhausted, "database pool exhausted")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

// FromDomain 将数据层错误映射为 AppError。
// 隔离层故障（清理失败、缺少租户作用域）映射为 5xx，不会表现为 404。
// notFound 为具体资源的 404 错误，为 nil 时使用 ErrNotFound。
func FromDomain(err error, notFound *AppError) *AppError {
	if err == nil {
		return nil
	}
	if notFound == nil {
		notFound = ErrNotFound
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	switch {
	// 清理失败优先级最高，即使同时包裹了业务错误
	case stderrors.Is(err, repository.ErrContextTeardown):
		return ErrIsolationFailure.WithError(err)
	case stderrors.Is(err, repository.ErrTenantMismatch):
		return ErrIsolationFailure.WithError(err)
	case stderrors.Is(err, repository.ErrNoTenantScope):
		return ErrTenantScopeMissing.WithError(err)
	case stderrors.Is(err, repository.ErrInvalidTenant):
		return ErrTenantInvalid.WithError(err)
	case stderrors.Is(err, repository.ErrPoolExhausted):
		return ErrPoolExhausted.WithError(err)
	case stderrors.Is(err, repository.ErrGuardClosed):
		return ErrServiceUnavailable.WithError(err)
	case stderrors.Is(err, repository.ErrRowSecurity):
		return ErrRowSecurityViolation.WithError(err)
	case stderrors.Is(err, repository.ErrNotFound):
		return notFound.WithError(err)
	case stderrors.Is(err, repository.ErrConflict):
		return ErrConflict.WithError(err)
	}

	var qErr *repository.QueryError
	if stderrors.As(err, &qErr) {
		return ErrDatabase.WithError(err)
	}
	return Wrap(err, CodeInternalError, "internal server error")
}
