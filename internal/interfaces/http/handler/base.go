// Package handler 提供 HTTP 请求处理器
package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"linkhub-api/internal/application/service"
	"linkhub-api/internal/interfaces/http/dto"
	apperrors "linkhub-api/pkg/errors"
	"linkhub-api/pkg/logger"
)

// respondError 把服务层错误映射为 HTTP 响应
//
// notFound 为对应资源的 404 错误。隔离层故障一律按 5xx 返回。
func respondError(c *gin.Context, op string, err error, notFound *apperrors.AppError) {
	ctx := c.Request.Context()

	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		appErr = apperrors.ErrInvalidParam.WithDetail(err.Error())
	case errors.Is(err, service.ErrShortlinkExpired):
		appErr = apperrors.ErrShortlinkExpired.WithError(err)
	default:
		appErr = apperrors.FromDomain(err, notFound)
	}

	if appErr.HTTPStatus >= 500 {
		logger.Error(ctx, op+" failed", err, "error_code", string(appErr.Code))
		_ = c.Error(err)
	} else {
		logger.Debug(ctx, op+" rejected", "error", err.Error(), "error_code", string(appErr.Code))
	}
	dto.AbortWithAppError(c, appErr)
}

// bindJSON 绑定请求体，失败时直接返回 400
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}
