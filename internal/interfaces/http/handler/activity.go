package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"linkhub-api/internal/application/service"
	"linkhub-api/internal/domain/entity"
	"linkhub-api/internal/domain/repository"
	"linkhub-api/internal/interfaces/http/dto"
	"linkhub-api/internal/interfaces/http/middleware"
	apperrors "linkhub-api/pkg/errors"
)

// ActivityService 活动记录服务
type ActivityService interface {
	Create(ctx context.Context, tenantID string, in service.CreateActivityInput) (*entity.Activity, error)
	Get(ctx context.Context, tenantID, id string) (*entity.Activity, error)
	List(ctx context.Context, tenantID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Activity], error)
	Delete(ctx context.Context, tenantID, id string) error
}

// ActivityHandler 活动记录处理器
type ActivityHandler struct {
	svc ActivityService
}

// NewActivityHandler 创建活动记录处理器
func NewActivityHandler(svc ActivityService) *ActivityHandler {
	return &ActivityHandler{svc: svc}
}

// ListActivities 获取活动记录列表
// @Summary 获取活动记录列表
// @Tags Activities
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[[]dto.ActivityResponse]
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/activities [get]
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context(), middleware.TenantID(c), dto.BindPage(c).Pagination())
	if err != nil {
		respondError(c, "list activities", err, nil)
		return
	}
	dto.SuccessWithPage(c, dto.ToActivityListResponse(result.Items), dto.PageMetaOf(result))
}

// CreateActivity 记录活动
// @Summary 记录活动
// @Tags Activities
// @Accept json
// @Produce json
// @Param body body dto.CreateActivityRequest true "活动内容"
// @Success 201 {object} dto.Response[dto.ActivityResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/activities [post]
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	var req dto.CreateActivityRequest
	if !bindJSON(c, &req) {
		return
	}

	activity, err := h.svc.Create(c.Request.Context(), middleware.TenantID(c), req.ToInput(middleware.UserID(c)))
	if err != nil {
		respondError(c, "create activity", err, nil)
		return
	}
	dto.Created(c, dto.ToActivityResponse(activity))
}

// GetActivity 获取活动详情
// @Summary 获取活动详情
// @Tags Activities
// @Produce json
// @Param id path string true "活动 ID"
// @Success 200 {object} dto.Response[dto.ActivityResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/activities/{id} [get]
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	activity, err := h.svc.Get(c.Request.Context(), middleware.TenantID(c), dto.BindID(c))
	if err != nil {
		respondError(c, "get activity", err, apperrors.ErrActivityNotFound)
		return
	}
	dto.Success(c, dto.ToActivityResponse(activity))
}

// DeleteActivity 删除活动记录
// @Summary 删除活动记录
// @Tags Activities
// @Param id path string true "活动 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/activities/{id} [delete]
func (h *ActivityHandler) DeleteActivity(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.TenantID(c), dto.BindID(c)); err != nil {
		respondError(c, "delete activity", err, apperrors.ErrActivityNotFound)
		return
	}
	dto.NoContent(c)
}
