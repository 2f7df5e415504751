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

// PluginEventService 插件事件服务
type PluginEventService interface {
	Record(ctx context.Context, tenantID string, in service.RecordPluginEventInput) (*entity.PluginEvent, error)
	Get(ctx context.Context, tenantID, id string) (*entity.PluginEvent, error)
	List(ctx context.Context, tenantID string, filter *repository.PluginEventFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.PluginEvent], error)
	Delete(ctx context.Context, tenantID, id string) error
}

// PluginEventHandler 插件事件处理器
type PluginEventHandler struct {
	svc PluginEventService
}

// NewPluginEventHandler 创建插件事件处理器
func NewPluginEventHandler(svc PluginEventService) *PluginEventHandler {
	return &PluginEventHandler{svc: svc}
}

// ListPluginEvents 获取插件事件列表
// @Summary 获取插件事件列表
// @Description 支持按插件与事件类型过滤
// @Tags PluginEvents
// @Produce json
// @Param plugin query string false "插件"
// @Param event_type query string false "事件类型"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[[]dto.PluginEventResponse]
// @Router /v1/plugin-events [get]
func (h *PluginEventHandler) ListPluginEvents(c *gin.Context) {
	filter := &repository.PluginEventFilter{
		Plugin:    c.Query("plugin"),
		EventType: c.Query("event_type"),
	}

	result, err := h.svc.List(c.Request.Context(), middleware.TenantID(c), filter, dto.BindPage(c).Pagination())
	if err != nil {
		respondError(c, "list plugin events", err, nil)
		return
	}
	dto.SuccessWithPage(c, dto.ToPluginEventListResponse(result.Items), dto.PageMetaOf(result))
}

// RecordPluginEvent 上报插件事件
// @Summary 上报插件事件
// @Tags PluginEvents
// @Accept json
// @Produce json
// @Param body body dto.RecordPluginEventRequest true "事件"
// @Success 201 {object} dto.Response[dto.PluginEventResponse]
// @Router /v1/plugin-events [post]
func (h *PluginEventHandler) RecordPluginEvent(c *gin.Context) {
	var req dto.RecordPluginEventRequest
	if !bindJSON(c, &req) {
		return
	}

	event, err := h.svc.Record(c.Request.Context(), middleware.TenantID(c), req.ToInput())
	if err != nil {
		respondError(c, "record plugin event", err, nil)
		return
	}
	dto.Created(c, dto.ToPluginEventResponse(event))
}

// GetPluginEvent 获取插件事件详情
// @Summary 获取插件事件详情
// @Tags PluginEvents
// @Produce json
// @Param id path string true "事件 ID"
// @Success 200 {object} dto.Response[dto.PluginEventResponse]
// @Router /v1/plugin-events/{id} [get]
func (h *PluginEventHandler) GetPluginEvent(c *gin.Context) {
	event, err := h.svc.Get(c.Request.Context(), middleware.TenantID(c), dto.BindID(c))
	if err != nil {
		respondError(c, "get plugin event", err, apperrors.ErrPluginEventNotFound)
		return
	}
	dto.Success(c, dto.ToPluginEventResponse(event))
}

// DeletePluginEvent 删除插件事件
// @Summary 删除插件事件
// @Tags PluginEvents
// @Param id path string true "事件 ID"
// @Success 204
// @Router /v1/plugin-events/{id} [delete]
func (h *PluginEventHandler) DeletePluginEvent(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.TenantID(c), dto.BindID(c)); err != nil {
		respondError(c, "delete plugin event", err, apperrors.ErrPluginEventNotFound)
		return
	}
	dto.NoContent(c)
}
