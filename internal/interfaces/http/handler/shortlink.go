package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"linkhub-api/internal/application/service"
	"linkhub-api/internal/domain/entity"
	"linkhub-api/internal/domain/repository"
	"linkhub-api/internal/interfaces/http/dto"
	"linkhub-api/internal/interfaces/http/middleware"
	apperrors "linkhub-api/pkg/errors"
)

// ShortlinkService 短链接服务
type ShortlinkService interface {
	Create(ctx context.Context, tenantID string, in service.CreateShortlinkInput) (*entity.Shortlink, error)
	Get(ctx context.Context, tenantID, id string) (*entity.Shortlink, error)
	List(ctx context.Context, tenantID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Shortlink], error)
	Resolve(ctx context.Context, tenantID, slug string) (*entity.Shortlink, error)
	Delete(ctx context.Context, tenantID, actorID, id string) error
}

// ShortlinkHandler 短链接处理器
type ShortlinkHandler struct {
	svc ShortlinkService
}

// NewShortlinkHandler 创建短链接处理器
func NewShortlinkHandler(svc ShortlinkService) *ShortlinkHandler {
	return &ShortlinkHandler{svc: svc}
}

// ListShortlinks 获取短链接列表
// @Summary 获取短链接列表
// @Tags Shortlinks
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[[]dto.ShortlinkResponse]
// @Router /v1/shortlinks [get]
func (h *ShortlinkHandler) ListShortlinks(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context(), middleware.TenantID(c), dto.BindPage(c).Pagination())
	if err != nil {
		respondError(c, "list shortlinks", err, nil)
		return
	}
	dto.SuccessWithPage(c, dto.ToShortlinkListResponse(result.Items), dto.PageMetaOf(result))
}

// CreateShortlink 创建短链接
// @Summary 创建短链接
// @Tags Shortlinks
// @Accept json
// @Produce json
// @Param body body dto.CreateShortlinkRequest true "短链接"
// @Success 201 {object} dto.Response[dto.ShortlinkResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/shortlinks [post]
func (h *ShortlinkHandler) CreateShortlink(c *gin.Context) {
	var req dto.CreateShortlinkRequest
	if !bindJSON(c, &req) {
		return
	}

	link, err := h.svc.Create(c.Request.Context(), middleware.TenantID(c), req.ToInput(middleware.UserID(c)))
	if err != nil {
		respondError(c, "create shortlink", err, nil)
		return
	}
	dto.Created(c, dto.ToShortlinkResponse(link))
}

// GetShortlink 获取短链接详情
// @Summary 获取短链接详情
// @Tags Shortlinks
// @Produce json
// @Param id path string true "短链接 ID"
// @Success 200 {object} dto.Response[dto.ShortlinkResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/shortlinks/{id} [get]
func (h *ShortlinkHandler) GetShortlink(c *gin.Context) {
	link, err := h.svc.Get(c.Request.Context(), middleware.TenantID(c), dto.BindID(c))
	if err != nil {
		respondError(c, "get shortlink", err, apperrors.ErrShortlinkNotFound)
		return
	}
	dto.Success(c, dto.ToShortlinkResponse(link))
}

// ResolveShortlink 解析短链接并重定向
// @Summary 跳转到短链接目标
// @Tags Shortlinks
// @Param slug path string true "短链接 slug"
// @Success 302
// @Failure 404 {object} dto.ErrorResponse
// @Failure 410 {object} dto.ErrorResponse
// @Router /v1/r/{slug} [get]
func (h *ShortlinkHandler) ResolveShortlink(c *gin.Context) {
	link, err := h.svc.Resolve(c.Request.Context(), middleware.TenantID(c), c.Param("slug"))
	if err != nil {
		respondError(c, "resolve shortlink", err, apperrors.ErrShortlinkNotFound)
		return
	}
	c.Redirect(http.StatusFound, link.TargetURL)
}

// DeleteShortlink 删除短链接
// @Summary 删除短链接
// @Tags Shortlinks
// @Param id path string true "短链接 ID"
// @Success 204
// @Router /v1/shortlinks/{id} [delete]
func (h *ShortlinkHandler) DeleteShortlink(c *gin.Context) {
	err := h.svc.Delete(c.Request.Context(), middleware.TenantID(c), middleware.UserID(c), dto.BindID(c))
	if err != nil {
		respondError(c, "delete shortlink", err, apperrors.ErrShortlinkNotFound)
		return
	}
	dto.NoContent(c)
}
