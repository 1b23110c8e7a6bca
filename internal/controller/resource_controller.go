package controller

import (
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ResourceController struct {
	ResourceService *service.ResourceService
}

func NewResourceController(resourceService *service.ResourceService) *ResourceController {
	return &ResourceController{ResourceService: resourceService}
}

type TrackViewRequest struct {
	ResourceID uint `json:"resourceId" binding:"required"`
}

// @Summary 搜索资源
// @Tags 资源库
// @Produce json
// @Security BearerAuth
// @Param query query string false "关键字"
// @Param category query string false "分类"
// @Param type query string false "类型"
// @Param sortBy query string false "排序" Enums(popular, recent, relevance)
// @Param skip query int false "偏移" default(0)
// @Param limit query int false "数量" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/resources/search [get]
func (c *ResourceController) Search(ctx *gin.Context) {
	skip, limit := util.Pagination(ctx.Query("skip"), ctx.Query("limit"))
	page, err := c.ResourceService.Search(ctx.Request.Context(), repository.ResourceQuery{
		Query:    ctx.Query("query"),
		Category: ctx.Query("category"),
		Type:     ctx.Query("type"),
		SortBy:   ctx.DefaultQuery("sortBy", "relevance"),
		Skip:     skip,
		Limit:    limit,
	})
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, page)
}

// @Summary 资源详情
// @Tags 资源库
// @Produce json
// @Security BearerAuth
// @Param id path int true "资源ID"
// @Success 200 {object} util.Response{data=model.Resource}
// @Failure 404 {object} util.Response
// @Router /api/resources/{id} [get]
func (c *ResourceController) Get(ctx *gin.Context) {
	resource, err := c.ResourceService.Get(ctx.Request.Context(), util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, resource)
}

// @Summary 上传资源
// @Tags 资源库
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "文件"
// @Param title formData string true "标题"
// @Param description formData string false "描述"
// @Param category formData string false "分类"
// @Param type formData string false "类型"
// @Param tags formData []string false "标签"
// @Success 201 {object} util.Response{data=model.Resource}
// @Failure 400 {object} util.Response
// @Router /api/resources [post]
func (c *ResourceController) Upload(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.UploadResourceRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	resource, err := c.ResourceService.Upload(ctx.Request.Context(), user.UserID, req, header.Filename, file, header.Size)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, resource)
}

// @Summary 下载资源
// @Description 记录下载并返回文件地址
// @Tags 资源库
// @Produce json
// @Security BearerAuth
// @Param id path int true "资源ID"
// @Success 200 {object} util.Response{data=service.DownloadResult}
// @Failure 404 {object} util.Response
// @Router /api/resources/{id}/download [post]
func (c *ResourceController) Download(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.ResourceService.Download(ctx.Request.Context(), user.UserID, util.MustParseUint(ctx.Param("id")), ctx.ClientIP())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 记录浏览
// @Tags 资源库
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TrackViewRequest true "资源ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/resources/track-view [post]
func (c *ResourceController) TrackView(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req TrackViewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ResourceService.TrackView(ctx.Request.Context(), user.UserID, req.ResourceID, ctx.ClientIP()); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 推荐资源
// @Tags 资源库
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Resource}
// @Router /api/resources/recommended [get]
func (c *ResourceController) Recommended(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	resources, err := c.ResourceService.Recommended(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, resources)
}
