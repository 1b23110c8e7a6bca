package controller

import (
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CommunityController struct {
	CommunityService *service.CommunityService
}

func NewCommunityController(communityService *service.CommunityService) *CommunityController {
	return &CommunityController{CommunityService: communityService}
}

// @Summary 论坛主题列表
// @Tags 社区
// @Produce json
// @Security BearerAuth
// @Param category query string false "分类"
// @Param skip query int false "偏移" default(0)
// @Param limit query int false "数量" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/forum/topics [get]
func (c *CommunityController) ListTopics(ctx *gin.Context) {
	skip, limit := util.Pagination(ctx.Query("skip"), ctx.Query("limit"))
	page, err := c.CommunityService.ListTopics(ctx.Request.Context(), ctx.Query("category"), skip, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, page)
}

// @Summary 发布主题
// @Tags 社区
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param topic body service.CreateTopicRequest true "主题内容"
// @Success 201 {object} util.Response{data=model.ForumTopic}
// @Router /api/forum/topics [post]
func (c *CommunityController) CreateTopic(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateTopicRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	topic, err := c.CommunityService.CreateTopic(ctx.Request.Context(), user.UserID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, topic)
}

// @Summary 主题详情
// @Tags 社区
// @Produce json
// @Security BearerAuth
// @Param id path int true "主题ID"
// @Success 200 {object} util.Response{data=model.ForumTopic}
// @Failure 404 {object} util.Response
// @Router /api/forum/topics/{id} [get]
func (c *CommunityController) GetTopic(ctx *gin.Context) {
	topic, err := c.CommunityService.GetTopic(ctx.Request.Context(), util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, topic)
}

// @Summary 回复主题
// @Tags 社区
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "主题ID"
// @Param reply body service.CreateReplyRequest true "回复内容"
// @Success 201 {object} util.Response{data=model.TopicReply}
// @Failure 404 {object} util.Response
// @Router /api/forum/topics/{id}/replies [post]
func (c *CommunityController) Reply(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateReplyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	reply, err := c.CommunityService.Reply(ctx.Request.Context(), user.UserID, util.MustParseUint(ctx.Param("id")), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, reply)
}
