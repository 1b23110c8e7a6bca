package controller

import (
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EventController struct {
	EventService *service.EventService
}

func NewEventController(eventService *service.EventService) *EventController {
	return &EventController{EventService: eventService}
}

type RegisterEventRequest struct {
	EventID uint `json:"eventId" binding:"required"`
}

// @Summary 即将开始的活动
// @Tags 活动
// @Produce json
// @Security BearerAuth
// @Param skip query int false "偏移" default(0)
// @Param limit query int false "数量" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/events [get]
func (c *EventController) ListUpcoming(ctx *gin.Context) {
	skip, limit := util.Pagination(ctx.Query("skip"), ctx.Query("limit"))
	page, err := c.EventService.ListUpcoming(ctx.Request.Context(), skip, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, page)
}

// @Summary 活动详情
// @Tags 活动
// @Produce json
// @Security BearerAuth
// @Param id path int true "活动ID"
// @Success 200 {object} util.Response{data=model.Event}
// @Failure 404 {object} util.Response
// @Router /api/events/{id} [get]
func (c *EventController) GetEvent(ctx *gin.Context) {
	event, err := c.EventService.GetEvent(ctx.Request.Context(), util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, event)
}

// @Summary 创建活动
// @Description maxAttendees 不大于 0 表示不限人数
// @Tags 活动
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body service.CreateEventRequest true "活动信息"
// @Success 201 {object} util.Response{data=model.Event}
// @Router /api/events [post]
func (c *EventController) CreateEvent(ctx *gin.Context) {
	var req service.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	event, err := c.EventService.CreateEvent(ctx.Request.Context(), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, event)
}

// @Summary 报名活动
// @Description 名额已满或已报名返回 409
// @Tags 活动
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RegisterEventRequest true "活动ID"
// @Success 201 {object} util.Response{data=model.EventRegistration}
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/events/register [post]
func (c *EventController) Register(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req RegisterEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	reg, err := c.EventService.Register(ctx.Request.Context(), user.UserID, req.EventID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, reg)
}

// @Summary 我的活动报名
// @Tags 活动
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.EventRegistration}
// @Router /api/events/registrations [get]
func (c *EventController) ListRegistrations(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	regs, err := c.EventService.ListRegistrations(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, regs)
}

// @Summary 提交活动反馈
// @Tags 活动
// @Produce json
// @Security BearerAuth
// @Param id path int true "活动ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/events/{id}/feedback [post]
func (c *EventController) SubmitFeedback(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.EventService.SubmitFeedback(ctx.Request.Context(), user.UserID, util.MustParseUint(ctx.Param("id"))); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 标记出席
// @Tags 活动
// @Produce json
// @Security BearerAuth
// @Param id path int true "活动ID"
// @Param userId path int true "用户ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/events/{id}/attendance/{userId} [post]
func (c *EventController) MarkAttended(ctx *gin.Context) {
	err := c.EventService.MarkAttended(ctx.Request.Context(),
		util.MustParseUint(ctx.Param("userId")),
		util.MustParseUint(ctx.Param("id")),
	)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
