package controller

import (
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ConsentController struct {
	ConsentService *service.ConsentService
}

func NewConsentController(consentService *service.ConsentService) *ConsentController {
	return &ConsentController{ConsentService: consentService}
}

// @Summary 我的授权记录
// @Tags 数据保护
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.UserConsent}
// @Router /api/consents [get]
func (c *ConsentController) List(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	consents, err := c.ConsentService.List(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, consents)
}

// @Summary 记录授权
// @Tags 数据保护
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.ConsentRequest true "授权类型"
// @Success 201 {object} util.Response{data=model.UserConsent}
// @Failure 400 {object} util.Response
// @Router /api/consents [post]
func (c *ConsentController) Record(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ConsentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	consent, err := c.ConsentService.Record(ctx.Request.Context(), user.UserID, req.ConsentType, req.Granted, ctx.ClientIP(), ctx.Request.UserAgent())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, consent)
}

// @Summary 撤销授权
// @Tags 数据保护
// @Produce json
// @Security BearerAuth
// @Param type path string true "授权类型"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/consents/{type} [delete]
func (c *ConsentController) Revoke(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.ConsentService.Revoke(ctx.Request.Context(), user.UserID, ctx.Param("type")); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
