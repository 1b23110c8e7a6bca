package controller

import (
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService    *service.ProgressService
	CertificateService *service.CertificateService
}

func NewProgressController(progressService *service.ProgressService, certificateService *service.CertificateService) *ProgressController {
	return &ProgressController{
		ProgressService:    progressService,
		CertificateService: certificateService,
	}
}

// @Summary 用户学习进度
// @Description 总体进度为各课程进度平均值，只能查看自己的进度
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param userId path int true "用户ID"
// @Success 200 {object} util.Response{data=service.UserProgress}
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/users/{userId}/progress [get]
func (c *ProgressController) GetUserProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	userID, ok := util.ParseID(ctx.Param("userId"))
	if !ok {
		util.BadRequest(ctx, "invalid userId")
		return
	}

	progress, err := c.ProgressService.GetUserProgress(ctx.Request.Context(), user.Principal(), userID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}

// @Summary 我的证书
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Certificate}
// @Router /api/certificates [get]
func (c *ProgressController) ListCertificates(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	certs, err := c.CertificateService.ListByUser(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, certs)
}
