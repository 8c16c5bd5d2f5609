package controller

import (
	"proctorx_backend/internal/service"
	"proctorx_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProctorController struct {
	Hub *service.ProctorHub
}

func NewProctorController(hub *service.ProctorHub) *ProctorController {
	return &ProctorController{Hub: hub}
}

// Live godoc
// @Summary 监考实时事件 WebSocket（招聘方）
// @Description 推送 VIOLATION / SUBMISSION_STARTED / SUBMISSION_COMPLETED / SUBMISSION_FLAGGED
// @Tags 监考
// @Security BearerAuth
// @Success 101 "Switching Protocols"
// @Router /api/proctor/live [get]
func (c *ProctorController) Live(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	service.ServeProctorWs(c.Hub, ctx.Writer, ctx.Request, claims.UserID)
}
