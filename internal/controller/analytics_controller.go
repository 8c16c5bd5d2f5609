package controller

import (
	"proctorx_backend/internal/service"
	"proctorx_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	AnalyticsService *service.AnalyticsService
}

func NewAnalyticsController(analyticsService *service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{AnalyticsService: analyticsService}
}

// TestAnalytics godoc
// @Summary 测试聚合报表（招聘方）
// @Description 得分分布、通过率、平均用时、违规统计；取消资格的提交不计入得分统计
// @Tags 分析
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测试ID"
// @Success 200 {object} util.Response{data=service.TestAnalytics}
// @Failure 403 {object} util.Response
// @Router /api/tests/{id}/analytics [get]
func (c *AnalyticsController) TestAnalytics(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	testID := util.MustParseUint(ctx.Param("id"))

	analytics, err := c.AnalyticsService.GetTestAnalytics(claims, testID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, analytics)
}
