package controller

import (
	"proctorx_backend/internal/model"
	"proctorx_backend/internal/service"
	"proctorx_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TestController struct {
	TestService *service.TestService
}

func NewTestController(testService *service.TestService) *TestController {
	return &TestController{TestService: testService}
}

// Create godoc
// @Summary 创建测试（草稿）
// @Tags 测试
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.CreateTestInput true "测试定义"
// @Success 201 {object} util.Response{data=model.Test}
// @Failure 400 {object} util.Response
// @Router /api/tests [post]
func (c *TestController) Create(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var input service.CreateTestInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.TestService.Create(claims, input)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, test)
}

// Get godoc
// @Summary 测试详情
// @Tags 测试
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测试ID"
// @Success 200 {object} util.Response{data=model.Test}
// @Failure 404 {object} util.Response
// @Router /api/tests/{id} [get]
func (c *TestController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id := util.MustParseUint(ctx.Param("id"))

	test, err := c.TestService.GetByID(claims, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, test)
}

// Update godoc
// @Summary 修改测试
// @Description 归档后只读；出现提交后题目锁定
// @Tags 测试
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id   path int                      true "测试ID"
// @Param   body body service.UpdateTestInput true "修改内容"
// @Success 200 {object} util.Response{data=model.Test}
// @Failure 409 {object} util.Response "题目已锁定"
// @Router /api/tests/{id} [put]
func (c *TestController) Update(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id := util.MustParseUint(ctx.Param("id"))

	var input service.UpdateTestInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.TestService.Update(claims, id, input)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, test)
}

// Publish godoc
// @Summary 发布测试
// @Description draft→active，分配唯一访问码；无题目的测试无法发布
// @Tags 测试
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测试ID"
// @Success 200 {object} util.Response{data=model.Test}
// @Failure 400 {object} util.Response "测试没有题目"
// @Failure 409 {object} util.Response "访问码分配失败"
// @Router /api/tests/{id}/publish [post]
func (c *TestController) Publish(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id := util.MustParseUint(ctx.Param("id"))

	test, err := c.TestService.Publish(claims, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, test)
}

// Archive godoc
// @Summary 归档测试
// @Description active→archived，访问码随之失效
// @Tags 测试
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测试ID"
// @Success 200 {object} util.Response{data=model.Test}
// @Router /api/tests/{id}/archive [post]
func (c *TestController) Archive(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id := util.MustParseUint(ctx.Param("id"))

	test, err := c.TestService.Archive(claims, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, test)
}

// List godoc
// @Summary 我的测试列表
// @Tags 测试
// @Produce  json
// @Security BearerAuth
// @Param   page   query int    false "页码"
// @Param   limit  query int    false "每页数量"
// @Param   status query string false "按状态过滤"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/tests [get]
func (c *TestController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	page := int(util.MustParseUint(ctx.DefaultQuery("page", "1")))
	limit := int(util.MustParseUint(ctx.DefaultQuery("limit", "20")))
	status := model.TestStatus(ctx.Query("status"))

	tests, total, err := c.TestService.List(claims, page, limit, status)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		Items: tests,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// Delete godoc
// @Summary 删除测试（仅草稿）
// @Tags 测试
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测试ID"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response "非草稿不可删除"
// @Router /api/tests/{id} [delete]
func (c *TestController) Delete(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id := util.MustParseUint(ctx.Param("id"))

	if err := c.TestService.Delete(claims, id); err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"id": id})
}

// GetByAccessCode godoc
// @Summary 通过访问码查卷（考生）
// @Description 无需登录；大小写不敏感；仅开放中的测试可查，隐藏用例与提示内容已剥离
// @Tags 测试
// @Produce  json
// @Param   code path string true "8位访问码"
// @Success 200 {object} util.Response{data=service.PublicTest}
// @Failure 403 {object} util.Response "测试未开放"
// @Failure 404 {object} util.Response
// @Router /api/access/{code} [get]
func (c *TestController) GetByAccessCode(ctx *gin.Context) {
	test, err := c.TestService.GetByAccessCode(ctx.Param("code"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, test)
}
