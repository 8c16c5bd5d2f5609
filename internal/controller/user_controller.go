package controller

import (
	"proctorx_backend/internal/model"
	"proctorx_backend/internal/service"
	"proctorx_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// UpdateProfile godoc
// @Summary 更新个人资料
// @Tags 用户
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.UpdateProfileInput true "资料"
// @Success 200 {object} util.Response{data=model.User}
// @Router /api/users/me [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var input service.UpdateProfileInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.UpdateProfile(claims.UserID, input)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, user)
}

// List godoc
// @Summary 用户列表（管理端）
// @Tags 用户
// @Produce  json
// @Security BearerAuth
// @Param   page  query int    false "页码"
// @Param   limit query int    false "每页数量"
// @Param   role  query string false "按角色过滤"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/users [get]
func (c *UserController) List(ctx *gin.Context) {
	page := util.MustParseUint(ctx.DefaultQuery("page", "1"))
	limit := util.MustParseUint(ctx.DefaultQuery("limit", "20"))
	role := model.UserRole(ctx.Query("role"))

	users, total, err := c.UserService.List(int(page), int(limit), role)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		Items: users,
		Total: total,
		Page:  int(page),
		Limit: int(limit),
	})
}

// Deactivate godoc
// @Summary 停用账号（管理端）
// @Tags 用户
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "用户ID"
// @Success 200 {object} util.Response
// @Router /api/admin/users/{id}/deactivate [post]
func (c *UserController) Deactivate(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	id := util.MustParseUint(ctx.Param("id"))
	if err := c.UserService.Deactivate(claims.UserID, uint(id)); err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"id": id, "isActive": false})
}

// Activate godoc
// @Summary 启用账号（管理端）
// @Tags 用户
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "用户ID"
// @Success 200 {object} util.Response
// @Router /api/admin/users/{id}/activate [post]
func (c *UserController) Activate(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if err := c.UserService.SetActive(uint(id), true); err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"id": id, "isActive": true})
}
