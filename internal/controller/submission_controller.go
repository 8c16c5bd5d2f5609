package controller

import (
	"os"
	"path/filepath"

	"proctorx_backend/internal/model"
	"proctorx_backend/internal/service"
	"proctorx_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	SubmissionService *service.SubmissionService
}

func NewSubmissionController(submissionService *service.SubmissionService) *SubmissionController {
	return &SubmissionController{SubmissionService: submissionService}
}

// Start godoc
// @Summary 开始考试
// @Description 已有进行中的提交时幂等返回原提交；超出尝试次数返回409
// @Tags 提交
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.StartSubmissionInput true "访问码与环境信息"
// @Success 201 {object} util.Response{data=model.Submission}
// @Failure 403 {object} util.Response "测试未开放"
// @Failure 409 {object} util.Response "超出尝试次数"
// @Router /api/submissions/start [post]
func (c *SubmissionController) Start(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var input service.StartSubmissionInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.SubmissionService.Start(claims, input)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, sub)
}

// SaveAnswer godoc
// @Summary 保存某道题的答案
// @Tags 提交
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id   path int                     true "提交ID"
// @Param   body body service.SaveAnswerInput true "答案"
// @Success 200 {object} util.Response{data=model.Answer}
// @Failure 409 {object} util.Response "提交已关闭"
// @Router /api/submissions/{id}/answers [put]
func (c *SubmissionController) SaveAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id := util.MustParseUint(ctx.Param("id"))

	var input service.SaveAnswerInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answer, err := c.SubmissionService.SaveAnswer(claims, id, input)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, answer)
}

// ReportViolation godoc
// @Summary 上报监考违规
// @Description 违规记录不可修改；第3条高危违规自动标记该提交
// @Tags 提交
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id   path int                          true "提交ID"
// @Param   body body service.ReportViolationInput true "违规事件"
// @Success 201 {object} util.Response{data=model.Violation}
// @Failure 400 {object} util.Response "未知违规类型"
// @Router /api/submissions/{id}/violations [post]
func (c *SubmissionController) ReportViolation(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id := util.MustParseUint(ctx.Param("id"))

	var input service.ReportViolationInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	v, err := c.SubmissionService.ReportViolation(claims, id, input)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, v)
}

// Submit godoc
// @Summary 交卷
// @Description 评测全部答案并汇总成绩，写入测试聚合指标
// @Tags 提交
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "提交ID"
// @Success 200 {object} util.Response{data=model.Submission}
// @Failure 409 {object} util.Response "已交卷"
// @Router /api/submissions/{id}/submit [post]
func (c *SubmissionController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id := util.MustParseUint(ctx.Param("id"))

	sub, err := c.SubmissionService.Submit(ctx.Request.Context(), claims, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, sub)
}

// Review godoc
// @Summary 评审提交（招聘方）
// @Tags 提交
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id   path int                 true "提交ID"
// @Param   body body service.ReviewInput true "评审结论"
// @Success 200 {object} util.Response{data=model.Submission}
// @Failure 409 {object} util.Response "提交未交卷或已终态"
// @Router /api/submissions/{id}/review [post]
func (c *SubmissionController) Review(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id := util.MustParseUint(ctx.Param("id"))

	var input service.ReviewInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.SubmissionService.Review(claims, id, input)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, sub)
}

type DisqualifyRequest struct {
	Reason string `json:"reason" binding:"required,max=2000"`
}

// Disqualify godoc
// @Summary 取消考试资格（招聘方）
// @Tags 提交
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id   path int               true "提交ID"
// @Param   body body DisqualifyRequest true "原因"
// @Success 200 {object} util.Response{data=model.Submission}
// @Router /api/submissions/{id}/disqualify [post]
func (c *SubmissionController) Disqualify(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id := util.MustParseUint(ctx.Param("id"))

	var req DisqualifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.SubmissionService.Disqualify(claims, id, req.Reason)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, sub)
}

type LogActivityRequest struct {
	Events []service.ActivityEventInput `json:"events" binding:"required,min=1,max=200,dive"`
}

// LogActivity godoc
// @Summary 批量上报行为日志
// @Tags 提交
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id   path int                true "提交ID"
// @Param   body body LogActivityRequest true "行为事件"
// @Success 200 {object} util.Response
// @Router /api/submissions/{id}/activity [post]
func (c *SubmissionController) LogActivity(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id := util.MustParseUint(ctx.Param("id"))

	var req LogActivityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.SubmissionService.LogActivity(claims, id, req.Events); err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"logged": len(req.Events)})
}

// UploadScreenshot godoc
// @Summary 上传违规截图
// @Description 返回对象存储URL，随后在违规上报中引用
// @Tags 提交
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   id   path     int  true "提交ID"
// @Param   file formData file true "截图文件"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response "非图片文件"
// @Router /api/submissions/{id}/screenshots [post]
func (c *SubmissionController) UploadScreenshot(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id := util.MustParseUint(ctx.Param("id"))

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	url, err := c.SubmissionService.UploadScreenshot(ctx.Request.Context(), claims, id, file, fileHeader.Size, fileHeader.Filename)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"url": url})
}

// UploadRecording godoc
// @Summary 上传监考录像
// @Description kind 为 webcam 或 screen；服务端探测视频流后入对象存储
// @Tags 提交
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   id   path     int    true "提交ID"
// @Param   kind query    string true "webcam 或 screen"
// @Param   file formData file   true "录像文件"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response "无视频流或格式不支持"
// @Router /api/submissions/{id}/recordings [post]
func (c *SubmissionController) UploadRecording(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id := util.MustParseUint(ctx.Param("id"))
	kind := ctx.Query("kind")

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	// 先落临时文件，ffprobe 需要本地路径
	tmpPath := filepath.Join(os.TempDir(), model.GenerateUUID()+filepath.Ext(fileHeader.Filename))
	if err := ctx.SaveUploadedFile(fileHeader, tmpPath); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer os.Remove(tmpPath)

	url, err := c.SubmissionService.AttachRecording(ctx.Request.Context(), claims, id, kind, tmpPath)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"url": url})
}

// Get godoc
// @Summary 提交详情
// @Tags 提交
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "提交ID"
// @Success 200 {object} util.Response{data=model.Submission}
// @Router /api/submissions/{id} [get]
func (c *SubmissionController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id := util.MustParseUint(ctx.Param("id"))

	sub, err := c.SubmissionService.GetByID(claims, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, sub)
}

// ListByTest godoc
// @Summary 某测试的提交列表（招聘方）
// @Tags 提交
// @Produce  json
// @Security BearerAuth
// @Param   id     path  int    true  "测试ID"
// @Param   page   query int    false "页码"
// @Param   limit  query int    false "每页数量"
// @Param   status query string false "按状态过滤"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/tests/{id}/submissions [get]
func (c *SubmissionController) ListByTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	testID := util.MustParseUint(ctx.Param("id"))
	page := int(util.MustParseUint(ctx.DefaultQuery("page", "1")))
	limit := int(util.MustParseUint(ctx.DefaultQuery("limit", "20")))
	status := model.SubmissionStatus(ctx.Query("status"))

	subs, total, err := c.SubmissionService.ListByTest(claims, testID, page, limit, status)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		Items: subs,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// ListMine godoc
// @Summary 我的提交历史（考生）
// @Tags 提交
// @Produce  json
// @Security BearerAuth
// @Param   page  query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/submissions/mine [get]
func (c *SubmissionController) ListMine(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	page := int(util.MustParseUint(ctx.DefaultQuery("page", "1")))
	limit := int(util.MustParseUint(ctx.DefaultQuery("limit", "20")))

	subs, total, err := c.SubmissionService.ListMine(claims, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		Items: subs,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}
