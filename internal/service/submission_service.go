package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"time"

	"proctorx_backend/internal/config"
	"proctorx_backend/internal/model"
	"proctorx_backend/internal/repository"
	"proctorx_backend/internal/util"
	"proctorx_backend/pkg/logger"
	"proctorx_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 客户端未指定违规等级时按检测器类型取默认值
var defaultViolationSeverity = map[model.ViolationType]model.ViolationSeverity{
	model.ViolationTabSwitch:      model.SeverityMedium,
	model.ViolationFullscreenExit: model.SeverityMedium,
	model.ViolationCopy:           model.SeverityMedium,
	model.ViolationPaste:          model.SeverityHigh,
	model.ViolationScreenshot:     model.SeverityLow,
	model.ViolationMultipleFaces:  model.SeverityHigh,
	model.ViolationNoFace:         model.SeverityMedium,
	model.ViolationPhoneDetected:  model.SeverityHigh,
	model.ViolationVoiceDetected:  model.SeverityLow,
	model.ViolationBrowserResize:  model.SeverityLow,
}

type SubmissionService struct {
	SubRepo    *repository.SubmissionRepository
	TestRepo   *repository.TestRepository
	Access     *AccessService
	Grading    *GradingService
	Similarity *SimilarityService
	Storage    *StorageService
	Hub        *ProctorHub
	Config     *config.Config
}

func NewSubmissionService(
	subRepo *repository.SubmissionRepository,
	testRepo *repository.TestRepository,
	access *AccessService,
	grading *GradingService,
	similarity *SimilarityService,
	storage *StorageService,
	hub *ProctorHub,
	cfg *config.Config,
) *SubmissionService {
	return &SubmissionService{
		SubRepo:    subRepo,
		TestRepo:   testRepo,
		Access:     access,
		Grading:    grading,
		Similarity: similarity,
		Storage:    storage,
		Hub:        hub,
		Config:     cfg,
	}
}

type StartSubmissionInput struct {
	AccessCode  string          `json:"accessCode" binding:"required"`
	Environment json.RawMessage `json:"environment"`
}

// Start begins (or resumes) an attempt. The row lock on the student's open
// submission makes concurrent start requests collapse onto a single attempt
// instead of creating duplicates.
func (s *SubmissionService) Start(claims *util.Claims, input StartSubmissionInput) (*model.Submission, error) {
	code := NormalizeAccessCode(input.AccessCode)
	test, err := s.TestRepo.FindByAccessCode(code)
	if err != nil {
		return nil, err
	}
	if !test.IsAccessible(time.Now()) {
		return nil, util.ErrTestNotAccessible
	}

	var result *model.Submission
	err = s.SubRepo.DB().Transaction(func(tx *gorm.DB) error {
		existing, err := s.SubRepo.FindInProgressForUpdate(tx, test.ID, claims.UserID)
		if err == nil {
			// 幂等：已有进行中的提交则直接恢复
			result = existing
			return nil
		}
		if !errors.Is(err, util.ErrNotFound) {
			return err
		}

		attempts, err := s.SubRepo.CountAttempts(tx, test.ID, claims.UserID)
		if err != nil {
			return err
		}
		if attempts >= int64(test.MaxAttempts) {
			return util.ErrAttemptLimitExceeded
		}

		now := time.Now()
		sub := &model.Submission{
			TestID:        test.ID,
			StudentID:     claims.UserID,
			MaxTotalScore: test.TotalMaxScore(),
			Status:        model.SubmissionInProgress,
			StartedAt:     now,
			Environment:   input.Environment,
			AttemptNumber: int(attempts) + 1,
		}

		// 预创建每道题的答题位，客户端按 questionId 覆盖保存
		for _, q := range test.Questions {
			sub.Answers = append(sub.Answers, model.Answer{
				QuestionID: q.ID,
				MaxScore:   q.MaxScore,
			})
		}

		if err := s.SubRepo.Create(tx, sub); err != nil {
			return err
		}

		event := model.ActivityEvent{
			SubmissionID: sub.ID,
			Type:         model.ActivityStart,
			Timestamp:    now,
		}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Hub.Publish([]uint{test.CreatorID}, ProctorEvent{
		Type:         "SUBMISSION_STARTED",
		TestID:       test.ID,
		SubmissionID: result.ID,
		Data: map[string]interface{}{
			"studentId":     claims.UserID,
			"attemptNumber": result.AttemptNumber,
		},
	})

	return result, nil
}

type SaveAnswerInput struct {
	QuestionID uint            `json:"questionId" binding:"required"`
	Code       string          `json:"code"`
	Language   string          `json:"language" binding:"omitempty,max=20"`
	TimeSpent  int             `json:"timeSpent" binding:"omitempty,min=0"`
	HintsUsed  json.RawMessage `json:"hintsUsed"`
}

// SaveAnswer 覆盖保存某道题的当前代码
func (s *SubmissionService) SaveAnswer(claims *util.Claims, submissionID uint, input SaveAnswerInput) (*model.Answer, error) {
	sub, err := s.SubRepo.FindByID(submissionID)
	if err != nil {
		return nil, err
	}
	if err := s.Access.CanMutateSubmission(claims, sub); err != nil {
		return nil, err
	}

	answer := sub.AnswerForQuestion(input.QuestionID)
	if answer == nil {
		return nil, util.ErrQuestionNotInTest
	}

	now := time.Now()
	answer.Code = input.Code
	if input.Language != "" {
		answer.Language = input.Language
	}
	if input.TimeSpent > 0 {
		answer.TimeSpent = input.TimeSpent
	}
	if input.HintsUsed != nil {
		answer.HintsUsed = input.HintsUsed
	}
	if answer.FirstAttempt == nil {
		answer.FirstAttempt = &now
	}
	answer.LastAttempt = &now

	if err := s.SubRepo.SaveAnswer(answer); err != nil {
		return nil, err
	}
	return answer, nil
}

type ReportViolationInput struct {
	Type        model.ViolationType     `json:"type" binding:"required"`
	Description string                  `json:"description" binding:"required,max=500"`
	Severity    model.ViolationSeverity `json:"severity"`
	Screenshot  string                  `json:"screenshot" binding:"omitempty,max=512"`
	Metadata    json.RawMessage         `json:"metadata"`
}

// ReportViolation appends an immutable violation record. The third
// high-severity violation escalates the submission to flagged; the exam
// keeps running either way, the candidate is never kicked out mid-attempt.
func (s *SubmissionService) ReportViolation(claims *util.Claims, submissionID uint, input ReportViolationInput) (*model.Violation, error) {
	if !input.Type.Valid() {
		return nil, util.ErrValidation
	}
	if input.Severity != "" && !input.Severity.Valid() {
		return nil, util.ErrValidation
	}

	sub, err := s.SubRepo.FindByID(submissionID)
	if err != nil {
		return nil, err
	}
	if err := s.Access.CanMutateSubmission(claims, sub); err != nil {
		return nil, err
	}

	severity := input.Severity
	if severity == "" {
		severity = defaultViolationSeverity[input.Type]
	}

	v := model.Violation{
		SubmissionID: sub.ID,
		Type:         input.Type,
		Description:  input.Description,
		Timestamp:    time.Now(),
		Severity:     severity,
		Screenshot:   input.Screenshot,
		Metadata:     input.Metadata,
	}

	// 判定是否触发自动标记
	highCount := sub.HighSeverityCount()
	if severity == model.SeverityHigh {
		highCount++
	}
	var newStatus model.SubmissionStatus
	escalated := false
	if highCount >= model.HighSeverityFlagThreshold && sub.Status == model.SubmissionInProgress {
		newStatus = model.SubmissionFlagged
		escalated = true
	}

	if err := s.SubRepo.AppendViolation(&v, newStatus); err != nil {
		return nil, err
	}

	monitoring.ViolationCounter.WithLabelValues(string(v.Type), string(v.Severity)).Inc()

	if sub.Test != nil {
		s.Hub.Publish([]uint{sub.Test.CreatorID}, ProctorEvent{
			Type:         "VIOLATION",
			TestID:       sub.TestID,
			SubmissionID: sub.ID,
			Data: map[string]interface{}{
				"violationType": v.Type,
				"severity":      v.Severity,
				"description":   v.Description,
				"escalated":     escalated,
			},
		})
		if escalated {
			s.Hub.Publish([]uint{sub.Test.CreatorID}, ProctorEvent{
				Type:         "SUBMISSION_FLAGGED",
				TestID:       sub.TestID,
				SubmissionID: sub.ID,
			})
		}
	}

	return &v, nil
}

// submitStatus 交卷时的终局状态：考中已被标记的保持标记，
// 违规总数达到阈值的转为标记，其余完成。
func submitStatus(current model.SubmissionStatus, violationCount int) model.SubmissionStatus {
	if current != model.SubmissionInProgress {
		return current
	}
	if violationCount >= model.ViolationFlagThreshold {
		return model.SubmissionFlagged
	}
	return model.SubmissionCompleted
}

// Submit finalizes the attempt: grades every answer, derives the totals and
// folds the percentage into the test aggregates, all inside one transaction
// so a crash can't leave the submission counted but unfinished.
func (s *SubmissionService) Submit(ctx context.Context, claims *util.Claims, submissionID uint) (*model.Submission, error) {
	sub, err := s.SubRepo.FindByID(submissionID)
	if err != nil {
		return nil, err
	}
	if err := s.Access.CanMutateSubmission(claims, sub); err != nil {
		return nil, err
	}
	if sub.Test == nil {
		return nil, util.ErrNotFound
	}

	questionByID := make(map[uint]*model.Question, len(sub.Test.Questions))
	for i := range sub.Test.Questions {
		questionByID[sub.Test.Questions[i].ID] = &sub.Test.Questions[i]
	}

	// 评测与相似度检测在事务外执行，避免长事务占用行锁
	for i := range sub.Answers {
		answer := &sub.Answers[i]
		question, ok := questionByID[answer.QuestionID]
		if !ok {
			continue
		}

		grade, err := s.Grading.Grade(ctx, question, answer.Code, answer.Language)
		if err != nil {
			logger.Log.Error("grading failed",
				zap.Uint("submissionId", sub.ID),
				zap.Uint("questionId", question.ID),
				zap.Error(err))
			return nil, err
		}
		answer.Score = grade.Score
		if grade.TestResults != nil {
			encoded, err := json.Marshal(grade.TestResults)
			if err != nil {
				return nil, err
			}
			answer.TestResults = encoded
		}

		if sub.Test.Proctoring.AISimilarityCheck && answer.Code != "" {
			similarity, err := s.Similarity.Score(ctx, answer.Code, answer.Language)
			if err != nil {
				logger.Log.Warn("similarity check failed",
					zap.Uint("submissionId", sub.ID),
					zap.Error(err))
			} else {
				answer.AISimilarity = similarity
			}
		}
	}

	now := time.Now()
	sub.SubmittedAt = &now
	sub.Recalculate()
	sub.Status = submitStatus(sub.Status, sub.ViolationCount)

	err = s.SubRepo.DB().Transaction(func(tx *gorm.DB) error {
		for i := range sub.Answers {
			if err := tx.Save(&sub.Answers[i]).Error; err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"total_score":        sub.TotalScore,
			"percentage":         sub.Percentage,
			"status":             sub.Status,
			"submitted_at":       sub.SubmittedAt,
			"duration":           sub.Duration,
			"violation_count":    sub.ViolationCount,
			"overall_similarity": sub.OverallSimilarity,
		}
		// 交卷只允许生效一次：两个并发请求都过了前面的读检查时，
		// 靠 submitted_at IS NULL 的行级守卫保证只有一个能写入聚合
		rows, err := s.SubRepo.FinalizeSubmission(tx, sub.ID, updates)
		if err != nil {
			return err
		}
		if rows == 0 {
			return util.ErrSubmissionClosed
		}

		if err := repository.RecordCompletedScore(tx, sub.TestID, sub.Percentage); err != nil {
			return err
		}

		event := model.ActivityEvent{
			SubmissionID: sub.ID,
			Type:         model.ActivitySubmit,
			Timestamp:    now,
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, err
	}

	monitoring.SubmissionCounter.WithLabelValues(string(sub.Status)).Inc()

	s.Hub.Publish([]uint{sub.Test.CreatorID}, ProctorEvent{
		Type:         "SUBMISSION_COMPLETED",
		TestID:       sub.TestID,
		SubmissionID: sub.ID,
		Data: map[string]interface{}{
			"status":     sub.Status,
			"percentage": sub.Percentage,
		},
	})

	logger.Log.Info("submission finalized",
		zap.Uint("submissionId", sub.ID),
		zap.String("status", string(sub.Status)),
		zap.Int("percentage", sub.Percentage))

	return s.SubRepo.FindByID(sub.ID)
}

type ReviewInput struct {
	Decision model.ReviewDecision `json:"decision" binding:"required,oneof=approved rejected needs_review"`
	Notes    string               `json:"notes" binding:"omitempty,max=2000"`
	Rating   int                  `json:"rating" binding:"omitempty,min=1,max=5"`
}

// Review 招聘方评审，评审后提交进入终态
func (s *SubmissionService) Review(claims *util.Claims, submissionID uint, input ReviewInput) (*model.Submission, error) {
	sub, err := s.SubRepo.FindByID(submissionID)
	if err != nil {
		return nil, err
	}
	if err := s.Access.CanReviewSubmission(claims, sub); err != nil {
		return nil, err
	}
	if sub.IsTerminal() {
		return nil, util.ErrSubmissionClosed
	}

	now := time.Now()
	err = s.SubRepo.Updates(sub.ID, map[string]interface{}{
		"status":             model.SubmissionReviewed,
		"review_reviewed_by": claims.UserID,
		"review_reviewed_at": now,
		"review_decision":    input.Decision,
		"review_notes":       input.Notes,
		"review_rating":      input.Rating,
	})
	if err != nil {
		return nil, err
	}

	return s.SubRepo.FindByID(sub.ID)
}

// Disqualify 取消考试资格，终态，只能由出题招聘方或管理员显式触发
func (s *SubmissionService) Disqualify(claims *util.Claims, submissionID uint, reason string) (*model.Submission, error) {
	sub, err := s.SubRepo.FindByID(submissionID)
	if err != nil {
		return nil, err
	}
	if claims.Role != model.Admin {
		if claims.Role != model.Recruiter || sub.Test == nil || sub.Test.CreatorID != claims.UserID {
			return nil, util.ErrForbidden
		}
	}
	if sub.IsTerminal() {
		return nil, util.ErrSubmissionClosed
	}

	err = s.SubRepo.Updates(sub.ID, map[string]interface{}{
		"status":       model.SubmissionDisqualified,
		"review_notes": reason,
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("submission disqualified",
		zap.Uint("submissionId", sub.ID),
		zap.Uint("byUserId", claims.UserID))

	return s.SubRepo.FindByID(sub.ID)
}

type ActivityEventInput struct {
	Type      model.ActivityType `json:"type" binding:"required"`
	Timestamp *time.Time         `json:"timestamp"`
	Data      json.RawMessage    `json:"data"`
}

// LogActivity 批量写入行为日志（客户端按批上报）
func (s *SubmissionService) LogActivity(claims *util.Claims, submissionID uint, inputs []ActivityEventInput) error {
	sub, err := s.SubRepo.FindByID(submissionID)
	if err != nil {
		return err
	}
	if err := s.Access.CanMutateSubmission(claims, sub); err != nil {
		return err
	}

	now := time.Now()
	events := make([]model.ActivityEvent, 0, len(inputs))
	for _, in := range inputs {
		if !in.Type.Valid() {
			return util.ErrValidation
		}
		ts := now
		if in.Timestamp != nil {
			ts = *in.Timestamp
		}
		events = append(events, model.ActivityEvent{
			SubmissionID: sub.ID,
			Type:         in.Type,
			Timestamp:    ts,
			Data:         in.Data,
		})
	}

	return s.SubRepo.AppendActivity(events)
}

// UploadScreenshot stores a violation screenshot and returns its URL, to be
// referenced from a subsequent violation report.
func (s *SubmissionService) UploadScreenshot(ctx context.Context, claims *util.Claims, submissionID uint, reader io.Reader, size int64, filename string) (string, error) {
	sub, err := s.SubRepo.FindByID(submissionID)
	if err != nil {
		return "", err
	}
	if err := s.Access.CanMutateSubmission(claims, sub); err != nil {
		return "", err
	}

	// MIME 嗅探会消耗前512字节，校验后拼回原始流
	head := make([]byte, 512)
	n, readErr := io.ReadFull(reader, head)
	if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
		return "", readErr
	}
	mimeType, err := util.ValidateMimeType(bytes.NewReader(head[:n]), util.AllowedScreenshotTypes)
	if err != nil {
		return "", util.ErrValidation
	}
	body := io.MultiReader(bytes.NewReader(head[:n]), reader)

	key := ScreenshotKey(sub.ID, model.GenerateUUID(), filepath.Ext(filename))
	return s.Storage.Upload(ctx, key, body, size, mimeType)
}

// AttachRecording probes an uploaded proctoring recording, pushes it to
// object storage and links it on the submission. kind is webcam or screen.
func (s *SubmissionService) AttachRecording(ctx context.Context, claims *util.Claims, submissionID uint, kind, localPath string) (string, error) {
	if kind != "webcam" && kind != "screen" {
		return "", util.ErrValidation
	}

	sub, err := s.SubRepo.FindByID(submissionID)
	if err != nil {
		return "", err
	}
	// 录像在交卷后由客户端补传，因此只校验归属与终态
	if sub.StudentID != claims.UserID && claims.Role != model.Admin {
		return "", util.ErrForbidden
	}

	ext := filepath.Ext(localPath)
	allowed := false
	for _, e := range util.AllowedRecordingExtensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", util.ErrValidation
	}

	info, err := util.ProbeRecording(localPath)
	if err != nil {
		return "", util.ErrValidation
	}

	key := RecordingKey(sub.ID, kind, ext)
	url, err := s.Storage.UploadFile(ctx, key, localPath, util.MimeVideo+ext[1:])
	if err != nil {
		return "", err
	}

	column := "recording_webcam"
	if kind == "screen" {
		column = "recording_screen"
	}
	if err := s.SubRepo.Updates(sub.ID, map[string]interface{}{column: url}); err != nil {
		return "", err
	}

	logger.Log.Info("recording attached",
		zap.Uint("submissionId", sub.ID),
		zap.String("kind", kind),
		zap.Float64("durationSecs", info.Duration))

	return url, nil
}

// GetByID 查看单个提交（考生本人只读自己的，招聘方看自己测试下的）
func (s *SubmissionService) GetByID(claims *util.Claims, id uint) (*model.Submission, error) {
	sub, err := s.SubRepo.FindByIDFull(id)
	if err != nil {
		return nil, err
	}
	if err := s.Access.CanViewSubmission(claims, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// ListByTest 招聘方查看某个测试的全部提交
func (s *SubmissionService) ListByTest(claims *util.Claims, testID uint, page, limit int, status model.SubmissionStatus) ([]model.Submission, int64, error) {
	test, err := s.TestRepo.FindByID(testID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.Access.CanMutateTest(claims, test); err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.SubRepo.ListByTest(testID, page, limit, status)
}

// ListMine 考生查看自己的历史提交
func (s *SubmissionService) ListMine(claims *util.Claims, page, limit int) ([]model.Submission, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.SubRepo.ListByStudent(claims.UserID, page, limit)
}
