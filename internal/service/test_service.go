package service

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"strings"
	"time"

	"proctorx_backend/internal/model"
	"proctorx_backend/internal/repository"
	"proctorx_backend/internal/util"
	"proctorx_backend/pkg/logger"

	"go.uber.org/zap"
)

const (
	accessCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	accessCodeLength   = 8

	// 访问码唯一索引冲突时的重试上限
	maxAccessCodeAttempts = 5
)

// NewAccessCode 生成8位大写字母数字访问码（crypto/rand）
func NewAccessCode() (string, error) {
	b := make([]byte, accessCodeLength)
	max := big.NewInt(int64(len(accessCodeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = accessCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// NormalizeAccessCode 考生输入的访问码大小写不敏感
func NormalizeAccessCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type TestService struct {
	TestRepo *repository.TestRepository
	SubRepo  *repository.SubmissionRepository
	Access   *AccessService
}

func NewTestService(testRepo *repository.TestRepository, subRepo *repository.SubmissionRepository, access *AccessService) *TestService {
	return &TestService{TestRepo: testRepo, SubRepo: subRepo, Access: access}
}

type QuestionInput struct {
	Title       string          `json:"title" binding:"required,max=255"`
	Description string          `json:"description" binding:"required"`
	Difficulty  string          `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	Template    string          `json:"template"`
	Languages   json.RawMessage `json:"languages"`
	TestCases   json.RawMessage `json:"testCases"`
	Hints       json.RawMessage `json:"hints"`
	MaxScore    int             `json:"maxScore" binding:"omitempty,min=1,max=1000"`
	TimeLimit   *int            `json:"timeLimit" binding:"omitempty,min=1"`
}

type CreateTestInput struct {
	Title          string                  `json:"title" binding:"required,max=200"`
	Description    string                  `json:"description"`
	Company        string                  `json:"company" binding:"omitempty,max=200"`
	Duration       int                     `json:"duration" binding:"required,min=5,max=480"`
	Instructions   string                  `json:"instructions"`
	ScheduledStart *time.Time              `json:"scheduledStart"`
	ScheduledEnd   *time.Time              `json:"scheduledEnd"`
	Proctoring     *model.ProctoringConfig `json:"proctoring"`
	PassingScore   int                     `json:"passingScore" binding:"omitempty,min=0,max=100"`
	MaxAttempts    int                     `json:"maxAttempts" binding:"omitempty,min=1,max=10"`
	Questions      []QuestionInput         `json:"questions" binding:"omitempty,dive"`
}

func buildQuestions(inputs []QuestionInput) []model.Question {
	questions := make([]model.Question, 0, len(inputs))
	for i, q := range inputs {
		difficulty := q.Difficulty
		if difficulty == "" {
			difficulty = model.QuestionDifficultyMedium
		}
		maxScore := q.MaxScore
		if maxScore == 0 {
			maxScore = 100
		}
		questions = append(questions, model.Question{
			Title:       q.Title,
			Description: q.Description,
			Difficulty:  difficulty,
			Template:    q.Template,
			Languages:   q.Languages,
			TestCases:   q.TestCases,
			Hints:       q.Hints,
			MaxScore:    maxScore,
			TimeLimit:   q.TimeLimit,
			Order:       i,
		})
	}
	return questions
}

// Create 创建草稿测试
func (s *TestService) Create(claims *util.Claims, input CreateTestInput) (*model.Test, error) {
	if input.ScheduledStart != nil && input.ScheduledEnd != nil && !input.ScheduledEnd.After(*input.ScheduledStart) {
		return nil, util.ErrValidation
	}

	test := &model.Test{
		CreatorID:      claims.UserID,
		Title:          input.Title,
		Description:    input.Description,
		Company:        input.Company,
		Duration:       input.Duration,
		Instructions:   input.Instructions,
		Status:         model.TestDraft,
		ScheduledStart: input.ScheduledStart,
		ScheduledEnd:   input.ScheduledEnd,
		PassingScore:   60,
		MaxAttempts:    1,
		Questions:      buildQuestions(input.Questions),
	}
	if input.Proctoring != nil {
		test.Proctoring = *input.Proctoring
	} else {
		test.Proctoring = model.ProctoringConfig{
			CameraRequired:     true,
			ScreenRecording:    true,
			FullscreenEnforced: true,
			TabSwitchDetection: true,
			CopyPasteDetection: true,
			AISimilarityCheck:  true,
		}
	}
	if input.PassingScore > 0 {
		test.PassingScore = input.PassingScore
	}
	if input.MaxAttempts > 0 {
		test.MaxAttempts = input.MaxAttempts
	}

	if err := s.TestRepo.Create(test); err != nil {
		return nil, err
	}
	return test, nil
}

func (s *TestService) GetByID(claims *util.Claims, id uint) (*model.Test, error) {
	test, err := s.TestRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.Access.CanViewTest(claims, test); err != nil {
		return nil, err
	}
	return test, nil
}

type UpdateTestInput struct {
	Title          *string                 `json:"title" binding:"omitempty,max=200"`
	Description    *string                 `json:"description"`
	Company        *string                 `json:"company" binding:"omitempty,max=200"`
	Duration       *int                    `json:"duration" binding:"omitempty,min=5,max=480"`
	Instructions   *string                 `json:"instructions"`
	ScheduledStart *time.Time              `json:"scheduledStart"`
	ScheduledEnd   *time.Time              `json:"scheduledEnd"`
	Proctoring     *model.ProctoringConfig `json:"proctoring"`
	PassingScore   *int                    `json:"passingScore" binding:"omitempty,min=0,max=100"`
	MaxAttempts    *int                    `json:"maxAttempts" binding:"omitempty,min=1,max=10"`
	Questions      []QuestionInput         `json:"questions" binding:"omitempty,dive"`
}

// Update 修改测试。归档后只读；题目在出现提交后锁定。
func (s *TestService) Update(claims *util.Claims, id uint, input UpdateTestInput) (*model.Test, error) {
	test, err := s.TestRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.Access.CanMutateTest(claims, test); err != nil {
		return nil, err
	}
	if test.Status == model.TestArchived {
		return nil, util.ErrTestArchived
	}

	if input.Title != nil {
		test.Title = *input.Title
	}
	if input.Description != nil {
		test.Description = *input.Description
	}
	if input.Company != nil {
		test.Company = *input.Company
	}
	if input.Duration != nil {
		test.Duration = *input.Duration
	}
	if input.Instructions != nil {
		test.Instructions = *input.Instructions
	}
	if input.ScheduledStart != nil {
		test.ScheduledStart = input.ScheduledStart
	}
	if input.ScheduledEnd != nil {
		test.ScheduledEnd = input.ScheduledEnd
	}
	if test.ScheduledStart != nil && test.ScheduledEnd != nil && !test.ScheduledEnd.After(*test.ScheduledStart) {
		return nil, util.ErrValidation
	}
	if input.Proctoring != nil {
		test.Proctoring = *input.Proctoring
	}
	if input.PassingScore != nil {
		test.PassingScore = *input.PassingScore
	}
	if input.MaxAttempts != nil {
		test.MaxAttempts = *input.MaxAttempts
	}

	if input.Questions != nil {
		count, err := s.SubRepo.CountByTest(test.ID)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, util.ErrQuestionsLocked
		}
		if err := s.TestRepo.ReplaceQuestions(test.ID, buildQuestions(input.Questions)); err != nil {
			return nil, err
		}
	}

	questions := test.Questions
	test.Questions = nil
	if err := s.TestRepo.Save(test); err != nil {
		return nil, err
	}
	test.Questions = questions

	return s.TestRepo.FindByID(test.ID)
}

// publishable 发布前置校验：归档后只读，草稿要求至少一道题
func publishable(test *model.Test) error {
	if test.Status == model.TestArchived {
		return util.ErrTestArchived
	}
	if test.Status != model.TestActive && len(test.Questions) == 0 {
		return util.ErrTestHasNoQuestions
	}
	return nil
}

// Publish 发布测试：draft→active，要求至少一道题，并分配唯一访问码。
// 访问码撞唯一索引时换码重试。
func (s *TestService) Publish(claims *util.Claims, id uint) (*model.Test, error) {
	test, err := s.TestRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.Access.CanMutateTest(claims, test); err != nil {
		return nil, err
	}
	if err := publishable(test); err != nil {
		return nil, err
	}
	if test.Status == model.TestActive {
		return test, nil
	}

	for attempt := 0; attempt < maxAccessCodeAttempts; attempt++ {
		code, err := NewAccessCode()
		if err != nil {
			return nil, err
		}

		err = s.TestRepo.Updates(test.ID, map[string]interface{}{
			"status":      model.TestActive,
			"access_code": code,
		})
		if err == nil {
			logger.Log.Info("test published",
				zap.Uint("testId", test.ID),
				zap.Uint("creatorId", test.CreatorID))
			return s.TestRepo.FindByID(test.ID)
		}
		if !repository.IsDuplicateKey(err) {
			return nil, err
		}
	}

	return nil, util.ErrAccessCodeExhausted
}

// Archive active→archived，访问码随之失效
func (s *TestService) Archive(claims *util.Claims, id uint) (*model.Test, error) {
	test, err := s.TestRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.Access.CanMutateTest(claims, test); err != nil {
		return nil, err
	}
	if test.Status == model.TestArchived {
		return test, nil
	}

	err = s.TestRepo.Updates(test.ID, map[string]interface{}{
		"status": model.TestArchived,
	})
	if err != nil {
		return nil, err
	}
	test.Status = model.TestArchived
	return test, nil
}

// List 招聘方自己的测试列表
func (s *TestService) List(claims *util.Claims, page, limit int, status model.TestStatus) ([]model.Test, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.TestRepo.ListByCreator(claims.UserID, page, limit, status)
}

// Delete 仅允许删除草稿
func (s *TestService) Delete(claims *util.Claims, id uint) error {
	test, err := s.TestRepo.FindByID(id)
	if err != nil {
		return err
	}
	if err := s.Access.CanMutateTest(claims, test); err != nil {
		return err
	}
	if test.Status != model.TestDraft {
		return util.ErrConflict
	}
	return s.TestRepo.Delete(test.ID)
}

// PublicTestCase 下发给考生的用例（隐藏用例被剥离）
type PublicTestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
}

// PublicQuestion 考生视角的题目，无隐藏用例与提示内容
type PublicQuestion struct {
	ID          uint             `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Difficulty  string           `json:"difficulty"`
	Template    string           `json:"template"`
	Languages   json.RawMessage  `json:"languages,omitempty"`
	SampleCases []PublicTestCase `json:"sampleCases"`
	HintCount   int              `json:"hintCount"`
	MaxScore    int              `json:"maxScore"`
	TimeLimit   *int             `json:"timeLimit,omitempty"`
	Order       int              `json:"order"`
}

// PublicTest 通过访问码查到的考生视角测试
type PublicTest struct {
	ID           uint                   `json:"id"`
	Title        string                 `json:"title"`
	Description  string                 `json:"description"`
	Company      string                 `json:"company"`
	Duration     int                    `json:"duration"`
	Instructions string                 `json:"instructions"`
	Proctoring   model.ProctoringConfig `json:"proctoring"`
	PassingScore int                    `json:"passingScore"`
	MaxAttempts  int                    `json:"maxAttempts"`
	Questions    []PublicQuestion       `json:"questions"`
}

// GetByAccessCode resolves an access code for a candidate. Codes only work
// while the test is inside its scheduled window; everything a candidate must
// not see (hidden cases, hint text) is stripped here.
func (s *TestService) GetByAccessCode(code string) (*PublicTest, error) {
	code = NormalizeAccessCode(code)
	if len(code) != accessCodeLength {
		return nil, util.ErrNotFound
	}

	test, err := s.TestRepo.FindByAccessCode(code)
	if err != nil {
		return nil, err
	}
	if !test.IsAccessible(time.Now()) {
		return nil, util.ErrTestNotAccessible
	}

	pub := &PublicTest{
		ID:           test.ID,
		Title:        test.Title,
		Description:  test.Description,
		Company:      test.Company,
		Duration:     test.Duration,
		Instructions: test.Instructions,
		Proctoring:   test.Proctoring,
		PassingScore: test.PassingScore,
		MaxAttempts:  test.MaxAttempts,
		Questions:    make([]PublicQuestion, 0, len(test.Questions)),
	}

	for _, q := range test.Questions {
		cases, err := q.DecodeTestCases()
		if err != nil {
			logger.Log.Warn("bad test case JSON", zap.Uint("questionId", q.ID), zap.Error(err))
		}
		samples := make([]PublicTestCase, 0, len(cases))
		for _, tc := range cases {
			if tc.IsHidden {
				continue
			}
			samples = append(samples, PublicTestCase{
				Input:          tc.Input,
				ExpectedOutput: tc.ExpectedOutput,
			})
		}

		hints, _ := q.DecodeHints()

		pub.Questions = append(pub.Questions, PublicQuestion{
			ID:          q.ID,
			Title:       q.Title,
			Description: q.Description,
			Difficulty:  q.Difficulty,
			Template:    q.Template,
			Languages:   q.Languages,
			SampleCases: samples,
			HintCount:   len(hints),
			MaxScore:    q.MaxScore,
			TimeLimit:   q.TimeLimit,
			Order:       q.Order,
		})
	}

	return pub, nil
}
