package service

import (
	"math"

	"proctorx_backend/internal/model"
	"proctorx_backend/internal/repository"
	"proctorx_backend/internal/util"
)

// ScoreBucket 得分分布的一段
type ScoreBucket struct {
	Label string `json:"label"` // "0-20" ... "81-100"
	Count int    `json:"count"`
}

// ViolationTypeStat 某类违规的聚合
type ViolationTypeStat struct {
	Type  model.ViolationType `json:"type"`
	Count int                 `json:"count"`
}

// TestAnalytics 单个测试的聚合报表。
// 分数类指标只统计 completed/flagged 的提交（计分集合）。
type TestAnalytics struct {
	TestID            uint    `json:"testId"`
	TotalSubmissions  int     `json:"totalSubmissions"` // 计分集合大小
	InProgress        int     `json:"inProgress"`
	CompletedCount    int     `json:"completedCount"`
	FlaggedCount      int     `json:"flaggedCount"`
	ReviewedCount     int     `json:"reviewedCount"`
	DisqualifiedCount int     `json:"disqualifiedCount"`
	AverageScore      float64 `json:"averageScore"`    // 测试上的滚动均分
	PassRate          int     `json:"passRate"`        // round(100*及格数/计分数)
	CompletionRate    int     `json:"completionRate"`  // round(100*completed/test.TotalSubmissions)
	AverageDuration   int     `json:"averageDuration"` // 分钟，四舍五入
	AverageViolations float64 `json:"averageViolations"`

	ScoreDistribution []ScoreBucket       `json:"scoreDistribution"`
	ViolationsByType  []ViolationTypeStat `json:"violationsByType"`
}

var scoreBucketLabels = []string{"0-20", "21-40", "41-60", "61-80", "81-100"}

func scoreBucketIndex(percentage int) int {
	if percentage <= 20 {
		return 0
	}
	idx := (percentage - 1) / 20
	if idx > 4 {
		idx = 4
	}
	return idx
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeTestAnalytics derives the full report from finalized submissions.
// The scored set is completed/flagged only; reviewed and disqualified attempts
// still show up in the per-status counts and violation stats.
func ComputeTestAnalytics(test *model.Test, subs []model.Submission, inProgress int) *TestAnalytics {
	a := &TestAnalytics{
		TestID:            test.ID,
		InProgress:        inProgress,
		AverageScore:      test.AverageScore,
		ScoreDistribution: make([]ScoreBucket, len(scoreBucketLabels)),
	}
	for i, label := range scoreBucketLabels {
		a.ScoreDistribution[i] = ScoreBucket{Label: label}
	}

	violationCounts := make(map[model.ViolationType]int)

	passed := 0
	durationSum := 0
	violationTotal := 0

	for i := range subs {
		sub := &subs[i]

		switch sub.Status {
		case model.SubmissionCompleted:
			a.CompletedCount++
		case model.SubmissionFlagged:
			a.FlaggedCount++
		case model.SubmissionReviewed:
			a.ReviewedCount++
		case model.SubmissionDisqualified:
			a.DisqualifiedCount++
		}

		violationTotal += sub.ViolationCount
		for _, v := range sub.Violations {
			violationCounts[v.Type]++
		}

		if sub.Status != model.SubmissionCompleted && sub.Status != model.SubmissionFlagged {
			continue
		}

		a.TotalSubmissions++
		durationSum += sub.Duration
		if sub.Percentage >= test.PassingScore {
			passed++
		}
		a.ScoreDistribution[scoreBucketIndex(sub.Percentage)].Count++
	}

	if a.TotalSubmissions > 0 {
		a.PassRate = model.RoundPercent(passed, a.TotalSubmissions)
		a.AverageDuration = int(math.Round(float64(durationSum) / float64(a.TotalSubmissions)))
	}
	if len(subs) > 0 {
		a.AverageViolations = round2(float64(violationTotal) / float64(len(subs)))
	}
	// 完成率的分母是累计开考数，没人开考时为 0
	if test.TotalSubmissions > 0 {
		a.CompletionRate = model.RoundPercent(a.CompletedCount, test.TotalSubmissions)
	}

	// 按枚举声明顺序输出，便于前端固定图例
	orderedTypes := []model.ViolationType{
		model.ViolationTabSwitch, model.ViolationFullscreenExit,
		model.ViolationCopy, model.ViolationPaste, model.ViolationScreenshot,
		model.ViolationMultipleFaces, model.ViolationNoFace,
		model.ViolationPhoneDetected, model.ViolationVoiceDetected,
		model.ViolationBrowserResize,
	}
	for _, t := range orderedTypes {
		if count := violationCounts[t]; count > 0 {
			a.ViolationsByType = append(a.ViolationsByType, ViolationTypeStat{Type: t, Count: count})
		}
	}

	return a
}

type AnalyticsService struct {
	TestRepo *repository.TestRepository
	SubRepo  *repository.SubmissionRepository
	Access   *AccessService
}

func NewAnalyticsService(testRepo *repository.TestRepository, subRepo *repository.SubmissionRepository, access *AccessService) *AnalyticsService {
	return &AnalyticsService{TestRepo: testRepo, SubRepo: subRepo, Access: access}
}

// GetTestAnalytics 出题方查看自己测试的聚合报表
func (s *AnalyticsService) GetTestAnalytics(claims *util.Claims, testID uint) (*TestAnalytics, error) {
	test, err := s.TestRepo.FindByID(testID)
	if err != nil {
		return nil, err
	}
	if err := s.Access.CanMutateTest(claims, test); err != nil {
		return nil, err
	}

	subs, err := s.SubRepo.ListFinalizedByTest(testID)
	if err != nil {
		return nil, err
	}

	total, err := s.SubRepo.CountByTest(testID)
	if err != nil {
		return nil, err
	}
	inProgress := int(total) - len(subs)
	if inProgress < 0 {
		inProgress = 0
	}

	return ComputeTestAnalytics(test, subs, inProgress), nil
}
