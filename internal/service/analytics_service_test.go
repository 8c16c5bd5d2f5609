package service

import (
	"testing"
	"time"

	"proctorx_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finalized(status model.SubmissionStatus, percentage, duration, violations int) model.Submission {
	now := time.Now()
	sub := model.Submission{
		Status:         status,
		Percentage:     percentage,
		Duration:       duration,
		ViolationCount: violations,
	}
	if status != model.SubmissionDisqualified {
		sub.SubmittedAt = &now
	}
	return sub
}

func TestComputeTestAnalytics(t *testing.T) {
	test := &model.Test{
		BaseModel:        model.BaseModel{ID: 5},
		PassingScore:     60,
		AverageScore:     63.75,
		TotalSubmissions: 4,
	}

	subs := []model.Submission{
		finalized(model.SubmissionCompleted, 85, 40, 0),
		finalized(model.SubmissionCompleted, 70, 55, 1),
		finalized(model.SubmissionFlagged, 40, 30, 6),
		finalized(model.SubmissionReviewed, 60, 45, 0),
		finalized(model.SubmissionDisqualified, 90, 0, 3),
	}

	a := ComputeTestAnalytics(test, subs, 2)

	assert.Equal(t, uint(5), a.TestID)
	// 计分集合只含 completed/flagged
	assert.Equal(t, 3, a.TotalSubmissions)
	assert.Equal(t, 2, a.InProgress)
	assert.Equal(t, 2, a.CompletedCount)
	assert.Equal(t, 1, a.FlaggedCount)
	assert.Equal(t, 1, a.ReviewedCount)
	assert.Equal(t, 1, a.DisqualifiedCount)

	// 均分直接取测试上的滚动聚合
	assert.InDelta(t, 63.75, a.AverageScore, 0.001)
	// 及格线60: 计分集合里 85,70 达标 / 3 -> round(66.67)
	assert.Equal(t, 67, a.PassRate)
	// completed 2 / test.TotalSubmissions 4
	assert.Equal(t, 50, a.CompletionRate)
	// (40+55+30)/3 = 41.67 -> 42
	assert.Equal(t, 42, a.AverageDuration)
	// 违规均值包含评阅与取消资格的: (0+1+6+0+3)/5
	assert.InDelta(t, 2.0, a.AverageViolations, 0.001)
}

func TestCompletionRateUsesRunningTotal(t *testing.T) {
	// 累计开考2人，只有1人完成交卷
	test := &model.Test{PassingScore: 60, TotalSubmissions: 2}
	subs := []model.Submission{
		finalized(model.SubmissionCompleted, 80, 30, 0),
	}

	a := ComputeTestAnalytics(test, subs, 1)

	assert.Equal(t, 50, a.CompletionRate)
}

func TestPassRateRoundsToWholePercent(t *testing.T) {
	test := &model.Test{PassingScore: 60, TotalSubmissions: 3}
	subs := []model.Submission{
		finalized(model.SubmissionCompleted, 80, 30, 0),
		finalized(model.SubmissionCompleted, 50, 30, 0),
		finalized(model.SubmissionFlagged, 40, 30, 5),
	}

	a := ComputeTestAnalytics(test, subs, 0)

	// 1/3 -> 33，不是 33.33
	assert.Equal(t, 33, a.PassRate)
}

func TestComputeTestAnalyticsEmpty(t *testing.T) {
	test := &model.Test{PassingScore: 60}

	a := ComputeTestAnalytics(test, nil, 0)

	assert.Equal(t, 0, a.TotalSubmissions)
	assert.Zero(t, a.AverageScore)
	assert.Zero(t, a.PassRate)
	assert.Zero(t, a.CompletionRate)
	require.Len(t, a.ScoreDistribution, 5)
	for _, bucket := range a.ScoreDistribution {
		assert.Zero(t, bucket.Count)
	}
}

func TestScoreDistributionBuckets(t *testing.T) {
	test := &model.Test{PassingScore: 60}

	subs := []model.Submission{
		finalized(model.SubmissionCompleted, 0, 10, 0),
		finalized(model.SubmissionCompleted, 20, 10, 0),
		finalized(model.SubmissionCompleted, 21, 10, 0),
		finalized(model.SubmissionCompleted, 40, 10, 0),
		finalized(model.SubmissionCompleted, 60, 10, 0),
		finalized(model.SubmissionCompleted, 80, 10, 0),
		finalized(model.SubmissionCompleted, 81, 10, 0),
		finalized(model.SubmissionCompleted, 100, 10, 0),
	}

	a := ComputeTestAnalytics(test, subs, 0)

	require.Len(t, a.ScoreDistribution, 5)
	assert.Equal(t, "0-20", a.ScoreDistribution[0].Label)
	assert.Equal(t, 2, a.ScoreDistribution[0].Count)  // 0, 20
	assert.Equal(t, 2, a.ScoreDistribution[1].Count)  // 21, 40
	assert.Equal(t, 1, a.ScoreDistribution[2].Count)  // 60
	assert.Equal(t, 1, a.ScoreDistribution[3].Count)  // 80
	assert.Equal(t, 2, a.ScoreDistribution[4].Count)  // 81, 100
}

func TestViolationsByTypeOrderedAndFiltered(t *testing.T) {
	test := &model.Test{PassingScore: 60}
	now := time.Now()

	sub := model.Submission{
		Status:      model.SubmissionCompleted,
		SubmittedAt: &now,
		Violations: []model.Violation{
			{Type: model.ViolationPhoneDetected},
			{Type: model.ViolationTabSwitch},
			{Type: model.ViolationTabSwitch},
		},
	}

	a := ComputeTestAnalytics(test, []model.Submission{sub}, 0)

	require.Len(t, a.ViolationsByType, 2)
	// 按枚举声明顺序，tab_switch 在 phone_detected 之前
	assert.Equal(t, model.ViolationTabSwitch, a.ViolationsByType[0].Type)
	assert.Equal(t, 2, a.ViolationsByType[0].Count)
	assert.Equal(t, model.ViolationPhoneDetected, a.ViolationsByType[1].Type)
	assert.Equal(t, 1, a.ViolationsByType[1].Count)
}
