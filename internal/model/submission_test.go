package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundPercent(t *testing.T) {
	assert.Equal(t, 0, RoundPercent(50, 0))
	assert.Equal(t, 0, RoundPercent(50, -1))
	assert.Equal(t, 100, RoundPercent(100, 100))
	assert.Equal(t, 70, RoundPercent(70, 100))
	// 四舍五入远离零，与前端 Math.round 一致
	assert.Equal(t, 33, RoundPercent(1, 3))
	assert.Equal(t, 67, RoundPercent(2, 3))
	assert.Equal(t, 13, RoundPercent(1, 8)) // 12.5 -> 13
	assert.Equal(t, 38, RoundPercent(3, 8)) // 37.5 -> 38
}

func TestRecalculateDerivesTotals(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	submitted := started.Add(47 * time.Minute)

	s := &Submission{
		MaxTotalScore: 100,
		StartedAt:     started,
		SubmittedAt:   &submitted,
		Answers: []Answer{
			{QuestionID: 1, Score: 40, MaxScore: 50, AISimilarity: 30},
			{QuestionID: 2, Score: 30, MaxScore: 50, AISimilarity: 0},
		},
		Violations: []Violation{
			{Type: ViolationTabSwitch, Severity: SeverityMedium},
		},
	}

	s.Recalculate()

	assert.Equal(t, 70, s.TotalScore)
	assert.Equal(t, 70, s.Percentage)
	assert.Equal(t, 1, s.ViolationCount)
	assert.Equal(t, 47, s.Duration)
	// 相似度只对有值的答案取均值
	assert.Equal(t, 30, s.OverallSimilarity)
}

func TestRecalculateZeroMaxScore(t *testing.T) {
	s := &Submission{
		MaxTotalScore: 0,
		StartedAt:     time.Now(),
		Answers:       []Answer{{QuestionID: 1, Score: 10}},
	}

	s.Recalculate()

	assert.Equal(t, 10, s.TotalScore)
	assert.Equal(t, 0, s.Percentage)
}

func TestRecalculateNoSimilarity(t *testing.T) {
	s := &Submission{
		MaxTotalScore: 100,
		StartedAt:     time.Now(),
		Answers: []Answer{
			{QuestionID: 1, Score: 50},
			{QuestionID: 2, Score: 20},
		},
	}

	s.Recalculate()
	assert.Equal(t, 0, s.OverallSimilarity)
}

func TestAddViolationEscalatesOnThirdHigh(t *testing.T) {
	now := time.Now()
	s := &Submission{BaseModel: BaseModel{ID: 7}, Status: SubmissionInProgress}

	s.AddViolation(Violation{Type: ViolationPhoneDetected, Severity: SeverityHigh}, now)
	assert.Equal(t, SubmissionInProgress, s.Status)

	s.AddViolation(Violation{Type: ViolationMultipleFaces, Severity: SeverityHigh}, now)
	assert.Equal(t, SubmissionInProgress, s.Status)

	s.AddViolation(Violation{Type: ViolationPaste, Severity: SeverityHigh}, now)
	assert.Equal(t, SubmissionFlagged, s.Status)
	assert.Equal(t, 3, s.ViolationCount)

	// 第4条高危不再改变状态
	s.AddViolation(Violation{Type: ViolationPhoneDetected, Severity: SeverityHigh}, now)
	assert.Equal(t, SubmissionFlagged, s.Status)
	assert.Equal(t, 4, s.ViolationCount)
}

func TestAddViolationLowSeverityNeverEscalates(t *testing.T) {
	now := time.Now()
	s := &Submission{Status: SubmissionInProgress}

	for i := 0; i < 10; i++ {
		s.AddViolation(Violation{Type: ViolationBrowserResize, Severity: SeverityLow}, now)
	}

	assert.Equal(t, SubmissionInProgress, s.Status)
	assert.Equal(t, 10, s.ViolationCount)
}

func TestAddViolationDefaultsAndStamps(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &Submission{BaseModel: BaseModel{ID: 3}, Status: SubmissionInProgress}

	s.AddViolation(Violation{Type: ViolationCopy}, now)

	require.Len(t, s.Violations, 1)
	v := s.Violations[0]
	assert.Equal(t, uint(3), v.SubmissionID)
	assert.Equal(t, now, v.Timestamp)
	assert.Equal(t, SeverityMedium, v.Severity)
}

func TestAddViolationKeepsDisqualified(t *testing.T) {
	now := time.Now()
	s := &Submission{Status: SubmissionDisqualified}

	for i := 0; i < 3; i++ {
		s.AddViolation(Violation{Type: ViolationPhoneDetected, Severity: SeverityHigh}, now)
	}

	assert.Equal(t, SubmissionDisqualified, s.Status)
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, (&Submission{Status: SubmissionInProgress}).IsTerminal())
	assert.False(t, (&Submission{Status: SubmissionCompleted}).IsTerminal())
	assert.False(t, (&Submission{Status: SubmissionFlagged}).IsTerminal())
	assert.True(t, (&Submission{Status: SubmissionReviewed}).IsTerminal())
	assert.True(t, (&Submission{Status: SubmissionDisqualified}).IsTerminal())
}

func TestAnswerForQuestion(t *testing.T) {
	s := &Submission{
		Answers: []Answer{
			{QuestionID: 1},
			{QuestionID: 2},
		},
	}

	a := s.AnswerForQuestion(2)
	require.NotNil(t, a)
	assert.Equal(t, uint(2), a.QuestionID)

	// 返回的是切片内元素指针，修改要反映到提交上
	a.Score = 55
	assert.Equal(t, 55, s.Answers[1].Score)

	assert.Nil(t, s.AnswerForQuestion(99))
}

func TestViolationTypeValid(t *testing.T) {
	assert.True(t, ViolationTabSwitch.Valid())
	assert.True(t, ViolationPhoneDetected.Valid())
	assert.False(t, ViolationType("mind_reading").Valid())
	assert.False(t, ViolationType("").Valid())
}
