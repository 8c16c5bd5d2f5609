package model

import (
	"encoding/json"
	"math"
	"time"
)

type SubmissionStatus string

const (
	SubmissionInProgress   SubmissionStatus = "in_progress"
	SubmissionCompleted    SubmissionStatus = "completed"
	SubmissionFlagged      SubmissionStatus = "flagged"
	SubmissionDisqualified SubmissionStatus = "disqualified"
	SubmissionReviewed     SubmissionStatus = "reviewed"
)

type ReviewDecision string

const (
	ReviewPending     ReviewDecision = "pending"
	ReviewApproved    ReviewDecision = "approved"
	ReviewRejected    ReviewDecision = "rejected"
	ReviewNeedsReview ReviewDecision = "needs_review"
)

// HighSeverityFlagThreshold 第3条高危违规时自动标记
const HighSeverityFlagThreshold = 3

// ViolationFlagThreshold 提交时违规总数达到该值则标记
const ViolationFlagThreshold = 5

// Review 招聘方对一次提交的人工评审记录
type Review struct {
	ReviewedBy *uint          `gorm:"type:bigint unsigned" json:"reviewedBy,omitempty"`
	ReviewedAt *time.Time     `json:"reviewedAt,omitempty"`
	Decision   ReviewDecision `gorm:"size:20;default:'pending'" json:"decision"`
	Notes      string         `gorm:"type:text" json:"notes"`
	Rating     int            `json:"rating"` // 1-5，0 表示未评分
}

// Recordings 监考录像的对象存储地址
type Recordings struct {
	Webcam string `gorm:"size:512" json:"webcam,omitempty"`
	Screen string `gorm:"size:512" json:"screen,omitempty"`
}

// swagger:model Submission
type Submission struct {
	BaseModel

	TestID    uint  `gorm:"index:idx_sub_test_student;type:bigint unsigned;not null" json:"testId"`
	Test      *Test `gorm:"foreignKey:TestID" json:"test,omitempty"`
	StudentID uint  `gorm:"index:idx_sub_test_student;type:bigint unsigned;not null" json:"studentId"`
	Student   *User `gorm:"foreignKey:StudentID" json:"student,omitempty"`

	Answers []Answer `gorm:"foreignKey:SubmissionID" json:"answers,omitempty"`

	TotalScore    int `gorm:"default:0" json:"totalScore"`
	MaxTotalScore int `gorm:"not null" json:"maxTotalScore"`
	Percentage    int `gorm:"default:0" json:"percentage"`

	Status SubmissionStatus `gorm:"type:enum('in_progress','completed','flagged','disqualified','reviewed');default:'in_progress';index" json:"status"`

	StartedAt   time.Time  `gorm:"not null" json:"startedAt"`
	SubmittedAt *time.Time `gorm:"index" json:"submittedAt,omitempty"`
	Duration    int        `gorm:"default:0" json:"duration"` // 实际用时（分钟）

	Violations        []Violation     `gorm:"foreignKey:SubmissionID" json:"violations,omitempty"`
	ViolationCount    int             `gorm:"default:0" json:"violationCount"`
	ActivityLog       []ActivityEvent `gorm:"foreignKey:SubmissionID" json:"activityLog,omitempty"`
	OverallSimilarity int             `gorm:"default:0" json:"overallSimilarity"`

	Environment json.RawMessage `gorm:"type:json" json:"environment,omitempty"` // 浏览器/设备信息
	Recordings  Recordings      `gorm:"embedded;embeddedPrefix:recording_" json:"recordings"`

	AttemptNumber int `gorm:"default:1" json:"attemptNumber"`

	Review Review `gorm:"embedded;embeddedPrefix:review_" json:"review"`
}

func (Submission) TableName() string {
	return "submissions"
}

// TestCaseResult 单个评测用例的执行结果
type TestCaseResult struct {
	Passed          bool   `json:"passed"`
	ActualOutput    string `json:"actualOutput"`
	ExecutionTimeMs int    `json:"executionTimeMs"`
	MemoryBytes     int64  `json:"memoryBytes"`
}

// HintUsage 记录考生何时解锁了哪条提示
type HintUsage struct {
	HintIndex int       `json:"hintIndex"`
	Timestamp time.Time `json:"timestamp"`
}

// swagger:model Answer
type Answer struct {
	BaseModel

	SubmissionID uint `gorm:"index;type:bigint unsigned;not null" json:"submissionId"`
	QuestionID   uint `gorm:"index;type:bigint unsigned;not null" json:"questionId"`

	Code     string `gorm:"type:text" json:"code"`
	Language string `gorm:"size:20;default:'typescript'" json:"language"`

	TestResults json.RawMessage `gorm:"type:json" json:"testResults,omitempty"` // JSON: []TestCaseResult
	Score       int             `gorm:"default:0" json:"score"`
	MaxScore    int             `gorm:"not null" json:"maxScore"`

	TimeSpent    int             `gorm:"default:0" json:"timeSpent"` // 秒
	AISimilarity int             `gorm:"default:0" json:"aiSimilarity"`
	HintsUsed    json.RawMessage `gorm:"type:json" json:"hintsUsed,omitempty"` // JSON: []HintUsage

	FirstAttempt *time.Time `json:"firstAttempt,omitempty"`
	LastAttempt  *time.Time `json:"lastAttempt,omitempty"`
}

func (Answer) TableName() string {
	return "submission_answers"
}

// RoundPercent computes round(100*score/max) with half-away-from-zero
// rounding, matching the web client's Math.round. Returns 0 when max is 0.
func RoundPercent(score, max int) int {
	if max <= 0 {
		return 0
	}
	return int(math.Round(float64(score) * 100 / float64(max)))
}

// Recalculate rederives every derived field from answers, violations and
// timestamps. Called at the end of each mutating operation instead of a
// persistence hook, so the invariants hold before anything is saved.
func (s *Submission) Recalculate() {
	total := 0
	for _, a := range s.Answers {
		total += a.Score
	}
	s.TotalScore = total
	s.Percentage = RoundPercent(s.TotalScore, s.MaxTotalScore)
	s.ViolationCount = len(s.Violations)

	if s.SubmittedAt != nil {
		s.Duration = int(math.Round(s.SubmittedAt.Sub(s.StartedAt).Minutes()))
	}

	simSum, simCount := 0, 0
	for _, a := range s.Answers {
		if a.AISimilarity > 0 {
			simSum += a.AISimilarity
			simCount++
		}
	}
	if simCount > 0 {
		s.OverallSimilarity = int(math.Round(float64(simSum) / float64(simCount)))
	} else {
		s.OverallSimilarity = 0
	}
}

// HighSeverityCount returns how many recorded violations are severity=high.
func (s *Submission) HighSeverityCount() int {
	n := 0
	for _, v := range s.Violations {
		if v.Severity == SeverityHigh {
			n++
		}
	}
	return n
}

// AddViolation appends a violation stamped with now and re-derives the
// violation count. Reaching the high-severity threshold escalates the
// submission to flagged; the check never de-escalates and a disqualified
// submission stays disqualified.
func (s *Submission) AddViolation(v Violation, now time.Time) {
	v.SubmissionID = s.ID
	v.Timestamp = now
	if v.Severity == "" {
		v.Severity = SeverityMedium
	}
	s.Violations = append(s.Violations, v)
	s.ViolationCount = len(s.Violations)

	if s.HighSeverityCount() >= HighSeverityFlagThreshold && s.Status != SubmissionDisqualified {
		s.Status = SubmissionFlagged
	}
}

// IsTerminal reports whether no further lifecycle transitions are allowed.
func (s *Submission) IsTerminal() bool {
	return s.Status == SubmissionReviewed || s.Status == SubmissionDisqualified
}

// AnswerForQuestion returns the answer slot for questionID, or nil.
func (s *Submission) AnswerForQuestion(questionID uint) *Answer {
	for i := range s.Answers {
		if s.Answers[i].QuestionID == questionID {
			return &s.Answers[i]
		}
	}
	return nil
}
