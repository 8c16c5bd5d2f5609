package model

import (
	"encoding/json"
	"time"
)

type TestStatus string

const (
	TestDraft     TestStatus = "draft"
	TestActive    TestStatus = "active"
	TestCompleted TestStatus = "completed"
	TestArchived  TestStatus = "archived"
)

// ProctoringConfig 监考开关集合，控制前端启用哪些检测器
type ProctoringConfig struct {
	CameraRequired     bool `gorm:"default:true" json:"cameraRequired"`
	ScreenRecording    bool `gorm:"default:true" json:"screenRecording"`
	FullscreenEnforced bool `gorm:"default:true" json:"fullscreenEnforced"`
	TabSwitchDetection bool `gorm:"default:true" json:"tabSwitchDetection"`
	CopyPasteDetection bool `gorm:"default:true" json:"copyPasteDetection"`
	AISimilarityCheck  bool `gorm:"default:true" json:"aiSimilarityCheck"`
}

// swagger:model Test
type Test struct {
	BaseModel

	CreatorID   uint   `gorm:"index;type:bigint unsigned" json:"creatorId"`
	Creator     *User  `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Company     string `gorm:"size:200" json:"company"`

	Questions []Question `gorm:"foreignKey:TestID" json:"questions,omitempty"`

	Duration     int        `gorm:"not null" json:"duration"` // 总时长（分钟）
	Instructions string     `gorm:"type:text" json:"instructions"`
	AccessCode   *string    `gorm:"size:8;uniqueIndex" json:"accessCode,omitempty"`
	Status       TestStatus `gorm:"type:enum('draft','active','completed','archived');default:'draft'" json:"status"`

	ScheduledStart *time.Time `json:"scheduledStart,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduledEnd,omitempty"`

	Proctoring ProctoringConfig `gorm:"embedded;embeddedPrefix:proctoring_" json:"proctoring"`

	PassingScore int `gorm:"default:60" json:"passingScore"` // 百分比
	MaxAttempts  int `gorm:"default:1" json:"maxAttempts"`

	// Running aggregates, updated atomically on each completed submission.
	TotalSubmissions int     `gorm:"default:0" json:"totalSubmissions"`
	AverageScore     float64 `gorm:"default:0" json:"averageScore"`
}

func (Test) TableName() string {
	return "tests"
}

// IsAccessible 判断测试当前是否对考生开放
func (t *Test) IsAccessible(now time.Time) bool {
	if t.Status != TestActive {
		return false
	}
	if t.ScheduledStart != nil && now.Before(*t.ScheduledStart) {
		return false
	}
	if t.ScheduledEnd != nil && now.After(*t.ScheduledEnd) {
		return false
	}
	return true
}

// TotalMaxScore sums the max score of every question in the test.
func (t *Test) TotalMaxScore() int {
	sum := 0
	for _, q := range t.Questions {
		sum += q.MaxScore
	}
	return sum
}

const (
	QuestionDifficultyEasy   = "easy"
	QuestionDifficultyMedium = "medium"
	QuestionDifficultyHard   = "hard"
)

// TestCase 单个评测用例
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	IsHidden       bool   `json:"isHidden"` // 隐藏用例不下发给考生
	Weight         int    `json:"weight"`
}

// Hint 解锁后扣分的提示
type Hint struct {
	Text           string `json:"text"`
	PenaltyPercent int    `json:"penaltyPercent"`
}

// swagger:model Question
type Question struct {
	BaseModel

	TestID      uint   `gorm:"index;type:bigint unsigned" json:"testId"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text;not null" json:"description"`
	Difficulty  string `gorm:"type:enum('easy','medium','hard');default:'medium'" json:"difficulty"`
	Template    string `gorm:"type:text" json:"template"`

	Languages json.RawMessage `gorm:"type:json" json:"languages,omitempty"` // JSON: []string
	TestCases json.RawMessage `gorm:"type:json" json:"testCases,omitempty"` // JSON: []TestCase
	Hints     json.RawMessage `gorm:"type:json" json:"hints,omitempty"`     // JSON: []Hint

	MaxScore  int  `gorm:"not null;default:100" json:"maxScore"`
	TimeLimit *int `json:"timeLimit,omitempty"` // 单题时限（分钟），可空
	// order 是 MySQL 保留字，列名用 sort_order
	Order int `gorm:"column:sort_order;default:0" json:"order"`
}

func (Question) TableName() string {
	return "test_questions"
}

// DecodeTestCases unmarshals the JSON test case column. A question with no
// test cases decodes to an empty slice, not an error.
func (q *Question) DecodeTestCases() ([]TestCase, error) {
	if len(q.TestCases) == 0 {
		return nil, nil
	}
	var cases []TestCase
	if err := json.Unmarshal(q.TestCases, &cases); err != nil {
		return nil, err
	}
	return cases, nil
}

func (q *Question) DecodeHints() ([]Hint, error) {
	if len(q.Hints) == 0 {
		return nil, nil
	}
	var hints []Hint
	if err := json.Unmarshal(q.Hints, &hints); err != nil {
		return nil, err
	}
	return hints, nil
}
