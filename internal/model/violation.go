package model

import (
	"encoding/json"
	"time"
)

type ViolationType string

// 检测器种类为封闭枚举，新增检测器需要前后端同时发版
const (
	ViolationTabSwitch      ViolationType = "tab_switch"
	ViolationFullscreenExit ViolationType = "fullscreen_exit"
	ViolationCopy           ViolationType = "copy"
	ViolationPaste          ViolationType = "paste"
	ViolationScreenshot     ViolationType = "screenshot"
	ViolationMultipleFaces  ViolationType = "multiple_faces"
	ViolationNoFace         ViolationType = "no_face"
	ViolationPhoneDetected  ViolationType = "phone_detected"
	ViolationVoiceDetected  ViolationType = "voice_detected"
	ViolationBrowserResize  ViolationType = "browser_resize"
)

func (t ViolationType) Valid() bool {
	switch t {
	case ViolationTabSwitch, ViolationFullscreenExit, ViolationCopy,
		ViolationPaste, ViolationScreenshot, ViolationMultipleFaces,
		ViolationNoFace, ViolationPhoneDetected, ViolationVoiceDetected,
		ViolationBrowserResize:
		return true
	}
	return false
}

type ViolationSeverity string

const (
	SeverityLow    ViolationSeverity = "low"
	SeverityMedium ViolationSeverity = "medium"
	SeverityHigh   ViolationSeverity = "high"
)

func (s ViolationSeverity) Valid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

// Violation 一条监考违规事件，写入后不可修改
// swagger:model Violation
type Violation struct {
	UUIDBase

	SubmissionID uint `gorm:"index;type:bigint unsigned;not null" json:"submissionId"`

	Type        ViolationType     `gorm:"size:30;not null" json:"type"`
	Description string            `gorm:"size:500;not null" json:"description"`
	Timestamp   time.Time         `gorm:"not null" json:"timestamp"`
	Severity    ViolationSeverity `gorm:"type:enum('low','medium','high');default:'medium'" json:"severity"`

	Screenshot string          `gorm:"size:512" json:"screenshot,omitempty"` // 对象存储地址
	Metadata   json.RawMessage `gorm:"type:json" json:"metadata,omitempty"`
}

func (Violation) TableName() string {
	return "submission_violations"
}

type ActivityType string

const (
	ActivityStart     ActivityType = "start"
	ActivitySubmit    ActivityType = "submit"
	ActivityFocus     ActivityType = "focus"
	ActivityBlur      ActivityType = "blur"
	ActivityKeystroke ActivityType = "keystroke"
	ActivityRunCode   ActivityType = "run_code"
	ActivityNavigate  ActivityType = "navigate"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityStart, ActivitySubmit, ActivityFocus, ActivityBlur,
		ActivityKeystroke, ActivityRunCode, ActivityNavigate:
		return true
	}
	return false
}

// ActivityEvent 考试过程行为日志，用于事后分析
type ActivityEvent struct {
	UUIDBase

	SubmissionID uint            `gorm:"index;type:bigint unsigned;not null" json:"submissionId"`
	Type         ActivityType    `gorm:"size:20;not null" json:"type"`
	Timestamp    time.Time       `gorm:"not null" json:"timestamp"`
	Data         json.RawMessage `gorm:"type:json" json:"data,omitempty"`
}

func (ActivityEvent) TableName() string {
	return "submission_activity_events"
}
