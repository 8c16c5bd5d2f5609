package service

import (
	"testing"

	"proctorx_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestSubmitStatusViolationThreshold(t *testing.T) {
	assert.Equal(t, model.SubmissionCompleted, submitStatus(model.SubmissionInProgress, 0))
	// 阈值是5：4条违规照常完成，第5条起交卷即标记
	assert.Equal(t, model.SubmissionCompleted, submitStatus(model.SubmissionInProgress, model.ViolationFlagThreshold-1))
	assert.Equal(t, model.SubmissionFlagged, submitStatus(model.SubmissionInProgress, model.ViolationFlagThreshold))
	assert.Equal(t, model.SubmissionFlagged, submitStatus(model.SubmissionInProgress, 9))
}

func TestSubmitStatusKeepsEscalatedState(t *testing.T) {
	// 考中已被标记的交卷后保持标记，不会被降回完成
	assert.Equal(t, model.SubmissionFlagged, submitStatus(model.SubmissionFlagged, 0))
	assert.Equal(t, model.SubmissionDisqualified, submitStatus(model.SubmissionDisqualified, 0))
}
