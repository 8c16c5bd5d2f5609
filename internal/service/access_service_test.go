package service

import (
	"testing"
	"time"

	"proctorx_backend/internal/model"
	"proctorx_backend/internal/util"

	"github.com/stretchr/testify/assert"
)

func claimsFor(id uint, role model.UserRole) *util.Claims {
	return &util.Claims{UserID: id, Role: role}
}

func TestCanViewTest(t *testing.T) {
	access := NewAccessService()
	test := &model.Test{BaseModel: model.BaseModel{ID: 1}, CreatorID: 10, Status: model.TestDraft}

	assert.NoError(t, access.CanViewTest(claimsFor(10, model.Recruiter), test))
	assert.NoError(t, access.CanViewTest(claimsFor(99, model.Admin), test))

	// 考生不能看到草稿，且得到404而不是403
	err := access.CanViewTest(claimsFor(20, model.Student), test)
	assert.ErrorIs(t, err, util.ErrNotFound)

	test.Status = model.TestActive
	assert.NoError(t, access.CanViewTest(claimsFor(20, model.Student), test))

	// 其他招聘方无权查看
	err = access.CanViewTest(claimsFor(11, model.Recruiter), test)
	assert.ErrorIs(t, err, util.ErrForbidden)

	assert.ErrorIs(t, access.CanViewTest(nil, test), util.ErrUnauthorized)
}

func TestCanMutateTest(t *testing.T) {
	access := NewAccessService()
	test := &model.Test{CreatorID: 10}

	assert.NoError(t, access.CanMutateTest(claimsFor(10, model.Recruiter), test))
	assert.NoError(t, access.CanMutateTest(claimsFor(1, model.Admin), test))
	assert.ErrorIs(t, access.CanMutateTest(claimsFor(11, model.Recruiter), test), util.ErrForbidden)
	assert.ErrorIs(t, access.CanMutateTest(claimsFor(10, model.Student), test), util.ErrForbidden)
}

func TestCanViewSubmission(t *testing.T) {
	access := NewAccessService()
	sub := &model.Submission{
		StudentID: 20,
		Test:      &model.Test{CreatorID: 10},
	}

	assert.NoError(t, access.CanViewSubmission(claimsFor(20, model.Student), sub))
	assert.NoError(t, access.CanViewSubmission(claimsFor(10, model.Recruiter), sub))
	assert.NoError(t, access.CanViewSubmission(claimsFor(1, model.Admin), sub))
	assert.ErrorIs(t, access.CanViewSubmission(claimsFor(21, model.Student), sub), util.ErrForbidden)
	assert.ErrorIs(t, access.CanViewSubmission(claimsFor(11, model.Recruiter), sub), util.ErrForbidden)
}

func TestCanMutateSubmission(t *testing.T) {
	access := NewAccessService()

	open := &model.Submission{StudentID: 20, Status: model.SubmissionInProgress}
	assert.NoError(t, access.CanMutateSubmission(claimsFor(20, model.Student), open))
	assert.ErrorIs(t, access.CanMutateSubmission(claimsFor(21, model.Student), open), util.ErrForbidden)

	// 考中被标记仍可继续
	flaggedMidExam := &model.Submission{StudentID: 20, Status: model.SubmissionFlagged}
	assert.NoError(t, access.CanMutateSubmission(claimsFor(20, model.Student), flaggedMidExam))

	// 已交卷后不可再写
	now := time.Now()
	handedIn := &model.Submission{StudentID: 20, Status: model.SubmissionCompleted, SubmittedAt: &now}
	assert.ErrorIs(t, access.CanMutateSubmission(claimsFor(20, model.Student), handedIn), util.ErrSubmissionClosed)

	terminal := &model.Submission{StudentID: 20, Status: model.SubmissionDisqualified}
	assert.ErrorIs(t, access.CanMutateSubmission(claimsFor(20, model.Student), terminal), util.ErrSubmissionClosed)
}

func TestCanReviewSubmission(t *testing.T) {
	access := NewAccessService()
	now := time.Now()
	sub := &model.Submission{
		StudentID:   20,
		Status:      model.SubmissionCompleted,
		SubmittedAt: &now,
		Test:        &model.Test{CreatorID: 10},
	}

	assert.NoError(t, access.CanReviewSubmission(claimsFor(10, model.Recruiter), sub))
	assert.NoError(t, access.CanReviewSubmission(claimsFor(1, model.Admin), sub))
	assert.ErrorIs(t, access.CanReviewSubmission(claimsFor(11, model.Recruiter), sub), util.ErrForbidden)
	assert.ErrorIs(t, access.CanReviewSubmission(claimsFor(20, model.Student), sub), util.ErrForbidden)

	// 进行中的提交不能评审
	inProgress := &model.Submission{Status: model.SubmissionInProgress, Test: &model.Test{CreatorID: 10}}
	assert.ErrorIs(t, access.CanReviewSubmission(claimsFor(10, model.Recruiter), inProgress), util.ErrConflict)
}
