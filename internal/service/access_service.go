package service

import (
	"proctorx_backend/internal/model"
	"proctorx_backend/internal/util"
)

// AccessService centralizes resource-level authorization. Route-level role
// checks only decide which endpoints exist; every handler that touches a
// specific test or submission goes through here so ownership rules live in
// exactly one place.
type AccessService struct{}

func NewAccessService() *AccessService {
	return &AccessService{}
}

// CanViewTest: 创建者与管理员可见全部；考生只能看到开放中的测试
func (s *AccessService) CanViewTest(claims *util.Claims, test *model.Test) error {
	if claims == nil {
		return util.ErrUnauthorized
	}
	if claims.Role == model.Admin || test.CreatorID == claims.UserID {
		return nil
	}
	if claims.Role == model.Student {
		if test.Status == model.TestActive {
			return nil
		}
		// 不暴露他人草稿/归档测试的存在
		return util.ErrNotFound
	}
	return util.ErrForbidden
}

// CanMutateTest: 仅创建者本人或管理员
func (s *AccessService) CanMutateTest(claims *util.Claims, test *model.Test) error {
	if claims == nil {
		return util.ErrUnauthorized
	}
	if claims.Role == model.Admin {
		return nil
	}
	if claims.Role == model.Recruiter && test.CreatorID == claims.UserID {
		return nil
	}
	return util.ErrForbidden
}

// CanViewSubmission: 考生本人、出题招聘方、管理员
func (s *AccessService) CanViewSubmission(claims *util.Claims, sub *model.Submission) error {
	if claims == nil {
		return util.ErrUnauthorized
	}
	if claims.Role == model.Admin {
		return nil
	}
	if sub.StudentID == claims.UserID {
		return nil
	}
	if claims.Role == model.Recruiter && sub.Test != nil && sub.Test.CreatorID == claims.UserID {
		return nil
	}
	return util.ErrForbidden
}

// CanMutateSubmission: 仅考生本人可写（答题、上报违规、行为日志）。
// 考中被自动标记（flagged）仍可继续作答，交卷或终态后一律拒绝。
func (s *AccessService) CanMutateSubmission(claims *util.Claims, sub *model.Submission) error {
	if claims == nil {
		return util.ErrUnauthorized
	}
	if sub.StudentID != claims.UserID {
		return util.ErrForbidden
	}
	if sub.IsTerminal() || sub.SubmittedAt != nil {
		return util.ErrSubmissionClosed
	}
	return nil
}

// CanReviewSubmission: 出题招聘方或管理员，且提交已离开进行中状态
func (s *AccessService) CanReviewSubmission(claims *util.Claims, sub *model.Submission) error {
	if claims == nil {
		return util.ErrUnauthorized
	}
	if claims.Role != model.Admin {
		if claims.Role != model.Recruiter {
			return util.ErrForbidden
		}
		if sub.Test == nil || sub.Test.CreatorID != claims.UserID {
			return util.ErrForbidden
		}
	}
	if sub.Status == model.SubmissionInProgress {
		return util.ErrConflict
	}
	return nil
}
