package service

import (
	"proctorx_backend/internal/model"
	"proctorx_backend/internal/repository"
	"proctorx_backend/internal/util"
)

type UserService struct {
	UserRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{UserRepo: userRepo}
}

func (s *UserService) GetByID(id uint) (*model.User, error) {
	return s.UserRepo.FindByID(id)
}

type UpdateProfileInput struct {
	Name     string `json:"name" binding:"omitempty,min=2,max=100"`
	Company  string `json:"company" binding:"omitempty,max=200"`
	JobTitle string `json:"jobTitle" binding:"omitempty,max=100"`
}

// UpdateProfile 更新个人资料；公司与职位仅招聘方可改
func (s *UserService) UpdateProfile(userID uint, input UpdateProfileInput) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		user.Name = input.Name
	}
	if user.Role == model.Recruiter {
		if input.Company != "" {
			user.Company = input.Company
		}
		if input.JobTitle != "" {
			user.JobTitle = input.JobTitle
		}
	}

	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// List 管理端用户列表
func (s *UserService) List(page, limit int, role model.UserRole) ([]model.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.UserRepo.List(page, limit, role)
}

// SetActive 管理端启用/停用账号；停用后登录被拒绝
func (s *UserService) SetActive(id uint, active bool) error {
	return s.UserRepo.SetActive(id, active)
}

// 防止管理员误停自己的账号
func (s *UserService) Deactivate(actorID, targetID uint) error {
	if actorID == targetID {
		return util.ErrValidation
	}
	return s.UserRepo.SetActive(targetID, false)
}
