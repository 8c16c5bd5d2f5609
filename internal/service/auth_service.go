package service

import (
	"errors"
	"strings"
	"time"

	"proctorx_backend/internal/config"
	"proctorx_backend/internal/model"
	"proctorx_backend/internal/repository"
	"proctorx_backend/internal/util"
	"proctorx_backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	UserRepo *repository.UserRepository
	Config   *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{UserRepo: userRepo, Config: cfg}
}

type RegisterInput struct {
	Name     string         `json:"name" binding:"required,min=2,max=100"`
	Email    string         `json:"email" binding:"required,email"`
	Password string         `json:"password" binding:"required,min=8"`
	Role     model.UserRole `json:"role" binding:"omitempty,oneof=student recruiter"`
	Company  string         `json:"company"`
	JobTitle string         `json:"jobTitle"`
}

type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register 注册新用户；招聘方必须填写公司与职位
func (s *AuthService) Register(input RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	role := input.Role
	if role == "" {
		role = model.Student
	}
	if role == model.Recruiter && (input.Company == "" || input.JobTitle == "") {
		return nil, util.ErrValidation
	}

	exists, err := s.UserRepo.ExistsByEmail(email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrEmailRegistered
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:     input.Name,
		Email:    email,
		Password: string(hashed),
		Role:     role,
		IsActive: true,
	}
	if role == model.Recruiter {
		user.Company = input.Company
		user.JobTitle = input.JobTitle
	}

	if err := s.UserRepo.Create(user); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, util.ErrEmailRegistered
		}
		return nil, err
	}

	token, err := util.GenerateJWT(user, s.Config.JWT.Secret, s.Config.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("user registered", zap.Uint("userId", user.ID), zap.String("role", string(user.Role)))
	return &AuthResult{Token: token, User: user}, nil
}

// Login 登录；凭证错误与账号不存在返回同一错误，避免枚举邮箱
func (s *AuthService) Login(email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.UserRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return nil, util.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, util.ErrAccountDeactivated
	}

	now := time.Now()
	if err := s.UserRepo.TouchLastLogin(user.ID, now); err != nil {
		logger.Log.Warn("failed to update last login", zap.Error(err), zap.Uint("userId", user.ID))
	}
	user.LastLogin = now

	token, err := util.GenerateJWT(user, s.Config.JWT.Secret, s.Config.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}

	return &AuthResult{Token: token, User: user}, nil
}

// Me 返回当前用户资料
func (s *AuthService) Me(userID uint) (*model.User, error) {
	return s.UserRepo.FindByID(userID)
}
