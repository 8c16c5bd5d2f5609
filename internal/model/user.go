package model

import (
	"time"
)

type UserRole string

const (
	Student   UserRole = "student"
	Recruiter UserRole = "recruiter"
	Admin     UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name     string   `gorm:"size:100;not null" json:"name"`
	Email    string   `gorm:"size:100;unique;not null" json:"email"`
	Password string   `gorm:"size:100;not null" json:"-"`
	Role     UserRole `gorm:"type:enum('student','recruiter','admin');default:'student'" json:"role"`

	// Recruiter-only profile fields, required at signup when role=recruiter.
	Company  string `gorm:"size:200" json:"company,omitempty"`
	JobTitle string `gorm:"size:100" json:"jobTitle,omitempty"`

	IsActive  bool      `gorm:"default:true" json:"isActive"`
	LastLogin time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastLogin"`
	LastSeen  time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}
