//go:build ignore

// 开发环境数据填充：创建演示账号与一套已发布的示例测试。
// 运行: go run scripts/seed.go
package main

import (
	"encoding/json"
	"log"

	"proctorx_backend/internal/config"
	"proctorx_backend/internal/model"
	"proctorx_backend/pkg/database"

	"golang.org/x/crypto/bcrypt"
)

func mustHash(password string) string {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	return string(hashed)
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}
	return data
}

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	cfg.ForceMigrate = true
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("init db: %v", err)
	}

	admin := model.User{
		Name:     "Admin",
		Email:    "admin@proctorx.dev",
		Password: mustHash("admin12345"),
		Role:     model.Admin,
		IsActive: true,
	}
	recruiter := model.User{
		Name:     "Demo Recruiter",
		Email:    "recruiter@proctorx.dev",
		Password: mustHash("recruiter123"),
		Role:     model.Recruiter,
		Company:  "Acme Corp",
		JobTitle: "Engineering Manager",
		IsActive: true,
	}
	student := model.User{
		Name:     "Demo Candidate",
		Email:    "candidate@proctorx.dev",
		Password: mustHash("candidate123"),
		Role:     model.Student,
		IsActive: true,
	}

	for _, u := range []*model.User{&admin, &recruiter, &student} {
		if err := db.Where("email = ?", u.Email).FirstOrCreate(u).Error; err != nil {
			log.Fatalf("seed user %s: %v", u.Email, err)
		}
	}

	code := "DEMO2024"
	test := model.Test{
		CreatorID:    recruiter.ID,
		Title:        "Backend Engineer Screening",
		Description:  "Two-question screening test for backend candidates.",
		Company:      "Acme Corp",
		Duration:     60,
		Instructions: "Solve both questions. Your session is proctored.",
		AccessCode:   &code,
		Status:       model.TestActive,
		PassingScore: 60,
		MaxAttempts:  2,
		Proctoring: model.ProctoringConfig{
			CameraRequired:     true,
			ScreenRecording:    true,
			FullscreenEnforced: true,
			TabSwitchDetection: true,
			CopyPasteDetection: true,
			AISimilarityCheck:  true,
		},
		Questions: []model.Question{
			{
				Title:       "Two Sum",
				Description: "Given an array of integers and a target, return indices of the two numbers that add up to the target.",
				Difficulty:  model.QuestionDifficultyEasy,
				MaxScore:    40,
				Order:       0,
				Languages:   mustJSON([]string{"typescript", "python", "go"}),
				TestCases: mustJSON([]model.TestCase{
					{Input: "[2,7,11,15], 9", ExpectedOutput: "[0,1]", Weight: 1},
					{Input: "[3,2,4], 6", ExpectedOutput: "[1,2]", Weight: 1},
					{Input: "[-1,0,1], 0", ExpectedOutput: "[0,2]", IsHidden: true, Weight: 2},
				}),
				Hints: mustJSON([]model.Hint{
					{Text: "A hash map gives O(n).", PenaltyPercent: 10},
				}),
			},
			{
				Title:       "LRU Cache",
				Description: "Implement an LRU cache with O(1) get and put.",
				Difficulty:  model.QuestionDifficultyMedium,
				MaxScore:    60,
				Order:       1,
				Languages:   mustJSON([]string{"typescript", "python", "go"}),
				TestCases: mustJSON([]model.TestCase{
					{Input: "put(1,1); put(2,2); get(1)", ExpectedOutput: "1", Weight: 1},
					{Input: "capacity 2, evict order", ExpectedOutput: "-1", IsHidden: true, Weight: 3},
				}),
			},
		},
	}

	if err := db.Where("access_code = ?", code).FirstOrCreate(&test).Error; err != nil {
		log.Fatalf("seed test: %v", err)
	}

	log.Printf("seed complete: test %q access code %s", test.Title, code)
}
