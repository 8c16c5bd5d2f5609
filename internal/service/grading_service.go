package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"proctorx_backend/internal/config"
	"proctorx_backend/internal/model"
)

// GradeResult is the outcome of executing one answer against its question's
// test cases.
type GradeResult struct {
	Score       int                    `json:"score"`
	TestResults []model.TestCaseResult `json:"testResults"`
}

// GradingEngine executes candidate code against a question's test cases.
type GradingEngine interface {
	Grade(ctx context.Context, question *model.Question, code, language string) (*GradeResult, error)
}

// GradingService 评测服务，引擎可配置
type GradingService struct {
	Engine GradingEngine
}

func NewGradingService(cfg *config.GradingConfig) *GradingService {
	var engine GradingEngine
	switch cfg.Engine {
	case "remote":
		engine = &RemoteGradingEngine{
			URL:    cfg.URL,
			APIKey: cfg.APIKey,
			Client: &http.Client{Timeout: 30 * time.Second},
		}
	default:
		engine = NewSimulatedGradingEngine(time.Now().UnixNano())
	}
	return &GradingService{Engine: engine}
}

func (s *GradingService) Grade(ctx context.Context, question *model.Question, code, language string) (*GradeResult, error) {
	return s.Engine.Grade(ctx, question, code, language)
}

// SimulatedGradingEngine fakes sandbox execution for environments without a
// code runner. Empty code always scores zero; otherwise each test case
// passes with fixed probability and the score is the weighted pass ratio
// rounded to the question's max score.
// Grade 会被多个交卷请求并发调用，rand.Rand 不是并发安全的，要加锁。
type SimulatedGradingEngine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulatedGradingEngine(seed int64) *SimulatedGradingEngine {
	return &SimulatedGradingEngine{rng: rand.New(rand.NewSource(seed))}
}

const simulatedPassRate = 0.7

func (e *SimulatedGradingEngine) Grade(ctx context.Context, question *model.Question, code, language string) (*GradeResult, error) {
	cases, err := question.DecodeTestCases()
	if err != nil {
		return nil, fmt.Errorf("decode test cases: %w", err)
	}

	if len(cases) == 0 || len(code) == 0 {
		return &GradeResult{Score: 0, TestResults: nil}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	results := make([]model.TestCaseResult, 0, len(cases))
	totalWeight, passedWeight := 0, 0
	for _, tc := range cases {
		weight := tc.Weight
		if weight <= 0 {
			weight = 1
		}
		totalWeight += weight

		passed := e.rng.Float64() < simulatedPassRate
		actual := tc.ExpectedOutput
		if !passed {
			actual = ""
		} else {
			passedWeight += weight
		}

		results = append(results, model.TestCaseResult{
			Passed:          passed,
			ActualOutput:    actual,
			ExecutionTimeMs: 10 + e.rng.Intn(490),
			MemoryBytes:     int64(1<<20 + e.rng.Intn(16<<20)),
		})
	}

	score := model.RoundPercent(passedWeight, totalWeight) * question.MaxScore / 100

	return &GradeResult{Score: score, TestResults: results}, nil
}

// RemoteGradingEngine delegates execution to a Judge0-style HTTP service.
type RemoteGradingEngine struct {
	URL    string
	APIKey string
	Client *http.Client
}

type remoteGradeRequest struct {
	Code      string          `json:"code"`
	Language  string          `json:"language"`
	TestCases json.RawMessage `json:"testCases"`
	MaxScore  int             `json:"maxScore"`
}

func (e *RemoteGradingEngine) Grade(ctx context.Context, question *model.Question, code, language string) (*GradeResult, error) {
	body, err := json.Marshal(remoteGradeRequest{
		Code:      code,
		Language:  language,
		TestCases: question.TestCases,
		MaxScore:  question.MaxScore,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.APIKey != "" {
		req.Header.Set("X-Api-Key", e.APIKey)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("grading engine returned %d", resp.StatusCode)
	}

	var result GradeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}
