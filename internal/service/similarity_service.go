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
)

// SimilarityEngine estimates how likely a piece of code is AI-generated,
// as a 0-100 percentage.
type SimilarityEngine interface {
	Score(ctx context.Context, code, language string) (int, error)
}

// SimilarityService AI相似度检测服务
type SimilarityService struct {
	Engine SimilarityEngine
}

func NewSimilarityService(cfg *config.SimilarityConfig) *SimilarityService {
	var engine SimilarityEngine
	switch cfg.Engine {
	case "remote":
		engine = &RemoteSimilarityEngine{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Client:  &http.Client{Timeout: 20 * time.Second},
		}
	default:
		engine = NewSimulatedSimilarityEngine(time.Now().UnixNano())
	}
	return &SimilarityService{Engine: engine}
}

func (s *SimilarityService) Score(ctx context.Context, code, language string) (int, error) {
	return s.Engine.Score(ctx, code, language)
}

// SimulatedSimilarityEngine returns a uniform score in [0, 60]. Empty code
// scores zero. 交卷是并发的，rng 访问要加锁。
type SimulatedSimilarityEngine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulatedSimilarityEngine(seed int64) *SimulatedSimilarityEngine {
	return &SimulatedSimilarityEngine{rng: rand.New(rand.NewSource(seed))}
}

func (e *SimulatedSimilarityEngine) Score(ctx context.Context, code, language string) (int, error) {
	if len(code) == 0 {
		return 0, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Intn(61), nil
}

// RemoteSimilarityEngine calls an external detection API.
type RemoteSimilarityEngine struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func (e *RemoteSimilarityEngine) Score(ctx context.Context, code, language string) (int, error) {
	body, err := json.Marshal(map[string]string{
		"code":     code,
		"language": language,
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/v1/score", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.APIKey)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("similarity engine returned %d", resp.StatusCode)
	}

	var result struct {
		Similarity int `json:"similarity"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, err
	}
	return result.Similarity, nil
}
