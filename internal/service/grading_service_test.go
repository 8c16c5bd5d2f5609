package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"proctorx_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func questionWithCases(t *testing.T, maxScore int, cases []model.TestCase) *model.Question {
	t.Helper()
	raw, err := json.Marshal(cases)
	require.NoError(t, err)
	return &model.Question{MaxScore: maxScore, TestCases: raw}
}

func TestSimulatedGradingEmptyCode(t *testing.T) {
	engine := NewSimulatedGradingEngine(1)
	q := questionWithCases(t, 100, []model.TestCase{{Input: "1", ExpectedOutput: "1"}})

	result, err := engine.Grade(context.Background(), q, "", "go")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Score)
	assert.Nil(t, result.TestResults)
}

func TestSimulatedGradingNoCases(t *testing.T) {
	engine := NewSimulatedGradingEngine(1)
	q := &model.Question{MaxScore: 100}

	result, err := engine.Grade(context.Background(), q, "print(1)", "python")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Score)
}

func TestSimulatedGradingScoreBounds(t *testing.T) {
	engine := NewSimulatedGradingEngine(42)
	q := questionWithCases(t, 60, []model.TestCase{
		{Input: "a", ExpectedOutput: "1", Weight: 1},
		{Input: "b", ExpectedOutput: "2", Weight: 1},
		{Input: "c", ExpectedOutput: "3", Weight: 3},
	})

	for i := 0; i < 50; i++ {
		result, err := engine.Grade(context.Background(), q, "solution()", "go")
		require.NoError(t, err)

		assert.GreaterOrEqual(t, result.Score, 0)
		assert.LessOrEqual(t, result.Score, 60)
		require.Len(t, result.TestResults, 3)

		// 通过的用例必须带实际输出
		for j, tr := range result.TestResults {
			if tr.Passed {
				assert.NotEmpty(t, tr.ActualOutput, "case %d", j)
			}
		}
	}
}

func TestSimulatedGradingDeterministicWithSeed(t *testing.T) {
	q := questionWithCases(t, 100, []model.TestCase{
		{Input: "a", ExpectedOutput: "1"},
		{Input: "b", ExpectedOutput: "2"},
	})

	first, err := NewSimulatedGradingEngine(7).Grade(context.Background(), q, "code", "go")
	require.NoError(t, err)
	second, err := NewSimulatedGradingEngine(7).Grade(context.Background(), q, "code", "go")
	require.NoError(t, err)

	assert.Equal(t, first.Score, second.Score)
	require.Equal(t, len(first.TestResults), len(second.TestResults))
	for i := range first.TestResults {
		assert.Equal(t, first.TestResults[i].Passed, second.TestResults[i].Passed)
	}
}

func TestSimulatedGradingBadCaseJSON(t *testing.T) {
	engine := NewSimulatedGradingEngine(1)
	q := &model.Question{MaxScore: 100, TestCases: []byte("{broken")}

	_, err := engine.Grade(context.Background(), q, "code", "go")
	assert.Error(t, err)
}

func TestSimulatedSimilarityBounds(t *testing.T) {
	engine := NewSimulatedSimilarityEngine(3)

	score, err := engine.Score(context.Background(), "", "go")
	require.NoError(t, err)
	assert.Equal(t, 0, score)

	for i := 0; i < 100; i++ {
		score, err := engine.Score(context.Background(), "some code", "go")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 60)
	}
}

func TestSimulatedGradingConcurrentUse(t *testing.T) {
	engine := NewSimulatedGradingEngine(11)
	q := questionWithCases(t, 100, []model.TestCase{
		{Input: "a", ExpectedOutput: "1"},
		{Input: "b", ExpectedOutput: "2"},
	})

	// 多个交卷请求共享同一个引擎，-race 下跑出竞争即失败
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				result, err := engine.Grade(context.Background(), q, "solution()", "go")
				assert.NoError(t, err)
				assert.LessOrEqual(t, result.Score, 100)
			}
		}()
	}
	wg.Wait()
}

func TestSimulatedSimilarityConcurrentUse(t *testing.T) {
	engine := NewSimulatedSimilarityEngine(11)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				score, err := engine.Score(context.Background(), "some code", "go")
				assert.NoError(t, err)
				assert.LessOrEqual(t, score, 60)
			}
		}()
	}
	wg.Wait()
}
