package service

import (
	"regexp"
	"testing"

	"proctorx_backend/internal/model"
	"proctorx_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccessCodeShape(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := NewAccessCode()
		require.NoError(t, err)
		assert.True(t, pattern.MatchString(code), "unexpected code %q", code)
		seen[code] = true
	}

	// 36^8 的空间里100个码撞出重复基本等于实现坏了
	assert.Greater(t, len(seen), 95)
}

func TestNormalizeAccessCode(t *testing.T) {
	assert.Equal(t, "AB12CD34", NormalizeAccessCode("ab12cd34"))
	assert.Equal(t, "AB12CD34", NormalizeAccessCode("  Ab12Cd34 "))
	assert.Equal(t, "", NormalizeAccessCode("   "))
}

func TestPublishable(t *testing.T) {
	// 归档是终态，即使有题也不允许再发布
	archived := &model.Test{Status: model.TestArchived, Questions: []model.Question{{}}}
	assert.ErrorIs(t, publishable(archived), util.ErrTestArchived)

	empty := &model.Test{Status: model.TestDraft}
	assert.ErrorIs(t, publishable(empty), util.ErrTestHasNoQuestions)

	draft := &model.Test{Status: model.TestDraft, Questions: []model.Question{{}}}
	assert.NoError(t, publishable(draft))

	// 重复发布幂等，题目未预加载也放行
	active := &model.Test{Status: model.TestActive}
	assert.NoError(t, publishable(active))
}
