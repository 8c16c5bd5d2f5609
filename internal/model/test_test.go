package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsAccessible(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	tests := []struct {
		name string
		test Test
		want bool
	}{
		{"draft never accessible", Test{Status: TestDraft}, false},
		{"archived never accessible", Test{Status: TestArchived}, false},
		{"active without window", Test{Status: TestActive}, true},
		{"active inside window", Test{Status: TestActive, ScheduledStart: &before, ScheduledEnd: &after}, true},
		{"before scheduled start", Test{Status: TestActive, ScheduledStart: &after}, false},
		{"after scheduled end", Test{Status: TestActive, ScheduledEnd: &before}, false},
		{"only start, already passed", Test{Status: TestActive, ScheduledStart: &before}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.test.IsAccessible(now))
		})
	}
}

func TestTotalMaxScore(t *testing.T) {
	test := Test{
		Questions: []Question{
			{MaxScore: 40},
			{MaxScore: 60},
		},
	}
	assert.Equal(t, 100, test.TotalMaxScore())

	assert.Equal(t, 0, (&Test{}).TotalMaxScore())
}

func TestDecodeTestCases(t *testing.T) {
	q := Question{TestCases: []byte(`[{"input":"1 2","expectedOutput":"3","isHidden":true,"weight":2}]`)}
	cases, err := q.DecodeTestCases()
	assert.NoError(t, err)
	assert.Len(t, cases, 1)
	assert.True(t, cases[0].IsHidden)
	assert.Equal(t, 2, cases[0].Weight)

	empty := Question{}
	cases, err = empty.DecodeTestCases()
	assert.NoError(t, err)
	assert.Nil(t, cases)

	bad := Question{TestCases: []byte(`{not json`)}
	_, err = bad.DecodeTestCases()
	assert.Error(t, err)
}
