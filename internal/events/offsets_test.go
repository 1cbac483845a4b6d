package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luhive/luhive-backend/pkg/enums"
)

func TestParseOffset(t *testing.T) {
	cases := map[string]time.Duration{
		"30m": 30 * time.Minute,
		"1h":  time.Hour,
		"2D":  48 * time.Hour,
		"1w":  7 * 24 * time.Hour,
	}
	for in, want := range cases {
		got, err := ParseOffset(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "h", "0h", "-1h", "1y", "abc", "5w"} {
		_, err := ParseOffset(bad)
		assert.Error(t, err, bad)
	}
}

func TestNormalizeOffsetsDeduplicates(t *testing.T) {
	got, err := NormalizeOffsets([]string{"1H", "1h", " 1d "})
	require.NoError(t, err)
	assert.Equal(t, []string{"1h", "1d"}, got)

	_, err = NormalizeOffsets([]string{"soon"})
	assert.Error(t, err)
}

func TestHumanizeLead(t *testing.T) {
	assert.Equal(t, "in 1 hour", HumanizeLead(time.Hour))
	assert.Equal(t, "in 30 minutes", HumanizeLead(30*time.Minute))
	assert.Equal(t, "in 2 days", HumanizeLead(47*time.Hour))
	assert.Equal(t, "now", HumanizeLead(0))
}

func TestValidateQuestions(t *testing.T) {
	five := 5
	zero := 0
	ok := []Question{
		{ID: "company", Label: "Company", Type: enums.QuestionTypeText, MaxLength: &five},
		{ID: "size", Label: "T-shirt", Type: enums.QuestionTypeSelect, Options: []string{"S", "M"}},
	}
	require.NoError(t, ValidateQuestions(ok))

	bad := map[string][]Question{
		"missing id":     {{Label: "x", Type: enums.QuestionTypeText}},
		"duplicate id":   {{ID: "a", Label: "x", Type: enums.QuestionTypeText}, {ID: "a", Label: "y", Type: enums.QuestionTypeText}},
		"missing label":  {{ID: "a", Type: enums.QuestionTypeText}},
		"unknown type":   {{ID: "a", Label: "x", Type: "date"}},
		"select options": {{ID: "a", Label: "x", Type: enums.QuestionTypeSelect}},
		"max length":     {{ID: "a", Label: "x", Type: enums.QuestionTypeText, MaxLength: &zero}},
	}
	for name, qs := range bad {
		assert.Error(t, ValidateQuestions(qs), name)
	}
}

func TestParseQuestionsRoundTrip(t *testing.T) {
	raw, err := encodeQuestions([]Question{{ID: "a", Label: "A", Type: enums.QuestionTypePhone, Required: true}})
	require.NoError(t, err)
	qs, err := ParseQuestions(raw)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.True(t, qs[0].Required)

	none, err := ParseQuestions(nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
