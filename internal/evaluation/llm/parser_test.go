package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseContent_ValidJSON(t *testing.T) {
	outcome := parseContent(`{"cv_match_rate": 85.5, "cv_feedback": "solid backend skills"}`, []string{"cv_match_rate", "cv_feedback"})

	assert.Equal(t, ModeDecoded, outcome.Mode)
	assert.Equal(t, 85.5, outcome.Fields["cv_match_rate"])
	assert.Equal(t, "solid backend skills", outcome.Fields["cv_feedback"])
}

func TestParseContent_JSONWithSurroundingWhitespace(t *testing.T) {
	outcome := parseContent("\n  {\"project_score\": 4}  \n", []string{"project_score"})

	assert.Equal(t, ModeDecoded, outcome.Mode)
	assert.Equal(t, float64(4), outcome.Fields["project_score"])
}

func TestParseContent_NonObjectJSON(t *testing.T) {
	outcome := parseContent(`"just a sentence"`, []string{"overall_summary"})

	assert.Equal(t, ModeDecoded, outcome.Mode)
	assert.Equal(t, "just a sentence", outcome.Fields["text"])
}

func TestParseContent_NumericExtraction(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "colon separator", content: "cv_match_rate: 82.5 based on the rubric"},
		{name: "equals separator", content: "cv_match_rate = 82.5"},
		{name: "dash separator", content: "cv_match_rate - 82.5"},
		{name: "quoted number", content: `The "cv_match_rate": "82.5" overall`},
		{name: "quoted key unquoted number", content: `Based on my analysis, "cv_match_rate": 82.5 overall.`},
		{name: "mixed case key", content: "CV_Match_Rate: 82.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := parseContent(tt.content, []string{"cv_match_rate"})

			assert.Equal(t, ModeExtracted, outcome.Mode)
			assert.Equal(t, "82.5", outcome.Fields["cv_match_rate"])
		})
	}
}

func TestParseContent_QuotedStringExtraction(t *testing.T) {
	content := `Here is my assessment: "cv_feedback": "strong fundamentals, weak AI exposure" end`

	outcome := parseContent(content, []string{"cv_match_rate", "cv_feedback"})

	assert.Equal(t, ModeExtracted, outcome.Mode)
	assert.Equal(t, "strong fundamentals, weak AI exposure", outcome.Fields["cv_feedback"])
	assert.NotContains(t, outcome.Fields, "cv_match_rate")
}

func TestParseContent_QuotedFieldsInFreeText(t *testing.T) {
	content := `"project_score": "88" and "project_feedback": "good work"`

	outcome := parseContent(content, []string{"project_score", "project_feedback"})

	assert.Equal(t, ModeExtracted, outcome.Mode)
	assert.Equal(t, "88", outcome.Fields["project_score"])
	assert.Equal(t, "good work", outcome.Fields["project_feedback"])
}

func TestParseContent_NothingMatches(t *testing.T) {
	outcome := parseContent("  I cannot produce a score for this input.  ", []string{"project_score"})

	assert.Equal(t, ModeUnparsed, outcome.Mode)
	assert.Equal(t, "I cannot produce a score for this input.", outcome.Fields["text"])
}

func TestParseContent_EmptyContent(t *testing.T) {
	outcome := parseContent("", []string{"overall_summary"})

	assert.Equal(t, ModeUnparsed, outcome.Mode)
	assert.Equal(t, "", outcome.Fields["text"])
}
