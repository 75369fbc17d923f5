package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireval/evaluator-be/internal/api/model"
	"github.com/hireval/evaluator-be/internal/api/storage"
)

func TestDetermineDocType(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{filename: "resume.pdf", expected: "cv"},
		{filename: "jane_doe_cv.pdf", expected: "cv"},
		{filename: "project_report.pdf", expected: "project"},
		{filename: "Final-PROJECT.pdf", expected: "project"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, determineDocType(tt.filename))
		})
	}
}

func TestJobCursorRoundTrip(t *testing.T) {
	original := &storage.JobCursor{
		CreatedAt: time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		JobID:     "b7f9a8f0-0000-4000-8000-000000000001",
	}

	encoded, err := EncodeJobCursor(original)
	require.NoError(t, err)

	decoded, err := DecodeJobCursor(encoded)
	require.NoError(t, err)

	assert.True(t, original.CreatedAt.Equal(decoded.CreatedAt))
	assert.Equal(t, original.JobID, decoded.JobID)
}

func TestDecodeJobCursor_Empty(t *testing.T) {
	cursor, err := DecodeJobCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestDecodeJobCursor_Invalid(t *testing.T) {
	_, err := DecodeJobCursor("not-base64!!!")
	assert.Error(t, err)

	_, err = DecodeJobCursor("bm8tc2VwYXJhdG9y") // "no-separator"
	assert.Error(t, err)
}

func TestBuildResultDTO(t *testing.T) {
	t.Run("nil result", func(t *testing.T) {
		assert.Nil(t, buildResultDTO(nil))
	})

	t.Run("decodes raw blob", func(t *testing.T) {
		rate := 84.0
		raw := `{"cv": "raw cv", "validation": []}`
		dto := buildResultDTO(&model.Result{CVMatchRate: &rate, RawLLMResponse: &raw})

		require.NotNil(t, dto)
		assert.Equal(t, &rate, dto.CVMatchRate)

		blob, ok := dto.RawLLMResponse.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "raw cv", blob["cv"])
	})

	t.Run("keeps unparseable blob as string", func(t *testing.T) {
		raw := "not json"
		dto := buildResultDTO(&model.Result{RawLLMResponse: &raw})

		require.NotNil(t, dto)
		assert.Equal(t, "not json", dto.RawLLMResponse)
	})
}
