package unitizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agenthands/evidence/internal/config"
	"github.com/agenthands/evidence/internal/core/model"
)

func testConfig() config.UnitizerConfig {
	return config.UnitizerConfig{
		MinSize:       200,
		MaxSize:       400,
		OverlapSize:   50,
		PreferredSize: 300,
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, `"Hello" world foo`, Normalize("“Hello”   world\tfoo"))
	assert.Equal(t, "line one\nline two", Normalize("line one\r\nline two\r\n"))
	assert.Equal(t, "it's fine", Normalize("it’s fine"))
	assert.Equal(t, "", Normalize("   \t  "))
}

func TestUnitizeShortText(t *testing.T) {
	u := NewUnitizer(testConfig())
	text := "A single short paragraph that fits in one unit."

	units := u.Unitize(text)

	assert.Len(t, units, 1)
	assert.Equal(t, 0, units[0].StartIndex)
	assert.Equal(t, len(text), units[0].EndIndex)
	assert.Equal(t, text, units[0].Snippet)
	assert.True(t, units[0].HasCompleteStart)
	assert.True(t, units[0].HasCompleteEnd)
	assert.Equal(t, 9, units[0].WordCount)
	assert.Equal(t, 1, units[0].SentenceCount)
}

func TestUnitizeEmptyText(t *testing.T) {
	u := NewUnitizer(testConfig())
	assert.Nil(t, u.Unitize(""))
	assert.Nil(t, u.Unitize("   \n\t  "))
}

func TestUnitizeTilesLongText(t *testing.T) {
	u := NewUnitizer(testConfig())
	text := strings.TrimSpace(strings.Repeat("This is a simple sentence about evidence processing. ", 25))
	norm := Normalize(text)

	units := u.Unitize(text)
	assert.Greater(t, len(units), 1)

	// Tiling: starts at 0, ends at len, no gaps, bounded overlap.
	assert.Equal(t, 0, units[0].StartIndex)
	assert.Equal(t, len(norm), units[len(units)-1].EndIndex)
	for i, un := range units {
		assert.LessOrEqual(t, un.EndIndex-un.StartIndex, u.Config.MaxSize)
		if i > 0 {
			overlap := units[i-1].EndIndex - un.StartIndex
			assert.GreaterOrEqual(t, overlap, 0, "no gap between units %d and %d", i-1, i)
			assert.LessOrEqual(t, overlap, u.Config.OverlapSize)
		}
	}

	v := u.Validate(units, len(norm))
	assert.True(t, v.Valid)
	assert.Empty(t, v.Errors)
	assert.GreaterOrEqual(t, v.CoverageRatio, 1.0)
}

func TestUnitizePrefersSentenceBoundaries(t *testing.T) {
	u := NewUnitizer(testConfig())
	text := strings.TrimSpace(strings.Repeat("Short clear sentences work. ", 40))

	units := u.Unitize(text)
	assert.Greater(t, len(units), 1)

	for i, un := range units {
		assert.True(t, un.HasCompleteEnd, "unit %d should end on a sentence boundary", i)
		assert.True(t, un.HasCompleteStart, "unit %d should start after a sentence boundary", i)
		assert.GreaterOrEqual(t, un.SentenceCount, 1)
	}
}

func TestUnitizeOffsetsIndexNormalizedText(t *testing.T) {
	u := NewUnitizer(testConfig())
	text := strings.TrimSpace(strings.Repeat("Offsets must always index into the normalized source text. ", 20))
	norm := Normalize(text)

	for _, un := range u.Unitize(text) {
		assert.Equal(t, norm[un.StartIndex:un.EndIndex], un.Snippet)
	}
}

func TestValidateReportsGaps(t *testing.T) {
	u := NewUnitizer(testConfig())
	units := []model.TextUnit{
		{StartIndex: 0, EndIndex: 300},
		{StartIndex: 350, EndIndex: 600}, // gap of 50
	}

	v := u.Validate(units, 600)
	assert.False(t, v.Valid)
	assert.NotEmpty(t, v.Errors)
}

func TestValidateReportsOversizeUnits(t *testing.T) {
	u := NewUnitizer(testConfig())
	units := []model.TextUnit{
		{StartIndex: 0, EndIndex: 450}, // above MaxSize
	}

	v := u.Validate(units, 450)
	assert.False(t, v.Valid)
	assert.NotEmpty(t, v.Errors)
}

func TestValidateUndersizeIsOnlyWarning(t *testing.T) {
	u := NewUnitizer(testConfig())
	units := []model.TextUnit{
		{StartIndex: 0, EndIndex: 120}, // below MinSize
	}

	v := u.Validate(units, 120)
	assert.True(t, v.Valid)
	assert.Empty(t, v.Errors)
	assert.NotEmpty(t, v.Warnings)
}

func TestValidateEmpty(t *testing.T) {
	u := NewUnitizer(testConfig())

	assert.True(t, u.Validate(nil, 0).Valid)
	assert.False(t, u.Validate(nil, 100).Valid)
}

func TestCountSentences(t *testing.T) {
	assert.Equal(t, 2, countSentences("One here. Two there."))
	assert.Equal(t, 1, countSentences("no terminator at all"))
	assert.Equal(t, 0, countSentences("   "))
}
