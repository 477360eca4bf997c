package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-match-go/internal/types"
)

func TestChunkTextSplitsOnSectionHeadings(t *testing.T) {
	chunker := NewSectionChunker()

	chunks := chunker.ChunkText("Experience\nBuilt APIs with Node.js.\nSkills\nSQL, Docker.")

	require.Len(t, chunks, 2)
	assert.Equal(t, types.SectionExperience, chunks[0].Section)
	assert.Equal(t, "Experience\nBuilt APIs with Node.js.", chunks[0].Content)
	assert.Equal(t, types.SectionSkills, chunks[1].Section)
	assert.Equal(t, "Skills\nSQL, Docker.", chunks[1].Content)
	assert.Equal(t, 0, chunks[0].ChunkID)
	assert.Equal(t, 1, chunks[1].ChunkID)
}

func TestChunkTextNoMarkersProducesSingleOtherChunk(t *testing.T) {
	chunker := NewSectionChunker()

	text := "Just a plain paragraph about someone.\nNothing that looks like a heading."
	chunks := chunker.ChunkText(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, types.SectionOther, chunks[0].Section)
	assert.Equal(t, text, chunks[0].Content)
}

func TestChunkTextEmptyInput(t *testing.T) {
	chunker := NewSectionChunker()

	assert.Empty(t, chunker.ChunkText(""))
	assert.Empty(t, chunker.ChunkText("   \r\n \n "))
}

func TestChunkTextArabicHeadings(t *testing.T) {
	chunker := NewSectionChunker()

	chunks := chunker.ChunkText("خبرة\nعملت في تطوير الأنظمة.\nمهارات\nبرمجة وقواعد بيانات.")

	require.Len(t, chunks, 2)
	assert.Equal(t, types.SectionExperience, chunks[0].Section)
	assert.Equal(t, types.SectionSkills, chunks[1].Section)
}

func TestChunkTextPreambleGoesToOther(t *testing.T) {
	chunker := NewSectionChunker()

	chunks := chunker.ChunkText("Jane Doe\njane@example.com\nExperience\nBuilt things.")

	require.Len(t, chunks, 2)
	assert.Equal(t, types.SectionOther, chunks[0].Section)
	assert.Equal(t, "Jane Doe\njane@example.com", chunks[0].Content)
	assert.Equal(t, types.SectionExperience, chunks[1].Section)
}

func TestChunkTextDuplicateHeadingsMerge(t *testing.T) {
	chunker := NewSectionChunker()

	chunks := chunker.ChunkText("Experience\nFirst role.\nSkills\nGo.\nExperience\nSecond role.")

	// Both experience segments land in the first-seen experience section.
	require.Len(t, chunks, 2)
	assert.Equal(t, types.SectionExperience, chunks[0].Section)
	assert.Equal(t, "Experience\nFirst role.\nExperience\nSecond role.", chunks[0].Content)
	assert.Equal(t, types.SectionSkills, chunks[1].Section)
	assert.Equal(t, "Skills\nGo.", chunks[1].Content)
}

func TestChunkTextOversizedSectionIsWindowed(t *testing.T) {
	chunker := NewSectionChunker(WithTargetSize(100))

	body := strings.Repeat("x", 450)
	chunks := chunker.ChunkText("Experience\n" + body)

	// 461 chars > 100+200, so fixed 100-rune windows with a short tail.
	require.Len(t, chunks, 5)
	for _, c := range chunks {
		assert.Equal(t, types.SectionExperience, c.Section)
		assert.LessOrEqual(t, len([]rune(c.Content)), 100)
	}
	assert.Len(t, []rune(chunks[0].Content), 100)
}

func TestChunkTextSectionReconstruction(t *testing.T) {
	chunker := NewSectionChunker(WithTargetSize(50))

	text := "Summary\nShort intro line.\nExperience\n" + strings.Repeat("abcde ", 60) + "\nSkills\nGo, SQL."
	chunks := chunker.ChunkText(text)
	require.NotEmpty(t, chunks)

	rebuilt := map[types.SectionType]string{}
	var order []types.SectionType
	for _, c := range chunks {
		if _, ok := rebuilt[c.Section]; !ok {
			order = append(order, c.Section)
		}
		rebuilt[c.Section] += c.Content
	}

	// Concatenating each section's chunks in emitted order reproduces the
	// normalized input exactly.
	var full []string
	for _, key := range order {
		full = append(full, rebuilt[key])
	}
	assert.Equal(t, NormalizeText(text), strings.Join(full, "\n"))
}

func TestChunkTextNormalizesLineEndings(t *testing.T) {
	chunker := NewSectionChunker()

	chunks := chunker.ChunkText("Skills\r\nGo, SQL.\r\n")

	require.Len(t, chunks, 1)
	assert.Equal(t, "Skills\nGo, SQL.", chunks[0].Content)
}

func TestChunkTextSingleCharacterSection(t *testing.T) {
	chunker := NewSectionChunker()

	chunks := chunker.ChunkText("x")

	require.Len(t, chunks, 1)
	assert.Equal(t, types.SectionOther, chunks[0].Section)
	assert.Equal(t, "x", chunks[0].Content)
}
