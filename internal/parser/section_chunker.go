package parser

import (
	"regexp"
	"sort"
	"strings"

	"cv-match-go/internal/constants"
	"cv-match-go/internal/types"
)

// chunkSlack is the tolerance above the target size before a section gets
// sliced into fixed windows. A section of target+slack characters still fits
// one chunk.
const chunkSlack = 200

// SectionMarker binds a section key to the heading pattern that introduces it.
// Patterns are data, not control flow: adding a locale means adding rows here.
type SectionMarker struct {
	Section types.SectionType
	Pattern *regexp.Regexp
}

// defaultSectionMarkers covers English and Arabic résumé headings. A marker
// line is a short heading: the keyword at line start (after optional bullet
// noise), optionally followed by a colon, and nothing else on the line.
var defaultSectionMarkers = []SectionMarker{
	{types.SectionExperience, regexp.MustCompile(`(?i)^[\s#*•\-–—>]*(work\s+experience|professional\s+experience|experience|employment(\s+history)?|الخبرة\s+العملية|الخبرات|الخبرة|خبرة)\s*[::]?\s*$`)},
	{types.SectionSkills, regexp.MustCompile(`(?i)^[\s#*•\-–—>]*(technical\s+skills|skills|المهارات|مهارات)\s*[::]?\s*$`)},
	{types.SectionEducation, regexp.MustCompile(`(?i)^[\s#*•\-–—>]*(education|academic\s+background|التعليم|تعليم|المؤهلات)\s*[::]?\s*$`)},
	{types.SectionSummary, regexp.MustCompile(`(?i)^[\s#*•\-–—>]*(summary|objective|profile|about\s+me|الملخص|ملخص|نبذة)\s*[::]?\s*$`)},
}

// SectionChunker splits raw résumé text into labeled, bounded-size chunks.
type SectionChunker struct {
	targetSize int
	markers    []SectionMarker
}

// SectionChunkerOption customizes a SectionChunker.
type SectionChunkerOption func(*SectionChunker)

// WithTargetSize overrides the default chunk size bound.
func WithTargetSize(size int) SectionChunkerOption {
	return func(c *SectionChunker) {
		if size > 0 {
			c.targetSize = size
		}
	}
}

// WithSectionMarkers replaces the default heading table.
func WithSectionMarkers(markers []SectionMarker) SectionChunkerOption {
	return func(c *SectionChunker) {
		if len(markers) > 0 {
			c.markers = markers
		}
	}
}

// NewSectionChunker builds a chunker with the default bilingual marker table
// and a 1000-character target.
func NewSectionChunker(opts ...SectionChunkerOption) *SectionChunker {
	c := &SectionChunker{
		targetSize: constants.DefaultChunkSize,
		markers:    defaultSectionMarkers,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeText folds Windows and old-Mac line endings into \n and trims
// surrounding whitespace. All chunk offsets are relative to this form.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}

type sectionText struct {
	key  types.SectionType
	text string
}

// ChunkText splits text into section-tagged chunks. Concatenating the chunks
// of one section reproduces that section's text exactly; chunk ids ascend in
// emission order so downstream tie-breaking is deterministic. Empty input
// yields no chunks.
func (c *SectionChunker) ChunkText(text string) []*types.Chunk {
	normalized := NormalizeText(text)
	if normalized == "" {
		return nil
	}

	sections := c.collectSections(normalized)

	var chunks []*types.Chunk
	chunkID := 0
	for _, sec := range sections {
		for _, piece := range splitWindows(sec.text, c.targetSize) {
			chunks = append(chunks, &types.Chunk{
				ChunkID: chunkID,
				Section: sec.key,
				Content: piece,
			})
			chunkID++
		}
	}
	return chunks
}

// collectSections groups the normalized text by first-seen section key.
// Repeated occurrences of a key are appended to the first occurrence rather
// than discarded, so no text is lost.
func (c *SectionChunker) collectSections(normalized string) []sectionText {
	lines := strings.Split(normalized, "\n")

	type markerHit struct {
		section types.SectionType
		line    int
	}
	var hits []markerHit
	for i, line := range lines {
		for _, m := range c.markers {
			if m.Pattern.MatchString(line) {
				hits = append(hits, markerHit{section: m.Section, line: i})
				break
			}
		}
	}

	if len(hits) == 0 {
		return []sectionText{{key: types.SectionOther, text: normalized}}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].line < hits[j].line })

	var sections []sectionText
	index := map[types.SectionType]int{}
	appendSection := func(key types.SectionType, text string) {
		if text == "" {
			return
		}
		if i, ok := index[key]; ok {
			sections[i].text += "\n" + text
			return
		}
		index[key] = len(sections)
		sections = append(sections, sectionText{key: key, text: text})
	}

	// Anything above the first heading belongs to no named section.
	if hits[0].line > 0 {
		appendSection(types.SectionOther, strings.Join(lines[:hits[0].line], "\n"))
	}

	for idx, h := range hits {
		end := len(lines)
		if idx+1 < len(hits) {
			end = hits[idx+1].line
		}
		appendSection(h.section, strings.Join(lines[h.line:end], "\n"))
	}
	return sections
}

// splitWindows slices text into consecutive windows of target runes with no
// overlap; the final window may be shorter. Slicing is rune-based so Arabic
// text never gets cut mid-codepoint.
func splitWindows(text string, target int) []string {
	runes := []rune(text)
	if len(runes) <= target+chunkSlack {
		return []string{text}
	}
	var out []string
	for start := 0; start < len(runes); start += target {
		end := start + target
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
