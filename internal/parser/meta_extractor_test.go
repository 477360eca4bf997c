package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCandidateMetaFullProfile(t *testing.T) {
	text := `• Jane Doe
Email: jane.doe@example.com
Phone: +1 (555) 123-4567
Location: Berlin, Germany

Summary
Backend engineer with 6 years of experience at CloudWorks.

Experience
- Built APIs in Go and Node.js
- Led a team of 4

Skills
Go, SQL, Docker

Languages: English, Arabic
https://github.com/janedoe
https://linkedin.com/in/janedoe
https://janedoe.dev/portfolio`

	meta := ExtractCandidateMeta(text, "cv.pdf")

	assert.Equal(t, "Jane Doe", meta.DisplayName)
	assert.Equal(t, "jane.doe@example.com", meta.Email)
	assert.Equal(t, "+1 (555) 123-4567", meta.Phone)
	assert.Equal(t, "Berlin, Germany", meta.Location)
	assert.True(t, meta.YearsKnown)
	assert.Equal(t, 6, meta.YearsExperience)
	assert.Equal(t, "CloudWorks", meta.LastCompany)
	assert.Equal(t, []string{"English", "Arabic"}, meta.Languages)
	require.Len(t, meta.GitHub, 1)
	require.Len(t, meta.LinkedIn, 1)
	require.Len(t, meta.Projects, 1)
	assert.Equal(t, "janedoe.dev", meta.Projects[0].Label)
	assert.Contains(t, meta.QualitySignals, SignalSummaryHeading)
	assert.Contains(t, meta.QualitySignals, SignalStructuredText)
	assert.Contains(t, meta.QualitySignals, SignalBulletFormatted)
}

func TestExtractCandidateMetaEmptyTextNeverFails(t *testing.T) {
	meta := ExtractCandidateMeta("", "fallback.pdf")

	assert.Equal(t, "fallback.pdf", meta.DisplayName)
	assert.Equal(t, 0, meta.TextLength)
	assert.False(t, meta.YearsKnown)
	assert.Empty(t, meta.Email)
	assert.Empty(t, meta.Languages)
	assert.Empty(t, meta.QualitySignals)
}

func TestExtractCandidateMetaDisplayNameStripsBullets(t *testing.T) {
	meta := ExtractCandidateMeta("### Ahmed Hassan\nsome text", "x")
	assert.Equal(t, "Ahmed Hassan", meta.DisplayName)
}

func TestExtractPhoneRequiresSevenDigits(t *testing.T) {
	assert.Empty(t, ExtractCandidateMeta("call 123-456", "x").Phone)
	assert.Equal(t, "5551234567", ExtractCandidateMeta("call 5551234567 now", "x").Phone)
}

func TestExtractYearsTakesMaximumAndCaps(t *testing.T) {
	meta := ExtractCandidateMeta("2 years at A, then 5 years at B", "x")
	assert.True(t, meta.YearsKnown)
	assert.Equal(t, 5, meta.YearsExperience)

	capped := ExtractCandidateMeta("55 years of experience", "x")
	assert.Equal(t, 40, capped.YearsExperience)
}

func TestExtractYearsArabicPhrasing(t *testing.T) {
	meta := ExtractCandidateMeta("لدي 7 سنوات في تطوير البرمجيات", "x")
	assert.True(t, meta.YearsKnown)
	assert.Equal(t, 7, meta.YearsExperience)
}

func TestExtractCompanyLabelBeatsAtHeuristic(t *testing.T) {
	meta := ExtractCandidateMeta("Company: Initech GmbH\nworked at Globex", "x")
	assert.Equal(t, "Initech GmbH", meta.LastCompany)
}

func TestExtractLanguagesRequiresWholeWords(t *testing.T) {
	// A location mention is not a language skill.
	assert.Empty(t, ExtractCandidateMeta("Location: Berlin, Germany", "x").Languages)

	meta := ExtractCandidateMeta("Fluent in German and French", "x")
	assert.Equal(t, []string{"French", "German"}, meta.Languages)

	arabic := ExtractCandidateMeta("اللغات: العربية, الإنجليزية", "x")
	assert.Equal(t, []string{"English", "Arabic"}, arabic.Languages)
}

func TestExtractQualitySignalsArabicHeadings(t *testing.T) {
	text := `أحمد حسن
ahmed@example.com

الخبرة
- تطوير خدمات خلفية بلغة Go

المهارات
Go, SQL, Docker`

	meta := ExtractCandidateMeta(text, "cv.pdf")

	assert.Contains(t, meta.QualitySignals, SignalStructuredText)
	assert.Contains(t, meta.QualitySignals, SignalBulletFormatted)
}

func TestExtractLinksCapsGenericLinks(t *testing.T) {
	text := "https://a.dev/1 https://b.dev/2 https://c.dev/3 https://d.dev/4 https://e.dev/5 https://f.dev/6"
	meta := ExtractCandidateMeta(text, "x")
	assert.Len(t, meta.Projects, 5)
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+15551234567", NormalizePhone("+1 (555) 123-4567"))
	assert.Equal(t, "0791234567", NormalizePhone("079 123 45 67"))
	assert.Equal(t, "", NormalizePhone(""))
}
