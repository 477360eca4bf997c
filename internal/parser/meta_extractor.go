package parser

import (
	"regexp"
	"strconv"
	"strings"

	"cv-match-go/internal/types"
)

// Candidate meta extraction is pure pattern matching over raw text. It never
// fails: a pattern that does not hit simply leaves its field empty.

const (
	maxYearsExperience = 40
	maxOtherLinks      = 5
)

var (
	emailPattern = regexp.MustCompile(`(?i)[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\s\-().]{5,}[0-9]`)
	urlPattern   = regexp.MustCompile(`(?i)https?://[^\s<>"')\]]+`)

	bulletPrefix  = regexp.MustCompile(`^[\s#*•·\-–—>]+`)
	bulletLine    = regexp.MustCompile(`(?m)^\s*[•·*\-–—]\s+`)
	digitsAndPlus = regexp.MustCompile(`[^0-9+]`)

	// years-of-experience phrasings, English and Arabic
	yearsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d{1,2})\s*\+?\s*(?:years?|yrs?)`),
		regexp.MustCompile(`(\d{1,2})\s*\+?\s*(?:سنة|سنوات|عام|أعوام)`),
		regexp.MustCompile(`خبرة\s*(\d{1,2})`),
	}

	companyLabelPattern = regexp.MustCompile(`(?im)^[\s*•\-]*(?:company|employer|شركة)\s*[::]\s*(\S.*)$`)
	companyAtPattern    = regexp.MustCompile(`(?:at|@)\s+([A-Z][\w&.\-]*(?:\s+[A-Z][\w&.\-]*){0,3})`)
	locationPattern     = regexp.MustCompile(`(?im)^[\s*•\-]*(?:location|address|العنوان|الموقع)\s*[::]\s*(\S.*)$`)

	// Heading patterns end on an explicit terminator instead of \b: RE2's \b
	// is an ASCII word boundary and never fires next to Arabic letters.
	summaryHeading    = regexp.MustCompile(`(?im)^[\s#*•\-–—>]*(summary|objective|profile|الملخص|ملخص|نبذة)\s*[::]?\s*$`)
	structuralHeading = regexp.MustCompile(`(?im)^[\s#*•\-–—>]*(work\s+experience|professional\s+experience|experience|technical\s+skills|skills|education|الخبرة\s+العملية|الخبرة|خبرة|المهارات|مهارات|التعليم|تعليم)\s*[::]?\s*$`)

	wordSplitPattern = regexp.MustCompile(`[^\p{L}]+`)
)

// languageKeyword maps a display name to its detection patterns. Order here
// fixes detection order, patterns are matched against lowercased text.
type languageKeyword struct {
	Name     string
	Keywords []string
}

var languageKeywords = []languageKeyword{
	{"English", []string{"english", "الإنجليزية", "الانجليزية"}},
	{"Arabic", []string{"arabic", "العربية"}},
	{"French", []string{"french", "français", "francais", "الفرنسية"}},
	{"German", []string{"german", "deutsch", "الألمانية", "الالمانية"}},
	{"Spanish", []string{"spanish", "español", "espanol", "الإسبانية", "الاسبانية"}},
}

// Quality signal labels surfaced on CandidateMeta.
const (
	SignalSummaryHeading  = "summary_heading"
	SignalStructuredText  = "structured_sections"
	SignalBulletFormatted = "bullet_formatting"
)

// ExtractCandidateMeta derives structural signals from raw résumé text.
// fallbackName (usually the upload filename without extension) is used when
// no display name can be read from the text itself.
func ExtractCandidateMeta(text, fallbackName string) *types.CandidateMeta {
	normalized := NormalizeText(text)
	meta := &types.CandidateMeta{
		DisplayName: extractDisplayName(normalized, fallbackName),
		TextLength:  len([]rune(normalized)),
	}
	if normalized == "" {
		return meta
	}

	meta.Email = emailPattern.FindString(normalized)
	meta.Phone = extractPhone(normalized)
	meta.Location = firstSubmatch(locationPattern, normalized)
	meta.YearsExperience, meta.YearsKnown = extractYears(normalized)
	meta.LastCompany = extractLastCompany(normalized)
	meta.Languages = extractLanguages(normalized)
	extractLinks(normalized, meta)
	meta.QualitySignals = extractQualitySignals(normalized)

	return meta
}

func extractDisplayName(normalized, fallbackName string) string {
	for _, line := range strings.Split(normalized, "\n") {
		cleaned := strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		if cleaned != "" {
			return cleaned
		}
	}
	return fallbackName
}

// extractPhone looks for a phone-like digit run: at least 7 digits once
// separators are stripped.
func extractPhone(text string) string {
	for _, cand := range phonePattern.FindAllString(text, -1) {
		normalized := digitsAndPlus.ReplaceAllString(cand, "")
		digits := strings.TrimPrefix(normalized, "+")
		if len(digits) >= 7 {
			return strings.TrimSpace(cand)
		}
	}
	return ""
}

// extractYears takes the maximum across all phrasing hits, capped at 40 to
// keep one bad OCR digit from dominating the experience score.
func extractYears(text string) (int, bool) {
	best := -1
	for _, p := range yearsPatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if n > best {
				best = n
			}
		}
	}
	if best < 0 {
		return 0, false
	}
	if best > maxYearsExperience {
		best = maxYearsExperience
	}
	return best, true
}

func extractLastCompany(text string) string {
	company := firstSubmatch(companyLabelPattern, text)
	if company == "" {
		company = firstSubmatch(companyAtPattern, text)
	}
	return strings.TrimRight(company, ".,;")
}

// extractLanguages matches keywords against whole words only, so place names
// like "Germany" do not register as the German language.
func extractLanguages(text string) []string {
	words := map[string]bool{}
	for _, w := range wordSplitPattern.Split(strings.ToLower(text), -1) {
		if w != "" {
			words[w] = true
		}
	}

	var out []string
	for _, lang := range languageKeywords {
		for _, kw := range lang.Keywords {
			if words[kw] {
				out = append(out, lang.Name)
				break
			}
		}
	}
	return out
}

// extractLinks partitions URLs into GitHub, LinkedIn and generic project
// links; generic links are capped so a link-farm résumé stays readable.
func extractLinks(text string, meta *types.CandidateMeta) {
	seen := map[string]bool{}
	for _, raw := range urlPattern.FindAllString(text, -1) {
		url := strings.TrimRight(raw, ".,;")
		if seen[url] {
			continue
		}
		seen[url] = true
		lower := strings.ToLower(url)
		switch {
		case strings.Contains(lower, "github.com"):
			meta.GitHub = append(meta.GitHub, url)
		case strings.Contains(lower, "linkedin.com"):
			meta.LinkedIn = append(meta.LinkedIn, url)
		default:
			if len(meta.Projects) < maxOtherLinks {
				meta.Projects = append(meta.Projects, types.ProjectLink{Label: linkLabel(url), URL: url})
			}
		}
	}
}

// linkLabel derives a short label from the URL host.
func linkLabel(url string) string {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(url), "https://"), "http://")
	trimmed = strings.TrimPrefix(trimmed, "www.")
	if i := strings.IndexAny(trimmed, "/?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	if trimmed == "" {
		return "link"
	}
	return trimmed
}

func extractQualitySignals(text string) []string {
	var signals []string
	if summaryHeading.MatchString(text) {
		signals = append(signals, SignalSummaryHeading)
	}
	if structuralHeading.MatchString(text) {
		signals = append(signals, SignalStructuredText)
	}
	if bulletLine.MatchString(text) {
		signals = append(signals, SignalBulletFormatted)
	}
	return signals
}

func firstSubmatch(p *regexp.Regexp, text string) string {
	if m := p.FindStringSubmatch(text); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// NormalizePhone strips everything but digits and a leading plus, the form
// used for duplicate detection across a batch.
func NormalizePhone(phone string) string {
	normalized := digitsAndPlus.ReplaceAllString(phone, "")
	if len(normalized) > 1 {
		// keep a plus only in first position
		normalized = string(normalized[0]) + strings.ReplaceAll(normalized[1:], "+", "")
	}
	return normalized
}
