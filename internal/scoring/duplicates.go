package scoring

import (
	"strings"

	"cv-match-go/internal/parser"
	"cv-match-go/internal/types"
)

// MarkDuplicates detects duplicate submissions within one batch. Two
// candidates collide when they share a display name (case-insensitive), an
// email (case-insensitive) or a normalized phone number. The fold runs in
// the given order: the first holder of a key is canonical, later holders are
// marked duplicateOf and forced to excluded. Run this as a separate pass
// after all candidates are scored — never interleaved with concurrent
// scoring — so canonical assignment stays deterministic.
//
// The returned map carries candidateID -> canonicalID for every duplicate.
func MarkDuplicates(candidates []*types.RankedCandidate) map[string]string {
	duplicateOf := make(map[string]string)
	seen := make(map[string]string) // identity key -> canonical candidate id

	for _, cand := range candidates {
		if cand == nil || cand.Meta == nil {
			continue
		}

		keys := identityKeys(cand.Meta)

		canonical := ""
		for _, key := range keys {
			if id, ok := seen[key]; ok {
				canonical = id
				break
			}
		}

		if canonical != "" && canonical != cand.CandidateID {
			duplicateOf[cand.CandidateID] = canonical
			if cand.Scores != nil {
				cand.Scores.DuplicateOf = canonical
				cand.Scores.Status = types.StatusExcluded
			}
		} else {
			canonical = cand.CandidateID
		}

		// Register unseen keys against the canonical id so a later candidate
		// matching any spelling of this identity folds to the same canonical.
		for _, key := range keys {
			if _, ok := seen[key]; !ok {
				seen[key] = canonical
			}
		}
	}

	return duplicateOf
}

// identityKeys derives the dedup keys for one candidate. Keys are namespaced
// so a name can never collide with an email.
func identityKeys(meta *types.CandidateMeta) []string {
	var keys []string
	if name := strings.ToLower(strings.TrimSpace(meta.DisplayName)); name != "" {
		keys = append(keys, "name:"+name)
	}
	if email := strings.ToLower(strings.TrimSpace(meta.Email)); email != "" {
		keys = append(keys, "email:"+email)
	}
	if phone := parser.NormalizePhone(meta.Phone); phone != "" {
		keys = append(keys, "phone:"+phone)
	}
	return keys
}
