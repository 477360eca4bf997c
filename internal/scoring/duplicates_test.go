package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-match-go/internal/types"
)

func ranked(id string, meta *types.CandidateMeta) *types.RankedCandidate {
	return &types.RankedCandidate{
		CandidateID: id,
		Meta:        meta,
		Scores:      &types.CandidateScores{Status: types.StatusConsider},
	}
}

func TestMarkDuplicatesByEmail(t *testing.T) {
	a := ranked("cand-a", &types.CandidateMeta{DisplayName: "Omar Hassan", Email: "omar@example.com"})
	b := ranked("cand-b", &types.CandidateMeta{DisplayName: "O. Hassan", Email: "Omar@Example.com"})

	dups := MarkDuplicates([]*types.RankedCandidate{a, b})

	require.Len(t, dups, 1)
	assert.Equal(t, "cand-a", dups["cand-b"])
	assert.Equal(t, "cand-a", b.Scores.DuplicateOf)
	assert.Equal(t, types.StatusExcluded, b.Scores.Status)
	// the first holder stays canonical and untouched
	assert.Empty(t, a.Scores.DuplicateOf)
	assert.Equal(t, types.StatusConsider, a.Scores.Status)
}

func TestMarkDuplicatesByName(t *testing.T) {
	a := ranked("cand-a", &types.CandidateMeta{DisplayName: "Sara Ali"})
	b := ranked("cand-b", &types.CandidateMeta{DisplayName: "sara ali"})

	dups := MarkDuplicates([]*types.RankedCandidate{a, b})

	assert.Equal(t, "cand-a", dups["cand-b"])
}

func TestMarkDuplicatesByNormalizedPhone(t *testing.T) {
	a := ranked("cand-a", &types.CandidateMeta{DisplayName: "A", Phone: "+1 (555) 123-4567"})
	b := ranked("cand-b", &types.CandidateMeta{DisplayName: "B", Phone: "+15551234567"})

	dups := MarkDuplicates([]*types.RankedCandidate{a, b})

	assert.Equal(t, "cand-a", dups["cand-b"])
}

func TestMarkDuplicatesNoSharedIdentity(t *testing.T) {
	a := ranked("cand-a", &types.CandidateMeta{DisplayName: "A", Email: "a@x.com", Phone: "5551111111"})
	b := ranked("cand-b", &types.CandidateMeta{DisplayName: "B", Email: "b@x.com", Phone: "5552222222"})

	dups := MarkDuplicates([]*types.RankedCandidate{a, b})

	assert.Empty(t, dups)
	assert.Equal(t, types.StatusConsider, b.Scores.Status)
}

func TestMarkDuplicatesTransitiveFoldToFirstCanonical(t *testing.T) {
	// b shares a's email, c shares b's phone but nothing of a's. All three
	// must fold to the first-seen canonical.
	a := ranked("cand-a", &types.CandidateMeta{DisplayName: "A", Email: "x@y.com"})
	b := ranked("cand-b", &types.CandidateMeta{DisplayName: "B", Email: "x@y.com", Phone: "5551234567"})
	c := ranked("cand-c", &types.CandidateMeta{DisplayName: "C", Phone: "555-123-4567"})

	dups := MarkDuplicates([]*types.RankedCandidate{a, b, c})

	assert.Equal(t, "cand-a", dups["cand-b"])
	assert.Equal(t, "cand-a", dups["cand-c"])
}

func TestMarkDuplicatesDeterministicAcrossRuns(t *testing.T) {
	build := func() []*types.RankedCandidate {
		return []*types.RankedCandidate{
			ranked("cand-1", &types.CandidateMeta{DisplayName: "N", Email: "n@x.com"}),
			ranked("cand-2", &types.CandidateMeta{DisplayName: "M", Email: "n@x.com"}),
			ranked("cand-3", &types.CandidateMeta{DisplayName: "n"}),
		}
	}

	first := MarkDuplicates(build())
	second := MarkDuplicates(build())

	assert.Equal(t, first, second)
}

func TestMarkDuplicatesSkipsNilMeta(t *testing.T) {
	a := ranked("cand-a", nil)
	b := ranked("cand-b", &types.CandidateMeta{DisplayName: "B"})

	dups := MarkDuplicates([]*types.RankedCandidate{a, b})

	assert.Empty(t, dups)
}
