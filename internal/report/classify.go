package report

// Match is a single aligned chunk pair as returned by the comparison engine.
// The match type policy is owned by the engine; this package only maps types
// onto the compliant/non-compliant buckets.
type Match struct {
	LeftChunkID     string  `json:"left_chunk_id,omitempty"`
	RightChunkID    string  `json:"right_chunk_id,omitempty"`
	LeftText        string  `json:"left_text"`
	RightText       string  `json:"right_text"`
	MatchType       string  `json:"match_type"`
	SimilarityScore float64 `json:"similarity_score"`
	DiffHTML        string  `json:"diff_html,omitempty"`
}

const (
	MatchExact   = "exact"
	MatchSimilar = "similar"
)

type Classification struct {
	CompliantCount         int     `json:"compliant_count"`
	NonCompliantCount      int     `json:"non_compliant_count"`
	CompliantPercentage    float64 `json:"compliant_percentage"`
	NonCompliantPercentage float64 `json:"non_compliant_percentage"`
	Matches                []Match `json:"matches"`
}

// Compliant reports whether a match type falls in the compliant bucket.
// Everything outside exact/similar counts as non-compliant.
func Compliant(matchType string) bool {
	return matchType == MatchExact || matchType == MatchSimilar
}

// Classify turns a raw match list into compliance statistics. Pure function:
// no I/O, no mutation of the input.
func Classify(matches []Match) Classification {
	c := Classification{Matches: matches}
	if c.Matches == nil {
		c.Matches = []Match{}
	}

	for _, m := range matches {
		if Compliant(m.MatchType) {
			c.CompliantCount++
		} else {
			c.NonCompliantCount++
		}
	}

	total := c.CompliantCount + c.NonCompliantCount
	if total == 0 {
		return c
	}

	c.CompliantPercentage = 100 * float64(c.CompliantCount) / float64(total)
	c.NonCompliantPercentage = 100 * float64(c.NonCompliantCount) / float64(total)
	return c
}
