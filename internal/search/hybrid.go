package search

// FusionConfig defines weights for hybrid score fusion.
type FusionConfig struct {
	KeywordWeight float64
	IndexWeight   float64
}

// DefaultFusionConfig favors the BM25 index slightly over raw keyword
// overlap (60/40).
var DefaultFusionConfig = FusionConfig{
	KeywordWeight: 0.4,
	IndexWeight:   0.6,
}

// fuseScores combines keyword and index matches using weighted fusion.
// Both sides are normalized to (0,1] first so BM25's unbounded scores
// cannot drown the Jaccard signal.
func fuseScores(keyword, index []Match, config FusionConfig) []Match {
	keyword = normalizeScores(keyword)
	index = normalizeScores(index)

	keywordMap := make(map[string]Match, len(keyword))
	for _, m := range keyword {
		keywordMap[m.Fragment.FragmentID] = m
	}
	indexMap := make(map[string]Match, len(index))
	for _, m := range index {
		indexMap[m.Fragment.FragmentID] = m
	}

	allIDs := make(map[string]bool)
	for id := range keywordMap {
		allIDs[id] = true
	}
	for id := range indexMap {
		allIDs[id] = true
	}

	fused := make([]Match, 0, len(allIDs))
	for id := range allIDs {
		kw, hasKeyword := keywordMap[id]
		idx, hasIndex := indexMap[id]

		switch {
		case hasKeyword && hasIndex:
			fused = append(fused, Match{
				Fragment: kw.Fragment,
				Score:    config.KeywordWeight*kw.Score + config.IndexWeight*idx.Score,
			})
		case hasKeyword:
			fused = append(fused, Match{Fragment: kw.Fragment, Score: config.KeywordWeight * kw.Score})
		case hasIndex:
			fused = append(fused, Match{Fragment: idx.Fragment, Score: config.IndexWeight * idx.Score})
		}
	}

	return fused
}

// normalizeScores rescales scores to (0, 1] by dividing by the maximum.
// Max scaling keeps every genuine hit above zero; min-max scaling would
// map the weakest hit to exactly 0 and fusion would then return it as a
// zero-score result.
func normalizeScores(matches []Match) []Match {
	if len(matches) == 0 {
		return matches
	}

	maxScore := matches[0].Score
	for _, m := range matches {
		if m.Score > maxScore {
			maxScore = m.Score
		}
	}
	if maxScore <= 0 {
		return matches
	}

	normalized := make([]Match, len(matches))
	for i, m := range matches {
		normalized[i] = m
		normalized[i].Score = m.Score / maxScore
	}

	return normalized
}
