// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"slices"

	"github.com/pdiddy/research-radar/pkg/types"
)

// DeriveTrendData counts, for each topic, its resolved papers per
// publication year. Ids missing from papers and papers with an unknown
// year are skipped. Entries follow topic order, then ascending year.
func DeriveTrendData(topics []types.TopicCluster, papers types.PaperIndex) []types.TrendDatum {
	data := []types.TrendDatum{}
	for _, t := range topics {
		counts := make(map[int]int)
		for _, id := range t.PaperIDs {
			p, ok := papers[id]
			if !ok || p.Year <= 0 {
				continue
			}
			counts[p.Year]++
		}
		years := make([]int, 0, len(counts))
		for y := range counts {
			years = append(years, y)
		}
		slices.Sort(years)
		for _, y := range years {
			data = append(data, types.TrendDatum{Year: y, Topic: t.Name, Count: counts[y]})
		}
	}
	return data
}

// DeriveEmerging promotes topics that are rising or highly novel.
func DeriveEmerging(topics []types.TopicCluster) []types.EmergingTopic {
	out := []types.EmergingTopic{}
	for _, t := range topics {
		if t.Trend != types.TrendRising && t.Novelty <= noveltyEmerging {
			continue
		}
		out = append(out, types.EmergingTopic{
			Name:           t.Name,
			Reason:         emergingReason,
			PotentialScore: t.Novelty,
			PaperIDs:       slices.Clone(t.PaperIDs),
		})
	}
	return out
}
