// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-radar/pkg/types"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func opts(mode types.Mode, papers []types.Paper) Options {
	return Options{
		Mode:   mode,
		Papers: papers,
		Now:    func() time.Time { return fixedNow },
		NewID:  func() string { return "generated-id" },
	}
}

func TestAnalysisEmptyAndMalformed(t *testing.T) {
	_, err := Analysis("", opts(types.ModeStandard, nil))
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = Analysis("  \n ", opts(types.ModeStandard, nil))
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = Analysis(`{"topics": [`, opts(types.ModeStandard, nil))
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = Analysis(`{"topics": "not a list"}`, opts(types.ModeStandard, nil))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestAnalysisTopicDefaults(t *testing.T) {
	raw := `{"topics": [{"name": "Sparse topic"}], "summary": "s", "methodology": "m"}`
	res, err := Analysis(raw, opts(types.ModeStandard, nil))
	require.NoError(t, err)
	require.Len(t, res.Topics, 1)

	topic := res.Topics[0]
	assert.Equal(t, "generated-id", topic.ID)
	assert.Equal(t, 0.5, topic.Novelty)
	assert.Equal(t, 0.5, topic.Impact)
	assert.Equal(t, types.TrendStable, topic.Trend)
	assert.Equal(t, []string{}, topic.PaperIDs)
	assert.Equal(t, []string{}, topic.Keywords)
	assert.Equal(t, 0, topic.Volume)
	assert.Equal(t, defaultDescription, topic.Description)

	assert.NotNil(t, res.EmergingTopics)
	assert.NotNil(t, res.TrendData)
}

func TestAnalysisKeepsProvidedValues(t *testing.T) {
	papers := []types.Paper{{ID: "a"}, {ID: "b"}}
	raw := `{"topics": [{"id": "t1", "name": "Kept", "keywords": ["k"], "novelty": 0, "impact": 0.9,
		"trend": "Declining", "description": "desc", "paperIds": ["a", "b"]}],
		"emergingTopics": [{"name": "E", "reason": "r", "paperIds": ["b"]}],
		"trendData": [{"year": 2020, "topic": "Kept", "count": 2}]}`
	res, err := Analysis(raw, opts(types.ModeConsultant, papers))
	require.NoError(t, err)

	topic := res.Topics[0]
	assert.Equal(t, "t1", topic.ID)
	assert.Equal(t, 0.0, topic.Novelty)
	assert.Equal(t, 0.9, topic.Impact)
	assert.Equal(t, types.TrendDeclining, topic.Trend)
	assert.Equal(t, 2, topic.Volume, "volume defaults to the paper id count")

	require.Len(t, res.EmergingTopics, 1)
	assert.Equal(t, 0.5, res.EmergingTopics[0].PotentialScore)
	assert.Equal(t, []types.TrendDatum{{Year: 2020, Topic: "Kept", Count: 2}}, res.TrendData)
	assert.Contains(t, res.ModeUsed, "Consultant")
}

func TestAnalysisPaperIDValidation(t *testing.T) {
	papers := []types.Paper{{ID: "a"}, {ID: "b"}}
	raw := `{"topics": [{"name": "T", "paperIds": ["a", "ghost", "b", "phantom"]}],
		"emergingTopics": [{"name": "E", "paperIds": ["ghost"]}]}`

	t.Run("validated", func(t *testing.T) {
		o := opts(types.ModeStandard, papers)
		o.ValidatePaperIDs = true
		res, err := Analysis(raw, o)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, res.Topics[0].PaperIDs)
		assert.Equal(t, 2, res.Topics[0].Volume)
		assert.Equal(t, []string{}, res.EmergingTopics[0].PaperIDs)
		assert.Equal(t, 3, res.UnknownPaperIDs)
	})

	t.Run("pass through", func(t *testing.T) {
		res, err := Analysis(raw, opts(types.ModeStandard, papers))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "ghost", "b", "phantom"}, res.Topics[0].PaperIDs)
		assert.Equal(t, 0, res.UnknownPaperIDs)
	})
}

func TestAnalysisStrictDerivation(t *testing.T) {
	papers := []types.Paper{
		{ID: "p1", Year: 2020},
		{ID: "p2", Year: 2020},
		{ID: "p3", Year: 2021},
		{ID: "p4", Year: 2019},
		{ID: "p5", Year: 2021},
		{ID: "p6", Year: 0},
	}
	raw := `{"topics": [
		{"name": "Alpha", "novelty": 0.3, "trend": "rising", "paperIds": ["p1", "p2", "p3"]},
		{"name": "Beta", "novelty": 0.85, "trend": "stable", "paperIds": ["p4", "p5", "p6", "missing"]},
		{"name": "Gamma", "novelty": 0.8, "trend": "declining", "paperIds": []}
	],
	"trendData": [{"year": 1999, "topic": "ignored", "count": 99}],
	"emergingTopics": [{"name": "ignored"}],
	"summary": "s", "methodology": "m"}`

	res, err := Analysis(raw, opts(types.ModeStrict, papers))
	require.NoError(t, err)

	assert.Equal(t, []types.TrendDatum{
		{Year: 2020, Topic: "Alpha", Count: 2},
		{Year: 2021, Topic: "Alpha", Count: 1},
		{Year: 2019, Topic: "Beta", Count: 1},
		{Year: 2021, Topic: "Beta", Count: 1},
	}, res.TrendData)

	require.Len(t, res.EmergingTopics, 2)
	assert.Equal(t, "Alpha", res.EmergingTopics[0].Name)
	assert.Equal(t, 0.3, res.EmergingTopics[0].PotentialScore)
	assert.Equal(t, "Beta", res.EmergingTopics[1].Name)
	assert.Equal(t, 0.85, res.EmergingTopics[1].PotentialScore)
	assert.Equal(t, emergingReason, res.EmergingTopics[1].Reason)

	assert.Nil(t, res.NoiseCount)
	assert.Contains(t, res.ModeUsed, "Strict")
	assert.Equal(t, 6, res.TotalPapersAnalyzed)
	assert.Equal(t, fixedNow, res.Timestamp)
}

func TestAnalysisStrictNoiseCount(t *testing.T) {
	raw := `{"topics": [], "noise_paper_count": 7, "stopwords": ["study"]}`
	res, err := Analysis(raw, opts(types.ModeStrict, nil))
	require.NoError(t, err)
	require.NotNil(t, res.NoiseCount)
	assert.Equal(t, 7, *res.NoiseCount)
	assert.Equal(t, []string{"study"}, res.Stopwords)
	assert.Empty(t, res.TrendData)
	assert.Empty(t, res.EmergingTopics)
}

func TestAnalysisUnknownMode(t *testing.T) {
	_, err := Analysis(`{"topics": []}`, opts(types.Mode("weird"), nil))
	assert.Error(t, err)
}

func TestTrend(t *testing.T) {
	res, err := Trend(`{"trendJudgment": "up", "deepDive": "deep", "abstractSection": "abs"}`)
	require.NoError(t, err)
	assert.Equal(t, &types.TrendAnalysisResult{TrendJudgment: "up", DeepDive: "deep", AbstractSection: "abs"}, res)

	_, err = Trend(`{"trendJudgment": "up", "deepDive": " "}`)
	require.ErrorIs(t, err, ErrMalformedResponse)
	assert.Contains(t, err.Error(), "abstractSection, deepDive")

	_, err = Trend("")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = Trend("not json")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestDeriveEmergingThreshold(t *testing.T) {
	topics := []types.TopicCluster{
		{Name: "at threshold", Novelty: 0.8, Trend: types.TrendStable},
		{Name: "above", Novelty: 0.81, Trend: types.TrendDeclining},
		{Name: "rising", Novelty: 0.1, Trend: types.TrendRising},
	}
	got := DeriveEmerging(topics)
	require.Len(t, got, 2)
	assert.Equal(t, "above", got[0].Name)
	assert.Equal(t, "rising", got[1].Name)
}
