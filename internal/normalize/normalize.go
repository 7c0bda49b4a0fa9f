// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize turns raw JSON replies from the AI service into fully
// defaulted analysis and trend results.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/research-radar/pkg/types"
)

var (
	// ErrEmptyResponse reports a reply with no content.
	ErrEmptyResponse = errors.New("empty response from AI service")

	// ErrMalformedResponse reports a reply that is not valid JSON for the
	// requested schema. It is never retried.
	ErrMalformedResponse = errors.New("malformed response from AI service")
)

const (
	defaultScore       = 0.5
	defaultDescription = "No description provided."
	emergingReason     = "High novelty score or rising publication trend detected during strict clustering."
	noveltyEmerging    = 0.8
)

// Options controls how analysis replies are normalized.
type Options struct {
	// Mode is the analysis mode the request was built for.
	Mode types.Mode

	// Papers is the capped list actually sent with the request.
	Papers []types.Paper

	// ValidatePaperIDs drops topic and emerging-topic paper ids that do not
	// match a paper in Papers.
	ValidatePaperIDs bool

	// Now returns the completion timestamp. Nil uses time.Now.
	Now func() time.Time

	// NewID returns an id for topics that lack one. Nil uses uuid.NewString.
	NewID func() string
}

type rawTopic struct {
	ID          *string  `json:"id"`
	Name        string   `json:"name"`
	Keywords    []string `json:"keywords"`
	Novelty     *float64 `json:"novelty"`
	Impact      *float64 `json:"impact"`
	Volume      *int     `json:"volume"`
	Trend       *string  `json:"trend"`
	Description *string  `json:"description"`
	PaperIDs    []string `json:"paperIds"`
}

type rawEmerging struct {
	Name           string   `json:"name"`
	Reason         string   `json:"reason"`
	PotentialScore *float64 `json:"potentialScore"`
	PaperIDs       []string `json:"paperIds"`
}

type rawAnalysis struct {
	Topics         []rawTopic         `json:"topics"`
	EmergingTopics []rawEmerging      `json:"emergingTopics"`
	TrendData      []types.TrendDatum `json:"trendData"`
	Summary        string             `json:"summary"`
	Methodology    string             `json:"methodology"`
	NoiseCount     *int               `json:"noise_paper_count"`
	Stopwords      []string           `json:"stopwords"`
}

// Analysis parses raw and returns a result with every topic defaulted and
// the totalPapersAnalyzed, timestamp, and modeUsed fields stamped. In strict
// mode trendData and emergingTopics are derived locally from the topics.
func Analysis(raw string, opts Options) (*types.AnalysisResult, error) {
	var r rawAnalysis
	if err := decode(raw, &r); err != nil {
		return nil, err
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	var known types.PaperIndex
	if opts.ValidatePaperIDs || opts.Mode == types.ModeStrict {
		known = types.IndexPapers(opts.Papers)
	}
	unknown := 0
	filter := func(ids []string) []string {
		if !opts.ValidatePaperIDs {
			return nonNil(ids)
		}
		kept := make([]string, 0, len(ids))
		for _, id := range ids {
			if _, ok := known[id]; ok {
				kept = append(kept, id)
			} else {
				unknown++
			}
		}
		return kept
	}

	result := &types.AnalysisResult{
		Topics:      make([]types.TopicCluster, 0, len(r.Topics)),
		Summary:     r.Summary,
		Methodology: r.Methodology,
		NoiseCount:  r.NoiseCount,
		Stopwords:   r.Stopwords,
	}
	for _, rt := range r.Topics {
		result.Topics = append(result.Topics, topic(rt, filter, newID))
	}

	switch opts.Mode {
	case types.ModeStrict:
		result.TrendData = DeriveTrendData(result.Topics, known)
		result.EmergingTopics = DeriveEmerging(result.Topics)
	case types.ModeStandard, types.ModeConsultant:
		result.TrendData = nonNilTrend(r.TrendData)
		result.EmergingTopics = make([]types.EmergingTopic, 0, len(r.EmergingTopics))
		for _, re := range r.EmergingTopics {
			result.EmergingTopics = append(result.EmergingTopics, emerging(re, filter))
		}
	default:
		return nil, fmt.Errorf("normalizing reply: unknown analysis mode %q", opts.Mode)
	}

	result.UnknownPaperIDs = unknown
	result.TotalPapersAnalyzed = len(opts.Papers)
	result.Timestamp = now()
	result.ModeUsed = opts.Mode.Label()
	return result, nil
}

func topic(rt rawTopic, filter func([]string) []string, newID func() string) types.TopicCluster {
	t := types.TopicCluster{
		Name:        rt.Name,
		Keywords:    nonNil(rt.Keywords),
		Novelty:     defaultScore,
		Impact:      defaultScore,
		Trend:       types.TrendStable,
		Description: defaultDescription,
		PaperIDs:    filter(rt.PaperIDs),
	}
	if rt.ID != nil && *rt.ID != "" {
		t.ID = *rt.ID
	} else {
		t.ID = newID()
	}
	if rt.Novelty != nil {
		t.Novelty = *rt.Novelty
	}
	if rt.Impact != nil {
		t.Impact = *rt.Impact
	}
	if rt.Trend != nil {
		t.Trend = parseTrend(*rt.Trend)
	}
	if rt.Description != nil && strings.TrimSpace(*rt.Description) != "" {
		t.Description = *rt.Description
	}
	if rt.Volume != nil {
		t.Volume = *rt.Volume
	} else {
		t.Volume = len(t.PaperIDs)
	}
	return t
}

func emerging(re rawEmerging, filter func([]string) []string) types.EmergingTopic {
	e := types.EmergingTopic{
		Name:           re.Name,
		Reason:         re.Reason,
		PotentialScore: defaultScore,
		PaperIDs:       filter(re.PaperIDs),
	}
	if re.PotentialScore != nil {
		e.PotentialScore = *re.PotentialScore
	}
	return e
}

// parseTrend maps the reply's trend label onto Trend. Unknown labels
// become stable.
func parseTrend(s string) types.Trend {
	switch types.Trend(strings.ToLower(strings.TrimSpace(s))) {
	case types.TrendRising:
		return types.TrendRising
	case types.TrendDeclining:
		return types.TrendDeclining
	}
	return types.TrendStable
}

// Trend parses a trend-forecast reply. All three fields must be present
// and non-empty.
func Trend(raw string) (*types.TrendAnalysisResult, error) {
	var r types.TrendAnalysisResult
	if err := decode(raw, &r); err != nil {
		return nil, err
	}
	var missing []string
	for name, v := range map[string]string{
		"trendJudgment":   r.TrendJudgment,
		"deepDive":        r.DeepDive,
		"abstractSection": r.AbstractSection,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("%w: empty fields %s", ErrMalformedResponse, strings.Join(missing, ", "))
	}
	return &r, nil
}

func decode(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilTrend(d []types.TrendDatum) []types.TrendDatum {
	if d == nil {
		return []types.TrendDatum{}
	}
	return d
}
