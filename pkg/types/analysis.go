// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects the analysis style. The set is closed: every switch over a
// Mode handles all three values and treats anything else as an error.
type Mode string

const (
	// ModeConsultant asks for provocative, speculative framing.
	ModeConsultant Mode = "consultant"

	// ModeStandard asks for descriptive, comprehensive grouping.
	ModeStandard Mode = "standard"

	// ModeStrict asks for deterministic noise filtering and clustering.
	// Trend data and emerging topics are derived locally for this mode.
	ModeStrict Mode = "strict"
)

// Modes lists every analysis mode in display order.
var Modes = []Mode{ModeConsultant, ModeStandard, ModeStrict}

// ParseMode converts a user-supplied string to a Mode. Matching is
// case-insensitive and surrounding whitespace is ignored.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeConsultant, ModeStandard, ModeStrict:
		return m, nil
	}
	return "", fmt.Errorf("unknown analysis mode %q (want consultant, standard, or strict)", s)
}

// Label returns the human-readable mode name stamped onto results.
func (m Mode) Label() string {
	switch m {
	case ModeConsultant:
		return "Consultant Mode (Speculative Foresight)"
	case ModeStandard:
		return "Standard Analysis (Descriptive)"
	case ModeStrict:
		return "Strict Clustering (Deterministic)"
	}
	return string(m)
}

// Focus narrows or widens the scope of the analysis instruction.
type Focus string

const (
	FocusBroad    Focus = "broad"
	FocusBalanced Focus = "balanced"
	FocusSpecific Focus = "specific"
)

// ParseFocus converts a user-supplied string to a Focus. An empty string
// yields FocusBalanced.
func ParseFocus(s string) (Focus, error) {
	f := Focus(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FocusBalanced, nil
	case FocusBroad, FocusBalanced, FocusSpecific:
		return f, nil
	}
	return "", fmt.Errorf("unknown focus %q (want broad, balanced, or specific)", s)
}

// Trend is the publication trajectory of a topic.
type Trend string

const (
	TrendRising    Trend = "rising"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// AnalysisConfig carries the per-request knobs for an analysis. It drives
// prompt phrasing and sampling temperature and is never persisted as
// domain truth.
type AnalysisConfig struct {
	// Creativity in [0,1] scales how speculative the narrative may be.
	Creativity float64 `json:"creativity" yaml:"creativity" mapstructure:"creativity"`

	// Depth in [0,1] scales how granular the clustering should be.
	Depth float64 `json:"depth" yaml:"depth" mapstructure:"depth"`

	// Focus narrows or widens the scope (default balanced).
	Focus Focus `json:"focus" yaml:"focus" mapstructure:"focus"`

	// Algorithm selects the analysis mode (default standard).
	Algorithm Mode `json:"algorithm" yaml:"algorithm" mapstructure:"algorithm"`

	// MaxPapers caps how many papers are sent. Zero or negative means no cap.
	MaxPapers int `json:"maxPapers" yaml:"max_papers" mapstructure:"max_papers"`
}

// DefaultAnalysisConfig returns the configuration used when the caller
// supplies none.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Creativity: 0.5,
		Depth:      0.7,
		Focus:      FocusBalanced,
		Algorithm:  ModeStandard,
		MaxPapers:  200,
	}
}

// Validate normalizes Focus and Algorithm and clamps Creativity and Depth
// into [0,1]. It returns an error for unknown enum values.
func (c *AnalysisConfig) Validate() error {
	mode, err := ParseMode(string(c.Algorithm))
	if err != nil {
		return err
	}
	focus, err := ParseFocus(string(c.Focus))
	if err != nil {
		return err
	}
	c.Algorithm = mode
	c.Focus = focus
	c.Creativity = clamp01(c.Creativity)
	c.Depth = clamp01(c.Depth)
	return nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// TopicCluster is an AI-identified group of papers sharing a theme.
type TopicCluster struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Keywords    []string `json:"keywords" yaml:"keywords"`
	Novelty     float64  `json:"novelty" yaml:"novelty"`
	Impact      float64  `json:"impact" yaml:"impact"`
	Volume      int      `json:"volume" yaml:"volume"`
	Trend       Trend    `json:"trend" yaml:"trend"`
	Description string   `json:"description" yaml:"description"`
	PaperIDs    []string `json:"paperIds" yaml:"paper_ids"`
}

// EmergingTopic is a cross-cutting research front.
type EmergingTopic struct {
	Name           string   `json:"name" yaml:"name"`
	Reason         string   `json:"reason" yaml:"reason"`
	PotentialScore float64  `json:"potentialScore" yaml:"potential_score"`
	PaperIDs       []string `json:"paperIds" yaml:"paper_ids"`
}

// TrendDatum counts the papers of one topic published in one year.
type TrendDatum struct {
	Year  int    `json:"year" yaml:"year"`
	Topic string `json:"topic" yaml:"topic"`
	Count int    `json:"count" yaml:"count"`
}

// AnalysisResult is the normalized outcome of one analysis request.
type AnalysisResult struct {
	Topics         []TopicCluster  `json:"topics" yaml:"topics"`
	EmergingTopics []EmergingTopic `json:"emergingTopics" yaml:"emerging_topics"`
	TrendData      []TrendDatum    `json:"trendData" yaml:"trend_data"`
	Summary        string          `json:"summary" yaml:"summary"`
	Methodology    string          `json:"methodology" yaml:"methodology"`

	// NoiseCount is the number of papers the strict mode discarded as
	// noise. Nil when the reply did not report it.
	NoiseCount *int `json:"noiseCount,omitempty" yaml:"noise_count,omitempty"`

	// Stopwords lists generic terms the strict mode ignored.
	Stopwords []string `json:"stopwords,omitempty" yaml:"stopwords,omitempty"`

	// UnknownPaperIDs counts paper ids in the reply that did not match any
	// paper sent with the request and were dropped.
	UnknownPaperIDs int `json:"unknownPaperIds,omitempty" yaml:"unknown_paper_ids,omitempty"`

	TotalPapersAnalyzed int       `json:"totalPapersAnalyzed" yaml:"total_papers_analyzed"`
	Timestamp           time.Time `json:"timestamp" yaml:"timestamp"`
	ModeUsed            string    `json:"modeUsed" yaml:"mode_used"`
}

// TrendAnalysisResult is the three-part narrative produced by a trend
// forecast.
type TrendAnalysisResult struct {
	TrendJudgment   string `json:"trendJudgment" yaml:"trend_judgment"`
	DeepDive        string `json:"deepDive" yaml:"deep_dive"`
	AbstractSection string `json:"abstractSection" yaml:"abstract_section"`
}
