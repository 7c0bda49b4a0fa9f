// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt builds instruction text, response schemas, and sampling
// temperatures for the three kinds of AI call: topic analysis, trend
// forecast, and translation.
package prompt

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/pdiddy/research-radar/internal/shape"
	"github.com/pdiddy/research-radar/pkg/types"
)

// Task names the kind of AI call a Request represents.
type Task string

const (
	TaskAnalysis    Task = "analysis"
	TaskTrend       Task = "trend"
	TaskTranslation Task = "translation"
)

// Request is everything a backend needs for one generative call.
type Request struct {
	Task        Task
	Prompt      string
	Temperature float64

	// Schema is nil when a plain-text reply is expected.
	Schema *Schema
}

const (
	// TrendCorpusLimit caps the hotspot corpus sent with a trend forecast.
	TrendCorpusLimit = 25000

	// MinTranslationChars is the shortest trimmed text worth translating.
	MinTranslationChars = 2

	trendTemperature       = 0.7
	translationTemperature = 0.2
	defaultField           = "the supplied research area"
)

// Temperature returns the sampling temperature for an analysis mode.
func Temperature(m types.Mode) (float64, error) {
	switch m {
	case types.ModeStrict:
		return 0.0, nil
	case types.ModeStandard:
		return 0.3, nil
	case types.ModeConsultant:
		return 0.85, nil
	}
	return 0, fmt.Errorf("no temperature for mode %q", m)
}

var analysisTmpl = template.Must(template.New("analysis").Parse(`
{{- define "header" -}}
You are analyzing a corpus of {{.Count}} academic papers in the field of "{{.Field}}".
{{if .TitleOnly -}}
TITLE-ONLY MODE: the corpus is large, so each paper is listed by ID, year, and title only. Infer themes from the titles.
{{- else -}}
Each paper is listed by ID, year, title, and the opening of its abstract.
{{- end}}
{{end}}

{{- define "knobs" -}}
Creativity level: {{.Creativity}}%. Analysis depth: {{.Depth}}%.
{{end}}

{{- define "focus" -}}
{{if .FocusClause}}{{.FocusClause}}
{{end}}
{{- end}}

{{- define "full" -}}
For each topic give a short name, 3 to 6 keywords, novelty and impact scores between 0 and 1, the number of papers as volume, a trend of rising, stable, or declining, a description, and the IDs of its papers exactly as listed.
Also identify emerging topics that cut across clusters, and give per-year paper counts for every topic as trendData.
Finish with an overall summary and a short methodology note.
{{end}}

{{- define "footer" -}}
Respond only with JSON matching the response schema.

PAPERS:
{{.Payload}}
{{- end}}

{{- define "consultant" -}}
{{template "header" .}}
Act as a provocative research strategy consultant. Go beyond describing the literature: speculate on where the field is heading, which assumptions look fragile, and which combinations of ideas could open new fronts.
{{template "knobs" .}}{{template "focus" .}}{{template "full" .}}
{{template "footer" .}}
{{- end}}

{{- define "standard" -}}
{{template "header" .}}
Act as a meticulous research analyst. Group the papers into coherent topics that together cover the corpus and describe each topic factually and comprehensively.
{{template "knobs" .}}{{template "focus" .}}{{template "full" .}}
{{template "footer" .}}
{{- end}}

{{- define "strict" -}}
{{template "header" .}}
Act as a deterministic clustering engine and follow these steps exactly:
1. Discard noise: papers that are off-topic, errata, editorials, or too vague to classify. Report how many you discarded as noise_paper_count.
2. Ignore generic terms such as "study", "analysis", "effect", "method", and "patients" when naming topics. List the ignored terms as stopwords.
3. Cluster the remaining papers into mutually exclusive topics. Every kept paper belongs to exactly one topic, referenced by its ID exactly as listed.
4. Score novelty and impact between 0 and 1 and label each trend rising, stable, or declining. Do not compute per-year counts and do not propose emerging topics.
{{template "focus" .}}Finish with a summary and a methodology note describing the filtering you applied.
{{template "footer" .}}
{{- end}}
`))

var trendTmpl = template.Must(template.New("trend").Parse(`You are a senior research foresight analyst for the field of "{{.Field}}".
Below is hotspot data (keywords, topics, or frequency lists) collected for this field.
Produce three parts:
1. trendJudgment: judge the overall direction of the field. Say which topics are heating up, which are cooling, and what drives the change.
2. deepDive: take the single most prominent entry in the data and analyze it in depth, covering its origin, current state, open problems, and likely next steps.
3. abstractSection: write an academic-style abstract of 150 to 250 words summarizing this trend analysis as if for a review article.
Respond only with JSON matching the response schema.

HOTSPOT DATA:
{{.Corpus}}`))

var translationTmpl = template.Must(template.New("translation").Parse(`Translate the following text into {{.Target}}. Return only the translation, without explanations, quotes, or notes.

{{.Text}}`))

type analysisData struct {
	Field       string
	Count       int
	TitleOnly   bool
	Creativity  int
	Depth       int
	FocusClause string
	Payload     string
}

// BuildAnalysis assembles the analysis request for a shaped payload. The
// mode in cfg.Algorithm selects the instruction, schema, and temperature.
// An unrecognized mode is an error.
func BuildAnalysis(p shape.Payload, field string, cfg types.AnalysisConfig) (Request, error) {
	mode := cfg.Algorithm
	temp, err := Temperature(mode)
	if err != nil {
		return Request{}, err
	}

	data := analysisData{
		Field:       fieldOrDefault(field),
		Count:       p.Count(),
		TitleOnly:   p.TitleOnly,
		Creativity:  percent(cfg.Creativity),
		Depth:       percent(cfg.Depth),
		FocusClause: FocusClause(cfg.Focus),
		Payload:     p.Text,
	}

	var schema *Schema
	switch mode {
	case types.ModeStrict:
		schema = strictAnalysisSchema()
	case types.ModeStandard, types.ModeConsultant:
		schema = fullAnalysisSchema()
	}

	return Request{
		Task:        TaskAnalysis,
		Prompt:      render(analysisTmpl, string(mode), data),
		Temperature: temp,
		Schema:      schema,
	}, nil
}

// FocusClause returns the instruction sentence for a focus setting.
// Balanced focus adds nothing.
func FocusClause(f types.Focus) string {
	switch f {
	case types.FocusBroad:
		return "Focus: take a broad view. Prefer fewer, wider topics that capture interdisciplinary connections."
	case types.FocusSpecific:
		return "Focus: be specific. Prefer narrow, precisely bounded topics and name concrete methods, targets, or populations."
	}
	return ""
}

// BuildTrend assembles the trend-forecast request. The corpus is cut to
// TrendCorpusLimit characters.
func BuildTrend(field, corpus string) Request {
	corpus, _ = truncateRunes(strings.TrimSpace(corpus), TrendCorpusLimit)
	return Request{
		Task: TaskTrend,
		Prompt: render(trendTmpl, "trend", struct{ Field, Corpus string }{
			Field:  fieldOrDefault(field),
			Corpus: corpus,
		}),
		Temperature: trendTemperature,
		Schema:      trendSchema(),
	}
}

// BuildTranslation assembles a translation request for text. It reports
// false, and builds nothing, when the trimmed text is shorter than
// MinTranslationChars.
func BuildTranslation(text, target string) (Request, bool) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < MinTranslationChars {
		return Request{}, false
	}
	if target == "" {
		target = "Chinese"
	}
	return Request{
		Task: TaskTranslation,
		Prompt: render(translationTmpl, "translation", struct{ Target, Text string }{
			Target: target,
			Text:   text,
		}),
		Temperature: translationTemperature,
	}, true
}

func fieldOrDefault(field string) string {
	field = strings.TrimSpace(field)
	if field == "" {
		return defaultField
	}
	return field
}

func percent(v float64) int {
	return int(math.Round(v * 100))
}

func truncateRunes(s string, limit int) (string, bool) {
	if utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i], true
		}
		n++
	}
	return s, false
}

// render executes a named template. The templates are fixed at build time
// and only receive strings and numbers, so an execution error is a
// programming mistake.
func render(t *template.Template, name string, data any) string {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		panic(fmt.Sprintf("prompt: rendering %s: %v", name, err))
	}
	return buf.String()
}
