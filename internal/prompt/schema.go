// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prompt

import "encoding/json"

// Type is a JSON value type in a response schema.
type Type string

const (
	TypeObject  Type = "object"
	TypeArray   Type = "array"
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
)

// Schema describes the structured reply expected from the AI service. It is
// provider-neutral: the ai package converts it to each provider's native
// form, and it marshals to standard JSON Schema.
type Schema struct {
	Type        Type               `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`

	// Order lists property names in the order the reply should use.
	Order []string `json:"-"`
}

// MarshalJSON encodes the schema as JSON Schema.
func (s *Schema) MarshalJSON() ([]byte, error) {
	type plain Schema
	return json.Marshal((*plain)(s))
}

// field is one named property used when assembling object schemas.
type field struct {
	name     string
	schema   *Schema
	optional bool
}

func object(fields ...field) *Schema {
	s := &Schema{Type: TypeObject, Properties: make(map[string]*Schema, len(fields))}
	for _, f := range fields {
		s.Properties[f.name] = f.schema
		s.Order = append(s.Order, f.name)
		if !f.optional {
			s.Required = append(s.Required, f.name)
		}
	}
	return s
}

func arrayOf(items *Schema) *Schema { return &Schema{Type: TypeArray, Items: items} }

func str(desc string) *Schema { return &Schema{Type: TypeString, Description: desc} }

func num(desc string) *Schema { return &Schema{Type: TypeNumber, Description: desc} }

func integer(desc string) *Schema { return &Schema{Type: TypeInteger, Description: desc} }

func topicSchema() *Schema {
	return object(
		field{name: "id", schema: str("Short stable identifier for the topic."), optional: true},
		field{name: "name", schema: str("Concise topic name.")},
		field{name: "keywords", schema: arrayOf(str(""))},
		field{name: "novelty", schema: num("Novelty score between 0 and 1.")},
		field{name: "impact", schema: num("Impact score between 0 and 1.")},
		field{name: "volume", schema: integer("Number of papers in the topic.")},
		field{name: "trend", schema: &Schema{Type: TypeString, Enum: []string{"rising", "stable", "declining"}}},
		field{name: "description", schema: str("Two or three sentences describing the topic.")},
		field{name: "paperIds", schema: arrayOf(str("A paper ID exactly as given in the input."))},
	)
}

// fullAnalysisSchema is shared by the standard and consultant modes.
func fullAnalysisSchema() *Schema {
	return object(
		field{name: "topics", schema: arrayOf(topicSchema())},
		field{name: "emergingTopics", schema: arrayOf(object(
			field{name: "name", schema: str("")},
			field{name: "reason", schema: str("Why this front is emerging.")},
			field{name: "potentialScore", schema: num("Potential between 0 and 1.")},
			field{name: "paperIds", schema: arrayOf(str(""))},
		))},
		field{name: "trendData", schema: arrayOf(object(
			field{name: "year", schema: integer("")},
			field{name: "topic", schema: str("Topic name.")},
			field{name: "count", schema: integer("")},
		))},
		field{name: "summary", schema: str("")},
		field{name: "methodology", schema: str("")},
	)
}

func strictAnalysisSchema() *Schema {
	return object(
		field{name: "topics", schema: arrayOf(topicSchema())},
		field{name: "noise_paper_count", schema: integer("Number of papers discarded as noise."), optional: true},
		field{name: "stopwords", schema: arrayOf(str("")), optional: true},
		field{name: "summary", schema: str("")},
		field{name: "methodology", schema: str("")},
	)
}

func trendSchema() *Schema {
	return object(
		field{name: "trendJudgment", schema: str("Overall direction of the field.")},
		field{name: "deepDive", schema: str("In-depth analysis of the most prominent entry.")},
		field{name: "abstractSection", schema: str("Academic-style abstract of the analysis.")},
	)
}
