package handlers

import (
	"github.com/xeipuuv/gojsonschema"

	"github.com/turtacn/ForestRights-DSS/internal/domain/claim"
)

// Request schemas are derived from the claim vocabularies so that an unknown
// land type, state or season is rejected here instead of being scored as an
// all-zero block.
var (
	claimSchema         = mustSchema(objectSchema(claimProperties(), nil))
	documentClaimSchema = mustSchema(objectSchema(map[string]any{
		"claim": objectSchema(claimProperties(), nil),
		"document": objectSchema(map[string]any{
			"entities": map[string]any{
				"type":  "array",
				"items": objectSchema(entityProperties(), []string{"type", "value", "confidence"}),
			},
		}, nil),
	}, nil))
)

func mustSchema(doc map[string]any) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		panic(err)
	}
	return s
}

func objectSchema(props map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// nullable admits an explicit JSON null next to typ. Null decodes to an unset
// field, which Resolve fills from document signals and then the defaults.
func nullable(typ string) []string {
	return []string{typ, "null"}
}

func bounded(typ string, min float64, max *float64) map[string]any {
	s := map[string]any{"type": nullable(typ), "minimum": min}
	if max != nil {
		s["maximum"] = *max
	}
	return s
}

func claimProperties() map[string]any {
	one := 1.0
	props := map[string]any{
		"area_claimed":         bounded("number", 0, nil),
		"family_size":          bounded("integer", 0, nil),
		"years_of_use":         bounded("number", 0, nil),
		"documentation_score":  bounded("number", 0, &one),
		"community_support":    bounded("number", 0, &one),
		"environmental_impact": bounded("number", 0, &one),
		"legal_compliance":     bounded("number", 0, &one),
		"distance_to_forest":   bounded("number", 0, nil),
		"previous_violations":  bounded("integer", 0, nil),
		"claimant_name":        map[string]any{"type": nullable("string")},
		"village":              map[string]any{"type": nullable("string")},
		"district":             map[string]any{"type": nullable("string")},
		"claim_id":             map[string]any{"type": nullable("string")},
	}
	for _, f := range claim.CategoricalFields {
		enum := make([]any, 0, len(f.Vocabulary)+1)
		for _, v := range f.Vocabulary {
			enum = append(enum, v)
		}
		props[f.Name] = map[string]any{"type": nullable("string"), "enum": append(enum, nil)}
	}
	return props
}

func entityProperties() map[string]any {
	one := 1.0
	return map[string]any{
		"type":       map[string]any{"type": "string"},
		"value":      map[string]any{"type": "string"},
		"confidence": bounded("number", 0, &one),
	}
}

// validateBody returns the schema violations in body. A body that is not
// JSON yields a single violation.
func validateBody(s *gojsonschema.Schema, body []byte) []string {
	result, err := s.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return []string{"request body is not valid JSON"}
	}
	if result.Valid() {
		return nil
	}
	out := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		out = append(out, e.String())
	}
	return out
}
