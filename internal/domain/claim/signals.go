package claim

import (
	"regexp"
	"strconv"
	"strings"
)

// Entity types produced by the document extraction pipeline.
const (
	EntityArea     = "AREA"
	EntityPerson   = "PERSON"
	EntityVillage  = "VILLAGE"
	EntityLocation = "LOCATION"
	EntityDistrict = "DISTRICT"
)

// MinEntityConfidence is the extraction confidence below which an entity is
// ignored.
const MinEntityConfidence = 0.7

// HectaresPerAcre converts acres to hectares.
const HectaresPerAcre = 0.4047

// DocumentEntity is one entity extracted from a scanned claim document.
type DocumentEntity struct {
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// DocumentSignals are the claim fields recovered from document entities.
// Nil means the documents said nothing usable about that field.
type DocumentSignals struct {
	AreaClaimed  *float64 `json:"area_claimed,omitempty"`
	ClaimantName *string  `json:"claimant_name,omitempty"`
	Village      *string  `json:"village,omitempty"`
	District     *string  `json:"district,omitempty"`

	// Used and Skipped count entities that passed and failed the filters.
	// LowConfidence is the part of Skipped below MinEntityConfidence; the
	// rest had an unknown type or an unreadable area.
	Used          int `json:"used"`
	Skipped       int `json:"skipped"`
	LowConfidence int `json:"low_confidence"`
}

// Unusable counts confident entities that could not be mapped to a field.
func (s *DocumentSignals) Unusable() int {
	return s.Skipped - s.LowConfidence
}

var (
	numberPattern  = regexp.MustCompile(`\d+(?:\.\d+)?`)
	hectarePattern = regexp.MustCompile(`(?:^|[^a-z])(hectares?|ha)\b`)
	acrePattern    = regexp.MustCompile(`(?:^|[^a-z])acres?\b`)
)

// ExtractSignals maps entities to claim fields. Entities below
// MinEntityConfidence are skipped; when several entities map to the same
// field the last one wins.
func ExtractSignals(entities []DocumentEntity) *DocumentSignals {
	s := &DocumentSignals{}
	for _, e := range entities {
		if e.Confidence < MinEntityConfidence {
			s.Skipped++
			s.LowConfidence++
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(e.Type)) {
		case EntityArea:
			area, ok := ParseArea(e.Value)
			if !ok {
				s.Skipped++
				continue
			}
			s.AreaClaimed = &area
		case EntityPerson:
			s.ClaimantName = ptr(e.Value)
		case EntityVillage, EntityLocation:
			s.Village = ptr(e.Value)
		case EntityDistrict:
			s.District = ptr(e.Value)
		default:
			s.Skipped++
			continue
		}
		s.Used++
	}
	return s
}

// ParseArea reads the first number of an area expression and normalises it
// to hectares. Values without a recognised unit are rejected.
//
//	"2.5 hectares" → 2.5
//	"3 ha"         → 3
//	"2.5ha"        → 2.5
//	"10 acres"     → 4.047
func ParseArea(value string) (float64, bool) {
	v := strings.ToLower(value)
	m := numberPattern.FindString(v)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	switch {
	case hectarePattern.MatchString(v):
		return n, true
	case acrePattern.MatchString(v):
		return n * HectaresPerAcre, true
	default:
		return 0, false
	}
}
