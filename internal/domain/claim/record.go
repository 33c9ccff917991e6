// Package claim defines the Forest Rights claim record consumed by the
// decision-support engine, its closed categorical vocabularies and the
// canonical default table used to complete partially supplied claims.
package claim

import (
	"fmt"
	"math"

	"github.com/turtacn/ForestRights-DSS/pkg/errors"
)

// Categorical field names, used as one-hot column prefixes.
const (
	FieldLandType      = "land_type"
	FieldState         = "state"
	FieldSeasonApplied = "season_applied"
)

// Land types.
const (
	LandTypeAgricultural = "agricultural"
	LandTypeGrazing      = "grazing"
	LandTypeMixed        = "mixed"
)

// Seasons.
const (
	SeasonSummer  = "summer"
	SeasonMonsoon = "monsoon"
	SeasonWinter  = "winter"
)

// States covered by the deployment.
const (
	StateJharkhand     = "Jharkhand"
	StateOdisha        = "Odisha"
	StateChhattisgarh  = "Chhattisgarh"
	StateMaharashtra   = "Maharashtra"
	StateMadhyaPradesh = "Madhya Pradesh"
)

// Vocabularies, in sampling order. Both training and inference read these.
var (
	LandTypes = []string{LandTypeAgricultural, LandTypeGrazing, LandTypeMixed}
	States    = []string{StateJharkhand, StateOdisha, StateChhattisgarh, StateMaharashtra, StateMadhyaPradesh}
	Seasons   = []string{SeasonSummer, SeasonMonsoon, SeasonWinter}
)

// CategoricalField pairs a categorical field name with its vocabulary.
type CategoricalField struct {
	Name       string
	Vocabulary []string
}

// CategoricalFields lists the categorical fields in encoding order.
var CategoricalFields = []CategoricalField{
	{Name: FieldLandType, Vocabulary: LandTypes},
	{Name: FieldState, Vocabulary: States},
	{Name: FieldSeasonApplied, Vocabulary: Seasons},
}

// NumericFields lists the numeric field names in encoding order.
var NumericFields = []string{
	"area_claimed",
	"family_size",
	"years_of_use",
	"documentation_score",
	"community_support",
	"environmental_impact",
	"legal_compliance",
	"distance_to_forest",
	"previous_violations",
}

// Record is a fully resolved claim. Values are never mutated after
// construction; merges produce a new Record.
type Record struct {
	AreaClaimed         float64 `json:"area_claimed"`
	FamilySize          int     `json:"family_size"`
	YearsOfUse          float64 `json:"years_of_use"`
	DocumentationScore  float64 `json:"documentation_score"`
	CommunitySupport    float64 `json:"community_support"`
	EnvironmentalImpact float64 `json:"environmental_impact"`
	LegalCompliance     float64 `json:"legal_compliance"`
	DistanceToForest    float64 `json:"distance_to_forest"`
	PreviousViolations  int     `json:"previous_violations"`

	LandType      string `json:"land_type"`
	State         string `json:"state"`
	SeasonApplied string `json:"season_applied"`

	ClaimantName string `json:"claimant_name,omitempty"`
	Village      string `json:"village,omitempty"`
	District     string `json:"district,omitempty"`
	ClaimID      string `json:"claim_id,omitempty"`
}

// NumericValues returns the numeric fields in NumericFields order.
func (r Record) NumericValues() []float64 {
	return []float64{
		r.AreaClaimed,
		float64(r.FamilySize),
		r.YearsOfUse,
		r.DocumentationScore,
		r.CommunitySupport,
		r.EnvironmentalImpact,
		r.LegalCompliance,
		r.DistanceToForest,
		float64(r.PreviousViolations),
	}
}

// Categorical returns the value of the named categorical field.
func (r Record) Categorical(field string) string {
	switch field {
	case FieldLandType:
		return r.LandType
	case FieldState:
		return r.State
	case FieldSeasonApplied:
		return r.SeasonApplied
	default:
		return ""
	}
}

// UnknownCategories returns "field=value" for every categorical value that is
// outside its vocabulary. Such values encode as an all-zero block.
func (r Record) UnknownCategories() []string {
	var unknown []string
	for _, f := range CategoricalFields {
		v := r.Categorical(f.Name)
		if !contains(f.Vocabulary, v) {
			unknown = append(unknown, fmt.Sprintf("%s=%s", f.Name, v))
		}
	}
	return unknown
}

// Validate rejects values no downstream computation can make sense of:
// non-finite numbers and negative sizes or counts.
func (r Record) Validate() error {
	for i, v := range r.NumericValues() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Newf(errors.ErrCodeInvalidClaim, "%s must be a finite number", NumericFields[i])
		}
	}
	switch {
	case r.AreaClaimed < 0:
		return errors.New(errors.ErrCodeInvalidClaim, "area_claimed must not be negative")
	case r.FamilySize < 0:
		return errors.New(errors.ErrCodeInvalidClaim, "family_size must not be negative")
	case r.YearsOfUse < 0:
		return errors.New(errors.ErrCodeInvalidClaim, "years_of_use must not be negative")
	case r.DistanceToForest < 0:
		return errors.New(errors.ErrCodeInvalidClaim, "distance_to_forest must not be negative")
	case r.PreviousViolations < 0:
		return errors.New(errors.ErrCodeInvalidClaim, "previous_violations must not be negative")
	}
	return nil
}

func contains(vocab []string, v string) bool {
	for _, s := range vocab {
		if s == v {
			return true
		}
	}
	return false
}
