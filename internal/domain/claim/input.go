package claim

// Input is a claim as supplied by a caller: every field is optional. A nil
// field means "not provided" and is completed by Resolve.
type Input struct {
	AreaClaimed         *float64 `json:"area_claimed,omitempty"`
	FamilySize          *int     `json:"family_size,omitempty"`
	YearsOfUse          *float64 `json:"years_of_use,omitempty"`
	DocumentationScore  *float64 `json:"documentation_score,omitempty"`
	CommunitySupport    *float64 `json:"community_support,omitempty"`
	EnvironmentalImpact *float64 `json:"environmental_impact,omitempty"`
	LegalCompliance     *float64 `json:"legal_compliance,omitempty"`
	DistanceToForest    *float64 `json:"distance_to_forest,omitempty"`
	PreviousViolations  *int     `json:"previous_violations,omitempty"`

	LandType      *string `json:"land_type,omitempty"`
	State         *string `json:"state,omitempty"`
	SeasonApplied *string `json:"season_applied,omitempty"`

	ClaimantName *string `json:"claimant_name,omitempty"`
	Village      *string `json:"village,omitempty"`
	District     *string `json:"district,omitempty"`
	ClaimID      *string `json:"claim_id,omitempty"`
}

// Defaults is the canonical default table for fields neither the caller nor
// the document signals supplied.
var Defaults = Record{
	AreaClaimed:         2.0,
	FamilySize:          4,
	YearsOfUse:          20.0,
	DocumentationScore:  0.7,
	CommunitySupport:    0.8,
	EnvironmentalImpact: 0.3,
	LegalCompliance:     0.8,
	DistanceToForest:    2.0,
	PreviousViolations:  0,
	LandType:            LandTypeAgricultural,
	State:               StateJharkhand,
	SeasonApplied:       SeasonWinter,
}

// Resolve completes the input into a Record. Precedence per field:
// explicit input, then document signals (may be nil), then Defaults.
// Identity fields have no default and stay empty when unset.
func (in Input) Resolve(signals *DocumentSignals) Record {
	if signals == nil {
		signals = &DocumentSignals{}
	}
	d := Defaults
	return Record{
		AreaClaimed:         pick(in.AreaClaimed, signals.AreaClaimed, d.AreaClaimed),
		FamilySize:          pick(in.FamilySize, nil, d.FamilySize),
		YearsOfUse:          pick(in.YearsOfUse, nil, d.YearsOfUse),
		DocumentationScore:  pick(in.DocumentationScore, nil, d.DocumentationScore),
		CommunitySupport:    pick(in.CommunitySupport, nil, d.CommunitySupport),
		EnvironmentalImpact: pick(in.EnvironmentalImpact, nil, d.EnvironmentalImpact),
		LegalCompliance:     pick(in.LegalCompliance, nil, d.LegalCompliance),
		DistanceToForest:    pick(in.DistanceToForest, nil, d.DistanceToForest),
		PreviousViolations:  pick(in.PreviousViolations, nil, d.PreviousViolations),
		LandType:            pick(in.LandType, nil, d.LandType),
		State:               pick(in.State, nil, d.State),
		SeasonApplied:       pick(in.SeasonApplied, nil, d.SeasonApplied),
		ClaimantName:        pick(in.ClaimantName, signals.ClaimantName, ""),
		Village:             pick(in.Village, signals.Village, ""),
		District:            pick(in.District, signals.District, ""),
		ClaimID:             pick(in.ClaimID, nil, ""),
	}
}

// InputFromRecord lifts a complete Record into an Input with every field set.
func InputFromRecord(r Record) Input {
	in := Input{
		AreaClaimed:         ptr(r.AreaClaimed),
		FamilySize:          ptr(r.FamilySize),
		YearsOfUse:          ptr(r.YearsOfUse),
		DocumentationScore:  ptr(r.DocumentationScore),
		CommunitySupport:    ptr(r.CommunitySupport),
		EnvironmentalImpact: ptr(r.EnvironmentalImpact),
		LegalCompliance:     ptr(r.LegalCompliance),
		DistanceToForest:    ptr(r.DistanceToForest),
		PreviousViolations:  ptr(r.PreviousViolations),
		LandType:            ptr(r.LandType),
		State:               ptr(r.State),
		SeasonApplied:       ptr(r.SeasonApplied),
	}
	if r.ClaimantName != "" {
		in.ClaimantName = ptr(r.ClaimantName)
	}
	if r.Village != "" {
		in.Village = ptr(r.Village)
	}
	if r.District != "" {
		in.District = ptr(r.District)
	}
	if r.ClaimID != "" {
		in.ClaimID = ptr(r.ClaimID)
	}
	return in
}

func pick[T any](explicit, signal *T, fallback T) T {
	if explicit != nil {
		return *explicit
	}
	if signal != nil {
		return *signal
	}
	return fallback
}

func ptr[T any](v T) *T { return &v }
