package claim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArea(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"2.5 hectares", 2.5, true},
		{"Area: 3 ha", 3, true},
		{"1 Hectare", 1, true},
		{"10 acres", 10 * HectaresPerAcre, true},
		{"1 acre", HectaresPerAcre, true},
		{"2.5ha", 2.5, true},
		{"3hectares", 3, true},
		{"10acres", 10 * HectaresPerAcre, true},
		{"4 HA.", 4, true},
		{"12 bigha", 0, false},
		{"7 chains", 0, false},
		{"about two hectares", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseArea(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestExtractSignals(t *testing.T) {
	entities := []DocumentEntity{
		{Type: "PERSON", Value: "Birsa Oraon", Confidence: 0.92},
		{Type: "area", Value: "5 acres", Confidence: 0.81},
		{Type: "LOCATION", Value: "Torpa", Confidence: 0.75},
		{Type: "DISTRICT", Value: "Khunti", Confidence: 0.69},
		{Type: "DATE", Value: "12/03/2021", Confidence: 0.99},
		{Type: "AREA", Value: "unknown", Confidence: 0.95},
	}

	s := ExtractSignals(entities)
	require.NotNil(t, s.ClaimantName)
	assert.Equal(t, "Birsa Oraon", *s.ClaimantName)
	require.NotNil(t, s.AreaClaimed)
	assert.InDelta(t, 5*HectaresPerAcre, *s.AreaClaimed, 1e-9)
	require.NotNil(t, s.Village)
	assert.Equal(t, "Torpa", *s.Village)
	assert.Nil(t, s.District, "below-threshold entity is ignored")

	assert.Equal(t, 3, s.Used)
	assert.Equal(t, 3, s.Skipped)
	assert.Equal(t, 1, s.LowConfidence)
	assert.Equal(t, 2, s.Unusable())
}

func TestExtractSignals_CompactArea(t *testing.T) {
	s := ExtractSignals([]DocumentEntity{{Type: "AREA", Value: "12ha", Confidence: 0.9}})
	require.NotNil(t, s.AreaClaimed)
	assert.Equal(t, 12.0, *s.AreaClaimed)
	assert.Equal(t, 1, s.Used)
	assert.Zero(t, s.Skipped)
}

func TestExtractSignals_ThresholdIsInclusive(t *testing.T) {
	s := ExtractSignals([]DocumentEntity{{Type: "VILLAGE", Value: "Arki", Confidence: MinEntityConfidence}})
	require.NotNil(t, s.Village)
	assert.Equal(t, "Arki", *s.Village)
}

func TestExtractSignals_LastWins(t *testing.T) {
	s := ExtractSignals([]DocumentEntity{
		{Type: "AREA", Value: "1 ha", Confidence: 0.9},
		{Type: "AREA", Value: "4 ha", Confidence: 0.8},
	})
	require.NotNil(t, s.AreaClaimed)
	assert.Equal(t, 4.0, *s.AreaClaimed)
}

func TestResolve_WithExtractedSignals(t *testing.T) {
	s := ExtractSignals([]DocumentEntity{{Type: "AREA", Value: "2 acres", Confidence: 0.9}})
	rec := Input{}.Resolve(s)
	assert.InDelta(t, 2*HectaresPerAcre, rec.AreaClaimed, 1e-9)
	assert.Equal(t, Defaults.State, rec.State)
}
