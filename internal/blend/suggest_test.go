package blend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blend-quality-service/internal/models"
)

func twoSourceSummary(dryMatter float64, lowFrac float64) models.BlendSummary {
	return models.BlendSummary{
		Key:          testKey,
		DryMatterPct: dryMatter,
		Sources: []models.SourceContribution{
			{Supplier: "S1", Variety: "Bintje", Fraction: lowFrac, DryMatterPct: 19.0},
			{Supplier: "S2", Variety: "Russet", Fraction: 1 - lowFrac, DryMatterPct: 23.0},
		},
	}
}

func fraction(fractions []models.SourceFraction, supplier string) float64 {
	for _, sf := range fractions {
		if sf.Supplier == supplier {
			return sf.Fraction
		}
	}
	return -1
}

func TestSuggest_UnderQualityShiftsTowardHighDryMatter(t *testing.T) {
	summary := twoSourceSummary(19.5, 0.6)
	spec := baseSpec()

	adj, ok := Suggest(summary, spec, DefaultSteps)
	require.True(t, ok)

	assert.Equal(t, models.DirectionRaiseQuality, adj.Direction)
	assert.InDelta(t, -0.07, adj.Step, 1e-9)
	assert.InDelta(t, 0.53, fraction(adj.Suggested, "S1"), 1e-9)
	assert.InDelta(t, 0.47, fraction(adj.Suggested, "S2"), 1e-9)
	assert.Equal(t, models.AdoptionPending, adj.Status)
	assert.InDelta(t, 1.0, adj.FractionSum, 1e-9)
}

func TestSuggest_OverQualityShiftsTowardLowDryMatter(t *testing.T) {
	// min 20.0 + margin 0.4 = 20.4; 21.0 is over-quality.
	summary := twoSourceSummary(21.0, 0.3)

	adj, ok := Suggest(summary, baseSpec(), DefaultSteps)
	require.True(t, ok)

	assert.Equal(t, models.DirectionReduceQuality, adj.Direction)
	assert.InDelta(t, 0.05, adj.Step, 1e-9)
	assert.InDelta(t, 0.35, fraction(adj.Suggested, "S1"), 1e-9)
	assert.InDelta(t, 0.65, fraction(adj.Suggested, "S2"), 1e-9)
}

func TestSuggest_InsideBandNoSuggestion(t *testing.T) {
	for _, dm := range []float64{20.0, 20.2, 20.4} {
		_, ok := Suggest(twoSourceSummary(dm, 0.5), baseSpec(), DefaultSteps)
		assert.False(t, ok, "dm=%.1f", dm)
	}
}

func TestSuggest_RequiresDryMatterMinimum(t *testing.T) {
	spec := baseSpec()
	spec.MinDryMatterPct = models.Bound{}

	_, ok := Suggest(twoSourceSummary(19.0, 0.5), spec, DefaultSteps)
	assert.False(t, ok)
}

func TestSuggest_RequiresTwoSources(t *testing.T) {
	summary := models.BlendSummary{
		Key:          testKey,
		DryMatterPct: 19.0,
		Sources: []models.SourceContribution{
			{Supplier: "S1", Variety: "Bintje", Fraction: 1.0, DryMatterPct: 19.0},
		},
	}
	_, ok := Suggest(summary, baseSpec(), DefaultSteps)
	assert.False(t, ok)
}

func TestSuggest_FractionsClampedToUnitInterval(t *testing.T) {
	// Low source at 0.05: the −0.07 shift clamps to 0 instead of going
	// negative, and the post-clamp sum is recorded as-is.
	summary := twoSourceSummary(19.0, 0.05)

	adj, ok := Suggest(summary, baseSpec(), DefaultSteps)
	require.True(t, ok)

	assert.Equal(t, 0.0, fraction(adj.Suggested, "S1"))
	assert.InDelta(t, 1.0, fraction(adj.Suggested, "S2"), 1e-9)
	for _, sf := range adj.Suggested {
		assert.GreaterOrEqual(t, sf.Fraction, 0.0)
		assert.LessOrEqual(t, sf.Fraction, 1.0)
	}
	assert.InDelta(t, 1.0, adj.FractionSum, 1e-9)
}

func TestSuggest_CurrentFractionsPreserved(t *testing.T) {
	summary := twoSourceSummary(19.0, 0.4)
	adj, ok := Suggest(summary, baseSpec(), DefaultSteps)
	require.True(t, ok)

	assert.InDelta(t, 0.4, fraction(adj.Current, "S1"), 1e-9)
	assert.InDelta(t, 0.6, fraction(adj.Current, "S2"), 1e-9)
}

func TestJudgeAdoption(t *testing.T) {
	adj := models.SuggestedAdjustment{
		Suggested: []models.SourceFraction{
			{Supplier: "S1", Fraction: 0.33},
			{Supplier: "S2", Fraction: 0.67},
		},
	}

	tests := []struct {
		name   string
		actual map[string]float64
		want   string
	}{
		{
			name:   "exact match",
			actual: map[string]float64{"S1": 0.33, "S2": 0.67},
			want:   models.AdoptionAdopted,
		},
		{
			name:   "within tolerance",
			actual: map[string]float64{"S1": 0.31, "S2": 0.69},
			want:   models.AdoptionAdopted,
		},
		{
			name:   "one source out of tolerance",
			actual: map[string]float64{"S1": 0.40, "S2": 0.60},
			want:   models.AdoptionRejected,
		},
		{
			name:   "missing supplier counts as zero",
			actual: map[string]float64{"S2": 1.0},
			want:   models.AdoptionRejected,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JudgeAdoption(adj, tt.actual, 0.03))
		})
	}
}
