package blend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blend-quality-service/internal/models"
)

var testCosts = map[string]float64{
	"Russet":    310,
	"Innovator": 335,
	"Shepody":   298,
	"Bintje":    289,
}

func hourRecord(hour time.Time, compliant, alerting bool, suggestion *models.SuggestedAdjustment) HourRecord {
	key := testKey
	key.HourStart = hour
	return HourRecord{
		Summary: models.BlendSummary{
			Key: key,
			Sources: []models.SourceContribution{
				{Supplier: "S1", Variety: "Bintje", Fraction: 0.5},
				{Supplier: "S2", Variety: "Russet", Fraction: 0.5},
			},
		},
		Result:     models.ComplianceResult{Key: key, Compliant: compliant, Alerting: alerting},
		Suggestion: suggestion,
		Spec:       baseSpec(),
	}
}

func TestObservedCostPerTonne(t *testing.T) {
	summary := models.BlendSummary{
		Sources: []models.SourceContribution{
			{Supplier: "S1", Variety: "Bintje", Fraction: 0.4},
			{Supplier: "S2", Variety: "Innovator", Fraction: 0.6},
		},
	}
	// 0.4*289 + 0.6*335
	assert.InDelta(t, 316.6, ObservedCostPerTonne(summary, testCosts), 1e-9)
}

func TestObservedCostPerTonne_UnknownVarietyContributesNothing(t *testing.T) {
	summary := models.BlendSummary{
		Sources: []models.SourceContribution{
			{Supplier: "S1", Variety: "Bintje", Fraction: 0.5},
			{Supplier: "S2", Variety: "Experimental-X", Fraction: 0.5},
		},
	}
	assert.InDelta(t, 144.5, ObservedCostPerTonne(summary, testCosts), 1e-9)
}

func TestReferenceCostPerTonne(t *testing.T) {
	spec := baseSpec()
	spec.ApprovedVarieties = []string{"Russet", "Innovator"}
	assert.InDelta(t, 310, ReferenceCostPerTonne(spec, testCosts), 1e-9)

	// Empty allow-list falls back to the cheapest known variety.
	spec.ApprovedVarieties = nil
	assert.InDelta(t, 289, ReferenceCostPerTonne(spec, testCosts), 1e-9)

	// Approved varieties with no cost entry are skipped.
	spec.ApprovedVarieties = []string{"Experimental-X", "Shepody"}
	assert.InDelta(t, 298, ReferenceCostPerTonne(spec, testCosts), 1e-9)
}

func TestDailyRollup(t *testing.T) {
	day := time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC)
	adopted := &models.SuggestedAdjustment{Status: models.AdoptionAdopted}
	rejected := &models.SuggestedAdjustment{Status: models.AdoptionRejected}

	records := []HourRecord{
		hourRecord(day.Add(8*time.Hour), true, false, nil),
		hourRecord(day.Add(9*time.Hour), true, true, adopted),
		hourRecord(day.Add(10*time.Hour), false, true, rejected),
		hourRecord(day.Add(11*time.Hour), true, false, nil),
		// Next day: must land in its own bucket.
		hourRecord(day.Add(26*time.Hour), false, true, nil),
	}

	kpis := DailyRollup(records, testCosts)
	require.Len(t, kpis, 2)

	first := kpis[0]
	assert.Equal(t, day, first.Day)
	assert.Equal(t, 4, first.TotalHours)
	assert.Equal(t, 3, first.CompliantHours)
	assert.Equal(t, 2, first.AlertHours)
	assert.InDelta(t, 75.0, first.ComplianceRatePct, 1e-9)
	assert.Equal(t, 2, first.SuggestionsIssued)
	assert.Equal(t, 1, first.SuggestionsAdopted)
	assert.InDelta(t, 50.0, first.AdoptionRatePct, 1e-9)

	// Every hour runs a 50/50 Bintje/Russet blend against a spec with no
	// allow-list, so observed and reference costs are flat across hours.
	assert.InDelta(t, 299.5, first.ObservedCost, 1e-9)
	assert.InDelta(t, 289.0, first.ReferenceCost, 1e-9)
	assert.InDelta(t, 10.5, first.CostDelta, 1e-9)

	second := kpis[1]
	assert.Equal(t, day.Add(24*time.Hour), second.Day)
	assert.Equal(t, 1, second.TotalHours)
	assert.Equal(t, 0, second.CompliantHours)
	assert.InDelta(t, 0.0, second.ComplianceRatePct, 1e-9)
	assert.InDelta(t, 0.0, second.AdoptionRatePct, 1e-9)
}

func TestDailyRollup_SeparatesDimensions(t *testing.T) {
	day := time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC)
	recA := hourRecord(day.Add(8*time.Hour), true, false, nil)
	recB := hourRecord(day.Add(8*time.Hour), false, false, nil)
	recB.Summary.Key.PlantLine = "L9"
	recB.Result.Key.PlantLine = "L9"

	kpis := DailyRollup([]HourRecord{recA, recB}, testCosts)
	require.Len(t, kpis, 2)
	assert.Equal(t, "L2", kpis[0].PlantLine)
	assert.Equal(t, "L9", kpis[1].PlantLine)
	assert.Equal(t, 1, kpis[0].TotalHours)
	assert.Equal(t, 1, kpis[1].TotalHours)
}

func TestDailyRollup_Deterministic(t *testing.T) {
	day := time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC)
	records := []HourRecord{
		hourRecord(day.Add(8*time.Hour), true, false, nil),
		hourRecord(day.Add(32*time.Hour), false, true, nil),
		hourRecord(day.Add(9*time.Hour), true, true, nil),
	}

	first := DailyRollup(records, testCosts)
	second := DailyRollup(records, testCosts)
	assert.Equal(t, first, second)
}

func TestWeeklyRollup(t *testing.T) {
	// 2025-08-18 is a Monday, ISO week 34; the Sunday before is week 33.
	monday := time.Date(2025, 8, 18, 10, 0, 0, 0, time.UTC)
	sunday := time.Date(2025, 8, 17, 10, 0, 0, 0, time.UTC)

	records := []HourRecord{
		hourRecord(sunday, true, false, nil),
		hourRecord(monday, true, false, nil),
		hourRecord(monday.Add(time.Hour), false, true, nil),
	}

	kpis := WeeklyRollup(records, testCosts)
	require.Len(t, kpis, 2)

	assert.Equal(t, 33, kpis[0].ISOWeek)
	assert.Equal(t, 1, kpis[0].TotalHours)

	assert.Equal(t, 34, kpis[1].ISOWeek)
	assert.Equal(t, 2025, kpis[1].ISOYear)
	assert.Equal(t, 2, kpis[1].TotalHours)
	assert.Equal(t, 1, kpis[1].CompliantHours)
	assert.InDelta(t, 50.0, kpis[1].ComplianceRatePct, 1e-9)
}
