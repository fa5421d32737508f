package blend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blend-quality-service/internal/models"
)

func baseSpec() models.Specification {
	return models.Specification{
		Key:             models.SpecKey{PlantName: testKey.PlantName, PlantLine: testKey.PlantLine, ProductName: testKey.ProductName},
		MinDryMatterPct: models.NewBound(20.0),
		MaxDryMatterPct: models.NewBound(24.0),
		MaxDefectPoints: models.NewBound(2.0),
	}
}

func summaryWith(dryMatter, defects float64) models.BlendSummary {
	return models.BlendSummary{
		Key:          testKey,
		DryMatterPct: dryMatter,
		DefectPoints: defects,
		SampleCount:  4,
	}
}

func TestEvaluate_CompliantInsideAlertBand(t *testing.T) {
	// Just above the minimum: compliant on paper but inside the dry-matter
	// alert band, and comfortably under the defect ceiling.
	result := Evaluate(summaryWith(20.2, 1.5), baseSpec(), DefaultBands)

	assert.True(t, result.Compliant)
	assert.True(t, result.Alerting)

	dry, ok := result.Check(AttrDryMatter)
	require.True(t, ok)
	assert.True(t, dry.Compliant)
	assert.True(t, dry.Alert)

	defects, ok := result.Check(AttrDefects)
	require.True(t, ok)
	assert.True(t, defects.Compliant)
	assert.False(t, defects.Alert)
}

func TestEvaluate_DryMatterBelowMinimum(t *testing.T) {
	result := Evaluate(summaryWith(19.5, 1.0), baseSpec(), DefaultBands)

	assert.False(t, result.Compliant)
	dry, _ := result.Check(AttrDryMatter)
	assert.False(t, dry.Compliant)
	assert.True(t, dry.Alert)
}

func TestEvaluate_DryMatterAboveMaximum(t *testing.T) {
	result := Evaluate(summaryWith(24.5, 1.0), baseSpec(), DefaultBands)

	assert.False(t, result.Compliant)
	dry, _ := result.Check(AttrDryMatter)
	assert.False(t, dry.Compliant)
	assert.False(t, dry.Alert)
}

func TestEvaluate_DefectAlertNearCeiling(t *testing.T) {
	// 1.9 is within 0.2 of the 2.0 ceiling: still compliant, alerting.
	result := Evaluate(summaryWith(21.0, 1.9), baseSpec(), DefaultBands)

	defects, _ := result.Check(AttrDefects)
	assert.True(t, defects.Compliant)
	assert.True(t, defects.Alert)
	assert.True(t, result.Compliant)
	assert.True(t, result.Alerting)

	// Over the ceiling: non-compliant and necessarily also alerting.
	result = Evaluate(summaryWith(21.0, 2.3), baseSpec(), DefaultBands)
	defects, _ = result.Check(AttrDefects)
	assert.False(t, defects.Compliant)
	assert.True(t, defects.Alert)
	assert.False(t, result.Compliant)
}

func TestEvaluate_AlertImpliesWheneverBreached(t *testing.T) {
	// Any dry-matter value below the minimum must also sit inside the alert
	// band, so a breach without an alert can never occur.
	spec := baseSpec()
	for dm := 17.0; dm < 22.0; dm += 0.05 {
		result := Evaluate(summaryWith(dm, 1.0), spec, DefaultBands)
		dry, _ := result.Check(AttrDryMatter)
		if !dry.Compliant && dm < spec.MinDryMatterPct.Value {
			assert.True(t, dry.Alert, "dm=%.2f breached without alert", dm)
		}
	}
	for d := 0.0; d < 4.0; d += 0.05 {
		result := Evaluate(summaryWith(21.0, d), spec, DefaultBands)
		defects, _ := result.Check(AttrDefects)
		if !defects.Compliant {
			assert.True(t, defects.Alert, "defects=%.2f breached without alert", d)
		}
	}
}

func TestEvaluate_DryMatterMonotonicity(t *testing.T) {
	// Raising dry matter while everything else is fixed never turns a
	// compliant bucket non-compliant below the upper bound.
	spec := baseSpec()
	spec.MaxDryMatterPct = models.Bound{}

	prevCompliant := false
	for dm := 18.0; dm <= 26.0; dm += 0.1 {
		result := Evaluate(summaryWith(dm, 1.0), spec, DefaultBands)
		if prevCompliant {
			assert.True(t, result.Compliant, "compliance lost at dm=%.2f", dm)
		}
		prevCompliant = result.Compliant
	}
}

func TestEvaluate_MissingBoundsPass(t *testing.T) {
	// A specification with no bounds at all constrains nothing.
	result := Evaluate(summaryWith(5.0, 99.0), models.Specification{}, DefaultBands)

	assert.True(t, result.Compliant)
	assert.False(t, result.Alerting)
	for _, c := range result.Checks {
		assert.True(t, c.Compliant, "attribute %s", c.Attribute)
	}
}

func TestEvaluate_LengthBounds(t *testing.T) {
	spec := baseSpec()
	spec.MinAvgLengthMM = models.NewBound(60)
	spec.MaxAvgLengthMM = models.NewBound(90)

	summary := summaryWith(21.0, 1.0)
	summary.AvgLengthMM = 55
	result := Evaluate(summary, spec, DefaultBands)
	length, _ := result.Check(AttrAvgLength)
	assert.False(t, length.Compliant)
	assert.False(t, result.Compliant)

	summary.AvgLengthMM = 72
	result = Evaluate(summary, spec, DefaultBands)
	length, _ = result.Check(AttrAvgLength)
	assert.True(t, length.Compliant)
}

func TestEvaluate_ColorCaps(t *testing.T) {
	spec := baseSpec()
	spec.MaxColorPct[3] = models.NewBound(10)
	spec.MaxColorPct[4] = models.NewBound(2)

	summary := summaryWith(21.0, 1.0)
	summary.Color = models.ColorDistribution{Color0: 40, Color1: 30, Color2: 15, Color3: 12, Color4: 3}

	result := Evaluate(summary, spec, DefaultBands)
	assert.False(t, result.Compliant)

	c3, ok := result.Check("usda_color_3_pct")
	require.True(t, ok)
	assert.False(t, c3.Compliant)
	c4, ok := result.Check("usda_color_4_pct")
	require.True(t, ok)
	assert.False(t, c4.Compliant)

	// Uncapped buckets never produce a check.
	_, ok = result.Check("usda_color_0_pct")
	assert.False(t, ok)
}

func TestEvaluate_VarietyAllowList(t *testing.T) {
	spec := baseSpec()
	spec.ApprovedVarieties = []string{"Russet", "Innovator"}

	summary := summaryWith(21.0, 1.0)
	summary.Varieties = []string{"Bintje"}
	result := Evaluate(summary, spec, DefaultBands)
	assert.False(t, result.VarietyOK)
	assert.False(t, result.Compliant)

	summary.Varieties = []string{"Bintje", "Russet"}
	result = Evaluate(summary, spec, DefaultBands)
	assert.True(t, result.VarietyOK)
	assert.True(t, result.Compliant)

	// Empty allow-list is unconstrained.
	spec.ApprovedVarieties = nil
	summary.Varieties = []string{"Bintje"}
	result = Evaluate(summary, spec, DefaultBands)
	assert.True(t, result.VarietyOK)
}
