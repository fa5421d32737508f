package blend

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"blend-quality-service/internal/models"
)

// Monitored attribute names as they appear in AttributeCheck records.
const (
	AttrDryMatter = "dry_matter_pct"
	AttrDefects   = "total_defect_points"
	AttrAvgLength = "average_length_mm"
)

// Bands holds the alert tolerances applied short of the hard thresholds.
type Bands struct {
	DryMatterAlert float64 // pp above the minimum still raising an alert
	DefectAlert    float64 // points below the maximum already raising an alert
}

// DefaultBands are the source bundle's fixed tolerances.
var DefaultBands = Bands{DryMatterAlert: 0.3, DefectAlert: 0.2}

// Evaluate compares a blend summary against its resolved specification and
// produces the per-attribute and overall compliance verdict.
//
// A bound with Valid=false is an intentionally unconstrained side and passes;
// "specification not found" never reaches this function — the catalog
// surfaces that distinctly before any evaluation happens.
func Evaluate(summary models.BlendSummary, spec models.Specification, bands Bands) models.ComplianceResult {
	result := models.ComplianceResult{
		ID:        uuid.New(),
		Key:       summary.Key,
		CreatedAt: time.Now().UTC(),
	}

	// Dry matter: at or above min (alert band just above it), below max.
	dry := models.AttributeCheck{Attribute: AttrDryMatter, Value: summary.DryMatterPct, Compliant: true}
	if spec.MinDryMatterPct.Valid {
		if summary.DryMatterPct < spec.MinDryMatterPct.Value {
			dry.Compliant = false
		}
		if summary.DryMatterPct < spec.MinDryMatterPct.Value+bands.DryMatterAlert {
			dry.Alert = true
		}
	}
	if spec.MaxDryMatterPct.Valid && summary.DryMatterPct > spec.MaxDryMatterPct.Value {
		dry.Compliant = false
	}
	result.Checks = append(result.Checks, dry)

	// Defect points: at or below max, alert when approaching it.
	defects := models.AttributeCheck{Attribute: AttrDefects, Value: summary.DefectPoints, Compliant: true}
	if spec.MaxDefectPoints.Valid {
		if summary.DefectPoints > spec.MaxDefectPoints.Value {
			defects.Compliant = false
		}
		if summary.DefectPoints > spec.MaxDefectPoints.Value-bands.DefectAlert {
			defects.Alert = true
		}
	}
	result.Checks = append(result.Checks, defects)

	// Average length: inside whichever grading bounds are present.
	length := models.AttributeCheck{Attribute: AttrAvgLength, Value: summary.AvgLengthMM, Compliant: true}
	if spec.MinAvgLengthMM.Valid && summary.AvgLengthMM < spec.MinAvgLengthMM.Value {
		length.Compliant = false
	}
	if spec.MaxAvgLengthMM.Valid && summary.AvgLengthMM > spec.MaxAvgLengthMM.Value {
		length.Compliant = false
	}
	result.Checks = append(result.Checks, length)

	// USDA color: each bucket share under its cap where a cap exists.
	colorShares := [5]float64{
		summary.Color.Color0, summary.Color.Color1, summary.Color.Color2,
		summary.Color.Color3, summary.Color.Color4,
	}
	for i, limit := range spec.MaxColorPct {
		if !limit.Valid {
			continue
		}
		check := models.AttributeCheck{
			Attribute: fmt.Sprintf("usda_color_%d_pct", i),
			Value:     colorShares[i],
			Compliant: colorShares[i] <= limit.Value,
		}
		result.Checks = append(result.Checks, check)
	}

	result.VarietyOK = spec.AllowsVariety(summary.Varieties)

	result.Compliant = result.VarietyOK
	for _, c := range result.Checks {
		if !c.Compliant {
			result.Compliant = false
		}
		if c.Alert {
			result.Alerting = true
		}
	}

	return result
}
