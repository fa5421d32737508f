package models

// SpecKey is the plant/line/product key a specification is configured for.
type SpecKey struct {
	PlantName   string `json:"plant_name" yaml:"plant_name"`
	PlantLine   string `json:"plant_line" yaml:"plant_line"`
	ProductName string `json:"product_name" yaml:"product_name"`
}

// Bound is an optional specification limit. Valid=false means the attribute
// is intentionally unconstrained on that side, which is not the same thing
// as the specification being missing altogether.
type Bound struct {
	Value float64 `json:"value" yaml:"value"`
	Valid bool    `json:"valid" yaml:"valid"`
}

// NewBound returns a present bound.
func NewBound(v float64) Bound { return Bound{Value: v, Valid: true} }

// Specification is the product-specific specification (PSS) for one
// plant/line/product: the thresholds an hourly blend must meet. Reference
// data, read-only to the pipeline.
type Specification struct {
	Key               SpecKey    `json:"key" yaml:"key"`
	PlantID           int        `json:"plant_id" yaml:"plant_id"`
	ProductID         int64      `json:"product_id" yaml:"product_id"`
	MinDryMatterPct   Bound      `json:"min_dry_matter_pct" yaml:"min_dry_matter_pct"`
	MaxDryMatterPct   Bound      `json:"max_dry_matter_pct" yaml:"max_dry_matter_pct"`
	MaxDefectPoints   Bound      `json:"max_defect_points" yaml:"max_defect_points"`
	MinAvgLengthMM    Bound      `json:"min_avg_length_mm" yaml:"min_avg_length_mm"`
	MaxAvgLengthMM    Bound      `json:"max_avg_length_mm" yaml:"max_avg_length_mm"`
	TargetAvgLengthMM Bound      `json:"target_avg_length_mm" yaml:"target_avg_length_mm"`
	MaxColorPct       [5]Bound   `json:"max_color_pct" yaml:"max_color_pct"`
	ApprovedVarieties []string   `json:"approved_potato_varieties" yaml:"approved_potato_varieties"`
}

// AllowsVariety reports whether the allow-list permits at least one of the
// given varieties. An empty allow-list means unconstrained.
func (s Specification) AllowsVariety(varieties []string) bool {
	if len(s.ApprovedVarieties) == 0 {
		return true
	}
	approved := make(map[string]struct{}, len(s.ApprovedVarieties))
	for _, v := range s.ApprovedVarieties {
		approved[v] = struct{}{}
	}
	for _, v := range varieties {
		if _, ok := approved[v]; ok {
			return true
		}
	}
	return false
}
