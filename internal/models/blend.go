package models

import "time"

// BucketKey identifies one plant/line/product/hour blend bucket. Buckets are
// independent; a failure evaluating one never blocks another.
type BucketKey struct {
	PlantID     int       `json:"plant_id"`
	PlantName   string    `json:"plant_name"`
	PlantLine   string    `json:"plant_line"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	HourStart   time.Time `json:"hour_start"`
}

// SpecKey returns the plant/line/product portion used for specification
// lookup.
func (k BucketKey) SpecKey() SpecKey {
	return SpecKey{PlantName: k.PlantName, PlantLine: k.PlantLine, ProductName: k.ProductName}
}

// SourceContribution is one delivery source's share of a blend bucket.
type SourceContribution struct {
	Supplier     string  `json:"supplier"`
	Variety      string  `json:"variety"`
	WeightKg     float64 `json:"weight_kg"`
	Fraction     float64 `json:"fraction"`
	DryMatterPct float64 `json:"dry_matter_pct"`
}

// BlendSummary is the weight-fraction-weighted aggregate of the
// QualitySamples sharing one bucket. Derived, never mutated; recomputed when
// new samples for the hour arrive.
type BlendSummary struct {
	Key          BucketKey            `json:"key"`
	TotalWeight  float64              `json:"total_weight_kg"`
	DryMatterPct float64              `json:"dry_matter_pct"`
	DefectPoints float64              `json:"total_defect_points"`
	AvgLengthMM  float64              `json:"average_length_mm"`
	Color        ColorDistribution    `json:"color"`
	Sources      []SourceContribution `json:"sources"`
	Varieties    []string             `json:"varieties"`
	SampleCount  int                  `json:"sample_count"`
}

// Fractions returns the per-supplier fraction map.
func (b BlendSummary) Fractions() map[string]float64 {
	out := make(map[string]float64, len(b.Sources))
	for _, src := range b.Sources {
		out[src.Supplier] = src.Fraction
	}
	return out
}
