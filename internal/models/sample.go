package models

import (
	"time"

	"github.com/google/uuid"
)

// ColorDistribution holds the USDA fry-color share per bucket (0..4), in
// percent of the sampled window. Buckets sum to ~100 for load samples.
type ColorDistribution struct {
	Color0 float64 `json:"usda_color_0_pct"`
	Color1 float64 `json:"usda_color_1_pct"`
	Color2 float64 `json:"usda_color_2_pct"`
	Color3 float64 `json:"usda_color_3_pct"`
	Color4 float64 `json:"usda_color_4_pct"`
}

// QualitySample is one delivered load's measured quality, recorded at intake
// and never mutated afterwards.
type QualitySample struct {
	ID           uuid.UUID         `json:"id"`
	PlantID      int               `json:"plant_id"`
	PlantName    string            `json:"plant_name"`
	PlantLine    string            `json:"plant_line"`
	ProductID    int64             `json:"product_id"`
	ProductName  string            `json:"product_name"`
	Supplier     string            `json:"supplier"`
	Variety      string            `json:"variety"`
	LoadNumber   string            `json:"load_number"`
	NetWeightKg  float64           `json:"net_weight_kg"`
	DryMatterPct float64           `json:"dry_matter_pct"`
	DefectPoints float64           `json:"total_defect_points"`
	AvgLengthMM  float64           `json:"average_length_mm"`
	Color        ColorDistribution `json:"color"`
	ArrivedAt    time.Time         `json:"arrived_at"`
}

// BucketKey identifies the plant/line/product/hour blend bucket a sample
// contributes to. HourStart is the sample's arrival time truncated to the
// hour, in UTC.
func (s QualitySample) BucketKey() BucketKey {
	return BucketKey{
		PlantID:     s.PlantID,
		PlantName:   s.PlantName,
		PlantLine:   s.PlantLine,
		ProductID:   s.ProductID,
		ProductName: s.ProductName,
		HourStart:   s.ArrivedAt.UTC().Truncate(time.Hour),
	}
}

// LineQualityEvent is a line-level continuous sensor measurement. Stored for
// correlation reporting only; the evaluator never reads these.
type LineQualityEvent struct {
	ID            uuid.UUID `json:"id"`
	Timestamp     time.Time `json:"datetime"`
	PlantID       int       `json:"plant_id"`
	PlantName     string    `json:"plant_name"`
	PlantLine     string    `json:"plant_line"`
	ProductID     int64     `json:"product_id"`
	ProductName   string    `json:"product_name"`
	Variety       string    `json:"variety"`
	AvgLengthMM   float64   `json:"avg_length_mm"`
	DefectPoints  float64   `json:"total_defect_points"`
	DrySolidsPct  float64   `json:"dry_solids_pct"`
	ColorCounts   [5]int64  `json:"usda_color_counts"`
}

// DowntimeEvent is one production-run or downtime segment from the OEE feed,
// kept for correlation reporting.
type DowntimeEvent struct {
	ID               uuid.UUID `json:"id"`
	PlantID          int       `json:"plant_id"`
	PlantName        string    `json:"plant_name"`
	PlantLine        string    `json:"plant_line"`
	ProductName      string    `json:"product_name"`
	Category1        string    `json:"downtime_cat_1"`
	Category2        string    `json:"downtime_cat_2"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	DurationSec      int64     `json:"duration"`
	DowntimeSec      int64     `json:"downtime_duration"`
	QtyPackedKg      float64   `json:"qty_packed"`
}
