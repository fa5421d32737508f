package models

import (
	"time"

	"github.com/google/uuid"
)

// AttributeCheck is one attribute's outcome within a ComplianceResult.
type AttributeCheck struct {
	Attribute string  `json:"attribute"`
	Value     float64 `json:"value"`
	Compliant bool    `json:"compliant"`
	Alert     bool    `json:"alert"`
}

// ComplianceResult is the hourly blend-vs-specification verdict for one
// bucket. Overall compliance is the AND of every attribute check plus the
// variety allow-list check.
type ComplianceResult struct {
	ID        uuid.UUID        `json:"id"`
	Key       BucketKey        `json:"key"`
	Checks    []AttributeCheck `json:"checks"`
	VarietyOK bool             `json:"variety_ok"`
	Compliant bool             `json:"compliant"`
	Alerting  bool             `json:"alerting"`
	CreatedAt time.Time        `json:"created_at"`
}

// Check returns the named attribute check, if present.
func (r ComplianceResult) Check(attribute string) (AttributeCheck, bool) {
	for _, c := range r.Checks {
		if c.Attribute == attribute {
			return c, true
		}
	}
	return AttributeCheck{}, false
}

// Adoption status values for a SuggestedAdjustment.
const (
	AdoptionPending  = "pending"
	AdoptionAdopted  = "adopted"
	AdoptionRejected = "rejected"
)

// Suggestion directions.
const (
	DirectionReduceQuality = "reduce_quality" // blend over-spec, shift toward cheaper sources
	DirectionRaiseQuality  = "raise_quality"  // blend under-spec, shift toward higher dry matter
)

// SourceFraction is one supplier's blend fraction, actual or suggested.
type SourceFraction struct {
	Supplier string  `json:"supplier"`
	Variety  string  `json:"variety"`
	Fraction float64 `json:"fraction"`
}

// SuggestedAdjustment is a proposed replacement fraction set for a bucket
// that failed or alerted on dry matter. Fractions are clamped to [0,1] and
// deliberately not renormalized; FractionSum records the post-clamp total so
// consumers can see when it drifts from 1.
type SuggestedAdjustment struct {
	ID          uuid.UUID        `json:"id"`
	Key         BucketKey        `json:"key"`
	Direction   string           `json:"direction"`
	Step        float64          `json:"step"`
	Current     []SourceFraction `json:"current_fractions"`
	Suggested   []SourceFraction `json:"suggested_fractions"`
	FractionSum float64          `json:"fraction_sum"`
	Status      string           `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
}
