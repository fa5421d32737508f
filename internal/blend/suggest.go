package blend

import (
	"math"
	"time"

	"github.com/google/uuid"

	"blend-quality-service/internal/models"
)

// Steps holds the suggester's fixed fraction steps and trigger margin.
type Steps struct {
	OverQualityMargin float64 // pp above min_dry_matter treated as over-quality
	StepDown          float64 // shift toward the low-dry-matter source when over-quality
	StepUp            float64 // shift toward the high-dry-matter source when under-quality
}

// DefaultSteps are the source bundle's hardcoded step sizes.
var DefaultSteps = Steps{OverQualityMargin: 0.4, StepDown: 0.05, StepUp: 0.07}

// Suggest proposes a bounded fraction shift for a blend whose dry matter is
// out of the economic band. Dry matter is the only attribute driving the
// shift; this is a myopic directional heuristic, not a cost optimizer.
//
// Over-quality (value above min + margin): the lowest-dry-matter source gains
// StepDown and the highest loses it, pulling blended cost down. Under-quality
// (value below min): the reverse, at StepUp. Each resulting fraction is
// clamped to [0,1] and the set is not renormalized afterwards; the post-clamp
// sum is recorded on the adjustment instead.
//
// Returns ok=false when the specification has no dry-matter minimum, the
// blend sits inside the band, or the bucket has fewer than two sources to
// shift between.
func Suggest(summary models.BlendSummary, spec models.Specification, steps Steps) (models.SuggestedAdjustment, bool) {
	if !spec.MinDryMatterPct.Valid || len(summary.Sources) < 2 {
		return models.SuggestedAdjustment{}, false
	}

	min := spec.MinDryMatterPct.Value
	var direction string
	var step float64
	switch {
	case summary.DryMatterPct > min+steps.OverQualityMargin:
		direction = models.DirectionReduceQuality
		step = steps.StepDown
	case summary.DryMatterPct < min:
		direction = models.DirectionRaiseQuality
		step = -steps.StepUp
	default:
		return models.SuggestedAdjustment{}, false
	}

	// step is applied to the lowest-dry-matter source and mirrored on the
	// highest, so the signed step alone encodes the direction.
	low, high := 0, 0
	for i, src := range summary.Sources {
		if src.DryMatterPct < summary.Sources[low].DryMatterPct {
			low = i
		}
		if src.DryMatterPct > summary.Sources[high].DryMatterPct {
			high = i
		}
	}
	if low == high {
		return models.SuggestedAdjustment{}, false
	}

	adj := models.SuggestedAdjustment{
		ID:        uuid.New(),
		Key:       summary.Key,
		Direction: direction,
		Step:      step,
		Status:    models.AdoptionPending,
		CreatedAt: time.Now().UTC(),
	}

	for i, src := range summary.Sources {
		adj.Current = append(adj.Current, models.SourceFraction{
			Supplier: src.Supplier,
			Variety:  src.Variety,
			Fraction: src.Fraction,
		})
		suggested := src.Fraction
		switch i {
		case low:
			suggested = clamp01(src.Fraction + step)
		case high:
			suggested = clamp01(src.Fraction - step)
		}
		adj.Suggested = append(adj.Suggested, models.SourceFraction{
			Supplier: src.Supplier,
			Variety:  src.Variety,
			Fraction: suggested,
		})
		adj.FractionSum += suggested
	}

	return adj, true
}

// JudgeAdoption compares a suggestion against the fractions actually run in
// the following hour. Adopted iff every suggested source's absolute
// difference is within tolerance; a supplier absent from the actual blend
// counts as fraction zero.
func JudgeAdoption(adj models.SuggestedAdjustment, actual map[string]float64, tolerance float64) string {
	for _, sf := range adj.Suggested {
		if math.Abs(actual[sf.Supplier]-sf.Fraction) > tolerance {
			return models.AdoptionRejected
		}
	}
	return models.AdoptionAdopted
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
