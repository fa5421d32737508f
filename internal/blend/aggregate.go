package blend

import (
	"sort"

	"blend-quality-service/internal/models"
)

// Aggregate folds the QualitySamples of one plant/line/product/hour bucket
// into a BlendSummary. Every numeric attribute is the net-weight-weighted
// mean of the contributing samples; each supplier's fraction is its share of
// the total delivered weight.
//
// Returns ErrInsufficientData when the total weight is zero so that the
// caller never sees a zero-filled summary that would score as compliant.
func Aggregate(key models.BucketKey, samples []models.QualitySample) (models.BlendSummary, error) {
	var total float64
	for _, s := range samples {
		if s.NetWeightKg > 0 {
			total += s.NetWeightKg
		}
	}
	if total == 0 {
		return models.BlendSummary{}, ErrInsufficientData
	}

	summary := models.BlendSummary{Key: key, TotalWeight: total}

	type supplierAcc struct {
		weight    float64
		dryMatter float64 // weight-weighted sum
		varieties map[string]float64
	}
	suppliers := map[string]*supplierAcc{}
	varietySet := map[string]struct{}{}

	for _, s := range samples {
		if s.NetWeightKg <= 0 {
			continue
		}
		w := s.NetWeightKg
		summary.DryMatterPct += s.DryMatterPct * w
		summary.DefectPoints += s.DefectPoints * w
		summary.AvgLengthMM += s.AvgLengthMM * w
		summary.Color.Color0 += s.Color.Color0 * w
		summary.Color.Color1 += s.Color.Color1 * w
		summary.Color.Color2 += s.Color.Color2 * w
		summary.Color.Color3 += s.Color.Color3 * w
		summary.Color.Color4 += s.Color.Color4 * w
		summary.SampleCount++

		acc, ok := suppliers[s.Supplier]
		if !ok {
			acc = &supplierAcc{varieties: map[string]float64{}}
			suppliers[s.Supplier] = acc
		}
		acc.weight += w
		acc.dryMatter += s.DryMatterPct * w
		acc.varieties[s.Variety] += w

		if s.Variety != "" {
			varietySet[s.Variety] = struct{}{}
		}
	}

	summary.DryMatterPct /= total
	summary.DefectPoints /= total
	summary.AvgLengthMM /= total
	summary.Color.Color0 /= total
	summary.Color.Color1 /= total
	summary.Color.Color2 /= total
	summary.Color.Color3 /= total
	summary.Color.Color4 /= total

	for supplier, acc := range suppliers {
		summary.Sources = append(summary.Sources, models.SourceContribution{
			Supplier:     supplier,
			Variety:      dominantVariety(acc.varieties),
			WeightKg:     acc.weight,
			Fraction:     acc.weight / total,
			DryMatterPct: acc.dryMatter / acc.weight,
		})
	}
	sort.Slice(summary.Sources, func(i, j int) bool {
		return summary.Sources[i].Supplier < summary.Sources[j].Supplier
	})

	for v := range varietySet {
		summary.Varieties = append(summary.Varieties, v)
	}
	sort.Strings(summary.Varieties)

	return summary, nil
}

// dominantVariety picks the variety with the largest delivered weight for a
// supplier. Ties break alphabetically for determinism.
func dominantVariety(weights map[string]float64) string {
	var best string
	var bestW float64
	for v, w := range weights {
		if w > bestW || (w == bestW && (best == "" || v < best)) {
			best, bestW = v, w
		}
	}
	return best
}
