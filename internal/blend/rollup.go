package blend

import (
	"sort"
	"time"

	"blend-quality-service/internal/models"
)

// HourRecord pairs one bucket's evaluated outputs for rollup purposes.
// Suggestion is nil for hours where the heuristic did not fire.
type HourRecord struct {
	Summary    models.BlendSummary
	Result     models.ComplianceResult
	Suggestion *models.SuggestedAdjustment
	Spec       models.Specification
}

// ObservedCostPerTonne is the blended raw-material cost of a summary:
// Σ fraction_i × cost(variety_i). Sources with unknown varieties contribute
// nothing, keeping the figure a lower bound rather than a guess.
func ObservedCostPerTonne(summary models.BlendSummary, costs map[string]float64) float64 {
	var total float64
	for _, src := range summary.Sources {
		total += src.Fraction * costs[src.Variety]
	}
	return total
}

// ReferenceCostPerTonne is the spec-minimum-achieving cost: the cheapest
// variety the specification allows. An empty allow-list means any known
// variety qualifies.
func ReferenceCostPerTonne(spec models.Specification, costs map[string]float64) float64 {
	candidates := spec.ApprovedVarieties
	if len(candidates) == 0 {
		for v := range costs {
			candidates = append(candidates, v)
		}
	}
	var ref float64
	for _, v := range candidates {
		c, ok := costs[v]
		if !ok {
			continue
		}
		if ref == 0 || c < ref {
			ref = c
		}
	}
	return ref
}

type rollupAcc struct {
	plant, line, product string
	hours                int
	compliant            int
	alerting             int
	issued               int
	adopted              int
	observedSum          float64
	referenceSum         float64
}

func (a *rollupAcc) add(rec HourRecord, costs map[string]float64) {
	a.hours++
	if rec.Result.Compliant {
		a.compliant++
	}
	if rec.Result.Alerting {
		a.alerting++
	}
	if rec.Suggestion != nil {
		a.issued++
		if rec.Suggestion.Status == models.AdoptionAdopted {
			a.adopted++
		}
	}
	a.observedSum += ObservedCostPerTonne(rec.Summary, costs)
	a.referenceSum += ReferenceCostPerTonne(rec.Spec, costs)
}

func pct(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return 100 * float64(part) / float64(whole)
}

// DailyRollup reduces hour records into per-plant/line/product daily KPIs.
// Pure reduction: records with distinct keys never interact, and re-running
// on the same input yields the same output.
func DailyRollup(records []HourRecord, costs map[string]float64) []models.DailyKPI {
	type dayKey struct {
		plant, line, product string
		day                  time.Time
	}
	accs := map[dayKey]*rollupAcc{}
	for _, rec := range records {
		k := dayKey{
			plant:   rec.Summary.Key.PlantName,
			line:    rec.Summary.Key.PlantLine,
			product: rec.Summary.Key.ProductName,
			day:     rec.Summary.Key.HourStart.UTC().Truncate(24 * time.Hour),
		}
		acc, ok := accs[k]
		if !ok {
			acc = &rollupAcc{plant: k.plant, line: k.line, product: k.product}
			accs[k] = acc
		}
		acc.add(rec, costs)
	}

	out := make([]models.DailyKPI, 0, len(accs))
	for k, acc := range accs {
		out = append(out, models.DailyKPI{
			PlantName:          acc.plant,
			PlantLine:          acc.line,
			ProductName:        acc.product,
			Day:                k.day,
			TotalHours:         acc.hours,
			CompliantHours:     acc.compliant,
			AlertHours:         acc.alerting,
			ComplianceRatePct:  pct(acc.compliant, acc.hours),
			SuggestionsIssued:  acc.issued,
			SuggestionsAdopted: acc.adopted,
			AdoptionRatePct:    pct(acc.adopted, acc.issued),
			ObservedCost:       acc.observedSum / float64(acc.hours),
			ReferenceCost:      acc.referenceSum / float64(acc.hours),
			CostDelta:          (acc.observedSum - acc.referenceSum) / float64(acc.hours),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Day.Equal(out[j].Day) {
			return out[i].Day.Before(out[j].Day)
		}
		if out[i].PlantName != out[j].PlantName {
			return out[i].PlantName < out[j].PlantName
		}
		if out[i].PlantLine != out[j].PlantLine {
			return out[i].PlantLine < out[j].PlantLine
		}
		return out[i].ProductName < out[j].ProductName
	})
	return out
}

// WeeklyRollup is the same reduction bucketed by ISO week.
func WeeklyRollup(records []HourRecord, costs map[string]float64) []models.WeeklyKPI {
	type weekKey struct {
		plant, line, product string
		year, week           int
	}
	accs := map[weekKey]*rollupAcc{}
	for _, rec := range records {
		year, week := rec.Summary.Key.HourStart.UTC().ISOWeek()
		k := weekKey{
			plant:   rec.Summary.Key.PlantName,
			line:    rec.Summary.Key.PlantLine,
			product: rec.Summary.Key.ProductName,
			year:    year,
			week:    week,
		}
		acc, ok := accs[k]
		if !ok {
			acc = &rollupAcc{plant: k.plant, line: k.line, product: k.product}
			accs[k] = acc
		}
		acc.add(rec, costs)
	}

	out := make([]models.WeeklyKPI, 0, len(accs))
	for k, acc := range accs {
		out = append(out, models.WeeklyKPI{
			PlantName:          acc.plant,
			PlantLine:          acc.line,
			ProductName:        acc.product,
			ISOYear:            k.year,
			ISOWeek:            k.week,
			TotalHours:         acc.hours,
			CompliantHours:     acc.compliant,
			AlertHours:         acc.alerting,
			ComplianceRatePct:  pct(acc.compliant, acc.hours),
			SuggestionsIssued:  acc.issued,
			SuggestionsAdopted: acc.adopted,
			AdoptionRatePct:    pct(acc.adopted, acc.issued),
			ObservedCost:       acc.observedSum / float64(acc.hours),
			ReferenceCost:      acc.referenceSum / float64(acc.hours),
			CostDelta:          (acc.observedSum - acc.referenceSum) / float64(acc.hours),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ISOYear != out[j].ISOYear {
			return out[i].ISOYear < out[j].ISOYear
		}
		if out[i].ISOWeek != out[j].ISOWeek {
			return out[i].ISOWeek < out[j].ISOWeek
		}
		if out[i].PlantName != out[j].PlantName {
			return out[i].PlantName < out[j].PlantName
		}
		if out[i].PlantLine != out[j].PlantLine {
			return out[i].PlantLine < out[j].PlantLine
		}
		return out[i].ProductName < out[j].ProductName
	})
	return out
}
