package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"blend-quality-service/internal/models"
)

// UpsertBlendSummary persists the derived hourly summary. The summary is a
// pure function of its samples, so replacing the row on re-aggregation is
// idempotent.
func (d *DB) UpsertBlendSummary(ctx context.Context, b models.BlendSummary) error {
	sources, err := json.Marshal(b.Sources)
	if err != nil {
		return fmt.Errorf("failed to marshal sources: %w", err)
	}

	query := `
    INSERT INTO blend_summaries (
        plant_name, plant_line, product_name, hour_start, plant_id, product_id,
        total_weight_kg, dry_matter_pct, total_defect_points, average_length_mm,
        usda_color_0_pct, usda_color_1_pct, usda_color_2_pct,
        usda_color_3_pct, usda_color_4_pct,
        sources, varieties, sample_count
    ) VALUES (
        $1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
        $11, $12, $13, $14, $15, $16, $17, $18
    )
    ON CONFLICT (plant_name, plant_line, product_name, hour_start) DO UPDATE SET
        total_weight_kg = EXCLUDED.total_weight_kg,
        dry_matter_pct = EXCLUDED.dry_matter_pct,
        total_defect_points = EXCLUDED.total_defect_points,
        average_length_mm = EXCLUDED.average_length_mm,
        usda_color_0_pct = EXCLUDED.usda_color_0_pct,
        usda_color_1_pct = EXCLUDED.usda_color_1_pct,
        usda_color_2_pct = EXCLUDED.usda_color_2_pct,
        usda_color_3_pct = EXCLUDED.usda_color_3_pct,
        usda_color_4_pct = EXCLUDED.usda_color_4_pct,
        sources = EXCLUDED.sources,
        varieties = EXCLUDED.varieties,
        sample_count = EXCLUDED.sample_count`

	_, err = d.Pool.Exec(ctx, query,
		b.Key.PlantName, b.Key.PlantLine, b.Key.ProductName, b.Key.HourStart,
		b.Key.PlantID, b.Key.ProductID,
		b.TotalWeight, b.DryMatterPct, b.DefectPoints, b.AvgLengthMM,
		b.Color.Color0, b.Color.Color1, b.Color.Color2, b.Color.Color3, b.Color.Color4,
		sources, b.Varieties, b.SampleCount,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert blend summary: %w", err)
	}
	return nil
}

// UpsertComplianceResult persists the hourly verdict, replacing any earlier
// evaluation of the same bucket.
func (d *DB) UpsertComplianceResult(ctx context.Context, r models.ComplianceResult) error {
	checks, err := json.Marshal(r.Checks)
	if err != nil {
		return fmt.Errorf("failed to marshal checks: %w", err)
	}

	query := `
    INSERT INTO compliance_results (
        id, plant_name, plant_line, product_name, hour_start,
        checks, variety_ok, compliant, alerting, created_at
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    ON CONFLICT (plant_name, plant_line, product_name, hour_start) DO UPDATE SET
        id = EXCLUDED.id,
        checks = EXCLUDED.checks,
        variety_ok = EXCLUDED.variety_ok,
        compliant = EXCLUDED.compliant,
        alerting = EXCLUDED.alerting,
        created_at = EXCLUDED.created_at`

	_, err = d.Pool.Exec(ctx, query,
		r.ID, r.Key.PlantName, r.Key.PlantLine, r.Key.ProductName, r.Key.HourStart,
		checks, r.VarietyOK, r.Compliant, r.Alerting, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert compliance result: %w", err)
	}
	return nil
}

// UpsertSuggestion persists a suggested adjustment for a bucket.
func (d *DB) UpsertSuggestion(ctx context.Context, a models.SuggestedAdjustment) error {
	current, err := json.Marshal(a.Current)
	if err != nil {
		return fmt.Errorf("failed to marshal current fractions: %w", err)
	}
	suggested, err := json.Marshal(a.Suggested)
	if err != nil {
		return fmt.Errorf("failed to marshal suggested fractions: %w", err)
	}

	query := `
    INSERT INTO suggested_adjustments (
        id, plant_name, plant_line, product_name, hour_start,
        direction, step, current_fractions, suggested_fractions,
        fraction_sum, status, created_at
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    ON CONFLICT (plant_name, plant_line, product_name, hour_start) DO UPDATE SET
        id = EXCLUDED.id,
        direction = EXCLUDED.direction,
        step = EXCLUDED.step,
        current_fractions = EXCLUDED.current_fractions,
        suggested_fractions = EXCLUDED.suggested_fractions,
        fraction_sum = EXCLUDED.fraction_sum,
        status = EXCLUDED.status,
        created_at = EXCLUDED.created_at`

	_, err = d.Pool.Exec(ctx, query,
		a.ID, a.Key.PlantName, a.Key.PlantLine, a.Key.ProductName, a.Key.HourStart,
		a.Direction, a.Step, current, suggested, a.FractionSum, a.Status, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert suggestion: %w", err)
	}
	return nil
}

// GetSuggestionForBucket fetches the suggestion issued for one bucket, if
// any. Used to judge adoption against the following hour's actual fractions.
func (d *DB) GetSuggestionForBucket(ctx context.Context, key models.BucketKey) (models.SuggestedAdjustment, bool, error) {
	query := `
    SELECT id, plant_name, plant_line, product_name, hour_start,
           direction, step, current_fractions, suggested_fractions,
           fraction_sum, status, created_at
    FROM suggested_adjustments
    WHERE plant_name = $1 AND plant_line = $2 AND product_name = $3 AND hour_start = $4`

	row := d.Pool.QueryRow(ctx, query, key.PlantName, key.PlantLine, key.ProductName, key.HourStart)
	adj, err := scanSuggestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.SuggestedAdjustment{}, false, nil
	}
	if err != nil {
		return models.SuggestedAdjustment{}, false, fmt.Errorf("failed to get suggestion: %w", err)
	}
	return adj, true, nil
}

// UpdateSuggestionStatus records the adoption verdict for a suggestion.
func (d *DB) UpdateSuggestionStatus(ctx context.Context, id string, status string) error {
	query := `UPDATE suggested_adjustments SET status = $1 WHERE id::text = $2`
	result, err := d.Pool.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update suggestion status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("no suggestion updated for id %s", id)
	}
	return nil
}

// ResultFilter narrows compliance/suggestion queries. Zero values mean
// "no filter" except From/To which are required by the handlers.
type ResultFilter struct {
	PlantName   string
	PlantLine   string
	ProductName string
	From        time.Time
	To          time.Time
	Limit       int
	Offset      int
}

func (f ResultFilter) where() (string, []interface{}) {
	clause := ` WHERE hour_start >= $1 AND hour_start < $2`
	args := []interface{}{f.From, f.To}
	if f.PlantName != "" {
		args = append(args, f.PlantName)
		clause += fmt.Sprintf(" AND plant_name = $%d", len(args))
	}
	if f.PlantLine != "" {
		args = append(args, f.PlantLine)
		clause += fmt.Sprintf(" AND plant_line = $%d", len(args))
	}
	if f.ProductName != "" {
		args = append(args, f.ProductName)
		clause += fmt.Sprintf(" AND product_name = $%d", len(args))
	}
	return clause, args
}

// GetComplianceResults lists hourly verdicts matching the filter, newest
// first.
func (d *DB) GetComplianceResults(ctx context.Context, f ResultFilter) ([]models.ComplianceResult, error) {
	clause, args := f.where()
	query := `
    SELECT id, plant_name, plant_line, product_name, hour_start,
           checks, variety_ok, compliant, alerting, created_at
    FROM compliance_results` + clause + `
    ORDER BY hour_start DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get compliance results: %w", err)
	}
	defer rows.Close()

	var list []models.ComplianceResult
	for rows.Next() {
		var r models.ComplianceResult
		var checks []byte
		err := rows.Scan(
			&r.ID, &r.Key.PlantName, &r.Key.PlantLine, &r.Key.ProductName, &r.Key.HourStart,
			&checks, &r.VarietyOK, &r.Compliant, &r.Alerting, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan compliance result: %w", err)
		}
		if err := json.Unmarshal(checks, &r.Checks); err != nil {
			return nil, fmt.Errorf("failed to unmarshal checks: %w", err)
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

// GetSuggestions lists suggested adjustments matching the filter, newest
// first.
func (d *DB) GetSuggestions(ctx context.Context, f ResultFilter) ([]models.SuggestedAdjustment, error) {
	clause, args := f.where()
	query := `
    SELECT id, plant_name, plant_line, product_name, hour_start,
           direction, step, current_fractions, suggested_fractions,
           fraction_sum, status, created_at
    FROM suggested_adjustments` + clause + `
    ORDER BY hour_start DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get suggestions: %w", err)
	}
	defer rows.Close()

	var list []models.SuggestedAdjustment
	for rows.Next() {
		adj, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		list = append(list, adj)
	}
	return list, rows.Err()
}

func scanSuggestion(row rowScanner) (models.SuggestedAdjustment, error) {
	var a models.SuggestedAdjustment
	var current, suggested []byte
	err := row.Scan(
		&a.ID, &a.Key.PlantName, &a.Key.PlantLine, &a.Key.ProductName, &a.Key.HourStart,
		&a.Direction, &a.Step, &current, &suggested,
		&a.FractionSum, &a.Status, &a.CreatedAt,
	)
	if err != nil {
		return models.SuggestedAdjustment{}, err
	}
	if err := json.Unmarshal(current, &a.Current); err != nil {
		return models.SuggestedAdjustment{}, err
	}
	if err := json.Unmarshal(suggested, &a.Suggested); err != nil {
		return models.SuggestedAdjustment{}, err
	}
	return a, nil
}

// GetHourRecords loads summary, verdict, and suggestion per bucket for the
// KPI reduction. Buckets with no verdict (evaluation failed distinctly) are
// skipped here; the handler reports them separately.
func (d *DB) GetHourRecords(ctx context.Context, f ResultFilter) ([]HourRow, error) {
	clause, args := f.where()
	query := `
    SELECT b.plant_name, b.plant_line, b.product_name, b.hour_start,
           b.plant_id, b.product_id, b.total_weight_kg, b.dry_matter_pct,
           b.total_defect_points, b.average_length_mm, b.sources, b.varieties, b.sample_count,
           r.id, r.checks, r.variety_ok, r.compliant, r.alerting, r.created_at,
           s.id::text, s.direction, s.step, s.current_fractions, s.suggested_fractions,
           s.fraction_sum, s.status, s.created_at
    FROM blend_summaries b
    JOIN compliance_results r USING (plant_name, plant_line, product_name, hour_start)
    LEFT JOIN suggested_adjustments s USING (plant_name, plant_line, product_name, hour_start)` +
		replaceColumnPrefix(clause) + `
    ORDER BY b.hour_start`

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get hour records: %w", err)
	}
	defer rows.Close()

	var list []HourRow
	for rows.Next() {
		var h HourRow
		var sources, checks []byte
		var sugID *string
		var sugDirection, sugStatus *string
		var sugStep, sugSum *float64
		var sugCurrent, sugSuggested []byte
		var sugCreated *time.Time

		err := rows.Scan(
			&h.Summary.Key.PlantName, &h.Summary.Key.PlantLine, &h.Summary.Key.ProductName,
			&h.Summary.Key.HourStart, &h.Summary.Key.PlantID, &h.Summary.Key.ProductID,
			&h.Summary.TotalWeight, &h.Summary.DryMatterPct,
			&h.Summary.DefectPoints, &h.Summary.AvgLengthMM,
			&sources, &h.Summary.Varieties, &h.Summary.SampleCount,
			&h.Result.ID, &checks, &h.Result.VarietyOK, &h.Result.Compliant,
			&h.Result.Alerting, &h.Result.CreatedAt,
			&sugID, &sugDirection, &sugStep, &sugCurrent, &sugSuggested,
			&sugSum, &sugStatus, &sugCreated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hour record: %w", err)
		}
		if err := json.Unmarshal(sources, &h.Summary.Sources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
		}
		if err := json.Unmarshal(checks, &h.Result.Checks); err != nil {
			return nil, fmt.Errorf("failed to unmarshal checks: %w", err)
		}
		h.Result.Key = h.Summary.Key

		if sugID != nil {
			adj := models.SuggestedAdjustment{
				Key:       h.Summary.Key,
				Direction: *sugDirection,
				Step:      *sugStep,
				Status:    *sugStatus,
				CreatedAt: *sugCreated,
			}
			if sugSum != nil {
				adj.FractionSum = *sugSum
			}
			if err := adj.ID.UnmarshalText([]byte(*sugID)); err != nil {
				return nil, fmt.Errorf("failed to parse suggestion id: %w", err)
			}
			if err := json.Unmarshal(sugCurrent, &adj.Current); err != nil {
				return nil, fmt.Errorf("failed to unmarshal current fractions: %w", err)
			}
			if err := json.Unmarshal(sugSuggested, &adj.Suggested); err != nil {
				return nil, fmt.Errorf("failed to unmarshal suggested fractions: %w", err)
			}
			h.Suggestion = &adj
		}
		list = append(list, h)
	}
	return list, rows.Err()
}

// HourRow is one bucket's persisted outputs as loaded for KPI reduction.
// The specification is resolved by the caller through the catalog.
type HourRow struct {
	Summary    models.BlendSummary
	Result     models.ComplianceResult
	Suggestion *models.SuggestedAdjustment
}

// replaceColumnPrefix qualifies the shared filter columns against the
// summaries table in the join query.
func replaceColumnPrefix(clause string) string {
	for _, col := range []string{"hour_start", "plant_name", "plant_line", "product_name"} {
		clause = strings.ReplaceAll(clause, " "+col, " b."+col)
	}
	return clause
}
