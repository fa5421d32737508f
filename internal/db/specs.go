package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"blend-quality-service/internal/blend"
	"blend-quality-service/internal/models"
)

// UpsertSpecification inserts or replaces the specification for its key.
func (d *DB) UpsertSpecification(ctx context.Context, s models.Specification) error {
	query := `
    INSERT INTO specifications (
        plant_name, plant_line, product_name, plant_id, product_id,
        min_dry_matter_pct, max_dry_matter_pct, max_defect_points,
        min_avg_length_mm, target_avg_length_mm, max_avg_length_mm,
        max_usda_color_0, max_usda_color_1, max_usda_color_2,
        max_usda_color_3, max_usda_color_4, approved_varieties
    ) VALUES (
        $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
    )
    ON CONFLICT (plant_name, plant_line, product_name) DO UPDATE SET
        plant_id = EXCLUDED.plant_id,
        product_id = EXCLUDED.product_id,
        min_dry_matter_pct = EXCLUDED.min_dry_matter_pct,
        max_dry_matter_pct = EXCLUDED.max_dry_matter_pct,
        max_defect_points = EXCLUDED.max_defect_points,
        min_avg_length_mm = EXCLUDED.min_avg_length_mm,
        target_avg_length_mm = EXCLUDED.target_avg_length_mm,
        max_avg_length_mm = EXCLUDED.max_avg_length_mm,
        max_usda_color_0 = EXCLUDED.max_usda_color_0,
        max_usda_color_1 = EXCLUDED.max_usda_color_1,
        max_usda_color_2 = EXCLUDED.max_usda_color_2,
        max_usda_color_3 = EXCLUDED.max_usda_color_3,
        max_usda_color_4 = EXCLUDED.max_usda_color_4,
        approved_varieties = EXCLUDED.approved_varieties`

	_, err := d.Pool.Exec(ctx, query,
		s.Key.PlantName, s.Key.PlantLine, s.Key.ProductName, s.PlantID, s.ProductID,
		boundPtr(s.MinDryMatterPct), boundPtr(s.MaxDryMatterPct), boundPtr(s.MaxDefectPoints),
		boundPtr(s.MinAvgLengthMM), boundPtr(s.TargetAvgLengthMM), boundPtr(s.MaxAvgLengthMM),
		boundPtr(s.MaxColorPct[0]), boundPtr(s.MaxColorPct[1]), boundPtr(s.MaxColorPct[2]),
		boundPtr(s.MaxColorPct[3]), boundPtr(s.MaxColorPct[4]), s.ApprovedVarieties,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert specification: %w", err)
	}
	return nil
}

const specColumns = `
    plant_name, plant_line, product_name, plant_id, product_id,
    min_dry_matter_pct, max_dry_matter_pct, max_defect_points,
    min_avg_length_mm, target_avg_length_mm, max_avg_length_mm,
    max_usda_color_0, max_usda_color_1, max_usda_color_2,
    max_usda_color_3, max_usda_color_4, approved_varieties`

// GetSpecification fetches the specification for a plant/line/product key.
// A missing row surfaces blend.ErrSpecificationNotFound so callers can tell
// "no spec configured" apart from "bound intentionally absent".
func (d *DB) GetSpecification(ctx context.Context, key models.SpecKey) (models.Specification, error) {
	query := `SELECT` + specColumns + `
    FROM specifications
    WHERE plant_name = $1 AND plant_line = $2 AND product_name = $3`

	row := d.Pool.QueryRow(ctx, query, key.PlantName, key.PlantLine, key.ProductName)
	spec, err := scanSpecification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Specification{}, fmt.Errorf("%w: %s/%s/%s",
			blend.ErrSpecificationNotFound, key.PlantName, key.PlantLine, key.ProductName)
	}
	if err != nil {
		return models.Specification{}, fmt.Errorf("failed to get specification: %w", err)
	}
	return spec, nil
}

// Resolve implements catalog.Catalog on top of the specifications table.
func (d *DB) Resolve(ctx context.Context, key models.SpecKey) (models.Specification, error) {
	return d.GetSpecification(ctx, key)
}

// ListSpecifications returns every configured specification.
func (d *DB) ListSpecifications(ctx context.Context) ([]models.Specification, error) {
	query := `SELECT` + specColumns + `
    FROM specifications
    ORDER BY plant_name, plant_line, product_name`

	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list specifications: %w", err)
	}
	defer rows.Close()

	var list []models.Specification
	for rows.Next() {
		spec, err := scanSpecification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan specification: %w", err)
		}
		list = append(list, spec)
	}
	return list, rows.Err()
}

// DeleteSpecification removes the specification for a key.
func (d *DB) DeleteSpecification(ctx context.Context, key models.SpecKey) error {
	query := `DELETE FROM specifications WHERE plant_name = $1 AND plant_line = $2 AND product_name = $3`
	result, err := d.Pool.Exec(ctx, query, key.PlantName, key.PlantLine, key.ProductName)
	if err != nil {
		return fmt.Errorf("failed to delete specification: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%s/%s",
			blend.ErrSpecificationNotFound, key.PlantName, key.PlantLine, key.ProductName)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpecification(row rowScanner) (models.Specification, error) {
	var s models.Specification
	var minDM, maxDM, maxDef, minLen, tgtLen, maxLen *float64
	var colors [5]*float64

	err := row.Scan(
		&s.Key.PlantName, &s.Key.PlantLine, &s.Key.ProductName, &s.PlantID, &s.ProductID,
		&minDM, &maxDM, &maxDef, &minLen, &tgtLen, &maxLen,
		&colors[0], &colors[1], &colors[2], &colors[3], &colors[4],
		&s.ApprovedVarieties,
	)
	if err != nil {
		return models.Specification{}, err
	}

	s.MinDryMatterPct = ptrBound(minDM)
	s.MaxDryMatterPct = ptrBound(maxDM)
	s.MaxDefectPoints = ptrBound(maxDef)
	s.MinAvgLengthMM = ptrBound(minLen)
	s.TargetAvgLengthMM = ptrBound(tgtLen)
	s.MaxAvgLengthMM = ptrBound(maxLen)
	for i := range colors {
		s.MaxColorPct[i] = ptrBound(colors[i])
	}
	return s, nil
}

// boundPtr converts a Bound to the nullable column representation.
func boundPtr(b models.Bound) *float64 {
	if !b.Valid {
		return nil
	}
	return &b.Value
}

func ptrBound(p *float64) models.Bound {
	if p == nil {
		return models.Bound{}
	}
	return models.NewBound(*p)
}
