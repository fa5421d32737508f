package db

import (
	"context"
	"fmt"

	"blend-quality-service/internal/models"
)

// CreateSample inserts a delivered load's quality record. Samples are
// immutable once written.
func (d *DB) CreateSample(ctx context.Context, s models.QualitySample) error {
	query := `
    INSERT INTO quality_samples (
        id, plant_id, plant_name, plant_line, product_id, product_name,
        supplier, variety, load_number, net_weight_kg, dry_matter_pct,
        total_defect_points, average_length_mm,
        usda_color_0_pct, usda_color_1_pct, usda_color_2_pct,
        usda_color_3_pct, usda_color_4_pct, arrived_at
    ) VALUES (
        $1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
        $11, $12, $13, $14, $15, $16, $17, $18, $19
    )
    ON CONFLICT (load_number) DO NOTHING`

	_, err := d.Pool.Exec(ctx, query,
		s.ID, s.PlantID, s.PlantName, s.PlantLine, s.ProductID, s.ProductName,
		s.Supplier, s.Variety, s.LoadNumber, s.NetWeightKg, s.DryMatterPct,
		s.DefectPoints, s.AvgLengthMM,
		s.Color.Color0, s.Color.Color1, s.Color.Color2,
		s.Color.Color3, s.Color.Color4, s.ArrivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}
	return nil
}

// GetSamplesForBucket fetches every sample contributing to one
// plant/line/product/hour bucket.
func (d *DB) GetSamplesForBucket(ctx context.Context, key models.BucketKey) ([]models.QualitySample, error) {
	query := `
    SELECT id, plant_id, plant_name, plant_line, product_id, product_name,
           supplier, variety, load_number, net_weight_kg, dry_matter_pct,
           total_defect_points, average_length_mm,
           usda_color_0_pct, usda_color_1_pct, usda_color_2_pct,
           usda_color_3_pct, usda_color_4_pct, arrived_at
    FROM quality_samples
    WHERE plant_name = $1 AND plant_line = $2 AND product_name = $3
      AND arrived_at >= $4 AND arrived_at < $4 + interval '1 hour'
    ORDER BY arrived_at`

	rows, err := d.Pool.Query(ctx, query, key.PlantName, key.PlantLine, key.ProductName, key.HourStart)
	if err != nil {
		return nil, fmt.Errorf("failed to get samples: %w", err)
	}
	defer rows.Close()

	var list []models.QualitySample
	for rows.Next() {
		var s models.QualitySample
		err := rows.Scan(
			&s.ID, &s.PlantID, &s.PlantName, &s.PlantLine, &s.ProductID, &s.ProductName,
			&s.Supplier, &s.Variety, &s.LoadNumber, &s.NetWeightKg, &s.DryMatterPct,
			&s.DefectPoints, &s.AvgLengthMM,
			&s.Color.Color0, &s.Color.Color1, &s.Color.Color2,
			&s.Color.Color3, &s.Color.Color4, &s.ArrivedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
