package db

import (
	"context"
	"fmt"

	"blend-quality-service/internal/models"
)

// CreateLineEvent stores a line-level sensor measurement for correlation
// reporting.
func (d *DB) CreateLineEvent(ctx context.Context, e models.LineQualityEvent) error {
	query := `
    INSERT INTO line_quality_events (
        id, datetime, plant_id, plant_name, plant_line, product_id, product_name,
        variety, avg_length_mm, total_defect_points, dry_solids_pct,
        usda_color_0, usda_color_1, usda_color_2, usda_color_3, usda_color_4
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := d.Pool.Exec(ctx, query,
		e.ID, e.Timestamp, e.PlantID, e.PlantName, e.PlantLine, e.ProductID, e.ProductName,
		e.Variety, e.AvgLengthMM, e.DefectPoints, e.DrySolidsPct,
		e.ColorCounts[0], e.ColorCounts[1], e.ColorCounts[2], e.ColorCounts[3], e.ColorCounts[4],
	)
	if err != nil {
		return fmt.Errorf("failed to insert line event: %w", err)
	}
	return nil
}

// CreateDowntimeEvent stores an OEE run/downtime segment for correlation
// reporting.
func (d *DB) CreateDowntimeEvent(ctx context.Context, e models.DowntimeEvent) error {
	query := `
    INSERT INTO downtime_events (
        id, plant_id, plant_name, plant_line, product_name,
        downtime_cat_1, downtime_cat_2, start_time, end_time,
        duration, downtime_duration, qty_packed
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := d.Pool.Exec(ctx, query,
		e.ID, e.PlantID, e.PlantName, e.PlantLine, e.ProductName,
		e.Category1, e.Category2, e.StartTime, e.EndTime,
		e.DurationSec, e.DowntimeSec, e.QtyPackedKg,
	)
	if err != nil {
		return fmt.Errorf("failed to insert downtime event: %w", err)
	}
	return nil
}
