package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blend-quality-service/internal/models"
)

const specYAML = `
specifications:
  - plant_id: 3
    plant_name: EU-NL-P03
    plant_line: L2
    product_id: 1313
    product_name: CC-13mm
    min_dry_matter_pct: 20.0
    max_dry_matter_pct: 24.0
    max_defect_points: 2.0
    average_length_grading_mm_min: 60
    average_length_grading_mm_target: 75
    average_length_grading_mm_max: 95
    max_usda_color_3: 10
    max_usda_color_4: 2
    approved_potato_varieties: [Russet, Innovator]
  - plant_name: NA-ID-P01
    plant_line: L1
    product_name: SC-9mm
    min_dry_matter_pct: 21.5
`

func writeSpecFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "specs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	m, err := LoadFile(writeSpecFile(t, specYAML))
	require.NoError(t, err)
	require.Len(t, m.Keys(), 2)

	spec, err := m.Resolve(context.Background(), models.SpecKey{
		PlantName: "EU-NL-P03", PlantLine: "L2", ProductName: "CC-13mm",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, spec.PlantID)
	assert.Equal(t, int64(1313), spec.ProductID)
	assert.Equal(t, models.NewBound(20.0), spec.MinDryMatterPct)
	assert.Equal(t, models.NewBound(24.0), spec.MaxDryMatterPct)
	assert.Equal(t, models.NewBound(2.0), spec.MaxDefectPoints)
	assert.Equal(t, models.NewBound(60), spec.MinAvgLengthMM)
	assert.Equal(t, models.NewBound(75), spec.TargetAvgLengthMM)
	assert.Equal(t, models.NewBound(95), spec.MaxAvgLengthMM)
	assert.Equal(t, models.NewBound(10), spec.MaxColorPct[3])
	assert.Equal(t, models.NewBound(2), spec.MaxColorPct[4])
	assert.Equal(t, []string{"Russet", "Innovator"}, spec.ApprovedVarieties)
}

func TestLoadFile_AbsentLimitsStayUnconstrained(t *testing.T) {
	m, err := LoadFile(writeSpecFile(t, specYAML))
	require.NoError(t, err)

	spec, err := m.Resolve(context.Background(), models.SpecKey{
		PlantName: "NA-ID-P01", PlantLine: "L1", ProductName: "SC-9mm",
	})
	require.NoError(t, err)

	assert.True(t, spec.MinDryMatterPct.Valid)
	assert.False(t, spec.MaxDryMatterPct.Valid)
	assert.False(t, spec.MaxDefectPoints.Valid)
	assert.False(t, spec.MinAvgLengthMM.Valid)
	for _, b := range spec.MaxColorPct {
		assert.False(t, b.Valid)
	}
	assert.Empty(t, spec.ApprovedVarieties)
}

func TestLoadFile_MissingKeyFields(t *testing.T) {
	_, err := LoadFile(writeSpecFile(t, `
specifications:
  - plant_name: EU-NL-P03
    product_name: CC-13mm
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plant_line")
}

func TestLoadFile_Unreadable(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	_, err = LoadFile(writeSpecFile(t, "specifications: {not: [valid"))
	assert.Error(t, err)
}
