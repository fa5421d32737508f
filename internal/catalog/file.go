package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"blend-quality-service/internal/models"
)

// fileSpec mirrors one specification entry as written in the YAML file.
// Absent limits stay nil and become intentionally-unconstrained bounds.
type fileSpec struct {
	PlantID           int      `yaml:"plant_id"`
	PlantName         string   `yaml:"plant_name"`
	PlantLine         string   `yaml:"plant_line"`
	ProductID         int64    `yaml:"product_id"`
	ProductName       string   `yaml:"product_name"`
	MinDryMatterPct   *float64 `yaml:"min_dry_matter_pct"`
	MaxDryMatterPct   *float64 `yaml:"max_dry_matter_pct"`
	MaxDefectPoints   *float64 `yaml:"max_defect_points"`
	MinAvgLengthMM    *float64 `yaml:"average_length_grading_mm_min"`
	TargetAvgLengthMM *float64 `yaml:"average_length_grading_mm_target"`
	MaxAvgLengthMM    *float64 `yaml:"average_length_grading_mm_max"`
	MaxColor0Pct      *float64 `yaml:"max_usda_color_0"`
	MaxColor1Pct      *float64 `yaml:"max_usda_color_1"`
	MaxColor2Pct      *float64 `yaml:"max_usda_color_2"`
	MaxColor3Pct      *float64 `yaml:"max_usda_color_3"`
	MaxColor4Pct      *float64 `yaml:"max_usda_color_4"`
	ApprovedVarieties []string `yaml:"approved_potato_varieties"`
}

type specFile struct {
	Specifications []fileSpec `yaml:"specifications"`
}

// LoadFile reads a YAML specification catalog. Used for spec-only
// deployments and tests; production setups usually resolve against the
// database instead.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read specification file %s: %w", path, err)
	}
	var f specFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse specification file %s: %w", path, err)
	}

	specs := make([]models.Specification, 0, len(f.Specifications))
	for i, fs := range f.Specifications {
		if fs.PlantName == "" || fs.PlantLine == "" || fs.ProductName == "" {
			return nil, fmt.Errorf("specification %d in %s: plant_name, plant_line and product_name are required", i, path)
		}
		specs = append(specs, fs.toModel())
	}
	return NewMemory(specs), nil
}

func (fs fileSpec) toModel() models.Specification {
	return models.Specification{
		Key: models.SpecKey{
			PlantName:   fs.PlantName,
			PlantLine:   fs.PlantLine,
			ProductName: fs.ProductName,
		},
		PlantID:           fs.PlantID,
		ProductID:         fs.ProductID,
		MinDryMatterPct:   toBound(fs.MinDryMatterPct),
		MaxDryMatterPct:   toBound(fs.MaxDryMatterPct),
		MaxDefectPoints:   toBound(fs.MaxDefectPoints),
		MinAvgLengthMM:    toBound(fs.MinAvgLengthMM),
		TargetAvgLengthMM: toBound(fs.TargetAvgLengthMM),
		MaxAvgLengthMM:    toBound(fs.MaxAvgLengthMM),
		MaxColorPct: [5]models.Bound{
			toBound(fs.MaxColor0Pct),
			toBound(fs.MaxColor1Pct),
			toBound(fs.MaxColor2Pct),
			toBound(fs.MaxColor3Pct),
			toBound(fs.MaxColor4Pct),
		},
		ApprovedVarieties: fs.ApprovedVarieties,
	}
}

func toBound(v *float64) models.Bound {
	if v == nil {
		return models.Bound{}
	}
	return models.NewBound(*v)
}
