package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blend-quality-service/internal/blend"
	"blend-quality-service/internal/models"
)

func testSpec(plant, line, product string) models.Specification {
	return models.Specification{
		Key:             models.SpecKey{PlantName: plant, PlantLine: line, ProductName: product},
		MinDryMatterPct: models.NewBound(20.0),
		MaxDefectPoints: models.NewBound(2.0),
	}
}

func TestMemoryResolve(t *testing.T) {
	m := NewMemory([]models.Specification{
		testSpec("NA-ID-P01", "L1", "SC-9mm"),
		testSpec("EU-NL-P03", "L2", "CC-13mm"),
	})

	spec, err := m.Resolve(context.Background(), models.SpecKey{
		PlantName: "NA-ID-P01", PlantLine: "L1", ProductName: "SC-9mm",
	})
	require.NoError(t, err)
	assert.Equal(t, 20.0, spec.MinDryMatterPct.Value)
	assert.True(t, spec.MinDryMatterPct.Valid)
}

func TestMemoryResolve_UnknownKey(t *testing.T) {
	m := NewMemory([]models.Specification{testSpec("NA-ID-P01", "L1", "SC-9mm")})

	_, err := m.Resolve(context.Background(), models.SpecKey{
		PlantName: "NA-ID-P01", PlantLine: "L1", ProductName: "WG-25mm",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, blend.ErrSpecificationNotFound)
	assert.Contains(t, err.Error(), "WG-25mm")
}

func TestMemoryResolve_DuplicateKeyLastWins(t *testing.T) {
	first := testSpec("NA-ID-P01", "L1", "SC-9mm")
	second := testSpec("NA-ID-P01", "L1", "SC-9mm")
	second.MinDryMatterPct = models.NewBound(21.5)

	m := NewMemory([]models.Specification{first, second})

	spec, err := m.Resolve(context.Background(), first.Key)
	require.NoError(t, err)
	assert.Equal(t, 21.5, spec.MinDryMatterPct.Value)
}

func TestMemoryReplace(t *testing.T) {
	m := NewMemory([]models.Specification{testSpec("NA-ID-P01", "L1", "SC-9mm")})
	m.Replace([]models.Specification{testSpec("EU-BE-P04", "L1", "WG-25mm")})

	_, err := m.Resolve(context.Background(), models.SpecKey{
		PlantName: "NA-ID-P01", PlantLine: "L1", ProductName: "SC-9mm",
	})
	assert.ErrorIs(t, err, blend.ErrSpecificationNotFound)

	_, err = m.Resolve(context.Background(), models.SpecKey{
		PlantName: "EU-BE-P04", PlantLine: "L1", ProductName: "WG-25mm",
	})
	assert.NoError(t, err)

	assert.Len(t, m.Keys(), 1)
}

func TestBuildIndex(t *testing.T) {
	idx := BuildIndex([]models.SpecKey{
		{PlantName: "NA-ID-P01", PlantLine: "L1", ProductName: "SC-9mm"},
		{PlantName: "NA-ID-P01", PlantLine: "L1", ProductName: "CC-13mm"},
		{PlantName: "NA-ID-P01", PlantLine: "L2", ProductName: "SC-9mm"},
		{PlantName: "EU-NL-P03", PlantLine: "L1", ProductName: "WG-25mm"},
	})

	assert.Equal(t, []string{"EU-NL-P03", "NA-ID-P01"}, idx.Plants())
	assert.Equal(t, []string{"L1", "L2"}, idx.Lines("NA-ID-P01"))
	assert.Equal(t, []string{"CC-13mm", "SC-9mm"}, idx.Products("NA-ID-P01", "L1"))
	assert.Equal(t, []string{"SC-9mm"}, idx.Products("NA-ID-P01", "L2"))
	assert.Empty(t, idx.Lines("EU-BE-P04"))
}
