package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	return c
}

func TestParseFilter_Defaults(t *testing.T) {
	f, err := parseFilter(queryContext(t, ""))
	require.NoError(t, err)

	assert.Empty(t, f.PlantName)
	assert.Empty(t, f.PlantLine)
	assert.Empty(t, f.ProductName)
	assert.Zero(t, f.Limit)
	assert.Zero(t, f.Offset)
	assert.WithinDuration(t, time.Now().UTC(), f.To, 5*time.Second)
	assert.WithinDuration(t, f.To.AddDate(0, 0, -7), f.From, time.Second)
}

func TestParseFilter_Explicit(t *testing.T) {
	f, err := parseFilter(queryContext(t,
		"plant=EU-NL-P03&line=L2&product=CC-13mm&from=2025-08-01T00:00:00Z&to=2025-08-18T00:00:00Z&limit=50&offset=100"))
	require.NoError(t, err)

	assert.Equal(t, "EU-NL-P03", f.PlantName)
	assert.Equal(t, "L2", f.PlantLine)
	assert.Equal(t, "CC-13mm", f.ProductName)
	assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), f.From)
	assert.Equal(t, time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC), f.To)
	assert.Equal(t, 50, f.Limit)
	assert.Equal(t, 100, f.Offset)
}

func TestParseFilter_Invalid(t *testing.T) {
	for _, q := range []string{"from=18-08-2025", "to=yesterday", "limit=ten", "offset=x"} {
		_, err := parseFilter(queryContext(t, q))
		assert.Error(t, err, q)
	}
}

func TestSpecificationRequestToModel(t *testing.T) {
	min := 20.0
	maxDefects := 2.0
	color4 := 2.0
	req := specificationRequest{
		PlantName:       "EU-NL-P03",
		PlantLine:       "L2",
		ProductName:     "CC-13mm",
		PlantID:         3,
		ProductID:       1313,
		MinDryMatterPct: &min,
		MaxDefectPoints: &maxDefects,
		MaxColorPct:     []*float64{nil, nil, nil, nil, &color4},
	}

	spec := req.toModel()
	assert.Equal(t, "EU-NL-P03", spec.Key.PlantName)
	assert.Equal(t, int64(1313), spec.ProductID)
	assert.True(t, spec.MinDryMatterPct.Valid)
	assert.Equal(t, 20.0, spec.MinDryMatterPct.Value)
	assert.False(t, spec.MaxDryMatterPct.Valid)
	assert.False(t, spec.MaxColorPct[0].Valid)
	assert.True(t, spec.MaxColorPct[4].Valid)
	assert.Equal(t, 2.0, spec.MaxColorPct[4].Value)
}
