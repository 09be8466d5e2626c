package charts

import (
	"bytes"
	"testing"

	"dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

var stages = []models.FilteringStage{
	{Name: "Dataset Inicial", Size: 1955},
	{Name: "Após filtro de idade", Size: 1954},
	{Name: "Após remover duplicados", Size: 1952},
}

var counts = []models.RiskCount{
	{Category: models.RiskHigh, Count: 12},
	{Category: models.RiskModerate, Count: 30},
	{Category: models.RiskTypical, Count: 0},
	{Category: models.RiskLow, Count: 80},
}

func TestFilteringFunnel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FilteringFunnel(&buf, stages))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestRiskBar(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RiskBar(&buf, counts))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestRiskStacked(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RiskStacked(&buf, counts))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestNoData(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, FilteringFunnel(&buf, nil), ErrNoData)
	assert.ErrorIs(t, RiskBar(&buf, nil), ErrNoData)
	assert.ErrorIs(t, RiskStacked(&buf, nil), ErrNoData)

	zero := []models.RiskCount{{Category: models.RiskHigh}, {Category: models.RiskLow}}
	assert.ErrorIs(t, RiskBar(&buf, zero), ErrNoData)
	assert.ErrorIs(t, RiskStacked(&buf, zero), ErrNoData)
	assert.Zero(t, buf.Len())
}

func TestAxisMax(t *testing.T) {
	max, err := axisMax([]float64{1952, 1955})
	require.NoError(t, err)
	assert.Equal(t, float64(2151), max)
}
