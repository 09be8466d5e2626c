// Package charts renders the dashboard's PNG charts.
package charts

import (
	"errors"
	"fmt"
	"io"
	"math"

	"dashboard/internal/models"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("charts: no data to render")

// ContentType of every rendered chart.
const ContentType = "image/png"

// YlOrRd, light to dark.
var ylOrRd = []string{"ffffb2", "fed976", "feb24c", "fd8d3c", "f03b20", "bd0026"}

var riskColors = map[string]string{
	models.RiskHigh:     "d7191c",
	models.RiskModerate: "fdae61",
	models.RiskTypical:  "fee08b",
	models.RiskLow:      "1a9641",
}

// FilteringFunnel draws one bar per cleaning stage. Earlier stages get darker colors.
func FilteringFunnel(w io.Writer, stages []models.FilteringStage) error {
	if len(stages) == 0 {
		return ErrNoData
	}

	values := make([]float64, len(stages))
	bars := make([]chart.Value, len(stages))
	for i, s := range stages {
		color := drawing.ColorFromHex(ylOrRd[len(ylOrRd)-1-i*len(ylOrRd)/len(stages)])
		values[i] = float64(s.Size)
		bars[i] = chart.Value{
			Label: fmt.Sprintf("%s (%d)", s.Name, s.Size),
			Value: float64(s.Size),
			Style: chart.Style{FillColor: color, StrokeColor: color},
		}
	}

	yMax, err := axisMax(values)
	if err != nil {
		return err
	}

	bc := chart.BarChart{
		Title:      "Tamanho do Dataset Após Cada Etapa de Limpeza de Dados",
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 64}},
		Width:      1100,
		Height:     480,
		BarWidth:   130,
		BarSpacing: 30,
		XAxis:      chart.Style{FontSize: 8, TextWrap: chart.TextWrapWord},
		YAxis:      chart.YAxis{Name: "Tamanho do Dataset", Range: &chart.ContinuousRange{Min: 0, Max: yMax}},
		Bars:       bars,
	}
	return bc.Render(chart.PNG, w)
}

// RiskBar draws one bar per risk category.
func RiskBar(w io.Writer, counts []models.RiskCount) error {
	if len(counts) == 0 {
		return ErrNoData
	}

	values := make([]float64, len(counts))
	for i, c := range counts {
		values[i] = float64(c.Count)
	}
	yMax, err := axisMax(values)
	if err != nil {
		return err
	}

	bc := chart.BarChart{
		Title:      "Pacientes por Categoria de Risco",
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 24}},
		Width:      720,
		Height:     420,
		BarWidth:   110,
		BarSpacing: 40,
		YAxis:      chart.YAxis{Name: "Pacientes", Range: &chart.ContinuousRange{Min: 0, Max: yMax}},
		Bars:       riskValues(counts),
	}
	return bc.Render(chart.PNG, w)
}

// RiskStacked draws the categories as segments of a single stacked bar.
func RiskStacked(w io.Writer, counts []models.RiskCount) error {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	if total == 0 {
		return ErrNoData
	}

	sbc := chart.StackedBarChart{
		Title:      "Distribuição de Risco",
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 24}},
		Width:      480,
		Height:     520,
		Bars: []chart.StackedBar{
			{Name: fmt.Sprintf("Pacientes (%d)", total), Width: 160, Values: riskValues(counts)},
		},
	}
	return sbc.Render(chart.PNG, w)
}

func riskValues(counts []models.RiskCount) []chart.Value {
	values := make([]chart.Value, len(counts))
	for i, c := range counts {
		color := chart.ColorAlternateGray
		if hex, ok := riskColors[c.Category]; ok {
			color = drawing.ColorFromHex(hex)
		}
		values[i] = chart.Value{
			Label: fmt.Sprintf("%s (%d)", c.Category, c.Count),
			Value: float64(c.Count),
			Style: chart.Style{FillColor: color, StrokeColor: color},
		}
	}
	return values
}

// axisMax leaves headroom above the tallest bar.
func axisMax(values []float64) (float64, error) {
	var max float64
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	if max <= 0 {
		return 0, ErrNoData
	}
	return math.Ceil(max * 1.1), nil
}
