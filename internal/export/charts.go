// Package export renders analysis results to PNG charts and PDF reports.
package export

import (
	"bytes"
	"errors"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/jmoralesv/enlace/internal/model"
)

// ErrNoData means a chart was requested for an empty data set.
var ErrNoData = errors.New("no data to chart")

var (
	riskColor = drawing.ColorFromHex("dc2626")
	safeColor = drawing.ColorFromHex("10b981")
	barColor  = drawing.ColorFromHex("2563eb")
)

// RiskDonut renders the risk-versus-safe share of one analysis.
func RiskDonut(probability float64) ([]byte, error) {
	risk := probability * 100
	return renderDonut([]chart.Value{
		{Value: risk, Label: "Riesgo", Style: chart.Style{FillColor: riskColor}},
		{Value: 100 - risk, Label: "Seguro", Style: chart.Style{FillColor: safeColor}},
	})
}

// HistoryDonut renders the phishing-versus-safe counts of a history.
func HistoryDonut(phishing, safe int) ([]byte, error) {
	if phishing+safe == 0 {
		return nil, ErrNoData
	}
	return renderDonut([]chart.Value{
		{Value: float64(phishing), Label: "Phishing", Style: chart.Style{FillColor: riskColor}},
		{Value: float64(safe), Label: "Seguros", Style: chart.Style{FillColor: safeColor}},
	})
}

// FeatureBars renders the lexical features of one analysis as a bar chart.
func FeatureBars(a model.Analysis) ([]byte, error) {
	bars := []chart.Value{
		{Value: boolBar(a.HasHTTPS), Label: "HTTPS"},
		{Value: boolBar(a.HasQuery), Label: "Query"},
		{Value: float64(a.SubdomainCount), Label: "Subdominios"},
		{Value: float64(a.SpecialCharCount), Label: "Especiales"},
		{Value: float64(a.DigitsInURL), Label: "Dígitos"},
		{Value: float64(a.SuspiciousKeywordCount), Label: "Sospechosas"},
	}

	max := 1.0
	for i := range bars {
		bars[i].Style = chart.Style{FillColor: barColor, StrokeColor: barColor}
		if bars[i].Value > max {
			max = bars[i].Value
		}
	}

	graph := chart.BarChart{
		Width:    720,
		Height:   400,
		BarWidth: 70,
		Bars:     bars,
		YAxis: chart.YAxis{
			Style: chart.Shown(),
			Range: &chart.ContinuousRange{Min: 0, Max: max + 1},
		},
		XAxis: chart.Shown(),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderDonut(values []chart.Value) ([]byte, error) {
	graph := chart.DonutChart{
		Width:  512,
		Height: 512,
		Values: values,
	}
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func boolBar(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
