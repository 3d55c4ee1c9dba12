package export

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoralesv/enlace/internal/interfaces"
	"github.com/jmoralesv/enlace/internal/model"
	"github.com/jmoralesv/enlace/internal/report"
)

func sampleAnalysis() *model.Analysis {
	return &model.Analysis{
		ID:                     42,
		URL:                    "https://banco-seguro.example/login",
		IsPhishing:             true,
		Probability:            0.87,
		HasHTTPS:               true,
		SubdomainCount:         2,
		SpecialCharCount:       3,
		DigitsInURL:            4,
		SuspiciousKeywordCount: 2,
		URLLength:              34,
		DomainLength:           19,
		Timestamp:              "2026-08-30T12:00:00",
	}
}

func TestCharts_RenderPNG(t *testing.T) {
	pngHeader := []byte{0x89, 'P', 'N', 'G'}

	risk, err := RiskDonut(0.87)
	if err != nil {
		t.Fatalf("RiskDonut: %v", err)
	}
	hist, err := HistoryDonut(3, 7)
	if err != nil {
		t.Fatalf("HistoryDonut: %v", err)
	}
	bars, err := FeatureBars(*sampleAnalysis())
	if err != nil {
		t.Fatalf("FeatureBars: %v", err)
	}

	for name, png := range map[string][]byte{"risk": risk, "history": hist, "bars": bars} {
		if len(png) < 8 || string(png[:4]) != string(pngHeader) {
			t.Errorf("%s: output is not a PNG", name)
		}
	}
}

func TestHistoryDonut_EmptyFails(t *testing.T) {
	if _, err := HistoryDonut(0, 0); !errors.Is(err, ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
}

func TestAnalysisReport_WritesFileNamedByID(t *testing.T) {
	dir := t.TempDir()
	e, err := NewExporter(dir, interfaces.NewTestLogger(false))
	if err != nil {
		t.Fatal(err)
	}

	path, err := e.AnalysisReport(sampleAnalysis())
	if err != nil {
		t.Fatalf("AnalysisReport: %v", err)
	}
	if filepath.Base(path) != "reporte-analisis-42.pdf" {
		t.Errorf("filename = %s", filepath.Base(path))
	}
	assertPDF(t, path)
}

func TestHistoryReport_WritesTimestampedFile(t *testing.T) {
	dir := t.TempDir()
	e, err := NewExporter(dir, interfaces.NewTestLogger(false))
	if err != nil {
		t.Fatal(err)
	}
	e.now = func() time.Time { return time.Date(2026, 8, 30, 15, 4, 5, 0, time.UTC) }

	history := []model.Analysis{
		*sampleAnalysis(),
		{ID: 43, URL: "https://ok.example", Probability: 0.05, Timestamp: "2026-08-29T09:30:00"},
	}
	stats := report.Stats{Total: 2, PhishingCount: 1, SafeCount: 1, PhishingPercent: 50}

	path, err := e.HistoryReport(history, stats)
	if err != nil {
		t.Fatalf("HistoryReport: %v", err)
	}
	if filepath.Base(path) != "reporte-historial-20260830-150405.pdf" {
		t.Errorf("filename = %s", filepath.Base(path))
	}
	assertPDF(t, path)
}

func assertPDF(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if len(data) < 5 || string(data[:5]) != "%PDF-" {
		t.Errorf("%s does not start with a PDF header", path)
	}
}
