package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/jmoralesv/enlace/internal/logging"
	"github.com/jmoralesv/enlace/internal/model"
	"github.com/jmoralesv/enlace/internal/report"
)

// Exporter writes PDF reports into an output directory.
type Exporter struct {
	outDir string
	logger logging.Logger

	// now is swappable for deterministic filenames in tests.
	now func() time.Time
}

// NewExporter creates the output directory if needed.
func NewExporter(outDir string, logger logging.Logger) (*Exporter, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &Exporter{
		outDir: outDir,
		logger: logger.With(logging.Field{Key: "component", Value: "export"}),
		now:    time.Now,
	}, nil
}

// AnalysisReport writes the single-analysis PDF: header, metadata, the risk
// donut and feature bar charts, and the feature breakdown table. It returns
// the written path; the filename carries the analysis id.
func (e *Exporter) AnalysisReport(a *model.Analysis) (string, error) {
	pdf, tr := newDocument()

	header(pdf, tr, "Reporte de Análisis de Phishing")

	verdict := "SEGURO"
	if a.IsPhishing || a.Verdict == model.VerdictPhishing {
		verdict = "PHISHING"
	}
	metaRow(pdf, tr, "URL", a.URL)
	metaRow(pdf, tr, "Resultado", verdict)
	metaRow(pdf, tr, "Confianza", fmt.Sprintf("%d%% (nivel %d de 5)",
		model.RiskPercent(a.Probability), model.RiskLevel(a.Probability)))
	if a.Timestamp != "" {
		metaRow(pdf, tr, "Fecha", a.Timestamp)
	}
	if a.Message != "" {
		metaRow(pdf, tr, "Mensaje", a.Message)
	}
	pdf.Ln(4)

	if png, err := RiskDonut(a.Probability); err == nil {
		embedPNG(pdf, "risk", png, 70)
	}
	if png, err := FeatureBars(*a); err == nil {
		embedPNG(pdf, "features", png, 110)
	}

	pdf.Ln(4)
	sectionTitle(pdf, tr, "Características de la URL")
	featureRow(pdf, tr, "Longitud de la URL", a.URLLength)
	featureRow(pdf, tr, "Longitud del dominio", a.DomainLength)
	featureRow(pdf, tr, "Subdominios", a.SubdomainCount)
	featureRow(pdf, tr, "Caracteres especiales", a.SpecialCharCount)
	featureRow(pdf, tr, "Dígitos en la URL", a.DigitsInURL)
	featureRow(pdf, tr, "Palabras sospechosas", a.SuspiciousKeywordCount)

	path := filepath.Join(e.outDir, fmt.Sprintf("reporte-analisis-%d.pdf", a.ID))
	return e.write(pdf, path)
}

// HistoryReport writes the full-history PDF: header, the summary statistics,
// the history donut and the tabular breakdown. The filename carries a
// timestamp.
func (e *Exporter) HistoryReport(history []model.Analysis, stats report.Stats) (string, error) {
	pdf, tr := newDocument()

	header(pdf, tr, "Historial de Análisis")

	metaRow(pdf, tr, "Total de análisis", fmt.Sprintf("%d", stats.Total))
	metaRow(pdf, tr, "Phishing detectado", fmt.Sprintf("%d", stats.PhishingCount))
	metaRow(pdf, tr, "Seguros", fmt.Sprintf("%d", stats.SafeCount))
	metaRow(pdf, tr, "Porcentaje de phishing", fmt.Sprintf("%d%%", stats.PhishingPercent))
	pdf.Ln(4)

	if png, err := HistoryDonut(stats.PhishingCount, stats.SafeCount); err == nil {
		embedPNG(pdf, "history", png, 70)
	}

	pdf.Ln(4)
	sectionTitle(pdf, tr, "Detalle")
	historyTableHeader(pdf, tr)
	for _, row := range history {
		verdict := "SEGURO"
		if row.IsPhishing || row.Verdict == model.VerdictPhishing {
			verdict = "PHISHING"
		}
		date := row.Timestamp
		if len(date) > 10 {
			date = date[:10] // date part of the timestamp
		}
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(90, 7, tr(truncate(row.URL, 60)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, verdict, "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d%%", model.RiskPercent(row.Probability)), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 7, date, "1", 1, "C", false, 0, "")
	}

	name := fmt.Sprintf("reporte-historial-%s.pdf", e.now().Format("20060102-150405"))
	return e.write(pdf, filepath.Join(e.outDir, name))
}

func (e *Exporter) write(pdf *fpdf.Fpdf, path string) (string, error) {
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	e.logger.Info("report written", logging.Field{Key: "path", Value: path})
	return path, nil
}

func newDocument() (*fpdf.Fpdf, func(string) string) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	return pdf, pdf.UnicodeTranslatorFromDescriptor("")
}

func header(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFillColor(37, 99, 235)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 14, tr(title), "", 1, "C", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)
}

func sectionTitle(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 9, tr(title), "", 1, "L", false, 0, "")
}

func metaRow(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(50, 7, tr(label), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 7, tr(value), "", 1, "L", false, 0, "")
}

func featureRow(pdf *fpdf.Fpdf, tr func(string) string, label string, value int) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(80, 7, tr(label), "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 7, fmt.Sprintf("%d", value), "1", 1, "C", false, 0, "")
}

func historyTableHeader(pdf *fpdf.Fpdf, tr func(string) string) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(229, 231, 235)
	pdf.CellFormat(90, 7, "URL", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, "Resultado", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, tr("Confianza"), "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Fecha", "1", 1, "C", true, 0, "")
}

func embedPNG(pdf *fpdf.Fpdf, name string, png []byte, width float64) {
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	pdf.ImageOptions(name, (210-width)/2, pdf.GetY(), width, 0, true, opts, 0, "")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "..."
}
