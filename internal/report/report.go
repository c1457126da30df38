// Package report builds PDF summaries of analyzed gaze sessions.
package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/gazekit/platform/internal/analysis"
	"github.com/gazekit/platform/internal/errors"
	"github.com/gazekit/platform/internal/session"
)

const (
	titleFontSize   = 20
	sectionFontSize = 13
	bodyFontSize    = 10

	labelWidth = 70
	valueWidth = 60
	rowHeight  = 7

	heatmapWidthMM = 110
)

// Write renders a session report as PDF to w. heatmapPNG may be nil when no
// heatmap is available.
func Write(w io.Writer, meta session.Session, result *analysis.Result, heatmapPNG []byte) error {
	if result == nil {
		return errors.New(errors.InvalidArgument, "report requires an analysis result")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", titleFontSize)
	pdf.CellFormat(0, 12, "Gaze Session Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", bodyFontSize)
	pdf.CellFormat(0, 6, "Session "+meta.ID, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Device: "+meta.Display.Model, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, meta.StartedAt.Format("2006-01-02 15:04:05 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", sectionFontSize)
	pdf.CellFormat(0, 9, fmt.Sprintf("Attention Score: %d / 100", result.Score), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "I", bodyFontSize)
	pdf.CellFormat(0, 6, analysis.Description(result.Score), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", sectionFontSize)
	pdf.CellFormat(0, 9, "Metrics", "", 1, "L", false, 0, "")
	writeMetrics(pdf, result)

	if len(heatmapPNG) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", sectionFontSize)
		pdf.CellFormat(0, 9, "Gaze Heatmap", "", 1, "L", false, 0, "")
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("heatmap", opts, bytes.NewReader(heatmapPNG))
		pdf.ImageOptions("heatmap", pdf.GetX(), pdf.GetY(), heatmapWidthMM, 0, true, opts, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, errors.Internal, "writing report PDF")
	}
	return nil
}

// Build renders a session report and returns the PDF bytes.
func Build(meta session.Session, result *analysis.Result, heatmapPNG []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, meta, result, heatmapPNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeMetrics(pdf *gofpdf.Fpdf, result *analysis.Result) {
	m := result.Metrics
	rows := []struct {
		label string
		value string
	}{
		{"Samples", fmt.Sprintf("%d", m.TotalPoints)},
		{"Duration", fmt.Sprintf("%.2f s", m.DurationSeconds)},
		{"Average movement", fmt.Sprintf("%.1f pt", m.AverageMovement)},
		{"Total movement", fmt.Sprintf("%.1f pt", m.TotalMovement)},
		{"Stability", fmt.Sprintf("%.1f / 100", m.StabilityScore)},
		{"Coverage area", fmt.Sprintf("%.0f pt2", m.CoverageArea)},
	}
	if a := result.Angular; a != nil {
		rows = append(rows,
			struct{ label, value string }{"Average movement", fmt.Sprintf("%.3f cm / %.2f deg", a.AverageMovementCm, a.AverageMovementDegrees)},
			struct{ label, value string }{"Total movement", fmt.Sprintf("%.2f cm", a.TotalMovementCm)},
			struct{ label, value string }{"Viewing distance", fmt.Sprintf("%.1f cm", a.ViewingDistanceCm)},
		)
	}

	pdf.SetFont("Helvetica", "", bodyFontSize)
	for _, row := range rows {
		pdf.CellFormat(labelWidth, rowHeight, row.label, "B", 0, "L", false, 0, "")
		pdf.CellFormat(valueWidth, rowHeight, row.value, "B", 1, "R", false, 0, "")
	}
}
