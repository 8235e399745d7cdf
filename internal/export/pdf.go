package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

func renderPDF(t Table, now time.Time) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20
	widths := columnWidths(t.Columns, contentW)

	header := func() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(217, 225, 242)
		for i, c := range t.Columns {
			pdf.CellFormat(widths[i], 6, tr(c.Title), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 7)
	}
	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(contentW, 7, tr(t.Title), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 7)
		pdf.CellFormat(contentW, 4, now.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
		pdf.Ln(2)
		header()
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	for _, row := range t.Rows {
		for i := range t.Columns {
			pdf.CellFormat(widths[i], 5, tr(fit(pdf, cell(row, i), widths[i])), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("export: pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths spreads total proportionally to the declared widths.
func columnWidths(cols []Column, total float64) []float64 {
	out := make([]float64, len(cols))
	sum := 0.0
	for _, c := range cols {
		w := c.Width
		if w <= 0 {
			w = 10
		}
		sum += w
	}
	for i, c := range cols {
		w := c.Width
		if w <= 0 {
			w = 10
		}
		out[i] = total * w / sum
	}
	return out
}

func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)) > width-2 {
		runes = runes[:len(runes)-1]
	}
	if len(runes) < len([]rune(s)) && len(runes) > 1 {
		return string(runes[:len(runes)-1]) + "."
	}
	return string(runes)
}
