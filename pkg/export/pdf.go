package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth  = 277.0 // A4 landscape minus margins, mm
	pdfCellHeight = 6.0
	pdfCellPad    = 2.0
)

// PDFExporter renders tables as a landscape A4 listing.
type PDFExporter struct {
	now func() time.Time
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{now: time.Now}
}

// ContentType of the rendered document.
func (e *PDFExporter) ContentType() string { return "application/pdf" }

// Extension of the rendered document.
func (e *PDFExporter) Extension() string { return "pdf" }

// Render lays the table out one line per row. Cells too wide for their column are cut with an ellipsis.
func (e *PDFExporter) Render(table Table) ([]byte, error) {
	if err := table.check(); err != nil {
		return nil, err
	}
	widths := columnWidths(table.Columns)

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, col := range table.Columns {
			pdf.CellFormat(widths[i], pdfCellHeight+1, tr(col.Header), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Arial", "I", 7)
		pdf.CellFormat(0, 4, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	if table.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 8, tr(table.Title), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Generated %s, %d rows", e.now().UTC().Format(time.RFC1123), len(table.Rows)), "", 1, "L", false, 0, "")
		pdf.Ln(2)
	}
	header()

	for _, row := range table.Rows {
		for i, cell := range row {
			pdf.CellFormat(widths[i], pdfCellHeight, fitCell(pdf, tr(cell), widths[i]-pdfCellPad), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout pdf: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(columns []Column) []float64 {
	var total float64
	for _, col := range columns {
		total += weight(col)
	}
	widths := make([]float64, len(columns))
	for i, col := range columns {
		widths[i] = pdfPageWidth * weight(col) / total
	}
	return widths
}

func weight(col Column) float64 {
	if col.Weight <= 0 {
		return 1
	}
	return col.Weight
}

func fitCell(pdf *gofpdf.Fpdf, text string, width float64) string {
	text = strings.Join(strings.Fields(text), " ")
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	const ellipsis = "..."
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+ellipsis) > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + ellipsis
}
