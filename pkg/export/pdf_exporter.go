package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	// landscapeColumns is the header count from which pages switch to landscape.
	landscapeColumns = 6
	coreFamily       = "Arial"
	utf8Family       = "unicode"
)

// PDFExporter renders datasets into a basic tabular PDF. Without a TrueType
// font the built-in Arial is used, which covers cp1252 only; other characters
// print as '.'.
type PDFExporter struct {
	fontPath string
}

// PDFOption customises a PDFExporter.
type PDFOption func(*PDFExporter)

// WithUTF8Font embeds the TrueType font at path so any script it covers
// renders as written. An empty path keeps the built-in font.
func WithUTF8Font(path string) PDFOption {
	return func(e *PDFExporter) {
		e.fontPath = path
	}
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter(opts ...PDFOption) *PDFExporter {
	e := &PDFExporter{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ContentType is the MIME type of rendered output.
func (e *PDFExporter) ContentType() string { return "application/pdf" }

// Extension is the file suffix of rendered output.
func (e *PDFExporter) Extension() string { return "pdf" }

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	orientation, width := "P", 190.0
	if len(data.Headers) >= landscapeColumns {
		orientation, width = "L", 277.0
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	family, tr := e.font(pdf)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("load pdf font %s: %w", e.fontPath, err)
	}
	pdf.AddPage()

	if data.Title != "" {
		pdf.SetFont(family, "B", 14)
		pdf.CellFormat(0, 10, tr(data.Title), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	colWidth := width / float64(len(data.Headers))
	header := func() {
		pdf.SetFont(family, "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for _, h := range data.Headers {
			pdf.CellFormat(colWidth, 8, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(family, "", 9)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range data.Rows {
		if pdf.GetY()+7 > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		for _, value := range row {
			pdf.CellFormat(colWidth, 7, tr(value), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) font(pdf *gofpdf.Fpdf) (string, func(string) string) {
	if e.fontPath == "" {
		return coreFamily, pdf.UnicodeTranslatorFromDescriptor("")
	}
	pdf.AddUTF8Font(utf8Family, "", e.fontPath)
	pdf.AddUTF8Font(utf8Family, "B", e.fontPath)
	return utf8Family, func(s string) string { return s }
}
