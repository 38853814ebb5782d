package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Field is one label/value line in the rendered document.
type Field struct {
	Label string
	Value string
}

// Section groups fields under a heading.
type Section struct {
	Heading string
	Fields  []Field
}

// Document describes a linear report: a title followed by field sections.
type Document struct {
	Title    string
	Sections []Section
}

// FormPDFRenderer renders a Document into a single linear PDF.
type FormPDFRenderer struct{}

// NewFormPDFRenderer constructs a PDF renderer.
func NewFormPDFRenderer() *FormPDFRenderer {
	return &FormPDFRenderer{}
}

// Render produces the PDF bytes. Values are printed as given; the caller is
// responsible for substituting placeholders for empty fields.
func (r *FormPDFRenderer) Render(doc Document) ([]byte, error) {
	if doc.Title == "" {
		return nil, fmt.Errorf("pdf requires a title")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	// core fonts are cp1252; translate umlauts and sharp s
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "BU", 20)
	pdf.CellFormat(0, 12, tr(doc.Title), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, section := range doc.Sections {
		if section.Heading != "" {
			pdf.SetFont("Helvetica", "BU", 14)
			pdf.CellFormat(0, 9, tr(section.Heading), "", 1, "L", false, 0, "")
			pdf.Ln(2)
		}
		pdf.SetFont("Helvetica", "", 11)
		for _, field := range section.Fields {
			pdf.MultiCell(0, 6, tr(fmt.Sprintf("%s: %s", field.Label, field.Value)), "", "L", false)
		}
		pdf.Ln(4)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
