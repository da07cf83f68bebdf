package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Receipt carries the fields printed on a swap request receipt. Values are
// pre-formatted strings so the renderer stays free of domain types.
type Receipt struct {
	Institution string
	Title       string
	Reference   string
	Status      string
	Sections    []ReceiptSection
	FooterNote  string
}

// ReceiptSection is a labelled block of key/value lines.
type ReceiptSection struct {
	Title  string
	Fields []ReceiptField
}

// ReceiptField is a single labelled value.
type ReceiptField struct {
	Label string
	Value string
}

// RenderReceipt produces a single-page A4 receipt PDF.
func RenderReceipt(r Receipt) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	if r.Institution != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, r.Institution, "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 12, r.Title, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Reference: %s", r.Reference), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Status: %s", r.Status), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	for _, section := range r.Sections {
		pdf.SetFillColor(230, 230, 230)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 8, section.Title, "1", 1, "L", true, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, field := range section.Fields {
			pdf.CellFormat(55, 7, field.Label, "1", 0, "L", false, 0, "")
			pdf.CellFormat(0, 7, field.Value, "1", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}

	if r.FooterNote != "" {
		pdf.SetY(-35)
		pdf.SetFont("Arial", "I", 8)
		pdf.MultiCell(0, 4, r.FooterNote, "", "C", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
