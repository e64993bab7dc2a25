// Package report renders printable documents for a station session.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/anmicius0/unit-batch-station/internal/batch"
	"github.com/anmicius0/unit-batch-station/internal/scan"
	"github.com/jung-kurt/gofpdf"
)

const (
	pageMargin   = 10.0
	rowHeight    = 16.0
	barcodeWidth = 55.0
	barcodeTall  = 11.0
	qrSize       = 22.0
	headerFont   = "Arial"
)

// column widths in mm: unit, product, description, status, barcode
var columns = []float64{32, 24, 52, 27, barcodeWidth}

// Manifest is the content of a batch manifest.
type Manifest struct {
	Title       string
	Reference   string
	Facility    string
	GeneratedAt time.Time
	Items       []batch.Item
}

// Render writes the manifest as a PDF document.
func Render(m Manifest) ([]byte, error) {
	if m.GeneratedAt.IsZero() {
		m.GeneratedAt = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(m.Title, true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-pageMargin)
		pdf.SetFont(headerFont, "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	if err := header(pdf, m); err != nil {
		return nil, err
	}
	tableHeader(pdf)
	for i, item := range m.Items {
		if pdf.GetY()+rowHeight > 297-2*pageMargin {
			pdf.AddPage()
			tableHeader(pdf)
		}
		if err := row(pdf, i, item); err != nil {
			return nil, err
		}
	}

	pdf.Ln(4)
	pdf.SetFont(headerFont, "B", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total products: %d", len(m.Items)), "", 1, "L", false, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render manifest: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return buf.Bytes(), nil
}

func header(pdf *gofpdf.Fpdf, m Manifest) error {
	top := pdf.GetY()
	pdf.SetFont(headerFont, "B", 14)
	pdf.CellFormat(0, 8, m.Title, "", 1, "L", false, 0, "")

	pdf.SetFont(headerFont, "", 9)
	for _, line := range []string{
		"Reference: " + m.Reference,
		"Facility: " + m.Facility,
		"Generated: " + m.GeneratedAt.Format("2006-01-02 15:04:05"),
	} {
		pdf.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
	}

	if m.Reference != "" {
		png, err := scan.QRPNG(m.Reference, 0)
		if err != nil {
			return err
		}
		name := "qr-reference"
		pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
		pdf.ImageOptions(name, 210-pageMargin-qrSize, top, qrSize, qrSize, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}
	pdf.SetY(top + qrSize + 4)
	return nil
}

func tableHeader(pdf *gofpdf.Fpdf) {
	pdf.SetFont(headerFont, "B", 8)
	pdf.SetFillColor(230, 230, 230)
	for i, title := range []string{"Unit Number", "Product Code", "Description", "Status", "Barcode"} {
		pdf.CellFormat(columns[i], 6, title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
}

func row(pdf *gofpdf.Fpdf, index int, item batch.Item) error {
	x, y := pdf.GetX(), pdf.GetY()
	pdf.SetFont(headerFont, "", 8)
	cells := []string{item.UnitNumber, item.ProductCode, item.ProductDescription, strings.Join(item.Statuses, ", ")}
	for i, text := range cells {
		pdf.CellFormat(columns[i], rowHeight, truncate(pdf, text, columns[i]-2), "1", 0, "L", false, 0, "")
	}
	pdf.CellFormat(columns[4], rowHeight, "", "1", 1, "L", false, 0, "")

	png, err := scan.Code128PNG(scan.LabelText(item.UnitNumber, ""))
	if err != nil {
		return err
	}
	name := fmt.Sprintf("unit-%d", index)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	offset := x + columns[0] + columns[1] + columns[2] + columns[3]
	pdf.ImageOptions(name, offset+1, y+(rowHeight-barcodeTall)/2, barcodeWidth-2, barcodeTall, false, opts, 0, "")
	return nil
}

func truncate(pdf *gofpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
