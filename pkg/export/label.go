package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/barcode"
)

// Label is the printable spine/cover sticker for a catalogued book.
type Label struct {
	Barcode string
	Title   string
	Author  string
	Caption string
}

// LabelRenderer draws a Code128 barcode with the book's title beneath it.
type LabelRenderer struct {
	Width  float64
	Height float64
}

// NewLabelRenderer returns a renderer for 70x38mm sticker labels.
func NewLabelRenderer() *LabelRenderer {
	return &LabelRenderer{Width: 70, Height: 38}
}

// ContentType of the rendered label.
func (r *LabelRenderer) ContentType() string { return "application/pdf" }

// Render produces a single-page PDF sized to the label.
func (r *LabelRenderer) Render(l Label) ([]byte, error) {
	if l.Barcode == "" {
		return nil, fmt.Errorf("label requires a barcode")
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "L",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: r.Width, Ht: r.Height},
	})
	pdf.SetMargins(3, 3, 3)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	inner := r.Width - 6

	key := barcode.RegisterCode128(pdf, l.Barcode)
	barcode.Barcode(pdf, key, 3, 3, inner, r.Height*0.45, false)

	pdf.SetXY(3, 3+r.Height*0.45+1)
	pdf.SetFont("Courier", "B", 9)
	pdf.CellFormat(inner, 4, l.Barcode, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 8)
	pdf.CellFormat(inner, 4, tr(fit(pdf, l.Title, inner)), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 7)
	if l.Author != "" {
		pdf.CellFormat(inner, 3.5, tr(fit(pdf, l.Author, inner)), "", 1, "C", false, 0, "")
	}
	if l.Caption != "" {
		pdf.CellFormat(inner, 3.5, tr(fit(pdf, l.Caption, inner)), "", 1, "C", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render label: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render label: %w", err)
	}
	return buf.Bytes(), nil
}
