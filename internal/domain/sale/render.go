package sale

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// Format selects an invoice rendering.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatText Format = "txt"
)

const (
	storeName    = "FITSTOCK MANAGER"
	thankYouNote = "Thank you for choosing FitStock Manager!"
	currency     = "Rs."
)

// ParseFormat maps a user-supplied format name to a Format. An empty name
// selects PDF.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pdf":
		return FormatPDF, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", errors.Errorf("unsupported invoice format %q", s)
	}
}

// ContentType returns the MIME type of the rendering.
func (f Format) ContentType() string {
	if f == FormatText {
		return "text/plain; charset=utf-8"
	}
	return "application/pdf"
}

// FileName returns the download name of the invoice in format f.
func (inv *Invoice) FileName(f Format) string {
	return "invoice-" + inv.Number + "." + string(f)
}

// Render writes inv to w in the given format.
func Render(w io.Writer, inv *Invoice, f Format) error {
	switch f {
	case FormatText:
		_, err := io.WriteString(w, inv.Text())
		return err
	case FormatPDF:
		return WritePDF(w, inv)
	default:
		return errors.Errorf("unsupported invoice format %q", f)
	}
}

// Text renders the invoice as plain text.
func (inv *Invoice) Text() string {
	var b strings.Builder
	b.WriteString(storeName + "\n")
	b.WriteString("INVOICE\n\n")
	fmt.Fprintf(&b, "Invoice Number: %s\n", inv.Number)
	fmt.Fprintf(&b, "Date: %s\n", inv.Date)
	if inv.Customer.Name != "" {
		fmt.Fprintf(&b, "Customer: %s\n", inv.Customer.Name)
	}
	if inv.Customer.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", inv.Customer.Phone)
	}
	b.WriteString("\nITEMS:\n")
	for i, l := range inv.Lines {
		for _, s := range lineText(i, l) {
			b.WriteString(s + "\n")
		}
	}
	fmt.Fprintf(&b, "\nTOTAL AMOUNT: %s\n\n", money(inv.GrandTotal))
	b.WriteString(thankYouNote + "\n")
	return b.String()
}

// WritePDF renders the invoice as an A4 PDF, starting new pages as the item
// list grows. Output only depends on inv.
func WritePDF(w io.Writer, inv *Invoice) error {
	if err := newInvoicePDF(inv).Output(w); err != nil {
		return errors.Wrap(err, "write pdf")
	}
	return nil
}

// newInvoicePDF lays out inv using the core Helvetica font. Text is converted
// from UTF-8 to cp1252, the encoding of the core fonts.
func newInvoicePDF(inv *Invoice) *fpdf.Fpdf {
	const (
		left       = 20.0
		pageBottom = 270.0
		lineStep   = 8.0
	)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(inv.IssuedAt)
	pdf.SetCatalogSort(true)
	pdf.SetTitle("Invoice "+inv.Number, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(x, y float64, s string) {
		pdf.Text(x, y, tr(s))
	}
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	text(left, 30, storeName)
	pdf.SetFontSize(16)
	text(left, 45, "INVOICE")

	pdf.SetFont("Helvetica", "", 12)
	text(left, 65, "Invoice Number: "+inv.Number)
	text(left, 75, "Date: "+inv.Date)
	y := 85.0
	if inv.Customer.Name != "" {
		text(left, y, "Customer: "+inv.Customer.Name)
		y += 10
	}
	if inv.Customer.Phone != "" {
		text(left, y, "Phone: "+inv.Customer.Phone)
		y += 10
	}

	y += 10
	pdf.SetFont("Helvetica", "B", 12)
	text(left, y, "ITEMS:")
	pdf.SetFont("Helvetica", "", 12)
	y += 10

	for i, l := range inv.Lines {
		rows := lineText(i, l)
		if y+float64(len(rows))*lineStep > pageBottom {
			pdf.AddPage()
			y = 20
		}
		for _, s := range rows {
			text(left, y, s)
			y += lineStep
		}
	}

	if y+40 > pageBottom {
		pdf.AddPage()
		y = 20
	}
	pdf.SetFont("Helvetica", "B", 14)
	text(left, y+12, "TOTAL AMOUNT: "+money(inv.GrandTotal))
	pdf.SetFont("Helvetica", "", 10)
	text(left, y+32, thankYouNote)
	return pdf
}

func lineText(i int, l InvoiceLine) []string {
	rows := []string{fmt.Sprintf("%d. %s", i+1, l.ProductName)}
	if l.Category != "" {
		rows = append(rows, "   Category: "+l.Category)
	}
	return append(rows,
		fmt.Sprintf("   Quantity: %d x %s", l.Quantity, money(l.UnitPrice)),
		"   Subtotal: "+money(l.Total),
	)
}

func money(d decimal.Decimal) string {
	return currency + " " + d.StringFixed(2)
}
