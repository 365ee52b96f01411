// Package invoice renders subscription payment invoices as PDF.
package invoice

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// Invoice is everything printed on one invoice.
type Invoice struct {
	PaymentID    int64
	IssuedAt     time.Time
	SellerName   string
	CustomerName string
	Email        string
	PlanName     string
	DurationDays int
	Price        decimal.Decimal
	AmountPaid   decimal.Decimal
	Method       string
	ValidUntil   *time.Time
}

// Number returns INV-<year>-<payment id>.
func (inv Invoice) Number() string {
	return fmt.Sprintf("INV-%d-%d", inv.IssuedAt.Year(), inv.PaymentID)
}

// Render draws a single page A4 invoice.
func Render(inv Invoice) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(inv.Number(), false)
	pdf.SetCreationDate(inv.IssuedAt)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "INVOICE", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, inv.SellerName, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	meta := [][2]string{
		{"Invoice number", inv.Number()},
		{"Date", inv.IssuedAt.Format("2006-01-02")},
		{"Payment method", inv.Method},
	}
	for _, row := range meta {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "Bill to", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, inv.CustomerName, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, inv.Email, "", 1, "L", false, 0, "")
	pdf.Ln(6)

	pdf.SetFillColor(235, 235, 235)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(110, 8, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Days", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 8, "Price", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	description := fmt.Sprintf("%s subscription", inv.PlanName)
	if inv.ValidUntil != nil {
		description += " (valid until " + inv.ValidUntil.Format("2006-01-02") + ")"
	}
	pdf.CellFormat(110, 8, description, "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 8, fmt.Sprintf("%d", inv.DurationDays), "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 8, money(inv.Price), "1", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(140, 8, "Amount paid", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, money(inv.AmountPaid), "1", 1, "R", false, 0, "")

	if diff := inv.Price.Sub(inv.AmountPaid); diff.IsPositive() {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(140, 8, "Balance due", "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 8, money(diff), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, "Payment was collected outside the platform. Thank you for your business.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", inv.Number(), err)
	}
	return buf.Bytes(), nil
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
