package services

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"bill-backend/internal/billing"
	"bill-backend/internal/models"
	"bill-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
)

// ReceiptService renders bills as A4 tax invoices
type ReceiptService struct {
	ShopName    string
	ShopAddress string
}

func NewReceiptService(shopName, shopAddress string) *ReceiptService {
	if shopName == "" {
		shopName = "Bill Software UAE"
	}
	if shopAddress == "" {
		shopAddress = "Dubai, UAE"
	}
	return &ReceiptService{ShopName: shopName, ShopAddress: shopAddress}
}

// Render returns the PDF bytes for bill
func (s *ReceiptService) Render(bill models.Bill) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.Write(&buf, bill); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders bill to w
func (s *ReceiptService) Write(w io.Writer, bill models.Bill) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+bill.InvoiceNumber, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(120, 8, tr(s.ShopName), "", 0, "L", false, 0, "")
	pdf.CellFormat(70, 8, "TAX INVOICE", "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(120, 6, tr(s.ShopAddress), "", 0, "L", false, 0, "")
	pdf.CellFormat(70, 6, tr(bill.InvoiceNumber), "", 1, "R", false, 0, "")
	date := ""
	if !bill.Date.IsZero() {
		date = timeutil.FormatGST(bill.Date, timeutil.DisplayLayout)
	}
	pdf.CellFormat(190, 6, date, "", 1, "R", false, 0, "")
	pdf.Ln(4)

	// Customer
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(190, 7, "Bill To", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	c := bill.Customer
	pdf.CellFormat(95, 6, tr("Name: "+c.Name), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 6, tr("Phone: "+c.Phone), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 6, tr("Email: "+c.Email), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 6, tr("Address: "+c.Address), "RB", 1, "L", false, 0, "")
	if c.GSTIN != "" || c.PlaceOfSupply != "" {
		pdf.CellFormat(95, 6, tr("TRN: "+c.GSTIN), "LB", 0, "L", false, 0, "")
		pdf.CellFormat(95, 6, tr("Place of supply: "+c.PlaceOfSupply), "RB", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// Items
	widths := []float64{10, 70, 18, 17, 25, 15, 35}
	headers := []string{"#", "Item", "Qty", "Unit", "Rate", "VAT%", "Amount"}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	for i, h := range headers {
		ln := 0
		if i == len(headers)-1 {
			ln = 1
		}
		pdf.CellFormat(widths[i], 7, h, "1", ln, "C", true, 0, "")
	}

	pdf.SetFont("Arial", "", 10)
	for i, item := range bill.Items {
		name := item.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		pdf.CellFormat(widths[0], 6, strconv.Itoa(i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 6, tr(name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, strconv.FormatFloat(item.Qty, 'f', -1, 64), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, tr(item.Unit), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[4], 6, fmt.Sprintf("%.2f", item.Rate), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[5], 6, strconv.FormatFloat(item.GSTRate, 'f', -1, 64), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[6], 6, billing.FormatCurrency(item.Amount), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// Totals
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(130, 7, "", "", 0, "", false, 0, "")
	pdf.CellFormat(25, 7, "Subtotal", "1", 0, "L", false, 0, "")
	pdf.CellFormat(35, 7, billing.FormatCurrency(bill.Subtotal), "1", 1, "R", false, 0, "")
	pdf.CellFormat(130, 7, "", "", 0, "", false, 0, "")
	pdf.CellFormat(25, 7, "VAT", "1", 0, "L", false, 0, "")
	pdf.CellFormat(35, 7, billing.FormatCurrency(bill.Tax), "1", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(220, 240, 220)
	pdf.CellFormat(130, 8, "", "", 0, "", false, 0, "")
	pdf.CellFormat(25, 8, "Total", "1", 0, "L", true, 0, "")
	pdf.CellFormat(35, 8, billing.FormatCurrency(bill.Total), "1", 1, "R", true, 0, "")

	if bill.YaadroSentAt != nil {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 9)
		pdf.CellFormat(190, 5, "Delivery order sent "+timeutil.FormatGST(*bill.YaadroSentAt, timeutil.DisplayLayout), "", 1, "L", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(190, 5, "Thank you for your business.", "", 1, "C", false, 0, "")

	return pdf.Output(w)
}
