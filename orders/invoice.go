package orders

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"

	"storefront/models"
)

// RenderInvoice draws a one page A4 invoice with a QR code of the order id.
// Text is UTF-8 and is converted to the cp1252 encoding of the core fonts.
func RenderInvoice(order *models.Order, printedAt time.Time) ([]byte, error) {
	return renderInvoice(order, printedAt, true)
}

func renderInvoice(order *models.Order, printedAt time.Time, compress bool) ([]byte, error) {
	qrPNG, err := qrcode.Encode("order:"+order.ID.Hex(), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("generate qr code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Invoice")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 7, "Order: "+order.ID.Hex())
	pdf.Ln(6)
	pdf.Cell(0, 7, "Placed: "+order.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	pdf.Ln(6)
	pdf.Cell(0, 7, "Printed: "+printedAt.UTC().Format("2006-01-02 15:04 MST"))
	pdf.Ln(10)

	ship := order.Shipping
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 7, "Ship to")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 11)
	for _, line := range []string{
		ship.Name,
		ship.Email,
		ship.Street,
		fmt.Sprintf("%s, %s %s", ship.City, ship.State, ship.PostalCode),
		ship.Country,
	} {
		pdf.Cell(0, 6, tr(line))
		pdf.Ln(5)
	}
	pdf.Ln(6)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 20, 40, 40, false, imageOpts, 0, "")

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(100, 8, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(20, 8, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	for _, it := range order.OrderItems {
		amount := ""
		if price, err := ParsePrice(it.Price); err == nil {
			amount = price.Mul(decimal.NewFromInt(int64(it.Qty))).StringFixed(2)
		}
		pdf.CellFormat(100, 7, tr(it.Title), "", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", it.Qty), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, string(it.Price), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, amount, "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	totals := []struct {
		label string
		value float64
	}{
		{"Items", order.ItemsPrice},
		{"Tax", order.TaxPrice},
		{"Shipping", order.ShippingPrice},
		{"Total", order.TotalPrice},
	}
	for _, t := range totals {
		pdf.CellFormat(150, 7, t.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%.2f", t.value), "", 1, "R", false, 0, "")
	}
	pdf.Ln(6)
	pdf.Cell(0, 7, tr("Status: "+status(order)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func status(o *models.Order) string {
	paid := "unpaid"
	if o.IsPaid && o.PaidAt != nil {
		paid = "paid " + o.PaidAt.UTC().Format("2006-01-02")
	}
	delivered := "not delivered"
	if o.IsDelivered && o.DeliveredAt != nil {
		delivered = "delivered " + o.DeliveredAt.UTC().Format("2006-01-02")
	}
	return paid + ", " + delivered
}
