// Package invoice renders order snapshots as single-document PDF invoices.
package invoice

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"github.com/ventech/storefront-backend/pkg/config"
	"github.com/ventech/storefront-backend/pkg/db/models"
	"github.com/ventech/storefront-backend/pkg/money"
)

const (
	pageMargin   = 15.0
	contentWidth = 180.0
	labelWidth   = 45.0
	lineHeight   = 6.0
	dateLayout   = "Jan 2, 2006"

	unknownName  = "Unknown"
	missingEmail = "No email"
)

var (
	brandColor = [3]int{0xFF, 0x7A, 0x19}
	textColor  = [3]int{0x3A, 0x3A, 0x3A}
	headColor  = [3]int{0x1A, 0x1A, 0x1A}
	ruleColor  = [3]int{0xED, 0xED, 0xED}

	// product, qty, unit price, total
	columnWidths = [4]float64{90, 20, 35, 35}
)

// Renderer lays out invoices with the store's branding. It holds no mutable
// state and is safe for concurrent use.
type Renderer struct {
	store config.StoreConfig
}

func NewRenderer(store config.StoreConfig) *Renderer {
	return &Renderer{store: store}
}

// Render returns the complete PDF for the order. Zero items and missing
// customer or address fields render placeholders.
func (r *Renderer) Render(order *models.Order) ([]byte, error) {
	if order == nil {
		return nil, fmt.Errorf("order required")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle("Invoice "+order.OrderNumber, true)
	pdf.SetCreator(r.store.BrandName, true)
	if !order.CreatedAt.IsZero() {
		pdf.SetCreationDate(order.CreatedAt)
		pdf.SetModificationDate(order.CreatedAt)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	r.header(pdf, tr)
	r.orderInfo(pdf, tr, order)
	r.customerInfo(pdf, tr, order)
	r.items(pdf, tr, order)
	r.summary(pdf, tr, order)
	r.footer(pdf, tr)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", order.OrderNumber, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) header(pdf *fpdf.Fpdf, tr func(string) string) {
	setText(pdf, brandColor)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(contentWidth, 10, tr(r.store.BrandName), "", 1, "L", false, 0, "")

	setText(pdf, textColor)
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(contentWidth, lineHeight, tr(r.store.Tagline), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	setText(pdf, headColor)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(contentWidth, 10, "ORDER INVOICE", "", 1, "L", false, 0, "")
	rule(pdf, pageMargin, pageMargin+contentWidth)
	pdf.Ln(4)
}

func (r *Renderer) orderInfo(pdf *fpdf.Fpdf, tr func(string) string, order *models.Order) {
	section(pdf, "Order Information")
	date := "-"
	if !order.CreatedAt.IsZero() {
		date = order.CreatedAt.Format(dateLayout)
	}
	labelled(pdf, tr, [][2]string{
		{"Order Number:", order.OrderNumber},
		{"Order Date:", date},
		{"Status:", strings.ToUpper(order.Status.String())},
		{"Payment Status:", strings.ToUpper(string(order.PaymentStatus))},
	})
	pdf.Ln(4)
}

func (r *Renderer) customerInfo(pdf *fpdf.Fpdf, tr func(string) string, order *models.Order) {
	section(pdf, "Customer Information")
	name := strings.TrimSpace(order.CustomerName)
	if name == "" {
		name = unknownName
	}
	email := missingEmail
	if order.CustomerEmail != nil && strings.TrimSpace(*order.CustomerEmail) != "" {
		email = strings.TrimSpace(*order.CustomerEmail)
	}
	labelled(pdf, tr, [][2]string{
		{"Name:", name},
		{"Email:", email},
	})
	pdf.CellFormat(labelWidth, lineHeight, "Address:", "", 0, "L", false, 0, "")
	pdf.MultiCell(contentWidth-labelWidth, lineHeight, tr(order.DeliveryAddress.Format()), "", "L", false)
	pdf.Ln(4)
}

func (r *Renderer) items(pdf *fpdf.Fpdf, tr func(string) string, order *models.Order) {
	section(pdf, "Order Items")

	setText(pdf, textColor)
	pdf.SetFont("Helvetica", "B", 10)
	for i, title := range []string{"Product", "Qty", "Unit Price", "Total"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(columnWidths[i], 8, title, "B", 0, align, false, 0, "")
	}
	pdf.Ln(-1)

	setText(pdf, headColor)
	pdf.SetFont("Helvetica", "", 10)
	for _, item := range order.Items {
		name := item.ProductName
		if variants := item.SelectedVariants.Describe(); variants != "" {
			name += " (" + variants + ")"
		}
		line := item.Subtotal
		if line.IsZero() {
			line = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		}
		pdf.CellFormat(columnWidths[0], 7, tr(truncate(pdf, name, columnWidths[0]-2)), "", 0, "L", false, 0, "")
		pdf.CellFormat(columnWidths[1], 7, strconv.Itoa(item.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(columnWidths[2], 7, r.money(item.UnitPrice), "", 0, "R", false, 0, "")
		pdf.CellFormat(columnWidths[3], 7, r.money(line), "", 1, "R", false, 0, "")
	}
	rule(pdf, pageMargin, pageMargin+contentWidth)
	pdf.Ln(4)
}

func (r *Renderer) summary(pdf *fpdf.Fpdf, tr func(string) string, order *models.Order) {
	const (
		offset = 100.0
		labelW = 40.0
		valueW = contentWidth - offset - labelW
	)
	left := pageMargin + offset

	pdf.SetX(left)
	section(pdf, "Order Summary")

	setText(pdf, textColor)
	pdf.SetFont("Helvetica", "", 10)
	for _, row := range [][2]string{
		{"Subtotal:", r.money(order.Subtotal)},
		{"Discount:", "-" + r.money(order.Discount)},
		{"Tax:", r.money(order.Tax)},
		{"Delivery Fee:", r.money(order.DeliveryFee)},
	} {
		pdf.SetX(left)
		pdf.CellFormat(labelW, lineHeight, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, lineHeight, tr(row[1]), "", 1, "R", false, 0, "")
	}
	rule(pdf, left, pageMargin+contentWidth)
	pdf.Ln(2)

	setText(pdf, brandColor)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetX(left)
	pdf.CellFormat(labelW, 8, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(valueW, 8, tr(r.money(order.Total)), "", 1, "R", false, 0, "")
	pdf.Ln(10)
}

func (r *Renderer) footer(pdf *fpdf.Fpdf, tr func(string) string) {
	setText(pdf, textColor)
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range []string{
		"Thank you for choosing " + r.store.BrandName + "!",
		"For support, contact us at " + r.store.SupportEmail,
		"Phone: " + r.store.SupportPhone,
		"Website: " + r.store.Website,
	} {
		pdf.CellFormat(contentWidth, 5, tr(line), "", 1, "L", false, 0, "")
	}
}

func (r *Renderer) money(amount decimal.Decimal) string {
	return money.Format(r.store.CurrencyPrefix, amount)
}

func section(pdf *fpdf.Fpdf, title string) {
	setText(pdf, headColor)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentWidth, 8, title, "", 1, "L", false, 0, "")
}

func labelled(pdf *fpdf.Fpdf, tr func(string) string, rows [][2]string) {
	setText(pdf, textColor)
	pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		pdf.CellFormat(labelWidth, lineHeight, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(contentWidth-labelWidth, lineHeight, tr(row[1]), "", 1, "L", false, 0, "")
	}
}

func rule(pdf *fpdf.Fpdf, x1, x2 float64) {
	pdf.SetDrawColor(ruleColor[0], ruleColor[1], ruleColor[2])
	y := pdf.GetY() + 1
	pdf.Line(x1, y, x2, y)
	pdf.SetY(y + 1)
}

func setText(pdf *fpdf.Fpdf, c [3]int) {
	pdf.SetTextColor(c[0], c[1], c[2])
}

// truncate shortens s with "..." until it fits width at the current font.
func truncate(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
