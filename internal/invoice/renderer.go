package invoice

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-pdf/fpdf"

	domain "github.com/myshop/api/internal/domain"
	"github.com/myshop/api/internal/platform/config"
)

const (
	pageMargin        = 50.0
	lineHeight        = 18.0
	wrappedLineHeight = 14.0
	headerBlockGap    = 95.0
	detailHeadingGap  = 20.0
	invoiceInfoGap    = 60.0
	tableHeaderGap    = 24.0
	totalsBlockSpace  = 60.0
)

// Renderer lays out order invoices as A4 PDF documents.
type Renderer struct {
	shop  config.ShopConfig
	clock func() time.Time
}

// RendererDeps enumerates the renderer dependencies.
type RendererDeps struct {
	Shop  config.ShopConfig
	Clock func() time.Time
}

// NewRenderer constructs a Renderer.
func NewRenderer(deps RendererDeps) (*Renderer, error) {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Renderer{
		shop:  deps.Shop,
		clock: func() time.Time { return clock().UTC() },
	}, nil
}

// Render produces the invoice PDF for a committed order.
func (r *Renderer) Render(order domain.Order) ([]byte, error) {
	if r == nil {
		return nil, errors.New("invoice: renderer is nil")
	}
	if order.ID == "" {
		return nil, errors.New("invoice: order id is required")
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pageWidth, pageHeight := pdf.GetPageSize()
	usableWidth := pageWidth - 2*pageMargin

	productX := pageMargin
	qtyX := pageMargin + math.Round(usableWidth*0.65)
	priceX := pageMargin + math.Round(usableWidth*0.80)
	pageLimit := pageHeight - pageMargin

	currentY := pageMargin

	text := func(x, y, size float64, style, s string) {
		pdf.SetFont("Helvetica", style, size)
		pdf.Text(x, y+size, s)
	}

	pageHeader := func() {
		text(pageMargin, currentY, 20, "B", r.shop.Name)
		text(pageMargin, currentY+22, 10, "", r.shop.Address)
		text(pageMargin, currentY+36, 10, "", r.shop.Phone)
		text(pageMargin, currentY+50, 10, "", r.shop.Email)
		currentY += headerBlockGap

		text(pageMargin, currentY, 14, "B", "Order Details")
		currentY += detailHeadingGap

		text(pageMargin, currentY, 12, "", fmt.Sprintf("Invoice Number: %s", order.ID))
		text(pageMargin, currentY+15, 12, "", fmt.Sprintf("Invoice Date: %s", r.clock().Format("1/2/2006")))
		text(pageMargin, currentY+30, 12, "", fmt.Sprintf("Customer Email: %s", order.Email))
		currentY += invoiceInfoGap
	}

	tableHeader := func() {
		text(productX, currentY, 14, "B", "Product")
		text(qtyX, currentY, 14, "B", "Qty")
		text(priceX, currentY, 14, "B", "Price")

		pdf.SetDrawColor(0, 0, 0)
		pdf.SetLineWidth(1)
		pdf.Line(productX, currentY+16, pageWidth-pageMargin, currentY+16)

		currentY += tableHeaderGap
	}

	pageHeader()
	tableHeader()

	productColumnWidth := qtyX - productX - 10

	// Measure every row before drawing so page breaks account for the full
	// wrapped title height, keeping each row on a single page.
	pdf.SetFont("Helvetica", "", 12)
	wrappedTitles := make([][]string, len(order.Lines))
	heights := make([]float64, len(order.Lines))
	for i, line := range order.Lines {
		wrappedTitles[i] = pdf.SplitText(line.Title, productColumnWidth)
		heights[i] = rowHeight(len(wrappedTitles[i]))
	}

	placements := planRows(heights, currentY, pageLimit)

	page := 1
	for i, line := range order.Lines {
		if placements[i].page > page {
			pdf.AddPage()
			currentY = pageMargin
			pageHeader()
			tableHeader()
			page = placements[i].page
		}

		rowY := currentY
		pdf.SetFont("Helvetica", "", 12)
		for j, part := range wrappedTitles[i] {
			pdf.Text(productX, rowY+12+float64(j)*wrappedLineHeight, part)
		}

		text(qtyX, rowY, 12, "", fmt.Sprintf("%d", line.Quantity))
		text(priceX, rowY, 12, "", line.UnitPrice.Format())

		currentY += heights[i]

		pdf.SetDrawColor(238, 238, 238)
		pdf.SetLineWidth(0.5)
		pdf.Line(productX, currentY-4, pageWidth-pageMargin, currentY-4)
		pdf.SetDrawColor(0, 0, 0)
		pdf.SetLineWidth(1)
	}

	if currentY+totalsBlockSpace > pageLimit {
		pdf.AddPage()
		currentY = pageMargin
	}

	text(productX, currentY+10, 14, "B", "Total Amount:")
	text(priceX, currentY+10, 14, "B", order.TotalAmount.Format())
	if order.Coupon != nil {
		note := fmt.Sprintf("Coupon %s applied (%d%% off)", order.Coupon.Code, order.Coupon.DiscountPercent)
		text(productX, currentY+30, 10, "", note)
	}
	currentY += 70

	centered := func(y float64, s string) {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetXY(pageMargin, y)
		pdf.CellFormat(usableWidth, 12, s, "", 1, "C", false, 0, "")
	}
	centered(currentY, "Thank you for shopping with us!")
	centered(currentY+14, "This is a computer-generated invoice and does not require signature.")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("invoice: render order %s: %w", order.ID, err)
	}
	return buf.Bytes(), nil
}

// rowPlacement records where one table row lands in the page flow.
type rowPlacement struct {
	page int
	y    float64
}

// planRows assigns rows to pages. A row whose full height would cross the
// bottom margin starts on a fresh page instead of spanning the break.
// bodyTop is the Y where the table body begins on every page, after the
// shop header and column headings.
func planRows(heights []float64, bodyTop, pageLimit float64) []rowPlacement {
	placements := make([]rowPlacement, len(heights))
	page := 1
	y := bodyTop
	for i, h := range heights {
		if y+h > pageLimit && y > bodyTop {
			page++
			y = bodyTop
		}
		placements[i] = rowPlacement{page: page, y: y}
		y += h
	}
	return placements
}

// rowHeight returns the vertical space one table row occupies: tall enough for
// the wrapped title, never shorter than the base row height.
func rowHeight(titleLines int) float64 {
	if titleLines < 1 {
		titleLines = 1
	}
	height := float64(titleLines) * wrappedLineHeight
	if height < lineHeight {
		return lineHeight
	}
	return height
}
