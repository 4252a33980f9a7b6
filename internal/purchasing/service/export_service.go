package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/procure/internal/purchasing/entity"
	"github.com/bitfantasy/procure/internal/purchasing/pricing"
	"github.com/bitfantasy/procure/internal/purchasing/repository"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// 导出列表时的最大订单数
const maxExportOrders = 5000

var orderItemHeaders = []string{"#", "Product", "SKU", "Unit", "Quantity", "Unit Price", "Tax Rate %", "Tax Amount", "Total", "Received", "Pending"}

var orderListHeaders = []string{"PO Number", "Vendor", "Status", "Delivery Date", "Payment Terms", "Subtotal", "Tax", "Total", "Material Received", "Created By", "Created At"}

// ExportService 采购订单导出（xlsx）
type ExportService struct {
	poRepo *repository.PORepository
}

func NewExportService(repos *repository.Repositories) *ExportService {
	return &ExportService{poRepo: repos.PO}
}

type sheetStyles struct {
	header int
	amount int
	bold   int
}

func newSheetStyles(f *excelize.File) sheetStyles {
	header, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	format := "#,##0.00"
	amount, _ := f.NewStyle(&excelize.Style{CustomNumFmt: &format})
	bold, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, CustomNumFmt: &format})
	return sheetStyles{header: header, amount: amount, bold: bold}
}

func writeHeaders(f *excelize.File, sheet string, row int, headers []string, style int) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, style)
	}
}

func setColWidths(f *excelize.File, sheet string, widths []float64) {
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
}

// amountCell 金额单元格，显示两位小数
func amountCell(f *excelize.File, sheet, cell string, d decimal.Decimal, style int) {
	f.SetCellValue(sheet, cell, pricing.Round(d).InexactFloat64())
	f.SetCellStyle(sheet, cell, cell, style)
}

func quantityValue(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// ExportOrder 单张订单导出：订单头、行项和合计
func (s *ExportService) ExportOrder(ctx context.Context, id string) (*excelize.File, string, error) {
	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return nil, "", notFoundOr(err, "purchase order", id)
	}

	f := excelize.NewFile()
	sheet := "Purchase Order"
	f.SetSheetName("Sheet1", sheet)
	styles := newSheetStyles(f)

	header := [][2]interface{}{
		{"PO Number", po.PONumber},
		{"Vendor", po.VendorName},
		{"Status", po.Status},
		{"Delivery Date", time.Time(po.DeliveryDate).Format(DateLayout)},
		{"Payment Terms", po.PaymentTerms},
		{"Shipping Address", po.ShippingAddress},
		{"Authorized Signatory", po.AuthorizedSignatory},
		{"Notes", po.Notes},
	}
	for i, kv := range header {
		row := i + 1
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), kv[0])
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), styles.header)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), kv[1])
	}

	itemHeaderRow := len(header) + 2
	writeHeaders(f, sheet, itemHeaderRow, orderItemHeaders, styles.header)

	for i, item := range po.Items {
		row := itemHeaderRow + 1 + i
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), i+1)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), item.ProductName)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), item.SKU)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), item.UnitOfMeasure)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), quantityValue(item.Quantity))
		amountCell(f, sheet, fmt.Sprintf("F%d", row), item.UnitPrice, styles.amount)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), item.TaxRate.InexactFloat64())
		amountCell(f, sheet, fmt.Sprintf("H%d", row), item.TaxAmount, styles.amount)
		amountCell(f, sheet, fmt.Sprintf("I%d", row), item.Total, styles.amount)
		f.SetCellValue(sheet, fmt.Sprintf("J%d", row), quantityValue(item.QuantityReceived))
		f.SetCellValue(sheet, fmt.Sprintf("K%d", row), quantityValue(item.PendingQuantity))
	}

	// 合计
	summaryRow := itemHeaderRow + len(po.Items) + 2
	for i, kv := range []struct {
		label  string
		amount decimal.Decimal
	}{
		{"Subtotal", po.Subtotal},
		{"Tax", po.Tax},
		{"Total", po.Total},
	} {
		row := summaryRow + i
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), kv.label)
		amountCell(f, sheet, fmt.Sprintf("I%d", row), kv.amount, styles.bold)
	}

	setColWidths(f, sheet, []float64{20, 28, 14, 8, 10, 12, 10, 12, 14, 10, 10})
	return f, fmt.Sprintf("%s.xlsx", po.PONumber), nil
}

// ExportOrders 订单列表导出，筛选条件与列表接口一致
func (s *ExportService) ExportOrders(ctx context.Context, filters map[string]string) (*excelize.File, string, error) {
	orders, _, err := s.poRepo.FindAll(ctx, 1, maxExportOrders, filters)
	if err != nil {
		return nil, "", fmt.Errorf("list purchase orders: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Purchase Orders"
	f.SetSheetName("Sheet1", sheet)
	styles := newSheetStyles(f)
	writeHeaders(f, sheet, 1, orderListHeaders, styles.header)

	var grand pricing.Totals
	for i, po := range orders {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), po.PONumber)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), po.VendorName)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), po.Status)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), time.Time(po.DeliveryDate).Format(DateLayout))
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), po.PaymentTerms)
		amountCell(f, sheet, fmt.Sprintf("F%d", row), po.Subtotal, styles.amount)
		amountCell(f, sheet, fmt.Sprintf("G%d", row), po.Tax, styles.amount)
		amountCell(f, sheet, fmt.Sprintf("H%d", row), po.Total, styles.amount)
		received := "No"
		if po.MaterialReceived {
			received = "Yes"
		}
		f.SetCellValue(sheet, fmt.Sprintf("I%d", row), received)
		f.SetCellValue(sheet, fmt.Sprintf("J%d", row), po.CreatedBy)
		f.SetCellValue(sheet, fmt.Sprintf("K%d", row), po.CreatedAt.Format("2006-01-02 15:04"))

		if po.Status != entity.POStatusCancelled {
			grand.Subtotal = grand.Subtotal.Add(po.Subtotal)
			grand.Tax = grand.Tax.Add(po.Tax)
			grand.Total = grand.Total.Add(po.Total)
		}
	}

	summaryRow := len(orders) + 2
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("%d orders (excluding cancelled in totals)", len(orders)))
	amountCell(f, sheet, fmt.Sprintf("F%d", summaryRow), grand.Subtotal, styles.bold)
	amountCell(f, sheet, fmt.Sprintf("G%d", summaryRow), grand.Tax, styles.bold)
	amountCell(f, sheet, fmt.Sprintf("H%d", summaryRow), grand.Total, styles.bold)

	setColWidths(f, sheet, []float64{18, 24, 10, 14, 14, 12, 12, 14, 10, 16, 18})
	return f, fmt.Sprintf("purchase_orders_%s.xlsx", time.Now().Format("20060102")), nil
}
