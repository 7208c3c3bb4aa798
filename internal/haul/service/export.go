package service

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

var orderBookHeaders = []string{
	"Order ID", "Tab", "Customer", "Email", "Telegram",
	"Product Code", "Supplier", "Type", "Qty",
	"Unit Price USD", "Line Total USD", "Rate", "Line Total PHP",
	"Status", "Payment", "Created At",
}

// ExportOrderBook renders the order book as a spreadsheet, one row per line
// item with the order header repeated. Cancelled orders are included so the
// sheet matches the audit trail.
func (s *OrderService) ExportOrderBook(ctx context.Context, tabName string) (*excelize.File, error) {
	orders, _, err := s.orders.FindAll(ctx, tabName, 1, 10000)
	if err != nil {
		return nil, ExternalUnavailable("order book is unavailable", err)
	}

	f := excelize.NewFile()
	sheet := "Orders"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	for i, h := range orderBookHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	f.SetColWidth(sheet, "A", "A", 26)
	f.SetColWidth(sheet, "B", "E", 18)
	f.SetColWidth(sheet, "F", "G", 16)

	row := 2
	for i := range orders {
		order := &orders[i]
		for j := range order.Items {
			item := &order.Items[j]
			values := []interface{}{
				order.ID, order.TabName, order.CustomerName, order.Email, order.Telegram,
				item.ProductCode, item.Supplier, item.OrderType, item.Quantity,
				item.UnitPriceUSD, item.LineTotalUSD, item.ExchangeRate, item.LineTotalPHP,
				order.Status, order.PaymentStatus, order.CreatedAt.Format("2006-01-02 15:04:05"),
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				f.SetCellValue(sheet, cell, v)
			}
			row++
		}
	}

	return f, nil
}

// SupplierTally sums ordered quantities per supplier and product for the
// consolidated purchase run.
type SupplierTally struct {
	Supplier    string  `json:"supplier"`
	ProductCode string  `json:"product_code"`
	ProductName string  `json:"product_name"`
	OrderType   string  `json:"order_type"`
	Quantity    int     `json:"qty"`
	TotalUSD    float64 `json:"total_usd"`
}

// SupplierSummary aggregates active line items by supplier for purchasing.
func (s *OrderService) SupplierSummary(ctx context.Context) ([]SupplierTally, error) {
	items, err := s.orders.ActiveItems(ctx)
	if err != nil {
		return nil, ExternalUnavailable("order book is unavailable", err)
	}

	index := make(map[string]int)
	var out []SupplierTally
	for _, item := range items {
		key := fmt.Sprintf("%s/%s/%s", item.Supplier, item.ProductCode, item.OrderType)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, SupplierTally{
				Supplier:    item.Supplier,
				ProductCode: item.ProductCode,
				ProductName: item.ProductName,
				OrderType:   item.OrderType,
			})
		}
		out[i].Quantity += item.Quantity
		out[i].TotalUSD += item.LineTotalUSD
	}
	return out, nil
}
