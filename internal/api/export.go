package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tealeg/xlsx"

	"kioskboard/internal/kitchen"
)

var historyHeaders = []string{
	"Order Number", "Customer", "Phone", "Order Time", "Status",
	"Arriving", "Products", "Subtotal", "Total", "Notes",
}

// historyWorkbook lays the history tab out as a single sheet.
func historyWorkbook(view kitchen.BoardView) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("History")
	if err != nil {
		return nil, err
	}

	header := sheet.AddRow()
	for _, h := range historyHeaders {
		header.AddCell().SetValue(h)
	}

	for _, o := range view.Orders {
		products := make([]string, 0, len(o.Items))
		for _, it := range o.Items {
			products = append(products, fmt.Sprintf("%s x%d", it.ProductName, it.Quantity))
		}
		arriving := "No"
		if o.Arriving {
			arriving = "Yes"
		}

		row := sheet.AddRow()
		row.AddCell().SetValue(o.OrderNumber)
		row.AddCell().SetValue(o.Name)
		row.AddCell().SetValue(o.Phone)
		row.AddCell().SetValue(o.OrderTime)
		row.AddCell().SetValue(string(o.Status))
		row.AddCell().SetValue(arriving)
		row.AddCell().SetValue(strings.Join(products, "; "))
		row.AddCell().SetValue(o.Subtotal)
		row.AddCell().SetValue(o.Total)
		row.AddCell().SetValue(o.Notes)
	}
	return file, nil
}

func (s *Server) exportHistory(w http.ResponseWriter, r *http.Request) {
	file, err := historyWorkbook(s.board.View(kitchen.TabHistory))
	if err != nil {
		s.log.WithError(err).Error("failed to create Excel sheet")
		http.Error(w, "failed to create Excel sheet", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		s.log.WithError(err).Error("failed to write Excel file")
		http.Error(w, "failed to write Excel file", http.StatusInternalServerError)
		return
	}

	name := "order-history-" + time.Now().Format("20060102-1504") + ".xlsx"
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Transfer-Encoding", "binary")
	w.Header().Set("Expires", "0")
	buf.WriteTo(w)
}
