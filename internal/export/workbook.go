// backend-go/internal/export/workbook.go
package export

import (
	"bytes"
	"fmt"

	"github.com/dvalenciar/reorden-py/backend-go/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Sheet names in the export artifact.
const (
	SheetSummary   = "Resumen"
	SheetProjected = "Inventario_Proyectado"
	SheetPurchases = "Compras_Simuladas"
)

const dateFormat = "2006-01-02"

// BuildWorkbook assembles the on-demand export artifact: the reorder
// summary, the full projected dataset and the session's purchase
// ledger, one sheet each.
func BuildWorkbook(summary []domain.SummaryRow, projected []domain.ProjectedRow, purchases []domain.PurchaseEvent) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return nil, fmt.Errorf("failed to rename summary sheet: %w", err)
	}
	if err := writeSummarySheet(f, summary); err != nil {
		return nil, err
	}
	if err := writeProjectedSheet(f, projected); err != nil {
		return nil, err
	}
	if err := writePurchasesSheet(f, purchases); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf, nil
}

func writeSummarySheet(f *excelize.File, summary []domain.SummaryRow) error {
	header := []interface{}{
		"Bodega", "Producto", "Inventario_Actual", "Stock_Seguridad", "Lead_Time",
		"Fecha_Siguiente_Compra", "Cantidad_Sugerida_Pedir", "Dias_Hasta_Punto_Reorden", "Estado",
	}
	rows := make([][]interface{}, 0, len(summary))
	for _, s := range summary {
		var nextDate, days interface{}
		if s.NextReorderDate != nil {
			nextDate = s.NextReorderDate.Format(dateFormat)
		}
		if s.DaysUntilReorder != nil {
			days = *s.DaysUntilReorder
		}
		rows = append(rows, []interface{}{
			s.Warehouse, s.Product, s.OnHand, s.SafetyStock, s.LeadTimeDays,
			nextDate, s.SuggestedQty, days, s.Status,
		})
	}
	return writeSheet(f, SheetSummary, header, rows)
}

func writeProjectedSheet(f *excelize.File, projected []domain.ProjectedRow) error {
	header := []interface{}{
		"Bodega", "Producto", "Fecha", "Pronostico_Ventas", "Inventario_Actual",
		"Stock_Seguridad", "Lead_Time", "Inventario_Proyectado", "Punto_Reorden", "Alerta",
	}
	rows := make([][]interface{}, 0, len(projected))
	for _, r := range projected {
		rows = append(rows, []interface{}{
			r.Warehouse, r.Product, r.Date.Format(dateFormat), r.ForecastQty, r.OnHand,
			r.SafetyStock, r.LeadTimeDays, r.Projected, r.ReorderPoint, r.BelowReorder,
		})
	}
	return writeSheet(f, SheetProjected, header, rows)
}

func writePurchasesSheet(f *excelize.File, purchases []domain.PurchaseEvent) error {
	header := []interface{}{"Bodega", "Producto", "Fecha_Compra", "Fecha_Entrega", "Cantidad"}
	rows := make([][]interface{}, 0, len(purchases))
	for _, e := range purchases {
		rows = append(rows, []interface{}{
			e.Warehouse, e.Product, e.OrderDate.Format(dateFormat), e.DeliveryDate.Format(dateFormat), e.Quantity,
		})
	}
	return writeSheet(f, SheetPurchases, header, rows)
}

func writeSheet(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}) error {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return fmt.Errorf("failed to look up sheet %s: %w", sheet, err)
	}
	if idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
	}

	addr, err := excelize.CoordinatesToCellName(1, 1)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, addr, &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}

	for i := range rows {
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, addr, &rows[i]); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
