package requisition

import (
	"github.com/dagelec/dagelec-erp/internal/export"
)

// ExportTable lays out requisitions for export.
func ExportTable(rows []Requisition) export.Table {
	t := export.Table{
		Title: "Requisiciones",
		Columns: []export.Column{
			{Title: "Código", Width: 18},
			{Title: "Fecha", Width: 12},
			{Title: "Ciudad", Width: 14},
			{Title: "Proceso", Width: 16},
			{Title: "Centro de costo", Width: 14},
			{Title: "Lugar de entrega", Width: 20},
			{Title: "Revisor 1", Width: 16},
			{Title: "Revisor 2", Width: 16},
			{Title: "Aprobador", Width: 16},
			{Title: "Estado", Width: 12},
			{Title: "Observaciones", Width: 30},
		},
		Rows: make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.PK,
			r.CreatedAt.Format("2006-01-02"),
			r.City,
			r.Process,
			r.CostCenter,
			r.DeliveryPlace,
			r.Checker1,
			r.Checker2,
			r.Approver,
			string(r.Status),
			r.Observations,
		})
	}
	return t
}

// ItemsTable lays out the items of one requisition for export.
func ItemsTable(r Requisition) export.Table {
	t := export.Table{
		Title: "Requisición " + r.PK,
		Columns: []export.Column{
			{Title: "Insumo", Width: 22},
			{Title: "Unidad", Width: 8},
			{Title: "Marca", Width: 14},
			{Title: "Presentación", Width: 14},
			{Title: "Costo bruto", Width: 12},
			{Title: "Cantidad", Width: 10},
			{Title: "Precio unitario", Width: 12},
			{Title: "Total", Width: 12},
			{Title: "Fecha requerida", Width: 12},
		},
	}
	for _, it := range r.Items {
		it = it.Priced()
		t.Rows = append(t.Rows, []string{
			it.IngredientName,
			it.Unit,
			it.Brand,
			it.Presentation,
			it.GrossCost.StringFixed(2),
			it.Quantity.String(),
			it.UnitPrice.StringFixed(2),
			it.Total.StringFixed(2),
			it.RequiredDate.Format("2006-01-02"),
		})
	}
	return t
}
