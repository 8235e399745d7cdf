package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/dagelec/dagelec-erp/internal/requisition"
)

// RequisitionPrinter renders a requisition sheet to PDF through Gotenberg.
type RequisitionPrinter struct {
	client   *Client
	template *template.Template
	now      func() time.Time
}

// NewRequisitionPrinter parses the print template.
func NewRequisitionPrinter(client *Client) (*RequisitionPrinter, error) {
	tmpl, err := template.New("requisition").Funcs(template.FuncMap{
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006")
		},
	}).Parse(requisitionHTML)
	if err != nil {
		return nil, fmt.Errorf("report: parse requisition template: %w", err)
	}
	return &RequisitionPrinter{client: client, template: tmpl, now: time.Now}, nil
}

type requisitionView struct {
	R       requisition.Requisition
	Lines   []requisitionLine
	Total   string
	Printed time.Time
}

type requisitionLine struct {
	Name         string
	Unit         string
	Brand        string
	Presentation string
	Quantity     string
	UnitPrice    string
	Total        string
	RequiredDate time.Time
}

// HTML renders the print sheet markup.
func (p *RequisitionPrinter) HTML(r requisition.Requisition) (string, error) {
	view := requisitionView{R: r, Total: r.Total().StringFixed(2), Printed: p.now()}
	for _, it := range r.Items {
		it = it.Priced()
		view.Lines = append(view.Lines, requisitionLine{
			Name:         it.IngredientName,
			Unit:         it.Unit,
			Brand:        it.Brand,
			Presentation: it.Presentation,
			Quantity:     it.Quantity.String(),
			UnitPrice:    it.UnitPrice.StringFixed(2),
			Total:        it.Total.StringFixed(2),
			RequiredDate: it.RequiredDate,
		})
	}
	var buf bytes.Buffer
	if err := p.template.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// PrintRequisition returns the PDF for r.
func (p *RequisitionPrinter) PrintRequisition(ctx context.Context, r requisition.Requisition) ([]byte, error) {
	html, err := p.HTML(r)
	if err != nil {
		return nil, err
	}
	return p.client.RenderHTML(ctx, html)
}

const requisitionHTML = `<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>Requisición {{.R.PK}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 11px; margin: 24px; }
h1 { font-size: 18px; margin-bottom: 4px; }
table { width: 100%; border-collapse: collapse; margin-top: 12px; }
th, td { border: 1px solid #999; padding: 4px 6px; text-align: left; }
th { background: #d9e1f2; }
.num { text-align: right; }
.meta td { border: none; padding: 2px 6px; }
.signatures td { border: none; padding-top: 48px; text-align: center; }
</style>
</head>
<body>
<h1>Requisición {{.R.PK}}</h1>
<p>Estado: <strong>{{.R.Status}}</strong> &middot; Impreso {{date .Printed}}</p>
<table class="meta">
<tr><td>Ciudad</td><td>{{.R.City}}</td><td>Fecha</td><td>{{date .R.CreatedAt}}</td></tr>
<tr><td>Proceso</td><td>{{.R.Process}}</td><td>Centro de costo</td><td>{{.R.CostCenter}}</td></tr>
<tr><td>Lugar de entrega</td><td colspan="3">{{.R.DeliveryPlace}}</td></tr>
<tr><td>Observaciones</td><td colspan="3">{{.R.Observations}}</td></tr>
</table>
<table>
<thead><tr><th>Insumo</th><th>Unidad</th><th>Marca</th><th>Presentación</th><th class="num">Cantidad</th><th class="num">Precio unitario</th><th class="num">Total</th><th>Fecha requerida</th></tr></thead>
<tbody>
{{range .Lines}}<tr><td>{{.Name}}</td><td>{{.Unit}}</td><td>{{.Brand}}</td><td>{{.Presentation}}</td><td class="num">{{.Quantity}}</td><td class="num">{{.UnitPrice}}</td><td class="num">{{.Total}}</td><td>{{date .RequiredDate}}</td></tr>
{{else}}<tr><td colspan="8">Sin ítems</td></tr>
{{end}}</tbody>
<tfoot><tr><th colspan="6">Total</th><th class="num">{{.Total}}</th><th></th></tr></tfoot>
</table>
<table class="signatures">
<tr><td>{{.R.Checker1}}<br>Revisor</td>{{if .R.Checker2}}<td>{{.R.Checker2}}<br>Revisor</td>{{end}}<td>{{.R.Approver}}<br>Aprobador</td></tr>
</table>
</body>
</html>
`
