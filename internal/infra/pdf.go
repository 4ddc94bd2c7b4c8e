package infra

// pdf.go: exchange ticket on 74mm thermal-receipt paper.
//   - store name header, exchange id and timestamp
//   - one row per settlement line (returned / exchanged / added)
//   - returned value, new cart total, difference
//   - what happens next: charge, credit note or nothing
//
// The file is written to storagePath/cambio_{id}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

var etiquetasAccion = map[string]string{
	"DEVOLVER": "Devuelve",
	"CAMBIAR":  "Cambia",
	"AGREGAR":  "Agrega",
}

// GenerarTicketCambio renders the exchange ticket and returns the file path.
func GenerarTicketCambio(c *model.Cambio, tienda, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("cambio_%s.pdf", c.ID))

	alto := 80.0 + 5*float64(len(c.Lineas))
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: alto},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, tr(tienda), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Comprobante de Cambio", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 7)
	ref := c.ID.String()[:8]
	if c.RemoteID != nil && *c.RemoteID != "" {
		ref = *c.RemoteID
	}
	pdf.CellFormat(contentW, 4, tr("Cambio N° "+ref), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, tr("Venta original: "+c.VentaOriginalID), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, c.CreatedAt.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(1)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	col1 := contentW * 0.30
	col2 := contentW * 0.40
	col3 := contentW * 0.30

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, tr("Acción"), "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Producto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 5, "Cant", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, l := range c.Lineas {
		ref := ""
		switch {
		case l.ProductoNuevoID != nil:
			ref = *l.ProductoNuevoID
		case l.LineaVentaID != nil:
			ref = "linea " + *l.LineaVentaID
		}
		if len(ref) > 18 {
			ref = ref[:17] + "…"
		}
		pdf.CellFormat(col1, 5, etiquetasAccion[l.Accion], "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, tr(ref), "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, fmt.Sprintf("x%d", l.Cantidad), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	fila := func(label string, monto decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 8)
		pdf.CellFormat(col1+col2, 5, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, "$"+monto.StringFixed(2), "", 1, "R", false, 0, "")
	}
	fila("Devuelto:", c.MontoDevuelto, false)
	fila("Nuevo carrito:", c.TotalCarrito, false)

	switch c.Resultado {
	case "a_favor_tienda":
		fila("A cobrar:", c.MontoACobrar, true)
	case "a_favor_cliente":
		fila("Nota de crédito:", c.Diferencia.Neg(), true)
	default:
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(contentW, 5, "Cambio sin diferencia", "", 1, "L", false, 0, "")
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, tr("¡Gracias por su visita!"), "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
