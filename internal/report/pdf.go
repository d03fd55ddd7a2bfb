package report

import (
	"bytes"
	"fmt"
	"time"

	"contahogar/internal/core"

	"github.com/go-pdf/fpdf"
)

// ColumnWidths are the table column widths in millimetres:
// Persona, Arriendo, Servicios, Internet, Aseo, Total.
var ColumnWidths = [6]float64{55, 35, 35, 35, 35, 40}

// ColumnTitles label the table header.
var ColumnTitles = [6]string{"Persona", "Arriendo", "Servicios", "Internet", "Aseo", "Total"}

const (
	totalsLabel = "TOTALES GENERALES"
	noteText    = "Nota: Este reporte muestra el desglose detallado de los gastos compartidos. " +
		"Los valores incluyen arriendo base más servicios adicionales."
	rowHeight  = 10.0
	fontFamily = "Arial"
)

type rgb struct{ r, g, b int }

var (
	headerFill = rgb{79, 129, 189}
	nameFill   = rgb{240, 240, 240}
	white      = rgb{255, 255, 255}
	black      = rgb{0, 0, 0}
)

// Filename returns the download name for a report generated at now.
func Filename(now time.Time) string {
	return "reporte_contahogar_" + now.Format("20060102") + ".pdf"
}

// GeneratePDF renders the ledger as a tabular report. The same ledger and
// now always produce identical bytes. On failure it returns an error
// matching ErrReportGeneration and no payload.
func GeneratePDF(l *core.Ledger, now time.Time) ([]byte, error) {
	return generatePDF(l, now, pdfOptions{compress: true, font: fontFamily})
}

type pdfOptions struct {
	compress bool
	font     string
}

func generatePDF(l *core.Ledger, now time.Time, opts pdfOptions) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, wrap(ErrReportGeneration, fmt.Errorf("panic: %v", r))
		}
	}()

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetCompression(opts.compress)
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle("Reporte ContaHogar", true)

	// Core fonts are cp1252; translate UTF-8 text before drawing it.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetHeaderFunc(func() {
		pdf.SetFont(opts.font, "B", 16)
		pdf.CellFormat(0, 10, "Reporte ContaHogar", "", 1, "C", false, 0, "")
		pdf.Ln(10)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(opts.font, "I", 8)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("Página %d", pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	pdf.SetFont(opts.font, "B", 16)
	pdf.CellFormat(0, 10, "Reporte Detallado de Gastos", "", 1, "C", false, 0, "")
	pdf.Ln(8)
	pdf.SetFont(opts.font, "I", 10)
	pdf.CellFormat(0, 6, "Generado el: "+now.Format("02/01/2006 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(12)

	// Header row
	pdf.SetFont(opts.font, "B", 11)
	setFill(pdf, headerFill)
	setText(pdf, white)
	for i, title := range ColumnTitles {
		pdf.CellFormat(ColumnWidths[i], rowHeight, title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	// Data rows
	pdf.SetFont(opts.font, "", 10)
	setText(pdf, black)
	for _, e := range l.Entries() {
		setFill(pdf, nameFill)
		pdf.CellFormat(ColumnWidths[0], rowHeight, tr(e.Participant.Name), "1", 0, "L", true, 0, "")
		setFill(pdf, white)
		r := e.Record
		for i, v := range []int64{r.Base, r.Utilities, r.Internet, r.Cleaning, r.Total()} {
			pdf.CellFormat(ColumnWidths[i+1], rowHeight, core.FormatCOP(v), "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}

	// Totals row
	t := core.ComputeTotals(l)
	pdf.SetFont(opts.font, "B", 11)
	pdf.Ln(5)
	setFill(pdf, headerFill)
	setText(pdf, white)
	pdf.CellFormat(ColumnWidths[0], rowHeight, totalsLabel, "1", 0, "L", true, 0, "")
	for i, v := range []int64{t.Base, t.Utilities, t.Internet, t.Cleaning, t.Total} {
		ln := 0
		if i == 4 {
			ln = 1
		}
		pdf.CellFormat(ColumnWidths[i+1], rowHeight, core.FormatCOP(v), "1", ln, "R", true, 0, "")
	}

	// Note
	pdf.Ln(10)
	pdf.SetFont(opts.font, "I", 9)
	setText(pdf, black)
	pdf.MultiCell(0, 5, tr(noteText), "", "L", false)

	if err := pdf.Error(); err != nil {
		return nil, wrap(ErrReportGeneration, err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, wrap(ErrReportGeneration, err)
	}
	return buf.Bytes(), nil
}

func setFill(pdf *fpdf.Fpdf, c rgb) { pdf.SetFillColor(c.r, c.g, c.b) }

func setText(pdf *fpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }
