package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"contahogar/internal/core"
)

var reportTime = time.Date(2024, 3, 7, 18, 5, 0, 0, time.UTC)

func TestGeneratePDFIsDeterministic(t *testing.T) {
	l := core.NewLedger(core.DefaultRoster())

	first, err := GeneratePDF(l, reportTime)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := GeneratePDF(l.Clone(), reportTime)
	if err != nil {
		t.Fatalf("generate again: %v", err)
	}
	if !bytes.HasPrefix(first, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", first[:min(len(first), 16)])
	}
	if !bytes.Equal(first, second) {
		t.Fatal("same ledger and time produced different bytes")
	}

	later, err := GeneratePDF(l, reportTime.Add(time.Hour))
	if err != nil {
		t.Fatalf("generate later: %v", err)
	}
	if bytes.Equal(first, later) {
		t.Fatal("expected a different timestamp to change the output")
	}
}

func TestGeneratePDFContents(t *testing.T) {
	l, err := core.UpdateCharge(core.NewLedger(core.DefaultRoster()), "Daniel Berrio", core.FieldInternet, 1234567)
	if err != nil {
		t.Fatal(err)
	}
	out, err := generatePDF(l, reportTime, pdfOptions{font: fontFamily})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	body := string(out)

	for _, want := range []string{
		"Reporte ContaHogar",
		"Reporte Detallado de Gastos",
		"Generado el: 07/03/2024 18:05",
		"Persona", "Arriendo", "Servicios", "Internet", "Aseo", "Total",
		"Daniel Berrio", "Henner Heredia",
		"$443.000",
		"$1.234.567",
		"$1.677.567",
		totalsLabel,
		"$1.648.000",
		"$2.882.567",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("PDF does not contain %q", want)
		}
	}

	// Data rows precede the totals row.
	if strings.Index(body, "Henner Heredia") > strings.Index(body, totalsLabel) {
		t.Error("totals row rendered before the data rows")
	}
}

func TestGeneratePDFEmptyLedger(t *testing.T) {
	out, err := generatePDF(core.NewLedger(nil), reportTime, pdfOptions{font: fontFamily})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(string(out), totalsLabel) || !strings.Contains(string(out), "$0") {
		t.Fatal("expected a zero totals row")
	}
}

func TestColumnLayout(t *testing.T) {
	var sum float64
	for _, w := range ColumnWidths {
		sum += w
	}
	if sum != 235 {
		t.Fatalf("expected widths to sum to 235mm, got %v", sum)
	}
	if ColumnWidths[0] != 55 || ColumnWidths[5] != 40 {
		t.Fatalf("unexpected widths %v", ColumnWidths)
	}
	for i, title := range ColumnTitles {
		if Header[i] != title {
			t.Errorf("column %d: PDF label %q differs from export header %q", i, title, Header[i])
		}
	}
}

func TestFilename(t *testing.T) {
	if got := Filename(reportTime); got != "reporte_contahogar_20240307.pdf" {
		t.Fatalf("unexpected filename %q", got)
	}
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("font missing")
	err := wrap(ErrReportGeneration, cause)
	if !errors.Is(err, ErrReportGeneration) || !errors.Is(err, cause) {
		t.Fatalf("expected kind and cause to match, got %v", err)
	}
	if errors.Is(err, ErrExportWrite) {
		t.Fatal("unexpected kind match")
	}
	if got := err.Error(); got != "report generation failed: font missing" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestGeneratePDFFailureReturnsNoBytes(t *testing.T) {
	l := core.NewLedger(core.DefaultRoster())

	out, err := generatePDF(l, reportTime, pdfOptions{compress: true, font: "NoSuchFont"})
	if out != nil {
		t.Fatalf("expected no payload, got %d bytes", len(out))
	}
	if !errors.Is(err, ErrReportGeneration) {
		t.Fatalf("expected ErrReportGeneration, got %v", err)
	}
	if !strings.Contains(err.Error(), "undefined font") {
		t.Fatalf("expected the fpdf cause in %q", err.Error())
	}
}
