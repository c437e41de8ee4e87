package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"os"
	"strings"

	"peopleconnect/internal/submission"

	"github.com/go-pdf/fpdf"
)

// PDFFileName returns the download name for a record PDF.
func PDFFileName(id int64) string {
	return fmt.Sprintf("submission_%d.pdf", id)
}

// PNGFileName returns the download name for a record card.
func PNGFileName(id int64) string {
	return fmt.Sprintf("submission_%d.png", id)
}

// HTMLPrinter turns an HTML document into PDF bytes.
type HTMLPrinter interface {
	PrintPDF(ctx context.Context, html string) ([]byte, error)
}

// Documents renders single-record documents with a fixed title and credit.
type Documents struct {
	Title    string
	Credit   string
	FontPath string

	// Printer, when set, renders PDFs through the HTML record page instead
	// of fpdf.
	Printer HTMLPrinter
}

// RecordPDF renders one submission as a PDF: title, credit line, then the
// labelled fields.
func (d *Documents) RecordPDF(ctx context.Context, s submission.Submission) ([]byte, error) {
	if d.Printer != nil {
		html, err := d.RecordHTML(s)
		if err != nil {
			return nil, err
		}
		return d.Printer.PrintPDF(ctx, html)
	}
	return d.fpdfRecord(s)
}

func (d *Documents) fpdfRecord(s submission.Submission) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(d.Title, true)
	pdf.SetAuthor(d.Credit, true)

	family, tr := d.setupFont(pdf)

	pdf.AddPage()
	pdf.SetFont(family, "B", 16)
	pdf.CellFormat(0, 10, tr(d.Title), "", 1, "L", false, 0, "")
	pdf.SetFont(family, "", 12)
	pdf.CellFormat(0, 8, tr(d.Credit), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, f := range RecordFields(s) {
		pdf.SetFont(family, "B", 12)
		pdf.CellFormat(35, 8, tr(f.Label+":"), "", 0, "L", false, 0, "")
		pdf.SetFont(family, "", 12)
		pdf.MultiCell(0, 8, tr(f.Value), "", "L", false)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// setupFont registers a UTF-8 TrueType font when one is available. Without
// one the core Helvetica font is used and text is translated to cp1252;
// characters outside it are lost.
func (d *Documents) setupFont(pdf *fpdf.Fpdf) (string, func(string) string) {
	regular := d.FontPath
	if regular == "" {
		regular = findFont(false)
	}
	if regular != "" && fileExists(regular) {
		bold := findFont(true)
		if d.FontPath != "" || bold == "" {
			bold = regular
		}
		pdf.AddUTF8Font("body", "", regular)
		pdf.AddUTF8Font("body", "B", bold)
		if pdf.Ok() {
			return "body", func(s string) string { return s }
		}
		pdf.ClearError()
	}
	return "Helvetica", pdf.UnicodeTranslatorFromDescriptor("")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var recordTemplate = template.Must(template.New("record").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title>
<style>
body { font-family: "DejaVu Sans", Arial, sans-serif; margin: 32px; color: #1e293b; }
h1 { font-size: 22px; margin: 0 0 4px; }
.credit { color: #64748b; margin-bottom: 16px; }
table { border-collapse: collapse; width: 100%; }
th { text-align: left; width: 130px; vertical-align: top; padding: 6px 8px; }
td { padding: 6px 8px; white-space: pre-wrap; word-break: break-word; }
tr:nth-child(odd) { background: #f1f5f9; }
td[dir=auto] { unicode-bidi: plaintext; }
</style></head>
<body>
<h1>{{.Title}}</h1>
<div class="credit">{{.Credit}}</div>
<table>
{{range .Fields}}<tr><th>{{.Label}}:</th><td dir="auto">{{.Value}}</td></tr>
{{end}}</table>
</body></html>`))

// RecordHTML renders the printable HTML page of one submission.
func (d *Documents) RecordHTML(s submission.Submission) (string, error) {
	var buf strings.Builder
	err := recordTemplate.Execute(&buf, struct {
		Title  string
		Credit string
		Fields []Field
	}{d.Title, d.Credit, RecordFields(s)})
	if err != nil {
		return "", fmt.Errorf("render record html: %w", err)
	}
	return buf.String(), nil
}

// ErrNoRows is returned when an image export has nothing to draw.
var ErrNoRows = errors.New("no submissions to render")
