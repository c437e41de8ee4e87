package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"

	"peopleconnect/internal/submission"

	"github.com/fogleman/gg"
)

// Styling constants, rendered at 2x scale so the image stays sharp when
// Telegram downsizes it.
const (
	cellPaddingX  = 20
	cellPaddingY  = 16
	minRowHeight  = 64
	headerHeight  = 80
	fontSize      = 24
	headerFontSz  = 24
	titleFontSz   = 36
	titlePadding  = 110
	footerPadding = 80
	minColWidth   = 100
	labelColWidth = 240.0
	valueColWidth = 760.0
	maxAddrWidth  = 360.0
	maxNameWidth  = 320.0
)

// Light theme colors
var (
	bgColor         = color.RGBA{R: 245, G: 247, B: 250, A: 255} // Light gray bg
	titleColor      = color.RGBA{R: 30, G: 41, B: 59, A: 255}    // Dark slate
	headerBgColor   = color.RGBA{R: 37, G: 99, B: 235, A: 255}   // Blue
	headerTextColor = color.RGBA{R: 255, G: 255, B: 255, A: 255} // White
	rowEvenColor    = color.RGBA{R: 255, G: 255, B: 255, A: 255} // White
	rowOddColor     = color.RGBA{R: 241, G: 245, B: 249, A: 255} // Subtle blue-gray
	textColor       = color.RGBA{R: 30, G: 41, B: 59, A: 255}    // Dark slate
	borderColor     = color.RGBA{R: 203, G: 213, B: 225, A: 255} // Slate border
	footerColor     = color.RGBA{R: 100, G: 116, B: 139, A: 255} // Muted slate
)

var statusColors = map[submission.Status]color.RGBA{
	submission.StatusNew:        {R: 37, G: 99, B: 235, A: 255},
	submission.StatusInProgress: {R: 217, G: 119, B: 6, A: 255},
	submission.StatusResolved:   {R: 22, G: 163, B: 74, A: 255},
	submission.StatusRejected:   {R: 220, G: 38, B: 38, A: 255},
}

// RecordCard renders one submission as a two-column label/value card.
func (d *Documents) RecordCard(s submission.Submission) ([]byte, error) {
	fields := RecordFields(s)

	dc := gg.NewContext(1, 1)
	if err := loadFace(dc, false, fontSize); err != nil {
		return nil, err
	}
	_, lineH := dc.MeasureString("Ay")
	lineSpacing := lineH + 4

	wrapped := make([][]string, len(fields))
	heights := make([]float64, len(fields))
	var totalRows float64
	for i, f := range fields {
		wrapped[i] = wrapText(dc, f.Value, valueColWidth-cellPaddingX*2)
		h := float64(len(wrapped[i]))*lineSpacing + cellPaddingY*2
		if h < minRowHeight {
			h = minRowHeight
		}
		heights[i] = h
		totalRows += h
	}

	tableW := labelColWidth + valueColWidth
	canvasW := tableW + 80
	canvasH := titlePadding + totalRows + footerPadding

	dc = gg.NewContext(int(canvasW), int(canvasH))
	dc.SetColor(bgColor)
	dc.Clear()

	// Title with a status stripe
	if err := loadFace(dc, true, titleFontSz); err != nil {
		return nil, err
	}
	dc.SetColor(titleColor)
	dc.DrawStringAnchored(fmt.Sprintf("%s  #%d", d.Title, s.ID), canvasW/2, titlePadding/2-8, 0.5, 0.5)
	if c, ok := statusColors[s.Status]; ok {
		dc.SetColor(c)
		dc.DrawRoundedRectangle(40, titlePadding-24, tableW, 10, 5)
		dc.Fill()
	}

	tableX := 40.0
	curY := float64(titlePadding)

	for i, f := range fields {
		rh := heights[i]
		if i%2 == 0 {
			dc.SetColor(rowEvenColor)
		} else {
			dc.SetColor(rowOddColor)
		}
		dc.DrawRectangle(tableX, curY, tableW, rh)
		dc.Fill()

		dc.SetColor(borderColor)
		dc.SetLineWidth(0.5)
		dc.DrawLine(tableX, curY+rh, tableX+tableW, curY+rh)
		dc.Stroke()

		if err := loadFace(dc, true, headerFontSz); err != nil {
			return nil, err
		}
		dc.SetColor(textColor)
		dc.DrawStringAnchored(f.Label, tableX+cellPaddingX, curY+rh/2, 0, 0.5)

		if err := loadFace(dc, false, fontSize); err != nil {
			return nil, err
		}
		startY := curY + (rh-float64(len(wrapped[i]))*lineSpacing)/2 + lineH
		for lineIdx, line := range wrapped[i] {
			dc.DrawString(line, tableX+labelColWidth+cellPaddingX, startY+float64(lineIdx)*lineSpacing)
		}
		curY += rh
	}

	dc.SetColor(borderColor)
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(tableX, titlePadding, tableW, totalRows, 16)
	dc.Stroke()
	dc.DrawLine(tableX+labelColWidth, titlePadding, tableX+labelColWidth, titlePadding+totalRows)
	dc.Stroke()

	if err := loadFace(dc, false, 22); err != nil {
		return nil, err
	}
	dc.SetColor(footerColor)
	dc.DrawStringAnchored(d.Credit, canvasW/2, canvasH-30, 0.5, 0.5)

	return encodeImage(dc.Image())
}

// column definition for the summary table.
type column struct {
	header   string
	field    func(s *submission.Submission) string
	maxWidth float64 // 0 means auto
}

var columns = []column{
	{"ID", func(s *submission.Submission) string { return strconv.FormatInt(s.ID, 10) }, 0},
	{"Type", func(s *submission.Submission) string { return string(s.Type) }, 0},
	{"Department", func(s *submission.Submission) string { return s.Department }, 0},
	{"Name", func(s *submission.Submission) string { return s.Name }, maxNameWidth},
	{"Mobile", func(s *submission.Submission) string { return s.Mobile }, 0},
	{"Address", func(s *submission.Submission) string { return s.Address }, maxAddrWidth},
	{"Status", func(s *submission.Submission) string { return string(s.Status) }, 0},
	{"Created", func(s *submission.Submission) string { return shortDate(s.CreatedAt) }, 0},
}

// SummaryTable renders rows as a table image, in the order given.
func (d *Documents) SummaryTable(rows []submission.Submission, title string) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	// ---- Step 1: Measure column widths ----
	tmpDC := gg.NewContext(1, 1)
	if err := loadFace(tmpDC, true, headerFontSz); err != nil {
		return nil, fmt.Errorf("failed to load bold font: %w", err)
	}

	colWidths := make([]float64, len(columns))
	for i, col := range columns {
		w, _ := tmpDC.MeasureString(col.header)
		colWidths[i] = w + cellPaddingX*2 + 4
		if colWidths[i] < float64(minColWidth) {
			colWidths[i] = float64(minColWidth)
		}
	}

	if err := loadFace(tmpDC, false, fontSize); err != nil {
		return nil, fmt.Errorf("failed to load regular font: %w", err)
	}
	for i := range rows {
		for c, col := range columns {
			w, _ := tmpDC.MeasureString(col.field(&rows[i]))
			if needed := w + cellPaddingX*2 + 4; needed > colWidths[c] {
				colWidths[c] = needed
			}
		}
	}
	for i, col := range columns {
		if col.maxWidth > 0 && colWidths[i] > col.maxWidth {
			colWidths[i] = col.maxWidth
		}
	}

	_, lineH := tmpDC.MeasureString("Ay")
	lineSpacing := lineH + 4
	rowHeights := make([]float64, len(rows))
	for r := range rows {
		maxLines := 1
		for c, col := range columns {
			if n := len(wrapText(tmpDC, col.field(&rows[r]), colWidths[c]-cellPaddingX*2)); n > maxLines {
				maxLines = n
			}
		}
		rowHeights[r] = float64(maxLines)*lineSpacing + cellPaddingY*2
		if rowHeights[r] < minRowHeight {
			rowHeights[r] = minRowHeight
		}
	}

	// ---- Step 2: Calculate canvas size ----
	var totalWidth, totalRowHeight float64
	for _, w := range colWidths {
		totalWidth += w
	}
	for _, h := range rowHeights {
		totalRowHeight += h
	}
	canvasWidth := totalWidth + 80
	canvasHeight := float64(titlePadding) + headerHeight + totalRowHeight + footerPadding

	// ---- Step 3: Draw ----
	dc := gg.NewContext(int(canvasWidth), int(canvasHeight))
	dc.SetColor(bgColor)
	dc.Clear()

	if err := loadFace(dc, true, titleFontSz); err != nil {
		return nil, err
	}
	dc.SetColor(titleColor)
	dc.DrawStringAnchored(title, canvasWidth/2, float64(titlePadding)/2+2, 0.5, 0.5)

	tableX := 40.0
	tableY := float64(titlePadding)

	dc.SetColor(headerBgColor)
	dc.DrawRoundedRectangle(tableX, tableY, totalWidth, headerHeight, 16)
	dc.Fill()

	if err := loadFace(dc, true, headerFontSz); err != nil {
		return nil, err
	}
	dc.SetColor(headerTextColor)
	x := tableX
	for i, col := range columns {
		dc.DrawStringAnchored(col.header, x+colWidths[i]/2, tableY+headerHeight/2, 0.5, 0.5)
		x += colWidths[i]
	}

	if err := loadFace(dc, false, fontSize); err != nil {
		return nil, err
	}
	curY := tableY + headerHeight
	for r := range rows {
		rh := rowHeights[r]
		if r%2 == 0 {
			dc.SetColor(rowEvenColor)
		} else {
			dc.SetColor(rowOddColor)
		}
		dc.DrawRectangle(tableX, curY, totalWidth, rh)
		dc.Fill()

		dc.SetColor(borderColor)
		dc.SetLineWidth(0.5)
		dc.DrawLine(tableX, curY+rh, tableX+totalWidth, curY+rh)
		dc.Stroke()

		dc.SetColor(textColor)
		x := tableX
		for c, col := range columns {
			lines := wrapText(dc, col.field(&rows[r]), colWidths[c]-cellPaddingX*2)
			startY := curY + (rh-float64(len(lines))*lineSpacing)/2 + lineH
			for i, line := range lines {
				dc.DrawString(line, x+cellPaddingX, startY+float64(i)*lineSpacing)
			}
			x += colWidths[c]
		}
		curY += rh
	}

	dc.SetColor(borderColor)
	dc.SetLineWidth(1)
	totalTableH := headerHeight + totalRowHeight
	dc.DrawRoundedRectangle(tableX, tableY, totalWidth, totalTableH, 16)
	dc.Stroke()

	dc.SetLineWidth(0.5)
	x = tableX
	for i := 0; i < len(columns)-1; i++ {
		x += colWidths[i]
		dc.DrawLine(x, tableY+headerHeight, x, tableY+totalTableH)
		dc.Stroke()
	}

	if err := loadFace(dc, false, 22); err != nil {
		return nil, err
	}
	dc.SetColor(footerColor)
	footer := fmt.Sprintf("Total: %d  •  %s", len(rows), d.Credit)
	dc.DrawStringAnchored(footer, canvasWidth/2, canvasHeight-30, 0.5, 0.5)

	return encodeImage(dc.Image())
}

// shortDate trims an ISO timestamp to minutes.
func shortDate(ts string) string {
	if len(ts) >= 16 {
		return ts[:10] + " " + ts[11:16]
	}
	return ts
}

func encodeImage(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
