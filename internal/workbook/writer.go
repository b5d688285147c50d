package workbook

import (
	"fmt"

	"github.com/MarkoPoloResearchLab/collections/pkg/collection"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	newFileSheetName = "Sheet1"
	moneyFormat      = "#,##0.00"
	dateFormat       = "dd/mm/yyyy"
	headerFill       = "D9D9D9"
	editableFill     = "FFF2CC"
	negativeFont     = "9C0006"
	negativeFill     = "FFC7CE"
	adjustedFill     = "FFEB9C"
	borderColor      = "000000"
	thickBorder      = 5
	labelColumnWidth = 34
	valueColumnWidth = 14
	firstDataExcel   = firstDataRow + 1
	headerExcelRow   = firstDataRow
)

const (
	columnLabel      = "A"
	columnWithdrawn  = "B"
	columnCashBox    = "C"
	columnPayout     = "D"
	columnAdjustment = "E"
	columnGross      = "F"
	columnTax        = "G"
	columnNet        = "H"
)

var (
	tableHeader = []string{"MAQUINA", "RETIRADA", "CAJON", "PAGO MANUAL", "AJUSTE", "BRUTO", "TASA", "NETO"}
	sumColumns  = []string{columnWithdrawn, columnCashBox, columnPayout, columnAdjustment, columnGross, columnTax, columnNet}
)

type cellKind int

const (
	kindText cellKind = iota
	kindHeader
	kindDate
	kindEditable
	kindComputed
)

type styleKey struct {
	kind   cellKind
	top    bool
	bottom bool
}

// sheetWriter keeps the first error so the layout code can write cells without checking each call.
type sheetWriter struct {
	file   *excelize.File
	sheet  string
	styles map[styleKey]int
	err    error
}

// Encode renders a period report in the normalized layout.
func (codec *Codec) Encode(report collection.PeriodReport) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	sheet := codec.config.SheetName
	if err := file.SetSheetName(newFileSheetName, sheet); err != nil {
		return nil, err
	}
	writer := &sheetWriter{file: file, sheet: sheet, styles: make(map[styleKey]int)}
	totalRow := firstDataExcel + len(report.Lines)

	writer.writeHeader(report, codec.config.VersionMarker)
	writer.writeSummary(report.Period, totalRow)
	writer.writeLines(report.Lines)
	writer.writeTotals(len(report.Lines), totalRow)
	writer.finish(len(report.Lines))
	if writer.err != nil {
		return nil, writer.err
	}

	if err := file.ProtectSheet(sheet, &excelize.SheetProtectionOptions{
		Password:            codec.config.ProtectionPassword,
		SelectLockedCells:   true,
		SelectUnlockedCells: true,
		FormatColumns:       true,
	}); err != nil {
		return nil, err
	}
	buffer, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func (writer *sheetWriter) writeHeader(report collection.PeriodReport, versionMarker string) {
	writer.value("A1", "SALON", styleKey{kind: kindHeader})
	writer.value("B1", report.VenueName, styleKey{kind: kindText})
	writer.value("D1", "FECHA FIN", styleKey{kind: kindHeader})
	writer.value("E1", report.Period.End.UTC(), styleKey{kind: kindDate})
	writer.value("A2", "DIAS", styleKey{kind: kindHeader})
	writer.formula("B2", "INT(E1-E2)", styleKey{kind: kindText})
	writer.value("D2", "FECHA INICIO", styleKey{kind: kindHeader})
	writer.value("E2", report.Period.Start.UTC(), styleKey{kind: kindDate})
	writer.value("D3", versionMarker, styleKey{kind: kindText})
}

// writeSummary fills A3:B11. Reported tax, deposits and other adjustments are the editable totals.
func (writer *sheetWriter) writeSummary(period collection.Period, totalRow int) {
	writer.value("A3", "BRUTO", styleKey{kind: kindHeader})
	writer.formula("B3", fmt.Sprintf("%s%d", columnGross, totalRow), styleKey{kind: kindComputed})
	writer.value("A4", "PAGOS MANUALES", styleKey{kind: kindHeader})
	writer.formula("B4", fmt.Sprintf("%s%d", columnPayout, totalRow), styleKey{kind: kindComputed})
	writer.value("A5", "AJUSTES", styleKey{kind: kindHeader})
	writer.formula("B5", fmt.Sprintf("%s%d", columnAdjustment, totalRow), styleKey{kind: kindComputed})
	writer.value("A6", "IMPUESTOS", styleKey{kind: kindHeader})
	writer.value("B6", money(period.ReportedTax), styleKey{kind: kindEditable})
	writer.value("A7", "SUBTOTAL", styleKey{kind: kindHeader})
	writer.formula("B7", "B3-B6", styleKey{kind: kindComputed})
	writer.value("A8", "DEPOSITOS", styleKey{kind: kindHeader})
	writer.value("B8", money(period.Deposits), styleKey{kind: kindEditable})
	writer.value("A9", "OTROS", styleKey{kind: kindHeader})
	writer.value("B9", money(period.OtherAdjustments), styleKey{kind: kindEditable})
	writer.value("A10", "TOTAL GLOBAL", styleKey{kind: kindHeader})
	writer.formula("B10", "B7+B8+B9", styleKey{kind: kindComputed})
	writer.value("A11", "50%", styleKey{kind: kindHeader})
	writer.formula("B11", "ROUND(B10/2,2)", styleKey{kind: kindComputed})
	writer.value("D11", "50%", styleKey{kind: kindHeader})
	writer.formula("E11", "B10-B11", styleKey{kind: kindComputed})
}

func (writer *sheetWriter) writeLines(lines []collection.ReportLine) {
	for index, column := range tableHeader {
		cell := fmt.Sprintf("%c%d", 'A'+index, headerExcelRow)
		writer.value(cell, column, styleKey{kind: kindHeader})
	}
	for index, reportLine := range lines {
		row := firstDataExcel + index
		top, bottom := reportLine.GroupStart, reportLine.GroupEnd
		line := reportLine.View.Line
		at := func(column string) string { return fmt.Sprintf("%s%d", column, row) }

		writer.value(at(columnLabel), reportLine.Label, styleKey{kind: kindText, top: top, bottom: bottom})
		writer.value(at(columnWithdrawn), money(line.CashWithdrawn), styleKey{kind: kindEditable, top: top, bottom: bottom})
		writer.value(at(columnCashBox), money(line.CashBox), styleKey{kind: kindEditable, top: top, bottom: bottom})
		writer.value(at(columnPayout), money(line.ManualPayout), styleKey{kind: kindEditable, top: top, bottom: bottom})
		writer.value(at(columnAdjustment), money(line.ManualAdjustment), styleKey{kind: kindEditable, top: top, bottom: bottom})
		writer.formula(at(columnGross), fmt.Sprintf("B%d+C%d-D%d+E%d", row, row, row, row), styleKey{kind: kindComputed, top: top, bottom: bottom})
		writer.value(at(columnTax), money(line.EstimatedTax), styleKey{kind: kindComputed, top: top, bottom: bottom})
		writer.formula(at(columnNet), fmt.Sprintf("F%d-G%d", row, row), styleKey{kind: kindComputed, top: top, bottom: bottom})
	}
}

func (writer *sheetWriter) writeTotals(lineCount int, totalRow int) {
	writer.value(fmt.Sprintf("%s%d", columnLabel, totalRow), totalsLabel, styleKey{kind: kindHeader})
	lastRow := totalRow - 1
	for _, column := range sumColumns {
		cell := fmt.Sprintf("%s%d", column, totalRow)
		if lineCount == 0 {
			writer.value(cell, 0, styleKey{kind: kindComputed})
			continue
		}
		writer.formula(cell, fmt.Sprintf("SUM(%s%d:%s%d)", column, firstDataExcel, column, lastRow), styleKey{kind: kindComputed})
	}
}

// finish sets column widths and highlights negative nets and non-zero manual adjustments.
func (writer *sheetWriter) finish(lineCount int) {
	if writer.err != nil {
		return
	}
	if writer.err = writer.file.SetColWidth(writer.sheet, columnLabel, columnLabel, labelColumnWidth); writer.err != nil {
		return
	}
	if writer.err = writer.file.SetColWidth(writer.sheet, columnWithdrawn, columnNet, valueColumnWidth); writer.err != nil {
		return
	}
	if lineCount == 0 {
		return
	}
	lastRow := firstDataExcel + lineCount - 1

	negative, err := writer.file.NewConditionalStyle(&excelize.Style{
		Font: &excelize.Font{Color: negativeFont},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{negativeFill}},
	})
	if err != nil {
		writer.err = err
		return
	}
	netRange := fmt.Sprintf("%s%d:%s%d", columnNet, firstDataExcel, columnNet, lastRow)
	if writer.err = writer.file.SetConditionalFormat(writer.sheet, netRange, []excelize.ConditionalFormatOptions{
		{Type: "cell", Criteria: "<", Format: negative, Value: "0"},
	}); writer.err != nil {
		return
	}

	adjusted, err := writer.file.NewConditionalStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{adjustedFill}},
	})
	if err != nil {
		writer.err = err
		return
	}
	adjustmentRange := fmt.Sprintf("%s%d:%s%d", columnAdjustment, firstDataExcel, columnAdjustment, lastRow)
	writer.err = writer.file.SetConditionalFormat(writer.sheet, adjustmentRange, []excelize.ConditionalFormatOptions{
		{Type: "cell", Criteria: "!=", Format: adjusted, Value: "0"},
	})
}

func (writer *sheetWriter) value(cell string, value interface{}, key styleKey) {
	if writer.err != nil {
		return
	}
	if writer.err = writer.file.SetCellValue(writer.sheet, cell, value); writer.err != nil {
		return
	}
	writer.style(cell, key)
}

func (writer *sheetWriter) formula(cell string, formula string, key styleKey) {
	if writer.err != nil {
		return
	}
	if writer.err = writer.file.SetCellFormula(writer.sheet, cell, formula); writer.err != nil {
		return
	}
	writer.style(cell, key)
}

func (writer *sheetWriter) style(cell string, key styleKey) {
	styleID, ok := writer.styles[key]
	if !ok {
		styleID, writer.err = writer.file.NewStyle(newStyle(key))
		if writer.err != nil {
			return
		}
		writer.styles[key] = styleID
	}
	writer.err = writer.file.SetCellStyle(writer.sheet, cell, cell, styleID)
}

func newStyle(key styleKey) *excelize.Style {
	style := &excelize.Style{}
	switch key.kind {
	case kindHeader:
		style.Font = &excelize.Font{Bold: true}
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}}
	case kindDate:
		format := dateFormat
		style.CustomNumFmt = &format
	case kindEditable:
		format := moneyFormat
		style.CustomNumFmt = &format
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{editableFill}}
		style.Protection = &excelize.Protection{Locked: false}
	case kindComputed:
		format := moneyFormat
		style.CustomNumFmt = &format
	}
	if key.top {
		style.Border = append(style.Border, excelize.Border{Type: "top", Color: borderColor, Style: thickBorder})
	}
	if key.bottom {
		style.Border = append(style.Border, excelize.Border{Type: "bottom", Color: borderColor, Style: thickBorder})
	}
	return style
}

// money converts an amount for a numeric cell. Cell values are doubles, so cents survive the round trip.
func money(amount decimal.Decimal) float64 {
	return amount.InexactFloat64()
}
