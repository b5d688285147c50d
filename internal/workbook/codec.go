// Package workbook reads and writes collection spreadsheets with excelize.
package workbook

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/MarkoPoloResearchLab/collections/pkg/collection"
	"github.com/xuri/excelize/v2"
)

// Normalized layout positions, 0-indexed as returned by GetRows.
const (
	markerRow         = 2
	markerColumn      = 3
	venueRow          = 0
	endDateRow        = 0
	startDateRow      = 1
	dateColumn        = 4
	reportedTaxRow    = 5
	depositsRow       = 7
	otherAdjustRow    = 8
	totalsValueColumn = 1
	firstDataRow      = 12
)

// Legacy layout columns.
const (
	legacyLabelColumn    = 1
	legacyTotalsColumn   = 3
	legacyWithdrawColumn = 5
	legacyCashBoxColumn  = 6
	legacyPayoutColumn   = 7
	legacyTaxToken       = "IMPUESTOS"
	legacyDepositToken   = "DPS"
)

var _ collection.SpreadsheetCodec = (*Codec)(nil)

// Codec implements collection.SpreadsheetCodec for .xlsx workbooks.
type Codec struct {
	config Config
}

// NewCodec validates the configuration and returns a codec.
func NewCodec(config Config) (*Codec, error) {
	if err := config.normalize(); err != nil {
		return nil, err
	}
	return &Codec{config: config}, nil
}

// Decode detects the layout of a workbook and extracts its rows and totals.
func (codec *Codec) Decode(data []byte) (collection.Extraction, error) {
	grid, err := codec.readGrid(data)
	if err != nil {
		return collection.Extraction{}, err
	}
	if DetectLayout(grid) == collection.LayoutNormalized {
		return extractNormalized(grid), nil
	}
	return extractLegacy(grid), nil
}

// ReadMetadata reads the venue and dates from the header of a normalized workbook.
func (codec *Codec) ReadMetadata(data []byte) (collection.SheetMetadata, error) {
	grid, err := codec.readGrid(data)
	if err != nil {
		return collection.SheetMetadata{}, err
	}
	if DetectLayout(grid) != collection.LayoutNormalized {
		return collection.SheetMetadata{}, nil
	}
	return collection.SheetMetadata{
		Normalized: true,
		VenueName:  venueName(grid),
		Start:      parseDate(cellAt(grid, startDateRow, dateColumn)),
		End:        parseDate(cellAt(grid, endDateRow, dateColumn)),
	}, nil
}

// DetectLayout classifies a grid as normalized when D3 holds the version token.
func DetectLayout(grid [][]string) collection.Layout {
	if strings.Contains(cellAt(grid, markerRow, markerColumn), versionToken) {
		return collection.LayoutNormalized
	}
	return collection.LayoutLegacy
}

func (codec *Codec) readGrid(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", collection.ErrUnreadableSpreadsheet, err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", collection.ErrUnreadableSpreadsheet)
	}
	sheet := sheets[0]
	for _, name := range sheets {
		if name == codec.config.SheetName {
			sheet = name
			break
		}
	}
	rows, err := file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", collection.ErrUnreadableSpreadsheet, err)
	}
	return rows, nil
}

func cellAt(grid [][]string, row int, column int) string {
	if row < 0 || row >= len(grid) || column < 0 || column >= len(grid[row]) {
		return ""
	}
	return strings.TrimSpace(grid[row][column])
}

// venueName reads A1/B1 as a label/value pair, or a combined "label: value" in A1.
func venueName(grid [][]string) string {
	label := cellAt(grid, venueRow, 0)
	if value := cellAt(grid, venueRow, 1); value != "" && label != "" {
		return value
	}
	if _, value, found := strings.Cut(label, ":"); found {
		return strings.TrimSpace(value)
	}
	return ""
}
