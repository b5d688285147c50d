package workbook

import (
	"strconv"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/collections/pkg/collection"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const totalsLabel = "TOTAL"

var textDateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006", "02-01-2006", "02/01/06"}

func extractNormalized(grid [][]string) collection.Extraction {
	extraction := collection.Extraction{
		Layout: collection.LayoutNormalized,
		Totals: collection.ExtractedTotals{
			ReportedTax:      nullAmount(cellAt(grid, reportedTaxRow, totalsValueColumn)),
			Deposits:         nullAmount(cellAt(grid, depositsRow, totalsValueColumn)),
			OtherAdjustments: nullAmount(cellAt(grid, otherAdjustRow, totalsValueColumn)),
		},
	}
	end := totalsRow(grid)
	for row := firstDataRow; row < end; row++ {
		label := cellAt(grid, row, 0)
		if label == "" {
			continue
		}
		extraction.Rows = append(extraction.Rows, collection.ExtractedRow{
			Row:              row,
			Label:            label,
			CashWithdrawn:    amountOrZero(cellAt(grid, row, 1)),
			CashBox:          amountOrZero(cellAt(grid, row, 2)),
			ManualPayout:     amountOrZero(cellAt(grid, row, 3)),
			ManualAdjustment: nullAmount(cellAt(grid, row, 4)),
		})
	}
	return extraction
}

// totalsRow locates the totals row the writer emits below the data, which is the last row labelled TOTAL.
// A machine may itself be named Total, so earlier matches are data. Without one every row is data.
func totalsRow(grid [][]string) int {
	for row := len(grid) - 1; row >= firstDataRow; row-- {
		if collection.NormalizeLabel(cellAt(grid, row, 0)) == totalsLabel {
			return row
		}
	}
	return len(grid)
}

// extractLegacy reads every row with a text label in column B. The tax and deposit totals come from the
// rows whose column D mentions them; when several rows do, the last one wins.
func extractLegacy(grid [][]string) collection.Extraction {
	extraction := collection.Extraction{Layout: collection.LayoutLegacy}
	for row := range grid {
		marker := strings.ToUpper(cellAt(grid, row, legacyTotalsColumn))
		if strings.Contains(marker, legacyTaxToken) {
			if value := nullAmount(cellAt(grid, row, legacyWithdrawColumn)); value.Valid {
				extraction.Totals.ReportedTax = value
			}
		}
		if strings.Contains(marker, legacyDepositToken) {
			if value := nullAmount(cellAt(grid, row, legacyWithdrawColumn)); value.Valid {
				extraction.Totals.Deposits = value
			}
		}

		label := cellAt(grid, row, legacyLabelColumn)
		if label == "" {
			continue
		}
		if _, numeric := parseAmount(label); numeric {
			continue
		}
		extraction.Rows = append(extraction.Rows, collection.ExtractedRow{
			Row:           row,
			Label:         label,
			CashWithdrawn: amountOrZero(cellAt(grid, row, legacyWithdrawColumn)),
			CashBox:       amountOrZero(cellAt(grid, row, legacyCashBoxColumn)),
			ManualPayout:  amountOrZero(cellAt(grid, row, legacyPayoutColumn)),
		})
	}
	return extraction
}

// parseAmount accepts raw numeric cells as well as typed text such as "1.234,56 €".
func parseAmount(raw string) (decimal.Decimal, bool) {
	cleaned := strings.NewReplacer("€", "", " ", "", "\u00a0", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Zero, false
	}
	if value, err := decimal.NewFromString(cleaned); err == nil {
		return value, true
	}
	if strings.Contains(cleaned, ",") {
		european := strings.Replace(strings.ReplaceAll(cleaned, ".", ""), ",", ".", 1)
		if value, err := decimal.NewFromString(european); err == nil {
			return value, true
		}
	}
	return decimal.Zero, false
}

func amountOrZero(raw string) decimal.Decimal {
	value, _ := parseAmount(raw)
	return value
}

func nullAmount(raw string) decimal.NullDecimal {
	value, ok := parseAmount(raw)
	return decimal.NullDecimal{Decimal: value, Valid: ok}
}

// parseDate reads an Excel serial date or a typed day-first date.
func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		parsed, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil
		}
		day := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		return &day
	}
	for _, layout := range textDateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return &parsed
		}
	}
	return nil
}
