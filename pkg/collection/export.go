package collection

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

const (
	workbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportDateLayout    = "2006-01-02"
	exportFilenameFmt   = "%s_%s_%s.xlsx"
)

// ExportedWorkbook is a rendered period ready to download.
type ExportedWorkbook struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportSpreadsheet renders a period in the normalized layout.
func (service *Service) ExportSpreadsheet(ctx context.Context, periodID uint) (ExportedWorkbook, error) {
	if service.codec == nil {
		return ExportedWorkbook{}, fmt.Errorf("%w: spreadsheet codec is not configured", ErrInvalidServiceConfig)
	}
	report, err := service.GetPeriodReport(ctx, periodID)
	if err != nil {
		return ExportedWorkbook{}, err
	}
	data, err := service.codec.Encode(report)
	if err != nil {
		return ExportedWorkbook{}, WrapError(errorOperationService, errorSubjectExport, errorCodeWrite, err)
	}
	return ExportedWorkbook{
		Filename:    exportFilename(report),
		ContentType: workbookContentType,
		Data:        data,
	}, nil
}

func exportFilename(report PeriodReport) string {
	venue := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, strings.TrimSpace(report.VenueName))
	if venue == "" {
		venue = fmt.Sprintf("period%d", report.Period.ID)
	}
	return fmt.Sprintf(exportFilenameFmt, venue,
		report.Period.Start.Format(exportDateLayout), report.Period.End.Format(exportDateLayout))
}
