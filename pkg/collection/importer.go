package collection

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ImportResult reports what an import changed.
type ImportResult struct {
	PeriodID     uint
	Layout       Layout
	UpdatedLines int
	Unresolved   []string
	Ignored      []string
}

// LabelMatch pairs a spreadsheet label with the detail line it would update.
type LabelMatch struct {
	Label      string
	DetailID   uint
	LineLabel  string
	MachineID  uint
	SeatID     *uint
	ViaMapping bool
}

// ImportPreview is the dry-run outcome of an import, used to collect mapping overrides from a human.
type ImportPreview struct {
	Layout   Layout
	Matched  []LabelMatch
	Unmapped []string
	Ignored  []string
	Totals   ExtractedTotals
}

// ImportSpreadsheet decodes a workbook and applies its figures to the period's detail lines, then reconciles.
// Overrides are stored before matching. Rows whose label cannot be matched are skipped.
func (service *Service) ImportSpreadsheet(ctx context.Context, periodID uint, data []byte, overrides map[string]MappingOverride) (ImportResult, error) {
	return service.importWorkbook(ctx, periodID, nil, data, overrides)
}

// ImportAttachment imports a file previously attached to the period.
func (service *Service) ImportAttachment(ctx context.Context, periodID uint, attachmentID uint, overrides map[string]MappingOverride) (ImportResult, error) {
	data, err := service.readAttachment(ctx, periodID, attachmentID)
	if err != nil {
		return ImportResult{}, err
	}
	return service.importWorkbook(ctx, periodID, &attachmentID, data, overrides)
}

// ImportHistory lists the recorded imports of a period, newest first.
func (service *Service) ImportHistory(ctx context.Context, periodID uint) ([]ImportRun, error) {
	if _, err := service.store.GetPeriod(ctx, periodID); err != nil {
		return nil, err
	}
	return service.store.ListImportRuns(ctx, periodID)
}

// PreviewImport decodes a workbook and reports how each label would be matched without writing anything.
func (service *Service) PreviewImport(ctx context.Context, periodID uint, data []byte) (ImportPreview, error) {
	extraction, err := service.decode(data)
	if err != nil {
		return ImportPreview{}, err
	}
	report, err := loadReport(ctx, service.store, periodID)
	if err != nil {
		return ImportPreview{}, err
	}
	mappings, err := service.store.ListNameMappings(ctx, report.Period.VenueID)
	if err != nil {
		return ImportPreview{}, err
	}
	matcher := newLineMatcher(service.config, extraction.Layout, report, mappings)
	preview := ImportPreview{Layout: extraction.Layout, Totals: extraction.Totals}
	tally, matched := newLabelTally(), make(map[int]struct{}, len(report.Lines))
	for _, row := range extraction.Rows {
		label := NormalizeLabel(row.Label)
		if label == "" {
			continue
		}
		match := matcher.match(label)
		if match.structural {
			continue
		}
		switch match.status {
		case ResolutionMapped:
			if _, seen := matched[match.index]; seen {
				continue
			}
			matched[match.index] = struct{}{}
			line := report.Lines[match.index]
			preview.Matched = append(preview.Matched, LabelMatch{
				Label:      label,
				DetailID:   line.View.Line.ID,
				LineLabel:  line.Label,
				MachineID:  line.View.Line.MachineID,
				SeatID:     line.View.Line.SeatID,
				ViaMapping: match.viaMapping,
			})
		case ResolutionIgnored:
			if tally.first(label) {
				preview.Ignored = append(preview.Ignored, label)
			}
		default:
			if tally.first(label) {
				preview.Unmapped = append(preview.Unmapped, label)
			}
		}
	}
	return preview, nil
}

func (service *Service) importWorkbook(ctx context.Context, periodID uint, attachmentID *uint, data []byte, overrides map[string]MappingOverride) (ImportResult, error) {
	extraction, err := service.decode(data)
	if err != nil {
		service.logOperation(ctx, OperationLog{Operation: operationImport, PeriodID: periodID, Error: err})
		return ImportResult{}, err
	}

	result := ImportResult{PeriodID: periodID, Layout: extraction.Layout}
	var venueID uint
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		period, err := transactionStore.GetPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		venueID = period.VenueID
		if period.Locked {
			return lockedError(period.ID)
		}
		if err := applyOverrides(ctx, transactionStore, period.VenueID, overrides); err != nil {
			return err
		}
		report, err := loadReport(ctx, transactionStore, periodID)
		if err != nil {
			return err
		}
		mappings, err := transactionStore.ListNameMappings(ctx, period.VenueID)
		if err != nil {
			return err
		}

		matcher := newLineMatcher(service.config, extraction.Layout, report, mappings)
		lines := report.DetailLines()
		updated := make(map[int]struct{}, len(lines))
		unresolved, ignored := newLabelTally(), newLabelTally()
		for _, row := range extraction.Rows {
			label := NormalizeLabel(row.Label)
			if label == "" {
				continue
			}
			match := matcher.match(label)
			if match.structural {
				continue
			}
			switch match.status {
			case ResolutionIgnored:
				if ignored.first(label) {
					result.Ignored = append(result.Ignored, label)
				}
				continue
			case ResolutionUnmapped:
				if unresolved.first(label) {
					result.Unresolved = append(result.Unresolved, label)
				}
				continue
			}
			line := &lines[match.index]
			line.CashWithdrawn = row.CashWithdrawn
			line.CashBox = row.CashBox
			line.ManualPayout = row.ManualPayout
			if row.ManualAdjustment.Valid {
				line.ManualAdjustment = row.ManualAdjustment.Decimal
			}
			updated[match.index] = struct{}{}
		}
		result.UpdatedLines = len(updated)

		totals := extraction.Totals
		if totals.ReportedTax.Valid {
			period.ReportedTax = totals.ReportedTax.Decimal
		}
		if totals.Deposits.Valid {
			period.Deposits = totals.Deposits.Decimal
		}
		if totals.OtherAdjustments.Valid {
			period.OtherAdjustments = totals.OtherAdjustments.Decimal
		}
		if err := transactionStore.UpdatePeriod(ctx, period); err != nil {
			return err
		}
		if len(lines) > 0 {
			if err := transactionStore.SaveDetails(ctx, service.config.DistributeVariance(period.ReportedTax, lines)); err != nil {
				return err
			}
		}
		return transactionStore.RecordImportRun(ctx, ImportRun{
			PeriodID:         periodID,
			AttachmentID:     attachmentID,
			Layout:           extraction.Layout,
			UpdatedLines:     result.UpdatedLines,
			UnresolvedLabels: result.Unresolved,
			CreatedAt:        service.nowFn(),
		})
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationImport,
		VenueID:   venueID,
		PeriodID:  periodID,
		LineCount: result.UpdatedLines,
		Error:     operationError,
	})
	if operationError != nil {
		return ImportResult{}, operationError
	}
	return result, nil
}

func (service *Service) decode(data []byte) (Extraction, error) {
	if service.codec == nil {
		return Extraction{}, fmt.Errorf("%w: spreadsheet codec is not configured", ErrInvalidServiceConfig)
	}
	if len(data) == 0 {
		return Extraction{}, WrapError(errorOperationService, errorSubjectImport, errorCodeDecode,
			fmt.Errorf("%w: empty file", ErrUnreadableSpreadsheet))
	}
	extraction, err := service.codec.Decode(data)
	if err != nil {
		if !errors.Is(err, ErrParse) {
			err = fmt.Errorf("%w: %v", ErrUnreadableSpreadsheet, err)
		}
		return Extraction{}, WrapError(errorOperationService, errorSubjectImport, errorCodeDecode, err)
	}
	return extraction, nil
}

type matchOutcome struct {
	status     ResolutionStatus
	index      int
	viaMapping bool
	structural bool
}

// lineMatcher resolves spreadsheet labels to indexes of a report's lines.
// A mapping always wins. Normalized sheets then fall back to the labels the exporter writes, first exactly
// and then, for labels that are not sheet headers, by containment in either direction. Legacy sheets match
// through the mapping table only.
// Rows sharing a synthesized label take that label's lines in report order.
type lineMatcher struct {
	config    Config
	layout    Layout
	mappings  map[string]NameMapping
	bySeat    map[uint]int
	byMachine map[uint]int
	labels    []string
	exact     map[string][]int
	taken     map[string]int
}

func newLineMatcher(config Config, layout Layout, report PeriodReport, mappings []NameMapping) *lineMatcher {
	matcher := &lineMatcher{
		config:    config,
		layout:    layout,
		mappings:  indexMappings(mappings),
		bySeat:    make(map[uint]int, len(report.Lines)),
		byMachine: make(map[uint]int, len(report.Lines)),
		labels:    make([]string, 0, len(report.Lines)),
		exact:     make(map[string][]int, len(report.Lines)),
		taken:     make(map[string]int, len(report.Lines)),
	}
	for index, line := range report.Lines {
		if line.View.Line.SeatID != nil {
			matcher.bySeat[*line.View.Line.SeatID] = index
		}
		if _, ok := matcher.byMachine[line.View.Line.MachineID]; !ok {
			matcher.byMachine[line.View.Line.MachineID] = index
		}
		label := NormalizeLabel(line.Label)
		if label == "" {
			continue
		}
		if _, ok := matcher.exact[label]; !ok {
			matcher.labels = append(matcher.labels, label)
		}
		matcher.exact[label] = append(matcher.exact[label], index)
	}
	return matcher
}

// match classifies a non-empty normalized row label. Unmatched sheet headers come back flagged as
// structural so callers can drop them without reporting them.
func (matcher *lineMatcher) match(label string) matchOutcome {
	if mapping, ok := matcher.mappings[label]; ok {
		if mapping.Ignored {
			return matchOutcome{status: ResolutionIgnored}
		}
		if index, ok := matcher.mappedIndex(mapping); ok {
			return matchOutcome{status: ResolutionMapped, index: index, viaMapping: true}
		}
	}
	if matcher.layout != LayoutNormalized {
		return matchOutcome{status: ResolutionUnmapped, structural: matcher.config.IsStructuralLabel(label)}
	}
	if _, ok := matcher.exact[label]; ok {
		return matchOutcome{status: ResolutionMapped, index: matcher.take(label)}
	}
	// Header rows such as SUBTOTAL would otherwise contain a machine named Total.
	if matcher.config.IsStructuralLabel(label) {
		return matchOutcome{status: ResolutionUnmapped, structural: true}
	}
	if synthesized, ok := matcher.containing(label); ok {
		return matchOutcome{status: ResolutionMapped, index: matcher.take(synthesized)}
	}
	return matchOutcome{status: ResolutionUnmapped}
}

// take hands out the next unused line for a synthesized label. Once every line is used the last one repeats.
func (matcher *lineMatcher) take(label string) int {
	indexes := matcher.exact[label]
	next := matcher.taken[label]
	if next >= len(indexes) {
		return indexes[len(indexes)-1]
	}
	matcher.taken[label] = next + 1
	return indexes[next]
}

func (matcher *lineMatcher) mappedIndex(mapping NameMapping) (int, bool) {
	if mapping.SeatID != nil {
		if index, ok := matcher.bySeat[*mapping.SeatID]; ok {
			return index, true
		}
	}
	if mapping.MachineID != nil {
		if index, ok := matcher.byMachine[*mapping.MachineID]; ok {
			return index, true
		}
	}
	return 0, false
}

// containing prefers the longest synthesized label found inside the row label, then the first synthesized
// label that contains the row label.
func (matcher *lineMatcher) containing(label string) (string, bool) {
	best := ""
	for _, candidate := range matcher.labels {
		if strings.Contains(label, candidate) && len(candidate) > len(best) {
			best = candidate
		}
	}
	if best != "" {
		return best, true
	}
	for _, candidate := range matcher.labels {
		if strings.Contains(candidate, label) {
			return candidate, true
		}
	}
	return "", false
}

type labelTally map[string]struct{}

func newLabelTally() labelTally {
	return labelTally{}
}

// first records the label and reports whether it was seen for the first time.
func (tally labelTally) first(label string) bool {
	if _, ok := tally[label]; ok {
		return false
	}
	tally[label] = struct{}{}
	return true
}
