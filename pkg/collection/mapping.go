package collection

import (
	"context"
	"fmt"
	"sort"
)

type overrideKind int

const (
	overrideClear overrideKind = iota
	overrideIgnore
	overrideSeat
)

// MappingOverride is a human decision about one spreadsheet label.
type MappingOverride struct {
	kind   overrideKind
	seatID uint
}

// MapToSeat maps a label to a seat.
func MapToSeat(seatID uint) MappingOverride {
	return MappingOverride{kind: overrideSeat, seatID: seatID}
}

// IgnoreLabel marks a label to be skipped permanently.
func IgnoreLabel() MappingOverride {
	return MappingOverride{kind: overrideIgnore}
}

// ClearMapping removes any target and the ignore marker.
func ClearMapping() MappingOverride {
	return MappingOverride{kind: overrideClear}
}

// ParseMappingTarget reads the wire form of an override: nil clears, -1 ignores, a positive value is a seat id.
func ParseMappingTarget(raw *int64) (MappingOverride, error) {
	if raw == nil {
		return ClearMapping(), nil
	}
	if *raw == ignoreSentinel {
		return IgnoreLabel(), nil
	}
	if *raw <= 0 {
		return MappingOverride{}, fmt.Errorf("%w: %d", ErrInvalidMappingTarget, *raw)
	}
	return MapToSeat(uint(*raw)), nil
}

// ResolutionStatus classifies a label against the mapping table.
type ResolutionStatus string

const (
	ResolutionMapped   ResolutionStatus = "mapped"
	ResolutionUnmapped ResolutionStatus = "unmapped"
	ResolutionIgnored  ResolutionStatus = "ignored"
)

// LabelResolution is the outcome for a single label.
type LabelResolution struct {
	Label     string
	Status    ResolutionStatus
	SeatID    *uint
	MachineID *uint
}

// Resolution groups labels by outcome.
type Resolution struct {
	Mapped   []LabelResolution
	Unmapped []LabelResolution
	Ignored  []LabelResolution
}

// ResolveLabels reports which candidate labels are mapped, unmapped or ignored for a venue.
// Structural header labels are dropped from the candidate set.
func (service *Service) ResolveLabels(ctx context.Context, venueID uint, labels []string) (Resolution, error) {
	if _, err := service.store.GetVenue(ctx, venueID); err != nil {
		return Resolution{}, err
	}
	mappings, err := service.store.ListNameMappings(ctx, venueID)
	if err != nil {
		return Resolution{}, err
	}
	return resolveAgainst(indexMappings(mappings), service.config.CandidateLabels(labels)), nil
}

// ApplyOverrides stores human mapping decisions for a venue.
func (service *Service) ApplyOverrides(ctx context.Context, venueID uint, overrides map[string]MappingOverride) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if _, err := transactionStore.GetVenue(ctx, venueID); err != nil {
			return err
		}
		return applyOverrides(ctx, transactionStore, venueID, overrides)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationApplyOverrides,
		VenueID:   venueID,
		LineCount: len(overrides),
		Error:     operationError,
	})
	return operationError
}

func applyOverrides(ctx context.Context, store Store, venueID uint, overrides map[string]MappingOverride) error {
	if len(overrides) == 0 {
		return nil
	}
	existing, err := store.ListNameMappings(ctx, venueID)
	if err != nil {
		return err
	}
	byLabel := indexMappings(existing)

	labels := make([]string, 0, len(overrides))
	for label := range overrides {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, rawLabel := range labels {
		normalized := NormalizeLabel(rawLabel)
		if normalized == "" {
			return fmt.Errorf("%w: empty label", ErrInvalidLabel)
		}
		mapping, ok := byLabel[normalized]
		if !ok {
			mapping = NameMapping{VenueID: venueID, Label: normalized}
		}
		override := overrides[rawLabel]
		switch override.kind {
		case overrideSeat:
			view, err := store.GetSeatView(ctx, override.seatID)
			if err != nil {
				return err
			}
			if view.Machine.VenueID != venueID {
				return WrapError(errorOperationService, errorSubjectMapping, errorCodeTarget,
					fmt.Errorf("%w: seat %d belongs to another venue", ErrInvalidMappingTarget, override.seatID))
			}
			seatID, machineID := view.Seat.ID, view.Machine.ID
			mapping.SeatID = &seatID
			mapping.MachineID = &machineID
			mapping.Ignored = false
		case overrideIgnore:
			mapping.SeatID = nil
			mapping.MachineID = nil
			mapping.Ignored = true
		default:
			mapping.SeatID = nil
			mapping.MachineID = nil
			mapping.Ignored = false
		}
		if err := store.UpsertNameMapping(ctx, mapping); err != nil {
			return err
		}
		byLabel[normalized] = mapping
	}
	return nil
}

func indexMappings(mappings []NameMapping) map[string]NameMapping {
	byLabel := make(map[string]NameMapping, len(mappings))
	for _, mapping := range mappings {
		byLabel[NormalizeLabel(mapping.Label)] = mapping
	}
	return byLabel
}

func resolveAgainst(byLabel map[string]NameMapping, candidates []string) Resolution {
	resolution := Resolution{}
	for _, label := range candidates {
		mapping, ok := byLabel[label]
		switch {
		case ok && mapping.Ignored:
			resolution.Ignored = append(resolution.Ignored, LabelResolution{Label: label, Status: ResolutionIgnored})
		case ok && (mapping.SeatID != nil || mapping.MachineID != nil):
			resolution.Mapped = append(resolution.Mapped, LabelResolution{
				Label:     label,
				Status:    ResolutionMapped,
				SeatID:    mapping.SeatID,
				MachineID: mapping.MachineID,
			})
		default:
			resolution.Unmapped = append(resolution.Unmapped, LabelResolution{Label: label, Status: ResolutionUnmapped})
		}
	}
	return resolution
}
