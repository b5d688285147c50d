package collection

import (
	"context"
	"errors"
	"testing"
)

func TestApplyOverridesIgnoreThenMap(test *testing.T) {
	test.Parallel()
	_, service, venue, seats := newAlphaFixture(test)
	ctx := context.Background()

	if err := service.ApplyOverrides(ctx, venue.ID, map[string]MappingOverride{"slot a ": IgnoreLabel()}); err != nil {
		test.Fatalf("ignore override: %v", err)
	}
	resolution, err := service.ResolveLabels(ctx, venue.ID, []string{"SLOT A"})
	if err != nil {
		test.Fatalf("resolve: %v", err)
	}
	if len(resolution.Ignored) != 1 || resolution.Ignored[0].Label != "SLOT A" {
		test.Fatalf("expected SLOT A ignored, got %+v", resolution)
	}

	if err := service.ApplyOverrides(ctx, venue.ID, map[string]MappingOverride{"SLOT A": MapToSeat(seats[0].ID)}); err != nil {
		test.Fatalf("seat override: %v", err)
	}
	resolution, err = service.ResolveLabels(ctx, venue.ID, []string{"Slot A"})
	if err != nil {
		test.Fatalf("resolve: %v", err)
	}
	if len(resolution.Mapped) != 1 {
		test.Fatalf("expected SLOT A mapped, got %+v", resolution)
	}
	mapped := resolution.Mapped[0]
	if mapped.SeatID == nil || *mapped.SeatID != seats[0].ID || mapped.MachineID == nil || *mapped.MachineID != seats[0].MachineID {
		test.Fatalf("unexpected mapping target: %+v", mapped)
	}

	if err := service.ApplyOverrides(ctx, venue.ID, map[string]MappingOverride{"SLOT A": ClearMapping()}); err != nil {
		test.Fatalf("clear override: %v", err)
	}
	resolution, err = service.ResolveLabels(ctx, venue.ID, []string{"SLOT A"})
	if err != nil {
		test.Fatalf("resolve: %v", err)
	}
	if len(resolution.Unmapped) != 1 || resolution.Unmapped[0].Status != ResolutionUnmapped {
		test.Fatalf("expected SLOT A unmapped after clear, got %+v", resolution)
	}
}

func TestResolveLabelsFiltersHeaders(test *testing.T) {
	test.Parallel()
	_, service, venue, _ := newAlphaFixture(test)

	resolution, err := service.ResolveLabels(context.Background(), venue.ID, []string{"MAQUINA", "TOTAL", "Bingo 7", "bingo 7"})
	if err != nil {
		test.Fatalf("resolve: %v", err)
	}
	if len(resolution.Unmapped) != 1 || resolution.Unmapped[0].Label != "BINGO 7" {
		test.Fatalf("expected only BINGO 7 unmapped, got %+v", resolution)
	}
	if len(resolution.Mapped) != 0 || len(resolution.Ignored) != 0 {
		test.Fatalf("unexpected resolution: %+v", resolution)
	}
}

func TestApplyOverridesRejectsForeignSeat(test *testing.T) {
	test.Parallel()
	store, service, venue, _ := newAlphaFixture(test)
	other := mustVenue(test, service, "Beta")
	machineType := mustMachineType(test, service, "SLOT", "20", false)
	_, foreignSeats := mustMachine(test, service, MachineInput{VenueID: other.ID, MachineTypeID: machineType.ID, Name: "Foreign"})

	err := service.ApplyOverrides(context.Background(), venue.ID, map[string]MappingOverride{
		"A OK":    IgnoreLabel(),
		"FOREIGN": MapToSeat(foreignSeats[0].ID),
	})
	if !errors.Is(err, ErrInvalidMappingTarget) {
		test.Fatalf("expected invalid mapping target, got %v", err)
	}
	if len(store.mappings) != 0 {
		test.Fatalf("expected rollback of all overrides, got %d mappings", len(store.mappings))
	}

	err = service.ApplyOverrides(context.Background(), venue.ID, map[string]MappingOverride{"GHOST": MapToSeat(777)})
	if !errors.Is(err, ErrSeatNotFound) {
		test.Fatalf("expected seat not found, got %v", err)
	}
}

func TestParseMappingTarget(test *testing.T) {
	test.Parallel()
	ignore := int64(-1)
	seat := int64(12)
	zero := int64(0)
	negative := int64(-5)

	if override, err := ParseMappingTarget(nil); err != nil || override.kind != overrideClear {
		test.Fatalf("expected clear for nil, got %+v %v", override, err)
	}
	if override, err := ParseMappingTarget(&ignore); err != nil || override.kind != overrideIgnore {
		test.Fatalf("expected ignore for -1, got %+v %v", override, err)
	}
	if override, err := ParseMappingTarget(&seat); err != nil || override.kind != overrideSeat || override.seatID != 12 {
		test.Fatalf("expected seat 12, got %+v %v", override, err)
	}
	for _, raw := range []*int64{&zero, &negative} {
		if _, err := ParseMappingTarget(raw); !errors.Is(err, ErrInvalidMappingTarget) {
			test.Fatalf("expected invalid target for %d, got %v", *raw, err)
		}
	}
}
