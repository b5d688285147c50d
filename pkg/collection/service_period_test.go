package collection

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func newAlphaFixture(test *testing.T) (*stubStore, *Service, Venue, []Seat) {
	test.Helper()
	store := newStubStore(test)
	service := mustNewService(test, store)
	venue := mustVenue(test, service, "Alpha")
	machineType := mustMachineType(test, service, "SLOT", "70", false)
	_, seats := mustMachine(test, service, MachineInput{VenueID: venue.ID, MachineTypeID: machineType.ID, Name: "Slot A"})
	return store, service, venue, seats
}

func TestCreatePeriodScenarioAlpha(test *testing.T) {
	test.Parallel()
	_, service, venue, seats := newAlphaFixture(test)

	report := mustPeriod(test, service, venue.ID, "2024-01-01", "2024-01-08")

	if len(report.Lines) != 1 {
		test.Fatalf("expected one detail line, got %d", len(report.Lines))
	}
	line := report.Lines[0].View.Line
	if line.SeatID == nil || *line.SeatID != seats[0].ID {
		test.Fatalf("expected line for seat %d, got %+v", seats[0].ID, line.SeatID)
	}
	assertDecimal(test, "estimated tax", "70.00", line.EstimatedTax)
	assertDecimal(test, "final tax", "70.00", line.FinalTax)
	if line.RateNote != rateNoteSeat {
		test.Fatalf("expected rate note %q, got %q", rateNoteSeat, line.RateNote)
	}
	if report.DayCount != 7 {
		test.Fatalf("expected 7 days, got %d", report.DayCount)
	}

	reported := mustDecimal(test, "80")
	updated, err := service.UpdatePeriod(context.Background(), report.Period.ID, PeriodPatch{ReportedTax: &reported})
	if err != nil {
		test.Fatalf("update period: %v", err)
	}
	line = updated.Lines[0].View.Line
	assertDecimal(test, "variance share", "10", line.VarianceShare)
	assertDecimal(test, "final tax", "80.00", line.FinalTax)
	assertDecimal(test, "period final tax", "80", updated.Totals.FinalTax)
}

func TestCreatePeriodOverlapRules(test *testing.T) {
	test.Parallel()
	store, service, venue, _ := newAlphaFixture(test)

	mustPeriod(test, service, venue.ID, "2024-01-01", "2024-01-10")
	mustPeriod(test, service, venue.ID, "2024-01-10", "2024-01-20")
	detailsBefore := len(store.details)

	_, err := service.CreatePeriod(context.Background(), PeriodInput{
		VenueID: venue.ID,
		Start:   mustDate(test, "2024-01-05"),
		End:     mustDate(test, "2024-01-15"),
	})
	if !errors.Is(err, ErrPeriodOverlap) || !errors.Is(err, ErrValidation) {
		test.Fatalf("expected overlap validation error, got %v", err)
	}
	var operationError OperationError
	if !errors.As(err, &operationError) || operationError.Code() != errorCodeOverlap {
		test.Fatalf("expected overlap operation error, got %v", err)
	}
	if len(store.periods) != 2 || len(store.details) != detailsBefore {
		test.Fatalf("expected no writes after rejection, got %d periods and %d lines", len(store.periods), len(store.details))
	}
}

func TestCreatePeriodOverlapIsPerVenue(test *testing.T) {
	test.Parallel()
	_, service, venue, _ := newAlphaFixture(test)
	other := mustVenue(test, service, "Beta")

	mustPeriod(test, service, venue.ID, "2024-01-01", "2024-01-10")
	mustPeriod(test, service, other.ID, "2024-01-05", "2024-01-15")
}

func TestCreatePeriodWithoutSeats(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	venue := mustVenue(test, service, "Empty")

	report := mustPeriod(test, service, venue.ID, "2024-02-01", "2024-02-08")

	if len(report.Lines) != 0 {
		test.Fatalf("expected no lines, got %d", len(report.Lines))
	}
	if report.Period.Origin != OriginManual {
		test.Fatalf("expected manual origin, got %s", report.Period.Origin)
	}
	if !report.Period.ClosingDate.Equal(report.Period.End) {
		test.Fatalf("expected closing date to default to end")
	}
}

func TestCreatePeriodNegativeSpanEstimatesZero(test *testing.T) {
	test.Parallel()
	_, service, venue, _ := newAlphaFixture(test)

	report := mustPeriod(test, service, venue.ID, "2024-03-10", "2024-03-01")

	if report.DayCount != 0 {
		test.Fatalf("expected clamped day count, got %d", report.DayCount)
	}
	assertDecimal(test, "estimate", "0", report.Lines[0].View.Line.EstimatedTax)
}

func TestCreatePeriodRejectsInvalidInput(test *testing.T) {
	test.Parallel()
	_, service, venue, _ := newAlphaFixture(test)

	testCases := []struct {
		name        string
		input       PeriodInput
		expectedErr error
	}{
		{name: "missing venue", input: PeriodInput{Start: mustDate(test, "2024-01-01"), End: mustDate(test, "2024-01-02")}, expectedErr: ErrInvalidPeriodInput},
		{name: "missing start", input: PeriodInput{VenueID: venue.ID, End: mustDate(test, "2024-01-02")}, expectedErr: ErrInvalidPeriodInput},
		{name: "unknown origin", input: PeriodInput{VenueID: venue.ID, Start: mustDate(test, "2024-01-01"), End: mustDate(test, "2024-01-02"), Origin: "fax"}, expectedErr: ErrInvalidPeriodInput},
		{name: "unknown venue", input: PeriodInput{VenueID: 9999, Start: mustDate(test, "2024-01-01"), End: mustDate(test, "2024-01-02")}, expectedErr: ErrVenueNotFound},
	}
	for _, testCase := range testCases {
		_, err := service.CreatePeriod(context.Background(), testCase.input)
		if !errors.Is(err, testCase.expectedErr) {
			test.Fatalf("%s: expected %v, got %v", testCase.name, testCase.expectedErr, err)
		}
	}
}

func TestAddMachineDefaultsSeatRates(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	venue := mustVenue(test, service, "Gamma")
	tableType := mustMachineType(test, service, "RULETA", "10", true)

	machine, seats := mustMachine(test, service, MachineInput{
		VenueID:          venue.ID,
		MachineTypeID:    tableType.ID,
		Name:             "Ruleta",
		SeatCount:        3,
		SeatDescriptions: []string{"Izquierda"},
	})

	if !machine.MultiSeat {
		test.Fatalf("expected multi-seat machine")
	}
	if len(seats) != 3 {
		test.Fatalf("expected 3 seats, got %d", len(seats))
	}
	for index, seat := range seats {
		if seat.Number != index+1 {
			test.Fatalf("expected seat number %d, got %d", index+1, seat.Number)
		}
		assertDecimal(test, "seat rate", "30", seat.WeeklyRate)
	}
	machineWeekly := decimal.Zero
	for _, seat := range seats {
		machineWeekly = machineWeekly.Add(seat.WeeklyRate)
	}
	assertDecimal(test, "machine weekly total", "90", machineWeekly)
	if seats[0].Description != "Izquierda" || seats[1].Description != "" {
		test.Fatalf("unexpected descriptions: %q %q", seats[0].Description, seats[1].Description)
	}

	overridden, overriddenSeats := mustMachine(test, service, MachineInput{
		VenueID:            venue.ID,
		MachineTypeID:      tableType.ID,
		Name:               "Slot VIP",
		OverrideWeeklyRate: decimal.NewNullDecimal(mustDecimal(test, "55")),
	})
	if overridden.MultiSeat {
		test.Fatalf("expected single-seat machine")
	}
	assertDecimal(test, "override seat rate", "55", overriddenSeats[0].WeeklyRate)
}

func TestUpdatePeriodDatesReestimatesAndChecksOverlap(test *testing.T) {
	test.Parallel()
	_, service, venue, _ := newAlphaFixture(test)
	first := mustPeriod(test, service, venue.ID, "2024-01-01", "2024-01-08")
	mustPeriod(test, service, venue.ID, "2024-01-15", "2024-01-22")

	newEnd := mustDate(test, "2024-01-15")
	report, err := service.UpdatePeriod(context.Background(), first.Period.ID, PeriodPatch{End: &newEnd})
	if err != nil {
		test.Fatalf("update dates: %v", err)
	}
	line := report.Lines[0].View.Line
	assertDecimal(test, "estimate after extension", "140.00", line.EstimatedTax)
	if report.DayCount != 14 {
		test.Fatalf("expected 14 days, got %d", report.DayCount)
	}

	overlappingEnd := mustDate(test, "2024-01-16")
	_, err = service.UpdatePeriod(context.Background(), first.Period.ID, PeriodPatch{End: &overlappingEnd})
	if !errors.Is(err, ErrPeriodOverlap) {
		test.Fatalf("expected overlap on update, got %v", err)
	}
}

func TestLockedPeriodRejectsChangesUntilUnlocked(test *testing.T) {
	test.Parallel()
	_, service, venue, _ := newAlphaFixture(test)
	report := mustPeriod(test, service, venue.ID, "2024-01-01", "2024-01-08")
	periodID := report.Period.ID
	detailID := report.Lines[0].View.Line.ID

	locked := true
	if _, err := service.UpdatePeriod(context.Background(), periodID, PeriodPatch{Locked: &locked}); err != nil {
		test.Fatalf("lock: %v", err)
	}

	label := "renamed"
	if _, err := service.UpdatePeriod(context.Background(), periodID, PeriodPatch{Label: &label}); !errors.Is(err, ErrPeriodLocked) {
		test.Fatalf("expected locked error on patch, got %v", err)
	}
	cash := mustDecimal(test, "10")
	if _, err := service.UpdateDetail(context.Background(), detailID, DetailPatch{CashWithdrawn: &cash}); !errors.Is(err, ErrPeriodLocked) {
		test.Fatalf("expected locked error on detail edit, got %v", err)
	}
	if err := service.DeleteDetail(context.Background(), detailID); !errors.Is(err, ErrPeriodLocked) {
		test.Fatalf("expected locked error on detail delete, got %v", err)
	}
	if err := service.DeletePeriod(context.Background(), periodID); !errors.Is(err, ErrPeriodLocked) {
		test.Fatalf("expected locked error on delete, got %v", err)
	}

	unlocked := false
	if _, err := service.UpdatePeriod(context.Background(), periodID, PeriodPatch{Locked: &unlocked}); err != nil {
		test.Fatalf("unlock: %v", err)
	}
	if _, err := service.UpdatePeriod(context.Background(), periodID, PeriodPatch{Label: &label}); err != nil {
		test.Fatalf("patch after unlock: %v", err)
	}
}

func TestUpdateDetailSettlesFinalTax(test *testing.T) {
	test.Parallel()
	_, service, venue, _ := newAlphaFixture(test)
	report := mustPeriod(test, service, venue.ID, "2024-01-01", "2024-01-08")
	detailID := report.Lines[0].View.Line.ID

	adjustment := mustDecimal(test, "5")
	withdrawn := mustDecimal(test, "300")
	line, err := service.UpdateDetail(context.Background(), detailID, DetailPatch{ManualAdjustment: &adjustment, CashWithdrawn: &withdrawn})
	if err != nil {
		test.Fatalf("update detail: %v", err)
	}
	assertDecimal(test, "final tax", "75.00", line.FinalTax)
	assertDecimal(test, "gross", "305", line.Gross())
	assertDecimal(test, "net", "235.00", line.Net())

	negative := mustDecimal(test, "-1")
	if _, err := service.UpdateDetail(context.Background(), detailID, DetailPatch{EstimatedTax: &negative}); !errors.Is(err, ErrValidation) {
		test.Fatalf("expected validation error, got %v", err)
	}
	if _, err := service.UpdateDetail(context.Background(), 4242, DetailPatch{}); !errors.Is(err, ErrDetailNotFound) {
		test.Fatalf("expected detail not found, got %v", err)
	}
}

func TestDeleteDetailReconcilesRemainingLines(test *testing.T) {
	test.Parallel()
	store, service, venue, _ := newAlphaFixture(test)
	slotType := mustMachineType(test, service, "SLOT B", "70", false)
	mustMachine(test, service, MachineInput{VenueID: venue.ID, MachineTypeID: slotType.ID, Name: "Slot B"})
	report := mustPeriod(test, service, venue.ID, "2024-01-01", "2024-01-08")

	reported := mustDecimal(test, "210")
	report, err := service.UpdatePeriod(context.Background(), report.Period.ID, PeriodPatch{ReportedTax: &reported})
	if err != nil {
		test.Fatalf("update reported tax: %v", err)
	}
	for _, reportLine := range report.Lines {
		assertDecimal(test, "split final tax", "105", reportLine.View.Line.FinalTax)
	}

	if err := service.DeleteDetail(context.Background(), report.Lines[0].View.Line.ID); err != nil {
		test.Fatalf("delete detail: %v", err)
	}
	remaining := store.linesOf(report.Period.ID)
	if len(remaining) != 1 {
		test.Fatalf("expected one remaining line, got %d", len(remaining))
	}
	assertDecimal(test, "remaining final tax", "210", remaining[0].FinalTax)
}

func TestListPeriodsAndLastPeriodEnd(test *testing.T) {
	test.Parallel()
	_, service, venue, _ := newAlphaFixture(test)

	end, err := service.LastPeriodEnd(context.Background(), venue.ID)
	if err != nil || end != nil {
		test.Fatalf("expected no last end, got %v, %v", end, err)
	}

	mustPeriod(test, service, venue.ID, "2024-01-01", "2024-01-08")
	mustPeriod(test, service, venue.ID, "2024-01-15", "2024-01-22")
	mustPeriod(test, service, venue.ID, "2024-01-08", "2024-01-15")

	periods, err := service.ListPeriods(context.Background(), PeriodQuery{VenueID: venue.ID, Limit: 2})
	if err != nil {
		test.Fatalf("list periods: %v", err)
	}
	if len(periods) != 2 || !periods[0].Start.Equal(mustDate(test, "2024-01-15")) || !periods[1].Start.Equal(mustDate(test, "2024-01-08")) {
		test.Fatalf("unexpected ordering: %+v", periods)
	}
	if _, err := service.ListPeriods(context.Background(), PeriodQuery{Offset: -1}); !errors.Is(err, ErrInvalidPeriodInput) {
		test.Fatalf("expected invalid query error, got %v", err)
	}

	end, err = service.LastPeriodEnd(context.Background(), venue.ID)
	if err != nil {
		test.Fatalf("last period end: %v", err)
	}
	if end == nil || !end.Equal(mustDate(test, "2024-01-22")) {
		test.Fatalf("expected last end 2024-01-22, got %v", end)
	}
}

func TestDeletePeriodCascadesAndRemovesBlobs(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	blobs := newStubBlobStore()
	service := mustNewService(test, store, WithBlobStore(blobs))
	venue := mustVenue(test, service, "Alpha")
	machineType := mustMachineType(test, service, "SLOT", "70", false)
	mustMachine(test, service, MachineInput{VenueID: venue.ID, MachineTypeID: machineType.ID, Name: "Slot A"})
	report := mustPeriod(test, service, venue.ID, "2024-01-01", "2024-01-08")
	attachment, err := service.AttachFile(context.Background(), report.Period.ID, AttachmentInput{Filename: "week.xlsx", Data: []byte("bytes")})
	if err != nil {
		test.Fatalf("attach: %v", err)
	}

	if err := service.DeletePeriod(context.Background(), report.Period.ID); err != nil {
		test.Fatalf("delete period: %v", err)
	}
	if len(store.periods) != 0 || len(store.details) != 0 || len(store.attachments) != 0 {
		test.Fatalf("expected cascade, got %d periods %d lines %d attachments", len(store.periods), len(store.details), len(store.attachments))
	}
	if len(blobs.deleted) != 1 || blobs.deleted[0] != attachment.Path {
		test.Fatalf("expected blob %s deleted, got %v", attachment.Path, blobs.deleted)
	}
	if _, err := service.GetPeriodReport(context.Background(), report.Period.ID); !errors.Is(err, ErrPeriodNotFound) {
		test.Fatalf("expected period not found, got %v", err)
	}
}

func TestReconcileAllSkipsLockedPeriods(test *testing.T) {
	test.Parallel()
	store, service, venue, _ := newAlphaFixture(test)
	open := mustPeriod(test, service, venue.ID, "2024-01-01", "2024-01-08")
	closed := mustPeriod(test, service, venue.ID, "2024-01-08", "2024-01-15")

	lockedPeriod := store.periods[closed.Period.ID]
	lockedPeriod.Locked = true
	lockedPeriod.ReportedTax = mustDecimal(test, "99")
	store.periods[closed.Period.ID] = lockedPeriod
	openPeriod := store.periods[open.Period.ID]
	openPeriod.ReportedTax = mustDecimal(test, "90")
	store.periods[open.Period.ID] = openPeriod

	var calls []int
	summary, err := service.ReconcileAll(context.Background(), func(done int, total int) {
		calls = append(calls, done)
	})
	if err != nil {
		test.Fatalf("reconcile all: %v", err)
	}
	if summary.Total != 2 || summary.Reconciled != 1 || summary.Skipped != 1 || summary.Failed != 0 {
		test.Fatalf("unexpected summary: %+v", summary)
	}
	if len(calls) != 2 || calls[1] != 2 {
		test.Fatalf("unexpected progress calls: %v", calls)
	}
	assertDecimal(test, "open final", "90", store.linesOf(open.Period.ID)[0].FinalTax)
	assertDecimal(test, "locked final untouched", "70", store.linesOf(closed.Period.ID)[0].FinalTax)
}

func TestNewServiceValidatesDependencies(test *testing.T) {
	test.Parallel()
	if _, err := NewService(nil, DefaultConfig()); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected invalid config for nil store, got %v", err)
	}
	config := DefaultConfig()
	config.DaysPerWeek = 0
	if _, err := NewService(newStubStore(test), config); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected invalid config for zero days per week, got %v", err)
	}
}
