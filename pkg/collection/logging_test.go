package collection

import (
	"context"
	"errors"
	"testing"
)

func TestServiceLogsCreatePeriod(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	logger := &recorderLogger{}
	service := mustNewService(test, store, WithOperationLogger(logger))
	venue := mustVenue(test, service, "Alpha")
	machineType := mustMachineType(test, service, "SLOT", "70", false)
	mustMachine(test, service, MachineInput{VenueID: venue.ID, MachineTypeID: machineType.ID, Name: "Slot A"})
	logger.entries = nil

	report := mustPeriod(test, service, venue.ID, "2024-01-01", "2024-01-08")

	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	entry := logger.entries[0]
	if entry.Operation != operationCreatePeriod || entry.VenueID != venue.ID || entry.PeriodID != report.Period.ID || entry.LineCount != 1 {
		test.Fatalf("unexpected log entry: %+v", entry)
	}
	if entry.Error != nil || entry.Status != operationStatusOK {
		test.Fatalf("expected successful log entry, got %+v", entry)
	}
}

func TestServiceLogsErrorStatus(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	logger := &recorderLogger{}
	service := mustNewService(test, store, WithOperationLogger(logger))
	venue := mustVenue(test, service, "Alpha")
	machineType := mustMachineType(test, service, "SLOT", "70", false)
	mustMachine(test, service, MachineInput{VenueID: venue.ID, MachineTypeID: machineType.ID, Name: "Slot A"})
	report := mustPeriod(test, service, venue.ID, "2024-01-01", "2024-01-08")
	store.saveErr = errors.New("disk full")
	logger.entries = nil

	_, err := service.Reconcile(context.Background(), report.Period.ID)
	if err == nil {
		test.Fatalf("expected error")
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	entry := logger.entries[0]
	if entry.Operation != operationReconcile || entry.Status != operationStatusError || !errors.Is(entry.Error, store.saveErr) {
		test.Fatalf("unexpected error log entry: %+v", entry)
	}
}
