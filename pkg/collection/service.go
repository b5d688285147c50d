package collection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const defaultPeriodPageSize = 50

// Service contains the collection domain logic over a Store.
type Service struct {
	store  Store
	blobs  BlobStore
	codec  SpreadsheetCodec
	config Config
	nowFn  func() time.Time
	logger OperationLogger
}

// NewService wires a Service.
func NewService(store Store, config Config, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	service := &Service{
		store:  store,
		config: config,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// Config returns the engine settings the service was built with.
func (service *Service) Config() Config {
	return service.config
}

// CreateVenue stores a new active venue.
func (service *Service) CreateVenue(ctx context.Context, input VenueInput) (Venue, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Venue{}, fmt.Errorf("%w: name is required", ErrInvalidVenueInput)
	}
	venue, err := service.store.CreateVenue(ctx, Venue{Name: name, State: LifecycleActive})
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateVenue,
		VenueID:   venue.ID,
		Error:     err,
	})
	return venue, err
}

// ListVenues returns every live venue.
func (service *Service) ListVenues(ctx context.Context) ([]Venue, error) {
	return service.store.ListVenues(ctx)
}

// CreateMachineType stores a machine type with its default weekly rate.
func (service *Service) CreateMachineType(ctx context.Context, input MachineTypeInput) (MachineType, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return MachineType{}, fmt.Errorf("%w: machine type name is required", ErrInvalidMachineInput)
	}
	if input.DefaultWeeklyRate.IsNegative() {
		return MachineType{}, fmt.Errorf("%w: default weekly rate must not be negative", ErrInvalidMachineInput)
	}
	machineType, err := service.store.CreateMachineType(ctx, MachineType{
		Name:              name,
		DefaultWeeklyRate: input.DefaultWeeklyRate,
		RatePerSeat:       input.RatePerSeat,
		MultiSeat:         input.MultiSeat,
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateMachineType,
		Error:     err,
	})
	return machineType, err
}

// AddMachine stores a machine and its seats. Each seat's weekly rate is resolved from the machine override or
// the machine type at creation and is independent afterwards.
func (service *Service) AddMachine(ctx context.Context, input MachineInput) (Machine, []Seat, error) {
	name := strings.TrimSpace(input.Name)
	switch {
	case input.VenueID == 0:
		return Machine{}, nil, fmt.Errorf("%w: venue is required", ErrInvalidMachineInput)
	case input.MachineTypeID == 0:
		return Machine{}, nil, fmt.Errorf("%w: machine type is required", ErrInvalidMachineInput)
	case name == "":
		return Machine{}, nil, fmt.Errorf("%w: machine name is required", ErrInvalidMachineInput)
	case input.SeatCount < 0:
		return Machine{}, nil, fmt.Errorf("%w: seat count must not be negative", ErrInvalidMachineInput)
	case input.OverrideWeeklyRate.Valid && input.OverrideWeeklyRate.Decimal.IsNegative():
		return Machine{}, nil, fmt.Errorf("%w: override weekly rate must not be negative", ErrInvalidMachineInput)
	}
	seatCount := input.SeatCount
	if seatCount == 0 {
		seatCount = 1
	}

	var (
		machine Machine
		seats   []Seat
	)
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if _, err := transactionStore.GetVenue(ctx, input.VenueID); err != nil {
			return err
		}
		machineType, err := transactionStore.GetMachineType(ctx, input.MachineTypeID)
		if err != nil {
			return err
		}
		machine = Machine{
			VenueID:            input.VenueID,
			MachineTypeID:      machineType.ID,
			Name:               name,
			OverrideWeeklyRate: input.OverrideWeeklyRate,
			MultiSeat:          machineType.MultiSeat || seatCount > 1,
			State:              LifecycleActive,
		}
		pending := make([]Seat, seatCount)
		for index := range pending {
			seat := Seat{Number: index + 1, State: LifecycleActive}
			if index < len(input.SeatDescriptions) {
				seat.Description = strings.TrimSpace(input.SeatDescriptions[index])
			}
			// A rate-per-seat type gives every seat rate x seats, so an N-seat machine owes N x N x rate a week.
			seat.WeeklyRate = ResolveWeeklyRate(SeatView{
				Seat:        seat,
				Machine:     machine,
				MachineType: machineType,
				SeatCount:   seatCount,
			}).Amount
			pending[index] = seat
		}
		machine, seats, err = transactionStore.CreateMachine(ctx, machine, pending)
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationAddMachine,
		VenueID:   input.VenueID,
		LineCount: len(seats),
		Error:     operationError,
	})
	if operationError != nil {
		return Machine{}, nil, operationError
	}
	return machine, seats, nil
}

// CreatePeriod validates that the new period does not overlap any other period of the venue, stores it and
// generates one estimated detail line per active seat, all in one transaction.
func (service *Service) CreatePeriod(ctx context.Context, input PeriodInput) (PeriodReport, error) {
	period, err := newPeriod(input)
	if err != nil {
		return PeriodReport{}, err
	}
	lineCount := 0
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if _, err := transactionStore.GetVenue(ctx, period.VenueID); err != nil {
			return err
		}
		if err := checkOverlap(ctx, transactionStore, period); err != nil {
			return err
		}
		created, err := transactionStore.CreatePeriod(ctx, period)
		if err != nil {
			return err
		}
		period = created
		seats, err := transactionStore.ListActiveSeats(ctx, period.VenueID)
		if err != nil {
			return err
		}
		if len(seats) == 0 {
			return nil
		}
		dayCount := period.DayCount()
		lines := make([]DetailLine, 0, len(seats))
		for _, view := range seats {
			lines = append(lines, service.estimateLine(period.ID, view, dayCount))
		}
		lineCount = len(lines)
		return transactionStore.CreateDetails(ctx, lines)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationCreatePeriod,
		VenueID:   period.VenueID,
		PeriodID:  period.ID,
		LineCount: lineCount,
		Error:     operationError,
	})
	if operationError != nil {
		return PeriodReport{}, operationError
	}
	return service.GetPeriodReport(ctx, period.ID)
}

// GetPeriodReport loads a period with its venue name, ordered detail lines and totals.
func (service *Service) GetPeriodReport(ctx context.Context, periodID uint) (PeriodReport, error) {
	return loadReport(ctx, service.store, periodID)
}

// ListPeriods returns periods ordered by start, newest first.
func (service *Service) ListPeriods(ctx context.Context, query PeriodQuery) ([]Period, error) {
	if query.Offset < 0 || query.Limit < 0 {
		return nil, fmt.Errorf("%w: offset and limit must not be negative", ErrInvalidPeriodInput)
	}
	if query.Limit == 0 {
		query.Limit = defaultPeriodPageSize
	}
	return service.store.ListPeriods(ctx, query)
}

// LastPeriodEnd returns the end of the venue's latest period, or nil when the venue has none.
func (service *Service) LastPeriodEnd(ctx context.Context, venueID uint) (*time.Time, error) {
	if _, err := service.store.GetVenue(ctx, venueID); err != nil {
		return nil, err
	}
	periods, err := service.store.ListVenuePeriods(ctx, venueID)
	if err != nil {
		return nil, err
	}
	var latest *Period
	for index := range periods {
		if latest == nil || periods[index].Start.After(latest.Start) {
			latest = &periods[index]
		}
	}
	if latest == nil {
		return nil, nil
	}
	end := latest.End
	return &end, nil
}

// UpdatePeriod applies a header patch. Changing the dates re-checks overlap and re-estimates every line;
// changing the dates or the reported tax re-runs reconciliation.
func (service *Service) UpdatePeriod(ctx context.Context, periodID uint, patch PeriodPatch) (PeriodReport, error) {
	var venueID uint
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		period, err := transactionStore.GetPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		venueID = period.VenueID
		if period.Locked && !patch.onlyUnlocks() {
			return lockedError(period.ID)
		}
		previous := period
		patch.apply(&period)
		period.Start, period.End, period.ClosingDate = period.Start.UTC(), period.End.UTC(), period.ClosingDate.UTC()

		datesChanged := !period.Start.Equal(previous.Start) || !period.End.Equal(previous.End)
		if datesChanged {
			if err := checkOverlap(ctx, transactionStore, period); err != nil {
				return err
			}
		}
		if err := transactionStore.UpdatePeriod(ctx, period); err != nil {
			return err
		}
		switch {
		case datesChanged:
			return service.reestimate(ctx, transactionStore, period)
		case !period.ReportedTax.Equal(previous.ReportedTax):
			return service.reconcilePeriod(ctx, transactionStore, period)
		}
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationUpdatePeriod,
		VenueID:   venueID,
		PeriodID:  periodID,
		Error:     operationError,
	})
	if operationError != nil {
		return PeriodReport{}, operationError
	}
	return service.GetPeriodReport(ctx, periodID)
}

// DeletePeriod removes a period with its lines, attachments and import history.
// Stored files are removed after the transaction commits; failures there leave orphaned blobs only.
func (service *Service) DeletePeriod(ctx context.Context, periodID uint) error {
	var (
		venueID     uint
		attachments []Attachment
	)
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		period, err := transactionStore.GetPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		venueID = period.VenueID
		if period.Locked {
			return lockedError(period.ID)
		}
		attachments, err = transactionStore.ListAttachments(ctx, periodID)
		if err != nil {
			return err
		}
		return transactionStore.DeletePeriod(ctx, periodID)
	})
	if operationError == nil && service.blobs != nil {
		for _, attachment := range attachments {
			_ = service.blobs.Delete(ctx, attachment.Path)
		}
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationDeletePeriod,
		VenueID:   venueID,
		PeriodID:  periodID,
		Error:     operationError,
	})
	return operationError
}

// Reconcile re-distributes the variance between the reported tax and the estimates of a period.
func (service *Service) Reconcile(ctx context.Context, periodID uint) (PeriodReport, error) {
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
		return service.reconcilePeriod(ctx, transactionStore, period)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationReconcile,
		VenueID:   venueID,
		PeriodID:  periodID,
		Error:     operationError,
	})
	if operationError != nil {
		return PeriodReport{}, operationError
	}
	return service.GetPeriodReport(ctx, periodID)
}

// ReconcileSummary counts the outcome of a batch reconciliation.
type ReconcileSummary struct {
	Total      int
	Reconciled int
	Skipped    int
	Failed     int
}

// ReconcileProgress is called after each period of a batch reconciliation.
type ReconcileProgress func(done int, total int)

// ReconcileAll reconciles every unlocked period, each in its own transaction. Failures do not stop the batch;
// they are joined into the returned error.
func (service *Service) ReconcileAll(ctx context.Context, progress ReconcileProgress) (ReconcileSummary, error) {
	periods, err := service.store.ListPeriods(ctx, PeriodQuery{})
	if err != nil {
		return ReconcileSummary{}, err
	}
	summary := ReconcileSummary{Total: len(periods)}
	var failures []error
	for index, period := range periods {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}
		if period.Locked {
			summary.Skipped++
		} else if _, err := service.Reconcile(ctx, period.ID); err != nil {
			summary.Failed++
			failures = append(failures, fmt.Errorf("period %d: %w", period.ID, err))
		} else {
			summary.Reconciled++
		}
		if progress != nil {
			progress(index+1, len(periods))
		}
	}
	return summary, errors.Join(failures...)
}

func (service *Service) estimateLine(periodID uint, view SeatView, dayCount int64) DetailLine {
	rate := ResolveWeeklyRate(view)
	estimate := service.config.Prorate(rate.Amount, dayCount)
	seatID := view.Seat.ID
	return DetailLine{
		PeriodID:     periodID,
		MachineID:    view.Machine.ID,
		SeatID:       &seatID,
		EstimatedTax: estimate,
		FinalTax:     estimate,
		RateNote:     rate.Note,
	}
}

// reestimate recomputes every line's estimate for the period's current day count and reconciles.
// Lines without a seat, or whose seat no longer exists, keep their estimate.
func (service *Service) reestimate(ctx context.Context, store Store, period Period) error {
	views, err := store.ListDetails(ctx, period.ID)
	if err != nil {
		return err
	}
	dayCount := period.DayCount()
	lines := make([]DetailLine, len(views))
	for index, view := range views {
		line := view.Line
		if line.SeatID != nil {
			seatView, err := store.GetSeatView(ctx, *line.SeatID)
			switch {
			case errors.Is(err, ErrSeatNotFound):
			case err != nil:
				return err
			default:
				rate := ResolveWeeklyRate(seatView)
				line.EstimatedTax = service.config.Prorate(rate.Amount, dayCount)
				line.RateNote = rate.Note
			}
		}
		lines[index] = line
	}
	return store.SaveDetails(ctx, service.config.DistributeVariance(period.ReportedTax, lines))
}

func (service *Service) reconcilePeriod(ctx context.Context, store Store, period Period) error {
	views, err := store.ListDetails(ctx, period.ID)
	if err != nil {
		return err
	}
	if len(views) == 0 {
		return nil
	}
	lines := make([]DetailLine, len(views))
	for index, view := range views {
		lines[index] = view.Line
	}
	return store.SaveDetails(ctx, service.config.DistributeVariance(period.ReportedTax, lines))
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}

func newPeriod(input PeriodInput) (Period, error) {
	switch {
	case input.VenueID == 0:
		return Period{}, fmt.Errorf("%w: venue is required", ErrInvalidPeriodInput)
	case input.Start.IsZero():
		return Period{}, fmt.Errorf("%w: start is required", ErrInvalidPeriodInput)
	case input.End.IsZero():
		return Period{}, fmt.Errorf("%w: end is required", ErrInvalidPeriodInput)
	}
	origin, err := ParseOrigin(string(input.Origin))
	if err != nil {
		return Period{}, err
	}
	closingDate := input.ClosingDate
	if closingDate.IsZero() {
		closingDate = input.End
	}
	return Period{
		VenueID:     input.VenueID,
		Start:       input.Start.UTC(),
		End:         input.End.UTC(),
		ClosingDate: closingDate.UTC(),
		Label:       strings.TrimSpace(input.Label),
		Origin:      origin,
		Notes:       input.Notes,
	}, nil
}

func checkOverlap(ctx context.Context, store Store, period Period) error {
	existing, err := store.ListVenuePeriods(ctx, period.VenueID)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == period.ID {
			continue
		}
		if other.Overlaps(period.Start, period.End) {
			return WrapError(errorOperationService, errorSubjectPeriod, errorCodeOverlap,
				fmt.Errorf("%w: period %d covers %s to %s", ErrPeriodOverlap, other.ID,
					other.Start.Format(time.RFC3339), other.End.Format(time.RFC3339)))
		}
	}
	return nil
}

func lockedError(periodID uint) error {
	return WrapError(errorOperationService, errorSubjectPeriod, errorCodeLocked,
		fmt.Errorf("%w: period %d", ErrPeriodLocked, periodID))
}

func loadReport(ctx context.Context, store Store, periodID uint) (PeriodReport, error) {
	period, err := store.GetPeriod(ctx, periodID)
	if err != nil {
		return PeriodReport{}, err
	}
	venue, err := store.GetVenue(ctx, period.VenueID)
	if err != nil {
		return PeriodReport{}, err
	}
	views, err := store.ListDetails(ctx, periodID)
	if err != nil {
		return PeriodReport{}, err
	}
	return BuildReport(period, venue.Name, views), nil
}
