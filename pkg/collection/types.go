package collection

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Lifecycle replaces the separate active and deleted flags of venues, machines and seats.
type Lifecycle string

const (
	LifecycleActive   Lifecycle = "active"
	LifecycleInactive Lifecycle = "inactive"
	LifecycleDeleted  Lifecycle = "deleted"
)

// ParseLifecycle validates a stored lifecycle value. An empty value reads as active.
func ParseLifecycle(raw string) (Lifecycle, error) {
	switch Lifecycle(strings.TrimSpace(raw)) {
	case "", LifecycleActive:
		return LifecycleActive, nil
	case LifecycleInactive:
		return LifecycleInactive, nil
	case LifecycleDeleted:
		return LifecycleDeleted, nil
	}
	return "", fmt.Errorf("%w: unknown lifecycle %q", ErrValidation, raw)
}

// String returns the stored representation.
func (state Lifecycle) String() string {
	return string(state)
}

// IsActive reports whether the record takes part in new periods.
func (state Lifecycle) IsActive() bool {
	return state == LifecycleActive
}

// IsLive reports whether the record has not been soft-deleted.
func (state Lifecycle) IsLive() bool {
	return state != LifecycleDeleted
}

// Origin records how a period was created.
type Origin string

const (
	OriginManual Origin = "manual"
	OriginImport Origin = "import"
)

// ParseOrigin validates an origin, defaulting to manual.
func ParseOrigin(raw string) (Origin, error) {
	switch Origin(strings.ToLower(strings.TrimSpace(raw))) {
	case "", OriginManual:
		return OriginManual, nil
	case OriginImport:
		return OriginImport, nil
	}
	return "", fmt.Errorf("%w: unknown origin %q", ErrInvalidPeriodInput, raw)
}

// String returns the stored representation.
func (origin Origin) String() string {
	return string(origin)
}

// Venue owns machines and collection periods.
type Venue struct {
	ID    uint
	Name  string
	State Lifecycle
}

// MachineType carries the default weekly rate shared by many machines.
type MachineType struct {
	ID                uint
	Name              string
	DefaultWeeklyRate decimal.Decimal
	RatePerSeat       bool
	MultiSeat         bool
}

// Machine belongs to a venue and owns one or more seats.
type Machine struct {
	ID                 uint
	VenueID            uint
	MachineTypeID      uint
	Name               string
	OverrideWeeklyRate decimal.NullDecimal
	MultiSeat          bool
	State              Lifecycle
}

// Seat is an individually tracked revenue position on a machine.
type Seat struct {
	ID          uint
	MachineID   uint
	Number      int
	Description string
	WeeklyRate  decimal.Decimal
	State       Lifecycle
}

// SeatView is a read-only join of a seat with its machine and machine type.
// SeatCount counts the live seats of the machine.
type SeatView struct {
	Seat        Seat
	Machine     Machine
	MachineType MachineType
	SeatCount   int
}

// Period is a collection period header.
type Period struct {
	ID               uint
	VenueID          uint
	Start            time.Time
	End              time.Time
	ClosingDate      time.Time
	Label            string
	Origin           Origin
	Notes            string
	ReportedTax      decimal.Decimal
	Deposits         decimal.Decimal
	OtherAdjustments decimal.Decimal
	Locked           bool
}

// DayCount returns the whole days between start and end, clamped to zero.
func (period Period) DayCount() int64 {
	return DayCount(period.Start, period.End)
}

// Overlaps applies the strict interval test; touching boundaries do not overlap.
func (period Period) Overlaps(start time.Time, end time.Time) bool {
	return start.Before(period.End) && end.After(period.Start)
}

// DetailLine is the per-seat breakdown of a period.
type DetailLine struct {
	ID               uint
	PeriodID         uint
	MachineID        uint
	SeatID           *uint
	CashWithdrawn    decimal.Decimal
	CashBox          decimal.Decimal
	ManualPayout     decimal.Decimal
	ManualAdjustment decimal.Decimal
	EstimatedTax     decimal.Decimal
	VarianceShare    decimal.Decimal
	FinalTax         decimal.Decimal
	RateNote         string
}

// Gross is withdrawn plus cash box, less payouts, plus the manual adjustment.
func (line DetailLine) Gross() decimal.Decimal {
	return line.CashWithdrawn.Add(line.CashBox).Sub(line.ManualPayout).Add(line.ManualAdjustment)
}

// Net is the gross less the estimated tax.
func (line DetailLine) Net() decimal.Decimal {
	return line.Gross().Sub(line.EstimatedTax)
}

func (line *DetailLine) settleFinalTax() {
	line.FinalTax = line.EstimatedTax.Add(line.VarianceShare).Add(line.ManualAdjustment)
}

// DetailView is a detail line joined with the machine and seat it refers to.
type DetailView struct {
	Line             DetailLine
	MachineName      string
	MachineMultiSeat bool
	SeatNumber       int
	SeatDescription  string
}

// HasSeat reports whether the line refers to a seat (legacy lines may not).
func (view DetailView) HasSeat() bool {
	return view.Line.SeatID != nil
}

// NameMapping associates a normalized spreadsheet label with a seat, a machine, or the ignore marker.
type NameMapping struct {
	ID        uint
	VenueID   uint
	Label     string
	SeatID    *uint
	MachineID *uint
	Ignored   bool
}

// Attachment points to an uploaded file in blob storage.
type Attachment struct {
	ID          uint
	PeriodID    uint
	Path        string
	Filename    string
	ContentType string
	CreatedAt   time.Time
}

// ImportRun records the outcome of one spreadsheet import.
type ImportRun struct {
	ID               uint
	PeriodID         uint
	AttachmentID     *uint
	Layout           Layout
	UpdatedLines     int
	UnresolvedLabels []string
	CreatedAt        time.Time
}

// VenueInput describes a venue to create.
type VenueInput struct {
	Name string
}

// MachineTypeInput describes a machine type to create.
type MachineTypeInput struct {
	Name              string
	DefaultWeeklyRate decimal.Decimal
	RatePerSeat       bool
	MultiSeat         bool
}

// MachineInput describes a machine and its seats. SeatDescriptions is optional and indexed by seat number - 1.
type MachineInput struct {
	VenueID            uint
	MachineTypeID      uint
	Name               string
	OverrideWeeklyRate decimal.NullDecimal
	SeatCount          int
	SeatDescriptions   []string
}

// PeriodInput describes a period to create.
type PeriodInput struct {
	VenueID     uint
	Start       time.Time
	End         time.Time
	ClosingDate time.Time
	Label       string
	Origin      Origin
	Notes       string
}

// PeriodPatch carries the optional header fields of a period update; nil fields stay untouched.
type PeriodPatch struct {
	Start            *time.Time
	End              *time.Time
	ClosingDate      *time.Time
	Label            *string
	Notes            *string
	ReportedTax      *decimal.Decimal
	Deposits         *decimal.Decimal
	OtherAdjustments *decimal.Decimal
	Locked           *bool
}

func (patch PeriodPatch) changesDates() bool {
	return patch.Start != nil || patch.End != nil
}

func (patch PeriodPatch) onlyUnlocks() bool {
	return patch.Locked != nil && !*patch.Locked &&
		!patch.changesDates() && patch.ClosingDate == nil && patch.Label == nil && patch.Notes == nil &&
		patch.ReportedTax == nil && patch.Deposits == nil && patch.OtherAdjustments == nil
}

func (patch PeriodPatch) apply(period *Period) {
	if patch.Start != nil {
		period.Start = *patch.Start
	}
	if patch.End != nil {
		period.End = *patch.End
	}
	if patch.ClosingDate != nil {
		period.ClosingDate = *patch.ClosingDate
	}
	if patch.Label != nil {
		period.Label = *patch.Label
	}
	if patch.Notes != nil {
		period.Notes = *patch.Notes
	}
	if patch.ReportedTax != nil {
		period.ReportedTax = *patch.ReportedTax
	}
	if patch.Deposits != nil {
		period.Deposits = *patch.Deposits
	}
	if patch.OtherAdjustments != nil {
		period.OtherAdjustments = *patch.OtherAdjustments
	}
	if patch.Locked != nil {
		period.Locked = *patch.Locked
	}
}

// DetailPatch carries the optional fields of a detail line update.
type DetailPatch struct {
	CashWithdrawn    *decimal.Decimal
	CashBox          *decimal.Decimal
	ManualPayout     *decimal.Decimal
	ManualAdjustment *decimal.Decimal
	EstimatedTax     *decimal.Decimal
	RateNote         *string
}

func (patch DetailPatch) apply(line *DetailLine) {
	if patch.CashWithdrawn != nil {
		line.CashWithdrawn = *patch.CashWithdrawn
	}
	if patch.CashBox != nil {
		line.CashBox = *patch.CashBox
	}
	if patch.ManualPayout != nil {
		line.ManualPayout = *patch.ManualPayout
	}
	if patch.ManualAdjustment != nil {
		line.ManualAdjustment = *patch.ManualAdjustment
	}
	if patch.EstimatedTax != nil {
		line.EstimatedTax = *patch.EstimatedTax
	}
	if patch.RateNote != nil {
		line.RateNote = *patch.RateNote
	}
}

// PeriodQuery filters period listings. A zero VenueID lists every venue.
type PeriodQuery struct {
	VenueID uint
	Offset  int
	Limit   int
}
