package collection

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the persistence contract used by Service.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error

	CreateVenue(ctx context.Context, venue Venue) (Venue, error)
	GetVenue(ctx context.Context, venueID uint) (Venue, error)
	ListVenues(ctx context.Context) ([]Venue, error)
	CreateMachineType(ctx context.Context, machineType MachineType) (MachineType, error)
	GetMachineType(ctx context.Context, machineTypeID uint) (MachineType, error)
	CreateMachine(ctx context.Context, machine Machine, seats []Seat) (Machine, []Seat, error)
	ListActiveSeats(ctx context.Context, venueID uint) ([]SeatView, error)
	GetSeatView(ctx context.Context, seatID uint) (SeatView, error)

	CreatePeriod(ctx context.Context, period Period) (Period, error)
	GetPeriod(ctx context.Context, periodID uint) (Period, error)
	ListPeriods(ctx context.Context, query PeriodQuery) ([]Period, error)
	ListVenuePeriods(ctx context.Context, venueID uint) ([]Period, error)
	UpdatePeriod(ctx context.Context, period Period) error
	DeletePeriod(ctx context.Context, periodID uint) error

	CreateDetails(ctx context.Context, lines []DetailLine) error
	GetDetail(ctx context.Context, detailID uint) (DetailLine, error)
	ListDetails(ctx context.Context, periodID uint) ([]DetailView, error)
	SaveDetails(ctx context.Context, lines []DetailLine) error
	DeleteDetail(ctx context.Context, detailID uint) error

	ListNameMappings(ctx context.Context, venueID uint) ([]NameMapping, error)
	UpsertNameMapping(ctx context.Context, mapping NameMapping) error

	CreateAttachment(ctx context.Context, attachment Attachment) (Attachment, error)
	GetAttachment(ctx context.Context, attachmentID uint) (Attachment, error)
	ListAttachments(ctx context.Context, periodID uint) ([]Attachment, error)
	DeleteAttachment(ctx context.Context, attachmentID uint) error

	RecordImportRun(ctx context.Context, run ImportRun) error
	ListImportRuns(ctx context.Context, periodID uint) ([]ImportRun, error)
}

// BlobStore keeps uploaded spreadsheet bytes under opaque paths.
type BlobStore interface {
	Put(ctx context.Context, filename string, contentType string, data []byte) (string, error)
	Get(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

// Layout identifies one of the two supported spreadsheet layouts.
type Layout string

const (
	LayoutNormalized Layout = "normalized"
	LayoutLegacy     Layout = "legacy"
)

// String returns the stored representation.
func (layout Layout) String() string {
	return string(layout)
}

// ExtractedRow holds the figures read for one labelled row.
// Legacy sheets carry no adjustment column, so ManualAdjustment is only valid for the normalized layout.
type ExtractedRow struct {
	Row              int
	Label            string
	CashWithdrawn    decimal.Decimal
	CashBox          decimal.Decimal
	ManualPayout     decimal.Decimal
	ManualAdjustment decimal.NullDecimal
}

// ExtractedTotals holds the period-level figures found in a sheet.
type ExtractedTotals struct {
	ReportedTax      decimal.NullDecimal
	Deposits         decimal.NullDecimal
	OtherAdjustments decimal.NullDecimal
}

// Extraction is the decoded content of an uploaded workbook.
type Extraction struct {
	Layout Layout
	Rows   []ExtractedRow
	Totals ExtractedTotals
}

// SheetMetadata is the best-effort header content used to prefill a new period.
type SheetMetadata struct {
	Normalized bool
	VenueName  string
	Start      *time.Time
	End        *time.Time
}

// SpreadsheetCodec converts between workbook bytes and domain values.
type SpreadsheetCodec interface {
	Decode(data []byte) (Extraction, error)
	Encode(report PeriodReport) ([]byte, error)
	ReadMetadata(data []byte) (SheetMetadata, error)
}
