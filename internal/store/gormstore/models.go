package gormstore

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Venue represents the venues table.
type Venue struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"not null"`
	State     string    `gorm:"size:16;not null;default:active;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Venue) TableName() string { return "venues" }

// MachineType mirrors the machine_types table.
type MachineType struct {
	ID                uint            `gorm:"primaryKey"`
	Name              string          `gorm:"not null"`
	DefaultWeeklyRate decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	RatePerSeat       bool            `gorm:"not null;default:false"`
	MultiSeat         bool            `gorm:"not null;default:false"`
	CreatedAt         time.Time       `gorm:"not null"`
}

func (MachineType) TableName() string { return "machine_types" }

// Machine mirrors the machines table.
type Machine struct {
	ID                 uint                `gorm:"primaryKey"`
	VenueID            uint                `gorm:"not null;index:idx_machines_venue_state,priority:1"`
	MachineTypeID      uint                `gorm:"not null;index"`
	Name               string              `gorm:"not null"`
	OverrideWeeklyRate decimal.NullDecimal `gorm:"type:decimal(14,4)"`
	MultiSeat          bool                `gorm:"not null;default:false"`
	State              string              `gorm:"size:16;not null;default:active;index:idx_machines_venue_state,priority:2"`
	CreatedAt          time.Time           `gorm:"not null"`
	UpdatedAt          time.Time           `gorm:"not null"`
}

func (Machine) TableName() string { return "machines" }

// Seat mirrors the seats table. Seat numbers are unique per machine among seats that are not deleted.
type Seat struct {
	ID          uint            `gorm:"primaryKey"`
	MachineID   uint            `gorm:"not null;index:idx_seats_machine_number,unique,priority:1,where:state <> 'deleted'"`
	Number      int             `gorm:"not null;index:idx_seats_machine_number,unique,priority:2"`
	Description string          `gorm:"not null;default:''"`
	WeeklyRate  decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	State       string          `gorm:"size:16;not null;default:active"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

func (Seat) TableName() string { return "seats" }

// CollectionPeriod mirrors the collection_periods table.
type CollectionPeriod struct {
	ID               uint            `gorm:"primaryKey"`
	VenueID          uint            `gorm:"not null;index:idx_periods_venue_start,priority:1"`
	StartAt          time.Time       `gorm:"not null;index:idx_periods_venue_start,priority:2"`
	EndAt            time.Time       `gorm:"not null"`
	ClosingDate      time.Time       `gorm:"not null"`
	Label            string          `gorm:"not null;default:''"`
	Origin           string          `gorm:"size:16;not null;default:manual"`
	Notes            string          `gorm:"type:text;not null;default:''"`
	ReportedTax      decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	Deposits         decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	OtherAdjustments decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	Locked           bool            `gorm:"not null;default:false"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

func (CollectionPeriod) TableName() string { return "collection_periods" }

// DetailLine mirrors the detail_lines table.
type DetailLine struct {
	ID               uint            `gorm:"primaryKey"`
	PeriodID         uint            `gorm:"not null;index:idx_details_period_seat,unique,priority:1"`
	MachineID        uint            `gorm:"not null;index"`
	SeatID           *uint           `gorm:"index:idx_details_period_seat,unique,priority:2"`
	CashWithdrawn    decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	CashBox          decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	ManualPayout     decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	ManualAdjustment decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	EstimatedTax     decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	VarianceShare    decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	FinalTax         decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	RateNote         string          `gorm:"not null;default:''"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

func (DetailLine) TableName() string { return "detail_lines" }

// NameMapping mirrors the name_mappings table.
type NameMapping struct {
	ID        uint      `gorm:"primaryKey"`
	VenueID   uint      `gorm:"not null;index:idx_mappings_venue_label,unique,priority:1"`
	Label     string    `gorm:"not null;index:idx_mappings_venue_label,unique,priority:2"`
	SeatID    *uint     `gorm:""`
	MachineID *uint     `gorm:""`
	Ignored   bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (NameMapping) TableName() string { return "name_mappings" }

// Attachment mirrors the attachments table.
type Attachment struct {
	ID          uint      `gorm:"primaryKey"`
	PeriodID    uint      `gorm:"not null;index"`
	Path        string    `gorm:"not null"`
	Filename    string    `gorm:"not null"`
	ContentType string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (Attachment) TableName() string { return "attachments" }

// ImportRun mirrors the import_runs table.
type ImportRun struct {
	ID               uint           `gorm:"primaryKey"`
	PeriodID         uint           `gorm:"not null;index"`
	AttachmentID     *uint          `gorm:""`
	Layout           string         `gorm:"size:16;not null"`
	UpdatedLines     int            `gorm:"not null"`
	UnresolvedLabels datatypes.JSON `gorm:"not null"`
	CreatedAt        time.Time      `gorm:"not null"`
}

func (ImportRun) TableName() string { return "import_runs" }

func (run *ImportRun) BeforeCreate(tx *gorm.DB) error {
	if len(run.UnresolvedLabels) == 0 {
		run.UnresolvedLabels = datatypes.JSON([]byte(defaultLabelsJSON))
	}
	return nil
}

// Migrate creates or updates every table used by the store.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Venue{},
		&MachineType{},
		&Machine{},
		&Seat{},
		&CollectionPeriod{},
		&DetailLine{},
		&NameMapping{},
		&Attachment{},
		&ImportRun{},
	)
}
