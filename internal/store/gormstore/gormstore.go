package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/collections/pkg/collection"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultLabelsJSON      = "[]"
	pgUniqueViolationCode  = "23505"
	sqliteConstraintCode   = 19
	errorOperationStore    = "store"
	errorSubjectVenue      = "venue"
	errorSubjectType       = "machine_type"
	errorSubjectMachine    = "machine"
	errorSubjectSeat       = "seat"
	errorSubjectPeriod     = "period"
	errorSubjectDetail     = "detail"
	errorSubjectMapping    = "mapping"
	errorSubjectAttachment = "attachment"
	errorSubjectImportRun  = "import_run"
	errorCodeCreate        = "create"
	errorCodeDelete        = "delete"
	errorCodeDuplicate     = "duplicate"
	errorCodeGet           = "get"
	errorCodeInvalid       = "invalid"
	errorCodeList          = "list"
	errorCodeUpdate        = "update"
	errorCodeUpsert        = "upsert"

	seatViewColumns = `seats.id AS seat_id, seats.machine_id AS seat_machine_id, seats.number AS seat_number,
seats.description AS seat_description, seats.weekly_rate AS seat_weekly_rate, seats.state AS seat_state,
machines.venue_id AS machine_venue_id, machines.machine_type_id AS machine_type_id, machines.name AS machine_name,
machines.override_weekly_rate AS machine_override, machines.multi_seat AS machine_multi_seat, machines.state AS machine_state,
machine_types.name AS type_name, machine_types.default_weekly_rate AS type_default_rate,
machine_types.rate_per_seat AS type_rate_per_seat, machine_types.multi_seat AS type_multi_seat,
(SELECT COUNT(*) FROM seats AS siblings WHERE siblings.machine_id = seats.machine_id AND siblings.state <> 'deleted') AS seat_count`
	seatJoinMachines = "JOIN machines ON machines.id = seats.machine_id"
	seatJoinTypes    = "JOIN machine_types ON machine_types.id = machines.machine_type_id"

	detailViewColumns = `detail_lines.*, machines.name AS machine_name, machines.multi_seat AS machine_multi_seat,
COALESCE(seats.number, 0) AS seat_number, COALESCE(seats.description, '') AS seat_description`
	detailJoinMachines = "JOIN machines ON machines.id = detail_lines.machine_id"
	detailJoinSeats    = "LEFT JOIN seats ON seats.id = detail_lines.seat_id"
)

// Store implements collection.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore collection.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) CreateVenue(ctx context.Context, venue collection.Venue) (collection.Venue, error) {
	model := Venue{Name: venue.Name, State: stateOrActive(venue.State)}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return collection.Venue{}, wrapCreateError(errorSubjectVenue, err)
	}
	return mapVenue(model)
}

func (store *Store) GetVenue(ctx context.Context, venueID uint) (collection.Venue, error) {
	var model Venue
	err := store.db.WithContext(ctx).
		Where("id = ? AND state <> ?", venueID, collection.LifecycleDeleted.String()).
		Take(&model).Error
	if err != nil {
		return collection.Venue{}, wrapGetError(errorSubjectVenue, collection.ErrVenueNotFound, err)
	}
	return mapVenue(model)
}

func (store *Store) ListVenues(ctx context.Context) ([]collection.Venue, error) {
	var rows []Venue
	err := store.db.WithContext(ctx).
		Where("state <> ?", collection.LifecycleDeleted.String()).
		Order("name ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectVenue, errorCodeList, err)
	}
	venues := make([]collection.Venue, 0, len(rows))
	for _, row := range rows {
		venue, err := mapVenue(row)
		if err != nil {
			return nil, err
		}
		venues = append(venues, venue)
	}
	return venues, nil
}

func (store *Store) CreateMachineType(ctx context.Context, machineType collection.MachineType) (collection.MachineType, error) {
	model := MachineType{
		Name:              machineType.Name,
		DefaultWeeklyRate: machineType.DefaultWeeklyRate,
		RatePerSeat:       machineType.RatePerSeat,
		MultiSeat:         machineType.MultiSeat,
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return collection.MachineType{}, wrapCreateError(errorSubjectType, err)
	}
	return mapMachineType(model), nil
}

func (store *Store) GetMachineType(ctx context.Context, machineTypeID uint) (collection.MachineType, error) {
	var model MachineType
	if err := store.db.WithContext(ctx).Where("id = ?", machineTypeID).Take(&model).Error; err != nil {
		return collection.MachineType{}, wrapGetError(errorSubjectType, collection.ErrMachineTypeNotFound, err)
	}
	return mapMachineType(model), nil
}

func (store *Store) CreateMachine(ctx context.Context, machine collection.Machine, seats []collection.Seat) (collection.Machine, []collection.Seat, error) {
	machineModel := Machine{
		VenueID:            machine.VenueID,
		MachineTypeID:      machine.MachineTypeID,
		Name:               machine.Name,
		OverrideWeeklyRate: machine.OverrideWeeklyRate,
		MultiSeat:          machine.MultiSeat,
		State:              stateOrActive(machine.State),
	}
	if err := store.db.WithContext(ctx).Create(&machineModel).Error; err != nil {
		return collection.Machine{}, nil, wrapCreateError(errorSubjectMachine, err)
	}
	createdMachine, err := mapMachine(machineModel)
	if err != nil {
		return collection.Machine{}, nil, err
	}
	if len(seats) == 0 {
		return createdMachine, nil, nil
	}

	seatModels := make([]Seat, len(seats))
	for index, seat := range seats {
		seatModels[index] = Seat{
			MachineID:   machineModel.ID,
			Number:      seat.Number,
			Description: seat.Description,
			WeeklyRate:  seat.WeeklyRate,
			State:       stateOrActive(seat.State),
		}
	}
	if err := store.db.WithContext(ctx).Create(&seatModels).Error; err != nil {
		return collection.Machine{}, nil, wrapCreateError(errorSubjectSeat, err)
	}
	createdSeats := make([]collection.Seat, 0, len(seatModels))
	for _, model := range seatModels {
		seat, err := mapSeat(model)
		if err != nil {
			return collection.Machine{}, nil, err
		}
		createdSeats = append(createdSeats, seat)
	}
	return createdMachine, createdSeats, nil
}

func (store *Store) ListActiveSeats(ctx context.Context, venueID uint) ([]collection.SeatView, error) {
	var rows []seatViewRow
	err := store.seatViews(ctx).
		Where("machines.venue_id = ?", venueID).
		Where("machines.state = ? AND seats.state = ?", collection.LifecycleActive.String(), collection.LifecycleActive.String()).
		Order("machines.id ASC, seats.number ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectSeat, errorCodeList, err)
	}
	views := make([]collection.SeatView, 0, len(rows))
	for _, row := range rows {
		view, err := row.toDomain()
		if err != nil {
			return nil, wrapStoreError(errorSubjectSeat, errorCodeInvalid, err)
		}
		views = append(views, view)
	}
	return views, nil
}

func (store *Store) GetSeatView(ctx context.Context, seatID uint) (collection.SeatView, error) {
	var rows []seatViewRow
	err := store.seatViews(ctx).
		Where("seats.id = ? AND seats.state <> ?", seatID, collection.LifecycleDeleted.String()).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return collection.SeatView{}, wrapStoreError(errorSubjectSeat, errorCodeGet, err)
	}
	if len(rows) == 0 {
		return collection.SeatView{}, wrapStoreError(errorSubjectSeat, errorCodeGet, collection.ErrSeatNotFound)
	}
	view, err := rows[0].toDomain()
	if err != nil {
		return collection.SeatView{}, wrapStoreError(errorSubjectSeat, errorCodeInvalid, err)
	}
	return view, nil
}

func (store *Store) seatViews(ctx context.Context) *gorm.DB {
	return store.db.WithContext(ctx).
		Table("seats").
		Select(seatViewColumns).
		Joins(seatJoinMachines).
		Joins(seatJoinTypes)
}

func (store *Store) CreatePeriod(ctx context.Context, period collection.Period) (collection.Period, error) {
	model := periodModel(period)
	model.ID = 0
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return collection.Period{}, wrapCreateError(errorSubjectPeriod, err)
	}
	return mapPeriod(model)
}

func (store *Store) GetPeriod(ctx context.Context, periodID uint) (collection.Period, error) {
	var model CollectionPeriod
	if err := store.db.WithContext(ctx).Where("id = ?", periodID).Take(&model).Error; err != nil {
		return collection.Period{}, wrapGetError(errorSubjectPeriod, collection.ErrPeriodNotFound, err)
	}
	return mapPeriod(model)
}

func (store *Store) ListPeriods(ctx context.Context, query collection.PeriodQuery) ([]collection.Period, error) {
	statement := store.db.WithContext(ctx).Model(&CollectionPeriod{})
	if query.VenueID != 0 {
		statement = statement.Where("venue_id = ?", query.VenueID)
	}
	statement = statement.Order("start_at DESC, id DESC")
	if query.Offset > 0 {
		statement = statement.Offset(query.Offset)
	}
	if query.Limit > 0 {
		statement = statement.Limit(query.Limit)
	}
	var rows []CollectionPeriod
	if err := statement.Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectPeriod, errorCodeList, err)
	}
	periods := make([]collection.Period, 0, len(rows))
	for _, row := range rows {
		period, err := mapPeriod(row)
		if err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}
	return periods, nil
}

func (store *Store) ListVenuePeriods(ctx context.Context, venueID uint) ([]collection.Period, error) {
	return store.ListPeriods(ctx, collection.PeriodQuery{VenueID: venueID})
}

func (store *Store) UpdatePeriod(ctx context.Context, period collection.Period) error {
	result := store.db.WithContext(ctx).
		Model(&CollectionPeriod{}).
		Where("id = ?", period.ID).
		Updates(map[string]interface{}{
			"start_at":          period.Start.UTC(),
			"end_at":            period.End.UTC(),
			"closing_date":      period.ClosingDate.UTC(),
			"label":             period.Label,
			"origin":            period.Origin.String(),
			"notes":             period.Notes,
			"reported_tax":      period.ReportedTax,
			"deposits":          period.Deposits,
			"other_adjustments": period.OtherAdjustments,
			"locked":            period.Locked,
			"updated_at":        time.Now().UTC(),
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectPeriod, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectPeriod, errorCodeUpdate, collection.ErrPeriodNotFound)
	}
	return nil
}

// DeletePeriod removes the period with its import runs, attachments and detail lines.
func (store *Store) DeletePeriod(ctx context.Context, periodID uint) error {
	db := store.db.WithContext(ctx)
	for _, dependent := range []interface{}{&ImportRun{}, &Attachment{}, &DetailLine{}} {
		if err := db.Where("period_id = ?", periodID).Delete(dependent).Error; err != nil {
			return wrapStoreError(errorSubjectPeriod, errorCodeDelete, err)
		}
	}
	result := db.Where("id = ?", periodID).Delete(&CollectionPeriod{})
	if result.Error != nil {
		return wrapStoreError(errorSubjectPeriod, errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectPeriod, errorCodeDelete, collection.ErrPeriodNotFound)
	}
	return nil
}

func (store *Store) CreateDetails(ctx context.Context, lines []collection.DetailLine) error {
	if len(lines) == 0 {
		return nil
	}
	models := make([]DetailLine, len(lines))
	for index, line := range lines {
		models[index] = detailModel(line)
		models[index].ID = 0
	}
	if err := store.db.WithContext(ctx).Create(&models).Error; err != nil {
		return wrapCreateError(errorSubjectDetail, err)
	}
	return nil
}

func (store *Store) GetDetail(ctx context.Context, detailID uint) (collection.DetailLine, error) {
	var model DetailLine
	if err := store.db.WithContext(ctx).Where("id = ?", detailID).Take(&model).Error; err != nil {
		return collection.DetailLine{}, wrapGetError(errorSubjectDetail, collection.ErrDetailNotFound, err)
	}
	return mapDetail(model), nil
}

func (store *Store) ListDetails(ctx context.Context, periodID uint) ([]collection.DetailView, error) {
	var rows []detailViewRow
	err := store.db.WithContext(ctx).
		Table("detail_lines").
		Select(detailViewColumns).
		Joins(detailJoinMachines).
		Joins(detailJoinSeats).
		Where("detail_lines.period_id = ?", periodID).
		Order("detail_lines.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectDetail, errorCodeList, err)
	}
	views := make([]collection.DetailView, len(rows))
	for index, row := range rows {
		views[index] = collection.DetailView{
			Line:             mapDetail(row.DetailLine),
			MachineName:      row.MachineName,
			MachineMultiSeat: row.MachineMultiSeat,
			SeatNumber:       row.SeatNumber,
			SeatDescription:  row.SeatDescription,
		}
	}
	return views, nil
}

func (store *Store) SaveDetails(ctx context.Context, lines []collection.DetailLine) error {
	db := store.db.WithContext(ctx)
	now := time.Now().UTC()
	for _, line := range lines {
		result := db.Model(&DetailLine{}).
			Where("id = ?", line.ID).
			Updates(map[string]interface{}{
				"cash_withdrawn":    line.CashWithdrawn,
				"cash_box":          line.CashBox,
				"manual_payout":     line.ManualPayout,
				"manual_adjustment": line.ManualAdjustment,
				"estimated_tax":     line.EstimatedTax,
				"variance_share":    line.VarianceShare,
				"final_tax":         line.FinalTax,
				"rate_note":         line.RateNote,
				"updated_at":        now,
			})
		if result.Error != nil {
			return wrapStoreError(errorSubjectDetail, errorCodeUpdate, result.Error)
		}
		if result.RowsAffected == 0 {
			return wrapStoreError(errorSubjectDetail, errorCodeUpdate, collection.ErrDetailNotFound)
		}
	}
	return nil
}

func (store *Store) DeleteDetail(ctx context.Context, detailID uint) error {
	result := store.db.WithContext(ctx).Where("id = ?", detailID).Delete(&DetailLine{})
	if result.Error != nil {
		return wrapStoreError(errorSubjectDetail, errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectDetail, errorCodeDelete, collection.ErrDetailNotFound)
	}
	return nil
}

func (store *Store) ListNameMappings(ctx context.Context, venueID uint) ([]collection.NameMapping, error) {
	var rows []NameMapping
	err := store.db.WithContext(ctx).
		Where("venue_id = ?", venueID).
		Order("label ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectMapping, errorCodeList, err)
	}
	mappings := make([]collection.NameMapping, len(rows))
	for index, row := range rows {
		mappings[index] = collection.NameMapping{
			ID:        row.ID,
			VenueID:   row.VenueID,
			Label:     row.Label,
			SeatID:    row.SeatID,
			MachineID: row.MachineID,
			Ignored:   row.Ignored,
		}
	}
	return mappings, nil
}

// UpsertNameMapping inserts or replaces the mapping of a label within its venue.
func (store *Store) UpsertNameMapping(ctx context.Context, mapping collection.NameMapping) error {
	model := NameMapping{
		VenueID:   mapping.VenueID,
		Label:     mapping.Label,
		SeatID:    mapping.SeatID,
		MachineID: mapping.MachineID,
		Ignored:   mapping.Ignored,
	}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "venue_id"}, {Name: "label"}},
			DoUpdates: clause.AssignmentColumns([]string{"seat_id", "machine_id", "ignored", "updated_at"}),
		}).
		Create(&model).Error
	if err != nil {
		return wrapStoreError(errorSubjectMapping, errorCodeUpsert, err)
	}
	return nil
}

func (store *Store) CreateAttachment(ctx context.Context, attachment collection.Attachment) (collection.Attachment, error) {
	model := Attachment{
		PeriodID:    attachment.PeriodID,
		Path:        attachment.Path,
		Filename:    attachment.Filename,
		ContentType: attachment.ContentType,
		CreatedAt:   attachment.CreatedAt.UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return collection.Attachment{}, wrapCreateError(errorSubjectAttachment, err)
	}
	return mapAttachment(model), nil
}

func (store *Store) GetAttachment(ctx context.Context, attachmentID uint) (collection.Attachment, error) {
	var model Attachment
	if err := store.db.WithContext(ctx).Where("id = ?", attachmentID).Take(&model).Error; err != nil {
		return collection.Attachment{}, wrapGetError(errorSubjectAttachment, collection.ErrAttachmentNotFound, err)
	}
	return mapAttachment(model), nil
}

func (store *Store) ListAttachments(ctx context.Context, periodID uint) ([]collection.Attachment, error) {
	var rows []Attachment
	err := store.db.WithContext(ctx).
		Where("period_id = ?", periodID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectAttachment, errorCodeList, err)
	}
	attachments := make([]collection.Attachment, len(rows))
	for index, row := range rows {
		attachments[index] = mapAttachment(row)
	}
	return attachments, nil
}

func (store *Store) DeleteAttachment(ctx context.Context, attachmentID uint) error {
	result := store.db.WithContext(ctx).Where("id = ?", attachmentID).Delete(&Attachment{})
	if result.Error != nil {
		return wrapStoreError(errorSubjectAttachment, errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectAttachment, errorCodeDelete, collection.ErrAttachmentNotFound)
	}
	return nil
}

func (store *Store) RecordImportRun(ctx context.Context, run collection.ImportRun) error {
	labels := run.UnresolvedLabels
	if labels == nil {
		labels = []string{}
	}
	encoded, err := json.Marshal(labels)
	if err != nil {
		return wrapStoreError(errorSubjectImportRun, errorCodeInvalid, err)
	}
	model := ImportRun{
		PeriodID:         run.PeriodID,
		AttachmentID:     run.AttachmentID,
		Layout:           run.Layout.String(),
		UpdatedLines:     run.UpdatedLines,
		UnresolvedLabels: datatypes.JSON(encoded),
		CreatedAt:        run.CreatedAt.UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapCreateError(errorSubjectImportRun, err)
	}
	return nil
}

// ListImportRuns returns the import history of a period, newest first.
func (store *Store) ListImportRuns(ctx context.Context, periodID uint) ([]collection.ImportRun, error) {
	var rows []ImportRun
	err := store.db.WithContext(ctx).
		Where("period_id = ?", periodID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectImportRun, errorCodeList, err)
	}
	runs := make([]collection.ImportRun, 0, len(rows))
	for _, row := range rows {
		var labels []string
		if err := json.Unmarshal(row.UnresolvedLabels, &labels); err != nil {
			return nil, wrapStoreError(errorSubjectImportRun, errorCodeInvalid, err)
		}
		runs = append(runs, collection.ImportRun{
			ID:               row.ID,
			PeriodID:         row.PeriodID,
			AttachmentID:     row.AttachmentID,
			Layout:           collection.Layout(row.Layout),
			UpdatedLines:     row.UpdatedLines,
			UnresolvedLabels: labels,
			CreatedAt:        row.CreatedAt,
		})
	}
	return runs, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return collection.WrapError(errorOperationStore, subject, code, err)
}

func wrapGetError(subject string, notFound error, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return wrapStoreError(subject, errorCodeGet, notFound)
	}
	return wrapStoreError(subject, errorCodeGet, err)
}

func wrapCreateError(subject string, err error) error {
	if isUniqueViolation(err) {
		return wrapStoreError(subject, errorCodeDuplicate, errors.Join(collection.ErrDuplicateRecord, err))
	}
	return wrapStoreError(subject, errorCodeCreate, err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}

type seatViewRow struct {
	SeatID           uint
	SeatMachineID    uint
	SeatNumber       int
	SeatDescription  string
	SeatWeeklyRate   decimal.Decimal
	SeatState        string
	MachineVenueID   uint
	MachineTypeID    uint
	MachineName      string
	MachineOverride  decimal.NullDecimal
	MachineMultiSeat bool
	MachineState     string
	TypeName         string
	TypeDefaultRate  decimal.Decimal
	TypeRatePerSeat  bool
	TypeMultiSeat    bool
	SeatCount        int
}

func (row seatViewRow) toDomain() (collection.SeatView, error) {
	seatState, err := collection.ParseLifecycle(row.SeatState)
	if err != nil {
		return collection.SeatView{}, err
	}
	machineState, err := collection.ParseLifecycle(row.MachineState)
	if err != nil {
		return collection.SeatView{}, err
	}
	return collection.SeatView{
		Seat: collection.Seat{
			ID:          row.SeatID,
			MachineID:   row.SeatMachineID,
			Number:      row.SeatNumber,
			Description: row.SeatDescription,
			WeeklyRate:  row.SeatWeeklyRate,
			State:       seatState,
		},
		Machine: collection.Machine{
			ID:                 row.SeatMachineID,
			VenueID:            row.MachineVenueID,
			MachineTypeID:      row.MachineTypeID,
			Name:               row.MachineName,
			OverrideWeeklyRate: row.MachineOverride,
			MultiSeat:          row.MachineMultiSeat,
			State:              machineState,
		},
		MachineType: collection.MachineType{
			ID:                row.MachineTypeID,
			Name:              row.TypeName,
			DefaultWeeklyRate: row.TypeDefaultRate,
			RatePerSeat:       row.TypeRatePerSeat,
			MultiSeat:         row.TypeMultiSeat,
		},
		SeatCount: row.SeatCount,
	}, nil
}

type detailViewRow struct {
	DetailLine       `gorm:"embedded"`
	MachineName      string
	MachineMultiSeat bool
	SeatNumber       int
	SeatDescription  string
}

func stateOrActive(state collection.Lifecycle) string {
	if state == "" {
		return collection.LifecycleActive.String()
	}
	return state.String()
}

func mapVenue(model Venue) (collection.Venue, error) {
	state, err := collection.ParseLifecycle(model.State)
	if err != nil {
		return collection.Venue{}, wrapStoreError(errorSubjectVenue, errorCodeInvalid, err)
	}
	return collection.Venue{ID: model.ID, Name: model.Name, State: state}, nil
}

func mapMachineType(model MachineType) collection.MachineType {
	return collection.MachineType{
		ID:                model.ID,
		Name:              model.Name,
		DefaultWeeklyRate: model.DefaultWeeklyRate,
		RatePerSeat:       model.RatePerSeat,
		MultiSeat:         model.MultiSeat,
	}
}

func mapMachine(model Machine) (collection.Machine, error) {
	state, err := collection.ParseLifecycle(model.State)
	if err != nil {
		return collection.Machine{}, wrapStoreError(errorSubjectMachine, errorCodeInvalid, err)
	}
	return collection.Machine{
		ID:                 model.ID,
		VenueID:            model.VenueID,
		MachineTypeID:      model.MachineTypeID,
		Name:               model.Name,
		OverrideWeeklyRate: model.OverrideWeeklyRate,
		MultiSeat:          model.MultiSeat,
		State:              state,
	}, nil
}

func mapSeat(model Seat) (collection.Seat, error) {
	state, err := collection.ParseLifecycle(model.State)
	if err != nil {
		return collection.Seat{}, wrapStoreError(errorSubjectSeat, errorCodeInvalid, err)
	}
	return collection.Seat{
		ID:          model.ID,
		MachineID:   model.MachineID,
		Number:      model.Number,
		Description: model.Description,
		WeeklyRate:  model.WeeklyRate,
		State:       state,
	}, nil
}

func periodModel(period collection.Period) CollectionPeriod {
	return CollectionPeriod{
		ID:               period.ID,
		VenueID:          period.VenueID,
		StartAt:          period.Start.UTC(),
		EndAt:            period.End.UTC(),
		ClosingDate:      period.ClosingDate.UTC(),
		Label:            period.Label,
		Origin:           period.Origin.String(),
		Notes:            period.Notes,
		ReportedTax:      period.ReportedTax,
		Deposits:         period.Deposits,
		OtherAdjustments: period.OtherAdjustments,
		Locked:           period.Locked,
	}
}

func mapPeriod(model CollectionPeriod) (collection.Period, error) {
	origin, err := collection.ParseOrigin(model.Origin)
	if err != nil {
		return collection.Period{}, wrapStoreError(errorSubjectPeriod, errorCodeInvalid, err)
	}
	return collection.Period{
		ID:               model.ID,
		VenueID:          model.VenueID,
		Start:            model.StartAt.UTC(),
		End:              model.EndAt.UTC(),
		ClosingDate:      model.ClosingDate.UTC(),
		Label:            model.Label,
		Origin:           origin,
		Notes:            model.Notes,
		ReportedTax:      model.ReportedTax,
		Deposits:         model.Deposits,
		OtherAdjustments: model.OtherAdjustments,
		Locked:           model.Locked,
	}, nil
}

func detailModel(line collection.DetailLine) DetailLine {
	return DetailLine{
		ID:               line.ID,
		PeriodID:         line.PeriodID,
		MachineID:        line.MachineID,
		SeatID:           line.SeatID,
		CashWithdrawn:    line.CashWithdrawn,
		CashBox:          line.CashBox,
		ManualPayout:     line.ManualPayout,
		ManualAdjustment: line.ManualAdjustment,
		EstimatedTax:     line.EstimatedTax,
		VarianceShare:    line.VarianceShare,
		FinalTax:         line.FinalTax,
		RateNote:         line.RateNote,
	}
}

func mapDetail(model DetailLine) collection.DetailLine {
	return collection.DetailLine{
		ID:               model.ID,
		PeriodID:         model.PeriodID,
		MachineID:        model.MachineID,
		SeatID:           model.SeatID,
		CashWithdrawn:    model.CashWithdrawn,
		CashBox:          model.CashBox,
		ManualPayout:     model.ManualPayout,
		ManualAdjustment: model.ManualAdjustment,
		EstimatedTax:     model.EstimatedTax,
		VarianceShare:    model.VarianceShare,
		FinalTax:         model.FinalTax,
		RateNote:         model.RateNote,
	}
}

func mapAttachment(model Attachment) collection.Attachment {
	return collection.Attachment{
		ID:          model.ID,
		PeriodID:    model.PeriodID,
		Path:        model.Path,
		Filename:    model.Filename,
		ContentType: model.ContentType,
		CreatedAt:   model.CreatedAt.UTC(),
	}
}
