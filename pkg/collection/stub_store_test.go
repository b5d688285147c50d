package collection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// stubStore is an in-memory Store. WithTx snapshots the state and restores it when fn fails.
type stubStore struct {
	nextID       uint
	venues       map[uint]Venue
	machineTypes map[uint]MachineType
	machines     map[uint]Machine
	seats        map[uint]Seat
	periods      map[uint]Period
	details      map[uint]DetailLine
	mappings     map[uint]NameMapping
	attachments  map[uint]Attachment
	importRuns   []ImportRun
	saveErr      error
}

func newStubStore(test *testing.T) *stubStore {
	test.Helper()
	return &stubStore{
		venues:       make(map[uint]Venue),
		machineTypes: make(map[uint]MachineType),
		machines:     make(map[uint]Machine),
		seats:        make(map[uint]Seat),
		periods:      make(map[uint]Period),
		details:      make(map[uint]DetailLine),
		mappings:     make(map[uint]NameMapping),
		attachments:  make(map[uint]Attachment),
	}
}

func (store *stubStore) snapshot() stubStore {
	copied := *store
	copied.venues = cloneMap(store.venues)
	copied.machineTypes = cloneMap(store.machineTypes)
	copied.machines = cloneMap(store.machines)
	copied.seats = cloneMap(store.seats)
	copied.periods = cloneMap(store.periods)
	copied.details = cloneMap(store.details)
	copied.mappings = cloneMap(store.mappings)
	copied.attachments = cloneMap(store.attachments)
	copied.importRuns = append([]ImportRun(nil), store.importRuns...)
	return copied
}

func cloneMap[V any](source map[uint]V) map[uint]V {
	cloned := make(map[uint]V, len(source))
	for key, value := range source {
		cloned[key] = value
	}
	return cloned
}

func (store *stubStore) id() uint {
	store.nextID++
	return store.nextID
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	saved := store.snapshot()
	if err := fn(ctx, store); err != nil {
		*store = saved
		return err
	}
	return nil
}

func (store *stubStore) CreateVenue(ctx context.Context, venue Venue) (Venue, error) {
	venue.ID = store.id()
	store.venues[venue.ID] = venue
	return venue, nil
}

func (store *stubStore) GetVenue(ctx context.Context, venueID uint) (Venue, error) {
	venue, ok := store.venues[venueID]
	if !ok || !venue.State.IsLive() {
		return Venue{}, fmt.Errorf("%w: %d", ErrVenueNotFound, venueID)
	}
	return venue, nil
}

func (store *stubStore) ListVenues(ctx context.Context) ([]Venue, error) {
	venues := make([]Venue, 0, len(store.venues))
	for _, venue := range store.venues {
		if venue.State.IsLive() {
			venues = append(venues, venue)
		}
	}
	sort.Slice(venues, func(left, right int) bool { return venues[left].ID < venues[right].ID })
	return venues, nil
}

func (store *stubStore) CreateMachineType(ctx context.Context, machineType MachineType) (MachineType, error) {
	machineType.ID = store.id()
	store.machineTypes[machineType.ID] = machineType
	return machineType, nil
}

func (store *stubStore) GetMachineType(ctx context.Context, machineTypeID uint) (MachineType, error) {
	machineType, ok := store.machineTypes[machineTypeID]
	if !ok {
		return MachineType{}, fmt.Errorf("%w: %d", ErrMachineTypeNotFound, machineTypeID)
	}
	return machineType, nil
}

func (store *stubStore) CreateMachine(ctx context.Context, machine Machine, seats []Seat) (Machine, []Seat, error) {
	machine.ID = store.id()
	store.machines[machine.ID] = machine
	created := make([]Seat, len(seats))
	for index, seat := range seats {
		seat.ID = store.id()
		seat.MachineID = machine.ID
		store.seats[seat.ID] = seat
		created[index] = seat
	}
	return machine, created, nil
}

func (store *stubStore) seatView(seat Seat) SeatView {
	machine := store.machines[seat.MachineID]
	count := 0
	for _, other := range store.seats {
		if other.MachineID == seat.MachineID && other.State.IsLive() {
			count++
		}
	}
	return SeatView{Seat: seat, Machine: machine, MachineType: store.machineTypes[machine.MachineTypeID], SeatCount: count}
}

func (store *stubStore) ListActiveSeats(ctx context.Context, venueID uint) ([]SeatView, error) {
	var views []SeatView
	for _, seat := range store.seats {
		machine := store.machines[seat.MachineID]
		if machine.VenueID != venueID || !machine.State.IsActive() || !seat.State.IsActive() {
			continue
		}
		views = append(views, store.seatView(seat))
	}
	sort.Slice(views, func(left, right int) bool {
		if views[left].Machine.ID != views[right].Machine.ID {
			return views[left].Machine.ID < views[right].Machine.ID
		}
		return views[left].Seat.Number < views[right].Seat.Number
	})
	return views, nil
}

func (store *stubStore) GetSeatView(ctx context.Context, seatID uint) (SeatView, error) {
	seat, ok := store.seats[seatID]
	if !ok || !seat.State.IsLive() {
		return SeatView{}, fmt.Errorf("%w: %d", ErrSeatNotFound, seatID)
	}
	return store.seatView(seat), nil
}

func (store *stubStore) CreatePeriod(ctx context.Context, period Period) (Period, error) {
	period.ID = store.id()
	store.periods[period.ID] = period
	return period, nil
}

func (store *stubStore) GetPeriod(ctx context.Context, periodID uint) (Period, error) {
	period, ok := store.periods[periodID]
	if !ok {
		return Period{}, fmt.Errorf("%w: %d", ErrPeriodNotFound, periodID)
	}
	return period, nil
}

func (store *stubStore) ListPeriods(ctx context.Context, query PeriodQuery) ([]Period, error) {
	var periods []Period
	for _, period := range store.periods {
		if query.VenueID == 0 || period.VenueID == query.VenueID {
			periods = append(periods, period)
		}
	}
	sort.Slice(periods, func(left, right int) bool { return periods[left].Start.After(periods[right].Start) })
	if query.Offset >= len(periods) {
		return nil, nil
	}
	periods = periods[query.Offset:]
	if query.Limit > 0 && query.Limit < len(periods) {
		periods = periods[:query.Limit]
	}
	return periods, nil
}

func (store *stubStore) ListVenuePeriods(ctx context.Context, venueID uint) ([]Period, error) {
	return store.ListPeriods(ctx, PeriodQuery{VenueID: venueID})
}

func (store *stubStore) UpdatePeriod(ctx context.Context, period Period) error {
	if _, ok := store.periods[period.ID]; !ok {
		return fmt.Errorf("%w: %d", ErrPeriodNotFound, period.ID)
	}
	store.periods[period.ID] = period
	return nil
}

func (store *stubStore) DeletePeriod(ctx context.Context, periodID uint) error {
	delete(store.periods, periodID)
	for id, line := range store.details {
		if line.PeriodID == periodID {
			delete(store.details, id)
		}
	}
	for id, attachment := range store.attachments {
		if attachment.PeriodID == periodID {
			delete(store.attachments, id)
		}
	}
	return nil
}

func (store *stubStore) CreateDetails(ctx context.Context, lines []DetailLine) error {
	for _, line := range lines {
		line.ID = store.id()
		store.details[line.ID] = line
	}
	return nil
}

func (store *stubStore) GetDetail(ctx context.Context, detailID uint) (DetailLine, error) {
	line, ok := store.details[detailID]
	if !ok {
		return DetailLine{}, fmt.Errorf("%w: %d", ErrDetailNotFound, detailID)
	}
	return line, nil
}

func (store *stubStore) ListDetails(ctx context.Context, periodID uint) ([]DetailView, error) {
	var views []DetailView
	for _, line := range store.details {
		if line.PeriodID != periodID {
			continue
		}
		machine := store.machines[line.MachineID]
		view := DetailView{Line: line, MachineName: machine.Name, MachineMultiSeat: machine.MultiSeat}
		if line.SeatID != nil {
			seat := store.seats[*line.SeatID]
			view.SeatNumber = seat.Number
			view.SeatDescription = seat.Description
		}
		views = append(views, view)
	}
	sort.Slice(views, func(left, right int) bool { return views[left].Line.ID < views[right].Line.ID })
	return views, nil
}

func (store *stubStore) SaveDetails(ctx context.Context, lines []DetailLine) error {
	if store.saveErr != nil {
		return store.saveErr
	}
	for _, line := range lines {
		if _, ok := store.details[line.ID]; !ok {
			return fmt.Errorf("%w: %d", ErrDetailNotFound, line.ID)
		}
		store.details[line.ID] = line
	}
	return nil
}

func (store *stubStore) DeleteDetail(ctx context.Context, detailID uint) error {
	if _, ok := store.details[detailID]; !ok {
		return fmt.Errorf("%w: %d", ErrDetailNotFound, detailID)
	}
	delete(store.details, detailID)
	return nil
}

func (store *stubStore) ListNameMappings(ctx context.Context, venueID uint) ([]NameMapping, error) {
	var mappings []NameMapping
	for _, mapping := range store.mappings {
		if mapping.VenueID == venueID {
			mappings = append(mappings, mapping)
		}
	}
	return mappings, nil
}

func (store *stubStore) UpsertNameMapping(ctx context.Context, mapping NameMapping) error {
	for id, existing := range store.mappings {
		if existing.VenueID == mapping.VenueID && existing.Label == mapping.Label {
			mapping.ID = id
			store.mappings[id] = mapping
			return nil
		}
	}
	mapping.ID = store.id()
	store.mappings[mapping.ID] = mapping
	return nil
}

func (store *stubStore) CreateAttachment(ctx context.Context, attachment Attachment) (Attachment, error) {
	attachment.ID = store.id()
	store.attachments[attachment.ID] = attachment
	return attachment, nil
}

func (store *stubStore) GetAttachment(ctx context.Context, attachmentID uint) (Attachment, error) {
	attachment, ok := store.attachments[attachmentID]
	if !ok {
		return Attachment{}, fmt.Errorf("%w: %d", ErrAttachmentNotFound, attachmentID)
	}
	return attachment, nil
}

func (store *stubStore) ListAttachments(ctx context.Context, periodID uint) ([]Attachment, error) {
	var attachments []Attachment
	for _, attachment := range store.attachments {
		if attachment.PeriodID == periodID {
			attachments = append(attachments, attachment)
		}
	}
	sort.Slice(attachments, func(left, right int) bool { return attachments[left].ID < attachments[right].ID })
	return attachments, nil
}

func (store *stubStore) DeleteAttachment(ctx context.Context, attachmentID uint) error {
	delete(store.attachments, attachmentID)
	return nil
}

func (store *stubStore) RecordImportRun(ctx context.Context, run ImportRun) error {
	run.ID = store.id()
	store.importRuns = append(store.importRuns, run)
	return nil
}

func (store *stubStore) ListImportRuns(ctx context.Context, periodID uint) ([]ImportRun, error) {
	var runs []ImportRun
	for index := len(store.importRuns) - 1; index >= 0; index-- {
		if store.importRuns[index].PeriodID == periodID {
			runs = append(runs, store.importRuns[index])
		}
	}
	return runs, nil
}

func (store *stubStore) linesOf(periodID uint) []DetailLine {
	var lines []DetailLine
	for _, line := range store.details {
		if line.PeriodID == periodID {
			lines = append(lines, line)
		}
	}
	sort.Slice(lines, func(left, right int) bool { return lines[left].ID < lines[right].ID })
	return lines
}

type stubBlobStore struct {
	objects map[string][]byte
	deleted []string
}

func newStubBlobStore() *stubBlobStore {
	return &stubBlobStore{objects: make(map[string][]byte)}
}

func (blobs *stubBlobStore) Put(ctx context.Context, filename string, contentType string, data []byte) (string, error) {
	path := fmt.Sprintf("blob-%d/%s", len(blobs.objects)+1, filename)
	blobs.objects[path] = append([]byte(nil), data...)
	return path, nil
}

func (blobs *stubBlobStore) Get(ctx context.Context, path string) ([]byte, error) {
	data, ok := blobs.objects[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, path)
	}
	return data, nil
}

func (blobs *stubBlobStore) Delete(ctx context.Context, path string) error {
	delete(blobs.objects, path)
	blobs.deleted = append(blobs.deleted, path)
	return nil
}

// stubCodec returns canned extractions keyed by the uploaded bytes.
type stubCodec struct {
	extractions map[string]Extraction
	metadata    map[string]SheetMetadata
	encoded     []PeriodReport
}

func newStubCodec() *stubCodec {
	return &stubCodec{extractions: make(map[string]Extraction), metadata: make(map[string]SheetMetadata)}
}

var errStubUnreadable = errors.New("zip: not a valid zip file")

func (codec *stubCodec) Decode(data []byte) (Extraction, error) {
	extraction, ok := codec.extractions[string(data)]
	if !ok {
		return Extraction{}, errStubUnreadable
	}
	return extraction, nil
}

func (codec *stubCodec) Encode(report PeriodReport) ([]byte, error) {
	codec.encoded = append(codec.encoded, report)
	return []byte("workbook"), nil
}

func (codec *stubCodec) ReadMetadata(data []byte) (SheetMetadata, error) {
	metadata, ok := codec.metadata[string(data)]
	if !ok {
		return SheetMetadata{}, errStubUnreadable
	}
	return metadata, nil
}

type recorderLogger struct {
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.entries = append(logger.entries, entry)
}

func mustNewService(test *testing.T, store Store, options ...ServiceOption) *Service {
	test.Helper()
	service, err := NewService(store, DefaultConfig(), options...)
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func mustDecimal(test *testing.T, raw string) decimal.Decimal {
	test.Helper()
	value, err := decimal.NewFromString(raw)
	if err != nil {
		test.Fatalf("decimal %q: %v", raw, err)
	}
	return value
}

func mustDate(test *testing.T, raw string) time.Time {
	test.Helper()
	value, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		test.Fatalf("date %q: %v", raw, err)
	}
	return value
}

func mustVenue(test *testing.T, service *Service, name string) Venue {
	test.Helper()
	venue, err := service.CreateVenue(context.Background(), VenueInput{Name: name})
	if err != nil {
		test.Fatalf("create venue: %v", err)
	}
	return venue
}

func mustMachineType(test *testing.T, service *Service, name string, rate string, ratePerSeat bool) MachineType {
	test.Helper()
	machineType, err := service.CreateMachineType(context.Background(), MachineTypeInput{
		Name:              name,
		DefaultWeeklyRate: mustDecimal(test, rate),
		RatePerSeat:       ratePerSeat,
	})
	if err != nil {
		test.Fatalf("create machine type: %v", err)
	}
	return machineType
}

func mustMachine(test *testing.T, service *Service, input MachineInput) (Machine, []Seat) {
	test.Helper()
	machine, seats, err := service.AddMachine(context.Background(), input)
	if err != nil {
		test.Fatalf("add machine: %v", err)
	}
	return machine, seats
}

func mustPeriod(test *testing.T, service *Service, venueID uint, start string, end string) PeriodReport {
	test.Helper()
	report, err := service.CreatePeriod(context.Background(), PeriodInput{
		VenueID: venueID,
		Start:   mustDate(test, start),
		End:     mustDate(test, end),
	})
	if err != nil {
		test.Fatalf("create period: %v", err)
	}
	return report
}

func decimalPointer(value decimal.Decimal) *decimal.Decimal {
	return &value
}

func assertDecimal(test *testing.T, label string, expected string, actual decimal.Decimal) {
	test.Helper()
	if !actual.Equal(decimal.RequireFromString(expected)) {
		test.Fatalf("%s: expected %s, got %s", label, expected, actual.String())
	}
}
