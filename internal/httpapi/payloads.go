package httpapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/collections/pkg/collection"
	"github.com/shopspring/decimal"
)

const dateLayout = time.DateOnly

type venueRequest struct {
	Name string `json:"name"`
}

type machineTypeRequest struct {
	Name              string          `json:"name"`
	DefaultWeeklyRate decimal.Decimal `json:"default_weekly_rate"`
	RatePerSeat       bool            `json:"rate_per_seat"`
	MultiSeat         bool            `json:"multi_seat"`
}

type machineRequest struct {
	VenueID            uint                `json:"venue_id"`
	MachineTypeID      uint                `json:"machine_type_id"`
	Name               string              `json:"name"`
	OverrideWeeklyRate decimal.NullDecimal `json:"override_weekly_rate"`
	SeatCount          int                 `json:"seat_count"`
	SeatDescriptions   []string            `json:"seat_descriptions"`
}

type periodRequest struct {
	VenueID     uint   `json:"venue_id"`
	Start       string `json:"start"`
	End         string `json:"end"`
	ClosingDate string `json:"closing_date"`
	Label       string `json:"label"`
	Origin      string `json:"origin"`
	Notes       string `json:"notes"`
}

type periodPatchRequest struct {
	Start            *string          `json:"start"`
	End              *string          `json:"end"`
	ClosingDate      *string          `json:"closing_date"`
	Label            *string          `json:"label"`
	Notes            *string          `json:"notes"`
	ReportedTax      *decimal.Decimal `json:"reported_tax"`
	Deposits         *decimal.Decimal `json:"deposits"`
	OtherAdjustments *decimal.Decimal `json:"other_adjustments"`
	Locked           *bool            `json:"locked"`
}

type detailPatchRequest struct {
	CashWithdrawn    *decimal.Decimal `json:"cash_withdrawn"`
	CashBox          *decimal.Decimal `json:"cash_box"`
	ManualPayout     *decimal.Decimal `json:"manual_payout"`
	ManualAdjustment *decimal.Decimal `json:"manual_adjustment"`
	EstimatedTax     *decimal.Decimal `json:"estimated_tax"`
	RateNote         *string          `json:"rate_note"`
}

type resolveRequest struct {
	Labels []string `json:"labels"`
}

// overridesRequest maps labels to a seat id, -1 to ignore the label, or null to clear its mapping.
type overridesRequest struct {
	Overrides map[string]*int64 `json:"overrides"`
}

func (request periodRequest) toInput() (collection.PeriodInput, error) {
	start, err := parseDay(request.Start)
	if err != nil {
		return collection.PeriodInput{}, err
	}
	end, err := parseDay(request.End)
	if err != nil {
		return collection.PeriodInput{}, err
	}
	var closing time.Time
	if strings.TrimSpace(request.ClosingDate) != "" {
		if closing, err = parseDay(request.ClosingDate); err != nil {
			return collection.PeriodInput{}, err
		}
	}
	origin, err := collection.ParseOrigin(request.Origin)
	if err != nil {
		return collection.PeriodInput{}, err
	}
	return collection.PeriodInput{
		VenueID:     request.VenueID,
		Start:       start,
		End:         end,
		ClosingDate: closing,
		Label:       request.Label,
		Origin:      origin,
		Notes:       request.Notes,
	}, nil
}

func (request periodPatchRequest) toPatch() (collection.PeriodPatch, error) {
	patch := collection.PeriodPatch{
		Label:            request.Label,
		Notes:            request.Notes,
		ReportedTax:      request.ReportedTax,
		Deposits:         request.Deposits,
		OtherAdjustments: request.OtherAdjustments,
		Locked:           request.Locked,
	}
	var err error
	if patch.Start, err = parseOptionalDay(request.Start); err != nil {
		return collection.PeriodPatch{}, err
	}
	if patch.End, err = parseOptionalDay(request.End); err != nil {
		return collection.PeriodPatch{}, err
	}
	if patch.ClosingDate, err = parseOptionalDay(request.ClosingDate); err != nil {
		return collection.PeriodPatch{}, err
	}
	return patch, nil
}

func (request detailPatchRequest) toPatch() collection.DetailPatch {
	return collection.DetailPatch{
		CashWithdrawn:    request.CashWithdrawn,
		CashBox:          request.CashBox,
		ManualPayout:     request.ManualPayout,
		ManualAdjustment: request.ManualAdjustment,
		EstimatedTax:     request.EstimatedTax,
		RateNote:         request.RateNote,
	}
}

func parseOverrides(raw map[string]*int64) (map[string]collection.MappingOverride, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	overrides := make(map[string]collection.MappingOverride, len(raw))
	for label, target := range raw {
		override, err := collection.ParseMappingTarget(target)
		if err != nil {
			return nil, fmt.Errorf("%w: label %q", err, label)
		}
		overrides[label] = override
	}
	return overrides, nil
}

// parseDay accepts a calendar date or an RFC 3339 timestamp.
func parseDay(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if parsed, err := time.Parse(dateLayout, trimmed); err == nil {
		return parsed, nil
	}
	parsed, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", collection.ErrInvalidPeriodInput, raw)
	}
	return parsed.UTC(), nil
}

func parseOptionalDay(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	parsed, err := parseDay(*raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

type venueResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

type machineTypeResponse struct {
	ID                uint            `json:"id"`
	Name              string          `json:"name"`
	DefaultWeeklyRate decimal.Decimal `json:"default_weekly_rate"`
	RatePerSeat       bool            `json:"rate_per_seat"`
	MultiSeat         bool            `json:"multi_seat"`
}

type seatResponse struct {
	ID          uint            `json:"id"`
	Number      int             `json:"number"`
	Description string          `json:"description"`
	WeeklyRate  decimal.Decimal `json:"weekly_rate"`
}

type machineResponse struct {
	ID                 uint                `json:"id"`
	VenueID            uint                `json:"venue_id"`
	MachineTypeID      uint                `json:"machine_type_id"`
	Name               string              `json:"name"`
	OverrideWeeklyRate decimal.NullDecimal `json:"override_weekly_rate"`
	MultiSeat          bool                `json:"multi_seat"`
	Seats              []seatResponse      `json:"seats"`
}

type periodResponse struct {
	ID               uint            `json:"id"`
	VenueID          uint            `json:"venue_id"`
	Start            string          `json:"start"`
	End              string          `json:"end"`
	ClosingDate      string          `json:"closing_date"`
	Label            string          `json:"label"`
	Origin           string          `json:"origin"`
	Notes            string          `json:"notes"`
	ReportedTax      decimal.Decimal `json:"reported_tax"`
	Deposits         decimal.Decimal `json:"deposits"`
	OtherAdjustments decimal.Decimal `json:"other_adjustments"`
	Locked           bool            `json:"locked"`
}

type detailResponse struct {
	ID               uint            `json:"id"`
	PeriodID         uint            `json:"period_id"`
	MachineID        uint            `json:"machine_id"`
	SeatID           *uint           `json:"seat_id"`
	CashWithdrawn    decimal.Decimal `json:"cash_withdrawn"`
	CashBox          decimal.Decimal `json:"cash_box"`
	ManualPayout     decimal.Decimal `json:"manual_payout"`
	ManualAdjustment decimal.Decimal `json:"manual_adjustment"`
	EstimatedTax     decimal.Decimal `json:"estimated_tax"`
	VarianceShare    decimal.Decimal `json:"variance_share"`
	FinalTax         decimal.Decimal `json:"final_tax"`
	Gross            decimal.Decimal `json:"gross"`
	Net              decimal.Decimal `json:"net"`
	RateNote         string          `json:"rate_note"`
}

type reportLineResponse struct {
	detailResponse
	Label       string `json:"label"`
	MachineName string `json:"machine_name"`
	SeatNumber  int    `json:"seat_number"`
	GroupSize   int    `json:"group_size"`
	GroupStart  bool   `json:"group_start"`
	GroupEnd    bool   `json:"group_end"`
}

type totalsResponse struct {
	CashWithdrawn     decimal.Decimal `json:"cash_withdrawn"`
	CashBox           decimal.Decimal `json:"cash_box"`
	ManualPayouts     decimal.Decimal `json:"manual_payouts"`
	ManualAdjustments decimal.Decimal `json:"manual_adjustments"`
	Gross             decimal.Decimal `json:"gross"`
	EstimatedTax      decimal.Decimal `json:"estimated_tax"`
	FinalTax          decimal.Decimal `json:"final_tax"`
	Net               decimal.Decimal `json:"net"`
	Global            decimal.Decimal `json:"global"`
}

type reportResponse struct {
	Period    periodResponse       `json:"period"`
	VenueName string               `json:"venue_name"`
	DayCount  int64                `json:"day_count"`
	Lines     []reportLineResponse `json:"lines"`
	Totals    totalsResponse       `json:"totals"`
}

type attachmentResponse struct {
	ID          uint      `json:"id"`
	PeriodID    uint      `json:"period_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

type importResponse struct {
	PeriodID     uint     `json:"period_id"`
	Layout       string   `json:"layout"`
	UpdatedLines int      `json:"updated_lines"`
	Unresolved   []string `json:"unresolved"`
	Ignored      []string `json:"ignored"`
}

type importRunResponse struct {
	ID               uint      `json:"id"`
	AttachmentID     *uint     `json:"attachment_id"`
	Layout           string    `json:"layout"`
	UpdatedLines     int       `json:"updated_lines"`
	UnresolvedLabels []string  `json:"unresolved_labels"`
	CreatedAt        time.Time `json:"created_at"`
}

type labelMatchResponse struct {
	Label      string `json:"label"`
	DetailID   uint   `json:"detail_id"`
	LineLabel  string `json:"line_label"`
	MachineID  uint   `json:"machine_id"`
	SeatID     *uint  `json:"seat_id"`
	ViaMapping bool   `json:"via_mapping"`
}

type previewResponse struct {
	Layout      string               `json:"layout"`
	Matched     []labelMatchResponse `json:"matched"`
	Unmapped    []string             `json:"unmapped"`
	Ignored     []string             `json:"ignored"`
	ReportedTax decimal.NullDecimal  `json:"reported_tax"`
	Deposits    decimal.NullDecimal  `json:"deposits"`
	Other       decimal.NullDecimal  `json:"other_adjustments"`
}

type labelResolutionResponse struct {
	Label     string `json:"label"`
	Status    string `json:"status"`
	SeatID    *uint  `json:"seat_id"`
	MachineID *uint  `json:"machine_id"`
}

type resolutionResponse struct {
	Mapped   []labelResolutionResponse `json:"mapped"`
	Unmapped []string                  `json:"unmapped"`
	Ignored  []string                  `json:"ignored"`
}

type suggestionResponse struct {
	Normalized bool    `json:"normalized"`
	VenueID    *uint   `json:"venue_id"`
	VenueName  string  `json:"venue_name"`
	Start      *string `json:"start"`
	End        *string `json:"end"`
}

func newVenueResponse(venue collection.Venue) venueResponse {
	return venueResponse{ID: venue.ID, Name: venue.Name, State: venue.State.String()}
}

func newMachineResponse(machine collection.Machine, seats []collection.Seat) machineResponse {
	response := machineResponse{
		ID:                 machine.ID,
		VenueID:            machine.VenueID,
		MachineTypeID:      machine.MachineTypeID,
		Name:               machine.Name,
		OverrideWeeklyRate: machine.OverrideWeeklyRate,
		MultiSeat:          machine.MultiSeat,
		Seats:              make([]seatResponse, len(seats)),
	}
	for index, seat := range seats {
		response.Seats[index] = seatResponse{ID: seat.ID, Number: seat.Number, Description: seat.Description, WeeklyRate: seat.WeeklyRate}
	}
	return response
}

func newPeriodResponse(period collection.Period) periodResponse {
	return periodResponse{
		ID:               period.ID,
		VenueID:          period.VenueID,
		Start:            period.Start.Format(dateLayout),
		End:              period.End.Format(dateLayout),
		ClosingDate:      period.ClosingDate.Format(dateLayout),
		Label:            period.Label,
		Origin:           period.Origin.String(),
		Notes:            period.Notes,
		ReportedTax:      period.ReportedTax,
		Deposits:         period.Deposits,
		OtherAdjustments: period.OtherAdjustments,
		Locked:           period.Locked,
	}
}

func newDetailResponse(line collection.DetailLine) detailResponse {
	return detailResponse{
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
		Gross:            line.Gross(),
		Net:              line.Net(),
		RateNote:         line.RateNote,
	}
}

func newReportResponse(report collection.PeriodReport) reportResponse {
	lines := make([]reportLineResponse, len(report.Lines))
	for index, line := range report.Lines {
		lines[index] = reportLineResponse{
			detailResponse: newDetailResponse(line.View.Line),
			Label:          line.Label,
			MachineName:    line.View.MachineName,
			SeatNumber:     line.View.SeatNumber,
			GroupSize:      line.GroupSize,
			GroupStart:     line.GroupStart,
			GroupEnd:       line.GroupEnd,
		}
	}
	totals := report.Totals
	return reportResponse{
		Period:    newPeriodResponse(report.Period),
		VenueName: report.VenueName,
		DayCount:  report.DayCount,
		Lines:     lines,
		Totals: totalsResponse{
			CashWithdrawn:     totals.CashWithdrawn,
			CashBox:           totals.CashBox,
			ManualPayouts:     totals.ManualPayouts,
			ManualAdjustments: totals.ManualAdjustments,
			Gross:             totals.Gross,
			EstimatedTax:      totals.EstimatedTax,
			FinalTax:          totals.FinalTax,
			Net:               totals.Net,
			Global:            totals.Global,
		},
	}
}

func newAttachmentResponse(attachment collection.Attachment) attachmentResponse {
	return attachmentResponse{
		ID:          attachment.ID,
		PeriodID:    attachment.PeriodID,
		Filename:    attachment.Filename,
		ContentType: attachment.ContentType,
		CreatedAt:   attachment.CreatedAt,
	}
}

func newImportResponse(result collection.ImportResult) importResponse {
	return importResponse{
		PeriodID:     result.PeriodID,
		Layout:       result.Layout.String(),
		UpdatedLines: result.UpdatedLines,
		Unresolved:   nonNil(result.Unresolved),
		Ignored:      nonNil(result.Ignored),
	}
}

func newPreviewResponse(preview collection.ImportPreview) previewResponse {
	matched := make([]labelMatchResponse, len(preview.Matched))
	for index, match := range preview.Matched {
		matched[index] = labelMatchResponse{
			Label:      match.Label,
			DetailID:   match.DetailID,
			LineLabel:  match.LineLabel,
			MachineID:  match.MachineID,
			SeatID:     match.SeatID,
			ViaMapping: match.ViaMapping,
		}
	}
	return previewResponse{
		Layout:      preview.Layout.String(),
		Matched:     matched,
		Unmapped:    nonNil(preview.Unmapped),
		Ignored:     nonNil(preview.Ignored),
		ReportedTax: preview.Totals.ReportedTax,
		Deposits:    preview.Totals.Deposits,
		Other:       preview.Totals.OtherAdjustments,
	}
}

func newResolutionResponse(resolution collection.Resolution) resolutionResponse {
	mapped := make([]labelResolutionResponse, len(resolution.Mapped))
	for index, entry := range resolution.Mapped {
		mapped[index] = labelResolutionResponse{
			Label:     entry.Label,
			Status:    string(entry.Status),
			SeatID:    entry.SeatID,
			MachineID: entry.MachineID,
		}
	}
	return resolutionResponse{
		Mapped:   mapped,
		Unmapped: labelsOf(resolution.Unmapped),
		Ignored:  labelsOf(resolution.Ignored),
	}
}

func newSuggestionResponse(suggestion collection.PeriodSuggestion) suggestionResponse {
	return suggestionResponse{
		Normalized: suggestion.Normalized,
		VenueID:    suggestion.VenueID,
		VenueName:  suggestion.VenueName,
		Start:      formatOptionalDay(suggestion.Start),
		End:        formatOptionalDay(suggestion.End),
	}
}

func formatOptionalDay(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.Format(dateLayout)
	return &formatted
}

func labelsOf(resolutions []collection.LabelResolution) []string {
	labels := make([]string, len(resolutions))
	for index, resolution := range resolutions {
		labels[index] = resolution.Label
	}
	return labels
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
