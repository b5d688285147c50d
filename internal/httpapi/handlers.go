package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/MarkoPoloResearchLab/collections/pkg/collection"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	uploadFileField      = "file"
	uploadOverridesField = "overrides"
)

type httpHandler struct {
	logger  *zap.Logger
	service *collection.Service
	cfg     Config
}

func (handler *httpHandler) requestContext(ctx *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
}

func (handler *httpHandler) handleListVenues(ctx *gin.Context) {
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	venues, err := handler.service.ListVenues(requestCtx)
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	payload := make([]venueResponse, len(venues))
	for index, venue := range venues {
		payload[index] = newVenueResponse(venue)
	}
	ctx.JSON(http.StatusOK, gin.H{"venues": payload})
}

func (handler *httpHandler) handleCreateVenue(ctx *gin.Context) {
	var request venueRequest
	if !bindJSON(ctx, &request) {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	venue, err := handler.service.CreateVenue(requestCtx, collection.VenueInput{Name: request.Name})
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, newVenueResponse(venue))
}

func (handler *httpHandler) handleLastPeriodEnd(ctx *gin.Context) {
	venueID, ok := pathID(ctx, "venueID")
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	end, err := handler.service.LastPeriodEnd(requestCtx, venueID)
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"venue_id": venueID, "last_period_end": formatOptionalDay(end)})
}

func (handler *httpHandler) handleResolveLabels(ctx *gin.Context) {
	venueID, ok := pathID(ctx, "venueID")
	if !ok {
		return
	}
	var request resolveRequest
	if !bindJSON(ctx, &request) {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	resolution, err := handler.service.ResolveLabels(requestCtx, venueID, request.Labels)
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newResolutionResponse(resolution))
}

func (handler *httpHandler) handleApplyOverrides(ctx *gin.Context) {
	venueID, ok := pathID(ctx, "venueID")
	if !ok {
		return
	}
	var request overridesRequest
	if !bindJSON(ctx, &request) {
		return
	}
	overrides, err := parseOverrides(request.Overrides)
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	if err := handler.service.ApplyOverrides(requestCtx, venueID, overrides); err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (handler *httpHandler) handleCreateMachineType(ctx *gin.Context) {
	var request machineTypeRequest
	if !bindJSON(ctx, &request) {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	machineType, err := handler.service.CreateMachineType(requestCtx, collection.MachineTypeInput{
		Name:              request.Name,
		DefaultWeeklyRate: request.DefaultWeeklyRate,
		RatePerSeat:       request.RatePerSeat,
		MultiSeat:         request.MultiSeat,
	})
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, machineTypeResponse{
		ID:                machineType.ID,
		Name:              machineType.Name,
		DefaultWeeklyRate: machineType.DefaultWeeklyRate,
		RatePerSeat:       machineType.RatePerSeat,
		MultiSeat:         machineType.MultiSeat,
	})
}

func (handler *httpHandler) handleAddMachine(ctx *gin.Context) {
	var request machineRequest
	if !bindJSON(ctx, &request) {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	machine, seats, err := handler.service.AddMachine(requestCtx, collection.MachineInput{
		VenueID:            request.VenueID,
		MachineTypeID:      request.MachineTypeID,
		Name:               request.Name,
		OverrideWeeklyRate: request.OverrideWeeklyRate,
		SeatCount:          request.SeatCount,
		SeatDescriptions:   request.SeatDescriptions,
	})
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, newMachineResponse(machine, seats))
}

func (handler *httpHandler) handleListPeriods(ctx *gin.Context) {
	query := collection.PeriodQuery{}
	var err error
	if query.VenueID, err = queryUint(ctx, "venue_id"); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(codeInvalidID, err.Error()))
		return
	}
	if query.Offset, err = queryInt(ctx, "offset"); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(codeInvalidPayload, err.Error()))
		return
	}
	if query.Limit, err = queryInt(ctx, "limit"); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(codeInvalidPayload, err.Error()))
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	periods, err := handler.service.ListPeriods(requestCtx, query)
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	payload := make([]periodResponse, len(periods))
	for index, period := range periods {
		payload[index] = newPeriodResponse(period)
	}
	ctx.JSON(http.StatusOK, gin.H{"periods": payload})
}

func (handler *httpHandler) handleCreatePeriod(ctx *gin.Context) {
	var request periodRequest
	if !bindJSON(ctx, &request) {
		return
	}
	input, err := request.toInput()
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	report, err := handler.service.CreatePeriod(requestCtx, input)
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, newReportResponse(report))
}

func (handler *httpHandler) handleSuggestPeriod(ctx *gin.Context) {
	upload, ok := handler.readUpload(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	suggestion, err := handler.service.SuggestPeriod(requestCtx, upload.Data)
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newSuggestionResponse(suggestion))
}

func (handler *httpHandler) handleGetPeriod(ctx *gin.Context) {
	periodID, ok := pathID(ctx, "periodID")
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	report, err := handler.service.GetPeriodReport(requestCtx, periodID)
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newReportResponse(report))
}

func (handler *httpHandler) handleUpdatePeriod(ctx *gin.Context) {
	periodID, ok := pathID(ctx, "periodID")
	if !ok {
		return
	}
	var request periodPatchRequest
	if !bindJSON(ctx, &request) {
		return
	}
	patch, err := request.toPatch()
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	report, err := handler.service.UpdatePeriod(requestCtx, periodID, patch)
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newReportResponse(report))
}

func (handler *httpHandler) handleDeletePeriod(ctx *gin.Context) {
	periodID, ok := pathID(ctx, "periodID")
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	if err := handler.service.DeletePeriod(requestCtx, periodID); err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (handler *httpHandler) handleReconcile(ctx *gin.Context) {
	periodID, ok := pathID(ctx, "periodID")
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	report, err := handler.service.Reconcile(requestCtx, periodID)
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newReportResponse(report))
}

func (handler *httpHandler) handleExport(ctx *gin.Context) {
	periodID, ok := pathID(ctx, "periodID")
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	workbook, err := handler.service.ExportSpreadsheet(requestCtx, periodID)
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": workbook.Filename}))
	ctx.Data(http.StatusOK, workbook.ContentType, workbook.Data)
}

func (handler *httpHandler) handleImport(ctx *gin.Context) {
	periodID, ok := pathID(ctx, "periodID")
	if !ok {
		return
	}
	upload, ok := handler.readUpload(ctx)
	if !ok {
		return
	}
	overrides, err := formOverrides(ctx)
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	result, err := handler.service.ImportSpreadsheet(requestCtx, periodID, upload.Data, overrides)
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newImportResponse(result))
}

func (handler *httpHandler) handlePreviewImport(ctx *gin.Context) {
	periodID, ok := pathID(ctx, "periodID")
	if !ok {
		return
	}
	upload, ok := handler.readUpload(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	preview, err := handler.service.PreviewImport(requestCtx, periodID, upload.Data)
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newPreviewResponse(preview))
}

func (handler *httpHandler) handleImportHistory(ctx *gin.Context) {
	periodID, ok := pathID(ctx, "periodID")
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	runs, err := handler.service.ImportHistory(requestCtx, periodID)
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	payload := make([]importRunResponse, len(runs))
	for index, run := range runs {
		payload[index] = importRunResponse{
			ID:               run.ID,
			AttachmentID:     run.AttachmentID,
			Layout:           run.Layout.String(),
			UpdatedLines:     run.UpdatedLines,
			UnresolvedLabels: nonNil(run.UnresolvedLabels),
			CreatedAt:        run.CreatedAt,
		}
	}
	ctx.JSON(http.StatusOK, gin.H{"imports": payload})
}

func (handler *httpHandler) handleListAttachments(ctx *gin.Context) {
	periodID, ok := pathID(ctx, "periodID")
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	attachments, err := handler.service.ListAttachments(requestCtx, periodID)
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	payload := make([]attachmentResponse, len(attachments))
	for index, attachment := range attachments {
		payload[index] = newAttachmentResponse(attachment)
	}
	ctx.JSON(http.StatusOK, gin.H{"attachments": payload})
}

func (handler *httpHandler) handleAttachFile(ctx *gin.Context) {
	periodID, ok := pathID(ctx, "periodID")
	if !ok {
		return
	}
	upload, ok := handler.readUpload(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	attachment, err := handler.service.AttachFile(requestCtx, periodID, upload)
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, newAttachmentResponse(attachment))
}

func (handler *httpHandler) handleOpenAttachment(ctx *gin.Context) {
	periodID, ok := pathID(ctx, "periodID")
	if !ok {
		return
	}
	attachmentID, ok := pathID(ctx, "attachmentID")
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	attachment, data, err := handler.service.OpenAttachment(requestCtx, periodID, attachmentID)
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": attachment.Filename}))
	ctx.Data(http.StatusOK, attachment.ContentType, data)
}

func (handler *httpHandler) handleDeleteAttachment(ctx *gin.Context) {
	periodID, ok := pathID(ctx, "periodID")
	if !ok {
		return
	}
	attachmentID, ok := pathID(ctx, "attachmentID")
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	if err := handler.service.DeleteAttachment(requestCtx, periodID, attachmentID); err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (handler *httpHandler) handleImportAttachment(ctx *gin.Context) {
	periodID, ok := pathID(ctx, "periodID")
	if !ok {
		return
	}
	attachmentID, ok := pathID(ctx, "attachmentID")
	if !ok {
		return
	}
	var request overridesRequest
	if ctx.Request.ContentLength != 0 && !bindJSON(ctx, &request) {
		return
	}
	overrides, err := parseOverrides(request.Overrides)
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	result, err := handler.service.ImportAttachment(requestCtx, periodID, attachmentID, overrides)
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newImportResponse(result))
}

func (handler *httpHandler) handleUpdateDetail(ctx *gin.Context) {
	detailID, ok := pathID(ctx, "detailID")
	if !ok {
		return
	}
	var request detailPatchRequest
	if !bindJSON(ctx, &request) {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	line, err := handler.service.UpdateDetail(requestCtx, detailID, request.toPatch())
	if err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newDetailResponse(line))
}

func (handler *httpHandler) handleDeleteDetail(ctx *gin.Context) {
	detailID, ok := pathID(ctx, "detailID")
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	if err := handler.service.DeleteDetail(requestCtx, detailID); err != nil {
		handler.writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// readUpload reads the multipart file field, bounded by the configured upload size.
func (handler *httpHandler) readUpload(ctx *gin.Context) (collection.AttachmentInput, bool) {
	if ctx.Request.ContentLength > handler.cfg.MaxUploadBytes {
		ctx.JSON(http.StatusRequestEntityTooLarge, errorResponse(codeTooLarge, "upload exceeds the size limit"))
		return collection.AttachmentInput{}, false
	}
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, handler.cfg.MaxUploadBytes)
	header, err := ctx.FormFile(uploadFileField)
	if err != nil {
		status, code := statusFor(err)
		if status != http.StatusRequestEntityTooLarge {
			status, code = http.StatusBadRequest, codeInvalidPayload
		}
		ctx.JSON(status, errorResponse(code, fmt.Sprintf("multipart field %q is required", uploadFileField)))
		return collection.AttachmentInput{}, false
	}
	file, err := header.Open()
	if err != nil {
		handler.writeError(ctx, err)
		return collection.AttachmentInput{}, false
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		handler.writeError(ctx, err)
		return collection.AttachmentInput{}, false
	}
	return collection.AttachmentInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, true
}

func formOverrides(ctx *gin.Context) (map[string]collection.MappingOverride, error) {
	raw := strings.TrimSpace(ctx.PostForm(uploadOverridesField))
	if raw == "" {
		return nil, nil
	}
	var targets map[string]*int64
	if err := json.Unmarshal([]byte(raw), &targets); err != nil {
		return nil, fmt.Errorf("%w: overrides must be a JSON object", collection.ErrInvalidMappingTarget)
	}
	return parseOverrides(targets)
}

func bindJSON(ctx *gin.Context, target any) bool {
	if err := ctx.ShouldBindJSON(target); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(codeInvalidPayload, "expected JSON body"))
		return false
	}
	return true
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	parsed, err := strconv.ParseUint(ctx.Param(name), 10, 0)
	if err != nil || parsed == 0 {
		ctx.JSON(http.StatusBadRequest, errorResponse(codeInvalidID, fmt.Sprintf("%s must be a positive integer", name)))
		return 0, false
	}
	return uint(parsed), true
}

func queryUint(ctx *gin.Context, name string) (uint, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseUint(raw, 10, 0)
	if err != nil {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return uint(parsed), nil
}

func queryInt(ctx *gin.Context, name string) (int, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return parsed, nil
}
