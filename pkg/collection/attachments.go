package collection

import (
	"context"
	"fmt"
	"path"
	"strings"
)

const defaultContentType = "application/octet-stream"

// AttachmentInput is an uploaded file for a period.
type AttachmentInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AttachFile stores the bytes in blob storage and records the attachment.
// The blob is removed again when the record cannot be written.
func (service *Service) AttachFile(ctx context.Context, periodID uint, input AttachmentInput) (Attachment, error) {
	if service.blobs == nil {
		return Attachment{}, fmt.Errorf("%w: blob store is not configured", ErrInvalidServiceConfig)
	}
	filename := path.Base(strings.ReplaceAll(strings.TrimSpace(input.Filename), "\\", "/"))
	if filename == "" || filename == "." || filename == "/" {
		return Attachment{}, fmt.Errorf("%w: filename is required", ErrValidation)
	}
	if len(input.Data) == 0 {
		return Attachment{}, fmt.Errorf("%w: file is empty", ErrValidation)
	}
	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		contentType = defaultContentType
	}

	period, err := service.store.GetPeriod(ctx, periodID)
	if err != nil {
		return Attachment{}, err
	}
	storedPath, err := service.blobs.Put(ctx, filename, contentType, input.Data)
	if err != nil {
		err = WrapError(errorOperationService, errorSubjectBlob, errorCodeWrite, err)
		service.logOperation(ctx, OperationLog{Operation: operationAttach, VenueID: period.VenueID, PeriodID: periodID, Error: err})
		return Attachment{}, err
	}
	attachment, err := service.store.CreateAttachment(ctx, Attachment{
		PeriodID:    periodID,
		Path:        storedPath,
		Filename:    filename,
		ContentType: contentType,
		CreatedAt:   service.nowFn(),
	})
	if err != nil {
		_ = service.blobs.Delete(ctx, storedPath)
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationAttach,
		VenueID:   period.VenueID,
		PeriodID:  periodID,
		Error:     err,
	})
	if err != nil {
		return Attachment{}, err
	}
	return attachment, nil
}

// ListAttachments returns the attachments of a period, oldest first.
func (service *Service) ListAttachments(ctx context.Context, periodID uint) ([]Attachment, error) {
	if _, err := service.store.GetPeriod(ctx, periodID); err != nil {
		return nil, err
	}
	return service.store.ListAttachments(ctx, periodID)
}

// OpenAttachment returns an attachment record with its stored bytes.
func (service *Service) OpenAttachment(ctx context.Context, periodID uint, attachmentID uint) (Attachment, []byte, error) {
	attachment, err := service.periodAttachment(ctx, periodID, attachmentID)
	if err != nil {
		return Attachment{}, nil, err
	}
	data, err := service.readBlob(ctx, attachment)
	if err != nil {
		return Attachment{}, nil, err
	}
	return attachment, data, nil
}

// DeleteAttachment removes the record and then the stored bytes.
func (service *Service) DeleteAttachment(ctx context.Context, periodID uint, attachmentID uint) error {
	attachment, err := service.periodAttachment(ctx, periodID, attachmentID)
	if err == nil {
		err = service.store.DeleteAttachment(ctx, attachmentID)
	}
	if err == nil && service.blobs != nil {
		_ = service.blobs.Delete(ctx, attachment.Path)
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationDetach,
		PeriodID:  periodID,
		Error:     err,
	})
	return err
}

func (service *Service) readAttachment(ctx context.Context, periodID uint, attachmentID uint) ([]byte, error) {
	attachment, err := service.periodAttachment(ctx, periodID, attachmentID)
	if err != nil {
		return nil, err
	}
	return service.readBlob(ctx, attachment)
}

func (service *Service) periodAttachment(ctx context.Context, periodID uint, attachmentID uint) (Attachment, error) {
	attachment, err := service.store.GetAttachment(ctx, attachmentID)
	if err != nil {
		return Attachment{}, err
	}
	if attachment.PeriodID != periodID {
		return Attachment{}, fmt.Errorf("%w: attachment %d does not belong to period %d", ErrAttachmentNotFound, attachmentID, periodID)
	}
	return attachment, nil
}

func (service *Service) readBlob(ctx context.Context, attachment Attachment) ([]byte, error) {
	if service.blobs == nil {
		return nil, fmt.Errorf("%w: blob store is not configured", ErrInvalidServiceConfig)
	}
	data, err := service.blobs.Get(ctx, attachment.Path)
	if err != nil {
		return nil, WrapError(errorOperationService, errorSubjectBlob, errorCodeRead, err)
	}
	return data, nil
}
