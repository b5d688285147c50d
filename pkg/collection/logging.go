package collection

import (
	"context"
	"time"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing collection operation.
type OperationLog struct {
	Operation string
	VenueID   uint
	PeriodID  uint
	LineCount int
	Status    string
	Error     error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithBlobStore wires the file storage used by attachments.
func WithBlobStore(blobs BlobStore) ServiceOption {
	return func(service *Service) {
		service.blobs = blobs
	}
}

// WithSpreadsheetCodec wires the workbook reader and writer.
func WithSpreadsheetCodec(codec SpreadsheetCodec) ServiceOption {
	return func(service *Service) {
		service.codec = codec
	}
}

// WithClock overrides the time source used for attachment and import timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(service *Service) {
		if now != nil {
			service.nowFn = now
		}
	}
}
