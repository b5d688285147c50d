// Package oplog writes collection service operations to zap.
package oplog

import (
	"context"

	"github.com/MarkoPoloResearchLab/collections/pkg/collection"
	"go.uber.org/zap"
)

const logMessage = "collection operation"

var _ collection.OperationLogger = (*ZapLogger)(nil)

// ZapLogger implements collection.OperationLogger.
type ZapLogger struct {
	logger *zap.Logger
}

// New wraps logger; a nil logger discards entries.
func New(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger.Named("collection")}
}

// LogOperation logs successful operations at info level and failures at warn level.
func (adapter *ZapLogger) LogOperation(_ context.Context, entry collection.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
	}
	if entry.VenueID != 0 {
		fields = append(fields, zap.Uint("venue_id", entry.VenueID))
	}
	if entry.PeriodID != 0 {
		fields = append(fields, zap.Uint("period_id", entry.PeriodID))
	}
	if entry.LineCount != 0 {
		fields = append(fields, zap.Int("line_count", entry.LineCount))
	}
	if entry.Error != nil {
		adapter.logger.Warn(logMessage, append(fields, zap.Error(entry.Error))...)
		return
	}
	adapter.logger.Info(logMessage, fields...)
}
