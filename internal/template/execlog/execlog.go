package execlog

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Entry is one finished template execution
type Entry struct {
	TemplateID     string
	ExecutionID    string
	Duration       time.Duration
	CreditsCharged int
	Success        bool
	ErrorCode      string
	ErrorMessage   string
	RecordedAt     time.Time
}

// Recorder persists execution entries. Callers treat failures as
// best-effort: a lost entry never fails the execution it describes.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// ZapRecorder writes entries as structured log lines
type ZapRecorder struct {
	logger *zap.Logger
}

func NewZapRecorder(logger *zap.Logger) *ZapRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapRecorder{logger: logger}
}

func (z *ZapRecorder) Record(_ context.Context, e Entry) error {
	fields := []zap.Field{
		zap.String("template_id", e.TemplateID),
		zap.String("execution_id", e.ExecutionID),
		zap.Duration("duration", e.Duration),
		zap.Int("credits_charged", e.CreditsCharged),
		zap.Bool("success", e.Success),
	}
	if !e.Success {
		fields = append(fields, zap.String("error_code", e.ErrorCode), zap.String("error", e.ErrorMessage))
	}
	z.logger.Info("Template execution recorded", fields...)
	return nil
}

// multi fans an entry out to several recorders
type multi []Recorder

// Multi returns a recorder writing to every non-nil recorder. All are
// attempted even when one fails.
func Multi(recorders ...Recorder) Recorder {
	var m multi
	for _, r := range recorders {
		if r != nil {
			m = append(m, r)
		}
	}
	return m
}

func (m multi) Record(ctx context.Context, e Entry) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
