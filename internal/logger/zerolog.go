package logger

import (
	"errors"
	"io"
	"os"

	"photo-filters/internal/commonerr"

	"github.com/rs/zerolog"
)

// ZerologAdapter writes one event per call with the component name, the
// caller's fields and, for errors, the context carried by typed errors.
type ZerologAdapter struct {
	logger zerolog.Logger
}

func NewZerolog(writer io.Writer, level zerolog.Level) *ZerologAdapter {
	return &ZerologAdapter{
		logger: zerolog.New(writer).Level(level).With().Timestamp().Logger(),
	}
}

func NewConsoleLogger(level zerolog.Level) *ZerologAdapter {
	return NewZerolog(zerolog.ConsoleWriter{Out: os.Stderr}, level)
}

// NewNop discards everything.
func NewNop() *ZerologAdapter {
	return &ZerologAdapter{logger: zerolog.Nop()}
}

func (z *ZerologAdapter) Debug(component, message string, fields map[string]interface{}) {
	emit(z.logger.Debug(), component, fields).Msg(message)
}

func (z *ZerologAdapter) Info(component, message string, fields map[string]interface{}) {
	emit(z.logger.Info(), component, fields).Msg(message)
}

func (z *ZerologAdapter) Warning(component, message string, fields map[string]interface{}) {
	emit(z.logger.Warn(), component, fields).Msg(message)
}

// Error logs err under a message naming the failed operation when err
// carries one.
func (z *ZerologAdapter) Error(component string, err error, fields map[string]interface{}) {
	event := emit(z.logger.Error().Err(err), component, fields)
	emitErrorContext(event, err).Msg(failureMessage(err))
}

func emit(event *zerolog.Event, component string, fields map[string]interface{}) *zerolog.Event {
	event = event.Str("component", component)
	if len(fields) > 0 {
		event = event.Fields(fields)
	}
	return event
}

func emitErrorContext(event *zerolog.Event, err error) *zerolog.Event {
	var (
		storeErr     *commonerr.StoreError
		engineErr    *commonerr.TransformEngineError
		notFound     *commonerr.NotFoundError
		notLoaded    *commonerr.NotLoadedError
		unknown      *commonerr.UnknownFilterError
		invalidInput *commonerr.InvalidInputError
	)

	switch {
	case errors.As(err, &storeErr):
		event = event.Str("op", storeErr.Op)
		if storeErr.ID != 0 {
			event = event.Int64("image_id", storeErr.ID)
		}
	case errors.As(err, &notFound):
		event = event.Int64("image_id", notFound.ID)
	case errors.As(err, &notLoaded):
		event = event.Str("op", notLoaded.Op)
	case errors.As(err, &unknown):
		event = event.Str("filter", unknown.Name)
	case errors.As(err, &engineErr):
		event = event.Str("filter", engineErr.Filter).Float64("param", engineErr.Param)
	case errors.As(err, &invalidInput):
		event = event.Str("mime", invalidInput.MIME).Int("size", invalidInput.Size)
	}
	return event
}

func failureMessage(err error) string {
	var (
		storeErr  *commonerr.StoreError
		notLoaded *commonerr.NotLoadedError
	)
	switch {
	case errors.As(err, &storeErr):
		return "store " + storeErr.Op + " failed"
	case errors.As(err, &notLoaded):
		return notLoaded.Op + " failed"
	case errors.Is(err, commonerr.ErrTransformEngine):
		return "filter failed"
	default:
		return "operation failed"
	}
}
