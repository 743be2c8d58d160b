// internal/common/errors/handler.go
package errors

import (
	"context"
)

// Replier sends a plain text message back to the user of the current turn.
type Replier interface {
	SendText(ctx context.Context, text string) error
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// FaultRecorder is notified once per handled fault.
type FaultRecorder interface {
	RecordFault(source string, code ErrorCode)
}

// ErrorHandler turns a fault into the single user-visible apology of a turn.
type ErrorHandler struct {
	logger   Logger
	recorder FaultRecorder
	apology  string
}

func NewErrorHandler(logger Logger, recorder FaultRecorder, apology string) *ErrorHandler {
	return &ErrorHandler{logger: logger, recorder: recorder, apology: apology}
}

// HandleFault normalizes err, logs it, records it and sends the apology. source names
// where the fault surfaced (a step id or "turn"). A failure to deliver the apology is
// logged and otherwise ignored.
func (h *ErrorHandler) HandleFault(ctx context.Context, replier Replier, source string, err error, fields map[string]interface{}) *StandardError {
	stdErr := AsStandardError(err)

	logFields := map[string]interface{}{
		"source":        source,
		"errorCode":     string(stdErr.Code),
		"errorCategory": GetErrorCategory(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	h.logger.Error("turn faulted", logFields)

	if h.recorder != nil {
		h.recorder.RecordFault(source, stdErr.Code)
	}

	if replier != nil && h.apology != "" {
		if sendErr := replier.SendText(ctx, h.apology); sendErr != nil {
			h.logger.Error("failed to send apology", map[string]interface{}{
				"source": source,
				"error":  sendErr.Error(),
			})
		}
	}
	return stdErr
}
