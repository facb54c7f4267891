package utils

import (
	"strings"

	"go.uber.org/zap"
)

func AddToLogMessage(logMessagesBuilder *strings.Builder, strToAdd string) {

	if logMessagesBuilder.Len() == logMessagesBuilder.Cap() {

		logMessagesBuilder.Grow(len(strToAdd))
	}

	logMessagesBuilder.WriteString(strToAdd)
	logMessagesBuilder.WriteString(";")
	logMessagesBuilder.WriteString("\n")
}

// RequestLog collects the steps of one API call and writes them out as a
// single log entry when the handler returns.
type RequestLog struct {
	builder strings.Builder
	fields  []interface{}
	failed  bool
}

func NewRequestLog(api string, fields ...interface{}) *RequestLog {
	l := &RequestLog{fields: fields}
	AddToLogMessage(&l.builder, "["+api+"]")
	return l
}

func (l *RequestLog) Add(msg string) {
	if l == nil {
		return
	}
	AddToLogMessage(&l.builder, msg)
}

// Fail records msg and raises the entry to warn level.
func (l *RequestLog) Fail(msg string) {
	if l == nil {
		return
	}
	l.failed = true
	AddToLogMessage(&l.builder, msg)
}

func (l *RequestLog) String() string {
	return l.builder.String()
}

// Flush writes the collected lines through the global sugared logger.
func (l *RequestLog) Flush() {
	logger := zap.S()
	if l.failed {
		logger.Warnw(l.builder.String(), l.fields...)
		return
	}
	logger.Infow(l.builder.String(), l.fields...)
}
