package stack

import (
	"fmt"
	"time"
)

// Formatter renders durations and timestamps for labels.
// All inputs are epoch milliseconds (timestamps) or millisecond spans (durations).
type Formatter interface {
	Duration(ms int64) string
	Timestamp(ms int64) string
	LogTime(ms int64) string
}

const (
	timestampLayout = "2006-01-02 15:04:05.000"
	logTimeLayout   = "04:05.000"
)

// DefaultFormatter formats in a fixed location so output does not depend on the host timezone.
type DefaultFormatter struct {
	Location *time.Location
}

func (f DefaultFormatter) loc() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

// Duration returns "850ms" below one second, "1.2s" below one minute and "2m5s" above.
func (f DefaultFormatter) Duration(ms int64) string {
	switch {
	case ms < 1000:
		return fmt.Sprintf("%dms", ms)
	case ms < 60_000:
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	default:
		d := time.Duration(ms) * time.Millisecond
		return d.Truncate(time.Second).String()
	}
}

// Timestamp returns the full date and millisecond time.
func (f DefaultFormatter) Timestamp(ms int64) string {
	return time.UnixMilli(ms).In(f.loc()).Format(timestampLayout)
}

// LogTime returns minutes, seconds and milliseconds only.
func (f DefaultFormatter) LogTime(ms int64) string {
	return time.UnixMilli(ms).In(f.loc()).Format(logTimeLayout)
}
