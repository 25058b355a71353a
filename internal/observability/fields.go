package observability

import (
	"time"

	"go.uber.org/zap"
)

// String constructs a string field for contextual log entries.
func String(key, value string) zap.Field { return zap.String(key, value) }

// Int constructs an int field.
func Int(key string, value int) zap.Field { return zap.Int(key, value) }

// Int64 constructs an int64 field, used for token counts.
func Int64(key string, value int64) zap.Field { return zap.Int64(key, value) }

// Bool constructs a bool field.
func Bool(key string, value bool) zap.Field { return zap.Bool(key, value) }

// Duration constructs a duration field for latencies and timeouts.
func Duration(key string, value time.Duration) zap.Field { return zap.Duration(key, value) }

// Error constructs the standard "error" field.
func Error(err error) zap.Field { return zap.Error(err) }
