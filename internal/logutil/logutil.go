// Package logutil builds pion loggers from optional factories.
package logutil

import (
	"io"

	"github.com/pion/logging"
)

// Logger returns factory's logger for scope, or a disabled logger when
// factory is nil so callers never check for nil.
func Logger(factory logging.LoggerFactory, scope string) logging.LeveledLogger {
	if factory == nil {
		return logging.NewDefaultLeveledLoggerForScope(scope, logging.LogLevelDisabled, io.Discard)
	}
	return factory.NewLogger(scope)
}
