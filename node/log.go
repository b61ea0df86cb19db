package node

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jrick/logrotate/rotator"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	logFileName        = "ledgerd.log"
	logRotateThreshold = 10 * 1024 // KB
	logMaxRolls        = 8
)

// Logger bundles the zerolog logger with the rotator it may write to.
type Logger struct {
	zerolog.Logger
	rotator *rotator.Rotator
}

// NewLogger builds a console logger at level. With a non-empty logDir the
// output is also written to a rotating file there.
func NewLogger(out io.Writer, level string, logDir string) (*Logger, error) {
	lvl, err := parseLogLevel(level)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stderr
	}
	writers := []io.Writer{zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}}

	var r *rotator.Rotator
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o700); err != nil {
			return nil, errors.Wrapf(err, "create log dir %s", logDir)
		}
		r, err = rotator.New(filepath.Join(logDir, logFileName), logRotateThreshold, false, logMaxRolls)
		if err != nil {
			return nil, errors.Wrap(err, "create file rotator")
		}
		writers = append(writers, r)
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(lvl).With().Timestamp().Logger()
	return &Logger{Logger: zl, rotator: r}, nil
}

// NopLogger discards everything.
func NopLogger() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

func (l *Logger) Close() error {
	if l == nil || l.rotator == nil {
		return nil
	}
	return l.rotator.Close()
}

func parseLogLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, errors.Errorf("invalid log level %q", level)
	}
}
