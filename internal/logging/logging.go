// Package logging builds the session logger. Every run writes a structured
// JSON log file alongside human-readable console output, so a session can be
// audited after the browser window is long gone.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Session wraps the logger together with the run identity and the handle
// needed to flush the log file on shutdown.
type Session struct {
	Logger  *zap.Logger
	RunID   string
	LogPath string

	file *os.File
}

// New creates a session logger that tees console output and a JSON log file
// under dir. Verbose lowers the console level to debug; the file always
// records debug and above.
func New(dir string, verbose bool) (*Session, error) {
	runID := uuid.New().String()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	name := fmt.Sprintf("%s_%s.log", time.Now().Format("20060102-150405"), runID[:8])
	path := filepath.Join(dir, name)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file %s: %w", path, err)
	}

	consoleLevel := zap.InfoLevel
	if verbose {
		consoleLevel = zap.DebugLevel
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")

	fileCfg := zap.NewProductionEncoderConfig()
	fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(os.Stdout), consoleLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(file), zap.DebugLevel),
	)

	logger := zap.New(core).With(zap.String("run_id", runID[:8]))

	return &Session{
		Logger:  logger,
		RunID:   runID,
		LogPath: path,
		file:    file,
	}, nil
}

// Close flushes buffered entries and closes the log file.
func (s *Session) Close() error {
	// Sync on stdout can fail on some platforms; the file sync is what matters.
	_ = s.Logger.Sync()
	return s.file.Close()
}
