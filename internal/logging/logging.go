// Package logging builds a dependency-injected arbor.ILogger per the
// teacher's cmd/quaero/main.go initialization sequence: console writer
// (always), optional file writer, level applied last from config.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/contentforge/orchestrator/internal/config"
	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"
)

// New builds an arbor.ILogger configured from cfg. logsDir, when non-empty,
// enables file logging alongside the console writer.
func New(cfg config.LoggingConfig, logsDir string) arbor.ILogger {
	logger := arbor.NewLogger()

	logger = logger.WithConsoleWriter(arbormodels.WriterConfiguration{
		Type:             arbormodels.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		TextOutput:       true,
		DisableTimestamp: false,
	})

	if logsDir != "" {
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			logger.Warn().Err(err).Str("logs_dir", logsDir).Msg("failed to create logs directory, console-only logging")
		} else {
			logFile := filepath.Join(logsDir, "orchestrator.log")
			logger = logger.WithFileWriter(arbormodels.WriterConfiguration{
				Type:             arbormodels.LogWriterTypeFile,
				FileName:         logFile,
				TimeFormat:       "15:04:05",
				MaxSize:          100 * 1024 * 1024,
				MaxBackups:       3,
				TextOutput:       true,
				DisableTimestamp: false,
			})
		}
	}

	logger = logger.WithLevelFromString(cfg.Level)
	return logger
}

// WithField panics if logger is nil and otherwise returns logger unchanged;
// it does not attach the component name to the lines the logger emits.
func WithField(logger arbor.ILogger, component string) arbor.ILogger {
	if logger == nil {
		panic(fmt.Sprintf("logging.WithField called with nil logger for component %s", component))
	}
	return logger
}
