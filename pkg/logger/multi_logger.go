package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryTask    LogCategory = "task"    // Task lifecycle events (JSON)
	CategoryError   LogCategory = "error"   // Application errors (JSON)
	CategoryAcquire LogCategory = "acquire" // Raw yt-dlp/spotdl output (text)
)

// Categories lists every category that can be read back
var Categories = []LogCategory{CategoryTask, CategoryError, CategoryAcquire}

// ValidCategory reports whether c is a known category
func ValidCategory(c LogCategory) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// MultiLogger writes categorized daily log files. Structured categories go
// through zap, raw subprocess output is appended by ProcessWriter.
type MultiLogger struct {
	loggers map[LogCategory]*zap.Logger
	files   map[LogCategory]*dailyFile
	config  MultiLoggerConfig
	now     func() time.Time
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string // debug, info, warn, error
	LogsDir string // Directory for log files
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}

	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	ml := &MultiLogger{
		loggers: make(map[LogCategory]*zap.Logger),
		files:   make(map[LogCategory]*dailyFile),
		config:  config,
		now:     time.Now,
	}

	levels := map[LogCategory]zapcore.Level{
		CategoryTask:  level,
		CategoryError: zapcore.ErrorLevel,
	}
	for category, lvl := range levels {
		file := &dailyFile{ml: ml, category: category}
		if _, err := file.current(); err != nil {
			ml.Close()
			return nil, fmt.Errorf("failed to create %s logger: %w", category, err)
		}
		ml.files[category] = file
		ml.loggers[category] = zap.New(zapcore.NewCore(newJSONEncoder(), file, lvl))
	}
	return ml, nil
}

func newJSONEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "msg"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = ""
	return zapcore.NewJSONEncoder(encoderConfig)
}

func (ml *MultiLogger) logPath(category LogCategory, date string) string {
	return filepath.Join(ml.config.LogsDir, fmt.Sprintf("%s-%s.log", category, date))
}

func (ml *MultiLogger) today() string {
	return ml.now().Format("20060102")
}

// dailyFile is the WriteSyncer behind a category logger. It swaps to the
// next day's file on the first write after midnight, so loggers handed out
// earlier keep working across the date change.
type dailyFile struct {
	ml       *MultiLogger
	category LogCategory

	mu     sync.Mutex
	date   string
	file   *os.File
	closed bool
}

// current returns the file for today, opening it if the date moved on.
// Callers other than the constructor hold mu.
func (d *dailyFile) current() (*os.File, error) {
	if d.closed {
		return nil, os.ErrClosed
	}
	date := d.ml.today()
	if d.file != nil && d.date == date {
		return d.file, nil
	}

	next, err := os.OpenFile(d.ml.logPath(d.category, date), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		if d.file != nil {
			// Keep yesterday's file rather than dropping the entry
			return d.file, nil
		}
		return nil, err
	}
	if d.file != nil {
		_ = d.file.Sync()
		d.file.Close()
	}
	d.file = next
	d.date = date
	return next, nil
}

func (d *dailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := d.current()
	if err != nil {
		return 0, err
	}
	return f.Write(p)
}

func (d *dailyFile) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return nil
	}
	return d.file.Sync()
}

func (d *dailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// GetLogsDir returns the logs directory path
func (ml *MultiLogger) GetLogsDir() string {
	return ml.config.LogsDir
}

// GetLogger returns the structured logger for a specific category
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	if logger, ok := ml.loggers[category]; ok {
		return logger
	}
	return ml.loggers[CategoryError]
}

// Task returns the task lifecycle logger
func (ml *MultiLogger) Task() *zap.Logger {
	return ml.GetLogger(CategoryTask)
}

// Error returns the error logger
func (ml *MultiLogger) Error() *zap.Logger {
	return ml.GetLogger(CategoryError)
}

// LogAppError logs an application-level error (Go errors, panics)
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.Error().Error(msg, fields...)
}

// LogTaskEvent logs a task lifecycle event with structured data
func (ml *MultiLogger) LogTaskEvent(event string, fields ...zap.Field) {
	ml.Task().Info(event, fields...)
}

// ProcessWriter opens today's raw process output file for appending.
// The caller closes it.
func (ml *MultiLogger) ProcessWriter() (io.WriteCloser, error) {
	path := ml.logPath(CategoryAcquire, ml.today())
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	var err error
	for _, logger := range ml.loggers {
		err = multierr.Append(err, logger.Sync())
	}
	return err
}

// Close flushes and closes all log files
func (ml *MultiLogger) Close() error {
	var err error
	for category, file := range ml.files {
		if logger, ok := ml.loggers[category]; ok {
			err = multierr.Append(err, logger.Sync())
		}
		err = multierr.Append(err, file.Close())
	}
	return err
}
