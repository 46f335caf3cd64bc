// Package logging configures the global zerolog logger for the service.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"golang.org/x/term"
)

type ctxKey string

const (
	requestIDKey ctxKey = "logging_request_id"

	bytesPerMB       int64 = 1024 * 1024
	defaultMaxSizeMB       = 50
)

// Config controls logger initialization.
type Config struct {
	Format    string // "json", "console", or "auto"
	Level     string // "debug", "info", "warn", "error"
	Component string // optional component name
	FilePath  string // optional log file path
	MaxSizeMB int    // rotate after this size (MB)
}

var (
	mu         sync.Mutex
	fileCloser io.Closer
)

func init() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Init configures zerolog globals and installs the package logger.
func Init(cfg Config) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()

	previousCloser := fileCloser
	fileCloser = nil

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	writer := selectWriter(cfg.Format)
	if fw, err := newRotatingFileWriter(cfg.FilePath, cfg.MaxSizeMB); err != nil {
		fmt.Fprintf(os.Stderr, "logging: unable to configure file output: %v\n", err)
	} else if fw != nil {
		writer = io.MultiWriter(writer, fw)
		fileCloser = fw
	}

	builder := zerolog.New(writer).With().Timestamp()
	if component := strings.TrimSpace(cfg.Component); component != "" {
		builder = builder.Str("component", component)
	}
	logger := builder.Logger()
	log.Logger = logger

	if previousCloser != nil {
		if err := previousCloser.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "logging: unable to close previous log file: %v\n", err)
		}
	}

	return logger
}

// Shutdown closes logging resources that outlive a single request.
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()

	if fileCloser != nil {
		if err := fileCloser.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "logging: unable to close log file: %v\n", err)
		}
		fileCloser = nil
	}
}

// WithRequestID stores (or generates) a request ID on the context.
func WithRequestID(ctx context.Context, requestID string) (context.Context, string) {
	if ctx == nil {
		ctx = context.Background()
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return context.WithValue(ctx, requestIDKey, requestID), requestID
}

// RequestID returns the request ID stored on the context, if any.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zerolog.InfoLevel
	case "debug":
		return zerolog.DebugLevel
	case "trace":
		return zerolog.TraceLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled":
		return zerolog.Disabled
	default:
		fmt.Fprintf(os.Stderr, "logging: invalid level %q; using %q\n", level, "info")
		return zerolog.InfoLevel
	}
}

func selectWriter(format string) io.Writer {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console":
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	case "json":
		return os.Stderr
	case "auto", "":
		if term.IsTerminal(int(os.Stderr.Fd())) {
			return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		}
		return os.Stderr
	default:
		fmt.Fprintf(os.Stderr, "logging: invalid format %q; using %q\n", format, "json")
		return os.Stderr
	}
}

// rotatingFileWriter appends to a single log file and renames it aside once
// it crosses the size limit. Rotated files keep a timestamp suffix.
type rotatingFileWriter struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	size     int64
	maxBytes int64
}

func newRotatingFileWriter(path string, maxSizeMB int) (*rotatingFileWriter, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if maxSizeMB <= 0 {
		maxSizeMB = defaultMaxSizeMB
	}
	w := &rotatingFileWriter{
		path:     path,
		maxBytes: int64(maxSizeMB) * bytesPerMB,
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *rotatingFileWriter) open() error {
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", w.path, err)
	}
	w.file = file
	info, err := file.Stat()
	if err != nil {
		w.size = 0
		return nil
	}
	w.size = info.Size()
	return nil
}

func (w *rotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}
	if w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *rotatingFileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close log file before rotation: %w", err)
	}
	w.file = nil
	w.size = 0

	if _, err := os.Stat(w.path); err == nil {
		rotated := fmt.Sprintf("%s.%s", w.path, time.Now().Format("20060102-150405"))
		if err := os.Rename(w.path, rotated); err != nil {
			fmt.Fprintf(os.Stderr, "logging: rotate %s -> %s failed: %v\n", w.path, rotated, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "logging: stat %s failed: %v\n", w.path, err)
	}
	return w.open()
}

func (w *rotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
