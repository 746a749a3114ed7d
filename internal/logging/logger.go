package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Nomadcxx/jellyname/internal/config"
)

// Field keys shared across components.
const (
	FieldComponent = "component"
	FieldSession   = "session"
	FieldFile      = "file"
	FieldArchive   = "archive"
)

// Options describes logger construction parameters. Output paths other
// than stdout and stderr are rotated files.
type Options struct {
	Level            string
	Format           string
	OutputPaths      []string
	ErrorOutputPaths []string
	Development      bool

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New constructs a zap logger using the provided options. Caller
// information is only attached at debug level or in development mode.
func New(opts Options) (*zap.Logger, error) {
	level := parseLevel(opts.Level)

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeDuration = zapcore.StringDurationEncoder

	var encoder zapcore.Encoder
	switch format {
	case "json":
		encoderCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	case "console":
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	writers := newWriterSet(opts)
	out := writers.open(defaultSlice(opts.OutputPaths, []string{"stderr"}))
	errOut := writers.open(defaultSlice(opts.ErrorOutputPaths, []string{"stderr"}))

	core := zapcore.NewCore(encoder, out, zap.NewAtomicLevelAt(level))

	zapOpts := []zap.Option{zap.ErrorOutput(errOut)}
	if opts.Development || level <= zapcore.DebugLevel {
		zapOpts = append(zapOpts, zap.AddCaller())
	}
	if opts.Development {
		zapOpts = append(zapOpts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	}

	return zap.New(core, zapOpts...), nil
}

// NewFromConfig creates a logger from the [log] section of cfg.
func NewFromConfig(cfg *config.Config) (*zap.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console"})
	}

	outputs := []string{"stderr"}
	if cfg.Log.File != "" {
		outputs = append(outputs, cfg.Log.File)
	}

	return New(Options{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      outputs,
		ErrorOutputPaths: outputs,
		MaxSizeMB:        cfg.Log.MaxSizeMB,
		MaxBackups:       cfg.Log.MaxBackups,
		MaxAgeDays:       cfg.Log.MaxAgeDays,
	})
}

// Component returns a child logger tagged with the component name.
func Component(logger *zap.Logger, name string) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.With(zap.String(FieldComponent, name))
}

// writerSet shares one rotating writer per file between the normal and
// error outputs.
type writerSet struct {
	opts  Options
	files map[string]zapcore.WriteSyncer
}

func newWriterSet(opts Options) *writerSet {
	return &writerSet{opts: opts, files: make(map[string]zapcore.WriteSyncer)}
}

func (w *writerSet) open(paths []string) zapcore.WriteSyncer {
	seen := map[string]struct{}{}
	var syncers []zapcore.WriteSyncer

	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		switch trimmed {
		case "stdout":
			syncers = append(syncers, zapcore.Lock(os.Stdout))
		case "stderr":
			syncers = append(syncers, zapcore.Lock(os.Stderr))
		default:
			if existing, ok := w.files[trimmed]; ok {
				syncers = append(syncers, existing)
				continue
			}
			file := zapcore.AddSync(&lumberjack.Logger{
				Filename:   trimmed,
				MaxSize:    w.opts.MaxSizeMB, // megabytes, 0 means lumberjack's default
				MaxBackups: w.opts.MaxBackups,
				MaxAge:     w.opts.MaxAgeDays,
			})
			w.files[trimmed] = file
			syncers = append(syncers, file)
		}
	}

	if len(syncers) == 0 {
		return zapcore.Lock(os.Stderr)
	}
	if len(syncers) == 1 {
		return syncers[0]
	}
	return zapcore.NewMultiWriteSyncer(syncers...)
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func defaultSlice(value []string, fallback []string) []string {
	if len(value) == 0 {
		return append([]string(nil), fallback...)
	}
	return append([]string(nil), value...)
}
