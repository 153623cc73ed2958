// Package log provides the structured Logger every package in this
// module takes as a constructor argument, adapted from the teacher's
// zap-backed common/log package: a small interface so call sites never
// depend on zap directly, a process-wide default guarded by sync.Once,
// and a context.Context carrier for request-scoped loggers.
package log

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface used throughout this module.
type Logger interface {
	Info(keyvals ...interface{})
	Debug(keyvals ...interface{})
	Warn(keyvals ...interface{})
	Error(keyvals ...interface{})
	Fatal(keyvals ...interface{})
	Panic(keyvals ...interface{})
	Infow(msg string, keyvals ...interface{})
	Debugw(msg string, keyvals ...interface{})
	Warnw(msg string, keyvals ...interface{})
	Errorw(msg string, keyvals ...interface{})
	Fatalw(msg string, keyvals ...interface{})
	Panicw(msg string, keyvals ...interface{})
	With(args ...interface{}) Logger
	Named(s string) Logger
	AddCallerSkip(skip int) Logger
}

type log struct {
	*zap.SugaredLogger
}

func (l *log) AddCallerSkip(skip int) Logger {
	return &log{l.WithOptions(zap.AddCallerSkip(skip))}
}

func (l *log) With(args ...interface{}) Logger {
	return &log{l.SugaredLogger.With(args...)}
}

func (l *log) Named(s string) Logger {
	return &log{l.SugaredLogger.Named(s)}
}

const (
	InfoLevel  = int(zapcore.InfoLevel)
	DebugLevel = int(zapcore.DebugLevel)
	ErrorLevel = int(zapcore.ErrorLevel)
	FatalLevel = int(zapcore.FatalLevel)
	PanicLevel = int(zapcore.PanicLevel)
	WarnLevel  = int(zapcore.WarnLevel)
)

// DefaultLevel is consulted the first time DefaultLogger is called.
var DefaultLevel = InfoLevel

var isDefaultLoggerSet sync.Once

// DefaultLogger returns the process-wide logger, constructing it (JSON
// encoded, to stdout, at DefaultLevel) on first use.
func DefaultLogger() Logger {
	isDefaultLoggerSet.Do(func() {
		zap.ReplaceGlobals(newZapLogger(nil, getJSONEncoder(), DefaultLevel))
	})
	return &log{zap.S()}
}

// New returns a standalone logger writing to output at the given level.
func New(output zapcore.WriteSyncer, level int, isJSON bool) Logger {
	encoder := getConsoleEncoder()
	if isJSON {
		encoder = getJSONEncoder()
	}
	l := newZapLogger(output, encoder, level)
	return &log{l.Sugar()}
}

func newZapLogger(output zapcore.WriteSyncer, encoder zapcore.Encoder, level int) *zap.Logger {
	if output == nil {
		output = os.Stdout
	}
	core := zapcore.NewCore(encoder, output, zapcore.Level(level))
	return zap.New(core, zap.WithCaller(true))
}

func getJSONEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func getConsoleEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

type ctxLoggerKey string

const ctxLogger ctxLoggerKey = "fteLogger"

// ToContext attaches l to ctx.
func ToContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxLogger, l)
}

// FromContextOrDefault returns the logger attached to ctx, or
// DefaultLogger() if none was attached.
func FromContextOrDefault(ctx context.Context) Logger {
	l, ok := ctx.Value(ctxLogger).(Logger)
	if !ok {
		l = DefaultLogger()
		l.Debugw("logger missing on context, using default logger")
	}
	return l
}

// ForLanguage tags l with the language name every registry.Registry build
// and record.Codec call concerns itself with, so a log line can be
// attributed to a language without every call site repeating the key.
func ForLanguage(l Logger, name string) Logger {
	if name == "" {
		return l
	}
	return l.With("language", name)
}

// ForPartition further tags l with the partition record.Codec.Encode/Decode
// is operating under, the finer unit spec.md §4.4 scopes a codec call to.
func ForPartition(l Logger, partition string) Logger {
	if partition == "" {
		return l
	}
	return l.With("partition", partition)
}
