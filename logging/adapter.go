package logging

import (
	"context"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the minimal leveled interface beans can depend on when they
// should not care which logging backend the application wired in.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// SlogAdapter wraps slog.Logger to implement Logger.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a Logger adapter from an slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{logger: logger}
}

func (a *SlogAdapter) Debug(msg string, keysAndValues ...any) {
	a.logger.Debug(msg, keysAndValues...)
}

func (a *SlogAdapter) Info(msg string, keysAndValues ...any) {
	a.logger.Info(msg, keysAndValues...)
}

func (a *SlogAdapter) Warn(msg string, keysAndValues ...any) {
	a.logger.Warn(msg, keysAndValues...)
}

func (a *SlogAdapter) Error(msg string, keysAndValues ...any) {
	a.logger.Error(msg, keysAndValues...)
}

// ZapAdapter wraps zap.Logger to implement Logger, for applications
// that already run on zap and register their own logger bean.
type ZapAdapter struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

// NewZapAdapter creates a Logger adapter from a zap.Logger.
func NewZapAdapter(logger *zap.Logger) Logger {
	return &ZapAdapter{
		logger: logger,
		sugar:  logger.Sugar(),
	}
}

func (a *ZapAdapter) Debug(msg string, keysAndValues ...any) {
	a.sugar.Debugw(msg, keysAndValues...)
}

func (a *ZapAdapter) Info(msg string, keysAndValues ...any) {
	a.sugar.Infow(msg, keysAndValues...)
}

func (a *ZapAdapter) Warn(msg string, keysAndValues ...any) {
	a.sugar.Warnw(msg, keysAndValues...)
}

func (a *ZapAdapter) Error(msg string, keysAndValues ...any) {
	a.sugar.Errorw(msg, keysAndValues...)
}

// Underlying returns the wrapped *zap.Logger for call sites that need
// the concrete type.
func (a *ZapAdapter) Underlying() *zap.Logger {
	return a.logger
}

// ZapHandler adapts a zap.Logger into an slog.Handler, letting an
// application that already runs on zap route framework logging through
// its own sink.
type ZapHandler struct {
	logger *zap.Logger
	attrs  []slog.Attr
	groups []string
}

// NewZapHandler wraps logger as an slog.Handler.
func NewZapHandler(logger *zap.Logger) slog.Handler {
	return &ZapHandler{logger: logger}
}

func (h *ZapHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.Core().Enabled(zapLevel(level))
}

func (h *ZapHandler) Handle(_ context.Context, rec slog.Record) error {
	fields := make([]zap.Field, 0, len(h.attrs)+rec.NumAttrs())
	for _, a := range h.attrs {
		fields = append(fields, zapField(h.groups, a))
	}
	rec.Attrs(func(a slog.Attr) bool {
		fields = append(fields, zapField(h.groups, a))
		return true
	})
	ce := h.logger.Check(zapLevel(rec.Level), rec.Message)
	if ce == nil {
		return nil
	}
	if !rec.Time.IsZero() {
		ce.Time = rec.Time
	}
	ce.Write(fields...)
	return nil
}

func (h *ZapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *ZapHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

func zapLevel(level slog.Level) zapcore.Level {
	switch {
	case level < slog.LevelInfo:
		return zapcore.DebugLevel
	case level < slog.LevelWarn:
		return zapcore.InfoLevel
	case level < slog.LevelError:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func zapField(groups []string, a slog.Attr) zap.Field {
	key := a.Key
	for i := len(groups) - 1; i >= 0; i-- {
		key = groups[i] + "." + key
	}
	return zap.Any(key, a.Value.Resolve().Any())
}
