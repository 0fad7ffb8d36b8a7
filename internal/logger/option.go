package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// fixedLevelCore replaces the level check of the core it wraps, so a gateway
// logger can be more or less verbose than the process logger it derives from.
type fixedLevelCore struct {
	zapcore.Core

	level zapcore.Level
}

func (c *fixedLevelCore) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l)
}

//nolint:gocritic // zapcore.Core fixes the signature.
func (c *fixedLevelCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(ent.Level) {
		return ce
	}

	return ce.AddCore(ent, c)
}

//nolint:ireturn // zapcore.Core fixes the signature.
func (c *fixedLevelCore) With(fields []zapcore.Field) zapcore.Core {
	return &fixedLevelCore{Core: c.Core.With(fields), level: c.level}
}

// WithLevel returns an option pinning a derived logger to lvl regardless of SetLevel.
//
//nolint:ireturn // zap.Option is an interface.
func WithLevel(lvl zapcore.Level) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &fixedLevelCore{Core: core, level: lvl}
	})
}
