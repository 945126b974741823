package observability

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger implements Logger on top of a zap.SugaredLogger. Writes go to
// stderr so stdio-based protocols never see log output mixed into their
// wire stream.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger creates a production-configured Logger scoped to prefix.
func NewLogger(prefix string) Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		zapcore.InfoLevel,
	)

	base := zap.New(core).Sugar().With("component", prefix)
	return &zapLogger{sugar: base}
}

func (l *zapLogger) log(level zapcore.Level, msg string, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	switch level {
	case zapcore.DebugLevel:
		l.sugar.Debugw(msg, args...)
	case zapcore.WarnLevel:
		l.sugar.Warnw(msg, args...)
	case zapcore.ErrorLevel:
		l.sugar.Errorw(msg, args...)
	default:
		l.sugar.Infow(msg, args...)
	}
}

func (l *zapLogger) Debug(msg string, fields map[string]interface{}) { l.log(zapcore.DebugLevel, msg, fields) }
func (l *zapLogger) Info(msg string, fields map[string]interface{})  { l.log(zapcore.InfoLevel, msg, fields) }
func (l *zapLogger) Warn(msg string, fields map[string]interface{})  { l.log(zapcore.WarnLevel, msg, fields) }
func (l *zapLogger) Error(msg string, fields map[string]interface{}) { l.log(zapcore.ErrorLevel, msg, fields) }

func (l *zapLogger) With(fields map[string]interface{}) Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &zapLogger{sugar: l.sugar.With(args...)}
}

func (l *zapLogger) WithPrefix(prefix string) Logger {
	return &zapLogger{sugar: l.sugar.With("component", prefix)}
}
