package dpfae

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLoggerConfig returns the console logger config used by the benchmark program:
// production keys, colored levels, no stacktraces.
func NewLoggerConfig(debug bool) zap.Config {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// NewLogger builds a named logger from NewLoggerConfig.
func NewLogger(name string, debug bool) (*zap.Logger, error) {
	logger, err := NewLoggerConfig(debug).Build()
	if err != nil {
		return nil, err
	}
	return logger.Named(name), nil
}
