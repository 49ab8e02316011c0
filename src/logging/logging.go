package logging

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/newsdesk-cms/newsdesk/src/config"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	zerolog.ErrorStackMarshaler = oops.ZerologStackMarshaler

	var out io.Writer = os.Stdout
	if config.Config.Env == config.Dev {
		out = NewPrettyZerologWriter()
	}
	Setup(out, config.Config.Env, config.Config.LogLevel)
}

/*
Setup replaces the global logger. Outside dev every line carries the
environment, so logs from beta and live can share a sink.
*/
func Setup(out io.Writer, env config.Environment, level zerolog.Level) {
	ctx := zerolog.New(out).With().Timestamp()
	if env != config.Dev {
		ctx = ctx.Str("env", string(env))
	}
	log.Logger = ctx.Logger()
	zerolog.SetGlobalLevel(level)
}

func GlobalLogger() *zerolog.Logger {
	return &log.Logger
}

func Debug() *zerolog.Event {
	return log.Debug().Stack()
}

func Info() *zerolog.Event {
	return log.Info().Stack()
}

func Warn() *zerolog.Event {
	return log.Warn().Stack()
}

func Error() *zerolog.Event {
	return log.Error().Stack()
}

func Fatal() *zerolog.Event {
	return log.Fatal().Stack()
}

func With() zerolog.Context {
	return log.With().Stack()
}

type loggerContextKey struct{}

func AttachLoggerToContext(logger *zerolog.Logger, ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// ExtractLogger returns the logger attached to ctx, or the global logger.
func ExtractLogger(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerContextKey{}).(*zerolog.Logger); ok && logger != nil {
			return logger
		}
	}
	return GlobalLogger()
}

// LogPanics is deferred at the top of goroutines that must not take the
// process down.
func LogPanics(logger *zerolog.Logger) {
	if r := recover(); r != nil {
		LogPanicValue(logger, r, "recovered from panic")
	}
}

func LogPanicValue(logger *zerolog.Logger, val any, msg string) {
	if logger == nil {
		logger = GlobalLogger()
	}

	ev := logger.Error().Stack()
	err, isErr := val.(error)
	if isErr {
		ev = ev.Err(err)
	} else {
		ev = ev.Interface("recovered", val)
	}
	// oops errors marshal their own stack through Err.
	var oopsErr *oops.Error
	if !isErr || !errors.As(err, &oopsErr) {
		ev = ev.Interface(zerolog.ErrorStackFieldName, oops.Trace())
	}
	ev.Msg(msg)
}
