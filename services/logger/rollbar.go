package logsvc

import (
	"io"
	"os"
	"time"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/rs/zerolog"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
)

// RollbarLogger reports to Rollbar (when enabled) and writes every entry locally through zerolog.
type RollbarLogger struct {
	std zerolog.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger returns a logger tagged with `component` (eg. "API", "DB").
// Local output is human readable in debug and JSON otherwise.
func NewRollbarLogger(out io.Writer, component string, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.Rollbar.Token)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)

	if out == nil {
		out = os.Stdout
	}
	level := zerolog.InfoLevel
	if conf.Debug {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}
	std := zerolog.New(out).Level(level).With().Timestamp().Str("component", component).Logger()
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, core.Caller
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var callerSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		// set logged in user
		if caller, ok := arg.(core.Caller); ok {
			if !callerSet && !caller.IsZero() { // only set one person
				rollbar.SetPerson(caller.ID, caller.Email, caller.Email)
				callerSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if !callerSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l RollbarLogger) print(event *zerolog.Event, msg string, args []interface{}) {
	for _, arg := range args {
		event = addField(event, arg)
	}
	event.Msg(msg)
}

func addField(event *zerolog.Event, arg interface{}) *zerolog.Event {
	switch v := arg.(type) {
	case error:
		return event.Stack().Err(v)
	case map[string]interface{}:
		return event.Fields(v)
	case core.Caller:
		return event.Str("user_id", v.ID).Str("user_email", v.Email)
	case string:
		return event.Str("detail", v)
	default:
		return event.Interface("extra", v)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print(l.std.Debug(), msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print(l.std.Info(), msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print(l.std.Warn(), msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print(l.std.Error(), msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	rollbar.Wait()
	l.print(l.std.Fatal(), msg, args) // exits
}
