package logsvc

import (
	"log"
	"strconv"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
)

// StdLogger writes to a standard library logger only. Used in DEV and TEST.
type StdLogger struct {
	std *log.Logger
}

var _ core.Logger = (*StdLogger)(nil)

func NewStdLogger(std *log.Logger) *StdLogger {
	return &StdLogger{std: std}
}

// New picks the rollbar logger when a token is configured.
func New(std *log.Logger, conf *core.Config) core.Logger {
	if conf.RollbarToken == "" {
		return NewStdLogger(std)
	}
	return NewRollbarLogger(std, conf)
}

func (l StdLogger) Debug(msg string, args ...interface{}) { printArgs(l.std, "DEBUG", msg, args) }
func (l StdLogger) Info(msg string, args ...interface{})  { printArgs(l.std, "INFO", msg, args) }
func (l StdLogger) Warn(msg string, args ...interface{})  { printArgs(l.std, "WARN", msg, args) }
func (l StdLogger) Error(msg string, args ...interface{}) { printArgs(l.std, "ERROR", msg, args) }

func (l StdLogger) Fatal(msg string, args ...interface{}) {
	printArgs(l.std, "FATAL", msg, args)
	l.std.Fatal(msg)
}

func printArgs(std *log.Logger, level, msg string, args []interface{}) {
	std.Println(level + ": " + msg)
	for _, arg := range args {
		if op, ok := arg.(core.Operator); ok {
			std.Printf("operator: %s (%s)\n", operatorID(op), op.Username)
			continue
		}
		std.Printf("%+v\n", arg)
	}
}

func operatorID(op core.Operator) string {
	return strconv.Itoa(op.ID)
}
