package log

import (
	tmlog "github.com/tendermint/tendermint/libs/log"
)

var _ tmlog.Logger = tmLogger{}

// tmLogger lets Tendermint services such as the ABCI server log through a
// Logger.
type tmLogger struct {
	Logger
}

// NewTMLogger wraps logger so it satisfies the Tendermint logger interface.
func NewTMLogger(logger Logger) tmlog.Logger {
	return tmLogger{Logger: logger}
}

func (l tmLogger) With(keyvals ...interface{}) tmlog.Logger {
	return tmLogger{Logger: l.Logger.With(keyvals...)}
}
