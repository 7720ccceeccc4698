package cosign

import (
	"io"

	"github.com/tendermint/tendermint/libs/log"

	"github.com/iov-one/cosign/errors"
)

var (
	// DefaultLogger is used by components that were not given one.
	DefaultLogger = log.NewNopLogger()
)

// NewLogger returns a logger writing to given writer.
//
// Format is either "plain" (key=value pairs) or "json". Level is one of
// "debug", "info", "error" or "none".
func NewLogger(w io.Writer, format, level string) (log.Logger, error) {
	var logger log.Logger
	switch format {
	case "", "plain":
		logger = log.NewTMLogger(log.NewSyncWriter(w))
	case "json":
		logger = log.NewTMJSONLogger(log.NewSyncWriter(w))
	default:
		return nil, errors.Wrapf(errors.ErrInput, "unknown log format %q", format)
	}

	if level == "" {
		level = "info"
	}
	opt, err := log.AllowLevel(level)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return log.NewFilter(logger, opt), nil
}
