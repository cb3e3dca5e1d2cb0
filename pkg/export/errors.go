package export

import "errors"

var (
	// ErrEncodingFailure is returned when an encoder produced no output.
	ErrEncodingFailure = errors.New("encoding produced no data")
	// ErrUnknownFormat is returned for an unrecognised export format name.
	ErrUnknownFormat = errors.New("unknown export format")
)
