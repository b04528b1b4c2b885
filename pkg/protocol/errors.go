package protocol

import "errors"

var (
	ErrMalformedPayload   = errors.New("malformed event payload")
	ErrMissingCommandType = errors.New("command has no type tag")
)
