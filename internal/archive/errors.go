package archive

import "errors"

var (
	ErrArchiveClosed = errors.New("transcript archive is closed")
)
