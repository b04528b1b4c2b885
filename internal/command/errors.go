package command

import "errors"

// Intent validation errors. A failed validation suppresses the command
// client-side: nothing is sent and no state changes.
var (
	ErrEmptyContent     = errors.New("message content cannot be empty")
	ErrEmptyRecipient   = errors.New("whisper recipient cannot be empty")
	ErrEmptyRoomID      = errors.New("room id cannot be empty")
	ErrEmptyUserID      = errors.New("user id cannot be empty")
	ErrWhispersDisabled = errors.New("private messaging is disabled")
	ErrNotInstructor    = errors.New("intent requires the instructor role")
	ErrNotStudent       = errors.New("intent requires the student role")
	ErrAlreadyRequested = errors.New("request already pending")
)
