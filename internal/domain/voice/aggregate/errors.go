package aggregate

import "errors"

// Sentinel reasons. Services wrap them with an error kind; callers match with errors.Is.
var (
	ErrEmptyAudio         = errors.New("audio data is required")
	ErrTooShort           = errors.New("audio sample is too short")
	ErrExtractionFailed   = errors.New("failed to extract voice features")
	ErrNoRecord           = errors.New("biometric record not found")
	ErrNotEnrolled        = errors.New("user is not enrolled")
	ErrNoTemplate         = errors.New("no voice template found for user")
	ErrNoEnrolledUsers    = errors.New("no enrolled users in scope")
	ErrNoMatch            = errors.New("no matching user found")
	ErrPassphraseRejected = errors.New("passphrase not recognized")
	ErrVoiceMismatch      = errors.New("voice does not match identified user")
	ErrVersionConflict    = errors.New("biometric record was modified concurrently")
)
