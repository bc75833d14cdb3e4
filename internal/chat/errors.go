package chat

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrCollaborator = errors.New("collaborator call failed")
	ErrProtocol     = errors.New("malformed event")
	ErrRateLimited  = errors.New("rate limited")
	ErrRoomClosed   = errors.New("room worker stopped")
)

// Reason is the machine-readable cause carried by error events.
type Reason string

const (
	ReasonValidation        Reason = "validation"
	ReasonNotFound          Reason = "not_found"
	ReasonLookupFailed      Reason = "lookup_failed"
	ReasonPersistenceFailed Reason = "persistence_failed"
	ReasonUploadFailed      Reason = "upload_failed"
	ReasonRateLimited       Reason = "rate_limited"
	ReasonMalformed         Reason = "malformed"
)

// JoinError is a terminal failure of one join attempt.
type JoinError struct {
	Reason Reason
	Err    error
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("join failed (%s): %v", e.Reason, e.Err)
}

func (e *JoinError) Unwrap() error {
	return e.Err
}

func newJoinError(reason Reason, err error) *JoinError {
	return &JoinError{Reason: reason, Err: err}
}
