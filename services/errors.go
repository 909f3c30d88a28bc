package services

import "errors"

// Errors surfaced by the debate core. Callers match with errors.Is; the HTTP
// layer maps them onto status codes.
var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrInvalidState            = errors.New("operation not valid in current debate state")
	ErrDebateNotFound          = errors.New("debate not found")
	ErrAlreadyJoined           = errors.New("user already joined this debate")
	ErrNotParticipant          = errors.New("user is not a participant of this debate")
	ErrForbidden               = errors.New("operation not allowed")
	ErrInvalidWinner           = errors.New("winner is not a participant of this debate")
	ErrVerificationUnavailable = errors.New("fact-check verification unavailable")
)
