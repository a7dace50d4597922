package service

import "errors"

var (
	ErrInvalidTicket       = errors.New("ticket code does not match any session")
	ErrAlreadyCompleted    = errors.New("session already reached a terminal state")
	ErrPaymentMismatch     = errors.New("payment amount does not match the computed fee")
	ErrInvalidVehicleClass = errors.New("unknown vehicle class")
	ErrInvalidPlate        = errors.New("plate is empty after normalization")
	ErrWrongSessionState   = errors.New("operation not valid for the session's current state")
	ErrInvalidCredentials  = errors.New("invalid username or password")
)
