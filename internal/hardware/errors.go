package hardware

import "errors"

// Fault sentinels returned by coordinator operations. Callers branch with
// errors.Is: busy means retry later, unavailable means the facility rejected
// the operation outright, an actuation timeout means the physical barrier
// state is unknown and must be verified before anything else is done.
var (
	ErrHardwareUnavailable = errors.New("hardware facility unavailable")
	ErrHardwareBusy        = errors.New("hardware facility busy")
	ErrCaptureTimeout      = errors.New("image capture timed out")
	ErrCaptureFailed       = errors.New("image capture failed")
	ErrActuationTimeout    = errors.New("barrier actuation not acknowledged in time")
	ErrActuationFailed     = errors.New("barrier actuation rejected by controller")
	ErrPrinterOffline      = errors.New("ticket printer offline")
	ErrPrintFailed         = errors.New("ticket print failed")
	ErrUnknownFacility     = errors.New("unknown hardware facility")
)
