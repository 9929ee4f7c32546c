package overtime

import "errors"

var (
	ErrRequestNotFound          = errors.New("overtime request not found")
	ErrOvertimeAlreadyRequested = errors.New("overtime has already been requested for this attendance")
	ErrNoOvertimeBenefit        = errors.New("overtime benefit is not configured for this crew member")
	ErrAttendanceNotCompleted   = errors.New("overtime can only be requested on a completed attendance")
	ErrNoOvertimeAvailable      = errors.New("no overtime is available on this attendance")
	ErrAlreadyReviewed          = errors.New("overtime request has already been reviewed")
)
