package attendance

import "errors"

// Attendance domain errors
var (
	// Check-in errors
	ErrAlreadyCheckedIn  = errors.New("an active attendance already exists for this shift type, refresh and try again")
	ErrNotCheckedIn      = errors.New("you have not checked in yet")
	ErrAlreadyCheckedOut = errors.New("you have already checked out")

	// Break errors
	ErrBreakAlreadyStarted = errors.New("break already started")
	ErrBreakNotStarted     = errors.New("break has not started")
	ErrBreakAlreadyEnded   = errors.New("break already ended")

	// Rectification errors
	ErrNotCompleted = errors.New("only completed attendances can be rectified")

	// General errors
	ErrAttendanceNotFound = errors.New("attendance record not found")
	ErrUnauthorized       = errors.New("unauthorized to access this attendance record")
)
