package timesheet

import "errors"

var (
	ErrTimesheetNotFound     = errors.New("timesheet not found")
	ErrEventNotFound         = errors.New("event not found")
	ErrAlreadyCheckedIn      = errors.New("an open timesheet already exists for this event today")
	ErrAlreadyCheckedOut     = errors.New("timesheet already has an end time")
	ErrNotEditable           = errors.New("only draft or rejected timesheets can be edited")
	ErrNotSubmittable        = errors.New("timesheet needs an end time before it can be submitted")
	ErrNotSubmitted          = errors.New("only submitted timesheets can be reviewed")
	ErrNotApproved           = errors.New("payment can only progress on approved timesheets")
	ErrInvalidPaymentStep    = errors.New("payment status can only move to the next step")
	ErrOnlyDraftDeletable    = errors.New("only draft timesheets can be deleted")
	ErrNotOwner              = errors.New("timesheet belongs to another crew member")
	ErrRejectionReasonNeeded = errors.New("a rejection reason is required")
)
