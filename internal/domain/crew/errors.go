package crew

import "errors"

var (
	ErrMemberNotFound           = errors.New("crew member not found")
	ErrSupervisorAccessRequired = errors.New("supervisor access required")
)
