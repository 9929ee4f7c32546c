package warehouse

import "errors"

var (
	ErrWarehouseNotFound = errors.New("warehouse not found")
	ErrShiftNotFound     = errors.New("shift not found")
	ErrShiftNotOwned     = errors.New("shift belongs to another crew member")
)
