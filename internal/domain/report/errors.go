package report

import "errors"

var (
	ErrInvalidMonth           = errors.New("month must be in YYYY-MM format")
	ErrReportGenerationFailed = errors.New("failed to generate report")
)
