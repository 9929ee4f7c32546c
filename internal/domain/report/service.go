package report

import "context"

// ReportService defines the interface for report generation
type ReportService interface {
	// Generate Monthly Attendance Report
	GenerateMonthlyAttendanceReport(ctx context.Context, req MonthlyAttendanceReportRequest) (MonthlyAttendanceReport, error)

	// Export Monthly Attendance Report as an xlsx workbook
	ExportMonthlyAttendanceReport(ctx context.Context, req MonthlyAttendanceReportRequest) (Workbook, error)
}
