package remote

import (
	"context"
	"net/url"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/expense"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/notification"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/timesheet"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/warehouse"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
)

func encode(f *query.Filter) url.Values {
	if f == nil {
		return nil
	}
	return f.Encode()
}

type AttendanceEndpoint struct {
	transport *Transport
}

// List reads the enriched attendance view.
func (e *AttendanceEndpoint) List(ctx context.Context, f *query.Filter) ([]attendance.AttendanceResponse, *Meta, error) {
	var out []attendance.AttendanceResponse
	meta, err := e.transport.Get(ctx, "/api/v1/attendance", encode(f), &out)
	return out, meta, err
}

func (e *AttendanceEndpoint) CheckIn(ctx context.Context, req attendance.CheckInRequest) (attendance.AttendanceResponse, error) {
	var out attendance.AttendanceResponse
	err := e.transport.Post(ctx, "/api/v1/attendance/check-in", req, &out)
	return out, err
}

func (e *AttendanceEndpoint) CheckOut(ctx context.Context, req attendance.CheckOutRequest) (attendance.AttendanceResponse, error) {
	var out attendance.AttendanceResponse
	err := e.transport.Post(ctx, "/api/v1/attendance/"+url.PathEscape(req.AttendanceID)+"/check-out", req, &out)
	return out, err
}

func (e *AttendanceEndpoint) StartBreak(ctx context.Context, req attendance.BreakRequest) (attendance.AttendanceResponse, error) {
	return e.breakCall(ctx, req, "start")
}

func (e *AttendanceEndpoint) EndBreak(ctx context.Context, req attendance.BreakRequest) (attendance.AttendanceResponse, error) {
	return e.breakCall(ctx, req, "end")
}

func (e *AttendanceEndpoint) breakCall(ctx context.Context, req attendance.BreakRequest, action string) (attendance.AttendanceResponse, error) {
	var out attendance.AttendanceResponse
	path := "/api/v1/attendance/" + url.PathEscape(req.AttendanceID) + "/breaks/" + url.PathEscape(string(req.Kind)) + "/" + action
	err := e.transport.Post(ctx, path, req, &out)
	return out, err
}

type TimesheetEndpoint struct {
	transport *Transport
}

func (e *TimesheetEndpoint) Events(ctx context.Context) ([]timesheet.EventResponse, error) {
	var out []timesheet.EventResponse
	_, err := e.transport.Get(ctx, "/api/v1/events", nil, &out)
	return out, err
}

func (e *TimesheetEndpoint) List(ctx context.Context, f *query.Filter) ([]timesheet.TimesheetResponse, *Meta, error) {
	var out []timesheet.TimesheetResponse
	meta, err := e.transport.Get(ctx, "/api/v1/timesheets", encode(f), &out)
	return out, meta, err
}

func (e *TimesheetEndpoint) CheckIn(ctx context.Context, req timesheet.CheckInRequest) (timesheet.TimesheetResponse, error) {
	var out timesheet.TimesheetResponse
	err := e.transport.Post(ctx, "/api/v1/timesheets/check-in", req, &out)
	return out, err
}

func (e *TimesheetEndpoint) CheckOut(ctx context.Context, req timesheet.CheckOutRequest) (timesheet.TimesheetResponse, error) {
	var out timesheet.TimesheetResponse
	err := e.transport.Post(ctx, "/api/v1/timesheets/"+url.PathEscape(req.ID)+"/check-out", req, &out)
	return out, err
}

// Upsert inserts or updates the timesheet with req.ID.
func (e *TimesheetEndpoint) Upsert(ctx context.Context, req timesheet.UpsertRequest) (timesheet.TimesheetResponse, error) {
	var out timesheet.TimesheetResponse
	err := e.transport.Put(ctx, "/api/v1/timesheets/"+url.PathEscape(req.ID), req, &out)
	return out, err
}

type ExpenseEndpoint struct {
	transport *Transport
}

// Create records an expense without a receipt. A repeated id is ignored by
// the API.
func (e *ExpenseEndpoint) Create(ctx context.Context, req expense.CreateRequest) (expense.ExpenseResponse, error) {
	var out expense.ExpenseResponse
	err := e.transport.Post(ctx, "/api/v1/expenses", req, &out)
	return out, err
}

type WarehouseEndpoint struct {
	transport *Transport
}

func (e *WarehouseEndpoint) List(ctx context.Context) ([]warehouse.WarehouseResponse, error) {
	var out []warehouse.WarehouseResponse
	_, err := e.transport.Get(ctx, "/api/v1/warehouses", nil, &out)
	return out, err
}

func (e *WarehouseEndpoint) Shifts(ctx context.Context, f *query.Filter) ([]warehouse.ShiftResponse, error) {
	var out []warehouse.ShiftResponse
	_, err := e.transport.Get(ctx, "/api/v1/warehouse/shifts", encode(f), &out)
	return out, err
}

func (e *WarehouseEndpoint) ValidateShift(ctx context.Context, shiftID string) (warehouse.ShiftValidationResponse, error) {
	var out warehouse.ShiftValidationResponse
	_, err := e.transport.Get(ctx, "/api/v1/warehouse/shifts/"+url.PathEscape(shiftID)+"/validate", nil, &out)
	return out, err
}

// NotificationEndpoint calls the named notification RPCs.
type NotificationEndpoint struct {
	transport *Transport
}

func (e *NotificationEndpoint) MarkRead(ctx context.Context, id string) error {
	return e.transport.Post(ctx, "/api/v1/rpc/mark_notification_read", notification.RPCRequest{ID: id}, nil)
}

func (e *NotificationEndpoint) Delete(ctx context.Context, id string) error {
	return e.transport.Post(ctx, "/api/v1/rpc/delete_notification", notification.RPCRequest{ID: id}, nil)
}
