package remote

import "net/http"

// Client groups the API endpoints a crew device uses.
type Client struct {
	Transport     *Transport
	Attendance    *AttendanceEndpoint
	Timesheets    *TimesheetEndpoint
	Expenses      *ExpenseEndpoint
	Warehouses    *WarehouseEndpoint
	Notifications *NotificationEndpoint
}

// NewClient initializes the API client
func NewClient(baseURL string, httpClient *http.Client) *Client {
	t := NewTransport(baseURL, httpClient)
	return &Client{
		Transport:     t,
		Attendance:    &AttendanceEndpoint{transport: t},
		Timesheets:    &TimesheetEndpoint{transport: t},
		Expenses:      &ExpenseEndpoint{transport: t},
		Warehouses:    &WarehouseEndpoint{transport: t},
		Notifications: &NotificationEndpoint{transport: t},
	}
}
