package http

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/cmlabs-hris/crew-attendance/internal/handler/http/middleware"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// RouterConfig carries the environment dependent parts of the router.
type RouterConfig struct {
	Env            string
	Version        string
	LogLevel       slog.Level
	AllowedOrigins []string
	UploadsPath    string // served under UploadsURL when storage is local
	UploadsURL     string
}

type Handlers struct {
	Auth         AuthHandler
	Warehouse    WarehouseHandler
	Attendance   AttendanceHandler
	Timesheet    TimesheetHandler
	Overtime     OvertimeHandler
	Expense      ExpenseHandler
	Notification NotificationHandler
}

func NewRouter(cfg RouterConfig, JWTService jwt.Service, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(cfg.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "crew-attendance"),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.Env),
	)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  cfg.LogLevel,
		Schema: httplog.SchemaECS,
		// the SSE stream stays open for hours
		Skip: func(req *http.Request, respStatus int) bool {
			return strings.HasSuffix(req.URL.Path, "/notifications/stream")
		},
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Get("/api/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong\n"))
	})

	if cfg.UploadsPath != "" && cfg.UploadsURL != "" {
		prefix := "/" + strings.Trim(cfg.UploadsURL, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.UploadsPath))))
	}

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/auth", func(r chi.Router) {
			r.Post("/token", h.Auth.Token)
			r.Post("/logout", h.Auth.Logout)
		})

		// Authenticated by its own short-lived token
		r.Get("/notifications/stream", h.Notification.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			r.Get("/warehouses", h.Warehouse.List)
			r.Route("/warehouse/shifts", func(r chi.Router) {
				r.Get("/", h.Warehouse.ListShifts)
				r.With(middleware.RequireSupervisor).Post("/", h.Warehouse.CreateShift)
				r.Get("/{id}/validate", h.Warehouse.ValidateShift)
			})

			r.Route("/attendance", func(r chi.Router) {
				r.Get("/", h.Attendance.List)
				r.Post("/check-in", h.Attendance.CheckIn)
				r.Get("/report", h.Attendance.MonthlyReport)
				r.Get("/report.xlsx", h.Attendance.ExportMonthlyReport)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Attendance.Get)
					r.Post("/check-out", h.Attendance.CheckOut)
					r.Post("/breaks/{kind}/start", h.Attendance.StartBreak)
					r.Post("/breaks/{kind}/end", h.Attendance.EndBreak)
					r.Post("/rectify", h.Attendance.Rectify)
				})
			})

			r.Get("/events", h.Timesheet.ListEvents)
			r.Route("/timesheets", func(r chi.Router) {
				r.Get("/", h.Timesheet.List)
				r.Post("/check-in", h.Timesheet.CheckIn)
				r.Route("/{id}", func(r chi.Router) {
					r.Put("/", h.Timesheet.Upsert)
					r.Delete("/", h.Timesheet.Delete)
					r.Post("/check-out", h.Timesheet.CheckOut)
					r.Post("/submit", h.Timesheet.Submit)
					r.Post("/payment", h.Timesheet.Payment)
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireSupervisor)
						r.Post("/approve", h.Timesheet.Approve)
						r.Post("/reject", h.Timesheet.Reject)
					})
				})
			})

			r.Route("/overtime", func(r chi.Router) {
				r.Get("/", h.Overtime.List)
				r.Post("/", h.Overtime.Create)
				r.Get("/options", h.Overtime.Options)
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireSupervisor)
					r.Post("/{id}/approve", h.Overtime.Approve)
					r.Post("/{id}/reject", h.Overtime.Reject)
				})
			})

			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", h.Expense.List)
				r.Post("/", h.Expense.Create)
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireSupervisor)
					r.Post("/{id}/approve", h.Expense.Approve)
					r.Post("/{id}/reject", h.Expense.Reject)
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.Notification.List)
				r.Get("/unread-count", h.Notification.UnreadCount)
				r.Post("/read-all", h.Notification.MarkAllAsRead)
				r.Post("/sse-token", h.Notification.GetSSEToken)
			})

			r.Route("/rpc", func(r chi.Router) {
				r.Post("/mark_notification_read", h.Notification.MarkRead)
				r.Post("/delete_notification", h.Notification.Delete)
			})
		})
	})

	return r
}
