package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cmlabs-hris/crew-attendance/internal/client/crewapp"
	"github.com/cmlabs-hris/crew-attendance/internal/client/location"
	"github.com/cmlabs-hris/crew-attendance/internal/client/offline"
	"github.com/cmlabs-hris/crew-attendance/internal/client/remote"
	"github.com/cmlabs-hris/crew-attendance/internal/client/session"
	"github.com/cmlabs-hris/crew-attendance/internal/config"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}
	if err := cfg.ValidateAgent(); err != nil {
		log.Fatal("Invalid config: ", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.App.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := localtime.SetZone(cfg.App.Timezone); err != nil {
		log.Fatal("Invalid APP_TIMEZONE: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ac := cfg.Agent
	queueStore, err := storage.NewLocalStorage(ac.QueueDir, "")
	if err != nil {
		log.Fatal("Failed to open queue directory: ", err)
	}

	// offline starts reuse the last login saved beside the queue
	auth, err := remote.Start(ctx, remote.OAuthConfig(ac.APIBaseURL, ac.ClientID), queueStore, ac.Username, ac.Password)
	if err != nil {
		log.Fatal("Login failed: ", err)
	}
	client := remote.NewClient(ac.APIBaseURL, auth.Client)

	queue, err := offline.NewQueue(ctx, offline.NewStorageSlot(queueStore))
	if err != nil {
		log.Fatal("Failed to load offline queue: ", err)
	}

	locOpts := location.DefaultOptions()
	locOpts.RequiredAccuracy = ac.RequiredAccuracy
	locations := location.NewService(
		location.StaticGeolocator{Latitude: ac.StaticLatitude, Longitude: ac.StaticLongitude, Accuracy: ac.StaticAccuracy},
		location.NewNominatimGeocoder(ac.GeocoderURL, ac.GeocoderUserAgent),
	)

	sessions := session.NewManager(client.Attendance, client.Timesheets, auth.CrewID)
	if _, err := sessions.LoadActiveSession(ctx); err != nil {
		slog.Warn("Could not load active sessions", "error", err)
	}

	app := crewapp.New(crewapp.Deps{
		CrewID:     auth.CrewID,
		Attendance: client.Attendance,
		Timesheets: client.Timesheets,
		Expenses:   client.Expenses,
		Warehouses: client.Warehouses,
		Sessions:   sessions,
		Location:   locations,
		Queue:      queue,
		LocationOp: locOpts,
	})

	syncer := offline.NewSyncer(queue, app.Replayer(), client.Transport.Ping, ac.SyncInterval, ac.ProbeTimeout)
	syncer.AfterFlush = app.AfterFlush

	go syncer.Run(ctx)
	go sessions.Run(ctx)
	go locations.Watch(ctx, ac.GPSRefresh, locOpts, func() bool { return len(sessions.Sessions()) > 0 })

	slog.Info("Agent running", "crew_id", auth.CrewID, "role", auth.Role, "queued", queue.Len())

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutting down")
			return
		case line, ok := <-lines:
			if !ok {
				<-ctx.Done()
				slog.Info("Shutting down")
				return
			}
			run(ctx, app, sessions, queue, syncer, line)
		}
	}
}

// run executes one console command:
//
//	scan <code>               check in with a warehouse code
//	extra <id>                check in to an unscheduled shift
//	event <id>                open an event timesheet
//	break <kind> <start|end>  start or end a lunch or dinner break
//	checkout [note]           close the current session
//	sync                      replay the offline queue now
//	status                    print sessions and queue size
func run(ctx context.Context, app *crewapp.App, sessions *session.Manager, queue *offline.Queue, syncer *offline.Syncer, line string) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	var (
		out crewapp.Outcome
		err error
	)
	switch cmd {
	case "":
		return
	case "scan":
		app.StartScanner()
		out, err = app.CheckInByQR(ctx, arg)
	case "extra":
		out, err = app.CheckInExtra(ctx, arg, nil)
	case "event":
		out, err = app.CheckInEvent(ctx, arg, false)
	case "break":
		kind, action, _ := strings.Cut(arg, " ")
		switch strings.TrimSpace(action) {
		case "start":
			out, err = app.StartBreak(ctx, attendance.BreakKind(kind))
		case "end":
			out, err = app.EndBreak(ctx, attendance.BreakKind(kind))
		default:
			fmt.Println("usage: break <lunch|dinner> <start|end>")
			return
		}
	case "checkout":
		out, err = app.CheckOut(ctx, arg)
	case "sync":
		syncer.Trigger()
		return
	case "status":
		for _, s := range sessions.Sessions() {
			fmt.Printf("%s\t%s\t%s\tsince %s\tbreaks %dm\tpending=%t\n", s.Type, s.Label, s.Date, s.CheckInTime, s.BreakMinutes, s.Pending)
		}
		fmt.Printf("elapsed %s, %d queued, online=%t\n", sessions.Elapsed(), queue.Len(), syncer.Online())
		return
	default:
		fmt.Println("commands: scan <code>, extra <warehouse>, event <id>, break <kind> <start|end>, checkout [note], sync, status")
		return
	}

	var gpsErr *crewapp.GPSError
	var timingErr *crewapp.TimingError
	switch {
	case errors.As(err, &gpsErr), errors.As(err, &timingErr):
		fmt.Println(err.Error())
	case err != nil:
		slog.Error("Command failed", "command", cmd, "error", err)
	case out.Queued:
		fmt.Printf("%s saved offline, it will sync when the connection is back\n", out.Session.Label)
	default:
		fmt.Printf("%s ok\n", out.Session.Label)
	}
}
