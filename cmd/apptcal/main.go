package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/yigitselcuk/apptcal/internal/backend"
	"github.com/yigitselcuk/apptcal/internal/calendar"
	"github.com/yigitselcuk/apptcal/internal/compose"
	"github.com/yigitselcuk/apptcal/internal/config"
	"github.com/yigitselcuk/apptcal/internal/events"
	"github.com/yigitselcuk/apptcal/internal/logging"
	"github.com/yigitselcuk/apptcal/internal/mirror"
	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/storage"
	"github.com/yigitselcuk/apptcal/internal/timerange"
	"github.com/yigitselcuk/apptcal/internal/update"
	"github.com/yigitselcuk/apptcal/internal/visibility"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "apptcal failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "apptcal.yaml", "path to the YAML config file")
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		return err
	}
	fileCfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	cfg := config.FromEnv(*fileCfg)
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := storage.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer repo.Close()

	bus, err := openBus(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer bus.Close()

	mir, err := openMirror(ctx, cfg, loc)
	if err != nil {
		return err
	}

	svc := backend.New(repo, bus, mir, nil, logger, backend.Options{
		Location:       loc,
		ReminderBuffer: cfg.ReminderBuffer,
	})
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Close()

	viewer := model.Viewer{
		ID:         cfg.Viewer.ID,
		Email:      cfg.Viewer.Email,
		Role:       cfg.Viewer.Role,
		Department: cfg.Viewer.Department,
	}
	today := func() timerange.Date { return timerange.DateOf(time.Now().In(loc)) }
	session := calendar.New(svc, viewer, compose.Frame{Granularity: compose.Week, Anchor: today()}, logger, calendar.Options{
		BufferDays: cfg.BufferDays,
		Debounce:   cfg.Debounce(),
		Layout:     compose.Layout{HourHeight: cfg.HourHeight, YearListCap: cfg.YearListCap},
		Policy: visibility.Policy{
			PrivilegedRoles:     cfg.PrivilegedRoles,
			AllAccessDepartment: cfg.AllAccessDepartment,
		},
	})

	feed, err := update.Subscribe(ctx, svc, 0)
	if err != nil {
		return err
	}

	program := tea.NewProgram(
		update.NewModel(ctx, session, feed, update.Options{Location: loc, Today: today}),
		tea.WithAltScreen(),
	)

	refresher := cron.New(cron.WithLocation(loc))
	if _, err := refresher.AddFunc(cfg.RefreshCron, func() { program.Send(update.RefreshMsg{}) }); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", cfg.RefreshCron, err)
	}
	refresher.Start()
	defer refresher.Stop()

	logger.Info("apptcal starting",
		zap.String("viewer", viewer.ID),
		zap.String("database", cfg.DatabasePath),
		zap.String("mirror", mir.Name()),
		zap.String("refresh", cfg.RefreshCron),
	)
	_, err = program.Run()
	return err
}

func openBus(ctx context.Context, cfg config.Config, logger *zap.Logger) (events.Bus, error) {
	if cfg.Redis.URL == "" {
		return events.NewMemoryBus(logger), nil
	}
	bus, err := events.NewRedisBus(cfg.Redis.URL, cfg.Redis.Channel, uuid.NewString(), logger)
	if err != nil {
		return nil, err
	}
	if err := bus.Ping(ctx); err != nil {
		bus.Close()
		return nil, fmt.Errorf("redis unreachable: %w", err)
	}
	return bus, nil
}

func openMirror(ctx context.Context, cfg config.Config, loc *time.Location) (mirror.Mirror, error) {
	switch cfg.Mirror.Kind {
	case "ics":
		m, err := mirror.NewICSMirror(cfg.Mirror.ICS.Path, loc)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "google":
		g := cfg.Mirror.Google
		m, err := mirror.NewGoogleMirror(ctx, mirror.GoogleConfig{
			ClientID:     g.ClientID,
			ClientSecret: g.ClientSecret,
			RedirectURL:  g.RedirectURL,
			TokenFile:    g.TokenFile,
			CalendarID:   g.CalendarID,
		}, loc)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return mirror.Noop{}, nil
	}
}
