package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	if len(cfg.AdminUsers) > 0 {
		log.Info().Strs("admins", cfg.AdminUsers).Msg("admin users configured")
	} else {
		log.Warn().Msg("ADMIN_USERS not set; organizer commands need the admin PIN")
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	// Initialize repository
	repo := NewSQLiteRepository(db)
	if err := repo.CreateTables(); err != nil {
		log.Fatal().Err(err).Msg("create tables")
	}

	seed, err := LoadSettingsSeed(cfg.SettingsFile, time.Now().In(cfg.Location))
	if err != nil {
		log.Fatal().Err(err).Msg("settings seed")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram login")
	}
	bot.Debug = cfg.Debug
	log.Info().Str("account", bot.Self.UserName).Msg("authorized")

	app, err := newApp(bot, cfg, repo, RealClock(), NewIDGenerator(nil), seed, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init")
	}
	defer app.reminders.CancelAll()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates, err := bot.GetUpdatesChan(u)
	if err != nil {
		log.Fatal().Err(err).Msg("get updates")
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			app.HandleUpdate(update)
		}
	}
}

// newApp loads settings and tickets from repo and arms the reminders of
// every ticket still waiting for one.
func newApp(bot Bot, cfg *Config, repo Repository, clock Clock, ids *IDGenerator, seed Settings, log zerolog.Logger) (*App, error) {
	settings, err := NewSettingsStore(repo, cfg.Location, seed)
	if err != nil {
		return nil, err
	}
	registry, err := NewRegistry(repo, settings, ids, clock)
	if err != nil {
		return nil, err
	}

	app := &App{
		bot:      bot,
		config:   cfg,
		settings: settings,
		registry: registry,
		dialogs:  NewDialogManager(),
		ids:      ids,
		clock:    clock,
		log:      log,
		download: httpDownload,
	}
	lead := func() time.Duration {
		return time.Duration(settings.Get().ReminderMinutesBefore) * time.Minute
	}
	app.reminders = NewReminderScheduler(clock, lead, app, registry.MarkNotified, log)
	registry.SetHooks(app.reminders)

	pending := app.reminders.Reschedule(registry.List(""))
	log.Info().Int("tickets", registry.Len()).Int("reminders", pending).Msg("state loaded")
	return app, nil
}
