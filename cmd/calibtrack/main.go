package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"calibtrack/internal/assistant"
	"calibtrack/internal/config"
	"calibtrack/internal/db"
	"calibtrack/internal/localcache"
	appLog "calibtrack/internal/log"
	"calibtrack/internal/model"
	"calibtrack/internal/notify"
	"calibtrack/internal/report"
	"calibtrack/internal/risk"
	"calibtrack/internal/store/memory"
	"calibtrack/internal/store/sqlite"
	"calibtrack/internal/suggest"
	"calibtrack/internal/tools"
	"calibtrack/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	envFile    string
	listen     string
	importICS  string
	once       bool
}

func main() {
	flags := parseFlags()

	if err := config.LoadDotEnv(flags.envFile); err != nil {
		appLog.Error("failed to load env file", err, "path", flags.envFile)
		os.Exit(1)
	}
	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	conf.ApplyEnv(os.LookupEnv)
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("calibtrack starting",
		"version", version,
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"tools_source", conf.Tools.Source,
		"database", conf.Database,
		"refresh", conf.RefreshCron,
		"mqtt", conf.MQTT.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, flags); err != nil {
		appLog.Error("calibtrack failed", err)
		os.Exit(1)
	}
	appLog.Info("calibtrack exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	loc := conf.Location()

	sqlDB, err := db.Open(ctx, db.Config{Path: conf.Database})
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	writer := db.NewWorker(sqlDB)
	defer writer.Close()

	events := memory.NewEventStore(sqlite.NewEventMirror(sqlDB, writer))
	n, err := events.Load(ctx)
	if err != nil {
		return err
	}
	appLog.Info("calendar events loaded", "count", n)

	if flags.importICS != "" {
		return importCalendar(ctx, events, flags.importICS, loc)
	}

	states := sqlite.NewCalendarStateStore(sqlDB, writer)
	toolStore := sqlite.NewToolStore(sqlDB, writer)

	var catalog *tools.Catalog
	switch conf.Tools.Source {
	case config.SourceHTTP:
		src := tools.NewHTTPSource(conf.Tools.URL, filepath.Join(conf.DataDir, "tools-cache"), loc)
		catalog = tools.NewCatalog(src, toolStore)
	case config.SourceSQLite:
		catalog = tools.NewCatalog(toolStore, nil)
	default:
		catalog = tools.NewCatalog(tools.FileSource{Path: conf.Tools.Path, Loc: loc}, toolStore)
	}
	if err := catalog.Refresh(ctx); err != nil {
		appLog.Error("initial tool refresh failed", err, "source", catalog.Name())
	}

	classifier := risk.Classifier{DefaultInterval: conf.DefaultIntervalMonths}
	if flags.once {
		s := classifier.Summarize(catalog.Tools(), time.Now().In(loc))
		appLog.Info("tool summary",
			"total", s.Total,
			"overdue", s.ByLevel[model.RiskOverdue],
			"drifting", s.ByLevel[model.RiskDrifting],
			"optimal", s.ByLevel[model.RiskOptimal],
			"unknown", s.ByLevel[model.RiskUnknown],
		)
		return nil
	}

	notifiers := notify.Multi{notify.Log{}}
	if conf.MQTT.Enabled {
		mq, err := notify.DialMQTT(notify.MQTTConfig{
			Broker:      conf.MQTT.Broker,
			ClientID:    conf.MQTT.ClientID,
			Username:    conf.MQTT.Username,
			Password:    conf.MQTT.Password,
			TopicPrefix: conf.MQTT.TopicPrefix,
			QoS:         byte(conf.MQTT.QoS),
		})
		if err != nil {
			appLog.Error("mqtt unavailable; decisions are only logged", err, "broker", conf.MQTT.Broker)
		} else {
			defer mq.Close()
			notifiers = append(notifiers, mq)
		}
	}

	workflow := suggest.New(events, states, suggest.Options{
		Classifier:  classifier,
		Notifier:    notifiers,
		Location:    loc,
		SaveTimeout: conf.SaveTimeout(),
	})
	restored, err := workflow.Restore(ctx)
	if err != nil {
		return err
	}
	appLog.Info("suggestion states restored", "count", restored)

	layout, err := localcache.New(conf.DataDir, localcache.KeyDashboardLayout, localcache.DefaultLayout)
	if err != nil {
		return err
	}
	chat, err := localcache.New(conf.DataDir, localcache.KeyChatHistory, func() []assistant.Message { return nil })
	if err != nil {
		return err
	}

	srv := web.NewServer(conf, web.Deps{
		Catalog:  catalog,
		Workflow: workflow,
		Events:   events,
		States:   states,
		Renderer: report.Renderer{ExecPath: conf.Chrome.ExecPath, Timeout: conf.ChromeTimeout()},
		Layout:   layout,
		Chat:     assistant.NewHistory(chat),
	})
	defer srv.Close()

	sched := cron.New(cron.WithLocation(loc))
	if _, err := sched.AddFunc(conf.RefreshCron, func() {
		if err := catalog.Refresh(ctx); err != nil {
			appLog.Error("scheduled tool refresh failed", err, "source", catalog.Name())
		}
	}); err != nil {
		return err
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	httpSrv := &http.Server{
		Addr:              conf.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./calibtrack.yaml", "Path to config file")
	flag.StringVar(&cfg.envFile, "env", ".env", "Path to an optional .env file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.importICS, "import", "", "Import events from an .ics file and exit")
	flag.BoolVar(&cfg.once, "once", false, "Refresh the tool catalog, log a summary and exit")

	flag.Parse()

	return cfg
}
