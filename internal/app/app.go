// Package app wires the item sources, the layout engine and the capture
// pipeline together and runs them on the configured schedule.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ganttline/internal/capture"
	"ganttline/internal/config"
	"ganttline/internal/ics"
	"ganttline/internal/layout"
	appLog "ganttline/internal/log"
	"ganttline/internal/store"
)

// App owns the store and engine for one process.
type App struct {
	Config *config.Config
	Store  *store.Store
	Engine *layout.Engine

	loc *time.Location

	// refreshMu serializes ICS imports triggered by cron and the API.
	refreshMu sync.Mutex
}

// New builds an App from cfg and loads the items file if one is set. A
// missing items file is not an error; the timeline simply starts empty.
func New(cfg *config.Config) (*App, error) {
	opts, err := layout.OptionsFromConfig(cfg.Layout)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Store:  store.New(),
		Engine: layout.NewEngine(opts),
		loc:    resolveLocation(cfg.Timezone),
	}

	if cfg.ItemsFile != "" {
		if err := a.Store.LoadFile(cfg.ItemsFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("load items: %w", err)
			}
			appLog.Info("items file not found; starting empty", "path", cfg.ItemsFile)
		}
	}
	return a, nil
}

// Sources converts the configured ICS subscriptions.
func (a *App) Sources() []ics.Source {
	sources := make([]ics.Source, 0, len(a.Config.ICS))
	for _, c := range a.Config.ICS {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			id = c.Name
		}
		if id == "" {
			id = c.URL
		}
		sources = append(sources, ics.Source{ID: id, URL: c.URL})
	}
	return sources
}

// RefreshICS re-imports every ICS source and replaces its items in the
// store. Sources that fail keep their previous items.
func (a *App) RefreshICS(ctx context.Context) error {
	sources := a.Sources()
	if len(sources) == 0 {
		return nil
	}

	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	imported, errs := ics.Import(ctx, ics.ImportConfig{
		Sources:      sources,
		CacheDir:     a.Config.ICSCacheDir,
		Location:     a.loc,
		BackfillDays: a.Config.ICSBackfillDays,
		HorizonDays:  a.Config.ICSHorizonDays,
	})
	// Config order fixes the order sources appear in snapshots.
	for _, src := range sources {
		items, ok := imported[src.ID]
		if !ok {
			continue
		}
		if err := a.Store.Replace("ics:"+src.ID, items); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		err := ics.JoinErrors(errs)
		appLog.Error("ics refresh finished with errors", err, "error_count", len(errs))
		return err
	}
	return nil
}

// Capture renders the running server's /timeline page to the configured
// PNG path.
func (a *App) Capture(ctx context.Context) error {
	res, err := a.Engine.Layout(a.Store.Snapshot())
	if err != nil {
		return err
	}
	w, h := capture.ViewportFor(res.TotalWidth, res.TotalHeight, a.Config.Layout.AxisHeight)
	return capture.CapturePNG(ctx, capture.Options{
		URL:        "http://" + localAddr(a.Config.Listen) + "/timeline",
		OutputPath: a.Config.Capture.OutputPath,
		Width:      w,
		Height:     h,
		Timeout:    time.Duration(a.Config.Capture.TimeoutSec) * time.Second,
	})
}

// Cycle is one scheduled run: refresh, then capture when enabled. Capture
// needs the web server to be listening.
func (a *App) Cycle(ctx context.Context) {
	if err := a.RefreshICS(ctx); err != nil {
		appLog.Error("scheduled refresh failed", err)
	}
	if !a.Config.Capture.Enabled {
		return
	}
	if err := a.Capture(ctx); err != nil {
		appLog.Error("scheduled capture failed", err)
	}
}

// StartScheduler runs Cycle on RefreshCron until ctx is canceled. The
// returned cron is already started; the first run is left to the caller.
func (a *App) StartScheduler(ctx context.Context) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(a.Config.RefreshCron, func() { a.Cycle(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", a.Config.RefreshCron, err)
	}
	c.Start()
	appLog.Info("scheduler started", "refresh", a.Config.RefreshCron, "ics_count", len(a.Sources()))

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return c, nil
}

func resolveLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to UTC", err, "name", name)
		return time.UTC
	}
	return loc
}

// localAddr turns a wildcard listen address into one a local browser can
// dial.
func localAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
