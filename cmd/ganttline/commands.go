package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ganttline/internal/app"
	"ganttline/internal/capture"
	"ganttline/internal/config"
	appLog "ganttline/internal/log"
	"ganttline/internal/render"
	"ganttline/internal/web"
)

// rootFlags holds values shared by every subcommand.
type rootFlags struct {
	configPath string
	logLevel   string
	itemsFile  string
}

func newRootCmd() *cobra.Command {
	var rf rootFlags

	root := &cobra.Command{
		Use:           "ganttline",
		Short:         "Lay out dated items as a Gantt-style timeline",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&rf.configPath, "config", "ganttline.yaml", "Path to config file (.yaml or .toml)")
	root.PersistentFlags().StringVar(&rf.logLevel, "log-level", "", "Log level: debug, info, error (overrides config)")
	root.PersistentFlags().StringVar(&rf.itemsFile, "items", "", "Items file (overrides config items_file)")

	root.AddCommand(newServeCmd(&rf), newRenderCmd(&rf), newCaptureCmd(&rf))
	return root
}

// loadApp loads config, applies flag overrides and builds the App. Only
// serve writes a default config file on first run; one-shot commands fall
// back to the defaults in memory.
func loadApp(rf *rootFlags, createConfig bool) (*app.App, error) {
	load := config.Read
	if createConfig {
		load = config.Load
	}
	conf, err := load(rf.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", rf.configPath, err)
	}
	if rf.logLevel != "" {
		conf.LogLevel = rf.logLevel
	}
	if rf.itemsFile != "" {
		conf.ItemsFile = rf.itemsFile
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	return app.New(conf)
}

func newServeCmd(rf *rootFlags) *cobra.Command {
	var (
		listen  string
		noWatch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive timeline and the layout API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(rf, true)
			if err != nil {
				return err
			}
			conf := a.Config
			if listen != "" {
				conf.Listen = listen
			}

			appLog.Info("effective config",
				"listen", conf.Listen,
				"items_file", conf.ItemsFile,
				"watch", conf.Watch && !noWatch,
				"refresh", conf.RefreshCron,
				"ics_count", len(conf.ICS),
				"capture", conf.Capture.Enabled,
				"column_width", conf.Layout.ColumnWidth,
				"lane_height", conf.Layout.LaneHeight,
			)

			ctx := cmd.Context()
			if conf.Watch && !noWatch && conf.ItemsFile != "" {
				if err := a.Store.Watch(ctx, conf.ItemsFile); err != nil {
					appLog.Error("items file watch disabled", err, "path", conf.ItemsFile)
				}
			}
			if _, err := a.StartScheduler(ctx); err != nil {
				return err
			}

			srv := web.NewServer(conf, a.Store, a.Engine,
				web.WithRefresh(a.RefreshICS),
				web.WithOnListening(func(string) { go a.Cycle(ctx) }),
			)
			err = srv.ListenAndServe(ctx)
			appLog.Info("ganttline exiting")
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the items file on change")
	return cmd
}

func newRenderCmd(rf *rootFlags) *cobra.Command {
	var (
		format    string
		out       string
		cellWidth int
		noColor   bool
		withICS   bool
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the timeline once as svg, html, json or term",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(rf, false)
			if err != nil {
				return err
			}
			if withICS {
				if err := a.RefreshICS(cmd.Context()); err != nil {
					appLog.Error("ics import incomplete", err)
				}
			}
			res, err := a.Engine.Layout(a.Store.Snapshot())
			if err != nil {
				return err
			}

			w := io.Writer(cmd.OutOrStdout())
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			style := render.DefaultStyle()
			style.AxisHeight = a.Config.Layout.AxisHeight

			switch strings.ToLower(format) {
			case "svg":
				return render.SVG(w, res, style)
			case "html":
				return render.HTML(w, res, render.Page{Title: "Timeline", Style: style})
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			case "term", "text":
				return render.Terminal(w, res, render.TermOptions{CellWidth: cellWidth, NoColor: noColor})
			default:
				return fmt.Errorf("unknown format %q (want svg, html, json or term)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "term", "Output format: svg, html, json, term")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output file ('-' for stdout)")
	cmd.Flags().IntVar(&cellWidth, "cell-width", render.DefaultTermOptions().CellWidth, "Terminal cells per day (term format)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colors (term format)")
	cmd.Flags().BoolVar(&withICS, "ics", false, "Import configured ICS feeds before rendering")
	return cmd
}

func newCaptureCmd(rf *rootFlags) *cobra.Command {
	var (
		url string
		out string
	)
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Screenshot a running server's /timeline page to PNG",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(rf, false)
			if err != nil {
				return err
			}
			if out != "" {
				a.Config.Capture.OutputPath = out
			}
			if url == "" {
				return a.Capture(cmd.Context())
			}
			return capture.CapturePNG(cmd.Context(), capture.Options{
				URL:        url,
				OutputPath: a.Config.Capture.OutputPath,
			})
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Page to capture (default: the configured server's /timeline)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "PNG output path (overrides config)")
	return cmd
}
