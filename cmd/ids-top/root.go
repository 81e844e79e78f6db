package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nixlim/ids-top/internal/app"
	"github.com/nixlim/ids-top/internal/channel"
	"github.com/nixlim/ids-top/internal/config"
	"github.com/nixlim/ids-top/internal/logging"
	"github.com/nixlim/ids-top/internal/tui"
)

type rootOptions struct {
	configPath string
	debugPath  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "ids-top",
		Short: "Terminal dashboard for realtime intrusion alerts",
		Long: `ids-top subscribes to a detection backend's realtime alert channel,
keeps the newest alerts in memory and lets an analyst triage them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDashboard(cmd.Context(), opts, cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/ids-top/config.toml)")
	cmd.Flags().StringVar(&opts.debugPath, "debug", "", "write every channel frame as JSONL to this file")

	cmd.AddCommand(newAnnotationsCmd(opts))
	cmd.AddCommand(newFiltersCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))

	return cmd
}

func loadConfig(opts *rootOptions, stderr io.Writer) (config.Config, error) {
	var (
		res *config.LoadResult
		err error
	)
	if opts.configPath != "" {
		res, err = config.LoadFrom(opts.configPath)
	} else {
		res, err = config.Load()
	}
	if err != nil {
		return config.Config{}, fmt.Errorf("config error: %w", err)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(stderr, "ids-top: config warning: %s\n", w)
	}
	return res.Config, nil
}

// setup loads the config and opens the log file. The returned close func is
// never nil.
func setup(opts *rootOptions, stderr io.Writer) (config.Config, *zap.SugaredLogger, func(), error) {
	cfg, err := loadConfig(opts, stderr)
	if err != nil {
		return config.Config{}, nil, func() {}, err
	}
	logger, closeLog, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "ids-top: logging disabled: %v\n", err)
		return cfg, logging.OrNop(nil), func() {}, nil
	}
	return cfg, logger, func() { _ = closeLog() }, nil
}

func runDashboard(ctx context.Context, opts *rootOptions, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, logger, closeLog, err := setup(opts, stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	appOpts := []app.Option{app.WithLogger(logger)}
	if opts.debugPath != "" {
		f, err := os.OpenFile(opts.debugPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("opening debug file: %w", err)
		}
		defer f.Close()
		appOpts = append(appOpts, app.WithFrameLogger(channel.NewFileFrameLogger(f)))
	}

	a := app.New(ctx, cfg, appOpts...)
	if !a.Persistent() {
		fmt.Fprintln(stderr, "ids-top: storage unavailable, annotations and filters will not be saved")
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown()
		return fmt.Errorf("starting: %w", err)
	}

	model := tui.NewModel(cfg,
		tui.WithAlertProvider(a),
		tui.WithConnectionProvider(a),
		tui.WithStatsProvider(a),
		tui.WithHistoryProvider(a.Sampler()),
		tui.WithAnnotations(a.Annotations()),
		tui.WithFilterProvider(a.Filters()),
		tui.WithNotificationController(a.Notifications()),
		tui.WithSessionController(a),
		tui.WithPersistenceFlag(a.Persistent()),
		tui.WithOnShutdown(func() {
			if err := a.Shutdown(); err != nil {
				logger.Warnw("Shutdown error", "error", err)
			}
		}),
	)

	p := tea.NewProgram(model, tea.WithAltScreen())

	// Observers run on the channel's reader, so refreshes are coalesced
	// and handed to the program from a separate goroutine.
	done := make(chan struct{})
	defer close(done)
	refresh := make(chan struct{}, 1)
	unsubscribe := a.Subscribe(func(app.Event) {
		select {
		case refresh <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()
	go func() {
		for {
			select {
			case <-refresh:
				p.Send(tui.RefreshMsg{})
			case <-done:
				return
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			_ = a.Shutdown()
			p.Quit()
		case <-done:
		}
	}()

	if _, err := p.Run(); err != nil {
		_ = a.Shutdown()
		return fmt.Errorf("running dashboard: %w", err)
	}

	if err := a.Shutdown(); err != nil {
		fmt.Fprintf(stderr, "ids-top: shutdown: %v\n", err)
	}
	return nil
}
